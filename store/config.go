package store

import (
	"log/slog"
	"time"
)

// Config holds configuration for a Repository.
type Config struct {
	// IndexName is the index documents are stored in.
	// Default: the schema name, used as is. Names are never pluralized, so a
	// "person" schema stored in "people" needs IndexName: "people".
	IndexName string

	// DocumentType is recorded with every document.
	// Default: the schema name.
	DocumentType string

	// Timeout bounds every store call. The caller's context deadline still applies.
	// Default: 0 (no extra deadline).
	Timeout time.Duration

	// Validator runs before every Save. Default: none.
	Validator Validator

	// Indexes caches index existence. Share one across repositories that use the
	// same Client. Default: a private Indexes.
	Indexes *Indexes

	// Clock supplies timestamps. Default: the system clock.
	Clock Clock

	// Logger receives operation logs. Default: slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns a Config whose names are filled in from the schema at New.
func DefaultConfig() Config {
	return Config{}
}

// validate fills defaults for a repository over the named schema.
func (c *Config) validate(schemaName string) {
	if c.IndexName == "" {
		c.IndexName = schemaName
	}
	if c.DocumentType == "" {
		c.DocumentType = schemaName
	}
	if c.Timeout < 0 {
		c.Timeout = 0
	}
	if c.Clock == nil {
		c.Clock = SystemClock()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

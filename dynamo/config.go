package dynamo

import (
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Config holds configuration for the Client.
type Config struct {
	// SchemaTable is the table that records the settings and mapping each index
	// was created with, keyed by "name". Empty disables the record.
	// Default: "" (disabled)
	SchemaTable string

	// TableWaitTimeout bounds how long CreateIndex waits for a new table to become active.
	// Default: 2m
	TableWaitTimeout time.Duration

	// BillingMode is used for tables created by CreateIndex.
	// Default: PAY_PER_REQUEST
	BillingMode types.BillingMode
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		TableWaitTimeout: 2 * time.Minute,
		BillingMode:      types.BillingModePayPerRequest,
	}
}

// validate ensures config values are within acceptable bounds.
func (c *Config) validate() {
	if c.TableWaitTimeout <= 0 {
		c.TableWaitTimeout = 2 * time.Minute
	}
	if c.BillingMode == "" {
		c.BillingMode = types.BillingModePayPerRequest
	}
}

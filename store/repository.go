package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jacentio/persistence/schema"
)

// Repository persists records of one schema through a Client.
// It holds no per-document state and is safe for concurrent use; the records
// passed to it are not.
type Repository struct {
	client  Client
	schema  *schema.Schema
	config  Config
	indexes *Indexes
	logger  *slog.Logger
}

// New creates a Repository for records of s.
func New(client Client, s *schema.Schema, config Config) *Repository {
	config.validate(s.Name())
	indexes := config.Indexes
	if indexes == nil {
		indexes = NewIndexes(client)
	}
	return &Repository{
		client:  client,
		schema:  s,
		config:  config,
		indexes: indexes,
		logger:  config.Logger.With("index", config.IndexName),
	}
}

// Schema returns the schema records of this repository are bound to.
func (r *Repository) Schema() *schema.Schema { return r.schema }

// IndexName returns the index documents are stored in.
func (r *Repository) IndexName() string { return r.config.IndexName }

// New builds a New record of this repository's schema.
func (r *Repository) New(values map[string]any) (*Record, error) {
	return NewRecord(r.schema, values)
}

// EnsureIndex creates the index from the schema's settings and mapping if absent.
func (r *Repository) EnsureIndex(ctx context.Context) error {
	ctx, cancel := r.callContext(ctx)
	defer cancel()
	err := r.indexes.Ensure(ctx, r.config.IndexName, r.schema.Settings(), r.schema.DeriveMapping())
	return classify(err)
}

// Create builds a record from values and saves it.
func (r *Repository) Create(ctx context.Context, values map[string]any) (*Record, error) {
	rec, err := r.New(values)
	if err != nil {
		return nil, err
	}
	if err := r.Save(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Save validates and writes the whole record. Records without an id get one
// assigned by the store; records with an id are created or replaced under it.
func (r *Repository) Save(ctx context.Context, rec *Record) error {
	if err := r.checkSchema(rec); err != nil {
		return err
	}
	if rec.state == StateDestroyed {
		return ErrInstanceDestroyed
	}
	if r.config.Validator != nil {
		if violations := r.config.Validator.Validate(rec); len(violations) > 0 {
			return &ValidationError{Violations: violations}
		}
	}
	if err := r.EnsureIndex(ctx); err != nil {
		return err
	}

	now := nextTimestamp(r.config.Clock, rec.updatedAt)
	createdAt := rec.createdAt
	if createdAt.IsZero() {
		createdAt = now
	}
	body := rec.encode(r.schema.Names(), rec.values)
	body[schema.FieldCreatedAt] = schema.FormatTime(createdAt)
	body[schema.FieldUpdatedAt] = schema.FormatTime(now)

	ctx, cancel := r.callContext(ctx)
	defer cancel()
	doc, err := r.client.Index(ctx, r.key(rec.id), body)
	if err != nil {
		r.logger.Debug("save failed", "id", rec.id, "error", err)
		return classify(err)
	}
	if rec.state == StatePersisted && doc.ID != rec.id {
		return fmt.Errorf("%w: store returned id %q for %q", ErrTransport, doc.ID, rec.id)
	}

	rec.id = doc.ID
	rec.version = doc.Version
	rec.createdAt = createdAt
	if stored, err := decodeTime(doc.Source[schema.FieldCreatedAt]); err == nil && !stored.IsZero() {
		rec.createdAt = stored
	}
	rec.updatedAt = now
	rec.state = StatePersisted
	clear(rec.dirty)

	r.logger.Debug("saved document", "id", rec.id, "version", rec.version)
	return nil
}

// Find reads a document by id.
func (r *Repository) Find(ctx context.Context, id string) (*Record, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	ctx, cancel := r.callContext(ctx)
	defer cancel()
	doc, err := r.client.Get(ctx, r.key(id))
	if err != nil {
		return nil, classify(err)
	}
	return Load(r.schema, doc)
}

// Update applies attrs to the record and writes only the dirty attributes plus a
// fresh updated_at, conditional on the record's version. On any failure the
// record is left as it was.
func (r *Repository) Update(ctx context.Context, rec *Record, attrs map[string]any) error {
	if err := r.checkWritable(rec); err != nil {
		return err
	}
	staged, err := stageValues(r.schema, attrs)
	if err != nil {
		return err
	}

	values := rec.Values()
	dirty := make(map[string]struct{}, len(rec.dirty)+len(staged))
	for name := range rec.dirty {
		dirty[name] = struct{}{}
	}
	for name, v := range staged {
		values[name] = v
		dirty[name] = struct{}{}
	}
	var names []string
	for _, name := range r.schema.Names() {
		if _, ok := dirty[name]; ok {
			names = append(names, name)
		}
	}

	now := nextTimestamp(r.config.Clock, rec.updatedAt)
	fields := rec.encode(names, values)
	fields[schema.FieldUpdatedAt] = schema.FormatTime(now)

	ctx, cancel := r.callContext(ctx)
	defer cancel()
	doc, err := r.client.Update(ctx, r.key(rec.id), fields, rec.version)
	if err != nil {
		if errors.Is(err, ErrVersionConflict) {
			r.logger.Warn("update rejected by version check", "id", rec.id, "version", rec.version)
		}
		return classify(err)
	}

	for name, v := range staged {
		rec.values[name] = v
	}
	rec.updatedAt = now
	rec.version = doc.Version
	clear(rec.dirty)

	r.logger.Debug("updated document", "id", rec.id, "version", rec.version, "fields", names)
	return nil
}

// Touch writes a fresh updated_at, strictly later than the previous one.
func (r *Repository) Touch(ctx context.Context, rec *Record) error {
	return r.Update(ctx, rec, nil)
}

// Increment atomically adds by to a numeric attribute on the server and refreshes
// the attribute, updated_at and version from the response.
func (r *Repository) Increment(ctx context.Context, rec *Record, field string, by int64) error {
	if err := r.checkWritable(rec); err != nil {
		return err
	}
	attr, ok := r.schema.Attribute(field)
	if !ok {
		return fmt.Errorf("%w: %q", schema.ErrUnknownAttribute, field)
	}
	if !attr.Kind.Numeric() {
		return fmt.Errorf("%w: cannot increment %s attribute %q", schema.ErrTypeMismatch, attr.Kind, field)
	}

	now := nextTimestamp(r.config.Clock, rec.updatedAt)
	fields := map[string]any{schema.FieldUpdatedAt: schema.FormatTime(now)}

	ctx, cancel := r.callContext(ctx)
	defer cancel()
	doc, err := r.client.Increment(ctx, r.key(rec.id), field, by, fields)
	if err != nil {
		return classify(err)
	}
	v, err := r.schema.CastValue(field, doc.Source[field])
	if err != nil {
		return fmt.Errorf("decode incremented %q: %w", field, err)
	}

	rec.values[field] = v
	rec.updatedAt = now
	rec.version = doc.Version
	delete(rec.dirty, field)

	r.logger.Debug("incremented field", "id", rec.id, "field", field, "by", by, "version", rec.version)
	return nil
}

// Decrement atomically subtracts by from a numeric attribute.
func (r *Repository) Decrement(ctx context.Context, rec *Record, field string, by int64) error {
	return r.Increment(ctx, rec, field, -by)
}

// Destroy deletes the record's document. The record becomes Destroyed and
// rejects every further mutation.
func (r *Repository) Destroy(ctx context.Context, rec *Record) error {
	if err := r.checkWritable(rec); err != nil {
		return err
	}

	ctx, cancel := r.callContext(ctx)
	defer cancel()
	if err := r.client.Delete(ctx, r.key(rec.id)); err != nil {
		return classify(err)
	}
	rec.state = StateDestroyed

	r.logger.Debug("destroyed document", "id", rec.id)
	return nil
}

// checkWritable guards operations that need an existing, live document.
func (r *Repository) checkWritable(rec *Record) error {
	if err := r.checkSchema(rec); err != nil {
		return err
	}
	switch rec.state {
	case StateDestroyed:
		return ErrInstanceDestroyed
	case StateNew:
		return ErrNotPersisted
	}
	return nil
}

func (r *Repository) checkSchema(rec *Record) error {
	if rec == nil {
		return fmt.Errorf("persistence: nil record")
	}
	if rec.schema != r.schema {
		return fmt.Errorf("persistence: record of schema %q passed to repository of %q", rec.schema.Name(), r.schema.Name())
	}
	return nil
}

func (r *Repository) key(id string) Key {
	return Key{Index: r.config.IndexName, Type: r.config.DocumentType, ID: id}
}

// callContext applies the configured per-call timeout.
func (r *Repository) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.config.Timeout > 0 {
		return context.WithTimeout(ctx, r.config.Timeout)
	}
	return context.WithCancel(ctx)
}

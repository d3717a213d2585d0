package store

import (
	"fmt"
	"time"

	"github.com/jacentio/persistence/schema"
)

// State is the lifecycle state of a Record.
type State int

const (
	// StateNew records have never been saved.
	StateNew State = iota
	// StatePersisted records mirror a stored document.
	StatePersisted
	// StateDestroyed records had their document deleted. Terminal.
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StatePersisted:
		return "persisted"
	case StateDestroyed:
		return "destroyed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Record is an in-memory document bound to a schema. Every value it holds has
// been cast to its attribute's kind. Records are not safe for concurrent mutation.
type Record struct {
	schema    *schema.Schema
	id        string
	values    map[string]any
	createdAt time.Time
	updatedAt time.Time
	version   int64
	state     State
	dirty     map[string]struct{}
}

// NewRecord builds a New record. Attributes missing from values get their
// declared default; supplied attributes are marked dirty.
func NewRecord(s *schema.Schema, values map[string]any) (*Record, error) {
	staged, err := stageValues(s, values)
	if err != nil {
		return nil, err
	}

	r := &Record{
		schema: s,
		values: make(map[string]any, len(s.Names())),
		dirty:  make(map[string]struct{}, len(values)),
	}
	for _, name := range s.Names() {
		if v, ok := staged[name]; ok {
			r.values[name] = v
			r.dirty[name] = struct{}{}
			continue
		}
		def, err := s.DefaultFor(name)
		if err != nil {
			return nil, err
		}
		r.values[name] = def
	}
	return r, nil
}

// Load builds a Persisted record from a stored document.
func Load(s *schema.Schema, doc *Document) (*Record, error) {
	r, err := NewRecord(s, nil)
	if err != nil {
		return nil, err
	}
	if err := r.ApplyStoreResponse(doc); err != nil {
		return nil, err
	}
	return r, nil
}

// stageValues casts values without touching any record.
func stageValues(s *schema.Schema, values map[string]any) (map[string]any, error) {
	staged := make(map[string]any, len(values))
	for name, raw := range values {
		v, err := s.CastValue(name, raw)
		if err != nil {
			return nil, err
		}
		staged[name] = v
	}
	return staged, nil
}

// Schema returns the record's schema.
func (r *Record) Schema() *schema.Schema { return r.schema }

// ID returns the document id, empty for records that were never saved.
func (r *Record) ID() string { return r.id }

// SetID sets the id a New record will be saved under.
func (r *Record) SetID(id string) error {
	switch r.state {
	case StateDestroyed:
		return ErrInstanceDestroyed
	case StatePersisted:
		if id != r.id {
			return ErrIDImmutable
		}
	}
	r.id = id
	return nil
}

// State returns the lifecycle state.
func (r *Record) State() State { return r.state }

// IsPersisted reports whether the record mirrors a stored document.
func (r *Record) IsPersisted() bool { return r.state == StatePersisted }

// IsDestroyed reports whether the record's document was deleted.
func (r *Record) IsDestroyed() bool { return r.state == StateDestroyed }

// CreatedAt returns the creation timestamp, zero until saved.
func (r *Record) CreatedAt() time.Time { return r.createdAt }

// UpdatedAt returns the last write timestamp, zero until saved.
func (r *Record) UpdatedAt() time.Time { return r.updatedAt }

// Version returns the store version seen by the last successful operation.
func (r *Record) Version() int64 { return r.version }

// Get returns the typed value of an attribute.
func (r *Record) Get(name string) (any, bool) {
	v, ok := r.values[name]
	return v, ok
}

// String returns a String attribute, or "" if unset or of another kind.
func (r *Record) String(name string) string {
	s, _ := r.values[name].(string)
	return s
}

// Int returns an Integer attribute, or 0.
func (r *Record) Int(name string) int64 {
	n, _ := r.values[name].(int64)
	return n
}

// Float returns a Float attribute, or 0.
func (r *Record) Float(name string) float64 {
	f, _ := r.values[name].(float64)
	return f
}

// Bool returns a Boolean attribute, or false.
func (r *Record) Bool(name string) bool {
	b, _ := r.values[name].(bool)
	return b
}

// Time returns a Date or Time attribute, or the zero time.
func (r *Record) Time(name string) time.Time {
	t, _ := r.values[name].(time.Time)
	return t
}

// Values returns a copy of all attribute values.
func (r *Record) Values() map[string]any {
	out := make(map[string]any, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// Set casts and stores a value and marks the attribute dirty.
func (r *Record) Set(name string, value any) error {
	if r.state == StateDestroyed {
		return ErrInstanceDestroyed
	}
	v, err := r.schema.CastValue(name, value)
	if err != nil {
		return err
	}
	r.values[name] = v
	r.dirty[name] = struct{}{}
	return nil
}

// Dirty returns the attributes changed since the last successful persist,
// in declaration order.
func (r *Record) Dirty() []string {
	var names []string
	for _, name := range r.schema.Names() {
		if _, ok := r.dirty[name]; ok {
			names = append(names, name)
		}
	}
	return names
}

// IsDirty reports whether name changed since the last successful persist.
func (r *Record) IsDirty(name string) bool {
	_, ok := r.dirty[name]
	return ok
}

// Serialize renders the document body: every attribute in store
// representation plus created_at and updated_at (null until saved).
func (r *Record) Serialize() map[string]any {
	body := r.encode(r.schema.Names(), r.values)
	body[schema.FieldCreatedAt] = encodeTime(r.createdAt)
	body[schema.FieldUpdatedAt] = encodeTime(r.updatedAt)
	return body
}

// encode renders the named values. Values are cast on entry, so encoding cannot fail.
func (r *Record) encode(names []string, values map[string]any) map[string]any {
	out := make(map[string]any, len(names)+2)
	for _, name := range names {
		v, err := r.schema.Encode(name, values[name])
		if err != nil {
			panic(fmt.Sprintf("persistence: encode cast value %q: %v", name, err))
		}
		out[name] = v
	}
	return out
}

// ApplyStoreResponse hydrates the record from a store response: id, version,
// timestamps and every declared attribute present in the document. Fields the
// schema does not declare are ignored. The record becomes Persisted and clean.
func (r *Record) ApplyStoreResponse(doc *Document) error {
	if r.state == StateDestroyed {
		return ErrInstanceDestroyed
	}
	if doc == nil {
		return fmt.Errorf("%w: empty store response", ErrTransport)
	}
	if r.state == StatePersisted && doc.ID != r.id {
		return ErrIDImmutable
	}

	values := make(map[string]any, len(doc.Source))
	for _, name := range r.schema.Names() {
		raw, ok := doc.Source[name]
		if !ok {
			continue
		}
		v, err := r.schema.CastValue(name, raw)
		if err != nil {
			return fmt.Errorf("decode document %s: %w", doc.ID, err)
		}
		values[name] = v
	}
	createdAt, err := decodeTime(doc.Source[schema.FieldCreatedAt])
	if err != nil {
		return fmt.Errorf("decode document %s: %w", doc.ID, err)
	}
	updatedAt, err := decodeTime(doc.Source[schema.FieldUpdatedAt])
	if err != nil {
		return fmt.Errorf("decode document %s: %w", doc.ID, err)
	}

	r.id = doc.ID
	r.version = doc.Version
	for name, v := range values {
		r.values[name] = v
	}
	if !createdAt.IsZero() {
		r.createdAt = createdAt
	}
	if !updatedAt.IsZero() {
		r.updatedAt = updatedAt
	}
	r.state = StatePersisted
	clear(r.dirty)
	return nil
}

func encodeTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return schema.FormatTime(t)
}

func decodeTime(raw any) (time.Time, error) {
	switch v := raw.(type) {
	case nil:
		return time.Time{}, nil
	case string:
		if v == "" {
			return time.Time{}, nil
		}
		return schema.ParseTime(v)
	case time.Time:
		return v.UTC().Truncate(timestampResolution), nil
	}
	return time.Time{}, fmt.Errorf("%w: timestamp %T", schema.ErrTypeMismatch, raw)
}

package schema

import "fmt"

// Store-managed field names. They are never declared as attributes.
const (
	FieldID        = "_id"
	FieldVersion   = "_version"
	FieldType      = "_type"
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
)

// IsReserved reports whether name is managed by the store rather than declared.
func IsReserved(name string) bool {
	switch name {
	case FieldID, FieldVersion, FieldType, FieldCreatedAt, FieldUpdatedAt:
		return true
	}
	return false
}

// Attribute is a single declared field of a record type.
type Attribute struct {
	// Name is unique within a schema.
	Name string

	// Kind determines casting, store encoding and the inferred mapping.
	Kind Kind

	// Default is the declared default, already cast to Kind. Only meaningful if HasDefault.
	Default    any
	HasDefault bool

	// Mapping is an explicit mapping fragment merged over the inferred one.
	Mapping map[string]any
}

// Option configures an attribute at declaration time.
type Option func(*Attribute)

// WithDefault sets the value used when a record is built without this attribute.
func WithDefault(v any) Option {
	return func(a *Attribute) {
		a.Default = v
		a.HasDefault = true
	}
}

// WithMapping sets an explicit mapping fragment for the attribute, e.g.
//
//	schema.WithMapping(map[string]any{
//	    "fields": map[string]any{"raw": map[string]any{"type": "keyword"}},
//	})
func WithMapping(fragment map[string]any) Option {
	return func(a *Attribute) {
		a.Mapping = copyMap(fragment)
	}
}

// Builder accumulates attribute declarations for one record type.
// A Builder is not safe for concurrent use.
type Builder struct {
	name     string
	attrs    []Attribute
	byName   map[string]int
	settings map[string]any
}

// NewBuilder starts a schema for the record type name (e.g. "person").
func NewBuilder(name string) *Builder {
	return &Builder{
		name:   name,
		byName: make(map[string]int),
	}
}

// Declare registers an attribute.
func (b *Builder) Declare(name string, kind Kind, opts ...Option) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrUnknownAttribute)
	}
	if IsReserved(name) {
		return fmt.Errorf("%w: %q", ErrReservedAttribute, name)
	}
	if !kind.Valid() {
		return fmt.Errorf("%w: %s for %q", ErrInvalidKind, kind, name)
	}
	if _, exists := b.byName[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateAttribute, name)
	}

	attr := Attribute{Name: name, Kind: kind}
	for _, opt := range opts {
		opt(&attr)
	}
	if attr.HasDefault {
		v, err := cast(kind, attr.Default)
		if err != nil {
			return fmt.Errorf("default for %q: %w", name, err)
		}
		attr.Default = v
	}

	b.byName[name] = len(b.attrs)
	b.attrs = append(b.attrs, attr)
	return nil
}

// Settings sets the index-level settings, e.g. {"index": {"number_of_shards": 1}}.
func (b *Builder) Settings(settings map[string]any) *Builder {
	b.settings = copyMap(settings)
	return b
}

// Build freezes the declarations into a Schema. The Builder may keep being used;
// later declarations do not affect Schemas already built.
func (b *Builder) Build() (*Schema, error) {
	if b.name == "" {
		return nil, fmt.Errorf("persistence: schema needs a name")
	}
	s := &Schema{
		name:     b.name,
		attrs:    make([]Attribute, len(b.attrs)),
		byName:   make(map[string]int, len(b.attrs)),
		settings: copyMap(b.settings),
	}
	for i, a := range b.attrs {
		a.Mapping = copyMap(a.Mapping)
		s.attrs[i] = a
		s.byName[a.Name] = i
	}
	return s, nil
}

// Schema is the immutable, ordered attribute set of one record type.
// It is safe for concurrent use.
type Schema struct {
	name     string
	attrs    []Attribute
	byName   map[string]int
	settings map[string]any
}

// Name returns the record type name.
func (s *Schema) Name() string {
	return s.name
}

// Attributes returns the declared attributes in declaration order.
func (s *Schema) Attributes() []Attribute {
	out := make([]Attribute, len(s.attrs))
	for i, a := range s.attrs {
		a.Mapping = copyMap(a.Mapping)
		out[i] = a
	}
	return out
}

// Names returns the declared attribute names in declaration order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.attrs))
	for i, a := range s.attrs {
		names[i] = a.Name
	}
	return names
}

// Attribute looks up a declared attribute.
func (s *Schema) Attribute(name string) (Attribute, bool) {
	i, ok := s.byName[name]
	if !ok {
		return Attribute{}, false
	}
	a := s.attrs[i]
	a.Mapping = copyMap(a.Mapping)
	return a, true
}

// Has reports whether name is declared.
func (s *Schema) Has(name string) bool {
	_, ok := s.byName[name]
	return ok
}

// Settings returns a copy of the index-level settings.
func (s *Schema) Settings() map[string]any {
	return copyMap(s.settings)
}

// CastValue converts raw into the typed representation of the named attribute.
func (s *Schema) CastValue(name string, raw any) (any, error) {
	i, ok := s.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAttribute, name)
	}
	v, err := cast(s.attrs[i].Kind, raw)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", name, err)
	}
	return v, nil
}

// DefaultFor returns the declared default, or the kind's zero value.
func (s *Schema) DefaultFor(name string) (any, error) {
	i, ok := s.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAttribute, name)
	}
	a := s.attrs[i]
	if a.HasDefault {
		return a.Default, nil
	}
	return a.Kind.Zero(), nil
}

// Encode converts a typed value into its store representation.
func (s *Schema) Encode(name string, value any) (any, error) {
	i, ok := s.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAttribute, name)
	}
	v, err := encode(s.attrs[i].Kind, value)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", name, err)
	}
	return v, nil
}

// copyMap deep-copies nested maps and slices; other values are shared.
func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	default:
		return v
	}
}

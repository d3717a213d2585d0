package schema_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/jacentio/persistence/schema"
)

func personSchema(t *testing.T) *schema.Schema {
	t.Helper()
	b := schema.NewBuilder("person").Settings(map[string]any{
		"index": map[string]any{"number_of_shards": 1},
	})
	decls := []struct {
		name string
		kind schema.Kind
		opts []schema.Option
	}{
		{"name", schema.String, []schema.Option{schema.WithMapping(map[string]any{
			"fields": map[string]any{
				"name": map[string]any{"type": "text", "analyzer": "snowball"},
				"raw":  map[string]any{"type": "keyword"},
			},
		})}},
		{"birthday", schema.Date, nil},
		{"department", schema.String, nil},
		{"salary", schema.Integer, nil},
		{"admin", schema.Boolean, []schema.Option{schema.WithDefault(false)}},
	}
	for _, d := range decls {
		if err := b.Declare(d.name, d.kind, d.opts...); err != nil {
			t.Fatalf("Declare(%q) failed: %v", d.name, err)
		}
	}
	s, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return s
}

func TestDeclare_Duplicate(t *testing.T) {
	b := schema.NewBuilder("person")
	if err := b.Declare("name", schema.String); err != nil {
		t.Fatalf("first Declare failed: %v", err)
	}
	err := b.Declare("name", schema.Integer)
	if !errors.Is(err, schema.ErrDuplicateAttribute) {
		t.Errorf("expected ErrDuplicateAttribute, got %v", err)
	}
}

func TestDeclare_Reserved(t *testing.T) {
	for _, name := range []string{"_id", "_version", "_type", "created_at", "updated_at"} {
		t.Run(name, func(t *testing.T) {
			err := schema.NewBuilder("person").Declare(name, schema.String)
			if !errors.Is(err, schema.ErrReservedAttribute) {
				t.Errorf("expected ErrReservedAttribute, got %v", err)
			}
		})
	}
}

func TestDeclare_InvalidKind(t *testing.T) {
	err := schema.NewBuilder("person").Declare("name", schema.Kind(99))
	if !errors.Is(err, schema.ErrInvalidKind) {
		t.Errorf("expected ErrInvalidKind, got %v", err)
	}
}

func TestDeclare_BadDefault(t *testing.T) {
	err := schema.NewBuilder("person").Declare("admin", schema.Boolean, schema.WithDefault("maybe"))
	if !errors.Is(err, schema.ErrTypeMismatch) {
		t.Errorf("expected ErrTypeMismatch, got %v", err)
	}
}

func TestBuild_RequiresName(t *testing.T) {
	if _, err := schema.NewBuilder("").Build(); err == nil {
		t.Error("expected error for unnamed schema")
	}
}

func TestBuild_IsImmutable(t *testing.T) {
	b := schema.NewBuilder("person")
	_ = b.Declare("name", schema.String)
	s, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	_ = b.Declare("salary", schema.Integer)

	if s.Has("salary") {
		t.Error("schema changed after Build")
	}
	attrs := s.Attributes()
	attrs[0].Name = "changed"
	if s.Names()[0] != "name" {
		t.Error("Attributes() exposed internal state")
	}
}

func TestSchema_Order(t *testing.T) {
	s := personSchema(t)
	want := []string{"name", "birthday", "department", "salary", "admin"}
	if diff := cmp.Diff(want, s.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
}

func TestDefaultFor(t *testing.T) {
	s := personSchema(t)
	tests := []struct {
		name string
		want any
	}{
		{"admin", false},
		{"salary", int64(0)},
		{"name", ""},
		{"birthday", time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.DefaultFor(tt.name)
			if err != nil {
				t.Fatalf("DefaultFor failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %#v, got %#v", tt.want, got)
			}
		})
	}

	if _, err := s.DefaultFor("nope"); !errors.Is(err, schema.ErrUnknownAttribute) {
		t.Errorf("expected ErrUnknownAttribute, got %v", err)
	}
}

func TestCastValue(t *testing.T) {
	s := personSchema(t)
	birthday := time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		field string
		raw   any
		want  any
	}{
		{"string", "name", "John Smith", "John Smith"},
		{"bytes to string", "name", []byte("John"), "John"},
		{"int to string", "department", 42, "42"},
		{"nil string", "name", nil, ""},
		{"int", "salary", 1000, int64(1000)},
		{"uint32", "salary", uint32(7), int64(7)},
		{"integral float", "salary", 1001.0, int64(1001)},
		{"numeric string", "salary", " 1000 ", int64(1000)},
		{"json number", "salary", json.Number("1001"), int64(1001)},
		{"bool", "admin", true, true},
		{"bool string", "admin", "Yes", true},
		{"bool zero", "admin", 0, false},
		{"date string", "birthday", "1970-01-01", birthday},
		{"rfc3339 date", "birthday", "1970-01-01T13:45:00Z", birthday},
		{"time to date", "birthday", time.Date(1970, 1, 1, 23, 59, 0, 0, time.UTC), birthday},
		{"unix seconds to date", "birthday", int64(3600), birthday},
		{"negative offset keeps its day", "birthday", "1970-01-01T23:00:00-05:00", birthday},
		{"positive offset keeps its day", "birthday", "1970-01-01T01:00:00+09:00", birthday},
		{"zoned time keeps its day", "birthday", time.Date(1970, 1, 1, 23, 0, 0, 0, time.FixedZone("EST", -5*3600)), birthday},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.CastValue(tt.field, tt.raw)
			if err != nil {
				t.Fatalf("CastValue failed: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCastValue_Mismatch(t *testing.T) {
	s := personSchema(t)
	tests := []struct {
		name  string
		field string
		raw   any
	}{
		{"fractional int", "salary", 10.5},
		{"word int", "salary", "lots"},
		{"bool int", "salary", true},
		{"bad bool", "admin", "maybe"},
		{"int bool", "admin", 2},
		{"bad date", "birthday", "yesterday"},
		{"struct string", "name", struct{}{}},
		{"overflow", "salary", uint64(1 << 63)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CastValue(tt.field, tt.raw)
			if !errors.Is(err, schema.ErrTypeMismatch) {
				t.Errorf("expected ErrTypeMismatch, got %v", err)
			}
		})
	}

	if _, err := s.CastValue("nope", "x"); !errors.Is(err, schema.ErrUnknownAttribute) {
		t.Errorf("expected ErrUnknownAttribute, got %v", err)
	}
}

func TestCastValue_TimeKind(t *testing.T) {
	b := schema.NewBuilder("event")
	_ = b.Declare("at", schema.Time)
	_ = b.Declare("ratio", schema.Float)
	s, _ := b.Build()

	in := time.Date(2024, 3, 1, 10, 0, 0, 123456789, time.FixedZone("X", 3600))
	got, err := s.CastValue("at", in)
	if err != nil {
		t.Fatalf("CastValue failed: %v", err)
	}
	want := time.Date(2024, 3, 1, 9, 0, 0, 123456000, time.UTC)
	if !got.(time.Time).Equal(want) || got.(time.Time).Location() != time.UTC {
		t.Errorf("expected %v, got %v", want, got)
	}

	f, err := s.CastValue("ratio", "0.25")
	if err != nil || f != 0.25 {
		t.Errorf("expected 0.25, got %v (%v)", f, err)
	}
}

func TestEncode(t *testing.T) {
	s := personSchema(t)
	tests := []struct {
		field string
		value any
		want  any
	}{
		{"birthday", time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC), "1970-01-01"},
		{"birthday", time.Time{}, nil},
		{"salary", int64(1001), int64(1001)},
		{"admin", true, true},
		{"name", "John", "John"},
	}
	for _, tt := range tests {
		got, err := s.Encode(tt.field, tt.value)
		if err != nil {
			t.Fatalf("Encode(%q) failed: %v", tt.field, err)
		}
		if got != tt.want {
			t.Errorf("Encode(%q): expected %#v, got %#v", tt.field, tt.want, got)
		}
	}
}

func TestFormatParseTime(t *testing.T) {
	in := time.Date(2024, 1, 2, 3, 4, 5, 6000, time.UTC)
	s := schema.FormatTime(in)
	if s != "2024-01-02T03:04:05.000006Z" {
		t.Errorf("unexpected format %q", s)
	}
	out, err := schema.ParseTime(s)
	if err != nil {
		t.Fatalf("ParseTime failed: %v", err)
	}
	if !out.Equal(in) {
		t.Errorf("expected %v, got %v", in, out)
	}
	if _, err := schema.ParseTime("garbage"); !errors.Is(err, schema.ErrTypeMismatch) {
		t.Errorf("expected ErrTypeMismatch, got %v", err)
	}
}

func TestParseKind(t *testing.T) {
	tests := map[string]schema.Kind{
		"string":   schema.String,
		"Integer":  schema.Integer,
		"bool":     schema.Boolean,
		"date":     schema.Date,
		"datetime": schema.Time,
		"double":   schema.Float,
	}
	for in, want := range tests {
		got, err := schema.ParseKind(in)
		if err != nil || got != want {
			t.Errorf("ParseKind(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := schema.ParseKind("blob"); !errors.Is(err, schema.ErrInvalidKind) {
		t.Errorf("expected ErrInvalidKind, got %v", err)
	}
	if !schema.Integer.Numeric() || schema.String.Numeric() {
		t.Error("Numeric() wrong")
	}
}

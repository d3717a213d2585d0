package store_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jacentio/persistence/store"
)

func TestNewRegistry(t *testing.T) {
	r := store.NewRegistry()
	if r == nil {
		t.Fatal("expected non-nil Registry")
	}
	if len(r.Indexes()) != 0 {
		t.Errorf("expected empty registry, got %v", r.Indexes())
	}
}

func TestRegistry_RegisterLookup(t *testing.T) {
	r := store.NewRegistry()
	person := personSchema(t)

	r.Register("people", person)
	r.Register("archive", person)

	got, ok := r.Lookup("people")
	if !ok || got != person {
		t.Errorf("expected person schema for 'people', got %v", got)
	}
	if _, ok := r.Lookup("robots"); ok {
		t.Error("expected no schema for 'robots'")
	}
	if diff := cmp.Diff([]string{"archive", "people"}, r.Indexes()); diff != "" {
		t.Errorf("Indexes mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistry_ReplacesBinding(t *testing.T) {
	r := store.NewRegistry()
	first := personSchema(t)
	second := personSchema(t)

	r.Register("people", first)
	r.Register("people", second)

	got, _ := r.Lookup("people")
	if got != second {
		t.Error("expected the later registration to win")
	}
}

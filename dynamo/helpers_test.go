package dynamo_test

import (
	"testing"

	"github.com/jacentio/persistence/schema"
)

func personSchema(t *testing.T) *schema.Schema {
	t.Helper()
	b := schema.NewBuilder("person")
	if err := b.Declare("name", schema.String); err != nil {
		t.Fatalf("declare: %v", err)
	}
	if err := b.Declare("salary", schema.Integer); err != nil {
		t.Fatalf("declare: %v", err)
	}
	s, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return s
}

// Package schema declares the typed attributes of a record type and derives the
// store mapping from them.
//
// A Schema is built once per record type and is immutable afterwards:
//
//	b := schema.NewBuilder("person").Settings(map[string]any{
//	    "index": map[string]any{"number_of_shards": 1},
//	})
//	_ = b.Declare("name", schema.String, schema.WithMapping(map[string]any{
//	    "fields": map[string]any{"raw": map[string]any{"type": "keyword"}},
//	}))
//	_ = b.Declare("birthday", schema.Date)
//	_ = b.Declare("salary", schema.Integer)
//	_ = b.Declare("admin", schema.Boolean, schema.WithDefault(false))
//	person, err := b.Build()
//
// Values are cast by kind with [Schema.CastValue] and rendered for the store with
// [Schema.Encode]. Schemas can also be declared as YAML, see [ParseYAML].
package schema

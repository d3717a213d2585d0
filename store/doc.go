// Package store maps typed records onto documents in a remote document store.
//
// A [Repository] binds a [schema.Schema] to an index and a [Client]. Records
// move through three states:
//
//	New --Save--> Persisted --Update/Increment/Touch--> Persisted --Destroy--> Destroyed
//
// Destroyed is terminal: every mutation fails with [ErrInstanceDestroyed]
// without reaching the store.
//
// # Key Features
//
//   - Type casting on construction and assignment, driven by the schema
//   - Dirty tracking; Update writes only changed attributes
//   - Optimistic locking on Update via the document version
//   - Server-side atomic Increment, safe for concurrent writers
//   - Strictly increasing updated_at per record, even on coarse clocks
//   - Lazy, idempotent index creation from the schema's settings and mapping
//
// # Usage
//
//	repo := store.New(client, person, store.Config{
//	    IndexName: "people",
//	    Validator: store.RequirePresent("name"),
//	})
//	p, err := repo.Create(ctx, map[string]any{"name": "John Smith", "salary": 1000})
//	err = repo.Increment(ctx, p, "salary", 1)
//	err = repo.Update(ctx, p, map[string]any{"department": "R&D"})
//	err = repo.Destroy(ctx, p)
//
// # Errors
//
//   - [ErrValidationFailed] - the validator rejected the record (see [ValidationError])
//   - [ErrNotFound] - document doesn't exist
//   - [ErrVersionConflict] - document changed since the record last saw it
//   - [ErrInstanceDestroyed] - record was destroyed
//   - [ErrNotPersisted] - record was never saved
//   - [ErrTimeout], [ErrTransport] - the store call failed; the record is unchanged
//
// Casting errors come from package schema ([schema.ErrTypeMismatch],
// [schema.ErrUnknownAttribute]) and never reach the store.
package store

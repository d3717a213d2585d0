package store_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jacentio/persistence/memstore"
	"github.com/jacentio/persistence/schema"
	"github.com/jacentio/persistence/store"
)

// personSchema is the Person record used across repository tests.
func personSchema(t *testing.T) *schema.Schema {
	t.Helper()
	b := schema.NewBuilder("person").Settings(map[string]any{
		"index": map[string]any{"number_of_shards": 1},
	})
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("declare: %v", err)
		}
	}
	must(b.Declare("name", schema.String, schema.WithMapping(map[string]any{
		"fields": map[string]any{
			"name": map[string]any{"type": "text", "analyzer": "snowball"},
			"raw":  map[string]any{"type": "keyword"},
		},
	})))
	must(b.Declare("birthday", schema.Date))
	must(b.Declare("department", schema.String))
	must(b.Declare("salary", schema.Integer))
	must(b.Declare("admin", schema.Boolean, schema.WithDefault(false)))

	s, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return s
}

func newRepo(t *testing.T, client store.Client, cfg store.Config) *store.Repository {
	t.Helper()
	if cfg.IndexName == "" {
		cfg.IndexName = "people"
	}
	if cfg.Validator == nil {
		cfg.Validator = store.RequirePresent("name")
	}
	return store.New(client, personSchema(t), cfg)
}

// recordingClient captures the arguments of writes before delegating.
type recordingClient struct {
	*memstore.Store

	mu          sync.Mutex
	updates     []map[string]any
	indexChecks atomic.Int32
	writes      atomic.Int32
}

func newRecordingClient() *recordingClient {
	return &recordingClient{Store: memstore.New()}
}

func (c *recordingClient) Index(ctx context.Context, key store.Key, source map[string]any) (*store.Document, error) {
	c.writes.Add(1)
	return c.Store.Index(ctx, key, source)
}

func (c *recordingClient) Update(ctx context.Context, key store.Key, fields map[string]any, expectedVersion int64) (*store.Document, error) {
	c.writes.Add(1)
	c.mu.Lock()
	copied := make(map[string]any, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	c.updates = append(c.updates, copied)
	c.mu.Unlock()
	return c.Store.Update(ctx, key, fields, expectedVersion)
}

func (c *recordingClient) IndexExists(ctx context.Context, name string) (bool, error) {
	c.indexChecks.Add(1)
	return c.Store.IndexExists(ctx, name)
}

func (c *recordingClient) lastUpdate(t *testing.T) map[string]any {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.updates) == 0 {
		t.Fatal("expected an update call")
	}
	return c.updates[len(c.updates)-1]
}

// blockingClient blocks writes until the context is done.
type blockingClient struct {
	*memstore.Store
}

func (c blockingClient) Update(ctx context.Context, _ store.Key, _ map[string]any, _ int64) (*store.Document, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (c blockingClient) Increment(ctx context.Context, _ store.Key, _ string, _ int64, _ map[string]any) (*store.Document, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

var errBoom = errors.New("connection reset")

// failingClient fails deletes with a transport error.
type failingClient struct {
	*memstore.Store
}

func (c failingClient) Delete(context.Context, store.Key) error {
	return errBoom
}

// frozenClock returns the same instant on every call, like a coarse clock.
func frozenClock(at time.Time) store.Clock {
	return store.ClockFunc(func() time.Time { return at })
}

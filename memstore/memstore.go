// Package memstore provides an in-memory store.Client.
//
// It keeps the semantics the repository relies on: store-assigned ids,
// per-document versions, version-checked partial updates and atomic increments.
// Useful for tests and for embedding without a remote store.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/jacentio/persistence/internal/shard"
	"github.com/jacentio/persistence/schema"
	"github.com/jacentio/persistence/store"
)

// numShards is the number of lock stripes per index.
const numShards = 16

// Store is an in-memory store.Client. Safe for concurrent use; writes to
// documents in different shards do not contend.
type Store struct {
	mu      sync.RWMutex
	indices map[string]*index
}

type index struct {
	settings map[string]any
	mapping  map[string]any
	shards   [numShards]docShard
}

type docShard struct {
	mu   sync.Mutex
	docs map[string]*entry
}

type entry struct {
	docType string
	version int64
	source  map[string]any
}

var _ store.Client = (*Store)(nil)

// New creates an empty Store.
func New() *Store {
	return &Store{indices: make(map[string]*index)}
}

func newIndex(settings, mapping map[string]any) *index {
	idx := &index{settings: settings, mapping: mapping}
	for i := range idx.shards {
		idx.shards[i].docs = make(map[string]*entry)
	}
	return idx
}

// shardFor returns the locked shard holding id. The caller must unlock it.
func (idx *index) shardFor(id string) *docShard {
	sh := &idx.shards[shard.Index(id, numShards)]
	sh.mu.Lock()
	return sh
}

// Get implements store.Client.
func (s *Store) Get(ctx context.Context, key store.Key) (*store.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	idx, ok := s.index(key.Index)
	if !ok {
		return nil, store.ErrNotFound
	}
	sh := idx.shardFor(key.ID)
	defer sh.mu.Unlock()

	e, ok := sh.lookup(key)
	if !ok {
		return nil, store.ErrNotFound
	}
	return e.document(key.ID), nil
}

// Index implements store.Client.
func (s *Store) Index(ctx context.Context, key store.Key, source map[string]any) (*store.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	idx := s.indexFor(key.Index)
	id := key.ID
	if id == "" {
		id = uuid.NewString()
	}
	sh := idx.shardFor(id)
	defer sh.mu.Unlock()

	body := copySource(source)
	e, exists := sh.docs[id]
	if !exists {
		e = &entry{}
		sh.docs[id] = e
	} else if stored, ok := e.source[schema.FieldCreatedAt]; ok && stored != nil {
		body[schema.FieldCreatedAt] = stored
	}
	e.docType = key.Type
	e.version++
	e.source = body
	return e.document(id), nil
}

// Update implements store.Client.
func (s *Store) Update(ctx context.Context, key store.Key, fields map[string]any, expectedVersion int64) (*store.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	idx, ok := s.index(key.Index)
	if !ok {
		return nil, store.ErrNotFound
	}
	sh := idx.shardFor(key.ID)
	defer sh.mu.Unlock()

	e, ok := sh.lookup(key)
	if !ok {
		return nil, store.ErrNotFound
	}
	if e.version != expectedVersion {
		return nil, store.ErrVersionConflict
	}
	for k, v := range fields {
		e.source[k] = v
	}
	e.version++
	return e.document(key.ID), nil
}

// Increment implements store.Client.
func (s *Store) Increment(ctx context.Context, key store.Key, field string, by int64, fields map[string]any) (*store.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	idx, ok := s.index(key.Index)
	if !ok {
		return nil, store.ErrNotFound
	}
	sh := idx.shardFor(key.ID)
	defer sh.mu.Unlock()

	e, ok := sh.lookup(key)
	if !ok {
		return nil, store.ErrNotFound
	}
	switch cur := e.source[field].(type) {
	case nil:
		e.source[field] = by
	case int64, int:
		n := toInt64(cur)
		sum, ok := addInt64(n, by)
		if !ok {
			return nil, fmt.Errorf("memstore: incrementing %q by %d overflows %d", field, by, n)
		}
		e.source[field] = sum
	case float64:
		e.source[field] = cur + float64(by)
	default:
		return nil, fmt.Errorf("memstore: cannot increment %q holding %T", field, cur)
	}
	for k, v := range fields {
		e.source[k] = v
	}
	e.version++
	return e.document(key.ID), nil
}

// Delete implements store.Client.
func (s *Store) Delete(ctx context.Context, key store.Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	idx, ok := s.index(key.Index)
	if !ok {
		return store.ErrNotFound
	}
	sh := idx.shardFor(key.ID)
	defer sh.mu.Unlock()

	if _, ok := sh.lookup(key); !ok {
		return store.ErrNotFound
	}
	delete(sh.docs, key.ID)
	return nil
}

// IndexExists implements store.Client.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, ok := s.index(name)
	return ok, nil
}

// CreateIndex implements store.Client.
func (s *Store) CreateIndex(ctx context.Context, name string, settings, mapping map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.indices[name]; ok {
		return nil
	}
	s.indices[name] = newIndex(settings, mapping)
	return nil
}

// Mapping returns the mapping an index was created with.
func (s *Store) Mapping(name string) (map[string]any, bool) {
	idx, ok := s.index(name)
	if !ok {
		return nil, false
	}
	return idx.mapping, true
}

// Settings returns the settings an index was created with.
func (s *Store) Settings(name string) (map[string]any, bool) {
	idx, ok := s.index(name)
	if !ok {
		return nil, false
	}
	return idx.settings, true
}

// IDs returns the ids stored in an index, sorted.
func (s *Store) IDs(name string) []string {
	idx, ok := s.index(name)
	if !ok {
		return nil
	}
	var ids []string
	for i := range idx.shards {
		sh := &idx.shards[i]
		sh.mu.Lock()
		for id := range sh.docs {
			ids = append(ids, id)
		}
		sh.mu.Unlock()
	}
	sort.Strings(ids)
	return ids
}

func (s *Store) index(name string) (*index, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.indices[name]
	return idx, ok
}

// indexFor returns the named index, creating it on first write like the remote store would.
func (s *Store) indexFor(name string) *index {
	if idx, ok := s.index(name); ok {
		return idx
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.indices[name]
	if !ok {
		idx = newIndex(nil, nil)
		s.indices[name] = idx
	}
	return idx
}

func (sh *docShard) lookup(key store.Key) (*entry, bool) {
	e, ok := sh.docs[key.ID]
	if !ok || (key.Type != "" && e.docType != key.Type) {
		return nil, false
	}
	return e, true
}

func (e *entry) document(id string) *store.Document {
	return &store.Document{ID: id, Version: e.version, Source: copySource(e.source)}
}

func toInt64(v any) int64 {
	if n, ok := v.(int); ok {
		return int64(n)
	}
	return v.(int64)
}

// addInt64 returns a+b and whether it fits in an int64.
func addInt64(a, b int64) (int64, bool) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, false
	}
	return sum, true
}

func copySource(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

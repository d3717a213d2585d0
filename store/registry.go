package store

import (
	"sort"
	"sync"

	"github.com/jacentio/persistence/schema"
)

// Registry maps index names to the schema of the documents they hold.
// It lets code that only sees raw documents (e.g. change streams) decode them.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]*schema.Schema
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		schemas: make(map[string]*schema.Schema),
	}
}

// Register binds an index name to a schema, replacing any earlier binding.
func (r *Registry) Register(index string, s *schema.Schema) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas[index] = s
}

// Lookup returns the schema registered for index.
func (r *Registry) Lookup(index string) (*schema.Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[index]
	return s, ok
}

// Indexes returns all registered index names, sorted.
func (r *Registry) Indexes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

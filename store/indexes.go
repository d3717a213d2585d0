package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultEnsureTimeout bounds the shared existence check and creation of an index.
const DefaultEnsureTimeout = 2 * time.Minute

// Indexes ensures indices exist before documents are written to them.
// Existence is checked once per name for the lifetime of the value; concurrent
// first calls for the same name share a single check. Safe for concurrent use.
type Indexes struct {
	client  Client
	timeout time.Duration

	mu     sync.RWMutex
	known  map[string]bool
	flight singleflight.Group
}

// NewIndexes creates an index manager over client.
func NewIndexes(client Client) *Indexes {
	return &Indexes{
		client:  client,
		timeout: DefaultEnsureTimeout,
		known:   make(map[string]bool),
	}
}

// SetTimeout sets the bound of the shared check. Call it before first use.
// Non-positive values restore DefaultEnsureTimeout.
func (m *Indexes) SetTimeout(d time.Duration) {
	if d <= 0 {
		d = DefaultEnsureTimeout
	}
	m.timeout = d
}

// Ensure creates the index with settings and mapping unless it already exists.
// An existing index is left as is; its mapping is not compared or patched.
//
// The shared check runs detached from any single caller's cancellation, bounded
// by the manager timeout. Each caller waits only as long as its own ctx allows.
func (m *Indexes) Ensure(ctx context.Context, name string, settings, mapping map[string]any) error {
	if m.exists(name) {
		return nil
	}

	detached := context.WithoutCancel(ctx)
	results := m.flight.DoChan(name, func() (any, error) {
		if m.exists(name) {
			return nil, nil
		}
		callCtx, cancel := context.WithTimeout(detached, m.timeout)
		defer cancel()

		ok, err := m.client.IndexExists(callCtx, name)
		if err != nil {
			return nil, fmt.Errorf("check index %s: %w", name, err)
		}
		if !ok {
			if err := m.client.CreateIndex(callCtx, name, settings, mapping); err != nil {
				return nil, fmt.Errorf("create index %s: %w", name, err)
			}
		}
		m.mu.Lock()
		m.known[name] = true
		m.mu.Unlock()
		return nil, nil
	})

	select {
	case res := <-results:
		return res.Err
	case <-ctx.Done():
		return fmt.Errorf("ensure index %s: %w", name, ctx.Err())
	}
}

// Forget drops the cached existence of name so the next Ensure checks again.
func (m *Indexes) Forget(name string) {
	m.mu.Lock()
	delete(m.known, name)
	m.mu.Unlock()
}

func (m *Indexes) exists(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.known[name]
}

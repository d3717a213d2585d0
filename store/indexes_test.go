package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jacentio/persistence/memstore"
	"github.com/jacentio/persistence/store"
)

// gatedClient holds IndexExists until release is closed or its ctx ends.
type gatedClient struct {
	*memstore.Store

	entered chan struct{}
	release chan struct{}
	ctxErr  chan error
}

func newGatedClient() *gatedClient {
	return &gatedClient{
		Store:   memstore.New(),
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
		ctxErr:  make(chan error, 1),
	}
}

func (c *gatedClient) IndexExists(ctx context.Context, name string) (bool, error) {
	c.entered <- struct{}{}
	select {
	case <-c.release:
		c.ctxErr <- ctx.Err()
		return c.Store.IndexExists(ctx, name)
	case <-ctx.Done():
		c.ctxErr <- ctx.Err()
		return false, ctx.Err()
	}
}

func TestIndexesEnsure_CallerDeadlinesAreIndependent(t *testing.T) {
	client := newGatedClient()
	indexes := store.NewIndexes(client)

	short, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	shortErr := make(chan error, 1)
	go func() { shortErr <- indexes.Ensure(short, "people", nil, nil) }()
	<-client.entered

	longErr := make(chan error, 1)
	go func() { longErr <- indexes.Ensure(context.Background(), "people", nil, nil) }()

	if err := <-shortErr; !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected the short caller to hit its deadline, got %v", err)
	}

	close(client.release)
	if err := <-longErr; err != nil {
		t.Fatalf("expected the caller without deadline to succeed, got %v", err)
	}
	if err := <-client.ctxErr; err != nil {
		t.Errorf("expected the shared check to outlive the short caller, got %v", err)
	}
	if ok, _ := client.Store.IndexExists(context.Background(), "people"); !ok {
		t.Error("expected the index to be created")
	}
}

func TestIndexesEnsure_SharedCheckIsBounded(t *testing.T) {
	client := newGatedClient()
	indexes := store.NewIndexes(client)
	indexes.SetTimeout(20 * time.Millisecond)

	err := indexes.Ensure(context.Background(), "people", nil, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected the manager timeout to end the check, got %v", err)
	}

	<-client.entered
	<-client.ctxErr

	// A failed check is not cached.
	close(client.release)
	if err := indexes.Ensure(context.Background(), "people", nil, nil); err != nil {
		t.Errorf("expected a retry to succeed, got %v", err)
	}
}

func TestRepositorySave_TimeoutDoesNotFailConcurrentSave(t *testing.T) {
	client := newGatedClient()
	indexes := store.NewIndexes(client)
	hasty := newRepo(t, client, store.Config{Indexes: indexes, Timeout: 30 * time.Millisecond})
	patient := newRepo(t, client, store.Config{Indexes: indexes})

	hastyErr := make(chan error, 1)
	go func() {
		_, err := hasty.Create(context.Background(), map[string]any{"name": "a"})
		hastyErr <- err
	}()
	<-client.entered

	patientErr := make(chan error, 1)
	go func() {
		_, err := patient.Create(context.Background(), map[string]any{"name": "b"})
		patientErr <- err
	}()

	if err := <-hastyErr; !errors.Is(err, store.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	close(client.release)
	if err := <-patientErr; err != nil {
		t.Fatalf("expected the patient save to succeed, got %v", err)
	}
}

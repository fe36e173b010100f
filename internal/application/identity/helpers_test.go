package identity

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aadyantmaity/minecollab/internal/application/ports"
	"github.com/aadyantmaity/minecollab/internal/infrastructure/persistence/documents"
)

func fastOptions() SagaOptions {
	return SagaOptions{
		StepTimeout:         time.Second,
		CompensationTimeout: 2 * time.Second,
		CompensationRetries: 2,
		RetryInterval:       time.Millisecond,
	}
}

// faultyStore injects errors into writes of chosen collections. It keeps create-if-absent
// so the reservation repository stays atomic.
type faultyStore struct {
	ports.DocumentStore
	cond ports.ConditionalWriter

	mu        sync.Mutex
	setErr    func(collection, key string) error
	deleteErr func(collection, key string) error
}

func newFaultyStore(inner interface {
	ports.DocumentStore
	ports.ConditionalWriter
}) *faultyStore {
	return &faultyStore{DocumentStore: inner, cond: inner}
}

func (s *faultyStore) failSet(fn func(collection, key string) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setErr = fn
}

func (s *faultyStore) failDelete(fn func(collection, key string) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteErr = fn
}

func (s *faultyStore) Set(ctx context.Context, collection, key string, value []byte) error {
	s.mu.Lock()
	fn := s.setErr
	s.mu.Unlock()
	if fn != nil {
		if err := fn(collection, key); err != nil {
			return err
		}
	}
	return s.DocumentStore.Set(ctx, collection, key, value)
}

func (s *faultyStore) Delete(ctx context.Context, collection, key string) error {
	s.mu.Lock()
	fn := s.deleteErr
	s.mu.Unlock()
	if fn != nil {
		if err := fn(collection, key); err != nil {
			return err
		}
	}
	return s.DocumentStore.Delete(ctx, collection, key)
}

func (s *faultyStore) CreateIfAbsent(ctx context.Context, collection, key string, value []byte) (bool, error) {
	return s.cond.CreateIfAbsent(ctx, collection, key, value)
}

// gatedStore holds the first n reads of the usernames collection until all n have arrived,
// so n sagas pass the availability check before any of them reserves.
type gatedStore struct {
	ports.DocumentStore
	arrived atomic.Int32
	n       int32
	barrier sync.WaitGroup
}

func newGatedStore(inner ports.DocumentStore, n int) *gatedStore {
	g := &gatedStore{DocumentStore: inner, n: int32(n)}
	g.barrier.Add(n)
	return g
}

func (g *gatedStore) Get(ctx context.Context, collection, key string) ([]byte, error) {
	if collection == documents.CollectionUsernames && g.arrived.Add(1) <= g.n {
		g.barrier.Done()
		g.barrier.Wait()
	}
	return g.DocumentStore.Get(ctx, collection, key)
}

// gatedAtomicStore is a gatedStore that keeps create-if-absent.
type gatedAtomicStore struct {
	*gatedStore
	cond ports.ConditionalWriter
}

func (g *gatedAtomicStore) CreateIfAbsent(ctx context.Context, collection, key string, value []byte) (bool, error) {
	return g.cond.CreateIfAbsent(ctx, collection, key, value)
}

var (
	_ ports.ConditionalWriter = (*faultyStore)(nil)
	_ ports.ConditionalWriter = (*gatedAtomicStore)(nil)
)

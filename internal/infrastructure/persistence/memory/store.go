package memory

import (
	"context"
	"sync"

	"github.com/aadyantmaity/minecollab/internal/application/ports"
	domerrors "github.com/aadyantmaity/minecollab/internal/domain/errors"
)

// Store is an in-memory DocumentStore with plain writes only, suitable for single-instance
// deployment and tests. Use AtomicStore when create-if-absent is wanted.
type Store struct {
	mu   sync.RWMutex
	data map[string]map[string][]byte
}

// NewStore returns an empty store without create-if-absent.
func NewStore() *Store {
	return &Store{data: make(map[string]map[string][]byte)}
}

func (s *Store) Get(ctx context.Context, collection, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[collection][key]
	if !ok {
		return nil, domerrors.ErrNotFound
	}
	return clone(v), nil
}

func (s *Store) Set(ctx context.Context, collection, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bucket(collection)[key] = clone(value)
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data[collection], key)
	return nil
}

func (s *Store) List(ctx context.Context, collection string) (map[string][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]byte, len(s.data[collection]))
	for k, v := range s.data[collection] {
		out[k] = clone(v)
	}
	return out, nil
}

// Len returns the number of documents in collection.
func (s *Store) Len(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data[collection])
}

// bucket must be called with the write lock held.
func (s *Store) bucket(collection string) map[string][]byte {
	b, ok := s.data[collection]
	if !ok {
		b = make(map[string][]byte)
		s.data[collection] = b
	}
	return b
}

// AtomicStore is a Store that also supports create-if-absent.
type AtomicStore struct {
	*Store
}

// NewAtomicStore returns an empty store with create-if-absent.
func NewAtomicStore() *AtomicStore {
	return &AtomicStore{Store: NewStore()}
}

func (s *AtomicStore) CreateIfAbsent(ctx context.Context, collection, key string, value []byte) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.bucket(collection)
	if _, ok := b[key]; ok {
		return false, nil
	}
	b[key] = clone(value)
	return true, nil
}

func clone(v []byte) []byte {
	if v == nil {
		return nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out
}

var (
	_ ports.DocumentStore     = (*Store)(nil)
	_ ports.DocumentStore     = (*AtomicStore)(nil)
	_ ports.ConditionalWriter = (*AtomicStore)(nil)
)

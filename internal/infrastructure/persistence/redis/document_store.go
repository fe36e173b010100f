// Package redis is a Redis-backed document store. Each collection is one hash, so
// create-if-absent is a single HSETNX.
package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/aadyantmaity/minecollab/internal/application/ports"
	domerrors "github.com/aadyantmaity/minecollab/internal/domain/errors"
)

const defaultKeyPrefix = "minecollab:"

// DocumentStore implements ports.DocumentStore and ports.ConditionalWriter.
type DocumentStore struct {
	client redis.UniversalClient
	prefix string
}

// Option configures a DocumentStore.
type Option func(*DocumentStore)

// WithKeyPrefix namespaces the collection hashes.
func WithKeyPrefix(prefix string) Option {
	return func(s *DocumentStore) { s.prefix = prefix }
}

func NewDocumentStore(client redis.UniversalClient, opts ...Option) *DocumentStore {
	s := &DocumentStore{client: client, prefix: defaultKeyPrefix}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// NewClient parses url and pings the server.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

func (s *DocumentStore) key(collection string) string {
	return s.prefix + collection
}

func (s *DocumentStore) Get(ctx context.Context, collection, key string) ([]byte, error) {
	v, err := s.client.HGet(ctx, s.key(collection), key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domerrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (s *DocumentStore) Set(ctx context.Context, collection, key string, value []byte) error {
	return s.client.HSet(ctx, s.key(collection), key, value).Err()
}

func (s *DocumentStore) CreateIfAbsent(ctx context.Context, collection, key string, value []byte) (bool, error) {
	return s.client.HSetNX(ctx, s.key(collection), key, value).Result()
}

func (s *DocumentStore) Delete(ctx context.Context, collection, key string) error {
	return s.client.HDel(ctx, s.key(collection), key).Err()
}

func (s *DocumentStore) List(ctx context.Context, collection string) (map[string][]byte, error) {
	all, err := s.client.HGetAll(ctx, s.key(collection)).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(all))
	for k, v := range all {
		out[k] = []byte(v)
	}
	return out, nil
}

func (s *DocumentStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

var (
	_ ports.DocumentStore     = (*DocumentStore)(nil)
	_ ports.ConditionalWriter = (*DocumentStore)(nil)
	_ ports.Pinger            = (*DocumentStore)(nil)
)

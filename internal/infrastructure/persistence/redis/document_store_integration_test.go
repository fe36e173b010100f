//go:build integration

package redis_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	domerrors "github.com/aadyantmaity/minecollab/internal/domain/errors"
	"github.com/aadyantmaity/minecollab/internal/infrastructure/persistence/redis"
)

type DocumentStoreSuite struct {
	suite.Suite
	container *tcredis.RedisContainer
	client    *goredis.Client
	store     *redis.DocumentStore
}

func TestDocumentStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(DocumentStoreSuite))
}

func (s *DocumentStoreSuite) SetupSuite() {
	ctx := context.Background()
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	s.Require().NoError(err)
	s.container = container

	url, err := container.ConnectionString(ctx)
	s.Require().NoError(err)
	s.client, err = redis.NewClient(ctx, url)
	s.Require().NoError(err)
	s.store = redis.NewDocumentStore(s.client, redis.WithKeyPrefix("test:"))
}

func (s *DocumentStoreSuite) TearDownSuite() {
	ctx := context.Background()
	if s.client != nil {
		_ = s.client.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(ctx)
	}
}

func (s *DocumentStoreSuite) SetupTest() {
	s.Require().NoError(s.client.FlushAll(context.Background()).Err())
}

func (s *DocumentStoreSuite) TestRoundTrip() {
	ctx := context.Background()

	_, err := s.store.Get(ctx, "usernames", "bob")
	s.Require().ErrorIs(err, domerrors.ErrNotFound)

	s.Require().NoError(s.store.Set(ctx, "usernames", "bob", []byte(`{"owner":"a1"}`)))
	got, err := s.store.Get(ctx, "usernames", "bob")
	s.Require().NoError(err)
	s.JSONEq(`{"owner":"a1"}`, string(got))

	docs, err := s.store.List(ctx, "usernames")
	s.Require().NoError(err)
	s.Len(docs, 1)

	s.Require().NoError(s.store.Delete(ctx, "usernames", "bob"))
	s.Require().NoError(s.store.Delete(ctx, "usernames", "bob"))
	_, err = s.store.Get(ctx, "usernames", "bob")
	s.Require().ErrorIs(err, domerrors.ErrNotFound)
}

func (s *DocumentStoreSuite) TestCreateIfAbsentUnderContention() {
	ctx := context.Background()
	var wg sync.WaitGroup
	var created atomic.Int32
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.store.CreateIfAbsent(ctx, "usernames", "steve", []byte(`{}`))
			s.NoError(err)
			if ok {
				created.Add(1)
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(1), created.Load())
	s.Require().NoError(s.store.Ping(ctx))
}

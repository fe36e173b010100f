package main

import (
	"context"
	"testing"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aadyantmaity/minecollab/internal/config"
	"github.com/aadyantmaity/minecollab/internal/infrastructure/persistence/memory"
	redisstore "github.com/aadyantmaity/minecollab/internal/infrastructure/persistence/redis"
)

func TestOpenStores_RedisKeepsAccountsInRedis(t *testing.T) {
	// go-redis connects lazily; nothing here talks to a server.
	client := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { _ = client.Close() })

	cfg := &config.Config{Store: config.StoreConfig{Backend: config.StoreRedis}}
	s, err := openStores(context.Background(), cfg, client, zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()

	assert.IsType(t, &redisstore.DocumentStore{}, s.documents)
	assert.IsType(t, &redisstore.AccountRepository{}, s.accounts)
	assert.IsType(t, &redisstore.EmailVerificationStore{}, s.verifications)
}

func TestOpenStores_RedisWithoutClient(t *testing.T) {
	cfg := &config.Config{Store: config.StoreConfig{Backend: config.StoreRedis}}
	_, err := openStores(context.Background(), cfg, nil, zerolog.Nop())
	assert.Error(t, err)
}

func TestOpenStores_Memory(t *testing.T) {
	cfg := &config.Config{Store: config.StoreConfig{Backend: config.StoreMemory}}
	s, err := openStores(context.Background(), cfg, nil, zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()

	assert.IsType(t, &memory.AtomicStore{}, s.documents)
	assert.IsType(t, &memory.AccountRepository{}, s.accounts)
	assert.Empty(t, s.checks)
}

//go:build integration

package redis_test

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/aadyantmaity/minecollab/internal/domain"
	domerrors "github.com/aadyantmaity/minecollab/internal/domain/errors"
	"github.com/aadyantmaity/minecollab/internal/infrastructure/persistence/redis"
)

type AccountRepositorySuite struct {
	suite.Suite
	ctx           context.Context
	container     *tcredis.RedisContainer
	client        *goredis.Client
	accounts      *redis.AccountRepository
	verifications *redis.EmailVerificationStore
}

func TestAccountRepositorySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(AccountRepositorySuite))
}

func (s *AccountRepositorySuite) SetupSuite() {
	s.ctx = context.Background()
	container, err := tcredis.Run(s.ctx, "redis:7-alpine")
	s.Require().NoError(err)
	s.container = container

	url, err := container.ConnectionString(s.ctx)
	s.Require().NoError(err)
	s.client, err = redis.NewClient(s.ctx, url)
	s.Require().NoError(err)
	s.accounts = redis.NewAccountRepository(s.client, "test:")
	s.verifications = redis.NewEmailVerificationStore(s.client, "test:")
}

func (s *AccountRepositorySuite) TearDownSuite() {
	if s.client != nil {
		_ = s.client.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *AccountRepositorySuite) SetupTest() {
	s.Require().NoError(s.client.FlushAll(s.ctx).Err())
}

func (s *AccountRepositorySuite) bob() *domain.Credentials {
	return &domain.Credentials{
		Account:      domain.Account{ID: "a1", Email: "Bob@Example.com"},
		PasswordHash: "$argon2id$stub",
		CreatedAt:    time.Now().UTC(),
	}
}

func (s *AccountRepositorySuite) TestCreateAndLookup() {
	s.Require().NoError(s.accounts.Create(s.ctx, s.bob()))

	got, err := s.accounts.GetByEmail(s.ctx, "bob@example.com")
	s.Require().NoError(err)
	s.Equal(domain.AccountID("a1"), got.ID)
	s.Equal("$argon2id$stub", got.PasswordHash)

	dup := s.bob()
	dup.ID = "a2"
	dup.Email = "BOB@example.com"
	s.ErrorIs(s.accounts.Create(s.ctx, dup), domerrors.ErrEmailInUse)

	_, err = s.accounts.GetByID(s.ctx, "missing")
	s.ErrorIs(err, domerrors.ErrAccountNotFound)
}

func (s *AccountRepositorySuite) TestUpdatesAndDelete() {
	s.Require().NoError(s.accounts.Create(s.ctx, s.bob()))
	s.Require().NoError(s.accounts.SetDisplayName(s.ctx, "a1", "Bob"))
	s.Require().NoError(s.accounts.SetEmailVerified(s.ctx, "a1"))

	got, err := s.accounts.GetByID(s.ctx, "a1")
	s.Require().NoError(err)
	s.Equal("Bob", got.DisplayName)
	s.True(got.EmailVerified)
	s.NotNil(got.EmailVerifiedAt)

	s.Require().NoError(s.accounts.Delete(s.ctx, "a1"))
	s.ErrorIs(s.accounts.Delete(s.ctx, "a1"), domerrors.ErrAccountNotFound)
	s.ErrorIs(s.accounts.SetDisplayName(s.ctx, "a1", "x"), domerrors.ErrAccountNotFound)

	// The email is free again.
	s.Require().NoError(s.accounts.Create(s.ctx, s.bob()))
}

func (s *AccountRepositorySuite) TestVerificationTokens() {
	s.Require().NoError(s.verifications.Create(s.ctx, "a1", "hash1", time.Now().Add(time.Hour)))

	id, err := s.verifications.GetByTokenHash(s.ctx, "hash1")
	s.Require().NoError(err)
	s.Equal(domain.AccountID("a1"), id)

	s.Require().NoError(s.verifications.MarkUsed(s.ctx, "hash1"))
	_, err = s.verifications.GetByTokenHash(s.ctx, "hash1")
	s.ErrorIs(err, domerrors.ErrEmailVerificationInvalid)

	s.Require().NoError(s.verifications.Create(s.ctx, "a1", "expired", time.Now().Add(-time.Minute)))
	_, err = s.verifications.GetByTokenHash(s.ctx, "expired")
	s.ErrorIs(err, domerrors.ErrEmailVerificationInvalid)
}

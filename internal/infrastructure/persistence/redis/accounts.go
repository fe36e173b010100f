package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aadyantmaity/minecollab/internal/application/ports"
	"github.com/aadyantmaity/minecollab/internal/domain"
	domerrors "github.com/aadyantmaity/minecollab/internal/domain/errors"
)

const (
	accountKeyPrefix      = "account:"
	accountEmailKeyPrefix = "account:email:"
	verifyKeyPrefix       = "verify:"
	maxWatchRetries       = 5
)

// AccountRepository stores local identity provider accounts as JSON strings. A second key maps
// the lowercased email to the account ID; SETNX on it enforces email uniqueness.
type AccountRepository struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewAccountRepository uses the document store's default prefix when prefix is empty.
func NewAccountRepository(client redis.UniversalClient, prefix string) *AccountRepository {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &AccountRepository{client: client, prefix: prefix, now: time.Now}
}

func (r *AccountRepository) accountKey(id domain.AccountID) string {
	return r.prefix + accountKeyPrefix + id.String()
}

func (r *AccountRepository) emailKey(email string) string {
	return r.prefix + accountEmailKeyPrefix + strings.ToLower(email)
}

func (r *AccountRepository) Create(ctx context.Context, creds *domain.Credentials) error {
	raw, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("encode account: %w", err)
	}
	claimed, err := r.client.SetNX(ctx, r.emailKey(creds.Email), creds.ID.String(), 0).Result()
	if err != nil {
		return err
	}
	if !claimed {
		return domerrors.ErrEmailInUse
	}
	if err := r.client.Set(ctx, r.accountKey(creds.ID), raw, 0).Err(); err != nil {
		_ = r.client.Del(ctx, r.emailKey(creds.Email)).Err()
		return err
	}
	return nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id domain.AccountID) (*domain.Credentials, error) {
	return r.get(ctx, r.client, id)
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Credentials, error) {
	id, err := r.client.Get(ctx, r.emailKey(email)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, domerrors.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, domain.AccountID(id))
}

func (r *AccountRepository) SetDisplayName(ctx context.Context, id domain.AccountID, name string) error {
	return r.update(ctx, id, func(c *domain.Credentials) {
		c.DisplayName = name
	})
}

func (r *AccountRepository) SetEmailVerified(ctx context.Context, id domain.AccountID) error {
	return r.update(ctx, id, func(c *domain.Credentials) {
		if c.EmailVerifiedAt == nil {
			now := r.now().UTC()
			c.EmailVerifiedAt = &now
		}
		c.EmailVerified = true
	})
}

func (r *AccountRepository) Delete(ctx context.Context, id domain.AccountID) error {
	c, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.accountKey(id), r.emailKey(c.Email))
		return nil
	})
	return err
}

// update is a WATCH/MULTI read-modify-write, retried when another writer touched the account.
func (r *AccountRepository) update(ctx context.Context, id domain.AccountID, fn func(*domain.Credentials)) error {
	key := r.accountKey(id)
	txf := func(tx *redis.Tx) error {
		c, err := r.get(ctx, tx, id)
		if err != nil {
			return err
		}
		fn(c)
		c.UpdatedAt = r.now().UTC()
		raw, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("encode account: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, 0)
			return nil
		})
		return err
	}
	for i := 0; i < maxWatchRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("update account %s: %w", id, redis.TxFailedErr)
}

// getter is satisfied by the client and by a WATCH transaction.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (r *AccountRepository) get(ctx context.Context, c getter, id domain.AccountID) (*domain.Credentials, error) {
	raw, err := c.Get(ctx, r.accountKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domerrors.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	var creds domain.Credentials
	if err := json.Unmarshal(raw, &creds); err != nil {
		return nil, fmt.Errorf("decode account %s: %w", id, err)
	}
	return &creds, nil
}

// EmailVerificationStore keeps each token hash as a key that expires with the token. Using a
// token deletes it.
type EmailVerificationStore struct {
	client redis.UniversalClient
	prefix string
}

func NewEmailVerificationStore(client redis.UniversalClient, prefix string) *EmailVerificationStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &EmailVerificationStore{client: client, prefix: prefix}
}

func (s *EmailVerificationStore) key(tokenHash string) string {
	return s.prefix + verifyKeyPrefix + tokenHash
}

func (s *EmailVerificationStore) Create(ctx context.Context, id domain.AccountID, tokenHash string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return s.client.Set(ctx, s.key(tokenHash), id.String(), ttl).Err()
}

func (s *EmailVerificationStore) GetByTokenHash(ctx context.Context, tokenHash string) (domain.AccountID, error) {
	id, err := s.client.Get(ctx, s.key(tokenHash)).Result()
	if errors.Is(err, redis.Nil) {
		return "", domerrors.ErrEmailVerificationInvalid
	}
	if err != nil {
		return "", err
	}
	return domain.AccountID(id), nil
}

func (s *EmailVerificationStore) MarkUsed(ctx context.Context, tokenHash string) error {
	return s.client.Del(ctx, s.key(tokenHash)).Err()
}

var (
	_ ports.AccountRepository      = (*AccountRepository)(nil)
	_ ports.EmailVerificationStore = (*EmailVerificationStore)(nil)
)

package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/aadyantmaity/minecollab/internal/application/ports"
	"github.com/aadyantmaity/minecollab/internal/domain"
	domerrors "github.com/aadyantmaity/minecollab/internal/domain/errors"
)

// AccountRepository is an in-memory ports.AccountRepository. Emails are unique case-insensitively.
type AccountRepository struct {
	mu      sync.RWMutex
	byID    map[domain.AccountID]*domain.Credentials
	byEmail map[string]domain.AccountID
}

func NewAccountRepository() *AccountRepository {
	return &AccountRepository{
		byID:    make(map[domain.AccountID]*domain.Credentials),
		byEmail: make(map[string]domain.AccountID),
	}
}

func (r *AccountRepository) Create(ctx context.Context, creds *domain.Credentials) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	email := strings.ToLower(creds.Email)
	if _, ok := r.byEmail[email]; ok {
		return domerrors.ErrEmailInUse
	}
	c := *creds
	r.byID[c.ID] = &c
	r.byEmail[email] = c.ID
	return nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id domain.AccountID) (*domain.Credentials, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byID[id]
	if !ok {
		return nil, domerrors.ErrAccountNotFound
	}
	out := *c
	return &out, nil
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Credentials, error) {
	r.mu.RLock()
	id, ok := r.byEmail[strings.ToLower(email)]
	r.mu.RUnlock()
	if !ok {
		return nil, domerrors.ErrAccountNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *AccountRepository) SetDisplayName(ctx context.Context, id domain.AccountID, name string) error {
	return r.update(id, func(c *domain.Credentials) {
		c.DisplayName = name
	})
}

func (r *AccountRepository) SetEmailVerified(ctx context.Context, id domain.AccountID) error {
	return r.update(id, func(c *domain.Credentials) {
		if c.EmailVerifiedAt == nil {
			now := time.Now().UTC()
			c.EmailVerifiedAt = &now
		}
		c.EmailVerified = true
	})
}

func (r *AccountRepository) Delete(ctx context.Context, id domain.AccountID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return domerrors.ErrAccountNotFound
	}
	delete(r.byEmail, strings.ToLower(c.Email))
	delete(r.byID, id)
	return nil
}

// Len returns the number of accounts.
func (r *AccountRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

func (r *AccountRepository) update(id domain.AccountID, fn func(*domain.Credentials)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return domerrors.ErrAccountNotFound
	}
	fn(c)
	c.UpdatedAt = time.Now().UTC()
	return nil
}

type verification struct {
	id        domain.AccountID
	expiresAt time.Time
	used      bool
}

// EmailVerificationStore is an in-memory ports.EmailVerificationStore.
type EmailVerificationStore struct {
	mu     sync.Mutex
	tokens map[string]*verification
}

func NewEmailVerificationStore() *EmailVerificationStore {
	return &EmailVerificationStore{tokens: make(map[string]*verification)}
}

func (s *EmailVerificationStore) Create(ctx context.Context, id domain.AccountID, tokenHash string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[tokenHash] = &verification{id: id, expiresAt: expiresAt}
	return nil
}

func (s *EmailVerificationStore) GetByTokenHash(ctx context.Context, tokenHash string) (domain.AccountID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.tokens[tokenHash]
	if !ok || v.used || time.Now().After(v.expiresAt) {
		return "", domerrors.ErrEmailVerificationInvalid
	}
	return v.id, nil
}

func (s *EmailVerificationStore) MarkUsed(ctx context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.tokens[tokenHash]; ok {
		v.used = true
	}
	return nil
}

var (
	_ ports.AccountRepository      = (*AccountRepository)(nil)
	_ ports.EmailVerificationStore = (*EmailVerificationStore)(nil)
)

// Package local is the built-in identity provider: accounts with Argon2id passwords in the
// account repository, and email verification through hashed one-time tokens.
package local

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aadyantmaity/minecollab/internal/application/ports"
	"github.com/aadyantmaity/minecollab/internal/domain"
	domerrors "github.com/aadyantmaity/minecollab/internal/domain/errors"
	"github.com/aadyantmaity/minecollab/internal/infrastructure/security"
)

const (
	DefaultVerificationExpiry = 24 * time.Hour
	verifyPath                = "/auth/verify-email"
)

// Config holds the provider's tunables.
type Config struct {
	// BaseURL is the public origin used to build verification links.
	BaseURL            string
	VerificationExpiry time.Duration
}

// Provider implements ports.IdentityProvider and ports.Authenticator.
type Provider struct {
	accounts      ports.AccountRepository
	verifications ports.EmailVerificationStore
	hasher        ports.PasswordHasher
	enqueuer      ports.TaskEnqueuer
	validate      *validator.Validate
	cfg           Config
	log           zerolog.Logger
	now           func() time.Time
	// dummyHash is verified against when the email is unknown, so both paths cost one hash.
	dummyHash string
}

func NewProvider(accounts ports.AccountRepository, verifications ports.EmailVerificationStore, hasher ports.PasswordHasher, enqueuer ports.TaskEnqueuer, cfg Config, log zerolog.Logger) (*Provider, error) {
	if cfg.VerificationExpiry <= 0 {
		cfg.VerificationExpiry = DefaultVerificationExpiry
	}
	dummy, err := hasher.Hash("minecollab-dummy-password")
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}
	return &Provider{
		accounts:      accounts,
		verifications: verifications,
		hasher:        hasher,
		enqueuer:      enqueuer,
		validate:      validator.New(),
		cfg:           cfg,
		log:           log,
		now:           time.Now,
		dummyHash:     dummy,
	}, nil
}

func (p *Provider) CreateIdentity(ctx context.Context, email, password string) (*domain.Account, error) {
	email = strings.TrimSpace(email)
	if err := p.validate.Var(email, "required,email,max=254"); err != nil {
		return nil, &domerrors.ValidationError{Field: "email", Reason: "must be a valid email address"}
	}
	if err := security.CheckPassword(password); err != nil {
		return nil, err
	}
	hash, err := p.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("%w: hash password: %v", domerrors.ErrProviderUnavailable, err)
	}
	now := p.now().UTC()
	creds := &domain.Credentials{
		Account: domain.Account{
			ID:    domain.NewAccountID(uuid.New()),
			Email: email,
		},
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := p.accounts.Create(ctx, creds); err != nil {
		if errors.Is(err, domerrors.ErrEmailInUse) {
			return nil, domerrors.ErrEmailInUse
		}
		return nil, fmt.Errorf("%w: %w", domerrors.ErrProviderUnavailable, err)
	}
	account := creds.Account
	return &account, nil
}

func (p *Provider) DeleteIdentity(ctx context.Context, id domain.AccountID) error {
	return p.accounts.Delete(ctx, id)
}

func (p *Provider) SetDisplayName(ctx context.Context, id domain.AccountID, name string) error {
	return p.accounts.SetDisplayName(ctx, id, name)
}

// SendVerification stores a fresh token and queues the email. Verified accounts are skipped.
func (p *Provider) SendVerification(ctx context.Context, id domain.AccountID) error {
	creds, err := p.accounts.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if creds.EmailVerified {
		return nil
	}
	token, err := newToken()
	if err != nil {
		return err
	}
	expiresAt := p.now().Add(p.cfg.VerificationExpiry)
	if err := p.verifications.Create(ctx, id, hashToken(token), expiresAt); err != nil {
		return err
	}
	return p.enqueuer.EnqueueSendEmailVerification(ctx, id.String(), creds.Email, p.verifyURL(token))
}

// Authenticate returns domerrors.ErrInvalidCredentials for an unknown email or wrong password.
func (p *Provider) Authenticate(ctx context.Context, email, password string) (*domain.Account, error) {
	creds, err := p.accounts.GetByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, domerrors.ErrAccountNotFound) {
		p.hasher.Verify(password, p.dummyHash)
		return nil, domerrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !p.hasher.Verify(password, creds.PasswordHash) {
		return nil, domerrors.ErrInvalidCredentials
	}
	account := creds.Account
	return &account, nil
}

// ConfirmVerification marks the token's account verified. The token is single use.
func (p *Provider) ConfirmVerification(ctx context.Context, token string) (*domain.Account, error) {
	if token == "" {
		return nil, domerrors.ErrEmailVerificationInvalid
	}
	hash := hashToken(token)
	id, err := p.verifications.GetByTokenHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	if err := p.accounts.SetEmailVerified(ctx, id); err != nil {
		if errors.Is(err, domerrors.ErrAccountNotFound) {
			return nil, domerrors.ErrEmailVerificationInvalid
		}
		return nil, err
	}
	if err := p.verifications.MarkUsed(ctx, hash); err != nil {
		p.log.Warn().Err(err).Str("account_id", id.String()).Msg("verification token not marked used")
	}
	return p.GetAccount(ctx, id)
}

func (p *Provider) GetAccount(ctx context.Context, id domain.AccountID) (*domain.Account, error) {
	creds, err := p.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	account := creds.Account
	return &account, nil
}

func (p *Provider) verifyURL(token string) string {
	return strings.TrimRight(p.cfg.BaseURL, "/") + verifyPath + "?token=" + url.QueryEscape(token)
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

var (
	_ ports.IdentityProvider = (*Provider)(nil)
	_ ports.Authenticator    = (*Provider)(nil)
)

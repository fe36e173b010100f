package ports

import (
	"context"

	"github.com/aadyantmaity/minecollab/internal/domain"
)

//go:generate mockgen -source=identity.go -destination=mocks/mock_identity.go -package=mocks

// IdentityProvider creates and mutates accounts in the identity provider.
// CreateIdentity failures carry domerrors.ErrEmailInUse, ErrWeakPassword or ErrProviderUnavailable.
type IdentityProvider interface {
	CreateIdentity(ctx context.Context, email, password string) (*domain.Account, error)
	DeleteIdentity(ctx context.Context, id domain.AccountID) error
	SetDisplayName(ctx context.Context, id domain.AccountID, name string) error
	SendVerification(ctx context.Context, id domain.AccountID) error
}

// Authenticator verifies credentials and verification tokens (local identity provider).
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*domain.Account, error)
	ConfirmVerification(ctx context.Context, token string) (*domain.Account, error)
	GetAccount(ctx context.Context, id domain.AccountID) (*domain.Account, error)
}

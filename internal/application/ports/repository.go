package ports

import (
	"context"
	"time"

	"github.com/aadyantmaity/minecollab/internal/domain"
)

// ReservationStore is the username uniqueness index.
type ReservationStore interface {
	// Get returns nil, nil when the username is not reserved.
	Get(ctx context.Context, usernameLower string) (*domain.Reservation, error)
	// Reserve claims the key. With an atomic store it fails with domerrors.ErrAlreadyExists when
	// the key is taken; otherwise it overwrites.
	Reserve(ctx context.Context, r *domain.Reservation) error
	Release(ctx context.Context, usernameLower string) error
	List(ctx context.Context) ([]*domain.Reservation, error)
	// Atomic reports whether Reserve is first-writer-wins.
	Atomic() bool
}

// ProfileRepository persists per-account profile documents.
type ProfileRepository interface {
	Create(ctx context.Context, profile *domain.Profile) error
	// Get returns nil, nil when no profile exists.
	Get(ctx context.Context, id domain.AccountID) (*domain.Profile, error)
	Update(ctx context.Context, profile *domain.Profile) error
	// Delete removes the profile; a missing profile is not an error.
	Delete(ctx context.Context, id domain.AccountID) error
}

// ProvisioningJournal records signup saga progress for operators.
type ProvisioningJournal interface {
	Record(ctx context.Context, rec *domain.ProvisioningRecord) error
	Get(ctx context.Context, id domain.AccountID) (*domain.ProvisioningRecord, error)
}

// AccountRepository stores local identity provider accounts.
type AccountRepository interface {
	// Create fails with domerrors.ErrEmailInUse on a duplicate email.
	Create(ctx context.Context, creds *domain.Credentials) error
	GetByID(ctx context.Context, id domain.AccountID) (*domain.Credentials, error)
	GetByEmail(ctx context.Context, email string) (*domain.Credentials, error)
	SetDisplayName(ctx context.Context, id domain.AccountID, name string) error
	SetEmailVerified(ctx context.Context, id domain.AccountID) error
	Delete(ctx context.Context, id domain.AccountID) error
}

// EmailVerificationStore stores hashed verification tokens.
type EmailVerificationStore interface {
	Create(ctx context.Context, id domain.AccountID, tokenHash string, expiresAt time.Time) error
	// GetByTokenHash returns domerrors.ErrEmailVerificationInvalid when unknown, used or expired.
	GetByTokenHash(ctx context.Context, tokenHash string) (domain.AccountID, error)
	MarkUsed(ctx context.Context, tokenHash string) error
}

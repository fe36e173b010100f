package domain

import (
	"time"

	"github.com/google/uuid"
)

// AccountID is the identity provider's opaque account identifier.
type AccountID string

// NewAccountID creates an AccountID from a uuid.
func NewAccountID(id uuid.UUID) AccountID { return AccountID(id.String()) }

// String returns the identifier as stored.
func (a AccountID) String() string { return string(a) }

// IsZero reports whether the identifier is empty.
func (a AccountID) IsZero() bool { return a == "" }

// Account is the identity record owned by the identity provider.
type Account struct {
	ID            AccountID
	Email         string
	DisplayName   string
	EmailVerified bool
}

// Credentials is the provider-side account row (local identity provider only).
type Credentials struct {
	Account
	PasswordHash    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	EmailVerifiedAt *time.Time
}

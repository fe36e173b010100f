package ports

import "context"

// PasswordHasher hashes and verifies passwords (Argon2id).
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// TokenIssuer signs and validates account access tokens (RS256).
type TokenIssuer interface {
	IssueAccessToken(accountID string, expiresInSeconds int64) (string, error)
	ValidateAccessToken(tokenString string) (accountID string, err error)
}

// LoginLockoutStore tracks failed login attempts and cooldown per email.
type LoginLockoutStore interface {
	// IsLocked returns true if the account is locked, and the remaining cooldown in seconds.
	IsLocked(ctx context.Context, email string) (locked bool, retryAfterSeconds int)
	RecordFailure(ctx context.Context, email string)
	RecordSuccess(ctx context.Context, email string)
}

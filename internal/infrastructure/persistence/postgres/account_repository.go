package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aadyantmaity/minecollab/internal/application/ports"
	"github.com/aadyantmaity/minecollab/internal/domain"
	domerrors "github.com/aadyantmaity/minecollab/internal/domain/errors"
)

const (
	createAccountSQL     = `INSERT INTO accounts (id, email, password_hash, display_name, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`
	selectAccountColumns = `SELECT id, email, password_hash, display_name, email_verified_at, created_at, updated_at FROM accounts`
	getAccountByIDSQL    = selectAccountColumns + ` WHERE id = $1`
	getAccountByEmailSQL = selectAccountColumns + ` WHERE LOWER(email) = LOWER($1)`
	setDisplayNameSQL    = `UPDATE accounts SET display_name = $1, updated_at = NOW() WHERE id = $2`
	setEmailVerifiedSQL  = `UPDATE accounts SET email_verified_at = COALESCE(email_verified_at, NOW()), updated_at = NOW() WHERE id = $1`
	deleteAccountSQL     = `DELETE FROM accounts WHERE id = $1`
)

// AccountRepository implements ports.AccountRepository on the accounts table.
type AccountRepository struct {
	db DBTX
}

func NewAccountRepository(db DBTX) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, c *domain.Credentials) error {
	_, err := r.db.ExecContext(ctx, createAccountSQL,
		c.ID.String(), c.Email, c.PasswordHash, c.DisplayName, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domerrors.ErrEmailInUse
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id domain.AccountID) (*domain.Credentials, error) {
	return r.scan(r.db.QueryRowContext(ctx, getAccountByIDSQL, id.String()))
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Credentials, error) {
	return r.scan(r.db.QueryRowContext(ctx, getAccountByEmailSQL, email))
}

func (r *AccountRepository) SetDisplayName(ctx context.Context, id domain.AccountID, name string) error {
	return r.execOne(ctx, setDisplayNameSQL, name, id.String())
}

func (r *AccountRepository) SetEmailVerified(ctx context.Context, id domain.AccountID) error {
	return r.execOne(ctx, setEmailVerifiedSQL, id.String())
}

func (r *AccountRepository) Delete(ctx context.Context, id domain.AccountID) error {
	return r.execOne(ctx, deleteAccountSQL, id.String())
}

// execOne runs a statement that targets one account and reports ErrAccountNotFound when none matched.
func (r *AccountRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return domerrors.ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) scan(row *sql.Row) (*domain.Credentials, error) {
	var (
		c          domain.Credentials
		id         string
		verifiedAt sql.NullTime
	)
	err := row.Scan(&id, &c.Email, &c.PasswordHash, &c.DisplayName, &verifiedAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domerrors.ErrAccountNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	c.ID = domain.AccountID(id)
	if verifiedAt.Valid {
		t := verifiedAt.Time
		c.EmailVerifiedAt = &t
		c.EmailVerified = true
	}
	return &c, nil
}

const (
	createEmailVerificationSQL   = `INSERT INTO email_verifications (token_hash, account_id, expires_at, created_at) VALUES ($1, $2, $3, NOW())`
	getEmailVerificationByHash   = `SELECT account_id FROM email_verifications WHERE token_hash = $1 AND expires_at > NOW() AND used_at IS NULL`
	markEmailVerificationUsedSQL = `UPDATE email_verifications SET used_at = NOW() WHERE token_hash = $1`
)

// EmailVerificationRepository implements ports.EmailVerificationStore.
type EmailVerificationRepository struct {
	db DBTX
}

func NewEmailVerificationRepository(db DBTX) *EmailVerificationRepository {
	return &EmailVerificationRepository{db: db}
}

func (r *EmailVerificationRepository) Create(ctx context.Context, id domain.AccountID, tokenHash string, expiresAt time.Time) error {
	if _, err := r.db.ExecContext(ctx, createEmailVerificationSQL, tokenHash, id.String(), expiresAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *EmailVerificationRepository) GetByTokenHash(ctx context.Context, tokenHash string) (domain.AccountID, error) {
	var id string
	err := r.db.QueryRowContext(ctx, getEmailVerificationByHash, tokenHash).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domerrors.ErrEmailVerificationInvalid
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	return domain.AccountID(id), nil
}

func (r *EmailVerificationRepository) MarkUsed(ctx context.Context, tokenHash string) error {
	if _, err := r.db.ExecContext(ctx, markEmailVerificationUsedSQL, tokenHash); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

var (
	_ ports.AccountRepository      = (*AccountRepository)(nil)
	_ ports.EmailVerificationStore = (*EmailVerificationRepository)(nil)
)

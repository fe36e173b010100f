package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aadyantmaity/minecollab/internal/domain"
	domerrors "github.com/aadyantmaity/minecollab/internal/domain/errors"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

func q(sql string) string {
	return "^" + regexp.QuoteMeta(sql) + "$"
}

func TestDocumentStore_Get(t *testing.T) {
	db, mock := newMock(t)
	store := NewDocumentStore(db)
	ctx := context.Background()

	mock.ExpectQuery(q(getDocumentSQL)).
		WithArgs("usernames", "bob").
		WillReturnRows(sqlmock.NewRows([]string{"body"}).AddRow([]byte(`{"owner":"a1"}`)))
	got, err := store.Get(ctx, "usernames", "bob")
	require.NoError(t, err)
	assert.JSONEq(t, `{"owner":"a1"}`, string(got))

	mock.ExpectQuery(q(getDocumentSQL)).
		WithArgs("usernames", "ghost").
		WillReturnError(sql.ErrNoRows)
	_, err = store.Get(ctx, "usernames", "ghost")
	require.ErrorIs(t, err, domerrors.ErrNotFound)

	mock.ExpectQuery(q(getDocumentSQL)).
		WithArgs("usernames", "bob").
		WillReturnError(errors.New("conn reset"))
	_, err = store.Get(ctx, "usernames", "bob")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db error: conn reset")
}

func TestDocumentStore_CreateIfAbsent(t *testing.T) {
	db, mock := newMock(t)
	store := NewDocumentStore(db)
	ctx := context.Background()
	body := []byte(`{"owner":"a1"}`)

	mock.ExpectExec(q(createDocumentSQL)).
		WithArgs("usernames", "bob", body).
		WillReturnResult(sqlmock.NewResult(0, 1))
	created, err := store.CreateIfAbsent(ctx, "usernames", "bob", body)
	require.NoError(t, err)
	assert.True(t, created)

	mock.ExpectExec(q(createDocumentSQL)).
		WithArgs("usernames", "bob", body).
		WillReturnResult(sqlmock.NewResult(0, 0))
	created, err = store.CreateIfAbsent(ctx, "usernames", "bob", body)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestDocumentStore_SetDeleteList(t *testing.T) {
	db, mock := newMock(t)
	store := NewDocumentStore(db)
	ctx := context.Background()

	mock.ExpectExec(q(setDocumentSQL)).
		WithArgs("users", "a1", []byte(`{}`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, store.Set(ctx, "users", "a1", []byte(`{}`)))

	mock.ExpectExec(q(deleteDocumentSQL)).
		WithArgs("users", "a1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, store.Delete(ctx, "users", "a1"))

	mock.ExpectQuery(q(listDocumentsSQL)).
		WithArgs("usernames").
		WillReturnRows(sqlmock.NewRows([]string{"key", "body"}).
			AddRow("alice", []byte(`{"owner":"a1"}`)).
			AddRow("bob", []byte(`{"owner":"a2"}`)))
	docs, err := store.List(ctx, "usernames")
	require.NoError(t, err)
	assert.Len(t, docs, 2)
	assert.JSONEq(t, `{"owner":"a2"}`, string(docs["bob"]))
}

func TestDocumentStore_Ping(t *testing.T) {
	db, _ := newMock(t)
	require.NoError(t, NewDocumentStore(db).Ping(context.Background()))
}

func TestAccountRepository_Create(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAccountRepository(db)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	creds := &domain.Credentials{
		Account:      domain.Account{ID: "0b7f3d1e-0000-4000-8000-000000000001", Email: "bob@example.com"},
		PasswordHash: "hash",
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	mock.ExpectExec(q(createAccountSQL)).
		WithArgs(creds.ID.String(), "bob@example.com", "hash", "", now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Create(context.Background(), creds))

	mock.ExpectExec(q(createAccountSQL)).
		WillReturnError(&pgconn.PgError{Code: uniqueViolation})
	require.ErrorIs(t, repo.Create(context.Background(), creds), domerrors.ErrEmailInUse)
}

func TestAccountRepository_GetByEmail(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAccountRepository(db)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cols := []string{"id", "email", "password_hash", "display_name", "email_verified_at", "created_at", "updated_at"}

	mock.ExpectQuery(q(getAccountByEmailSQL)).
		WithArgs("Bob@Example.com").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("a1", "bob@example.com", "hash", "Bob", now, now, now))
	got, err := repo.GetByEmail(context.Background(), "Bob@Example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.AccountID("a1"), got.ID)
	assert.Equal(t, "Bob", got.DisplayName)
	assert.True(t, got.EmailVerified)
	require.NotNil(t, got.EmailVerifiedAt)

	mock.ExpectQuery(q(getAccountByEmailSQL)).
		WithArgs("ghost@example.com").
		WillReturnError(sql.ErrNoRows)
	_, err = repo.GetByEmail(context.Background(), "ghost@example.com")
	require.ErrorIs(t, err, domerrors.ErrAccountNotFound)
}

func TestAccountRepository_UpdatesReportMissingAccount(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAccountRepository(db)
	ctx := context.Background()

	mock.ExpectExec(q(setDisplayNameSQL)).
		WithArgs("Bob", "a1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.SetDisplayName(ctx, "a1", "Bob"))

	mock.ExpectExec(q(deleteAccountSQL)).
		WithArgs("a1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.ErrorIs(t, repo.Delete(ctx, "a1"), domerrors.ErrAccountNotFound)

	mock.ExpectExec(q(setEmailVerifiedSQL)).
		WithArgs("a1").
		WillReturnError(errors.New("boom"))
	err := repo.SetEmailVerified(ctx, "a1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domerrors.ErrAccountNotFound)
}

func TestEmailVerificationRepository(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEmailVerificationRepository(db)
	ctx := context.Background()
	exp := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(q(createEmailVerificationSQL)).
		WithArgs("hash", "a1", exp).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Create(ctx, "a1", "hash", exp))

	mock.ExpectQuery(q(getEmailVerificationByHash)).
		WithArgs("hash").
		WillReturnRows(sqlmock.NewRows([]string{"account_id"}).AddRow("a1"))
	id, err := repo.GetByTokenHash(ctx, "hash")
	require.NoError(t, err)
	assert.Equal(t, domain.AccountID("a1"), id)

	mock.ExpectQuery(q(getEmailVerificationByHash)).
		WithArgs("stale").
		WillReturnError(sql.ErrNoRows)
	_, err = repo.GetByTokenHash(ctx, "stale")
	require.ErrorIs(t, err, domerrors.ErrEmailVerificationInvalid)

	mock.ExpectExec(q(markEmailVerificationUsedSQL)).
		WithArgs("hash").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.MarkUsed(ctx, "hash"))
}

func TestMigrate(t *testing.T) {
	db, _ := newMock(t)
	orig := gooseUp
	t.Cleanup(func() { gooseUp = orig })

	var dir string
	gooseUp = func(ctx context.Context, _ *sql.DB, d string) error {
		dir = d
		return nil
	}
	require.NoError(t, Migrate(context.Background(), db))
	assert.Equal(t, ".", dir)

	gooseUp = func(context.Context, *sql.DB, string) error { return errors.New("boom") }
	err := Migrate(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migrate: boom")
}

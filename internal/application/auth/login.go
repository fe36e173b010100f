package auth

import (
	"context"
	"errors"

	"github.com/aadyantmaity/minecollab/internal/application/ports"
	"github.com/aadyantmaity/minecollab/internal/domain"
	domerrors "github.com/aadyantmaity/minecollab/internal/domain/errors"
)

const DefaultAccessTokenExpiry = 900 // 15 min

type LoginInput struct {
	Email    string
	Password string
}

type LoginResult struct {
	AccessToken string
	ExpiresIn   int64
	Account     *domain.Account
}

// Login exchanges email and password for an access token, with lockout after repeated failures.
type Login struct {
	authn     ports.Authenticator
	issuer    ports.TokenIssuer
	lockout   ports.LoginLockoutStore
	accessExp int64
}

func NewLogin(authn ports.Authenticator, issuer ports.TokenIssuer, lockout ports.LoginLockoutStore, accessExp int64) *Login {
	if accessExp <= 0 {
		accessExp = DefaultAccessTokenExpiry
	}
	return &Login{authn: authn, issuer: issuer, lockout: lockout, accessExp: accessExp}
}

// Execute returns ErrInvalidCredentials or a *domerrors.LockedError on rejection.
func (uc *Login) Execute(ctx context.Context, input LoginInput) (*LoginResult, error) {
	if locked, retry := uc.lockout.IsLocked(ctx, input.Email); locked {
		return nil, &domerrors.LockedError{RetryAfterSeconds: retry}
	}
	account, err := uc.authn.Authenticate(ctx, input.Email, input.Password)
	if err != nil {
		if errors.Is(err, domerrors.ErrInvalidCredentials) {
			uc.lockout.RecordFailure(ctx, input.Email)
		}
		return nil, err
	}
	uc.lockout.RecordSuccess(ctx, input.Email)
	token, err := uc.issuer.IssueAccessToken(account.ID.String(), uc.accessExp)
	if err != nil {
		return nil, err
	}
	return &LoginResult{AccessToken: token, ExpiresIn: uc.accessExp, Account: account}, nil
}

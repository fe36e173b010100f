package auth

import (
	"context"

	"github.com/aadyantmaity/minecollab/internal/application/ports"
	"github.com/aadyantmaity/minecollab/internal/domain"
)

// VerifyEmailInput is the token from the verification link.
type VerifyEmailInput struct {
	Token string
}

type VerifyEmailResult struct {
	Account *domain.Account
}

// VerifyEmail consumes a verification token.
type VerifyEmail struct {
	authn ports.Authenticator
}

func NewVerifyEmail(authn ports.Authenticator) *VerifyEmail {
	return &VerifyEmail{authn: authn}
}

// Execute returns domerrors.ErrEmailVerificationInvalid for an unknown, used or expired token.
func (uc *VerifyEmail) Execute(ctx context.Context, input VerifyEmailInput) (*VerifyEmailResult, error) {
	account, err := uc.authn.ConfirmVerification(ctx, input.Token)
	if err != nil {
		return nil, err
	}
	return &VerifyEmailResult{Account: account}, nil
}

package auth

import (
	"context"

	"github.com/aadyantmaity/minecollab/internal/application/ports"
	"github.com/aadyantmaity/minecollab/internal/domain"
)

// ResendVerificationInput is the authenticated account asking for a new link.
type ResendVerificationInput struct {
	AccountID domain.AccountID
}

// ResendVerificationResult reports whether an email was queued.
type ResendVerificationResult struct {
	AlreadyVerified bool
}

// ResendVerification issues a fresh verification email for an unverified account.
type ResendVerification struct {
	authn      ports.Authenticator
	identities ports.IdentityProvider
}

func NewResendVerification(authn ports.Authenticator, identities ports.IdentityProvider) *ResendVerification {
	return &ResendVerification{authn: authn, identities: identities}
}

func (uc *ResendVerification) Execute(ctx context.Context, input ResendVerificationInput) (*ResendVerificationResult, error) {
	account, err := uc.authn.GetAccount(ctx, input.AccountID)
	if err != nil {
		return nil, err
	}
	if account.EmailVerified {
		return &ResendVerificationResult{AlreadyVerified: true}, nil
	}
	if err := uc.identities.SendVerification(ctx, input.AccountID); err != nil {
		return nil, err
	}
	return &ResendVerificationResult{}, nil
}

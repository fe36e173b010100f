package errors

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for handlers to map to HTTP status.
var (
	ErrValidation             = errors.New("validation failed")
	ErrUsernameTaken          = errors.New("username is already taken")
	ErrNoOpRename             = errors.New("new username is the same as the current one")
	ErrIdentityCreationFailed = errors.New("identity provider rejected the account")
	ErrProvisioningFailed     = errors.New("account provisioning failed")
	ErrRenameFailed           = errors.New("username rename failed")
	ErrStepTimeout            = errors.New("saga step timed out")

	ErrEmailInUse          = errors.New("email is already registered")
	ErrWeakPassword        = errors.New("password does not meet the policy")
	ErrProviderUnavailable = errors.New("identity provider unavailable")
	ErrAccountNotFound     = errors.New("account not found")

	ErrNotFound      = errors.New("document not found")
	ErrAlreadyExists = errors.New("document already exists")

	ErrInvalidCredentials       = errors.New("invalid email or password")
	ErrEmailVerificationInvalid = errors.New("invalid or expired verification token")
	ErrProfileNotFound          = errors.New("profile not found")
	ErrReservationInUse         = errors.New("reservation is in use by its owner")
	ErrAccountLocked            = errors.New("too many failed login attempts")
)

// LockedError carries the remaining lockout for a throttled login.
type LockedError struct {
	RetryAfterSeconds int
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("%v; retry in %ds", ErrAccountLocked, e.RetryAfterSeconds)
}

func (e *LockedError) Is(target error) bool { return target == ErrAccountLocked }

// ValidationError is a user-fixable input problem detected before any write.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// IdentityCreationError wraps the provider's rejection of CreateIdentity. Nothing was written.
type IdentityCreationError struct {
	Cause error
}

func (e *IdentityCreationError) Error() string {
	return fmt.Sprintf("create identity: %v", e.Cause)
}

func (e *IdentityCreationError) Is(target error) bool { return target == ErrIdentityCreationFailed }

func (e *IdentityCreationError) Unwrap() error { return e.Cause }

// ProvisioningError reports a signup failure after the account existed.
// CompensationErr is set when undoing the completed steps also failed, in which case
// partial state is left in the stores.
type ProvisioningError struct {
	Step            string
	Cause           error
	CompensationErr error
}

func (e *ProvisioningError) Error() string {
	if e.CompensationErr != nil {
		return fmt.Sprintf("provisioning failed at %s: %v (compensation failed: %v)", e.Step, e.Cause, e.CompensationErr)
	}
	return fmt.Sprintf("provisioning failed at %s: %v", e.Step, e.Cause)
}

func (e *ProvisioningError) Is(target error) bool { return target == ErrProvisioningFailed }

func (e *ProvisioningError) Unwrap() []error {
	if e.CompensationErr != nil {
		return []error{e.Cause, e.CompensationErr}
	}
	return []error{e.Cause}
}

// PartialState reports whether store-visible state from the failed saga remains.
func (e *ProvisioningError) PartialState() bool { return e.CompensationErr != nil }

// RenameError reports a rename failure after the new reservation may have been acquired.
// Nothing is rolled back; retrying the rename is safe.
type RenameError struct {
	Step  string
	Cause error
}

func (e *RenameError) Error() string {
	return fmt.Sprintf("rename failed at %s: %v", e.Step, e.Cause)
}

func (e *RenameError) Is(target error) bool { return target == ErrRenameFailed }

func (e *RenameError) Unwrap() error { return e.Cause }

// ReleaseWarning is a non-fatal failure to free the previous username after a rename.
type ReleaseWarning struct {
	UsernameLower string
	Cause         error
}

func (w *ReleaseWarning) Error() string {
	return fmt.Sprintf("previous username %q was not released: %v", w.UsernameLower, w.Cause)
}

func (w *ReleaseWarning) Unwrap() error { return w.Cause }

// IsRetryable reports whether err is transient and the whole saga may be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStepTimeout) ||
		errors.Is(err, ErrProviderUnavailable) ||
		errors.Is(err, context.DeadlineExceeded)
}

package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aadyantmaity/minecollab/internal/application/ports"
	"github.com/aadyantmaity/minecollab/internal/domain"
	domerrors "github.com/aadyantmaity/minecollab/internal/domain/errors"
)

// RenameInput is the account being renamed and the requested username.
type RenameInput struct {
	Account  *domain.Account
	Username string
}

// RenameResult is returned once the account and profile carry the new username.
// ReleaseWarning is set when the previous reservation could not be freed.
type RenameResult struct {
	Profile          *domain.Profile
	PreviousUsername string
	Released         bool
	ReleaseWarning   *domerrors.ReleaseWarning
}

// RenameCoordinator runs the rename saga: check, reserve new key, update account and profile,
// release old key. Nothing is rolled back; a failed rename can be retried as is.
type RenameCoordinator struct {
	identities   ports.IdentityProvider
	reservations ports.ReservationStore
	profiles     ports.ProfileRepository
	opts         SagaOptions
	log          zerolog.Logger
	now          func() time.Time
}

// NewRenameCoordinator builds the use case.
func NewRenameCoordinator(identities ports.IdentityProvider, reservations ports.ReservationStore, profiles ports.ProfileRepository, opts SagaOptions, log zerolog.Logger) *RenameCoordinator {
	return &RenameCoordinator{
		identities:   identities,
		reservations: reservations,
		profiles:     profiles,
		opts:         opts,
		log:          log,
		now:          time.Now,
	}
}

// Execute renames input.Account and updates its DisplayName in place. Errors are a
// *domerrors.ValidationError, ErrNoOpRename, ErrUsernameTaken, ErrProfileNotFound or a
// *domerrors.RenameError.
func (uc *RenameCoordinator) Execute(ctx context.Context, input RenameInput) (*RenameResult, error) {
	username, err := domain.ValidateUsername(input.Username)
	if err != nil {
		return nil, err
	}
	newLower := domain.NormalizeUsername(username)
	account := input.Account

	var profile *domain.Profile
	err = uc.run(ctx, func(ctx context.Context) error {
		var e error
		profile, e = uc.profiles.Get(ctx, account.ID)
		return e
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", StepLoadProfile, err)
	}
	if profile == nil {
		return nil, domerrors.ErrProfileNotFound
	}
	// The profile, not the display name, says which key this account last committed to; they
	// differ only after an earlier attempt failed between the two updates. A no-op reads the
	// profile and writes nothing.
	previousLower := profile.UsernameLower
	if newLower == previousLower && newLower == domain.NormalizeUsername(account.DisplayName) {
		return nil, domerrors.ErrNoOpRename
	}

	var current *domain.Reservation
	err = uc.run(ctx, func(ctx context.Context) error {
		var e error
		current, e = uc.reservations.Get(ctx, newLower)
		return e
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", StepCheckUsername, err)
	}
	if current != nil && !current.OwnedBy(account.ID) {
		return nil, domerrors.ErrUsernameTaken
	}

	if current == nil {
		if err := uc.reserve(ctx, account.ID, newLower); err != nil {
			return nil, err
		}
	} else {
		uc.log.Info().
			Str("account_id", account.ID.String()).
			Str("username", newLower).
			Msg("rename resumes with reservation from an earlier attempt")
	}

	if err := uc.run(ctx, func(ctx context.Context) error {
		return uc.identities.SetDisplayName(ctx, account.ID, username)
	}); err != nil {
		return nil, &domerrors.RenameError{Step: StepSetDisplayName, Cause: err}
	}
	account.DisplayName = username

	updated := *profile
	updated.Username = username
	updated.UsernameLower = newLower
	updated.UpdatedAt = uc.now().UTC()
	if err := uc.run(ctx, func(ctx context.Context) error {
		return uc.profiles.Update(ctx, &updated)
	}); err != nil {
		return nil, &domerrors.RenameError{Step: StepUpdateProfile, Cause: err}
	}

	result := &RenameResult{Profile: &updated, PreviousUsername: profile.Username, Released: true}
	if previousLower != newLower {
		if err := uc.release(ctx, account.ID, previousLower); err != nil {
			result.Released = false
			result.ReleaseWarning = &domerrors.ReleaseWarning{UsernameLower: previousLower, Cause: err}
			uc.log.Warn().
				Err(err).
				Str("account_id", account.ID.String()).
				Str("previous_username", previousLower).
				Str("username", newLower).
				Msg("previous username not released; it stays blocked until reclaimed")
		}
	}
	uc.log.Info().
		Str("account_id", account.ID.String()).
		Str("previous_username", previousLower).
		Str("username", newLower).
		Msg("username renamed")
	return result, nil
}

func (uc *RenameCoordinator) reserve(ctx context.Context, id domain.AccountID, usernameLower string) error {
	err := uc.run(ctx, func(ctx context.Context) error {
		return uc.reservations.Reserve(ctx, &domain.Reservation{
			UsernameLower: usernameLower,
			Owner:         id,
			ReservedAt:    uc.now().UTC(),
		})
	})
	if err == nil {
		return nil
	}
	if !errors.Is(err, domerrors.ErrAlreadyExists) {
		return &domerrors.RenameError{Step: StepReserve, Cause: err}
	}
	// Lost the create-if-absent race, unless the winner was an earlier attempt of ours.
	var r *domain.Reservation
	if gerr := uc.run(ctx, func(ctx context.Context) error {
		var e error
		r, e = uc.reservations.Get(ctx, usernameLower)
		return e
	}); gerr != nil {
		return &domerrors.RenameError{Step: StepReserve, Cause: gerr}
	}
	if r.OwnedBy(id) {
		return nil
	}
	return domerrors.ErrUsernameTaken
}

// release deletes the old key only while this account still owns it.
func (uc *RenameCoordinator) release(ctx context.Context, id domain.AccountID, usernameLower string) error {
	return uc.run(ctx, func(ctx context.Context) error {
		r, err := uc.reservations.Get(ctx, usernameLower)
		if err != nil {
			return err
		}
		if !r.OwnedBy(id) {
			return nil
		}
		return uc.reservations.Release(ctx, usernameLower)
	})
}

func (uc *RenameCoordinator) run(ctx context.Context, fn func(ctx context.Context) error) error {
	return runStep(ctx, uc.opts.StepTimeout, fn)
}

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

// ProvisionInput is the signup request.
type ProvisionInput struct {
	Email    string
	Password string
	Username string
}

// ProvisionResult is the created account and its profile.
type ProvisionResult struct {
	Account *domain.Account
	Profile *domain.Profile
}

// Provisioner runs the signup saga: check, create identity, reserve, set display name,
// materialize profile, send verification. Any failure after the identity exists is compensated
// by deleting the profile it wrote, releasing the reservation and deleting the account.
type Provisioner struct {
	identities   ports.IdentityProvider
	reservations ports.ReservationStore
	profiles     ports.ProfileRepository
	journal      ports.ProvisioningJournal
	opts         SagaOptions
	log          zerolog.Logger
	now          func() time.Time
}

// NewProvisioner builds the use case. journal may be nil.
func NewProvisioner(identities ports.IdentityProvider, reservations ports.ReservationStore, profiles ports.ProfileRepository, journal ports.ProvisioningJournal, opts SagaOptions, log zerolog.Logger) *Provisioner {
	return &Provisioner{
		identities:   identities,
		reservations: reservations,
		profiles:     profiles,
		journal:      journal,
		opts:         opts,
		log:          log,
		now:          time.Now,
	}
}

// Execute provisions a new account. Errors are a *domerrors.ValidationError, ErrUsernameTaken,
// a *domerrors.IdentityCreationError (nothing written) or a *domerrors.ProvisioningError.
func (uc *Provisioner) Execute(ctx context.Context, input ProvisionInput) (*ProvisionResult, error) {
	username, err := domain.ValidateUsername(input.Username)
	if err != nil {
		return nil, err
	}
	usernameLower := domain.NormalizeUsername(username)

	var existing *domain.Reservation
	err = runStep(ctx, uc.opts.StepTimeout, func(ctx context.Context) error {
		var e error
		existing, e = uc.reservations.Get(ctx, usernameLower)
		return e
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", StepCheckUsername, err)
	}
	if existing != nil {
		return nil, domerrors.ErrUsernameTaken
	}

	var account *domain.Account
	err = runStep(ctx, uc.opts.StepTimeout, func(ctx context.Context) error {
		var e error
		account, e = uc.identities.CreateIdentity(ctx, input.Email, input.Password)
		return e
	})
	if err != nil {
		return nil, &domerrors.IdentityCreationError{Cause: err}
	}

	s := &signup{
		uc:            uc,
		account:       account,
		username:      username,
		usernameLower: usernameLower,
		record: &domain.ProvisioningRecord{
			AccountID:     account.ID,
			Email:         account.Email,
			UsernameLower: usernameLower,
		},
	}
	s.transition(ctx, domain.ProvisioningPending)
	return s.run(ctx)
}

// signup is the in-flight state of one saga. It lives only on the caller's stack; the journal
// is the only trace that survives a crash.
type signup struct {
	uc            *Provisioner
	account       *domain.Account
	username      string
	usernameLower string
	profile       *domain.Profile
	record        *domain.ProvisioningRecord
}

// stage is a forward step and the journal state reached once it succeeds.
type stage struct {
	step
	reached domain.ProvisioningState
}

func (s *signup) stages() []stage {
	return []stage{
		{step{name: StepReserve, do: s.reserve, undo: s.release, guardedUndo: true}, domain.ProvisioningReserved},
		{step{name: StepSetDisplayName, do: s.setDisplayName}, ""},
		{step{name: StepMaterializeProfile, do: s.materializeProfile, undo: s.deleteProfile, guardedUndo: true}, domain.ProvisioningProfiled},
		{step{name: StepSendVerification, do: s.sendVerification}, domain.ProvisioningVerified},
	}
}

func (s *signup) run(ctx context.Context) (*ProvisionResult, error) {
	// Undo actions run in reverse; deleting the identity is always the last one.
	completed := []step{{name: StepCreateIdentity, undo: s.deleteIdentity}}
	for _, st := range s.stages() {
		if err := runStep(ctx, s.uc.opts.StepTimeout, st.do); err != nil {
			if st.guardedUndo {
				completed = append(completed, st.step)
			}
			return nil, s.compensate(ctx, st.name, err, completed)
		}
		completed = append(completed, st.step)
		if st.reached != "" {
			s.transition(ctx, st.reached)
		}
	}
	s.uc.log.Info().
		Str("account_id", s.account.ID.String()).
		Str("username", s.username).
		Msg("account provisioned")
	return &ProvisionResult{Account: s.account, Profile: s.profile}, nil
}

func (s *signup) compensate(ctx context.Context, failedStep string, cause error, completed []step) error {
	cctx, cancel := compensationContext(ctx, s.uc.opts.CompensationTimeout)
	defer cancel()

	s.record.FailedStep = failedStep
	s.record.Cause = cause.Error()
	s.transition(cctx, domain.ProvisioningCompensating)

	var undoErrs []error
	for i := len(completed) - 1; i >= 0; i-- {
		st := completed[i]
		if st.undo == nil {
			continue
		}
		if err := retryUndo(cctx, s.uc.opts, st.undo); err != nil {
			undoErrs = append(undoErrs, fmt.Errorf("undo %s: %w", st.name, err))
		}
	}

	perr := &domerrors.ProvisioningError{Step: failedStep, Cause: cause}
	if len(undoErrs) > 0 {
		perr.CompensationErr = errors.Join(undoErrs...)
		s.record.CompensationError = perr.CompensationErr.Error()
		s.transition(cctx, domain.ProvisioningCompensationFailed)
		s.uc.log.Error().
			Err(cause).
			AnErr("compensation_error", perr.CompensationErr).
			Str("account_id", s.account.ID.String()).
			Str("username", s.usernameLower).
			Str("step", failedStep).
			Msg("provisioning compensation failed; partial state left for operator")
		return perr
	}
	s.transition(cctx, domain.ProvisioningCompensated)
	s.uc.log.Warn().
		Err(cause).
		Str("account_id", s.account.ID.String()).
		Str("username", s.usernameLower).
		Str("step", failedStep).
		Msg("provisioning failed; compensated")
	return perr
}

func (s *signup) reserve(ctx context.Context) error {
	err := s.uc.reservations.Reserve(ctx, &domain.Reservation{
		UsernameLower: s.usernameLower,
		Owner:         s.account.ID,
		ReservedAt:    s.uc.now().UTC(),
	})
	if errors.Is(err, domerrors.ErrAlreadyExists) {
		return domerrors.ErrUsernameTaken
	}
	return err
}

// release frees the reservation only while it still points at this account; a plain-write
// store may have let a concurrent signup overwrite it.
func (s *signup) release(ctx context.Context) error {
	r, err := s.uc.reservations.Get(ctx, s.usernameLower)
	if err != nil {
		return err
	}
	if !r.OwnedBy(s.account.ID) {
		return nil
	}
	return s.uc.reservations.Release(ctx, s.usernameLower)
}

func (s *signup) setDisplayName(ctx context.Context) error {
	if err := s.uc.identities.SetDisplayName(ctx, s.account.ID, s.username); err != nil {
		return err
	}
	s.account.DisplayName = s.username
	return nil
}

func (s *signup) materializeProfile(ctx context.Context) error {
	now := s.uc.now().UTC()
	profile := &domain.Profile{
		AccountID:     s.account.ID,
		Email:         s.account.Email,
		Username:      s.username,
		UsernameLower: s.usernameLower,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.uc.profiles.Create(ctx, profile); err != nil {
		return err
	}
	s.profile = profile
	return nil
}

// deleteProfile removes the profile written under the account this saga created. The key is
// the new account ID, so nothing else can own it.
func (s *signup) deleteProfile(ctx context.Context) error {
	return s.uc.profiles.Delete(ctx, s.account.ID)
}

func (s *signup) sendVerification(ctx context.Context) error {
	return s.uc.identities.SendVerification(ctx, s.account.ID)
}

func (s *signup) deleteIdentity(ctx context.Context) error {
	err := s.uc.identities.DeleteIdentity(ctx, s.account.ID)
	if errors.Is(err, domerrors.ErrAccountNotFound) {
		return nil
	}
	return err
}

// transition records the new state. Journal failures never fail the saga.
func (s *signup) transition(ctx context.Context, state domain.ProvisioningState) {
	s.record.State = state
	s.record.UpdatedAt = s.uc.now().UTC()
	if s.uc.journal == nil {
		return
	}
	if err := s.uc.journal.Record(ctx, s.record); err != nil {
		s.uc.log.Warn().
			Err(err).
			Str("account_id", s.account.ID.String()).
			Str("state", string(state)).
			Msg("provisioning journal write failed")
	}
}

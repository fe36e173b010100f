// Package reconcile finds username reservations that no longer match their owner's profile
// and lets an operator reclaim them.
package reconcile

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/aadyantmaity/minecollab/internal/application/ports"
	"github.com/aadyantmaity/minecollab/internal/domain"
	domerrors "github.com/aadyantmaity/minecollab/internal/domain/errors"
)

// DefaultGracePeriod covers a signup or rename that is still between its reserve and profile steps.
const DefaultGracePeriod = 10 * time.Minute

// Status classifies a reservation against its owner's profile.
type Status string

const (
	// StatusOK: the owner's profile carries this username.
	StatusOK Status = "ok"
	// StatusOrphaned: the owner has no profile (failed signup left the key behind).
	StatusOrphaned Status = "orphaned"
	// StatusStale: the owner's profile now carries another username (release failed after a rename).
	StatusStale Status = "stale"
	// StatusPending: not ok, but young enough that a saga may still be running.
	StatusPending Status = "pending"
)

// Finding is one classified reservation.
type Finding struct {
	UsernameLower   string           `json:"username"`
	Owner           domain.AccountID `json:"owner"`
	ReservedAt      time.Time        `json:"reserved_at"`
	Status          Status           `json:"status"`
	ProfileUsername string           `json:"profile_username,omitempty"`
}

// Reclaimable reports whether an operator may delete the reservation.
func (f *Finding) Reclaimable() bool {
	return f.Status == StatusOrphaned || f.Status == StatusStale
}

// Reconciler inspects and repairs the username index.
type Reconciler struct {
	reservations ports.ReservationStore
	profiles     ports.ProfileRepository
	grace        time.Duration
	log          zerolog.Logger
	now          func() time.Time
}

// NewReconciler reports mismatched reservations younger than grace as pending, which Reclaim refuses.
func NewReconciler(reservations ports.ReservationStore, profiles ports.ProfileRepository, grace time.Duration, log zerolog.Logger) *Reconciler {
	if grace < 0 {
		grace = 0
	}
	return &Reconciler{
		reservations: reservations,
		profiles:     profiles,
		grace:        grace,
		log:          log,
		now:          time.Now,
	}
}

// Inspect classifies the reservation for username. domerrors.ErrNotFound when none exists.
func (r *Reconciler) Inspect(ctx context.Context, username string) (*Finding, error) {
	lower := domain.NormalizeUsername(username)
	res, err := r.reservations.Get(ctx, lower)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, domerrors.ErrNotFound
	}
	return r.classify(ctx, res)
}

// Scan returns every reservation that is not ok, ordered by username.
func (r *Reconciler) Scan(ctx context.Context) ([]*Finding, error) {
	all, err := r.reservations.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []*Finding
	for _, res := range all {
		f, err := r.classify(ctx, res)
		if err != nil {
			return nil, err
		}
		if f.Status != StatusOK {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UsernameLower < out[j].UsernameLower })
	return out, nil
}

// Reclaim deletes an orphaned or stale reservation. Consistent and pending reservations are
// refused with domerrors.ErrReservationInUse.
func (r *Reconciler) Reclaim(ctx context.Context, username string) (*Finding, error) {
	f, err := r.Inspect(ctx, username)
	if err != nil {
		return nil, err
	}
	if !f.Reclaimable() {
		return f, domerrors.ErrReservationInUse
	}
	// Re-check ownership right before deleting; the owner may have moved on since Inspect.
	current, err := r.reservations.Get(ctx, f.UsernameLower)
	if err != nil {
		return nil, err
	}
	if !current.OwnedBy(f.Owner) {
		return f, domerrors.ErrReservationInUse
	}
	if err := r.reservations.Release(ctx, f.UsernameLower); err != nil {
		return nil, err
	}
	r.log.Info().
		Str("username", f.UsernameLower).
		Str("owner", f.Owner.String()).
		Str("status", string(f.Status)).
		Msg("reservation reclaimed")
	return f, nil
}

func (r *Reconciler) classify(ctx context.Context, res *domain.Reservation) (*Finding, error) {
	f := &Finding{UsernameLower: res.UsernameLower, Owner: res.Owner, ReservedAt: res.ReservedAt}
	profile, err := r.profiles.Get(ctx, res.Owner)
	if err != nil && !errors.Is(err, domerrors.ErrNotFound) {
		return nil, err
	}
	switch {
	case profile == nil:
		f.Status = StatusOrphaned
	case profile.UsernameLower == res.UsernameLower:
		f.Status = StatusOK
		f.ProfileUsername = profile.Username
		return f, nil
	default:
		f.Status = StatusStale
		f.ProfileUsername = profile.Username
	}
	if r.now().Sub(res.ReservedAt) < r.grace {
		f.Status = StatusPending
	}
	return f, nil
}

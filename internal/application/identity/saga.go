package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	domerrors "github.com/aadyantmaity/minecollab/internal/domain/errors"
)

// Step names reported in ProvisioningError.Step and RenameError.Step.
const (
	StepCheckUsername      = "check_username"
	StepCreateIdentity     = "create_identity"
	StepReserve            = "reserve"
	StepSetDisplayName     = "set_display_name"
	StepMaterializeProfile = "materialize_profile"
	StepSendVerification   = "send_verification"
	StepLoadProfile        = "load_profile"
	StepUpdateProfile      = "update_profile"
	StepRelease            = "release"
)

// SagaOptions bounds every external call made by the sagas.
type SagaOptions struct {
	// StepTimeout bounds each store or provider call. Zero leaves only the caller's deadline.
	StepTimeout time.Duration
	// CompensationTimeout bounds the whole compensation, which ignores caller cancellation.
	CompensationTimeout time.Duration
	// CompensationRetries is the number of extra attempts per undo action.
	CompensationRetries int
	// RetryInterval is the first backoff interval between undo attempts.
	RetryInterval time.Duration
}

// DefaultSagaOptions returns the options used when none are configured.
func DefaultSagaOptions() SagaOptions {
	return SagaOptions{
		StepTimeout:         5 * time.Second,
		CompensationTimeout: 15 * time.Second,
		CompensationRetries: 3,
		RetryInterval:       200 * time.Millisecond,
	}
}

// step is one forward action of a saga paired with the action that undoes it.
type step struct {
	name string
	do   func(ctx context.Context) error
	undo func(ctx context.Context) error
	// guardedUndo marks an undo that checks ownership itself, so it also runs when do failed
	// with an unknown outcome (for example a write that timed out after landing).
	guardedUndo bool
}

// runStep calls fn under the step timeout and converts a step deadline into ErrStepTimeout.
func runStep(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	stepCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	err := fn(stepCtx)
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", domerrors.ErrStepTimeout, err)
	}
	return err
}

// compensationContext detaches from the caller so a cancelled request still gets cleaned up.
func compensationContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	if timeout <= 0 {
		return context.WithCancel(detached)
	}
	return context.WithTimeout(detached, timeout)
}

// retryUndo runs an undo action with bounded exponential backoff.
func retryUndo(ctx context.Context, opts SagaOptions, fn func(ctx context.Context) error) error {
	b := backoff.NewExponentialBackOff()
	if opts.RetryInterval > 0 {
		b.InitialInterval = opts.RetryInterval
	}
	retries := opts.CompensationRetries
	if retries < 0 {
		retries = 0
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
	return backoff.Retry(func() error {
		return runStep(ctx, opts.StepTimeout, fn)
	}, policy)
}

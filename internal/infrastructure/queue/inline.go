package queue

import (
	"context"

	"github.com/aadyantmaity/minecollab/internal/application/ports"
)

// InlineEnqueuer runs task handlers synchronously when Redis is not configured. Handler
// errors are logged, never returned, so a down webhook endpoint does not fail a request.
type InlineEnqueuer struct {
	h *Handlers
}

func NewInlineEnqueuer(h *Handlers) *InlineEnqueuer {
	return &InlineEnqueuer{h: h}
}

func (q *InlineEnqueuer) EnqueueSendEmailVerification(ctx context.Context, accountID, email, verifyURL string) error {
	task, err := NewEmailVerificationTask(accountID, email, verifyURL)
	if err != nil {
		return err
	}
	if err := q.h.HandleSendEmailVerification(ctx, task); err != nil {
		q.h.log.Warn().Err(err).Str("account_id", accountID).Msg("inline email verification failed")
	}
	return nil
}

func (q *InlineEnqueuer) EnqueueWebhook(ctx context.Context, event string, payload interface{}) error {
	task, err := NewWebhookTask(event, payload)
	if err != nil {
		return err
	}
	_ = q.h.HandleWebhook(ctx, task)
	return nil
}

var _ ports.TaskEnqueuer = (*InlineEnqueuer)(nil)

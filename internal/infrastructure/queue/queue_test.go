package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aadyantmaity/minecollab/internal/application/ports"
)

type recordingEmitter struct {
	events []ports.AuditEvent
	err    error
}

func (r *recordingEmitter) Emit(_ context.Context, ev ports.AuditEvent) error {
	r.events = append(r.events, ev)
	return r.err
}

func TestHandleWebhook_DeliversAuditEvent(t *testing.T) {
	em := &recordingEmitter{}
	h := NewHandlers(em, zerolog.Nop())

	task, err := NewWebhookTask("account.provisioned", ports.AuditEvent{AccountID: "a1", Username: "bob", Success: true})
	require.NoError(t, err)
	require.NoError(t, h.HandleWebhook(context.Background(), task))

	require.Len(t, em.events, 1)
	assert.Equal(t, "account.provisioned", em.events[0].Event)
	assert.Equal(t, "bob", em.events[0].Username)
}

func TestHandleWebhook_DeliveryErrorIsRetried(t *testing.T) {
	h := NewHandlers(&recordingEmitter{err: errors.New("endpoint down")}, zerolog.Nop())
	task, err := NewWebhookTask("account.renamed", ports.AuditEvent{Event: "account.renamed"})
	require.NoError(t, err)

	err = h.HandleWebhook(context.Background(), task)
	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
}

func TestHandlers_BadPayloadSkipsRetry(t *testing.T) {
	h := NewHandlers(&recordingEmitter{}, zerolog.Nop())
	bad := asynq.NewTask(TypeWebhook, []byte("{"))
	assert.ErrorIs(t, h.HandleWebhook(context.Background(), bad), asynq.SkipRetry)

	bad = asynq.NewTask(TypeSendEmailVerification, []byte("nope"))
	assert.ErrorIs(t, h.HandleSendEmailVerification(context.Background(), bad), asynq.SkipRetry)
}

func TestInlineEnqueuer_SwallowsHandlerErrors(t *testing.T) {
	em := &recordingEmitter{err: errors.New("endpoint down")}
	q := NewInlineEnqueuer(NewHandlers(em, zerolog.Nop()))

	require.NoError(t, q.EnqueueWebhook(context.Background(), "account.renamed", ports.AuditEvent{Username: "alice"}))
	require.NoError(t, q.EnqueueSendEmailVerification(context.Background(), "a1", "bob@example.com", "http://x/verify?token=t"))
	assert.Len(t, em.events, 1)
}

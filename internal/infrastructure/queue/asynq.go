// Package queue delivers verification emails and webhooks out of band through Asynq.
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/aadyantmaity/minecollab/internal/application/ports"
)

const (
	TypeSendEmailVerification = "email:email_verification"
	TypeWebhook               = "webhook:emit"

	queueCritical = "critical"
	queueDefault  = "default"
)

type emailVerificationPayload struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
	VerifyURL string `json:"verify_url"`
}

type webhookPayload struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// NewEmailVerificationTask builds the task enqueued for a verification email.
func NewEmailVerificationTask(accountID, email, verifyURL string) (*asynq.Task, error) {
	body, err := json.Marshal(emailVerificationPayload{AccountID: accountID, Email: email, VerifyURL: verifyURL})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeSendEmailVerification, body, asynq.MaxRetry(5), asynq.Queue(queueCritical)), nil
}

// NewWebhookTask builds the task enqueued for a webhook delivery.
func NewWebhookTask(event string, payload interface{}) (*asynq.Task, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode webhook payload: %w", err)
	}
	body, err := json.Marshal(webhookPayload{Event: event, Payload: raw})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeWebhook, body, asynq.MaxRetry(3), asynq.Queue(queueDefault)), nil
}

// TaskEnqueuer implements ports.TaskEnqueuer on an Asynq client.
type TaskEnqueuer struct {
	client *asynq.Client
	log    zerolog.Logger
}

func NewAsynqEnqueuer(redisOpt asynq.RedisConnOpt, log zerolog.Logger) *TaskEnqueuer {
	return &TaskEnqueuer{client: asynq.NewClient(redisOpt), log: log}
}

func (q *TaskEnqueuer) Close() error {
	return q.client.Close()
}

func (q *TaskEnqueuer) EnqueueSendEmailVerification(ctx context.Context, accountID, email, verifyURL string) error {
	task, err := NewEmailVerificationTask(accountID, email, verifyURL)
	if err != nil {
		return err
	}
	if _, err := q.client.EnqueueContext(ctx, task); err != nil {
		q.log.Warn().Err(err).Str("account_id", accountID).Msg("enqueue email verification failed")
		return err
	}
	return nil
}

func (q *TaskEnqueuer) EnqueueWebhook(ctx context.Context, event string, payload interface{}) error {
	task, err := NewWebhookTask(event, payload)
	if err != nil {
		return err
	}
	if _, err := q.client.EnqueueContext(ctx, task); err != nil {
		q.log.Warn().Err(err).Str("event", event).Msg("enqueue webhook failed")
		return err
	}
	return nil
}

var _ ports.TaskEnqueuer = (*TaskEnqueuer)(nil)

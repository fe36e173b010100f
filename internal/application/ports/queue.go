package ports

import "context"

// TaskEnqueuer enqueues async tasks (email, webhook).
type TaskEnqueuer interface {
	EnqueueSendEmailVerification(ctx context.Context, accountID, email, verifyURL string) error
	EnqueueWebhook(ctx context.Context, event string, payload interface{}) error
}

package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/aadyantmaity/minecollab/internal/application/ports"
)

// Handlers process queued tasks. Verification emails are logged; configure a mail relay
// in front of the log sink for real delivery.
type Handlers struct {
	emitter ports.WebhookEmitter
	log     zerolog.Logger
}

func NewHandlers(emitter ports.WebhookEmitter, log zerolog.Logger) *Handlers {
	return &Handlers{emitter: emitter, log: log}
}

func (h *Handlers) HandleSendEmailVerification(ctx context.Context, t *asynq.Task) error {
	var p emailVerificationPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		h.log.Error().Err(err).Msg("email verification task payload invalid")
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	h.log.Info().
		Str("account_id", p.AccountID).
		Str("email", p.Email).
		Str("verify_url", p.VerifyURL).
		Msg("email verification (log only)")
	return nil
}

func (h *Handlers) HandleWebhook(ctx context.Context, t *asynq.Task) error {
	var p webhookPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		h.log.Error().Err(err).Msg("webhook task payload invalid")
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	var ev ports.AuditEvent
	if err := json.Unmarshal(p.Payload, &ev); err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if ev.Event == "" {
		ev.Event = p.Event
	}
	if err := h.emitter.Emit(ctx, ev); err != nil {
		h.log.Warn().Err(err).Str("event", ev.Event).Msg("webhook delivery failed")
		return err
	}
	return nil
}

// Worker runs the Asynq server with the task handlers registered.
type Worker struct {
	srv *asynq.Server
	mux *asynq.ServeMux
}

// NewWorker creates the server. Call Run to start.
func NewWorker(redisOpt asynq.RedisConnOpt, concurrency int, h *Handlers) *Worker {
	if concurrency <= 0 {
		concurrency = 2
	}
	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{queueCritical: 6, queueDefault: 3},
		LogLevel:    asynq.WarnLevel,
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeSendEmailVerification, h.HandleSendEmailVerification)
	mux.HandleFunc(TypeWebhook, h.HandleWebhook)
	return &Worker{srv: srv, mux: mux}
}

// Run blocks until Shutdown.
func (w *Worker) Run() error {
	return w.srv.Run(w.mux)
}

func (w *Worker) Shutdown() {
	w.srv.Shutdown()
}

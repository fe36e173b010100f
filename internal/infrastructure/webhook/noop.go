package webhook

import (
	"context"

	"github.com/aadyantmaity/minecollab/internal/application/ports"
)

// NoopEmitter discards audit events when no webhook URL is configured.
type NoopEmitter struct{}

func NewNoopEmitter() *NoopEmitter {
	return &NoopEmitter{}
}

func (NoopEmitter) Emit(context.Context, ports.AuditEvent) error {
	return nil
}

var _ ports.WebhookEmitter = (*NoopEmitter)(nil)

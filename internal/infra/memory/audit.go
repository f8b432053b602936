package memory

import (
	"context"
	"sync"

	"archui-experiment-service/internal/domain"
)

// AuditRecorder captures audit events in memory so the pipeline's decision
// logic can be tested without a network dependency.
type AuditRecorder struct {
	mu     sync.Mutex
	events []domain.AuditEvent
}

func NewAuditRecorder() *AuditRecorder {
	return &AuditRecorder{}
}

func (r *AuditRecorder) Log(_ context.Context, event domain.AuditEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of the recorded trail in emission order.
func (r *AuditRecorder) Events() []domain.AuditEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	events := make([]domain.AuditEvent, len(r.events))
	copy(events, r.events)
	return events
}

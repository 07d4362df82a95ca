package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/trading-journal/internal/events"
)

// StartAuditWorker writes one audit log line for every journal change.
func StartAuditWorker(dispatcher events.Dispatcher, logger *zap.Logger) {
	if dispatcher == nil || logger == nil {
		return
	}
	audit := logger.Named("audit")
	for _, eventType := range events.AllEventTypes {
		dispatcher.Subscribe(eventType, func(_ context.Context, e events.Event) error {
			audit.Info("journal change",
				zap.String("event_id", e.ID),
				zap.String("event_type", string(e.Type)),
				zap.String("owner", e.Owner),
				zap.String("subject_id", e.SubjectID),
				zap.String("actor", e.Actor.Identity),
				zap.String("actor_role", e.Actor.Role),
				zap.Time("at", e.Timestamp),
				zap.Any("payload", e.Payload),
			)
			return nil
		})
	}
}

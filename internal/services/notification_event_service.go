package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/lms-service/internal/events"
)

const publishTimeout = 5 * time.Second

// eventNotifier publishes lifecycle events after a state change committed.
// Publishing never fails the caller.
type eventNotifier struct {
	publisher events.EventPublisher
	logger    *slog.Logger
}

func newEventNotifier(publisher events.EventPublisher, logger *slog.Logger) *eventNotifier {
	return &eventNotifier{publisher: publisher, logger: logger}
}

func (n *eventNotifier) Notify(ctx context.Context, eventType events.EventType, data interface{}) {
	if n == nil || n.publisher == nil {
		return
	}

	// The request may already be finishing; the event should still go out
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	event := events.NewEvent(eventType, data)
	if err := n.publisher.Publish(pubCtx, event); err != nil {
		n.logger.Warn("Failed to publish event",
			"event_id", event.ID,
			"event_type", eventType,
			"error", err)
	}
}

package services

import (
	"context"
	"errors"
	"testing"

	"github.com/SAP-F-2025/lms-service/internal/events"
)

func TestEventNotifier_Notify(t *testing.T) {
	publisher := events.NewMockEventPublisher(discardLogger())
	notifier := newEventNotifier(publisher, discardLogger())

	t.Run("publishes envelope", func(t *testing.T) {
		publisher.ClearEvents()
		notifier.Notify(context.Background(), events.AttemptStarted, &events.AttemptEventData{AttemptID: 3, TraineeID: "t-1"})

		published := publisher.EventsOfType(events.AttemptStarted)
		if len(published) != 1 {
			t.Fatalf("expected 1 event, got %d", len(published))
		}
		e := published[0]
		if e.ID == "" || e.Source != events.EventSource || e.Version != events.EventVersion {
			t.Errorf("envelope = %+v", e)
		}
		data, ok := e.Data.(*events.AttemptEventData)
		if !ok || data.AttemptID != 3 {
			t.Errorf("data = %#v", e.Data)
		}
	})

	t.Run("cancelled request still publishes", func(t *testing.T) {
		publisher.ClearEvents()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		notifier.Notify(ctx, events.MaterialUploaded, &events.MaterialEventData{MaterialID: 1})
		if got := len(publisher.GetPublishedEvents()); got != 1 {
			t.Errorf("expected 1 event, got %d", got)
		}
	})

	t.Run("publish failure is swallowed", func(t *testing.T) {
		publisher.ClearEvents()
		publisher.FailWith(errors.New("broker down"))
		defer publisher.FailWith(nil)

		notifier.Notify(context.Background(), events.AttemptExpired, nil)
		if got := len(publisher.GetPublishedEvents()); got != 0 {
			t.Errorf("expected no recorded events, got %d", got)
		}
	})

	t.Run("nil notifier", func(t *testing.T) {
		var n *eventNotifier
		n.Notify(context.Background(), events.AttemptStarted, nil)
		(&eventNotifier{}).Notify(context.Background(), events.AttemptStarted, nil)
	})
}

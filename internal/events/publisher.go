package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// EventPublisher delivers lifecycle events. Publishing is best effort and
// never part of a state transition.
type EventPublisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}

type PublisherConfig struct {
	Brokers     []string
	TopicPrefix string
}

// WatermillPublisher publishes JSON envelopes to a watermill publisher,
// one topic per event type.
type WatermillPublisher struct {
	publisher   message.Publisher
	topicPrefix string
	logger      *slog.Logger
}

// NewPublisher returns a Kafka backed publisher when brokers are configured
// and an in-process gochannel otherwise.
func NewPublisher(cfg PublisherConfig, logger *slog.Logger) (*WatermillPublisher, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	if len(cfg.Brokers) == 0 {
		logger.Info("Kafka brokers not configured, using in-process event channel")
		return NewWatermillPublisher(gochannel.NewGoChannel(gochannel.Config{}, wmLogger), cfg.TopicPrefix, logger), nil
	}

	pub, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   cfg.Brokers,
		Marshaler: kafka.DefaultMarshaler{},
	}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}
	return NewWatermillPublisher(pub, cfg.TopicPrefix, logger), nil
}

func NewWatermillPublisher(publisher message.Publisher, topicPrefix string, logger *slog.Logger) *WatermillPublisher {
	return &WatermillPublisher{
		publisher:   publisher,
		topicPrefix: topicPrefix,
		logger:      logger,
	}
}

// Topic maps an event type to its topic name.
func (p *WatermillPublisher) Topic(eventType EventType) string {
	return p.topicPrefix + string(eventType)
}

func (p *WatermillPublisher) Publish(ctx context.Context, event *Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.Metadata.Set("event_type", string(event.Type))
	msg.SetContext(ctx)

	if err := p.publisher.Publish(p.Topic(event.Type), msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}

	p.logger.DebugContext(ctx, "Event published", "event_id", event.ID, "type", event.Type)
	return nil
}

func (p *WatermillPublisher) Close() error {
	return p.publisher.Close()
}

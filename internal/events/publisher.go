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

// EventPublisher publishes domain events.
type EventPublisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}

// Handler processes one delivered event. Returning an error nacks the message.
type Handler func(ctx context.Context, event *Event) error

// EventSubscriber delivers events of a type to a handler until ctx is done.
type EventSubscriber interface {
	Subscribe(ctx context.Context, eventType string, handler Handler) error
	Close() error
}

// Bus adapts a watermill publisher/subscriber pair.
type Bus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	shared     bool
	logger     *slog.Logger
}

// NewGoChannelBus keeps events in process.
func NewGoChannelBus(logger *slog.Logger) *Bus {
	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, watermill.NewSlogLogger(logger))
	return &Bus{publisher: pubSub, subscriber: pubSub, shared: true, logger: logger}
}

// NewKafkaBus publishes to and consumes from kafka.
func NewKafkaBus(brokers []string, consumerGroup string, logger *slog.Logger) (*Bus, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	publisher, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   brokers,
		Marshaler: kafka.DefaultMarshaler{},
	}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}

	subscriber, err := kafka.NewSubscriber(kafka.SubscriberConfig{
		Brokers:               brokers,
		Unmarshaler:           kafka.DefaultMarshaler{},
		ConsumerGroup:         consumerGroup,
		OverwriteSaramaConfig: kafka.DefaultSaramaSubscriberConfig(),
	}, wmLogger)
	if err != nil {
		publisher.Close()
		return nil, fmt.Errorf("failed to create kafka subscriber: %w", err)
	}

	return &Bus{publisher: publisher, subscriber: subscriber, logger: logger}, nil
}

func (b *Bus) Publish(ctx context.Context, event *Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.Metadata.Set("event_type", event.Type)
	msg.SetContext(ctx)

	if err := b.publisher.Publish(event.Type, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}
	return nil
}

// Subscribe starts a goroutine feeding messages of eventType to handler.
func (b *Bus) Subscribe(ctx context.Context, eventType string, handler Handler) error {
	messages, err := b.subscriber.Subscribe(ctx, eventType)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", eventType, err)
	}

	go func() {
		for msg := range messages {
			var event Event
			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				b.logger.Error("Dropping malformed event", "error", err, "topic", eventType, "message_id", msg.UUID)
				msg.Ack()
				continue
			}
			if err := handler(msg.Context(), &event); err != nil {
				b.logger.Warn("Event handler failed", "error", err, "event_type", event.Type, "event_id", event.ID)
				msg.Nack()
				continue
			}
			msg.Ack()
		}
	}()
	return nil
}

func (b *Bus) Close() error {
	if err := b.publisher.Close(); err != nil {
		return err
	}
	if b.shared {
		return nil
	}
	return b.subscriber.Close()
}

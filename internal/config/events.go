package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/SAP-F-2025/ec0249-assessment/internal/events"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const (
	PublisherKafka     = "kafka"
	PublisherGoChannel = "gochannel"
	PublisherMock      = "mock"
)

// EventConfig holds configuration for event publishing and command consumption
type EventConfig struct {
	Enabled           bool
	Publisher         string // kafka, gochannel or mock
	KafkaBrokers      string
	NotificationTopic string
	CommandTopic      string
	ConsumerGroup     string
}

// GetKafkaBrokers returns Kafka brokers as a slice
func (c *EventConfig) GetKafkaBrokers() []string {
	brokers := strings.Split(c.KafkaBrokers, ",")
	for i := range brokers {
		brokers[i] = strings.TrimSpace(brokers[i])
	}
	return brokers
}

// Bus is the messaging wiring of the service: where notifications go and where commands come from.
// Subscriber is nil when no command source is configured.
type Bus struct {
	Publisher  events.EventPublisher
	Subscriber message.Subscriber
}

// CreateEventBus creates the event publisher and command subscriber based on configuration
func (c *EventConfig) CreateEventBus(logger *slog.Logger) (*Bus, error) {
	if !c.Enabled {
		logger.Info("Event publishing disabled, using mock publisher")
		return &Bus{Publisher: events.NewMockEventPublisher(logger)}, nil
	}

	switch c.Publisher {
	case PublisherKafka:
		logger.Info("Creating Kafka event publisher",
			"brokers", c.KafkaBrokers,
			"topic", c.NotificationTopic)

		publisher, err := events.NewKafkaEventPublisher(events.PublisherConfig{
			KafkaBrokers: c.GetKafkaBrokers(),
			TopicName:    c.NotificationTopic,
			Logger:       logger,
		})
		if err != nil {
			return nil, err
		}
		subscriber, err := events.NewKafkaCommandSubscriber(c.GetKafkaBrokers(), c.ConsumerGroup, logger)
		if err != nil {
			publisher.Close()
			return nil, fmt.Errorf("command subscriber: %w", err)
		}
		return &Bus{Publisher: publisher, Subscriber: subscriber}, nil
	case PublisherGoChannel:
		logger.Info("Using in-process event bus", "topic", c.NotificationTopic)
		notifications := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewSlogLogger(logger))
		return &Bus{
			Publisher:  events.NewWatermillEventPublisher(notifications, c.NotificationTopic, logger),
			Subscriber: events.NewInProcessPubSub(logger),
		}, nil
	case PublisherMock:
		logger.Info("Using mock event publisher")
		return &Bus{Publisher: events.NewMockEventPublisher(logger)}, nil
	default:
		logger.Warn("Unknown event publisher type, falling back to mock", "publisher", c.Publisher)
		return &Bus{Publisher: events.NewMockEventPublisher(logger)}, nil
	}
}

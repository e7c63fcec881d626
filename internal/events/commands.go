package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

var ErrUnknownCommand = errors.New("unknown command")

// userIDMetadata carries the command's user on the message so Kafka can partition by it.
const userIDMetadata = "user_id"

// commandMarshaler keys every command by its user, keeping one user's commands on one
// partition and therefore in publish order.
var commandMarshaler = kafka.NewWithPartitioningMarshaler(CommandPartitionKey)

// CommandType names an inbound request to the assessment engine.
type CommandType string

const (
	CommandStart    CommandType = "start"
	CommandSubmit   CommandType = "submit"
	CommandComplete CommandType = "complete"
)

// Command is a start/submit/complete request arriving over the message bus.
type Command struct {
	Type         CommandType     `json:"type"`
	UserID       string          `json:"user_id"`
	AssessmentID string          `json:"assessment_id,omitempty"`
	SessionID    string          `json:"session_id,omitempty"`
	QuestionID   string          `json:"question_id,omitempty"`
	Answer       json.RawMessage `json:"answer,omitempty"`

	// Start overrides
	RandomizeQuestions *bool  `json:"randomize_questions,omitempty"`
	RandomizeOptions   *bool  `json:"randomize_options,omitempty"`
	ScoringMethod      string `json:"scoring_method,omitempty"`
}

// Validate checks that the command carries the fields its type needs.
func (c *Command) Validate() error {
	if c.UserID == "" {
		return fmt.Errorf("%s command without user_id", c.Type)
	}
	switch c.Type {
	case CommandStart:
		if c.AssessmentID == "" {
			return errors.New("start command without assessment_id")
		}
	case CommandSubmit:
		if c.SessionID == "" || c.QuestionID == "" {
			return errors.New("submit command needs session_id and question_id")
		}
	case CommandComplete:
		if c.SessionID == "" {
			return errors.New("complete command without session_id")
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, c.Type)
	}
	return nil
}

// NewCommandMessage encodes cmd as a bus message tagged with its user.
func NewCommandMessage(cmd *Command) (*message.Message, error) {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal command: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(userIDMetadata, cmd.UserID)
	msg.Metadata.Set("command", string(cmd.Type))
	return msg, nil
}

// CommandPartitionKey returns the user id a command message belongs to.
func CommandPartitionKey(_ string, msg *message.Message) (string, error) {
	userID := msg.Metadata.Get(userIDMetadata)
	if userID == "" {
		return "", fmt.Errorf("command message %s has no %s metadata", msg.UUID, userIDMetadata)
	}
	return userID, nil
}

// NewInProcessPubSub returns a gochannel pub/sub whose Publish waits for the subscriber to
// ack, so commands published from one goroutine are handled one at a time in order.
func NewInProcessPubSub(logger *slog.Logger) *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{BlockPublishUntilSubscriberAck: true}, watermill.NewSlogLogger(logger))
}

// NewKafkaCommandPublisher publishes commands partitioned by user id.
func NewKafkaCommandPublisher(brokers []string, logger *slog.Logger) (message.Publisher, error) {
	publisher, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   brokers,
		Marshaler: commandMarshaler,
	}, watermill.NewSlogLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka command publisher: %w", err)
	}
	return publisher, nil
}

// CommandHandler executes decoded commands.
type CommandHandler interface {
	HandleCommand(ctx context.Context, cmd *Command) error
}

// CommandRouter consumes commands from a topic and dispatches them to a CommandHandler.
// Malformed or rejected commands are logged and acknowledged so they are not redelivered.
type CommandRouter struct {
	router     *message.Router
	subscriber message.Subscriber
	logger     *slog.Logger
}

type CommandRouterConfig struct {
	Subscriber message.Subscriber
	Topic      string
	Handler    CommandHandler
	Logger     *slog.Logger
}

func NewCommandRouter(cfg CommandRouterConfig) (*CommandRouter, error) {
	router, err := message.NewRouter(message.RouterConfig{}, watermill.NewSlogLogger(cfg.Logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create command router: %w", err)
	}

	cr := &CommandRouter{
		router:     router,
		subscriber: cfg.Subscriber,
		logger:     cfg.Logger,
	}
	router.AddNoPublisherHandler("assessment_commands", cfg.Topic, cfg.Subscriber, cr.handle(cfg.Handler))
	return cr, nil
}

// NewKafkaCommandSubscriber subscribes to commands as part of a consumer group.
func NewKafkaCommandSubscriber(brokers []string, consumerGroup string, logger *slog.Logger) (message.Subscriber, error) {
	subscriber, err := kafka.NewSubscriber(kafka.SubscriberConfig{
		Brokers:               brokers,
		Unmarshaler:           commandMarshaler,
		OverwriteSaramaConfig: kafka.DefaultSaramaSubscriberConfig(),
		ConsumerGroup:         consumerGroup,
	}, watermill.NewSlogLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka subscriber: %w", err)
	}
	return subscriber, nil
}

func (cr *CommandRouter) handle(handler CommandHandler) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		var cmd Command
		if err := json.Unmarshal(msg.Payload, &cmd); err != nil {
			cr.logger.Warn("Dropping malformed command", "message_uuid", msg.UUID, "error", err)
			return nil
		}
		if err := cmd.Validate(); err != nil {
			cr.logger.Warn("Dropping invalid command", "message_uuid", msg.UUID, "error", err)
			return nil
		}

		if err := handler.HandleCommand(msg.Context(), &cmd); err != nil {
			cr.logger.Warn("Command rejected",
				"message_uuid", msg.UUID,
				"command", cmd.Type,
				"user_id", cmd.UserID,
				"error", err)
			return nil
		}

		cr.logger.Debug("Command handled", "message_uuid", msg.UUID, "command", cmd.Type, "user_id", cmd.UserID)
		return nil
	}
}

// Run blocks until ctx is cancelled or Close is called.
func (cr *CommandRouter) Run(ctx context.Context) error {
	return cr.router.Run(ctx)
}

// Running is closed once the router has started its handlers.
func (cr *CommandRouter) Running() chan struct{} {
	return cr.router.Running()
}

func (cr *CommandRouter) Close() error {
	return errors.Join(cr.router.Close(), cr.subscriber.Close())
}

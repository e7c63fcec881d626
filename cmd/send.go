package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/SAP-F-2025/ec0249-assessment/internal/config"
	"github.com/SAP-F-2025/ec0249-assessment/internal/events"
	"github.com/SAP-F-2025/ec0249-assessment/internal/utils"
	"github.com/spf13/cobra"
)

var sendCmd = &cobra.Command{
	Use:   "send <command.json|->",
	Short: "Publish a start, submit or complete command to the Kafka command topic",
	Long: `Publishes one command, e.g. {"type":"start","user_id":"ana","assessment_id":"module1_assessment"}.
Commands are keyed by user_id so a user's commands stay in order. Requires EVENTS_PUBLISHER=kafka.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			data []byte
			err  error
		)
		if args[0] == "-" {
			data, err = io.ReadAll(cmd.InOrStdin())
		} else {
			data, err = os.ReadFile(args[0])
		}
		if err != nil {
			return err
		}

		var command events.Command
		if err := json.Unmarshal(data, &command); err != nil {
			return fmt.Errorf("command file: %w", err)
		}
		if err := command.Validate(); err != nil {
			return err
		}

		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		if !cfg.Events.Enabled || cfg.Events.Publisher != config.PublisherKafka {
			return fmt.Errorf("sending commands needs EVENTS_ENABLED=true and EVENTS_PUBLISHER=%s", config.PublisherKafka)
		}

		logger := utils.NewLogger(cmd.ErrOrStderr(), cfg.IsProduction()).Slog()
		publisher, err := events.NewKafkaCommandPublisher(cfg.Events.GetKafkaBrokers(), logger)
		if err != nil {
			return err
		}
		defer publisher.Close()

		msg, err := events.NewCommandMessage(&command)
		if err != nil {
			return err
		}
		if err := publisher.Publish(cfg.Events.CommandTopic, msg); err != nil {
			return fmt.Errorf("failed to publish command: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "sent %s for %s (%s)\n", command.Type, command.UserID, msg.UUID)
		return nil
	},
}

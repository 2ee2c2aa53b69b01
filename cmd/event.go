package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/frahmantamala/backoffice-access/internal/core/events"
	"github.com/spf13/cobra"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event management commands",
	Long:  `Publish access events by hand, for example to drop a user's cached grants after editing roles directly in the database`,
}

var publishEventCmd = &cobra.Command{
	Use:   "publish [event-type]",
	Short: "Publish an event",
	Long:  `Publish an event to a bus wired with the grant cache invalidation handler`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		publishEvent(args[0])
	},
}

var (
	eventUserID int64
	eventData   string
)

func publishEvent(eventType string) {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	defer deps.Close()

	logger := deps.Logger

	var event events.Event
	switch eventType {
	case events.EventTypeOverrideChanged:
		if eventUserID <= 0 {
			fmt.Fprintln(os.Stderr, "--user-id is required for override.changed")
			os.Exit(1)
		}
		event = events.NewOverrideChangedEvent(eventUserID, 0, eventData)
	default:
		deps.Bus.Subscribe(eventType, func(ctx context.Context, event events.Event) error {
			logger.Info("handler received event",
				"event_id", event.EventID(),
				"event_type", event.EventType(),
				"payload", event.Payload())
			return nil
		})
		event = events.BaseEvent{
			ID:        fmt.Sprintf("cli-%d", time.Now().Unix()),
			Type:      eventType,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"message": eventData,
				"source":  "cli-command",
			},
		}
	}

	logger.Info("publishing event", "event_type", eventType, "event_id", event.EventID())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := deps.Bus.PublishSync(ctx, event); err != nil {
		logger.Error("failed to publish event", "error", err)
		os.Exit(1)
	}

	logger.Info("event published successfully")
}

func init() {
	publishEventCmd.Flags().Int64Var(&eventUserID, "user-id", 0, "Affected user for override.changed")
	publishEventCmd.Flags().StringVar(&eventData, "data", "manual", "Event data message")

	eventCmd.AddCommand(publishEventCmd)

	rootCmd.AddCommand(eventCmd)
}

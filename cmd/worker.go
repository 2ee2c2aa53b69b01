package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/backoffice-access/internal/override"
	overridePostgres "github.com/frahmantamala/backoffice-access/internal/override/postgres"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start background workers that maintain access data outside the HTTP server.`,
}

var sweepWorkerCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Retire expired permission overrides",
	Long:  `Retire expired permission overrides on the configured schedule and invalidate the affected users' cached grants`,
	Run: func(cmd *cobra.Command, args []string) {
		startSweepWorker()
	},
}

var (
	sweepOnce     bool
	sweepSchedule string
)

func startSweepWorker() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	defer deps.Close()

	logger := deps.Logger
	service := override.NewService(
		overridePostgres.NewOverrideRepository(deps.Gorm),
		deps.Bus,
		logger,
		override.WithSweepRecorder(deps.Metrics),
	)

	schedule := getStringFlag(sweepSchedule, deps.Config.Access.SweepSchedule)
	sweeper, err := override.NewSweeper(service, schedule, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create sweeper: %v\n", err)
		os.Exit(1)
	}

	if sweepOnce {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		n, err := sweeper.RunOnce(ctx)
		if err != nil {
			logger.Error("override sweep failed", "error", err)
			os.Exit(1)
		}
		logger.Info("override sweep complete", "retired", n)
		return
	}

	logger.Info("starting override sweep worker", "schedule", schedule)
	sweeper.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("sweep worker is running. Press Ctrl+C to stop.")

	sig := <-sigChan
	logger.Info("received signal, shutting down sweep worker", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sweeper.Stop(ctx)
}

func getStringFlag(flagValue, configValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return configValue
}

func init() {
	sweepWorkerCmd.Flags().BoolVar(&sweepOnce, "once", false, "Run a single sweep and exit")
	sweepWorkerCmd.Flags().StringVar(&sweepSchedule, "schedule", "", "Cron schedule (overrides config)")

	workerCmd.AddCommand(sweepWorkerCmd)

	rootCmd.AddCommand(workerCmd)
}

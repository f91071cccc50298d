package cmd

import (
	"context"
	"log"

	"github.com/frahmantamala/listing-marketplace/pkg/logger"
	"github.com/spf13/cobra"
)

// One-shot maintenance commands for cron hosts that do not run the scheduler.
var (
	sweepCmd = &cobra.Command{
		Use:   "sweep",
		Short: "Expire published listings whose publication window has elapsed",
		Run: func(cmd *cobra.Command, args []string) {
			runMaintenance("sweep", func(ctx context.Context, app *application) (int, error) {
				return app.sweeper.Sweep(ctx)
			})
		},
	}

	repairCmd = &cobra.Command{
		Use:   "repair",
		Short: "Publish drafts whose payment completed but whose publication did not",
		Run: func(cmd *cobra.Command, args []string) {
			runMaintenance("repair", func(ctx context.Context, app *application) (int, error) {
				return app.payments.RepairCompleted(ctx)
			})
		},
	}
)

func runMaintenance(name string, run func(ctx context.Context, app *application) (int, error)) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	lg := logger.LoggerWrapper()

	ctx := context.Background()
	app, err := buildApplication(ctx, cfg, lg)
	if err != nil {
		log.Fatalf("failed to init application: %v", err)
	}
	defer app.close()

	count, err := run(ctx, app)
	if err != nil {
		lg.Error("maintenance run failed", "job", name, "error", err, "count", count)
		app.close()
		log.Fatalf("%s: %v", name, err)
	}
	lg.Info("maintenance run finished", "job", name, "count", count)
}

func init() {
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(repairCmd)
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/listing-marketplace/internal/tasks"
	"github.com/frahmantamala/listing-marketplace/pkg/logger"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start the background workers that keep listings and payments consistent.`,
}

var schedulerWorkerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run the expiry sweep and the payment repair on a schedule",
	Long:  `Enqueue the maintenance tasks on their cron schedules and process them from Redis.`,
	Run: func(cmd *cobra.Command, args []string) {
		startSchedulerWorker()
	},
}

var (
	sweepCron   string
	repairCron  string
	concurrency int
)

func startSchedulerWorker() {
	config, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if config.Database.IsMemory() {
		fmt.Fprintln(os.Stderr, "the scheduler needs a shared database; in-memory records are only visible to the server process")
		os.Exit(1)
	}

	lg := logger.LoggerWrapper()

	schedCfg := config.Scheduler
	schedCfg.SweepCron = getStringFlag(sweepCron, schedCfg.SweepCron)
	schedCfg.RepairCron = getStringFlag(repairCron, schedCfg.RepairCron)
	schedCfg.Concurrency = getIntFlag(concurrency, schedCfg.Concurrency)

	ctx := context.Background()
	rdb, err := tasks.ConnectRedis(ctx, schedCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to reach redis: %v\n", err)
		os.Exit(1)
	}
	_ = rdb.Close()

	app, err := buildApplication(ctx, config, lg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	defer app.close()

	scheduler, err := tasks.NewScheduler(schedCfg, lg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to register schedules: %v\n", err)
		os.Exit(1)
	}
	server := tasks.NewServer(schedCfg, lg)
	processor := tasks.NewProcessor(app.sweeper, app.payments, lg)

	lg.Info("starting scheduler worker",
		"redis_addr", schedCfg.RedisAddr,
		"sweep_cron", schedCfg.SweepCron,
		"repair_cron", schedCfg.RepairCron,
		"concurrency", schedCfg.Concurrency)

	if err := scheduler.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start scheduler: %v\n", err)
		os.Exit(1)
	}
	if err := server.Start(processor.Mux()); err != nil {
		scheduler.Shutdown()
		fmt.Fprintf(os.Stderr, "Failed to start task server: %v\n", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	lg.Info("scheduler worker is running. Press Ctrl+C to stop.")

	sig := <-sigChan
	lg.Info("received signal, shutting down scheduler worker", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	shutdownDone := make(chan struct{})
	go func() {
		scheduler.Shutdown()
		server.Shutdown()
		close(shutdownDone)
	}()

	select {
	case <-shutdownDone:
		lg.Info("scheduler worker shutdown complete")
	case <-shutdownCtx.Done():
		lg.Warn("shutdown timeout reached, forcing exit")
	}
}

func getStringFlag(flagValue, configValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return configValue
}

func getIntFlag(flagValue, configValue int) int {
	if flagValue > 0 {
		return flagValue
	}
	return configValue
}

func init() {
	schedulerWorkerCmd.Flags().StringVar(&sweepCron, "sweep-cron", "", "Expiry sweep schedule (overrides config)")
	schedulerWorkerCmd.Flags().StringVar(&repairCron, "repair-cron", "", "Payment repair schedule (overrides config)")
	schedulerWorkerCmd.Flags().IntVar(&concurrency, "concurrency", 0, "Task processing concurrency (overrides config)")

	workerCmd.AddCommand(schedulerWorkerCmd)

	rootCmd.AddCommand(workerCmd)
}

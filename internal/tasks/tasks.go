package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/frahmantamala/listing-marketplace/internal"
)

const (
	TypeListingExpire = "listing:expire"
	TypePaymentRepair = "payment:repair"

	QueueMaintenance = "maintenance"
)

type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

type Repairer interface {
	RepairCompleted(ctx context.Context) (int, error)
}

// Processor runs the periodic maintenance jobs. Both jobs are idempotent, so
// overlapping or repeated runs are harmless.
type Processor struct {
	sweeper  Sweeper
	repairer Repairer
	logger   *slog.Logger
}

func NewProcessor(sweeper Sweeper, repairer Repairer, logger *slog.Logger) *Processor {
	return &Processor{
		sweeper:  sweeper,
		repairer: repairer,
		logger:   logger,
	}
}

func (p *Processor) HandleListingExpireTask(ctx context.Context, t *asynq.Task) error {
	expired, err := p.sweeper.Sweep(ctx)
	if err != nil {
		p.logger.Error("expiration sweep task failed", "error", err, "expired", expired)
		return err
	}
	p.logger.Info("expiration sweep task finished", "expired", expired)
	return nil
}

func (p *Processor) HandlePaymentRepairTask(ctx context.Context, t *asynq.Task) error {
	published, err := p.repairer.RepairCompleted(ctx)
	if err != nil {
		p.logger.Error("repair task failed", "error", err, "published", published)
		return err
	}
	p.logger.Info("repair task finished", "published", published)
	return nil
}

func (p *Processor) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeListingExpire, p.HandleListingExpireTask)
	mux.HandleFunc(TypePaymentRepair, p.HandlePaymentRepairTask)
	return mux
}

func RedisOpt(cfg internal.SchedulerConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
}

// ConnectRedis checks the broker is reachable before the worker starts.
func ConnectRedis(ctx context.Context, cfg internal.SchedulerConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rdb, nil
}

func NewServer(cfg internal.SchedulerConfig, logger *slog.Logger) *asynq.Server {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 2
	}
	return asynq.NewServer(RedisOpt(cfg), asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			QueueMaintenance: 1,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logger.Error("task failed", "task_type", task.Type(), "error", err)
		}),
	})
}

// NewScheduler registers the cron entries for both maintenance jobs. Unique
// keeps a slow run from piling up copies of itself in the queue.
func NewScheduler(cfg internal.SchedulerConfig, logger *slog.Logger) (*asynq.Scheduler, error) {
	scheduler := asynq.NewScheduler(RedisOpt(cfg), &asynq.SchedulerOpts{
		Location: time.UTC,
	})

	entries := []struct {
		cron     string
		taskType string
	}{
		{cron: cfg.SweepCron, taskType: TypeListingExpire},
		{cron: cfg.RepairCron, taskType: TypePaymentRepair},
	}

	for _, e := range entries {
		if e.cron == "" {
			logger.Warn("no schedule configured, task disabled", "task_type", e.taskType)
			continue
		}
		id, err := scheduler.Register(e.cron, asynq.NewTask(e.taskType, nil),
			asynq.Queue(QueueMaintenance),
			asynq.Unique(10*time.Minute),
			asynq.MaxRetry(3))
		if err != nil {
			return nil, fmt.Errorf("register %s: %w", e.taskType, err)
		}
		logger.Info("scheduled task registered", "task_type", e.taskType, "cron", e.cron, "entry_id", id)
	}

	return scheduler, nil
}

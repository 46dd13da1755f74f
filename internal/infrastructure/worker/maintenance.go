package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is one scheduled maintenance task
type Job struct {
	Name     string
	Schedule string // cron expression with seconds, e.g. "0 */5 * * * *"
	Run      func(ctx context.Context) error
	Timeout  time.Duration
}

// MaintenanceWorker runs jobs on a cron schedule in UTC. Runs of the same job never overlap.
type MaintenanceWorker struct {
	jobs   []Job
	logger *zap.Logger

	mu   sync.Mutex
	cron *cron.Cron
	ctx  context.Context
}

// NewMaintenanceWorker creates a worker for jobs
func NewMaintenanceWorker(logger *zap.Logger, jobs ...Job) *MaintenanceWorker {
	return &MaintenanceWorker{jobs: jobs, logger: logger}
}

var _ Worker = (*MaintenanceWorker)(nil)

// Name returns the worker name
func (w *MaintenanceWorker) Name() string {
	return "maintenance"
}

// Start registers every job and starts the scheduler
func (w *MaintenanceWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cron != nil {
		return fmt.Errorf("maintenance worker already started")
	}

	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	w.ctx = ctx

	for _, job := range w.jobs {
		job := job
		if _, err := c.AddFunc(job.Schedule, func() { w.RunJob(job) }); err != nil {
			return fmt.Errorf("failed to schedule job %s: %w", job.Name, err)
		}
		w.logger.Info("Maintenance job scheduled",
			zap.String("job", job.Name),
			zap.String("schedule", job.Schedule))
	}

	c.Start()
	w.cron = c
	return nil
}

// Stop halts the scheduler and waits for running jobs
func (w *MaintenanceWorker) Stop() error {
	w.mu.Lock()
	c := w.cron
	w.cron = nil
	w.mu.Unlock()

	if c == nil {
		return nil
	}
	<-c.Stop().Done()
	return nil
}

// RunJob executes one job immediately with its timeout
func (w *MaintenanceWorker) RunJob(job Job) {
	ctx := w.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}

	start := time.Now()
	if err := job.Run(ctx); err != nil {
		w.logger.Error("Maintenance job failed",
			zap.String("job", job.Name),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return
	}
	w.logger.Debug("Maintenance job finished",
		zap.String("job", job.Name),
		zap.Duration("duration", time.Since(start)))
}

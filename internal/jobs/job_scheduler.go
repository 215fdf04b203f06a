package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"consultapp/internal/services"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

const reconcileBatch = 100

// Reconciler is the slice of the tenant service the scheduler drives
type Reconciler interface {
	ReconcileOwners(ctx context.Context, limit int) (*services.ReconcileReport, error)
}

// JobScheduler runs the periodic maintenance jobs
type JobScheduler struct {
	scheduler  gocron.Scheduler
	reconciler Reconciler
	timeout    time.Duration
	logger     *zap.Logger
	jobs       map[string]gocron.Job
	mu         sync.RWMutex
}

type SchedulerConfig struct {
	// ReconcileInterval of zero disables owner reconciliation
	ReconcileInterval time.Duration
	// RunTimeout bounds a single pass; defaults to the interval
	RunTimeout time.Duration
}

// NewJobScheduler creates a new job scheduler
func NewJobScheduler(reconciler Reconciler, cfg SchedulerConfig, logger *zap.Logger) (*JobScheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	js := &JobScheduler{
		scheduler:  scheduler,
		reconciler: reconciler,
		timeout:    cfg.RunTimeout,
		logger:     logger,
		jobs:       make(map[string]gocron.Job),
	}
	if js.timeout <= 0 {
		js.timeout = cfg.ReconcileInterval
	}

	if cfg.ReconcileInterval > 0 {
		if err := js.registerReconcile(cfg.ReconcileInterval); err != nil {
			_ = scheduler.Shutdown()
			return nil, err
		}
	}
	logger.Info("registered background jobs", zap.Int("count", len(js.jobs)))
	return js, nil
}

func (js *JobScheduler) registerReconcile(interval time.Duration) error {
	job, err := js.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(js.reconcileOwners),
		gocron.WithName("owner-reconcile"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("create reconcile job: %w", err)
	}

	js.mu.Lock()
	js.jobs["owner-reconcile"] = job
	js.mu.Unlock()
	return nil
}

// Start starts the job scheduler
func (js *JobScheduler) Start() {
	js.logger.Info("starting background job scheduler")
	js.scheduler.Start()
}

// Stop waits for running jobs and stops the scheduler
func (js *JobScheduler) Stop() error {
	js.logger.Info("stopping background job scheduler")
	return js.scheduler.Shutdown()
}

// Jobs lists the names of the registered jobs
func (js *JobScheduler) Jobs() []string {
	js.mu.RLock()
	defer js.mu.RUnlock()
	names := make([]string, 0, len(js.jobs))
	for name := range js.jobs {
		names = append(names, name)
	}
	return names
}

func (js *JobScheduler) reconcileOwners() {
	ctx, cancel := context.WithTimeout(context.Background(), js.timeout)
	defer cancel()

	started := time.Now()
	report, err := js.reconciler.ReconcileOwners(ctx, reconcileBatch)
	if err != nil {
		js.logger.Error("owner reconciliation failed", zap.Error(err))
		return
	}
	if report.TenantsRemoved > 0 || report.Failures > 0 {
		js.logger.Info("owner reconciliation completed",
			zap.Int("owners", report.OwnersScanned),
			zap.Int("removed", report.TenantsRemoved),
			zap.Int("failures", report.Failures),
			zap.Duration("took", time.Since(started)))
	}
}

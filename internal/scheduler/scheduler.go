package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/erzhanbek/hooksched/internal/domain"
	"github.com/erzhanbek/hooksched/internal/repository"
)

type Options struct {
	MaxConcurrency int           // in-flight execution ceiling
	HTTPTimeout    time.Duration // per-dispatch timeout
	RetryBase      time.Duration // backoff base
	MaxTimerWait   time.Duration // longest single timer wait before chaining
}

const (
	defaultMaxConcurrency = 5
	defaultHTTPTimeout    = 30 * time.Second
	defaultRetryBase      = time.Second
	defaultMaxTimerWait   = 720 * time.Hour
)

// Scheduler composes the registry, the execution queue and the executor,
// and bridges them to the job store. It assumes it is the single active
// scheduler instance for the store.
type Scheduler struct {
	repo     repository.JobRepository
	registry *Registry
	queue    *ExecQueue
	executor *Executor
	logger   *slog.Logger
}

func New(repo repository.JobRepository, logger *slog.Logger, opts Options) *Scheduler {
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = defaultMaxConcurrency
	}
	if opts.HTTPTimeout <= 0 {
		opts.HTTPTimeout = defaultHTTPTimeout
	}
	if opts.RetryBase <= 0 {
		opts.RetryBase = defaultRetryBase
	}
	if opts.MaxTimerWait <= 0 {
		opts.MaxTimerWait = defaultMaxTimerWait
	}

	s := &Scheduler{
		repo:   repo,
		logger: logger.With("component", "scheduler"),
	}
	s.queue = NewExecQueue(opts.MaxConcurrency, logger)
	s.registry = NewRegistry(logger, opts.MaxTimerWait, s.enqueue)
	s.executor = NewExecutor(repo, logger, opts.HTTPTimeout, opts.RetryBase, s.registry.ArmRetry)
	return s
}

// enqueue is the registry's fire callback: a due job enters the bounded
// execution queue.
func (s *Scheduler) enqueue(jobID string) {
	s.queue.Submit(func() {
		s.executor.Execute(context.Background(), jobID)
	})
}

// Start loads every persisted job and arms it. Jobs found in running status
// get no special treatment; they are re-armed exactly as their schedule
// dictates.
func (s *Scheduler) Start(ctx context.Context) error {
	jobs, err := s.repo.FindAll(ctx)
	if err != nil {
		return err
	}
	for _, job := range jobs {
		s.arm(job)
	}
	s.logger.Info("scheduler started", "jobs_armed", len(jobs))
	return nil
}

// JobCreated arms a freshly persisted job. Arming failures are logged
// inside the registry and never propagate; creation already succeeded.
func (s *Scheduler) JobCreated(job *domain.Job) {
	s.arm(job)
}

// JobDeleted cancels every trigger for the id, including a pending retry.
func (s *Scheduler) JobDeleted(id string) {
	s.registry.Disarm(id)
}

// DisarmAll cancels all live triggers; used on bulk delete.
func (s *Scheduler) DisarmAll() {
	s.registry.DisarmAll()
}

// Shutdown cancels all triggers and stops the cron clock. In-flight HTTP
// calls are not interrupted.
func (s *Scheduler) Shutdown() {
	s.registry.DisarmAll()
	s.registry.Stop()
	s.logger.Info("scheduler shut down")
}

// Armed reports whether any trigger is registered for the id.
func (s *Scheduler) Armed(id string) bool {
	return s.registry.Armed(id)
}

func (s *Scheduler) arm(job *domain.Job) {
	switch job.Kind {
	case domain.KindOneOff:
		s.registry.ArmOneOff(job)
	case domain.KindRecurring:
		s.registry.ArmRecurring(job)
	default:
		s.logger.Error("unknown job kind, leaving unarmed", "job_id", job.ID, "kind", job.Kind)
	}
}

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/erzhanbek/hooksched/internal/domain"
	"github.com/erzhanbek/hooksched/internal/metrics"
	"github.com/erzhanbek/hooksched/internal/repository"
)

// Executor performs one execution attempt for a job and drives its state
// machine. Nothing it does propagates an error to the caller; every failure
// path ends in a log line and a persisted state update.
type Executor struct {
	repo     repository.JobRepository
	client   *http.Client
	logger   *slog.Logger
	timeout  time.Duration
	baseWait time.Duration

	// armRetry schedules a one-shot re-fire through the registry.
	armRetry func(jobID string, delay time.Duration)
}

func NewExecutor(
	repo repository.JobRepository,
	logger *slog.Logger,
	timeout time.Duration,
	baseWait time.Duration,
	armRetry func(jobID string, delay time.Duration),
) *Executor {
	return &Executor{
		repo:     repo,
		client:   &http.Client{},
		logger:   logger.With("component", "executor"),
		timeout:  timeout,
		baseWait: baseWait,
		armRetry: armRetry,
	}
}

// Execute runs one attempt for the job. A missing job and a job already in
// running status are both no-ops; the latter guards against duplicate
// concurrent triggers for the same id.
func (e *Executor) Execute(ctx context.Context, jobID string) {
	job, err := e.repo.FindByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			e.logger.Debug("job gone before execution", "job_id", jobID)
		} else {
			e.logger.Error("load job", "job_id", jobID, "error", err)
		}
		return
	}
	if job.Status == domain.StatusRunning {
		e.logger.Warn("duplicate trigger ignored, job already running", "job_id", jobID)
		return
	}

	job.Status = domain.StatusRunning
	job.AttemptCount++
	if _, err := e.repo.Save(ctx, job); err != nil {
		e.logger.Error("persist running status", "job_id", jobID, "error", err)
	}

	e.logger.Info("executing job", "job_id", job.ID, "method", job.Method, "url", job.URL, "attempt", job.AttemptCount)

	start := time.Now()
	statusCode, dispatchErr := e.dispatch(ctx, job)
	duration := time.Since(start)

	// success means a response was received with status in [1, 400)
	if dispatchErr == nil && statusCode < 400 {
		metrics.JobExecutionDuration.WithLabelValues("success").Observe(duration.Seconds())
		e.succeed(ctx, job)
		return
	}

	metrics.JobExecutionDuration.WithLabelValues("failure").Observe(duration.Seconds())
	e.fail(ctx, job, statusCode, dispatchErr)
}

func (e *Executor) succeed(ctx context.Context, job *domain.Job) {
	job.LastError = nil
	job.AttemptCount = 0
	if job.Kind == domain.KindOneOff {
		job.Status = domain.StatusCompleted
	} else {
		// recurring jobs stay armed through their existing cron entry
		job.Status = domain.StatusScheduled
	}
	metrics.JobExecutionsTotal.WithLabelValues("success").Inc()
	e.persistOutcome(ctx, job)
	e.logger.Info("job succeeded", "job_id", job.ID, "status", job.Status)
}

func (e *Executor) fail(ctx context.Context, job *domain.Job, statusCode int, dispatchErr error) {
	var msg string
	if dispatchErr != nil {
		msg = dispatchErr.Error()
	} else {
		msg = fmt.Sprintf("status:%d", statusCode)
	}
	job.LastError = &msg

	// transport errors always qualify; HTTP failures only when the status
	// is in the job's retryable set
	eligible := job.Retry.Enabled &&
		job.AttemptCount < job.Retry.MaxAttempts &&
		(dispatchErr != nil || job.Retry.Retryable(statusCode))

	if eligible {
		job.Status = domain.StatusScheduled
		e.persistOutcome(ctx, job)

		delay := e.backoff(job.AttemptCount)
		e.armRetry(job.ID, delay)
		metrics.JobExecutionsTotal.WithLabelValues("retry").Inc()
		e.logger.Warn("job failed, retry armed",
			"job_id", job.ID,
			"error", msg,
			"attempt", job.AttemptCount,
			"max_attempts", job.Retry.MaxAttempts,
			"delay", delay,
		)
		return
	}

	job.Status = domain.StatusFailed
	e.persistOutcome(ctx, job)
	metrics.JobExecutionsTotal.WithLabelValues("failed").Inc()
	e.logger.Warn("job permanently failed", "job_id", job.ID, "error", msg)
}

// persistOutcome writes the attempt result back, unless the job was deleted
// while the HTTP call was in flight. Save upserts, so skipping the write is
// what keeps a deleted job from being resurrected.
func (e *Executor) persistOutcome(ctx context.Context, job *domain.Job) {
	if _, err := e.repo.FindByID(ctx, job.ID); err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			e.logger.Info("job deleted mid-flight, dropping result", "job_id", job.ID)
			return
		}
		e.logger.Error("re-check job before save", "job_id", job.ID, "error", err)
	}
	if _, err := e.repo.Save(ctx, job); err != nil {
		e.logger.Error("persist job outcome", "job_id", job.ID, "error", err)
	}
}

// backoff returns 2^attempts * base plus jitter uniform in [0, base).
func (e *Executor) backoff(attempts int) time.Duration {
	delay := time.Duration(math.Pow(2, float64(attempts))) * e.baseWait
	jitter := time.Duration(rand.Int63n(int64(e.baseWait)))
	return delay + jitter
}

// dispatch issues the HTTP call. A non-nil error means the call never
// produced a response; an HTTP-level failure comes back as the status code.
func (e *Executor) dispatch(ctx context.Context, job *domain.Job) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	target, err := url.Parse(job.URL)
	if err != nil {
		return 0, fmt.Errorf("parse url: %w", err)
	}
	if len(job.QueryParams) > 0 {
		q := target.Query()
		for k, v := range job.QueryParams {
			q.Set(k, v)
		}
		target.RawQuery = q.Encode()
	}

	var body io.Reader
	if job.Payload != nil {
		body = strings.NewReader(*job.Payload)
	}

	req, err := http.NewRequestWithContext(ctx, job.Method, target.String(), body)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	for k, v := range job.Headers {
		req.Header.Set(k, v)
	}
	if job.Payload != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body) // drain so the connection can be reused by the pool

	return resp.StatusCode, nil
}

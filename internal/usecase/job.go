package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/erzhanbek/hooksched/internal/domain"
	"github.com/erzhanbek/hooksched/internal/repository"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// Engine is the scheduling side the usecase notifies; satisfied by
// *scheduler.Scheduler.
type Engine interface {
	JobCreated(job *domain.Job)
	JobDeleted(id string)
	DisarmAll()
}

type JobUsecase struct {
	repo   repository.JobRepository
	engine Engine
}

func NewJobUsecase(repo repository.JobRepository, engine Engine) *JobUsecase {
	return &JobUsecase{repo: repo, engine: engine}
}

type CreateJobInput struct {
	Kind        domain.Kind
	URL         string
	Method      string
	Headers     map[string]string
	QueryParams map[string]string
	Payload     *string

	ExecuteAt *time.Time
	CronExpr  string
	StartTime *time.Time
	Timezone  string

	RetryEnabled      bool
	MaxAttempts       int
	RetryableStatuses []int
}

// CreateJob validates the schedule variant, persists the job with status
// scheduled, then arms it. Arming failures are logged by the engine and do
// not fail creation.
func (u *JobUsecase) CreateJob(ctx context.Context, input CreateJobInput) (*domain.Job, error) {
	switch input.Kind {
	case domain.KindOneOff:
		if input.ExecuteAt == nil {
			return nil, domain.ErrInvalidSchedule
		}
	case domain.KindRecurring:
		if input.CronExpr == "" {
			return nil, domain.ErrInvalidSchedule
		}
		if _, err := cron.ParseStandard(input.CronExpr); err != nil {
			return nil, domain.ErrInvalidCronExpr
		}
	default:
		return nil, domain.ErrInvalidSchedule
	}

	if input.Timezone != "" {
		if _, err := time.LoadLocation(input.Timezone); err != nil {
			return nil, domain.ErrInvalidSchedule
		}
	}

	if input.Headers == nil {
		input.Headers = make(map[string]string)
	}
	if input.QueryParams == nil {
		input.QueryParams = make(map[string]string)
	}
	if input.RetryEnabled && input.MaxAttempts == 0 {
		input.MaxAttempts = 3
	}

	job := &domain.Job{
		ID:          uuid.NewString(),
		Kind:        input.Kind,
		URL:         input.URL,
		Method:      input.Method,
		Headers:     input.Headers,
		QueryParams: input.QueryParams,
		Payload:     input.Payload,
		ExecuteAt:   input.ExecuteAt,
		CronExpr:    input.CronExpr,
		StartTime:   input.StartTime,
		Timezone:    input.Timezone,
		Retry: domain.RetryPolicy{
			Enabled:           input.RetryEnabled,
			MaxAttempts:       input.MaxAttempts,
			RetryableStatuses: input.RetryableStatuses,
		},
		Status: domain.StatusScheduled,
	}

	created, err := u.repo.Save(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	u.engine.JobCreated(created)
	return created, nil
}

// ListJobs returns all jobs, newest first.
func (u *JobUsecase) ListJobs(ctx context.Context) ([]*domain.Job, error) {
	jobs, err := u.repo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

func (u *JobUsecase) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	job, err := u.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// RemoveJob disarms the job before deleting it so no trigger can fire for a
// row that is about to vanish.
func (u *JobUsecase) RemoveJob(ctx context.Context, id string) error {
	u.engine.JobDeleted(id)
	if err := u.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	return nil
}

// RemoveAllJobs disarms everything, then clears the store.
func (u *JobUsecase) RemoveAllJobs(ctx context.Context) error {
	u.engine.DisarmAll()
	if err := u.repo.DeleteAll(ctx); err != nil {
		return fmt.Errorf("delete all jobs: %w", err)
	}
	return nil
}

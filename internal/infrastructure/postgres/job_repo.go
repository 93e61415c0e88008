package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/erzhanbek/hooksched/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type JobRepository struct {
	pool *pgxpool.Pool
}

func NewJobRepository(pool *pgxpool.Pool) *JobRepository {
	return &JobRepository{pool: pool}
}

const jobColumns = `id, kind, url, method, headers, query_params, payload,
	       execute_at, cron_expr, start_time, timezone,
	       retry_enabled, max_attempts, retryable_statuses,
	       status, attempt_count, last_error, created_at, updated_at`

func (r *JobRepository) FindAll(ctx context.Context) ([]*domain.Job, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM jobs
		ORDER BY created_at DESC, id DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("find all jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*domain.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (r *JobRepository) FindByID(ctx context.Context, id string) (*domain.Job, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM jobs
		WHERE id = $1`

	row := r.pool.QueryRow(ctx, query, id)
	return scanJob(row)
}

func (r *JobRepository) Save(ctx context.Context, job *domain.Job) (*domain.Job, error) {
	query := `
		INSERT INTO jobs (
			id, kind, url, method, headers, query_params, payload,
			execute_at, cron_expr, start_time, timezone,
			retry_enabled, max_attempts, retryable_statuses,
			status, attempt_count, last_error
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (id) DO UPDATE SET
			status             = EXCLUDED.status,
			attempt_count      = EXCLUDED.attempt_count,
			last_error         = EXCLUDED.last_error,
			execute_at         = EXCLUDED.execute_at,
			updated_at         = NOW()
		RETURNING ` + jobColumns

	row := r.pool.QueryRow(ctx, query,
		job.ID,
		job.Kind,
		job.URL,
		job.Method,
		job.Headers,
		job.QueryParams,
		job.Payload,
		job.ExecuteAt,
		job.CronExpr,
		job.StartTime,
		job.Timezone,
		job.Retry.Enabled,
		job.Retry.MaxAttempts,
		job.Retry.RetryableStatuses,
		job.Status,
		job.AttemptCount,
		job.LastError,
	)

	saved, err := scanJob(row)
	if err != nil {
		return nil, fmt.Errorf("save job: %w", err)
	}
	return saved, nil
}

func (r *JobRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

func (r *JobRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM jobs`); err != nil {
		return fmt.Errorf("delete all jobs: %w", err)
	}
	return nil
}

// pgx.Row and pgx.Rows both implement this.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*domain.Job, error) {
	var j domain.Job
	err := row.Scan(
		&j.ID, &j.Kind, &j.URL, &j.Method, &j.Headers, &j.QueryParams, &j.Payload,
		&j.ExecuteAt, &j.CronExpr, &j.StartTime, &j.Timezone,
		&j.Retry.Enabled, &j.Retry.MaxAttempts, &j.Retry.RetryableStatuses,
		&j.Status, &j.AttemptCount, &j.LastError, &j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("scan job: %w", err)
	}
	return &j, nil
}

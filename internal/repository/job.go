package repository

import (
	"context"

	"github.com/erzhanbek/hooksched/internal/domain"
)

// The engine and usecases depend on this interface, not on the postgres
// implementation, so tests can pass a fake and the store can be swapped.
type JobRepository interface {
	// FindAll returns every job ordered by created_at descending.
	FindAll(ctx context.Context) ([]*domain.Job, error)
	FindByID(ctx context.Context, id string) (*domain.Job, error)
	// Save inserts the job or updates its mutable fields if it already exists.
	Save(ctx context.Context, job *domain.Job) (*domain.Job, error)
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
}

package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erzhanbek/hooksched/internal/domain"
	"github.com/erzhanbek/hooksched/internal/usecase"
)

// ---- fakes ----

type fakeJobRepo struct {
	findAll   func(ctx context.Context) ([]*domain.Job, error)
	findByID  func(ctx context.Context, id string) (*domain.Job, error)
	save      func(ctx context.Context, job *domain.Job) (*domain.Job, error)
	delete    func(ctx context.Context, id string) error
	deleteAll func(ctx context.Context) error
}

func (r *fakeJobRepo) FindAll(ctx context.Context) ([]*domain.Job, error) { return r.findAll(ctx) }
func (r *fakeJobRepo) FindByID(ctx context.Context, id string) (*domain.Job, error) {
	return r.findByID(ctx, id)
}
func (r *fakeJobRepo) Save(ctx context.Context, job *domain.Job) (*domain.Job, error) {
	return r.save(ctx, job)
}
func (r *fakeJobRepo) Delete(ctx context.Context, id string) error { return r.delete(ctx, id) }
func (r *fakeJobRepo) DeleteAll(ctx context.Context) error         { return r.deleteAll(ctx) }

type fakeEngine struct {
	created   []string
	deleted   []string
	disarmAll int
}

func (e *fakeEngine) JobCreated(job *domain.Job) { e.created = append(e.created, job.ID) }
func (e *fakeEngine) JobDeleted(id string)       { e.deleted = append(e.deleted, id) }
func (e *fakeEngine) DisarmAll()                 { e.disarmAll++ }

func passthroughSave(_ context.Context, job *domain.Job) (*domain.Job, error) {
	now := time.Now()
	c := *job
	c.CreatedAt = now
	c.UpdatedAt = now
	return &c, nil
}

// ---- CreateJob ----

func TestCreateJob_OneOffRequiresExecuteAt(t *testing.T) {
	u := usecase.NewJobUsecase(&fakeJobRepo{}, &fakeEngine{})

	_, err := u.CreateJob(context.Background(), usecase.CreateJobInput{
		Kind:   domain.KindOneOff,
		URL:    "https://example.com/hook",
		Method: "POST",
	})
	if !errors.Is(err, domain.ErrInvalidSchedule) {
		t.Fatalf("err = %v, want ErrInvalidSchedule", err)
	}
}

func TestCreateJob_RecurringRequiresValidCron(t *testing.T) {
	u := usecase.NewJobUsecase(&fakeJobRepo{}, &fakeEngine{})

	_, err := u.CreateJob(context.Background(), usecase.CreateJobInput{
		Kind:   domain.KindRecurring,
		URL:    "https://example.com/hook",
		Method: "POST",
	})
	if !errors.Is(err, domain.ErrInvalidSchedule) {
		t.Fatalf("missing expr: err = %v, want ErrInvalidSchedule", err)
	}

	_, err = u.CreateJob(context.Background(), usecase.CreateJobInput{
		Kind:     domain.KindRecurring,
		URL:      "https://example.com/hook",
		Method:   "POST",
		CronExpr: "61 * * * *",
	})
	if !errors.Is(err, domain.ErrInvalidCronExpr) {
		t.Fatalf("bad expr: err = %v, want ErrInvalidCronExpr", err)
	}
}

func TestCreateJob_RejectsUnknownTimezone(t *testing.T) {
	u := usecase.NewJobUsecase(&fakeJobRepo{}, &fakeEngine{})

	at := time.Now().Add(time.Hour)
	_, err := u.CreateJob(context.Background(), usecase.CreateJobInput{
		Kind:      domain.KindOneOff,
		URL:       "https://example.com/hook",
		Method:    "POST",
		ExecuteAt: &at,
		Timezone:  "Mars/Olympus_Mons",
	})
	if !errors.Is(err, domain.ErrInvalidSchedule) {
		t.Fatalf("err = %v, want ErrInvalidSchedule", err)
	}
}

func TestCreateJob_PersistsThenArms(t *testing.T) {
	engine := &fakeEngine{}
	repo := &fakeJobRepo{save: passthroughSave}
	u := usecase.NewJobUsecase(repo, engine)

	at := time.Now().Add(time.Hour)
	job, err := u.CreateJob(context.Background(), usecase.CreateJobInput{
		Kind:         domain.KindOneOff,
		URL:          "https://example.com/hook",
		Method:       "POST",
		ExecuteAt:    &at,
		RetryEnabled: true,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if job.ID == "" {
		t.Error("id not assigned")
	}
	if job.Status != domain.StatusScheduled {
		t.Errorf("status = %s, want scheduled", job.Status)
	}
	if job.Retry.MaxAttempts != 3 {
		t.Errorf("max_attempts = %d, want default 3", job.Retry.MaxAttempts)
	}
	if len(engine.created) != 1 || engine.created[0] != job.ID {
		t.Errorf("engine.JobCreated calls = %v, want [%s]", engine.created, job.ID)
	}
}

func TestCreateJob_SaveErrorDoesNotArm(t *testing.T) {
	engine := &fakeEngine{}
	repo := &fakeJobRepo{
		save: func(_ context.Context, _ *domain.Job) (*domain.Job, error) {
			return nil, errors.New("db down")
		},
	}
	u := usecase.NewJobUsecase(repo, engine)

	at := time.Now().Add(time.Hour)
	_, err := u.CreateJob(context.Background(), usecase.CreateJobInput{
		Kind:      domain.KindOneOff,
		URL:       "https://example.com/hook",
		Method:    "POST",
		ExecuteAt: &at,
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(engine.created) != 0 {
		t.Error("engine armed a job that was never persisted")
	}
}

// ---- RemoveJob / RemoveAllJobs ----

func TestRemoveJob_DisarmsBeforeDelete(t *testing.T) {
	engine := &fakeEngine{}
	var deletedFromStore bool
	repo := &fakeJobRepo{
		delete: func(_ context.Context, id string) error {
			// the trigger must already be gone when the row is removed
			if len(engine.deleted) != 1 {
				t.Error("store delete ran before disarm")
			}
			deletedFromStore = true
			return nil
		},
	}
	u := usecase.NewJobUsecase(repo, engine)

	if err := u.RemoveJob(context.Background(), "j1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if !deletedFromStore {
		t.Error("store delete never ran")
	}
}

func TestRemoveAllJobs_DisarmsAllThenClears(t *testing.T) {
	engine := &fakeEngine{}
	var cleared bool
	repo := &fakeJobRepo{
		deleteAll: func(_ context.Context) error {
			if engine.disarmAll != 1 {
				t.Error("store clear ran before disarm all")
			}
			cleared = true
			return nil
		},
	}
	u := usecase.NewJobUsecase(repo, engine)

	if err := u.RemoveAllJobs(context.Background()); err != nil {
		t.Fatalf("remove all: %v", err)
	}
	if !cleared {
		t.Error("store was never cleared")
	}
}

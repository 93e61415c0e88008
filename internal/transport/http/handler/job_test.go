package handler_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/erzhanbek/hooksched/internal/domain"
	"github.com/erzhanbek/hooksched/internal/transport/http/handler"
	"github.com/erzhanbek/hooksched/internal/usecase"
	"github.com/gin-gonic/gin"
)

// ---- fakes ----

type fakeJobRepo struct {
	findAll  func(ctx context.Context) ([]*domain.Job, error)
	findByID func(ctx context.Context, id string) (*domain.Job, error)
	save     func(ctx context.Context, job *domain.Job) (*domain.Job, error)
	del      func(ctx context.Context, id string) error
	delAll   func(ctx context.Context) error
}

func (r *fakeJobRepo) FindAll(ctx context.Context) ([]*domain.Job, error) { return r.findAll(ctx) }
func (r *fakeJobRepo) FindByID(ctx context.Context, id string) (*domain.Job, error) {
	return r.findByID(ctx, id)
}
func (r *fakeJobRepo) Save(ctx context.Context, job *domain.Job) (*domain.Job, error) {
	return r.save(ctx, job)
}
func (r *fakeJobRepo) Delete(ctx context.Context, id string) error { return r.del(ctx, id) }
func (r *fakeJobRepo) DeleteAll(ctx context.Context) error         { return r.delAll(ctx) }

type noopEngine struct{}

func (noopEngine) JobCreated(*domain.Job) {}
func (noopEngine) JobDeleted(string)      {}
func (noopEngine) DisarmAll()             {}

func newTestRouter(repo *fakeJobRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	u := usecase.NewJobUsecase(repo, noopEngine{})
	h := handler.NewJobHandler(u, slog.Default())

	r := gin.New()
	r.POST("/jobs", h.Create)
	r.GET("/jobs", h.List)
	r.GET("/jobs/:id", h.GetByID)
	r.DELETE("/jobs/:id", h.Delete)
	r.DELETE("/jobs", h.DeleteAll)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ---- Create ----

func TestCreate_OneOffJob(t *testing.T) {
	repo := &fakeJobRepo{
		save: func(_ context.Context, job *domain.Job) (*domain.Job, error) {
			c := *job
			c.CreatedAt = time.Now()
			c.UpdatedAt = c.CreatedAt
			return &c, nil
		},
	}
	r := newTestRouter(repo)

	at := time.Now().Add(time.Hour).Format(time.RFC3339)
	body := `{
		"kind": "one_off",
		"target": {"url": "https://example.com/hook", "method": "POST"},
		"schedule": {"execute_at": "` + at + `"},
		"retry_policy": {"enabled": true, "max_attempts": 2, "retryable_statuses": [503]}
	}`

	w := doJSON(t, r, http.MethodPost, "/jobs", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("code = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		ID     string        `json:"id"`
		Status domain.Status `json:"status"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ID == "" {
		t.Error("response has no id")
	}
	if resp.Status != domain.StatusScheduled {
		t.Errorf("status = %s, want scheduled", resp.Status)
	}
}

func TestCreate_RejectsBadMethod(t *testing.T) {
	r := newTestRouter(&fakeJobRepo{})

	body := `{
		"kind": "one_off",
		"target": {"url": "https://example.com/hook", "method": "BREW"},
		"schedule": {"execute_at": "2031-01-01T00:00:00Z"}
	}`

	if w := doJSON(t, r, http.MethodPost, "/jobs", body); w.Code != http.StatusBadRequest {
		t.Fatalf("code = %d, want 400", w.Code)
	}
}

func TestCreate_RejectsMismatchedSchedule(t *testing.T) {
	r := newTestRouter(&fakeJobRepo{})

	// one_off without execute_at
	body := `{
		"kind": "one_off",
		"target": {"url": "https://example.com/hook", "method": "POST"},
		"schedule": {}
	}`
	if w := doJSON(t, r, http.MethodPost, "/jobs", body); w.Code != http.StatusBadRequest {
		t.Fatalf("code = %d, want 400", w.Code)
	}

	// recurring with a bogus expression
	body = `{
		"kind": "recurring",
		"target": {"url": "https://example.com/hook", "method": "POST"},
		"schedule": {"cron_expression": "every tuesday"}
	}`
	if w := doJSON(t, r, http.MethodPost, "/jobs", body); w.Code != http.StatusBadRequest {
		t.Fatalf("code = %d, want 400", w.Code)
	}
}

// ---- List / Get ----

func TestList_ReturnsJobs(t *testing.T) {
	now := time.Now()
	repo := &fakeJobRepo{
		findAll: func(_ context.Context) ([]*domain.Job, error) {
			return []*domain.Job{
				{ID: "j2", Kind: domain.KindRecurring, URL: "https://example.com/b", Method: "GET", CronExpr: "* * * * *", Status: domain.StatusScheduled, CreatedAt: now},
				{ID: "j1", Kind: domain.KindOneOff, URL: "https://example.com/a", Method: "POST", Status: domain.StatusCompleted, CreatedAt: now.Add(-time.Hour)},
			}, nil
		},
	}
	r := newTestRouter(repo)

	w := doJSON(t, r, http.MethodGet, "/jobs", "")
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d", w.Code)
	}

	var resp struct {
		Jobs []struct {
			ID string `json:"id"`
		} `json:"jobs"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Jobs) != 2 || resp.Jobs[0].ID != "j2" {
		t.Errorf("jobs = %+v, want j2 first", resp.Jobs)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	repo := &fakeJobRepo{
		findByID: func(_ context.Context, _ string) (*domain.Job, error) {
			return nil, domain.ErrJobNotFound
		},
	}
	r := newTestRouter(repo)

	if w := doJSON(t, r, http.MethodGet, "/jobs/missing", ""); w.Code != http.StatusNotFound {
		t.Fatalf("code = %d, want 404", w.Code)
	}
}

// ---- Delete ----

func TestDelete_Job(t *testing.T) {
	var deleted string
	repo := &fakeJobRepo{
		del: func(_ context.Context, id string) error {
			deleted = id
			return nil
		},
	}
	r := newTestRouter(repo)

	w := doJSON(t, r, http.MethodDelete, "/jobs/j1", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("code = %d, want 204", w.Code)
	}
	if deleted != "j1" {
		t.Errorf("deleted = %q, want j1", deleted)
	}
}

func TestDelete_MissingJobIs404(t *testing.T) {
	repo := &fakeJobRepo{
		del: func(_ context.Context, _ string) error { return domain.ErrJobNotFound },
	}
	r := newTestRouter(repo)

	if w := doJSON(t, r, http.MethodDelete, "/jobs/missing", ""); w.Code != http.StatusNotFound {
		t.Fatalf("code = %d, want 404", w.Code)
	}
}

func TestDeleteAll_ClearsStore(t *testing.T) {
	var cleared bool
	repo := &fakeJobRepo{
		delAll: func(_ context.Context) error {
			cleared = true
			return nil
		},
	}
	r := newTestRouter(repo)

	if w := doJSON(t, r, http.MethodDelete, "/jobs", ""); w.Code != http.StatusNoContent {
		t.Fatalf("code = %d, want 204", w.Code)
	}
	if !cleared {
		t.Error("store not cleared")
	}
}

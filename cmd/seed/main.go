// seed inserts a batch of sample webhook jobs into the local dev database.
// Run: go run ./cmd/seed
package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/erzhanbek/hooksched/internal/domain"
	"github.com/erzhanbek/hooksched/internal/infrastructure/postgres"
	"github.com/google/uuid"
)

type jobSpec struct {
	kind   domain.Kind
	url    string
	method string
	in     time.Duration // one_off: fires this far in the future
	cron   string        // recurring only
	retry  domain.RetryPolicy
}

var specs = []jobSpec{
	// Happy path — should complete successfully
	{kind: domain.KindOneOff, url: "https://httpbin.org/post", method: "POST", in: 30 * time.Second},
	{kind: domain.KindOneOff, url: "https://httpbin.org/get", method: "GET", in: time.Minute},
	{kind: domain.KindOneOff, url: "https://httpbin.org/put", method: "PUT", in: 2 * time.Minute},

	// Past due — fires immediately on the next recovery pass
	{kind: domain.KindOneOff, url: "https://httpbin.org/get", method: "GET", in: -time.Minute},

	// Will fail and retry — server returns 503
	{kind: domain.KindOneOff, url: "https://httpbin.org/status/503", method: "POST", in: 30 * time.Second,
		retry: domain.RetryPolicy{Enabled: true, MaxAttempts: 3, RetryableStatuses: []int{503}}},

	// Will fail without retry — 404 is not in the retryable set
	{kind: domain.KindOneOff, url: "https://httpbin.org/status/404", method: "GET", in: 30 * time.Second,
		retry: domain.RetryPolicy{Enabled: true, MaxAttempts: 3, RetryableStatuses: []int{503}}},

	// Will time out — httpbin delays past the 30s dispatch timeout
	{kind: domain.KindOneOff, url: "https://httpbin.org/delay/35", method: "GET", in: time.Minute,
		retry: domain.RetryPolicy{Enabled: true, MaxAttempts: 2, RetryableStatuses: []int{}}},

	// Recurring
	{kind: domain.KindRecurring, url: "https://httpbin.org/post", method: "POST", cron: "* * * * *"},
	{kind: domain.KindRecurring, url: "https://httpbin.org/get", method: "GET", cron: "*/5 * * * *",
		retry: domain.RetryPolicy{Enabled: true, MaxAttempts: 2, RetryableStatuses: []int{500, 503}}},
}

func main() {
	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	pool, err := postgres.NewPool(ctx, dbURL)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	repo := postgres.NewJobRepository(pool)

	for i, s := range specs {
		job := &domain.Job{
			ID:          uuid.NewString(),
			Kind:        s.kind,
			URL:         s.url,
			Method:      s.method,
			Headers:     map[string]string{"X-Seed": "true"},
			QueryParams: map[string]string{},
			CronExpr:    s.cron,
			Retry:       s.retry,
			Status:      domain.StatusScheduled,
		}
		if s.kind == domain.KindOneOff {
			at := time.Now().Add(s.in)
			job.ExecuteAt = &at
		}

		if _, err := repo.Save(ctx, job); err != nil {
			log.Fatalf("seed job %d: %v", i, err)
		}
	}

	log.Printf("seeded %d jobs", len(specs))
}

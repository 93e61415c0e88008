package domain

import (
	"errors"
	"time"
)

var (
	ErrJobNotFound     = errors.New("job not found")
	ErrInvalidCronExpr = errors.New("invalid cron expression")
	ErrInvalidSchedule = errors.New("invalid schedule for job kind")
)

type Kind string

const (
	KindOneOff    Kind = "one_off"
	KindRecurring Kind = "recurring"
)

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	// StatusPaused is reserved; no transition assigns it yet.
	StatusPaused Status = "paused"
)

type RetryPolicy struct {
	Enabled           bool
	MaxAttempts       int
	RetryableStatuses []int
}

// Retryable reports whether an HTTP status qualifies for an automatic retry.
func (p RetryPolicy) Retryable(status int) bool {
	for _, s := range p.RetryableStatuses {
		if s == status {
			return true
		}
	}
	return false
}

type Job struct {
	ID     string
	Kind   Kind
	URL    string
	Method string

	Headers     map[string]string
	QueryParams map[string]string
	Payload     *string // nil means no body

	// one_off schedule
	ExecuteAt *time.Time

	// recurring schedule
	CronExpr  string
	StartTime *time.Time // nil means the cron trigger starts immediately

	Timezone string // IANA name; empty means local time

	Retry RetryPolicy

	Status       Status
	AttemptCount int     // reset to 0 on success, incremented per attempt
	LastError    *string // cleared on success

	CreatedAt time.Time
	UpdatedAt time.Time
}

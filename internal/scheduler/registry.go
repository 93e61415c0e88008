package scheduler

import (
	"log/slog"
	"sync"
	"time"

	"github.com/erzhanbek/hooksched/internal/domain"
	"github.com/erzhanbek/hooksched/internal/metrics"
	"github.com/robfig/cron/v3"
)

// FireFunc is invoked with the job ID whenever a trigger comes due.
type FireFunc func(jobID string)

// Registry translates job schedules into live one-off timers and cron
// entries. All state is owned by the instance; nothing is package-global,
// so tests can run isolated registries side by side.
type Registry struct {
	mu      sync.Mutex
	logger  *slog.Logger
	fire    FireFunc
	maxWait time.Duration

	timers  map[string]*time.Timer // main one-off timers, one per job id
	retries map[string]*time.Timer // pending retry timers, separate identity
	cron    *cron.Cron
	entries map[string]cron.EntryID
}

func NewRegistry(logger *slog.Logger, maxWait time.Duration, fire FireFunc) *Registry {
	c := cron.New()
	c.Start()
	return &Registry{
		logger:  logger.With("component", "registry"),
		fire:    fire,
		maxWait: maxWait,
		timers:  make(map[string]*time.Timer),
		retries: make(map[string]*time.Timer),
		cron:    c,
		entries: make(map[string]cron.EntryID),
	}
}

// ArmOneOff schedules a single fire at the job's execute_at. A past-due
// time fires immediately, but only when the job is still in scheduled
// status, so a stale re-arm cannot double-trigger a running job.
func (r *Registry) ArmOneOff(job *domain.Job) {
	if job.ExecuteAt == nil {
		r.logger.Error("one-off job has no execute_at, leaving unarmed", "job_id", job.ID)
		return
	}
	r.armOneOffAt(job.ID, *job.ExecuteAt, job.Status)
}

func (r *Registry) armOneOffAt(id string, at time.Time, status domain.Status) {
	delay := time.Until(at)
	if delay <= 0 {
		r.clearTimer(id)
		if status == domain.StatusScheduled {
			r.fire(id)
		}
		return
	}

	// A delay beyond maxWait is waited out in slices: the intermediate
	// wake-up only recomputes the remaining delay and re-arms.
	if delay > r.maxWait {
		r.setTimer(id, r.maxWait, func() {
			r.armOneOffAt(id, at, status)
		})
		return
	}

	r.setTimer(id, delay, func() {
		r.clearTimer(id)
		r.fire(id)
	})
}

// ArmRecurring registers a cron entry for the job. The optional timezone is
// honored per entry via the CRON_TZ prefix; a future start_time delays the
// registration itself with a one-off timer.
func (r *Registry) ArmRecurring(job *domain.Job) {
	if job.CronExpr == "" {
		r.logger.Error("recurring job has no cron expression, leaving unarmed", "job_id", job.ID)
		return
	}

	if job.StartTime != nil && job.StartTime.After(time.Now()) {
		id, spec, tz := job.ID, job.CronExpr, job.Timezone
		r.setTimer(id, time.Until(*job.StartTime), func() {
			r.clearTimer(id)
			r.addEntry(id, spec, tz)
		})
		return
	}

	r.addEntry(job.ID, job.CronExpr, job.Timezone)
}

func (r *Registry) addEntry(id, spec, tz string) {
	if tz != "" {
		spec = "CRON_TZ=" + tz + " " + spec
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.entries[id]; ok {
		r.cron.Remove(old)
	}
	entryID, err := r.cron.AddFunc(spec, func() {
		r.fire(id)
	})
	if err != nil {
		delete(r.entries, id)
		r.logger.Error("register cron entry", "job_id", id, "spec", spec, "error", err)
		r.observeLocked()
		return
	}
	r.entries[id] = entryID
	r.observeLocked()
}

// ArmRetry schedules a one-shot retry fire. Retry timers live under their
// own key so a pending retry and a re-armed main schedule cannot clobber
// each other.
func (r *Registry) ArmRetry(jobID string, delay time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.retries[jobID]; ok {
		old.Stop()
	}
	r.retries[jobID] = time.AfterFunc(delay, func() {
		r.mu.Lock()
		delete(r.retries, jobID)
		r.observeLocked()
		r.mu.Unlock()
		r.fire(jobID)
	})
	r.observeLocked()
}

// Disarm cancels every registration for the id: main timer, pending retry
// timer, and cron entry. Safe to call when nothing is registered.
func (r *Registry) Disarm(jobID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.timers[jobID]; ok {
		t.Stop()
		delete(r.timers, jobID)
	}
	if t, ok := r.retries[jobID]; ok {
		t.Stop()
		delete(r.retries, jobID)
	}
	if e, ok := r.entries[jobID]; ok {
		r.cron.Remove(e)
		delete(r.entries, jobID)
	}
	r.observeLocked()
}

// DisarmAll cancels every live timer and cron entry. The cron clock keeps
// running so new jobs can still be armed afterwards.
func (r *Registry) DisarmAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, t := range r.timers {
		t.Stop()
		delete(r.timers, id)
	}
	for id, t := range r.retries {
		t.Stop()
		delete(r.retries, id)
	}
	for id, e := range r.entries {
		r.cron.Remove(e)
		delete(r.entries, id)
	}
	r.observeLocked()
}

// Stop halts the cron clock. Used on process shutdown only.
func (r *Registry) Stop() {
	<-r.cron.Stop().Done()
}

// Armed reports whether any timer or cron entry is registered for the id.
func (r *Registry) Armed(jobID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, t := r.timers[jobID]
	_, rt := r.retries[jobID]
	_, e := r.entries[jobID]
	return t || rt || e
}

func (r *Registry) setTimer(id string, delay time.Duration, f func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.timers[id]; ok {
		old.Stop()
	}
	r.timers[id] = time.AfterFunc(delay, f)
	r.observeLocked()
}

func (r *Registry) clearTimer(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.timers[id]; ok {
		t.Stop()
		delete(r.timers, id)
	}
	r.observeLocked()
}

func (r *Registry) observeLocked() {
	metrics.TimersArmed.Set(float64(len(r.timers) + len(r.retries)))
	metrics.CronEntries.Set(float64(len(r.entries)))
}

// Package progress tracks asynchronous pipeline runs for the polling API.
// Records live in memory: a restart loses running jobs, which matches the
// polling contract where an unknown id reads as "gone".
package progress

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Status of a tracked job.
type Status string

const (
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// DefaultTTL keeps finished jobs visible long enough for a final poll.
const DefaultTTL = 10 * time.Minute

// Record is the poll response body for one job.
type Record struct {
	Step     string `json:"step"`
	Progress int    `json:"progress"`
	Message  string `json:"message"`
	Status   Status `json:"status"`
	Result   any    `json:"result,omitempty"`
	Error    string `json:"error,omitempty"`
}

type entry struct {
	rec        Record
	finishedAt time.Time
}

// Registry is a concurrent in-memory job table with TTL cleanup of
// finished jobs.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*entry
	ttl  time.Duration
	log  *zap.Logger
}

// NewRegistry creates a registry. ttl below or equal to zero falls back to
// DefaultTTL.
func NewRegistry(ttl time.Duration, log *zap.Logger) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Registry{jobs: make(map[string]*entry), ttl: ttl, log: log}
}

// Create registers a new running job and returns its id.
func (r *Registry) Create() string {
	id := uuid.NewString()
	r.mu.Lock()
	r.jobs[id] = &entry{rec: Record{
		Step:    "queued",
		Message: "Запрос поставлен в очередь",
		Status:  StatusRunning,
	}}
	r.mu.Unlock()
	return id
}

// Update moves a running job forward. Finished jobs ignore late updates.
func (r *Registry) Update(id, step string, pct int, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.jobs[id]
	if !ok || e.rec.Status != StatusRunning {
		return
	}
	e.rec.Step = step
	e.rec.Progress = pct
	e.rec.Message = message
}

// Done finishes a job with its result.
func (r *Registry) Done(id string, result any) {
	r.finish(id, func(rec *Record) {
		rec.Status = StatusDone
		rec.Progress = 100
		rec.Result = result
	})
}

// Fail finishes a job with a user-facing error message.
func (r *Registry) Fail(id, message string) {
	r.finish(id, func(rec *Record) {
		rec.Status = StatusError
		rec.Error = message
	})
}

func (r *Registry) finish(id string, apply func(*Record)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.jobs[id]
	if !ok || e.rec.Status != StatusRunning {
		return
	}
	apply(&e.rec)
	e.finishedAt = time.Now()
}

// Get returns a copy of the job record.
func (r *Registry) Get(id string) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.jobs[id]
	if !ok {
		return Record{}, false
	}
	return e.rec, true
}

// Sweep drops finished jobs older than the TTL and returns how many were
// removed. Running jobs are never dropped.
func (r *Registry) Sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, e := range r.jobs {
		if e.rec.Status == StatusRunning {
			continue
		}
		if now.Sub(e.finishedAt) > r.ttl {
			delete(r.jobs, id)
			removed++
		}
	}
	return removed
}

// Run sweeps periodically until the context is cancelled.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(time.Now()); n > 0 {
				r.log.Debug("swept finished jobs", zap.Int("removed", n))
			}
		}
	}
}

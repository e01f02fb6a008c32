package enrich

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Job states.
const (
	JobRunning   = "running"
	JobDone      = "done"
	JobCancelled = "cancelled"
)

// ErrJobRunning is returned by Start while another job is active.
var ErrJobRunning = errors.New("an enrichment job is already running")

// Job is a snapshot of a background enrichment run.
type Job struct {
	ID         string       `json:"id"`
	State      string       `json:"state"`
	Progress   Progress     `json:"progress"`
	Result     *BatchResult `json:"result,omitempty"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt *time.Time   `json:"finished_at,omitempty"`
}

type job struct {
	Job
	cancel context.CancelFunc
	done   chan struct{}
}

// DefaultKeepJobs is how many finished jobs a Runner remembers.
const DefaultKeepJobs = 20

// Runner runs EnrichPending in the background so callers stay responsive.
type Runner struct {
	enricher *Enricher
	parent   context.Context
	keep     int

	mu       sync.Mutex
	jobs     map[string]*job
	finished []string // oldest first
	active   string
}

// NewRunner returns a Runner whose jobs are cancelled when parent is.
func NewRunner(parent context.Context, e *Enricher) *Runner {
	return &Runner{enricher: e, parent: parent, keep: DefaultKeepJobs, jobs: make(map[string]*job)}
}

// Start launches a new job.
func (r *Runner) Start() (Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != "" {
		return Job{}, ErrJobRunning
	}

	ctx, cancel := context.WithCancel(r.parent)
	j := &job{
		Job:    Job{ID: uuid.NewString(), State: JobRunning, StartedAt: time.Now().UTC()},
		cancel: cancel,
		done:   make(chan struct{}),
	}
	r.jobs[j.ID] = j
	r.active = j.ID

	go r.run(ctx, j)
	return j.Job, nil
}

func (r *Runner) run(ctx context.Context, j *job) {
	defer close(j.done)
	defer j.cancel()

	res := r.enricher.EnrichPending(ctx, func(p Progress) {
		r.mu.Lock()
		j.Progress = p
		r.mu.Unlock()
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	j.Result = &res
	j.FinishedAt = &now
	j.State = JobDone
	if res.Cancelled {
		j.State = JobCancelled
	}
	if r.active == j.ID {
		r.active = ""
	}

	r.finished = append(r.finished, j.ID)
	for len(r.finished) > r.keep {
		delete(r.jobs, r.finished[0])
		r.finished = r.finished[1:]
	}
}

// Get returns a snapshot of job id.
func (r *Runner) Get(id string) (Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return Job{}, false
	}
	return j.Job, true
}

// Cancel asks job id to stop after its current identifier. It reports
// whether the job exists.
func (r *Runner) Cancel(id string) bool {
	r.mu.Lock()
	j, ok := r.jobs[id]
	r.mu.Unlock()
	if ok {
		j.cancel()
	}
	return ok
}

// Wait blocks until job id finishes or ctx is done.
func (r *Runner) Wait(ctx context.Context, id string) (Job, error) {
	r.mu.Lock()
	j, ok := r.jobs[id]
	r.mu.Unlock()
	if !ok {
		return Job{}, errors.New("unknown job")
	}
	select {
	case <-j.done:
		r.mu.Lock()
		defer r.mu.Unlock()
		return j.Job, nil
	case <-ctx.Done():
		return Job{}, ctx.Err()
	}
}

// Package jobs tracks asynchronous benchmark runs submitted through the API.
// Each job owns a live metrics collector for progress reporting and, once
// finished, the final report.
package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/llmpulse/llmpulse/internal/metrics"
	"github.com/llmpulse/llmpulse/internal/output"
	"github.com/llmpulse/llmpulse/internal/store"
)

// State is the lifecycle phase of a job.
type State string

const (
	StatePending  State = "pending"
	StateRunning  State = "running"
	StateComplete State = "complete"
	StateFailed   State = "failed"
)

// RunnerFunc performs the benchmark for one job, wiring the provided collector
// as its outcome observer.
type RunnerFunc func(ctx context.Context, collector *metrics.Collector) (output.Report, error)

// Job is one tracked benchmark run.
type Job struct {
	ID        string
	collector *metrics.Collector
	done      chan struct{}
	cancel    context.CancelFunc

	mu         sync.RWMutex
	state      State
	createdAt  time.Time
	finishedAt time.Time
	report     *output.Report
	errMsg     string
}

// Status is the JSON-facing view of a job.
type Status struct {
	ID         string           `json:"id"`
	State      State            `json:"state"`
	CreatedAt  time.Time        `json:"created_at"`
	FinishedAt *time.Time       `json:"finished_at,omitempty"`
	Progress   metrics.Snapshot `json:"progress"`
	Report     *output.Report   `json:"report,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// Done is closed when the job reaches a terminal state.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Status returns a point-in-time view of the job.
func (j *Job) Status() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	st := Status{
		ID:        j.ID,
		State:     j.state,
		CreatedAt: j.createdAt,
		Progress:  j.collector.Snapshot(),
		Report:    j.report,
		Error:     j.errMsg,
	}
	if !j.finishedAt.IsZero() {
		finished := j.finishedAt
		st.FinishedAt = &finished
	}
	return st
}

func (j *Job) setState(state State) {
	j.mu.Lock()
	j.state = state
	j.mu.Unlock()
}

func (j *Job) finish(report *output.Report, err error) {
	j.mu.Lock()
	j.finishedAt = time.Now().UTC()
	if err != nil {
		j.state = StateFailed
		j.errMsg = err.Error()
	} else {
		j.state = StateComplete
		j.report = report
	}
	j.mu.Unlock()
	close(j.done)
}

// Manager owns the job table and executes submitted runs.
type Manager struct {
	mu    sync.RWMutex
	jobs  map[string]*Job
	store *store.Store
	log   zerolog.Logger
}

// NewManager creates a Manager. The store is optional; when present,
// completed reports are persisted under the job id.
func NewManager(st *store.Store, logger zerolog.Logger) *Manager {
	return &Manager{
		jobs:  make(map[string]*Job),
		store: st,
		log:   logger,
	}
}

// Submit registers a job for total logical requests and starts it in the
// background.
func (m *Manager) Submit(ctx context.Context, total int, run RunnerFunc) *Job {
	runCtx, cancel := context.WithCancel(ctx)
	job := &Job{
		ID:        ulid.Make().String(),
		collector: metrics.NewCollector(total),
		done:      make(chan struct{}),
		cancel:    cancel,
		state:     StatePending,
		createdAt: time.Now().UTC(),
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()

	go m.execute(runCtx, job, run)
	return job
}

// Get looks up a job by id.
func (m *Manager) Get(id string) (*Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	return job, ok
}

// IDs returns the ids of all known jobs.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.jobs))
	for id := range m.jobs {
		ids = append(ids, id)
	}
	return ids
}

// Cancel stops a running job. Returns false when the id is unknown.
func (m *Manager) Cancel(id string) bool {
	job, ok := m.Get(id)
	if !ok {
		return false
	}
	job.cancel()
	return true
}

// Shutdown cancels every job and waits for them to finish or the context to
// expire.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.RLock()
	jobs := make([]*Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job)
	}
	m.mu.RUnlock()

	for _, job := range jobs {
		job.cancel()
	}
	for _, job := range jobs {
		select {
		case <-job.Done():
		case <-ctx.Done():
			return
		}
	}
}

func (m *Manager) execute(ctx context.Context, job *Job, run RunnerFunc) {
	defer job.cancel()

	job.setState(StateRunning)
	job.collector.Start()
	m.log.Info().Str("job_id", job.ID).Msg("benchmark job started")

	report, err := run(ctx, job.collector)
	if err != nil {
		m.log.Error().Str("job_id", job.ID).Err(err).Msg("benchmark job failed")
		job.finish(nil, err)
		return
	}

	if m.store != nil {
		if path, serr := m.store.Save(job.ID, report); serr != nil {
			m.log.Warn().Str("job_id", job.ID).Err(serr).Msg("failed to persist report")
		} else {
			m.log.Debug().Str("job_id", job.ID).Str("path", path).Msg("report persisted")
		}
	}

	m.log.Info().
		Str("job_id", job.ID).
		Int("successes", report.Successes).
		Int("failures", report.Failures).
		Msg("benchmark job complete")
	job.finish(&report, nil)
}

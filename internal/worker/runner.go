// Package worker contains the scoring pipeline and the batch machinery around
// it: the Coordinator that runs one batch job sequentially and the Runner that
// executes submitted jobs in the background. It is decoupled from the HTTP
// layer: the api package holds narrow Submitter and Scorer interfaces and never
// imports the concrete Runner or Pipeline types.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nyashahama/priority-risk-engine/internal/db"
	"github.com/nyashahama/priority-risk-engine/internal/metrics"
	"github.com/nyashahama/priority-risk-engine/internal/store"
)

// ─── SUBMITTER INTERFACE ──────────────────────────────────────────────────────

// Submitter is the narrow interface the api package uses to hand off batch
// runs. The concrete implementation is *Runner.
type Submitter interface {
	Submit(ctx context.Context, req Request) (db.BatchJob, error)
}

var (
	// ErrJobActive is returned when a resume targets a job this process is
	// already executing.
	ErrJobActive = errors.New("worker: batch job is already executing")

	// ErrQueueFull is returned when the run queue has no room. The job is
	// marked failed and can be resumed later.
	ErrQueueFull = errors.New("worker: run queue is full")
)

// ─── RUNNER ───────────────────────────────────────────────────────────────────

// RunnerConfig holds tuning parameters for the Runner. All fields have
// sensible defaults if zero-valued; call DefaultRunnerConfig() to get them.
type RunnerConfig struct {
	// Workers is the number of jobs executed concurrently. Default: 2.
	Workers int

	// QueueSize bounds jobs accepted but not yet started. Default: Workers*4.
	QueueSize int

	// ReapInterval is how often the reaper looks for stale running jobs.
	// Default: 5m.
	ReapInterval time.Duration

	// StaleAfter is how long a running job may go without a progress update
	// before the reaper fails it. Keep it well above the time one chunk takes.
	// Default: 1h.
	StaleAfter time.Duration

	// MaxRetries is how many times a job whose execution failed on
	// infrastructure errors is resumed before giving up. Default: 3.
	MaxRetries int

	// RetryBackoff is the base delay before a failed job is resumed. It
	// doubles with every attempt. Default: 1s (2s, 4s, 8s …).
	RetryBackoff time.Duration
}

// DefaultRunnerConfig returns safe production defaults.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		Workers:      2,
		QueueSize:    8,
		ReapInterval: 5 * time.Minute,
		StaleAfter:   time.Hour,
		MaxRetries:   3,
		RetryBackoff: time.Second,
	}
}

// Runner executes batch jobs on a pool of goroutines. Submit creates the job
// row synchronously, so the caller gets its id at once, then queues the run.
// A reaper fails jobs left running by a crashed process so they can be
// resumed.
type Runner struct {
	coord   *Coordinator
	jobs    JobStore
	cfg     RunnerConfig
	metrics *metrics.Manager
	logger  *slog.Logger

	queue chan Batch
	wg    sync.WaitGroup

	mu     sync.Mutex
	active map[uuid.UUID]struct{}
}

// NewRunner constructs a Runner. Call Start() to begin processing.
func NewRunner(coord *Coordinator, jobs JobStore, cfg RunnerConfig, m *metrics.Manager, logger *slog.Logger) *Runner {
	def := DefaultRunnerConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = cfg.Workers * 4
	}
	if cfg.ReapInterval <= 0 {
		cfg.ReapInterval = def.ReapInterval
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = def.StaleAfter
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = def.RetryBackoff
	}

	return &Runner{
		coord:   coord,
		jobs:    jobs,
		cfg:     cfg,
		metrics: m,
		logger:  logger,
		queue:   make(chan Batch, cfg.QueueSize),
		active:  make(map[uuid.UUID]struct{}),
	}
}

// Submit begins the job and queues it for execution. It satisfies the
// Submitter interface. Errors from Begin (missing config, busy scope,
// completed job) are returned with whatever job Begin reported.
func (r *Runner) Submit(ctx context.Context, req Request) (db.BatchJob, error) {
	if req.ResumeJobID.Valid {
		if !r.tryClaim(req.ResumeJobID.UUID) {
			return db.BatchJob{}, fmt.Errorf("worker: resume %s: %w", req.ResumeJobID.UUID, ErrJobActive)
		}
	}

	b, err := r.coord.Begin(ctx, req)
	if err != nil {
		if req.ResumeJobID.Valid {
			r.release(req.ResumeJobID.UUID)
		}
		return b.Job, err
	}
	if !req.ResumeJobID.Valid {
		r.tryClaim(b.Job.ID)
	}

	select {
	case r.queue <- b:
		r.logger.Info("worker: batch queued", "job_id", b.Job.ID, "kind", b.Job.EntityKind)
		return b.Job, nil
	default:
		r.release(b.Job.ID)
		failed, ferr := r.jobs.MarkBatchJobFailed(ctx, b.Job.ID, ErrQueueFull.Error())
		if ferr != nil {
			r.logger.Error("worker: failed to mark unqueued batch as failed", "job_id", b.Job.ID, "error", ferr)
			return b.Job, ErrQueueFull
		}
		return failed, ErrQueueFull
	}
}

// Start launches the worker pool and the reaper. It blocks until ctx is
// cancelled and every in-flight job has stopped. Call it in a goroutine from
// main:
//
//	go runner.Start(ctx)
func (r *Runner) Start(ctx context.Context) {
	r.logger.Info("worker: starting", "workers", r.cfg.Workers, "reap_interval", r.cfg.ReapInterval)

	for i := range r.cfg.Workers {
		r.wg.Add(1)
		go r.work(ctx, i)
	}

	r.wg.Add(1)
	go r.reap(ctx)

	r.wg.Wait()
	r.drain()
	r.logger.Info("worker: stopped")
}

// work is the inner loop for each worker goroutine.
func (r *Runner) work(ctx context.Context, id int) {
	defer r.wg.Done()
	log := r.logger.With("worker_id", id)
	log.Info("worker: goroutine started")

	for {
		select {
		case <-ctx.Done():
			log.Info("worker: goroutine stopping")
			return
		case b := <-r.queue:
			r.runWithRetry(ctx, b, log)
			r.release(b.Job.ID)
		}
	}
}

// runWithRetry executes the batch and, when execution failed for a reason a
// later attempt might not hit, resumes it from its persisted offset with
// exponential back-off. Scope resolution failures and shutdown are final.
func (r *Runner) runWithRetry(ctx context.Context, b Batch, log *slog.Logger) {
	log = log.With("job_id", b.Job.ID)

	for attempt := 1; ; attempt++ {
		sum, err := r.coord.Execute(ctx, b)
		if err == nil {
			log.Info("worker: batch done", "attempt", attempt, "processed", sum.Processed, "errors", sum.Errors)
			return
		}

		if errors.Is(err, ErrScopeResolution) || ctx.Err() != nil || attempt >= r.cfg.MaxRetries {
			log.Error("worker: batch permanently failed", "attempt", attempt, "error", err)
			return
		}
		log.Warn("worker: batch attempt failed", "attempt", attempt, "max", r.cfg.MaxRetries, "error", err)

		backoff := r.cfg.RetryBackoff << attempt
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}

		// The retry keeps the snapshot the job started with.
		next, err := r.coord.Reopen(ctx, b)
		if err != nil {
			log.Error("worker: could not resume batch", "attempt", attempt, "error", err)
			return
		}
		b = next
	}
}

// reap fails running jobs whose progress has gone stale.
func (r *Runner) reap(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.cfg.ReapInterval)
	defer ticker.Stop()

	// Run once immediately to recover jobs from before a restart.
	r.reapOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.reapOnce(ctx)
		}
	}
}

func (r *Runner) reapOnce(ctx context.Context) {
	ids, err := r.jobs.ReapStaleJobs(ctx, time.Now(), r.cfg.StaleAfter)
	if err != nil {
		r.logger.Error("worker: reap failed", "error", err)
		return
	}
	r.metrics.ObserveReaped(len(ids))
	for _, id := range ids {
		r.logger.Warn("worker: reaped stale batch job", "job_id", id)
	}
}

// drain fails jobs still queued at shutdown so they can be resumed.
func (r *Runner) drain() {
	for {
		select {
		case b := <-r.queue:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if _, err := r.jobs.MarkBatchJobFailed(ctx, b.Job.ID, "shutdown before start"); err != nil {
				r.logger.Error("worker: failed to mark queued batch as failed", "job_id", b.Job.ID, "error", err)
			}
			cancel()
			r.release(b.Job.ID)
		default:
			return
		}
	}
}

// tryClaim marks id as executing in this process; false if it already is.
func (r *Runner) tryClaim(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.active[id]; ok {
		return false
	}
	r.active[id] = struct{}{}
	return true
}

func (r *Runner) release(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, id)
}

var _ Submitter = (*Runner)(nil)

// compile-time checks that the concrete stores satisfy the narrow interfaces.
var (
	_ JobStore      = (*store.Store)(nil)
	_ ScoreStore    = (*store.Store)(nil)
	_ BatchScores   = (*store.Store)(nil)
	_ Source        = (*db.Queries)(nil)
	_ ScopeResolver = (*db.Queries)(nil)
)

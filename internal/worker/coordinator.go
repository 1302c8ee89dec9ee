package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nyashahama/priority-risk-engine/internal/db"
	"github.com/nyashahama/priority-risk-engine/internal/metrics"
	"github.com/nyashahama/priority-risk-engine/internal/scoring"
	"github.com/nyashahama/priority-risk-engine/internal/store"
)

const (
	DefaultChunkSize     = 50
	DefaultErrorLogLimit = 50

	// maxErrorMessageLen caps one error_log message.
	maxErrorMessageLen = 500
)

var (
	// ErrScopeResolution means the run's scope could not be turned into an
	// entity list. The job is marked failed.
	ErrScopeResolution = errors.New("worker: resolve scope")

	// ErrInvalidRequest rejects a batch request before anything is written.
	ErrInvalidRequest = errors.New("worker: invalid batch request")
)

// ─── DEPENDENCIES ─────────────────────────────────────────────────────────────

// JobStore persists batch job state. *store.Store satisfies it.
type JobStore interface {
	GetBatchJob(ctx context.Context, jobID uuid.UUID) (db.BatchJob, error)
	StartBatchJob(ctx context.Context, p store.StartBatchJobParams) (db.BatchJob, error)
	ResumeBatchJob(ctx context.Context, jobID uuid.UUID) (db.BatchJob, error)
	SetBatchJobItems(ctx context.Context, jobID uuid.UUID, ids []uuid.UUID) (db.BatchJob, error)
	RecordBatchProgress(ctx context.Context, p store.BatchProgress) (db.BatchJob, error)
	CompleteBatchJob(ctx context.Context, jobID uuid.UUID) (db.BatchJob, error)
	MarkBatchJobFailed(ctx context.Context, jobID uuid.UUID, reason string) (db.BatchJob, error)
	ReapStaleJobs(ctx context.Context, now time.Time, staleAfter time.Duration) ([]uuid.UUID, error)
}

// ScopeResolver lists the entity ids a scope covers. *db.Queries satisfies it.
type ScopeResolver interface {
	ListTrainingNeedIDsByPeriod(ctx context.Context, periodID uuid.UUID) ([]uuid.UUID, error)
	ListTrainingNeedIDsByPlan(ctx context.Context, planID uuid.NullUUID) ([]uuid.UUID, error)
	ListScholarIDsByPlan(ctx context.Context, planID uuid.NullUUID) ([]uuid.UUID, error)
}

// BatchScores is the ScoreStore a batch run needs: it also loads configs by
// version and lists what a job has already recorded. *store.Store satisfies it.
type BatchScores interface {
	ScoreStore
	WeightConfigVersion(ctx context.Context, kind scoring.Kind, version string) (scoring.WeightConfig, error)
	ScoredEntityIDs(ctx context.Context, jobID uuid.UUID) (map[uuid.UUID]struct{}, error)
}

// ─── TYPES ────────────────────────────────────────────────────────────────────

// Request starts a new run over a scope, or resumes ResumeJobID. A resume
// takes kind and scope from the stored job and ignores the other fields.
type Request struct {
	Kind        scoring.Kind
	ScopeType   db.ScopeType
	ScopeID     uuid.UUID
	ResumeJobID uuid.NullUUID
}

func (r Request) validate() error {
	if r.ResumeJobID.Valid {
		return nil
	}
	switch {
	case r.Kind == scoring.KindTrainingNeed && (r.ScopeType == db.ScopeTypePeriod || r.ScopeType == db.ScopeTypePlan):
	case r.Kind == scoring.KindScholar && r.ScopeType == db.ScopeTypePlan:
	default:
		return fmt.Errorf("%w: kind %q cannot be scoped by %q", ErrInvalidRequest, r.Kind, r.ScopeType)
	}
	if r.ScopeID == uuid.Nil {
		return fmt.Errorf("%w: scope id is required", ErrInvalidRequest)
	}
	return nil
}

// Batch is a job that has been created or reopened, together with the config
// snapshot every item in it is scored against.
type Batch struct {
	Job    db.BatchJob
	Config scoring.WeightConfig
}

// Summary reports a run's totals.
type Summary struct {
	JobID     uuid.UUID         `json:"job_id"`
	Status    db.BatchJobStatus `json:"status"`
	Total     int               `json:"total"`
	Processed int               `json:"processed"`
	Success   int               `json:"success"`
	Errors    int               `json:"errors"`
}

func summarize(job db.BatchJob) Summary {
	return Summary{
		JobID:     job.ID,
		Status:    job.Status,
		Total:     int(job.TotalItems),
		Processed: int(job.ProcessedItems),
		Success:   int(job.SuccessCount),
		Errors:    int(job.ErrorCount),
	}
}

// CoordinatorConfig tunes chunking and the error log.
type CoordinatorConfig struct {
	ChunkSize     int
	ErrorLogLimit int
}

// ─── COORDINATOR ──────────────────────────────────────────────────────────────

// Coordinator runs batch scoring jobs. Each run is sequential: items are
// processed in fixed-size chunks and counters are persisted after every
// chunk, so a crashed run can resume from its last persisted offset.
type Coordinator struct {
	pipeline *Pipeline
	jobs     JobStore
	scores   BatchScores
	scopes   ScopeResolver
	cfg      CoordinatorConfig
	metrics  *metrics.Manager
	logger   *slog.Logger
}

// NewCoordinator constructs a Coordinator.
func NewCoordinator(
	pipeline *Pipeline,
	jobs JobStore,
	scores BatchScores,
	scopes ScopeResolver,
	cfg CoordinatorConfig,
	m *metrics.Manager,
	logger *slog.Logger,
) *Coordinator {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.ErrorLogLimit <= 0 {
		cfg.ErrorLogLimit = DefaultErrorLogLimit
	}
	return &Coordinator{
		pipeline: pipeline,
		jobs:     jobs,
		scores:   scores,
		scopes:   scopes,
		cfg:      cfg,
		metrics:  m,
		logger:   logger,
	}
}

// Run begins and executes a job in the caller's goroutine.
func (c *Coordinator) Run(ctx context.Context, req Request) (Summary, error) {
	b, err := c.Begin(ctx, req)
	if err != nil {
		if b.Job.ID != uuid.Nil {
			return summarize(b.Job), err
		}
		return Summary{}, err
	}
	return c.Execute(ctx, b)
}

// Begin loads the weight config and then creates (or reopens) the job row. A
// new run snapshots the active config; a resumed run reloads the version it
// was started under, so every record of a job carries one config_version. A
// missing or invalid config fails before any job row is written. With
// store.ErrScopeBusy the returned Batch carries the job already running.
func (c *Coordinator) Begin(ctx context.Context, req Request) (Batch, error) {
	if err := req.validate(); err != nil {
		return Batch{}, err
	}

	if req.ResumeJobID.Valid {
		existing, err := c.jobs.GetBatchJob(ctx, req.ResumeJobID.UUID)
		if err != nil {
			return Batch{}, fmt.Errorf("worker: resume: %w", err)
		}
		if existing.Status == db.BatchJobStatusCompleted {
			return Batch{Job: existing}, fmt.Errorf("worker: resume %s: %w", existing.ID, store.ErrJobCompleted)
		}
		cfg, err := c.scores.WeightConfigVersion(ctx, scoring.Kind(existing.EntityKind), existing.ConfigVersion)
		if err != nil {
			return Batch{Job: existing}, fmt.Errorf("worker: resume %s: load weight config: %w", existing.ID, err)
		}
		return c.Reopen(ctx, Batch{Job: existing, Config: cfg})
	}

	cfg, err := c.scores.ActiveWeightConfig(ctx, req.Kind)
	if err != nil {
		return Batch{}, fmt.Errorf("worker: load weight config: %w", err)
	}
	job, err := c.jobs.StartBatchJob(ctx, store.StartBatchJobParams{
		EntityKind:    db.EntityKind(req.Kind),
		ScopeType:     req.ScopeType,
		ScopeID:       req.ScopeID,
		ConfigVersion: cfg.Version,
	})
	if err != nil {
		return Batch{Job: job}, fmt.Errorf("worker: begin batch: %w", err)
	}
	return Batch{Job: job, Config: cfg}, nil
}

// Reopen sets a failed job back to running and keeps b.Config as its
// snapshot.
func (c *Coordinator) Reopen(ctx context.Context, b Batch) (Batch, error) {
	job, err := c.jobs.ResumeBatchJob(ctx, b.Job.ID)
	if err != nil {
		return Batch{Job: job}, fmt.Errorf("worker: begin batch: %w", err)
	}
	return Batch{Job: job, Config: b.Config}, nil
}

// Execute resolves the job's scope if needed and processes the remaining
// items. Item failures are counted and logged, never fatal: the job finishes
// completed regardless. A failed scope resolution, a cancelled context or a
// failure to persist progress marks the job failed.
func (c *Coordinator) Execute(ctx context.Context, b Batch) (Summary, error) {
	job := b.Job
	kind := string(job.EntityKind)
	log := c.logger.With("job_id", job.ID, "kind", kind)

	status := db.BatchJobStatusFailed
	c.metrics.BatchStarted()
	defer func() { c.metrics.BatchFinished(kind, string(status)) }()

	ids := job.EntityIds
	if len(ids) == 0 {
		resolved, err := c.resolve(ctx, job)
		if err != nil {
			err = fmt.Errorf("%w: %s %s: %w", ErrScopeResolution, job.ScopeType, job.ScopeID, err)
			return c.fail(ctx, job, err, log)
		}
		if job, err = c.jobs.SetBatchJobItems(ctx, job.ID, resolved); err != nil {
			return c.fail(ctx, b.Job, fmt.Errorf("worker: store entity list: %w", err), log)
		}
		ids = resolved
	}

	errorLog, err := store.DecodeErrorLog(job)
	if err != nil {
		log.Warn("worker: discarding unreadable error log", "error", err)
		errorLog = nil
	}
	progress := store.BatchProgress{
		JobID:          job.ID,
		ProcessedItems: int(job.ProcessedItems),
		SuccessCount:   int(job.SuccessCount),
		ErrorCount:     int(job.ErrorCount),
		ErrorLog:       errorLog,
	}

	// A chunk whose progress write failed was scored but not counted. Its
	// records are already stamped with this job, so a rerun counts them
	// without scoring again.
	var scored map[uuid.UUID]struct{}
	if len(b.Job.EntityIds) > 0 && progress.ProcessedItems < len(ids) {
		if scored, err = c.scores.ScoredEntityIDs(ctx, job.ID); err != nil {
			return c.fail(ctx, job, fmt.Errorf("worker: load scored items: %w", err), log)
		}
	}

	log.Info("worker: batch started", "total", len(ids), "offset", progress.ProcessedItems)

	jobID := uuid.NullUUID{UUID: job.ID, Valid: true}
	for progress.ProcessedItems < len(ids) {
		end := min(progress.ProcessedItems+c.cfg.ChunkSize, len(ids))
		for _, id := range ids[progress.ProcessedItems:end] {
			if ctx.Err() != nil {
				break
			}
			if _, done := scored[id]; done {
				log.Debug("worker: item already recorded", "entity_id", id)
				progress.SuccessCount++
				progress.ProcessedItems++
				continue
			}
			if err := c.scoreItem(ctx, b.Config, id, jobID); err != nil {
				progress.ErrorCount++
				progress.ErrorLog = c.appendError(progress.ErrorLog, id, err)
				c.metrics.ObserveBatchItem(kind, false)
				log.Warn("worker: item failed", "entity_id", id, "error", err)
			} else {
				progress.SuccessCount++
				c.metrics.ObserveBatchItem(kind, true)
			}
			progress.ProcessedItems++
		}

		// Persist even when cancelled so a resume skips finished items.
		updated, err := c.jobs.RecordBatchProgress(context.WithoutCancel(ctx), progress)
		if err != nil {
			return c.fail(ctx, job, fmt.Errorf("worker: persist progress: %w", err), log)
		}
		job = updated

		if ctx.Err() != nil {
			return c.fail(ctx, job, fmt.Errorf("worker: batch interrupted: %w", ctx.Err()), log)
		}
	}

	job, err = c.jobs.CompleteBatchJob(ctx, job.ID)
	if err != nil {
		return c.fail(ctx, job, fmt.Errorf("worker: complete batch: %w", err), log)
	}
	status = job.Status
	log.Info("worker: batch completed",
		"processed", job.ProcessedItems,
		"success", job.SuccessCount,
		"errors", job.ErrorCount,
	)
	return summarize(job), nil
}

// scoreItem scores one entity, turning a panic into an item error.
func (c *Coordinator) scoreItem(ctx context.Context, cfg scoring.WeightConfig, id uuid.UUID, jobID uuid.NullUUID) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("worker: panic scoring %s: %v", id, r)
		}
	}()
	_, err = c.pipeline.ScoreWith(ctx, cfg, id, jobID)
	return err
}

// appendError adds an entry and keeps only the newest ErrorLogLimit.
func (c *Coordinator) appendError(entries []store.BatchError, id uuid.UUID, err error) []store.BatchError {
	msg := err.Error()
	if len(msg) > maxErrorMessageLen {
		msg = msg[:maxErrorMessageLen]
	}
	entries = append(entries, store.BatchError{EntityID: id, Message: msg, At: time.Now().UTC()})
	if over := len(entries) - c.cfg.ErrorLogLimit; over > 0 {
		entries = append([]store.BatchError(nil), entries[over:]...)
	}
	return entries
}

func (c *Coordinator) resolve(ctx context.Context, job db.BatchJob) ([]uuid.UUID, error) {
	scope := uuid.NullUUID{UUID: job.ScopeID, Valid: true}
	switch {
	case job.EntityKind == db.EntityKindTrainingNeed && job.ScopeType == db.ScopeTypePeriod:
		return c.scopes.ListTrainingNeedIDsByPeriod(ctx, job.ScopeID)
	case job.EntityKind == db.EntityKindTrainingNeed && job.ScopeType == db.ScopeTypePlan:
		return c.scopes.ListTrainingNeedIDsByPlan(ctx, scope)
	case job.EntityKind == db.EntityKindScholar && job.ScopeType == db.ScopeTypePlan:
		return c.scopes.ListScholarIDsByPlan(ctx, scope)
	default:
		return nil, fmt.Errorf("unsupported scope %s for %s", job.ScopeType, job.EntityKind)
	}
}

// fail marks the job failed with cause as the reason and returns cause.
func (c *Coordinator) fail(ctx context.Context, job db.BatchJob, cause error, log *slog.Logger) (Summary, error) {
	log.Error("worker: batch failed", "error", cause)
	failed, err := c.jobs.MarkBatchJobFailed(context.WithoutCancel(ctx), job.ID, cause.Error())
	if err != nil {
		log.Error("worker: failed to mark batch as failed", "error", err)
		return summarize(job), cause
	}
	return summarize(failed), cause
}

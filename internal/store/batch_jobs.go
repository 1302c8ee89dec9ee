package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"

	"github.com/nyashahama/priority-risk-engine/internal/db"
)

// ─── INPUT TYPES ─────────────────────────────────────────────────────────────

// StartBatchJobParams describes the scope a new batch run covers.
type StartBatchJobParams struct {
	EntityKind    db.EntityKind
	ScopeType     db.ScopeType
	ScopeID       uuid.UUID
	ConfigVersion string
}

// BatchError is one entry of a job's trailing error log.
type BatchError struct {
	EntityID uuid.UUID `json:"entity_id"`
	Message  string    `json:"error"`
	At       time.Time `json:"at"`
}

// BatchProgress is the counter snapshot persisted after every chunk.
type BatchProgress struct {
	JobID          uuid.UUID
	ProcessedItems int
	SuccessCount   int
	ErrorCount     int
	ErrorLog       []BatchError
}

// ─── ERRORS ──────────────────────────────────────────────────────────────────

var (
	// ErrScopeBusy is returned by StartBatchJob and ResumeBatchJob when another
	// job is already running over the same scope. The running job is returned
	// alongside it.
	ErrScopeBusy = errors.New("store: a batch job is already running for this scope")

	// ErrJobCompleted is returned by ResumeBatchJob for a job that already
	// finished; completed jobs are immutable.
	ErrJobCompleted = errors.New("store: batch job already completed")

	// ErrJobNotFound is returned when no batch job has the requested id.
	ErrJobNotFound = errors.New("store: batch job not found")
)

// ─── METHODS ─────────────────────────────────────────────────────────────────

// StartBatchJob atomically checks that no job is running for the scope and
// creates a new one in running status.
func (s *Store) StartBatchJob(ctx context.Context, p StartBatchJobParams) (db.BatchJob, error) {
	var job db.BatchJob

	err := s.withTx(ctx, func(ctx context.Context, q db.Querier) error {
		running, err := q.GetRunningBatchJobForScope(ctx, db.GetRunningBatchJobForScopeParams{
			EntityKind: p.EntityKind,
			ScopeType:  p.ScopeType,
			ScopeID:    p.ScopeID,
		})
		if err == nil {
			job = running
			return ErrScopeBusy
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("StartBatchJob: check running: %w", err)
		}

		created, err := q.CreateBatchJob(ctx, db.CreateBatchJobParams{
			EntityKind:    p.EntityKind,
			ScopeType:     p.ScopeType,
			ScopeID:       p.ScopeID,
			ConfigVersion: p.ConfigVersion,
		})
		if err != nil {
			return fmt.Errorf("StartBatchJob: create: %w", err)
		}
		job = created
		return nil
	})

	if errors.Is(err, ErrScopeBusy) {
		return job, ErrScopeBusy
	}
	if err != nil {
		return db.BatchJob{}, err
	}
	return job, nil
}

// GetBatchJob loads one job by id.
func (s *Store) GetBatchJob(ctx context.Context, jobID uuid.UUID) (db.BatchJob, error) {
	job, err := s.q.GetBatchJob(ctx, jobID)
	if errors.Is(err, sql.ErrNoRows) {
		return db.BatchJob{}, fmt.Errorf("GetBatchJob %s: %w", jobID, ErrJobNotFound)
	}
	if err != nil {
		return db.BatchJob{}, fmt.Errorf("GetBatchJob %s: %w", jobID, err)
	}
	return job, nil
}

// ResumeBatchJob puts an unfinished job back into running status. It refuses
// completed jobs and jobs whose scope is held by a different running job.
func (s *Store) ResumeBatchJob(ctx context.Context, jobID uuid.UUID) (db.BatchJob, error) {
	var job db.BatchJob

	err := s.withTx(ctx, func(ctx context.Context, q db.Querier) error {
		existing, err := q.GetBatchJob(ctx, jobID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrJobNotFound
		}
		if err != nil {
			return fmt.Errorf("ResumeBatchJob: get: %w", err)
		}
		if existing.Status == db.BatchJobStatusCompleted {
			job = existing
			return ErrJobCompleted
		}

		running, err := q.GetRunningBatchJobForScope(ctx, db.GetRunningBatchJobForScopeParams{
			EntityKind: existing.EntityKind,
			ScopeType:  existing.ScopeType,
			ScopeID:    existing.ScopeID,
		})
		if err == nil && running.ID != existing.ID {
			job = running
			return ErrScopeBusy
		}
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("ResumeBatchJob: check running: %w", err)
		}

		reopened, err := q.ReopenBatchJob(ctx, jobID)
		if err != nil {
			return fmt.Errorf("ResumeBatchJob: reopen: %w", err)
		}
		job = reopened
		return nil
	})

	if errors.Is(err, ErrScopeBusy) || errors.Is(err, ErrJobCompleted) {
		return job, err
	}
	if err != nil {
		return db.BatchJob{}, err
	}
	return job, nil
}

// SetBatchJobItems stores the resolved entity-id list and fixes total_items
// to its length. It is called exactly once per job, right after scope
// resolution.
func (s *Store) SetBatchJobItems(ctx context.Context, jobID uuid.UUID, ids []uuid.UUID) (db.BatchJob, error) {
	if ids == nil {
		ids = []uuid.UUID{} // NULL would violate NOT NULL on entity_ids
	}
	job, err := s.q.SetBatchJobItems(ctx, db.SetBatchJobItemsParams{
		ID:        jobID,
		EntityIds: ids,
	})
	if err != nil {
		return db.BatchJob{}, fmt.Errorf("SetBatchJobItems: %w", err)
	}
	return job, nil
}

// RecordBatchProgress persists the counters and trailing error log. It also
// bumps updated_at, which is what the stale-job reaper watches.
func (s *Store) RecordBatchProgress(ctx context.Context, p BatchProgress) (db.BatchJob, error) {
	var errorLog pqtype.NullRawMessage
	if len(p.ErrorLog) > 0 {
		raw, err := json.Marshal(p.ErrorLog)
		if err != nil {
			return db.BatchJob{}, fmt.Errorf("RecordBatchProgress: marshal error log: %w", err)
		}
		errorLog = pqtype.NullRawMessage{RawMessage: raw, Valid: true}
	}

	job, err := s.q.UpdateBatchJobProgress(ctx, db.UpdateBatchJobProgressParams{
		ID:             p.JobID,
		ProcessedItems: int32(p.ProcessedItems),
		SuccessCount:   int32(p.SuccessCount),
		ErrorCount:     int32(p.ErrorCount),
		ErrorLog:       errorLog,
	})
	if err != nil {
		return db.BatchJob{}, fmt.Errorf("RecordBatchProgress: %w", err)
	}
	return job, nil
}

// CompleteBatchJob marks the job completed. Item failures never prevent this.
func (s *Store) CompleteBatchJob(ctx context.Context, jobID uuid.UUID) (db.BatchJob, error) {
	job, err := s.q.CompleteBatchJob(ctx, jobID)
	if err != nil {
		return db.BatchJob{}, fmt.Errorf("CompleteBatchJob: %w", err)
	}
	return job, nil
}

// MarkBatchJobFailed sets the job status to failed with a descriptive reason.
// Called when scope resolution fails or the run is aborted by cancellation.
func (s *Store) MarkBatchJobFailed(ctx context.Context, jobID uuid.UUID, reason string) (db.BatchJob, error) {
	job, err := s.q.FailBatchJob(ctx, db.FailBatchJobParams{
		ID:            jobID,
		FailureReason: sql.NullString{String: reason, Valid: reason != ""},
	})
	if err != nil {
		return db.BatchJob{}, fmt.Errorf("MarkBatchJobFailed: %w", err)
	}
	return job, nil
}

// ReapStaleJobs fails every running job whose last progress update is older
// than staleAfter relative to now, returning the reaped ids.
func (s *Store) ReapStaleJobs(ctx context.Context, now time.Time, staleAfter time.Duration) ([]uuid.UUID, error) {
	ids, err := s.q.ReapStaleBatchJobs(ctx, now.Add(-staleAfter))
	if err != nil {
		return nil, fmt.Errorf("ReapStaleJobs: %w", err)
	}
	return ids, nil
}

// DecodeErrorLog unmarshals a job's error_log column. A NULL column decodes
// to an empty log.
func DecodeErrorLog(job db.BatchJob) ([]BatchError, error) {
	if !job.ErrorLog.Valid || len(job.ErrorLog.RawMessage) == 0 {
		return nil, nil
	}
	var entries []BatchError
	if err := json.Unmarshal(job.ErrorLog.RawMessage, &entries); err != nil {
		return nil, fmt.Errorf("DecodeErrorLog: %w", err)
	}
	return entries, nil
}

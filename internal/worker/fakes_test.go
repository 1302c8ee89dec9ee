package worker_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nyashahama/priority-risk-engine/internal/db"
	"github.com/nyashahama/priority-risk-engine/internal/scoring"
	"github.com/nyashahama/priority-risk-engine/internal/store"
	"github.com/nyashahama/priority-risk-engine/internal/worker"
)

// ─── STUBS ────────────────────────────────────────────────────────────────────

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeSource serves entity rows from maps. A missing id yields sql.ErrNoRows;
// an id in panics makes the lookup panic. A set err fails every training-need
// lookup.
type fakeSource struct {
	worker.Source // embedded to panic on unimplemented methods

	mu       sync.Mutex
	training map[uuid.UUID]db.GetTrainingNeedItemRow
	scholars map[uuid.UUID]db.Scholar
	terms    map[uuid.UUID][]db.ScholarTerm
	modules  map[uuid.UUID][]db.ScholarModule
	events   map[uuid.UUID][]string
	panics   map[uuid.UUID]bool
	err      error
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		training: map[uuid.UUID]db.GetTrainingNeedItemRow{},
		scholars: map[uuid.UUID]db.Scholar{},
		terms:    map[uuid.UUID][]db.ScholarTerm{},
		modules:  map[uuid.UUID][]db.ScholarModule{},
		events:   map[uuid.UUID][]string{},
		panics:   map[uuid.UUID]bool{},
	}
}

func (f *fakeSource) GetTrainingNeedItem(_ context.Context, id uuid.UUID) (db.GetTrainingNeedItemRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panics[id] {
		panic("corrupt row")
	}
	if f.err != nil {
		return db.GetTrainingNeedItemRow{}, f.err
	}
	row, ok := f.training[id]
	if !ok {
		return db.GetTrainingNeedItemRow{}, sql.ErrNoRows
	}
	return row, nil
}

func (f *fakeSource) GetScholar(_ context.Context, id uuid.UUID) (db.Scholar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.scholars[id]
	if !ok {
		return db.Scholar{}, sql.ErrNoRows
	}
	return s, nil
}

func (f *fakeSource) ListScholarTerms(_ context.Context, id uuid.UUID) ([]db.ScholarTerm, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.terms[id], nil
}

func (f *fakeSource) ListScholarModules(_ context.Context, id uuid.UUID) ([]db.ScholarModule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.modules[id], nil
}

func (f *fakeSource) ListScholarEventTypes(_ context.Context, id uuid.UUID) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.events[id], nil
}

// fakeScores holds active configs, every config version it has seen, and
// collects recorded scores.
type fakeScores struct {
	mu        sync.Mutex
	configs   map[scoring.Kind]scoring.WeightConfig
	versions  map[string]scoring.WeightConfig
	recorded  []store.RecordScoreParams
	recordErr error
}

func newFakeScores(cfgs ...scoring.WeightConfig) *fakeScores {
	f := &fakeScores{
		configs:  map[scoring.Kind]scoring.WeightConfig{},
		versions: map[string]scoring.WeightConfig{},
	}
	for _, c := range cfgs {
		f.activate(c)
	}
	return f
}

// activate stores cfg and makes it the active config for its kind.
func (f *fakeScores) activate(cfg scoring.WeightConfig) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.configs[cfg.Kind] = cfg
	f.versions[string(cfg.Kind)+"/"+cfg.Version] = cfg
}

// forget drops a stored version, as if its row had been deleted.
func (f *fakeScores) forget(kind scoring.Kind, version string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.versions, string(kind)+"/"+version)
}

func (f *fakeScores) ActiveWeightConfig(_ context.Context, kind scoring.Kind) (scoring.WeightConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cfg, ok := f.configs[kind]
	if !ok {
		return scoring.WeightConfig{}, fmt.Errorf("ActiveWeightConfig %s: %w", kind, scoring.ErrConfigMissing)
	}
	return cfg, nil
}

func (f *fakeScores) WeightConfigVersion(_ context.Context, kind scoring.Kind, version string) (scoring.WeightConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cfg, ok := f.versions[string(kind)+"/"+version]
	if !ok {
		return scoring.WeightConfig{}, fmt.Errorf("WeightConfigVersion %s %s: %w", kind, version, scoring.ErrConfigMissing)
	}
	return cfg, nil
}

func (f *fakeScores) ScoredEntityIDs(_ context.Context, jobID uuid.UUID) (map[uuid.UUID]struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[uuid.UUID]struct{}{}
	for _, p := range f.recorded {
		if p.BatchJobID.Valid && p.BatchJobID.UUID == jobID {
			out[p.EntityID] = struct{}{}
		}
	}
	return out, nil
}

func (f *fakeScores) RecordScore(_ context.Context, p store.RecordScoreParams) (store.RecordScoreResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recordErr != nil {
		return store.RecordScoreResult{}, f.recordErr
	}
	f.recorded = append(f.recorded, p)
	return store.RecordScoreResult{Record: db.ScoreRecord{
		ID:            uuid.New(),
		EntityKind:    db.EntityKind(p.Assessment.Kind),
		EntityID:      p.EntityID,
		Score:         int16(p.Assessment.Score),
		Band:          p.Assessment.Band,
		ModelVersion:  p.Assessment.ModelVersion,
		ConfigVersion: p.Assessment.ConfigVersion,
		BatchJobID:    p.BatchJobID,
	}}, nil
}

func (f *fakeScores) records() []store.RecordScoreParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]store.RecordScoreParams(nil), f.recorded...)
}

// fakeJobs is an in-memory JobStore mirroring the store's status rules.
// progressErr fails every progress write while set; failProgress fails only
// the next n writes.
type fakeJobs struct {
	mu           sync.Mutex
	jobs         map[uuid.UUID]db.BatchJob
	started      int
	resumed      int
	failed       int
	progressN    int
	progressErr  error
	failProgress int
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{jobs: map[uuid.UUID]db.BatchJob{}}
}

func (f *fakeJobs) put(job db.BatchJob) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[job.ID] = job
}

func (f *fakeJobs) get(id uuid.UUID) db.BatchJob {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.jobs[id]
}

// counts reports how often jobs were reopened and marked failed.
func (f *fakeJobs) counts() (resumed, failed int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resumed, f.failed
}

func (f *fakeJobs) GetBatchJob(_ context.Context, id uuid.UUID) (db.BatchJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return db.BatchJob{}, store.ErrJobNotFound
	}
	return job, nil
}

func (f *fakeJobs) StartBatchJob(_ context.Context, p store.StartBatchJobParams) (db.BatchJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, j := range f.jobs {
		if j.Status == db.BatchJobStatusRunning && j.EntityKind == p.EntityKind &&
			j.ScopeType == p.ScopeType && j.ScopeID == p.ScopeID {
			return j, store.ErrScopeBusy
		}
	}
	f.started++
	now := time.Now()
	job := db.BatchJob{
		ID:            uuid.New(),
		EntityKind:    p.EntityKind,
		ScopeType:     p.ScopeType,
		ScopeID:       p.ScopeID,
		ConfigVersion: p.ConfigVersion,
		Status:        db.BatchJobStatusRunning,
		EntityIds:     []uuid.UUID{},
		StartedAt:     now,
		UpdatedAt:     now,
	}
	f.jobs[job.ID] = job
	return job, nil
}

func (f *fakeJobs) ResumeBatchJob(_ context.Context, id uuid.UUID) (db.BatchJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return db.BatchJob{}, store.ErrJobNotFound
	}
	if job.Status == db.BatchJobStatusCompleted {
		return job, store.ErrJobCompleted
	}
	f.resumed++
	job.Status = db.BatchJobStatusRunning
	job.FailureReason = sql.NullString{}
	f.jobs[id] = job
	return job, nil
}

func (f *fakeJobs) SetBatchJobItems(_ context.Context, id uuid.UUID, ids []uuid.UUID) (db.BatchJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job := f.jobs[id]
	job.EntityIds = append([]uuid.UUID{}, ids...)
	job.TotalItems = int32(len(ids))
	f.jobs[id] = job
	return job, nil
}

func (f *fakeJobs) RecordBatchProgress(_ context.Context, p store.BatchProgress) (db.BatchJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.progressErr != nil {
		return db.BatchJob{}, f.progressErr
	}
	if f.failProgress > 0 {
		f.failProgress--
		return db.BatchJob{}, errors.New("progress write failed")
	}
	f.progressN++
	job := f.jobs[p.JobID]
	job.ProcessedItems = int32(p.ProcessedItems)
	job.SuccessCount = int32(p.SuccessCount)
	job.ErrorCount = int32(p.ErrorCount)
	job.ErrorLog = encodeLog(p.ErrorLog)
	job.UpdatedAt = time.Now()
	f.jobs[p.JobID] = job
	return job, nil
}

func (f *fakeJobs) CompleteBatchJob(_ context.Context, id uuid.UUID) (db.BatchJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job := f.jobs[id]
	job.Status = db.BatchJobStatusCompleted
	job.CompletedAt = sql.NullTime{Time: time.Now(), Valid: true}
	f.jobs[id] = job
	return job, nil
}

func (f *fakeJobs) MarkBatchJobFailed(_ context.Context, id uuid.UUID, reason string) (db.BatchJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return db.BatchJob{}, errors.New("no such job")
	}
	f.failed++
	job.Status = db.BatchJobStatusFailed
	job.FailureReason = sql.NullString{String: reason, Valid: true}
	f.jobs[id] = job
	return job, nil
}

func (f *fakeJobs) ReapStaleJobs(_ context.Context, now time.Time, staleAfter time.Duration) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []uuid.UUID
	for id, job := range f.jobs {
		if job.Status == db.BatchJobStatusRunning && job.UpdatedAt.Before(now.Add(-staleAfter)) {
			job.Status = db.BatchJobStatusFailed
			f.jobs[id] = job
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// fakeScopes returns fixed id lists per scope id and counts lookups.
type fakeScopes struct {
	ids map[uuid.UUID][]uuid.UUID
	err error

	mu    sync.Mutex
	calls int
}

func (f *fakeScopes) lookup(id uuid.UUID) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.ids[id], f.err
}

func (f *fakeScopes) lookups() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeScopes) ListTrainingNeedIDsByPeriod(_ context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	return f.lookup(id)
}

func (f *fakeScopes) ListTrainingNeedIDsByPlan(_ context.Context, id uuid.NullUUID) ([]uuid.UUID, error) {
	return f.lookup(id.UUID)
}

func (f *fakeScopes) ListScholarIDsByPlan(_ context.Context, id uuid.NullUUID) ([]uuid.UUID, error) {
	return f.lookup(id.UUID)
}

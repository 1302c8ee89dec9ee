package store_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/nyashahama/priority-risk-engine/internal/db"
	"github.com/nyashahama/priority-risk-engine/internal/platform"
	"github.com/nyashahama/priority-risk-engine/internal/scoring"
	"github.com/nyashahama/priority-risk-engine/internal/store"
)

// ─── TEST INFRASTRUCTURE ──────────────────────────────────────────────────────

// openTestDB returns a migrated *sql.DB from DATABASE_URL. Skips if the env
// var is not set so the suite still passes in CI without a Postgres instance.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping store integration tests")
	}
	pool, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if err := pool.PingContext(context.Background()); err != nil {
		pool.Close()
		t.Fatalf("ping: %v", err)
	}
	if err := platform.Migrate(pool); err != nil {
		pool.Close()
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { pool.Close() })
	return pool
}

// seedTrainingNeed inserts a bare active training-need item and removes it,
// together with its scores and alerts, when the test ends.
func seedTrainingNeed(t *testing.T, ctx context.Context, pool *sql.DB) uuid.UUID {
	t.Helper()
	var id uuid.UUID
	if err := pool.QueryRowContext(ctx,
		`INSERT INTO training_need_items (status) VALUES ('active') RETURNING id`,
	).Scan(&id); err != nil {
		t.Fatalf("seed training need: %v", err)
	}
	t.Cleanup(func() {
		_, _ = pool.ExecContext(ctx, "DELETE FROM score_alerts WHERE entity_id=$1", id)
		_, _ = pool.ExecContext(ctx, "DELETE FROM score_records WHERE entity_id=$1", id)
		_, _ = pool.ExecContext(ctx, "DELETE FROM training_need_items WHERE id=$1", id)
	})
	return id
}

func assessment(score int, band string) scoring.Assessment {
	return scoring.Assessment{
		Kind:  scoring.KindTrainingNeed,
		Score: score,
		Band:  band,
		Contributions: []scoring.Contribution{
			{Factor: "hse", Description: "HSE-critical training", Impact: scoring.ImpactHigh, Contribution: 30},
		},
		Explanation:   "test",
		ModelVersion:  scoring.RuleModelVersion,
		ConfigVersion: "test-v1",
	}
}

// ─── RecordScore ──────────────────────────────────────────────────────────────

func TestRecordScore_AlertLifecycle(t *testing.T) {
	pool := openTestDB(t)
	ctx := context.Background()
	st := store.New(pool, db.New(pool))
	cfg := scoring.DefaultTrainingNeedConfig()
	id := seedTrainingNeed(t, ctx, pool)

	steps := []struct {
		score     int
		band      string
		wantAlert db.AlertType
	}{
		{65, "high", db.AlertTypeInitialSevere},
		{70, "high", ""},                             // lateral
		{85, "critical", db.AlertTypeBandEscalation}, // escalation
		{20, "low", ""},                              // improving
		{45, "medium", db.AlertTypeBandEscalation},   // escalation below alert_from still counts
	}

	for i, step := range steps {
		res, err := st.RecordScore(ctx, store.RecordScoreParams{
			EntityID:   id,
			Assessment: assessment(step.score, step.band),
			Config:     cfg,
		})
		if err != nil {
			t.Fatalf("step %d: RecordScore: %v", i, err)
		}
		if res.Record.Band != step.band || int(res.Record.Score) != step.score {
			t.Errorf("step %d: record = %d/%s", i, res.Record.Score, res.Record.Band)
		}
		switch {
		case step.wantAlert == "" && res.Alert != nil:
			t.Errorf("step %d: unexpected alert %s", i, res.Alert.AlertType)
		case step.wantAlert != "" && res.Alert == nil:
			t.Errorf("step %d: expected %s alert, got none", i, step.wantAlert)
		case step.wantAlert != "" && res.Alert.AlertType != step.wantAlert:
			t.Errorf("step %d: alert type = %s, want %s", i, res.Alert.AlertType, step.wantAlert)
		}
	}

	var band sql.NullString
	if err := pool.QueryRowContext(ctx,
		"SELECT priority_band FROM training_need_items WHERE id=$1", id,
	).Scan(&band); err != nil {
		t.Fatalf("read band: %v", err)
	}
	if band.String != "medium" {
		t.Errorf("denormalized band = %q, want medium", band.String)
	}
}

func TestRecordScore_UnknownEntityRollsBack(t *testing.T) {
	pool := openTestDB(t)
	ctx := context.Background()
	st := store.New(pool, db.New(pool))

	missing := uuid.New()
	_, err := st.RecordScore(ctx, store.RecordScoreParams{
		EntityID:   missing,
		Assessment: assessment(90, "critical"),
		Config:     scoring.DefaultTrainingNeedConfig(),
	})
	if !errors.Is(err, store.ErrEntityNotFound) {
		t.Fatalf("expected ErrEntityNotFound, got %v", err)
	}

	var n int
	if err := pool.QueryRowContext(ctx,
		"SELECT count(*) FROM score_records WHERE entity_id=$1", missing,
	).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("expected no record after rollback, found %d", n)
	}
}

func TestScoredEntityIDs_OnlyJobRecords(t *testing.T) {
	pool := openTestDB(t)
	ctx := context.Background()
	st := store.New(pool, db.New(pool))
	cfg := scoring.DefaultTrainingNeedConfig()

	inJob := seedTrainingNeed(t, ctx, pool)
	outside := seedTrainingNeed(t, ctx, pool)
	job := startJob(t, ctx, pool, st, uuid.New())

	for _, p := range []store.RecordScoreParams{
		{EntityID: inJob, Assessment: assessment(40, "medium"), Config: cfg, BatchJobID: uuid.NullUUID{UUID: job.ID, Valid: true}},
		{EntityID: inJob, Assessment: assessment(45, "medium"), Config: cfg, BatchJobID: uuid.NullUUID{UUID: job.ID, Valid: true}},
		{EntityID: outside, Assessment: assessment(40, "medium"), Config: cfg},
	} {
		if _, err := st.RecordScore(ctx, p); err != nil {
			t.Fatalf("RecordScore: %v", err)
		}
	}

	got, err := st.ScoredEntityIDs(ctx, job.ID)
	if err != nil {
		t.Fatalf("ScoredEntityIDs: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("scored ids = %v, want only %s", got, inJob)
	}
	if _, ok := got[inJob]; !ok {
		t.Errorf("scored ids missing %s", inJob)
	}
}

// ─── Batch jobs ───────────────────────────────────────────────────────────────

func startJob(t *testing.T, ctx context.Context, pool *sql.DB, st *store.Store, scope uuid.UUID) db.BatchJob {
	t.Helper()
	job, err := st.StartBatchJob(ctx, store.StartBatchJobParams{
		EntityKind:    db.EntityKindScholar,
		ScopeType:     db.ScopeTypePlan,
		ScopeID:       scope,
		ConfigVersion: "test-v1",
	})
	if err != nil {
		t.Fatalf("StartBatchJob: %v", err)
	}
	t.Cleanup(func() { _, _ = pool.ExecContext(ctx, "DELETE FROM batch_jobs WHERE id=$1", job.ID) })
	return job
}

func TestStartBatchJob_ScopeBusy(t *testing.T) {
	pool := openTestDB(t)
	ctx := context.Background()
	st := store.New(pool, db.New(pool))
	scope := uuid.New()

	first := startJob(t, ctx, pool, st, scope)
	if first.Status != db.BatchJobStatusRunning {
		t.Fatalf("status = %s, want running", first.Status)
	}

	busy, err := st.StartBatchJob(ctx, store.StartBatchJobParams{
		EntityKind:    db.EntityKindScholar,
		ScopeType:     db.ScopeTypePlan,
		ScopeID:       scope,
		ConfigVersion: "test-v1",
	})
	if !errors.Is(err, store.ErrScopeBusy) {
		t.Fatalf("expected ErrScopeBusy, got %v", err)
	}
	if busy.ID != first.ID {
		t.Errorf("busy job = %s, want %s", busy.ID, first.ID)
	}
}

func TestBatchJob_ProgressAndCompletion(t *testing.T) {
	pool := openTestDB(t)
	ctx := context.Background()
	st := store.New(pool, db.New(pool))

	job := startJob(t, ctx, pool, st, uuid.New())
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}

	job, err := st.SetBatchJobItems(ctx, job.ID, ids)
	if err != nil {
		t.Fatalf("SetBatchJobItems: %v", err)
	}
	if job.TotalItems != 3 || len(job.EntityIds) != 3 {
		t.Fatalf("total=%d ids=%d, want 3/3", job.TotalItems, len(job.EntityIds))
	}

	job, err = st.RecordBatchProgress(ctx, store.BatchProgress{
		JobID:          job.ID,
		ProcessedItems: 3,
		SuccessCount:   2,
		ErrorCount:     1,
		ErrorLog:       []store.BatchError{{EntityID: ids[1], Message: "boom", At: time.Now().UTC()}},
	})
	if err != nil {
		t.Fatalf("RecordBatchProgress: %v", err)
	}
	entries, err := store.DecodeErrorLog(job)
	if err != nil {
		t.Fatalf("DecodeErrorLog: %v", err)
	}
	if len(entries) != 1 || entries[0].EntityID != ids[1] {
		t.Errorf("error log = %+v", entries)
	}

	job, err = st.CompleteBatchJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("CompleteBatchJob: %v", err)
	}
	if job.Status != db.BatchJobStatusCompleted || !job.CompletedAt.Valid {
		t.Errorf("status=%s completed_at=%v", job.Status, job.CompletedAt)
	}

	if _, err := st.ResumeBatchJob(ctx, job.ID); !errors.Is(err, store.ErrJobCompleted) {
		t.Errorf("resume completed: expected ErrJobCompleted, got %v", err)
	}
}

func TestReapStaleJobs_ThenResume(t *testing.T) {
	pool := openTestDB(t)
	ctx := context.Background()
	st := store.New(pool, db.New(pool))

	job := startJob(t, ctx, pool, st, uuid.New())

	// Nothing is stale relative to the present.
	reaped, err := st.ReapStaleJobs(ctx, time.Now(), time.Hour)
	if err != nil {
		t.Fatalf("ReapStaleJobs: %v", err)
	}
	for _, id := range reaped {
		if id == job.ID {
			t.Fatal("fresh job reaped")
		}
	}

	// Two hours from now, the job has been silent for over an hour.
	reaped, err = st.ReapStaleJobs(ctx, time.Now().Add(2*time.Hour), time.Hour)
	if err != nil {
		t.Fatalf("ReapStaleJobs: %v", err)
	}
	found := false
	for _, id := range reaped {
		found = found || id == job.ID
	}
	if !found {
		t.Fatal("stale job not reaped")
	}

	resumed, err := st.ResumeBatchJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("ResumeBatchJob: %v", err)
	}
	if resumed.Status != db.BatchJobStatusRunning || resumed.FailureReason.Valid {
		t.Errorf("resumed status=%s reason=%v", resumed.Status, resumed.FailureReason)
	}
}

// ─── Weight configs ───────────────────────────────────────────────────────────

func TestSaveWeightConfig_ActivateAndLoad(t *testing.T) {
	pool := openTestDB(t)
	ctx := context.Background()
	st := store.New(pool, db.New(pool))

	cfg := scoring.DefaultScholarConfig()
	cfg.Version = "store-test-" + uuid.NewString()
	t.Cleanup(func() {
		_, _ = pool.ExecContext(ctx, "DELETE FROM weight_configs WHERE version=$1", cfg.Version)
	})

	saved, err := st.SaveWeightConfig(ctx, cfg, true)
	if err != nil {
		t.Fatalf("SaveWeightConfig: %v", err)
	}
	if !saved.IsActive {
		t.Error("expected saved config to be active")
	}

	got, err := st.ActiveWeightConfig(ctx, scoring.KindScholar)
	if err != nil {
		t.Fatalf("ActiveWeightConfig: %v", err)
	}
	if got.Version != cfg.Version {
		t.Errorf("active version = %q, want %q", got.Version, cfg.Version)
	}
}

func TestSaveWeightConfig_RejectsInvalid(t *testing.T) {
	pool := openTestDB(t)
	st := store.New(pool, db.New(pool))

	cfg := scoring.DefaultTrainingNeedConfig()
	cfg.Bands = nil
	if _, err := st.SaveWeightConfig(context.Background(), cfg, false); !errors.Is(err, scoring.ErrConfigInvalid) {
		t.Errorf("expected ErrConfigInvalid, got %v", err)
	}
}

func TestWeightConfigVersion_SurvivesActivationChange(t *testing.T) {
	pool := openTestDB(t)
	ctx := context.Background()
	st := store.New(pool, db.New(pool))

	first := scoring.DefaultScholarConfig()
	first.Version = "store-test-" + uuid.NewString()
	second := scoring.DefaultScholarConfig()
	second.Version = "store-test-" + uuid.NewString()
	second.Risk.LowGPA = 40
	t.Cleanup(func() {
		_, _ = pool.ExecContext(ctx, "DELETE FROM weight_configs WHERE version IN ($1, $2)", first.Version, second.Version)
	})

	if _, err := st.SaveWeightConfig(ctx, first, true); err != nil {
		t.Fatalf("SaveWeightConfig first: %v", err)
	}
	if _, err := st.SaveWeightConfig(ctx, second, true); err != nil {
		t.Fatalf("SaveWeightConfig second: %v", err)
	}

	got, err := st.WeightConfigVersion(ctx, scoring.KindScholar, first.Version)
	if err != nil {
		t.Fatalf("WeightConfigVersion: %v", err)
	}
	if got.Version != first.Version || got.Risk.LowGPA != first.Risk.LowGPA {
		t.Errorf("loaded %q low_gpa=%g, want %q low_gpa=%g", got.Version, got.Risk.LowGPA, first.Version, first.Risk.LowGPA)
	}

	_, err = st.WeightConfigVersion(ctx, scoring.KindScholar, "never-stored-"+uuid.NewString())
	if !errors.Is(err, scoring.ErrConfigMissing) {
		t.Errorf("expected ErrConfigMissing, got %v", err)
	}
}

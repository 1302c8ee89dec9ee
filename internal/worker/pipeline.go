package worker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nyashahama/priority-risk-engine/internal/db"
	"github.com/nyashahama/priority-risk-engine/internal/metrics"
	"github.com/nyashahama/priority-risk-engine/internal/scoring"
	"github.com/nyashahama/priority-risk-engine/internal/store"
)

// ErrItemFetch means an entity's source row does not exist. In a batch it
// fails only that item.
var ErrItemFetch = errors.New("worker: fetch entity")

// ─── DEPENDENCIES ─────────────────────────────────────────────────────────────

// Source reads the rows feature extraction needs. *db.Queries satisfies it.
type Source interface {
	GetTrainingNeedItem(ctx context.Context, id uuid.UUID) (db.GetTrainingNeedItemRow, error)
	GetScholar(ctx context.Context, id uuid.UUID) (db.Scholar, error)
	ListScholarTerms(ctx context.Context, scholarID uuid.UUID) ([]db.ScholarTerm, error)
	ListScholarModules(ctx context.Context, scholarID uuid.UUID) ([]db.ScholarModule, error)
	ListScholarEventTypes(ctx context.Context, scholarID uuid.UUID) ([]string, error)
}

// ScoreStore loads configs and persists scores. *store.Store satisfies it.
type ScoreStore interface {
	ActiveWeightConfig(ctx context.Context, kind scoring.Kind) (scoring.WeightConfig, error)
	RecordScore(ctx context.Context, p store.RecordScoreParams) (store.RecordScoreResult, error)
}

// Enricher improves an assessment; it must return its input on any failure.
// *ai.Enricher satisfies it.
type Enricher interface {
	Enrich(ctx context.Context, fs scoring.FactorSet, a scoring.Assessment, cfg scoring.WeightConfig) scoring.Assessment
}

// ─── PIPELINE ─────────────────────────────────────────────────────────────────

// Pipeline scores one entity end to end. Each step is a separate method so
// Score reads top to bottom:
//
//  1. Load the entity's source rows.
//  2. Extract the factor set, logging every coerced field.
//  3. Run the rule engine and band classifier.
//  4. Enrich with the external model (never fatal).
//  5. Persist the record, alert and current band atomically.
type Pipeline struct {
	src      Source
	scores   ScoreStore
	enricher Enricher
	metrics  *metrics.Manager
	logger   *slog.Logger
	now      func() time.Time
}

// NewPipeline constructs a Pipeline. enricher may be nil.
func NewPipeline(src Source, scores ScoreStore, enricher Enricher, m *metrics.Manager, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		src:      src,
		scores:   scores,
		enricher: enricher,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// Score loads the active config for kind and scores one entity.
func (p *Pipeline) Score(ctx context.Context, kind scoring.Kind, id uuid.UUID) (store.RecordScoreResult, error) {
	cfg, err := p.scores.ActiveWeightConfig(ctx, kind)
	if err != nil {
		return store.RecordScoreResult{}, fmt.Errorf("worker: load weight config: %w", err)
	}
	return p.ScoreWith(ctx, cfg, id, uuid.NullUUID{})
}

// ScoreWith scores one entity against an already loaded config. jobID links
// the record to a batch run when valid.
func (p *Pipeline) ScoreWith(ctx context.Context, cfg scoring.WeightConfig, id uuid.UUID, jobID uuid.NullUUID) (store.RecordScoreResult, error) {
	start := time.Now()
	kind := string(cfg.Kind)
	log := p.logger.With("entity_id", id, "kind", kind)

	fs, err := p.factors(ctx, cfg.Kind, id, log)
	if err != nil {
		return store.RecordScoreResult{}, err
	}

	a, err := scoring.Assess(fs, cfg)
	if err != nil {
		return store.RecordScoreResult{}, fmt.Errorf("worker: assess %s: %w", id, err)
	}

	if p.enricher != nil {
		a = p.enricher.Enrich(ctx, fs, a, cfg)
	}

	res, err := p.scores.RecordScore(ctx, store.RecordScoreParams{
		EntityID:   id,
		Assessment: a,
		Config:     cfg,
		BatchJobID: jobID,
	})
	if err != nil {
		return store.RecordScoreResult{}, fmt.Errorf("worker: record score %s: %w", id, err)
	}

	p.metrics.ObserveScore(kind, a.Band, time.Since(start))
	if res.Alert != nil {
		p.metrics.ObserveAlert(kind, string(res.Alert.AlertType))
		log.Info("worker: band alert",
			"alert_type", res.Alert.AlertType,
			"previous_band", res.Alert.PreviousBand.String,
			"band", res.Alert.NewBand,
		)
	}
	log.Debug("worker: scored", "score", a.Score, "band", a.Band, "model_version", a.ModelVersion)
	return res, nil
}

// factors loads the entity and extracts its factor set.
func (p *Pipeline) factors(ctx context.Context, kind scoring.Kind, id uuid.UUID, log *slog.Logger) (scoring.FactorSet, error) {
	var (
		fs     scoring.FactorSet
		issues []scoring.Issue
	)

	switch kind {
	case scoring.KindTrainingNeed:
		row, err := p.src.GetTrainingNeedItem(ctx, id)
		if err != nil {
			return fs, fetchErr("training need", id, err)
		}
		var f scoring.TrainingNeedFactors
		f, issues = scoring.ExtractTrainingNeed(trainingNeedInput(row), p.now())
		fs = scoring.TrainingNeedSet(f)

	case scoring.KindScholar:
		in, err := p.scholarInput(ctx, id)
		if err != nil {
			return fs, err
		}
		var f scoring.ScholarRiskFactors
		f, issues = scoring.ExtractScholar(in, p.now())
		fs = scoring.ScholarSet(f)

	default:
		return fs, fmt.Errorf("worker: unknown entity kind %q", kind)
	}

	for _, issue := range issues {
		p.metrics.ObserveExtractionIssue(string(kind), issue.Field)
		log.Warn("worker: source field coerced", "field", issue.Field, "reason", issue.Reason)
	}
	return fs, nil
}

// fetchErr marks only a missing row as ErrItemFetch. Any other read failure
// is returned unclassified.
func fetchErr(what string, id uuid.UUID, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s %s: %w", ErrItemFetch, what, id, store.ErrEntityNotFound)
	}
	return fmt.Errorf("worker: load %s %s: %w", what, id, err)
}

// ─── ROW MAPPING ──────────────────────────────────────────────────────────────
// Map db rows → scoring inputs so scoring/ stays free of database types.

func trainingNeedInput(row db.GetTrainingNeedItemRow) scoring.TrainingNeedInput {
	return scoring.TrainingNeedInput{
		CompetencyGapLevel: row.CompetencyGapLevel,
		ManagerPriority:    row.ManagerPriority,
		RoleCriticality:    row.RoleCriticality,
		ComplianceDueDate:  nullTime(row.ComplianceDueDate),
		EstimatedCost:      nullFloat(row.EstimatedCost),
		TrainingType:       row.TrainingType,
		TrainingLocation:   row.TrainingLocation,
		CompetencyName:     row.CompetencyName,
		CompetencyCategory: row.CompetencyCategory,
		CourseName:         row.CourseName,
		CourseCategory:     row.CourseCategory,
		CourseMandatory:    row.CourseMandatory,
	}
}

func (p *Pipeline) scholarInput(ctx context.Context, id uuid.UUID) (scoring.ScholarInput, error) {
	s, err := p.src.GetScholar(ctx, id)
	if err != nil {
		return scoring.ScholarInput{}, fetchErr("scholar", id, err)
	}
	terms, err := p.src.ListScholarTerms(ctx, id)
	if err != nil {
		return scoring.ScholarInput{}, fetchErr("scholar terms", id, err)
	}
	modules, err := p.src.ListScholarModules(ctx, id)
	if err != nil {
		return scoring.ScholarInput{}, fetchErr("scholar modules", id, err)
	}
	events, err := p.src.ListScholarEventTypes(ctx, id)
	if err != nil {
		return scoring.ScholarInput{}, fetchErr("scholar events", id, err)
	}

	in := scoring.ScholarInput{
		CumulativeGPA:        nullFloat(s.CumulativeGpa),
		GPAScale:             nullFloat(s.GpaScale),
		CurrentTerm:          int(s.CurrentTerm),
		TotalTerms:           int(s.TotalTerms),
		TotalCreditsRequired: nullFloat(s.TotalCreditsRequired),
		CreditsCompleted:     nullFloat(s.CreditsCompleted),
		StartDate:            nullTime(s.ActualStartDate),
		ExpectedEndDate:      nullTime(s.ExpectedEndDate),
		Terms:                make([]scoring.TermInput, len(terms)),
		Modules:              make([]scoring.ModuleInput, len(modules)),
		EventTypes:           events,
	}
	for i, t := range terms {
		in.Terms[i] = scoring.TermInput{
			Number:    int(t.TermNumber),
			GPA:       nullFloat(t.Gpa),
			Completed: strings.EqualFold(t.Status, "completed"),
		}
	}
	for i, m := range modules {
		in.Modules[i] = scoring.ModuleInput{
			Code:    m.ModuleCode,
			Core:    m.IsCore,
			Failed:  isFailedResult(m.Result),
			Attempt: int(m.Attempt),
		}
	}
	return in, nil
}

func isFailedResult(result string) bool {
	switch strings.ToLower(strings.TrimSpace(result)) {
	case "fail", "failed":
		return true
	}
	return false
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/nyashahama/priority-risk-engine/internal/db"
	"github.com/nyashahama/priority-risk-engine/internal/scoring"
)

// ─── INPUT TYPES ─────────────────────────────────────────────────────────────

// RecordScoreParams is everything the worker hands to the store once an
// entity has been assessed (and optionally enriched).
type RecordScoreParams struct {
	EntityID   uuid.UUID
	Assessment scoring.Assessment

	// Config supplies the bands and alert threshold used for escalation
	// detection. It must be the config the assessment was produced under.
	Config scoring.WeightConfig

	BatchJobID uuid.NullUUID
}

// RecordScoreResult is the persisted record plus the alert, if one fired.
type RecordScoreResult struct {
	Record db.ScoreRecord
	Alert  *db.ScoreAlert
}

// ─── ERRORS ──────────────────────────────────────────────────────────────────

// ErrEntityNotFound is returned when the denormalized band update matches no
// source row. The whole write is rolled back.
var ErrEntityNotFound = errors.New("store: entity not found")

// ─── METHODS ─────────────────────────────────────────────────────────────────

// RecordScore persists a scoring outcome. It atomically:
//
//  1. Reads the entity's previous non-override record.
//  2. Inserts the new score record.
//  3. Inserts an alert if the band escalated, or if this is the first score
//     and it already sits at or above the config's alert_from band.
//  4. Writes the current score and band onto the source entity row.
//
// Any failure rolls back all four steps, so a record never exists without its
// alert or its denormalized band.
func (s *Store) RecordScore(ctx context.Context, p RecordScoreParams) (RecordScoreResult, error) {
	a := p.Assessment
	kind := db.EntityKind(a.Kind) // scoring.Kind and db.EntityKind share string values

	contribs := a.Contributions
	if contribs == nil {
		contribs = []scoring.Contribution{}
	}
	contribJSON, err := json.Marshal(contribs)
	if err != nil {
		return RecordScoreResult{}, fmt.Errorf("RecordScore: marshal contributions: %w", err)
	}

	var out RecordScoreResult

	err = s.withTx(ctx, func(ctx context.Context, q db.Querier) error {
		// 1. Previous band, if any.
		var previous string
		prev, err := q.GetLatestScoreRecord(ctx, db.GetLatestScoreRecordParams{
			EntityKind: kind,
			EntityID:   p.EntityID,
		})
		switch {
		case err == nil:
			previous = prev.Band
		case errors.Is(err, sql.ErrNoRows):
		default:
			return fmt.Errorf("RecordScore: read previous: %w", err)
		}

		// 2. Append the new record.
		rec, err := q.InsertScoreRecord(ctx, db.InsertScoreRecordParams{
			EntityKind:    kind,
			EntityID:      p.EntityID,
			Score:         int16(a.Score),
			Band:          a.Band,
			Contributions: contribJSON,
			Explanation:   a.Explanation,
			ModelVersion:  a.ModelVersion,
			ConfigVersion: a.ConfigVersion,
			IsOverride:    false,
			BatchJobID:    p.BatchJobID,
		})
		if err != nil {
			return fmt.Errorf("RecordScore: insert record: %w", err)
		}
		out.Record = rec

		// 3. Escalation alert.
		if typ, ok := scoring.DetectAlert(p.Config.Bands, p.Config.AlertFrom, previous, a.Band); ok {
			alert, err := q.InsertScoreAlert(ctx, db.InsertScoreAlertParams{
				EntityKind:    kind,
				EntityID:      p.EntityID,
				ScoreRecordID: rec.ID,
				PreviousBand:  sql.NullString{String: previous, Valid: previous != ""},
				NewBand:       a.Band,
				AlertType:     db.AlertType(typ),
			})
			if err != nil {
				return fmt.Errorf("RecordScore: insert alert: %w", err)
			}
			out.Alert = &alert
		}

		// 4. Denormalized current band on the source row.
		n, err := setCurrentBand(ctx, q, a.Kind, p.EntityID, a.Score, a.Band)
		if err != nil {
			return fmt.Errorf("RecordScore: update entity: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("RecordScore: %s %s: %w", a.Kind, p.EntityID, ErrEntityNotFound)
		}
		return nil
	})
	if err != nil {
		return RecordScoreResult{}, err
	}

	return out, nil
}

func setCurrentBand(ctx context.Context, q db.Querier, kind scoring.Kind, id uuid.UUID, score int, band string) (int64, error) {
	scoreCol := sql.NullInt16{Int16: int16(score), Valid: true}
	bandCol := sql.NullString{String: band, Valid: true}

	switch kind {
	case scoring.KindTrainingNeed:
		return q.SetTrainingNeedPriority(ctx, db.SetTrainingNeedPriorityParams{
			ID:            id,
			PriorityScore: scoreCol,
			PriorityBand:  bandCol,
		})
	case scoring.KindScholar:
		return q.SetScholarRisk(ctx, db.SetScholarRiskParams{
			ID:        id,
			RiskScore: scoreCol,
			RiskBand:  bandCol,
		})
	default:
		return 0, fmt.Errorf("unknown entity kind %q", kind)
	}
}

// ScoredEntityIDs returns the entities that already have a record stamped
// with jobID. A resumed run skips them so a replayed chunk is not scored twice.
func (s *Store) ScoredEntityIDs(ctx context.Context, jobID uuid.UUID) (map[uuid.UUID]struct{}, error) {
	ids, err := s.q.ListScoredEntityIDsForJob(ctx, uuid.NullUUID{UUID: jobID, Valid: true})
	if err != nil {
		return nil, fmt.Errorf("ScoredEntityIDs %s: %w", jobID, err)
	}
	out := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out, nil
}

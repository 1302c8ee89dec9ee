package api

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/nyashahama/priority-risk-engine/internal/db"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

// scoreResponse is one persisted record plus the alert it raised, if any.
type scoreResponse struct {
	Record db.ScoreRecord `json:"record"`
	Alert  *alertResponse `json:"alert,omitempty"`
}

type historyResponse struct {
	Records []db.ScoreRecord `json:"records"`
	Alerts  []alertResponse  `json:"alerts"`
}

// alertResponse is a score alert with previous_band as a plain string, or
// null on an entity's first score.
type alertResponse struct {
	ID            uuid.UUID     `json:"id"`
	EntityKind    db.EntityKind `json:"entity_kind"`
	EntityID      uuid.UUID     `json:"entity_id"`
	ScoreRecordID uuid.UUID     `json:"score_record_id"`
	PreviousBand  *string       `json:"previous_band"`
	NewBand       string        `json:"new_band"`
	AlertType     db.AlertType  `json:"alert_type"`
	CreatedAt     time.Time     `json:"created_at"`
}

func toAlertResponse(a db.ScoreAlert) alertResponse {
	resp := alertResponse{
		ID:            a.ID,
		EntityKind:    a.EntityKind,
		EntityID:      a.EntityID,
		ScoreRecordID: a.ScoreRecordID,
		NewBand:       a.NewBand,
		AlertType:     a.AlertType,
		CreatedAt:     a.CreatedAt,
	}
	if a.PreviousBand.Valid {
		band := a.PreviousBand.String
		resp.PreviousBand = &band
	}
	return resp
}

// ─── POST /api/score/{kind}/{entityID} ───────────────────────────────────────

// handleScoreEntity scores one entity against the active config and returns
// the stored record. The explanation call (if enabled) happens inline, so
// this can take up to the enrichment timeout.
func (s *Server) handleScoreEntity(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "entityID")
	if !ok {
		return
	}

	res, err := s.scorer.Score(r.Context(), kind, id)
	if err != nil {
		s.respondDomainErr(w, r, fmt.Errorf("score %s %s: %w", kind, id, err))
		return
	}

	resp := scoreResponse{Record: res.Record}
	if res.Alert != nil {
		alert := toAlertResponse(*res.Alert)
		resp.Alert = &alert
	}
	respond(w, http.StatusOK, resp)
}

// ─── GET /api/entities/{kind}/{entityID}/score ───────────────────────────────

// handleCurrentScore returns the newest record for the entity, 404 if it has
// never been scored.
func (s *Server) handleCurrentScore(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "entityID")
	if !ok {
		return
	}

	rec, err := s.q.GetLatestScoreRecord(r.Context(), db.GetLatestScoreRecordParams{
		EntityKind: db.EntityKind(kind),
		EntityID:   id,
	})
	if errors.Is(err, sql.ErrNoRows) {
		respondErr(w, http.StatusNotFound, "entity has not been scored")
		return
	}
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("get latest score: %w", err))
		return
	}

	respond(w, http.StatusOK, rec)
}

// ─── GET /api/entities/{kind}/{entityID}/history ─────────────────────────────

// handleScoreHistory returns the newest records and alerts, newest first.
// ?limit= caps each list.
func (s *Server) handleScoreHistory(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "entityID")
	if !ok {
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondErr(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	records, err := s.q.ListScoreRecords(r.Context(), db.ListScoreRecordsParams{
		EntityKind: db.EntityKind(kind),
		EntityID:   id,
		Limit:      int32(limit),
	})
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("list score records: %w", err))
		return
	}
	alerts, err := s.q.ListScoreAlerts(r.Context(), db.ListScoreAlertsParams{
		EntityKind: db.EntityKind(kind),
		EntityID:   id,
		Limit:      int32(limit),
	})
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("list score alerts: %w", err))
		return
	}

	if records == nil {
		records = []db.ScoreRecord{}
	}
	out := make([]alertResponse, len(alerts))
	for i, a := range alerts {
		out[i] = toAlertResponse(a)
	}
	respond(w, http.StatusOK, historyResponse{Records: records, Alerts: out})
}

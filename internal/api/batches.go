package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nyashahama/priority-risk-engine/internal/db"
	"github.com/nyashahama/priority-risk-engine/internal/scoring"
	"github.com/nyashahama/priority-risk-engine/internal/store"
	"github.com/nyashahama/priority-risk-engine/internal/worker"
)

type submitBatchRequest struct {
	Kind      string    `json:"kind"`
	ScopeType string    `json:"scope_type"`
	ScopeID   uuid.UUID `json:"scope_id"`
}

// batchResponse is the polled view of a job. The resolved id list is left
// out; it can run to thousands of entries.
type batchResponse struct {
	ID             uuid.UUID          `json:"id"`
	Kind           db.EntityKind      `json:"kind"`
	ScopeType      db.ScopeType       `json:"scope_type"`
	ScopeID        uuid.UUID          `json:"scope_id"`
	ConfigVersion  string             `json:"config_version"`
	Status         db.BatchJobStatus  `json:"status"`
	TotalItems     int32              `json:"total_items"`
	ProcessedItems int32              `json:"processed_items"`
	SuccessCount   int32              `json:"success_count"`
	ErrorCount     int32              `json:"error_count"`
	Errors         []store.BatchError `json:"errors"`
	FailureReason  string             `json:"failure_reason,omitempty"`
	StartedAt      time.Time          `json:"started_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
	CompletedAt    *time.Time         `json:"completed_at,omitempty"`
}

func toBatchResponse(job db.BatchJob) (batchResponse, error) {
	entries, err := store.DecodeErrorLog(job)
	if err != nil {
		return batchResponse{}, err
	}
	if entries == nil {
		entries = []store.BatchError{}
	}
	resp := batchResponse{
		ID:             job.ID,
		Kind:           job.EntityKind,
		ScopeType:      job.ScopeType,
		ScopeID:        job.ScopeID,
		ConfigVersion:  job.ConfigVersion,
		Status:         job.Status,
		TotalItems:     job.TotalItems,
		ProcessedItems: job.ProcessedItems,
		SuccessCount:   job.SuccessCount,
		ErrorCount:     job.ErrorCount,
		Errors:         entries,
		FailureReason:  job.FailureReason.String,
		StartedAt:      job.StartedAt,
		UpdatedAt:      job.UpdatedAt,
	}
	if job.CompletedAt.Valid {
		t := job.CompletedAt.Time
		resp.CompletedAt = &t
	}
	return resp, nil
}

// ─── POST /api/batches ───────────────────────────────────────────────────────

// handleSubmitBatch creates a job for the scope and queues it. It answers
// 202 as soon as the job row exists; clients poll GET /api/batches/{jobID}.
func (s *Server) handleSubmitBatch(w http.ResponseWriter, r *http.Request) {
	var req submitBatchRequest
	if !decode(w, r, &req) {
		return
	}

	kind, err := scoring.ParseKind(req.Kind)
	if err != nil {
		respondErr(w, http.StatusBadRequest, err.Error())
		return
	}

	job, err := s.batches.Submit(r.Context(), worker.Request{
		Kind:      kind,
		ScopeType: db.ScopeType(strings.TrimSpace(req.ScopeType)),
		ScopeID:   req.ScopeID,
	})
	if err != nil {
		s.respondDomainErr(w, r, fmt.Errorf("submit batch: %w", err))
		return
	}

	s.logger.Info("api: batch submitted",
		"job_id", job.ID,
		"kind", kind,
		"scope_type", req.ScopeType,
		"scope_id", req.ScopeID,
		logField(r),
	)
	s.respondJob(w, r, http.StatusAccepted, job)
}

// ─── POST /api/batches/{jobID}/resume ────────────────────────────────────────

// handleResumeBatch reopens a failed or interrupted job and queues it again
// from its persisted offset.
func (s *Server) handleResumeBatch(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "jobID")
	if !ok {
		return
	}

	job, err := s.batches.Submit(r.Context(), worker.Request{
		ResumeJobID: uuid.NullUUID{UUID: id, Valid: true},
	})
	if err != nil {
		s.respondDomainErr(w, r, fmt.Errorf("resume batch %s: %w", id, err))
		return
	}

	s.logger.Info("api: batch resumed", "job_id", job.ID, "processed", job.ProcessedItems, logField(r))
	s.respondJob(w, r, http.StatusAccepted, job)
}

// ─── GET /api/batches/{jobID} ────────────────────────────────────────────────

func (s *Server) handleGetBatch(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "jobID")
	if !ok {
		return
	}

	job, err := s.store.GetBatchJob(r.Context(), id)
	if err != nil {
		s.respondDomainErr(w, r, err)
		return
	}

	s.respondJob(w, r, http.StatusOK, job)
}

func (s *Server) respondJob(w http.ResponseWriter, r *http.Request, status int, job db.BatchJob) {
	resp, err := toBatchResponse(job)
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("job %s: %w", job.ID, err))
		return
	}
	respond(w, status, resp)
}

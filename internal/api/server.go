// Package api implements the HTTP trigger surface of the scoring engine.
// Handlers are methods on *Server. Each handler file is responsible for one
// resource group and only uses the dependencies it actually needs.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/nyashahama/priority-risk-engine/internal/db"
	"github.com/nyashahama/priority-risk-engine/internal/metrics"
	"github.com/nyashahama/priority-risk-engine/internal/scoring"
	"github.com/nyashahama/priority-risk-engine/internal/store"
	"github.com/nyashahama/priority-risk-engine/internal/worker"
)

// Config holds values read at startup.
type Config struct {
	// Env is "production", "staging", or "development".
	Env string

	// RequestTimeout bounds every request. Zero means 30s.
	RequestTimeout time.Duration
}

// Scorer runs the single-entity pipeline. The concrete implementation is
// *worker.Pipeline.
type Scorer interface {
	Score(ctx context.Context, kind scoring.Kind, id uuid.UUID) (store.RecordScoreResult, error)
}

// Reader is the read-only slice of the query layer the handlers use.
// *db.Queries satisfies it.
type Reader interface {
	GetLatestScoreRecord(ctx context.Context, arg db.GetLatestScoreRecordParams) (db.ScoreRecord, error)
	ListScoreRecords(ctx context.Context, arg db.ListScoreRecordsParams) ([]db.ScoreRecord, error)
	ListScoreAlerts(ctx context.Context, arg db.ListScoreAlertsParams) ([]db.ScoreAlert, error)
}

// Backend is the store surface: job lookups and the health probe.
// *store.Store satisfies it.
type Backend interface {
	GetBatchJob(ctx context.Context, id uuid.UUID) (db.BatchJob, error)
	Ping(ctx context.Context) error
}

// Server holds all shared dependencies. Each handler file attaches methods to
// this type and uses only the fields it needs.
type Server struct {
	// q handles single-query reads. Injected directly, no repo wrapper.
	q Reader

	// store handles job lookups and the health probe.
	store Backend

	// scorer runs one entity through the pipeline synchronously.
	scorer Scorer

	// batches hands batch runs to the background runner.
	batches worker.Submitter

	metrics *metrics.Manager
	cfg     Config
	logger  *slog.Logger
}

// NewServer constructs the Server and wires the chi router. The returned
// http.Handler is ready to pass to http.ListenAndServe.
func NewServer(
	q Reader,
	st Backend,
	scorer Scorer,
	batches worker.Submitter,
	m *metrics.Manager,
	cfg Config,
	logger *slog.Logger,
) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	s := &Server{
		q:       q,
		store:   st,
		scorer:  scorer,
		batches: batches,
		metrics: m,
		cfg:     cfg,
		logger:  logger,
	}

	return s.routes()
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	// ── Global middleware ─────────────────────────────────────────────────────
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggerMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(s.corsMiddleware)
	r.Use(middleware.Timeout(s.cfg.RequestTimeout))

	// ── Health & metrics ──────────────────────────────────────────────────────
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	// ── API ───────────────────────────────────────────────────────────────────
	r.Route("/api", func(r chi.Router) {

		// Single-entity scoring runs synchronously.
		r.Post("/score/{kind}/{entityID}", s.handleScoreEntity)

		// Batch runs are queued and polled.
		r.Post("/batches", s.handleSubmitBatch)
		r.Route("/batches/{jobID}", func(r chi.Router) {
			r.Get("/", s.handleGetBatch)
			r.Post("/resume", s.handleResumeBatch)
		})

		// Read side: the latest record and the history with alerts.
		r.Route("/entities/{kind}/{entityID}", func(r chi.Router) {
			r.Get("/score", s.handleCurrentScore)
			r.Get("/history", s.handleScoreHistory)
		})
	})

	return r
}

// handleHealth reports 200 when the database answers, 503 otherwise.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warn("api: health check failed", "error", err, logField(r))
		respondErr(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Compile-time checks that the production types satisfy the handler seams.
var (
	_ Reader  = (*db.Queries)(nil)
	_ Backend = (*store.Store)(nil)
	_ Scorer  = (*worker.Pipeline)(nil)
)

package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/nyashahama/priority-risk-engine/internal/metrics"
	"github.com/nyashahama/priority-risk-engine/internal/scoring"
)

// DefaultEnrichTimeout bounds one enrichment call, rate-limit wait included.
const DefaultEnrichTimeout = 20 * time.Second

// EnricherConfig tunes the enricher. A zero RatePerSecond disables pacing.
type EnricherConfig struct {
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
}

// Enricher asks an external model to improve an assessment. It never fails:
// every error path returns the rule assessment it was given.
type Enricher struct {
	explainer Explainer
	timeout   time.Duration
	limiter   *rate.Limiter
	logger    *slog.Logger
	metrics   *metrics.Manager
}

// NewEnricher returns an Enricher. A nil explainer yields a disabled enricher
// that passes assessments through untouched.
func NewEnricher(explainer Explainer, cfg EnricherConfig, logger *slog.Logger, m *metrics.Manager) *Enricher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultEnrichTimeout
	}
	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), max(cfg.Burst, 1))
	}
	return &Enricher{
		explainer: explainer,
		timeout:   cfg.Timeout,
		limiter:   limiter,
		logger:    logger,
		metrics:   m,
	}
}

// Enabled reports whether a model is configured.
func (e *Enricher) Enabled() bool {
	return e != nil && e.explainer != nil
}

// Enrich returns a copy of a improved by the model, or a itself when the
// enricher is disabled or anything about the call fails.
//
// With cfg.AIOverridesScore unset only the explanation may change. With it
// set, a reply carrying a score and factors replaces score, band and
// breakdown; the score is clamped to [0, 100] and the band recomputed from
// cfg, whatever band the model named.
func (e *Enricher) Enrich(ctx context.Context, fs scoring.FactorSet, a scoring.Assessment, cfg scoring.WeightConfig) scoring.Assessment {
	kind := string(a.Kind)
	if !e.Enabled() {
		e.metricsOrNil().ObserveEnrichment(kind, metrics.EnrichDisabled)
		return a
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			e.metrics.ObserveEnrichment(kind, metrics.EnrichRateLimited)
			e.logger.Warn("ai: rate limit wait exceeds deadline, keeping rule result", "kind", kind, "error", err)
			return a
		}
	}

	prompt, err := BuildPrompt(fs, a, cfg)
	if err != nil {
		e.metrics.ObserveEnrichment(kind, metrics.EnrichError)
		e.logger.Error("ai: build prompt", "kind", kind, "error", err)
		return a
	}

	reply, err := e.explainer.Explain(ctx, prompt)
	if err != nil {
		outcome := metrics.EnrichError
		switch {
		case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
			outcome = metrics.EnrichTimeout
		case errors.Is(err, ErrInvalidReply):
			outcome = metrics.EnrichInvalid
		}
		e.metrics.ObserveEnrichment(kind, outcome)
		e.logger.Warn("ai: enrichment failed, keeping rule result", "kind", kind, "outcome", outcome, "error", err)
		return a
	}

	out, err := apply(a, reply, cfg)
	if err != nil {
		e.metrics.ObserveEnrichment(kind, metrics.EnrichInvalid)
		e.logger.Warn("ai: reply rejected, keeping rule result", "kind", kind, "model", reply.Model, "error", err)
		return a
	}

	e.metrics.ObserveEnrichment(kind, metrics.EnrichApplied)
	return out
}

func (e *Enricher) metricsOrNil() *metrics.Manager {
	if e == nil {
		return nil
	}
	return e.metrics
}

// apply merges a validated reply into a copy of a.
func apply(a scoring.Assessment, r Reply, cfg scoring.WeightConfig) (scoring.Assessment, error) {
	model := r.Model
	if model == "" {
		model = "unknown"
	}
	out := a.Clone()

	if !cfg.AIOverridesScore {
		if r.Explanation == "" {
			return a, fmt.Errorf("%w: reply has no explanation", ErrInvalidReply)
		}
		out.Explanation = r.Explanation
		out.ModelVersion = scoring.RuleModelVersion + "+" + model
		return out, nil
	}

	if r.Score == nil || len(r.Factors) == 0 {
		return a, fmt.Errorf("%w: scoring reply needs score and factors", ErrInvalidReply)
	}
	score := scoring.ClampScore(*r.Score)
	band, err := cfg.Classify(score)
	if err != nil {
		return a, fmt.Errorf("ai: classify model score: %w", err)
	}

	out.Score = score
	out.Band = band.Name
	out.Contributions = make([]scoring.Contribution, len(r.Factors))
	for i, f := range r.Factors {
		out.Contributions[i] = scoring.Contribution{
			Factor:      f.Factor,
			Description: f.Description,
			Impact:      f.Impact,
		}
	}
	if r.Explanation != "" {
		out.Explanation = r.Explanation
	}
	out.ModelVersion = model
	return out, nil
}

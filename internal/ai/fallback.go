package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// fallbackExplainer wraps two Explainer implementations. It calls the primary
// first; if that returns an error it logs the failure and tries the secondary.
type fallbackExplainer struct {
	primary   Explainer
	secondary Explainer
	logger    *slog.Logger
}

// NewFallbackExplainer returns an Explainer that calls primary and, on
// failure, falls back to secondary. If primary is nil it goes straight to
// secondary; if secondary is nil and primary fails, the primary error is
// returned. Both nil yields nil, which disables enrichment.
func NewFallbackExplainer(primary, secondary Explainer, logger *slog.Logger) Explainer {
	switch {
	case primary == nil && secondary == nil:
		return nil
	case secondary == nil:
		return primary
	case primary == nil:
		return secondary
	}
	return &fallbackExplainer{
		primary:   primary,
		secondary: secondary,
		logger:    logger,
	}
}

// Explain tries the primary Explainer, then the secondary.
func (f *fallbackExplainer) Explain(ctx context.Context, prompt Prompt) (Reply, error) {
	reply, err := f.primary.Explain(ctx, prompt)
	if err == nil {
		return reply, nil
	}
	if ctx.Err() != nil {
		return Reply{}, fmt.Errorf("ai: primary failed: %w", err)
	}
	f.logger.Warn("ai: primary explainer failed, trying secondary", "error", err)

	reply, err2 := f.secondary.Explain(ctx, prompt)
	if err2 != nil {
		return Reply{}, fmt.Errorf("ai: both explainers failed: %w", errors.Join(err, err2))
	}
	return reply, nil
}

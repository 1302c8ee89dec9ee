// Package ai enriches rule-based assessments with model-authored explanations
// and, where the weight config allows it, model-authored scores.
package ai

import (
	"context"
	"errors"

	"github.com/nyashahama/priority-risk-engine/internal/scoring"
)

// ErrInvalidReply means the model answered, but not with the JSON document
// the prompt asked for.
var ErrInvalidReply = errors.New("ai: invalid reply")

// Prompt is a provider-neutral request: one system instruction and one user
// message.
type Prompt struct {
	System string
	User   string
}

// ReplyFactor is one model-cited factor.
type ReplyFactor struct {
	Factor      string         `json:"factor"`
	Description string         `json:"description"`
	Impact      scoring.Impact `json:"impact"`
}

// Reply is the strictly validated model response. Every field is optional in
// the wire document; the enricher decides which ones it needs.
type Reply struct {
	Score       *float64      `json:"score,omitempty"`
	Band        string        `json:"band,omitempty"`
	Factors     []ReplyFactor `json:"factors,omitempty"`
	Explanation string        `json:"explanation,omitempty"`

	// Model identifies the provider model that produced the reply.
	Model string `json:"-"`
}

// Explainer is the interface the enricher uses to reach an external model.
// The concrete implementations live in anthropic.go and deepseek.go; tests
// inject a stub that returns canned replies.
type Explainer interface {
	// Explain sends prompt and returns the parsed reply. A non-nil error
	// means the whole call failed and the caller keeps the rule result.
	//
	// Implementations must be safe to call concurrently.
	Explain(ctx context.Context, prompt Prompt) (Reply, error)
}

package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nyashahama/priority-risk-engine/internal/scoring"
)

const explainOnlyPrompt = `You explain deterministic scores produced by a rules engine.
You will receive the entity's factors, the rule score (0-100), its band, and the per-factor contribution breakdown.
The score and band are final. Write a 2-4 sentence plain-English explanation of what drives the score and what would lower it.

Respond ONLY with valid JSON matching this exact schema, no markdown fences, no preamble:
{"explanation": "..."}`

const assessPrompt = `You assess entities scored by a rules engine: training-need priority or scholar academic risk.
You will receive the entity's factors, a rule-based baseline score (0-100), its band, the band table, and the rule breakdown.
Produce your own score between 0 and 100, the factors that drive it, and a 2-4 sentence explanation.
Each factor impact must be one of "high", "medium" or "low".

Respond ONLY with valid JSON matching this exact schema, no markdown fences, no preamble:
{
  "score": 0,
  "band": "...",
  "factors": [{"factor": "...", "description": "...", "impact": "high"}],
  "explanation": "..."
}`

// promptInput is the user message body. It is serialised as JSON so the
// model sees the same field names the records use.
type promptInput struct {
	Kind          scoring.Kind           `json:"kind"`
	Factors       scoring.FactorSet      `json:"factors"`
	Score         int                    `json:"rule_score"`
	Band          string                 `json:"rule_band"`
	Bands         []scoring.Band         `json:"bands"`
	Contributions []scoring.Contribution `json:"contributions"`
}

// BuildPrompt renders the enrichment request for one assessment. Whether the
// model is asked for a full assessment or an explanation only follows
// cfg.AIOverridesScore.
func BuildPrompt(fs scoring.FactorSet, a scoring.Assessment, cfg scoring.WeightConfig) (Prompt, error) {
	body, err := json.MarshalIndent(promptInput{
		Kind:          a.Kind,
		Factors:       fs,
		Score:         a.Score,
		Band:          a.Band,
		Bands:         cfg.Bands,
		Contributions: a.Contributions,
	}, "", "  ")
	if err != nil {
		return Prompt{}, fmt.Errorf("ai: marshal prompt: %w", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Here is the %s to analyse:\n\n", strings.ReplaceAll(string(a.Kind), "_", " "))
	sb.Write(body)
	sb.WriteString("\n")

	system := explainOnlyPrompt
	if cfg.AIOverridesScore {
		system = assessPrompt
	}
	return Prompt{System: system, User: sb.String()}, nil
}

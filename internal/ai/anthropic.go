package ai

import (
	"context"
	"fmt"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const anthropicMaxTokens = 1024

// anthropicExplainer is the concrete Explainer backed by the Anthropic
// Messages API.
type anthropicExplainer struct {
	client sdk.Client
	model  string
}

// NewAnthropicExplainer returns an Explainer that calls the Anthropic API.
//   - apiKey: your ANTHROPIC_API_KEY
//   - model:  e.g. "claude-sonnet-4-5"
//
// Retries are disabled: the enricher's deadline bounds the whole call and a
// failed call falls back to the rule result.
func NewAnthropicExplainer(apiKey, model string, opts ...option.RequestOption) Explainer {
	base := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	return &anthropicExplainer{
		client: sdk.NewClient(append(base, opts...)...),
		model:  model,
	}
}

// Explain sends one message and parses the first text block as a Reply.
func (c *anthropicExplainer) Explain(ctx context.Context, prompt Prompt) (Reply, error) {
	msg, err := c.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: anthropicMaxTokens,
		System:    []sdk.TextBlockParam{{Text: prompt.System}},
		Messages:  []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(prompt.User))},
	})
	if err != nil {
		return Reply{}, fmt.Errorf("ai: anthropic create message: %w", err)
	}

	for _, block := range msg.Content {
		if block.Type != "text" {
			continue
		}
		reply, err := ParseReply(block.Text)
		if err != nil {
			return Reply{}, fmt.Errorf("ai: anthropic: %w", err)
		}
		reply.Model = "anthropic/" + c.model
		return reply, nil
	}
	return Reply{}, fmt.Errorf("ai: anthropic: no text content in response: %w", ErrInvalidReply)
}

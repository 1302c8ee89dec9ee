package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DefaultDeepSeekBaseURL is the public DeepSeek API root.
const DefaultDeepSeekBaseURL = "https://api.deepseek.com"

const deepseekMaxTokens = 1024

// deepseekExplainer talks to DeepSeek's OpenAI-compatible chat completions
// endpoint over plain HTTP.
type deepseekExplainer struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewDeepSeekExplainer returns an Explainer that calls the DeepSeek API.
//   - apiKey:  your DEEPSEEK_API_KEY
//   - model:   e.g. "deepseek-chat"
//   - baseURL: API root; empty means DefaultDeepSeekBaseURL
//
// The client carries no timeout of its own; the caller's context bounds it.
func NewDeepSeekExplainer(apiKey, model, baseURL string) Explainer {
	if baseURL == "" {
		baseURL = DefaultDeepSeekBaseURL
	}
	return &deepseekExplainer{
		apiKey:     apiKey,
		model:      model,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

// ─── CHAT COMPLETION SHAPES ──────────────────────────────────────────────────

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`

	// json_object mode makes the model emit a single JSON object.
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatChoice struct {
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Error   *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// ─── IMPLEMENTATION ───────────────────────────────────────────────────────────

// Explain requests one completion at temperature 0 and parses the first
// choice as a Reply. A reply cut off at the token limit is rejected rather
// than parsed.
func (c *deepseekExplainer) Explain(ctx context.Context, prompt Prompt) (Reply, error) {
	body := chatRequest{
		Model:     c.model,
		MaxTokens: deepseekMaxTokens,
		Messages: []chatMessage{
			{Role: "system", Content: prompt.System},
			{Role: "user", Content: prompt.User},
		},
	}
	body.ResponseFormat.Type = "json_object"

	choice, err := c.complete(ctx, body)
	if err != nil {
		return Reply{}, err
	}
	if choice.FinishReason == "length" {
		return Reply{}, fmt.Errorf("deepseek: %w: reply truncated at %d tokens", ErrInvalidReply, deepseekMaxTokens)
	}

	reply, err := ParseReply(choice.Message.Content)
	if err != nil {
		return Reply{}, fmt.Errorf("deepseek: %w", err)
	}
	reply.Model = "deepseek/" + c.model
	return reply, nil
}

// complete posts one chat request and returns the first choice.
func (c *deepseekExplainer) complete(ctx context.Context, body chatRequest) (chatChoice, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return chatChoice{}, fmt.Errorf("deepseek: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return chatChoice{}, fmt.Errorf("deepseek: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return chatChoice{}, fmt.Errorf("deepseek: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return chatChoice{}, fmt.Errorf("deepseek: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return chatChoice{}, fmt.Errorf("deepseek: unexpected status %d: %.200s", resp.StatusCode, raw)
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return chatChoice{}, fmt.Errorf("deepseek: unmarshal response: %w", err)
	}
	switch {
	case out.Error != nil:
		return chatChoice{}, fmt.Errorf("deepseek: API error %s: %s", out.Error.Type, out.Error.Message)
	case len(out.Choices) == 0:
		return chatChoice{}, errors.New("deepseek: no choices in response")
	}
	return out.Choices[0], nil
}

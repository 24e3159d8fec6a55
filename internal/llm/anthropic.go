package llm

import (
	"context"
	"encoding/json"
)

// anthropicVersion is the Anthropic API version header value.
const anthropicVersion = "2023-06-01"

// Anthropic Messages API wire types.
type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature float64            `json:"temperature"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// AnthropicAdapter calls the Anthropic Messages API.
type AnthropicAdapter struct {
	base
}

// NewAnthropicAdapter creates the Anthropic adapter.
func NewAnthropicAdapter() *AnthropicAdapter {
	return &AnthropicAdapter{base: base{
		name:         "anthropic",
		endpoint:     "https://api.anthropic.com/v1/messages",
		defaultModel: "claude-3-5-haiku-latest",
		models: []string{
			"claude-3-5-sonnet-latest", "claude-3-5-haiku-latest", "claude-3-opus-latest",
		},
		keyPrefix:      "sk-ant-",
		maxTemperature: 1,
	}}
}

// Complete sends a Messages API request and extracts content[0].text.
func (a *AnthropicAdapter) Complete(ctx context.Context, credential, prompt, model string, opts Options) (string, error) {
	if err := a.ValidateInputs(credential, prompt); err != nil {
		return "", err
	}
	if model == "" {
		model = a.defaultModel
	}

	body, err := json.Marshal(anthropicRequest{
		Model:       model,
		MaxTokens:   clampMaxTokens(opts.MaxTokens),
		System:      systemPrompt(opts),
		Messages:    []anthropicMessage{{Role: "user", Content: prompt}},
		Temperature: a.clampTemperature(opts.Temperature),
	})
	if err != nil {
		return "", &Error{Kind: KindInvalidInput, Provider: a.name, Message: "failed to encode request", Err: err}
	}

	headers := map[string]string{
		"x-api-key":         credential,
		"anthropic-version": anthropicVersion,
	}
	respBody, err := postJSON(ctx, a.name, a.resolveEndpoint(opts), headers, body, opts)
	if err != nil {
		return "", err
	}

	var resp anthropicResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", &Error{Kind: KindEmptyResponse, Provider: a.name,
			Message: "failed to parse response", Err: err}
	}
	if len(resp.Content) == 0 || resp.Content[0].Text == "" {
		return "", Errorf(KindEmptyResponse, a.name, "response contained no text")
	}
	return resp.Content[0].Text, nil
}

// TestConnection performs a minimal round trip against the API.
func (a *AnthropicAdapter) TestConnection(ctx context.Context, credential, model string, opts Options) TestResult {
	return testConnection(ctx, a, credential, model, opts)
}

var _ Adapter = (*AnthropicAdapter)(nil)

package llm

import (
	"context"
	"encoding/json"
	"fmt"
)

// Chat Completions wire types, shared by the OpenAI and DeepSeek adapters.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// OpenAIAdapter calls the OpenAI Chat Completions API.
type OpenAIAdapter struct {
	base
}

// NewOpenAIAdapter creates the OpenAI adapter.
func NewOpenAIAdapter() *OpenAIAdapter {
	return &OpenAIAdapter{base: base{
		name:         "openai",
		endpoint:     "https://api.openai.com/v1/chat/completions",
		defaultModel: "gpt-4o-mini",
		models: []string{
			"gpt-4o", "gpt-4o-mini", "gpt-4-turbo", "gpt-4", "gpt-3.5-turbo",
		},
		keyPrefix:      "sk-",
		maxTemperature: 2,
	}}
}

// Complete sends a chat completion request and extracts the reply text.
func (a *OpenAIAdapter) Complete(ctx context.Context, credential, prompt, model string, opts Options) (string, error) {
	return chatComplete(ctx, &a.base, credential, prompt, model, opts)
}

// chatComplete is the Chat Completions flow shared with DeepSeek.
func chatComplete(ctx context.Context, b *base, credential, prompt, model string, opts Options) (string, error) {
	if err := b.ValidateInputs(credential, prompt); err != nil {
		return "", err
	}
	if model == "" {
		model = b.defaultModel
	}

	body, err := json.Marshal(chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt(opts)},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   clampMaxTokens(opts.MaxTokens),
		Temperature: b.clampTemperature(opts.Temperature),
	})
	if err != nil {
		return "", &Error{Kind: KindInvalidInput, Provider: b.name, Message: "failed to encode request", Err: err}
	}

	headers := map[string]string{
		"Authorization": fmt.Sprintf("Bearer %s", credential),
	}
	respBody, err := postJSON(ctx, b.name, b.resolveEndpoint(opts), headers, body, opts)
	if err != nil {
		return "", err
	}
	return extractChatCompletion(b.name, respBody)
}

// extractChatCompletion pulls choices[0].message.content out of a Chat
// Completions response.
func extractChatCompletion(provider string, body []byte) (string, error) {
	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &Error{Kind: KindEmptyResponse, Provider: provider,
			Message: "failed to parse response", Err: err}
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", Errorf(KindEmptyResponse, provider, "response contained no text")
	}
	return resp.Choices[0].Message.Content, nil
}

// TestConnection performs a minimal round trip against the API.
func (a *OpenAIAdapter) TestConnection(ctx context.Context, credential, model string, opts Options) TestResult {
	return testConnection(ctx, a, credential, model, opts)
}

var _ Adapter = (*OpenAIAdapter)(nil)

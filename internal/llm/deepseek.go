package llm

import "context"

// DeepSeekAdapter calls the DeepSeek API, which speaks the OpenAI Chat
// Completions wire format with its own endpoint, models and key prefix.
type DeepSeekAdapter struct {
	base
}

// NewDeepSeekAdapter creates the DeepSeek adapter.
func NewDeepSeekAdapter() *DeepSeekAdapter {
	return &DeepSeekAdapter{base: base{
		name:           "deepseek",
		endpoint:       "https://api.deepseek.com/v1/chat/completions",
		defaultModel:   "deepseek-chat",
		models:         []string{"deepseek-chat", "deepseek-reasoner"},
		keyPrefix:      "sk-",
		maxTemperature: 2,
	}}
}

// Complete sends a chat completion request using the OpenAI-compatible shape.
func (a *DeepSeekAdapter) Complete(ctx context.Context, credential, prompt, model string, opts Options) (string, error) {
	return chatComplete(ctx, &a.base, credential, prompt, model, opts)
}

// TestConnection performs a minimal round trip against the API.
func (a *DeepSeekAdapter) TestConnection(ctx context.Context, credential, model string, opts Options) TestResult {
	return testConnection(ctx, a, credential, model, opts)
}

var _ Adapter = (*DeepSeekAdapter)(nil)

// adapter.go defines the unified provider contract.
//
// DESIGN: One adapter per provider (OpenAI, Anthropic, DeepSeek, Custom), all
// implementing the same interface. Adapters are stateless and safe for
// concurrent use. To add a provider: implement Adapter and register it in the
// Registry.
package llm

import (
	"context"
	"net/http"
	"strings"
	"time"
)

const (
	// MaxTokenCeiling is the hard per-request token cap for all current
	// providers. Prompts estimated above it are rejected before any network
	// call, and max_tokens is never sent above it.
	MaxTokenCeiling = 4096

	// DefaultTimeout bounds a single provider round trip.
	DefaultTimeout = 60 * time.Second

	// defaultTemperature is used when the caller does not set one.
	defaultTemperature = 0.7

	// defaultSystemPrompt is the fixed assistant persona sent with every
	// completion unless overridden via Options.SystemPrompt.
	defaultSystemPrompt = "You are a helpful assistant that explains text clearly and concisely."
)

// Options carries per-call tuning. The zero value is fully usable.
type Options struct {
	MaxTokens    int     // capped at MaxTokenCeiling; 0 means ceiling
	Temperature  float64 // clamped to the provider range; 0 means default
	Endpoint     string  // overrides the provider's fixed endpoint
	SystemPrompt string  // overrides the default system message
	Timeout      time.Duration

	// Custom adapter knobs (ignored by fixed-vendor adapters).
	APIType         string            // "openai", "anthropic", or "generic"
	RequestTemplate string            // literal JSON body with {{placeholder}} substitution
	FieldMap        map[string]string // logical field -> JSON path in the request body
	ResponsePath    string            // dot-path into the response JSON
	Headers         map[string]string // extra/override request headers

	// HTTPClient overrides the default client (used by tests).
	HTTPClient *http.Client
}

// TestResult reports the outcome of a connection test.
type TestResult struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Response string `json:"response,omitempty"`
}

// Adapter is the uniform contract every provider implements.
type Adapter interface {
	// Name returns the provider identifier (e.g. "openai").
	Name() string

	// Models returns the provider's advertised model list.
	Models() []string

	// DefaultModel returns the model used when none is configured.
	DefaultModel() string

	// ValidateInputs rejects bad credentials, empty prompts and prompts whose
	// estimated token count exceeds the ceiling. Runs before any network I/O.
	ValidateInputs(credential, prompt string) error

	// EstimateTokens estimates the token count of text for a model.
	EstimateTokens(model, text string) int

	// Complete sends the prompt and returns the generated text.
	// Failures are always classified (*Error); the result is never empty.
	Complete(ctx context.Context, credential, prompt, model string, opts Options) (string, error)

	// TestConnection performs a minimal low-token round trip without
	// mutating any state.
	TestConnection(ctx context.Context, credential, model string, opts Options) TestResult
}

// base carries the per-provider constants shared adapter behavior needs.
type base struct {
	name           string
	endpoint       string
	defaultModel   string
	models         []string
	keyPrefix      string  // required credential prefix, empty to skip the check
	maxTemperature float64 // upper bound of the provider's temperature range
}

func (b *base) Name() string         { return b.name }
func (b *base) Models() []string     { return append([]string(nil), b.models...) }
func (b *base) DefaultModel() string { return b.defaultModel }

// ValidateInputs applies the shared credential/prompt/token checks.
func (b *base) ValidateInputs(credential, prompt string) error {
	if strings.TrimSpace(credential) == "" {
		return Errorf(KindInvalidCredential, b.name, "API key is empty")
	}
	if b.keyPrefix != "" && !strings.HasPrefix(credential, b.keyPrefix) {
		return Errorf(KindInvalidCredential, b.name, "API key must start with %q", b.keyPrefix)
	}
	if strings.TrimSpace(prompt) == "" {
		return Errorf(KindInvalidPrompt, b.name, "prompt is empty")
	}
	if tokens := heuristicTokens(prompt); tokens > MaxTokenCeiling {
		return Errorf(KindPromptTooLong, b.name,
			"prompt is too long: ~%d tokens exceeds the %d token limit", tokens, MaxTokenCeiling)
	}
	return nil
}

// EstimateTokens uses the model's tokenizer when available, falling back to
// the chars/4 heuristic.
func (b *base) EstimateTokens(model, text string) int {
	return estimateTokens(model, text)
}

// clampTemperature folds the caller's temperature into [0, max]. Zero selects
// the default.
func (b *base) clampTemperature(t float64) float64 {
	if t == 0 {
		t = defaultTemperature
	}
	if t < 0 {
		return 0
	}
	if t > b.maxTemperature {
		return b.maxTemperature
	}
	return t
}

// clampMaxTokens caps the caller's max_tokens at the ceiling. Zero selects
// the ceiling.
func clampMaxTokens(n int) int {
	if n <= 0 || n > MaxTokenCeiling {
		return MaxTokenCeiling
	}
	return n
}

// resolveEndpoint prefers the caller override over the provider default.
func (b *base) resolveEndpoint(opts Options) string {
	if opts.Endpoint != "" {
		return opts.Endpoint
	}
	return b.endpoint
}

func systemPrompt(opts Options) string {
	if opts.SystemPrompt != "" {
		return opts.SystemPrompt
	}
	return defaultSystemPrompt
}

// testConnection implements the shared connection-test flow on top of an
// adapter's Complete.
func testConnection(ctx context.Context, a Adapter, credential, model string, opts Options) TestResult {
	if model == "" {
		model = a.DefaultModel()
	}
	opts.MaxTokens = 16
	reply, err := a.Complete(ctx, credential, "Reply with OK.", model, opts)
	if err != nil {
		return TestResult{Success: false, Message: err.Error()}
	}
	return TestResult{
		Success:  true,
		Message:  "connection successful",
		Response: reply,
	}
}

package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// =============================================================================
// SHARED VALIDATION
// =============================================================================

func TestValidateInputs_OpenAIKeyPrefix(t *testing.T) {
	a := NewOpenAIAdapter()

	assert.NoError(t, a.ValidateInputs("sk-abc123", "hello"))

	err := a.ValidateInputs("api-abc123", "hello")
	assert.True(t, IsKind(err, KindInvalidCredential))
	assert.Contains(t, err.Error(), `"sk-"`)
}

func TestValidateInputs_AnthropicKeyPrefix(t *testing.T) {
	a := NewAnthropicAdapter()

	assert.NoError(t, a.ValidateInputs("sk-ant-abc123", "hello"))

	// A plain OpenAI-style key must be rejected.
	err := a.ValidateInputs("sk-abc123", "hello")
	assert.True(t, IsKind(err, KindInvalidCredential))
}

func TestValidateInputs_EmptyCredential(t *testing.T) {
	for _, a := range []Adapter{NewOpenAIAdapter(), NewAnthropicAdapter(), NewDeepSeekAdapter(), NewCustomAdapter()} {
		err := a.ValidateInputs("", "hello")
		assert.True(t, IsKind(err, KindInvalidCredential), "adapter %s", a.Name())
	}
}

func TestValidateInputs_EmptyPrompt(t *testing.T) {
	a := NewOpenAIAdapter()
	err := a.ValidateInputs("sk-abc", "   ")
	assert.True(t, IsKind(err, KindInvalidPrompt))
}

func TestValidateInputs_PromptTooLong(t *testing.T) {
	// ~4 chars per token: 20000 chars estimates to 5000 tokens, over the
	// 4096 ceiling.
	long := strings.Repeat("abcd", 5000)
	for _, a := range []Adapter{NewOpenAIAdapter(), NewAnthropicAdapter(), NewDeepSeekAdapter(), NewCustomAdapter()} {
		err := a.ValidateInputs(validKeyFor(a), long)
		assert.True(t, IsKind(err, KindPromptTooLong), "adapter %s", a.Name())
	}
}

func validKeyFor(a Adapter) string {
	switch a.Name() {
	case "anthropic":
		return "sk-ant-test"
	default:
		return "sk-test"
	}
}

// =============================================================================
// CLAMPING
// =============================================================================

func TestClampTemperature(t *testing.T) {
	openai := NewOpenAIAdapter()
	anthropic := NewAnthropicAdapter()

	assert.Equal(t, 2.0, openai.clampTemperature(5))
	assert.Equal(t, 1.0, anthropic.clampTemperature(5))
	assert.Equal(t, 0.0, openai.clampTemperature(-3))
	assert.Equal(t, 1.3, openai.clampTemperature(1.3))
	// Zero selects the default.
	assert.Equal(t, defaultTemperature, openai.clampTemperature(0))
}

func TestClampMaxTokens(t *testing.T) {
	assert.Equal(t, MaxTokenCeiling, clampMaxTokens(0))
	assert.Equal(t, MaxTokenCeiling, clampMaxTokens(100000))
	assert.Equal(t, 512, clampMaxTokens(512))
}

// =============================================================================
// TOKEN ESTIMATION
// =============================================================================

func TestEstimateTokens_HeuristicFallback(t *testing.T) {
	a := NewCustomAdapter()
	// Unknown model: chars/4, rounded up.
	assert.Equal(t, 3, a.EstimateTokens("some-unknown-model", "0123456789"))
	assert.Equal(t, 0, a.EstimateTokens("some-unknown-model", ""))
}

// =============================================================================
// PRICING
// =============================================================================

func TestEstimateCost(t *testing.T) {
	cost, ok := EstimateCost("openai", "gpt-3.5-turbo", 1000, 1000)
	assert.True(t, ok)
	assert.InDelta(t, 0.002, cost, 1e-9)

	_, ok = EstimateCost("openai", "made-up-model", 1000, 1000)
	assert.False(t, ok)
	_, ok = EstimateCost("nobody", "gpt-4", 1000, 1000)
	assert.False(t, ok)
	// Custom endpoints have no price table on purpose.
	_, ok = EstimateCost("custom", "default", 1000, 1000)
	assert.False(t, ok)
}

// =============================================================================
// REGISTRY
// =============================================================================

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{"anthropic", "custom", "deepseek", "openai"}, r.Providers())

	a, err := r.Get("openai")
	assert.NoError(t, err)
	assert.Equal(t, "openai", a.Name())

	_, err = r.Get("gemini")
	assert.True(t, IsKind(err, KindUnsupportedProvider))
}

// =============================================================================
// ERROR TAXONOMY
// =============================================================================

func TestCategorize(t *testing.T) {
	cases := map[Kind]Category{
		KindMissingCredential:  CategoryAuth,
		KindInvalidCredential:  CategoryAuth,
		KindNetworkError:       CategoryNetwork,
		KindServiceUnavailable: CategoryNetwork,
		KindRateLimited:        CategoryRateLimit,
		KindQuotaExceeded:      CategoryQuota,
		KindEmptyResponse:      CategoryOther,
		KindInvalidInput:       CategoryOther,
	}
	for kind, want := range cases {
		assert.Equal(t, want, Categorize(Errorf(kind, "openai", "boom")), "kind %s", kind)
	}
}

func TestClassify_StructuredFieldsBeforeStatus(t *testing.T) {
	// OpenAI reports exhausted quota as a 429 with a quota code; it must not
	// be mistaken for plain rate limiting.
	assert.Equal(t, KindQuotaExceeded, classify(429, "insufficient_quota", "insufficient_quota", "You exceeded your current quota"))
	assert.Equal(t, KindRateLimited, classify(429, "", "", ""))
	assert.Equal(t, KindInvalidCredential, classify(401, "", "", ""))
	assert.Equal(t, KindInvalidCredential, classify(400, "authentication_error", "", ""))
	assert.Equal(t, KindServiceUnavailable, classify(529, "overloaded_error", "", ""))
	assert.Equal(t, KindServiceUnavailable, classify(500, "", "", ""))
	// Substring matching is the last resort only.
	assert.Equal(t, KindQuotaExceeded, classify(400, "", "", "monthly quota reached"))
	assert.Equal(t, KindUnknown, classify(418, "", "", "teapot"))
}

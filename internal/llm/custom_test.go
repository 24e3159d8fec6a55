package llm

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestCustom_RequiresEndpoint(t *testing.T) {
	a := NewCustomAdapter()
	_, err := a.Complete(context.Background(), "any-key", "hi", "", Options{})
	assert.True(t, IsKind(err, KindInvalidConfig))
}

func TestCustom_RequestTemplateTier(t *testing.T) {
	vendor := &fakeVendor{status: 200, body: `{"text":"templated"}`}
	srv := httptest.NewServer(vendor.handler())
	defer srv.Close()

	a := NewCustomAdapter()
	out, err := a.Complete(context.Background(), "key", `say "hi"`, "llama3", Options{
		Endpoint:        srv.URL,
		RequestTemplate: `{"q":"{{prompt}}","m":"{{model}}","n":{{max_tokens}},"t":{{temperature}}}`,
		Temperature:     0.3,
		MaxTokens:       128,
	})
	require.NoError(t, err)
	assert.Equal(t, "templated", out)

	body := string(vendor.lastReq)
	// Prompt content is JSON-escaped so quotes in the selection cannot break
	// the template.
	assert.Equal(t, `say "hi"`, gjson.Get(body, "q").String())
	assert.Equal(t, "llama3", gjson.Get(body, "m").String())
	assert.Equal(t, int64(128), gjson.Get(body, "n").Int())
	assert.Equal(t, 0.3, gjson.Get(body, "t").Float())
}

func TestCustom_RequestTemplateInvalidAfterSubstitution(t *testing.T) {
	a := NewCustomAdapter()
	_, err := a.Complete(context.Background(), "key", "hi", "", Options{
		Endpoint:        "http://127.0.0.1:1",
		RequestTemplate: `{"q":{{prompt}}`, // missing brace
	})
	assert.True(t, IsKind(err, KindInvalidConfig))
}

func TestCustom_FieldMapTier(t *testing.T) {
	vendor := &fakeVendor{status: 200, body: `{"text":"mapped"}`}
	srv := httptest.NewServer(vendor.handler())
	defer srv.Close()

	a := NewCustomAdapter()
	out, err := a.Complete(context.Background(), "key", "hello", "m1", Options{
		Endpoint: srv.URL,
		FieldMap: map[string]string{
			"prompt": "input.query",
			"model":  "model",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "mapped", out)

	body := string(vendor.lastReq)
	assert.Equal(t, "hello", gjson.Get(body, "input.query").String())
	assert.Equal(t, "m1", gjson.Get(body, "model").String())
}

func TestCustom_FieldMapUnknownField(t *testing.T) {
	a := NewCustomAdapter()
	_, err := a.Complete(context.Background(), "key", "hi", "", Options{
		Endpoint: "http://127.0.0.1:1",
		FieldMap: map[string]string{"no_such_field": "x"},
	})
	assert.True(t, IsKind(err, KindInvalidConfig))
}

func TestCustom_APITypeShapes(t *testing.T) {
	vendor := &fakeVendor{status: 200, body: `{"text":"ok"}`}
	srv := httptest.NewServer(vendor.handler())
	defer srv.Close()

	a := NewCustomAdapter()

	t.Run("openai", func(t *testing.T) {
		_, err := a.Complete(context.Background(), "key", "hi", "m", Options{Endpoint: srv.URL, APIType: "openai"})
		require.NoError(t, err)
		body := string(vendor.lastReq)
		assert.Equal(t, "hi", gjson.Get(body, "messages.1.content").String())
		assert.Equal(t, "Bearer key", vendor.headers.Get("Authorization"))
	})

	t.Run("anthropic", func(t *testing.T) {
		_, err := a.Complete(context.Background(), "key", "hi", "m", Options{
			Endpoint: srv.URL, APIType: "anthropic", Temperature: 1.9,
		})
		require.NoError(t, err)
		body := string(vendor.lastReq)
		assert.Equal(t, "hi", gjson.Get(body, "messages.0.content").String())
		// Anthropic-shaped endpoints get Anthropic's temperature range.
		assert.Equal(t, 1.0, gjson.Get(body, "temperature").Float())
		assert.Equal(t, "key", vendor.headers.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, vendor.headers.Get("anthropic-version"))
	})

	t.Run("generic", func(t *testing.T) {
		_, err := a.Complete(context.Background(), "key", "hi", "m", Options{Endpoint: srv.URL})
		require.NoError(t, err)
		body := string(vendor.lastReq)
		assert.Equal(t, "hi", gjson.Get(body, "prompt").String())
		assert.Equal(t, "Bearer key", vendor.headers.Get("Authorization"))
	})
}

func TestCustom_HeaderOverrides(t *testing.T) {
	vendor := &fakeVendor{status: 200, body: `{"text":"ok"}`}
	srv := httptest.NewServer(vendor.handler())
	defer srv.Close()

	a := NewCustomAdapter()
	_, err := a.Complete(context.Background(), "key", "hi", "", Options{
		Endpoint: srv.URL,
		Headers:  map[string]string{"Authorization": "Token abc", "X-Org": "acme"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Token abc", vendor.headers.Get("Authorization"))
	assert.Equal(t, "acme", vendor.headers.Get("X-Org"))
}

func TestExtractText_Tiers(t *testing.T) {
	tests := []struct {
		name string
		body string
		path string
		want string
	}{
		{"explicit path", `{"data":{"answer":"42"}}`, "data.answer", "42"},
		{"path miss falls through to probes", `{"text":"probe"}`, "data.answer", "probe"},
		{"openai shape", `{"choices":[{"message":{"content":"chat"}}]}`, "", "chat"},
		{"anthropic shape", `{"content":[{"text":"msg"}]}`, "", "msg"},
		{"probe order prefers earlier shapes", `{"response":"late","text":"early"}`, "", "early"},
		{"first string anywhere", `{"a":{"b":[1,2,{"c":"deep"}]}}`, "", "deep"},
		{"raw payload fallback", `plain text reply`, "", "plain text reply"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractText([]byte(tt.body), tt.path))
		})
	}
}

func TestCustom_EmptyResponse(t *testing.T) {
	vendor := &fakeVendor{status: 200, body: `   `}
	srv := httptest.NewServer(vendor.handler())
	defer srv.Close()

	a := NewCustomAdapter()
	_, err := a.Complete(context.Background(), "key", "hi", "", Options{Endpoint: srv.URL})
	assert.True(t, IsKind(err, KindEmptyResponse))
}

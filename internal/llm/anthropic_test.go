package llm

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func anthropicReply(text string) string {
	return `{"content":[{"type":"text","text":` + mustJSON(text) + `}]}`
}

func TestAnthropic_Complete(t *testing.T) {
	vendor := &fakeVendor{status: 200, body: anthropicReply("Light becomes chemical energy.")}
	srv := httptest.NewServer(vendor.handler())
	defer srv.Close()

	a := NewAnthropicAdapter()
	out, err := a.Complete(context.Background(), "sk-ant-test", "Explain: photosynthesis", "",
		Options{Endpoint: srv.URL})

	require.NoError(t, err)
	assert.Equal(t, "Light becomes chemical energy.", out)

	// Anthropic auth goes in x-api-key, not Authorization.
	assert.Equal(t, "sk-ant-test", vendor.headers.Get("x-api-key"))
	assert.Equal(t, anthropicVersion, vendor.headers.Get("anthropic-version"))
	assert.Empty(t, vendor.headers.Get("Authorization"))

	var req anthropicRequest
	require.NoError(t, json.Unmarshal(vendor.lastReq, &req))
	assert.Equal(t, "claude-3-5-haiku-latest", req.Model)
	assert.Equal(t, defaultSystemPrompt, req.System)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, "user", req.Messages[0].Role)
	assert.Equal(t, "Explain: photosynthesis", req.Messages[0].Content)
}

func TestAnthropic_TemperatureClampedToOne(t *testing.T) {
	vendor := &fakeVendor{status: 200, body: anthropicReply("ok")}
	srv := httptest.NewServer(vendor.handler())
	defer srv.Close()

	a := NewAnthropicAdapter()
	_, err := a.Complete(context.Background(), "sk-ant-test", "hi", "",
		Options{Endpoint: srv.URL, Temperature: 1.8})
	require.NoError(t, err)

	var req anthropicRequest
	require.NoError(t, json.Unmarshal(vendor.lastReq, &req))
	assert.Equal(t, 1.0, req.Temperature)
}

func TestAnthropic_KeyPrefixRejectedBeforeNetwork(t *testing.T) {
	a := NewAnthropicAdapter()
	// An OpenAI-style key must not pass the Anthropic prefix check.
	_, err := a.Complete(context.Background(), "sk-plain", "hi", "", Options{Endpoint: "http://127.0.0.1:1"})
	assert.True(t, IsKind(err, KindInvalidCredential))
}

func TestAnthropic_InvalidCredentialFromVendor(t *testing.T) {
	vendor := &fakeVendor{status: 401, body: `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`}
	srv := httptest.NewServer(vendor.handler())
	defer srv.Close()

	a := NewAnthropicAdapter()
	_, err := a.Complete(context.Background(), "sk-ant-wrong", "hi", "", Options{Endpoint: srv.URL})
	assert.True(t, IsKind(err, KindInvalidCredential))
}

func TestAnthropic_EmptyResponse(t *testing.T) {
	vendor := &fakeVendor{status: 200, body: `{"content":[]}`}
	srv := httptest.NewServer(vendor.handler())
	defer srv.Close()

	a := NewAnthropicAdapter()
	_, err := a.Complete(context.Background(), "sk-ant-test", "hi", "", Options{Endpoint: srv.URL})
	assert.True(t, IsKind(err, KindEmptyResponse))
}

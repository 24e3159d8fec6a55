// custom.go implements the adapter for arbitrary user-configured endpoints.
//
// DESIGN: Unlike the fixed-vendor adapters, neither the request nor the
// response shape is known ahead of time, so both are tiered:
//
// Request body (first match wins):
//  1. Literal JSON template with {{placeholder}} substitution
//  2. Field-name mapping table (logical field -> JSON path)
//  3. Built-in shape selected by APIType (openai / anthropic / generic)
//
// Response text (first non-empty wins):
//  1. Caller-supplied dot-path into the parsed JSON
//  2. Ordered probes over common response shapes
//  3. First string value found anywhere in the payload
//  4. The raw payload serialized as a string
//
// The tiers exist so mild format mismatches degrade gracefully instead of
// failing outright.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// responseProbes are the common response shapes tried in priority order:
// OpenAI's, Anthropic's, then generic single-field payloads.
var responseProbes = []string{
	"choices.0.message.content",
	"content.0.text",
	"text",
	"response",
	"result",
	"output",
	"message",
}

// CustomAdapter calls a user-configured HTTP endpoint.
type CustomAdapter struct {
	base
}

// NewCustomAdapter creates the custom-endpoint adapter.
func NewCustomAdapter() *CustomAdapter {
	return &CustomAdapter{base: base{
		name:           "custom",
		defaultModel:   "default",
		models:         nil, // free-form
		keyPrefix:      "",  // no shape check for arbitrary endpoints
		maxTemperature: 2,
	}}
}

// Complete sends the prompt to the configured endpoint.
func (a *CustomAdapter) Complete(ctx context.Context, credential, prompt, model string, opts Options) (string, error) {
	if err := a.ValidateInputs(credential, prompt); err != nil {
		return "", err
	}
	endpoint := a.resolveEndpoint(opts)
	if endpoint == "" {
		return "", Errorf(KindInvalidConfig, a.name, "no endpoint configured for the custom provider")
	}
	if model == "" {
		model = a.defaultModel
	}
	if opts.APIType == "anthropic" {
		// Anthropic-shaped endpoints share Anthropic's temperature range.
		a = &CustomAdapter{base: a.base}
		a.maxTemperature = 1
	}

	body, err := a.buildRequest(prompt, model, opts)
	if err != nil {
		return "", err
	}

	respBody, err := postJSON(ctx, a.name, endpoint, a.authHeaders(credential, opts), body, opts)
	if err != nil {
		return "", err
	}

	text := extractText(respBody, opts.ResponsePath)
	if strings.TrimSpace(text) == "" {
		return "", Errorf(KindEmptyResponse, a.name, "response contained no text")
	}
	return text, nil
}

// buildRequest walks the request-shaping tiers.
func (a *CustomAdapter) buildRequest(prompt, model string, opts Options) ([]byte, error) {
	maxTokens := clampMaxTokens(opts.MaxTokens)
	temperature := a.clampTemperature(opts.Temperature)
	system := systemPrompt(opts)

	// Tier 1: literal JSON template.
	if opts.RequestTemplate != "" {
		body := opts.RequestTemplate
		for name, value := range map[string]string{
			"prompt":      jsonEscape(prompt),
			"model":       jsonEscape(model),
			"system":      jsonEscape(system),
			"max_tokens":  strconv.Itoa(maxTokens),
			"temperature": strconv.FormatFloat(temperature, 'g', -1, 64),
		} {
			body = strings.ReplaceAll(body, "{{"+name+"}}", value)
		}
		if !gjson.Valid(body) {
			return nil, Errorf(KindInvalidConfig, a.name, "request template is not valid JSON after substitution")
		}
		return []byte(body), nil
	}

	// Tier 2: field-name mapping.
	if len(opts.FieldMap) > 0 {
		values := map[string]any{
			"prompt":      prompt,
			"model":       model,
			"system":      system,
			"max_tokens":  maxTokens,
			"temperature": temperature,
		}
		body := "{}"
		for field, path := range opts.FieldMap {
			value, ok := values[field]
			if !ok {
				return nil, Errorf(KindInvalidConfig, a.name, "unknown field %q in request mapping", field)
			}
			var err error
			body, err = sjson.Set(body, path, value)
			if err != nil {
				return nil, &Error{Kind: KindInvalidConfig, Provider: a.name,
					Message: fmt.Sprintf("failed to map field %q", field), Err: err}
			}
		}
		return []byte(body), nil
	}

	// Tier 3: built-in shape per APIType.
	switch opts.APIType {
	case "anthropic":
		return json.Marshal(anthropicRequest{
			Model:       model,
			MaxTokens:   maxTokens,
			System:      system,
			Messages:    []anthropicMessage{{Role: "user", Content: prompt}},
			Temperature: temperature,
		})
	case "openai":
		return json.Marshal(chatRequest{
			Model: model,
			Messages: []chatMessage{
				{Role: "system", Content: system},
				{Role: "user", Content: prompt},
			},
			MaxTokens:   maxTokens,
			Temperature: temperature,
		})
	default: // generic
		return json.Marshal(map[string]any{
			"prompt":      prompt,
			"model":       model,
			"max_tokens":  maxTokens,
			"temperature": temperature,
		})
	}
}

// authHeaders picks the authorization style for the endpoint. Caller headers
// are applied last and may override anything.
func (a *CustomAdapter) authHeaders(credential string, opts Options) map[string]string {
	headers := make(map[string]string)
	switch opts.APIType {
	case "anthropic":
		headers["x-api-key"] = credential
		headers["anthropic-version"] = anthropicVersion
	default: // openai, generic
		headers["Authorization"] = fmt.Sprintf("Bearer %s", credential)
	}
	for k, v := range opts.Headers {
		headers[k] = v
	}
	return headers
}

// extractText walks the response-extraction tiers.
func extractText(body []byte, path string) string {
	// Tier 1: caller-supplied dot-path.
	if path != "" {
		if v := gjson.GetBytes(body, path); v.Exists() && v.String() != "" {
			return v.String()
		}
	}

	// Tier 2: ordered shape probes.
	for _, probe := range responseProbes {
		if v := gjson.GetBytes(body, probe); v.Type == gjson.String && v.String() != "" {
			return v.String()
		}
	}

	// Tier 3: first string value anywhere in the payload.
	if s := firstString(gjson.ParseBytes(body)); s != "" {
		return s
	}

	// Tier 4: the payload itself.
	return strings.TrimSpace(string(body))
}

// firstString does a depth-first search for the first non-empty string value.
func firstString(v gjson.Result) string {
	if v.Type == gjson.String {
		return v.String()
	}
	if !v.IsObject() && !v.IsArray() {
		return ""
	}
	var found string
	v.ForEach(func(_, child gjson.Result) bool {
		if s := firstString(child); s != "" {
			found = s
			return false
		}
		return true
	})
	return found
}

// jsonEscape renders s as JSON string content without the surrounding quotes.
func jsonEscape(s string) string {
	b, _ := json.Marshal(s)
	return string(b[1 : len(b)-1])
}

// TestConnection performs a minimal round trip against the endpoint.
func (a *CustomAdapter) TestConnection(ctx context.Context, credential, model string, opts Options) TestResult {
	return testConnection(ctx, a, credential, model, opts)
}

var _ Adapter = (*CustomAdapter)(nil)

// http.go is the shared HTTP layer for all adapters: one JSON POST with a
// context deadline, bounded response reads, and translation of failures into
// the error taxonomy.
//
// DESIGN: classification prefers structured fields (HTTP status, vendor
// error.type / error.code) and falls back to message substrings only when the
// body carries no structure. Vendor message wording is not authoritative.
package llm

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

const (
	// maxResponseSize bounds upstream response reads (10MB).
	maxResponseSize = 10 * 1024 * 1024

	// maxErrorBodyLen limits error bodies carried in error messages.
	maxErrorBodyLen = 500
)

// postJSON sends body to endpoint and returns the response body. Non-2xx
// statuses and transport failures come back as classified *Error values.
func postJSON(ctx context.Context, provider, endpoint string, headers map[string]string, body []byte, opts Options) ([]byte, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Kind: KindInvalidConfig, Provider: provider,
			Message: "failed to build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{} // timeout via context, not client
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		kind := KindNetworkError
		msg := "request failed"
		if errors.Is(err, context.DeadlineExceeded) {
			msg = "request timed out"
		}
		return nil, &Error{Kind: kind, Provider: provider, Message: msg, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &Error{Kind: KindNetworkError, Provider: provider,
			Message: "failed to read response", Err: err}
	}

	log.Debug().
		Str("provider", provider).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("provider call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, translateHTTPError(provider, resp.StatusCode, respBody)
	}
	return respBody, nil
}

// translateHTTPError classifies a non-2xx vendor response.
func translateHTTPError(provider string, status int, body []byte) *Error {
	errType := gjson.GetBytes(body, "error.type").String()
	errCode := gjson.GetBytes(body, "error.code").String()
	errMsg := gjson.GetBytes(body, "error.message").String()
	if errMsg == "" {
		errMsg = truncate(string(body), maxErrorBodyLen)
	}

	kind := classify(status, errType, errCode, errMsg)
	return &Error{Kind: kind, Provider: provider, Status: status, Message: errMsg}
}

func classify(status int, errType, errCode, errMsg string) Kind {
	// Structured vendor fields first. OpenAI signals exhausted quota with a
	// 429 + insufficient_quota code, so quota checks precede the status map.
	switch errCode {
	case "insufficient_quota", "billing_not_active", "billing_hard_limit_reached":
		return KindQuotaExceeded
	case "invalid_api_key", "account_deactivated":
		return KindInvalidCredential
	}
	switch errType {
	case "insufficient_quota", "billing_error":
		return KindQuotaExceeded
	case "authentication_error", "permission_error", "invalid_request_error_api_key":
		return KindInvalidCredential
	case "rate_limit_error", "rate_limit_exceeded":
		return KindRateLimited
	case "overloaded_error":
		return KindServiceUnavailable
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindInvalidCredential
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status == http.StatusPaymentRequired:
		return KindQuotaExceeded
	case status >= 500:
		return KindServiceUnavailable
	}

	// Last resort: substring matching on the vendor message.
	lower := strings.ToLower(errMsg)
	switch {
	case strings.Contains(lower, "quota") || strings.Contains(lower, "billing"):
		return KindQuotaExceeded
	case strings.Contains(lower, "rate limit"):
		return KindRateLimited
	case strings.Contains(lower, "api key") || strings.Contains(lower, "unauthorized"):
		return KindInvalidCredential
	}
	return KindUnknown
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "... (truncated)"
}

// Package llm normalizes heterogeneous LLM provider HTTP APIs behind one
// adapter contract.
//
// errors.go defines the error taxonomy every adapter translates into at the
// provider boundary. Callers branch on Kind instead of vendor-specific
// messages or status codes.
package llm

import (
	"errors"
	"fmt"
)

// Kind classifies a provider-layer failure.
type Kind int

const (
	// KindUnknown is an unclassified upstream failure.
	KindUnknown Kind = iota
	// KindInvalidInput means the caller passed malformed text or context.
	KindInvalidInput
	// KindMissingCredential means no API key is configured for the provider.
	KindMissingCredential
	// KindInvalidCredential means the key is malformed or rejected upstream.
	KindInvalidCredential
	// KindInvalidPrompt means the prompt is empty or not usable.
	KindInvalidPrompt
	// KindPromptTooLong means the estimated token count exceeds the ceiling.
	KindPromptTooLong
	// KindRateLimited corresponds to HTTP 429 / vendor rate-limit errors.
	KindRateLimited
	// KindQuotaExceeded is a billing or quota failure, distinct from rate
	// limiting because remediation differs.
	KindQuotaExceeded
	// KindServiceUnavailable covers HTTP 5xx and vendor overload errors.
	KindServiceUnavailable
	// KindNetworkError covers connectivity failures and timeouts.
	KindNetworkError
	// KindEmptyResponse means the upstream call succeeded but yielded no text.
	KindEmptyResponse
	// KindUnsupportedProvider means the configured provider has no adapter.
	KindUnsupportedProvider
	// KindInvalidTemplate means the prompt template could not be rendered.
	KindInvalidTemplate
	// KindInvalidConfig means the stored configuration is unusable
	// (e.g. custom provider without an endpoint).
	KindInvalidConfig
)

var kindNames = map[Kind]string{
	KindUnknown:             "unknown",
	KindInvalidInput:        "invalid_input",
	KindMissingCredential:   "missing_credential",
	KindInvalidCredential:   "invalid_credential",
	KindInvalidPrompt:       "invalid_prompt",
	KindPromptTooLong:       "prompt_too_long",
	KindRateLimited:         "rate_limited",
	KindQuotaExceeded:       "quota_exceeded",
	KindServiceUnavailable:  "service_unavailable",
	KindNetworkError:        "network_error",
	KindEmptyResponse:       "empty_response",
	KindUnsupportedProvider: "unsupported_provider",
	KindInvalidTemplate:     "invalid_template",
	KindInvalidConfig:       "invalid_config",
}

// String returns the stable snake_case name used in logs and API payloads.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Error is a classified provider-layer error.
type Error struct {
	Kind     Kind
	Provider string // adapter name, empty for pre-dispatch failures
	Status   int    // upstream HTTP status, 0 if none
	Message  string
	Err      error // wrapped cause, may be nil
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Provider != "" {
		return fmt.Sprintf("%s: %s: %s", e.Provider, e.Kind, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error { return e.Err }

// Errorf builds a classified error with a formatted message.
func Errorf(kind Kind, provider, format string, args ...any) *Error {
	return &Error{Kind: kind, Provider: provider, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the Kind from err, or KindUnknown for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given Kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Category is the coarse user-facing grouping the orchestrator exposes so UI
// callers only branch on a handful of cases.
type Category string

const (
	CategoryAuth      Category = "auth"
	CategoryNetwork   Category = "network"
	CategoryRateLimit Category = "rate-limit"
	CategoryQuota     Category = "quota"
	CategoryOther     Category = "other"
)

// Categorize folds the full taxonomy into the coarse user-facing categories.
func Categorize(err error) Category {
	switch KindOf(err) {
	case KindMissingCredential, KindInvalidCredential:
		return CategoryAuth
	case KindNetworkError, KindServiceUnavailable:
		return CategoryNetwork
	case KindRateLimited:
		return CategoryRateLimit
	case KindQuotaExceeded:
		return CategoryQuota
	default:
		return CategoryOther
	}
}

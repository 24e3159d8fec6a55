// Package sanitize provides the input guards used by the orchestrator and
// store: credential shape checks, endpoint URL safety checks, and text length
// limits.
package sanitize

import (
	"fmt"
	"net/url"
	"strings"
)

// MaxTextLength caps selection text accepted for processing. Anything longer
// would fail the token ceiling anyway.
const MaxTextLength = 100_000

// keyPrefixes are the expected credential prefixes per provider. Providers
// absent from the map (custom) accept any non-empty key.
var keyPrefixes = map[string]string{
	"openai":    "sk-",
	"anthropic": "sk-ant-",
	"deepseek":  "sk-",
}

// APIKey checks that a credential is plausible for the provider before it is
// stored. The adapters re-validate on every call.
func APIKey(provider, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("API key is empty")
	}
	if strings.ContainsAny(key, " \t\n") {
		return fmt.Errorf("API key contains whitespace")
	}
	if prefix, ok := keyPrefixes[provider]; ok && !strings.HasPrefix(key, prefix) {
		return fmt.Errorf("%s API keys start with %q", provider, prefix)
	}
	return nil
}

// EndpointURL checks that a custom endpoint is safe to call: parseable,
// https (plain http only for loopback hosts), and free of embedded
// credentials.
func EndpointURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("endpoint URL is empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("endpoint URL is not valid: %w", err)
	}
	if u.Host == "" {
		return fmt.Errorf("endpoint URL has no host")
	}
	if u.User != nil {
		return fmt.Errorf("endpoint URL must not embed credentials")
	}
	switch u.Scheme {
	case "https":
		return nil
	case "http":
		host := u.Hostname()
		if host == "localhost" || host == "127.0.0.1" || host == "::1" {
			return nil
		}
		return fmt.Errorf("plain http endpoints are only allowed for localhost")
	default:
		return fmt.Errorf("endpoint URL must use https")
	}
}

// Text validates selection text: non-empty after trimming and under the
// length cap.
func Text(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("text is empty")
	}
	if len(text) > MaxTextLength {
		return fmt.Errorf("text exceeds %d characters", MaxTextLength)
	}
	return nil
}

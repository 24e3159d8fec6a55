// Package orchestrator is the single entry point for processing a text
// selection: it loads configuration and credentials, applies the prompt
// template, dispatches to the matching provider adapter, normalizes errors,
// and records history.
//
// DESIGN: All collaborators (store, registry, logger) are injected at
// construction. The orchestrator holds no package-level state and provides no
// in-flight coordination: concurrent ProcessText calls are independent, and
// at-most-one-in-flight is the caller's responsibility.
package orchestrator

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pagelens/pagelens/internal/llm"
	"github.com/pagelens/pagelens/internal/monitoring"
	"github.com/pagelens/pagelens/internal/sanitize"
	"github.com/pagelens/pagelens/internal/selection"
	"github.com/pagelens/pagelens/internal/store"
	"github.com/pagelens/pagelens/internal/template"
)

// Options carries per-request overrides from the caller.
type Options struct {
	// PromptTemplate overrides the configured default prompt.
	PromptTemplate string

	// LLM holds adapter-level tuning passed through unchanged.
	LLM llm.Options
}

// Orchestrator wires the templater, adapters and store together.
type Orchestrator struct {
	store    store.Store
	registry *llm.Registry
	logger   zerolog.Logger
	now      func() time.Time
}

// New creates an orchestrator with explicit collaborators.
func New(st store.Store, registry *llm.Registry, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		store:    st,
		registry: registry,
		logger:   logger,
		now:      time.Now,
	}
}

// ProcessText runs the full pipeline for a selection and returns the
// generated explanation. Every failure path returns a classified error.
func (o *Orchestrator) ProcessText(ctx context.Context, text string, sel selection.Context, opts *Options) (string, error) {
	if err := sanitize.Text(text); err != nil {
		return "", &llm.Error{Kind: llm.KindInvalidInput, Message: err.Error()}
	}
	if opts == nil {
		opts = &Options{}
	}

	logger := o.logger
	if id := monitoring.RequestIDFromContext(ctx); id != "" {
		logger = logger.With().Str("request_id", id).Logger()
	}

	cfg := o.store.LoadConfig()

	adapter, err := o.registry.Get(cfg.Provider)
	if err != nil {
		return "", err
	}

	credential, ok := o.store.Credential(cfg.Provider)
	if !ok || credential == "" {
		// The most common first-run failure: be specific and actionable.
		return "", llm.Errorf(llm.KindMissingCredential, cfg.Provider,
			"no API key configured for %s; add one in the extension options", cfg.Provider)
	}

	llmOpts := opts.LLM
	if cfg.Provider == "custom" {
		if llmOpts.Endpoint == "" {
			llmOpts.Endpoint = cfg.Endpoint
		}
		if llmOpts.Endpoint == "" {
			return "", llm.Errorf(llm.KindInvalidConfig, cfg.Provider,
				"the custom provider requires an endpoint URL")
		}
		if err := sanitize.EndpointURL(llmOpts.Endpoint); err != nil {
			return "", &llm.Error{Kind: llm.KindInvalidConfig, Provider: cfg.Provider, Message: err.Error()}
		}
	}

	tmpl := cfg.DefaultPrompt
	if opts.PromptTemplate != "" {
		tmpl = opts.PromptTemplate
	}
	prompt, err := template.Apply(tmpl, text, sel)
	if err != nil {
		return "", &llm.Error{Kind: llm.KindInvalidTemplate, Message: err.Error(), Err: err}
	}

	start := o.now()
	result, err := adapter.Complete(ctx, credential, prompt, cfg.Model, llmOpts)
	if err != nil {
		logger.Warn().
			Str("provider", cfg.Provider).
			Str("category", string(llm.Categorize(err))).
			Err(err).
			Msg("processing failed")
		return "", withUserMessage(err)
	}

	result = strings.TrimSpace(result)
	logger.Info().
		Str("provider", cfg.Provider).
		Str("model", cfg.Model).
		Int("result_chars", len(result)).
		Dur("duration", o.now().Sub(start)).
		Msg("selection processed")

	if cfg.SaveHistory {
		entry := store.HistoryEntry{
			ID:        uuid.New().String(),
			Timestamp: o.now(),
			Text:      text,
			Result:    result,
			Context:   sel,
			Provider:  cfg.Provider,
			Model:     cfg.Model,
		}
		if err := o.store.AppendHistory(entry); err != nil {
			// The result is still good; a failed history write must not
			// turn a successful explanation into an error.
			logger.Warn().Err(err).Msg("failed to record history")
		}
	}

	return result, nil
}

// TestConnection performs a minimal round trip for the given provider without
// touching any stored state.
func (o *Orchestrator) TestConnection(ctx context.Context, provider, credential, model, endpoint string) llm.TestResult {
	adapter, err := o.registry.Get(provider)
	if err != nil {
		return llm.TestResult{Success: false, Message: err.Error()}
	}
	return adapter.TestConnection(ctx, credential, model, llm.Options{Endpoint: endpoint})
}

// EstimateCost returns a rough USD estimate for a call, or ok=false for
// unknown provider/model combinations.
func (o *Orchestrator) EstimateCost(provider, model string, inputTokens, outputTokens int) (float64, bool) {
	return llm.EstimateCost(provider, model, inputTokens, outputTokens)
}

// withUserMessage attaches a user-facing message to an already-classified
// error without re-wrapping it. Untyped errors pass through unchanged.
func withUserMessage(err error) error {
	kind := llm.KindOf(err)
	var msg string
	switch llm.Categorize(err) {
	case llm.CategoryAuth:
		if kind == llm.KindMissingCredential {
			return err // already specific and actionable
		}
		msg = "the API key was rejected; check it in the extension options"
	case llm.CategoryRateLimit:
		msg = "the provider is rate limiting requests; try again shortly"
	case llm.CategoryQuota:
		msg = "the provider reports an exhausted quota; check your plan and billing"
	case llm.CategoryNetwork:
		if kind == llm.KindServiceUnavailable {
			msg = "the provider is temporarily unavailable; try again later"
		} else {
			msg = "could not reach the provider; check your connection"
		}
	default:
		return err
	}

	var typed *llm.Error
	if errors.As(err, &typed) {
		return &llm.Error{
			Kind:     typed.Kind,
			Provider: typed.Provider,
			Status:   typed.Status,
			Message:  msg,
			Err:      typed,
		}
	}
	return err
}

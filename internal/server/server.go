// Package server exposes the core to the extension shell as a local JSON/HTTP
// surface. Each endpoint maps 1:1 onto a core operation; the shell renders
// whatever string or classified error comes back.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/pagelens/pagelens/internal/config"
	"github.com/pagelens/pagelens/internal/llm"
	"github.com/pagelens/pagelens/internal/orchestrator"
	"github.com/pagelens/pagelens/internal/selection"
	"github.com/pagelens/pagelens/internal/store"
)

// maxBodySize bounds request bodies from the extension shell (2MB).
const maxBodySize = 2 * 1024 * 1024

// Server is the local HTTP frontend for the core.
type Server struct {
	cfg      *config.Config
	orch     *orchestrator.Orchestrator
	store    store.Store
	registry *llm.Registry
	logger   zerolog.Logger
	httpSrv  *http.Server
}

// New creates a server around the given collaborators.
func New(cfg *config.Config, orch *orchestrator.Orchestrator, st store.Store, registry *llm.Registry, logger zerolog.Logger) *Server {
	s := &Server{cfg: cfg, orch: orch, store: st, registry: registry, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /v1/process", s.handleProcess)
	mux.HandleFunc("POST /v1/test-connection", s.handleTestConnection)
	mux.HandleFunc("GET /v1/providers", s.handleProviders)
	mux.HandleFunc("GET /v1/estimate-cost", s.handleEstimateCost)
	mux.HandleFunc("GET /v1/config", s.handleGetConfig)
	mux.HandleFunc("PUT /v1/config", s.handlePutConfig)
	mux.HandleFunc("PUT /v1/credentials/{provider}", s.handlePutCredential)
	mux.HandleFunc("DELETE /v1/credentials/{provider}", s.handleDeleteCredential)
	mux.HandleFunc("GET /v1/history", s.handleGetHistory)
	mux.HandleFunc("DELETE /v1/history", s.handleClearHistory)
	mux.HandleFunc("DELETE /v1/history/{id}", s.handleDeleteHistory)
	mux.HandleFunc("GET /v1/export", s.handleExport)
	mux.HandleFunc("POST /v1/import", s.handleImport)

	handler := s.panicRecovery(s.requestLogging(s.cors(mux)))
	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return s
}

// Handler returns the root handler (used by tests).
func (s *Server) Handler() http.Handler { return s.httpSrv.Handler }

// Start blocks serving requests until Shutdown.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.httpSrv.Addr).Msg("server listening")
	return s.httpSrv.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

type processRequest struct {
	Text    string            `json:"text"`
	Context selection.Context `json:"context"`
	Options *processOptions   `json:"options,omitempty"`
}

type processOptions struct {
	PromptTemplate  string            `json:"promptTemplate,omitempty"`
	MaxTokens       int               `json:"maxTokens,omitempty"`
	Temperature     float64           `json:"temperature,omitempty"`
	Endpoint        string            `json:"endpoint,omitempty"`
	SystemPrompt    string            `json:"systemPrompt,omitempty"`
	APIType         string            `json:"apiType,omitempty"`
	RequestTemplate string            `json:"requestTemplate,omitempty"`
	FieldMap        map[string]string `json:"fieldMap,omitempty"`
	ResponsePath    string            `json:"responsePath,omitempty"`
	Headers         map[string]string `json:"headers,omitempty"`
}

type processResponse struct {
	Result string `json:"result"`
}

type testConnectionRequest struct {
	Provider   string `json:"provider"`
	Credential string `json:"credential"`
	Model      string `json:"model,omitempty"`
	Endpoint   string `json:"endpoint,omitempty"`
}

type credentialRequest struct {
	Value string `json:"value"`
}

type errorResponse struct {
	Error    string `json:"error"`
	Kind     string `json:"kind"`
	Category string `json:"category"`
}

// =============================================================================
// HANDLERS
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if !s.readJSON(w, r, &req) {
		return
	}

	var opts *orchestrator.Options
	if req.Options != nil {
		opts = &orchestrator.Options{
			PromptTemplate: req.Options.PromptTemplate,
			LLM: llm.Options{
				MaxTokens:       req.Options.MaxTokens,
				Temperature:     req.Options.Temperature,
				Endpoint:        req.Options.Endpoint,
				SystemPrompt:    req.Options.SystemPrompt,
				APIType:         req.Options.APIType,
				RequestTemplate: req.Options.RequestTemplate,
				FieldMap:        req.Options.FieldMap,
				ResponsePath:    req.Options.ResponsePath,
				Headers:         req.Options.Headers,
				Timeout:         s.cfg.LLM.Timeout,
			},
		}
	} else {
		opts = &orchestrator.Options{LLM: llm.Options{Timeout: s.cfg.LLM.Timeout}}
	}

	result, err := s.orch.ProcessText(r.Context(), req.Text, req.Context, opts)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, processResponse{Result: result})
}

func (s *Server) handleTestConnection(w http.ResponseWriter, r *http.Request) {
	var req testConnectionRequest
	if !s.readJSON(w, r, &req) {
		return
	}
	result := s.orch.TestConnection(r.Context(), req.Provider, req.Credential, req.Model, req.Endpoint)
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleProviders(w http.ResponseWriter, _ *http.Request) {
	type providerInfo struct {
		Name         string   `json:"name"`
		Models       []string `json:"models"`
		DefaultModel string   `json:"defaultModel"`
	}
	var out []providerInfo
	for _, name := range s.registry.Providers() {
		adapter, err := s.registry.Get(name)
		if err != nil {
			continue
		}
		out = append(out, providerInfo{
			Name:         adapter.Name(),
			Models:       adapter.Models(),
			DefaultModel: adapter.DefaultModel(),
		})
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleEstimateCost(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	input := atoiDefault(q.Get("input"), 0)
	output := atoiDefault(q.Get("output"), 0)
	cost, ok := s.orch.EstimateCost(q.Get("provider"), q.Get("model"), input, output)
	if !ok {
		// Unknown provider/model: explicit null, never a guess.
		s.writeJSON(w, http.StatusOK, map[string]any{"cost": nil})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"cost": cost})
}

func (s *Server) handleGetConfig(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.store.LoadConfig())
}

func (s *Server) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	var cfg store.Config
	if !s.readJSON(w, r, &cfg) {
		return
	}
	if err := s.store.SaveConfig(cfg); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: err.Error(), Kind: llm.KindInvalidConfig.String(), Category: string(llm.CategoryOther),
		})
		return
	}
	s.writeJSON(w, http.StatusOK, s.store.LoadConfig())
}

func (s *Server) handlePutCredential(w http.ResponseWriter, r *http.Request) {
	provider := r.PathValue("provider")
	var req credentialRequest
	if !s.readJSON(w, r, &req) {
		return
	}
	if err := s.store.SaveCredential(provider, req.Value); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: err.Error(), Kind: llm.KindInvalidCredential.String(), Category: string(llm.CategoryAuth),
		})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteCredential(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteCredential(r.PathValue("provider")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, _ *http.Request) {
	entries, err := s.store.History()
	if err != nil {
		s.writeError(w, err)
		return
	}
	if entries == nil {
		entries = []store.HistoryEntry{}
	}
	s.writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleClearHistory(w http.ResponseWriter, _ *http.Request) {
	if err := s.store.ClearHistory(); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteHistory(r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExport(w http.ResponseWriter, _ *http.Request) {
	data, err := s.store.Export()
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="pagelens-export.json"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: "failed to read request body", Kind: llm.KindInvalidInput.String(), Category: string(llm.CategoryOther),
		})
		return
	}
	if err := s.store.Import(data); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: err.Error(), Kind: llm.KindInvalidInput.String(), Category: string(llm.CategoryOther),
		})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Server) readJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err == nil {
		err = json.Unmarshal(body, dst)
	}
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: "request body is not valid JSON", Kind: llm.KindInvalidInput.String(), Category: string(llm.CategoryOther),
		})
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}

// writeError maps a classified core error onto a stable HTTP status.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	kind := llm.KindOf(err)
	s.writeJSON(w, statusForKind(kind), errorResponse{
		Error:    err.Error(),
		Kind:     kind.String(),
		Category: string(llm.Categorize(err)),
	})
}

func statusForKind(kind llm.Kind) int {
	switch kind {
	case llm.KindInvalidInput, llm.KindInvalidTemplate, llm.KindInvalidPrompt,
		llm.KindInvalidConfig, llm.KindUnsupportedProvider:
		return http.StatusBadRequest
	case llm.KindMissingCredential, llm.KindInvalidCredential:
		return http.StatusUnauthorized
	case llm.KindPromptTooLong:
		return http.StatusRequestEntityTooLarge
	case llm.KindRateLimited:
		return http.StatusTooManyRequests
	case llm.KindQuotaExceeded:
		return http.StatusPaymentRequired
	case llm.KindServiceUnavailable, llm.KindEmptyResponse:
		return http.StatusBadGateway
	case llm.KindNetworkError:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func atoiDefault(s string, def int) int {
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return def
	}
	return n
}

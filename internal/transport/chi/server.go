package chi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/statutefinder/internal/domain"
	"github.com/kailas-cloud/statutefinder/internal/metrics"
	"github.com/kailas-cloud/statutefinder/internal/usecase/narrowing"
)

// maxBodyBytes bounds request bodies; a full statute name list is well under it.
const maxBodyBytes = 4 << 20

const (
	headerPromptTokens     = "X-Prompt-Tokens"
	headerCompletionTokens = "X-Completion-Tokens"
	headerEmbeddingTokens  = "X-Embedding-Tokens"
)

// Deps are the use cases served over HTTP. Ranker, Sessions and Usage may be nil;
// their routes then answer 501.
type Deps struct {
	Narrowing narrowing.Options
	CorpusID  string
	Narrower  Narrower
	Ranker    OptionRanker
	Sessions  Sessions
	Catalog   StatuteCatalog
	Usage     UsageReporter
	Health    HealthChecker
	APIKeys   []string
}

// Server is the statutefinder HTTP API.
type Server struct {
	deps   Deps
	logger *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(deps Deps, logger *zap.Logger) *Server {
	return &Server{deps: deps, logger: logger}
}

// Handler builds the router with the middleware stack.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(s.logger))
	r.Use(BearerAuthMiddleware(s.deps.APIKeys))
	r.Use(metrics.Middleware())

	r.Get("/health", s.HealthCheck)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/statutes", s.LookupStatute)
		r.Post("/statutes/options", s.StatuteOptions)
		r.Post("/statutes/narrow", s.NarrowStatutes)
		r.Post("/statutes/choose", s.ChooseStatute)
		r.Post("/statutes/rerank", s.RerankStatutes)
		r.Post("/sections/rank", s.RankSections)

		r.Post("/sessions", s.StartSession)
		r.Get("/sessions/{id}", s.GetSession)
		r.Delete("/sessions/{id}", s.EndSession)
		r.Post("/sessions/{id}/actions", s.SessionAction)

		r.Get("/usage", s.GetUsage)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, codeBadRequest, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, codeBadRequest, "method not allowed")
	})
	return r
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

// setUsageHeaders reports the tokens spent serving the request.
func setUsageHeaders(w http.ResponseWriter, usage *domain.Usage) {
	snap := usage.Snapshot()
	if snap.Calls > 0 {
		w.Header().Set(metrics.LLMCallsHeader, strconv.Itoa(snap.Calls))
		w.Header().Set(headerPromptTokens, strconv.Itoa(snap.PromptTokens))
		w.Header().Set(headerCompletionTokens, strconv.Itoa(snap.CompletionTokens))
	}
	if snap.EmbeddingTokens > 0 {
		w.Header().Set(headerEmbeddingTokens, strconv.Itoa(snap.EmbeddingTokens))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

func notImplemented(w http.ResponseWriter, what string) {
	writeError(w, http.StatusNotImplemented, "not_implemented", what+" is not configured")
}

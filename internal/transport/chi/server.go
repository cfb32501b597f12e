package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/hybridsearch/internal/domain"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/result"
	"github.com/kailas-cloud/hybridsearch/internal/logger"
	gen "github.com/kailas-cloud/hybridsearch/internal/transport/generated"
	healthuc "github.com/kailas-cloud/hybridsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/hybridsearch/internal/usecase/search"
)

// statusClientClosedRequest is the de facto status for requests the client abandoned.
const statusClientClosedRequest = 499

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server implements generated.ServerInterface for the oapi-codegen chi router.
type Server struct {
	gen.Unimplemented
	search        *searchuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

var _ gen.ServerInterface = (*Server)(nil)

// NewServer creates an HTTP API server.
func NewServer(search *searchuc.Service, health *healthuc.Service, logger *zap.Logger) *Server {
	s := &Server{
		search: search,
		health: health,
		logger: logger,
	}
	// Order matters: a hybrid search failing on both sides may match several
	// sentinels, and any non-timeout failure must surface as a 500.
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest, gen.ErrorResponseCodeInvalidInput),
		sentinelHandler(domain.ErrEmbeddingFailure,
			http.StatusInternalServerError, gen.ErrorResponseCodeEmbeddingFailure),
		sentinelHandler(domain.ErrUpstreamUnavailable,
			http.StatusInternalServerError, gen.ErrorResponseCodeUpstreamUnavailable),
		sentinelHandler(domain.ErrRetrievalTimeout, http.StatusGatewayTimeout, gen.ErrorResponseCodeRetrievalTimeout),
		sentinelHandler(context.Canceled, statusClientClosedRequest, gen.ErrorResponseCodeRequestCanceled),
	}
	return s
}

// Search handles GET /search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request, params gen.SearchParams) {
	if params.Q == nil && !r.URL.Query().Has("q") {
		writeError(w, http.StatusBadRequest, gen.ErrorResponseCodeBadRequest, "query parameter q is required")
		return
	}

	var text, mode string
	if params.Q != nil {
		text = *params.Q
	}
	if params.Mode != nil {
		mode = string(*params.Mode)
	}
	limit := 0
	if params.Limit != nil {
		if *params.Limit < 1 {
			writeError(w, http.StatusBadRequest, gen.ErrorResponseCodeInvalidInput, "limit must be positive")
			return
		}
		limit = *params.Limit
	}

	ctx, stats := domain.NewContextWithStats(r.Context())
	items, err := s.search.Search(ctx, text, mode, limit)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	resp := make(gen.SearchResponse, len(items))
	for i := range items {
		resp[i] = searchItemToGen(&items[i])
	}

	setStatsHeaders(w, stats)
	writeJSON(w, http.StatusOK, resp)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]gen.HealthResponseChecks, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = gen.HealthResponseChecks(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, gen.HealthResponse{
		Status: gen.HealthResponseStatus(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func setStatsHeaders(w http.ResponseWriter, stats *domain.RequestStats) {
	if tokens, embedded := stats.EmbeddingTokens(); embedded {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(tokens))
	}
	if degraded := stats.Degraded(); len(degraded) > 0 {
		names := make([]string, len(degraded))
		for i, src := range degraded {
			names[i] = src.String()
		}
		w.Header().Set("X-Search-Degraded", strings.Join(names, ","))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code gen.ErrorResponseCode, message string) {
	writeJSON(w, status, gen.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidInput,
		domain.ErrEmbeddingFailure,
		domain.ErrUpstreamUnavailable,
		domain.ErrRetrievalTimeout,
		context.Canceled,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code gen.ErrorResponseCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	if !log.Core().Enabled(zap.FatalLevel) {
		log = s.logger
	}

	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, gen.ErrorResponseCodeInternalError, "internal error")
}

func searchItemToGen(it *result.Item) gen.SearchResultItem {
	return gen.SearchResultItem{
		Id:       it.DocID(),
		Title:    it.Title(),
		Body:     it.Body(),
		Score:    it.Score(),
		FtsScore: it.FTSScore(),
		SemScore: it.SemScore(),
	}
}

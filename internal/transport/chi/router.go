package chi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	logpkg "github.com/kailas-cloud/hybridsearch/internal/logger"
	"github.com/kailas-cloud/hybridsearch/internal/metrics"
	gen "github.com/kailas-cloud/hybridsearch/internal/transport/generated"
)

// RouterConfig holds the HTTP surface settings.
type RouterConfig struct {
	BasePath    string // routes are served at the root and under this prefix
	CORSOrigins []string
	APIKeys     []string
}

// NewRouter mounts the API with the standard middleware stack.
func NewRouter(server gen.ServerInterface, cfg RouterConfig, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			ExposedHeaders:   []string{"X-Search-Degraded", "X-Embedding-Tokens", "X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
	r.Use(BearerAuthMiddleware(cfg.APIKeys, cfg.BasePath))
	r.Use(metrics.Middleware())

	opts := gen.ChiServerOptions{
		BaseRouter:       r,
		ErrorHandlerFunc: paramErrorHandler,
	}
	gen.HandlerWithOptions(server, opts)
	if cfg.BasePath != "" {
		opts.BaseURL = cfg.BasePath
		gen.HandlerWithOptions(server, opts)
	}
	return r
}

func paramErrorHandler(w http.ResponseWriter, _ *http.Request, _ error) {
	writeError(w, http.StatusBadRequest, gen.ErrorResponseCodeBadRequest, "invalid request")
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					if rvr == http.ErrAbortHandler { //nolint:errorlint // sentinel compared by identity
						panic(rvr)
					}
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(gen.ErrorResponse{
						Code:    gen.ErrorResponseCodeInternalError,
						Message: "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			}
			if q := r.URL.Query(); q.Has("q") {
				fields = append(fields,
					zap.Int("query_len", len(q.Get("q"))),
					zap.String("mode", q.Get("mode")),
				)
			}
			if d := ww.Header().Get("X-Search-Degraded"); d != "" {
				fields = append(fields, zap.String("degraded", d))
			}
			if t := ww.Header().Get("X-Embedding-Tokens"); t != "" {
				fields = append(fields, zap.String("embedding_tokens", t))
			}

			// canonical log line, one per request
			reqLogger.Info("http_request", fields...)
		})
	}
}

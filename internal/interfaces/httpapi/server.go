package httpapi

import (
	"net/http"

	"github.com/allanhy/tallysight-sub000/internal/platform/logging"
)

type RouterConfig struct {
	CORSAllowedOrigins []string
	CronSecret         string
	SwaggerEnabled     bool
	// MetricsHandler is mounted at /metrics when set.
	MetricsHandler http.Handler
	Observer       RequestObserver
}

func NewRouter(handler *Handler, verifier TokenVerifier, cfg RouterConfig, logger *logging.Logger) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}

	mux := http.NewServeMux()
	routes := routeRegistrar{mux: mux}
	registerSystemRoutes(routes, handler, cfg)
	registerAdminRoutes(routes, handler, verifier)
	registerJobRoutes(routes, handler, cfg.CronSecret)

	return RequestTracing(RequestLogging(logger, cfg.Observer, CORS(cfg.CORSAllowedOrigins, recoverPanic(logger, mux))))
}

func recoverPanic(logger *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := startSpan(r.Context(), "httpapi.recoverPanic")
		defer span.End()

		defer func() {
			if rec := recover(); rec != nil {
				logger.ErrorContext(ctx, "panic recovered", "panic", rec, "path", r.URL.Path)
				writeInternalError(ctx, w)
			}
		}()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

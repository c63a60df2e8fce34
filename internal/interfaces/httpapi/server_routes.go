package httpapi

import "net/http"

type routeRegistrar struct {
	mux *http.ServeMux
}

func (r routeRegistrar) handle(pattern string, handler http.Handler) {
	r.mux.Handle(pattern, tagRoute(handler))
}

func (r routeRegistrar) handleFunc(pattern string, fn http.HandlerFunc) {
	r.handle(pattern, fn)
}

func registerSystemRoutes(routes routeRegistrar, handler *Handler, cfg RouterConfig) {
	routes.handleFunc("GET /healthz", handler.Healthz)
	if cfg.MetricsHandler != nil {
		routes.handle("GET /metrics", cfg.MetricsHandler)
	}
	if !cfg.SwaggerEnabled {
		return
	}

	routes.handleFunc("GET /openapi.yaml", handler.OpenAPI)
	routes.handleFunc("GET /docs", handler.SwaggerUI)
	routes.handleFunc("GET /docs/", handler.SwaggerUI)
}

func registerAdminRoutes(routes routeRegistrar, handler *Handler, verifier TokenVerifier) {
	routes.handle("POST /v1/admin/sync", RequireSyncAuth(verifier, http.HandlerFunc(handler.TriggerSync)))
	routes.handle("GET /v1/admin/scoreboard/{sport}", RequireAuth(verifier, http.HandlerFunc(handler.GetScoreboard)))
}

func registerJobRoutes(routes routeRegistrar, handler *Handler, cronSecret string) {
	routes.handle("GET /v1/jobs/automated-sync", RequireCronSecret(cronSecret, http.HandlerFunc(handler.RunAutomatedSync)))
	routes.handle("POST /v1/jobs/automated-sync", RequireCronSecret(cronSecret, http.HandlerFunc(handler.RunAutomatedSync)))
}

package httpapi

import (
	_ "embed"
	"net/http"
)

//go:embed openapi.yaml
var openAPISpec []byte

// swaggerPage loads the UI bundle from unpkg and points it at /openapi.yaml.
const swaggerPage = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Tallysight Game Sync API</title>
<link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
<div id="docs"></div>
<script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
<script>SwaggerUIBundle({url: "/openapi.yaml", dom_id: "#docs"});</script>
</body>
</html>
`

func (h *Handler) OpenAPI(w http.ResponseWriter, r *http.Request) {
	h.serveStatic(w, r, "httpapi.Handler.OpenAPI", "application/yaml; charset=utf-8", openAPISpec)
}

func (h *Handler) SwaggerUI(w http.ResponseWriter, r *http.Request) {
	h.serveStatic(w, r, "httpapi.Handler.SwaggerUI", "text/html; charset=utf-8", []byte(swaggerPage))
}

func (h *Handler) serveStatic(w http.ResponseWriter, r *http.Request, spanName, contentType string, body []byte) {
	ctx, span := startSpan(r.Context(), spanName)
	defer span.End()

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		h.logger.WarnContext(ctx, "write static document failed", "path", r.URL.Path, "error", err)
	}
}

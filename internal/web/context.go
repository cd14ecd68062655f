package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/schemamap/internal/core"
)

// withClient adds the client IP and User-Agent to the request context so
// the service can record them on runs.
func withClient(r *http.Request) context.Context {
	return core.ContextWithClient(r.Context(), clientIP(r), r.UserAgent())
}

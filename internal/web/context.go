package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/resultportal/internal/core"
)

// withRequestMetadata carries the client IP and User-Agent into the service
// so batch log entries can name the uploader.
func withRequestMetadata(r *http.Request) context.Context {
	ctx := core.ContextWithClientIP(r.Context(), clientIP(r))
	return core.ContextWithUserAgent(ctx, r.UserAgent())
}

package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/genecheck/internal/core"
)

// WithRequestMetadata records the client IP as the run origin.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	return core.ContextWithOrigin(ctx, clientIP(r))
}

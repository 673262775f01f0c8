package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/tableroute/internal/core"
	mw "github.com/JonMunkholm/tableroute/internal/web/middleware"
)

// WithRequestMetadata tags ctx with the client IP so published changes name
// their origin.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	return core.ContextWithOrigin(ctx, mw.ClientIP(r))
}

package utils

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/NikoDola/hendo-backend/internal/identity"
)

type contextKey string

const ContextUserKey contextKey = "user"

func WithUser(ctx context.Context, u identity.User) context.Context {
	return context.WithValue(ctx, ContextUserKey, u)
}

func GetUserFromContext(ctx context.Context) (identity.User, bool) {
	u, ok := ctx.Value(ContextUserKey).(identity.User)
	return u, ok
}

// ClientIP returns the originating client address, preferring the first
// X-Forwarded-For hop when the service sits behind a proxy. Advisory only,
// never an input to access decisions.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i > 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

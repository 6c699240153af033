package auth

import (
	"context"
	"log/slog"
	"net/http"
)

type contextKey struct{}

// SessionFrom returns the session stored by RequireSession, or nil when the
// request never passed through it.
func SessionFrom(ctx context.Context) *Session {
	session, _ := ctx.Value(contextKey{}).(*Session)
	return session
}

// WithSession stores a session on the context. Exposed for handler tests.
func WithSession(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, session)
}

// RequireSession rejects unauthenticated requests with 401 and injects the
// resolved session into the request context for everything downstream.
func RequireSession(client *Client, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := client.SessionFromRequest(r.Context(), r)
			if err != nil {
				logger.Error("session lookup failed", "error", err)
				http.Error(w, `{"error": "Unauthorized"}`, http.StatusUnauthorized)
				return
			}
			if session == nil {
				http.Error(w, `{"error": "Unauthorized"}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}

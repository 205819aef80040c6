package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const (
	sessionIDContextKey contextKey = "session_id"
	requestIDContextKey contextKey = "request_id"
)

type SessionConfig struct {
	CookieName string
	Secure     bool
}

// Session resolves the browser session id from its cookie, issuing a new id
// when the cookie is missing or malformed. The cookie has no Max-Age, so it
// dies with the browser session.
func Session(cfg SessionConfig) func(http.Handler) http.Handler {
	name := cfg.CookieName
	if name == "" {
		name = "portal_session"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := ""
			if cookie, err := r.Cookie(name); err == nil {
				if parsed, err := uuid.Parse(cookie.Value); err == nil {
					sessionID = parsed.String()
				}
			}

			if sessionID == "" {
				sessionID = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     name,
					Value:    sessionID,
					Path:     "/",
					HttpOnly: true,
					Secure:   cfg.Secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			next.ServeHTTP(w, r.WithContext(ContextWithSessionID(r.Context(), sessionID)))
		})
	}
}

func SessionIDFromContext(ctx context.Context) (string, bool) {
	sessionID, ok := ctx.Value(sessionIDContextKey).(string)
	return sessionID, ok && sessionID != ""
}

// ContextWithSessionID is used by tests and by Session.
func ContextWithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDContextKey, sessionID)
}

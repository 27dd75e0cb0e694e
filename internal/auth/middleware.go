package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
)

type contextKey string

const userIDKey contextKey = "user_id"

// WithUserID stores the signed-in user's ID on ctx.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the signed-in user's ID, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// RequireSession rejects requests without a live session cookie and puts
// the user ID on the request context otherwise.
func RequireSession(sessions *Sessions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var token string
			if c, err := r.Cookie(SessionCookie); err == nil {
				token = c.Value
			}
			sess, err := sessions.Resolve(r.Context(), token)
			if err != nil {
				if !errors.Is(err, ErrUnauthenticated) {
					slog.ErrorContext(r.Context(), "Session lookup failed", "error", err)
				}
				writeUnauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), sess.UserID)))
		})
	}
}

// RequireCSRF enforces the double-submit token on state-changing methods.
func RequireCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}
		c, err := r.Cookie(CSRFCookie)
		if err != nil || c.Value == "" || r.Header.Get(CSRFHeader) != c.Value {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error":"invalid csrf token"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"authentication required"}`))
}

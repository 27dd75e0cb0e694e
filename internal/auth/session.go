// Package auth handles password hashing, cookie sessions and the request
// context carrying the signed-in user.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"fintrack/internal/core"

	"github.com/google/uuid"
)

const (
	SessionCookie = "mft_session"
	CSRFCookie    = "mft_csrf"
	CSRFHeader    = "X-CSRF-Token"

	DefaultSessionTTL = 30 * 24 * time.Hour
)

var ErrUnauthenticated = errors.New("unauthenticated")

// SessionStore persists sessions.
type SessionStore interface {
	CreateSession(ctx context.Context, s core.Session) error
	GetSession(ctx context.Context, token string) (core.Session, error)
	DeleteSession(ctx context.Context, token string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// Sessions issues and resolves opaque session tokens.
type Sessions struct {
	store SessionStore
	ttl   time.Duration
	now   func() time.Time
}

func NewSessions(store SessionStore, ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Sessions{store: store, ttl: ttl, now: time.Now}
}

// NewToken returns a random opaque token.
func NewToken() string {
	return uuid.NewString() + uuid.NewString()
}

func (s *Sessions) Create(ctx context.Context, userID string) (core.Session, error) {
	sess := core.Session{Token: NewToken(), UserID: userID, ExpiresAt: s.now().Add(s.ttl)}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return core.Session{}, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

// Resolve returns the live session for token. Expired sessions are removed
// and reported as ErrUnauthenticated.
func (s *Sessions) Resolve(ctx context.Context, token string) (core.Session, error) {
	if token == "" {
		return core.Session{}, ErrUnauthenticated
	}
	sess, err := s.store.GetSession(ctx, token)
	if errors.Is(err, core.ErrNotFound) {
		return core.Session{}, ErrUnauthenticated
	}
	if err != nil {
		return core.Session{}, fmt.Errorf("resolve session: %w", err)
	}
	if !s.now().Before(sess.ExpiresAt) {
		_ = s.store.DeleteSession(ctx, token)
		return core.Session{}, ErrUnauthenticated
	}
	return sess, nil
}

func (s *Sessions) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.store.DeleteSession(ctx, token)
}

// Purge deletes every expired session.
func (s *Sessions) Purge(ctx context.Context) (int64, error) {
	return s.store.DeleteExpiredSessions(ctx, s.now())
}

// SetCookies writes the session cookie and a fresh CSRF cookie. The CSRF
// cookie is readable by scripts so clients can echo it in CSRFHeader.
func SetCookies(w http.ResponseWriter, sess core.Session, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookie,
		Value:    uuid.NewString(),
		Path:     "/",
		Expires:  sess.ExpiresAt,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookies expires both cookies.
func ClearCookies(w http.ResponseWriter, secure bool) {
	for _, name := range []string{SessionCookie, CSRFCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: name == SessionCookie,
			Secure:   secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

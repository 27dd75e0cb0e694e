package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"fintrack/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memorySessions struct {
	mu   sync.Mutex
	data map[string]core.Session
}

func newMemorySessions() *memorySessions {
	return &memorySessions{data: map[string]core.Session{}}
}

func (m *memorySessions) CreateSession(_ context.Context, s core.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[s.Token] = s
	return nil
}

func (m *memorySessions) GetSession(_ context.Context, token string) (core.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.data[token]
	if !ok {
		return core.Session{}, core.ErrNotFound
	}
	return s, nil
}

func (m *memorySessions) DeleteSession(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, token)
	return nil
}

func (m *memorySessions) DeleteExpiredSessions(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, s := range m.data {
		if s.ExpiresAt.Before(now) {
			delete(m.data, k)
			n++
		}
	}
	return n, nil
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("demo1234")
	require.NoError(t, err)
	assert.NotEqual(t, "demo1234", hash)
	assert.NoError(t, VerifyPassword(hash, "demo1234"))
	assert.Error(t, VerifyPassword(hash, "wrong1234"))
}

func TestSessions_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store := newMemorySessions()
	s := NewSessions(store, time.Hour)
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	sess, err := s.Create(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), sess.ExpiresAt)
	assert.Len(t, sess.Token, 72)

	got, err := s.Resolve(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)

	_, err = s.Resolve(ctx, "")
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = s.Resolve(ctx, "bogus")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	now = now.Add(2 * time.Hour)
	_, err = s.Resolve(ctx, sess.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = store.GetSession(ctx, sess.Token)
	assert.ErrorIs(t, err, core.ErrNotFound, "expired session removed on lookup")

	other, err := s.Create(ctx, "u2")
	require.NoError(t, err)
	require.NoError(t, s.Revoke(ctx, other.Token))
	_, err = s.Resolve(ctx, other.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestSessions_DefaultTTL(t *testing.T) {
	s := NewSessions(newMemorySessions(), 0)
	assert.Equal(t, DefaultSessionTTL, s.ttl)
}

func TestRequireSession(t *testing.T) {
	ctx := context.Background()
	sessions := NewSessions(newMemorySessions(), time.Hour)
	sess, err := sessions.Create(ctx, "u1")
	require.NoError(t, err)

	var seen string
	h := RequireSession(sessions)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: sess.Token})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", seen)
}

func TestRequireCSRF(t *testing.T) {
	h := RequireCSRF(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	get := httptest.NewRequest(http.MethodGet, "/api/transactions", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, get)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	post := httptest.NewRequest(http.MethodPost, "/api/transactions", nil)
	post.AddCookie(&http.Cookie{Name: CSRFCookie, Value: "tok"})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, post)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	post = httptest.NewRequest(http.MethodPost, "/api/transactions", nil)
	post.AddCookie(&http.Cookie{Name: CSRFCookie, Value: "tok"})
	post.Header.Set(CSRFHeader, "tok")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, post)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestSetAndClearCookies(t *testing.T) {
	rec := httptest.NewRecorder()
	SetCookies(rec, core.Session{Token: "abc", ExpiresAt: time.Now().Add(time.Hour)}, true)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 2)
	assert.Equal(t, SessionCookie, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)
	assert.Equal(t, CSRFCookie, cookies[1].Name)
	assert.False(t, cookies[1].HttpOnly)

	rec = httptest.NewRecorder()
	ClearCookies(rec, false)
	for _, c := range rec.Result().Cookies() {
		assert.Equal(t, -1, c.MaxAge)
	}
}

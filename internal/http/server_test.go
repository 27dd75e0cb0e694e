package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/defaults"
	"fintrack/internal/services"
	"fintrack/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	*Server
	repo *storage.SQLiteRepository
}

func newTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "fintrack.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	set, err := defaults.Load("")
	require.NoError(t, err)

	loc := core.LoadLocation(core.DefaultTimezone)
	audit := services.NewAuditor(repo, nil)
	sessions := auth.NewSessions(repo, 0)
	categories := services.NewCategorizationService(repo, cache.NewLRUCache[services.RuleSet](16, time.Hour))

	svc := Services{
		Accounts:      services.NewAccountService(repo, repo, sessions, set, audit),
		Transactions:  services.NewTransactionService(repo, categories, audit, loc),
		Loans:         services.NewLoanService(repo, audit, loc),
		Bills:         services.NewBillService(repo, audit, loc),
		Goals:         services.NewGoalService(repo, audit),
		Investments:   services.NewInvestmentService(repo, audit),
		Dashboard:     services.NewDashboardService(repo, cache.NewLRUCache[services.Dashboard](16, time.Hour), loc),
		Notifications: services.NewNotificationService(repo),
		Comments:      services.NewCommentService(repo, audit),
		Reminders:     services.NewReminderProcessor(repo, nil, loc),
		Sessions:      sessions,
	}
	svc.Transactions.OnChange(svc.Dashboard.Invalidate)

	opts.Location = loc
	opts.Store = repo
	if opts.RateLimitPerMinute == 0 {
		opts.RateLimitPerMinute = 1000
	}
	s := NewServer(opts, svc)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return &testServer{Server: s, repo: repo}
}

// client replays session cookies and echoes the CSRF token like the web
// app does.
type client struct {
	t       *testing.T
	srv     *testServer
	cookies []*http.Cookie
	csrf    string
}

func (c *client) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, "http://fintrack.test"+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "http://fintrack.test")
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	if c.csrf != "" {
		req.Header.Set(auth.CSRFHeader, c.csrf)
	}
	rec := httptest.NewRecorder()
	c.srv.Handler.ServeHTTP(rec, req)

	if cks := rec.Result().Cookies(); len(cks) > 0 {
		c.cookies = cks
		for _, ck := range cks {
			if ck.Name == auth.CSRFCookie {
				c.csrf = ck.Value
			}
		}
	}
	return rec
}

func (s *testServer) register(t *testing.T, email string) *client {
	t.Helper()
	c := &client{t: t, srv: s}
	rec := c.do(http.MethodPost, "/api/auth/register", map[string]string{
		"email": email, "name": "Test", "password": "passw0rd!",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotEmpty(t, c.csrf)
	return c
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t, Options{})

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	}
}

func TestMetrics(t *testing.T) {
	srv := newTestServer(t, Options{})
	srv.Handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total 1")
	assert.Contains(t, rec.Body.String(), "rate_limit_hits_total 0")
}

func TestAPIRequiresSession(t *testing.T) {
	srv := newTestServer(t, Options{})

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterLoginLogout(t *testing.T) {
	srv := newTestServer(t, Options{})
	c := srv.register(t, "Ana@Example.com")

	rec := c.do(http.MethodGet, "/api/me", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[core.User](t, rec)
	assert.Equal(t, "ana@example.com", me.Email)
	assert.NotContains(t, rec.Body.String(), "passwordHash")

	rec = c.do(http.MethodPost, "/api/auth/register", map[string]string{
		"email": "ana@example.com", "password": "passw0rd!",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = c.do(http.MethodPost, "/api/auth/logout", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = c.do(http.MethodGet, "/api/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	fresh := &client{t: t, srv: srv}
	rec = fresh.do(http.MethodPost, "/api/auth/login", map[string]string{"email": "ana@example.com", "password": "wrong-pass1"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = fresh.do(http.MethodPost, "/api/auth/login", map[string]string{"email": "ana@example.com", "password": "passw0rd!"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusOK, fresh.do(http.MethodGet, "/api/me", nil).Code)
}

func TestRegisterValidation(t *testing.T) {
	srv := newTestServer(t, Options{})
	c := &client{t: t, srv: srv}

	rec := c.do(http.MethodPost, "/api/auth/register", map[string]string{"email": "nope", "password": "short"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decode[ErrorBody](t, rec)
	assert.Contains(t, body.Fields, "email")
	assert.Contains(t, body.Fields, "password")
}

func TestMutationsNeedCSRFAndSameOrigin(t *testing.T) {
	srv := newTestServer(t, Options{})
	c := srv.register(t, "csrf@example.com")
	tx := map[string]string{"date": "2024-05-02", "description": "Coffee", "amount": "-120"}

	token := c.csrf
	c.csrf = ""
	assert.Equal(t, http.StatusForbidden, c.do(http.MethodPost, "/api/transactions", tx).Code)
	c.csrf = token

	req := httptest.NewRequest(http.MethodPost, "http://fintrack.test/api/transactions", strings.NewReader(`{}`))
	req.Header.Set("Origin", "http://evil.test")
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	req.Header.Set(auth.CSRFHeader, c.csrf)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	assert.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/api/transactions", tx).Code)
}

func TestTransactionLifecycle(t *testing.T) {
	srv := newTestServer(t, Options{})
	c := srv.register(t, "tx@example.com")

	rec := c.do(http.MethodPost, "/api/transactions", map[string]string{
		"date": "02/05/2024", "description": "WINNERS Phoenix", "amount": "-1,250.50",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[core.Transaction](t, rec)
	groceries, err := srv.repo.FindCategoryByName(context.Background(), created.UserID, "Groceries")
	require.NoError(t, err)
	assert.Equal(t, groceries.ID, created.CategoryID, "categorized by the keyword dictionary")
	assert.Equal(t, "-1250.5", created.Amount.String())
	assert.Equal(t, "MUR", created.Currency)

	rec = c.do(http.MethodGet, "/api/transactions?month=2024-05", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]core.Transaction](t, rec), 1)

	dining, err := srv.repo.FindCategoryByName(context.Background(), created.UserID, "Dining")
	require.NoError(t, err)
	rec = c.do(http.MethodPost, "/api/transactions/"+created.ID+"/category", map[string]any{
		"categoryId": dining.ID, "saveRule": true,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = c.do(http.MethodPost, "/api/transactions/explain", map[string]string{"description": "WINNERS Phoenix"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), dining.ID)

	rec = c.do(http.MethodGet, "/api/dashboard?month=2024-05", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"monthlyVolume":"1250.5"`)

	assert.Equal(t, http.StatusNoContent, c.do(http.MethodDelete, "/api/transactions/"+created.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, c.do(http.MethodDelete, "/api/transactions/"+created.ID, nil).Code)
}

func TestCreateTransactionValidation(t *testing.T) {
	srv := newTestServer(t, Options{})
	c := srv.register(t, "bad@example.com")

	rec := c.do(http.MethodPost, "/api/transactions", map[string]string{"date": "31/02/2024x", "amount": "abc"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decode[ErrorBody](t, rec)
	assert.Contains(t, body.Fields, "date")
	assert.Contains(t, body.Fields, "amount")

	req := httptest.NewRequest(http.MethodPost, "http://fintrack.test/api/transactions", strings.NewReader("{not json"))
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	req.Header.Set(auth.CSRFHeader, c.csrf)
	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImportDryRunAndCommit(t *testing.T) {
	srv := newTestServer(t, Options{})
	c := srv.register(t, "import@example.com")
	mapping := map[string]string{"date": "Date", "description": "Details", "amount": "Amount"}

	rec := c.do(http.MethodPost, "/api/transactions/import", map[string]any{
		"mapping": mapping,
		"dryRun":  true,
		"rows": []map[string]string{
			{"Date": "01/05/2024", "Details": "CEB bill", "Amount": "-2,100"},
			{"Date": "bad", "Details": "x", "Amount": "1"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	dry := decode[importResponse](t, rec)
	assert.Equal(t, 1, dry.Count)
	require.Len(t, dry.Errors, 1)
	assert.Equal(t, 2, dry.Errors[0].Row)
	assert.Equal(t, "Invalid date", dry.Errors[0].Message)

	rec = c.do(http.MethodPost, "/api/transactions/import", map[string]any{
		"mapping": mapping,
		"rows":    []map[string]string{{"Date": "bad", "Details": "x", "Amount": "1"}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = c.do(http.MethodPost, "/api/transactions/import", map[string]any{
		"mapping": mapping,
		"rows":    []map[string]string{{"Date": "01/05/2024", "Details": "CEB bill", "Amount": "-2,100"}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = c.do(http.MethodGet, "/api/transactions/export?from=2024-05-01&to=2024-05-31", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "CEB bill")
	assert.Contains(t, rec.Body.String(), "Utilities")
}

func TestLoanEndpoints(t *testing.T) {
	srv := newTestServer(t, Options{})
	c := srv.register(t, "loan@example.com")

	rec := c.do(http.MethodPost, "/api/loans", map[string]any{
		"name": "Car", "principal": "10000", "apr": "10", "termMonths": 12,
		"paymentDay": 5, "monthlyPayment": "879.16",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	loan := decode[core.Loan](t, rec)
	assert.Equal(t, "10000", loan.CurrentBalance.String())

	rec = c.do(http.MethodPost, "/api/loans/"+loan.ID+"/payments", map[string]bool{"createTransaction": true})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	payment := decode[core.LoanPayment](t, rec)
	assert.Equal(t, "879.16", payment.Amount.String())
	assert.Equal(t, "83.33", payment.Interest.String())
	assert.NotEmpty(t, payment.TransactionID)

	rec = c.do(http.MethodGet, "/api/loans/"+loan.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"currentBalance":"9204.17"`)

	rec = c.do(http.MethodPut, "/api/loans/"+loan.ID+"/balance", map[string]string{"balance": "0"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = c.do(http.MethodPost, "/api/loans/"+loan.ID+"/payments", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	assert.Equal(t, http.StatusNotFound, c.do(http.MethodGet, "/api/loans/missing", nil).Code)
}

func TestBillsGoalsAndInvestments(t *testing.T) {
	srv := newTestServer(t, Options{})
	c := srv.register(t, "plan@example.com")

	rec := c.do(http.MethodPost, "/api/bills", map[string]any{
		"name": "Internet", "amount": "1500", "frequency": "monthly", "dueDay": 10,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	bill := decode[core.Bill](t, rec)
	assert.True(t, bill.Active)

	rec = c.do(http.MethodPost, "/api/bills/"+bill.ID+"/paid", map[string]bool{"createTransaction": true})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = c.do(http.MethodGet, "/api/notifications", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Bill marked paid")

	rec = c.do(http.MethodPost, "/api/goals", map[string]string{"name": "Trip", "targetAmount": "1000"})
	require.Equal(t, http.StatusCreated, rec.Code)
	goal := decode[core.Goal](t, rec)
	rec = c.do(http.MethodPost, "/api/goals/"+goal.ID+"/contributions", map[string]string{"amount": "250"})
	require.Equal(t, http.StatusCreated, rec.Code)
	progress := decode[services.GoalProgress](t, rec)
	assert.Equal(t, 25, progress.Progress)

	rec = c.do(http.MethodPost, "/api/investments/accounts", map[string]string{"name": "Broker"})
	require.Equal(t, http.StatusCreated, rec.Code)
	account := decode[core.InvestmentAccount](t, rec)
	rec = c.do(http.MethodPost, "/api/investments/transactions", map[string]string{
		"accountId": account.ID, "type": "buy", "symbol": "mcb", "quantity": "10", "price": "100", "amount": "1000",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = c.do(http.MethodGet, "/api/investments", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"symbol":"MCB"`)
	assert.Contains(t, rec.Body.String(), `"value":"1000"`)
}

func TestCronDaily(t *testing.T) {
	srv := newTestServer(t, Options{CronSecret: "s3cret"})
	post := func(secret string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/cron/daily", nil)
		if secret != "" {
			req.Header.Set("X-Cron-Secret", secret)
		}
		rec := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusUnauthorized, post("").Code)
	assert.Equal(t, http.StatusUnauthorized, post("wrong").Code)

	loc := core.LoadLocation(core.DefaultTimezone)
	srv.now = func() time.Time { return time.Date(2024, 5, 10, 6, 0, 0, 0, loc) }
	rec := post("s3cret")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, services.ReminderResult{Skipped: true}, decode[services.ReminderResult](t, rec))

	srv.now = func() time.Time { return time.Date(2024, 5, 10, 9, 0, 0, 0, loc) }
	rec = post("s3cret")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, services.ReminderResult{Count: 0}, decode[services.ReminderResult](t, rec))
}

func TestRateLimitOnMutations(t *testing.T) {
	srv := newTestServer(t, Options{RateLimitPerMinute: 2})
	c := &client{t: t, srv: srv}
	creds := map[string]string{"email": "rl@example.com", "password": "passw0rd!"}

	assert.Equal(t, http.StatusUnauthorized, c.do(http.MethodPost, "/api/auth/login", creds).Code)
	assert.Equal(t, http.StatusUnauthorized, c.do(http.MethodPost, "/api/auth/login", creds).Code)
	rec := c.do(http.MethodPost, "/api/auth/login", creds)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/healthz", nil).Code)
}

func TestRateLimitKeysOnForwardedIPBehindTrustedProxy(t *testing.T) {
	srv := newTestServer(t, Options{RateLimitPerMinute: 1, TrustedProxies: []string{"192.0.2.0/24"}})
	login := func(remote, forwarded string) int {
		req := httptest.NewRequest(http.MethodPost, "http://fintrack.test/api/auth/login",
			strings.NewReader(`{"email":"x@example.com","password":"passw0rd!"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Origin", "http://fintrack.test")
		req.Header.Set("X-Forwarded-For", forwarded)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rec, req)
		return rec.Code
	}

	// Behind the configured proxy each forwarded client has its own budget.
	assert.Equal(t, http.StatusUnauthorized, login("192.0.2.10:4000", "198.51.100.1"))
	assert.Equal(t, http.StatusUnauthorized, login("192.0.2.10:4000", "198.51.100.2"))

	// Forwarded headers from an untrusted peer are ignored.
	assert.Equal(t, http.StatusUnauthorized, login("203.0.113.9:4000", "198.51.100.3"))
	assert.Equal(t, http.StatusTooManyRequests, login("203.0.113.9:4000", "198.51.100.4"))
}

func TestComments(t *testing.T) {
	srv := newTestServer(t, Options{})
	c := srv.register(t, "comments@example.com")

	rec := c.do(http.MethodPost, "/api/comments", map[string]string{"body": "  Great budgeting app  "})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Great budgeting app", decode[core.Comment](t, rec).Body)

	rec = c.do(http.MethodPost, "/api/comments", map[string]string{"body": "   "})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	rec = c.do(http.MethodPost, "/api/comments", map[string]string{"body": strings.Repeat("a", core.MaxCommentLength+1)})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"body"`)

	rec = c.do(http.MethodGet, "/api/comments", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]core.Comment](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "Great budgeting app", list[0].Body)
}

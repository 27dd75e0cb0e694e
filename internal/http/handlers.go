package http

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
	})
}

// handleReady checks that the database answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]string{"database": "ok"}
	status, code := "ready", http.StatusOK
	if s.opts.Store == nil {
		checks["database"] = "not_configured"
		status, code = "not_ready", http.StatusServiceUnavailable
	} else if err := s.opts.Store.Ping(ctx); err != nil {
		checks["database"] = "failed: " + err.Error()
		status, code = "not_ready", http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics writes request, security and rate limit counters in the
// Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	traceMetrics := s.tracer.GetMetrics()
	securityMetrics := s.detector.GetMetrics()
	rateLimitMetrics := s.limiter.GetMetrics()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	metric := func(name, typ, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, typ, name, value)
	}
	metric("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	metric("http_server_errors_total", "counter", "Responses with a 5xx status", traceMetrics.ServerErrors)
	metric("http_response_time_avg_microseconds", "gauge", "Mean response time", traceMetrics.AverageResponseTime)
	metric("rate_limit_hits_total", "counter", "Requests rejected by the rate limiter", rateLimitMetrics.TotalHits)
	metric("rate_limit_clients", "gauge", "Clients tracked by the rate limiter", rateLimitMetrics.ClientCount)
	metric("security_suspicious_requests_total", "counter", "Requests flagged as suspicious", securityMetrics.SuspiciousRequests)
	metric("security_blocked_requests_total", "counter", "Requests refused by the detector", securityMetrics.BlockedRequests)
	metric("process_uptime_seconds", "gauge", "Seconds since the server started", int64(time.Since(s.startedAt).Seconds()))
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type sessionResponse struct {
	User      core.User `json:"user"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	u, sess, err := s.svc.Accounts.Register(r.Context(), req.Email, sanitizeInput(req.Name), req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	auth.SetCookies(w, sess, s.opts.CookieSecure)
	writeJSON(w, http.StatusCreated, sessionResponse{User: u, ExpiresAt: sess.ExpiresAt})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	u, sess, err := s.svc.Accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	auth.SetCookies(w, sess, s.opts.CookieSecure)
	writeJSON(w, http.StatusOK, sessionResponse{User: u, ExpiresAt: sess.ExpiresAt})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Accounts.Logout(r.Context(), userID(r), sessionToken(r)); err != nil {
		writeError(w, r, err)
		return
	}
	auth.ClearCookies(w, s.opts.CookieSecure)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u, err := s.svc.Accounts.Me(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.svc.Accounts.Categories(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	month, err := ParseMonth(r.URL.Query(), s.localNow())
	if err != nil {
		writeError(w, r, err)
		return
	}
	d, err := s.svc.Dashboard.Get(r.Context(), userID(r), month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	items, err := s.svc.Notifications.List(r.Context(), userID(r), ParseLimit(r.URL.Query(), 20, 100))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Notifications.MarkRead(r.Context(), userID(r), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type commentRequest struct {
	Body string `json:"body"`
}

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	items, err := s.svc.Comments.List(r.Context(), userID(r), ParseLimit(r.URL.Query(), 20, 100))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.svc.Comments.Create(r.Context(), userID(r), sanitizeInput(req.Body))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// handleCronDaily runs the bill reminder pass. It is called by an external
// scheduler holding the shared secret, never by browsers.
func (s *Server) handleCronDaily(w http.ResponseWriter, r *http.Request) {
	secret := r.Header.Get("X-Cron-Secret")
	if s.opts.CronSecret == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(s.opts.CronSecret)) != 1 {
		writeError(w, r, fmt.Errorf("%w: invalid cron secret", auth.ErrUnauthenticated))
		return
	}
	res, err := s.svc.Reminders.ProcessDue(r.Context(), s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Daily cron completed",
		log.FieldOperation, log.OpRemind, log.FieldCount, res.Count, "skipped", res.Skipped)
	writeJSON(w, http.StatusOK, res)
}

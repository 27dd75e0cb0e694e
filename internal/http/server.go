package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services groups the application services the handlers call.
type Services struct {
	Accounts      *services.AccountService
	Transactions  *services.TransactionService
	Loans         *services.LoanService
	Bills         *services.BillService
	Goals         *services.GoalService
	Investments   *services.InvestmentService
	Dashboard     *services.DashboardService
	Notifications *services.NotificationService
	Comments      *services.CommentService
	Reminders     *services.ReminderProcessor
	Sessions      *auth.Sessions
}

// Options configures the server.
type Options struct {
	Addr               string
	CookieSecure       bool
	RateLimitPerMinute int
	CronSecret         string
	TrustedProxies     []string
	Location           *time.Location
	Logger             *log.Logger
	Store              Pinger
}

type Server struct {
	http.Server
	svc  Services
	opts Options

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	startedAt    time.Time
	now          func() time.Time
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// server.
func NewServer(opts Options, svc Services) *Server {
	if opts.Location == nil {
		opts.Location = core.LoadLocation("")
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentHTTP)
	}

	s := &Server{
		svc:       svc,
		opts:      opts,
		limiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector:  security.NewDetector(),
		startedAt: time.Now(),
		now:       time.Now,
	}
	for _, cidr := range opts.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			opts.Logger.Warn("Ignoring trusted proxy", log.FieldError, err)
		}
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/cron/daily", s.handleCronDaily)

	api := http.NewServeMux()
	s.registerAPI(api)
	mux.Handle("/api/", auth.RequireSession(svc.Sessions)(auth.RequireCSRF(api)))

	var handler http.Handler = mux
	handler = security.RequireSameOrigin(rejectForbidden)(handler)
	handler = s.limiter.Middleware(s.detector.ExtractClientIP, rejectRateLimited)(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.detector.Middleware(handler)
	handler = s.tracer.Middleware(handler)
	handler = log.Middleware(opts.Logger)(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) registerAPI(api *http.ServeMux) {
	api.HandleFunc("POST /api/auth/logout", s.handleLogout)
	api.HandleFunc("GET /api/me", s.handleMe)
	api.HandleFunc("GET /api/categories", s.handleListCategories)
	api.HandleFunc("GET /api/dashboard", s.handleDashboard)

	api.HandleFunc("GET /api/transactions", s.handleListTransactions)
	api.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	api.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)
	api.HandleFunc("POST /api/transactions/{id}/category", s.handleRecategorize)
	api.HandleFunc("POST /api/transactions/explain", s.handleExplain)
	api.HandleFunc("POST /api/transactions/import", s.handleImport)
	api.HandleFunc("GET /api/transactions/export", s.handleExport)

	api.HandleFunc("GET /api/loans", s.handleListLoans)
	api.HandleFunc("POST /api/loans", s.handleCreateLoan)
	api.HandleFunc("GET /api/loans/{id}", s.handleGetLoan)
	api.HandleFunc("GET /api/loans/{id}/payments", s.handleListLoanPayments)
	api.HandleFunc("POST /api/loans/{id}/payments", s.handleRecordLoanPayment)
	api.HandleFunc("PUT /api/loans/{id}/balance", s.handleOverrideLoanBalance)

	api.HandleFunc("GET /api/bills", s.handleListBills)
	api.HandleFunc("POST /api/bills", s.handleCreateBill)
	api.HandleFunc("POST /api/bills/{id}/toggle", s.handleToggleBill)
	api.HandleFunc("POST /api/bills/{id}/paid", s.handleMarkBillPaid)

	api.HandleFunc("GET /api/goals", s.handleListGoals)
	api.HandleFunc("POST /api/goals", s.handleCreateGoal)
	api.HandleFunc("GET /api/goals/{id}/contributions", s.handleListContributions)
	api.HandleFunc("POST /api/goals/{id}/contributions", s.handleContribute)

	api.HandleFunc("GET /api/investments", s.handlePortfolio)
	api.HandleFunc("POST /api/investments/accounts", s.handleCreateInvestmentAccount)
	api.HandleFunc("GET /api/investments/accounts/{id}/transactions", s.handleListInvestmentTransactions)
	api.HandleFunc("POST /api/investments/holdings", s.handleSaveHolding)
	api.HandleFunc("PUT /api/investments/holdings/{id}/price", s.handleUpdatePrice)
	api.HandleFunc("POST /api/investments/transactions", s.handleAddInvestmentTransaction)

	api.HandleFunc("GET /api/notifications", s.handleListNotifications)
	api.HandleFunc("POST /api/notifications/{id}/read", s.handleMarkNotificationRead)

	api.HandleFunc("GET /api/comments", s.handleListComments)
	api.HandleFunc("POST /api/comments", s.handleCreateComment)
}

// Shutdown stops background goroutines and the HTTP server. Safe to call
// more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// localNow is the current time in the configured zone.
func (s *Server) localNow() time.Time {
	return s.now().In(s.opts.Location)
}

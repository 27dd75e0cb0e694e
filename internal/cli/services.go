package cli

import (
	"fmt"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/auth"
	"fintrack/internal/cache"
	"fintrack/internal/config"
	"fintrack/internal/defaults"
	apphttp "fintrack/internal/http"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

const (
	ruleCacheSize      = 512
	ruleCacheTTL       = 10 * time.Minute
	dashboardCacheSize = 256
	dashboardCacheTTL  = 2 * time.Minute
)

// Publisher adapts an optional AMQP client. A nil client yields a nil
// interface so services skip publishing.
func Publisher(client *amqp.Client) services.EventPublisher {
	if client == nil {
		return nil
	}
	return client
}

// NewServices wires every application service to repo. The returned cache
// manager sweeps the rule and dashboard caches once started.
func NewServices(cfg *config.Config, repo *storage.SQLiteRepository, publisher services.EventPublisher) (apphttp.Services, *cache.Manager, error) {
	set, err := defaults.Load(cfg.DefaultsFile)
	if err != nil {
		return apphttp.Services{}, nil, fmt.Errorf("load defaults: %w", err)
	}

	loc := cfg.Location()
	audit := services.NewAuditor(repo, publisher)
	sessions := auth.NewSessions(repo, cfg.SessionTTL)

	ruleCache := cache.NewLRUCache[services.RuleSet](ruleCacheSize, ruleCacheTTL)
	dashboardCache := cache.NewLRUCache[services.Dashboard](dashboardCacheSize, dashboardCacheTTL)
	manager := cache.NewManager()
	manager.Register("rules", ruleCache)
	manager.Register("dashboard", dashboardCache)

	categories := services.NewCategorizationService(repo, ruleCache)
	svc := apphttp.Services{
		Accounts:      services.NewAccountService(repo, repo, sessions, set, audit),
		Transactions:  services.NewTransactionService(repo, categories, audit, loc),
		Loans:         services.NewLoanService(repo, audit, loc),
		Bills:         services.NewBillService(repo, audit, loc),
		Goals:         services.NewGoalService(repo, audit),
		Investments:   services.NewInvestmentService(repo, audit),
		Dashboard:     services.NewDashboardService(repo, dashboardCache, loc),
		Notifications: services.NewNotificationService(repo),
		Comments:      services.NewCommentService(repo, audit),
		Reminders:     services.NewReminderProcessor(repo, publisher, loc),
		Sessions:      sessions,
	}
	for _, s := range []interface{ OnChange(func(string)) }{
		svc.Transactions, svc.Loans, svc.Bills, svc.Goals,
		svc.Investments, svc.Notifications, svc.Reminders,
	} {
		s.OnChange(svc.Dashboard.Invalidate)
	}
	return svc, manager, nil
}

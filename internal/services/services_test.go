package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/auth"
	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/defaults"
	"fintrack/internal/storage"

	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	mu     sync.Mutex
	events []*amqp.Event
	keys   []string
}

func (p *fakePublisher) Publish(_ context.Context, routingKey string, e *amqp.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, routingKey)
	p.events = append(p.events, e)
	return nil
}

func (p *fakePublisher) routingKeys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.keys...)
}

// testEnv wires every service to one temporary database.
type testEnv struct {
	repo      *storage.SQLiteRepository
	publisher *fakePublisher
	loc       *time.Location

	categories   *CategorizationService
	transactions *TransactionService
	loans        *LoanService
	bills        *BillService
	goals        *GoalService
	investments  *InvestmentService
	accounts     *AccountService
	dashboard    *DashboardService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "fintrack.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	set, err := defaults.Load("")
	require.NoError(t, err)

	loc := core.LoadLocation(core.DefaultTimezone)
	pub := &fakePublisher{}
	audit := NewAuditor(repo, pub)

	env := &testEnv{repo: repo, publisher: pub, loc: loc}
	env.categories = NewCategorizationService(repo, cache.NewLRUCache[RuleSet](16, time.Hour))
	env.transactions = NewTransactionService(repo, env.categories, audit, loc)
	env.loans = NewLoanService(repo, audit, loc)
	env.bills = NewBillService(repo, audit, loc)
	env.goals = NewGoalService(repo, audit)
	env.investments = NewInvestmentService(repo, audit)
	env.accounts = NewAccountService(repo, repo, auth.NewSessions(repo, 0), set, audit)
	env.dashboard = NewDashboardService(repo, cache.NewLRUCache[Dashboard](16, time.Hour), loc)
	for _, svc := range []interface{ OnChange(func(string)) }{
		env.transactions, env.loans, env.bills, env.goals, env.investments,
	} {
		svc.OnChange(env.dashboard.Invalidate)
	}
	return env
}

// newUser registers a user with the default categories and keywords.
func (e *testEnv) newUser(t *testing.T, email string) core.User {
	t.Helper()
	u, _, err := e.accounts.Register(context.Background(), email, "Test", "passw0rd!")
	require.NoError(t, err)
	return u
}

func (e *testEnv) categoryID(t *testing.T, userID, name string) string {
	t.Helper()
	c, err := e.repo.FindCategoryByName(context.Background(), userID, name)
	require.NoError(t, err)
	return c.ID
}

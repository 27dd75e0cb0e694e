package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/storage"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	dashboardRecent        = 8
	dashboardUpcomingBills = 5
	dashboardNotifications = 10
	dashboardTopGoals      = 3
)

type DashboardStore interface {
	ListTransactions(ctx context.Context, f storage.TransactionFilter) ([]core.Transaction, error)
	ListCategories(ctx context.Context, userID string) ([]core.Category, error)
	ListUpcomingBills(ctx context.Context, userID string, limit int) ([]core.Bill, error)
	ListGoals(ctx context.Context, userID string) ([]core.Goal, error)
	ListLoans(ctx context.Context, userID string) ([]core.Loan, error)
	ListHoldings(ctx context.Context, userID string) ([]core.Holding, error)
	ListNotifications(ctx context.Context, userID string, limit int) ([]core.Notification, error)
}

type CategoryTotal struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// Dashboard is the month overview shown after sign-in.
type Dashboard struct {
	Month              string              `json:"month"`
	RecentTransactions []core.Transaction  `json:"recentTransactions"`
	TotalsByCategory   []CategoryTotal     `json:"totalsByCategory"`
	MonthlyVolume      decimal.Decimal     `json:"monthlyVolume"`
	UpcomingBills      []core.Bill         `json:"upcomingBills"`
	TopGoals           []GoalProgress      `json:"topGoals"`
	SavingsRate        int                 `json:"savingsRate"`
	LoanBalance        decimal.Decimal     `json:"loanBalance"`
	LoanProgress       int                 `json:"loanProgress"`
	PortfolioValue     decimal.Decimal     `json:"portfolioValue"`
	Notifications      []core.Notification `json:"notifications"`
	CategoryNames      map[string]string   `json:"categoryNames,omitempty"`
}

type DashboardService struct {
	store DashboardStore
	cache cache.Cache[Dashboard]
	loc   *time.Location
}

// NewDashboardService creates the service. c may be nil to disable caching.
func NewDashboardService(store DashboardStore, c cache.Cache[Dashboard], loc *time.Location) *DashboardService {
	if loc == nil {
		loc = time.UTC
	}
	return &DashboardService{store: store, cache: c, loc: loc}
}

// Invalidate drops every cached month for the user.
func (s *DashboardService) Invalidate(userID string) {
	if s.cache != nil {
		s.cache.DeletePrefix(userID + ":")
	}
}

// Get builds the overview for the month containing month.
func (s *DashboardService) Get(ctx context.Context, userID string, month time.Time) (Dashboard, error) {
	month = month.In(s.loc)
	key := userID + ":" + month.Format("2006-01")
	if s.cache != nil {
		if d, ok := s.cache.Get(key); ok {
			return d, nil
		}
	}

	var (
		txs           []core.Transaction
		categories    []core.Category
		bills         []core.Bill
		goals         []core.Goal
		loans         []core.Loan
		holdings      []core.Holding
		notifications []core.Notification
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		txs, err = s.store.ListTransactions(gctx, storage.TransactionFilter{
			UserID: userID,
			From:   core.StartOfMonth(month),
			To:     core.EndOfMonth(month),
		})
		return err
	})
	g.Go(func() (err error) {
		categories, err = s.store.ListCategories(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		bills, err = s.store.ListUpcomingBills(gctx, userID, dashboardUpcomingBills)
		return err
	})
	g.Go(func() (err error) {
		goals, err = s.store.ListGoals(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		loans, err = s.store.ListLoans(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		holdings, err = s.store.ListHoldings(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		notifications, err = s.store.ListNotifications(gctx, userID, dashboardNotifications)
		return err
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, fmt.Errorf("load dashboard: %w", err)
	}

	d := buildDashboard(month, txs, categories, goals, loans, holdings)
	d.UpcomingBills = bills
	d.Notifications = notifications

	if s.cache != nil {
		s.cache.Set(key, d)
	}
	return d, nil
}

func buildDashboard(month time.Time, txs []core.Transaction, categories []core.Category,
	goals []core.Goal, loans []core.Loan, holdings []core.Holding) Dashboard {
	d := Dashboard{
		Month:          month.Format("2006-01"),
		MonthlyVolume:  decimal.Zero,
		LoanBalance:    decimal.Zero,
		PortfolioValue: PortfolioValue(holdings),
		CategoryNames:  make(map[string]string, len(categories)),
	}
	for _, c := range categories {
		d.CategoryNames[c.ID] = c.Name
	}

	d.RecentTransactions = txs[:min(len(txs), dashboardRecent)]
	sums := make(map[string]decimal.Decimal)
	var order []string
	for _, t := range txs {
		name, ok := d.CategoryNames[t.CategoryID]
		if !ok {
			name = "Uncategorized"
		}
		if _, seen := sums[name]; !seen {
			order = append(order, name)
		}
		sums[name] = sums[name].Add(t.Amount)
		d.MonthlyVolume = d.MonthlyVolume.Add(t.Amount.Abs())
	}
	for _, name := range order {
		d.TotalsByCategory = append(d.TotalsByCategory, CategoryTotal{Category: name, Amount: sums[name]})
	}
	sort.SliceStable(d.TotalsByCategory, func(i, j int) bool {
		return d.TotalsByCategory[i].Amount.GreaterThan(d.TotalsByCategory[j].Amount)
	})

	goalCurrent, goalTarget := decimal.Zero, decimal.Zero
	for _, g := range goals {
		goalCurrent = goalCurrent.Add(g.CurrentAmount)
		goalTarget = goalTarget.Add(decimal.Max(g.TargetAmount, decimal.Zero))
		d.TopGoals = append(d.TopGoals, GoalProgress{Goal: g, Progress: progress(g.CurrentAmount, g.TargetAmount)})
	}
	d.SavingsRate = progress(goalCurrent, goalTarget)
	sort.SliceStable(d.TopGoals, func(i, j int) bool { return d.TopGoals[i].Progress > d.TopGoals[j].Progress })
	d.TopGoals = d.TopGoals[:min(len(d.TopGoals), dashboardTopGoals)]

	principal := decimal.Zero
	for _, l := range loans {
		d.LoanBalance = d.LoanBalance.Add(l.CurrentBalance)
		principal = principal.Add(decimal.Max(l.Principal, decimal.Zero))
	}
	d.LoanProgress = progress(principal.Sub(d.LoanBalance), principal)
	return d
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/core"
	apphttp "fintrack/internal/http"
	"fintrack/internal/services"

	"github.com/shopspring/decimal"
)

const (
	DemoEmail    = "demo@fintrack.local"
	DemoPassword = "demo1234"
)

// SeedDemo registers the demo user with a month of sample activity. An
// existing demo user is returned untouched.
func SeedDemo(ctx context.Context, svc apphttp.Services) (core.User, error) {
	u, _, err := svc.Accounts.Register(ctx, DemoEmail, "Demo", DemoPassword)
	if errors.Is(err, core.ErrEmailTaken) {
		u, _, err = svc.Accounts.Login(ctx, DemoEmail, DemoPassword)
		return u, err
	}
	if err != nil {
		return u, fmt.Errorf("register demo user: %w", err)
	}

	now := time.Now()
	day := func(offset int) time.Time { return core.StartOfDay(now.AddDate(0, 0, -offset)) }

	for i, t := range []struct {
		desc   string
		amount string
	}{
		{"Winners Phoenix groceries", "-2450.75"},
		{"CEB electricity", "-1875"},
		{"Shell Ebene fuel", "-1500"},
		{"Emtel prepaid", "-499"},
		{"Salary", "65000"},
	} {
		if _, err := svc.Transactions.Create(ctx, core.Transaction{
			UserID:      u.ID,
			Date:        day(i * 3),
			Description: t.desc,
			Amount:      decimal.RequireFromString(t.amount),
			Currency:    core.DefaultCurrency,
		}); err != nil {
			return u, fmt.Errorf("seed transaction: %w", err)
		}
	}

	if _, err := svc.Loans.Create(ctx, core.Loan{
		UserID:         u.ID,
		Name:           "Car loan",
		Principal:      decimal.NewFromInt(450000),
		APR:            decimal.RequireFromString("6.5"),
		TermMonths:     60,
		PaymentDay:     5,
		MonthlyPayment: decimal.RequireFromString("8804.78"),
		CurrentBalance: decimal.NewFromInt(380000),
	}); err != nil {
		return u, fmt.Errorf("seed loan: %w", err)
	}

	if _, err := svc.Bills.Create(ctx, core.Bill{
		UserID:      u.ID,
		Name:        "Internet",
		Amount:      decimal.NewFromInt(1500),
		Currency:    core.DefaultCurrency,
		Frequency:   core.Monthly,
		DueDay:      10,
		NextDueDate: day(-7),
	}); err != nil {
		return u, fmt.Errorf("seed bill: %w", err)
	}

	goal, err := svc.Goals.Create(ctx, core.Goal{
		UserID:       u.ID,
		Name:         "Emergency fund",
		TargetAmount: decimal.NewFromInt(150000),
		TargetDate:   core.AddMonths(now, 12),
	})
	if err != nil {
		return u, fmt.Errorf("seed goal: %w", err)
	}
	if _, err := svc.Goals.Contribute(ctx, u.ID, goal.ID, decimal.NewFromInt(25000), false); err != nil {
		return u, fmt.Errorf("seed contribution: %w", err)
	}

	account, err := svc.Investments.CreateAccount(ctx, core.InvestmentAccount{
		UserID:   u.ID,
		Name:     "Brokerage",
		Currency: core.DefaultCurrency,
	})
	if err != nil {
		return u, fmt.Errorf("seed investment account: %w", err)
	}
	if _, err := svc.Investments.AddTransaction(ctx, u.ID, services.TradeInput{
		AccountID: account.ID,
		Type:      core.Buy,
		Symbol:    "MCBG",
		Quantity:  decimal.NewFromInt(20),
		Price:     decimal.NewFromInt(420),
		Amount:    decimal.NewFromInt(8400),
		Date:      day(10),
	}); err != nil {
		return u, fmt.Errorf("seed trade: %w", err)
	}
	return u, nil
}

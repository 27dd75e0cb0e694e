package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/amortization"
	"fintrack/internal/core"
	"fintrack/internal/log"

	"github.com/shopspring/decimal"
)

type LoanStore interface {
	CreateLoan(ctx context.Context, l *core.Loan) error
	GetLoan(ctx context.Context, userID, id string) (core.Loan, error)
	ListLoans(ctx context.Context, userID string) ([]core.Loan, error)
	UpdateLoanBalance(ctx context.Context, userID, id string, balance decimal.Decimal) error
	RecordLoanPayment(ctx context.Context, p *core.LoanPayment, linked *core.Transaction, newBalance decimal.Decimal) error
	ListLoanPayments(ctx context.Context, loanID string) ([]core.LoanPayment, error)
}

// LoanOverview is a loan with its projected payoff from the current balance.
type LoanOverview struct {
	Loan            core.Loan             `json:"loan"`
	Schedule        amortization.Schedule `json:"schedule"`
	Summary         amortization.Summary  `json:"summary"`
	NextPayment     *amortization.Row     `json:"nextPayment,omitempty"`
	NextPaymentDate time.Time             `json:"nextPaymentDate"`
	Progress        int                   `json:"progress"`
}

type LoanService struct {
	store    LoanStore
	audit    *Auditor
	onChange func(userID string)
	loc      *time.Location
	now      func() time.Time
}

func NewLoanService(store LoanStore, audit *Auditor, loc *time.Location) *LoanService {
	if loc == nil {
		loc = time.UTC
	}
	return &LoanService{store: store, audit: audit, onChange: func(string) {}, loc: loc, now: time.Now}
}

func (s *LoanService) OnChange(fn func(userID string)) {
	if fn != nil {
		s.onChange = fn
	}
}

func (s *LoanService) Create(ctx context.Context, l core.Loan) (core.Loan, error) {
	if err := l.Validate(); err != nil {
		return l, err
	}
	if err := s.store.CreateLoan(ctx, &l); err != nil {
		return l, fmt.Errorf("create loan: %w", err)
	}
	s.audit.Record(ctx, l.UserID, "loan.created", map[string]any{"name": l.Name})
	s.onChange(l.UserID)
	return l, nil
}

// RecordPayment books the next scheduled payment: the first row of the
// schedule projected from the current balance becomes a PAID LoanPayment
// and its closing balance becomes the loan's balance. With createTx the
// payment is also written to the ledger.
func (s *LoanService) RecordPayment(ctx context.Context, userID, loanID string, createTx bool) (core.LoanPayment, error) {
	loan, err := s.store.GetLoan(ctx, userID, loanID)
	if err != nil {
		return core.LoanPayment{}, err
	}
	if !loan.CurrentBalance.IsPositive() {
		return core.LoanPayment{}, core.ErrNothingToPay
	}

	schedule := amortization.GenerateScheduleWithPayment(loan.CurrentBalance, loan.APR, loan.TermMonths, loan.MonthlyPayment)
	if len(schedule) == 0 {
		return core.LoanPayment{}, core.ErrNothingToPay
	}
	next := schedule[0]

	now := s.now()
	payment := core.LoanPayment{
		LoanID:    loan.ID,
		Date:      now,
		Amount:    next.Payment,
		Principal: next.Principal,
		Interest:  next.Interest,
		Status:    core.PaymentPaid,
	}
	var linked *core.Transaction
	if createTx {
		linked = &core.Transaction{
			UserID:      userID,
			Date:        now,
			Description: "Loan payment: " + loan.Name,
			Amount:      next.Payment,
			Currency:    core.DefaultCurrency,
			Source:      core.SourceLoan,
		}
	}

	if err := s.store.RecordLoanPayment(ctx, &payment, linked, next.Balance); err != nil {
		return payment, fmt.Errorf("record loan payment: %w", err)
	}

	slog.InfoContext(ctx, "Loan payment recorded", log.NewFields().
		WithComponent(log.ComponentLoans).
		WithLoan(loan.ID).
		WithAmount(next.Payment.String()).
		ToSlice()...)
	s.audit.Record(ctx, userID, "loan.payment", map[string]any{
		"loanId":   loan.ID,
		"amount":   next.Payment.String(),
		"createTx": createTx,
	})
	s.onChange(userID)
	return payment, nil
}

// OverrideBalance replaces the outstanding balance, e.g. after a lender statement.
func (s *LoanService) OverrideBalance(ctx context.Context, userID, loanID string, balance decimal.Decimal) error {
	if balance.IsNegative() {
		return core.ValidationError{Field: "balance", Err: core.ErrInvalidAmount}
	}
	if err := s.store.UpdateLoanBalance(ctx, userID, loanID, balance); err != nil {
		return fmt.Errorf("override loan balance: %w", err)
	}
	s.audit.Record(ctx, userID, "loan.balance_override", map[string]any{
		"loanId":  loanID,
		"balance": balance.String(),
	})
	s.onChange(userID)
	return nil
}

func (s *LoanService) Overview(ctx context.Context, userID, loanID string) (LoanOverview, error) {
	loan, err := s.store.GetLoan(ctx, userID, loanID)
	if err != nil {
		return LoanOverview{}, err
	}
	return s.overview(loan), nil
}

func (s *LoanService) List(ctx context.Context, userID string) ([]LoanOverview, error) {
	loans, err := s.store.ListLoans(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	out := make([]LoanOverview, len(loans))
	for i, l := range loans {
		out[i] = s.overview(l)
	}
	return out, nil
}

func (s *LoanService) Payments(ctx context.Context, userID, loanID string) ([]core.LoanPayment, error) {
	if _, err := s.store.GetLoan(ctx, userID, loanID); err != nil {
		return nil, err
	}
	return s.store.ListLoanPayments(ctx, loanID)
}

func (s *LoanService) overview(l core.Loan) LoanOverview {
	ov := LoanOverview{
		Loan:            l,
		NextPaymentDate: nextPaymentDate(s.now().In(s.loc), l.PaymentDay),
		Progress:        progress(l.Principal.Sub(l.CurrentBalance), l.Principal),
	}
	if l.CurrentBalance.IsPositive() {
		ov.Schedule = amortization.GenerateScheduleWithPayment(l.CurrentBalance, l.APR, l.TermMonths, l.MonthlyPayment)
	}
	ov.Summary = amortization.Summarize(ov.Schedule)
	if len(ov.Schedule) > 0 {
		ov.NextPayment = &ov.Schedule[0]
	}
	return ov
}

// nextPaymentDate is this month's payment day, or next month's once it has
// passed. Days beyond the month's end clamp to its last day.
func nextPaymentDate(now time.Time, day int) time.Time {
	base := core.StartOfMonth(now)
	candidate := clampDay(base, day)
	if candidate.Before(core.StartOfDay(now)) {
		candidate = clampDay(core.AddMonths(base, 1), day)
	}
	return candidate
}

func clampDay(monthStart time.Time, day int) time.Time {
	last := core.EndOfMonth(monthStart).Day()
	if day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return monthStart.AddDate(0, 0, day-1)
}

// progress is part/whole as a whole percentage clamped to 0..100.
func progress(part, whole decimal.Decimal) int {
	p := core.Percent(part, whole).Round(0).IntPart()
	return int(min(max(p, 0), 100))
}

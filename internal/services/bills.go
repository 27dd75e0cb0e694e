package services

import (
	"context"
	"fmt"
	"time"

	"fintrack/internal/core"
)

type BillStore interface {
	CreateBill(ctx context.Context, b *core.Bill) error
	GetBill(ctx context.Context, userID, id string) (core.Bill, error)
	ListBills(ctx context.Context, userID string) ([]core.Bill, error)
	SetBillActive(ctx context.Context, userID, id string, active bool) error
	MarkBillPaid(ctx context.Context, payment *core.Transaction, n *core.Notification) error
}

type BillService struct {
	store    BillStore
	audit    *Auditor
	onChange func(userID string)
	loc      *time.Location
	now      func() time.Time
}

func NewBillService(store BillStore, audit *Auditor, loc *time.Location) *BillService {
	if loc == nil {
		loc = time.UTC
	}
	return &BillService{store: store, audit: audit, onChange: func(string) {}, loc: loc, now: time.Now}
}

func (s *BillService) OnChange(fn func(userID string)) {
	if fn != nil {
		s.onChange = fn
	}
}

// Create stores an active bill. Without an explicit next due date, one-off
// bills use their due date and recurring bills the next occurrence of their
// due day.
func (s *BillService) Create(ctx context.Context, b core.Bill) (core.Bill, error) {
	if err := b.Validate(); err != nil {
		return b, err
	}
	if b.NextDueDate.IsZero() {
		switch {
		case b.Frequency == core.Once:
			b.NextDueDate = b.DueDate
		case b.DueDay > 0:
			b.NextDueDate = nextPaymentDate(s.now().In(s.loc), b.DueDay)
		default:
			return b, core.ValidationError{Field: "nextDueDate", Err: core.ErrInvalidDate}
		}
	}
	b.Currency = core.NormalizeCurrency(b.Currency)
	b.Active = true

	if err := s.store.CreateBill(ctx, &b); err != nil {
		return b, fmt.Errorf("create bill: %w", err)
	}
	s.audit.Record(ctx, b.UserID, "bill.created", map[string]any{"name": b.Name})
	s.onChange(b.UserID)
	return b, nil
}

// Toggle flips the bill's active flag and returns the updated bill.
func (s *BillService) Toggle(ctx context.Context, userID, id string) (core.Bill, error) {
	b, err := s.store.GetBill(ctx, userID, id)
	if err != nil {
		return b, err
	}
	b.Active = !b.Active
	if err := s.store.SetBillActive(ctx, userID, id, b.Active); err != nil {
		return b, fmt.Errorf("toggle bill: %w", err)
	}
	s.audit.Record(ctx, userID, "bill.toggled", map[string]any{"id": id, "active": b.Active})
	s.onChange(userID)
	return b, nil
}

// MarkPaid confirms a payment with an in-app notification and, with
// createTx, books the expected amount to the ledger.
func (s *BillService) MarkPaid(ctx context.Context, userID, id string, createTx bool) (core.Bill, error) {
	b, err := s.store.GetBill(ctx, userID, id)
	if err != nil {
		return b, err
	}

	var payment *core.Transaction
	if createTx {
		payment = &core.Transaction{
			UserID:      userID,
			Date:        s.now(),
			Description: "Bill payment: " + b.Name,
			Amount:      b.Amount,
			Currency:    b.Currency,
			CategoryID:  b.CategoryID,
			Source:      core.SourceBill,
		}
	}
	n := &core.Notification{
		UserID:  userID,
		Title:   "Bill marked paid",
		Body:    b.Name + " marked as paid.",
		Channel: core.ChannelInApp,
	}
	if err := s.store.MarkBillPaid(ctx, payment, n); err != nil {
		return b, fmt.Errorf("mark bill paid: %w", err)
	}

	s.audit.Record(ctx, userID, "bill.paid", map[string]any{"id": id, "createTx": createTx})
	s.onChange(userID)
	return b, nil
}

func (s *BillService) List(ctx context.Context, userID string) ([]core.Bill, error) {
	return s.store.ListBills(ctx, userID)
}

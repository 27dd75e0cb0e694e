package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

// DefaultReminderHour is the local hour before which reminder runs are
// skipped, so users are not notified overnight.
const DefaultReminderHour = 8

type ReminderStore interface {
	ListDueBills(ctx context.Context, cutoff time.Time, day string) ([]core.Bill, error)
	ApplyBillReminder(ctx context.Context, rem storage.BillReminder) error
}

// ReminderResult reports one run. Count is the number of bills reminded.
type ReminderResult struct {
	Skipped bool `json:"skipped,omitempty"`
	Count   int  `json:"count"`
}

// ReminderProcessor creates due-bill notifications and rolls recurring bills
// forward to their next period.
type ReminderProcessor struct {
	store     ReminderStore
	publisher EventPublisher
	loc       *time.Location
	hour      int
	onChange  func(userID string)
}

// NewReminderProcessor creates a processor. publisher may be nil, in which
// case email notifications wait for the delivery poller.
func NewReminderProcessor(store ReminderStore, publisher EventPublisher, loc *time.Location) *ReminderProcessor {
	if loc == nil {
		loc = time.UTC
	}
	return &ReminderProcessor{
		store:     store,
		publisher: publisher,
		loc:       loc,
		hour:      DefaultReminderHour,
		onChange:  func(string) {},
	}
}

func (p *ReminderProcessor) OnChange(fn func(userID string)) {
	if fn != nil {
		p.onChange = fn
	}
}

// ProcessDue handles every active bill due by the end of now's local day
// that has not been reminded that day yet, so repeated runs on one day
// notify each bill once. Runs before the reminder hour are skipped. A bill
// that fails is logged and left for the next run.
func (p *ReminderProcessor) ProcessDue(ctx context.Context, now time.Time) (ReminderResult, error) {
	if p.store == nil {
		return ReminderResult{}, fmt.Errorf("processor not properly initialized")
	}
	local := now.In(p.loc)
	if local.Hour() < p.hour {
		slog.InfoContext(ctx, "Reminder run skipped before reminder hour",
			"local_time", local.Format(time.Kitchen), "hour", p.hour)
		return ReminderResult{Skipped: true}, nil
	}

	startOfDay := core.StartOfDay(local)
	today := local.Format(core.ISODate)
	due, err := p.store.ListDueBills(ctx, core.EndOfDay(local), today)
	if err != nil {
		return ReminderResult{}, fmt.Errorf("list due bills: %w", err)
	}

	slog.InfoContext(ctx, "Processing due bills", "total_due", len(due), "processing_date", today)

	processed := 0
	for _, bill := range due {
		fields := log.NewFields().WithComponent(log.ComponentBills).WithBill(bill.ID).WithUser(bill.UserID)
		rem, err := p.reminderFor(bill, startOfDay)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to compute next due date", fields.WithError(err).ToSlice()...)
			continue
		}
		rem.RemindedOn = today
		if err := p.store.ApplyBillReminder(ctx, rem); err != nil {
			slog.ErrorContext(ctx, "Failed to apply bill reminder", fields.WithError(err).ToSlice()...)
			continue
		}
		for _, n := range rem.Notifications {
			notifyEmail(ctx, p.publisher, n)
		}
		p.onChange(bill.UserID)
		processed++

		slog.InfoContext(ctx, "Bill reminder created", append(fields.ToSlice(),
			"frequency", bill.Frequency,
			"next_due_date", rem.NextDueDate.Format(core.ISODate),
			"active", rem.Active)...)
	}

	slog.InfoContext(ctx, "Bill reminder processing complete", "processed", processed, "total_due", len(due))
	return ReminderResult{Count: processed}, nil
}

func (p *ReminderProcessor) reminderFor(bill core.Bill, startOfDay time.Time) (storage.BillReminder, error) {
	amount := core.FormatMoney(bill.Amount, bill.Currency)
	rem := storage.BillReminder{
		BillID:      bill.ID,
		NextDueDate: bill.NextDueDate,
		Active:      true,
		Notifications: []core.Notification{
			{
				UserID:  bill.UserID,
				Title:   "Bill due",
				Body:    fmt.Sprintf("%s is due today. Expected %s.", bill.Name, amount),
				Channel: core.ChannelInApp,
			},
			{
				UserID:  bill.UserID,
				Title:   "Bill due: " + bill.Name,
				Body:    fmt.Sprintf("%s is due on %s. Expected %s.", bill.Name, bill.NextDueDate.In(p.loc).Format(core.DisplayDate), amount),
				Channel: core.ChannelEmail,
			},
		},
	}

	if bill.Frequency != core.Once {
		next, err := NextDueDate(bill.NextDueDate, bill.Frequency, p.loc)
		if err != nil {
			return rem, err
		}
		rem.NextDueDate = next
	} else if !bill.DueDate.IsZero() && bill.DueDate.Before(startOfDay) {
		rem.Active = false
	}
	return rem, nil
}

package services

import (
	"context"
	"testing"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/storage"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBillService_CreateToggleMarkPaid(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	u := env.newUser(t, "bills@fintrack.mu")
	env.bills.now = func() time.Time { return time.Date(2024, 5, 20, 10, 0, 0, 0, env.loc) }

	bill, err := env.bills.Create(ctx, core.Bill{
		UserID:    u.ID,
		Name:      "Internet",
		Amount:    decimal.NewFromInt(1299),
		Frequency: core.Monthly,
		DueDay:    15,
	})
	require.NoError(t, err)
	assert.True(t, bill.Active)
	assert.True(t, bill.NextDueDate.Equal(time.Date(2024, 6, 15, 0, 0, 0, 0, env.loc)))

	toggled, err := env.bills.Toggle(ctx, u.ID, bill.ID)
	require.NoError(t, err)
	assert.False(t, toggled.Active)
	toggled, err = env.bills.Toggle(ctx, u.ID, bill.ID)
	require.NoError(t, err)
	assert.True(t, toggled.Active)

	_, err = env.bills.MarkPaid(ctx, u.ID, bill.ID, true)
	require.NoError(t, err)

	txs, err := env.repo.ListTransactions(ctx, storage.TransactionFilter{UserID: u.ID})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, core.SourceBill, txs[0].Source)
	assert.Equal(t, "Bill payment: Internet", txs[0].Description)

	notes, err := env.repo.ListNotifications(ctx, u.ID, 10)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "Bill marked paid", notes[0].Title)
	assert.Equal(t, "Internet marked as paid.", notes[0].Body)
}

func TestBillService_CreateValidation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	u := env.newUser(t, "billval@fintrack.mu")

	_, err := env.bills.Create(ctx, core.Bill{UserID: u.ID, Name: "Gym", Amount: decimal.NewFromInt(900), Frequency: "DAILY"})
	assert.ErrorIs(t, err, core.ErrInvalidFrequency)

	_, err = env.bills.Create(ctx, core.Bill{UserID: u.ID, Name: "Gym", Amount: decimal.NewFromInt(900), Frequency: core.Monthly})
	assert.ErrorIs(t, err, core.ErrInvalidDate)

	_, err = env.bills.Toggle(ctx, u.ID, "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestReminderProcessor_ProcessDue(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	u := env.newUser(t, "remind@fintrack.mu")
	today := time.Date(2024, 5, 10, 0, 0, 0, 0, env.loc)

	monthly, err := env.bills.Create(ctx, core.Bill{
		UserID: u.ID, Name: "Electricity", Amount: decimal.NewFromInt(1800),
		Frequency: core.Monthly, DueDay: 10, NextDueDate: today,
	})
	require.NoError(t, err)
	once, err := env.bills.Create(ctx, core.Bill{
		UserID: u.ID, Name: "Car tax", Amount: decimal.NewFromInt(4000),
		Frequency: core.Once, DueDate: today.AddDate(0, 0, -1),
	})
	require.NoError(t, err)
	later, err := env.bills.Create(ctx, core.Bill{
		UserID: u.ID, Name: "Insurance", Amount: decimal.NewFromInt(3000),
		Frequency: core.Yearly, NextDueDate: today.AddDate(0, 0, 1),
	})
	require.NoError(t, err)

	pub := &fakePublisher{}
	processor := NewReminderProcessor(env.repo, pub, env.loc)

	res, err := processor.ProcessDue(ctx, today.Add(7*time.Hour))
	require.NoError(t, err)
	assert.True(t, res.Skipped)

	res, err = processor.ProcessDue(ctx, today.Add(9*time.Hour))
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.Equal(t, 2, res.Count)

	got, err := env.repo.GetBill(ctx, u.ID, monthly.ID)
	require.NoError(t, err)
	assert.True(t, got.Active)
	assert.True(t, got.NextDueDate.Equal(time.Date(2024, 6, 10, 0, 0, 0, 0, env.loc)))

	got, err = env.repo.GetBill(ctx, u.ID, once.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)

	got, err = env.repo.GetBill(ctx, u.ID, later.ID)
	require.NoError(t, err)
	assert.True(t, got.NextDueDate.Equal(later.NextDueDate))

	inApp, err := env.repo.ListNotifications(ctx, u.ID, 10)
	require.NoError(t, err)
	assert.Len(t, inApp, 2)
	for _, n := range inApp {
		assert.Equal(t, "Bill due", n.Title)
	}

	emails, err := env.repo.ListUndelivered(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, emails, 2)
	assert.Equal(t, []string{amqp.RoutingNotificationEmail, amqp.RoutingNotificationEmail}, pub.routingKeys())

	// A second run the same day only sees bills still due.
	res, err = processor.ProcessDue(ctx, today.Add(10*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, res.Count)
}

func TestReminderProcessor_OncePerDay(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	u := env.newUser(t, "hourly@fintrack.mu")
	today := time.Date(2024, 5, 10, 0, 0, 0, 0, env.loc)

	once, err := env.bills.Create(ctx, core.Bill{
		UserID: u.ID, Name: "Passport renewal", Amount: decimal.NewFromInt(1500),
		Frequency: core.Once, DueDate: today,
	})
	require.NoError(t, err)
	overdue, err := env.bills.Create(ctx, core.Bill{
		UserID: u.ID, Name: "Gym", Amount: decimal.NewFromInt(1200),
		Frequency: core.Monthly, DueDay: 10, NextDueDate: today.AddDate(0, -3, 0),
	})
	require.NoError(t, err)

	processor := NewReminderProcessor(env.repo, nil, env.loc)
	var counts []int
	for hour := 9; hour <= 12; hour++ {
		res, err := processor.ProcessDue(ctx, today.Add(time.Duration(hour)*time.Hour))
		require.NoError(t, err)
		counts = append(counts, res.Count)
	}
	assert.Equal(t, []int{2, 0, 0, 0}, counts)

	inApp, err := env.repo.ListNotifications(ctx, u.ID, 50)
	require.NoError(t, err)
	assert.Len(t, inApp, 2)

	// Next day: the one-off bill gets its last reminder and is retired, the
	// overdue bill catches up one more period.
	tomorrow := today.AddDate(0, 0, 1)
	for hour := 9; hour <= 10; hour++ {
		res, err := processor.ProcessDue(ctx, tomorrow.Add(time.Duration(hour)*time.Hour))
		require.NoError(t, err)
		counts = append(counts, res.Count)
	}
	assert.Equal(t, []int{2, 0, 0, 0, 2, 0}, counts)

	got, err := env.repo.GetBill(ctx, u.ID, once.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)

	got, err = env.repo.GetBill(ctx, u.ID, overdue.ID)
	require.NoError(t, err)
	assert.True(t, got.NextDueDate.Equal(time.Date(2024, 4, 10, 0, 0, 0, 0, env.loc)))
}

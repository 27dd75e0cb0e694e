package services

import (
	"context"
	"errors"
	"testing"

	"fintrack/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingAuditStore struct{ calls int }

func (s *failingAuditStore) CreateAuditEvent(context.Context, *core.AuditEvent) error {
	s.calls++
	return errors.New("disk full")
}

func TestAuditor_Record(t *testing.T) {
	ctx := context.Background()

	t.Run("store failure still publishes", func(t *testing.T) {
		store := &failingAuditStore{}
		pub := &fakePublisher{}
		NewAuditor(store, pub).Record(ctx, "u1", "loan.created", map[string]any{"name": "Car", "term": 12})

		assert.Equal(t, 1, store.calls)
		require.Len(t, pub.events, 1)
		assert.Equal(t, []string{"audit.loan.created"}, pub.routingKeys())
		assert.Equal(t, "u1", pub.events[0].UserID)
		assert.Equal(t, map[string]string{"name": "Car", "term": "12"}, pub.events[0].Payload)
	})

	t.Run("nil publisher and nil auditor", func(t *testing.T) {
		store := &failingAuditStore{}
		NewAuditor(store, nil).Record(ctx, "u1", "user.login", nil)
		assert.Equal(t, 1, store.calls)

		var a *Auditor
		assert.NotPanics(t, func() { a.Record(ctx, "u1", "user.login", nil) })
	})

	t.Run("rows are persisted", func(t *testing.T) {
		env := newTestEnv(t)
		NewAuditor(env.repo, nil).Record(ctx, "u2", "bill.paid", map[string]any{"id": "b1"})
		events, err := env.repo.ListAuditEvents(ctx, "u2", 10)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, "bill.paid", events[0].Action)
		assert.Equal(t, "b1", events[0].Metadata["id"])
	})
}

package services

import (
	"context"
	"fmt"
	"log/slog"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
)

// EventPublisher publishes domain events. *amqp.Client satisfies it.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, e *amqp.Event) error
}

type AuditStore interface {
	CreateAuditEvent(ctx context.Context, e *core.AuditEvent) error
}

// Auditor records every mutation as an audit row and, when a publisher is
// configured, as an "audit.<action>" event.
type Auditor struct {
	store     AuditStore
	publisher EventPublisher
}

// NewAuditor creates an auditor. publisher may be nil.
func NewAuditor(store AuditStore, publisher EventPublisher) *Auditor {
	return &Auditor{store: store, publisher: publisher}
}

// Record never fails the caller: the mutation it describes has already been
// committed, so failures are logged.
func (a *Auditor) Record(ctx context.Context, userID, action string, metadata map[string]any) {
	if a == nil {
		return
	}
	if a.store != nil {
		ev := &core.AuditEvent{UserID: userID, Action: action, Metadata: metadata}
		if err := a.store.CreateAuditEvent(ctx, ev); err != nil {
			slog.ErrorContext(ctx, "Failed to write audit event", "action", action, "user_id", userID, "error", err)
		}
	}
	a.publish(ctx, userID, action, metadata)
}

func (a *Auditor) publish(ctx context.Context, userID, action string, metadata map[string]any) {
	if a.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not available, skipping audit event", "action", action)
		return
	}
	payload := make(map[string]string, len(metadata))
	for k, v := range metadata {
		payload[k] = fmt.Sprint(v)
	}
	routingKey := amqp.RoutingAuditPrefix + action
	if err := a.publisher.Publish(ctx, routingKey, amqp.NewEvent(routingKey, userID, payload)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish audit event", "action", action, "error", err)
	}
}

// notifyEmail announces a stored email notification to the delivery worker.
func notifyEmail(ctx context.Context, publisher EventPublisher, n core.Notification) {
	if n.Channel != core.ChannelEmail {
		return
	}
	if publisher == nil {
		slog.WarnContext(ctx, "AMQP publisher not available, email notification left for polling", "notification_id", n.ID)
		return
	}
	if err := publisher.Publish(ctx, amqp.RoutingNotificationEmail, amqp.NotificationEvent(n.UserID, n.ID)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish notification event", "notification_id", n.ID, "error", err)
	}
}

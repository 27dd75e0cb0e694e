// Package worker consumes domain events from the message bus.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/log"

	"golang.org/x/sync/errgroup"
)

// Deliverer sends email notifications.
type Deliverer interface {
	Deliver(ctx context.Context, notificationID string) error
	ProcessBatch(ctx context.Context) int
}

// Consumer feeds bus events to a handler until ctx is done.
type Consumer interface {
	Consume(ctx context.Context, handler func(context.Context, *amqp.Event) error) error
}

// NotifyWorker delivers email notifications announced on the bus and polls
// for any the bus missed.
type NotifyWorker struct {
	deliverer    Deliverer
	pollInterval time.Duration
}

func NewNotifyWorker(deliverer Deliverer, pollInterval time.Duration) *NotifyWorker {
	if pollInterval <= 0 {
		pollInterval = time.Minute
	}
	return &NotifyWorker{deliverer: deliverer, pollInterval: pollInterval}
}

// HandleEvent processes a single event from AMQP. Audit events are only
// logged; unknown types are acknowledged and ignored.
func (w *NotifyWorker) HandleEvent(ctx context.Context, e *amqp.Event) error {
	switch {
	case e.Type == amqp.RoutingNotificationEmail:
		id := e.Payload["notificationId"]
		if id == "" {
			slog.WarnContext(ctx, "Notification event without id", "event_id", e.ID)
			return nil
		}
		if err := w.deliverer.Deliver(ctx, id); err != nil {
			return fmt.Errorf("deliver notification %s: %w", id, err)
		}
		return nil
	case strings.HasPrefix(e.Type, amqp.RoutingAuditPrefix):
		slog.DebugContext(ctx, "Audit event received",
			log.FieldUserID, e.UserID,
			log.FieldOperation, strings.TrimPrefix(e.Type, amqp.RoutingAuditPrefix))
		return nil
	default:
		slog.DebugContext(ctx, "Ignoring event", "type", e.Type, "event_id", e.ID)
		return nil
	}
}

// StartupCheck delivers anything left pending while the worker was down.
func (w *NotifyWorker) StartupCheck(ctx context.Context) int {
	sent := w.deliverer.ProcessBatch(ctx)
	if sent > 0 {
		slog.InfoContext(ctx, "Delivered pending notifications on startup", log.FieldCount, sent)
	} else {
		slog.InfoContext(ctx, "No pending notifications found on startup")
	}
	return sent
}

// Run polls for undelivered notifications and, when consumer is non-nil,
// consumes bus events at the same time. It returns when ctx is done or the
// consumer fails for good.
func (w *NotifyWorker) Run(ctx context.Context, consumer Consumer) error {
	g, gctx := errgroup.WithContext(ctx)

	if consumer != nil {
		g.Go(func() error {
			return consumer.Consume(gctx, w.HandleEvent)
		})
	} else {
		slog.InfoContext(ctx, "Skipping AMQP consumption - polling only")
	}

	g.Go(func() error {
		ticker := time.NewTicker(w.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-ticker.C:
				if sent := w.deliverer.ProcessBatch(gctx); sent > 0 {
					slog.InfoContext(gctx, "Periodic delivery complete", log.FieldCount, sent)
				}
			}
		}
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

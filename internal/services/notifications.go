package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"fintrack/internal/core"
)

type NotificationStore interface {
	ListNotifications(ctx context.Context, userID string, limit int) ([]core.Notification, error)
	MarkNotificationRead(ctx context.Context, userID, id string) error
}

type NotificationService struct {
	store    NotificationStore
	onChange func(userID string)
}

func NewNotificationService(store NotificationStore) *NotificationService {
	return &NotificationService{store: store, onChange: func(string) {}}
}

func (s *NotificationService) OnChange(fn func(userID string)) {
	if fn != nil {
		s.onChange = fn
	}
}

func (s *NotificationService) List(ctx context.Context, userID string, limit int) ([]core.Notification, error) {
	return s.store.ListNotifications(ctx, userID, limit)
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) error {
	if err := s.store.MarkNotificationRead(ctx, userID, id); err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	s.onChange(userID)
	return nil
}

// Mailer sends an email notification to its recipient.
type Mailer interface {
	Send(ctx context.Context, to string, n core.Notification) error
}

// LogMailer writes emails to the log instead of sending them.
type LogMailer struct{}

func (LogMailer) Send(ctx context.Context, to string, n core.Notification) error {
	slog.InfoContext(ctx, "Email notification", "to", to, "title", n.Title, "body", n.Body)
	return nil
}

type DeliveryStore interface {
	GetNotification(ctx context.Context, id string) (core.Notification, error)
	ListUndelivered(ctx context.Context, limit int) ([]core.Notification, error)
	MarkNotificationDelivered(ctx context.Context, id string, at time.Time) error
	GetUser(ctx context.Context, id string) (core.User, error)
}

// DeliveryProcessorConfig holds configuration for the delivery processor
type DeliveryProcessorConfig struct {
	// PollInterval is how often to look for undelivered emails (default: 1m)
	PollInterval time.Duration

	// BatchSize is the max number of notifications per poll (default: 20)
	BatchSize int
}

func DefaultDeliveryProcessorConfig() DeliveryProcessorConfig {
	return DeliveryProcessorConfig{
		PollInterval: time.Minute,
		BatchSize:    20,
	}
}

// DeliveryProcessor sends email-channel notifications. Deliver handles a
// single notification announced on the message bus; the polling loop picks
// up anything the bus missed.
type DeliveryProcessor struct {
	store  DeliveryStore
	mailer Mailer
	config DeliveryProcessorConfig
	now    func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewDeliveryProcessor(store DeliveryStore, mailer Mailer, config DeliveryProcessorConfig) *DeliveryProcessor {
	if mailer == nil {
		mailer = LogMailer{}
	}
	return &DeliveryProcessor{store: store, mailer: mailer, config: config, now: time.Now}
}

// Deliver sends one notification and marks it delivered. Notifications that
// are already delivered or not email-channel are skipped.
func (p *DeliveryProcessor) Deliver(ctx context.Context, id string) error {
	n, err := p.store.GetNotification(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		slog.WarnContext(ctx, "Notification no longer exists", "notification_id", id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get notification: %w", err)
	}
	return p.deliver(ctx, n)
}

func (p *DeliveryProcessor) deliver(ctx context.Context, n core.Notification) error {
	if n.Channel != core.ChannelEmail || !n.DeliveredAt.IsZero() {
		return nil
	}
	u, err := p.store.GetUser(ctx, n.UserID)
	if err != nil {
		return fmt.Errorf("get recipient: %w", err)
	}
	if err := p.mailer.Send(ctx, u.Email, n); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	if err := p.store.MarkNotificationDelivered(ctx, n.ID, p.now()); err != nil {
		return fmt.Errorf("mark delivered: %w", err)
	}
	slog.InfoContext(ctx, "Email notification delivered", "notification_id", n.ID, "user_id", n.UserID)
	return nil
}

// Start begins the polling loop. Returns an error if already running.
func (p *DeliveryProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("delivery processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Delivery processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)
	return nil
}

// Stop signals the loop and waits for it to finish or for ctx to expire.
func (p *DeliveryProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	close(p.stopCh)

	select {
	case <-p.doneCh:
		slog.InfoContext(ctx, "Delivery processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Delivery processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	return nil
}

func (p *DeliveryProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *DeliveryProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.ProcessBatch(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.ProcessBatch(ctx)
		}
	}
}

// ProcessBatch delivers up to BatchSize pending emails and returns how many
// were sent. Failures stay pending for the next poll.
func (p *DeliveryProcessor) ProcessBatch(ctx context.Context) int {
	pending, err := p.store.ListUndelivered(ctx, p.config.BatchSize)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to list undelivered notifications", "error", err)
		return 0
	}
	if len(pending) == 0 {
		return 0
	}

	slog.DebugContext(ctx, "Processing delivery batch", "count", len(pending))

	sent := 0
	for _, n := range pending {
		select {
		case <-p.stopCh:
			return sent
		case <-ctx.Done():
			return sent
		default:
		}
		if err := p.deliver(ctx, n); err != nil {
			slog.WarnContext(ctx, "Email delivery failed", "notification_id", n.ID, "error", err)
			continue
		}
		sent++
	}
	return sent
}

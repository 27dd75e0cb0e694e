package main

import (
	"context"
	"os"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/cli"
	"fintrack/internal/log"
)

func main() {
	cfg, logger := cli.Bootstrap(log.ComponentWorker)
	logger.Info("Starting reminder-worker")

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	// Email reminders are announced on the bus when AMQP is configured; the
	// notify-worker polls for them otherwise.
	amqpClient := cli.InitAMQP(logger, cfg)
	if amqpClient != nil {
		defer amqpClient.Close()
	}

	svc, _, err := cli.NewServices(cfg, repo, cli.Publisher(amqpClient))
	if err != nil {
		logger.Error("Failed to initialize services", log.FieldError, err)
		os.Exit(1)
	}

	interval := cfg.ReminderInterval
	logger.Info("Bill reminder processor configured",
		"interval", interval,
		"timezone", cfg.Timezone,
		"sqlite_db", cfg.SQLiteDBPath)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	run := func(now time.Time) {
		res, err := svc.Reminders.ProcessDue(ctx, now)
		if err != nil {
			logger.Error("Reminder run failed", log.FieldError, err)
		} else if !res.Skipped {
			logger.Info("Reminder run complete",
				log.FieldCount, res.Count,
				"next_check", now.Add(interval).Format("15:04:05"))
		}
		purgeSessions(ctx, logger, svc.Sessions)
	}

	logger.Info("Running initial reminder pass...")
	run(time.Now())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			cli.WaitForShutdown(ctx, done)
			logger.Info("Reminder-worker shutdown complete")
			return
		case now := <-ticker.C:
			run(now)
		}
	}
}

// purgeSessions drops expired sessions.
func purgeSessions(ctx context.Context, logger *log.Logger, sessions *auth.Sessions) {
	n, err := sessions.Purge(ctx)
	if err != nil {
		logger.Warn("Session purge failed", log.FieldError, err)
		return
	}
	if n > 0 {
		logger.Info("Expired sessions purged", log.FieldCount, n)
	}
}

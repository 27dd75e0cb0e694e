package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"fintrack/internal/cli"
	apphttp "fintrack/internal/http"
	"fintrack/internal/log"
)

const cacheSweepInterval = 5 * time.Minute

func main() {
	cfg, logger := cli.Bootstrap(log.ComponentApp)
	logger.Info("Starting fintrack server")

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	amqpClient := cli.InitAMQP(logger, cfg)
	if amqpClient != nil {
		defer amqpClient.Close()
	}

	svc, caches, err := cli.NewServices(cfg, repo, cli.Publisher(amqpClient))
	if err != nil {
		logger.Error("Failed to initialize services", log.FieldError, err)
		os.Exit(1)
	}
	caches.StartCleanup(cacheSweepInterval)
	defer caches.Stop()

	if cfg.EnableDemoUser {
		if u, err := cli.SeedDemo(context.Background(), svc); err != nil {
			logger.Error("Failed to seed demo user", log.FieldError, err)
		} else {
			logger.Info("Demo user ready", "email", u.Email)
		}
	}

	srv := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		CookieSecure:       cfg.CookieSecure,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		CronSecret:         cfg.CronSecret,
		TrustedProxies:     cfg.TrustedProxies,
		Location:           cfg.Location(),
		Logger:             logger.WithComponent(log.ComponentHTTP),
		Store:              repo,
	}, svc)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	logger.Info("Listening", "port", cfg.Port, "timezone", cfg.Timezone, "amqp", amqpClient != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}

package main

import (
	"os"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/cli"
	"fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/worker"
)

func main() {
	cfg, logger := cli.Bootstrap(log.ComponentWorker)
	logger.Info("Starting notify-worker")

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	amqpClient := cli.InitAMQP(logger, cfg, amqp.RoutingNotificationEmail, amqp.RoutingAuditPrefix+"#")

	deliveryConfig := services.DefaultDeliveryProcessorConfig()
	processor := services.NewDeliveryProcessor(repo, services.LogMailer{}, deliveryConfig)
	notifier := worker.NewNotifyWorker(processor, deliveryConfig.PollInterval)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	logger.Info("Performing startup delivery check...")
	notifier.StartupCheck(ctx)

	var consumer worker.Consumer
	if amqpClient != nil {
		defer amqpClient.Close()
		consumer = amqpClient
	}
	if err := notifier.Run(ctx, consumer); err != nil {
		logger.Error("Notify-worker stopped", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Notify-worker shutdown complete")
}

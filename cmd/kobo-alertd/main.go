package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"kobo/internal/config"
	"kobo/internal/log"
	"kobo/internal/notify"
	"kobo/internal/worker"
)

// kobo-alertd consumes budget-alert events from the queue and delivers
// them as notifications. The default deliverer just logs the rendered
// copy; deployments swap in a real push channel.
func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()
	logger := log.New(log.ParseLevel(cfg.LogLevel))

	logger.Info("Starting kobo-alertd")

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the alert consumer")
		os.Exit(1)
	}

	notifier, err := notify.NewAMQPNotifier(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP consumer", "error", err)
		os.Exit(1)
	}
	defer notifier.Close()

	alertLog := log.ForComponent(logger, "alerts")
	alerts := worker.NewAlertWorker(worker.DelivererFunc(func(ctx context.Context, title, body string) error {
		alertLog.InfoContext(ctx, "Budget notification", "title", title, "body", body)
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		err := notifier.ConsumeBudgetAlerts(ctx, func(msg notify.BudgetAlertMessage) error {
			return alerts.HandleAlert(ctx, msg)
		})
		if err != nil && err != context.Canceled {
			logger.Error("Alert consumption failed", "error", err)
		}
		cancel()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	logger.Info("Shutting down alert consumer")
	cancel()
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"kobo/internal/api"
	"kobo/internal/config"
	"kobo/internal/log"
	"kobo/internal/notify"
	"kobo/internal/services"
	"kobo/internal/storage"
)

func main() {
	// .env for local development; absent in production is fine.
	_ = godotenv.Load()

	cfg := config.Load()
	logger := log.New(log.ParseLevel(cfg.LogLevel))

	logger.Info("Starting kobod")

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	mgr := storage.NewManager(cfg.DBPath, cfg.BusyTimeout, log.ForComponent(logger, "storage"))
	defer mgr.Close()

	repo := storage.NewRepository(mgr, log.ForComponent(logger, "storage"))

	// AMQP when a broker is configured; otherwise alerts stay in memory and
	// only reach the log.
	var notifier notify.Notifier
	if cfg.AMQPURL != "" {
		amqpNotifier, err := notify.NewAMQPNotifier(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP notifier, continuing without broker", "error", err)
			notifier = notify.NewMemoryNotifier()
		} else {
			defer amqpNotifier.Close()
			notifier = amqpNotifier
			logger.Info("AMQP notifier initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else {
		notifier = notify.NewMemoryNotifier()
		logger.Info("AMQP disabled, budget alerts will not leave the process")
	}

	ledger := services.NewLedger(repo, notifier, cfg.BudgetThreshold, log.ForComponent(logger, "ledger"))
	engine := services.NewRecurrenceEngine(repo, log.ForComponent(logger, "recurrence"))
	app := api.New(mgr, ledger, engine, log.ForComponent(logger, "api"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if !app.InitializeDatabase(ctx) {
		logger.Error("Database initialization failed, please check the path and restart", "path", cfg.DBPath)
		os.Exit(1)
	}

	logger.Info("Recurrence engine configured",
		"interval", cfg.RecurrenceInterval,
		"db", cfg.DBPath)

	// Run once at startup, then on the timer, then whenever SIGHUP signals a
	// foreground resume.
	logger.Info("Running startup recurrence scan")
	app.HandleRecurringUpdates(ctx)

	resume := make(chan os.Signal, 1)
	signal.Notify(resume, syscall.SIGHUP)

	scheduler := services.NewScheduler(app, cfg.RecurrenceInterval, log.ForComponent(logger, "scheduler"))
	scheduler.Start(ctx, resume)
	defer scheduler.Stop()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	logger.Info("Shutdown signal received", "signal", sig.String())

	cancel()
	scheduler.Stop()
	logger.Info("kobod shutdown complete")
}

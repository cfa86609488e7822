// Package cli holds the start-up steps shared by cmd/kakeibo, cmd/kakeibo-worker
// and cmd/kakeibo-cli.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"kakeibo/internal/amqp"
	"kakeibo/internal/backend"
	"kakeibo/internal/config"
	"kakeibo/internal/log"
	"kakeibo/internal/ports"
	"kakeibo/internal/services"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored as the file is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and installs it as the default.
func SetupLogger(cfg *config.Config, component string) *log.Logger {
	c := log.DefaultConfig()
	c.Level = log.ParseLevel(cfg.LogLevel)
	c.Format = cfg.LogFormat
	c.Component = component
	if component == log.ComponentCLI {
		// stdout carries command output
		c.Output = os.Stderr
	}
	logger := log.New(c)
	log.SetDefault(logger)
	return logger
}

// LoadConfig loads .env and the environment, sets up logging and validates.
// It exits the process when the configuration is invalid.
func LoadConfig(component string) (*config.Config, *log.Logger) {
	LoadEnvFile()
	cfg := config.Load()
	logger := SetupLogger(cfg, component)
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg, logger
}

// App bundles what every binary builds from the configuration.
type App struct {
	Finance *services.FinanceService
	Queue   ports.SyncQueue
	AMQP    *amqp.Client
}

// Close releases the service and with it the store and broker connection.
func (a *App) Close() error {
	return a.Finance.Close()
}

// NewApp creates the backend and, when AMQP is configured, the event publisher.
// A broker that cannot be reached disables events rather than failing start-up.
func NewApp(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	opts, err := backend.OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	store, err := backend.Open(ctx, opts, logger.Logger)
	if err != nil {
		return nil, fmt.Errorf("open backend: %w", err)
	}

	app := &App{Queue: store.Queue}
	var events ports.EventPublisher
	if cfg.EventsEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events",
				log.FieldError, err)
		} else {
			app.AMQP = client
			events = client
			logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", cfg.AMQPExchange,
				"queue", cfg.AMQPQueue)
		}
	}

	app.Finance = services.NewFinanceService(store.Store, events)
	return app, nil
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM.
// cleanup runs with a context bounded by timeout before done is closed.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
		case <-ctx.Done():
		}
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
			return
		}
		logger.Info("Shutdown complete")
	}()

	return ctx, done
}

// Package cli provides the initialization shared by cmd/saldo and
// cmd/saldo-worker.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"saldo/internal/backend"
	"saldo/internal/cache"
	"saldo/internal/config"
	"saldo/internal/core"
	applog "saldo/internal/log"
	"saldo/internal/services"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from a LOG_LEVEL value and makes it
// the slog default. Unknown levels fall back to info.
func SetupLogger(level, component string, out io.Writer) *applog.Logger {
	cfg := applog.DefaultConfig()
	cfg.Level, _ = applog.ParseLevel(level)
	cfg.Component = component
	if out != nil {
		cfg.Output = out
	}
	logger := applog.New(cfg)
	applog.SetDefault(logger)
	return logger
}

// LoadConfig loads .env and the environment, sets up logging and validates.
func LoadConfig(component string, logOutput io.Writer) (*config.Config, *applog.Logger, error) {
	LoadEnvFile()
	cfg := config.Load()
	logger := SetupLogger(cfg.LogLevel, component, logOutput)
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed",
			applog.FieldErrorType, applog.ErrorTypeConfiguration,
			applog.FieldError, err)
		return nil, logger, err
	}
	return cfg, logger, nil
}

// Runtime is everything a command needs to talk to the ledger.
type Runtime struct {
	Config  *config.Config
	Logger  *applog.Logger
	Backend *backend.BackendResult
	Ledger  *services.LedgerService
	Caches  *cache.Manager
}

// Open creates the backend and the ledger service on top of it. The
// account list is cached per profile.
func Open(ctx context.Context, cfg *config.Config, logger *applog.Logger) (*Runtime, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("create backend: %w", err)
	}

	accounts := cache.NewLRUCache[[]core.BankAccount](cfg.AccountCacheSize, cfg.AccountCacheTTL)
	caches := cache.NewManager(logger)
	caches.Register(accounts)

	return &Runtime{
		Config:  cfg,
		Logger:  logger,
		Backend: res,
		Ledger:  services.NewLedgerService(res.Store, accounts, res.Publisher(), logger),
		Caches:  caches,
	}, nil
}

// Close stops cache cleanup and releases the backend.
func (r *Runtime) Close() error {
	r.Caches.Stop()
	return r.Backend.Close()
}

// ErrShutdownSignal is the cancel cause of a SignalContext that was ended
// by SIGINT or SIGTERM.
var ErrShutdownSignal = errors.New("shutdown signal received")

// SignalContext is cancelled on SIGINT or SIGTERM, or when stop is called.
// Only a signal is logged.
func SignalContext(logger *applog.Logger) (ctx context.Context, stop context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(context.Background())
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigs:
			logger.Info("Shutdown signal received",
				applog.FieldOperation, applog.OpShutdown,
				"signal", sig.String())
			cancel(ErrShutdownSignal)
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigs)
		cancel(context.Canceled)
	}
}

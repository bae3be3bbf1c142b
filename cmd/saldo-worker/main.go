package main

import (
	"context"
	"errors"
	"os"

	"golang.org/x/sync/errgroup"

	"saldo/internal/cli"
	applog "saldo/internal/log"
	"saldo/internal/services"
	"saldo/internal/worker"
)

func main() {
	cfg, logger, err := cli.LoadConfig(applog.ComponentWorker, os.Stdout)
	if err != nil {
		os.Exit(1)
	}
	logger.Info("Starting saldo-worker", applog.FieldOperation, applog.OpStartup)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	rt, err := cli.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to open ledger", applog.FieldError, err)
		os.Exit(1)
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Warn("Failed to close backend", applog.FieldError, err)
		}
	}()

	rt.Caches.StartCleanup(cfg.AccountCacheTTL)

	processor := services.NewFixedExpenseProcessor(rt.Backend.Store, rt.Ledger, logger)
	loop := worker.NewFixedExpenseLoop(processor, cfg.FixedExpenseInterval, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return loop.Run(gctx)
	})

	if rt.Backend.AMQP != nil {
		audit := worker.NewAuditWorker(rt.Backend.Store, logger)
		g.Go(func() error {
			return audit.Run(gctx, rt.Backend.AMQP)
		})
	} else {
		logger.Info("AMQP disabled, ledger audit consumer not started")
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", applog.FieldError, err)
		stop()
		rt.Close()
		os.Exit(1)
	}

	logger.Info("saldo-worker shutdown complete", applog.FieldOperation, applog.OpShutdown)
}

package main

import (
	"errors"
	"fmt"
	"os"

	"saldo/internal/cli"
	"saldo/internal/core"
	applog "saldo/internal/log"
)

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(1)
	}

	name := os.Args[1]
	switch name {
	case "help", "-h", "--help":
		printUsage(os.Stdout)
		return
	}
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", name)
		printUsage(os.Stderr)
		os.Exit(1)
	}

	// logs go to stderr so tables on stdout stay clean
	cfg, logger, err := cli.LoadConfig(applog.ComponentCLI, os.Stderr)
	if err != nil {
		os.Exit(1)
	}

	ctx, stop := cli.SignalContext(logger)
	rt, err := cli.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to open ledger", applog.FieldError, err)
		stop()
		os.Exit(1)
	}

	a := &app{ledger: rt.Ledger, profile: cfg.Profile, out: os.Stdout, today: core.Today}
	err = cmd.run(ctx, a, os.Args[2:])

	if cerr := rt.Close(); cerr != nil {
		logger.Warn("Failed to close backend", applog.FieldError, cerr)
	}
	stop()

	switch {
	case err == nil:
	case errors.Is(err, errHistoryViolated):
		os.Exit(2)
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

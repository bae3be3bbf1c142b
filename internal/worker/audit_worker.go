// Package worker holds the long-running loops of saldo-worker.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"saldo/internal/amqp"
	"saldo/internal/core"
	"saldo/internal/ledger"
	applog "saldo/internal/log"
)

// LedgerSource is the read side the audit needs.
type LedgerSource interface {
	ListTransactions(ctx context.Context, profileID string) ([]core.Transaction, error)
	ListAccounts(ctx context.Context, profileID string) ([]core.BankAccount, error)
}

// EventConsumer delivers ledger events until ctx is done.
type EventConsumer interface {
	ConsumeLedgerEvents(ctx context.Context, handler func(context.Context, *amqp.LedgerEvent) error) error
}

// AuditWorker replays a profile's full history whenever it changes and
// reports histories that go negative, e.g. after rows were edited in the
// database by hand.
type AuditWorker struct {
	source LedgerSource
	logger *applog.Logger
}

func NewAuditWorker(source LedgerSource, logger *applog.Logger) *AuditWorker {
	if logger == nil {
		logger = applog.Default(applog.ComponentWorker)
	}
	return &AuditWorker{
		source: source,
		logger: logger.WithComponent(applog.ComponentWorker),
	}
}

// HandleLedgerEvent audits the profile named by e. A violation is logged,
// not returned: requeueing would not fix the history.
func (w *AuditWorker) HandleLedgerEvent(ctx context.Context, e *amqp.LedgerEvent) error {
	txs, err := w.source.ListTransactions(ctx, e.ProfileID)
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}
	accounts, err := w.source.ListAccounts(ctx, e.ProfileID)
	if err != nil {
		return fmt.Errorf("list accounts: %w", err)
	}

	v := ledger.Validate(txs, accounts)
	if v == nil {
		w.logger.DebugContext(ctx, "Ledger audit passed",
			applog.FieldProfileID, e.ProfileID,
			applog.FieldEventKind, e.Kind,
			applog.FieldCount, len(txs))
		return nil
	}

	w.logger.LogFields(ctx, slog.LevelError, "Ledger audit found negative balance", applog.NewFields().
		WithOperation(applog.OpAudit).
		WithProfile(e.ProfileID).
		WithErrorType(applog.ErrorTypeViolation).
		WithViolation(string(v.Kind), v.AccountLabel, v.Date.String()).
		WithTransaction(v.TransactionID, "", v.Account.String(), v.Date.String(), v.Balance.Cents))
	return nil
}

// Run consumes events until ctx is cancelled.
func (w *AuditWorker) Run(ctx context.Context, consumer EventConsumer) error {
	w.logger.InfoContext(ctx, "Starting ledger audit consumer")
	err := consumer.ConsumeLedgerEvents(ctx, w.HandleLedgerEvent)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

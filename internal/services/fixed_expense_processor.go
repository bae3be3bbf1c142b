package services

import (
	"context"
	"errors"
	"fmt"

	"saldo/internal/amqp"
	"saldo/internal/core"
	"saldo/internal/ledger"
	applog "saldo/internal/log"
	"saldo/internal/store"
)

// FixedExpenseProcessor turns due fixed expense templates into real
// expense transactions.
type FixedExpenseProcessor struct {
	store   store.Store
	service *LedgerService
	logger  *applog.Logger
}

func NewFixedExpenseProcessor(st store.Store, service *LedgerService, logger *applog.Logger) *FixedExpenseProcessor {
	if logger == nil {
		logger = applog.Default(applog.ComponentFixed)
	}
	return &FixedExpenseProcessor{
		store:   st,
		service: service,
		logger:  logger.WithComponent(applog.ComponentFixed),
	}
}

// ProcessDue materializes every due template of every profile on today and
// returns how many transactions were created. A template whose expense
// would drive its account negative is skipped and retried on the next run.
func (p *FixedExpenseProcessor) ProcessDue(ctx context.Context, today core.Date) (int, error) {
	if p.store == nil || p.service == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	profiles, err := p.store.ListProfiles(ctx)
	if err != nil {
		return 0, fmt.Errorf("list profiles: %w", err)
	}

	processed := 0
	for _, profile := range profiles {
		n, err := p.processProfile(ctx, profile.ID, today)
		processed += n
		if err != nil {
			return processed, err
		}
	}

	p.logger.InfoContext(ctx, "Fixed expense processing complete",
		applog.FieldCount, processed,
		applog.FieldDate, today.String())
	return processed, nil
}

func (p *FixedExpenseProcessor) processProfile(ctx context.Context, profileID string, today core.Date) (int, error) {
	templates, err := p.store.ListFixedExpenses(ctx, profileID)
	if err != nil {
		return 0, fmt.Errorf("list fixed expenses for %q: %w", profileID, err)
	}

	processed := 0
	for _, fe := range templates {
		if ctx.Err() != nil {
			return processed, ctx.Err()
		}
		if !fe.ActiveOn(today) {
			continue
		}

		checker, err := GetDuenessChecker(fe.Every)
		if err != nil {
			p.logger.ErrorContext(ctx, "Skipping fixed expense",
				applog.FieldFixedExpense, fe.ID,
				applog.FieldError, err)
			continue
		}
		if !checker.IsDue(fe.LastExecution, today, fe.StartDate) {
			continue
		}

		tx := core.Transaction{
			Amount:      fe.Amount,
			Date:        today,
			Type:        core.Expense,
			Account:     fe.Account,
			Description: fe.Description,
			CategoryID:  fe.CategoryID,
		}
		created, err := p.service.addTransaction(ctx, profileID, tx, amqp.FixedExpenseApplied)
		if err != nil {
			errorType := applog.ErrorTypeInternal
			if errors.Is(err, ledger.ErrNegativeBalance) {
				errorType = applog.ErrorTypeViolation
			}
			p.logger.ErrorContext(ctx, "Failed to apply fixed expense",
				applog.FieldProfileID, profileID,
				applog.FieldFixedExpense, fe.ID,
				applog.FieldErrorType, errorType,
				applog.FieldError, err)
			continue
		}

		if err := p.store.MarkFixedExpenseExecuted(ctx, profileID, fe.ID, today); err != nil {
			// the expense exists; the next run may create a duplicate
			p.logger.ErrorContext(ctx, "Failed to update last execution date",
				applog.FieldFixedExpense, fe.ID,
				applog.FieldError, err)
		}

		processed++
		p.logger.InfoContext(ctx, "Created expense from fixed expense",
			applog.FieldProfileID, profileID,
			applog.FieldFixedExpense, fe.ID,
			applog.FieldTransactionID, created.ID,
			applog.FieldAmountCents, fe.Amount.Cents,
			"frequency", fe.Every)
	}
	return processed, nil
}

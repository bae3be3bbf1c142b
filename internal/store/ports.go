package store

import (
	"context"
	"errors"

	"saldo/internal/core"
)

// ErrNotFound is returned when a profile, account, transaction or
// fixed expense does not exist.
var ErrNotFound = errors.New("not found")

// Ports for persistence adapters.
type (
	ProfileStore interface {
		CreateProfile(ctx context.Context, p core.Profile) error
		ListProfiles(ctx context.Context) ([]core.Profile, error)
	}

	AccountStore interface {
		ListAccounts(ctx context.Context, profileID string) ([]core.BankAccount, error)
		// SaveAccount inserts or updates by id.
		SaveAccount(ctx context.Context, profileID string, a core.BankAccount) error
		// DeleteAccount removes the account only; its transactions stay.
		DeleteAccount(ctx context.Context, profileID, accountID string) error
	}

	// TransactionStore holds the transaction log of each profile.
	TransactionStore interface {
		ListTransactions(ctx context.Context, profileID string) ([]core.Transaction, error)
		// InsertTransactions stores all of txs or none of them.
		InsertTransactions(ctx context.Context, profileID string, txs ...core.Transaction) error
		UpdateTransaction(ctx context.Context, profileID string, tx core.Transaction) error
		DeleteTransaction(ctx context.Context, profileID, id string) error
	}

	FixedExpenseStore interface {
		ListFixedExpenses(ctx context.Context, profileID string) ([]core.FixedExpense, error)
		SaveFixedExpense(ctx context.Context, profileID string, fe core.FixedExpense) error
		MarkFixedExpenseExecuted(ctx context.Context, profileID, id string, day core.Date) error
	}

	// Store is everything a backend provides.
	Store interface {
		ProfileStore
		AccountStore
		TransactionStore
		FixedExpenseStore

		// Update runs fn with exclusive write access to profileID's log.
		// Reads through txs see every committed write; fn's writes are
		// kept only when it returns nil.
		Update(ctx context.Context, profileID string, fn func(txs TransactionStore) error) error
	}
)

// Package ledger derives account balances from a transaction log.
//
// Every function here is pure: it takes the complete candidate history,
// sorts a private copy and folds it from zero. Nothing is cached between
// calls, so callers may invoke these from any goroutine.
package ledger

import (
	"slices"

	"saldo/internal/core"
)

// Less orders a before b: earlier day first, and on the same day income
// before expense so same-day income can fund a same-day expense.
func Less(a, b core.Transaction) bool {
	return compare(a, b) < 0
}

func compare(a, b core.Transaction) int {
	if c := a.Date.Compare(b.Date); c != 0 {
		return c
	}
	return typeRank(a.Type) - typeRank(b.Type)
}

func typeRank(t core.TransactionType) int {
	if t == core.Income {
		return 0
	}
	return 1
}

// Sort returns a new slice holding txs in ledger order. Ties keep input order.
func Sort(txs []core.Transaction) []core.Transaction {
	sorted := slices.Clone(txs)
	slices.SortStableFunc(sorted, compare)
	return sorted
}

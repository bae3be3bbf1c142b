package ledger

import (
	"saldo/internal/core"
)

// Balances maps each account to its balance. Accounts never touched by a
// counted transaction are absent and read as zero.
type Balances map[core.AccountRef]core.Money

// Of returns the balance for ref, zero when absent.
func (b Balances) Of(ref core.AccountRef) core.Money {
	return b[ref]
}

// Total sums every bucket, orphaned accounts included.
func (b Balances) Total() core.Money {
	var total core.Money
	for _, m := range b {
		total = total.Add(m)
	}
	return total
}

// Step is the state right after one counted transaction was applied.
type Step struct {
	Transaction core.Transaction
	Balance     core.Money // balance of Transaction.Account after the delta
	Balances    Balances   // all running balances; valid only during the callback
}

// Counts reports whether tx moves real money. Gifts and hidden entries never do.
func Counts(tx core.Transaction) bool {
	return !tx.IsGift && !tx.IsHidden
}

// Walk folds sorted from zero balances, calling fn after each counted
// transaction. Returning false from fn stops the walk. The final balances
// are returned either way.
func Walk(sorted []core.Transaction, fn func(Step) bool) Balances {
	running := make(Balances)
	for _, tx := range sorted {
		if !Counts(tx) {
			continue
		}
		bal := running[tx.Account].Add(tx.Signed())
		running[tx.Account] = bal
		if fn != nil && !fn(Step{Transaction: tx, Balance: bal, Balances: running}) {
			break
		}
	}
	return running
}

// Project returns the final balances of an already sorted history.
func Project(sorted []core.Transaction) Balances {
	return Walk(sorted, nil)
}

// BalancesAsOf projects txs up to and including every transaction on day.
func BalancesAsOf(txs []core.Transaction, day core.Date) Balances {
	sorted := Sort(txs)
	n := len(sorted)
	for i, tx := range sorted {
		if tx.Date.After(day) {
			n = i
			break
		}
	}
	return Project(sorted[:n])
}

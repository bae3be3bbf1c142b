package ledger

import (
	"saldo/internal/core"
)

// FirstDateWithSufficientBalance returns the day of the first transaction
// after which acct holds at least required. The day includes that
// transaction's own contribution. ok is false when required is not positive
// (nothing to afford) or the threshold is never reached.
func FirstDateWithSufficientBalance(txs []core.Transaction, acct core.AccountRef, required core.Money) (day core.Date, ok bool) {
	if !required.IsPositive() {
		return core.Date{}, false
	}

	var bal core.Money
	for _, tx := range Sort(txs) {
		if !Counts(tx) || tx.Account != acct {
			continue
		}
		bal = bal.Add(tx.Signed())
		if bal.Cents >= required.Cents {
			return tx.Date, true
		}
	}
	return core.Date{}, false
}

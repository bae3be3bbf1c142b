package ledger

import (
	"saldo/internal/core"
)

type incomeOptions struct {
	excludeGifts bool
}

// IncomeOption tunes FirstIncomeDate.
type IncomeOption func(*incomeOptions)

// ExcludeGifts stops gift income from counting as the first income.
func ExcludeGifts() IncomeOption {
	return func(o *incomeOptions) { o.excludeGifts = true }
}

// FirstIncomeDate returns the earliest day with a non-hidden income.
// Gift income counts unless ExcludeGifts is given.
func FirstIncomeDate(txs []core.Transaction, opts ...IncomeOption) (day core.Date, ok bool) {
	var o incomeOptions
	for _, opt := range opts {
		opt(&o)
	}

	for _, tx := range txs {
		if tx.Type != core.Income || tx.IsHidden {
			continue
		}
		if o.excludeGifts && tx.IsGift {
			continue
		}
		if !ok || tx.Date.Before(day) {
			day, ok = core.DateOf(tx.Date.Time), true
		}
	}
	return day, ok
}

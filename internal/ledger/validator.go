package ledger

import (
	"errors"
	"fmt"

	"saldo/internal/core"
)

// ViolationKind names the business rule a history breaks.
type ViolationKind string

const NegativeBalance ViolationKind = "NEGATIVE_BALANCE"

const (
	CashLabel           = "Cash"
	DeletedAccountLabel = "Deleted account"
)

// ErrNegativeBalance matches any *Violation of kind NegativeBalance via errors.Is.
var ErrNegativeBalance = errors.New("negative balance")

// Violation is the first point in history where an account goes below zero.
type Violation struct {
	Kind          ViolationKind
	Account       core.AccountRef
	AccountLabel  string
	Date          core.Date
	TransactionID string
	Balance       core.Money
}

func (v *Violation) Error() string {
	return fmt.Sprintf("balance of %s would be %s on %s", v.AccountLabel, v.Balance, v.Date)
}

func (v *Violation) Is(target error) bool {
	return target == ErrNegativeBalance && v.Kind == NegativeBalance
}

// Validate replays the whole candidate history and reports the first
// negative balance, or nil. accounts only resolve display labels; unknown
// references are still checked.
func Validate(candidate []core.Transaction, accounts []core.BankAccount) *Violation {
	var v *Violation
	Walk(Sort(candidate), func(s Step) bool {
		if !s.Balance.IsNegative() {
			return true
		}
		v = &Violation{
			Kind:          NegativeBalance,
			Account:       s.Transaction.Account,
			AccountLabel:  AccountLabel(s.Transaction.Account, accounts),
			Date:          s.Transaction.Date,
			TransactionID: s.Transaction.ID,
			Balance:       s.Balance,
		}
		return false
	})
	return v
}

// AccountLabel resolves ref to a display name.
func AccountLabel(ref core.AccountRef, accounts []core.BankAccount) string {
	if ref.IsCash() {
		return CashLabel
	}
	for _, a := range accounts {
		if a.ID == ref.BankID() {
			return a.Name
		}
	}
	return DeletedAccountLabel
}

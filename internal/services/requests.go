package services

import (
	"errors"
	"strings"

	"saldo/internal/core"
)

var (
	ErrSameAccount          = errors.New("source and destination account are the same")
	ErrUnknownAccount       = errors.New("unknown bank account")
	ErrMissingDebtReference = errors.New("payment needs a liability or loan id")
)

// TransferRequest moves Amount from one account to another on a single day.
type TransferRequest struct {
	From        core.AccountRef
	To          core.AccountRef
	Amount      core.Money
	Date        core.Date
	Description string
}

func (r TransferRequest) Validate() error {
	if r.From == r.To {
		return ErrSameAccount
	}
	if err := r.Date.Validate(); err != nil {
		return err
	}
	return r.Amount.Validate()
}

// DebtPayment is an outgoing payment towards a liability or a loan.
// ReadOnly payments are recorded for history and never move real money.
type DebtPayment struct {
	Account     core.AccountRef
	Amount      core.Money
	Date        core.Date
	Description string
	LiabilityID string
	LoanID      string
	ReadOnly    bool
}

func (p DebtPayment) Validate() error {
	if strings.TrimSpace(p.LiabilityID) == "" && strings.TrimSpace(p.LoanID) == "" {
		return ErrMissingDebtReference
	}
	if err := p.Date.Validate(); err != nil {
		return err
	}
	return p.Amount.Validate()
}

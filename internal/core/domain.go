package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
	Weekly  Frequency = "weekly"
	Daily   Frequency = "daily"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// DateLayout is the calendar-day wire form used by every boundary.
const DateLayout = "2006-01-02"

// cashKey is the storage form of the cash account.
const cashKey = "cash"

type (
	Frequency string

	TransactionType string

	// Date is a calendar day. The wrapped time is always midnight UTC.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// AccountRef identifies the account a transaction moves money in:
	// either the single cash account or a bank account by id.
	AccountRef struct {
		bank string
	}

	Transaction struct {
		ID       string
		Amount   Money
		Date     Date
		Type     TransactionType
		Account  AccountRef
		IsGift   bool // recorded for history only
		IsHidden bool // read-only entry not backed by funds

		Description string
		CategoryID  string
		TransferID  string
		AssetID     string
		LiabilityID string
		LoanID      string
		Details     string
	}

	BankAccount struct {
		ID    string
		Name  string
		Color string
	}

	Profile struct {
		ID   string
		Name string
	}

	// FixedExpense is a recurring expense template materialized into
	// transactions when due.
	FixedExpense struct {
		ID            string
		StartDate     Date
		EndDate       Date
		Every         Frequency
		Description   string
		Amount        Money
		Account       AccountRef
		CategoryID    string
		LastExecution Date
	}
)

var (
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidType       = errors.New("invalid transaction type")
	ErrInvalidFrequency  = errors.New("invalid repetition type")
	ErrEmptyID           = errors.New("empty id")
	ErrEmptyName         = errors.New("empty name")
	ErrEmptyDescription  = errors.New("empty description")
	ErrReservedAccountID = errors.New("account id is reserved for cash")
)

// Cash is the implicit, non-deletable cash account.
var Cash = AccountRef{}

// Bank references a bank account by id.
func Bank(id string) AccountRef {
	return AccountRef{bank: id}
}

// ParseAccountRef turns the storage form back into a reference.
func ParseAccountRef(s string) (AccountRef, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "":
		return AccountRef{}, ErrEmptyID
	case cashKey:
		return Cash, nil
	}
	return Bank(s), nil
}

// IsCash reports whether r is the cash account.
func (r AccountRef) IsCash() bool {
	return r.bank == ""
}

// BankID returns the bank account id, or "" for cash.
func (r AccountRef) BankID() string {
	return r.bank
}

// String returns the storage form: "cash" or the bank id.
func (r AccountRef) String() string {
	if r.IsCash() {
		return cashKey
	}
	return r.bank
}

// Validate rejects the zero date. Any other value is a real calendar day.
func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: zero date", ErrInvalidDate)
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// Today returns the current calendar day in local time.
func Today() Date {
	return DateOf(time.Now())
}

// ParseDate parses a YYYY-MM-DD day.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return DateOf(t), nil
}

// String renders the day as YYYY-MM-DD, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// Compare returns -1, 0 or +1 comparing calendar days only.
func (d Date) Compare(o Date) int {
	a, b := DateOf(d.Time), DateOf(o.Time)
	return a.Time.Compare(b.Time)
}

// Before reports whether d is an earlier day than o.
func (d Date) Before(o Date) bool { return d.Compare(o) < 0 }

// After reports whether d is a later day than o.
func (d Date) After(o Date) bool { return d.Compare(o) > 0 }

// Equal reports whether d and o are the same day.
func (d Date) Equal(o Date) bool { return d.Compare(o) == 0 }

// AddDays returns the day n days after d.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// ParseTransactionType accepts "income" or "expense".
func ParseTransactionType(s string) (TransactionType, error) {
	switch t := TransactionType(strings.ToLower(strings.TrimSpace(s))); t {
	case Income, Expense:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
}

// Validate accepts amounts in (0, MaxAmount].
func (m Money) Validate() error {
	if m.Cents <= 0 || m.Cents > MaxAmount.Cents {
		return ErrInvalidAmount
	}
	return nil
}

// Signed returns the amount as a balance delta: positive for income,
// negative for expense.
func (t Transaction) Signed() Money {
	if t.Type == Expense {
		return Money{Cents: -t.Amount.Cents}
	}
	return t.Amount
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return ErrEmptyID
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if t.Type != Income && t.Type != Expense {
		return ErrInvalidType
	}
	if !t.Account.IsCash() && strings.TrimSpace(t.Account.BankID()) == "" {
		return ErrEmptyID
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return nil
}

func (a BankAccount) Validate() error {
	id := strings.TrimSpace(a.ID)
	if id == "" {
		return ErrEmptyID
	}
	if id == cashKey {
		return ErrReservedAccountID
	}
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

// Ref returns the reference transactions use for this account.
func (a BankAccount) Ref() AccountRef {
	return Bank(a.ID)
}

func (p Profile) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (fe FixedExpense) Validate() error {
	if err := fe.StartDate.Validate(); err != nil {
		return errors.New("invalid start date: " + err.Error())
	}

	if !fe.EndDate.IsZero() {
		if err := fe.EndDate.Validate(); err != nil {
			return errors.New("invalid end date: " + err.Error())
		}
		if fe.EndDate.Before(fe.StartDate) {
			return errors.New("end date must be after start date")
		}
	}

	switch fe.Every {
	case Daily, Weekly, Monthly, Yearly:
	default:
		return ErrInvalidFrequency
	}

	if len(strings.TrimSpace(fe.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(fe.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}

	return fe.Amount.Validate()
}

// ActiveOn reports whether the template covers day.
func (fe FixedExpense) ActiveOn(day Date) bool {
	if day.Before(fe.StartDate) {
		return false
	}
	return fe.EndDate.IsZero() || !day.After(fe.EndDate)
}

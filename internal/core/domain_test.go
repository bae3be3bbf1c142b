package core

import (
	"errors"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("case %d expected ErrInvalidDate, got %v", i, err)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-03-10")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.String() != "2024-03-10" {
		t.Fatalf("round trip mismatch: %s", d)
	}
	if _, err := ParseDate("10/03/2024"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestDateCompareIgnoresTimeOfDay(t *testing.T) {
	morning := Date{Time: time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)}
	evening := Date{Time: time.Date(2024, 1, 1, 22, 0, 0, 0, time.UTC)}
	if !morning.Equal(evening) {
		t.Fatalf("expected same day")
	}
	if !NewDate(2024, 1, 1).Before(NewDate(2024, 1, 2)) {
		t.Fatalf("expected 1st before 2nd")
	}
	if !NewDate(2024, 2, 1).After(NewDate(2024, 1, 31)) {
		t.Fatalf("expected Feb 1st after Jan 31st")
	}
}

func TestAccountRef(t *testing.T) {
	if !Cash.IsCash() || Cash.String() != "cash" {
		t.Fatalf("unexpected cash ref %q", Cash)
	}
	b := Bank("acc-1")
	if b.IsCash() || b.BankID() != "acc-1" || b.String() != "acc-1" {
		t.Fatalf("unexpected bank ref %+v", b)
	}

	for _, s := range []string{"cash", "acc-1"} {
		r, err := ParseAccountRef(s)
		if err != nil || r.String() != s {
			t.Fatalf("ParseAccountRef(%q) = %v, %v", s, r, err)
		}
	}
	if _, err := ParseAccountRef(" "); err == nil {
		t.Fatalf("expected error for blank ref")
	}

	// refs are map keys
	m := map[AccountRef]int{Cash: 1, Bank("a"): 2}
	if m[Bank("a")] != 2 || m[Cash] != 1 {
		t.Fatalf("map lookup by ref failed")
	}
}

func TestParseTransactionType(t *testing.T) {
	if tt, err := ParseTransactionType(" Income "); err != nil || tt != Income {
		t.Fatalf("got %q, %v", tt, err)
	}
	if _, err := ParseTransactionType("refund"); !errors.Is(err, ErrInvalidType) {
		t.Fatalf("expected ErrInvalidType, got %v", err)
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		ID:      "t1",
		Amount:  Cents(100),
		Date:    NewDate(2025, 1, 1),
		Type:    Expense,
		Account: Cash,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if good.Signed().Cents != -100 {
		t.Fatalf("expense should be negative delta")
	}

	bads := []Transaction{
		{ID: "", Amount: Cents(1), Date: NewDate(2025, 1, 1), Type: Income},
		{ID: "t", Amount: Cents(0), Date: NewDate(2025, 1, 1), Type: Income},
		{ID: "t", Amount: Cents(1), Type: Income},
		{ID: "t", Amount: Cents(1), Date: NewDate(2025, 1, 1), Type: "transfer"},
	}
	for i, tx := range bads {
		if err := tx.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestBankAccountValidate(t *testing.T) {
	if err := (BankAccount{ID: "b1", Name: "Main"}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (BankAccount{ID: "cash", Name: "Fake"}).Validate(); !errors.Is(err, ErrReservedAccountID) {
		t.Fatalf("expected ErrReservedAccountID, got %v", err)
	}
	if err := (BankAccount{ID: "b1"}).Validate(); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
}

func TestFixedExpenseValidate(t *testing.T) {
	fe := FixedExpense{
		ID:          "f1",
		StartDate:   NewDate(2025, 1, 1),
		Every:       Monthly,
		Description: "Rent",
		Amount:      Cents(50000),
		Account:     Bank("b1"),
	}
	if err := fe.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bad := fe
	bad.EndDate = NewDate(2024, 12, 31)
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for end before start")
	}

	bad = fe
	bad.Every = "hourly"
	if err := bad.Validate(); !errors.Is(err, ErrInvalidFrequency) {
		t.Fatalf("expected ErrInvalidFrequency, got %v", err)
	}

	fe.EndDate = NewDate(2025, 6, 30)
	if !fe.ActiveOn(NewDate(2025, 6, 30)) || fe.ActiveOn(NewDate(2025, 7, 1)) || fe.ActiveOn(NewDate(2024, 12, 31)) {
		t.Fatalf("ActiveOn boundaries wrong")
	}
}

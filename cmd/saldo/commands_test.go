package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"saldo/internal/core"
	"saldo/internal/services"
	"saldo/internal/store/memory"
)

func newTestApp() (*app, *bytes.Buffer) {
	var buf bytes.Buffer
	st := memory.New(core.Profile{ID: "default", Name: "Default"})
	return &app{
		ledger:  services.NewLedgerService(st, nil, nil, nil),
		profile: "default",
		out:     &buf,
		today:   func() core.Date { return core.NewDate(2024, 6, 1) },
	}, &buf
}

func exec(t *testing.T, a *app, buf *bytes.Buffer, name string, args ...string) (string, error) {
	t.Helper()
	buf.Reset()
	cmd, ok := commands[name]
	if !ok {
		t.Fatalf("unknown command %s", name)
	}
	err := cmd.run(context.Background(), a, args)
	return buf.String(), err
}

func mustExec(t *testing.T, a *app, buf *bytes.Buffer, name string, args ...string) string {
	t.Helper()
	out, err := exec(t, a, buf, name, args...)
	if err != nil {
		t.Fatalf("%s %v: %v", name, args, err)
	}
	return out
}

func TestLedgerCommands(t *testing.T) {
	a, buf := newTestApp()

	out := mustExec(t, a, buf, "account-add", "-name", "Checking", "-color", "green")
	bankID := strings.TrimSpace(strings.TrimPrefix(out, "created account "))

	mustExec(t, a, buf, "add", "-type", "income", "-amount", "100,00", "-date", "2024-05-01")
	out = mustExec(t, a, buf, "add", "-amount", "30", "-date", "2024-05-02", "-desc", "groceries")
	expenseID := strings.TrimSpace(strings.TrimPrefix(out, "added "))

	if _, err := exec(t, a, buf, "add", "-amount", "500", "-date", "2024-05-03"); err == nil {
		t.Fatal("expected overdraft to be rejected")
	}

	mustExec(t, a, buf, "transfer", "-from", "cash", "-to", bankID, "-amount", "50", "-date", "2024-05-04")

	out = mustExec(t, a, buf, "balances")
	for _, want := range []string{"Cash", "20.00", "Checking", "50.00", "70.00"} {
		if !strings.Contains(out, want) {
			t.Errorf("balances output missing %q:\n%s", want, out)
		}
	}

	out = mustExec(t, a, buf, "balances", "-as-of", "2024-05-01")
	if !strings.Contains(out, "100.00") {
		t.Errorf("as-of balances missing 100.00:\n%s", out)
	}

	mustExec(t, a, buf, "edit", "-id", expenseID, "-amount", "40")
	if _, err := exec(t, a, buf, "edit", "-id", expenseID, "-amount", "90"); err == nil {
		t.Fatal("expected edit overdraft to be rejected")
	}

	out = mustExec(t, a, buf, "list")
	if !strings.Contains(out, "40.00") || !strings.Contains(out, "transfer") {
		t.Errorf("list output:\n%s", out)
	}

	out = mustExec(t, a, buf, "min-date", "-amount", "100")
	if strings.TrimSpace(out) != "2024-05-01" {
		t.Errorf("min-date = %q", out)
	}
	out = mustExec(t, a, buf, "min-date", "-amount", "1000")
	if strings.TrimSpace(out) != "2024-06-01" {
		t.Errorf("min-date fallback = %q", out)
	}

	out = mustExec(t, a, buf, "first-income")
	if strings.TrimSpace(out) != "2024-05-01" {
		t.Errorf("first-income = %q", out)
	}

	out = mustExec(t, a, buf, "check")
	if strings.TrimSpace(out) != "ok" {
		t.Errorf("check = %q", out)
	}

	mustExec(t, a, buf, "pay-debt", "-amount", "999", "-loan", "car", "-read-only")
	mustExec(t, a, buf, "delete", "-id", expenseID)

	mustExec(t, a, buf, "account-delete", "-id", bankID)
	out = mustExec(t, a, buf, "balances")
	if !strings.Contains(out, "Deleted account") {
		t.Errorf("orphaned balance not shown:\n%s", out)
	}
}

func TestCheckReportsViolation(t *testing.T) {
	a, buf := newTestApp()
	st := memory.New(core.Profile{ID: "default", Name: "Default"})
	if err := st.InsertTransactions(context.Background(), "default", core.Transaction{
		ID: "bad", Amount: core.Cents(100), Date: core.NewDate(2024, 1, 1), Type: core.Expense, Account: core.Cash,
	}); err != nil {
		t.Fatal(err)
	}
	a.ledger = services.NewLedgerService(st, nil, nil, nil)

	out, err := exec(t, a, buf, "check")
	if !errors.Is(err, errHistoryViolated) {
		t.Fatalf("expected errHistoryViolated, got %v", err)
	}
	if !strings.Contains(out, "NEGATIVE_BALANCE") || !strings.Contains(out, "bad") {
		t.Errorf("check output = %q", out)
	}
}

func TestCommandValidation(t *testing.T) {
	a, buf := newTestApp()
	tests := []struct {
		name string
		args []string
	}{
		{"add", []string{"-amount", "abc"}},
		{"add", []string{"-type", "refund", "-amount", "1"}},
		{"edit", nil},
		{"delete", nil},
		{"transfer", []string{"-from", "cash", "-to", "cash", "-amount", "1"}},
		{"pay-debt", []string{"-amount", "1"}},
		{"account-rename", []string{"-id", "x"}},
		{"fixed-add", []string{"-amount", "1", "-every", "hourly", "-desc", "x"}},
		{"balances", []string{"-as-of", "yesterday"}},
	}
	for _, tt := range tests {
		t.Run(tt.name+" "+strings.Join(tt.args, " "), func(t *testing.T) {
			if _, err := exec(t, a, buf, tt.name, tt.args...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestProfileAndFixedCommands(t *testing.T) {
	a, buf := newTestApp()
	mustExec(t, a, buf, "profile-add", "-id", "work", "-name", "Work")
	out := mustExec(t, a, buf, "profiles")
	if !strings.Contains(out, "work") || !strings.Contains(out, "Default") {
		t.Errorf("profiles output:\n%s", out)
	}

	mustExec(t, a, buf, "fixed-add", "-profile", "work", "-amount", "12.50", "-desc", "Gym", "-start", "2024-01-10")
	out = mustExec(t, a, buf, "fixed", "-profile", "work")
	if !strings.Contains(out, "Gym") || !strings.Contains(out, "12.50") || !strings.Contains(out, "monthly") {
		t.Errorf("fixed output:\n%s", out)
	}
}

func TestHelpFlag(t *testing.T) {
	a, buf := newTestApp()
	out, err := exec(t, a, buf, "add", "-h")
	if err != nil {
		t.Fatalf("-h should not fail: %v", err)
	}
	if !strings.Contains(out, "-amount") {
		t.Errorf("usage missing flags: %s", out)
	}

	var usage bytes.Buffer
	printUsage(&usage)
	if !strings.Contains(usage.String(), "transfer") {
		t.Error("usage missing commands")
	}
}

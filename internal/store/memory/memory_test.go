package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"saldo/internal/core"
	"saldo/internal/store"
)

func TestMemoryStoreTransactions(t *testing.T) {
	ctx := context.Background()
	s := New(core.Profile{ID: "p", Name: "P"})

	a := core.Transaction{ID: "a", Type: core.Income, Amount: core.Cents(100), Date: core.NewDate(2024, 1, 1), Account: core.Cash}
	b := a
	b.ID = "b"
	if err := s.InsertTransactions(ctx, "p", a, b); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.InsertTransactions(ctx, "p", a); err == nil {
		t.Fatalf("expected duplicate id error")
	}

	b.Amount = core.Cents(999)
	if err := s.UpdateTransaction(ctx, "p", b); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := s.DeleteTransaction(ctx, "p", "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteTransaction(ctx, "p", "a"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	txs, err := s.ListTransactions(ctx, "p")
	if err != nil || len(txs) != 1 || txs[0].Amount.Cents != 999 {
		t.Fatalf("unexpected list: %+v err=%v", txs, err)
	}

	// returned slices are copies
	txs[0].Amount = core.Cents(1)
	again, _ := s.ListTransactions(ctx, "p")
	if again[0].Amount.Cents != 999 {
		t.Fatalf("store leaked internal slice")
	}

	if _, err := s.ListTransactions(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown profile, got %v", err)
	}
}

func TestMemoryStoreAccountsKeepTransactions(t *testing.T) {
	ctx := context.Background()
	s := New(core.Profile{ID: "p", Name: "P"})

	if err := s.SaveAccount(ctx, "p", core.BankAccount{ID: "b1", Name: "Main"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.SaveAccount(ctx, "p", core.BankAccount{ID: "b1", Name: "Renamed", Color: "#fff"}); err != nil {
		t.Fatalf("resave: %v", err)
	}
	accts, _ := s.ListAccounts(ctx, "p")
	if len(accts) != 1 || accts[0].Name != "Renamed" {
		t.Fatalf("unexpected accounts: %+v", accts)
	}

	tx := core.Transaction{ID: "t", Type: core.Income, Amount: core.Cents(1), Date: core.NewDate(2024, 1, 1), Account: core.Bank("b1")}
	if err := s.InsertTransactions(ctx, "p", tx); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.DeleteAccount(ctx, "p", "b1"); err != nil {
		t.Fatalf("delete account: %v", err)
	}
	txs, _ := s.ListTransactions(ctx, "p")
	if len(txs) != 1 {
		t.Fatalf("deleting an account must not cascade, got %d transactions", len(txs))
	}
}

func TestMemoryStoreFixedExpenses(t *testing.T) {
	ctx := context.Background()
	s := New(core.Profile{ID: "p", Name: "P"})
	fe := core.FixedExpense{
		ID: "f", StartDate: core.NewDate(2024, 1, 1), Every: core.Monthly,
		Description: "Rent", Amount: core.Cents(100), Account: core.Cash,
	}
	if err := s.SaveFixedExpense(ctx, "p", fe); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.MarkFixedExpenseExecuted(ctx, "p", "f", core.NewDate(2024, 2, 1)); err != nil {
		t.Fatalf("mark: %v", err)
	}
	list, _ := s.ListFixedExpenses(ctx, "p")
	if len(list) != 1 || list[0].LastExecution.String() != "2024-02-01" {
		t.Fatalf("unexpected fixed expenses: %+v", list)
	}
}

func TestNewFromFilesSeedsAndDedupe(t *testing.T) {
	dir := t.TempDir()
	s := NewFromFiles(dir)
	profiles, _ := s.ListProfiles(context.Background())
	if len(profiles) != 1 || profiles[0].ID != "default" {
		t.Fatalf("expected default profile when file missing, got %+v", profiles)
	}

	content := "# household\nHome\nWork\nHome\n\n"
	if err := os.WriteFile(filepath.Join(dir, "seed_profiles.txt"), []byte(content), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	s = NewFromFiles(dir)
	profiles, _ = s.ListProfiles(context.Background())
	if len(profiles) != 2 || profiles[0].Name != "Home" || profiles[1].Name != "Work" {
		t.Fatalf("unexpected profiles: %+v", profiles)
	}
}

func TestMemoryStoreUpdateRestoresLogOnError(t *testing.T) {
	ctx := context.Background()
	s := New(core.Profile{ID: "p", Name: "P"})
	kept := core.Transaction{ID: "kept", Type: core.Income, Amount: core.Cents(100), Date: core.NewDate(2024, 1, 1), Account: core.Cash}
	if err := s.InsertTransactions(ctx, "p", kept); err != nil {
		t.Fatalf("insert: %v", err)
	}

	boom := errors.New("rejected")
	err := s.Update(ctx, "p", func(txs store.TransactionStore) error {
		extra := kept
		extra.ID = "extra"
		if err := txs.InsertTransactions(ctx, "p", extra); err != nil {
			return err
		}
		if err := txs.DeleteTransaction(ctx, "p", "kept"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}
	txs, _ := s.ListTransactions(ctx, "p")
	if len(txs) != 1 || txs[0].ID != "kept" {
		t.Fatalf("log not restored: %+v", txs)
	}

	if err := s.Update(ctx, "missing", func(store.TransactionStore) error { return nil }); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

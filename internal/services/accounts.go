package services

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"saldo/internal/amqp"
	"saldo/internal/core"
	applog "saldo/internal/log"
	"saldo/internal/store"
)

// ListAccounts returns the profile's bank accounts, served from the
// account cache when one is configured.
func (s *LedgerService) ListAccounts(ctx context.Context, profileID string) ([]core.BankAccount, error) {
	if s.accounts != nil {
		if cached, ok := s.accounts.Get(profileID); ok {
			return slices.Clone(cached), nil
		}
	}
	accounts, err := s.store.ListAccounts(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	if s.accounts != nil {
		s.accounts.Set(profileID, slices.Clone(accounts))
	}
	return accounts, nil
}

func (s *LedgerService) CreateAccount(ctx context.Context, profileID, name, color string) (core.BankAccount, error) {
	a := core.BankAccount{ID: s.newID(), Name: strings.TrimSpace(name), Color: color}
	if err := a.Validate(); err != nil {
		return core.BankAccount{}, fmt.Errorf("create account: %w", err)
	}
	if err := s.store.SaveAccount(ctx, profileID, a); err != nil {
		return core.BankAccount{}, fmt.Errorf("save account: %w", err)
	}
	s.invalidateAccounts(profileID)
	s.logger.InfoContext(ctx, "Account created",
		applog.FieldProfileID, profileID,
		applog.FieldAccount, a.ID,
		applog.FieldAccountLabel, a.Name)
	return a, nil
}

func (s *LedgerService) RenameAccount(ctx context.Context, profileID, accountID, name string) error {
	return s.updateAccount(ctx, profileID, accountID, func(a *core.BankAccount) {
		a.Name = strings.TrimSpace(name)
	})
}

func (s *LedgerService) RecolorAccount(ctx context.Context, profileID, accountID, color string) error {
	return s.updateAccount(ctx, profileID, accountID, func(a *core.BankAccount) {
		a.Color = color
	})
}

func (s *LedgerService) updateAccount(ctx context.Context, profileID, accountID string, mutate func(*core.BankAccount)) error {
	accounts, err := s.ListAccounts(ctx, profileID)
	if err != nil {
		return err
	}
	i := slices.IndexFunc(accounts, func(a core.BankAccount) bool { return a.ID == accountID })
	if i < 0 {
		return fmt.Errorf("account %q: %w", accountID, store.ErrNotFound)
	}
	a := accounts[i]
	mutate(&a)
	if err := a.Validate(); err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if err := s.store.SaveAccount(ctx, profileID, a); err != nil {
		return fmt.Errorf("save account: %w", err)
	}
	s.invalidateAccounts(profileID)
	return nil
}

// DeleteAccount removes the account. Its transactions stay in the log and
// keep their own balance bucket under the deleted-account label.
func (s *LedgerService) DeleteAccount(ctx context.Context, profileID, accountID string) error {
	if err := s.store.DeleteAccount(ctx, profileID, accountID); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	s.invalidateAccounts(profileID)
	s.publish(ctx, amqp.NewLedgerEvent(profileID, amqp.AccountDeleted))
	return nil
}

func (s *LedgerService) invalidateAccounts(profileID string) {
	if s.accounts != nil {
		s.accounts.Delete(profileID)
	}
}

// CreateProfile stores p, generating an id when it has none.
func (s *LedgerService) CreateProfile(ctx context.Context, p core.Profile) (core.Profile, error) {
	if p.ID == "" {
		p.ID = s.newID()
	}
	if err := p.Validate(); err != nil {
		return core.Profile{}, fmt.Errorf("create profile: %w", err)
	}
	if err := s.store.CreateProfile(ctx, p); err != nil {
		return core.Profile{}, fmt.Errorf("create profile: %w", err)
	}
	return p, nil
}

func (s *LedgerService) ListProfiles(ctx context.Context) ([]core.Profile, error) {
	return s.store.ListProfiles(ctx)
}

// AddFixedExpense stores a recurring template. It is materialized later by
// the FixedExpenseProcessor.
func (s *LedgerService) AddFixedExpense(ctx context.Context, profileID string, fe core.FixedExpense) (core.FixedExpense, error) {
	if fe.ID == "" {
		fe.ID = s.newID()
	}
	if err := fe.Validate(); err != nil {
		return core.FixedExpense{}, fmt.Errorf("add fixed expense: %w", err)
	}
	if _, err := s.resolveAccounts(ctx, profileID, fe.Account); err != nil {
		return core.FixedExpense{}, fmt.Errorf("add fixed expense: %w", err)
	}
	if err := s.store.SaveFixedExpense(ctx, profileID, fe); err != nil {
		return core.FixedExpense{}, fmt.Errorf("save fixed expense: %w", err)
	}
	return fe, nil
}

func (s *LedgerService) ListFixedExpenses(ctx context.Context, profileID string) ([]core.FixedExpense, error) {
	return s.store.ListFixedExpenses(ctx, profileID)
}

package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"saldo/internal/amqp"
	"saldo/internal/cache"
	"saldo/internal/core"
	"saldo/internal/ledger"
	applog "saldo/internal/log"
	"saldo/internal/store"
)

// EventPublisher announces ledger changes to other processes.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, event amqp.LedgerEvent) error
}

// LedgerService applies mutations to a profile's transaction log. Every
// mutation builds the full hypothetical history and validates it before
// anything is persisted.
type LedgerService struct {
	store     store.Store
	accounts  cache.Cache[[]core.BankAccount]
	publisher EventPublisher
	logger    *applog.Logger
	newID     func() string
	locks     profileLocks
}

// NewLedgerService wires a service. accountCache, publisher and logger are optional.
func NewLedgerService(st store.Store, accountCache cache.Cache[[]core.BankAccount], publisher EventPublisher, logger *applog.Logger) *LedgerService {
	if logger == nil {
		logger = applog.Default(applog.ComponentLedger)
	}
	return &LedgerService{
		store:     st,
		accounts:  accountCache,
		publisher: publisher,
		logger:    logger.WithComponent(applog.ComponentLedger),
		newID:     uuid.NewString,
	}
}

// AddTransaction validates and stores tx, assigning an id when it has none.
func (s *LedgerService) AddTransaction(ctx context.Context, profileID string, tx core.Transaction) (core.Transaction, error) {
	return s.addTransaction(ctx, profileID, tx, amqp.TransactionCreated)
}

func (s *LedgerService) addTransaction(ctx context.Context, profileID string, tx core.Transaction, kind amqp.EventKind) (core.Transaction, error) {
	if tx.ID == "" {
		tx.ID = s.newID()
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("add transaction: %w", err)
	}

	accounts, err := s.resolveAccounts(ctx, profileID, tx.Account)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("add transaction: %w", err)
	}

	err = s.mutate(ctx, profileID, func(txs store.TransactionStore, history []core.Transaction) error {
		if err := s.check(ctx, profileID, applog.OpCreate, append(history, tx), accounts); err != nil {
			return fmt.Errorf("add transaction: %w", err)
		}
		if err := txs.InsertTransactions(ctx, profileID, tx); err != nil {
			return fmt.Errorf("save transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Transaction{}, err
	}

	s.logger.LogFields(ctx, slog.LevelInfo, "Transaction added", applog.NewFields().
		WithOperation(applog.OpCreate).
		WithProfile(profileID).
		WithTransaction(tx.ID, string(tx.Type), tx.Account.String(), tx.Date.String(), tx.Amount.Cents))
	s.publish(ctx, amqp.NewLedgerEvent(profileID, kind, tx.ID))
	return tx, nil
}

// EditTransaction replaces the stored transaction with the same id.
func (s *LedgerService) EditTransaction(ctx context.Context, profileID string, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return fmt.Errorf("edit transaction: %w", err)
	}

	accounts, err := s.ListAccounts(ctx, profileID)
	if err != nil {
		return err
	}

	err = s.mutate(ctx, profileID, func(txs store.TransactionStore, history []core.Transaction) error {
		i := indexOf(history, tx.ID)
		if i < 0 {
			return fmt.Errorf("transaction %q: %w", tx.ID, store.ErrNotFound)
		}
		// an orphaned transaction may keep its deleted account
		if tx.Account != history[i].Account {
			resolved, err := s.resolveAccounts(ctx, profileID, tx.Account)
			if err != nil {
				return fmt.Errorf("edit transaction: %w", err)
			}
			accounts = resolved
		}

		candidate := slices.Clone(history)
		candidate[i] = tx
		if err := s.check(ctx, profileID, applog.OpUpdate, candidate, accounts); err != nil {
			return fmt.Errorf("edit transaction: %w", err)
		}
		if err := txs.UpdateTransaction(ctx, profileID, tx); err != nil {
			return fmt.Errorf("update transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.publish(ctx, amqp.NewLedgerEvent(profileID, amqp.TransactionUpdated, tx.ID))
	return nil
}

// DeleteTransaction removes one transaction. Removing an income can leave a
// later expense uncovered, so the remaining history is validated too.
func (s *LedgerService) DeleteTransaction(ctx context.Context, profileID, id string) error {
	accounts, err := s.ListAccounts(ctx, profileID)
	if err != nil {
		return err
	}

	err = s.mutate(ctx, profileID, func(txs store.TransactionStore, history []core.Transaction) error {
		i := indexOf(history, id)
		if i < 0 {
			return fmt.Errorf("transaction %q: %w", id, store.ErrNotFound)
		}
		candidate := slices.Delete(slices.Clone(history), i, i+1)
		if err := s.check(ctx, profileID, applog.OpDelete, candidate, accounts); err != nil {
			return fmt.Errorf("delete transaction: %w", err)
		}
		if err := txs.DeleteTransaction(ctx, profileID, id); err != nil {
			return fmt.Errorf("delete transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.publish(ctx, amqp.NewLedgerEvent(profileID, amqp.TransactionDeleted, id))
	return nil
}

// AddTransfer records an expense on the source and an income on the
// destination, same day, linked by a shared transfer id.
func (s *LedgerService) AddTransfer(ctx context.Context, profileID string, req TransferRequest) (out, in core.Transaction, err error) {
	if err := req.Validate(); err != nil {
		return out, in, fmt.Errorf("add transfer: %w", err)
	}

	accounts, err := s.resolveAccounts(ctx, profileID, req.From, req.To)
	if err != nil {
		return out, in, fmt.Errorf("add transfer: %w", err)
	}

	desc := strings.TrimSpace(req.Description)
	if desc == "" {
		desc = "Transfer"
	}
	transferID := s.newID()
	out = core.Transaction{
		ID: s.newID(), Amount: req.Amount, Date: req.Date, Type: core.Expense,
		Account: req.From, Description: desc, TransferID: transferID,
	}
	in = core.Transaction{
		ID: s.newID(), Amount: req.Amount, Date: req.Date, Type: core.Income,
		Account: req.To, Description: desc, TransferID: transferID,
	}

	err = s.mutate(ctx, profileID, func(txs store.TransactionStore, history []core.Transaction) error {
		if err := s.check(ctx, profileID, applog.OpTransfer, append(history, out, in), accounts); err != nil {
			return fmt.Errorf("add transfer: %w", err)
		}
		if err := txs.InsertTransactions(ctx, profileID, out, in); err != nil {
			return fmt.Errorf("save transfer: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Transaction{}, core.Transaction{}, err
	}

	s.logger.InfoContext(ctx, "Transfer added",
		applog.FieldProfileID, profileID,
		applog.FieldTransferID, transferID,
		"from", req.From.String(),
		"to", req.To.String(),
		applog.FieldAmountCents, req.Amount.Cents)
	s.publish(ctx, amqp.NewLedgerEvent(profileID, amqp.TransferCreated, out.ID, in.ID))
	return out, in, nil
}

// RecordDebtPayment stores a payment towards a liability or loan. A
// read-only payment is hidden and skips balance validation.
func (s *LedgerService) RecordDebtPayment(ctx context.Context, profileID string, p DebtPayment) (core.Transaction, error) {
	if err := p.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("record payment: %w", err)
	}

	tx := core.Transaction{
		ID:          s.newID(),
		Amount:      p.Amount,
		Date:        p.Date,
		Type:        core.Expense,
		Account:     p.Account,
		IsHidden:    p.ReadOnly,
		Description: p.Description,
		LiabilityID: p.LiabilityID,
		LoanID:      p.LoanID,
	}

	accounts, err := s.resolveAccounts(ctx, profileID, tx.Account)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("record payment: %w", err)
	}

	err = s.mutate(ctx, profileID, func(txs store.TransactionStore, history []core.Transaction) error {
		if !p.ReadOnly {
			if err := s.check(ctx, profileID, applog.OpPayment, append(history, tx), accounts); err != nil {
				return fmt.Errorf("record payment: %w", err)
			}
		}
		if err := txs.InsertTransactions(ctx, profileID, tx); err != nil {
			return fmt.Errorf("save payment: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Transaction{}, err
	}
	s.publish(ctx, amqp.NewLedgerEvent(profileID, amqp.PaymentRecorded, tx.ID))
	return tx, nil
}

// mutate runs fn with the profile's current log while holding the
// profile's lock and the store's write transaction, so no other writer
// can change the log between validation and the write.
func (s *LedgerService) mutate(ctx context.Context, profileID string, fn func(txs store.TransactionStore, history []core.Transaction) error) error {
	unlock := s.locks.lock(profileID)
	defer unlock()

	return s.store.Update(ctx, profileID, func(txs store.TransactionStore) error {
		history, err := txs.ListTransactions(ctx, profileID)
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		return fn(txs, history)
	})
}

// profileLocks hands out one mutex per profile.
type profileLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (l *profileLocks) lock(profileID string) (unlock func()) {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*sync.Mutex)
	}
	m, ok := l.locks[profileID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[profileID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// ListTransactions returns the profile's log in ledger order.
func (s *LedgerService) ListTransactions(ctx context.Context, profileID string) ([]core.Transaction, error) {
	history, err := s.store.ListTransactions(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return ledger.Sort(history), nil
}

// Balances projects the whole log.
func (s *LedgerService) Balances(ctx context.Context, profileID string) (core.BalanceOverview, error) {
	history, err := s.store.ListTransactions(ctx, profileID)
	if err != nil {
		return core.BalanceOverview{}, fmt.Errorf("list transactions: %w", err)
	}
	accounts, err := s.ListAccounts(ctx, profileID)
	if err != nil {
		return core.BalanceOverview{}, err
	}
	return overview(core.Date{}, ledger.Project(ledger.Sort(history)), accounts), nil
}

// BalancesAsOf projects every transaction dated on or before day.
func (s *LedgerService) BalancesAsOf(ctx context.Context, profileID string, day core.Date) (core.BalanceOverview, error) {
	history, err := s.store.ListTransactions(ctx, profileID)
	if err != nil {
		return core.BalanceOverview{}, fmt.Errorf("list transactions: %w", err)
	}
	accounts, err := s.ListAccounts(ctx, profileID)
	if err != nil {
		return core.BalanceOverview{}, err
	}
	return overview(day, ledger.BalancesAsOf(history, day), accounts), nil
}

// CheckHistory validates the stored log as it is. A nil violation means
// no account ever goes negative.
func (s *LedgerService) CheckHistory(ctx context.Context, profileID string) (*ledger.Violation, error) {
	history, err := s.store.ListTransactions(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	accounts, err := s.ListAccounts(ctx, profileID)
	if err != nil {
		return nil, err
	}
	return ledger.Validate(history, accounts), nil
}

// EarliestTransferDate is the first day acct holds at least amount. It
// falls back to today when there is no constraint or the balance never
// gets there.
func (s *LedgerService) EarliestTransferDate(ctx context.Context, profileID string, acct core.AccountRef, amount core.Money, today core.Date) (core.Date, error) {
	history, err := s.store.ListTransactions(ctx, profileID)
	if err != nil {
		return core.Date{}, fmt.Errorf("list transactions: %w", err)
	}
	if day, ok := ledger.FirstDateWithSufficientBalance(history, acct, amount); ok {
		return day, nil
	}
	return today, nil
}

// EarliestExpenseDate is the day of the first income; expenses cannot
// predate it.
func (s *LedgerService) EarliestExpenseDate(ctx context.Context, profileID string, opts ...ledger.IncomeOption) (core.Date, bool, error) {
	history, err := s.store.ListTransactions(ctx, profileID)
	if err != nil {
		return core.Date{}, false, fmt.Errorf("list transactions: %w", err)
	}
	day, ok := ledger.FirstIncomeDate(history, opts...)
	return day, ok, nil
}

func (s *LedgerService) check(ctx context.Context, profileID, op string, candidate []core.Transaction, accounts []core.BankAccount) error {
	v := ledger.Validate(candidate, accounts)
	if v == nil {
		return nil
	}
	s.logger.LogFields(ctx, slog.LevelWarn, "Change rejected", applog.NewFields().
		WithOperation(op).
		WithProfile(profileID).
		WithErrorType(applog.ErrorTypeViolation).
		WithViolation(string(v.Kind), v.AccountLabel, v.Date.String()))
	return v
}

func (s *LedgerService) publish(ctx context.Context, event amqp.LedgerEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishLedgerEvent(ctx, event); err != nil {
		s.logger.LogFields(ctx, slog.LevelError, "Failed to publish ledger event", applog.NewFields().
			WithOperation(applog.OpPublish).
			WithProfile(event.ProfileID).
			WithErrorType(applog.ErrorTypeNetwork).
			WithError(err))
	}
}

func overview(asOf core.Date, balances ledger.Balances, accounts []core.BankAccount) core.BalanceOverview {
	o := core.BalanceOverview{AsOf: asOf, Total: balances.Total()}
	o.Accounts = append(o.Accounts, core.AccountBalance{
		Account: core.Cash, Label: ledger.CashLabel, Balance: balances.Of(core.Cash),
	})

	known := make(map[core.AccountRef]bool, len(accounts))
	for _, a := range accounts {
		known[a.Ref()] = true
		o.Accounts = append(o.Accounts, core.AccountBalance{
			Account: a.Ref(), Label: a.Name, Balance: balances.Of(a.Ref()),
		})
	}

	var orphans []core.AccountRef
	for ref := range balances {
		if !ref.IsCash() && !known[ref] {
			orphans = append(orphans, ref)
		}
	}
	slices.SortFunc(orphans, func(a, b core.AccountRef) int { return strings.Compare(a.String(), b.String()) })
	for _, ref := range orphans {
		o.Accounts = append(o.Accounts, core.AccountBalance{
			Account: ref, Label: ledger.DeletedAccountLabel, Balance: balances.Of(ref),
		})
	}
	return o
}

// resolveAccounts returns the profile's accounts and checks that every ref
// names one of them. A miss reloads the list past the cache, since another
// process may have created the account after it was cached.
func (s *LedgerService) resolveAccounts(ctx context.Context, profileID string, refs ...core.AccountRef) ([]core.BankAccount, error) {
	accounts, err := s.ListAccounts(ctx, profileID)
	if err != nil {
		return nil, err
	}
	for _, ref := range refs {
		if requireAccount(accounts, ref) != nil {
			s.invalidateAccounts(profileID)
			if accounts, err = s.ListAccounts(ctx, profileID); err != nil {
				return nil, err
			}
			break
		}
	}
	for _, ref := range refs {
		if err := requireAccount(accounts, ref); err != nil {
			return nil, err
		}
	}
	return accounts, nil
}

func requireAccount(accounts []core.BankAccount, ref core.AccountRef) error {
	if ref.IsCash() {
		return nil
	}
	for _, a := range accounts {
		if a.ID == ref.BankID() {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownAccount, ref.BankID())
}

func indexOf(txs []core.Transaction, id string) int {
	return slices.IndexFunc(txs, func(t core.Transaction) bool { return t.ID == id })
}

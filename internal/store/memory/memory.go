package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"saldo/internal/core"
	"saldo/internal/store"
)

type profileData struct {
	accounts []core.BankAccount
	txs      []core.Transaction
	fixed    []core.FixedExpense
}

// Store keeps every profile in process memory. Reads return copies.
type Store struct {
	mu       sync.Mutex
	profiles []core.Profile
	data     map[string]*profileData

	// writeMu serializes Update calls; mu only guards single operations.
	writeMu sync.Mutex
}

func New(profiles ...core.Profile) *Store {
	s := &Store{data: make(map[string]*profileData)}
	for _, p := range profiles {
		if _, ok := s.data[p.ID]; ok {
			continue
		}
		s.profiles = append(s.profiles, p)
		s.data[p.ID] = &profileData{}
	}
	return s
}

// NewFromFiles seeds profiles from base/seed_profiles.txt, one name per
// line. The name doubles as the id. Falls back to a single "default" profile.
func NewFromFiles(base string) *Store {
	names := readLines(filepath.Join(base, "seed_profiles.txt"))
	if len(names) == 0 {
		names = []string{"default"}
	}
	profiles := make([]core.Profile, len(names))
	for i, n := range names {
		profiles[i] = core.Profile{ID: n, Name: n}
	}
	return New(profiles...)
}

func (s *Store) CreateProfile(_ context.Context, p core.Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[p.ID]; ok {
		return fmt.Errorf("profile %q already exists", p.ID)
	}
	s.profiles = append(s.profiles, p)
	s.data[p.ID] = &profileData{}
	return nil
}

func (s *Store) ListProfiles(_ context.Context) ([]core.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.profiles), nil
}

func (s *Store) ListAccounts(_ context.Context, profileID string) ([]core.BankAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.profile(profileID)
	if err != nil {
		return nil, err
	}
	return slices.Clone(d.accounts), nil
}

func (s *Store) SaveAccount(_ context.Context, profileID string, a core.BankAccount) error {
	if err := a.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.profile(profileID)
	if err != nil {
		return err
	}
	if i := slices.IndexFunc(d.accounts, func(x core.BankAccount) bool { return x.ID == a.ID }); i >= 0 {
		d.accounts[i] = a
		return nil
	}
	d.accounts = append(d.accounts, a)
	return nil
}

func (s *Store) DeleteAccount(_ context.Context, profileID, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.profile(profileID)
	if err != nil {
		return err
	}
	i := slices.IndexFunc(d.accounts, func(x core.BankAccount) bool { return x.ID == accountID })
	if i < 0 {
		return fmt.Errorf("account %q: %w", accountID, store.ErrNotFound)
	}
	d.accounts = slices.Delete(d.accounts, i, i+1)
	return nil
}

func (s *Store) ListTransactions(_ context.Context, profileID string) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.profile(profileID)
	if err != nil {
		return nil, err
	}
	return slices.Clone(d.txs), nil
}

func (s *Store) InsertTransactions(_ context.Context, profileID string, txs ...core.Transaction) error {
	for _, tx := range txs {
		if err := tx.Validate(); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.profile(profileID)
	if err != nil {
		return err
	}
	for _, tx := range txs {
		if d.txIndex(tx.ID) >= 0 {
			return fmt.Errorf("transaction %q already exists", tx.ID)
		}
	}
	d.txs = append(d.txs, txs...)
	return nil
}

func (s *Store) UpdateTransaction(_ context.Context, profileID string, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.profile(profileID)
	if err != nil {
		return err
	}
	i := d.txIndex(tx.ID)
	if i < 0 {
		return fmt.Errorf("transaction %q: %w", tx.ID, store.ErrNotFound)
	}
	d.txs[i] = tx
	return nil
}

func (s *Store) DeleteTransaction(_ context.Context, profileID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.profile(profileID)
	if err != nil {
		return err
	}
	i := d.txIndex(id)
	if i < 0 {
		return fmt.Errorf("transaction %q: %w", id, store.ErrNotFound)
	}
	d.txs = slices.Delete(d.txs, i, i+1)
	return nil
}

// Update runs fn while holding the store's writer lock. When fn fails the
// profile's log is restored to what it was before fn ran.
func (s *Store) Update(_ context.Context, profileID string, fn func(txs store.TransactionStore) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	d, err := s.profile(profileID)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	snapshot := slices.Clone(d.txs)
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		d.txs = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) ListFixedExpenses(_ context.Context, profileID string) ([]core.FixedExpense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.profile(profileID)
	if err != nil {
		return nil, err
	}
	return slices.Clone(d.fixed), nil
}

func (s *Store) SaveFixedExpense(_ context.Context, profileID string, fe core.FixedExpense) error {
	if err := fe.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.profile(profileID)
	if err != nil {
		return err
	}
	if i := d.fixedIndex(fe.ID); i >= 0 {
		d.fixed[i] = fe
		return nil
	}
	d.fixed = append(d.fixed, fe)
	return nil
}

func (s *Store) MarkFixedExpenseExecuted(_ context.Context, profileID, id string, day core.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.profile(profileID)
	if err != nil {
		return err
	}
	i := d.fixedIndex(id)
	if i < 0 {
		return fmt.Errorf("fixed expense %q: %w", id, store.ErrNotFound)
	}
	d.fixed[i].LastExecution = day
	return nil
}

// profile must be called with s.mu held.
func (s *Store) profile(id string) (*profileData, error) {
	d, ok := s.data[id]
	if !ok {
		return nil, fmt.Errorf("profile %q: %w", id, store.ErrNotFound)
	}
	return d, nil
}

func (d *profileData) txIndex(id string) int {
	return slices.IndexFunc(d.txs, func(t core.Transaction) bool { return t.ID == id })
}

func (d *profileData) fixedIndex(id string) int {
	return slices.IndexFunc(d.fixed, func(f core.FixedExpense) bool { return f.ID == id })
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return dedupe(out)
}

func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"finance/internal/core"
	"finance/internal/fixture"
	"finance/internal/store"
)

// Store keeps every record in process memory. Records are copied on the way
// in and out so callers never share slices with the store.
type Store struct {
	mu           sync.RWMutex
	transactions []core.Transaction
	txIDs        map[string]struct{}
	budgets      []core.Budget
	pots         []core.Pot
	users        map[string]core.User // keyed by id
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		txIDs: map[string]struct{}{},
		users: map[string]core.User{},
	}
}

// NewSeeded returns a store preloaded with the embedded fixture.
func NewSeeded() (*Store, error) {
	d, err := fixture.Load()
	if err != nil {
		return nil, err
	}
	s := New()
	if err := s.InsertTransactions(context.Background(), d.Transactions); err != nil {
		return nil, fmt.Errorf("seed transactions: %w", err)
	}
	s.budgets = append(s.budgets, d.Budgets...)
	s.pots = append(s.pots, d.Pots...)
	return s, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) ListTransactions(_ context.Context) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Transaction(nil), s.transactions...), nil
}

func (s *Store) InsertTransactions(_ context.Context, txs []core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch := make(map[string]struct{}, len(txs))
	for _, t := range txs {
		if _, ok := s.txIDs[t.ID]; ok {
			return fmt.Errorf("transaction %s: %w", t.ID, store.ErrConflict)
		}
		if _, ok := batch[t.ID]; ok {
			return fmt.Errorf("transaction %s repeated in batch: %w", t.ID, store.ErrConflict)
		}
		batch[t.ID] = struct{}{}
	}
	for _, t := range txs {
		s.txIDs[t.ID] = struct{}{}
		s.transactions = append(s.transactions, t)
	}
	return nil
}

func (s *Store) ListBudgets(_ context.Context) ([]core.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Budget, len(s.budgets))
	for i, b := range s.budgets {
		out[i] = copyBudget(b)
	}
	return out, nil
}

func (s *Store) GetBudget(_ context.Context, category core.Category) (core.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.budgetIndex(category)
	if i < 0 {
		return core.Budget{}, fmt.Errorf("budget %s: %w", category, store.ErrNotFound)
	}
	return copyBudget(s.budgets[i]), nil
}

func (s *Store) CreateBudget(_ context.Context, b core.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.budgetIndex(b.Category) >= 0 {
		return fmt.Errorf("budget %s: %w", b.Category, store.ErrConflict)
	}
	s.budgets = append(s.budgets, copyBudget(b))
	return nil
}

func (s *Store) UpdateBudget(_ context.Context, category core.Category, b core.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.budgetIndex(category)
	if i < 0 {
		return fmt.Errorf("budget %s: %w", category, store.ErrNotFound)
	}
	if b.Category != category && s.budgetIndex(b.Category) >= 0 {
		return fmt.Errorf("budget %s: %w", b.Category, store.ErrConflict)
	}
	s.budgets[i] = copyBudget(b)
	return nil
}

func (s *Store) SaveBudgetTotals(_ context.Context, budgets []core.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range budgets {
		if i := s.budgetIndex(b.Category); i >= 0 {
			cur := &s.budgets[i]
			cur.Spent = b.Spent
			cur.Remaining = b.Remaining
			cur.Transactions = copyBudget(b).Transactions
		}
	}
	return nil
}

func (s *Store) DeleteBudget(_ context.Context, category core.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.budgetIndex(category)
	if i < 0 {
		return fmt.Errorf("budget %s: %w", category, store.ErrNotFound)
	}
	s.budgets = append(s.budgets[:i], s.budgets[i+1:]...)
	return nil
}

func (s *Store) ListPots(_ context.Context) ([]core.Pot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Pot(nil), s.pots...), nil
}

func (s *Store) GetPot(_ context.Context, id string) (core.Pot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.potIndex(id)
	if i < 0 {
		return core.Pot{}, fmt.Errorf("pot %s: %w", id, store.ErrNotFound)
	}
	return s.pots[i], nil
}

func (s *Store) CreatePot(_ context.Context, p core.Pot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.potIndex(p.ID) >= 0 || s.potNameTaken(p.Name, "") {
		return fmt.Errorf("pot %s: %w", p.Name, store.ErrConflict)
	}
	s.pots = append(s.pots, p)
	return nil
}

func (s *Store) UpdatePot(_ context.Context, p core.Pot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.potIndex(p.ID)
	if i < 0 {
		return fmt.Errorf("pot %s: %w", p.ID, store.ErrNotFound)
	}
	if s.potNameTaken(p.Name, p.ID) {
		return fmt.Errorf("pot %s: %w", p.Name, store.ErrConflict)
	}
	s.pots[i] = p
	return nil
}

func (s *Store) DeletePot(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.potIndex(id)
	if i < 0 {
		return fmt.Errorf("pot %s: %w", id, store.ErrNotFound)
	}
	s.pots = append(s.pots[:i], s.pots[i+1:]...)
	return nil
}

func (s *Store) CreateUser(_ context.Context, u core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.Email = core.NormalizeEmail(u.Email)
	if _, ok := s.users[u.ID]; ok {
		return fmt.Errorf("user %s: %w", u.ID, store.ErrConflict)
	}
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return fmt.Errorf("user %s: %w", u.Email, store.ErrConflict)
		}
	}
	s.users[u.ID] = u
	return nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	email = core.NormalizeEmail(email)
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return core.User{}, fmt.Errorf("user %s: %w", email, store.ErrNotFound)
}

func (s *Store) GetUserByID(_ context.Context, id string) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, fmt.Errorf("user %s: %w", id, store.ErrNotFound)
	}
	return u, nil
}

func (s *Store) budgetIndex(c core.Category) int {
	for i, b := range s.budgets {
		if b.Category == c {
			return i
		}
	}
	return -1
}

func (s *Store) potIndex(id string) int {
	for i, p := range s.pots {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) potNameTaken(name, exceptID string) bool {
	for _, p := range s.pots {
		if p.ID != exceptID && strings.EqualFold(p.Name, name) {
			return true
		}
	}
	return false
}

func copyBudget(b core.Budget) core.Budget {
	b.Transactions = append(make([]string, 0, len(b.Transactions)), b.Transactions...)
	return b
}

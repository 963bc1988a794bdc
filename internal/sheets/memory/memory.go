// Package memory is an in-process spreadsheet mirror for development and tests.
package memory

import (
	"context"
	"slices"
	"sync"

	"finance/internal/core"
	ports "finance/internal/sheets"
)

type Store struct {
	mu      sync.Mutex
	budgets []core.Budget
	pots    []core.Pot
	writes  int
}

var (
	_ ports.Exporter       = (*Store)(nil)
	_ ports.SnapshotReader = (*Store)(nil)
)

func New() *Store {
	return &Store{budgets: []core.Budget{}, pots: []core.Pot{}}
}

func (s *Store) WriteBudgets(_ context.Context, budgets []core.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.budgets = slices.Clone(budgets)
	s.writes++
	return nil
}

func (s *Store) WritePots(_ context.Context, pots []core.Pot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pots = slices.Clone(pots)
	s.writes++
	return nil
}

func (s *Store) ReadBudgets(context.Context) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.budgets), nil
}

func (s *Store) ReadPots(context.Context) ([]core.Pot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.pots), nil
}

// Writes returns how many snapshots have been written.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

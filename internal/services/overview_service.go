package services

import (
	"context"
	"fmt"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"finance/internal/core"
	"finance/internal/fixture"
	"finance/internal/log"
	"finance/internal/store"
)

// LatestTransactionsCount is how many transactions the overview lists.
const LatestTransactionsCount = 5

// Overview is the dashboard aggregate.
type Overview struct {
	Balance        core.Balance         `json:"balance"`
	Pots           core.PotsSummary     `json:"pots"`
	Budgets        []core.BudgetSummary `json:"budgets"`
	Transactions   []core.Transaction   `json:"transactions"`
	RecurringBills core.BillSummary     `json:"recurringBills"`
}

// FinancialData is the fixture document with classified bills added.
type FinancialData struct {
	Balance      core.Balance       `json:"balance"`
	Transactions []core.Transaction `json:"transactions"`
	Budgets      []core.Budget      `json:"budgets"`
	Pots         []core.Pot         `json:"pots"`
	Bills        []core.Bill        `json:"bills"`
}

type OverviewService struct {
	store   store.Store
	opening core.Money
	now     func() time.Time
	logger  *log.Logger
}

// NewOverviewService computes the balance on top of opening.
func NewOverviewService(s store.Store, opening core.Money, now func() time.Time, logger *log.Logger) *OverviewService {
	if now == nil {
		now = time.Now
	}
	return &OverviewService{store: s, opening: opening, now: now, logger: logger.WithComponent(log.ComponentOverview)}
}

// Overview loads transactions, budgets and pots concurrently and derives the dashboard.
func (s *OverviewService) Overview(ctx context.Context) (Overview, error) {
	var (
		txs     []core.Transaction
		budgets []core.Budget
		pots    []core.Pot
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		if txs, err = s.store.ListTransactions(gctx); err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		if budgets, err = s.store.ListBudgets(gctx); err != nil {
			return fmt.Errorf("list budgets: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		if pots, err = s.store.ListPots(gctx); err != nil {
			return fmt.Errorf("list pots: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.WarnContext(ctx, "Overview load failed", log.FieldError, err)
		return Overview{}, err
	}

	summaries := make([]core.BudgetSummary, 0, len(budgets))
	for _, b := range budgets {
		summaries = append(summaries, core.BudgetSummary{
			Budget:         b,
			LatestSpending: core.LatestInCategory(txs, b.Category, core.LatestSpendingCount),
		})
	}

	s.logger.DebugContext(ctx, "Overview computed",
		log.FieldCount, len(txs),
		"budgets", len(budgets),
		"pots", len(pots))
	return Overview{
		Balance:        core.ComputeBalance(s.opening, txs),
		Pots:           core.SummarizePots(pots),
		Budgets:        summaries,
		Transactions:   latest(txs, LatestTransactionsCount),
		RecurringBills: core.SummarizeBills(txs, s.now()),
	}, nil
}

// FinancialData returns the embedded sample document with bills classified at now.
func (s *OverviewService) FinancialData() (FinancialData, error) {
	d, err := fixture.Load()
	if err != nil {
		return FinancialData{}, err
	}
	return FinancialData{
		Balance:      d.Balance,
		Transactions: d.Transactions,
		Budgets:      d.Budgets,
		Pots:         d.Pots,
		Bills:        core.ListBills(d.Transactions, s.now()),
	}, nil
}

func latest(txs []core.Transaction, n int) []core.Transaction {
	out := slices.Clone(txs)
	slices.SortStableFunc(out, func(a, b core.Transaction) int { return b.Date.Compare(a.Date) })
	if len(out) > n {
		out = out[:n]
	}
	if out == nil {
		out = []core.Transaction{}
	}
	return out
}

package services

import (
	"context"
	"fmt"

	"finance/internal/amqp"
	"finance/internal/core"
	"finance/internal/log"
	"finance/internal/store"
)

// BudgetInput is the client-writable part of a budget.
type BudgetInput struct {
	Category core.Category
	Maximum  core.Money
	Theme    core.Theme
}

// BudgetsView is the GET /budgets payload.
type BudgetsView struct {
	Budgets      []core.BudgetSummary `json:"budgets"`
	Transactions []core.Transaction   `json:"transactions"`
}

type BudgetService struct {
	budgets store.BudgetStore
	txs     store.TransactionStore
	notify  notifier
	logger  *log.Logger
}

func NewBudgetService(budgets store.BudgetStore, txs store.TransactionStore, pub EventPublisher, logger *log.Logger) *BudgetService {
	logger = logger.WithComponent(log.ComponentBudget)
	return &BudgetService{
		budgets: budgets,
		txs:     txs,
		notify:  notifier{publisher: pub, logger: logger},
		logger:  logger,
	}
}

// List returns every budget with its latest spending, plus the transactions
// linked to any budget.
func (s *BudgetService) List(ctx context.Context) (BudgetsView, error) {
	budgets, err := s.budgets.ListBudgets(ctx)
	if err != nil {
		return BudgetsView{}, fmt.Errorf("list budgets: %w", err)
	}
	txs, err := s.txs.ListTransactions(ctx)
	if err != nil {
		return BudgetsView{}, fmt.Errorf("list transactions: %w", err)
	}

	view := BudgetsView{
		Budgets:      make([]core.BudgetSummary, 0, len(budgets)),
		Transactions: make([]core.Transaction, 0),
	}
	budgeted := make(map[core.Category]bool, len(budgets))
	for _, b := range budgets {
		budgeted[b.Category] = true
		view.Budgets = append(view.Budgets, core.BudgetSummary{
			Budget:         b,
			LatestSpending: core.LatestInCategory(txs, b.Category, core.LatestSpendingCount),
		})
	}
	for _, t := range txs {
		if budgeted[t.Category] {
			view.Transactions = append(view.Transactions, t)
		}
	}
	return view, nil
}

func (s *BudgetService) Get(ctx context.Context, category core.Category) (core.BudgetSummary, error) {
	b, err := s.budgets.GetBudget(ctx, category)
	if err != nil {
		return core.BudgetSummary{}, fmt.Errorf("get budget %s: %w", category, err)
	}
	txs, err := s.txs.ListTransactions(ctx)
	if err != nil {
		return core.BudgetSummary{}, fmt.Errorf("list transactions: %w", err)
	}
	return core.BudgetSummary{Budget: b, LatestSpending: core.LatestInCategory(txs, b.Category, core.LatestSpendingCount)}, nil
}

// Create aggregates the new budget against current transactions and stores it.
func (s *BudgetService) Create(ctx context.Context, in BudgetInput) (core.Budget, error) {
	b, err := s.aggregate(ctx, in)
	if err != nil {
		return core.Budget{}, err
	}
	if err := s.budgets.CreateBudget(ctx, b); err != nil {
		return core.Budget{}, fmt.Errorf("create budget %s: %w", b.Category, err)
	}

	s.logWrite(ctx, log.OpCreate, b)
	s.notify.publish(ctx, amqp.EventBudgetSaved, string(b.Category))
	return b, nil
}

// Update replaces the budget stored under category. The input may move the
// budget to another category.
func (s *BudgetService) Update(ctx context.Context, category core.Category, in BudgetInput) (core.Budget, error) {
	b, err := s.aggregate(ctx, in)
	if err != nil {
		return core.Budget{}, err
	}
	if err := s.budgets.UpdateBudget(ctx, category, b); err != nil {
		return core.Budget{}, fmt.Errorf("update budget %s: %w", category, err)
	}

	s.logWrite(ctx, log.OpUpdate, b)
	if b.Category != category {
		s.notify.publish(ctx, amqp.EventBudgetDeleted, string(category))
	}
	s.notify.publish(ctx, amqp.EventBudgetSaved, string(b.Category))
	return b, nil
}

func (s *BudgetService) Delete(ctx context.Context, category core.Category) error {
	if err := s.budgets.DeleteBudget(ctx, category); err != nil {
		return fmt.Errorf("delete budget %s: %w", category, err)
	}
	s.logger.InfoContext(ctx, "Budget deleted", log.FieldCategory, category, log.FieldOperation, log.OpDelete)
	s.notify.publish(ctx, amqp.EventBudgetDeleted, string(category))
	return nil
}

// Refresh recomputes the derived fields of every budget from the current
// transactions and persists them.
func (s *BudgetService) Refresh(ctx context.Context) error {
	budgets, err := s.budgets.ListBudgets(ctx)
	if err != nil {
		return fmt.Errorf("list budgets: %w", err)
	}
	if len(budgets) == 0 {
		return nil
	}
	txs, err := s.txs.ListTransactions(ctx)
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}
	for i, b := range budgets {
		budgets[i] = core.AggregateBudget(b, txs)
	}
	if err := s.budgets.SaveBudgetTotals(ctx, budgets); err != nil {
		return fmt.Errorf("save budget totals: %w", err)
	}
	for _, b := range budgets {
		s.notify.publish(ctx, amqp.EventBudgetSaved, string(b.Category))
	}
	return nil
}

func (s *BudgetService) aggregate(ctx context.Context, in BudgetInput) (core.Budget, error) {
	category, err := core.ParseCategory(string(in.Category))
	if err != nil {
		return core.Budget{}, err
	}
	b := core.Budget{Category: category, Maximum: in.Maximum, Theme: in.Theme}
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	txs, err := s.txs.ListTransactions(ctx)
	if err != nil {
		return core.Budget{}, fmt.Errorf("list transactions: %w", err)
	}
	return core.AggregateBudget(b, txs), nil
}

func (s *BudgetService) logWrite(ctx context.Context, op string, b core.Budget) {
	log.NewStructuredLogger(s.logger).LogLedgerWrite(ctx, log.ComponentBudget, op, string(b.Category), "", b.Maximum.Cents)
}

// Package store defines the persistence ports for transactions, budgets,
// pots and users. Implementations live in the memory, sqlite and mongo
// subpackages.
package store

import (
	"context"
	"errors"

	"finance/internal/core"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict reports a unique key collision: budget category, pot name,
	// user email or transaction id.
	ErrConflict = errors.New("conflict")
)

type (
	TransactionStore interface {
		ListTransactions(ctx context.Context) ([]core.Transaction, error)
		// InsertTransactions stores all of txs or none of them.
		InsertTransactions(ctx context.Context, txs []core.Transaction) error
	}

	BudgetStore interface {
		ListBudgets(ctx context.Context) ([]core.Budget, error)
		GetBudget(ctx context.Context, category core.Category) (core.Budget, error)
		CreateBudget(ctx context.Context, b core.Budget) error
		// UpdateBudget replaces the budget keyed by category; b may carry a new category.
		UpdateBudget(ctx context.Context, category core.Category, b core.Budget) error
		// SaveBudgetTotals writes recomputed derived fields for existing budgets.
		SaveBudgetTotals(ctx context.Context, budgets []core.Budget) error
		DeleteBudget(ctx context.Context, category core.Category) error
	}

	PotStore interface {
		ListPots(ctx context.Context) ([]core.Pot, error)
		GetPot(ctx context.Context, id string) (core.Pot, error)
		CreatePot(ctx context.Context, p core.Pot) error
		UpdatePot(ctx context.Context, p core.Pot) error
		DeletePot(ctx context.Context, id string) error
	}

	UserStore interface {
		CreateUser(ctx context.Context, u core.User) error
		// GetUserByEmail matches the email case-insensitively.
		GetUserByEmail(ctx context.Context, email string) (core.User, error)
		GetUserByID(ctx context.Context, id string) (core.User, error)
	}

	// Store is the full persistence surface of one backend.
	Store interface {
		TransactionStore
		BudgetStore
		PotStore
		UserStore
		Ping(ctx context.Context) error
		Close() error
	}
)

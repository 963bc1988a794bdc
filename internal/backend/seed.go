package backend

import (
	"context"
	"errors"
	"fmt"

	"finance/internal/fixture"
	"finance/internal/store"
)

// SeedResult counts the records written by Seed.
type SeedResult struct {
	Transactions int
	Budgets      int
	Pots         int
}

// Seed loads the sample data into st. Transactions are only inserted into an
// empty ledger; budgets and pots that already exist are left untouched, so
// running it twice is harmless.
func Seed(ctx context.Context, st store.Store, data fixture.Data) (SeedResult, error) {
	var res SeedResult

	existing, err := st.ListTransactions(ctx)
	if err != nil {
		return res, fmt.Errorf("list transactions: %w", err)
	}
	if len(existing) == 0 && len(data.Transactions) > 0 {
		if err := st.InsertTransactions(ctx, data.Transactions); err != nil {
			return res, fmt.Errorf("insert transactions: %w", err)
		}
		res.Transactions = len(data.Transactions)
	}

	for _, b := range data.Budgets {
		err := st.CreateBudget(ctx, b)
		switch {
		case errors.Is(err, store.ErrConflict):
		case err != nil:
			return res, fmt.Errorf("create budget %s: %w", b.Category, err)
		default:
			res.Budgets++
		}
	}

	for _, p := range data.Pots {
		err := st.CreatePot(ctx, p)
		switch {
		case errors.Is(err, store.ErrConflict):
		case err != nil:
			return res, fmt.Errorf("create pot %s: %w", p.Name, err)
		default:
			res.Pots++
		}
	}
	return res, nil
}

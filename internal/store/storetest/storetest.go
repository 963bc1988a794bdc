// Package storetest holds the behaviour every store.Store implementation must share.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finance/internal/core"
	"finance/internal/store"
)

// Run exercises s. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Run("transactions", func(t *testing.T) { testTransactions(t, newStore(t)) })
	t.Run("budgets", func(t *testing.T) { testBudgets(t, newStore(t)) })
	t.Run("pots", func(t *testing.T) { testPots(t, newStore(t)) })
	t.Run("users", func(t *testing.T) { testUsers(t, newStore(t)) })
}

func tx(id string, c core.Category, cents int64, day int) core.Transaction {
	return core.Transaction{
		ID:        id,
		Avatar:    "./assets/images/avatars/" + id + ".jpg",
		Name:      "Payee " + id,
		Category:  c,
		Date:      time.Date(2024, 8, day, 10, 0, 0, 0, time.UTC),
		Amount:    core.Money{Cents: cents},
		Recurring: day%2 == 0,
	}
}

func testTransactions(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.Ping(ctx))

	batch := []core.Transaction{tx("a", core.Bills, -10000, 2), tx("b", core.Income, 250000, 1)}
	require.NoError(t, s.InsertTransactions(ctx, batch))

	got, err := s.ListTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	byID := map[string]core.Transaction{}
	for _, g := range got {
		byID[g.ID] = g
	}
	assert.Equal(t, batch[0].Amount, byID["a"].Amount)
	assert.True(t, batch[0].Date.Equal(byID["a"].Date))
	assert.True(t, byID["a"].Recurring)
	assert.Equal(t, core.Income, byID["b"].Category)

	// One duplicate rejects the whole batch.
	err = s.InsertTransactions(ctx, []core.Transaction{tx("c", core.General, -100, 3), tx("a", core.Bills, -1, 4)})
	assert.ErrorIs(t, err, store.ErrConflict)
	got, err = s.ListTransactions(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func testBudgets(t *testing.T, s store.Store) {
	ctx := context.Background()
	b := core.Budget{Category: core.Bills, Maximum: core.Money{Cents: 75000}, Theme: "#82C9D7"}
	b = core.AggregateBudget(b, []core.Transaction{tx("a", core.Bills, -10000, 2)})

	require.NoError(t, s.CreateBudget(ctx, b))
	assert.ErrorIs(t, s.CreateBudget(ctx, b), store.ErrConflict)

	got, err := s.GetBudget(ctx, core.Bills)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), got.Spent.Cents)
	assert.Equal(t, int64(65000), got.Remaining.Cents)
	assert.Equal(t, []string{"a"}, got.Transactions)

	_, err = s.GetBudget(ctx, core.Shopping)
	assert.ErrorIs(t, err, store.ErrNotFound)

	b.Category = core.Shopping
	b.Theme = "#F2CDAC"
	require.NoError(t, s.UpdateBudget(ctx, core.Bills, b))
	_, err = s.GetBudget(ctx, core.Bills)
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.CreateBudget(ctx, core.Budget{Category: core.Groceries, Maximum: core.Money{Cents: 100}, Theme: "#277C78", Transactions: []string{}}))
	assert.ErrorIs(t, s.UpdateBudget(ctx, core.Groceries, b), store.ErrConflict)
	assert.ErrorIs(t, s.UpdateBudget(ctx, core.Education, b), store.ErrNotFound)

	totals := core.AggregateBudget(b, nil)
	require.NoError(t, s.SaveBudgetTotals(ctx, []core.Budget{totals}))
	got, err = s.GetBudget(ctx, core.Shopping)
	require.NoError(t, err)
	assert.Zero(t, got.Spent.Cents)
	assert.Empty(t, got.Transactions)
	assert.Equal(t, core.Theme("#F2CDAC"), got.Theme)

	list, err := s.ListBudgets(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, s.DeleteBudget(ctx, core.Shopping))
	assert.ErrorIs(t, s.DeleteBudget(ctx, core.Shopping), store.ErrNotFound)
}

func testPots(t *testing.T, s store.Store) {
	ctx := context.Background()
	p := core.Pot{ID: "p1", Name: "Holiday", Target: core.Money{Cents: 144000}, Total: core.Money{Cents: 53100}, Theme: "#826CB0"}
	require.NoError(t, s.CreatePot(ctx, p))
	assert.ErrorIs(t, s.CreatePot(ctx, core.Pot{ID: "p2", Name: "holiday", Target: core.Money{Cents: 1}, Theme: "#826CB0"}), store.ErrConflict)
	require.NoError(t, s.CreatePot(ctx, core.Pot{ID: "p3", Name: "Gift", Target: core.Money{Cents: 6000}, Theme: "#82C9D7"}))

	p.Total = core.Money{Cents: 60000}
	require.NoError(t, s.UpdatePot(ctx, p))
	got, err := s.GetPot(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(60000), got.Total.Cents)

	p.Name = "Gift"
	assert.ErrorIs(t, s.UpdatePot(ctx, p), store.ErrConflict)
	assert.ErrorIs(t, s.UpdatePot(ctx, core.Pot{ID: "missing", Name: "x"}), store.ErrNotFound)

	pots, err := s.ListPots(ctx)
	require.NoError(t, err)
	assert.Len(t, pots, 2)

	require.NoError(t, s.DeletePot(ctx, "p1"))
	_, err = s.GetPot(ctx, "p1")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.DeletePot(ctx, "p1"), store.ErrNotFound)
}

func testUsers(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := core.User{ID: "u1", Name: "Ann", Email: "ann@example.com", PasswordHash: "hash", CreatedAt: time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, s.CreateUser(ctx, u))

	dup := u
	dup.ID = "u2"
	dup.Email = "ANN@example.com"
	assert.ErrorIs(t, s.CreateUser(ctx, dup), store.ErrConflict)

	got, err := s.GetUserByEmail(ctx, "Ann@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID)
	assert.Equal(t, "hash", got.PasswordHash)
	assert.True(t, u.CreatedAt.Equal(got.CreatedAt))

	got, err = s.GetUserByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", got.Email)

	_, err = s.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetUserByID(ctx, "u9")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

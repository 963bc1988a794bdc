package services

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finance/internal/core"
	"finance/internal/listing"
	"finance/internal/log"
	"finance/internal/store/memory"
)

func TestOverview(t *testing.T) {
	ctx := context.Background()
	st := seededStore(t,
		tx("t1", "Salary", core.Income, 3000, -10, true),
		tx("t2", "Rent", core.Bills, -1000, -5, true),
		tx("t3", "Food", core.Groceries, -100, -4, false),
		tx("t4", "Snack", core.Groceries, -10, -3, false),
		tx("t5", "Phone", core.Bills, -50, 2, true),
		tx("t6", "Book", core.Education, -20, -1, false),
	)
	require.NoError(t, st.CreateBudget(ctx, core.Budget{Category: core.Groceries, Maximum: money(500), Theme: "#82C9D7"}))
	require.NoError(t, st.CreatePot(ctx, core.Pot{ID: "p1", Name: "A", Target: money(100), Total: money(40), Theme: "#277C78"}))
	require.NoError(t, st.CreatePot(ctx, core.Pot{ID: "p2", Name: "B", Target: money(100), Total: money(60), Theme: "#277C78"}))

	svc := NewOverviewService(st, money(100), func() time.Time { return refNow }, testLogger())
	o, err := svc.Overview(ctx)
	require.NoError(t, err)

	assert.Equal(t, money(3000), o.Balance.Income)
	assert.Equal(t, money(1180), o.Balance.Expenses)
	assert.Equal(t, money(1920), o.Balance.Current)
	assert.Equal(t, money(100), o.Pots.TotalSaved)
	require.Len(t, o.Budgets, 1)
	assert.Len(t, o.Budgets[0].LatestSpending, 2)
	require.Len(t, o.Transactions, LatestTransactionsCount)
	assert.Equal(t, "t5", o.Transactions[0].ID)
	assert.Equal(t, 1, o.RecurringBills.Paid.Count)
	assert.Equal(t, 1, o.RecurringBills.DueSoon.Count)
}

func TestOverviewEmptyStore(t *testing.T) {
	svc := NewOverviewService(memory.New(), core.Money{}, nil, testLogger())
	o, err := svc.Overview(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, o.Transactions)
	assert.NotNil(t, o.Pots.Pots)
	assert.Empty(t, o.Budgets)
}

func TestFinancialData(t *testing.T) {
	svc := NewOverviewService(memory.New(), core.Money{}, func() time.Time { return refNow }, testLogger())
	d, err := svc.FinancialData()
	require.NoError(t, err)
	assert.NotEmpty(t, d.Transactions)
	assert.NotEmpty(t, d.Budgets)
	assert.NotEmpty(t, d.Pots)
	for _, b := range d.Bills {
		assert.True(t, b.Recurring)
		assert.NotEmpty(t, b.Status)
	}
}

func TestReadServicesLogWithComponent(t *testing.T) {
	ctx := context.Background()
	st := seededStore(t,
		tx("rent", "Rent", core.Bills, -1000, -5, true),
		tx("gym", "Gym", core.Lifestyle, -40, 20, true),
	)
	var buf bytes.Buffer
	logger := log.New(log.Config{Level: slog.LevelDebug, Format: "json", Output: &buf})
	clock := func() time.Time { return refNow }

	_, err := NewBillService(st, clock, logger).List(ctx, listing.Options{})
	require.NoError(t, err)
	_, err = NewOverviewService(st, core.Money{}, clock, logger).Overview(ctx)
	require.NoError(t, err)

	components := map[string]string{}
	dec := json.NewDecoder(&buf)
	for dec.More() {
		var rec map[string]any
		require.NoError(t, dec.Decode(&rec))
		msg, _ := rec["msg"].(string)
		comp, _ := rec[log.FieldComponent].(string)
		components[msg] = comp
	}
	assert.Equal(t, log.ComponentBill, components["Bills classified"])
	assert.Equal(t, log.ComponentOverview, components["Overview computed"])
}

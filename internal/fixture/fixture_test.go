package fixture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finance/internal/core"
)

func TestLoad(t *testing.T) {
	d, err := Load()
	require.NoError(t, err)

	assert.Len(t, d.Transactions, 44)
	assert.Len(t, d.Budgets, 4)
	assert.Len(t, d.Pots, 5)
	assert.Equal(t, int64(483600), d.Balance.Current.Cents)

	for _, b := range d.Budgets {
		assert.Equal(t, b.Maximum.Cents-b.Spent.Cents, b.Remaining.Cents, b.Category)
		assert.NotEmpty(t, b.Transactions, b.Category)
	}
}

func TestLoadReturnsIndependentCopies(t *testing.T) {
	a := MustLoad()
	a.Pots[0].Total = core.Money{Cents: 1}
	b := MustLoad()
	assert.NotEqual(t, int64(1), b.Pots[0].Total.Cents)
}

func TestFixtureIDsAreUnique(t *testing.T) {
	d := MustLoad()
	seen := map[string]bool{}
	for _, tx := range d.Transactions {
		assert.False(t, seen[tx.ID], "duplicate id %s", tx.ID)
		seen[tx.ID] = true
	}
}

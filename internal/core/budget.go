package core

import "sort"

// LatestSpendingCount is how many recent transactions a budget card shows.
const LatestSpendingCount = 3

// BudgetSummary is a budget with its most recent linked transactions.
type BudgetSummary struct {
	Budget
	LatestSpending []Transaction `json:"latestSpending"`
}

// AggregateBudget recomputes the derived fields of b from txs.
//
// Spent counts outflows only, as absolute values. Remaining is Maximum-Spent and
// goes negative when the budget is exceeded. Every transaction of the budget's
// category is linked, inflows included.
func AggregateBudget(b Budget, txs []Transaction) Budget {
	var spent Money
	ids := make([]string, 0)
	for _, t := range txs {
		if t.Category != b.Category {
			continue
		}
		ids = append(ids, t.ID)
		if t.IsOutflow() {
			spent = spent.Add(t.Amount.Abs())
		}
	}
	b.Spent = spent
	b.Remaining = b.Maximum.Sub(spent)
	b.Transactions = ids
	return b
}

// SummarizeBudget aggregates b and attaches its latest transactions.
func SummarizeBudget(b Budget, txs []Transaction) BudgetSummary {
	b = AggregateBudget(b, txs)
	return BudgetSummary{Budget: b, LatestSpending: LatestInCategory(txs, b.Category, LatestSpendingCount)}
}

// LatestInCategory returns up to n transactions of category c, newest first.
func LatestInCategory(txs []Transaction, c Category, n int) []Transaction {
	out := make([]Transaction, 0, n)
	for _, t := range txs {
		if t.Category == c {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

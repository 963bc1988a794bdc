package core

// Balance is the account headline shown on the dashboard.
type Balance struct {
	Current  Money `json:"current"`
	Income   Money `json:"income"`
	Expenses Money `json:"expenses"`
}

// PotsSummary is the compact pots view for the overview page.
type PotsSummary struct {
	TotalSaved Money `json:"totalSaved"`
	Pots       []Pot `json:"pots"`
}

// SummarizePots sums the totals of all pots.
func SummarizePots(pots []Pot) PotsSummary {
	var total Money
	for _, p := range pots {
		total = total.Add(p.Total)
	}
	if pots == nil {
		pots = []Pot{}
	}
	return PotsSummary{TotalSaved: total, Pots: pots}
}

// ComputeBalance derives income and expenses from transactions on top of an opening balance.
func ComputeBalance(opening Money, txs []Transaction) Balance {
	var b Balance
	for _, t := range txs {
		if t.IsOutflow() {
			b.Expenses = b.Expenses.Add(t.Amount.Abs())
		} else {
			b.Income = b.Income.Add(t.Amount)
		}
	}
	b.Current = opening.Add(b.Income).Sub(b.Expenses)
	return b
}

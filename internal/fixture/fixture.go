// Package fixture embeds the sample data set used to seed stores and to
// serve /financialData.
package fixture

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"finance/internal/core"
)

//go:embed data.json
var raw []byte

type Data struct {
	Balance      core.Balance       `json:"balance"`
	Transactions []core.Transaction `json:"transactions"`
	Budgets      []core.Budget      `json:"budgets"`
	Pots         []core.Pot         `json:"pots"`
}

// Load decodes a fresh copy of the fixture and validates every record.
// Budgets come back with their derived fields computed.
func Load() (Data, error) {
	var d Data
	if err := json.Unmarshal(raw, &d); err != nil {
		return Data{}, fmt.Errorf("decode fixture: %w", err)
	}
	for i, t := range d.Transactions {
		if err := t.Validate(); err != nil {
			return Data{}, fmt.Errorf("fixture transaction %d (%s): %w", i, t.ID, err)
		}
	}
	for i, b := range d.Budgets {
		if err := b.Validate(); err != nil {
			return Data{}, fmt.Errorf("fixture budget %s: %w", b.Category, err)
		}
		d.Budgets[i] = core.AggregateBudget(b, d.Transactions)
	}
	for _, p := range d.Pots {
		if err := p.Validate(); err != nil {
			return Data{}, fmt.Errorf("fixture pot %s: %w", p.Name, err)
		}
	}
	return d, nil
}

// MustLoad is Load for callers that cannot proceed without the fixture.
func MustLoad() Data {
	d, err := Load()
	if err != nil {
		panic(err)
	}
	return d
}

// Raw returns the embedded document as stored.
func Raw() []byte {
	return append([]byte(nil), raw...)
}

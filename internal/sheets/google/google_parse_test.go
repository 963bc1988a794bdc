package google

import (
	"context"
	"io"
	"strings"
	"testing"

	"finance/internal/core"
	"finance/internal/log"
)

func TestBudgetRowsParseBack(t *testing.T) {
	in := []core.Budget{
		{Category: core.Groceries, Maximum: core.Money{Cents: 50000}, Spent: core.Money{Cents: 60000}, Remaining: core.Money{Cents: -10000}, Theme: "#82C9D7", Transactions: []string{"a", "b"}},
		{Category: core.Bills, Maximum: core.Money{Cents: 75050}, Theme: "#F2CDAC"},
	}
	rows := budgetRows(in)
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rows))
	}
	if rows[1][3] != "-100.00" {
		t.Errorf("remaining cell = %v, want -100.00", rows[1][3])
	}

	got, err := parseBudgets(rows)
	if err != nil {
		t.Fatalf("parseBudgets: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("parsed %d budgets", len(got))
	}
	if got[0].Remaining.Cents != -10000 || got[1].Maximum.Cents != 75050 {
		t.Errorf("parsed = %+v", got)
	}
}

func TestParseBudgets_SheetFormatting(t *testing.T) {
	// Sheets returns numbers as float64 and users may reorder columns
	values := [][]any{
		{"Theme", "category", "Remaining", "Spent", "Maximum"},
		{"#82C9D7", "dining out", -12.5, 62.5, 50.0},
		{},
		{"#000000", "", "", "", ""},
	}
	got, err := parseBudgets(values)
	if err != nil {
		t.Fatalf("parseBudgets: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("parsed %d budgets, want 1", len(got))
	}
	b := got[0]
	if b.Category != core.DiningOut || b.Remaining.Cents != -1250 || b.Maximum.Cents != 5000 {
		t.Errorf("parsed = %+v", b)
	}
}

func TestParseBudgets_Errors(t *testing.T) {
	tests := []struct {
		name    string
		values  [][]any
		wantErr string
	}{
		{"missing header", [][]any{{"Category", "Maximum"}}, "unexpected sheet header"},
		{"bad category", [][]any{budgetHeader, {"Rent", "1", "0", "1", "#000000"}}, "row 2"},
		{"bad amount", [][]any{budgetHeader, {"Bills", "lots", "0", "1", "#000000"}}, "Maximum"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseBudgets(tt.values)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestPotRowsParseBack(t *testing.T) {
	in := []core.Pot{{ID: "p1", Name: "Savings", Target: core.Money{Cents: 200000}, Total: core.Money{Cents: 15900}, Theme: "#277C78"}}
	rows := potRows(in)
	if rows[1][4] != "7.95" {
		t.Errorf("progress cell = %v, want 7.95", rows[1][4])
	}
	got, err := parsePots(rows)
	if err != nil {
		t.Fatalf("parsePots: %v", err)
	}
	if len(got) != 1 || got[0] != in[0] {
		t.Errorf("parsed = %+v, want %+v", got, in)
	}
}

func TestClientWithoutService(t *testing.T) {
	c := &Client{spreadsheetID: "x", budgetsSheet: "Budgets", potsSheet: "Pots", logger: log.New(log.Config{Output: io.Discard})}
	if err := c.WriteBudgets(context.Background(), nil); err == nil {
		t.Error("WriteBudgets should fail without a service")
	}
	if _, err := c.ReadPots(context.Background()); err == nil {
		t.Error("ReadPots should fail without a service")
	}
}

func TestNewRequiresConfig(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	logger := log.New(log.Config{Output: io.Discard})
	if _, err := New(context.Background(), Config{}, logger); err == nil {
		t.Error("New should fail without a spreadsheet id")
	}
	if _, err := New(context.Background(), Config{SpreadsheetID: "x"}, logger); err == nil {
		t.Error("New should fail without credentials")
	}
}

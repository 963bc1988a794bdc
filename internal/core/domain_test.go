package core

import (
	"testing"
	"time"
)

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
}

func TestParseCategory(t *testing.T) {
	cases := []struct {
		in   string
		want Category
		ok   bool
	}{
		{"Dining Out", DiningOut, true},
		{"dining out", DiningOut, true},
		{" bills ", Bills, true},
		{"Income", Income, true},
		{AllTransactions, "", false},
		{"Rent", "", false},
	}
	for _, tc := range cases {
		got, err := ParseCategory(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("%q expected %q, got %q (err=%v)", tc.in, tc.want, got, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
	if len(Categories()) != 11 {
		t.Fatalf("expected 11 categories, got %d", len(Categories()))
	}
}

func TestThemeValidate(t *testing.T) {
	for _, ok := range []Theme{"#277C78", "#f2cdac"} {
		if err := ok.Validate(); err != nil {
			t.Fatalf("%q expected ok, got %v", ok, err)
		}
	}
	for _, bad := range []Theme{"", "277C78", "#27C78", "#GGGGGG"} {
		if err := bad.Validate(); err == nil {
			t.Fatalf("%q expected error", bad)
		}
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Name:     "Spark Electric",
		Category: Bills,
		Date:     time.Date(2024, 8, 3, 21, 0, 0, 0, time.UTC),
		Amount:   Money{Cents: -10000},
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Transaction{
		{Name: "", Category: Bills, Date: good.Date},
		{Name: "a", Category: "Rent", Date: good.Date},
		{Name: "a", Category: Bills},
		{Name: "a", Category: Bills, Date: good.Date, Amount: Money{Cents: -MaxCents - 1}},
	}
	for i, tx := range bads {
		if err := tx.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestBudgetAndPotValidate(t *testing.T) {
	if err := (Budget{Category: Bills, Maximum: Money{Cents: 75000}, Theme: "#82C9D7"}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Budget{Category: Bills, Maximum: Money{Cents: 0}, Theme: "#82C9D7"}).Validate(); err == nil {
		t.Fatalf("expected error for zero maximum")
	}
	if err := (Pot{Name: "Savings", Target: Money{Cents: 200000}, Theme: "#277C78"}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Pot{Name: "Savings", Target: Money{Cents: 100}, Total: Money{Cents: -1}, Theme: "#277C78"}).Validate(); err == nil {
		t.Fatalf("expected error for negative total")
	}
}

func TestUserValidate(t *testing.T) {
	if err := (User{Name: "Ann", Email: "ann@example.com"}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (User{Name: "Ann", Email: "Ann <ann@example.com>"}).Validate(); err == nil {
		t.Fatalf("expected error for display-name address")
	}
	if NormalizeEmail("  Ann@Example.COM ") != "ann@example.com" {
		t.Fatalf("unexpected normalization")
	}
}

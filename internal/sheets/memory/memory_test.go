package memory

import (
	"context"
	"testing"

	"finance/internal/core"
)

func TestSnapshotsReplace(t *testing.T) {
	ctx := context.Background()
	s := New()

	pots := []core.Pot{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}}
	if err := s.WritePots(ctx, pots); err != nil {
		t.Fatal(err)
	}
	pots[0].Name = "mutated"
	if err := s.WritePots(ctx, pots[1:]); err != nil {
		t.Fatal(err)
	}

	got, _ := s.ReadPots(ctx)
	if len(got) != 1 || got[0].ID != "b" {
		t.Errorf("ReadPots() = %+v, want only b", got)
	}
	if s.Writes() != 2 {
		t.Errorf("Writes() = %d, want 2", s.Writes())
	}

	budgets, _ := s.ReadBudgets(ctx)
	if budgets == nil || len(budgets) != 0 {
		t.Errorf("ReadBudgets() = %v, want empty non-nil", budgets)
	}
}

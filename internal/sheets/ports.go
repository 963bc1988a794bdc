package sheets

import (
	"context"

	"finance/internal/core"
)

// Ports for the spreadsheet mirror. Each write replaces the whole table
// with the given snapshot.
type (
	BudgetWriter interface {
		WriteBudgets(ctx context.Context, budgets []core.Budget) error
	}

	PotWriter interface {
		WritePots(ctx context.Context, pots []core.Pot) error
	}

	// SnapshotReader reads back the mirrored tables, e.g. to verify an export.
	SnapshotReader interface {
		ReadBudgets(ctx context.Context) ([]core.Budget, error)
		ReadPots(ctx context.Context) ([]core.Pot, error)
	}

	Exporter interface {
		BudgetWriter
		PotWriter
	}
)

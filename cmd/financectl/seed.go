package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"finance/internal/backend"
	"finance/internal/fixture"
)

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the sample data set into a persistent backend",
		Long: `Load the embedded sample transactions, budgets and pots.

Transactions are only inserted when the ledger is empty; existing budgets
and pots are kept, so seeding twice changes nothing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if backend.BackendType(cfg.DataBackend) == backend.MemoryBackend {
				return fmt.Errorf("seed needs a persistent backend: the memory backend is seeded on start")
			}

			data, err := fixture.Load()
			if err != nil {
				return err
			}

			res, err := openStore(cmd.Context())
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer closeStore(res)

			seeded, err := backend.Seed(cmd.Context(), res.Store, data)
			if err != nil {
				return fmt.Errorf("seed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d transactions, %d budgets, %d pots\n",
				seeded.Transactions, seeded.Budgets, seeded.Pots)
			return nil
		},
	}
}

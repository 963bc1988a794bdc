package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"finance/internal/backend"
	"finance/internal/store/mongo"
	"finance/internal/store/sqlite"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations (sqlite) or create indexes (mongo)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()

			switch backend.BackendType(cfg.DataBackend) {
			case backend.SQLiteBackend:
				if err := sqlite.RunMigrations(cfg.SQLiteDBPath); err != nil {
					return err
				}
				version, dirty, err := sqlite.MigrationVersion(cfg.SQLiteDBPath)
				if err != nil {
					return fmt.Errorf("read migration version: %w", err)
				}
				fmt.Fprintf(out, "%s at schema version %d (dirty=%t)\n", cfg.SQLiteDBPath, version, dirty)

			case backend.MongoBackend:
				st, err := mongo.Connect(cmd.Context(), cfg.MongoURI, cfg.MongoDatabase)
				if err != nil {
					return err
				}
				defer st.Close()
				if err := st.EnsureIndexes(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintf(out, "indexes ensured on database %s\n", cfg.MongoDatabase)

			default:
				fmt.Fprintf(out, "backend %q has no schema\n", cfg.DataBackend)
			}
			return nil
		},
	}
}

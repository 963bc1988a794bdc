package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"finance/internal/backend"
	"finance/internal/services"
)

func createUserCmd() *cobra.Command {
	var in services.RegisterInput

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Register a user account",
		Long: `Register a user account directly in the store.

The password is read from --password or, when omitted, from the
FINANCE_PASSWORD environment variable.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if in.Password == "" {
				in.Password = os.Getenv("FINANCE_PASSWORD")
			}
			if backend.BackendType(cfg.DataBackend) == backend.MemoryBackend {
				return fmt.Errorf("create-user needs a persistent backend")
			}

			res, err := openStore(cmd.Context())
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer closeStore(res)

			// Registration needs neither tokens nor login limiting.
			u, err := services.NewAuthService(res.Store, nil, nil, nil, logger).Register(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %s <%s>\n", u.ID, u.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&in.Name, "name", "", "display name")
	cmd.Flags().StringVar(&in.Email, "email", "", "login email")
	cmd.Flags().StringVar(&in.Password, "password", "", "password (at least 8 characters)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

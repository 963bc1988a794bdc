package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"finance/internal/backend"
	"finance/internal/cli"
	"finance/internal/config"
	"finance/internal/log"
)

var (
	cfg    *config.Config
	logger *log.Logger

	rootCmd = &cobra.Command{
		Use:   "financectl",
		Short: "Administrative commands for the finance ledger",
		Long: `financectl manages the finance data store: it applies schema
migrations, loads the sample data set and creates users.

Configuration comes from the environment (and a .env file when present),
the same variables the server reads.`,
		SilenceUsage:      true,
		PersistentPreRunE: initConfig,
	}
)

func init() {
	rootCmd.PersistentFlags().String("backend", "",
		fmt.Sprintf("data backend (%s); overrides DATA_BACKEND", strings.Join(backend.GetBackendTypeStrings(), ", ")))
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error); overrides LOG_LEVEL")

	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(createUserCmd())
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(cmd *cobra.Command, _ []string) error {
	cli.LoadEnvFile()
	cfg = config.Load()

	if v, _ := cmd.Flags().GetString("backend"); v != "" {
		cfg.DataBackend = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}
	logger = cli.SetupLogger(cfg)
	return nil
}

// openStore opens the configured backend without seeding it.
func openStore(ctx context.Context) (*backend.BackendResult, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	bcfg.Seed = false
	return backend.NewFactory(logger).CreateBackend(ctx, bcfg)
}

func closeStore(res *backend.BackendResult) {
	if res.Cleanup == nil {
		return
	}
	if err := res.Cleanup(); err != nil {
		logger.Error("Failed to close store", log.FieldError, err)
	}
}

// Command itstorage runs the equipment storage service and its maintenance
// tools.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/StarAlexander/inventory-storage-diploma/internal/config"
	"github.com/StarAlexander/inventory-storage-diploma/internal/logging"
)

var (
	configFile string

	cfg           *config.Config
	logger        *slog.Logger
	loggerCleanup = func() {}
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "itstorage",
		Short: "IT equipment storage: transaction ledger, warehouse documents and signatures",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(configFile)
			if err != nil {
				return err
			}
			logger, loggerCleanup, err = logging.New(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			loggerCleanup()
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (yaml, json or toml); environment variables take precedence")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newKeygenCmd())
	rootCmd.AddCommand(newVerifyCmd())
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

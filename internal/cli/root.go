// Package cli implements the stockitup command line.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/stockitup/backend/internal/infrastructure/config"
	"github.com/stockitup/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// Version is set at build time with -ldflags
var Version = "dev"

var (
	logLevel string
	cfg      *config.Config
	log      *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "stockitup",
	Short: "Multi-channel order and inventory backend",
	Long: `Stock It Up keeps products, stock and orders in one place and
synchronises them with bol.com, Amazon and eBay.

Running without a subcommand starts the web server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		log, err = logger.New(&logger.Config{
			Level:  cfg.Log.Level,
			Format: cfg.Log.Format,
			Output: cfg.Log.Output,
			File:   cfg.Log.File,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if log != nil {
			_ = log.Sync()
		}
		return nil
	},
	RunE: runServe,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL (debug, info, warn, error)")
	rootCmd.Flags().BoolVar(&autoMigrate, "migrate", false, "apply schema migrations before serving")
	rootCmd.Version = Version

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(superuserCmd)
	rootCmd.AddCommand(syncCmd)
}

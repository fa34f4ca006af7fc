package cli

import (
	"github.com/spf13/cobra"
	"github.com/stockitup/backend/internal/app"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := app.OpenDatabase(cfg, log)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.Migrate(cmd.Context()); err != nil {
			return err
		}
		log.Info("Database schema is up to date", zap.String("driver", db.Driver))
		return nil
	},
}

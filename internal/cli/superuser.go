package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/stockitup/backend/internal/app"
	"go.uber.org/zap"
)

var (
	superuserEmail    string
	superuserPassword string
)

var superuserCmd = &cobra.Command{
	Use:   "createsuperuser",
	Short: "Create a staff account with every permission",
	RunE: func(cmd *cobra.Command, args []string) error {
		if superuserPassword == "" {
			superuserPassword = os.Getenv("SUPERUSER_PASSWORD")
		}
		if superuserEmail == "" || superuserPassword == "" {
			return fmt.Errorf("--email and --password (or SUPERUSER_PASSWORD) are required")
		}

		a, err := app.New(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer a.Shutdown(context.Background())

		user, err := a.Auth.CreateSuperuser(cmd.Context(), superuserEmail, superuserPassword)
		if err != nil {
			return err
		}
		log.Info("Superuser created", zap.String("email", user.Email), zap.String("id", user.ID.String()))
		return nil
	},
}

func init() {
	superuserCmd.Flags().StringVar(&superuserEmail, "email", "", "login email")
	superuserCmd.Flags().StringVar(&superuserPassword, "password", "", "password, at least 8 characters")
}

package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/stockitup/backend/internal/app"
	"github.com/stockitup/backend/internal/application/integration"
)

var (
	syncOrdersOnly bool
	syncStockOnly  bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one synchronisation against every connected marketplace",
	RunE: func(cmd *cobra.Command, args []string) error {
		if syncOrdersOnly && syncStockOnly {
			return fmt.Errorf("--orders and --stock are mutually exclusive")
		}
		opts := integration.FullSync
		if syncOrdersOnly {
			opts.Stock = false
		}
		if syncStockOnly {
			opts.Orders = false
		}

		a, err := app.New(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer a.Shutdown(context.Background())

		results, err := a.Channels.Run(cmd.Context(), opts)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(results) == 0 {
			fmt.Fprintln(out, "No marketplaces connected")
			return nil
		}
		for _, r := range results {
			status := "ok"
			if r.Error != "" {
				status = r.Error
			}
			fmt.Fprintf(out, "%-10s imported=%d skipped=%d stock=%d failures=%d %s\n",
				r.Marketplace, r.OrdersImported, r.OrdersSkipped, r.StockUpdated, len(r.Failures), status)
		}
		return nil
	},
}

func init() {
	syncCmd.Flags().BoolVar(&syncOrdersOnly, "orders", false, "only import orders")
	syncCmd.Flags().BoolVar(&syncStockOnly, "stock", false, "only push stock levels")
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"broker-gateway/internal/models"
)

// addAccountCommands adds funds, margins and positions commands.
func addAccountCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "funds",
		Short: "Show available funds",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			g, err := app.Gateway(cmd.Context(), output)
			if err != nil {
				return err
			}

			funds, err := g.GetFunds(cmd.Context())
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(funds)
			}

			output.Bold("Funds (%s)", g.Broker())
			output.Printf("  Available cash: %s\n", FormatIndianCurrency(funds.AvailableCash))
			output.Printf("  Used margin:    %s\n", FormatIndianCurrency(funds.UsedMargin))
			output.Printf("  Collateral:     %s\n", FormatIndianCurrency(funds.CollateralValue))
			output.Printf("  Total equity:   %s\n", FormatIndianCurrency(funds.TotalEquity))
			return nil
		},
	})

	marginsCmd := &cobra.Command{
		Use:   "margins [equity|commodity]",
		Short: "Show segment margins",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			g, err := app.Gateway(cmd.Context(), output)
			if err != nil {
				return err
			}

			segment := models.SegmentEquity
			if len(args) == 1 {
				segment = models.MarginSegment(args[0])
			}

			margin, err := g.GetMargins(cmd.Context(), segment)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(margin)
			}

			output.Bold("Margins: %s", margin.Segment)
			output.Printf("  Available: %s\n", FormatIndianCurrency(margin.Available))
			output.Printf("  Used:      %s\n", FormatIndianCurrency(margin.Used))
			output.Printf("  Net:       %s\n", FormatIndianCurrency(margin.Net))
			return nil
		},
	}
	rootCmd.AddCommand(marginsCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "positions",
		Short: "Show open positions",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			g, err := app.Gateway(cmd.Context(), output)
			if err != nil {
				return err
			}

			positions, err := g.GetPositions(cmd.Context())
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(positions)
			}

			if len(positions) == 0 {
				output.Dim("no open positions")
				return nil
			}

			var totalPnL float64
			table := NewTable(output, "SYMBOL", "PRODUCT", "QTY", "AVG", "LTP", "P&L")
			for _, p := range positions {
				totalPnL += p.PnL
				table.AddRow(
					fmt.Sprintf("%s:%s", p.Exchange, p.Symbol),
					string(p.Product),
					fmt.Sprintf("%d", p.Quantity),
					fmt.Sprintf("%.2f", p.AveragePrice),
					fmt.Sprintf("%.2f", p.LastPrice),
					output.FormatPnL(p.PnL),
				)
			}
			table.Render()
			output.Println()
			output.Printf("Total P&L: %s\n", output.FormatPnL(totalPnL))
			return nil
		},
	})
}

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"broker-gateway/internal/models"
	"broker-gateway/internal/symbols"
)

// addOrderCommands adds order placement and book commands.
func addOrderCommands(rootCmd *cobra.Command, app *App) {
	orderCmd := &cobra.Command{
		Use:   "order",
		Short: "Place, modify and cancel orders",
	}
	orderCmd.AddCommand(newOrderPlaceCmd(app))
	orderCmd.AddCommand(newOrderModifyCmd(app))
	orderCmd.AddCommand(newOrderCancelCmd(app))
	rootCmd.AddCommand(orderCmd)

	rootCmd.AddCommand(newOrdersCmd(app))
	rootCmd.AddCommand(newTradesCmd(app))
}

func newOrderPlaceCmd(app *App) *cobra.Command {
	var (
		orderType string
		product   string
		price     float64
		trigger   float64
		validity  string
		tag       string
	)

	cmd := &cobra.Command{
		Use:   "place BUY|SELL SYMBOL QUANTITY",
		Short: "Place an order",
		Long: `Place an order.

Examples:
  gateway order place BUY SBIN 10
  gateway order place BUY NSE:RELIANCE 5 --type LIMIT --price 2850.50
  gateway order place SELL NFO:NIFTY24DECFUT 50 --product NRML --type STOP --trigger 24100`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			txn := models.TransactionType(strings.ToUpper(args[0]))
			exchange, tradingSymbol := symbols.Split(symbols.Normalize(args[1]))

			var qty int
			if _, err := fmt.Sscanf(args[2], "%d", &qty); err != nil {
				return fmt.Errorf("invalid quantity %q", args[2])
			}

			var opts []models.OrderOption
			if price != 0 {
				opts = append(opts, models.WithPrice(price))
			}
			if trigger != 0 {
				opts = append(opts, models.WithTriggerPrice(trigger))
			}
			if validity != "" {
				opts = append(opts, models.WithValidity(models.Validity(strings.ToUpper(validity))))
			}
			if tag != "" {
				opts = append(opts, models.WithTag(tag))
			}

			req, err := models.NewOrderRequest(
				tradingSymbol,
				exchange,
				qty,
				models.OrderType(strings.ToUpper(orderType)),
				txn,
				models.ProductType(strings.ToUpper(product)),
				opts...,
			)
			if err != nil {
				return err
			}

			g, err := app.Gateway(cmd.Context(), output)
			if err != nil {
				return err
			}

			resp, err := g.PlaceOrder(cmd.Context(), req)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(resp)
			}
			output.Success("Order placed: %s", resp.OrderID)
			output.Printf("  %s %d x %s:%s (%s %s)\n",
				req.Transaction, req.Quantity, req.Exchange, req.Symbol, req.Product, req.OrderType)
			return nil
		},
	}

	cmd.Flags().StringVarP(&orderType, "type", "t", "MARKET", "order type (MARKET, LIMIT, STOP, STOP_LIMIT)")
	cmd.Flags().StringVarP(&product, "product", "p", "CNC", "product type (CNC, MIS, NRML)")
	cmd.Flags().Float64Var(&price, "price", 0, "limit price")
	cmd.Flags().Float64Var(&trigger, "trigger", 0, "trigger price")
	cmd.Flags().StringVar(&validity, "validity", "", "order validity (DAY, IOC)")
	cmd.Flags().StringVar(&tag, "tag", "", "broker order tag")
	return cmd
}

func newOrderModifyCmd(app *App) *cobra.Command {
	var (
		qty       int
		price     float64
		trigger   float64
		orderType string
	)

	cmd := &cobra.Command{
		Use:   "modify ORDER_ID",
		Short: "Modify a pending order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			changes := &models.OrderChanges{}
			if cmd.Flags().Changed("qty") {
				changes.Quantity = &qty
			}
			if cmd.Flags().Changed("price") {
				changes.Price = &price
			}
			if cmd.Flags().Changed("trigger") {
				changes.TriggerPrice = &trigger
			}
			if cmd.Flags().Changed("type") {
				t := models.OrderType(strings.ToUpper(orderType))
				changes.OrderType = &t
			}

			g, err := app.Gateway(cmd.Context(), output)
			if err != nil {
				return err
			}

			resp, err := g.ModifyOrder(cmd.Context(), args[0], changes)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(resp)
			}
			output.Success("Order modified: %s", resp.OrderID)
			return nil
		},
	}

	cmd.Flags().IntVar(&qty, "qty", 0, "new quantity")
	cmd.Flags().Float64Var(&price, "price", 0, "new limit price")
	cmd.Flags().Float64Var(&trigger, "trigger", 0, "new trigger price")
	cmd.Flags().StringVar(&orderType, "type", "", "new order type")
	return cmd
}

func newOrderCancelCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel ORDER_ID",
		Short: "Cancel a pending order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			g, err := app.Gateway(cmd.Context(), output)
			if err != nil {
				return err
			}
			if err := g.CancelOrder(cmd.Context(), args[0]); err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]string{"cancelled": args[0]})
			}
			output.Success("Order cancelled: %s", args[0])
			return nil
		},
	}
}

func newOrdersCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "orders",
		Short: "Show the day's orderbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			g, err := app.Gateway(cmd.Context(), output)
			if err != nil {
				return err
			}

			orders, err := g.GetOrders(cmd.Context())
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(orders)
			}
			if len(orders) == 0 {
				output.Dim("no orders today")
				return nil
			}

			table := NewTable(output, "ID", "SYMBOL", "SIDE", "TYPE", "QTY", "FILLED", "PRICE", "STATUS")
			for _, o := range orders {
				table.AddRow(
					o.ID,
					fmt.Sprintf("%s:%s", o.Exchange, o.Symbol),
					string(o.Transaction),
					string(o.OrderType),
					fmt.Sprintf("%d", o.Quantity),
					fmt.Sprintf("%d", o.FilledQty),
					fmt.Sprintf("%.2f", o.Price),
					o.Status,
				)
			}
			table.Render()
			return nil
		},
	}
}

func newTradesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "trades",
		Short: "Show the day's tradebook",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			g, err := app.Gateway(cmd.Context(), output)
			if err != nil {
				return err
			}

			trades, err := g.GetTrades(cmd.Context())
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(trades)
			}
			if len(trades) == 0 {
				output.Dim("no trades today")
				return nil
			}

			table := NewTable(output, "TIME", "SYMBOL", "SIDE", "QTY", "PRICE", "ORDER")
			for _, t := range trades {
				table.AddRow(
					t.ExecutedAt.Format("15:04:05"),
					fmt.Sprintf("%s:%s", t.Exchange, t.Symbol),
					string(t.Transaction),
					fmt.Sprintf("%d", t.Quantity),
					fmt.Sprintf("%.2f", t.Price),
					t.OrderID,
				)
			}
			table.Render()
			return nil
		},
	}
}

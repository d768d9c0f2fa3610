package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"broker-gateway/internal/broker"
	"broker-gateway/internal/stream"
	"broker-gateway/internal/symbols"
	"broker-gateway/pkg/utils"
)

// addMarketDataCommands adds quote, history and stream commands.
func addMarketDataCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newQuoteCmd(app))
	rootCmd.AddCommand(newHistoryCmd(app))
	rootCmd.AddCommand(newStreamCmd(app))
}

func newQuoteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "quote SYMBOL [SYMBOL...]",
		Short: "Fetch live quotes",
		Long: `Fetch live quotes for one or more symbols.

Symbols use the canonical EXCHANGE:TRADINGSYMBOL form; a bare symbol
defaults to NSE. Examples: SBIN, NSE:RELIANCE, NFO:NIFTY24DECFUT`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			g, err := app.Gateway(cmd.Context(), output)
			if err != nil {
				return err
			}

			quotes, err := g.GetQuotes(cmd.Context(), args)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(quotes)
			}

			table := NewTable(output, "SYMBOL", "LTP", "CHANGE", "BID", "ASK", "VOLUME")
			for _, q := range quotes {
				table.AddRow(
					q.Symbol,
					fmt.Sprintf("%.2f", q.LastPrice),
					output.FormatPercent(q.ChangePercent),
					fmt.Sprintf("%.2f", q.Bid),
					fmt.Sprintf("%.2f", q.Ask),
					FormatVolume(q.Volume),
				)
			}
			table.Render()
			return nil
		},
	}
}

func newHistoryCmd(app *App) *cobra.Command {
	var (
		interval string
		days     int
		oi       bool
	)

	cmd := &cobra.Command{
		Use:   "history SYMBOL",
		Short: "Fetch historical candles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			g, err := app.Gateway(cmd.Context(), output)
			if err != nil {
				return err
			}

			to := time.Now()
			from := to.AddDate(0, 0, -days)
			candles, err := g.GetHistorical(cmd.Context(), args[0], broker.HistoricalRequest{
				Interval: interval,
				From:     from,
				To:       to,
				OI:       oi,
			})
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(candles)
			}

			table := NewTable(output, "TIME", "OPEN", "HIGH", "LOW", "CLOSE", "VOLUME")
			for _, c := range candles {
				table.AddRow(
					c.Timestamp.Format("2006-01-02 15:04"),
					fmt.Sprintf("%.2f", c.Open),
					fmt.Sprintf("%.2f", c.High),
					fmt.Sprintf("%.2f", c.Low),
					fmt.Sprintf("%.2f", c.Close),
					FormatVolume(c.Volume),
				)
			}
			table.Render()
			output.Dim("%d candles", len(candles))
			return nil
		},
	}

	cmd.Flags().StringVarP(&interval, "interval", "i", "1d", "candle interval (1m, 5m, 15m, 1h, 1d)")
	cmd.Flags().IntVarP(&days, "days", "d", 30, "days of history")
	cmd.Flags().BoolVar(&oi, "oi", false, "include open interest")
	return cmd
}

func newStreamCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "stream SYMBOL [SYMBOL...]",
		Short: "Stream live quotes until interrupted",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if !utils.IsMarketOpen() {
				output.Warning("market is closed; next session opens %s",
					utils.NextMarketOpen().Format("Mon 02 Jan 15:04 MST"))
			}

			g, err := app.Gateway(cmd.Context(), output)
			if err != nil {
				return err
			}

			sub, err := g.StreamQuotes(cmd.Context(), args)
			if err != nil {
				return err
			}

			hub := stream.NewHub(sub)
			hub.Start(cmd.Context())
			defer hub.Stop()

			// One printer per symbol, all fed by the single broker stream.
			done := make(chan struct{})
			for _, symbol := range args {
				ch := hub.Subscribe(symbols.Normalize(symbol))
				go func() {
					for q := range ch {
						if output.IsJSON() {
							output.JSON(q)
							continue
						}
						output.Printf("%s  %-20s %10.2f  %s  vol %s\n",
							q.Timestamp.Format("15:04:05"),
							q.Symbol,
							q.LastPrice,
							output.FormatPercent(q.ChangePercent),
							FormatVolume(q.Volume),
						)
					}
					done <- struct{}{}
				}()
			}

			output.Dim("streaming %d symbols, ctrl-c to stop", len(args))

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			select {
			case <-sigCh:
			case <-sub.Done():
			case <-cmd.Context().Done():
			}
			hub.Stop()
			for range args {
				<-done
			}
			return nil
		},
	}
}

package cli

import (
	"context"

	"github.com/spf13/cobra"

	"broker-gateway/internal/errors"
)

// instrumentSyncer is implemented by drivers that can download their master
// contract for token lookups and symbol-table seeding.
type instrumentSyncer interface {
	SyncInstruments(ctx context.Context) (int, error)
}

// addInstrumentCommands adds the instruments command group.
func addInstrumentCommands(rootCmd *cobra.Command, app *App) {
	instrumentsCmd := &cobra.Command{
		Use:   "instruments",
		Short: "Instrument master management",
	}

	instrumentsCmd.AddCommand(&cobra.Command{
		Use:   "sync",
		Short: "Download the broker's master contract",
		Long: `Download the broker's full master contract and persist it locally.
Synced instruments back token lookups for historical data and streaming,
and extend the symbol tables on the next start.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			g, err := app.Gateway(cmd.Context(), output)
			if err != nil {
				return err
			}

			syncer, ok := g.Driver().(instrumentSyncer)
			if !ok {
				return errors.NewUnsupportedOperationError("sync_instruments", g.Broker())
			}

			count, err := syncer.SyncInstruments(cmd.Context())
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"synced": count})
			}
			output.Success("Synced %d instruments for %s", count, g.Broker())
			return nil
		},
	})

	rootCmd.AddCommand(instrumentsCmd)
}

package cli

import (
	"github.com/spf13/cobra"
)

// addAuthCommands adds login, logout and status commands.
func addAuthCommands(rootCmd *cobra.Command, app *App) {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Broker authentication",
	}

	authCmd.AddCommand(&cobra.Command{
		Use:   "login",
		Short: "Log in to the configured broker",
		Long: `Log in to the configured broker.

In auto mode the driver completes the TOTP flow with stored credentials.
In manual mode the login URL is printed; complete it in a browser and
paste the token back when prompted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			g, err := app.Gateway(cmd.Context(), output)
			if err != nil {
				return err
			}
			if !g.IsAuthenticated() {
				if err := app.authenticate(cmd.Context(), g, output); err != nil {
					return err
				}
			}
			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"broker":        g.Broker(),
					"authenticated": g.IsAuthenticated(),
				})
			}
			output.Success("Authenticated with %s", g.Broker())
			return nil
		},
	})

	authCmd.AddCommand(&cobra.Command{
		Use:   "logout",
		Short: "Log out and discard the saved session",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			g, err := app.Gateway(cmd.Context(), output)
			if err != nil {
				return err
			}
			if err := g.Logout(cmd.Context()); err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]bool{"logged_out": true})
			}
			output.Success("Logged out of %s", g.Broker())
			return nil
		},
	})

	authCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show session status and driver capabilities",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			g, err := app.Gateway(cmd.Context(), output)
			if err != nil {
				return err
			}

			caps := g.Capabilities()
			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"broker":        g.Broker(),
					"authenticated": g.IsAuthenticated(),
					"capabilities":  caps,
				})
			}

			output.Bold("Broker: %s", g.Broker())
			if g.IsAuthenticated() {
				output.Success("Session: active")
			} else {
				output.Warning("Session: not authenticated")
			}
			output.Println()

			table := NewTable(output, "CAPABILITY", "SUPPORTED")
			for _, row := range []struct {
				name string
				ok   bool
			}{
				{"funds", caps.Funds},
				{"margins", caps.Margins},
				{"positions", caps.Positions},
				{"quotes", caps.Quotes},
				{"historical", caps.Historical},
				{"orders", caps.Orders},
				{"orderbook", caps.Orderbook},
				{"tradebook", caps.Tradebook},
				{"streaming", caps.Streaming},
			} {
				mark := output.Red("no")
				if row.ok {
					mark = output.Green("yes")
				}
				table.AddRow(row.name, mark)
			}
			table.Render()
			return nil
		},
	})

	rootCmd.AddCommand(authCmd)
}

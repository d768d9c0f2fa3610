package cli

import (
	"bufio"
	"context"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"broker-gateway/internal/broker"
	"broker-gateway/internal/config"
	"broker-gateway/internal/errors"
	"broker-gateway/internal/logging"
)

// Version information
const (
	Version = "0.1.0"
)

// App holds the application dependencies. The gateway is constructed on
// first use so commands like version and config work without credentials.
type App struct {
	Config *config.Config
	Logger zerolog.Logger

	mu      sync.Mutex
	gateway *broker.Gateway
}

// Gateway returns the connected gateway, constructing and authenticating it
// on first call. A manual-login broker prints the login URL and reads the
// exchanged token from stdin.
func (a *App) Gateway(ctx context.Context, out *Output) (*broker.Gateway, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.gateway != nil {
		return a.gateway, nil
	}

	name := a.Config.Broker.Name
	if name == "" {
		return nil, errors.Wrap(errors.ErrConfigInvalid, "no broker configured; set BROKER_NAME or broker.name")
	}

	// Authenticate explicitly below so the manual-login flow can run here.
	cfg := *a.Config
	cfg.Broker.Auth = config.AuthLazy

	g, err := broker.FromName(ctx, name, &cfg, broker.WithLogger(a.Logger))
	if err != nil {
		return nil, err
	}

	if a.Config.EagerAuth() {
		if err := a.authenticate(ctx, g, out); err != nil {
			return nil, err
		}
	}

	a.gateway = g
	return g, nil
}

func (a *App) authenticate(ctx context.Context, g *broker.Gateway, out *Output) error {
	err := g.Authenticate(ctx)
	if err == nil {
		return nil
	}

	var manual *errors.ManualLoginError
	if !errors.As(err, &manual) {
		return err
	}

	out.Info("Login required for %s", manual.Broker)
	out.Println("Open this URL, complete the login, and paste the token from the redirect:")
	out.Println()
	out.Println("  " + manual.LoginURL)
	out.Println()
	out.Printf("Token: ")

	reader := bufio.NewReader(os.Stdin)
	token, err := reader.ReadString('\n')
	if err != nil {
		return errors.Wrap(err, "read token")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.Wrap(errors.ErrInvalidCredentials, "empty token")
	}

	if err := g.CompleteLogin(ctx, token); err != nil {
		return err
	}
	out.Success("Logged in to %s", manual.Broker)
	return nil
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	rootCmd := &cobra.Command{
		Use:   "gateway",
		Short: "Broker gateway - one trading API over Indian brokers",
		Long: `Broker gateway exposes a single canonical trading API over pluggable
broker backends. Symbols use the EXCHANGE:TRADINGSYMBOL form everywhere;
the gateway translates to each broker's native convention.

Select a broker with BROKER_NAME or broker.name in config.toml.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/broker-gateway)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newBrokersCmd(app))
	addAuthCommands(rootCmd, app)
	addMarketDataCommands(rootCmd, app)
	addAccountCommands(rootCmd, app)
	addOrderCommands(rootCmd, app)
	addInstrumentCommands(rootCmd, app)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"version": Version})
			} else {
				output.Printf("broker-gateway v%s\n", Version)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(redactedConfig(app.Config))
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Broker")
	output.Printf("  Name:       %s\n", valueOr(cfg.Broker.Name, "(not set)"))
	output.Printf("  Login mode: %s\n", valueOr(cfg.Broker.LoginMode, config.LoginModeManual))
	output.Printf("  Auth:       %s\n", valueOr(cfg.Broker.Auth, config.AuthEager))
	output.Printf("  API key:    %s\n", redact(cfg.Broker.APIKey))
	output.Printf("  User ID:    %s\n", valueOr(cfg.Broker.UserID, "(not set)"))
	output.Printf("  Session:    %s\n", cfg.Broker.SessionPath)
	output.Println()

	output.Bold("Logging")
	output.Printf("  Level:   %s\n", cfg.Logging.Level)
	output.Printf("  Console: %v\n", cfg.Logging.Console)
	output.Printf("  File:    %v\n", cfg.Logging.File)
	if cfg.Logging.File {
		output.Printf("  Path:    %s\n", cfg.Logging.Path)
	}
}

func redactedConfig(cfg *config.Config) map[string]interface{} {
	return map[string]interface{}{
		"broker": map[string]string{
			"name":       cfg.Broker.Name,
			"login_mode": cfg.Broker.LoginMode,
			"auth":       cfg.Broker.Auth,
			"api_key":    redact(cfg.Broker.APIKey),
			"user_id":    cfg.Broker.UserID,
			"session":    cfg.Broker.SessionPath,
		},
		"logging": cfg.Logging,
	}
}

func redact(secret string) string {
	if secret == "" {
		return "(not set)"
	}
	if len(secret) <= 4 {
		return "****"
	}
	return secret[:4] + strings.Repeat("*", len(secret)-4)
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func newBrokersCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "brokers",
		Short: "List registered brokers",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			names := broker.Names()
			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"brokers": names,
					"active":  app.Config.Broker.Name,
				})
			}

			table := NewTable(output, "BROKER", "ACTIVE")
			for _, name := range names {
				active := ""
				if name == app.Config.Broker.Name {
					active = output.Green("yes")
				}
				table.AddRow(name, active)
			}
			table.Render()
			return nil
		},
	}
}

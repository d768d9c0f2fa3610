package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"broker-gateway/internal/cli"
	"broker-gateway/internal/config"
	"broker-gateway/internal/logging"
)

func main() {
	// .env is optional; BROKER_* variables may come from the environment.
	_ = godotenv.Load()

	configDir := configDirFlag()
	cfg, err := config.Load(configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg.Logging)

	rootCmd := cli.NewRootCmd(cfg, logger)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// configDirFlag peeks at --config before cobra parses flags, since the
// config is needed to build the command tree's dependencies.
func configDirFlag() string {
	fs := pflag.NewFlagSet("pre", pflag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.Usage = func() {}
	configDir := fs.String("config", "", "")
	_ = fs.Parse(os.Args[1:])
	return *configDir
}

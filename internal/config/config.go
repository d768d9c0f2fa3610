// Package config provides configuration management for the gateway.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Login modes supported by drivers.
const (
	LoginModeManual = "manual"
	LoginModeAuto   = "auto"
)

// Auth timing for gateway construction.
const (
	AuthEager = "eager"
	AuthLazy  = "lazy"
)

// Config holds all application configuration.
type Config struct {
	Broker  BrokerConfig  `mapstructure:"broker"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// BrokerConfig holds broker selection and credentials. Credential values are
// opaque to this layer; drivers interpret them.
type BrokerConfig struct {
	Name        string `mapstructure:"name"`       // "zerodha", "fyers"
	LoginMode   string `mapstructure:"login_mode"` // manual, auto
	Auth        string `mapstructure:"auth"`       // eager, lazy
	APIKey      string `mapstructure:"api_key"`
	APISecret   string `mapstructure:"api_secret"`
	UserID      string `mapstructure:"user_id"`
	Password    string `mapstructure:"password"`
	TOTPSecret  string `mapstructure:"totp_secret"`
	TOTPPin     string `mapstructure:"totp_pin"`
	RedirectURI string `mapstructure:"redirect_uri"`
	SessionPath string `mapstructure:"session_path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
	File    bool   `mapstructure:"file"`
	Path    string `mapstructure:"path"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/broker-gateway"
	}
	return filepath.Join(home, ".config", "broker-gateway")
}

// Load loads configuration from the specified directory, then applies
// environment variable overrides. A missing config file is not an error;
// env-only configuration is the common path for strategy runs.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	v.SetDefault("broker.login_mode", LoginModeManual)
	v.SetDefault("broker.auth", AuthEager)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", true)
	v.SetDefault("logging.file", false)
	v.SetDefault("logging.path", filepath.Join(configDir, "logs", "gateway.log"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config.toml: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	applyEnvOverrides(cfg)

	if cfg.Broker.SessionPath == "" {
		cfg.Broker.SessionPath = filepath.Join(configDir, "session.json")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides maps the BROKER_* environment variables onto the config.
// Values are read as opaque strings; parsing is the driver's concern.
func applyEnvOverrides(cfg *Config) {
	set := func(target *string, keys ...string) {
		for _, k := range keys {
			if v := os.Getenv(k); v != "" {
				*target = v
				return
			}
		}
	}

	set(&cfg.Broker.Name, "BROKER_NAME")
	set(&cfg.Broker.LoginMode, "BROKER_LOGIN_MODE")
	set(&cfg.Broker.APIKey, "BROKER_API_KEY")
	set(&cfg.Broker.APISecret, "BROKER_API_SECRET")
	set(&cfg.Broker.UserID, "BROKER_ID")
	set(&cfg.Broker.Password, "BROKER_PASSWORD")
	set(&cfg.Broker.TOTPSecret, "BROKER_TOTP_KEY")
	set(&cfg.Broker.TOTPPin, "BROKER_TOTP_PIN")
	set(&cfg.Broker.RedirectURI, "BROKER_TOTP_REDIRECT_URI", "BROKER_TOTP_REDIDRECT_URI")
}

// SessionFile returns the per-broker session file derived from SessionPath
// ("session.json" becomes "session-zerodha.json"). Brokers never share a
// token file: switching BROKER_NAME must not hand one broker's access token
// to another's driver.
func (b BrokerConfig) SessionFile(broker string) string {
	ext := filepath.Ext(b.SessionPath)
	if ext == "" {
		ext = ".json"
	}
	return strings.TrimSuffix(b.SessionPath, ext) + "-" + broker + ext
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Broker.LoginMode {
	case "", LoginModeManual, LoginModeAuto:
	default:
		return fmt.Errorf("invalid login_mode %q (must be %q or %q)",
			c.Broker.LoginMode, LoginModeManual, LoginModeAuto)
	}
	switch c.Broker.Auth {
	case "", AuthEager, AuthLazy:
	default:
		return fmt.Errorf("invalid auth %q (must be %q or %q)",
			c.Broker.Auth, AuthEager, AuthLazy)
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Logging.Level)
	}
	return nil
}

// EagerAuth reports whether the gateway should authenticate at construction.
func (c *Config) EagerAuth() bool {
	return c.Broker.Auth != AuthLazy
}

// AutoLogin reports whether the driver should run its automated login flow.
func (c *Config) AutoLogin() bool {
	return c.Broker.LoginMode == LoginModeAuto
}

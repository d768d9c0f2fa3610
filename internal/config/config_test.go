package config

import (
	"os"
	"path/filepath"
	"testing"
)

func clearBrokerEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"BROKER_NAME", "BROKER_LOGIN_MODE", "BROKER_API_KEY", "BROKER_API_SECRET",
		"BROKER_ID", "BROKER_PASSWORD", "BROKER_TOTP_KEY", "BROKER_TOTP_PIN",
		"BROKER_TOTP_REDIRECT_URI", "BROKER_TOTP_REDIDRECT_URI",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearBrokerEnv(t)
	dir := t.TempDir()

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Broker.LoginMode != LoginModeManual {
		t.Errorf("login_mode = %q, want manual", cfg.Broker.LoginMode)
	}
	if cfg.Broker.Auth != AuthEager {
		t.Errorf("auth = %q, want eager", cfg.Broker.Auth)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("log level = %q, want info", cfg.Logging.Level)
	}
	if want := filepath.Join(dir, "session.json"); cfg.Broker.SessionPath != want {
		t.Errorf("session_path = %q, want %q", cfg.Broker.SessionPath, want)
	}
}

func TestLoadReadsTOML(t *testing.T) {
	clearBrokerEnv(t)
	dir := t.TempDir()
	toml := `
[broker]
name = "zerodha"
login_mode = "auto"
auth = "lazy"
api_key = "key-from-file"

[logging]
level = "debug"
`
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(toml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Broker.Name != "zerodha" || cfg.Broker.APIKey != "key-from-file" {
		t.Errorf("broker section not read: %+v", cfg.Broker)
	}
	if !cfg.AutoLogin() {
		t.Error("login_mode auto not honored")
	}
	if cfg.EagerAuth() {
		t.Error("auth lazy not honored")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %q", cfg.Logging.Level)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	clearBrokerEnv(t)
	dir := t.TempDir()
	toml := "[broker]\nname = \"zerodha\"\napi_key = \"file-key\"\n"
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(toml), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("BROKER_NAME", "fyers")
	t.Setenv("BROKER_API_KEY", "env-key")
	t.Setenv("BROKER_ID", "XY12345")
	t.Setenv("BROKER_TOTP_KEY", "JBSWY3DPEHPK3PXP")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Broker.Name != "fyers" {
		t.Errorf("name = %q, env should win", cfg.Broker.Name)
	}
	if cfg.Broker.APIKey != "env-key" {
		t.Errorf("api_key = %q, env should win", cfg.Broker.APIKey)
	}
	if cfg.Broker.UserID != "XY12345" || cfg.Broker.TOTPSecret != "JBSWY3DPEHPK3PXP" {
		t.Errorf("credentials not mapped: %+v", cfg.Broker)
	}
}

func TestRedirectURIMisspelledAlias(t *testing.T) {
	clearBrokerEnv(t)

	// The historically misspelled variable still works as a fallback.
	t.Setenv("BROKER_TOTP_REDIDRECT_URI", "https://example.org/cb")
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Broker.RedirectURI != "https://example.org/cb" {
		t.Errorf("redirect_uri = %q", cfg.Broker.RedirectURI)
	}

	// The correctly spelled variable wins when both are set.
	t.Setenv("BROKER_TOTP_REDIRECT_URI", "https://example.org/correct")
	cfg, err = Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Broker.RedirectURI != "https://example.org/correct" {
		t.Errorf("redirect_uri = %q, correct spelling should win", cfg.Broker.RedirectURI)
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"bad login mode", Config{Broker: BrokerConfig{LoginMode: "biometric"}}},
		{"bad auth", Config{Broker: BrokerConfig{Auth: "deferred"}}},
		{"bad log level", Config{Logging: LoggingConfig{Level: "trace"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); err == nil {
				t.Error("expected validation failure")
			}
		})
	}
}

func TestSessionFilePerBroker(t *testing.T) {
	b := BrokerConfig{SessionPath: "/home/u/.config/broker-gateway/session.json"}

	zerodha := b.SessionFile("zerodha")
	fyers := b.SessionFile("fyers")
	if zerodha == fyers {
		t.Fatalf("brokers share session file %q", zerodha)
	}
	if want := "/home/u/.config/broker-gateway/session-zerodha.json"; zerodha != want {
		t.Errorf("SessionFile(zerodha) = %q, want %q", zerodha, want)
	}
	if want := "/home/u/.config/broker-gateway/session-fyers.json"; fyers != want {
		t.Errorf("SessionFile(fyers) = %q, want %q", fyers, want)
	}

	// Extensionless paths still get a json suffix.
	b.SessionPath = "/tmp/session"
	if got := b.SessionFile("fyers"); got != "/tmp/session-fyers.json" {
		t.Errorf("SessionFile without extension = %q", got)
	}
}

func TestEagerAuthDefault(t *testing.T) {
	cfg := Config{}
	if !cfg.EagerAuth() {
		t.Error("empty auth should default to eager")
	}
	cfg.Broker.Auth = AuthLazy
	if cfg.EagerAuth() {
		t.Error("lazy auth reported as eager")
	}
}

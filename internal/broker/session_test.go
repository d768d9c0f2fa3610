package broker

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"broker-gateway/internal/config"
	"broker-gateway/internal/models"
	"broker-gateway/internal/store"
	"broker-gateway/internal/symbols"
)

func testBrokerConfig(dir string) *config.Config {
	return &config.Config{Broker: config.BrokerConfig{
		APIKey:      "test-key",
		APISecret:   "test-secret",
		SessionPath: filepath.Join(dir, "session.json"),
	}}
}

func TestSessionFilesAreScopedPerBroker(t *testing.T) {
	cfg := testBrokerConfig(t.TempDir())

	z, err := NewZerodhaDriver(cfg)
	if err != nil {
		t.Fatalf("NewZerodhaDriver: %v", err)
	}
	f, err := NewFyersDriver(cfg)
	if err != nil {
		t.Fatalf("NewFyersDriver: %v", err)
	}

	if z.sessionPath == f.sessionPath {
		t.Fatalf("both drivers use %s", z.sessionPath)
	}
	if filepath.Base(z.sessionPath) != "session-zerodha.json" {
		t.Errorf("zerodha session file = %s", z.sessionPath)
	}
	if filepath.Base(f.sessionPath) != "session-fyers.json" {
		t.Errorf("fyers session file = %s", f.sessionPath)
	}
}

func TestLoadSessionRejectsForeignBroker(t *testing.T) {
	cfg := testBrokerConfig(t.TempDir())

	f, err := NewFyersDriver(cfg)
	if err != nil {
		t.Fatalf("NewFyersDriver: %v", err)
	}

	// A zerodha token planted at the fyers path must never be adopted.
	data, err := json.Marshal(sessionData{
		Broker:      "zerodha",
		AccessToken: "someone-elses-token",
		ExpiresAt:   time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(f.sessionPath, data, 0600); err != nil {
		t.Fatal(err)
	}

	if err := f.loadSession(); err == nil {
		t.Fatal("expected foreign-broker session to be rejected")
	}
	if f.IsAuthenticated() {
		t.Error("driver authenticated from another broker's session")
	}
}

func TestLoadSessionAcceptsOwnBroker(t *testing.T) {
	cfg := testBrokerConfig(t.TempDir())

	f, err := NewFyersDriver(cfg)
	if err != nil {
		t.Fatalf("NewFyersDriver: %v", err)
	}
	data, err := json.Marshal(sessionData{
		Broker:      "fyers",
		AccessToken: "tok",
		ExpiresAt:   time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(f.sessionPath, data, 0600); err != nil {
		t.Fatal(err)
	}

	if err := f.loadSession(); err != nil {
		t.Fatalf("loadSession: %v", err)
	}
	if !f.IsAuthenticated() {
		t.Error("valid own-broker session not adopted")
	}
}

// Covers both the cache-extension path and the freeze ordering: the global
// registry freezes on first lookup, after which driver construction with a
// cached master contract must fail instead of silently losing the entries.
func TestCachedTablesLoadBeforeFreezeOnly(t *testing.T) {
	dir := t.TempDir()
	cfg := testBrokerConfig(dir)

	st, err := store.NewSQLiteStore(filepath.Join(dir, "instruments.db"))
	if err != nil {
		t.Fatal(err)
	}
	err = st.SaveInstruments(context.Background(), "zerodha", []models.Instrument{
		{Token: 101, Symbol: "ZZCACHETEST", Exchange: models.NSE, LotSize: 1, InstrType: "EQ"},
	})
	st.Close()
	if err != nil {
		t.Fatal(err)
	}

	z, err := NewZerodhaDriver(cfg)
	if err != nil {
		t.Fatalf("NewZerodhaDriver: %v", err)
	}
	z.cacheMu.RLock()
	_, cached := z.tokenCache["NSE:ZZCACHETEST"]
	z.cacheMu.RUnlock()
	if !cached {
		t.Error("cached master contract not loaded into token cache")
	}

	// First lookup freezes the process registry.
	native, err := symbols.Default().ToBroker("zerodha", "NSE:ZZCACHETEST")
	if err != nil {
		t.Fatalf("cached symbol not in registry: %v", err)
	}
	if native != "NSE:ZZCACHETEST" {
		t.Errorf("native = %q", native)
	}

	if _, err := NewZerodhaDriver(cfg); err == nil {
		t.Fatal("expected construction to fail once the registry is frozen")
	}
}

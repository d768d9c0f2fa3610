package symbols

import (
	"testing"

	"broker-gateway/internal/errors"
	"broker-gateway/internal/models"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry()
	if err := reg.Load("zerodha", ZerodhaTable(DefaultUniverse)); err != nil {
		t.Fatalf("load zerodha table: %v", err)
	}
	if err := reg.Load("fyers", FyersTable(DefaultUniverse)); err != nil {
		t.Fatalf("load fyers table: %v", err)
	}
	return reg
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"SBIN", "NSE:SBIN"},
		{"sbin", "NSE:SBIN"},
		{"NSE:SBIN", "NSE:SBIN"},
		{"nse:sbin", "NSE:SBIN"},
		{"NSE:SBIN-EQ", "NSE:SBIN"},
		{"BSE:SENSEX-INDEX", "BSE:SENSEX"},
		{"  NSE : SBIN ", "NSE:SBIN"},
		{"NFO:NIFTY24DECFUT", "NFO:NIFTY24DECFUT"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSplitJoin(t *testing.T) {
	exchange, symbol := Split("NSE:SBIN")
	if exchange != models.NSE || symbol != "SBIN" {
		t.Errorf("Split = %q, %q", exchange, symbol)
	}

	// A bare symbol defaults to NSE.
	exchange, symbol = Split("SBIN")
	if exchange != models.NSE || symbol != "SBIN" {
		t.Errorf("Split bare = %q, %q", exchange, symbol)
	}

	if got := Join(models.NFO, "nifty24decfut"); got != "NFO:NIFTY24DECFUT" {
		t.Errorf("Join = %q", got)
	}
}

func TestToBroker(t *testing.T) {
	reg := newTestRegistry(t)

	tests := []struct {
		broker    string
		canonical string
		want      string
	}{
		{"zerodha", "NSE:SBIN", "NSE:SBIN"},
		{"fyers", "NSE:SBIN", "NSE:SBIN-EQ"},
		{"zerodha", "NSE:NIFTY50", "NSE:NIFTY 50"},
		{"fyers", "NSE:NIFTY50", "NSE:NIFTY50-INDEX"},
		// Case and suffix sloppiness in the input still resolves.
		{"fyers", "sbin", "NSE:SBIN-EQ"},
		{"FYERS", "NSE:SBIN-EQ", "NSE:SBIN-EQ"},
	}
	for _, tt := range tests {
		got, err := reg.ToBroker(tt.broker, tt.canonical)
		if err != nil {
			t.Errorf("ToBroker(%s, %s): %v", tt.broker, tt.canonical, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ToBroker(%s, %s) = %q, want %q", tt.broker, tt.canonical, got, tt.want)
		}
	}
}

func TestFyersTableClassifiesByInstrumentType(t *testing.T) {
	universe := append(EquityUniverse("RELIANCE", "SAMPLEPE"), models.Instrument{
		Symbol: "NIFTY24DECFUT", Exchange: models.NFO, InstrType: "FUT",
	}, models.Instrument{
		Symbol: "NIFTY24DEC24000CE", Exchange: models.NFO, InstrType: "CE",
	})
	table := FyersTable(universe)

	tests := []struct {
		canonical string
		want      string
	}{
		// Equity names ending in CE/PE still get the equity suffix.
		{"NSE:RELIANCE", "NSE:RELIANCE-EQ"},
		{"NSE:SAMPLEPE", "NSE:SAMPLEPE-EQ"},
		// Derivatives keep their trading symbol, under the cash prefix.
		{"NFO:NIFTY24DECFUT", "NSE:NIFTY24DECFUT"},
		{"NFO:NIFTY24DEC24000CE", "NSE:NIFTY24DEC24000CE"},
	}
	for _, tt := range tests {
		if got := table[tt.canonical]; got != tt.want {
			t.Errorf("FyersTable maps %s to %q, want %q", tt.canonical, got, tt.want)
		}
	}
}

func TestToCanonical(t *testing.T) {
	reg := newTestRegistry(t)

	got, err := reg.ToCanonical("fyers", "NSE:SBIN-EQ")
	if err != nil {
		t.Fatalf("ToCanonical: %v", err)
	}
	if got != "NSE:SBIN" {
		t.Errorf("ToCanonical = %q, want NSE:SBIN", got)
	}

	got, err = reg.ToCanonical("zerodha", "NSE:NIFTY 50")
	if err != nil {
		t.Fatalf("ToCanonical index: %v", err)
	}
	if got != "NSE:NIFTY50" {
		t.Errorf("ToCanonical index = %q, want NSE:NIFTY50", got)
	}
}

func TestUnknownSymbolFailsLoudly(t *testing.T) {
	reg := newTestRegistry(t)

	_, err := reg.ToBroker("fyers", "NSE:NOSUCHSCRIP")
	if err == nil {
		t.Fatal("expected error for unmapped symbol")
	}
	var unknown *errors.UnknownSymbolError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownSymbolError, got %T: %v", err, err)
	}
	if unknown.Broker != "fyers" || unknown.Symbol != "NSE:NOSUCHSCRIP" {
		t.Errorf("error fields = %q, %q", unknown.Broker, unknown.Symbol)
	}

	// The reverse direction fails the same way.
	if _, err := reg.ToCanonical("zerodha", "NSE:NOSUCHSCRIP"); err == nil {
		t.Fatal("expected error for unmapped native symbol")
	}
}

func TestLoadAfterFreezeRejected(t *testing.T) {
	reg := newTestRegistry(t)

	// First lookup freezes the registry.
	if _, err := reg.ToBroker("zerodha", "NSE:SBIN"); err != nil {
		t.Fatalf("lookup: %v", err)
	}

	err := reg.Load("zerodha", map[string]string{"NSE:LATE": "NSE:LATE"})
	if err == nil {
		t.Fatal("expected frozen registry to reject Load")
	}
}

func TestLoadMergesBeforeFreeze(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Load("zerodha", map[string]string{"NSE:SBIN": "NSE:SBIN"}); err != nil {
		t.Fatal(err)
	}
	if err := reg.Load("zerodha", map[string]string{"NSE:TCS": "NSE:TCS"}); err != nil {
		t.Fatal(err)
	}

	for _, canonical := range []string{"NSE:SBIN", "NSE:TCS"} {
		if _, err := reg.ToBroker("zerodha", canonical); err != nil {
			t.Errorf("merged entry %s missing: %v", canonical, err)
		}
	}
}

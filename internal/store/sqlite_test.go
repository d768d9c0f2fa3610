package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"broker-gateway/internal/errors"
	"broker-gateway/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "instruments.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testInstruments() []models.Instrument {
	return []models.Instrument{
		{
			Token: 779521, Symbol: "SBIN", Name: "STATE BANK OF INDIA",
			Exchange: models.NSE, Segment: "NSE", LotSize: 1, TickSize: 0.05,
			InstrType: "EQ",
		},
		{
			Token: 2953217, Symbol: "TCS", Name: "TATA CONSULTANCY SERV LT",
			Exchange: models.NSE, Segment: "NSE", LotSize: 1, TickSize: 0.05,
			InstrType: "EQ",
		},
		{
			Token: 12601602, Symbol: "NIFTY24DECFUT", Name: "NIFTY",
			Exchange: models.NFO, Segment: "NFO-FUT", LotSize: 25, TickSize: 0.05,
			Expiry: time.Date(2024, 12, 26, 0, 0, 0, 0, time.UTC), InstrType: "FUT",
		},
	}
}

func TestSaveAndGetInstrument(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveInstruments(ctx, "zerodha", testInstruments()); err != nil {
		t.Fatalf("SaveInstruments: %v", err)
	}

	inst, err := s.GetInstrument(ctx, "zerodha", models.NSE, "SBIN")
	if err != nil {
		t.Fatalf("GetInstrument: %v", err)
	}
	if inst.Token != 779521 || inst.Name != "STATE BANK OF INDIA" {
		t.Errorf("instrument = %+v", inst)
	}

	fut, err := s.GetInstrument(ctx, "zerodha", models.NFO, "NIFTY24DECFUT")
	if err != nil {
		t.Fatalf("GetInstrument future: %v", err)
	}
	if fut.LotSize != 25 || fut.Expiry.IsZero() {
		t.Errorf("future = %+v", fut)
	}
}

func TestGetInstrumentUnknown(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetInstrument(context.Background(), "zerodha", models.NSE, "NOSUCHSCRIP")
	if err == nil {
		t.Fatal("expected error for missing instrument")
	}
	var unknown *errors.UnknownSymbolError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownSymbolError, got %T: %v", err, err)
	}
	if unknown.Symbol != "NSE:NOSUCHSCRIP" {
		t.Errorf("error symbol = %q", unknown.Symbol)
	}
}

func TestSaveReplacesMasterContract(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveInstruments(ctx, "zerodha", testInstruments()); err != nil {
		t.Fatal(err)
	}
	// Resync with a shrunken contract; the dropped symbol must disappear.
	if err := s.SaveInstruments(ctx, "zerodha", testInstruments()[:1]); err != nil {
		t.Fatal(err)
	}

	if _, err := s.GetInstrument(ctx, "zerodha", models.NSE, "TCS"); err == nil {
		t.Error("TCS should be gone after resync")
	}
	if _, err := s.GetInstrument(ctx, "zerodha", models.NSE, "SBIN"); err != nil {
		t.Errorf("SBIN should survive resync: %v", err)
	}
}

func TestInstrumentsAreScopedByBroker(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveInstruments(ctx, "zerodha", testInstruments()); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetInstrument(ctx, "fyers", models.NSE, "SBIN"); err == nil {
		t.Error("zerodha contract leaked into fyers scope")
	}
}

func TestTokenFor(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveInstruments(ctx, "zerodha", testInstruments()); err != nil {
		t.Fatal(err)
	}
	token, err := s.TokenFor(ctx, "zerodha", models.NSE, "TCS")
	if err != nil {
		t.Fatalf("TokenFor: %v", err)
	}
	if token != 2953217 {
		t.Errorf("token = %d", token)
	}
}

func TestGetInstrumentsByExchange(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveInstruments(ctx, "zerodha", testInstruments()); err != nil {
		t.Fatal(err)
	}
	nse, err := s.GetInstruments(ctx, "zerodha", models.NSE)
	if err != nil {
		t.Fatalf("GetInstruments: %v", err)
	}
	if len(nse) != 2 {
		t.Errorf("NSE instruments = %d, want 2", len(nse))
	}
}

func TestLastSync(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	when, err := s.LastSync(ctx, "zerodha")
	if err != nil {
		t.Fatalf("LastSync: %v", err)
	}
	if !when.IsZero() {
		t.Errorf("never-synced broker reports %v", when)
	}

	before := time.Now().Add(-time.Second)
	if err := s.SaveInstruments(ctx, "zerodha", testInstruments()); err != nil {
		t.Fatal(err)
	}
	when, err = s.LastSync(ctx, "zerodha")
	if err != nil {
		t.Fatalf("LastSync after save: %v", err)
	}
	if when.Before(before) {
		t.Errorf("sync time %v predates the save", when)
	}
}

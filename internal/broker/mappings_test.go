package broker

import (
	"testing"

	"broker-gateway/internal/errors"
	"broker-gateway/internal/models"
)

func TestZerodhaOrderTypeMapping(t *testing.T) {
	tests := []struct {
		in   models.OrderType
		want string
	}{
		{models.OrderTypeMarket, "MARKET"},
		{models.OrderTypeLimit, "LIMIT"},
		{models.OrderTypeStop, "SL-M"},
		{models.OrderTypeStopLimit, "SL"},
	}
	for _, tt := range tests {
		got, err := zerodhaOrderType(tt.in)
		if err != nil {
			t.Errorf("zerodhaOrderType(%s): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("zerodhaOrderType(%s) = %q, want %q", tt.in, got, tt.want)
		}
		if back, ok := zerodhaOrderTypesReverse[got]; !ok || back != tt.in {
			t.Errorf("reverse mapping for %q = %q, want %q", got, back, tt.in)
		}
	}

	if _, err := zerodhaOrderType("TRAILING"); !errors.Is(err, errors.ErrConfigInvalid) {
		t.Errorf("unmapped type error = %v", err)
	}
}

func TestFyersOrderTypeMapping(t *testing.T) {
	for domain, wire := range fyersOrderTypes {
		got, err := fyersOrderType(domain)
		if err != nil {
			t.Errorf("fyersOrderType(%s): %v", domain, err)
			continue
		}
		if got != wire {
			t.Errorf("fyersOrderType(%s) = %d, want %d", domain, got, wire)
		}
		if back := fyersOrderTypesReverse[wire]; back != domain {
			t.Errorf("reverse mapping for %d = %q, want %q", wire, back, domain)
		}
	}

	if _, err := fyersOrderType("TRAILING"); !errors.Is(err, errors.ErrConfigInvalid) {
		t.Errorf("unmapped type error = %v", err)
	}
}

func TestFyersProductMappingRoundTrips(t *testing.T) {
	for domain, wire := range fyersProducts {
		if back := fyersProductsReverse[wire]; back != domain {
			t.Errorf("product %q maps to %q and back to %q", domain, wire, back)
		}
	}
}

func TestFyersSide(t *testing.T) {
	if got := fyersSide(1); got != models.TransactionBuy {
		t.Errorf("fyersSide(1) = %s", got)
	}
	if got := fyersSide(-1); got != models.TransactionSell {
		t.Errorf("fyersSide(-1) = %s", got)
	}
	if fyersSides[models.TransactionBuy] != 1 || fyersSides[models.TransactionSell] != -1 {
		t.Errorf("side table = %v", fyersSides)
	}
}

func TestSplitFyersSymbol(t *testing.T) {
	tests := []struct {
		in           string
		wantExchange models.Exchange
		wantSymbol   string
	}{
		{"NSE:SBIN-EQ", models.NSE, "SBIN-EQ"},
		{"BSE:SENSEX-INDEX", models.BSE, "SENSEX-INDEX"},
		{"SBIN-EQ", models.NSE, "SBIN-EQ"}, // missing prefix defaults to NSE
	}
	for _, tt := range tests {
		exchange, symbol := splitFyersSymbol(tt.in)
		if exchange != tt.wantExchange || symbol != tt.wantSymbol {
			t.Errorf("splitFyersSymbol(%q) = %q, %q", tt.in, exchange, symbol)
		}
	}
}

func TestFyersQuotePayloadToQuote(t *testing.T) {
	p := fyersQuotePayload{
		LP: 812.35, Open: 805, High: 815.8, Low: 803.1, PrevClose: 807.9,
		Volume: 1234567, Bid: 812.3, Ask: 812.4, Change: 4.45, ChangePct: 0.55,
		TT: 1735200900,
	}
	q := p.toQuote("NSE:SBIN-EQ")
	if q.Symbol != "NSE:SBIN-EQ" {
		t.Errorf("symbol = %q", q.Symbol)
	}
	if q.LastPrice != 812.35 || q.Close != 807.9 || q.ChangePercent != 0.55 {
		t.Errorf("quote = %+v", q)
	}
	if q.Timestamp.Unix() != 1735200900 {
		t.Errorf("timestamp = %v", q.Timestamp)
	}
}

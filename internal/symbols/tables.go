package symbols

import (
	"strings"

	"broker-gateway/internal/models"
)

// Index display names differ per broker. Zerodha uses the exchange's spaced
// names, Fyers uses dash-suffixed identifiers.
var indexNames = map[string]struct {
	zerodha string
	fyers   string
}{
	"NIFTY50":   {zerodha: "NIFTY 50", fyers: "NIFTY50-INDEX"},
	"NIFTYBANK": {zerodha: "NIFTY BANK", fyers: "NIFTYBANK-INDEX"},
	"FINNIFTY":  {zerodha: "FINNIFTY", fyers: "FINNIFTY-INDEX"},
	"SENSEX":    {zerodha: "SENSEX", fyers: "SENSEX-INDEX"},
}

// ZerodhaTable builds the canonical-to-native table for Zerodha from an
// instrument universe. Zerodha trading symbols carry no equity suffix, so the
// native form matches the canonical one for equities; index symbols map to
// the exchange display names.
func ZerodhaTable(instruments []models.Instrument) map[string]string {
	table := make(map[string]string, len(instruments)+len(indexNames))
	for _, inst := range instruments {
		canonical := Join(inst.Exchange, inst.Symbol)
		table[canonical] = canonical
	}
	for canon, names := range indexNames {
		table["NSE:"+canon] = "NSE:" + names.zerodha
	}
	return table
}

// FyersTable builds the canonical-to-native table for Fyers. Fyers appends
// "-EQ" to cash equities and "-INDEX" to indices; derivatives (FUT/CE/PE)
// keep their trading symbol, with NFO/BFO collapsing to NSE/BSE prefixes.
func FyersTable(instruments []models.Instrument) map[string]string {
	table := make(map[string]string, len(instruments)+len(indexNames))
	for _, inst := range instruments {
		canonical := Join(inst.Exchange, inst.Symbol)
		table[canonical] = fyersNative(inst)
	}
	for canon, names := range indexNames {
		table["NSE:"+canon] = "NSE:" + names.fyers
	}
	return table
}

// fyersNative classifies on the instrument type from the master contract,
// never on the trading symbol itself: equity names can end in CE or PE
// ("RELIANCE") without being options.
func fyersNative(inst models.Instrument) string {
	prefix := inst.Exchange
	switch prefix {
	case models.NFO:
		prefix = models.NSE
	case models.BFO:
		prefix = models.BSE
	}
	symbol := strings.ToUpper(inst.Symbol)
	switch inst.InstrType {
	case "FUT", "CE", "PE":
		return string(prefix) + ":" + symbol
	}
	return string(prefix) + ":" + symbol + "-EQ"
}

// EquityUniverse turns a list of NSE trading symbols into equity instruments,
// for seeding tables before a full master-contract sync has run.
func EquityUniverse(tradingSymbols ...string) []models.Instrument {
	out := make([]models.Instrument, 0, len(tradingSymbols))
	for _, s := range tradingSymbols {
		out = append(out, models.Instrument{
			Symbol:    strings.ToUpper(s),
			Exchange:  models.NSE,
			LotSize:   1,
			TickSize:  0.05,
			InstrType: "EQ",
		})
	}
	return out
}

// DefaultUniverse is the seed universe loaded by broker modules at startup.
// A master-contract sync extends the tables with the full instrument list.
var DefaultUniverse = EquityUniverse(
	"SBIN", "RELIANCE", "TCS", "INFY", "HDFCBANK", "ICICIBANK", "ITC",
	"KOTAKBANK", "AXISBANK", "LT", "WIPRO", "TATAMOTORS", "TATASTEEL",
	"BHARTIARTL", "HINDUNILVR", "BAJFINANCE", "MARUTI", "SUNPHARMA",
	"ASIANPAINT", "TITAN",
)

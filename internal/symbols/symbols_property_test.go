package symbols

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// For every mapped symbol and every broker, resolving to the native form and
// back must return the identical canonical symbol. This is the contract the
// gateway relies on when it rewrites symbols in responses.
func TestPropertySymbolRoundTrip(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Load("zerodha", ZerodhaTable(DefaultUniverse)); err != nil {
		t.Fatal(err)
	}
	if err := reg.Load("fyers", FyersTable(DefaultUniverse)); err != nil {
		t.Fatal(err)
	}

	canonicals := make([]string, 0, len(DefaultUniverse))
	for _, inst := range DefaultUniverse {
		canonicals = append(canonicals, Join(inst.Exchange, inst.Symbol))
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("ToCanonical(ToBroker(s)) == s", prop.ForAll(
		func(idx int, broker string) bool {
			canonical := canonicals[idx%len(canonicals)]

			native, err := reg.ToBroker(broker, canonical)
			if err != nil {
				t.Logf("ToBroker(%s, %s): %v", broker, canonical, err)
				return false
			}
			back, err := reg.ToCanonical(broker, native)
			if err != nil {
				t.Logf("ToCanonical(%s, %s): %v", broker, native, err)
				return false
			}
			if back != canonical {
				t.Logf("round trip %s -> %s -> %s", canonical, native, back)
				return false
			}
			return true
		},
		gen.IntRange(0, len(canonicals)-1),
		gen.OneConstOf("zerodha", "fyers"),
	))

	properties.TestingRun(t)
}

// Normalize must be idempotent and always produce the EXCHANGE:SYMBOL shape,
// whatever mix of case, whitespace and broker suffixes the input carries.
func TestPropertyNormalizeIdempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("Normalize(Normalize(s)) == Normalize(s)", prop.ForAll(
		func(symbol, prefix, suffix string) bool {
			input := prefix + symbol + suffix

			once := Normalize(input)
			twice := Normalize(once)
			if once != twice {
				t.Logf("not idempotent: %q -> %q -> %q", input, once, twice)
				return false
			}
			if !strings.Contains(once, ":") {
				t.Logf("missing exchange separator: %q -> %q", input, once)
				return false
			}
			if once != strings.ToUpper(once) {
				t.Logf("not uppercase: %q -> %q", input, once)
				return false
			}
			return true
		},
		gen.RegexMatch(`[A-Za-z][A-Za-z0-9]{0,11}`),
		gen.OneConstOf("", "nse:", "NSE:", "bse:"),
		gen.OneConstOf("", "-EQ", "-eq", "-INDEX"),
	))

	properties.TestingRun(t)
}

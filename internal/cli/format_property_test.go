package cli

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// For any amount, FormatIndianCurrency must produce the rupee prefix, two
// decimal places, Indian digit grouping (three from the right, then twos),
// and preserve the value when parsed back.
func TestPropertyIndianCurrencyFormatting(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	indianPattern := regexp.MustCompile(`^(\d{1,2},)*\d{1,3}$`)

	properties.Property("FormatIndianCurrency produces valid Indian format", prop.ForAll(
		func(amount float64) bool {
			if math.IsNaN(amount) || math.IsInf(amount, 0) || math.Abs(amount) > 1e15 {
				return true
			}

			formatted := FormatIndianCurrency(amount)

			if amount >= 0 {
				if !strings.HasPrefix(formatted, "₹") {
					t.Logf("expected ₹ prefix for %f, got %s", amount, formatted)
					return false
				}
			} else if !strings.HasPrefix(formatted, "-₹") {
				t.Logf("expected -₹ prefix for %f, got %s", amount, formatted)
				return false
			}

			parts := strings.Split(formatted, ".")
			if len(parts) != 2 || len(parts[1]) != 2 {
				t.Logf("expected two decimal places for %f, got %s", amount, formatted)
				return false
			}

			numPart := strings.TrimPrefix(formatted, "-")
			numPart = strings.TrimPrefix(numPart, "₹")
			numPart = strings.Split(numPart, ".")[0]
			if !indianPattern.MatchString(numPart) {
				t.Logf("invalid grouping for %f: %s", amount, formatted)
				return false
			}

			// Stripping the commas and sign must give back the rounded value.
			plain := strings.ReplaceAll(numPart, ",", "") + "." + parts[1]
			parsed, err := strconv.ParseFloat(plain, 64)
			if err != nil {
				t.Logf("unparseable result for %f: %s", amount, formatted)
				return false
			}
			if math.Abs(parsed-math.Abs(amount)) > 0.005+math.Abs(amount)*1e-12 {
				t.Logf("value drift for %f: %s parsed as %f", amount, formatted, parsed)
				return false
			}
			return true
		},
		gen.Float64Range(-1e12, 1e12),
	))

	properties.TestingRun(t)
}

package product

import (
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// FormatPrice renders an amount as Swedish price text, e.g. "1 299 kr".
// Whole amounts drop the decimals; fractional amounts keep two, separated
// by a comma.
func FormatPrice(amount decimal.Decimal) string {
	var digits, frac string
	if amount.IsInteger() {
		digits = amount.StringFixed(0)
	} else {
		fixed := amount.StringFixed(2)
		digits, frac, _ = strings.Cut(fixed, ".")
	}

	neg := strings.HasPrefix(digits, "-")
	digits = strings.TrimPrefix(digits, "-")

	// Group thousands with spaces, right to left.
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}

	out := b.String()
	if frac != "" {
		out += "," + frac
	}
	if neg {
		out = "-" + out
	}
	return out + " kr"
}

// ParsePrice normalizes a price that may arrive either as plain numeric text
// or as formatted price text ("699 kr", "1 299,50 kr") into an amount.
// Everything except digits and the decimal comma is stripped; the comma
// becomes a decimal point.
func ParsePrice(text string) (decimal.Decimal, error) {
	var b strings.Builder
	for _, r := range text {
		if (r >= '0' && r <= '9') || r == ',' {
			b.WriteRune(r)
		}
	}
	cleaned := strings.ReplaceAll(b.String(), ",", ".")
	if cleaned == "" {
		return decimal.Zero, errors.Errorf("no amount in price %q", text)
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "parse price %q", text)
	}
	return d, nil
}

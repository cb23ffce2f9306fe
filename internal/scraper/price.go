package scraper

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var priceText = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*€?\s*(?:/\s*([\p{L}.]+))?`)

// ParsePrice reads shelf labels such as "2,30 €/kg", "1.99 €" or "0,89 €/vnt."
// and returns the amount and the unit after the slash, if any.
func ParsePrice(text string) (decimal.Decimal, string, error) {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\u00a0", " "))
	m := priceText.FindStringSubmatch(text)
	if m == nil {
		return decimal.Zero, "", fmt.Errorf("no price in %q", text)
	}
	amount, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", "."))
	if err != nil {
		return decimal.Zero, "", fmt.Errorf("invalid price %q: %w", m[1], err)
	}
	unit := strings.TrimSuffix(strings.ToLower(m[2]), ".")
	return amount, unit, nil
}

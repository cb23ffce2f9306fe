package shopping

import (
	"regexp"
	"strconv"
	"strings"
)

// Unit is the base unit an ingredient amount is expressed in.
type Unit string

const (
	UnitGram  Unit = "g"
	UnitMl    Unit = "ml"
	UnitPiece Unit = "vnt"
	UnitNone  Unit = "none"
)

// Ingredient is a shopping list entry split into name and quantity.
type Ingredient struct {
	Name     string
	Amount   float64
	Unit     Unit
	Original string
}

var quantityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(.+?)\s+(\d+(?:[.,]\d+)?)\s*(kg|g)$`),
	regexp.MustCompile(`(?i)^(.+?)\s+(\d+(?:[.,]\d+)?)\s*(ml|l)$`),
	regexp.MustCompile(`(?i)^(.+?)\s+(\d+)\s*(vnt)$`),
}

// ParseIngredient splits entries like "pienas 1l" or "morkos 500g" into a
// name and an amount in base units (grams, millilitres or pieces). Entries
// without a recognisable quantity, such as "druska", keep the whole text as
// the name with an amount of 1.
func ParseIngredient(s string) Ingredient {
	original := strings.TrimSpace(s)

	for _, re := range quantityPatterns {
		m := re.FindStringSubmatch(original)
		if m == nil {
			continue
		}
		amount, err := strconv.ParseFloat(strings.ReplaceAll(m[2], ",", "."), 64)
		if err != nil {
			continue
		}

		ing := Ingredient{Name: strings.TrimSpace(m[1]), Amount: amount, Original: original}
		switch strings.ToLower(m[3]) {
		case "kg":
			ing.Amount, ing.Unit = amount*1000, UnitGram
		case "g":
			ing.Unit = UnitGram
		case "l":
			ing.Amount, ing.Unit = amount*1000, UnitMl
		case "ml":
			ing.Unit = UnitMl
		case "vnt":
			ing.Unit = UnitPiece
		}
		return ing
	}

	return Ingredient{Name: original, Amount: 1, Unit: UnitNone, Original: original}
}

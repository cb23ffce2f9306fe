package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrNoStoresAvailable is returned by Decide when there is nothing to compare.
var ErrNoStoresAvailable = errors.New("no stores available for comparison")

// Decide recommends the cheapest store of the aggregation. The result only
// depends on the aggregates, so equal inputs always yield equal decisions.
func Decide(aggs map[string]StoreAggregate) (*Decision, error) {
	if len(aggs) == 0 {
		return nil, ErrNoStoresAvailable
	}

	ranked := rankCheapest(aggs)
	cheapest := ranked[0]
	priciest := mostExpensive(aggs)
	totalSavings := priciest.TotalCost.Sub(cheapest.TotalCost)

	comparisons := make([]StoreComparison, 0, len(ranked))
	for _, a := range ranked {
		comparisons = append(comparisons, StoreComparison{
			Store:          a.Store,
			TotalCost:      a.TotalCost,
			ItemsAvailable: a.Available,
			ItemsMissing:   a.Missing,
			Savings:        a.TotalCost.Sub(cheapest.TotalCost),
		})
	}

	items := make([]Item, 0, len(cheapest.Observations))
	for _, o := range cheapest.Observations {
		items = append(items, Item{
			Ingredient: o.Ingredient,
			Quantity:   1,
			Price:      o.Price,
			UnitPrice:  o.UnitPrice,
			Unit:       o.Unit,
			URL:        o.URL,
			Available:  o.Available,
		})
	}

	return &Decision{
		RecommendedStore: cheapest.Store,
		TotalCost:        cheapest.TotalCost,
		TotalSavings:     totalSavings,
		Reason:           reason(cheapest, priciest, totalSavings, len(aggs)),
		Comparisons:      comparisons,
		Items:            items,
	}, nil
}

func reason(cheapest, priciest StoreAggregate, savings decimal.Decimal, stores int) string {
	// Casers carry state and are not safe for concurrent use.
	title := cases.Title(language.Und)
	name := title.String(cheapest.Store)
	if stores == 1 {
		return fmt.Sprintf("%s is the only store with prices: total €%s for %d available items.",
			name, cheapest.TotalCost.StringFixed(2), cheapest.Available)
	}
	return fmt.Sprintf("%s offers the best total price at €%s for %d available items. You save €%s compared to %s.",
		name, cheapest.TotalCost.StringFixed(2), cheapest.Available, savings.StringFixed(2), title.String(priciest.Store))
}

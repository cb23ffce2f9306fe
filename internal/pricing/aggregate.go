package pricing

import (
	"sort"

	"github.com/shopspring/decimal"
)

func init() {
	// Money is rendered as JSON numbers, matching what clients submit.
	decimal.MarshalJSONWithoutQuotes = true
}

// Aggregate groups observations by store. Unavailable observations count as
// missing and do not contribute to the total. Repeated observations of the
// same ingredient in a store are summed.
func Aggregate(observations []Observation) map[string]StoreAggregate {
	out := make(map[string]StoreAggregate)
	for _, o := range observations {
		agg, ok := out[o.Store]
		if !ok {
			agg = StoreAggregate{Store: o.Store, TotalCost: decimal.Zero}
		}
		if o.Available {
			agg.TotalCost = agg.TotalCost.Add(o.Price)
			agg.Available++
		} else {
			agg.Missing++
		}
		agg.Observations = append(agg.Observations, o)
		out[o.Store] = agg
	}
	return out
}

// rankCheapest orders aggregates from cheapest to most expensive: lower total
// first, then more available items, then the smaller store id.
func rankCheapest(aggs map[string]StoreAggregate) []StoreAggregate {
	ranked := make([]StoreAggregate, 0, len(aggs))
	for _, a := range aggs {
		ranked = append(ranked, a)
	}
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if c := a.TotalCost.Cmp(b.TotalCost); c != 0 {
			return c < 0
		}
		if a.Available != b.Available {
			return a.Available > b.Available
		}
		return a.Store < b.Store
	})
	return ranked
}

// mostExpensive picks the highest total, preferring fewer available items and
// then the larger store id on ties.
func mostExpensive(aggs map[string]StoreAggregate) StoreAggregate {
	var best StoreAggregate
	first := true
	for _, a := range aggs {
		if first {
			best, first = a, false
			continue
		}
		c := a.TotalCost.Cmp(best.TotalCost)
		switch {
		case c > 0:
			best = a
		case c == 0 && a.Available < best.Available:
			best = a
		case c == 0 && a.Available == best.Available && a.Store > best.Store:
			best = a
		}
	}
	return best
}

package pricing

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Observation is a single product price seen in a store for a shopping list
// item.
type Observation struct {
	Ingredient string          `json:"ingredient"`
	Store      string          `json:"store"`
	Price      decimal.Decimal `json:"price"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Unit       string          `json:"unit"`
	URL        string          `json:"url,omitempty"`
	Available  bool            `json:"available"`
}

// UnmarshalJSON decodes an observation, treating an omitted "available" field
// as true.
func (o *Observation) UnmarshalJSON(data []byte) error {
	type plain Observation
	aux := plain{Available: true}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*o = Observation(aux)
	return nil
}

// StoreAggregate summarizes the observations of a single store.
type StoreAggregate struct {
	Store        string
	TotalCost    decimal.Decimal
	Available    int
	Missing      int
	Observations []Observation
}

// StoreComparison is one row of the ranking returned with a decision.
type StoreComparison struct {
	Store          string          `json:"store"`
	TotalCost      decimal.Decimal `json:"total_cost"`
	ItemsAvailable int             `json:"items_available"`
	ItemsMissing   int             `json:"items_missing"`
	Savings        decimal.Decimal `json:"savings"`
}

// Item is a line of the recommended store's basket. The ingredient is sent
// as "name", the key price-report clients read.
type Item struct {
	Ingredient string          `json:"name"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Unit       string          `json:"unit"`
	URL        string          `json:"url,omitempty"`
	Available  bool            `json:"available"`
}

// Decision is the store recommendation computed from a price report.
type Decision struct {
	RecommendedStore string            `json:"recommended_store"`
	TotalCost        decimal.Decimal   `json:"total_cost"`
	TotalSavings     decimal.Decimal   `json:"total_savings"`
	Reason           string            `json:"reason"`
	Comparisons      []StoreComparison `json:"comparisons"`
	Items            []Item            `json:"items"`
}

// Clone returns a deep copy of the decision.
func (d *Decision) Clone() *Decision {
	if d == nil {
		return nil
	}
	out := *d
	out.Comparisons = append([]StoreComparison(nil), d.Comparisons...)
	out.Items = append([]Item(nil), d.Items...)
	return &out
}

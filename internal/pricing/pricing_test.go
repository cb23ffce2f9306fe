package pricing

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func obs(store, ingredient, price string, available bool) Observation {
	return Observation{
		Ingredient: ingredient,
		Store:      store,
		Price:      decimal.RequireFromString(price),
		UnitPrice:  decimal.RequireFromString(price),
		Unit:       "vnt",
		Available:  available,
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestObservationUnmarshal(t *testing.T) {
	t.Run("AvailableDefaultsToTrue", func(t *testing.T) {
		var o Observation
		require.NoError(t, json.Unmarshal([]byte(`{"ingredient":"pienas","store":"maxima","price":1.29,"unit_price":1.29,"unit":"l"}`), &o))
		assert.True(t, o.Available)
		assert.True(t, o.Price.Equal(dec("1.29")))
	})

	t.Run("ExplicitFalse", func(t *testing.T) {
		var o Observation
		require.NoError(t, json.Unmarshal([]byte(`{"ingredient":"pienas","store":"iki","price":0,"available":false}`), &o))
		assert.False(t, o.Available)
	})

	t.Run("ListDefaults", func(t *testing.T) {
		var list []Observation
		require.NoError(t, json.Unmarshal([]byte(`[{"store":"a","price":1},{"store":"b","price":2,"available":false}]`), &list))
		require.Len(t, list, 2)
		assert.True(t, list[0].Available)
		assert.False(t, list[1].Available)
	})
}

func TestAggregate(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		assert.Empty(t, Aggregate(nil))
	})

	t.Run("UnavailablePricesIgnored", func(t *testing.T) {
		aggs := Aggregate([]Observation{
			obs("rimi", "pienas", "1.10", true),
			obs("rimi", "sviestas", "99.99", false),
			obs("maxima", "pienas", "1.20", true),
		})

		require.Len(t, aggs, 2)
		rimi := aggs["rimi"]
		assert.True(t, rimi.TotalCost.Equal(dec("1.10")))
		assert.Equal(t, 1, rimi.Available)
		assert.Equal(t, 1, rimi.Missing)
		require.Len(t, rimi.Observations, 2)
		assert.Equal(t, "pienas", rimi.Observations[0].Ingredient)
		assert.Equal(t, "sviestas", rimi.Observations[1].Ingredient)
	})

	t.Run("DuplicatesAccumulate", func(t *testing.T) {
		aggs := Aggregate([]Observation{
			obs("iki", "duona", "0.99", true),
			obs("iki", "duona", "0.99", true),
		})
		assert.True(t, aggs["iki"].TotalCost.Equal(dec("1.98")))
		assert.Equal(t, 2, aggs["iki"].Available)
	})

	t.Run("ExactDecimalSums", func(t *testing.T) {
		var in []Observation
		for i := 0; i < 10; i++ {
			in = append(in, obs("lidl", "x", "0.10", true))
		}
		assert.Equal(t, "1.00", Aggregate(in)["lidl"].TotalCost.StringFixed(2))
		assert.True(t, Aggregate(in)["lidl"].TotalCost.Equal(dec("1")))
	})
}

func TestDecide(t *testing.T) {
	t.Run("NoStores", func(t *testing.T) {
		_, err := Decide(map[string]StoreAggregate{})
		assert.ErrorIs(t, err, ErrNoStoresAvailable)
	})

	t.Run("PartialAvailability", func(t *testing.T) {
		d, err := Decide(Aggregate([]Observation{
			obs("A", "x", "3.00", true),
			obs("A", "y", "4.00", true),
			obs("B", "x", "2.50", true),
			obs("B", "y", "5.00", false),
		}))
		require.NoError(t, err)

		assert.Equal(t, "B", d.RecommendedStore)
		assert.True(t, d.TotalCost.Equal(dec("2.50")))
		assert.True(t, d.TotalSavings.Equal(dec("4.50")))

		require.Len(t, d.Comparisons, 2)
		assert.Equal(t, "B", d.Comparisons[0].Store)
		assert.True(t, d.Comparisons[0].Savings.IsZero())
		assert.Equal(t, 1, d.Comparisons[0].ItemsAvailable)
		assert.Equal(t, 1, d.Comparisons[0].ItemsMissing)
		assert.Equal(t, "A", d.Comparisons[1].Store)
		assert.True(t, d.Comparisons[1].TotalCost.Equal(dec("7.00")))
		assert.True(t, d.Comparisons[1].Savings.Equal(dec("4.50")))

		require.Len(t, d.Items, 2)
		assert.Equal(t, "x", d.Items[0].Ingredient)
		assert.Equal(t, 1, d.Items[0].Quantity)
		assert.True(t, d.Items[0].Available)
		assert.False(t, d.Items[1].Available)

		assert.Contains(t, d.Reason, "B")
		assert.Contains(t, d.Reason, "€2.50")
		assert.Contains(t, d.Reason, "€4.50")
	})

	t.Run("TieBrokenByAvailability", func(t *testing.T) {
		d, err := Decide(map[string]StoreAggregate{
			"A": {Store: "A", TotalCost: dec("10.00"), Available: 3},
			"B": {Store: "B", TotalCost: dec("10.00"), Available: 2},
		})
		require.NoError(t, err)
		assert.Equal(t, "A", d.RecommendedStore)
		assert.True(t, d.TotalSavings.IsZero())
	})

	t.Run("TieBrokenByStoreID", func(t *testing.T) {
		d, err := Decide(map[string]StoreAggregate{
			"zeta":  {Store: "zeta", TotalCost: dec("5"), Available: 2},
			"alpha": {Store: "alpha", TotalCost: dec("5"), Available: 2},
		})
		require.NoError(t, err)
		assert.Equal(t, "alpha", d.RecommendedStore)
		assert.Equal(t, []string{"alpha", "zeta"}, []string{d.Comparisons[0].Store, d.Comparisons[1].Store})
	})

	t.Run("SingleStore", func(t *testing.T) {
		d, err := Decide(Aggregate([]Observation{obs("rimi", "pienas", "1.29", true)}))
		require.NoError(t, err)
		assert.Equal(t, "rimi", d.RecommendedStore)
		assert.True(t, d.TotalSavings.IsZero())
		assert.Contains(t, d.Reason, "Rimi")
	})

	t.Run("AllMissing", func(t *testing.T) {
		d, err := Decide(Aggregate([]Observation{
			obs("rimi", "pienas", "0", false),
			obs("iki", "pienas", "0", false),
		}))
		require.NoError(t, err)
		assert.Equal(t, "iki", d.RecommendedStore)
		assert.True(t, d.TotalCost.IsZero())
	})
}

func TestDecideProperties(t *testing.T) {
	input := []Observation{
		obs("maxima", "pienas", "1.19", true),
		obs("maxima", "duona", "1.49", true),
		obs("maxima", "kava", "6.99", false),
		obs("rimi", "pienas", "1.05", true),
		obs("rimi", "duona", "1.89", true),
		obs("rimi", "kava", "7.49", true),
		obs("iki", "pienas", "1.25", true),
		obs("iki", "duona", "1.15", true),
		obs("lidl", "kava", "5.99", true),
	}

	first, err := Decide(Aggregate(input))
	require.NoError(t, err)

	t.Run("Deterministic", func(t *testing.T) {
		for i := 0; i < 20; i++ {
			again, err := Decide(Aggregate(input))
			require.NoError(t, err)
			assert.Equal(t, first, again)
		}
	})

	t.Run("SavingsNonNegative", func(t *testing.T) {
		assert.True(t, first.Comparisons[0].Savings.IsZero())
		assert.Equal(t, first.RecommendedStore, first.Comparisons[0].Store)
		for _, c := range first.Comparisons {
			assert.False(t, c.Savings.IsNegative(), c.Store)
		}
	})

	t.Run("TotalSavingsIsSpread", func(t *testing.T) {
		lo, hi := first.Comparisons[0].TotalCost, first.Comparisons[0].TotalCost
		for _, c := range first.Comparisons {
			lo = decimal.Min(lo, c.TotalCost)
			hi = decimal.Max(hi, c.TotalCost)
		}
		assert.True(t, first.TotalSavings.Equal(hi.Sub(lo)))
	})
}

func TestDecisionJSON(t *testing.T) {
	d, err := Decide(Aggregate([]Observation{obs("rimi", "pienas", "1.29", true)}))
	require.NoError(t, err)

	raw, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"total_cost":1.29`)
	assert.Contains(t, string(raw), `"recommended_store":"rimi"`)

	var wire struct {
		Items []map[string]any `json:"items"`
	}
	require.NoError(t, json.Unmarshal(raw, &wire))
	require.Len(t, wire.Items, 1)
	assert.Equal(t, "pienas", wire.Items[0]["name"])
	assert.NotContains(t, wire.Items[0], "ingredient")
	assert.Equal(t, 1.0, wire.Items[0]["quantity"])
}

func TestDecisionClone(t *testing.T) {
	d, err := Decide(Aggregate([]Observation{obs("rimi", "pienas", "1.29", true)}))
	require.NoError(t, err)

	cp := d.Clone()
	cp.Items[0].Ingredient = "changed"
	assert.Equal(t, "pienas", d.Items[0].Ingredient)
	assert.Nil(t, (*Decision)(nil).Clone())
}

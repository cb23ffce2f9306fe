package planner

// Meal is a single dish of a generated plan.
type Meal struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Recipe      []string `json:"recipe"`
	Ingredients []string `json:"ingredients"`
	KeyProtein  string   `json:"key_protein,omitempty"`
}

// Plan is an ordered list of meals plus the deduplicated shopping list
// needed to cook them.
type Plan struct {
	Meals        []Meal   `json:"meals"`
	ShoppingList []string `json:"shopping_list"`
}

// modelResponse is the JSON document the model is asked to produce.
// Some models answer with "meals" instead of "meal_plan", both are accepted.
type modelResponse struct {
	MealPlan     []Meal   `json:"meal_plan"`
	Meals        []Meal   `json:"meals"`
	ShoppingList []string `json:"shopping_list"`
}

func (r modelResponse) meals() []Meal {
	if len(r.MealPlan) > 0 {
		return r.MealPlan
	}
	return r.Meals
}

// Clone returns a deep copy of the plan.
func (p Plan) Clone() Plan {
	out := Plan{
		ShoppingList: append([]string(nil), p.ShoppingList...),
	}
	if p.Meals != nil {
		out.Meals = make([]Meal, len(p.Meals))
		for i, m := range p.Meals {
			m.Recipe = append([]string(nil), m.Recipe...)
			m.Ingredients = append([]string(nil), m.Ingredients...)
			out.Meals[i] = m
		}
	}
	return out
}

package nutrition

import "github.com/trezcool/forma/core"

// Macros are energy (kcal) and nutrients (grams).
type Macros struct {
	Calories float64 `json:"calories" db:"calories" validate:"min=0"`
	Protein  float64 `json:"protein" db:"protein" validate:"min=0"`
	Carbs    float64 `json:"carbs" db:"carbs" validate:"min=0"`
	Fat      float64 `json:"fat" db:"fat" validate:"min=0"`
	Fiber    float64 `json:"fiber" db:"fiber" validate:"min=0"`
}

func (m Macros) Add(o Macros) Macros {
	return Macros{
		Calories: m.Calories + o.Calories,
		Protein:  m.Protein + o.Protein,
		Carbs:    m.Carbs + o.Carbs,
		Fat:      m.Fat + o.Fat,
		Fiber:    m.Fiber + o.Fiber,
	}
}

func (m Macros) Scale(f float64) Macros {
	return Macros{
		Calories: m.Calories * f,
		Protein:  m.Protein * f,
		Carbs:    m.Carbs * f,
		Fat:      m.Fat * f,
		Fiber:    m.Fiber * f,
	}
}

// ForQuantity scales per-100g macros to grams.
func (m Macros) ForQuantity(grams float64) Macros {
	return m.Scale(grams / 100)
}

// Rounded rounds every value to one decimal place. Only apply it for presentation.
func (m Macros) Rounded() Macros {
	return Macros{
		Calories: core.Round1(m.Calories),
		Protein:  core.Round1(m.Protein),
		Carbs:    core.Round1(m.Carbs),
		Fat:      core.Round1(m.Fat),
		Fiber:    core.Round1(m.Fiber),
	}
}

type (
	ItemNutrition struct {
		MealItemID    string  `json:"meal_item_id"`
		IngredientID  string  `json:"ingredient_id"`
		QuantityGrams float64 `json:"quantity_grams"`
		Macros        Macros  `json:"macros"`
	}

	MealNutrition struct {
		MealID string          `json:"meal_id"`
		Name   string          `json:"name"`
		Items  []ItemNutrition `json:"items"`
		Total  Macros          `json:"total"`
	}

	DayNutrition struct {
		DayID  string          `json:"day_id"`
		Number int             `json:"number"`
		Name   string          `json:"name"`
		Meals  []MealNutrition `json:"meals"`
		Total  Macros          `json:"total"`
	}

	PlanNutrition struct {
		PlanID       string         `json:"plan_id"`
		Days         []DayNutrition `json:"days"`
		Total        Macros         `json:"total"`
		DailyAverage Macros         `json:"daily_average"`
	}

	RecipeNutrition struct {
		RecipeID   string `json:"recipe_id"`
		Servings   int    `json:"servings"`
		Total      Macros `json:"total"`
		PerServing Macros `json:"per_serving"`
	}
)

// CalculatePlan aggregates item -> meal -> day -> plan totals from a fully loaded plan.
// Sums are kept unrounded; the returned values are rounded.
func CalculatePlan(plan Plan, ingredients map[string]Ingredient) PlanNutrition {
	pn := PlanNutrition{PlanID: plan.ID, Days: make([]DayNutrition, 0, len(plan.Days))}
	var planTotal Macros
	for _, day := range plan.Days {
		dn := calculateDay(day, ingredients)
		planTotal = planTotal.Add(dn.Total)
		dn.Total = dn.Total.Rounded()
		pn.Days = append(pn.Days, dn)
	}
	pn.Total = planTotal.Rounded()
	if n := len(plan.Days); n > 0 {
		pn.DailyAverage = planTotal.Scale(1 / float64(n)).Rounded()
	}
	return pn
}

// CalculateDay returns the rounded totals of a single, fully loaded day.
func CalculateDay(day Day, ingredients map[string]Ingredient) DayNutrition {
	dn := calculateDay(day, ingredients)
	dn.Total = dn.Total.Rounded()
	return dn
}

func calculateDay(day Day, ingredients map[string]Ingredient) DayNutrition {
	dn := DayNutrition{DayID: day.ID, Number: day.Number, Name: day.Name, Meals: make([]MealNutrition, 0, len(day.Meals))}
	for _, meal := range day.Meals {
		mn := MealNutrition{MealID: meal.ID, Name: meal.Name, Items: make([]ItemNutrition, 0, len(meal.Items))}
		var mealTotal Macros
		for _, item := range meal.Items {
			m := ingredients[item.IngredientID].Per100g.ForQuantity(item.QuantityGrams)
			mealTotal = mealTotal.Add(m)
			mn.Items = append(mn.Items, ItemNutrition{
				MealItemID:    item.ID,
				IngredientID:  item.IngredientID,
				QuantityGrams: item.QuantityGrams,
				Macros:        m.Rounded(),
			})
		}
		dn.Total = dn.Total.Add(mealTotal)
		mn.Total = mealTotal.Rounded()
		dn.Meals = append(dn.Meals, mn)
	}
	return dn
}

// CalculateRecipe sums the recipe ingredients and divides by servings.
func CalculateRecipe(r Recipe, ingredients map[string]Ingredient) RecipeNutrition {
	var total Macros
	for _, ri := range r.Ingredients {
		total = total.Add(ingredients[ri.IngredientID].Per100g.ForQuantity(ri.QuantityGrams))
	}
	servings := r.Servings
	if servings < 1 {
		servings = 1
	}
	return RecipeNutrition{
		RecipeID:   r.ID,
		Servings:   servings,
		Total:      total.Rounded(),
		PerServing: total.Scale(1 / float64(servings)).Rounded(),
	}
}

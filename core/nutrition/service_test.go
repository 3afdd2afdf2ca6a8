package nutrition_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/forma/core"
	"github.com/trezcool/forma/core/nutrition"
	"github.com/trezcool/forma/tests"
)

var (
	oatsPer100g = nutrition.Macros{Calories: 389, Protein: 16.9, Carbs: 66.3, Fat: 6.9, Fiber: 10.6}
	milkPer100g = nutrition.Macros{Calories: 42, Protein: 3.4, Carbs: 5, Fat: 1}
)

func TestMacros_ForQuantity(t *testing.T) {
	assert.Equal(t, nutrition.Macros{Calories: 311.2, Protein: 13.5, Carbs: 53, Fat: 5.5, Fiber: 8.5}, oatsPer100g.ForQuantity(80).Rounded())
	assert.Equal(t, nutrition.Macros{}, oatsPer100g.ForQuantity(0))
}

func TestCalculatePlan(t *testing.T) {
	ingredients := map[string]nutrition.Ingredient{
		"oats": {ID: "oats", Per100g: oatsPer100g},
		"milk": {ID: "milk", Per100g: milkPer100g},
	}
	day := func(id string, number int) nutrition.Day {
		return nutrition.Day{ID: id, Number: number, Meals: []nutrition.Meal{{
			ID: id + "-breakfast", Name: "Breakfast",
			Items: []nutrition.MealItem{
				{ID: id + "-1", IngredientID: "oats", QuantityGrams: 80},
				{ID: id + "-2", IngredientID: "milk", QuantityGrams: 250},
			},
		}}}
	}

	pn := nutrition.CalculatePlan(nutrition.Plan{ID: "plan", Days: []nutrition.Day{day("d1", 1), day("d2", 2)}}, ingredients)

	wantDay := nutrition.Macros{Calories: 416.2, Protein: 22, Carbs: 65.5, Fat: 8, Fiber: 8.5}
	require.Len(t, pn.Days, 2)
	assert.Equal(t, wantDay, pn.Days[0].Total)
	assert.Equal(t, wantDay, pn.Days[0].Meals[0].Total)
	assert.Equal(t, nutrition.Macros{Calories: 105, Protein: 8.5, Carbs: 12.5, Fat: 2.5}, pn.Days[0].Meals[0].Items[1].Macros)
	assert.Equal(t, nutrition.Macros{Calories: 832.4, Protein: 44, Carbs: 131.1, Fat: 16, Fiber: 17}, pn.Total)
	assert.Equal(t, wantDay, pn.DailyAverage)

	empty := nutrition.CalculatePlan(nutrition.Plan{ID: "empty"}, ingredients)
	assert.Empty(t, empty.Days)
	assert.Equal(t, nutrition.Macros{}, empty.DailyAverage)
}

func TestService_Plans(t *testing.T) {
	app := testutil.NewApp()
	svc := app.NutritionSvc
	ctx := context.Background()
	oats := testutil.CreateIngredient(t, svc, "Oats", oatsPer100g)
	milk := testutil.CreateIngredient(t, svc, "Milk", milkPer100g)

	plan, err := svc.CreatePlan(ctx, nutrition.NewPlan{Name: "Cut"})
	require.NoError(t, err)

	day1, err := svc.AddDay(ctx, plan.ID, nutrition.NewDay{Name: "Monday"})
	require.NoError(t, err)
	assert.Equal(t, 1, day1.Number)
	_, err = svc.AddDay(ctx, plan.ID, nutrition.NewDay{Number: 1})
	assert.Equal(t, []string{"number"}, testutil.ErrorFields(err))

	meal, err := svc.AddMeal(ctx, plan.ID, day1.ID, nutrition.NewMeal{Name: "Breakfast"})
	require.NoError(t, err)
	_, err = svc.AddMealItem(ctx, plan.ID, meal.ID, nutrition.NewMealItem{IngredientID: oats.ID, QuantityGrams: 80})
	require.NoError(t, err)
	item, err := svc.AddMealItem(ctx, plan.ID, meal.ID, nutrition.NewMealItem{IngredientID: milk.ID, QuantityGrams: 100})
	require.NoError(t, err)
	_, err = svc.AddMealItem(ctx, plan.ID, meal.ID, nutrition.NewMealItem{IngredientID: "nope", QuantityGrams: 1})
	assert.Equal(t, []string{"ingredient_id"}, testutil.ErrorFields(err))
	_, err = svc.UpdateMealItem(ctx, plan.ID, item.ID, nutrition.NewMealItem{IngredientID: milk.ID, QuantityGrams: 250})
	require.NoError(t, err)

	cp, err := svc.CopyDay(ctx, plan.ID, day1.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, cp.Number)
	assert.Equal(t, "Monday", cp.Name)
	require.Len(t, cp.Meals, 1)
	assert.NotEqual(t, meal.ID, cp.Meals[0].ID)
	assert.Len(t, cp.Meals[0].Items, 2)

	pn, err := svc.PlanMacros(ctx, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, nutrition.Macros{Calories: 832.4, Protein: 44, Carbs: 131.1, Fat: 16, Fiber: 17}, pn.Total)

	// the copy is independent from its source
	require.NoError(t, svc.DeleteMeal(ctx, plan.ID, meal.ID))
	got, err := svc.GetPlan(ctx, plan.ID)
	require.NoError(t, err)
	require.Len(t, got.Days, 2)
	assert.Empty(t, got.Days[0].Meals)
	assert.Len(t, got.Days[1].Meals[0].Items, 2)

	// children of another plan are not found
	other, err := svc.CreatePlan(ctx, nutrition.NewPlan{Name: "Bulk"})
	require.NoError(t, err)
	assert.True(t, core.IsNotFound(svc.DeleteDay(ctx, other.ID, cp.ID)))
	_, err = svc.CopyDay(ctx, other.ID, cp.ID)
	assert.True(t, core.IsNotFound(err))

	// used ingredients cannot be deleted until the plan is gone
	assert.True(t, core.IsConflict(svc.DeleteIngredient(ctx, oats.ID)))
	require.NoError(t, svc.DeletePlan(ctx, plan.ID))
	assert.NoError(t, svc.DeleteIngredient(ctx, oats.ID))
}

func TestService_Recipes(t *testing.T) {
	app := testutil.NewApp()
	svc := app.NutritionSvc
	ctx := context.Background()
	oats := testutil.CreateIngredient(t, svc, "Oats", oatsPer100g)

	nr := nutrition.NewRecipe{
		Title:       "Overnight oats",
		Servings:    4,
		Tags:        []string{" Breakfast", "vegan", "breakfast "},
		Ingredients: []nutrition.RecipeIngredient{{IngredientID: oats.ID, QuantityGrams: 400}},
	}
	require.NoError(t, nr.Validate())
	assert.Equal(t, []string{"breakfast", "vegan"}, nr.Tags)

	r, err := svc.CreateRecipe(ctx, nr)
	require.NoError(t, err)

	rn, err := svc.RecipeMacros(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, rn.Servings)
	assert.Equal(t, nutrition.Macros{Calories: 1556, Protein: 67.6, Carbs: 265.2, Fat: 27.6, Fiber: 42.4}, rn.Total)
	assert.Equal(t, oatsPer100g, rn.PerServing)

	_, err = svc.CreateRecipe(ctx, nutrition.NewRecipe{
		Title: "Ghost", Servings: 1,
		Ingredients: []nutrition.RecipeIngredient{{IngredientID: "nope", QuantityGrams: 10}},
	})
	assert.Equal(t, []string{"ingredients"}, testutil.ErrorFields(err))

	rs, total, err := svc.QueryRecipes(ctx, nutrition.RecipeFilter{Tag: "VEGAN"}, nil, core.Page{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, rs, 1)
	assert.Equal(t, r.ID, rs[0].ID)
	_, total, err = svc.QueryRecipes(ctx, nutrition.RecipeFilter{Tag: "dinner"}, nil, core.Page{})
	require.NoError(t, err)
	assert.Zero(t, total)

	assert.True(t, core.IsConflict(svc.DeleteIngredient(ctx, oats.ID)))
}

package nutrition

import (
	"context"
	"strconv"

	"github.com/pkg/errors"

	"github.com/trezcool/forma/core"
)

var (
	// errors
	ErrIngredientNotFound = core.NewNotFoundError("ingredient")
	ErrPlanNotFound       = core.NewNotFoundError("nutrition plan")
	ErrDayNotFound        = core.NewNotFoundError("day")
	ErrMealNotFound       = core.NewNotFoundError("meal")
	ErrMealItemNotFound   = core.NewNotFoundError("meal item")
	ErrRecipeNotFound     = core.NewNotFoundError("recipe")
	ErrIngredientInUse    = core.NewConflictError("ingredient is used by meal plans or recipes and cannot be deleted")
)

var itoa = strconv.Itoa

type (
	Repository interface {
		CreateIngredient(ctx context.Context, i Ingredient) (Ingredient, error)
		QueryIngredients(ctx context.Context, filter IngredientFilter, ordering []core.DBOrdering, page core.Page) ([]Ingredient, int, error)
		GetIngredient(ctx context.Context, id string) (Ingredient, error)
		// GetIngredientsByID returns the found ingredients keyed by ID; unknown IDs are skipped.
		GetIngredientsByID(ctx context.Context, ids ...string) (map[string]Ingredient, error)
		UpdateIngredient(ctx context.Context, i Ingredient) (Ingredient, error)
		DeleteIngredient(ctx context.Context, id string) error
		CountIngredientUses(ctx context.Context, ingredientID string) (int, error)

		CreatePlan(ctx context.Context, p Plan) (Plan, error)
		QueryPlans(ctx context.Context, filter PlanFilter, ordering []core.DBOrdering, page core.Page) ([]Plan, int, error)
		// GetPlan returns the plan with its days, meals and items loaded and ordered.
		GetPlan(ctx context.Context, id string) (Plan, error)
		UpdatePlan(ctx context.Context, p Plan) (Plan, error)
		DeletePlan(ctx context.Context, id string) error

		CreateDay(ctx context.Context, d Day) (Day, error)
		// GetDay returns the day with its meals and items loaded.
		GetDay(ctx context.Context, id string) (Day, error)
		UpdateDay(ctx context.Context, d Day) (Day, error)
		DeleteDay(ctx context.Context, id string) error

		CreateMeal(ctx context.Context, m Meal) (Meal, error)
		GetMeal(ctx context.Context, id string) (Meal, error)
		UpdateMeal(ctx context.Context, m Meal) (Meal, error)
		DeleteMeal(ctx context.Context, id string) error

		CreateMealItem(ctx context.Context, mi MealItem) (MealItem, error)
		GetMealItem(ctx context.Context, id string) (MealItem, error)
		UpdateMealItem(ctx context.Context, mi MealItem) (MealItem, error)
		DeleteMealItem(ctx context.Context, id string) error

		CreateRecipe(ctx context.Context, r Recipe) (Recipe, error)
		QueryRecipes(ctx context.Context, filter RecipeFilter, ordering []core.DBOrdering, page core.Page) ([]Recipe, int, error)
		GetRecipe(ctx context.Context, id string) (Recipe, error)
		UpdateRecipe(ctx context.Context, r Recipe) (Recipe, error)
		DeleteRecipe(ctx context.Context, id string) error
	}

	Service interface {
		CreateIngredient(ctx context.Context, ni NewIngredient) (Ingredient, error)
		QueryIngredients(ctx context.Context, filter IngredientFilter, ordering []core.DBOrdering, page core.Page) ([]Ingredient, int, error)
		GetIngredient(ctx context.Context, id string) (Ingredient, error)
		UpdateIngredient(ctx context.Context, i Ingredient, ni NewIngredient) (Ingredient, error)
		DeleteIngredient(ctx context.Context, id string) error

		CreatePlan(ctx context.Context, np NewPlan) (Plan, error)
		QueryPlans(ctx context.Context, filter PlanFilter, ordering []core.DBOrdering, page core.Page) ([]Plan, int, error)
		GetPlan(ctx context.Context, id string) (Plan, error)
		UpdatePlan(ctx context.Context, p Plan, np NewPlan) (Plan, error)
		DeletePlan(ctx context.Context, id string) error
		PlanMacros(ctx context.Context, planID string) (PlanNutrition, error)

		AddDay(ctx context.Context, planID string, nd NewDay) (Day, error)
		UpdateDay(ctx context.Context, planID, dayID string, nd NewDay) (Day, error)
		DeleteDay(ctx context.Context, planID, dayID string) error
		CopyDay(ctx context.Context, planID, dayID string) (Day, error)

		AddMeal(ctx context.Context, planID, dayID string, nm NewMeal) (Meal, error)
		UpdateMeal(ctx context.Context, planID, mealID string, nm NewMeal) (Meal, error)
		DeleteMeal(ctx context.Context, planID, mealID string) error

		AddMealItem(ctx context.Context, planID, mealID string, ni NewMealItem) (MealItem, error)
		UpdateMealItem(ctx context.Context, planID, itemID string, ni NewMealItem) (MealItem, error)
		DeleteMealItem(ctx context.Context, planID, itemID string) error

		CreateRecipe(ctx context.Context, nr NewRecipe) (Recipe, error)
		QueryRecipes(ctx context.Context, filter RecipeFilter, ordering []core.DBOrdering, page core.Page) ([]Recipe, int, error)
		GetRecipe(ctx context.Context, id string) (Recipe, error)
		UpdateRecipe(ctx context.Context, r Recipe, nr NewRecipe) (Recipe, error)
		DeleteRecipe(ctx context.Context, id string) error
		RecipeMacros(ctx context.Context, recipeID string) (RecipeNutrition, error)
	}

	service struct {
		repo Repository
		tx   core.Transactor
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, tx core.Transactor) Service {
	return &service{repo: repo, tx: tx}
}

// Ingredients

func (svc *service) CreateIngredient(ctx context.Context, ni NewIngredient) (Ingredient, error) {
	now := core.NowFunc().UTC()
	return svc.repo.CreateIngredient(ctx, Ingredient{Name: ni.Name, Per100g: ni.Per100g, CreatedAt: now, UpdatedAt: now})
}

func (svc *service) QueryIngredients(ctx context.Context, filter IngredientFilter, ordering []core.DBOrdering, page core.Page) ([]Ingredient, int, error) {
	filter.Search = core.CleanString(filter.Search)
	return svc.repo.QueryIngredients(ctx, filter, ordering, page)
}

func (svc *service) GetIngredient(ctx context.Context, id string) (Ingredient, error) {
	return svc.repo.GetIngredient(ctx, id)
}

func (svc *service) UpdateIngredient(ctx context.Context, i Ingredient, ni NewIngredient) (Ingredient, error) {
	i.Name = ni.Name
	i.Per100g = ni.Per100g
	i.UpdatedAt = core.NowFunc().UTC()
	return svc.repo.UpdateIngredient(ctx, i)
}

func (svc *service) DeleteIngredient(ctx context.Context, id string) error {
	return svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		n, err := svc.repo.CountIngredientUses(ctx, id)
		if err != nil {
			return errors.Wrap(err, "counting ingredient uses")
		}
		if n > 0 {
			return ErrIngredientInUse
		}
		return svc.repo.DeleteIngredient(ctx, id)
	})
}

func (svc *service) checkIngredient(ctx context.Context, field, id string) error {
	if _, err := svc.repo.GetIngredient(ctx, id); err != nil {
		if core.IsNotFound(err) {
			return core.NewValidationError(nil, core.FieldError{Field: field, Error: "ingredient " + id + " not found"})
		}
		return errors.Wrap(err, "finding ingredient by ID")
	}
	return nil
}

// Plans

func (svc *service) CreatePlan(ctx context.Context, np NewPlan) (Plan, error) {
	now := core.NowFunc().UTC()
	p := Plan{
		Name:         np.Name,
		Description:  np.Description,
		MembershipID: np.MembershipID,
		Published:    np.Published,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return svc.repo.CreatePlan(ctx, p)
}

func (svc *service) QueryPlans(ctx context.Context, filter PlanFilter, ordering []core.DBOrdering, page core.Page) ([]Plan, int, error) {
	filter.Search = core.CleanString(filter.Search)
	return svc.repo.QueryPlans(ctx, filter, ordering, page)
}

func (svc *service) GetPlan(ctx context.Context, id string) (Plan, error) {
	return svc.repo.GetPlan(ctx, id)
}

func (svc *service) UpdatePlan(ctx context.Context, p Plan, np NewPlan) (Plan, error) {
	p.Name = np.Name
	p.Description = np.Description
	p.MembershipID = np.MembershipID
	p.Published = np.Published
	p.UpdatedAt = core.NowFunc().UTC()
	days := p.Days
	p, err := svc.repo.UpdatePlan(ctx, p)
	p.Days = days
	return p, err
}

func (svc *service) DeletePlan(ctx context.Context, id string) error {
	return svc.repo.DeletePlan(ctx, id)
}

func (svc *service) PlanMacros(ctx context.Context, planID string) (PlanNutrition, error) {
	plan, err := svc.repo.GetPlan(ctx, planID)
	if err != nil {
		return PlanNutrition{}, err
	}
	var ids []string
	for _, d := range plan.Days {
		for _, m := range d.Meals {
			for _, it := range m.Items {
				ids = append(ids, it.IngredientID)
			}
		}
	}
	ingredients, err := svc.repo.GetIngredientsByID(ctx, ids...)
	if err != nil {
		return PlanNutrition{}, errors.Wrap(err, "finding ingredients")
	}
	return CalculatePlan(plan, ingredients), nil
}

// Days

func (svc *service) AddDay(ctx context.Context, planID string, nd NewDay) (Day, error) {
	var day Day
	err := svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		plan, err := svc.repo.GetPlan(ctx, planID)
		if err != nil {
			return err
		}
		number := nd.Number
		if number == 0 {
			number = nextDayNumber(plan.Days)
		}
		for _, d := range plan.Days {
			if d.Number == number {
				return core.NewValidationError(nil, core.FieldError{Field: "number", Error: "day " + itoa(number) + " already exists"})
			}
		}
		day, err = svc.repo.CreateDay(ctx, Day{PlanID: plan.ID, Number: number, Name: nd.Name})
		day.Meals = []Meal{}
		return err
	})
	return day, err
}

func nextDayNumber(days []Day) int {
	var max int
	for _, d := range days {
		if d.Number > max {
			max = d.Number
		}
	}
	return max + 1
}

func (svc *service) getDay(ctx context.Context, planID, dayID string) (Day, error) {
	day, err := svc.repo.GetDay(ctx, dayID)
	if err != nil {
		return Day{}, err
	}
	if day.PlanID != planID {
		return Day{}, ErrDayNotFound
	}
	return day, nil
}

func (svc *service) UpdateDay(ctx context.Context, planID, dayID string, nd NewDay) (Day, error) {
	var day Day
	err := svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if day, err = svc.getDay(ctx, planID, dayID); err != nil {
			return err
		}
		if nd.Number != 0 && nd.Number != day.Number {
			plan, err := svc.repo.GetPlan(ctx, planID)
			if err != nil {
				return err
			}
			for _, d := range plan.Days {
				if d.Number == nd.Number {
					return core.NewValidationError(nil, core.FieldError{Field: "number", Error: "day " + itoa(nd.Number) + " already exists"})
				}
			}
			day.Number = nd.Number
		}
		day.Name = nd.Name
		meals := day.Meals
		day, err = svc.repo.UpdateDay(ctx, day)
		day.Meals = meals
		return err
	})
	return day, err
}

func (svc *service) DeleteDay(ctx context.Context, planID, dayID string) error {
	return svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := svc.getDay(ctx, planID, dayID); err != nil {
			return err
		}
		return svc.repo.DeleteDay(ctx, dayID)
	})
}

// CopyDay duplicates a day with its meals and items, appending it after the last day of the plan.
func (svc *service) CopyDay(ctx context.Context, planID, dayID string) (Day, error) {
	var cp Day
	err := svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		plan, err := svc.repo.GetPlan(ctx, planID)
		if err != nil {
			return err
		}
		src, err := svc.getDay(ctx, planID, dayID)
		if err != nil {
			return err
		}
		if cp, err = svc.repo.CreateDay(ctx, Day{PlanID: plan.ID, Number: nextDayNumber(plan.Days), Name: src.Name}); err != nil {
			return errors.Wrap(err, "creating day")
		}
		cp.Meals = make([]Meal, 0, len(src.Meals))
		for _, m := range src.Meals {
			meal, err := svc.repo.CreateMeal(ctx, Meal{DayID: cp.ID, Name: m.Name, Position: m.Position})
			if err != nil {
				return errors.Wrap(err, "creating meal")
			}
			meal.Items = make([]MealItem, 0, len(m.Items))
			for _, it := range m.Items {
				item, err := svc.repo.CreateMealItem(ctx, MealItem{MealID: meal.ID, IngredientID: it.IngredientID, QuantityGrams: it.QuantityGrams})
				if err != nil {
					return errors.Wrap(err, "creating meal item")
				}
				meal.Items = append(meal.Items, item)
			}
			cp.Meals = append(cp.Meals, meal)
		}
		return nil
	})
	return cp, err
}

// Meals

func (svc *service) AddMeal(ctx context.Context, planID, dayID string, nm NewMeal) (Meal, error) {
	var meal Meal
	err := svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		day, err := svc.getDay(ctx, planID, dayID)
		if err != nil {
			return err
		}
		pos := nm.Position
		if pos == 0 {
			pos = len(day.Meals) + 1
		}
		meal, err = svc.repo.CreateMeal(ctx, Meal{DayID: day.ID, Name: nm.Name, Position: pos})
		meal.Items = []MealItem{}
		return err
	})
	return meal, err
}

func (svc *service) getMeal(ctx context.Context, planID, mealID string) (Meal, error) {
	meal, err := svc.repo.GetMeal(ctx, mealID)
	if err != nil {
		return Meal{}, err
	}
	if _, err := svc.getDay(ctx, planID, meal.DayID); err != nil {
		if core.IsNotFound(err) {
			return Meal{}, ErrMealNotFound
		}
		return Meal{}, err
	}
	return meal, nil
}

func (svc *service) UpdateMeal(ctx context.Context, planID, mealID string, nm NewMeal) (Meal, error) {
	var meal Meal
	err := svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if meal, err = svc.getMeal(ctx, planID, mealID); err != nil {
			return err
		}
		meal.Name = nm.Name
		if nm.Position != 0 {
			meal.Position = nm.Position
		}
		items := meal.Items
		meal, err = svc.repo.UpdateMeal(ctx, meal)
		meal.Items = items
		return err
	})
	return meal, err
}

func (svc *service) DeleteMeal(ctx context.Context, planID, mealID string) error {
	return svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := svc.getMeal(ctx, planID, mealID); err != nil {
			return err
		}
		return svc.repo.DeleteMeal(ctx, mealID)
	})
}

// Meal items

func (svc *service) AddMealItem(ctx context.Context, planID, mealID string, ni NewMealItem) (MealItem, error) {
	var item MealItem
	err := svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		meal, err := svc.getMeal(ctx, planID, mealID)
		if err != nil {
			return err
		}
		if err := svc.checkIngredient(ctx, "ingredient_id", ni.IngredientID); err != nil {
			return err
		}
		item, err = svc.repo.CreateMealItem(ctx, MealItem{MealID: meal.ID, IngredientID: ni.IngredientID, QuantityGrams: ni.QuantityGrams})
		return err
	})
	return item, err
}

func (svc *service) getMealItem(ctx context.Context, planID, itemID string) (MealItem, error) {
	item, err := svc.repo.GetMealItem(ctx, itemID)
	if err != nil {
		return MealItem{}, err
	}
	if _, err := svc.getMeal(ctx, planID, item.MealID); err != nil {
		if core.IsNotFound(err) {
			return MealItem{}, ErrMealItemNotFound
		}
		return MealItem{}, err
	}
	return item, nil
}

func (svc *service) UpdateMealItem(ctx context.Context, planID, itemID string, ni NewMealItem) (MealItem, error) {
	var item MealItem
	err := svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if item, err = svc.getMealItem(ctx, planID, itemID); err != nil {
			return err
		}
		if err := svc.checkIngredient(ctx, "ingredient_id", ni.IngredientID); err != nil {
			return err
		}
		item.IngredientID = ni.IngredientID
		item.QuantityGrams = ni.QuantityGrams
		item, err = svc.repo.UpdateMealItem(ctx, item)
		return err
	})
	return item, err
}

func (svc *service) DeleteMealItem(ctx context.Context, planID, itemID string) error {
	return svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := svc.getMealItem(ctx, planID, itemID); err != nil {
			return err
		}
		return svc.repo.DeleteMealItem(ctx, itemID)
	})
}

// Recipes

func (svc *service) CreateRecipe(ctx context.Context, nr NewRecipe) (Recipe, error) {
	var r Recipe
	err := svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		for _, ri := range nr.Ingredients {
			if err := svc.checkIngredient(ctx, "ingredients", ri.IngredientID); err != nil {
				return err
			}
		}
		now := core.NowFunc().UTC()
		var err error
		r, err = svc.repo.CreateRecipe(ctx, applyRecipe(Recipe{CreatedAt: now, UpdatedAt: now}, nr))
		return err
	})
	return r, err
}

func (svc *service) QueryRecipes(ctx context.Context, filter RecipeFilter, ordering []core.DBOrdering, page core.Page) ([]Recipe, int, error) {
	filter.Search = core.CleanString(filter.Search)
	filter.Tag = core.CleanString(filter.Tag, true /* lower */)
	return svc.repo.QueryRecipes(ctx, filter, ordering, page)
}

func (svc *service) GetRecipe(ctx context.Context, id string) (Recipe, error) {
	return svc.repo.GetRecipe(ctx, id)
}

func (svc *service) UpdateRecipe(ctx context.Context, r Recipe, nr NewRecipe) (Recipe, error) {
	err := svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		for _, ri := range nr.Ingredients {
			if err := svc.checkIngredient(ctx, "ingredients", ri.IngredientID); err != nil {
				return err
			}
		}
		r = applyRecipe(r, nr)
		r.UpdatedAt = core.NowFunc().UTC()
		var err error
		r, err = svc.repo.UpdateRecipe(ctx, r)
		return err
	})
	return r, err
}

func applyRecipe(r Recipe, nr NewRecipe) Recipe {
	r.Title = nr.Title
	r.Description = nr.Description
	r.Instructions = nr.Instructions
	r.Servings = nr.Servings
	r.PrepMinutes = nr.PrepMinutes
	r.Tags = nr.Tags
	r.Published = nr.Published
	r.Ingredients = nr.Ingredients
	if r.Tags == nil {
		r.Tags = []string{}
	}
	if r.Ingredients == nil {
		r.Ingredients = []RecipeIngredient{}
	}
	return r
}

func (svc *service) DeleteRecipe(ctx context.Context, id string) error {
	return svc.repo.DeleteRecipe(ctx, id)
}

func (svc *service) RecipeMacros(ctx context.Context, recipeID string) (RecipeNutrition, error) {
	r, err := svc.repo.GetRecipe(ctx, recipeID)
	if err != nil {
		return RecipeNutrition{}, err
	}
	ids := make([]string, 0, len(r.Ingredients))
	for _, ri := range r.Ingredients {
		ids = append(ids, ri.IngredientID)
	}
	ingredients, err := svc.repo.GetIngredientsByID(ctx, ids...)
	if err != nil {
		return RecipeNutrition{}, errors.Wrap(err, "finding ingredients")
	}
	return CalculateRecipe(r, ingredients), nil
}

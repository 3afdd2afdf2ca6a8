package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/forma/core"
	"github.com/trezcool/forma/core/nutrition"
	"github.com/trezcool/forma/core/tracking"
)

type nutritionRepository struct {
	db *DB
}

var _ nutrition.Repository = (*nutritionRepository)(nil)

func NewNutritionRepository(db *DB) nutrition.Repository {
	return &nutritionRepository{db: db}
}

// Ingredients

func (repo *nutritionRepository) CreateIngredient(ctx context.Context, i nutrition.Ingredient) (nutrition.Ingredient, error) {
	defer repo.db.lock(ctx)()

	i.ID = newID()
	repo.db.tbl(tblIngredients).put(i.ID, i)
	return i, nil
}

func (repo *nutritionRepository) QueryIngredients(
	ctx context.Context,
	filter nutrition.IngredientFilter,
	ordering []core.DBOrdering,
	page core.Page,
) ([]nutrition.Ingredient, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	is := make([]nutrition.Ingredient, 0)
	repo.db.tbl(tblIngredients).each(func(v interface{}) {
		if i := v.(nutrition.Ingredient); filter.Search == "" || containsFold(i.Name, filter.Search) {
			is = append(is, i)
		}
	})

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "name", Ascending: true}}
	}
	orderRows(is, core.AllowedOrdering(ordering, nutrition.IngredientOrderingFields), func(i int, field string) interface{} {
		switch field {
		case "name":
			return is[i].Name
		case "calories":
			return is[i].Per100g.Calories
		case "protein":
			return is[i].Per100g.Protein
		case "carbs":
			return is[i].Per100g.Carbs
		case "fat":
			return is[i].Per100g.Fat
		default:
			return is[i].CreatedAt
		}
	})

	start, end := page.Window(len(is))
	return is[start:end], len(is), nil
}

func (repo *nutritionRepository) GetIngredient(ctx context.Context, id string) (nutrition.Ingredient, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if v, ok := repo.db.tbl(tblIngredients).get(id); ok {
		return v.(nutrition.Ingredient), nil
	}
	return nutrition.Ingredient{}, nutrition.ErrIngredientNotFound
}

func (repo *nutritionRepository) GetIngredientsByID(ctx context.Context, ids ...string) (map[string]nutrition.Ingredient, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	found := make(map[string]nutrition.Ingredient, len(ids))
	for _, id := range ids {
		if v, ok := repo.db.tbl(tblIngredients).get(id); ok {
			found[id] = v.(nutrition.Ingredient)
		}
	}
	return found, nil
}

func (repo *nutritionRepository) UpdateIngredient(ctx context.Context, i nutrition.Ingredient) (nutrition.Ingredient, error) {
	defer repo.db.lock(ctx)()

	if _, ok := repo.db.tbl(tblIngredients).get(i.ID); !ok {
		return nutrition.Ingredient{}, nutrition.ErrIngredientNotFound
	}
	repo.db.tbl(tblIngredients).put(i.ID, i)
	return i, nil
}

func (repo *nutritionRepository) DeleteIngredient(ctx context.Context, id string) error {
	defer repo.db.lock(ctx)()

	if !repo.db.tbl(tblIngredients).del(id) {
		return nutrition.ErrIngredientNotFound
	}

	// food entries keep their copied macros: ON DELETE SET NULL
	entries := repo.db.tbl(tblFoodEntries)
	for _, k := range entries.keys {
		fe := entries.rows[k].(tracking.FoodEntry)
		if fe.IngredientID != nil && *fe.IngredientID == id {
			fe.IngredientID = nil
			entries.put(k, fe)
		}
	}
	return nil
}

func (repo *nutritionRepository) CountIngredientUses(ctx context.Context, ingredientID string) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	n := countWhere(repo.db.tbl(tblMealItems), func(v interface{}) bool {
		return v.(nutrition.MealItem).IngredientID == ingredientID
	})
	n += countWhere(repo.db.tbl(tblRecipes), func(v interface{}) bool {
		for _, ri := range v.(nutrition.Recipe).Ingredients {
			if ri.IngredientID == ingredientID {
				return true
			}
		}
		return false
	})
	return n, nil
}

// Plans

func (repo *nutritionRepository) CreatePlan(ctx context.Context, p nutrition.Plan) (nutrition.Plan, error) {
	defer repo.db.lock(ctx)()

	p.ID = newID()
	p.Days = nil
	repo.db.tbl(tblPlans).put(p.ID, p)
	return p, nil
}

func (repo *nutritionRepository) QueryPlans(
	ctx context.Context,
	filter nutrition.PlanFilter,
	ordering []core.DBOrdering,
	page core.Page,
) ([]nutrition.Plan, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	ps := make([]nutrition.Plan, 0)
	repo.db.tbl(tblPlans).each(func(v interface{}) {
		p := v.(nutrition.Plan)
		if filter.Search != "" && !containsFold(p.Name, filter.Search) && !containsFold(p.Description, filter.Search) {
			return
		}
		if filter.Published != nil && p.Published != *filter.Published {
			return
		}
		if filter.MembershipID != "" && (p.MembershipID == nil || *p.MembershipID != filter.MembershipID) {
			return
		}
		ps = append(ps, p)
	})

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "name", Ascending: true}}
	}
	orderRows(ps, core.AllowedOrdering(ordering, nutrition.PlanOrderingFields), func(i int, field string) interface{} {
		switch field {
		case "name":
			return ps[i].Name
		case "published":
			return ps[i].Published
		default:
			return ps[i].CreatedAt
		}
	})

	start, end := page.Window(len(ps))
	return ps[start:end], len(ps), nil
}

func (repo *nutritionRepository) mealItems(mealID string) []nutrition.MealItem {
	items := make([]nutrition.MealItem, 0)
	repo.db.tbl(tblMealItems).each(func(v interface{}) {
		if it := v.(nutrition.MealItem); it.MealID == mealID {
			items = append(items, it)
		}
	})
	return items
}

func (repo *nutritionRepository) dayMeals(dayID string) []nutrition.Meal {
	meals := make([]nutrition.Meal, 0)
	repo.db.tbl(tblMeals).each(func(v interface{}) {
		if m := v.(nutrition.Meal); m.DayID == dayID {
			m.Items = repo.mealItems(m.ID)
			meals = append(meals, m)
		}
	})
	sort.SliceStable(meals, func(i, j int) bool { return meals[i].Position < meals[j].Position })
	return meals
}

func (repo *nutritionRepository) GetPlan(ctx context.Context, id string) (nutrition.Plan, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	v, ok := repo.db.tbl(tblPlans).get(id)
	if !ok {
		return nutrition.Plan{}, nutrition.ErrPlanNotFound
	}
	p := v.(nutrition.Plan)
	p.Days = make([]nutrition.Day, 0)
	repo.db.tbl(tblDays).each(func(v interface{}) {
		if d := v.(nutrition.Day); d.PlanID == id {
			d.Meals = repo.dayMeals(d.ID)
			p.Days = append(p.Days, d)
		}
	})
	sort.SliceStable(p.Days, func(i, j int) bool { return p.Days[i].Number < p.Days[j].Number })
	return p, nil
}

func (repo *nutritionRepository) UpdatePlan(ctx context.Context, p nutrition.Plan) (nutrition.Plan, error) {
	defer repo.db.lock(ctx)()

	if _, ok := repo.db.tbl(tblPlans).get(p.ID); !ok {
		return nutrition.Plan{}, nutrition.ErrPlanNotFound
	}
	p.Days = nil
	repo.db.tbl(tblPlans).put(p.ID, p)
	return p, nil
}

func (repo *nutritionRepository) DeletePlan(ctx context.Context, id string) error {
	defer repo.db.lock(ctx)()

	if !repo.db.tbl(tblPlans).del(id) {
		return nutrition.ErrPlanNotFound
	}
	days := deleteWhere(repo.db.tbl(tblDays), func(v interface{}) bool { return v.(nutrition.Day).PlanID == id })
	repo.deleteDayMeals(days)
	return nil
}

func (repo *nutritionRepository) deleteDayMeals(dayIDs []string) {
	if len(dayIDs) == 0 {
		return
	}
	isDay := inKeys(dayIDs)
	meals := deleteWhere(repo.db.tbl(tblMeals), func(v interface{}) bool { return isDay(v.(nutrition.Meal).DayID) })
	repo.deleteMealItems(meals)
}

func (repo *nutritionRepository) deleteMealItems(mealIDs []string) {
	if len(mealIDs) == 0 {
		return
	}
	isMeal := inKeys(mealIDs)
	deleteWhere(repo.db.tbl(tblMealItems), func(v interface{}) bool { return isMeal(v.(nutrition.MealItem).MealID) })
}

// Days

func (repo *nutritionRepository) CreateDay(ctx context.Context, d nutrition.Day) (nutrition.Day, error) {
	defer repo.db.lock(ctx)()

	d.ID = newID()
	d.Meals = nil
	repo.db.tbl(tblDays).put(d.ID, d)
	return d, nil
}

func (repo *nutritionRepository) GetDay(ctx context.Context, id string) (nutrition.Day, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	v, ok := repo.db.tbl(tblDays).get(id)
	if !ok {
		return nutrition.Day{}, nutrition.ErrDayNotFound
	}
	d := v.(nutrition.Day)
	d.Meals = repo.dayMeals(id)
	return d, nil
}

func (repo *nutritionRepository) UpdateDay(ctx context.Context, d nutrition.Day) (nutrition.Day, error) {
	defer repo.db.lock(ctx)()

	if _, ok := repo.db.tbl(tblDays).get(d.ID); !ok {
		return nutrition.Day{}, nutrition.ErrDayNotFound
	}
	d.Meals = nil
	repo.db.tbl(tblDays).put(d.ID, d)
	return d, nil
}

func (repo *nutritionRepository) DeleteDay(ctx context.Context, id string) error {
	defer repo.db.lock(ctx)()

	if !repo.db.tbl(tblDays).del(id) {
		return nutrition.ErrDayNotFound
	}
	repo.deleteDayMeals([]string{id})
	return nil
}

// Meals

func (repo *nutritionRepository) CreateMeal(ctx context.Context, m nutrition.Meal) (nutrition.Meal, error) {
	defer repo.db.lock(ctx)()

	m.ID = newID()
	m.Items = nil
	repo.db.tbl(tblMeals).put(m.ID, m)
	return m, nil
}

func (repo *nutritionRepository) GetMeal(ctx context.Context, id string) (nutrition.Meal, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	v, ok := repo.db.tbl(tblMeals).get(id)
	if !ok {
		return nutrition.Meal{}, nutrition.ErrMealNotFound
	}
	m := v.(nutrition.Meal)
	m.Items = repo.mealItems(id)
	return m, nil
}

func (repo *nutritionRepository) UpdateMeal(ctx context.Context, m nutrition.Meal) (nutrition.Meal, error) {
	defer repo.db.lock(ctx)()

	if _, ok := repo.db.tbl(tblMeals).get(m.ID); !ok {
		return nutrition.Meal{}, nutrition.ErrMealNotFound
	}
	m.Items = nil
	repo.db.tbl(tblMeals).put(m.ID, m)
	return m, nil
}

func (repo *nutritionRepository) DeleteMeal(ctx context.Context, id string) error {
	defer repo.db.lock(ctx)()

	if !repo.db.tbl(tblMeals).del(id) {
		return nutrition.ErrMealNotFound
	}
	repo.deleteMealItems([]string{id})
	return nil
}

// Meal items

func (repo *nutritionRepository) CreateMealItem(ctx context.Context, mi nutrition.MealItem) (nutrition.MealItem, error) {
	defer repo.db.lock(ctx)()

	mi.ID = newID()
	repo.db.tbl(tblMealItems).put(mi.ID, mi)
	return mi, nil
}

func (repo *nutritionRepository) GetMealItem(ctx context.Context, id string) (nutrition.MealItem, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if v, ok := repo.db.tbl(tblMealItems).get(id); ok {
		return v.(nutrition.MealItem), nil
	}
	return nutrition.MealItem{}, nutrition.ErrMealItemNotFound
}

func (repo *nutritionRepository) UpdateMealItem(ctx context.Context, mi nutrition.MealItem) (nutrition.MealItem, error) {
	defer repo.db.lock(ctx)()

	if _, ok := repo.db.tbl(tblMealItems).get(mi.ID); !ok {
		return nutrition.MealItem{}, nutrition.ErrMealItemNotFound
	}
	repo.db.tbl(tblMealItems).put(mi.ID, mi)
	return mi, nil
}

func (repo *nutritionRepository) DeleteMealItem(ctx context.Context, id string) error {
	defer repo.db.lock(ctx)()

	if !repo.db.tbl(tblMealItems).del(id) {
		return nutrition.ErrMealItemNotFound
	}
	return nil
}

// Recipes

func copyRecipe(r nutrition.Recipe) nutrition.Recipe {
	r.Tags = append([]string{}, r.Tags...)
	r.Ingredients = append([]nutrition.RecipeIngredient{}, r.Ingredients...)
	return r
}

func (repo *nutritionRepository) CreateRecipe(ctx context.Context, r nutrition.Recipe) (nutrition.Recipe, error) {
	defer repo.db.lock(ctx)()

	r = copyRecipe(r)
	r.ID = newID()
	repo.db.tbl(tblRecipes).put(r.ID, r)
	return r, nil
}

func hasTag(r nutrition.Recipe, tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

func (repo *nutritionRepository) QueryRecipes(
	ctx context.Context,
	filter nutrition.RecipeFilter,
	ordering []core.DBOrdering,
	page core.Page,
) ([]nutrition.Recipe, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	rs := make([]nutrition.Recipe, 0)
	repo.db.tbl(tblRecipes).each(func(v interface{}) {
		r := v.(nutrition.Recipe)
		if filter.Search != "" && !containsFold(r.Title, filter.Search) && !containsFold(r.Description, filter.Search) {
			return
		}
		if filter.Tag != "" && !hasTag(r, filter.Tag) {
			return
		}
		if filter.Published != nil && r.Published != *filter.Published {
			return
		}
		rs = append(rs, copyRecipe(r))
	})

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "title", Ascending: true}}
	}
	orderRows(rs, core.AllowedOrdering(ordering, nutrition.RecipeOrderingFields), func(i int, field string) interface{} {
		switch field {
		case "title":
			return rs[i].Title
		case "servings":
			return rs[i].Servings
		case "prep_minutes":
			return rs[i].PrepMinutes
		default:
			return rs[i].CreatedAt
		}
	})

	start, end := page.Window(len(rs))
	return rs[start:end], len(rs), nil
}

func (repo *nutritionRepository) GetRecipe(ctx context.Context, id string) (nutrition.Recipe, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if v, ok := repo.db.tbl(tblRecipes).get(id); ok {
		return copyRecipe(v.(nutrition.Recipe)), nil
	}
	return nutrition.Recipe{}, nutrition.ErrRecipeNotFound
}

func (repo *nutritionRepository) UpdateRecipe(ctx context.Context, r nutrition.Recipe) (nutrition.Recipe, error) {
	defer repo.db.lock(ctx)()

	if _, ok := repo.db.tbl(tblRecipes).get(r.ID); !ok {
		return nutrition.Recipe{}, nutrition.ErrRecipeNotFound
	}
	r = copyRecipe(r)
	repo.db.tbl(tblRecipes).put(r.ID, r)
	return r, nil
}

func (repo *nutritionRepository) DeleteRecipe(ctx context.Context, id string) error {
	defer repo.db.lock(ctx)()

	if !repo.db.tbl(tblRecipes).del(id) {
		return nutrition.ErrRecipeNotFound
	}
	return nil
}

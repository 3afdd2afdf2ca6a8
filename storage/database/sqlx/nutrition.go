package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/forma/core"
	"github.com/trezcool/forma/core/nutrition"
)

const (
	ingredientColumns = "id, name, calories, protein, carbs, fat, fiber, created_at, updated_at"
	planColumns       = "id, name, description, membership_id, published, created_at, updated_at"
	dayColumns        = "id, plan_id, number, name"
	mealColumns       = "id, day_id, name, position"
	mealItemColumns   = "id, meal_id, ingredient_id, quantity_grams"
	recipeColumns     = "id, title, description, instructions, servings, prep_minutes, tags, published, created_at, updated_at"
)

// ingredientRow flattens the per-100g macros into columns.
type ingredientRow struct {
	ID   string `db:"id"`
	Name string `db:"name"`
	nutrition.Macros
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func toIngredientRow(i nutrition.Ingredient) ingredientRow {
	return ingredientRow{ID: i.ID, Name: i.Name, Macros: i.Per100g, CreatedAt: i.CreatedAt, UpdatedAt: i.UpdatedAt}
}

func (r ingredientRow) toIngredient() nutrition.Ingredient {
	return nutrition.Ingredient{ID: r.ID, Name: r.Name, Per100g: r.Macros, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
}

type recipeRow struct {
	nutrition.Recipe
	Tags pq.StringArray `db:"tags"`
}

type recipeIngredientRow struct {
	RecipeID string `db:"recipe_id"`
	Position int    `db:"position"`
	nutrition.RecipeIngredient
}

type nutritionRepository struct {
	repository
}

var _ nutrition.Repository = (*nutritionRepository)(nil)

func NewNutritionRepository(db *sqlx.DB) nutrition.Repository {
	return &nutritionRepository{repository{db: db}}
}

// Ingredients

func (repo *nutritionRepository) CreateIngredient(ctx context.Context, i nutrition.Ingredient) (nutrition.Ingredient, error) {
	i.ID = newID()
	err := namedExec(ctx, repo.ext(ctx), nil, `
		INSERT INTO ingredients (`+ingredientColumns+`)
		VALUES (:id, :name, :calories, :protein, :carbs, :fat, :fiber, :created_at, :updated_at)`,
		toIngredientRow(i),
	)
	if err != nil {
		return nutrition.Ingredient{}, errors.Wrap(err, "inserting ingredient")
	}
	return i, nil
}

func (repo *nutritionRepository) QueryIngredients(
	ctx context.Context,
	filter nutrition.IngredientFilter,
	ordering []core.DBOrdering,
	page core.Page,
) ([]nutrition.Ingredient, int, error) {
	var w conds
	if filter.Search != "" {
		w.add("name ILIKE ?", likePattern(filter.Search))
	}

	rows := make([]ingredientRow, 0)
	order := orderBy(ordering, nutrition.IngredientOrderingFields, "name ASC")
	total, err := queryPage(ctx, repo.ext(ctx), &rows, ingredientColumns, "ingredients", w, order, page)
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying ingredients")
	}

	is := make([]nutrition.Ingredient, 0, len(rows))
	for _, r := range rows {
		is = append(is, r.toIngredient())
	}
	return is, total, nil
}

func (repo *nutritionRepository) GetIngredient(ctx context.Context, id string) (nutrition.Ingredient, error) {
	var r ingredientRow
	q := "SELECT " + ingredientColumns + " FROM ingredients WHERE id = ?"
	if err := get(ctx, repo.ext(ctx), &r, nutrition.ErrIngredientNotFound, q, id); err != nil {
		return nutrition.Ingredient{}, err
	}
	return r.toIngredient(), nil
}

func (repo *nutritionRepository) GetIngredientsByID(ctx context.Context, ids ...string) (map[string]nutrition.Ingredient, error) {
	found := make(map[string]nutrition.Ingredient)
	if len(ids) == 0 {
		return found, nil
	}

	var rows []ingredientRow
	q := "SELECT " + ingredientColumns + " FROM ingredients WHERE id IN (?)"
	if err := selectIn(ctx, repo.ext(ctx), &rows, q, ids); err != nil {
		return nil, errors.Wrap(err, "selecting ingredients")
	}
	for _, r := range rows {
		found[r.ID] = r.toIngredient()
	}
	return found, nil
}

func (repo *nutritionRepository) UpdateIngredient(ctx context.Context, i nutrition.Ingredient) (nutrition.Ingredient, error) {
	err := namedExec(ctx, repo.ext(ctx), nutrition.ErrIngredientNotFound, `
		UPDATE ingredients SET
			name = :name, calories = :calories, protein = :protein, carbs = :carbs,
			fat = :fat, fiber = :fiber, updated_at = :updated_at
		WHERE id = :id`,
		toIngredientRow(i),
	)
	if err != nil {
		return nutrition.Ingredient{}, err
	}
	return i, nil
}

func (repo *nutritionRepository) DeleteIngredient(ctx context.Context, id string) error {
	return exec(ctx, repo.ext(ctx), nutrition.ErrIngredientNotFound, "DELETE FROM ingredients WHERE id = ?", id)
}

func (repo *nutritionRepository) CountIngredientUses(ctx context.Context, ingredientID string) (int, error) {
	return count(ctx, repo.ext(ctx), `
		SELECT
			(SELECT COUNT(*) FROM nutrition_meal_items WHERE ingredient_id = ?) +
			(SELECT COUNT(DISTINCT recipe_id) FROM recipe_ingredients WHERE ingredient_id = ?)`,
		ingredientID, ingredientID,
	)
}

// Plans

func (repo *nutritionRepository) CreatePlan(ctx context.Context, p nutrition.Plan) (nutrition.Plan, error) {
	p.ID = newID()
	p.Days = nil
	err := namedExec(ctx, repo.ext(ctx), nil, `
		INSERT INTO nutrition_plans (`+planColumns+`)
		VALUES (:id, :name, :description, :membership_id, :published, :created_at, :updated_at)`,
		p,
	)
	if err != nil {
		return nutrition.Plan{}, errors.Wrap(err, "inserting plan")
	}
	return p, nil
}

func (repo *nutritionRepository) QueryPlans(
	ctx context.Context,
	filter nutrition.PlanFilter,
	ordering []core.DBOrdering,
	page core.Page,
) ([]nutrition.Plan, int, error) {
	var w conds
	if filter.Search != "" {
		p := likePattern(filter.Search)
		w.add("(name ILIKE ? OR description ILIKE ?)", p, p)
	}
	if filter.Published != nil {
		w.add("published = ?", *filter.Published)
	}
	if filter.MembershipID != "" {
		w.add("membership_id = ?", filter.MembershipID)
	}

	ps := make([]nutrition.Plan, 0)
	order := orderBy(ordering, nutrition.PlanOrderingFields, "name ASC")
	total, err := queryPage(ctx, repo.ext(ctx), &ps, planColumns, "nutrition_plans", w, order, page)
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying plans")
	}
	return ps, total, nil
}

// loadMeals fills the meals of days, and the items of those meals.
func (repo *nutritionRepository) loadMeals(ctx context.Context, days []nutrition.Day) error {
	if len(days) == 0 {
		return nil
	}
	e := repo.ext(ctx)

	dayIDs := make([]string, 0, len(days))
	for _, d := range days {
		dayIDs = append(dayIDs, d.ID)
	}
	var meals []nutrition.Meal
	q := "SELECT " + mealColumns + " FROM nutrition_meals WHERE day_id IN (?) ORDER BY position, id"
	if err := selectIn(ctx, e, &meals, q, dayIDs); err != nil {
		return errors.Wrap(err, "selecting meals")
	}
	if err := repo.loadItems(ctx, meals); err != nil {
		return err
	}

	byDay := make(map[string][]nutrition.Meal)
	for _, m := range meals {
		byDay[m.DayID] = append(byDay[m.DayID], m)
	}
	for i := range days {
		days[i].Meals = byDay[days[i].ID]
		if days[i].Meals == nil {
			days[i].Meals = make([]nutrition.Meal, 0)
		}
	}
	return nil
}

func (repo *nutritionRepository) loadItems(ctx context.Context, meals []nutrition.Meal) error {
	if len(meals) == 0 {
		return nil
	}

	mealIDs := make([]string, 0, len(meals))
	for _, m := range meals {
		mealIDs = append(mealIDs, m.ID)
	}
	var items []nutrition.MealItem
	q := "SELECT " + mealItemColumns + " FROM nutrition_meal_items WHERE meal_id IN (?) ORDER BY id"
	if err := selectIn(ctx, repo.ext(ctx), &items, q, mealIDs); err != nil {
		return errors.Wrap(err, "selecting meal items")
	}

	byMeal := make(map[string][]nutrition.MealItem)
	for _, it := range items {
		byMeal[it.MealID] = append(byMeal[it.MealID], it)
	}
	for i := range meals {
		meals[i].Items = byMeal[meals[i].ID]
		if meals[i].Items == nil {
			meals[i].Items = make([]nutrition.MealItem, 0)
		}
	}
	return nil
}

func (repo *nutritionRepository) GetPlan(ctx context.Context, id string) (nutrition.Plan, error) {
	e := repo.ext(ctx)
	var p nutrition.Plan
	if err := get(ctx, e, &p, nutrition.ErrPlanNotFound, "SELECT "+planColumns+" FROM nutrition_plans WHERE id = ?", id); err != nil {
		return nutrition.Plan{}, err
	}

	p.Days = make([]nutrition.Day, 0)
	q := "SELECT " + dayColumns + " FROM nutrition_days WHERE plan_id = ? ORDER BY number"
	if err := sqlx.SelectContext(ctx, e, &p.Days, e.Rebind(q), id); err != nil {
		return nutrition.Plan{}, errors.Wrap(err, "selecting days")
	}
	if err := repo.loadMeals(ctx, p.Days); err != nil {
		return nutrition.Plan{}, err
	}
	return p, nil
}

func (repo *nutritionRepository) UpdatePlan(ctx context.Context, p nutrition.Plan) (nutrition.Plan, error) {
	err := namedExec(ctx, repo.ext(ctx), nutrition.ErrPlanNotFound, `
		UPDATE nutrition_plans SET
			name = :name, description = :description, membership_id = :membership_id,
			published = :published, updated_at = :updated_at
		WHERE id = :id`,
		p,
	)
	if err != nil {
		return nutrition.Plan{}, err
	}
	p.Days = nil
	return p, nil
}

// DeletePlan relies on ON DELETE CASCADE for days, meals and items.
func (repo *nutritionRepository) DeletePlan(ctx context.Context, id string) error {
	return exec(ctx, repo.ext(ctx), nutrition.ErrPlanNotFound, "DELETE FROM nutrition_plans WHERE id = ?", id)
}

// Days

func (repo *nutritionRepository) CreateDay(ctx context.Context, d nutrition.Day) (nutrition.Day, error) {
	d.ID = newID()
	d.Meals = nil
	err := namedExec(ctx, repo.ext(ctx), nil, `
		INSERT INTO nutrition_days (`+dayColumns+`) VALUES (:id, :plan_id, :number, :name)`,
		d,
	)
	if err != nil {
		return nutrition.Day{}, errors.Wrap(err, "inserting day")
	}
	return d, nil
}

func (repo *nutritionRepository) GetDay(ctx context.Context, id string) (nutrition.Day, error) {
	var d nutrition.Day
	if err := get(ctx, repo.ext(ctx), &d, nutrition.ErrDayNotFound, "SELECT "+dayColumns+" FROM nutrition_days WHERE id = ?", id); err != nil {
		return nutrition.Day{}, err
	}
	days := []nutrition.Day{d}
	if err := repo.loadMeals(ctx, days); err != nil {
		return nutrition.Day{}, err
	}
	return days[0], nil
}

func (repo *nutritionRepository) UpdateDay(ctx context.Context, d nutrition.Day) (nutrition.Day, error) {
	err := namedExec(ctx, repo.ext(ctx), nutrition.ErrDayNotFound,
		"UPDATE nutrition_days SET number = :number, name = :name WHERE id = :id", d)
	if err != nil {
		return nutrition.Day{}, err
	}
	d.Meals = nil
	return d, nil
}

func (repo *nutritionRepository) DeleteDay(ctx context.Context, id string) error {
	return exec(ctx, repo.ext(ctx), nutrition.ErrDayNotFound, "DELETE FROM nutrition_days WHERE id = ?", id)
}

// Meals

func (repo *nutritionRepository) CreateMeal(ctx context.Context, m nutrition.Meal) (nutrition.Meal, error) {
	m.ID = newID()
	m.Items = nil
	err := namedExec(ctx, repo.ext(ctx), nil, `
		INSERT INTO nutrition_meals (`+mealColumns+`) VALUES (:id, :day_id, :name, :position)`,
		m,
	)
	if err != nil {
		return nutrition.Meal{}, errors.Wrap(err, "inserting meal")
	}
	return m, nil
}

func (repo *nutritionRepository) GetMeal(ctx context.Context, id string) (nutrition.Meal, error) {
	var m nutrition.Meal
	if err := get(ctx, repo.ext(ctx), &m, nutrition.ErrMealNotFound, "SELECT "+mealColumns+" FROM nutrition_meals WHERE id = ?", id); err != nil {
		return nutrition.Meal{}, err
	}
	meals := []nutrition.Meal{m}
	if err := repo.loadItems(ctx, meals); err != nil {
		return nutrition.Meal{}, err
	}
	return meals[0], nil
}

func (repo *nutritionRepository) UpdateMeal(ctx context.Context, m nutrition.Meal) (nutrition.Meal, error) {
	err := namedExec(ctx, repo.ext(ctx), nutrition.ErrMealNotFound,
		"UPDATE nutrition_meals SET day_id = :day_id, name = :name, position = :position WHERE id = :id", m)
	if err != nil {
		return nutrition.Meal{}, err
	}
	m.Items = nil
	return m, nil
}

func (repo *nutritionRepository) DeleteMeal(ctx context.Context, id string) error {
	return exec(ctx, repo.ext(ctx), nutrition.ErrMealNotFound, "DELETE FROM nutrition_meals WHERE id = ?", id)
}

// Meal items

func (repo *nutritionRepository) CreateMealItem(ctx context.Context, mi nutrition.MealItem) (nutrition.MealItem, error) {
	mi.ID = newID()
	err := namedExec(ctx, repo.ext(ctx), nil, `
		INSERT INTO nutrition_meal_items (`+mealItemColumns+`)
		VALUES (:id, :meal_id, :ingredient_id, :quantity_grams)`,
		mi,
	)
	if err != nil {
		return nutrition.MealItem{}, errors.Wrap(err, "inserting meal item")
	}
	return mi, nil
}

func (repo *nutritionRepository) GetMealItem(ctx context.Context, id string) (nutrition.MealItem, error) {
	var mi nutrition.MealItem
	err := get(ctx, repo.ext(ctx), &mi, nutrition.ErrMealItemNotFound,
		"SELECT "+mealItemColumns+" FROM nutrition_meal_items WHERE id = ?", id)
	return mi, err
}

func (repo *nutritionRepository) UpdateMealItem(ctx context.Context, mi nutrition.MealItem) (nutrition.MealItem, error) {
	err := namedExec(ctx, repo.ext(ctx), nutrition.ErrMealItemNotFound, `
		UPDATE nutrition_meal_items SET ingredient_id = :ingredient_id, quantity_grams = :quantity_grams
		WHERE id = :id`,
		mi,
	)
	if err != nil {
		return nutrition.MealItem{}, err
	}
	return mi, nil
}

func (repo *nutritionRepository) DeleteMealItem(ctx context.Context, id string) error {
	return exec(ctx, repo.ext(ctx), nutrition.ErrMealItemNotFound, "DELETE FROM nutrition_meal_items WHERE id = ?", id)
}

// Recipes

func toRecipeRow(r nutrition.Recipe) recipeRow {
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	return recipeRow{Recipe: r, Tags: pq.StringArray(tags)}
}

func (r recipeRow) toRecipe() nutrition.Recipe {
	rec := r.Recipe
	rec.Tags = append([]string{}, r.Tags...)
	return rec
}

func (repo *nutritionRepository) insertRecipeIngredients(ctx context.Context, r nutrition.Recipe) error {
	e := repo.ext(ctx)
	for pos, ri := range r.Ingredients {
		err := namedExec(ctx, e, nil, `
			INSERT INTO recipe_ingredients (recipe_id, position, ingredient_id, quantity_grams)
			VALUES (:recipe_id, :position, :ingredient_id, :quantity_grams)`,
			recipeIngredientRow{RecipeID: r.ID, Position: pos, RecipeIngredient: ri},
		)
		if err != nil {
			return errors.Wrap(err, "inserting recipe ingredient")
		}
	}
	return nil
}

// loadRecipeIngredients fills the ingredients of rs, in their stored order.
func (repo *nutritionRepository) loadRecipeIngredients(ctx context.Context, rs []nutrition.Recipe) error {
	if len(rs) == 0 {
		return nil
	}

	ids := make([]string, 0, len(rs))
	for _, r := range rs {
		ids = append(ids, r.ID)
	}
	var rows []recipeIngredientRow
	q := `
		SELECT recipe_id, position, ingredient_id, quantity_grams FROM recipe_ingredients
		WHERE recipe_id IN (?) ORDER BY recipe_id, position`
	if err := selectIn(ctx, repo.ext(ctx), &rows, q, ids); err != nil {
		return errors.Wrap(err, "selecting recipe ingredients")
	}

	byRecipe := make(map[string][]nutrition.RecipeIngredient)
	for _, row := range rows {
		byRecipe[row.RecipeID] = append(byRecipe[row.RecipeID], row.RecipeIngredient)
	}
	for i := range rs {
		rs[i].Ingredients = byRecipe[rs[i].ID]
		if rs[i].Ingredients == nil {
			rs[i].Ingredients = make([]nutrition.RecipeIngredient, 0)
		}
	}
	return nil
}

func (repo *nutritionRepository) CreateRecipe(ctx context.Context, r nutrition.Recipe) (nutrition.Recipe, error) {
	r.ID = newID()
	err := namedExec(ctx, repo.ext(ctx), nil, `
		INSERT INTO recipes (`+recipeColumns+`)
		VALUES (:id, :title, :description, :instructions, :servings, :prep_minutes, :tags, :published, :created_at, :updated_at)`,
		toRecipeRow(r),
	)
	if err != nil {
		return nutrition.Recipe{}, errors.Wrap(err, "inserting recipe")
	}
	if err := repo.insertRecipeIngredients(ctx, r); err != nil {
		return nutrition.Recipe{}, err
	}
	return r, nil
}

func (repo *nutritionRepository) QueryRecipes(
	ctx context.Context,
	filter nutrition.RecipeFilter,
	ordering []core.DBOrdering,
	page core.Page,
) ([]nutrition.Recipe, int, error) {
	var w conds
	if filter.Search != "" {
		p := likePattern(filter.Search)
		w.add("(title ILIKE ? OR description ILIKE ?)", p, p)
	}
	if filter.Tag != "" {
		w.add("? = ANY (tags)", filter.Tag)
	}
	if filter.Published != nil {
		w.add("published = ?", *filter.Published)
	}

	rows := make([]recipeRow, 0)
	order := orderBy(ordering, nutrition.RecipeOrderingFields, "title ASC")
	total, err := queryPage(ctx, repo.ext(ctx), &rows, recipeColumns, "recipes", w, order, page)
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying recipes")
	}

	rs := make([]nutrition.Recipe, 0, len(rows))
	for _, row := range rows {
		rs = append(rs, row.toRecipe())
	}
	if err := repo.loadRecipeIngredients(ctx, rs); err != nil {
		return nil, 0, err
	}
	return rs, total, nil
}

func (repo *nutritionRepository) GetRecipe(ctx context.Context, id string) (nutrition.Recipe, error) {
	var row recipeRow
	if err := get(ctx, repo.ext(ctx), &row, nutrition.ErrRecipeNotFound, "SELECT "+recipeColumns+" FROM recipes WHERE id = ?", id); err != nil {
		return nutrition.Recipe{}, err
	}
	rs := []nutrition.Recipe{row.toRecipe()}
	if err := repo.loadRecipeIngredients(ctx, rs); err != nil {
		return nutrition.Recipe{}, err
	}
	return rs[0], nil
}

func (repo *nutritionRepository) UpdateRecipe(ctx context.Context, r nutrition.Recipe) (nutrition.Recipe, error) {
	e := repo.ext(ctx)
	err := namedExec(ctx, e, nutrition.ErrRecipeNotFound, `
		UPDATE recipes SET
			title = :title, description = :description, instructions = :instructions, servings = :servings,
			prep_minutes = :prep_minutes, tags = :tags, published = :published, updated_at = :updated_at
		WHERE id = :id`,
		toRecipeRow(r),
	)
	if err != nil {
		return nutrition.Recipe{}, err
	}
	if err := exec(ctx, e, nil, "DELETE FROM recipe_ingredients WHERE recipe_id = ?", r.ID); err != nil {
		return nutrition.Recipe{}, errors.Wrap(err, "deleting recipe ingredients")
	}
	if err := repo.insertRecipeIngredients(ctx, r); err != nil {
		return nutrition.Recipe{}, err
	}
	return r, nil
}

func (repo *nutritionRepository) DeleteRecipe(ctx context.Context, id string) error {
	return exec(ctx, repo.ext(ctx), nutrition.ErrRecipeNotFound, "DELETE FROM recipes WHERE id = ?", id)
}

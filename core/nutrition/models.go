package nutrition

import (
	"time"

	"github.com/trezcool/forma/core"
)

var (
	IngredientOrderingFields = []string{"name", "calories", "protein", "carbs", "fat", "created_at"}
	PlanOrderingFields       = []string{"name", "published", "created_at"}
	RecipeOrderingFields     = []string{"title", "servings", "prep_minutes", "created_at"}
)

type Ingredient struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Per100g   Macros    `json:"per_100g" db:"-"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Plan struct {
	ID           string    `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Description  string    `json:"description" db:"description"`
	MembershipID *string   `json:"membership_id" db:"membership_id"`
	Published    bool      `json:"published" db:"published"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
	Days         []Day     `json:"days,omitempty" db:"-"`
}

type Day struct {
	ID     string `json:"id" db:"id"`
	PlanID string `json:"plan_id" db:"plan_id"`
	Number int    `json:"number" db:"number"`
	Name   string `json:"name" db:"name"`
	Meals  []Meal `json:"meals" db:"-"`
}

type Meal struct {
	ID       string     `json:"id" db:"id"`
	DayID    string     `json:"day_id" db:"day_id"`
	Name     string     `json:"name" db:"name"`
	Position int        `json:"position" db:"position"`
	Items    []MealItem `json:"items" db:"-"`
}

type MealItem struct {
	ID            string  `json:"id" db:"id"`
	MealID        string  `json:"meal_id" db:"meal_id"`
	IngredientID  string  `json:"ingredient_id" db:"ingredient_id"`
	QuantityGrams float64 `json:"quantity_grams" db:"quantity_grams"`
}

type Recipe struct {
	ID           string             `json:"id" db:"id"`
	Title        string             `json:"title" db:"title"`
	Description  string             `json:"description" db:"description"`
	Instructions string             `json:"instructions" db:"instructions"`
	Servings     int                `json:"servings" db:"servings"`
	PrepMinutes  int                `json:"prep_minutes" db:"prep_minutes"`
	Tags         []string           `json:"tags" db:"-"`
	Published    bool               `json:"published" db:"published"`
	CreatedAt    time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at" db:"updated_at"`
	Ingredients  []RecipeIngredient `json:"ingredients" db:"-"`
}

type RecipeIngredient struct {
	IngredientID  string  `json:"ingredient_id" db:"ingredient_id" validate:"required"`
	QuantityGrams float64 `json:"quantity_grams" db:"quantity_grams" validate:"gt=0"`
}

type NewIngredient struct {
	Name    string `json:"name" validate:"notblank"`
	Per100g Macros `json:"per_100g"`
}

func (ni *NewIngredient) Validate() error {
	ni.Name = core.CleanString(ni.Name)
	return core.Validate.Struct(ni)
}

type NewPlan struct {
	Name         string  `json:"name" validate:"notblank"`
	Description  string  `json:"description"`
	MembershipID *string `json:"membership_id"`
	Published    bool    `json:"published"`
}

func (np *NewPlan) Validate() error {
	np.Name = core.CleanString(np.Name)
	if np.MembershipID != nil {
		np.MembershipID = core.StringPtr(core.CleanString(*np.MembershipID))
	}
	return core.Validate.Struct(np)
}

// NewDay adds a day to a plan. A zero Number appends it after the last day.
type NewDay struct {
	Number int    `json:"number" validate:"min=0"`
	Name   string `json:"name"`
}

func (nd *NewDay) Validate() error {
	nd.Name = core.CleanString(nd.Name)
	return core.Validate.Struct(nd)
}

type NewMeal struct {
	Name     string `json:"name" validate:"notblank"`
	Position int    `json:"position" validate:"min=0"`
}

func (nm *NewMeal) Validate() error {
	nm.Name = core.CleanString(nm.Name)
	return core.Validate.Struct(nm)
}

type NewMealItem struct {
	IngredientID  string  `json:"ingredient_id" validate:"required"`
	QuantityGrams float64 `json:"quantity_grams" validate:"gt=0"`
}

func (ni *NewMealItem) Validate() error { return core.Validate.Struct(ni) }

type NewRecipe struct {
	Title        string             `json:"title" validate:"notblank"`
	Description  string             `json:"description"`
	Instructions string             `json:"instructions"`
	Servings     int                `json:"servings" validate:"min=1"`
	PrepMinutes  int                `json:"prep_minutes" validate:"min=0"`
	Tags         []string           `json:"tags"`
	Published    bool               `json:"published"`
	Ingredients  []RecipeIngredient `json:"ingredients" validate:"dive"`
}

func (nr *NewRecipe) Validate() error {
	nr.Title = core.CleanString(nr.Title)
	tags := make([]string, 0, len(nr.Tags))
	seen := make(map[string]bool)
	for _, t := range nr.Tags {
		t = core.CleanString(t, true /* lower */)
		if t != "" && !seen[t] {
			seen[t] = true
			tags = append(tags, t)
		}
	}
	nr.Tags = tags
	return core.Validate.Struct(nr)
}

type IngredientFilter struct {
	Search string
}

type PlanFilter struct {
	Search       string
	Published    *bool
	MembershipID string
}

type RecipeFilter struct {
	Search    string
	Tag       string
	Published *bool
}

package tracking

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/forma/core"
	"github.com/trezcool/forma/core/membership"
	"github.com/trezcool/forma/core/nutrition"
)

// Meals of a food entry
const (
	MealBreakfast = "breakfast"
	MealLunch     = "lunch"
	MealDinner    = "dinner"
	MealSnack     = "snack"
)

var Meals = []string{MealBreakfast, MealLunch, MealDinner, MealSnack}

// Achievement kinds
const (
	KindWorkoutCount     = "workout_count"
	KindWorkoutStreak    = "workout_streak"
	KindMeasurementCount = "measurement_count"
	KindNutritionDays    = "nutrition_days"
)

type WorkoutLog struct {
	ID              string    `json:"id" db:"id"`
	UserID          string    `json:"user_id" db:"user_id"`
	WorkoutID       *string   `json:"workout_id" db:"workout_id"`
	Title           string    `json:"title" db:"title"`
	PerformedAt     time.Time `json:"performed_at" db:"performed_at"`
	DurationMinutes int       `json:"duration_minutes" db:"duration_minutes"`
	Notes           string    `json:"notes" db:"notes"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	Sets            []SetLog  `json:"sets" db:"-"`
}

// VolumeKg is the sum of reps * weight over all sets.
func (wl WorkoutLog) VolumeKg() float64 {
	var v float64
	for _, s := range wl.Sets {
		v += float64(s.Reps) * s.WeightKg
	}
	return v
}

func (wl WorkoutLog) MarshalJSON() ([]byte, error) {
	type alias WorkoutLog
	return json.Marshal(struct {
		alias
		VolumeKg float64 `json:"volume_kg"`
	}{alias(wl), core.Round1(wl.VolumeKg())})
}

type SetLog struct {
	ID           string  `json:"id" db:"id"`
	WorkoutLogID string  `json:"workout_log_id" db:"workout_log_id"`
	ExerciseID   string  `json:"exercise_id" db:"exercise_id"`
	SetNumber    int     `json:"set_number" db:"set_number"`
	Reps         int     `json:"reps" db:"reps"`
	WeightKg     float64 `json:"weight_kg" db:"weight_kg"`
}

type FoodEntry struct {
	ID            string           `json:"id"`
	UserID        string           `json:"user_id"`
	Date          time.Time        `json:"date"` // midnight UTC
	Meal          string           `json:"meal"`
	IngredientID  *string          `json:"ingredient_id"`
	Name          string           `json:"name"`
	QuantityGrams float64          `json:"quantity_grams"`
	Macros        nutrition.Macros `json:"macros"`
	CreatedAt     time.Time        `json:"created_at"`
}

type Measurement struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	MeasuredAt time.Time `json:"measured_at"`
	WeightKg   *float64  `json:"weight_kg"`
	BodyFatPct *float64  `json:"body_fat_pct"`
	ChestCm    *float64  `json:"chest_cm"`
	WaistCm    *float64  `json:"waist_cm"`
	HipsCm     *float64  `json:"hips_cm"`
	ArmCm      *float64  `json:"arm_cm"`
	ThighCm    *float64  `json:"thigh_cm"`
	Notes      string    `json:"notes"`
	CreatedAt  time.Time `json:"created_at"`
}

type Achievement struct {
	ID          string    `json:"id" db:"id"`
	Code        string    `json:"code" db:"code"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Kind        string    `json:"kind" db:"kind"`
	Threshold   int       `json:"threshold" db:"threshold"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

type UserAchievement struct {
	UserID        string       `json:"user_id" db:"user_id"`
	AchievementID string       `json:"achievement_id" db:"achievement_id"`
	UnlockedAt    time.Time    `json:"unlocked_at" db:"unlocked_at"`
	Achievement   *Achievement `json:"achievement,omitempty" db:"-"`
}

// TimeRange bounds a query; zero ends are open.
type TimeRange struct {
	From time.Time
	To   time.Time
}

func (tr TimeRange) Contains(t time.Time) bool {
	if !tr.From.IsZero() && t.Before(tr.From) {
		return false
	}
	if !tr.To.IsZero() && t.After(tr.To) {
		return false
	}
	return true
}

type (
	MealTotals struct {
		Meal    string           `json:"meal"`
		Entries []FoodEntry      `json:"entries"`
		Total   nutrition.Macros `json:"total"`
	}

	DailyNutrition struct {
		Date  string           `json:"date"` // YYYY-MM-DD
		Meals []MealTotals     `json:"meals"`
		Total nutrition.Macros `json:"total"`
	}

	Progress struct {
		First            *Measurement `json:"first"`
		Latest           *Measurement `json:"latest"`
		WeightChangeKg   *float64     `json:"weight_change_kg"`
		BodyFatChangePct *float64     `json:"body_fat_change_pct"`
		WaistChangeCm    *float64     `json:"waist_change_cm"`
	}

	Dashboard struct {
		TotalWorkouts       int                       `json:"total_workouts"`
		WorkoutsLast7Days   int                       `json:"workouts_last_7_days"`
		CurrentStreak       int                       `json:"current_streak"`
		LatestMeasurement   *Measurement              `json:"latest_measurement"`
		TodayNutrition      nutrition.Macros          `json:"today_nutrition"`
		Achievements        []UserAchievement         `json:"achievements"`
		ActiveSubscriptions []membership.Subscription `json:"active_subscriptions"`
	}
)

type NewSetLog struct {
	ExerciseID string  `json:"exercise_id" validate:"required"`
	SetNumber  int     `json:"set_number" validate:"min=0"`
	Reps       int     `json:"reps" validate:"min=0"`
	WeightKg   float64 `json:"weight_kg" validate:"min=0"`
}

type NewWorkoutLog struct {
	WorkoutID       *string     `json:"workout_id"`
	Title           string      `json:"title"`
	PerformedAt     time.Time   `json:"performed_at"`
	DurationMinutes int         `json:"duration_minutes" validate:"min=0"`
	Notes           string      `json:"notes"`
	Sets            []NewSetLog `json:"sets" validate:"dive"`
}

func (nw *NewWorkoutLog) Validate() error {
	nw.Title = core.CleanString(nw.Title)
	nw.Notes = core.CleanString(nw.Notes)
	if nw.WorkoutID != nil {
		nw.WorkoutID = core.StringPtr(core.CleanString(*nw.WorkoutID))
	}
	if err := core.Validate.Struct(nw); err != nil {
		return err
	}
	if nw.Title == "" && nw.WorkoutID == nil {
		return core.NewValidationError(nil, core.FieldError{Field: "title", Error: "this field is required"})
	}
	return nil
}

// NewFoodEntry logs food either from an ingredient (macros computed from the quantity)
// or manually (Name and Macros provided).
type NewFoodEntry struct {
	Date          string            `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Meal          string            `json:"meal" validate:"required,oneof=breakfast lunch dinner snack"`
	IngredientID  *string           `json:"ingredient_id"`
	Name          string            `json:"name"`
	QuantityGrams float64           `json:"quantity_grams" validate:"min=0"`
	Macros        *nutrition.Macros `json:"macros"`
}

func (nf *NewFoodEntry) Validate() error {
	nf.Meal = core.CleanString(nf.Meal, true /* lower */)
	nf.Name = core.CleanString(nf.Name)
	nf.Date = core.CleanString(nf.Date)
	if nf.IngredientID != nil {
		nf.IngredientID = core.StringPtr(core.CleanString(*nf.IngredientID))
	}
	if err := core.Validate.Struct(nf); err != nil {
		return err
	}
	if nf.IngredientID != nil {
		if nf.QuantityGrams <= 0 {
			return core.NewValidationError(nil, core.FieldError{Field: "quantity_grams", Error: "must be greater than 0"})
		}
		return nil
	}
	if nf.Name == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "name", Error: "this field is required"})
	}
	if nf.Macros == nil {
		return core.NewValidationError(nil, core.FieldError{Field: "macros", Error: "this field is required"})
	}
	return core.Validate.Struct(nf.Macros)
}

type NewMeasurement struct {
	MeasuredAt time.Time `json:"measured_at"`
	WeightKg   *float64  `json:"weight_kg" validate:"omitempty,gt=0"`
	BodyFatPct *float64  `json:"body_fat_pct" validate:"omitempty,gt=0,lt=100"`
	ChestCm    *float64  `json:"chest_cm" validate:"omitempty,gt=0"`
	WaistCm    *float64  `json:"waist_cm" validate:"omitempty,gt=0"`
	HipsCm     *float64  `json:"hips_cm" validate:"omitempty,gt=0"`
	ArmCm      *float64  `json:"arm_cm" validate:"omitempty,gt=0"`
	ThighCm    *float64  `json:"thigh_cm" validate:"omitempty,gt=0"`
	Notes      string    `json:"notes"`
}

func (nm *NewMeasurement) Validate() error {
	nm.Notes = core.CleanString(nm.Notes)
	if err := core.Validate.Struct(nm); err != nil {
		return err
	}
	if nm.WeightKg == nil && nm.BodyFatPct == nil && nm.ChestCm == nil && nm.WaistCm == nil &&
		nm.HipsCm == nil && nm.ArmCm == nil && nm.ThighCm == nil {
		return core.NewValidationError(errors.New("provide at least one measurement"))
	}
	return nil
}

type NewAchievement struct {
	Code        string `json:"code" validate:"required,max=64,alphanum_"`
	Name        string `json:"name" validate:"notblank"`
	Description string `json:"description"`
	Kind        string `json:"kind" validate:"required,oneof=workout_count workout_streak measurement_count nutrition_days"`
	Threshold   int    `json:"threshold" validate:"min=1"`
}

func (na *NewAchievement) Validate() error {
	na.Code = core.CleanString(na.Code, true /* lower */)
	na.Name = core.CleanString(na.Name)
	na.Description = core.CleanString(na.Description)
	na.Kind = core.CleanString(na.Kind, true /* lower */)
	return core.Validate.Struct(na)
}

// DefaultAchievements is the catalogue seeded by the admin CLI.
var DefaultAchievements = []NewAchievement{
	{Code: "first_workout", Name: "First workout", Description: "Log your first workout.", Kind: KindWorkoutCount, Threshold: 1},
	{Code: "ten_workouts", Name: "Getting serious", Description: "Log 10 workouts.", Kind: KindWorkoutCount, Threshold: 10},
	{Code: "streak_3", Name: "On a roll", Description: "Work out 3 days in a row.", Kind: KindWorkoutStreak, Threshold: 3},
	{Code: "streak_7", Name: "Unstoppable", Description: "Work out 7 days in a row.", Kind: KindWorkoutStreak, Threshold: 7},
	{Code: "first_measurement", Name: "Baseline", Description: "Log your first body measurement.", Kind: KindMeasurementCount, Threshold: 1},
	{Code: "nutrition_week", Name: "Mindful eater", Description: "Track your food on 7 different days.", Kind: KindNutritionDays, Threshold: 7},
}

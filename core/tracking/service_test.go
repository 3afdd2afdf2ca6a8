package tracking_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/forma/core"
	"github.com/trezcool/forma/core/membership"
	"github.com/trezcool/forma/core/nutrition"
	"github.com/trezcool/forma/core/tracking"
	"github.com/trezcool/forma/core/training"
	"github.com/trezcool/forma/core/user"
	"github.com/trezcool/forma/tests"
)

func at(month, day, hour int) time.Time {
	return time.Date(2024, time.Month(month), day, hour, 0, 0, 0, time.UTC)
}

func unlockedCodes(t *testing.T, svc tracking.Service, userID string) []string {
	uas, err := svc.UserAchievements(context.Background(), userID)
	require.NoError(t, err)
	codes := make([]string, 0, len(uas))
	for _, ua := range uas {
		require.NotNil(t, ua.Achievement)
		codes = append(codes, ua.Achievement.Code)
	}
	return codes
}

func TestService_Achievements(t *testing.T) {
	app := testutil.NewApp()
	svc := app.TrackingSvc
	ctx := context.Background()
	ann := testutil.CreateUser(t, app.UserRepo, "Ann", "ann", "ann@example.com", "", []string{user.RoleMember}, true)

	n, err := svc.SeedAchievements(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(tracking.DefaultAchievements), n)
	n, err = svc.SeedAchievements(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	logWorkout := func(ts time.Time) tracking.WorkoutLog {
		wl, err := svc.LogWorkout(ctx, ann.ID, tracking.NewWorkoutLog{Title: "Full body", PerformedAt: ts})
		require.NoError(t, err)
		return wl
	}

	logWorkout(at(3, 1, 18))
	assert.Equal(t, []string{"first_workout"}, unlockedCodes(t, svc, ann.ID))
	sent := app.Mail.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "ann@example.com", sent[0].To[0].Address)
	assert.Equal(t, "Achievement unlocked: First workout", sent[0].Subject)
	assert.Equal(t, tracking.EmailAchievementUnlocked, sent[0].TemplateKey)

	logWorkout(at(3, 2, 7))
	logWorkout(at(3, 2, 19))
	assert.Len(t, app.Mail.Sent(), 1)

	logWorkout(at(3, 3, 7))
	assert.ElementsMatch(t, []string{"first_workout", "streak_3"}, unlockedCodes(t, svc, ann.ID))
	assert.Len(t, app.Mail.Sent(), 2)

	// unlocks happen once
	logWorkout(at(3, 3, 20))
	assert.Len(t, unlockedCodes(t, svc, ann.ID), 2)
	assert.Len(t, app.Mail.Sent(), 2)

	_, err = svc.CreateAchievement(ctx, tracking.NewAchievement{Code: "streak_3", Name: "Dup", Kind: tracking.KindWorkoutStreak, Threshold: 3})
	assert.Equal(t, []string{"code"}, testutil.ErrorFields(err))
}

func TestService_WorkoutLogs(t *testing.T) {
	app := testutil.NewApp()
	svc := app.TrackingSvc
	ctx := context.Background()
	ann := testutil.CreateUser(t, app.UserRepo, "Ann", "ann", "ann@example.com", "", []string{user.RoleMember}, true)
	bob := testutil.CreateUser(t, app.UserRepo, "Bob", "bob", "bob@example.com", "", []string{user.RoleMember}, true)
	squat := testutil.CreateExercise(t, app.TrainingSvc, "Squat", "legs")

	nw := tracking.NewWorkoutLog{
		Title:       " Legs ",
		PerformedAt: at(3, 1, 18),
		Sets: []tracking.NewSetLog{
			{ExerciseID: squat.ID, Reps: 5, WeightKg: 100},
			{ExerciseID: squat.ID, Reps: 5, WeightKg: 105},
		},
	}
	require.NoError(t, nw.Validate())
	wl, err := svc.LogWorkout(ctx, ann.ID, nw)
	require.NoError(t, err)
	assert.Equal(t, "Legs", wl.Title)
	require.Len(t, wl.Sets, 2)
	assert.Equal(t, 2, wl.Sets[1].SetNumber)
	assert.Equal(t, 1025.0, wl.VolumeKg())

	// logged sets keep their exercise from being deleted
	assert.Equal(t, training.ErrExerciseInUse, app.TrainingSvc.DeleteExercise(ctx, squat.ID))
	got, err := svc.GetWorkoutLog(ctx, ann.ID, wl.ID)
	require.NoError(t, err)
	assert.Len(t, got.Sets, 2)

	_, err = svc.LogWorkout(ctx, ann.ID, tracking.NewWorkoutLog{Title: "Run", PerformedAt: at(3, 5, 7)})
	require.NoError(t, err)

	logs, total, err := svc.QueryWorkoutLogs(ctx, ann.ID, tracking.TimeRange{From: at(3, 2, 0)}, core.Page{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Run", logs[0].Title)

	_, err = svc.GetWorkoutLog(ctx, bob.ID, wl.ID)
	assert.True(t, core.IsNotFound(err))
	assert.True(t, core.IsNotFound(svc.DeleteWorkoutLog(ctx, bob.ID, wl.ID)))
	require.NoError(t, svc.DeleteWorkoutLog(ctx, ann.ID, wl.ID))
	_, err = svc.GetWorkoutLog(ctx, ann.ID, wl.ID)
	assert.True(t, core.IsNotFound(err))
	assert.NoError(t, app.TrainingSvc.DeleteExercise(ctx, squat.ID))

	untitled := tracking.NewWorkoutLog{}
	assert.Equal(t, []string{"title"}, testutil.ErrorFields(untitled.Validate()))
}

func TestService_Nutrition(t *testing.T) {
	app := testutil.NewApp()
	svc := app.TrackingSvc
	ctx := context.Background()
	ann := testutil.CreateUser(t, app.UserRepo, "Ann", "ann", "ann@example.com", "", []string{user.RoleMember}, true)
	oats := testutil.CreateIngredient(t, app.NutritionSvc, "Oats", nutrition.Macros{Calories: 389, Protein: 16.9, Carbs: 66.3, Fat: 6.9, Fiber: 10.6})

	fe, err := svc.AddFoodEntry(ctx, ann.ID, tracking.NewFoodEntry{
		Date: "2024-03-03", Meal: tracking.MealBreakfast, IngredientID: &oats.ID, QuantityGrams: 200,
	})
	require.NoError(t, err)
	assert.Equal(t, "Oats", fe.Name)
	assert.Equal(t, at(3, 3, 0), fe.Date)

	_, err = svc.AddFoodEntry(ctx, ann.ID, tracking.NewFoodEntry{
		Date: "2024-03-03", Meal: tracking.MealLunch, Name: "Shake",
		Macros: &nutrition.Macros{Calories: 200, Protein: 30, Carbs: 10, Fat: 5},
	})
	require.NoError(t, err)
	_, err = svc.AddFoodEntry(ctx, ann.ID, tracking.NewFoodEntry{
		Date: "2024-03-04", Meal: tracking.MealSnack, Name: "Apple",
		Macros: &nutrition.Macros{Calories: 80, Carbs: 20, Fiber: 3},
	})
	require.NoError(t, err)

	_, err = svc.AddFoodEntry(ctx, ann.ID, tracking.NewFoodEntry{Meal: tracking.MealLunch, IngredientID: core.StringPtr("nope"), QuantityGrams: 10})
	assert.Equal(t, []string{"ingredient_id"}, testutil.ErrorFields(err))

	dn, err := svc.DailyNutrition(ctx, ann.ID, at(3, 3, 21))
	require.NoError(t, err)
	assert.Equal(t, "2024-03-03", dn.Date)
	require.Len(t, dn.Meals, 4)
	assert.Equal(t, tracking.MealBreakfast, dn.Meals[0].Meal)
	assert.Equal(t, nutrition.Macros{Calories: 778, Protein: 33.8, Carbs: 132.6, Fat: 13.8, Fiber: 21.2}, dn.Meals[0].Total)
	assert.Len(t, dn.Meals[1].Entries, 1)
	assert.Empty(t, dn.Meals[2].Entries)
	assert.Empty(t, dn.Meals[3].Entries)
	assert.Equal(t, nutrition.Macros{Calories: 978, Protein: 63.8, Carbs: 142.6, Fat: 18.8, Fiber: 21.2}, dn.Total)

	// entries keep their macros once the ingredient is gone
	assert.NoError(t, app.NutritionSvc.DeleteIngredient(ctx, oats.ID))
	entries, err := svc.QueryFoodEntries(ctx, ann.ID, tracking.TimeRange{})
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestNewFoodEntry_Validate(t *testing.T) {
	tests := []struct {
		name       string
		nf         tracking.NewFoodEntry
		wantFields []string
	}{
		{
			name: "from ingredient",
			nf:   tracking.NewFoodEntry{Meal: " Dinner ", IngredientID: core.StringPtr("i1"), QuantityGrams: 120},
		},
		{
			name: "manual",
			nf:   tracking.NewFoodEntry{Date: "2024-03-01", Meal: "snack", Name: "Bar", Macros: &nutrition.Macros{Calories: 210}},
		},
		{
			name:       "unknown meal",
			nf:         tracking.NewFoodEntry{Meal: "brunch", Name: "Eggs", Macros: &nutrition.Macros{}},
			wantFields: []string{"meal"},
		},
		{
			name:       "bad date",
			nf:         tracking.NewFoodEntry{Date: "03/01/2024", Meal: "lunch", Name: "Eggs", Macros: &nutrition.Macros{}},
			wantFields: []string{"date"},
		},
		{
			name:       "ingredient without quantity",
			nf:         tracking.NewFoodEntry{Meal: "lunch", IngredientID: core.StringPtr("i1")},
			wantFields: []string{"quantity_grams"},
		},
		{
			name:       "manual without name",
			nf:         tracking.NewFoodEntry{Meal: "lunch", Macros: &nutrition.Macros{}},
			wantFields: []string{"name"},
		},
		{
			name:       "manual without macros",
			nf:         tracking.NewFoodEntry{Meal: "lunch", Name: "Eggs"},
			wantFields: []string{"macros"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.nf.Validate()
			if tc.wantFields == nil {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tc.wantFields, testutil.ErrorFields(err))
		})
	}
}

func TestService_Progress(t *testing.T) {
	app := testutil.NewApp()
	svc := app.TrackingSvc
	ctx := context.Background()
	ann := testutil.CreateUser(t, app.UserRepo, "Ann", "ann", "ann@example.com", "", []string{user.RoleMember}, true)

	empty, err := svc.Progress(ctx, ann.ID, tracking.TimeRange{})
	require.NoError(t, err)
	assert.Nil(t, empty.First)
	assert.Nil(t, empty.WeightChangeKg)

	for _, nm := range []tracking.NewMeasurement{
		{MeasuredAt: at(1, 1, 8), WeightKg: core.Float64Ptr(80), WaistCm: core.Float64Ptr(90)},
		{MeasuredAt: at(2, 1, 8), WeightKg: core.Float64Ptr(78.5), BodyFatPct: core.Float64Ptr(20)},
		{MeasuredAt: at(3, 1, 8), WeightKg: core.Float64Ptr(77.2), WaistCm: core.Float64Ptr(86)},
	} {
		_, err := svc.LogMeasurement(ctx, ann.ID, nm)
		require.NoError(t, err)
	}

	p, err := svc.Progress(ctx, ann.ID, tracking.TimeRange{})
	require.NoError(t, err)
	assert.Equal(t, at(1, 1, 8), p.First.MeasuredAt)
	assert.Equal(t, at(3, 1, 8), p.Latest.MeasuredAt)
	require.NotNil(t, p.WeightChangeKg)
	assert.Equal(t, -2.8, *p.WeightChangeKg)
	assert.Nil(t, p.BodyFatChangePct)
	require.NotNil(t, p.WaistChangeCm)
	assert.Equal(t, -4.0, *p.WaistChangeCm)

	p, err = svc.Progress(ctx, ann.ID, tracking.TimeRange{From: at(2, 1, 0)})
	require.NoError(t, err)
	assert.Equal(t, -1.3, *p.WeightChangeKg)
	assert.Nil(t, p.WaistChangeCm)

	assert.Equal(t, []string{}, unlockedCodes(t, svc, ann.ID))

	nm := tracking.NewMeasurement{Notes: "nothing measured"}
	assert.Error(t, nm.Validate())
}

func TestService_Dashboard(t *testing.T) {
	app := testutil.NewApp()
	svc := app.TrackingSvc
	ctx := context.Background()
	ann := testutil.CreateUser(t, app.UserRepo, "Ann", "ann", "ann@example.com", "", []string{user.RoleMember}, true)
	monthly := testutil.CreateMembership(t, app.MembershipSvc, "Monthly", 4000, 30)
	now := at(3, 10, 20)

	d, err := svc.Dashboard(ctx, ann.ID, now)
	require.NoError(t, err)
	assert.Zero(t, d.TotalWorkouts)
	assert.Zero(t, d.CurrentStreak)
	assert.Nil(t, d.LatestMeasurement)
	assert.Empty(t, d.Achievements)
	assert.Empty(t, d.ActiveSubscriptions)

	_, err = app.MembershipSvc.Subscribe(ctx, membership.NewSubscription{UserID: ann.ID, MembershipID: monthly.ID, StartsAt: at(3, 1, 0)})
	require.NoError(t, err)
	_, err = svc.SeedAchievements(ctx)
	require.NoError(t, err)
	for _, ts := range []time.Time{at(2, 20, 8), at(3, 8, 8), at(3, 9, 8), at(3, 10, 8)} {
		_, err := svc.LogWorkout(ctx, ann.ID, tracking.NewWorkoutLog{Title: "Gym", PerformedAt: ts})
		require.NoError(t, err)
	}
	_, err = svc.LogMeasurement(ctx, ann.ID, tracking.NewMeasurement{MeasuredAt: at(3, 9, 7), WeightKg: core.Float64Ptr(70)})
	require.NoError(t, err)
	_, err = svc.AddFoodEntry(ctx, ann.ID, tracking.NewFoodEntry{
		Date: "2024-03-10", Meal: tracking.MealDinner, Name: "Pasta", Macros: &nutrition.Macros{Calories: 650, Protein: 25, Carbs: 90, Fat: 18},
	})
	require.NoError(t, err)

	d, err = svc.Dashboard(ctx, ann.ID, now)
	require.NoError(t, err)
	assert.Equal(t, 4, d.TotalWorkouts)
	assert.Equal(t, 3, d.WorkoutsLast7Days)
	assert.Equal(t, 3, d.CurrentStreak)
	require.NotNil(t, d.LatestMeasurement)
	assert.Equal(t, 70.0, *d.LatestMeasurement.WeightKg)
	assert.Equal(t, nutrition.Macros{Calories: 650, Protein: 25, Carbs: 90, Fat: 18}, d.TodayNutrition)
	assert.ElementsMatch(t, []string{"first_workout", "streak_3", "first_measurement"}, unlockedCodes(t, svc, ann.ID))
	assert.Len(t, d.Achievements, 3)
	require.Len(t, d.ActiveSubscriptions, 1)
	assert.Equal(t, monthly.ID, d.ActiveSubscriptions[0].MembershipID)

	// the subscription window is half-open
	d, err = svc.Dashboard(ctx, ann.ID, at(3, 31, 0))
	require.NoError(t, err)
	assert.Empty(t, d.ActiveSubscriptions)
}

package inmemdb

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/forma/core"
	"github.com/trezcool/forma/core/content"
	"github.com/trezcool/forma/core/nutrition"
)

func TestTable(t *testing.T) {
	tbl := newTable()
	tbl.put("b", 2)
	tbl.put("a", 1)
	tbl.put("c", 3)
	tbl.put("b", 20)
	assert.True(t, tbl.del("a"))
	assert.False(t, tbl.del("a"))

	var got []interface{}
	tbl.each(func(v interface{}) { got = append(got, v) })
	assert.Equal(t, []interface{}{20, 3}, got)

	cp := tbl.clone()
	cp.put("d", 4)
	_, ok := tbl.get("d")
	assert.False(t, ok)
}

func TestDB_WithinTx(t *testing.T) {
	db := Open()
	repo := NewContentRepository(db)
	ctx := context.Background()

	t.Run("commit", func(t *testing.T) {
		err := db.WithinTx(ctx, func(ctx context.Context) error {
			_, err := repo.CreateFAQ(ctx, content.FAQ{Question: "kept"})
			return err
		})
		require.NoError(t, err)
	})

	t.Run("rollback restores every table", func(t *testing.T) {
		errBoom := errors.New("boom")
		err := db.WithinTx(ctx, func(ctx context.Context) error {
			if _, err := repo.CreateFAQ(ctx, content.FAQ{Question: "dropped"}); err != nil {
				return err
			}
			// nested calls join the outer transaction
			return db.WithinTx(ctx, func(ctx context.Context) error {
				if _, err := repo.CreateCourse(ctx, content.Course{Title: "dropped"}); err != nil {
					return err
				}
				return errBoom
			})
		})
		assert.Equal(t, errBoom, errors.Cause(err))

		faqs, total, err := repo.QueryFAQs(ctx, content.FAQFilter{}, nil, core.Page{})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		assert.Equal(t, "kept", faqs[0].Question)
		_, total, err = repo.QueryCourses(ctx, content.CourseFilter{}, nil, core.Page{})
		require.NoError(t, err)
		assert.Zero(t, total)
	})

	t.Run("rollback keeps concurrent writes", func(t *testing.T) {
		done := make(chan error, 1)
		err := db.WithinTx(ctx, func(context.Context) error {
			go func() {
				// not part of the transaction
				_, err := repo.CreateCourse(ctx, content.Course{Title: "outside"})
				done <- err
			}()
			time.Sleep(20 * time.Millisecond)
			return errors.New("boom")
		})
		require.Error(t, err)
		require.NoError(t, <-done)

		courses, total, err := repo.QueryCourses(ctx, content.CourseFilter{}, nil, core.Page{})
		require.NoError(t, err)
		require.Equal(t, 1, total)
		assert.Equal(t, "outside", courses[0].Title)
	})
}

func TestOrderRows(t *testing.T) {
	type row struct {
		name  string
		score float64
		at    time.Time
	}
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []row{
		{name: "b", score: 1, at: t0},
		{name: "A", score: 2, at: t0.Add(time.Hour)},
		{name: "c", score: 1, at: t0.Add(2 * time.Hour)},
	}
	field := func(i int, f string) interface{} {
		switch f {
		case "name":
			return rows[i].name
		case "score":
			return rows[i].score
		default:
			return rows[i].at
		}
	}
	names := func() []string {
		ns := make([]string, 0, len(rows))
		for _, r := range rows {
			ns = append(ns, r.name)
		}
		return ns
	}

	orderRows(rows, []core.DBOrdering{{Field: "name", Ascending: true}}, field)
	assert.Equal(t, []string{"A", "b", "c"}, names())

	orderRows(rows, []core.DBOrdering{{Field: "score", Ascending: true}, {Field: "at", Ascending: false}}, field)
	assert.Equal(t, []string{"c", "b", "A"}, names())

	orderRows(rows, nil, field)
	assert.Equal(t, []string{"c", "b", "A"}, names())
}

func TestNutritionRepository_DeletePlanCascades(t *testing.T) {
	db := Open()
	repo := NewNutritionRepository(db)
	ctx := context.Background()

	ing, err := repo.CreateIngredient(ctx, nutrition.Ingredient{Name: "Rice"})
	require.NoError(t, err)
	plan, err := repo.CreatePlan(ctx, nutrition.Plan{Name: "Plan"})
	require.NoError(t, err)
	day, err := repo.CreateDay(ctx, nutrition.Day{PlanID: plan.ID, Number: 1})
	require.NoError(t, err)
	meal, err := repo.CreateMeal(ctx, nutrition.Meal{DayID: day.ID, Name: "Lunch", Position: 1})
	require.NoError(t, err)
	item, err := repo.CreateMealItem(ctx, nutrition.MealItem{MealID: meal.ID, IngredientID: ing.ID, QuantityGrams: 150})
	require.NoError(t, err)

	n, err := repo.CountIngredientUses(ctx, ing.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, repo.DeletePlan(ctx, plan.ID))
	_, err = repo.GetDay(ctx, day.ID)
	assert.True(t, core.IsNotFound(err))
	_, err = repo.GetMeal(ctx, meal.ID)
	assert.True(t, core.IsNotFound(err))
	_, err = repo.GetMealItem(ctx, item.ID)
	assert.True(t, core.IsNotFound(err))
	n, err = repo.CountIngredientUses(ctx, ing.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

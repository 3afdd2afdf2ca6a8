package inmemdb

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/forma/core"
)

const (
	tblUsers            = "users"
	tblMemberships      = "memberships"
	tblSubscriptions    = "subscriptions"
	tblExercises        = "exercises"
	tblWorkouts         = "workouts"
	tblWorkoutExercises = "workout_exercises"
	tblPrograms         = "programs"
	tblPeriods          = "program_periods"
	tblWeeks            = "program_weeks"
	tblProgramWorkouts  = "program_workouts"
	tblIngredients      = "ingredients"
	tblPlans            = "nutrition_plans"
	tblDays             = "nutrition_days"
	tblMeals            = "nutrition_meals"
	tblMealItems        = "nutrition_meal_items"
	tblRecipes          = "recipes"
	tblCourses          = "courses"
	tblLessons          = "lessons"
	tblFAQs             = "faqs"
	tblTemplates        = "email_templates"
	tblWorkoutLogs      = "workout_logs"
	tblFoodEntries      = "food_entries"
	tblMeasurements     = "measurements"
	tblAchievements     = "achievements"
	tblUserAchievements = "user_achievements"
)

var tableNames = []string{
	tblUsers, tblMemberships, tblSubscriptions,
	tblExercises, tblWorkouts, tblWorkoutExercises, tblPrograms, tblPeriods, tblWeeks, tblProgramWorkouts,
	tblIngredients, tblPlans, tblDays, tblMeals, tblMealItems, tblRecipes,
	tblCourses, tblLessons, tblFAQs, tblTemplates,
	tblWorkoutLogs, tblFoodEntries, tblMeasurements, tblAchievements, tblUserAchievements,
}

// table keeps rows by primary key and remembers insertion order.
type table struct {
	rows map[string]interface{}
	keys []string
}

func newTable() *table {
	return &table{rows: make(map[string]interface{})}
}

func (t *table) get(key string) (interface{}, bool) {
	v, ok := t.rows[key]
	return v, ok
}

func (t *table) put(key string, v interface{}) {
	if _, ok := t.rows[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.rows[key] = v
}

func (t *table) del(key string) bool {
	if _, ok := t.rows[key]; !ok {
		return false
	}
	delete(t.rows, key)
	for i, k := range t.keys {
		if k == key {
			t.keys = append(t.keys[:i:i], t.keys[i+1:]...)
			break
		}
	}
	return true
}

// each calls fn on every row in insertion order.
func (t *table) each(fn func(v interface{})) {
	for _, k := range t.keys {
		fn(t.rows[k])
	}
}

func (t *table) clone() *table {
	cp := &table{rows: make(map[string]interface{}, len(t.rows)), keys: make([]string, len(t.keys))}
	copy(cp.keys, t.keys)
	for k, v := range t.rows {
		cp.rows[k] = v
	}
	return cp
}

// DB is an in-memory stand-in for the postgres database.
// Every repository of this package shares one DB; all access is serialized by mutex.
// Writes outside a transaction also wait for txMu, so a rollback never discards them.
type DB struct {
	mutex  sync.RWMutex
	txMu   sync.Mutex
	tables map[string]*table
}

var _ core.Transactor = (*DB)(nil)

func Open() *DB {
	db := &DB{tables: make(map[string]*table, len(tableNames))}
	for _, name := range tableNames {
		db.tables[name] = newTable()
	}
	return db
}

func (db *DB) tbl(name string) *table {
	return db.tables[name]
}

func (db *DB) snapshot() map[string]*table {
	snap := make(map[string]*table, len(db.tables))
	for name, t := range db.tables {
		snap[name] = t.clone()
	}
	return snap
}

type txKey struct{}

// lock takes the write lock, first waiting for any running transaction unless ctx is part of it.
// The returned func releases both.
func (db *DB) lock(ctx context.Context) func() {
	inTx := ctx.Value(txKey{}) != nil
	if !inTx {
		db.txMu.Lock()
	}
	db.mutex.Lock()
	return func() {
		db.mutex.Unlock()
		if !inTx {
			db.txMu.Unlock()
		}
	}
}

// WithinTx runs transactions one at a time and restores the tables as they were when fn fails.
// Nested calls join the outer transaction.
func (db *DB) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	db.txMu.Lock()
	defer db.txMu.Unlock()

	db.mutex.RLock()
	snap := db.snapshot()
	db.mutex.RUnlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		db.mutex.Lock()
		db.tables = snap
		db.mutex.Unlock()
		return err
	}
	return nil
}

func newID() string {
	return uuid.New().String()
}

// fieldFunc returns the value of the named field of the i-th row being sorted.
type fieldFunc func(i int, field string) interface{}

// orderRows sorts rows (a slice) by ordering. Rows comparing equal keep their relative order.
func orderRows(rows interface{}, ordering []core.DBOrdering, field fieldFunc) {
	if len(ordering) == 0 {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, ord := range ordering {
			c := compare(field(i, ord.Field), field(j, ord.Field))
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
}

func compare(a, b interface{}) int {
	switch av := a.(type) {
	case string:
		return strings.Compare(strings.ToLower(av), strings.ToLower(b.(string)))
	case *string:
		bv := b.(*string)
		switch {
		case av == nil && bv == nil:
			return 0
		case av == nil:
			return -1
		case bv == nil:
			return 1
		}
		return compare(*av, *bv)
	case int:
		return compareInt64(int64(av), int64(b.(int)))
	case int64:
		return compareInt64(av, b.(int64))
	case float64:
		bv := b.(float64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	case bool:
		bv := b.(bool)
		switch {
		case av == bv:
			return 0
		case !av:
			return -1
		}
		return 1
	case time.Time:
		bv := b.(time.Time)
		switch {
		case av.Before(bv):
			return -1
		case av.After(bv):
			return 1
		}
		return 0
	}
	return 0
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// deleteWhere removes the rows matching pred and returns their keys.
func deleteWhere(t *table, pred func(v interface{}) bool) []string {
	var keys []string
	for _, k := range t.keys {
		if pred(t.rows[k]) {
			keys = append(keys, k)
		}
	}
	for _, k := range keys {
		t.del(k)
	}
	return keys
}

func countWhere(t *table, pred func(v interface{}) bool) int {
	var n int
	t.each(func(v interface{}) {
		if pred(v) {
			n++
		}
	})
	return n
}

func inKeys(keys []string) func(string) bool {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return func(k string) bool {
		_, ok := set[k]
		return ok
	}
}

package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/forma/core"
	"github.com/trezcool/forma/core/nutrition"
	"github.com/trezcool/forma/core/tracking"
)

const (
	workoutLogColumns      = "id, user_id, workout_id, title, performed_at, duration_minutes, notes, created_at"
	setLogColumns          = "id, workout_log_id, exercise_id, set_number, reps, weight_kg"
	foodEntryColumns       = "id, user_id, date, meal, ingredient_id, name, quantity_grams, calories, protein, carbs, fat, fiber, created_at"
	measurementColumns     = "id, user_id, measured_at, weight_kg, body_fat_pct, chest_cm, waist_cm, hips_cm, arm_cm, thigh_cm, notes, created_at"
	achievementColumns     = "id, code, name, description, kind, threshold, created_at"
	userAchievementColumns = "user_id, achievement_id, unlocked_at"
)

type workoutLogRow struct {
	ID              string      `db:"id"`
	UserID          string      `db:"user_id"`
	WorkoutID       null.String `db:"workout_id"`
	Title           string      `db:"title"`
	PerformedAt     time.Time   `db:"performed_at"`
	DurationMinutes int         `db:"duration_minutes"`
	Notes           string      `db:"notes"`
	CreatedAt       time.Time   `db:"created_at"`
}

func toWorkoutLogRow(wl tracking.WorkoutLog) workoutLogRow {
	return workoutLogRow{
		ID:              wl.ID,
		UserID:          wl.UserID,
		WorkoutID:       null.StringFromPtr(wl.WorkoutID),
		Title:           wl.Title,
		PerformedAt:     wl.PerformedAt,
		DurationMinutes: wl.DurationMinutes,
		Notes:           wl.Notes,
		CreatedAt:       wl.CreatedAt,
	}
}

func (r workoutLogRow) toWorkoutLog() tracking.WorkoutLog {
	return tracking.WorkoutLog{
		ID:              r.ID,
		UserID:          r.UserID,
		WorkoutID:       r.WorkoutID.Ptr(),
		Title:           r.Title,
		PerformedAt:     r.PerformedAt.UTC(),
		DurationMinutes: r.DurationMinutes,
		Notes:           r.Notes,
		CreatedAt:       r.CreatedAt.UTC(),
		Sets:            make([]tracking.SetLog, 0),
	}
}

type foodEntryRow struct {
	ID            string      `db:"id"`
	UserID        string      `db:"user_id"`
	Date          time.Time   `db:"date"`
	Meal          string      `db:"meal"`
	IngredientID  null.String `db:"ingredient_id"`
	Name          string      `db:"name"`
	QuantityGrams float64     `db:"quantity_grams"`
	nutrition.Macros
	CreatedAt time.Time `db:"created_at"`
}

func toFoodEntryRow(fe tracking.FoodEntry) foodEntryRow {
	return foodEntryRow{
		ID:            fe.ID,
		UserID:        fe.UserID,
		Date:          fe.Date,
		Meal:          fe.Meal,
		IngredientID:  null.StringFromPtr(fe.IngredientID),
		Name:          fe.Name,
		QuantityGrams: fe.QuantityGrams,
		Macros:        fe.Macros,
		CreatedAt:     fe.CreatedAt,
	}
}

func (r foodEntryRow) toFoodEntry() tracking.FoodEntry {
	return tracking.FoodEntry{
		ID:            r.ID,
		UserID:        r.UserID,
		Date:          core.DateOf(r.Date),
		Meal:          r.Meal,
		IngredientID:  r.IngredientID.Ptr(),
		Name:          r.Name,
		QuantityGrams: r.QuantityGrams,
		Macros:        r.Macros,
		CreatedAt:     r.CreatedAt.UTC(),
	}
}

type measurementRow struct {
	ID         string       `db:"id"`
	UserID     string       `db:"user_id"`
	MeasuredAt time.Time    `db:"measured_at"`
	WeightKg   null.Float64 `db:"weight_kg"`
	BodyFatPct null.Float64 `db:"body_fat_pct"`
	ChestCm    null.Float64 `db:"chest_cm"`
	WaistCm    null.Float64 `db:"waist_cm"`
	HipsCm     null.Float64 `db:"hips_cm"`
	ArmCm      null.Float64 `db:"arm_cm"`
	ThighCm    null.Float64 `db:"thigh_cm"`
	Notes      string       `db:"notes"`
	CreatedAt  time.Time    `db:"created_at"`
}

func toMeasurementRow(m tracking.Measurement) measurementRow {
	return measurementRow{
		ID:         m.ID,
		UserID:     m.UserID,
		MeasuredAt: m.MeasuredAt,
		WeightKg:   null.Float64FromPtr(m.WeightKg),
		BodyFatPct: null.Float64FromPtr(m.BodyFatPct),
		ChestCm:    null.Float64FromPtr(m.ChestCm),
		WaistCm:    null.Float64FromPtr(m.WaistCm),
		HipsCm:     null.Float64FromPtr(m.HipsCm),
		ArmCm:      null.Float64FromPtr(m.ArmCm),
		ThighCm:    null.Float64FromPtr(m.ThighCm),
		Notes:      m.Notes,
		CreatedAt:  m.CreatedAt,
	}
}

func (r measurementRow) toMeasurement() tracking.Measurement {
	return tracking.Measurement{
		ID:         r.ID,
		UserID:     r.UserID,
		MeasuredAt: r.MeasuredAt.UTC(),
		WeightKg:   r.WeightKg.Ptr(),
		BodyFatPct: r.BodyFatPct.Ptr(),
		ChestCm:    r.ChestCm.Ptr(),
		WaistCm:    r.WaistCm.Ptr(),
		HipsCm:     r.HipsCm.Ptr(),
		ArmCm:      r.ArmCm.Ptr(),
		ThighCm:    r.ThighCm.Ptr(),
		Notes:      r.Notes,
		CreatedAt:  r.CreatedAt.UTC(),
	}
}

type userAchievementRow struct {
	tracking.UserAchievement
	tracking.Achievement `db:"a"`
}

// dateRange converts tr to inclusive calendar dates for a DATE column.
func dateRange(tr tracking.TimeRange) (from, to string) {
	if !tr.From.IsZero() {
		f := tr.From.UTC()
		d := core.DateOf(f)
		if d.Before(f) {
			d = d.AddDate(0, 0, 1)
		}
		from = d.Format("2006-01-02")
	}
	if !tr.To.IsZero() {
		to = tr.To.UTC().Format("2006-01-02")
	}
	return from, to
}

func timeConds(w *conds, col string, tr tracking.TimeRange) {
	if !tr.From.IsZero() {
		w.add(col+" >= ?", tr.From)
	}
	if !tr.To.IsZero() {
		w.add(col+" <= ?", tr.To)
	}
}

type trackingRepository struct {
	repository
}

var _ tracking.Repository = (*trackingRepository)(nil)

func NewTrackingRepository(db *sqlx.DB) tracking.Repository {
	return &trackingRepository{repository{db: db}}
}

// Workout logs

func (repo *trackingRepository) CreateWorkoutLog(ctx context.Context, wl tracking.WorkoutLog) (tracking.WorkoutLog, error) {
	e := repo.ext(ctx)
	wl.ID = newID()
	err := namedExec(ctx, e, nil, `
		INSERT INTO workout_logs (`+workoutLogColumns+`)
		VALUES (:id, :user_id, :workout_id, :title, :performed_at, :duration_minutes, :notes, :created_at)`,
		toWorkoutLogRow(wl),
	)
	if err != nil {
		return tracking.WorkoutLog{}, errors.Wrap(err, "inserting workout log")
	}

	sets := make([]tracking.SetLog, 0, len(wl.Sets))
	for _, s := range wl.Sets {
		s.ID = newID()
		s.WorkoutLogID = wl.ID
		err := namedExec(ctx, e, nil, `
			INSERT INTO set_logs (`+setLogColumns+`)
			VALUES (:id, :workout_log_id, :exercise_id, :set_number, :reps, :weight_kg)`,
			s,
		)
		if err != nil {
			return tracking.WorkoutLog{}, errors.Wrap(err, "inserting set log")
		}
		sets = append(sets, s)
	}
	wl.Sets = sets
	return wl, nil
}

// loadSets fills the sets of logs.
func (repo *trackingRepository) loadSets(ctx context.Context, logs []tracking.WorkoutLog) error {
	if len(logs) == 0 {
		return nil
	}

	ids := make([]string, 0, len(logs))
	for _, wl := range logs {
		ids = append(ids, wl.ID)
	}
	var sets []tracking.SetLog
	q := "SELECT " + setLogColumns + " FROM set_logs WHERE workout_log_id IN (?) ORDER BY set_number, id"
	if err := selectIn(ctx, repo.ext(ctx), &sets, q, ids); err != nil {
		return errors.Wrap(err, "selecting set logs")
	}

	byLog := make(map[string][]tracking.SetLog)
	for _, s := range sets {
		byLog[s.WorkoutLogID] = append(byLog[s.WorkoutLogID], s)
	}
	for i := range logs {
		if s, ok := byLog[logs[i].ID]; ok {
			logs[i].Sets = s
		}
	}
	return nil
}

func (repo *trackingRepository) QueryWorkoutLogs(
	ctx context.Context,
	userID string,
	tr tracking.TimeRange,
	page core.Page,
) ([]tracking.WorkoutLog, int, error) {
	var w conds
	w.add("user_id = ?", userID)
	timeConds(&w, "performed_at", tr)

	rows := make([]workoutLogRow, 0)
	total, err := queryPage(ctx, repo.ext(ctx), &rows, workoutLogColumns, "workout_logs", w, "performed_at DESC, id ASC", page)
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying workout logs")
	}

	logs := make([]tracking.WorkoutLog, 0, len(rows))
	for _, r := range rows {
		logs = append(logs, r.toWorkoutLog())
	}
	if err := repo.loadSets(ctx, logs); err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

func (repo *trackingRepository) GetWorkoutLog(ctx context.Context, id string) (tracking.WorkoutLog, error) {
	var r workoutLogRow
	q := "SELECT " + workoutLogColumns + " FROM workout_logs WHERE id = ?"
	if err := get(ctx, repo.ext(ctx), &r, tracking.ErrWorkoutLogNotFound, q, id); err != nil {
		return tracking.WorkoutLog{}, err
	}
	logs := []tracking.WorkoutLog{r.toWorkoutLog()}
	if err := repo.loadSets(ctx, logs); err != nil {
		return tracking.WorkoutLog{}, err
	}
	return logs[0], nil
}

func (repo *trackingRepository) DeleteWorkoutLog(ctx context.Context, id string) error {
	return exec(ctx, repo.ext(ctx), tracking.ErrWorkoutLogNotFound, "DELETE FROM workout_logs WHERE id = ?", id)
}

func (repo *trackingRepository) CountWorkoutLogs(ctx context.Context, userID string, tr tracking.TimeRange) (int, error) {
	var w conds
	w.add("user_id = ?", userID)
	timeConds(&w, "performed_at", tr)
	return count(ctx, repo.ext(ctx), "SELECT COUNT(*) FROM workout_logs"+w.String(), w.args...)
}

func (repo *trackingRepository) WorkoutDays(ctx context.Context, userID string) ([]time.Time, error) {
	e := repo.ext(ctx)
	var days []time.Time
	q := `
		SELECT DISTINCT (performed_at AT TIME ZONE 'UTC')::date AS day FROM workout_logs
		WHERE user_id = ? ORDER BY day`
	if err := sqlx.SelectContext(ctx, e, &days, e.Rebind(q), userID); err != nil {
		return nil, errors.Wrap(err, "selecting workout days")
	}
	for i, d := range days {
		days[i] = core.DateOf(d)
	}
	return days, nil
}

// Food entries

func (repo *trackingRepository) CreateFoodEntry(ctx context.Context, fe tracking.FoodEntry) (tracking.FoodEntry, error) {
	fe.ID = newID()
	err := namedExec(ctx, repo.ext(ctx), nil, `
		INSERT INTO food_entries (`+foodEntryColumns+`)
		VALUES (
			:id, :user_id, :date, :meal, :ingredient_id, :name, :quantity_grams,
			:calories, :protein, :carbs, :fat, :fiber, :created_at
		)`,
		toFoodEntryRow(fe),
	)
	if err != nil {
		return tracking.FoodEntry{}, errors.Wrap(err, "inserting food entry")
	}
	return fe, nil
}

func (repo *trackingRepository) QueryFoodEntries(ctx context.Context, userID string, tr tracking.TimeRange) ([]tracking.FoodEntry, error) {
	e := repo.ext(ctx)
	var w conds
	w.add("user_id = ?", userID)
	from, to := dateRange(tr)
	if from != "" {
		w.add("date >= ?::date", from)
	}
	if to != "" {
		w.add("date <= ?::date", to)
	}

	var rows []foodEntryRow
	q := "SELECT " + foodEntryColumns + " FROM food_entries" + w.String() + " ORDER BY date, created_at, id"
	if err := sqlx.SelectContext(ctx, e, &rows, e.Rebind(q), w.args...); err != nil {
		return nil, errors.Wrap(err, "selecting food entries")
	}

	entries := make([]tracking.FoodEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, r.toFoodEntry())
	}
	return entries, nil
}

func (repo *trackingRepository) GetFoodEntry(ctx context.Context, id string) (tracking.FoodEntry, error) {
	var r foodEntryRow
	q := "SELECT " + foodEntryColumns + " FROM food_entries WHERE id = ?"
	if err := get(ctx, repo.ext(ctx), &r, tracking.ErrFoodEntryNotFound, q, id); err != nil {
		return tracking.FoodEntry{}, err
	}
	return r.toFoodEntry(), nil
}

func (repo *trackingRepository) DeleteFoodEntry(ctx context.Context, id string) error {
	return exec(ctx, repo.ext(ctx), tracking.ErrFoodEntryNotFound, "DELETE FROM food_entries WHERE id = ?", id)
}

func (repo *trackingRepository) CountNutritionDays(ctx context.Context, userID string) (int, error) {
	return count(ctx, repo.ext(ctx), "SELECT COUNT(DISTINCT date) FROM food_entries WHERE user_id = ?", userID)
}

// Measurements

func (repo *trackingRepository) CreateMeasurement(ctx context.Context, m tracking.Measurement) (tracking.Measurement, error) {
	m.ID = newID()
	err := namedExec(ctx, repo.ext(ctx), nil, `
		INSERT INTO measurements (`+measurementColumns+`)
		VALUES (
			:id, :user_id, :measured_at, :weight_kg, :body_fat_pct, :chest_cm,
			:waist_cm, :hips_cm, :arm_cm, :thigh_cm, :notes, :created_at
		)`,
		toMeasurementRow(m),
	)
	if err != nil {
		return tracking.Measurement{}, errors.Wrap(err, "inserting measurement")
	}
	return m, nil
}

func (repo *trackingRepository) QueryMeasurements(
	ctx context.Context,
	userID string,
	tr tracking.TimeRange,
	page core.Page,
) ([]tracking.Measurement, int, error) {
	var w conds
	w.add("user_id = ?", userID)
	timeConds(&w, "measured_at", tr)

	rows := make([]measurementRow, 0)
	total, err := queryPage(ctx, repo.ext(ctx), &rows, measurementColumns, "measurements", w, "measured_at DESC, id ASC", page)
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying measurements")
	}

	ms := make([]tracking.Measurement, 0, len(rows))
	for _, r := range rows {
		ms = append(ms, r.toMeasurement())
	}
	return ms, total, nil
}

func (repo *trackingRepository) GetMeasurement(ctx context.Context, id string) (tracking.Measurement, error) {
	var r measurementRow
	q := "SELECT " + measurementColumns + " FROM measurements WHERE id = ?"
	if err := get(ctx, repo.ext(ctx), &r, tracking.ErrMeasurementNotFound, q, id); err != nil {
		return tracking.Measurement{}, err
	}
	return r.toMeasurement(), nil
}

func (repo *trackingRepository) DeleteMeasurement(ctx context.Context, id string) error {
	return exec(ctx, repo.ext(ctx), tracking.ErrMeasurementNotFound, "DELETE FROM measurements WHERE id = ?", id)
}

func (repo *trackingRepository) CountMeasurements(ctx context.Context, userID string) (int, error) {
	return count(ctx, repo.ext(ctx), "SELECT COUNT(*) FROM measurements WHERE user_id = ?", userID)
}

// Achievements

func (repo *trackingRepository) CreateAchievement(ctx context.Context, a tracking.Achievement) (tracking.Achievement, error) {
	a.ID = newID()
	err := namedExec(ctx, repo.ext(ctx), nil, `
		INSERT INTO achievements (`+achievementColumns+`)
		VALUES (:id, :code, :name, :description, :kind, :threshold, :created_at)`,
		a,
	)
	if err != nil {
		return tracking.Achievement{}, errors.Wrap(err, "inserting achievement")
	}
	return a, nil
}

func (repo *trackingRepository) ListAchievements(ctx context.Context) ([]tracking.Achievement, error) {
	e := repo.ext(ctx)
	as := make([]tracking.Achievement, 0)
	q := "SELECT " + achievementColumns + " FROM achievements ORDER BY kind, threshold, id"
	if err := sqlx.SelectContext(ctx, e, &as, q); err != nil {
		return nil, errors.Wrap(err, "selecting achievements")
	}
	return as, nil
}

func (repo *trackingRepository) GetAchievement(ctx context.Context, id string) (tracking.Achievement, error) {
	var a tracking.Achievement
	err := get(ctx, repo.ext(ctx), &a, tracking.ErrAchievementNotFound, "SELECT "+achievementColumns+" FROM achievements WHERE id = ?", id)
	return a, err
}

func (repo *trackingRepository) GetAchievementByCode(ctx context.Context, code string) (tracking.Achievement, error) {
	var a tracking.Achievement
	err := get(ctx, repo.ext(ctx), &a, tracking.ErrAchievementNotFound, "SELECT "+achievementColumns+" FROM achievements WHERE code = ?", code)
	return a, err
}

func (repo *trackingRepository) UpdateAchievement(ctx context.Context, a tracking.Achievement) (tracking.Achievement, error) {
	err := namedExec(ctx, repo.ext(ctx), tracking.ErrAchievementNotFound, `
		UPDATE achievements SET
			code = :code, name = :name, description = :description, kind = :kind, threshold = :threshold
		WHERE id = :id`,
		a,
	)
	if err != nil {
		return tracking.Achievement{}, err
	}
	return a, nil
}

func (repo *trackingRepository) DeleteAchievement(ctx context.Context, id string) error {
	return exec(ctx, repo.ext(ctx), tracking.ErrAchievementNotFound, "DELETE FROM achievements WHERE id = ?", id)
}

func (repo *trackingRepository) ListUserAchievements(ctx context.Context, userID string) ([]tracking.UserAchievement, error) {
	e := repo.ext(ctx)
	var rows []userAchievementRow
	q := `
		SELECT
			ua.user_id, ua.achievement_id, ua.unlocked_at,
			a.id "a.id", a.code "a.code", a.name "a.name", a.description "a.description",
			a.kind "a.kind", a.threshold "a.threshold", a.created_at "a.created_at"
		FROM user_achievements ua JOIN achievements a ON a.id = ua.achievement_id
		WHERE ua.user_id = ?
		ORDER BY ua.unlocked_at, a.id`
	if err := sqlx.SelectContext(ctx, e, &rows, e.Rebind(q), userID); err != nil {
		return nil, errors.Wrap(err, "selecting user achievements")
	}

	uas := make([]tracking.UserAchievement, 0, len(rows))
	for _, r := range rows {
		ua := r.UserAchievement
		a := r.Achievement
		ua.Achievement = &a
		uas = append(uas, ua)
	}
	return uas, nil
}

func (repo *trackingRepository) UnlockAchievement(ctx context.Context, ua tracking.UserAchievement) (bool, error) {
	e := repo.ext(ctx)
	res, err := e.ExecContext(ctx, e.Rebind(`
		INSERT INTO user_achievements (`+userAchievementColumns+`) VALUES (?, ?, ?)
		ON CONFLICT (user_id, achievement_id) DO NOTHING`),
		ua.UserID, ua.AchievementID, ua.UnlockedAt,
	)
	if err != nil {
		return false, errors.Wrap(err, "inserting user achievement")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

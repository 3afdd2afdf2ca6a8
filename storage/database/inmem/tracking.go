package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/forma/core"
	"github.com/trezcool/forma/core/tracking"
)

type trackingRepository struct {
	db *DB
}

var _ tracking.Repository = (*trackingRepository)(nil)

func NewTrackingRepository(db *DB) tracking.Repository {
	return &trackingRepository{db: db}
}

func workoutLogUserID(v interface{}) string      { return v.(tracking.WorkoutLog).UserID }
func foodEntryUserID(v interface{}) string       { return v.(tracking.FoodEntry).UserID }
func measurementUserID(v interface{}) string     { return v.(tracking.Measurement).UserID }
func userAchievementUserID(v interface{}) string { return v.(tracking.UserAchievement).UserID }

// Workout logs

func (repo *trackingRepository) CreateWorkoutLog(ctx context.Context, wl tracking.WorkoutLog) (tracking.WorkoutLog, error) {
	defer repo.db.lock(ctx)()

	wl.ID = newID()
	sets := make([]tracking.SetLog, 0, len(wl.Sets))
	for _, s := range wl.Sets {
		s.ID = newID()
		s.WorkoutLogID = wl.ID
		sets = append(sets, s)
	}
	wl.Sets = sets
	repo.db.tbl(tblWorkoutLogs).put(wl.ID, wl)
	return wl, nil
}

func (repo *trackingRepository) userWorkoutLogs(userID string, tr tracking.TimeRange) []tracking.WorkoutLog {
	logs := make([]tracking.WorkoutLog, 0)
	repo.db.tbl(tblWorkoutLogs).each(func(v interface{}) {
		if wl := v.(tracking.WorkoutLog); wl.UserID == userID && tr.Contains(wl.PerformedAt) {
			logs = append(logs, wl)
		}
	})
	return logs
}

func (repo *trackingRepository) QueryWorkoutLogs(
	ctx context.Context,
	userID string,
	tr tracking.TimeRange,
	page core.Page,
) ([]tracking.WorkoutLog, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	logs := repo.userWorkoutLogs(userID, tr)
	sort.SliceStable(logs, func(i, j int) bool { return logs[i].PerformedAt.After(logs[j].PerformedAt) })

	start, end := page.Window(len(logs))
	return logs[start:end], len(logs), nil
}

func (repo *trackingRepository) GetWorkoutLog(ctx context.Context, id string) (tracking.WorkoutLog, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if v, ok := repo.db.tbl(tblWorkoutLogs).get(id); ok {
		return v.(tracking.WorkoutLog), nil
	}
	return tracking.WorkoutLog{}, tracking.ErrWorkoutLogNotFound
}

func (repo *trackingRepository) DeleteWorkoutLog(ctx context.Context, id string) error {
	defer repo.db.lock(ctx)()

	if !repo.db.tbl(tblWorkoutLogs).del(id) {
		return tracking.ErrWorkoutLogNotFound
	}
	return nil
}

func (repo *trackingRepository) CountWorkoutLogs(ctx context.Context, userID string, tr tracking.TimeRange) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	return len(repo.userWorkoutLogs(userID, tr)), nil
}

func (repo *trackingRepository) WorkoutDays(ctx context.Context, userID string) ([]time.Time, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	seen := make(map[time.Time]bool)
	days := make([]time.Time, 0)
	for _, wl := range repo.userWorkoutLogs(userID, tracking.TimeRange{}) {
		d := core.DateOf(wl.PerformedAt)
		if !seen[d] {
			seen[d] = true
			days = append(days, d)
		}
	}
	return days, nil
}

// Food entries

func (repo *trackingRepository) CreateFoodEntry(ctx context.Context, fe tracking.FoodEntry) (tracking.FoodEntry, error) {
	defer repo.db.lock(ctx)()

	fe.ID = newID()
	repo.db.tbl(tblFoodEntries).put(fe.ID, fe)
	return fe, nil
}

func (repo *trackingRepository) QueryFoodEntries(ctx context.Context, userID string, tr tracking.TimeRange) ([]tracking.FoodEntry, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	entries := make([]tracking.FoodEntry, 0)
	repo.db.tbl(tblFoodEntries).each(func(v interface{}) {
		if fe := v.(tracking.FoodEntry); fe.UserID == userID && tr.Contains(fe.Date) {
			entries = append(entries, fe)
		}
	})
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].Date.Equal(entries[j].Date) {
			return entries[i].Date.Before(entries[j].Date)
		}
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
	return entries, nil
}

func (repo *trackingRepository) GetFoodEntry(ctx context.Context, id string) (tracking.FoodEntry, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if v, ok := repo.db.tbl(tblFoodEntries).get(id); ok {
		return v.(tracking.FoodEntry), nil
	}
	return tracking.FoodEntry{}, tracking.ErrFoodEntryNotFound
}

func (repo *trackingRepository) DeleteFoodEntry(ctx context.Context, id string) error {
	defer repo.db.lock(ctx)()

	if !repo.db.tbl(tblFoodEntries).del(id) {
		return tracking.ErrFoodEntryNotFound
	}
	return nil
}

func (repo *trackingRepository) CountNutritionDays(ctx context.Context, userID string) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	days := make(map[time.Time]bool)
	repo.db.tbl(tblFoodEntries).each(func(v interface{}) {
		if fe := v.(tracking.FoodEntry); fe.UserID == userID {
			days[core.DateOf(fe.Date)] = true
		}
	})
	return len(days), nil
}

// Measurements

func (repo *trackingRepository) CreateMeasurement(ctx context.Context, m tracking.Measurement) (tracking.Measurement, error) {
	defer repo.db.lock(ctx)()

	m.ID = newID()
	repo.db.tbl(tblMeasurements).put(m.ID, m)
	return m, nil
}

func (repo *trackingRepository) QueryMeasurements(
	ctx context.Context,
	userID string,
	tr tracking.TimeRange,
	page core.Page,
) ([]tracking.Measurement, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	ms := make([]tracking.Measurement, 0)
	repo.db.tbl(tblMeasurements).each(func(v interface{}) {
		if m := v.(tracking.Measurement); m.UserID == userID && tr.Contains(m.MeasuredAt) {
			ms = append(ms, m)
		}
	})
	sort.SliceStable(ms, func(i, j int) bool { return ms[i].MeasuredAt.After(ms[j].MeasuredAt) })

	start, end := page.Window(len(ms))
	return ms[start:end], len(ms), nil
}

func (repo *trackingRepository) GetMeasurement(ctx context.Context, id string) (tracking.Measurement, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if v, ok := repo.db.tbl(tblMeasurements).get(id); ok {
		return v.(tracking.Measurement), nil
	}
	return tracking.Measurement{}, tracking.ErrMeasurementNotFound
}

func (repo *trackingRepository) DeleteMeasurement(ctx context.Context, id string) error {
	defer repo.db.lock(ctx)()

	if !repo.db.tbl(tblMeasurements).del(id) {
		return tracking.ErrMeasurementNotFound
	}
	return nil
}

func (repo *trackingRepository) CountMeasurements(ctx context.Context, userID string) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	return countWhere(repo.db.tbl(tblMeasurements), func(v interface{}) bool {
		return measurementUserID(v) == userID
	}), nil
}

// Achievements

func (repo *trackingRepository) CreateAchievement(ctx context.Context, a tracking.Achievement) (tracking.Achievement, error) {
	defer repo.db.lock(ctx)()

	a.ID = newID()
	repo.db.tbl(tblAchievements).put(a.ID, a)
	return a, nil
}

func (repo *trackingRepository) ListAchievements(ctx context.Context) ([]tracking.Achievement, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	as := make([]tracking.Achievement, 0)
	repo.db.tbl(tblAchievements).each(func(v interface{}) {
		as = append(as, v.(tracking.Achievement))
	})
	sort.SliceStable(as, func(i, j int) bool {
		if as[i].Kind != as[j].Kind {
			return as[i].Kind < as[j].Kind
		}
		return as[i].Threshold < as[j].Threshold
	})
	return as, nil
}

func (repo *trackingRepository) GetAchievement(ctx context.Context, id string) (tracking.Achievement, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if v, ok := repo.db.tbl(tblAchievements).get(id); ok {
		return v.(tracking.Achievement), nil
	}
	return tracking.Achievement{}, tracking.ErrAchievementNotFound
}

func (repo *trackingRepository) GetAchievementByCode(ctx context.Context, code string) (tracking.Achievement, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, k := range repo.db.tbl(tblAchievements).keys {
		if a := repo.db.tbl(tblAchievements).rows[k].(tracking.Achievement); a.Code == code {
			return a, nil
		}
	}
	return tracking.Achievement{}, tracking.ErrAchievementNotFound
}

func (repo *trackingRepository) UpdateAchievement(ctx context.Context, a tracking.Achievement) (tracking.Achievement, error) {
	defer repo.db.lock(ctx)()

	if _, ok := repo.db.tbl(tblAchievements).get(a.ID); !ok {
		return tracking.Achievement{}, tracking.ErrAchievementNotFound
	}
	repo.db.tbl(tblAchievements).put(a.ID, a)
	return a, nil
}

func (repo *trackingRepository) DeleteAchievement(ctx context.Context, id string) error {
	defer repo.db.lock(ctx)()

	if !repo.db.tbl(tblAchievements).del(id) {
		return tracking.ErrAchievementNotFound
	}
	deleteWhere(repo.db.tbl(tblUserAchievements), func(v interface{}) bool {
		return v.(tracking.UserAchievement).AchievementID == id
	})
	return nil
}

func (repo *trackingRepository) ListUserAchievements(ctx context.Context, userID string) ([]tracking.UserAchievement, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	uas := make([]tracking.UserAchievement, 0)
	repo.db.tbl(tblUserAchievements).each(func(v interface{}) {
		ua := v.(tracking.UserAchievement)
		if ua.UserID != userID {
			return
		}
		if av, ok := repo.db.tbl(tblAchievements).get(ua.AchievementID); ok {
			a := av.(tracking.Achievement)
			ua.Achievement = &a
		}
		uas = append(uas, ua)
	})
	sort.SliceStable(uas, func(i, j int) bool { return uas[i].UnlockedAt.Before(uas[j].UnlockedAt) })
	return uas, nil
}

func (repo *trackingRepository) UnlockAchievement(ctx context.Context, ua tracking.UserAchievement) (bool, error) {
	defer repo.db.lock(ctx)()

	key := ua.UserID + "/" + ua.AchievementID
	if _, ok := repo.db.tbl(tblUserAchievements).get(key); ok {
		return false, nil
	}
	ua.Achievement = nil
	repo.db.tbl(tblUserAchievements).put(key, ua)
	return true, nil
}

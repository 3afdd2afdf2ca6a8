package tracking

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/forma/core"
	"github.com/trezcool/forma/core/membership"
	"github.com/trezcool/forma/core/nutrition"
	"github.com/trezcool/forma/core/user"
)

var (
	// errors
	ErrWorkoutLogNotFound  = core.NewNotFoundError("workout log")
	ErrFoodEntryNotFound   = core.NewNotFoundError("food entry")
	ErrMeasurementNotFound = core.NewNotFoundError("measurement")
	ErrAchievementNotFound = core.NewNotFoundError("achievement")
	ErrCodeExists          = errors.New("an achievement with this code already exists")
)

// EmailAchievementUnlocked is the template key of the email sent on unlock.
const EmailAchievementUnlocked = "achievement_unlocked"

type (
	Repository interface {
		// CreateWorkoutLog stores the log and its sets.
		CreateWorkoutLog(ctx context.Context, wl WorkoutLog) (WorkoutLog, error)
		// QueryWorkoutLogs returns the user's logs with their sets, most recent first.
		QueryWorkoutLogs(ctx context.Context, userID string, tr TimeRange, page core.Page) ([]WorkoutLog, int, error)
		GetWorkoutLog(ctx context.Context, id string) (WorkoutLog, error)
		DeleteWorkoutLog(ctx context.Context, id string) error
		CountWorkoutLogs(ctx context.Context, userID string, tr TimeRange) (int, error)
		// WorkoutDays returns the distinct UTC dates the user worked out on.
		WorkoutDays(ctx context.Context, userID string) ([]time.Time, error)

		CreateFoodEntry(ctx context.Context, fe FoodEntry) (FoodEntry, error)
		// QueryFoodEntries returns the user's entries whose Date is within tr, oldest first.
		QueryFoodEntries(ctx context.Context, userID string, tr TimeRange) ([]FoodEntry, error)
		GetFoodEntry(ctx context.Context, id string) (FoodEntry, error)
		DeleteFoodEntry(ctx context.Context, id string) error
		CountNutritionDays(ctx context.Context, userID string) (int, error)

		CreateMeasurement(ctx context.Context, m Measurement) (Measurement, error)
		// QueryMeasurements returns the user's measurements, most recent first.
		QueryMeasurements(ctx context.Context, userID string, tr TimeRange, page core.Page) ([]Measurement, int, error)
		GetMeasurement(ctx context.Context, id string) (Measurement, error)
		DeleteMeasurement(ctx context.Context, id string) error
		CountMeasurements(ctx context.Context, userID string) (int, error)

		CreateAchievement(ctx context.Context, a Achievement) (Achievement, error)
		ListAchievements(ctx context.Context) ([]Achievement, error)
		GetAchievement(ctx context.Context, id string) (Achievement, error)
		GetAchievementByCode(ctx context.Context, code string) (Achievement, error)
		UpdateAchievement(ctx context.Context, a Achievement) (Achievement, error)
		DeleteAchievement(ctx context.Context, id string) error

		// ListUserAchievements returns the user's unlocks, oldest first, with Achievement set.
		ListUserAchievements(ctx context.Context, userID string) ([]UserAchievement, error)
		// UnlockAchievement stores ua unless the user already unlocked it; it reports whether it did.
		UnlockAchievement(ctx context.Context, ua UserAchievement) (bool, error)
	}

	UserGetter interface {
		GetByID(ctx context.Context, id string) (user.User, error)
	}

	IngredientGetter interface {
		GetIngredient(ctx context.Context, id string) (nutrition.Ingredient, error)
	}

	SubscriptionLister interface {
		ActiveFor(ctx context.Context, userID string, at time.Time) ([]membership.Subscription, error)
	}

	Service interface {
		LogWorkout(ctx context.Context, userID string, nw NewWorkoutLog) (WorkoutLog, error)
		QueryWorkoutLogs(ctx context.Context, userID string, tr TimeRange, page core.Page) ([]WorkoutLog, int, error)
		GetWorkoutLog(ctx context.Context, userID, id string) (WorkoutLog, error)
		DeleteWorkoutLog(ctx context.Context, userID, id string) error

		AddFoodEntry(ctx context.Context, userID string, nf NewFoodEntry) (FoodEntry, error)
		QueryFoodEntries(ctx context.Context, userID string, tr TimeRange) ([]FoodEntry, error)
		DeleteFoodEntry(ctx context.Context, userID, id string) error
		DailyNutrition(ctx context.Context, userID string, date time.Time) (DailyNutrition, error)

		LogMeasurement(ctx context.Context, userID string, nm NewMeasurement) (Measurement, error)
		QueryMeasurements(ctx context.Context, userID string, tr TimeRange, page core.Page) ([]Measurement, int, error)
		DeleteMeasurement(ctx context.Context, userID, id string) error
		Progress(ctx context.Context, userID string, tr TimeRange) (Progress, error)

		CreateAchievement(ctx context.Context, na NewAchievement) (Achievement, error)
		ListAchievements(ctx context.Context) ([]Achievement, error)
		GetAchievement(ctx context.Context, id string) (Achievement, error)
		UpdateAchievement(ctx context.Context, a Achievement, na NewAchievement) (Achievement, error)
		DeleteAchievement(ctx context.Context, id string) error
		// SeedAchievements creates the DefaultAchievements missing by code and returns how many it created.
		SeedAchievements(ctx context.Context) (int, error)
		UserAchievements(ctx context.Context, userID string) ([]UserAchievement, error)

		Dashboard(ctx context.Context, userID string, now time.Time) (Dashboard, error)
	}

	service struct {
		repo          Repository
		tx            core.Transactor
		users         UserGetter
		ingredients   IngredientGetter
		subscriptions SubscriptionLister
		mailSvc       core.EmailService
		composer      core.MailComposer
		logger        core.Logger
	}
)

var _ Service = (*service)(nil)

type Deps struct {
	Repo          Repository
	Tx            core.Transactor
	Users         UserGetter
	Ingredients   IngredientGetter
	Subscriptions SubscriptionLister
	MailSvc       core.EmailService
	Composer      core.MailComposer
	Logger        core.Logger
}

func NewService(deps Deps) Service {
	return &service{
		repo:          deps.Repo,
		tx:            deps.Tx,
		users:         deps.Users,
		ingredients:   deps.Ingredients,
		subscriptions: deps.Subscriptions,
		mailSvc:       deps.MailSvc,
		composer:      deps.Composer,
		logger:        deps.Logger,
	}
}

// Workouts

func (svc *service) LogWorkout(ctx context.Context, userID string, nw NewWorkoutLog) (WorkoutLog, error) {
	now := core.NowFunc().UTC()
	wl := WorkoutLog{
		UserID:          userID,
		WorkoutID:       nw.WorkoutID,
		Title:           nw.Title,
		PerformedAt:     nw.PerformedAt.UTC(),
		DurationMinutes: nw.DurationMinutes,
		Notes:           nw.Notes,
		CreatedAt:       now,
		Sets:            make([]SetLog, 0, len(nw.Sets)),
	}
	if nw.PerformedAt.IsZero() {
		wl.PerformedAt = now
	}
	for i, s := range nw.Sets {
		n := s.SetNumber
		if n == 0 {
			n = i + 1
		}
		wl.Sets = append(wl.Sets, SetLog{ExerciseID: s.ExerciseID, SetNumber: n, Reps: s.Reps, WeightKg: s.WeightKg})
	}

	wl, err := svc.repo.CreateWorkoutLog(ctx, wl)
	if err != nil {
		return WorkoutLog{}, errors.Wrap(err, "creating workout log")
	}
	svc.evaluate(ctx, userID, KindWorkoutCount, KindWorkoutStreak)
	return wl, nil
}

func (svc *service) QueryWorkoutLogs(ctx context.Context, userID string, tr TimeRange, page core.Page) ([]WorkoutLog, int, error) {
	return svc.repo.QueryWorkoutLogs(ctx, userID, tr, page)
}

func (svc *service) GetWorkoutLog(ctx context.Context, userID, id string) (WorkoutLog, error) {
	wl, err := svc.repo.GetWorkoutLog(ctx, id)
	if err != nil {
		return WorkoutLog{}, err
	}
	if wl.UserID != userID {
		return WorkoutLog{}, ErrWorkoutLogNotFound
	}
	return wl, nil
}

func (svc *service) DeleteWorkoutLog(ctx context.Context, userID, id string) error {
	return svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := svc.GetWorkoutLog(ctx, userID, id); err != nil {
			return err
		}
		return svc.repo.DeleteWorkoutLog(ctx, id)
	})
}

// Nutrition

func (svc *service) AddFoodEntry(ctx context.Context, userID string, nf NewFoodEntry) (FoodEntry, error) {
	now := core.NowFunc().UTC()
	fe := FoodEntry{
		UserID:        userID,
		Date:          core.DateOf(now),
		Meal:          nf.Meal,
		Name:          nf.Name,
		QuantityGrams: nf.QuantityGrams,
		CreatedAt:     now,
	}
	if nf.Date != "" {
		d, err := time.Parse("2006-01-02", nf.Date)
		if err != nil {
			return FoodEntry{}, core.NewValidationError(nil, core.FieldError{Field: "date", Error: "expected YYYY-MM-DD"})
		}
		fe.Date = d
	}

	if nf.IngredientID != nil {
		ing, err := svc.ingredients.GetIngredient(ctx, *nf.IngredientID)
		if err != nil {
			if core.IsNotFound(err) {
				return FoodEntry{}, core.NewValidationError(nil, core.FieldError{Field: "ingredient_id", Error: "ingredient not found"})
			}
			return FoodEntry{}, errors.Wrap(err, "finding ingredient by ID")
		}
		fe.IngredientID = &ing.ID
		if fe.Name == "" {
			fe.Name = ing.Name
		}
		fe.Macros = ing.Per100g.ForQuantity(nf.QuantityGrams)
	} else {
		fe.Macros = *nf.Macros
	}

	fe, err := svc.repo.CreateFoodEntry(ctx, fe)
	if err != nil {
		return FoodEntry{}, errors.Wrap(err, "creating food entry")
	}
	svc.evaluate(ctx, userID, KindNutritionDays)
	return fe, nil
}

func (svc *service) QueryFoodEntries(ctx context.Context, userID string, tr TimeRange) ([]FoodEntry, error) {
	return svc.repo.QueryFoodEntries(ctx, userID, tr)
}

func (svc *service) DeleteFoodEntry(ctx context.Context, userID, id string) error {
	return svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		fe, err := svc.repo.GetFoodEntry(ctx, id)
		if err != nil {
			return err
		}
		if fe.UserID != userID {
			return ErrFoodEntryNotFound
		}
		return svc.repo.DeleteFoodEntry(ctx, id)
	})
}

// DailyNutrition totals the user's food entries of date per meal and overall.
func (svc *service) DailyNutrition(ctx context.Context, userID string, date time.Time) (DailyNutrition, error) {
	day := core.DateOf(date)
	entries, err := svc.repo.QueryFoodEntries(ctx, userID, TimeRange{From: day, To: day})
	if err != nil {
		return DailyNutrition{}, errors.Wrap(err, "querying food entries")
	}
	return dailyNutrition(day, entries), nil
}

func dailyNutrition(day time.Time, entries []FoodEntry) DailyNutrition {
	dn := DailyNutrition{Date: day.Format("2006-01-02"), Meals: make([]MealTotals, 0, len(Meals))}
	var total nutrition.Macros
	for _, meal := range Meals {
		mt := MealTotals{Meal: meal, Entries: []FoodEntry{}}
		var mealTotal nutrition.Macros
		for _, fe := range entries {
			if fe.Meal == meal {
				mt.Entries = append(mt.Entries, fe)
				mealTotal = mealTotal.Add(fe.Macros)
			}
		}
		total = total.Add(mealTotal)
		mt.Total = mealTotal.Rounded()
		dn.Meals = append(dn.Meals, mt)
	}
	dn.Total = total.Rounded()
	return dn
}

// Measurements

func (svc *service) LogMeasurement(ctx context.Context, userID string, nm NewMeasurement) (Measurement, error) {
	now := core.NowFunc().UTC()
	m := Measurement{
		UserID:     userID,
		MeasuredAt: nm.MeasuredAt.UTC(),
		WeightKg:   nm.WeightKg,
		BodyFatPct: nm.BodyFatPct,
		ChestCm:    nm.ChestCm,
		WaistCm:    nm.WaistCm,
		HipsCm:     nm.HipsCm,
		ArmCm:      nm.ArmCm,
		ThighCm:    nm.ThighCm,
		Notes:      nm.Notes,
		CreatedAt:  now,
	}
	if nm.MeasuredAt.IsZero() {
		m.MeasuredAt = now
	}
	m, err := svc.repo.CreateMeasurement(ctx, m)
	if err != nil {
		return Measurement{}, errors.Wrap(err, "creating measurement")
	}
	svc.evaluate(ctx, userID, KindMeasurementCount)
	return m, nil
}

func (svc *service) QueryMeasurements(ctx context.Context, userID string, tr TimeRange, page core.Page) ([]Measurement, int, error) {
	return svc.repo.QueryMeasurements(ctx, userID, tr, page)
}

func (svc *service) DeleteMeasurement(ctx context.Context, userID, id string) error {
	return svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		m, err := svc.repo.GetMeasurement(ctx, id)
		if err != nil {
			return err
		}
		if m.UserID != userID {
			return ErrMeasurementNotFound
		}
		return svc.repo.DeleteMeasurement(ctx, id)
	})
}

// Progress compares the first and the latest measurement within tr.
func (svc *service) Progress(ctx context.Context, userID string, tr TimeRange) (Progress, error) {
	ms, _, err := svc.repo.QueryMeasurements(ctx, userID, tr, core.Page{})
	if err != nil {
		return Progress{}, errors.Wrap(err, "querying measurements")
	}
	var p Progress
	if len(ms) == 0 {
		return p, nil
	}
	latest, first := ms[0], ms[len(ms)-1]
	p.First = &first
	p.Latest = &latest
	p.WeightChangeKg = diff(first.WeightKg, latest.WeightKg)
	p.BodyFatChangePct = diff(first.BodyFatPct, latest.BodyFatPct)
	p.WaistChangeCm = diff(first.WaistCm, latest.WaistCm)
	return p, nil
}

func diff(from, to *float64) *float64 {
	if from == nil || to == nil {
		return nil
	}
	d := core.Round1(*to - *from)
	return &d
}

// Dashboard

func (svc *service) Dashboard(ctx context.Context, userID string, now time.Time) (Dashboard, error) {
	var d Dashboard
	var err error

	if d.TotalWorkouts, err = svc.repo.CountWorkoutLogs(ctx, userID, TimeRange{}); err != nil {
		return Dashboard{}, errors.Wrap(err, "counting workout logs")
	}
	weekAgo := core.DateOf(now).AddDate(0, 0, -6)
	if d.WorkoutsLast7Days, err = svc.repo.CountWorkoutLogs(ctx, userID, TimeRange{From: weekAgo, To: now}); err != nil {
		return Dashboard{}, errors.Wrap(err, "counting workout logs")
	}
	days, err := svc.repo.WorkoutDays(ctx, userID)
	if err != nil {
		return Dashboard{}, errors.Wrap(err, "listing workout days")
	}
	d.CurrentStreak = Streak(days)

	ms, _, err := svc.repo.QueryMeasurements(ctx, userID, TimeRange{}, core.Page{Number: 1, Size: 1})
	if err != nil {
		return Dashboard{}, errors.Wrap(err, "querying measurements")
	}
	if len(ms) > 0 {
		d.LatestMeasurement = &ms[0]
	}

	dn, err := svc.DailyNutrition(ctx, userID, now)
	if err != nil {
		return Dashboard{}, err
	}
	d.TodayNutrition = dn.Total

	if d.Achievements, err = svc.repo.ListUserAchievements(ctx, userID); err != nil {
		return Dashboard{}, errors.Wrap(err, "listing user achievements")
	}
	if d.ActiveSubscriptions, err = svc.subscriptions.ActiveFor(ctx, userID, now); err != nil {
		return Dashboard{}, errors.Wrap(err, "listing active subscriptions")
	}
	return d, nil
}

package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/forma/core"
	"github.com/trezcool/forma/core/tracking"
	"github.com/trezcool/forma/core/training"
)

type trainingRepository struct {
	db *DB
}

var _ training.Repository = (*trainingRepository)(nil)

func NewTrainingRepository(db *DB) training.Repository {
	return &trainingRepository{db: db}
}

// Exercises

func (repo *trainingRepository) CreateExercise(ctx context.Context, e training.Exercise) (training.Exercise, error) {
	defer repo.db.lock(ctx)()

	e.ID = newID()
	repo.db.tbl(tblExercises).put(e.ID, e)
	return e, nil
}

func (repo *trainingRepository) QueryExercises(
	ctx context.Context,
	filter training.ExerciseFilter,
	ordering []core.DBOrdering,
	page core.Page,
) ([]training.Exercise, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	es := make([]training.Exercise, 0)
	repo.db.tbl(tblExercises).each(func(v interface{}) {
		e := v.(training.Exercise)
		if filter.Search != "" && !containsFold(e.Name, filter.Search) && !containsFold(e.Description, filter.Search) {
			return
		}
		if filter.MuscleGroup != "" && e.MuscleGroup != filter.MuscleGroup {
			return
		}
		es = append(es, e)
	})

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "name", Ascending: true}}
	}
	orderRows(es, core.AllowedOrdering(ordering, training.ExerciseOrderingFields), func(i int, field string) interface{} {
		switch field {
		case "name":
			return es[i].Name
		case "muscle_group":
			return es[i].MuscleGroup
		case "equipment":
			return es[i].Equipment
		default:
			return es[i].CreatedAt
		}
	})

	start, end := page.Window(len(es))
	return es[start:end], len(es), nil
}

func (repo *trainingRepository) GetExercise(ctx context.Context, id string) (training.Exercise, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if v, ok := repo.db.tbl(tblExercises).get(id); ok {
		return v.(training.Exercise), nil
	}
	return training.Exercise{}, training.ErrExerciseNotFound
}

func (repo *trainingRepository) UpdateExercise(ctx context.Context, e training.Exercise) (training.Exercise, error) {
	defer repo.db.lock(ctx)()

	if _, ok := repo.db.tbl(tblExercises).get(e.ID); !ok {
		return training.Exercise{}, training.ErrExerciseNotFound
	}
	repo.db.tbl(tblExercises).put(e.ID, e)
	return e, nil
}

func (repo *trainingRepository) DeleteExercise(ctx context.Context, id string) error {
	defer repo.db.lock(ctx)()

	if !repo.db.tbl(tblExercises).del(id) {
		return training.ErrExerciseNotFound
	}
	return nil
}

func (repo *trainingRepository) CountExerciseUses(ctx context.Context, exerciseID string) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	n := countWhere(repo.db.tbl(tblWorkoutExercises), func(v interface{}) bool {
		return v.(training.WorkoutExercise).ExerciseID == exerciseID
	})
	// logged sets keep their exercise
	n += countWhere(repo.db.tbl(tblWorkoutLogs), func(v interface{}) bool {
		for _, s := range v.(tracking.WorkoutLog).Sets {
			if s.ExerciseID == exerciseID {
				return true
			}
		}
		return false
	})
	return n, nil
}

// Workouts

func (repo *trainingRepository) CreateWorkout(ctx context.Context, w training.Workout) (training.Workout, error) {
	defer repo.db.lock(ctx)()

	w.ID = newID()
	w.Exercises = nil
	repo.db.tbl(tblWorkouts).put(w.ID, w)
	return w, nil
}

func (repo *trainingRepository) QueryWorkouts(
	ctx context.Context,
	filter training.WorkoutFilter,
	ordering []core.DBOrdering,
	page core.Page,
) ([]training.Workout, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	ws := make([]training.Workout, 0)
	repo.db.tbl(tblWorkouts).each(func(v interface{}) {
		w := v.(training.Workout)
		if filter.Search != "" && !containsFold(w.Name, filter.Search) && !containsFold(w.Description, filter.Search) {
			return
		}
		if filter.Difficulty != "" && w.Difficulty != filter.Difficulty {
			return
		}
		ws = append(ws, w)
	})

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "name", Ascending: true}}
	}
	orderRows(ws, core.AllowedOrdering(ordering, training.WorkoutOrderingFields), func(i int, field string) interface{} {
		switch field {
		case "name":
			return ws[i].Name
		case "difficulty":
			return ws[i].Difficulty
		case "estimated_minutes":
			return ws[i].EstimatedMinutes
		default:
			return ws[i].CreatedAt
		}
	})

	start, end := page.Window(len(ws))
	return ws[start:end], len(ws), nil
}

func (repo *trainingRepository) workoutExercises(workoutID string) []training.WorkoutExercise {
	items := make([]training.WorkoutExercise, 0)
	repo.db.tbl(tblWorkoutExercises).each(func(v interface{}) {
		if we := v.(training.WorkoutExercise); we.WorkoutID == workoutID {
			items = append(items, we)
		}
	})
	sort.SliceStable(items, func(i, j int) bool { return items[i].Position < items[j].Position })
	return items
}

func (repo *trainingRepository) GetWorkout(ctx context.Context, id string) (training.Workout, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	v, ok := repo.db.tbl(tblWorkouts).get(id)
	if !ok {
		return training.Workout{}, training.ErrWorkoutNotFound
	}
	w := v.(training.Workout)
	w.Exercises = repo.workoutExercises(id)
	return w, nil
}

func (repo *trainingRepository) UpdateWorkout(ctx context.Context, w training.Workout) (training.Workout, error) {
	defer repo.db.lock(ctx)()

	if _, ok := repo.db.tbl(tblWorkouts).get(w.ID); !ok {
		return training.Workout{}, training.ErrWorkoutNotFound
	}
	w.Exercises = nil
	repo.db.tbl(tblWorkouts).put(w.ID, w)
	return w, nil
}

func (repo *trainingRepository) DeleteWorkout(ctx context.Context, id string) error {
	defer repo.db.lock(ctx)()

	if !repo.db.tbl(tblWorkouts).del(id) {
		return training.ErrWorkoutNotFound
	}
	deleteWhere(repo.db.tbl(tblWorkoutExercises), func(v interface{}) bool {
		return v.(training.WorkoutExercise).WorkoutID == id
	})

	// workout logs keep their history: ON DELETE SET NULL
	logs := repo.db.tbl(tblWorkoutLogs)
	for _, k := range logs.keys {
		wl := logs.rows[k].(tracking.WorkoutLog)
		if wl.WorkoutID != nil && *wl.WorkoutID == id {
			wl.WorkoutID = nil
			logs.put(k, wl)
		}
	}
	return nil
}

func (repo *trainingRepository) ReplaceWorkoutExercises(
	ctx context.Context,
	workoutID string,
	exercises []training.WorkoutExercise,
) ([]training.WorkoutExercise, error) {
	defer repo.db.lock(ctx)()

	if _, ok := repo.db.tbl(tblWorkouts).get(workoutID); !ok {
		return nil, training.ErrWorkoutNotFound
	}
	deleteWhere(repo.db.tbl(tblWorkoutExercises), func(v interface{}) bool {
		return v.(training.WorkoutExercise).WorkoutID == workoutID
	})

	items := make([]training.WorkoutExercise, 0, len(exercises))
	for _, we := range exercises {
		we.ID = newID()
		we.WorkoutID = workoutID
		repo.db.tbl(tblWorkoutExercises).put(we.ID, we)
		items = append(items, we)
	}
	return items, nil
}

func (repo *trainingRepository) CountWorkoutUses(ctx context.Context, workoutID string) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	return countWhere(repo.db.tbl(tblProgramWorkouts), func(v interface{}) bool {
		return v.(training.ProgramWorkout).WorkoutID == workoutID
	}), nil
}

// Programs

func (repo *trainingRepository) CreateProgram(ctx context.Context, p training.Program) (training.Program, error) {
	defer repo.db.lock(ctx)()

	p.ID = newID()
	repo.db.tbl(tblPrograms).put(p.ID, p)
	return p, nil
}

func (repo *trainingRepository) QueryPrograms(
	ctx context.Context,
	filter training.ProgramFilter,
	ordering []core.DBOrdering,
	page core.Page,
) ([]training.Program, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	ps := make([]training.Program, 0)
	repo.db.tbl(tblPrograms).each(func(v interface{}) {
		p := v.(training.Program)
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
	orderRows(ps, core.AllowedOrdering(ordering, training.ProgramOrderingFields), func(i int, field string) interface{} {
		switch field {
		case "name":
			return ps[i].Name
		case "duration_weeks":
			return ps[i].DurationWeeks
		case "published":
			return ps[i].Published
		default:
			return ps[i].CreatedAt
		}
	})

	start, end := page.Window(len(ps))
	return ps[start:end], len(ps), nil
}

func (repo *trainingRepository) GetProgram(ctx context.Context, id string) (training.Program, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if v, ok := repo.db.tbl(tblPrograms).get(id); ok {
		return v.(training.Program), nil
	}
	return training.Program{}, training.ErrProgramNotFound
}

func (repo *trainingRepository) UpdateProgram(ctx context.Context, p training.Program) (training.Program, error) {
	defer repo.db.lock(ctx)()

	if _, ok := repo.db.tbl(tblPrograms).get(p.ID); !ok {
		return training.Program{}, training.ErrProgramNotFound
	}
	repo.db.tbl(tblPrograms).put(p.ID, p)
	return p, nil
}

func (repo *trainingRepository) DeleteProgram(ctx context.Context, id string) error {
	defer repo.db.lock(ctx)()

	if !repo.db.tbl(tblPrograms).del(id) {
		return training.ErrProgramNotFound
	}
	deleteWhere(repo.db.tbl(tblPeriods), func(v interface{}) bool { return v.(training.Period).ProgramID == id })
	weeks := deleteWhere(repo.db.tbl(tblWeeks), func(v interface{}) bool { return v.(training.Week).ProgramID == id })
	repo.deleteWeekWorkouts(weeks)
	return nil
}

func (repo *trainingRepository) deleteWeekWorkouts(weekIDs []string) {
	if len(weekIDs) == 0 {
		return
	}
	isWeek := inKeys(weekIDs)
	deleteWhere(repo.db.tbl(tblProgramWorkouts), func(v interface{}) bool {
		return isWeek(v.(training.ProgramWorkout).WeekID)
	})
}

// Periods

func (repo *trainingRepository) CreatePeriod(ctx context.Context, p training.Period) (training.Period, error) {
	defer repo.db.lock(ctx)()

	p.ID = newID()
	repo.db.tbl(tblPeriods).put(p.ID, p)
	return p, nil
}

func (repo *trainingRepository) ListPeriods(ctx context.Context, programID string) ([]training.Period, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	periods := make([]training.Period, 0)
	repo.db.tbl(tblPeriods).each(func(v interface{}) {
		if p := v.(training.Period); p.ProgramID == programID {
			periods = append(periods, p)
		}
	})
	sort.SliceStable(periods, func(i, j int) bool { return periods[i].StartWeek < periods[j].StartWeek })
	return periods, nil
}

func (repo *trainingRepository) GetPeriod(ctx context.Context, id string) (training.Period, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if v, ok := repo.db.tbl(tblPeriods).get(id); ok {
		return v.(training.Period), nil
	}
	return training.Period{}, training.ErrPeriodNotFound
}

func (repo *trainingRepository) UpdatePeriod(ctx context.Context, p training.Period) (training.Period, error) {
	defer repo.db.lock(ctx)()

	if _, ok := repo.db.tbl(tblPeriods).get(p.ID); !ok {
		return training.Period{}, training.ErrPeriodNotFound
	}
	repo.db.tbl(tblPeriods).put(p.ID, p)
	return p, nil
}

func (repo *trainingRepository) DeletePeriod(ctx context.Context, id string) error {
	defer repo.db.lock(ctx)()

	if !repo.db.tbl(tblPeriods).del(id) {
		return training.ErrPeriodNotFound
	}
	weeks := deleteWhere(repo.db.tbl(tblWeeks), func(v interface{}) bool { return v.(training.Week).PeriodID == id })
	repo.deleteWeekWorkouts(weeks)
	return nil
}

// Weeks

func (repo *trainingRepository) CreateWeek(ctx context.Context, w training.Week) (training.Week, error) {
	defer repo.db.lock(ctx)()

	w.ID = newID()
	repo.db.tbl(tblWeeks).put(w.ID, w)
	return w, nil
}

func (repo *trainingRepository) ListWeeks(ctx context.Context, programID string) ([]training.Week, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	weeks := make([]training.Week, 0)
	repo.db.tbl(tblWeeks).each(func(v interface{}) {
		if w := v.(training.Week); w.ProgramID == programID {
			weeks = append(weeks, w)
		}
	})
	sort.SliceStable(weeks, func(i, j int) bool { return weeks[i].Number < weeks[j].Number })
	return weeks, nil
}

func (repo *trainingRepository) GetWeek(ctx context.Context, id string) (training.Week, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if v, ok := repo.db.tbl(tblWeeks).get(id); ok {
		return v.(training.Week), nil
	}
	return training.Week{}, training.ErrWeekNotFound
}

func (repo *trainingRepository) DeleteWeek(ctx context.Context, id string) error {
	defer repo.db.lock(ctx)()

	if !repo.db.tbl(tblWeeks).del(id) {
		return training.ErrWeekNotFound
	}
	repo.deleteWeekWorkouts([]string{id})
	return nil
}

// Program workouts

func (repo *trainingRepository) CreateProgramWorkout(ctx context.Context, pw training.ProgramWorkout) (training.ProgramWorkout, error) {
	defer repo.db.lock(ctx)()

	pw.ID = newID()
	repo.db.tbl(tblProgramWorkouts).put(pw.ID, pw)
	return pw, nil
}

func (repo *trainingRepository) ListProgramWorkouts(ctx context.Context, programID string) ([]training.ProgramWorkout, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var weekIDs []string
	repo.db.tbl(tblWeeks).each(func(v interface{}) {
		if w := v.(training.Week); w.ProgramID == programID {
			weekIDs = append(weekIDs, w.ID)
		}
	})
	isWeek := inKeys(weekIDs)

	pws := make([]training.ProgramWorkout, 0)
	repo.db.tbl(tblProgramWorkouts).each(func(v interface{}) {
		if pw := v.(training.ProgramWorkout); isWeek(pw.WeekID) {
			pws = append(pws, pw)
		}
	})
	return pws, nil
}

func (repo *trainingRepository) GetProgramWorkout(ctx context.Context, id string) (training.ProgramWorkout, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if v, ok := repo.db.tbl(tblProgramWorkouts).get(id); ok {
		return v.(training.ProgramWorkout), nil
	}
	return training.ProgramWorkout{}, training.ErrProgramWorkoutNotFound
}

func (repo *trainingRepository) UpdateProgramWorkout(ctx context.Context, pw training.ProgramWorkout) (training.ProgramWorkout, error) {
	defer repo.db.lock(ctx)()

	if _, ok := repo.db.tbl(tblProgramWorkouts).get(pw.ID); !ok {
		return training.ProgramWorkout{}, training.ErrProgramWorkoutNotFound
	}
	repo.db.tbl(tblProgramWorkouts).put(pw.ID, pw)
	return pw, nil
}

func (repo *trainingRepository) DeleteProgramWorkout(ctx context.Context, id string) error {
	defer repo.db.lock(ctx)()

	if !repo.db.tbl(tblProgramWorkouts).del(id) {
		return training.ErrProgramWorkoutNotFound
	}
	return nil
}

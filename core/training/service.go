package training

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/forma/core"
)

var (
	// errors
	ErrExerciseNotFound       = core.NewNotFoundError("exercise")
	ErrWorkoutNotFound        = core.NewNotFoundError("workout")
	ErrProgramNotFound        = core.NewNotFoundError("program")
	ErrPeriodNotFound         = core.NewNotFoundError("period")
	ErrWeekNotFound           = core.NewNotFoundError("week")
	ErrProgramWorkoutNotFound = core.NewNotFoundError("program workout")
	ErrExerciseInUse          = core.NewConflictError("exercise is used by workouts or workout logs and cannot be deleted")
	ErrWorkoutInUse           = core.NewConflictError("workout is scheduled in programs and cannot be deleted")
)

type (
	Repository interface {
		CreateExercise(ctx context.Context, e Exercise) (Exercise, error)
		QueryExercises(ctx context.Context, filter ExerciseFilter, ordering []core.DBOrdering, page core.Page) ([]Exercise, int, error)
		GetExercise(ctx context.Context, id string) (Exercise, error)
		UpdateExercise(ctx context.Context, e Exercise) (Exercise, error)
		DeleteExercise(ctx context.Context, id string) error
		CountExerciseUses(ctx context.Context, exerciseID string) (int, error)

		CreateWorkout(ctx context.Context, w Workout) (Workout, error)
		QueryWorkouts(ctx context.Context, filter WorkoutFilter, ordering []core.DBOrdering, page core.Page) ([]Workout, int, error)
		// GetWorkout returns the workout with its exercises ordered by position.
		GetWorkout(ctx context.Context, id string) (Workout, error)
		UpdateWorkout(ctx context.Context, w Workout) (Workout, error)
		DeleteWorkout(ctx context.Context, id string) error
		ReplaceWorkoutExercises(ctx context.Context, workoutID string, exercises []WorkoutExercise) ([]WorkoutExercise, error)
		CountWorkoutUses(ctx context.Context, workoutID string) (int, error)

		CreateProgram(ctx context.Context, p Program) (Program, error)
		QueryPrograms(ctx context.Context, filter ProgramFilter, ordering []core.DBOrdering, page core.Page) ([]Program, int, error)
		GetProgram(ctx context.Context, id string) (Program, error)
		UpdateProgram(ctx context.Context, p Program) (Program, error)
		// DeleteProgram cascades to periods, weeks and program workouts.
		DeleteProgram(ctx context.Context, id string) error

		CreatePeriod(ctx context.Context, p Period) (Period, error)
		ListPeriods(ctx context.Context, programID string) ([]Period, error)
		GetPeriod(ctx context.Context, id string) (Period, error)
		UpdatePeriod(ctx context.Context, p Period) (Period, error)
		// DeletePeriod cascades to weeks and program workouts.
		DeletePeriod(ctx context.Context, id string) error

		CreateWeek(ctx context.Context, w Week) (Week, error)
		ListWeeks(ctx context.Context, programID string) ([]Week, error)
		GetWeek(ctx context.Context, id string) (Week, error)
		// DeleteWeek cascades to program workouts.
		DeleteWeek(ctx context.Context, id string) error

		CreateProgramWorkout(ctx context.Context, pw ProgramWorkout) (ProgramWorkout, error)
		ListProgramWorkouts(ctx context.Context, programID string) ([]ProgramWorkout, error)
		GetProgramWorkout(ctx context.Context, id string) (ProgramWorkout, error)
		UpdateProgramWorkout(ctx context.Context, pw ProgramWorkout) (ProgramWorkout, error)
		DeleteProgramWorkout(ctx context.Context, id string) error
	}

	Service interface {
		CreateExercise(ctx context.Context, ne NewExercise) (Exercise, error)
		QueryExercises(ctx context.Context, filter ExerciseFilter, ordering []core.DBOrdering, page core.Page) ([]Exercise, int, error)
		GetExercise(ctx context.Context, id string) (Exercise, error)
		UpdateExercise(ctx context.Context, e Exercise, ne NewExercise) (Exercise, error)
		DeleteExercise(ctx context.Context, id string) error

		CreateWorkout(ctx context.Context, nw NewWorkout) (Workout, error)
		QueryWorkouts(ctx context.Context, filter WorkoutFilter, ordering []core.DBOrdering, page core.Page) ([]Workout, int, error)
		GetWorkout(ctx context.Context, id string) (Workout, error)
		UpdateWorkout(ctx context.Context, w Workout, nw NewWorkout) (Workout, error)
		SetWorkoutExercises(ctx context.Context, workoutID string, exercises []NewWorkoutExercise) (Workout, error)
		DeleteWorkout(ctx context.Context, id string) error

		CreateProgram(ctx context.Context, np NewProgram) (Program, error)
		QueryPrograms(ctx context.Context, filter ProgramFilter, ordering []core.DBOrdering, page core.Page) ([]Program, int, error)
		GetProgram(ctx context.Context, id string) (Program, error)
		UpdateProgram(ctx context.Context, p Program, np NewProgram) (Program, error)
		DeleteProgram(ctx context.Context, id string) error

		AddPeriod(ctx context.Context, programID string, np NewPeriod) (Period, error)
		UpdatePeriod(ctx context.Context, programID, periodID string, np NewPeriod) (Period, error)
		DeletePeriod(ctx context.Context, programID, periodID string) error
		ListPeriods(ctx context.Context, programID string) ([]Period, error)
		AddProgramWorkout(ctx context.Context, programID, weekID string, npw NewProgramWorkout) (ProgramWorkout, error)
		RemoveProgramWorkout(ctx context.Context, programID, programWorkoutID string) error
		EditProgramWorkoutExercises(ctx context.Context, programID, programWorkoutID string, exercises []NewWorkoutExercise) (ProgramWorkout, Workout, error)
		ProgramSchedule(ctx context.Context, programID string) (Schedule, error)
	}

	service struct {
		repo Repository
		tx   core.Transactor
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, tx core.Transactor) Service {
	return &service{repo: repo, tx: tx}
}

// Exercises

func (svc *service) CreateExercise(ctx context.Context, ne NewExercise) (Exercise, error) {
	now := core.NowFunc().UTC()
	e := Exercise{CreatedAt: now, UpdatedAt: now}
	return svc.repo.CreateExercise(ctx, applyExercise(e, ne))
}

func (svc *service) QueryExercises(ctx context.Context, filter ExerciseFilter, ordering []core.DBOrdering, page core.Page) ([]Exercise, int, error) {
	filter.Search = core.CleanString(filter.Search)
	return svc.repo.QueryExercises(ctx, filter, ordering, page)
}

func (svc *service) GetExercise(ctx context.Context, id string) (Exercise, error) {
	return svc.repo.GetExercise(ctx, id)
}

func (svc *service) UpdateExercise(ctx context.Context, e Exercise, ne NewExercise) (Exercise, error) {
	e = applyExercise(e, ne)
	e.UpdatedAt = core.NowFunc().UTC()
	return svc.repo.UpdateExercise(ctx, e)
}

func applyExercise(e Exercise, ne NewExercise) Exercise {
	e.Name = ne.Name
	e.Description = ne.Description
	e.MuscleGroup = ne.MuscleGroup
	e.Equipment = ne.Equipment
	e.VideoID = ne.VideoID
	return e
}

func (svc *service) DeleteExercise(ctx context.Context, id string) error {
	return svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		n, err := svc.repo.CountExerciseUses(ctx, id)
		if err != nil {
			return errors.Wrap(err, "counting exercise uses")
		}
		if n > 0 {
			return ErrExerciseInUse
		}
		return svc.repo.DeleteExercise(ctx, id)
	})
}

// Workouts

func (svc *service) CreateWorkout(ctx context.Context, nw NewWorkout) (Workout, error) {
	var w Workout
	err := svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		now := core.NowFunc().UTC()
		var err error
		w, err = svc.repo.CreateWorkout(ctx, applyWorkout(Workout{CreatedAt: now, UpdatedAt: now}, nw))
		if err != nil {
			return errors.Wrap(err, "creating workout")
		}
		w.Exercises, err = svc.replaceExercises(ctx, w.ID, nw.Exercises)
		return err
	})
	return w, err
}

func (svc *service) QueryWorkouts(ctx context.Context, filter WorkoutFilter, ordering []core.DBOrdering, page core.Page) ([]Workout, int, error) {
	filter.Search = core.CleanString(filter.Search)
	return svc.repo.QueryWorkouts(ctx, filter, ordering, page)
}

func (svc *service) GetWorkout(ctx context.Context, id string) (Workout, error) {
	return svc.repo.GetWorkout(ctx, id)
}

// UpdateWorkout replaces the workout's attributes, and its exercises when nw.Exercises is not nil.
// The change is seen by every program the workout is scheduled in.
func (svc *service) UpdateWorkout(ctx context.Context, w Workout, nw NewWorkout) (Workout, error) {
	err := svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		exercises := w.Exercises
		w = applyWorkout(w, nw)
		w.UpdatedAt = core.NowFunc().UTC()
		var err error
		if w, err = svc.repo.UpdateWorkout(ctx, w); err != nil {
			return errors.Wrap(err, "updating workout")
		}
		if nw.Exercises == nil {
			w.Exercises = exercises
			return nil
		}
		w.Exercises, err = svc.replaceExercises(ctx, w.ID, nw.Exercises)
		return err
	})
	return w, err
}

func applyWorkout(w Workout, nw NewWorkout) Workout {
	w.Name = nw.Name
	w.Description = nw.Description
	w.Difficulty = nw.Difficulty
	w.EstimatedMinutes = nw.EstimatedMinutes
	return w
}

func (svc *service) SetWorkoutExercises(ctx context.Context, workoutID string, exercises []NewWorkoutExercise) (Workout, error) {
	var w Workout
	err := svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if w, err = svc.repo.GetWorkout(ctx, workoutID); err != nil {
			return err
		}
		w.Exercises, err = svc.replaceExercises(ctx, w.ID, exercises)
		return err
	})
	return w, err
}

// replaceExercises checks that every referenced exercise exists and stores the list in order.
func (svc *service) replaceExercises(ctx context.Context, workoutID string, exercises []NewWorkoutExercise) ([]WorkoutExercise, error) {
	items := make([]WorkoutExercise, 0, len(exercises))
	for i, ne := range exercises {
		if _, err := svc.repo.GetExercise(ctx, ne.ExerciseID); err != nil {
			if core.IsNotFound(err) {
				return nil, core.NewValidationError(nil, core.FieldError{Field: "exercises", Error: "exercise " + ne.ExerciseID + " not found"})
			}
			return nil, errors.Wrap(err, "finding exercise by ID")
		}
		items = append(items, WorkoutExercise{
			WorkoutID:   workoutID,
			ExerciseID:  ne.ExerciseID,
			Position:    i + 1,
			Sets:        ne.Sets,
			Reps:        core.CleanString(ne.Reps),
			RestSeconds: ne.RestSeconds,
			Notes:       core.CleanString(ne.Notes),
		})
	}
	return svc.repo.ReplaceWorkoutExercises(ctx, workoutID, items)
}

func (svc *service) DeleteWorkout(ctx context.Context, id string) error {
	return svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		n, err := svc.repo.CountWorkoutUses(ctx, id)
		if err != nil {
			return errors.Wrap(err, "counting workout uses")
		}
		if n > 0 {
			return ErrWorkoutInUse
		}
		return svc.repo.DeleteWorkout(ctx, id)
	})
}

// Programs

func (svc *service) CreateProgram(ctx context.Context, np NewProgram) (Program, error) {
	now := core.NowFunc().UTC()
	p := applyProgram(Program{CreatedAt: now, UpdatedAt: now}, np)
	return svc.repo.CreateProgram(ctx, p)
}

func (svc *service) QueryPrograms(ctx context.Context, filter ProgramFilter, ordering []core.DBOrdering, page core.Page) ([]Program, int, error) {
	filter.Search = core.CleanString(filter.Search)
	return svc.repo.QueryPrograms(ctx, filter, ordering, page)
}

func (svc *service) GetProgram(ctx context.Context, id string) (Program, error) {
	return svc.repo.GetProgram(ctx, id)
}

// UpdateProgram refuses to shrink DurationWeeks below the end week of the last period.
func (svc *service) UpdateProgram(ctx context.Context, p Program, np NewProgram) (Program, error) {
	err := svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		if np.DurationWeeks < p.DurationWeeks {
			periods, err := svc.repo.ListPeriods(ctx, p.ID)
			if err != nil {
				return errors.Wrap(err, "listing periods")
			}
			if last := lastWeek(periods); np.DurationWeeks < last {
				return core.NewValidationError(nil, core.FieldError{
					Field: "duration_weeks",
					Error: "must be at least " + itoa(last) + " (end week of the last period)",
				})
			}
		}
		p = applyProgram(p, np)
		p.UpdatedAt = core.NowFunc().UTC()
		var err error
		p, err = svc.repo.UpdateProgram(ctx, p)
		return err
	})
	return p, err
}

func applyProgram(p Program, np NewProgram) Program {
	p.Name = np.Name
	p.Description = np.Description
	p.DurationWeeks = np.DurationWeeks
	p.MembershipID = np.MembershipID
	p.Published = np.Published
	return p
}

func (svc *service) DeleteProgram(ctx context.Context, id string) error {
	return svc.repo.DeleteProgram(ctx, id)
}

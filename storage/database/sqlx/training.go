package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/forma/core"
	"github.com/trezcool/forma/core/training"
)

const (
	exerciseColumns        = "id, name, description, muscle_group, equipment, video_id, created_at, updated_at"
	workoutColumns         = "id, name, description, difficulty, estimated_minutes, created_at, updated_at"
	workoutExerciseColumns = "id, workout_id, exercise_id, position, sets, reps, rest_seconds, notes"
	programColumns         = "id, name, description, duration_weeks, membership_id, published, created_at, updated_at"
	periodColumns          = "id, program_id, name, start_week, end_week"
	weekColumns            = "id, program_id, period_id, number"
	programWorkoutColumns  = "id, week_id, workout_id, day_of_week, position"
)

type trainingRepository struct {
	repository
}

var _ training.Repository = (*trainingRepository)(nil)

func NewTrainingRepository(db *sqlx.DB) training.Repository {
	return &trainingRepository{repository{db: db}}
}

// Exercises

func (repo *trainingRepository) CreateExercise(ctx context.Context, e training.Exercise) (training.Exercise, error) {
	e.ID = newID()
	err := namedExec(ctx, repo.ext(ctx), nil, `
		INSERT INTO exercises (`+exerciseColumns+`)
		VALUES (:id, :name, :description, :muscle_group, :equipment, :video_id, :created_at, :updated_at)`,
		e,
	)
	if err != nil {
		return training.Exercise{}, errors.Wrap(err, "inserting exercise")
	}
	return e, nil
}

func (repo *trainingRepository) QueryExercises(
	ctx context.Context,
	filter training.ExerciseFilter,
	ordering []core.DBOrdering,
	page core.Page,
) ([]training.Exercise, int, error) {
	var w conds
	if filter.Search != "" {
		p := likePattern(filter.Search)
		w.add("(name ILIKE ? OR description ILIKE ?)", p, p)
	}
	if filter.MuscleGroup != "" {
		w.add("muscle_group = ?", filter.MuscleGroup)
	}

	es := make([]training.Exercise, 0)
	order := orderBy(ordering, training.ExerciseOrderingFields, "name ASC")
	total, err := queryPage(ctx, repo.ext(ctx), &es, exerciseColumns, "exercises", w, order, page)
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying exercises")
	}
	return es, total, nil
}

func (repo *trainingRepository) GetExercise(ctx context.Context, id string) (training.Exercise, error) {
	var e training.Exercise
	err := get(ctx, repo.ext(ctx), &e, training.ErrExerciseNotFound, "SELECT "+exerciseColumns+" FROM exercises WHERE id = ?", id)
	return e, err
}

func (repo *trainingRepository) UpdateExercise(ctx context.Context, e training.Exercise) (training.Exercise, error) {
	err := namedExec(ctx, repo.ext(ctx), training.ErrExerciseNotFound, `
		UPDATE exercises SET
			name = :name, description = :description, muscle_group = :muscle_group,
			equipment = :equipment, video_id = :video_id, updated_at = :updated_at
		WHERE id = :id`,
		e,
	)
	if err != nil {
		return training.Exercise{}, err
	}
	return e, nil
}

func (repo *trainingRepository) DeleteExercise(ctx context.Context, id string) error {
	return exec(ctx, repo.ext(ctx), training.ErrExerciseNotFound, "DELETE FROM exercises WHERE id = ?", id)
}

func (repo *trainingRepository) CountExerciseUses(ctx context.Context, exerciseID string) (int, error) {
	return count(ctx, repo.ext(ctx), `
		SELECT (SELECT COUNT(*) FROM workout_exercises WHERE exercise_id = ?)
			+ (SELECT COUNT(*) FROM set_logs WHERE exercise_id = ?)`,
		exerciseID, exerciseID,
	)
}

// Workouts

func (repo *trainingRepository) CreateWorkout(ctx context.Context, w training.Workout) (training.Workout, error) {
	w.ID = newID()
	w.Exercises = nil
	err := namedExec(ctx, repo.ext(ctx), nil, `
		INSERT INTO workouts (`+workoutColumns+`)
		VALUES (:id, :name, :description, :difficulty, :estimated_minutes, :created_at, :updated_at)`,
		w,
	)
	if err != nil {
		return training.Workout{}, errors.Wrap(err, "inserting workout")
	}
	return w, nil
}

func (repo *trainingRepository) QueryWorkouts(
	ctx context.Context,
	filter training.WorkoutFilter,
	ordering []core.DBOrdering,
	page core.Page,
) ([]training.Workout, int, error) {
	var w conds
	if filter.Search != "" {
		p := likePattern(filter.Search)
		w.add("(name ILIKE ? OR description ILIKE ?)", p, p)
	}
	if filter.Difficulty != "" {
		w.add("difficulty = ?", filter.Difficulty)
	}

	ws := make([]training.Workout, 0)
	order := orderBy(ordering, training.WorkoutOrderingFields, "name ASC")
	total, err := queryPage(ctx, repo.ext(ctx), &ws, workoutColumns, "workouts", w, order, page)
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying workouts")
	}
	return ws, total, nil
}

func (repo *trainingRepository) GetWorkout(ctx context.Context, id string) (training.Workout, error) {
	e := repo.ext(ctx)
	var w training.Workout
	if err := get(ctx, e, &w, training.ErrWorkoutNotFound, "SELECT "+workoutColumns+" FROM workouts WHERE id = ?", id); err != nil {
		return training.Workout{}, err
	}
	w.Exercises = make([]training.WorkoutExercise, 0)
	q := "SELECT " + workoutExerciseColumns + " FROM workout_exercises WHERE workout_id = ? ORDER BY position"
	if err := sqlx.SelectContext(ctx, e, &w.Exercises, e.Rebind(q), id); err != nil {
		return training.Workout{}, errors.Wrap(err, "selecting workout exercises")
	}
	return w, nil
}

func (repo *trainingRepository) UpdateWorkout(ctx context.Context, w training.Workout) (training.Workout, error) {
	err := namedExec(ctx, repo.ext(ctx), training.ErrWorkoutNotFound, `
		UPDATE workouts SET
			name = :name, description = :description, difficulty = :difficulty,
			estimated_minutes = :estimated_minutes, updated_at = :updated_at
		WHERE id = :id`,
		w,
	)
	if err != nil {
		return training.Workout{}, err
	}
	w.Exercises = nil
	return w, nil
}

func (repo *trainingRepository) DeleteWorkout(ctx context.Context, id string) error {
	return exec(ctx, repo.ext(ctx), training.ErrWorkoutNotFound, "DELETE FROM workouts WHERE id = ?", id)
}

func (repo *trainingRepository) ReplaceWorkoutExercises(
	ctx context.Context,
	workoutID string,
	exercises []training.WorkoutExercise,
) ([]training.WorkoutExercise, error) {
	e := repo.ext(ctx)
	if err := exec(ctx, e, nil, "DELETE FROM workout_exercises WHERE workout_id = ?", workoutID); err != nil {
		return nil, errors.Wrap(err, "deleting workout exercises")
	}

	items := make([]training.WorkoutExercise, 0, len(exercises))
	for _, we := range exercises {
		we.ID = newID()
		we.WorkoutID = workoutID
		err := namedExec(ctx, e, nil, `
			INSERT INTO workout_exercises (`+workoutExerciseColumns+`)
			VALUES (:id, :workout_id, :exercise_id, :position, :sets, :reps, :rest_seconds, :notes)`,
			we,
		)
		if err != nil {
			return nil, errors.Wrap(err, "inserting workout exercise")
		}
		items = append(items, we)
	}
	return items, nil
}

func (repo *trainingRepository) CountWorkoutUses(ctx context.Context, workoutID string) (int, error) {
	return count(ctx, repo.ext(ctx), "SELECT COUNT(*) FROM program_workouts WHERE workout_id = ?", workoutID)
}

// Programs

func (repo *trainingRepository) CreateProgram(ctx context.Context, p training.Program) (training.Program, error) {
	p.ID = newID()
	err := namedExec(ctx, repo.ext(ctx), nil, `
		INSERT INTO programs (`+programColumns+`)
		VALUES (:id, :name, :description, :duration_weeks, :membership_id, :published, :created_at, :updated_at)`,
		p,
	)
	if err != nil {
		return training.Program{}, errors.Wrap(err, "inserting program")
	}
	return p, nil
}

func (repo *trainingRepository) QueryPrograms(
	ctx context.Context,
	filter training.ProgramFilter,
	ordering []core.DBOrdering,
	page core.Page,
) ([]training.Program, int, error) {
	var w conds
	if filter.Search != "" {
		p := likePattern(filter.Search)
		w.add("(name ILIKE ? OR description ILIKE ?)", p, p)
	}
	if filter.Published != nil {
		w.add("published = ?", *filter.Published)
	}
	if filter.MembershipID != "" {
		w.add("membership_id = ?", filter.MembershipID)
	}

	ps := make([]training.Program, 0)
	order := orderBy(ordering, training.ProgramOrderingFields, "name ASC")
	total, err := queryPage(ctx, repo.ext(ctx), &ps, programColumns, "programs", w, order, page)
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying programs")
	}
	return ps, total, nil
}

func (repo *trainingRepository) GetProgram(ctx context.Context, id string) (training.Program, error) {
	var p training.Program
	err := get(ctx, repo.ext(ctx), &p, training.ErrProgramNotFound, "SELECT "+programColumns+" FROM programs WHERE id = ?", id)
	return p, err
}

func (repo *trainingRepository) UpdateProgram(ctx context.Context, p training.Program) (training.Program, error) {
	err := namedExec(ctx, repo.ext(ctx), training.ErrProgramNotFound, `
		UPDATE programs SET
			name = :name, description = :description, duration_weeks = :duration_weeks,
			membership_id = :membership_id, published = :published, updated_at = :updated_at
		WHERE id = :id`,
		p,
	)
	if err != nil {
		return training.Program{}, err
	}
	return p, nil
}

// DeleteProgram relies on ON DELETE CASCADE for periods, weeks and program workouts.
func (repo *trainingRepository) DeleteProgram(ctx context.Context, id string) error {
	return exec(ctx, repo.ext(ctx), training.ErrProgramNotFound, "DELETE FROM programs WHERE id = ?", id)
}

// Periods

func (repo *trainingRepository) CreatePeriod(ctx context.Context, p training.Period) (training.Period, error) {
	p.ID = newID()
	err := namedExec(ctx, repo.ext(ctx), nil, `
		INSERT INTO program_periods (`+periodColumns+`)
		VALUES (:id, :program_id, :name, :start_week, :end_week)`,
		p,
	)
	if err != nil {
		return training.Period{}, errors.Wrap(err, "inserting period")
	}
	return p, nil
}

func (repo *trainingRepository) ListPeriods(ctx context.Context, programID string) ([]training.Period, error) {
	e := repo.ext(ctx)
	periods := make([]training.Period, 0)
	q := "SELECT " + periodColumns + " FROM program_periods WHERE program_id = ? ORDER BY start_week"
	if err := sqlx.SelectContext(ctx, e, &periods, e.Rebind(q), programID); err != nil {
		return nil, errors.Wrap(err, "selecting periods")
	}
	return periods, nil
}

func (repo *trainingRepository) GetPeriod(ctx context.Context, id string) (training.Period, error) {
	var p training.Period
	err := get(ctx, repo.ext(ctx), &p, training.ErrPeriodNotFound, "SELECT "+periodColumns+" FROM program_periods WHERE id = ?", id)
	return p, err
}

func (repo *trainingRepository) UpdatePeriod(ctx context.Context, p training.Period) (training.Period, error) {
	err := namedExec(ctx, repo.ext(ctx), training.ErrPeriodNotFound, `
		UPDATE program_periods SET name = :name, start_week = :start_week, end_week = :end_week
		WHERE id = :id`,
		p,
	)
	if err != nil {
		return training.Period{}, err
	}
	return p, nil
}

func (repo *trainingRepository) DeletePeriod(ctx context.Context, id string) error {
	return exec(ctx, repo.ext(ctx), training.ErrPeriodNotFound, "DELETE FROM program_periods WHERE id = ?", id)
}

// Weeks

func (repo *trainingRepository) CreateWeek(ctx context.Context, w training.Week) (training.Week, error) {
	w.ID = newID()
	err := namedExec(ctx, repo.ext(ctx), nil, `
		INSERT INTO program_weeks (`+weekColumns+`) VALUES (:id, :program_id, :period_id, :number)`,
		w,
	)
	if err != nil {
		return training.Week{}, errors.Wrap(err, "inserting week")
	}
	return w, nil
}

func (repo *trainingRepository) ListWeeks(ctx context.Context, programID string) ([]training.Week, error) {
	e := repo.ext(ctx)
	weeks := make([]training.Week, 0)
	q := "SELECT " + weekColumns + " FROM program_weeks WHERE program_id = ? ORDER BY number"
	if err := sqlx.SelectContext(ctx, e, &weeks, e.Rebind(q), programID); err != nil {
		return nil, errors.Wrap(err, "selecting weeks")
	}
	return weeks, nil
}

func (repo *trainingRepository) GetWeek(ctx context.Context, id string) (training.Week, error) {
	var w training.Week
	err := get(ctx, repo.ext(ctx), &w, training.ErrWeekNotFound, "SELECT "+weekColumns+" FROM program_weeks WHERE id = ?", id)
	return w, err
}

func (repo *trainingRepository) DeleteWeek(ctx context.Context, id string) error {
	return exec(ctx, repo.ext(ctx), training.ErrWeekNotFound, "DELETE FROM program_weeks WHERE id = ?", id)
}

// Program workouts

func (repo *trainingRepository) CreateProgramWorkout(ctx context.Context, pw training.ProgramWorkout) (training.ProgramWorkout, error) {
	pw.ID = newID()
	err := namedExec(ctx, repo.ext(ctx), nil, `
		INSERT INTO program_workouts (`+programWorkoutColumns+`)
		VALUES (:id, :week_id, :workout_id, :day_of_week, :position)`,
		pw,
	)
	if err != nil {
		return training.ProgramWorkout{}, errors.Wrap(err, "inserting program workout")
	}
	return pw, nil
}

func (repo *trainingRepository) ListProgramWorkouts(ctx context.Context, programID string) ([]training.ProgramWorkout, error) {
	e := repo.ext(ctx)
	pws := make([]training.ProgramWorkout, 0)
	q := `
		SELECT pw.id, pw.week_id, pw.workout_id, pw.day_of_week, pw.position
		FROM program_workouts pw JOIN program_weeks w ON w.id = pw.week_id
		WHERE w.program_id = ?
		ORDER BY w.number, pw.day_of_week, pw.position`
	if err := sqlx.SelectContext(ctx, e, &pws, e.Rebind(q), programID); err != nil {
		return nil, errors.Wrap(err, "selecting program workouts")
	}
	return pws, nil
}

func (repo *trainingRepository) GetProgramWorkout(ctx context.Context, id string) (training.ProgramWorkout, error) {
	var pw training.ProgramWorkout
	err := get(ctx, repo.ext(ctx), &pw, training.ErrProgramWorkoutNotFound,
		"SELECT "+programWorkoutColumns+" FROM program_workouts WHERE id = ?", id)
	return pw, err
}

func (repo *trainingRepository) UpdateProgramWorkout(ctx context.Context, pw training.ProgramWorkout) (training.ProgramWorkout, error) {
	err := namedExec(ctx, repo.ext(ctx), training.ErrProgramWorkoutNotFound, `
		UPDATE program_workouts SET
			week_id = :week_id, workout_id = :workout_id, day_of_week = :day_of_week, position = :position
		WHERE id = :id`,
		pw,
	)
	if err != nil {
		return training.ProgramWorkout{}, err
	}
	return pw, nil
}

func (repo *trainingRepository) DeleteProgramWorkout(ctx context.Context, id string) error {
	return exec(ctx, repo.ext(ctx), training.ErrProgramWorkoutNotFound, "DELETE FROM program_workouts WHERE id = ?", id)
}

package training_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/forma/core"
	"github.com/trezcool/forma/core/training"
	"github.com/trezcool/forma/tests"
)

func createWorkout(t *testing.T, svc training.Service, name string, exerciseIDs ...string) training.Workout {
	nw := training.NewWorkout{Name: name}
	for _, id := range exerciseIDs {
		nw.Exercises = append(nw.Exercises, training.NewWorkoutExercise{ExerciseID: id, Sets: 3, Reps: "8-12"})
	}
	w, err := svc.CreateWorkout(context.Background(), nw)
	require.NoError(t, err)
	return w
}

func createProgram(t *testing.T, svc training.Service, weeks int) training.Program {
	p, err := svc.CreateProgram(context.Background(), training.NewProgram{Name: "Strength", DurationWeeks: weeks})
	require.NoError(t, err)
	return p
}

func TestService_Workouts(t *testing.T) {
	app := testutil.NewApp()
	svc := app.TrainingSvc
	ctx := context.Background()
	squat := testutil.CreateExercise(t, svc, "Squat", "legs")
	bench := testutil.CreateExercise(t, svc, "Bench press", "chest")

	w := createWorkout(t, svc, "Full body", bench.ID, squat.ID)
	require.Len(t, w.Exercises, 2)
	assert.Equal(t, bench.ID, w.Exercises[0].ExerciseID)
	assert.Equal(t, 1, w.Exercises[0].Position)
	assert.Equal(t, squat.ID, w.Exercises[1].ExerciseID)
	assert.Equal(t, 2, w.Exercises[1].Position)

	got, err := svc.GetWorkout(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, w.Exercises, got.Exercises)

	// an unknown exercise rolls the whole creation back
	_, err = svc.CreateWorkout(ctx, training.NewWorkout{
		Name:      "Broken",
		Exercises: []training.NewWorkoutExercise{{ExerciseID: squat.ID, Sets: 1}, {ExerciseID: "nope", Sets: 1}},
	})
	assert.Equal(t, []string{"exercises"}, testutil.ErrorFields(err))
	_, total, err := svc.QueryWorkouts(ctx, training.WorkoutFilter{}, nil, core.Page{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	// updating without exercises keeps them
	updated, err := svc.UpdateWorkout(ctx, got, training.NewWorkout{Name: "Full body A", Difficulty: training.DifficultyBeginner})
	require.NoError(t, err)
	assert.Equal(t, "Full body A", updated.Name)
	assert.Len(t, updated.Exercises, 2)

	updated, err = svc.SetWorkoutExercises(ctx, w.ID, []training.NewWorkoutExercise{{ExerciseID: squat.ID, Sets: 5, Reps: " 5 "}})
	require.NoError(t, err)
	require.Len(t, updated.Exercises, 1)
	assert.Equal(t, "5", updated.Exercises[0].Reps)

	// exercises in use cannot be deleted
	err = svc.DeleteExercise(ctx, squat.ID)
	assert.True(t, core.IsConflict(err))
	assert.NoError(t, svc.DeleteExercise(ctx, bench.ID))

	es, _, err := svc.QueryExercises(ctx, training.ExerciseFilter{MuscleGroup: "legs"}, nil, core.Page{})
	require.NoError(t, err)
	require.Len(t, es, 1)
	assert.Equal(t, squat.ID, es[0].ID)
}

func TestService_Periods(t *testing.T) {
	app := testutil.NewApp()
	svc := app.TrainingSvc
	ctx := context.Background()
	prog := createProgram(t, svc, 12)

	base, err := svc.AddPeriod(ctx, prog.ID, training.NewPeriod{Name: "Base", StartWeek: 1, EndWeek: 4})
	require.NoError(t, err)
	_, err = svc.AddPeriod(ctx, prog.ID, training.NewPeriod{Name: "Build", StartWeek: 5, EndWeek: 8})
	require.NoError(t, err)

	tests := []struct {
		name      string
		np        training.NewPeriod
		wantField string
	}{
		{name: "overlaps start", np: training.NewPeriod{Name: "X", StartWeek: 4, EndWeek: 9}, wantField: "start_week"},
		{name: "inside", np: training.NewPeriod{Name: "X", StartWeek: 6, EndWeek: 6}, wantField: "start_week"},
		{name: "beyond duration", np: training.NewPeriod{Name: "X", StartWeek: 9, EndWeek: 13}, wantField: "end_week"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddPeriod(ctx, prog.ID, tt.np)
			assert.Equal(t, []string{tt.wantField}, testutil.ErrorFields(err))
		})
	}

	_, err = svc.AddPeriod(ctx, "unknown", training.NewPeriod{Name: "X", StartWeek: 1, EndWeek: 1})
	assert.True(t, core.IsNotFound(err))

	sched, err := svc.ProgramSchedule(ctx, prog.ID)
	require.NoError(t, err)
	require.Len(t, sched.Periods, 2)
	require.Len(t, sched.Periods[0].Weeks, 4)
	assert.Equal(t, 1, sched.Periods[0].Weeks[0].Number)
	require.Len(t, sched.Periods[1].Weeks, 4)
	assert.Equal(t, 5, sched.Periods[1].Weeks[0].Number)

	// schedule a workout on week 2, then shrink the period past it
	w := createWorkout(t, svc, "Day A")
	week2 := sched.Periods[0].Weeks[1]
	week1 := sched.Periods[0].Weeks[0]
	_, err = svc.AddProgramWorkout(ctx, prog.ID, week1.ID, training.NewProgramWorkout{WorkoutID: w.ID, DayOfWeek: 1})
	require.NoError(t, err)
	_, err = svc.AddProgramWorkout(ctx, prog.ID, week2.ID, training.NewProgramWorkout{WorkoutID: w.ID, DayOfWeek: 3})
	require.NoError(t, err)

	base, err = svc.UpdatePeriod(ctx, prog.ID, base.ID, training.NewPeriod{Name: "Base", StartWeek: 1, EndWeek: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, base.EndWeek)

	sched, err = svc.ProgramSchedule(ctx, prog.ID)
	require.NoError(t, err)
	require.Len(t, sched.Periods[0].Weeks, 1)
	assert.Equal(t, week1.ID, sched.Periods[0].Weeks[0].ID, "weeks staying in range are kept")
	require.Len(t, sched.Periods[0].Weeks[0].Workouts, 1)
	assert.Equal(t, "Day A", sched.Periods[0].Weeks[0].Workouts[0].WorkoutName)

	// the program cannot shrink below its last period
	_, err = svc.UpdateProgram(ctx, prog, training.NewProgram{Name: "Strength", DurationWeeks: 6})
	assert.Equal(t, []string{"duration_weeks"}, testutil.ErrorFields(err))
	_, err = svc.UpdateProgram(ctx, prog, training.NewProgram{Name: "Strength", DurationWeeks: 8})
	assert.NoError(t, err)

	// a scheduled workout cannot be deleted
	assert.True(t, core.IsConflict(svc.DeleteWorkout(ctx, w.ID)))

	// deleting a program removes its schedule
	require.NoError(t, svc.DeleteProgram(ctx, prog.ID))
	assert.NoError(t, svc.DeleteWorkout(ctx, w.ID))
}

func TestService_EditProgramWorkoutExercises(t *testing.T) {
	app := testutil.NewApp()
	svc := app.TrainingSvc
	ctx := context.Background()
	squat := testutil.CreateExercise(t, svc, "Squat", "legs")
	row := testutil.CreateExercise(t, svc, "Row", "back")
	prog := createProgram(t, svc, 2)

	_, err := svc.AddPeriod(ctx, prog.ID, training.NewPeriod{Name: "All", StartWeek: 1, EndWeek: 2})
	require.NoError(t, err)
	sched, err := svc.ProgramSchedule(ctx, prog.ID)
	require.NoError(t, err)
	weeks := sched.Periods[0].Weeks

	shared := createWorkout(t, svc, "Legs", squat.ID)
	pw1, err := svc.AddProgramWorkout(ctx, prog.ID, weeks[0].ID, training.NewProgramWorkout{WorkoutID: shared.ID, DayOfWeek: 1})
	require.NoError(t, err)
	pw2, err := svc.AddProgramWorkout(ctx, prog.ID, weeks[1].ID, training.NewProgramWorkout{WorkoutID: shared.ID, DayOfWeek: 1})
	require.NoError(t, err)

	// shared: copy on write
	edits := []training.NewWorkoutExercise{{ExerciseID: row.ID, Sets: 4}}
	pw1, copied, err := svc.EditProgramWorkoutExercises(ctx, prog.ID, pw1.ID, edits)
	require.NoError(t, err)
	assert.NotEqual(t, shared.ID, copied.ID)
	assert.Equal(t, shared.Name, copied.Name)
	assert.Equal(t, copied.ID, pw1.WorkoutID)
	require.Len(t, copied.Exercises, 1)
	assert.Equal(t, row.ID, copied.Exercises[0].ExerciseID)

	orig, err := svc.GetWorkout(ctx, shared.ID)
	require.NoError(t, err)
	require.Len(t, orig.Exercises, 1)
	assert.Equal(t, squat.ID, orig.Exercises[0].ExerciseID, "the other schedule keeps the original exercises")

	// no longer shared: edited in place
	pw2, inPlace, err := svc.EditProgramWorkoutExercises(ctx, prog.ID, pw2.ID, edits)
	require.NoError(t, err)
	assert.Equal(t, shared.ID, inPlace.ID)
	assert.Equal(t, shared.ID, pw2.WorkoutID)

	// program workouts of another program are not found
	other := createProgram(t, svc, 1)
	_, _, err = svc.EditProgramWorkoutExercises(ctx, other.ID, pw2.ID, edits)
	assert.True(t, core.IsNotFound(err))
	assert.True(t, core.IsNotFound(svc.RemoveProgramWorkout(ctx, other.ID, pw2.ID)))
	assert.NoError(t, svc.RemoveProgramWorkout(ctx, prog.ID, pw2.ID))
}

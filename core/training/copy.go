package training

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/forma/core"
)

// EditProgramWorkoutExercises replaces the exercises of the workout scheduled by a program workout.
// A workout scheduled more than once is shared: it is first deep-copied and the program workout
// re-pointed to the copy, so the other schedules keep the original exercises.
func (svc *service) EditProgramWorkoutExercises(
	ctx context.Context,
	programID, programWorkoutID string,
	exercises []NewWorkoutExercise,
) (ProgramWorkout, Workout, error) {
	var pw ProgramWorkout
	var w Workout
	err := svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if pw, err = svc.getProgramWorkout(ctx, programID, programWorkoutID); err != nil {
			return err
		}
		refs, err := svc.repo.CountWorkoutUses(ctx, pw.WorkoutID)
		if err != nil {
			return errors.Wrap(err, "counting workout uses")
		}
		if w, err = svc.repo.GetWorkout(ctx, pw.WorkoutID); err != nil {
			return errors.Wrap(err, "finding workout by ID")
		}

		if refs > 1 {
			if w, err = svc.copyWorkout(ctx, w); err != nil {
				return errors.Wrap(err, "copying workout")
			}
			pw.WorkoutID = w.ID
			if pw, err = svc.repo.UpdateProgramWorkout(ctx, pw); err != nil {
				return errors.Wrap(err, "updating program workout")
			}
		}

		w.Exercises, err = svc.replaceExercises(ctx, w.ID, exercises)
		return err
	})
	return pw, w, err
}

// copyWorkout stores a copy of w and its exercises. The copy keeps the name.
func (svc *service) copyWorkout(ctx context.Context, w Workout) (Workout, error) {
	exercises := w.Exercises
	w.ID = ""
	w.Exercises = nil
	w.CreatedAt = core.NowFunc().UTC()
	w.UpdatedAt = w.CreatedAt
	cp, err := svc.repo.CreateWorkout(ctx, w)
	if err != nil {
		return Workout{}, err
	}

	items := make([]WorkoutExercise, 0, len(exercises))
	for _, e := range exercises {
		e.ID = ""
		e.WorkoutID = cp.ID
		items = append(items, e)
	}
	if cp.Exercises, err = svc.repo.ReplaceWorkoutExercises(ctx, cp.ID, items); err != nil {
		return Workout{}, err
	}
	return cp, nil
}

package training

import (
	"context"
	"sort"
	"strconv"

	"github.com/pkg/errors"

	"github.com/trezcool/forma/core"
)

var itoa = strconv.Itoa

func lastWeek(periods []Period) int {
	var last int
	for _, p := range periods {
		if p.EndWeek > last {
			last = p.EndWeek
		}
	}
	return last
}

// checkPeriod validates the week range of p against the program and its other periods.
func checkPeriod(prog Program, p Period, others []Period) error {
	if p.EndWeek > prog.DurationWeeks {
		return core.NewValidationError(nil, core.FieldError{
			Field: "end_week",
			Error: "must be less than or equal to the program duration (" + itoa(prog.DurationWeeks) + " weeks)",
		})
	}
	for _, o := range others {
		if o.ID != p.ID && p.Overlaps(o) {
			return core.NewValidationError(nil, core.FieldError{
				Field: "start_week",
				Error: "overlaps period \"" + o.Name + "\" (weeks " + itoa(o.StartWeek) + "-" + itoa(o.EndWeek) + ")",
			})
		}
	}
	return nil
}

// AddPeriod creates a period and one week per week number of its range.
func (svc *service) AddPeriod(ctx context.Context, programID string, np NewPeriod) (Period, error) {
	var period Period
	err := svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		prog, err := svc.repo.GetProgram(ctx, programID)
		if err != nil {
			return err
		}
		others, err := svc.repo.ListPeriods(ctx, programID)
		if err != nil {
			return errors.Wrap(err, "listing periods")
		}
		period = Period{ProgramID: prog.ID, Name: np.Name, StartWeek: np.StartWeek, EndWeek: np.EndWeek}
		if err := checkPeriod(prog, period, others); err != nil {
			return err
		}
		if period, err = svc.repo.CreatePeriod(ctx, period); err != nil {
			return errors.Wrap(err, "creating period")
		}
		for n := period.StartWeek; n <= period.EndWeek; n++ {
			if _, err := svc.repo.CreateWeek(ctx, Week{ProgramID: prog.ID, PeriodID: period.ID, Number: n}); err != nil {
				return errors.Wrap(err, "creating week")
			}
		}
		return nil
	})
	return period, err
}

// UpdatePeriod renames and/or moves a period. Weeks that stay in range are kept with their workouts;
// weeks falling out of range are deleted and missing ones are created.
func (svc *service) UpdatePeriod(ctx context.Context, programID, periodID string, np NewPeriod) (Period, error) {
	var period Period
	err := svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		prog, err := svc.repo.GetProgram(ctx, programID)
		if err != nil {
			return err
		}
		if period, err = svc.getPeriod(ctx, programID, periodID); err != nil {
			return err
		}
		others, err := svc.repo.ListPeriods(ctx, programID)
		if err != nil {
			return errors.Wrap(err, "listing periods")
		}
		period.Name = np.Name
		period.StartWeek = np.StartWeek
		period.EndWeek = np.EndWeek
		if err := checkPeriod(prog, period, others); err != nil {
			return err
		}
		if period, err = svc.repo.UpdatePeriod(ctx, period); err != nil {
			return errors.Wrap(err, "updating period")
		}

		weeks, err := svc.repo.ListWeeks(ctx, programID)
		if err != nil {
			return errors.Wrap(err, "listing weeks")
		}
		existing := make(map[int]bool)
		for _, w := range weeks {
			if w.PeriodID != period.ID {
				continue
			}
			if w.Number < period.StartWeek || w.Number > period.EndWeek {
				if err := svc.repo.DeleteWeek(ctx, w.ID); err != nil {
					return errors.Wrap(err, "deleting week")
				}
				continue
			}
			existing[w.Number] = true
		}
		for n := period.StartWeek; n <= period.EndWeek; n++ {
			if existing[n] {
				continue
			}
			if _, err := svc.repo.CreateWeek(ctx, Week{ProgramID: prog.ID, PeriodID: period.ID, Number: n}); err != nil {
				return errors.Wrap(err, "creating week")
			}
		}
		return nil
	})
	return period, err
}

func (svc *service) DeletePeriod(ctx context.Context, programID, periodID string) error {
	return svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := svc.getPeriod(ctx, programID, periodID); err != nil {
			return err
		}
		return svc.repo.DeletePeriod(ctx, periodID)
	})
}

func (svc *service) ListPeriods(ctx context.Context, programID string) ([]Period, error) {
	if _, err := svc.repo.GetProgram(ctx, programID); err != nil {
		return nil, err
	}
	return svc.repo.ListPeriods(ctx, programID)
}

func (svc *service) getPeriod(ctx context.Context, programID, periodID string) (Period, error) {
	period, err := svc.repo.GetPeriod(ctx, periodID)
	if err != nil {
		return Period{}, err
	}
	if period.ProgramID != programID {
		return Period{}, ErrPeriodNotFound
	}
	return period, nil
}

func (svc *service) getWeek(ctx context.Context, programID, weekID string) (Week, error) {
	week, err := svc.repo.GetWeek(ctx, weekID)
	if err != nil {
		return Week{}, err
	}
	if week.ProgramID != programID {
		return Week{}, ErrWeekNotFound
	}
	return week, nil
}

func (svc *service) getProgramWorkout(ctx context.Context, programID, programWorkoutID string) (ProgramWorkout, error) {
	pw, err := svc.repo.GetProgramWorkout(ctx, programWorkoutID)
	if err != nil {
		return ProgramWorkout{}, err
	}
	if _, err := svc.getWeek(ctx, programID, pw.WeekID); err != nil {
		if core.IsNotFound(err) {
			return ProgramWorkout{}, ErrProgramWorkoutNotFound
		}
		return ProgramWorkout{}, err
	}
	return pw, nil
}

func (svc *service) AddProgramWorkout(ctx context.Context, programID, weekID string, npw NewProgramWorkout) (ProgramWorkout, error) {
	var pw ProgramWorkout
	err := svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		week, err := svc.getWeek(ctx, programID, weekID)
		if err != nil {
			return err
		}
		if _, err := svc.repo.GetWorkout(ctx, npw.WorkoutID); err != nil {
			if core.IsNotFound(err) {
				return core.NewValidationError(nil, core.FieldError{Field: "workout_id", Error: "workout not found"})
			}
			return errors.Wrap(err, "finding workout by ID")
		}
		pw, err = svc.repo.CreateProgramWorkout(ctx, ProgramWorkout{
			WeekID:    week.ID,
			WorkoutID: npw.WorkoutID,
			DayOfWeek: npw.DayOfWeek,
			Position:  npw.Position,
		})
		return err
	})
	return pw, err
}

func (svc *service) RemoveProgramWorkout(ctx context.Context, programID, programWorkoutID string) error {
	return svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := svc.getProgramWorkout(ctx, programID, programWorkoutID); err != nil {
			return err
		}
		return svc.repo.DeleteProgramWorkout(ctx, programWorkoutID)
	})
}

func (svc *service) ProgramSchedule(ctx context.Context, programID string) (Schedule, error) {
	prog, err := svc.repo.GetProgram(ctx, programID)
	if err != nil {
		return Schedule{}, err
	}
	periods, err := svc.repo.ListPeriods(ctx, programID)
	if err != nil {
		return Schedule{}, errors.Wrap(err, "listing periods")
	}
	weeks, err := svc.repo.ListWeeks(ctx, programID)
	if err != nil {
		return Schedule{}, errors.Wrap(err, "listing weeks")
	}
	pws, err := svc.repo.ListProgramWorkouts(ctx, programID)
	if err != nil {
		return Schedule{}, errors.Wrap(err, "listing program workouts")
	}

	names := make(map[string]string)
	byWeek := make(map[string][]ScheduledWorkout)
	for _, pw := range pws {
		name, ok := names[pw.WorkoutID]
		if !ok {
			w, err := svc.repo.GetWorkout(ctx, pw.WorkoutID)
			if err != nil {
				return Schedule{}, errors.Wrap(err, "finding workout by ID")
			}
			name = w.Name
			names[pw.WorkoutID] = name
		}
		byWeek[pw.WeekID] = append(byWeek[pw.WeekID], ScheduledWorkout{ProgramWorkout: pw, WorkoutName: name})
	}

	byPeriod := make(map[string][]WeekSchedule)
	for _, w := range weeks {
		workouts := byWeek[w.ID]
		if workouts == nil {
			workouts = []ScheduledWorkout{}
		}
		sort.SliceStable(workouts, func(i, j int) bool {
			if workouts[i].DayOfWeek != workouts[j].DayOfWeek {
				return workouts[i].DayOfWeek < workouts[j].DayOfWeek
			}
			return workouts[i].Position < workouts[j].Position
		})
		byPeriod[w.PeriodID] = append(byPeriod[w.PeriodID], WeekSchedule{Week: w, Workouts: workouts})
	}

	sched := Schedule{Program: prog, Periods: make([]PeriodSchedule, 0, len(periods))}
	sort.Slice(periods, func(i, j int) bool { return periods[i].StartWeek < periods[j].StartWeek })
	for _, p := range periods {
		ws := byPeriod[p.ID]
		if ws == nil {
			ws = []WeekSchedule{}
		}
		sort.Slice(ws, func(i, j int) bool { return ws[i].Number < ws[j].Number })
		sched.Periods = append(sched.Periods, PeriodSchedule{Period: p, Weeks: ws})
	}
	return sched, nil
}

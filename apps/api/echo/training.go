package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/forma/core"
	"github.com/trezcool/forma/core/training"
)

type trainingApi struct {
	svc training.Service
}

func registerTrainingAPI(admin *echo.Group, svc training.Service) {
	api := trainingApi{svc: svc}

	eg := admin.Group("/exercises")
	eg.GET("", api.queryExercises)
	eg.POST("", api.createExercise)
	eg.GET("/:id", api.retrieveExercise)
	eg.PUT("/:id", api.updateExercise)
	eg.DELETE("/:id", api.destroyExercise)

	wg := admin.Group("/workouts")
	wg.GET("", api.queryWorkouts)
	wg.POST("", api.createWorkout)
	wg.GET("/:id", api.retrieveWorkout)
	wg.PUT("/:id", api.updateWorkout)
	wg.PUT("/:id/exercises", api.setWorkoutExercises)
	wg.DELETE("/:id", api.destroyWorkout)

	pg := admin.Group("/programs")
	pg.GET("", api.queryPrograms)
	pg.POST("", api.createProgram)
	pg.GET("/:id", api.retrieveProgram)
	pg.PUT("/:id", api.updateProgram)
	pg.DELETE("/:id", api.destroyProgram)
	pg.GET("/:id/schedule", api.schedule)

	pg.GET("/:id/periods", api.queryPeriods)
	pg.POST("/:id/periods", api.addPeriod)
	pg.PUT("/:id/periods/:pid", api.updatePeriod)
	pg.DELETE("/:id/periods/:pid", api.destroyPeriod)

	pg.POST("/:id/weeks/:wid/workouts", api.addProgramWorkout)
	pg.DELETE("/:id/workouts/:pwid", api.removeProgramWorkout)
	pg.PUT("/:id/workouts/:pwid/exercises", api.editProgramWorkoutExercises)
}

// Exercises

func (api *trainingApi) queryExercises(ctx echo.Context) error {
	ordering, page, err := bindListParams(ctx)
	if err != nil {
		return err
	}
	filter := training.ExerciseFilter{
		Search:      core.CleanString(ctx.QueryParam("search")),
		MuscleGroup: core.CleanString(ctx.QueryParam("muscle_group"), true /* lower */),
	}

	exercises, count, err := api.svc.QueryExercises(ctx.Request().Context(), filter, ordering, page)
	if err != nil {
		return errors.Wrap(err, "querying exercises")
	}
	if exercises == nil {
		exercises = []training.Exercise{}
	}
	return ctx.JSON(http.StatusOK, ListResponse{Count: count, Results: exercises})
}

func (api *trainingApi) createExercise(ctx echo.Context) error {
	var data training.NewExercise
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewExercise")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	e, err := api.svc.CreateExercise(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating exercise")
	}
	return ctx.JSON(http.StatusCreated, e)
}

func (api *trainingApi) retrieveExercise(ctx echo.Context) error {
	e, err := api.svc.GetExercise(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding exercise by ID")
	}
	return ctx.JSON(http.StatusOK, e)
}

func (api *trainingApi) updateExercise(ctx echo.Context) error {
	e, err := api.svc.GetExercise(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding exercise by ID")
	}

	var data training.NewExercise
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewExercise")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	if e, err = api.svc.UpdateExercise(ctx.Request().Context(), e, data); err != nil {
		return errors.Wrap(err, "updating exercise")
	}
	return ctx.JSON(http.StatusOK, e)
}

func (api *trainingApi) destroyExercise(ctx echo.Context) error {
	if err := api.svc.DeleteExercise(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting exercise")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Workouts

func (api *trainingApi) queryWorkouts(ctx echo.Context) error {
	ordering, page, err := bindListParams(ctx)
	if err != nil {
		return err
	}
	filter := training.WorkoutFilter{
		Search:     core.CleanString(ctx.QueryParam("search")),
		Difficulty: core.CleanString(ctx.QueryParam("difficulty"), true /* lower */),
	}

	workouts, count, err := api.svc.QueryWorkouts(ctx.Request().Context(), filter, ordering, page)
	if err != nil {
		return errors.Wrap(err, "querying workouts")
	}
	if workouts == nil {
		workouts = []training.Workout{}
	}
	return ctx.JSON(http.StatusOK, ListResponse{Count: count, Results: workouts})
}

func (api *trainingApi) createWorkout(ctx echo.Context) error {
	var data training.NewWorkout
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewWorkout")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	w, err := api.svc.CreateWorkout(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating workout")
	}
	return ctx.JSON(http.StatusCreated, w)
}

func (api *trainingApi) retrieveWorkout(ctx echo.Context) error {
	w, err := api.svc.GetWorkout(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding workout by ID")
	}
	return ctx.JSON(http.StatusOK, w)
}

func (api *trainingApi) updateWorkout(ctx echo.Context) error {
	w, err := api.svc.GetWorkout(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding workout by ID")
	}

	var data training.NewWorkout
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewWorkout")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	if w, err = api.svc.UpdateWorkout(ctx.Request().Context(), w, data); err != nil {
		return errors.Wrap(err, "updating workout")
	}
	return ctx.JSON(http.StatusOK, w)
}

func (api *trainingApi) setWorkoutExercises(ctx echo.Context) error {
	var data training.WorkoutExercisesUpdate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to WorkoutExercisesUpdate")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	w, err := api.svc.SetWorkoutExercises(ctx.Request().Context(), ctx.Param("id"), data.Exercises)
	if err != nil {
		return errors.Wrap(err, "setting workout exercises")
	}
	return ctx.JSON(http.StatusOK, w)
}

func (api *trainingApi) destroyWorkout(ctx echo.Context) error {
	if err := api.svc.DeleteWorkout(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting workout")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Programs

func bindProgramFilter(ctx echo.Context) training.ProgramFilter {
	return training.ProgramFilter{
		Search:       core.CleanString(ctx.QueryParam("search")),
		Published:    queryBool(ctx, "published"),
		MembershipID: core.CleanString(ctx.QueryParam("membership_id")),
	}
}

func (api *trainingApi) queryPrograms(ctx echo.Context) error {
	ordering, page, err := bindListParams(ctx)
	if err != nil {
		return err
	}

	programs, count, err := api.svc.QueryPrograms(ctx.Request().Context(), bindProgramFilter(ctx), ordering, page)
	if err != nil {
		return errors.Wrap(err, "querying programs")
	}
	if programs == nil {
		programs = []training.Program{}
	}
	return ctx.JSON(http.StatusOK, ListResponse{Count: count, Results: programs})
}

func (api *trainingApi) createProgram(ctx echo.Context) error {
	var data training.NewProgram
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewProgram")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	p, err := api.svc.CreateProgram(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating program")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *trainingApi) retrieveProgram(ctx echo.Context) error {
	p, err := api.svc.GetProgram(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding program by ID")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *trainingApi) updateProgram(ctx echo.Context) error {
	p, err := api.svc.GetProgram(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding program by ID")
	}

	var data training.NewProgram
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewProgram")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	if p, err = api.svc.UpdateProgram(ctx.Request().Context(), p, data); err != nil {
		return errors.Wrap(err, "updating program")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *trainingApi) destroyProgram(ctx echo.Context) error {
	if err := api.svc.DeleteProgram(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting program")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *trainingApi) schedule(ctx echo.Context) error {
	sched, err := api.svc.ProgramSchedule(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "building program schedule")
	}
	return ctx.JSON(http.StatusOK, sched)
}

// Scheduling

func (api *trainingApi) queryPeriods(ctx echo.Context) error {
	periods, err := api.svc.ListPeriods(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "listing periods")
	}
	if periods == nil {
		periods = []training.Period{}
	}
	return ctx.JSON(http.StatusOK, periods)
}

func (api *trainingApi) addPeriod(ctx echo.Context) error {
	var data training.NewPeriod
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPeriod")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	period, err := api.svc.AddPeriod(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "adding period")
	}
	return ctx.JSON(http.StatusCreated, period)
}

func (api *trainingApi) updatePeriod(ctx echo.Context) error {
	var data training.NewPeriod
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPeriod")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	period, err := api.svc.UpdatePeriod(ctx.Request().Context(), ctx.Param("id"), ctx.Param("pid"), data)
	if err != nil {
		return errors.Wrap(err, "updating period")
	}
	return ctx.JSON(http.StatusOK, period)
}

func (api *trainingApi) destroyPeriod(ctx echo.Context) error {
	if err := api.svc.DeletePeriod(ctx.Request().Context(), ctx.Param("id"), ctx.Param("pid")); err != nil {
		return errors.Wrap(err, "deleting period")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *trainingApi) addProgramWorkout(ctx echo.Context) error {
	var data training.NewProgramWorkout
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewProgramWorkout")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	pw, err := api.svc.AddProgramWorkout(ctx.Request().Context(), ctx.Param("id"), ctx.Param("wid"), data)
	if err != nil {
		return errors.Wrap(err, "adding program workout")
	}
	return ctx.JSON(http.StatusCreated, pw)
}

func (api *trainingApi) removeProgramWorkout(ctx echo.Context) error {
	if err := api.svc.RemoveProgramWorkout(ctx.Request().Context(), ctx.Param("id"), ctx.Param("pwid")); err != nil {
		return errors.Wrap(err, "removing program workout")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *trainingApi) editProgramWorkoutExercises(ctx echo.Context) error {
	var data training.WorkoutExercisesUpdate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to WorkoutExercisesUpdate")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	pw, w, err := api.svc.EditProgramWorkoutExercises(ctx.Request().Context(), ctx.Param("id"), ctx.Param("pwid"), data.Exercises)
	if err != nil {
		return errors.Wrap(err, "editing program workout exercises")
	}
	return ctx.JSON(http.StatusOK, ProgramWorkoutResponse{ProgramWorkout: pw, Workout: w})
}

type ProgramWorkoutResponse struct {
	ProgramWorkout training.ProgramWorkout `json:"program_workout"`
	Workout        training.Workout        `json:"workout"`
}

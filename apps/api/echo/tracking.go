package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/forma/core"
	"github.com/trezcool/forma/core/membership"
	"github.com/trezcool/forma/core/tracking"
	"github.com/trezcool/forma/core/user"
)

type trackingApi struct {
	svc         tracking.Service
	memberships membership.Service
}

func registerTrackingAPI(admin, me *echo.Group, svc tracking.Service, memberships membership.Service) {
	api := trackingApi{svc: svc, memberships: memberships}

	ag := admin.Group("/achievements", ownerMiddleware())
	ag.GET("", api.queryAchievements)
	ag.POST("", api.createAchievement)
	ag.POST("/seed", api.seedAchievements)
	ag.GET("/:id", api.retrieveAchievement)
	ag.PUT("/:id", api.updateAchievement)
	ag.DELETE("/:id", api.destroyAchievement)

	me.GET("", api.profile)
	me.GET("/dashboard", api.dashboard)
	me.GET("/subscriptions", api.mySubscriptions)
	me.GET("/achievements", api.myAchievements)

	me.GET("/workouts", api.queryWorkoutLogs)
	me.POST("/workouts", api.logWorkout)
	me.GET("/workouts/:id", api.retrieveWorkoutLog)
	me.DELETE("/workouts/:id", api.destroyWorkoutLog)

	me.GET("/nutrition", api.dailyNutrition)
	me.GET("/nutrition/entries", api.queryFoodEntries)
	me.POST("/nutrition/entries", api.addFoodEntry)
	me.DELETE("/nutrition/entries/:id", api.destroyFoodEntry)

	me.GET("/measurements", api.queryMeasurements)
	me.POST("/measurements", api.logMeasurement)
	me.GET("/measurements/progress", api.progress)
	me.DELETE("/measurements/:id", api.destroyMeasurement)
}

// Achievements catalogue

func (api *trackingApi) queryAchievements(ctx echo.Context) error {
	achievements, err := api.svc.ListAchievements(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing achievements")
	}
	if achievements == nil {
		achievements = []tracking.Achievement{}
	}
	return ctx.JSON(http.StatusOK, achievements)
}

func (api *trackingApi) createAchievement(ctx echo.Context) error {
	var data tracking.NewAchievement
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAchievement")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	a, err := api.svc.CreateAchievement(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating achievement")
	}
	return ctx.JSON(http.StatusCreated, a)
}

func (api *trackingApi) seedAchievements(ctx echo.Context) error {
	n, err := api.svc.SeedAchievements(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "seeding achievements")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"created": n})
}

func (api *trackingApi) retrieveAchievement(ctx echo.Context) error {
	a, err := api.svc.GetAchievement(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding achievement by ID")
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *trackingApi) updateAchievement(ctx echo.Context) error {
	a, err := api.svc.GetAchievement(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding achievement by ID")
	}

	var data tracking.NewAchievement
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAchievement")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	if a, err = api.svc.UpdateAchievement(ctx.Request().Context(), a, data); err != nil {
		return errors.Wrap(err, "updating achievement")
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *trackingApi) destroyAchievement(ctx echo.Context) error {
	if err := api.svc.DeleteAchievement(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting achievement")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Member dashboard

func (api *trackingApi) profile(ctx echo.Context) error {
	usr, ok := ctx.Get(contextUserKey).(user.User)
	if !ok {
		return errUnauthorized
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *trackingApi) dashboard(ctx echo.Context) error {
	d, err := api.svc.Dashboard(ctx.Request().Context(), contextUserID(ctx), core.NowFunc().UTC())
	if err != nil {
		return errors.Wrap(err, "building dashboard")
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *trackingApi) mySubscriptions(ctx echo.Context) error {
	filter := membership.SubscriptionFilter{
		UserID: contextUserID(ctx),
		Status: core.CleanString(ctx.QueryParam("status"), true /* lower */),
	}
	subs, _, err := api.memberships.QuerySubscriptions(ctx.Request().Context(), filter, nil, core.Page{})
	if err != nil {
		return errors.Wrap(err, "querying subscriptions")
	}
	if subs == nil {
		subs = []membership.Subscription{}
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *trackingApi) myAchievements(ctx echo.Context) error {
	uas, err := api.svc.UserAchievements(ctx.Request().Context(), contextUserID(ctx))
	if err != nil {
		return errors.Wrap(err, "listing user achievements")
	}
	if uas == nil {
		uas = []tracking.UserAchievement{}
	}
	return ctx.JSON(http.StatusOK, uas)
}

// Workouts

func (api *trackingApi) queryWorkoutLogs(ctx echo.Context) error {
	tr, err := bindTimeRange(ctx)
	if err != nil {
		return err
	}
	var page Pagination
	if err := page.Bind(ctx); err != nil {
		return err
	}

	logs, count, err := api.svc.QueryWorkoutLogs(ctx.Request().Context(), contextUserID(ctx), tr, page.Page)
	if err != nil {
		return errors.Wrap(err, "querying workout logs")
	}
	if logs == nil {
		logs = []tracking.WorkoutLog{}
	}
	return ctx.JSON(http.StatusOK, ListResponse{Count: count, Results: logs})
}

func (api *trackingApi) logWorkout(ctx echo.Context) error {
	var data tracking.NewWorkoutLog
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewWorkoutLog")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	wl, err := api.svc.LogWorkout(ctx.Request().Context(), contextUserID(ctx), data)
	if err != nil {
		return errors.Wrap(err, "logging workout")
	}
	return ctx.JSON(http.StatusCreated, wl)
}

func (api *trackingApi) retrieveWorkoutLog(ctx echo.Context) error {
	wl, err := api.svc.GetWorkoutLog(ctx.Request().Context(), contextUserID(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding workout log by ID")
	}
	return ctx.JSON(http.StatusOK, wl)
}

func (api *trackingApi) destroyWorkoutLog(ctx echo.Context) error {
	if err := api.svc.DeleteWorkoutLog(ctx.Request().Context(), contextUserID(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting workout log")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Nutrition

func (api *trackingApi) dailyNutrition(ctx echo.Context) error {
	date, err := queryDate(ctx, "date", core.NowFunc())
	if err != nil {
		return err
	}

	dn, err := api.svc.DailyNutrition(ctx.Request().Context(), contextUserID(ctx), date)
	if err != nil {
		return errors.Wrap(err, "computing daily nutrition")
	}
	return ctx.JSON(http.StatusOK, dn)
}

func (api *trackingApi) queryFoodEntries(ctx echo.Context) error {
	tr, err := bindTimeRange(ctx)
	if err != nil {
		return err
	}

	entries, err := api.svc.QueryFoodEntries(ctx.Request().Context(), contextUserID(ctx), tr)
	if err != nil {
		return errors.Wrap(err, "querying food entries")
	}
	if entries == nil {
		entries = []tracking.FoodEntry{}
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *trackingApi) addFoodEntry(ctx echo.Context) error {
	var data tracking.NewFoodEntry
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewFoodEntry")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	fe, err := api.svc.AddFoodEntry(ctx.Request().Context(), contextUserID(ctx), data)
	if err != nil {
		return errors.Wrap(err, "adding food entry")
	}
	return ctx.JSON(http.StatusCreated, fe)
}

func (api *trackingApi) destroyFoodEntry(ctx echo.Context) error {
	if err := api.svc.DeleteFoodEntry(ctx.Request().Context(), contextUserID(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting food entry")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Measurements

func (api *trackingApi) queryMeasurements(ctx echo.Context) error {
	tr, err := bindTimeRange(ctx)
	if err != nil {
		return err
	}
	var page Pagination
	if err := page.Bind(ctx); err != nil {
		return err
	}

	ms, count, err := api.svc.QueryMeasurements(ctx.Request().Context(), contextUserID(ctx), tr, page.Page)
	if err != nil {
		return errors.Wrap(err, "querying measurements")
	}
	if ms == nil {
		ms = []tracking.Measurement{}
	}
	return ctx.JSON(http.StatusOK, ListResponse{Count: count, Results: ms})
}

func (api *trackingApi) logMeasurement(ctx echo.Context) error {
	var data tracking.NewMeasurement
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMeasurement")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	m, err := api.svc.LogMeasurement(ctx.Request().Context(), contextUserID(ctx), data)
	if err != nil {
		return errors.Wrap(err, "logging measurement")
	}
	return ctx.JSON(http.StatusCreated, m)
}

func (api *trackingApi) progress(ctx echo.Context) error {
	tr, err := bindTimeRange(ctx)
	if err != nil {
		return err
	}

	p, err := api.svc.Progress(ctx.Request().Context(), contextUserID(ctx), tr)
	if err != nil {
		return errors.Wrap(err, "computing progress")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *trackingApi) destroyMeasurement(ctx echo.Context) error {
	if err := api.svc.DeleteMeasurement(ctx.Request().Context(), contextUserID(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting measurement")
	}
	return ctx.NoContent(http.StatusNoContent)
}

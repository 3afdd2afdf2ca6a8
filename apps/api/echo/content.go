package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/forma/core"
	"github.com/trezcool/forma/core/content"
	"github.com/trezcool/forma/core/membership"
	"github.com/trezcool/forma/core/nutrition"
	"github.com/trezcool/forma/core/training"
)

type contentApi struct {
	svc content.Service
}

func registerContentAPI(admin *echo.Group, svc content.Service) {
	api := contentApi{svc: svc}

	cg := admin.Group("/courses")
	cg.GET("", api.queryCourses)
	cg.POST("", api.createCourse)
	cg.GET("/:id", api.retrieveCourse)
	cg.PUT("/:id", api.updateCourse)
	cg.DELETE("/:id", api.destroyCourse)

	cg.POST("/:id/lessons", api.addLesson)
	cg.GET("/:id/lessons/:lid", api.retrieveLesson)
	cg.PUT("/:id/lessons/:lid", api.updateLesson)
	cg.DELETE("/:id/lessons/:lid", api.destroyLesson)

	fg := admin.Group("/faqs")
	fg.GET("", api.queryFAQs)
	fg.POST("", api.createFAQ)
	fg.GET("/:id", api.retrieveFAQ)
	fg.PUT("/:id", api.updateFAQ)
	fg.DELETE("/:id", api.destroyFAQ)
}

// Courses

func bindCourseFilter(ctx echo.Context) content.CourseFilter {
	return content.CourseFilter{
		Search:       core.CleanString(ctx.QueryParam("search")),
		Published:    queryBool(ctx, "published"),
		MembershipID: core.CleanString(ctx.QueryParam("membership_id")),
	}
}

func (api *contentApi) queryCourses(ctx echo.Context) error {
	ordering, page, err := bindListParams(ctx)
	if err != nil {
		return err
	}

	courses, count, err := api.svc.QueryCourses(ctx.Request().Context(), bindCourseFilter(ctx), ordering, page)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []content.Course{}
	}
	return ctx.JSON(http.StatusOK, ListResponse{Count: count, Results: courses})
}

func (api *contentApi) createCourse(ctx echo.Context) error {
	var data content.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	c, err := api.svc.CreateCourse(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *contentApi) retrieveCourse(ctx echo.Context) error {
	c, err := api.svc.GetCourse(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding course by ID")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *contentApi) updateCourse(ctx echo.Context) error {
	c, err := api.svc.GetCourse(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding course by ID")
	}

	var data content.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	if c, err = api.svc.UpdateCourse(ctx.Request().Context(), c, data); err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *contentApi) destroyCourse(ctx echo.Context) error {
	if err := api.svc.DeleteCourse(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Lessons

func (api *contentApi) addLesson(ctx echo.Context) error {
	var data content.NewLesson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLesson")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	l, err := api.svc.AddLesson(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "adding lesson")
	}
	return ctx.JSON(http.StatusCreated, l)
}

func (api *contentApi) retrieveLesson(ctx echo.Context) error {
	l, err := api.svc.GetLesson(ctx.Request().Context(), ctx.Param("id"), ctx.Param("lid"))
	if err != nil {
		return errors.Wrap(err, "finding lesson by ID")
	}
	return ctx.JSON(http.StatusOK, l)
}

func (api *contentApi) updateLesson(ctx echo.Context) error {
	var data content.NewLesson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLesson")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	l, err := api.svc.UpdateLesson(ctx.Request().Context(), ctx.Param("id"), ctx.Param("lid"), data)
	if err != nil {
		return errors.Wrap(err, "updating lesson")
	}
	return ctx.JSON(http.StatusOK, l)
}

func (api *contentApi) destroyLesson(ctx echo.Context) error {
	if err := api.svc.DeleteLesson(ctx.Request().Context(), ctx.Param("id"), ctx.Param("lid")); err != nil {
		return errors.Wrap(err, "deleting lesson")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// FAQs

func bindFAQFilter(ctx echo.Context) content.FAQFilter {
	return content.FAQFilter{
		Search:    core.CleanString(ctx.QueryParam("search")),
		Category:  core.CleanString(ctx.QueryParam("category")),
		Published: queryBool(ctx, "published"),
	}
}

func (api *contentApi) queryFAQs(ctx echo.Context) error {
	ordering, page, err := bindListParams(ctx)
	if err != nil {
		return err
	}

	faqs, count, err := api.svc.QueryFAQs(ctx.Request().Context(), bindFAQFilter(ctx), ordering, page)
	if err != nil {
		return errors.Wrap(err, "querying faqs")
	}
	if faqs == nil {
		faqs = []content.FAQ{}
	}
	return ctx.JSON(http.StatusOK, ListResponse{Count: count, Results: faqs})
}

func (api *contentApi) createFAQ(ctx echo.Context) error {
	var data content.NewFAQ
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewFAQ")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	f, err := api.svc.CreateFAQ(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating faq")
	}
	return ctx.JSON(http.StatusCreated, f)
}

func (api *contentApi) retrieveFAQ(ctx echo.Context) error {
	f, err := api.svc.GetFAQ(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding faq by ID")
	}
	return ctx.JSON(http.StatusOK, f)
}

func (api *contentApi) updateFAQ(ctx echo.Context) error {
	f, err := api.svc.GetFAQ(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding faq by ID")
	}

	var data content.NewFAQ
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewFAQ")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	if f, err = api.svc.UpdateFAQ(ctx.Request().Context(), f, data); err != nil {
		return errors.Wrap(err, "updating faq")
	}
	return ctx.JSON(http.StatusOK, f)
}

func (api *contentApi) destroyFAQ(ctx echo.Context) error {
	if err := api.svc.DeleteFAQ(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting faq")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Member content

type (
	contentDeps struct {
		training    training.Service
		nutrition   nutrition.Service
		content     content.Service
		memberships membership.Service
	}

	memberContentApi struct {
		contentDeps
	}

	PlanDetail struct {
		nutrition.Plan
		Macros nutrition.PlanNutrition `json:"macros"`
	}

	RecipeDetail struct {
		nutrition.Recipe
		Macros nutrition.RecipeNutrition `json:"macros"`
	}
)

func registerMemberContentAPI(g *echo.Group, deps contentDeps) {
	api := memberContentApi{deps}

	g.GET("/programs", api.queryPrograms)
	g.GET("/programs/:id", api.retrieveProgram)
	g.GET("/nutrition-plans", api.queryPlans)
	g.GET("/nutrition-plans/:id", api.retrievePlan)
	g.GET("/courses", api.queryCourses)
	g.GET("/courses/:id", api.retrieveCourse)
	g.GET("/lessons/:id", api.retrieveLesson)
	g.GET("/recipes", api.queryRecipes)
	g.GET("/recipes/:id", api.retrieveRecipe)
	g.GET("/faqs", api.queryFAQs)
}

// published lists only show published items to members; admins may pass ?published=false.
func published(ctx echo.Context, requested *bool) *bool {
	if isContextAdmin(ctx) {
		return requested
	}
	return core.BoolPtr(true)
}

func (api *memberContentApi) queryPrograms(ctx echo.Context) error {
	ordering, page, err := bindListParams(ctx)
	if err != nil {
		return err
	}
	filter := bindProgramFilter(ctx)
	filter.Published = published(ctx, filter.Published)

	programs, count, err := api.training.QueryPrograms(ctx.Request().Context(), filter, ordering, page)
	if err != nil {
		return errors.Wrap(err, "querying programs")
	}
	if programs == nil {
		programs = []training.Program{}
	}
	return ctx.JSON(http.StatusOK, ListResponse{Count: count, Results: programs})
}

func (api *memberContentApi) retrieveProgram(ctx echo.Context) error {
	sched, err := api.training.ProgramSchedule(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "building program schedule")
	}
	if !sched.Program.Published && !isContextAdmin(ctx) {
		return errHttpNotFound
	}
	if err := requireAccess(ctx, api.memberships, sched.Program.MembershipID); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sched)
}

func (api *memberContentApi) queryPlans(ctx echo.Context) error {
	ordering, page, err := bindListParams(ctx)
	if err != nil {
		return err
	}
	filter := bindPlanFilter(ctx)
	filter.Published = published(ctx, filter.Published)

	plans, count, err := api.nutrition.QueryPlans(ctx.Request().Context(), filter, ordering, page)
	if err != nil {
		return errors.Wrap(err, "querying nutrition plans")
	}
	if plans == nil {
		plans = []nutrition.Plan{}
	}
	return ctx.JSON(http.StatusOK, ListResponse{Count: count, Results: plans})
}

func (api *memberContentApi) retrievePlan(ctx echo.Context) error {
	plan, err := api.nutrition.GetPlan(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding nutrition plan by ID")
	}
	if !plan.Published && !isContextAdmin(ctx) {
		return errHttpNotFound
	}
	if err := requireAccess(ctx, api.memberships, plan.MembershipID); err != nil {
		return err
	}

	macros, err := api.nutrition.PlanMacros(ctx.Request().Context(), plan.ID)
	if err != nil {
		return errors.Wrap(err, "calculating plan macros")
	}
	return ctx.JSON(http.StatusOK, PlanDetail{Plan: plan, Macros: macros})
}

func (api *memberContentApi) queryCourses(ctx echo.Context) error {
	ordering, page, err := bindListParams(ctx)
	if err != nil {
		return err
	}
	filter := bindCourseFilter(ctx)
	filter.Published = published(ctx, filter.Published)

	courses, count, err := api.content.QueryCourses(ctx.Request().Context(), filter, ordering, page)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []content.Course{}
	}
	return ctx.JSON(http.StatusOK, ListResponse{Count: count, Results: courses})
}

func (api *memberContentApi) retrieveCourse(ctx echo.Context) error {
	c, err := api.content.GetCourse(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding course by ID")
	}
	if !c.Published && !isContextAdmin(ctx) {
		return errHttpNotFound
	}
	if err := requireAccess(ctx, api.memberships, c.MembershipID); err != nil {
		return err
	}

	// videos are only handed out, signed, by the lesson detail
	for i := range c.Lessons {
		c.Lessons[i].VideoID = ""
	}
	return ctx.JSON(http.StatusOK, c)
}

// retrieveLesson always shows the lesson; the signed video URL requires access to the course.
func (api *memberContentApi) retrieveLesson(ctx echo.Context) error {
	view, c, err := api.content.LessonView(ctx.Request().Context(), ctx.Param("id"), false)
	if err != nil {
		return errors.Wrap(err, "finding lesson by ID")
	}
	if !c.Published && !isContextAdmin(ctx) {
		return errHttpNotFound
	}
	access, err := checkAccess(ctx, api.memberships, c.MembershipID)
	if err != nil {
		return err
	}
	if access {
		if view, _, err = api.content.LessonView(ctx.Request().Context(), view.ID, true); err != nil {
			return errors.Wrap(err, "signing lesson video")
		}
	}
	return ctx.JSON(http.StatusOK, view)
}

func (api *memberContentApi) queryRecipes(ctx echo.Context) error {
	ordering, page, err := bindListParams(ctx)
	if err != nil {
		return err
	}
	filter := bindRecipeFilter(ctx)
	filter.Published = published(ctx, filter.Published)

	recipes, count, err := api.nutrition.QueryRecipes(ctx.Request().Context(), filter, ordering, page)
	if err != nil {
		return errors.Wrap(err, "querying recipes")
	}
	if recipes == nil {
		recipes = []nutrition.Recipe{}
	}
	return ctx.JSON(http.StatusOK, ListResponse{Count: count, Results: recipes})
}

func (api *memberContentApi) retrieveRecipe(ctx echo.Context) error {
	r, err := api.nutrition.GetRecipe(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding recipe by ID")
	}
	if !r.Published && !isContextAdmin(ctx) {
		return errHttpNotFound
	}

	macros, err := api.nutrition.RecipeMacros(ctx.Request().Context(), r.ID)
	if err != nil {
		return errors.Wrap(err, "calculating recipe macros")
	}
	return ctx.JSON(http.StatusOK, RecipeDetail{Recipe: r, Macros: macros})
}

func (api *memberContentApi) queryFAQs(ctx echo.Context) error {
	ordering, page, err := bindListParams(ctx)
	if err != nil {
		return err
	}
	filter := bindFAQFilter(ctx)
	filter.Published = published(ctx, filter.Published)

	faqs, count, err := api.content.QueryFAQs(ctx.Request().Context(), filter, ordering, page)
	if err != nil {
		return errors.Wrap(err, "querying faqs")
	}
	if faqs == nil {
		faqs = []content.FAQ{}
	}
	return ctx.JSON(http.StatusOK, ListResponse{Count: count, Results: faqs})
}

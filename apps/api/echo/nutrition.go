package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/forma/core"
	"github.com/trezcool/forma/core/nutrition"
)

type nutritionApi struct {
	svc nutrition.Service
}

func registerNutritionAPI(admin *echo.Group, svc nutrition.Service) {
	api := nutritionApi{svc: svc}

	ig := admin.Group("/ingredients")
	ig.GET("", api.queryIngredients)
	ig.POST("", api.createIngredient)
	ig.GET("/:id", api.retrieveIngredient)
	ig.PUT("/:id", api.updateIngredient)
	ig.DELETE("/:id", api.destroyIngredient)

	pg := admin.Group("/nutrition-plans")
	pg.GET("", api.queryPlans)
	pg.POST("", api.createPlan)
	pg.GET("/:id", api.retrievePlan)
	pg.PUT("/:id", api.updatePlan)
	pg.DELETE("/:id", api.destroyPlan)
	pg.GET("/:id/macros", api.planMacros)

	pg.POST("/:id/days", api.addDay)
	pg.PUT("/:id/days/:did", api.updateDay)
	pg.DELETE("/:id/days/:did", api.destroyDay)
	pg.POST("/:id/days/:did/copy", api.copyDay)

	pg.POST("/:id/days/:did/meals", api.addMeal)
	pg.PUT("/:id/meals/:mid", api.updateMeal)
	pg.DELETE("/:id/meals/:mid", api.destroyMeal)

	pg.POST("/:id/meals/:mid/items", api.addMealItem)
	pg.PUT("/:id/items/:iid", api.updateMealItem)
	pg.DELETE("/:id/items/:iid", api.destroyMealItem)

	rg := admin.Group("/recipes")
	rg.GET("", api.queryRecipes)
	rg.POST("", api.createRecipe)
	rg.GET("/:id", api.retrieveRecipe)
	rg.PUT("/:id", api.updateRecipe)
	rg.DELETE("/:id", api.destroyRecipe)
	rg.GET("/:id/macros", api.recipeMacros)
}

// Ingredients

func (api *nutritionApi) queryIngredients(ctx echo.Context) error {
	ordering, page, err := bindListParams(ctx)
	if err != nil {
		return err
	}
	filter := nutrition.IngredientFilter{Search: core.CleanString(ctx.QueryParam("search"))}

	ingredients, count, err := api.svc.QueryIngredients(ctx.Request().Context(), filter, ordering, page)
	if err != nil {
		return errors.Wrap(err, "querying ingredients")
	}
	if ingredients == nil {
		ingredients = []nutrition.Ingredient{}
	}
	return ctx.JSON(http.StatusOK, ListResponse{Count: count, Results: ingredients})
}

func (api *nutritionApi) createIngredient(ctx echo.Context) error {
	var data nutrition.NewIngredient
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewIngredient")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	i, err := api.svc.CreateIngredient(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating ingredient")
	}
	return ctx.JSON(http.StatusCreated, i)
}

func (api *nutritionApi) retrieveIngredient(ctx echo.Context) error {
	i, err := api.svc.GetIngredient(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding ingredient by ID")
	}
	return ctx.JSON(http.StatusOK, i)
}

func (api *nutritionApi) updateIngredient(ctx echo.Context) error {
	i, err := api.svc.GetIngredient(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding ingredient by ID")
	}

	var data nutrition.NewIngredient
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewIngredient")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	if i, err = api.svc.UpdateIngredient(ctx.Request().Context(), i, data); err != nil {
		return errors.Wrap(err, "updating ingredient")
	}
	return ctx.JSON(http.StatusOK, i)
}

func (api *nutritionApi) destroyIngredient(ctx echo.Context) error {
	if err := api.svc.DeleteIngredient(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting ingredient")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Plans

func bindPlanFilter(ctx echo.Context) nutrition.PlanFilter {
	return nutrition.PlanFilter{
		Search:       core.CleanString(ctx.QueryParam("search")),
		Published:    queryBool(ctx, "published"),
		MembershipID: core.CleanString(ctx.QueryParam("membership_id")),
	}
}

func (api *nutritionApi) queryPlans(ctx echo.Context) error {
	ordering, page, err := bindListParams(ctx)
	if err != nil {
		return err
	}

	plans, count, err := api.svc.QueryPlans(ctx.Request().Context(), bindPlanFilter(ctx), ordering, page)
	if err != nil {
		return errors.Wrap(err, "querying nutrition plans")
	}
	if plans == nil {
		plans = []nutrition.Plan{}
	}
	return ctx.JSON(http.StatusOK, ListResponse{Count: count, Results: plans})
}

func (api *nutritionApi) createPlan(ctx echo.Context) error {
	var data nutrition.NewPlan
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPlan")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	p, err := api.svc.CreatePlan(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating nutrition plan")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *nutritionApi) retrievePlan(ctx echo.Context) error {
	p, err := api.svc.GetPlan(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding nutrition plan by ID")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *nutritionApi) updatePlan(ctx echo.Context) error {
	p, err := api.svc.GetPlan(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding nutrition plan by ID")
	}

	var data nutrition.NewPlan
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPlan")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	if p, err = api.svc.UpdatePlan(ctx.Request().Context(), p, data); err != nil {
		return errors.Wrap(err, "updating nutrition plan")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *nutritionApi) destroyPlan(ctx echo.Context) error {
	if err := api.svc.DeletePlan(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting nutrition plan")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *nutritionApi) planMacros(ctx echo.Context) error {
	pn, err := api.svc.PlanMacros(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "calculating plan macros")
	}
	return ctx.JSON(http.StatusOK, pn)
}

// Days

func (api *nutritionApi) addDay(ctx echo.Context) error {
	var data nutrition.NewDay
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewDay")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	day, err := api.svc.AddDay(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "adding day")
	}
	return ctx.JSON(http.StatusCreated, day)
}

func (api *nutritionApi) updateDay(ctx echo.Context) error {
	var data nutrition.NewDay
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewDay")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	day, err := api.svc.UpdateDay(ctx.Request().Context(), ctx.Param("id"), ctx.Param("did"), data)
	if err != nil {
		return errors.Wrap(err, "updating day")
	}
	return ctx.JSON(http.StatusOK, day)
}

func (api *nutritionApi) destroyDay(ctx echo.Context) error {
	if err := api.svc.DeleteDay(ctx.Request().Context(), ctx.Param("id"), ctx.Param("did")); err != nil {
		return errors.Wrap(err, "deleting day")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *nutritionApi) copyDay(ctx echo.Context) error {
	day, err := api.svc.CopyDay(ctx.Request().Context(), ctx.Param("id"), ctx.Param("did"))
	if err != nil {
		return errors.Wrap(err, "copying day")
	}
	return ctx.JSON(http.StatusCreated, day)
}

// Meals

func (api *nutritionApi) addMeal(ctx echo.Context) error {
	var data nutrition.NewMeal
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMeal")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	meal, err := api.svc.AddMeal(ctx.Request().Context(), ctx.Param("id"), ctx.Param("did"), data)
	if err != nil {
		return errors.Wrap(err, "adding meal")
	}
	return ctx.JSON(http.StatusCreated, meal)
}

func (api *nutritionApi) updateMeal(ctx echo.Context) error {
	var data nutrition.NewMeal
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMeal")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	meal, err := api.svc.UpdateMeal(ctx.Request().Context(), ctx.Param("id"), ctx.Param("mid"), data)
	if err != nil {
		return errors.Wrap(err, "updating meal")
	}
	return ctx.JSON(http.StatusOK, meal)
}

func (api *nutritionApi) destroyMeal(ctx echo.Context) error {
	if err := api.svc.DeleteMeal(ctx.Request().Context(), ctx.Param("id"), ctx.Param("mid")); err != nil {
		return errors.Wrap(err, "deleting meal")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *nutritionApi) addMealItem(ctx echo.Context) error {
	var data nutrition.NewMealItem
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMealItem")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	item, err := api.svc.AddMealItem(ctx.Request().Context(), ctx.Param("id"), ctx.Param("mid"), data)
	if err != nil {
		return errors.Wrap(err, "adding meal item")
	}
	return ctx.JSON(http.StatusCreated, item)
}

func (api *nutritionApi) updateMealItem(ctx echo.Context) error {
	var data nutrition.NewMealItem
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMealItem")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	item, err := api.svc.UpdateMealItem(ctx.Request().Context(), ctx.Param("id"), ctx.Param("iid"), data)
	if err != nil {
		return errors.Wrap(err, "updating meal item")
	}
	return ctx.JSON(http.StatusOK, item)
}

func (api *nutritionApi) destroyMealItem(ctx echo.Context) error {
	if err := api.svc.DeleteMealItem(ctx.Request().Context(), ctx.Param("id"), ctx.Param("iid")); err != nil {
		return errors.Wrap(err, "deleting meal item")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Recipes

func bindRecipeFilter(ctx echo.Context) nutrition.RecipeFilter {
	return nutrition.RecipeFilter{
		Search:    core.CleanString(ctx.QueryParam("search")),
		Tag:       core.CleanString(ctx.QueryParam("tag"), true /* lower */),
		Published: queryBool(ctx, "published"),
	}
}

func (api *nutritionApi) queryRecipes(ctx echo.Context) error {
	ordering, page, err := bindListParams(ctx)
	if err != nil {
		return err
	}

	recipes, count, err := api.svc.QueryRecipes(ctx.Request().Context(), bindRecipeFilter(ctx), ordering, page)
	if err != nil {
		return errors.Wrap(err, "querying recipes")
	}
	if recipes == nil {
		recipes = []nutrition.Recipe{}
	}
	return ctx.JSON(http.StatusOK, ListResponse{Count: count, Results: recipes})
}

func (api *nutritionApi) createRecipe(ctx echo.Context) error {
	var data nutrition.NewRecipe
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRecipe")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	r, err := api.svc.CreateRecipe(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating recipe")
	}
	return ctx.JSON(http.StatusCreated, r)
}

func (api *nutritionApi) retrieveRecipe(ctx echo.Context) error {
	r, err := api.svc.GetRecipe(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding recipe by ID")
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *nutritionApi) updateRecipe(ctx echo.Context) error {
	r, err := api.svc.GetRecipe(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding recipe by ID")
	}

	var data nutrition.NewRecipe
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRecipe")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	if r, err = api.svc.UpdateRecipe(ctx.Request().Context(), r, data); err != nil {
		return errors.Wrap(err, "updating recipe")
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *nutritionApi) destroyRecipe(ctx echo.Context) error {
	if err := api.svc.DeleteRecipe(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting recipe")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *nutritionApi) recipeMacros(ctx echo.Context) error {
	rn, err := api.svc.RecipeMacros(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "calculating recipe macros")
	}
	return ctx.JSON(http.StatusOK, rn)
}

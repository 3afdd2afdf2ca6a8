package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/forma/core"
	"github.com/trezcool/forma/core/emailtmpl"
)

type templateApi struct {
	svc emailtmpl.Service
}

func registerTemplateAPI(admin *echo.Group, svc emailtmpl.Service) {
	api := templateApi{svc: svc}

	tg := admin.Group("/email-templates", ownerMiddleware())
	tg.GET("", api.query)
	tg.POST("", api.create)
	tg.POST("/preview", api.preview)
	tg.GET("/keys/:key", api.resolve)
	tg.GET("/:id", api.retrieve)
	tg.PUT("/:id", api.update)
	tg.DELETE("/:id", api.destroy)
}

func (api *templateApi) query(ctx echo.Context) error {
	ordering, page, err := bindListParams(ctx)
	if err != nil {
		return err
	}

	tmpls, count, err := api.svc.Query(ctx.Request().Context(), core.CleanString(ctx.QueryParam("search")), ordering, page)
	if err != nil {
		return errors.Wrap(err, "querying email templates")
	}
	if tmpls == nil {
		tmpls = []emailtmpl.Template{}
	}
	return ctx.JSON(http.StatusOK, ListResponse{Count: count, Results: tmpls})
}

func (api *templateApi) create(ctx echo.Context) error {
	var data emailtmpl.NewTemplate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTemplate")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	t, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating email template")
	}
	return ctx.JSON(http.StatusCreated, t)
}

func (api *templateApi) resolve(ctx echo.Context) error {
	t, err := api.svc.Resolve(ctx.Request().Context(), core.CleanString(ctx.Param("key"), true /* lower */))
	if err != nil {
		return errors.Wrap(err, "resolving email template")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *templateApi) retrieve(ctx echo.Context) error {
	t, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding email template by ID")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *templateApi) update(ctx echo.Context) error {
	t, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding email template by ID")
	}

	var data emailtmpl.NewTemplate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTemplate")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	if t, err = api.svc.Update(ctx.Request().Context(), t, data); err != nil {
		return errors.Wrap(err, "updating email template")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *templateApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting email template")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *templateApi) preview(ctx echo.Context) error {
	var data emailtmpl.PreviewRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PreviewRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	r, err := api.svc.Preview(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "previewing email template")
	}
	return ctx.JSON(http.StatusOK, r)
}

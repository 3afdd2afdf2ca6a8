package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/forma/core"
	"github.com/trezcool/forma/core/membership"
)

type membershipApi struct {
	svc membership.Service
}

func registerMembershipAPI(admin *echo.Group, svc membership.Service) {
	api := membershipApi{svc: svc}

	mg := admin.Group("/memberships", ownerMiddleware())
	mg.GET("", api.query)
	mg.POST("", api.create)
	mg.GET("/:id", api.retrieve)
	mg.PUT("/:id", api.update)
	mg.DELETE("/:id", api.destroy)

	sg := admin.Group("/subscriptions", ownerMiddleware())
	sg.GET("", api.querySubscriptions)
	sg.POST("", api.subscribe)
	sg.GET("/:id", api.retrieveSubscription)
	sg.POST("/:id/cancel", api.cancel)
}

func (api *membershipApi) query(ctx echo.Context) error {
	filter := membership.QueryFilter{
		Search:   ctx.QueryParam("search"),
		IsActive: queryBool(ctx, "is_active"),
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)
	var page Pagination
	if err := page.Bind(ctx); err != nil {
		return err
	}

	ms, count, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings, page.Page)
	if err != nil {
		return errors.Wrap(err, "querying memberships")
	}
	if ms == nil {
		ms = []membership.Membership{}
	}
	return ctx.JSON(http.StatusOK, ListResponse{Count: count, Results: ms})
}

func (api *membershipApi) create(ctx echo.Context) error {
	var data membership.NewMembership
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMembership")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	m, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating membership")
	}
	return ctx.JSON(http.StatusCreated, m)
}

func (api *membershipApi) retrieve(ctx echo.Context) error {
	m, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding membership by ID")
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *membershipApi) update(ctx echo.Context) error {
	m, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding membership by ID")
	}

	var data membership.NewMembership
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMembership")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	if m, err = api.svc.Update(ctx.Request().Context(), m, data); err != nil {
		return errors.Wrap(err, "updating membership")
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *membershipApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting membership")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *membershipApi) querySubscriptions(ctx echo.Context) error {
	filter := membership.SubscriptionFilter{
		UserID:       core.CleanString(ctx.QueryParam("user_id")),
		MembershipID: core.CleanString(ctx.QueryParam("membership_id")),
		Status:       core.CleanString(ctx.QueryParam("status"), true /* lower */),
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)
	var page Pagination
	if err := page.Bind(ctx); err != nil {
		return err
	}

	subs, count, err := api.svc.QuerySubscriptions(ctx.Request().Context(), filter, ordering.Orderings, page.Page)
	if err != nil {
		return errors.Wrap(err, "querying subscriptions")
	}
	if subs == nil {
		subs = []membership.Subscription{}
	}
	return ctx.JSON(http.StatusOK, ListResponse{Count: count, Results: subs})
}

func (api *membershipApi) subscribe(ctx echo.Context) error {
	var data membership.NewSubscription
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubscription")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	sub, err := api.svc.Subscribe(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "subscribing")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *membershipApi) retrieveSubscription(ctx echo.Context) error {
	sub, err := api.svc.GetSubscription(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding subscription by ID")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *membershipApi) cancel(ctx echo.Context) error {
	sub, err := api.svc.Cancel(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "cancelling subscription")
	}
	return ctx.JSON(http.StatusOK, sub)
}

package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/forma/core"
	"github.com/trezcool/forma/core/membership"
	"github.com/trezcool/forma/core/user"
)

func adminMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			isAdmin := claims.IsAdmin
			if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
				isAdmin = usr.IsAdmin()
			}
			if isAdmin && contextHasAnyRole(ctx, roles) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// ownerMiddleware restricts a route to the admins allowed to manage the platform itself.
func ownerMiddleware() echo.MiddlewareFunc {
	return adminMiddleware(user.RoleAdmin, user.RoleAdminOwner)
}

// activeUserMiddleware loads the authenticated user into the context and rejects deactivated accounts.
func activeUserMiddleware(svc user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx, svc)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			if !usr.IsActive {
				return errAccountDeactivated
			}
			return next(ctx)
		}
	}
}

func contextUserID(ctx echo.Context) string {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr.ID
	}
	if claims, err := getContextClaims(ctx); err == nil {
		return claims.Subject
	}
	return ""
}

// checkAccess reports whether the authenticated user may open content gated by membershipID.
// Admins and ungated content always pass.
func checkAccess(ctx echo.Context, svc membership.Service, membershipID *string) (bool, error) {
	if membershipID == nil || *membershipID == "" {
		return true, nil
	}
	if claims, err := getContextClaims(ctx); err == nil && claims.IsAdmin {
		return true, nil
	}
	ok, err := svc.HasAccess(ctx.Request().Context(), contextUserID(ctx), *membershipID, core.NowFunc().UTC())
	if err != nil {
		return false, errors.Wrap(err, "checking membership access")
	}
	return ok, nil
}

func requireAccess(ctx echo.Context, svc membership.Service, membershipID *string) error {
	ok, err := checkAccess(ctx, svc, membershipID)
	if err != nil {
		return err
	}
	if !ok {
		return errHttpForbidden
	}
	return nil
}

// isContextAdmin reports whether the token belongs to a back-office user.
func isContextAdmin(ctx echo.Context) bool {
	claims, err := getContextClaims(ctx)
	return err == nil && claims.IsAdmin
}

package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/rainbowkidsrealm/jaja2-sub000/core/access"
)

// userMiddleware loads the authenticated user into the context.
func userMiddleware(auth *authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if _, err := auth.contextUser(ctx); err != nil {
				return errors.Wrap(err, "getting context user")
			}
			return next(ctx)
		}
	}
}

// viewMiddleware lets through the users whose role may view the target.
func viewMiddleware(auth *authenticator, target access.Target) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := auth.contextUser(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			if !access.CanView(usr.Role, target) {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}

// performMiddleware lets through the users whose role may perform action on the target.
func performMiddleware(auth *authenticator, target access.Target, action access.Action) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := auth.contextUser(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			if !access.CanPerform(usr.Role, target, action) {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}

package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/vidhyasetu/backend/core/user"
)

// capMiddleware lets the request through when the context user holds any of caps.
func capMiddleware(svc user.Service, caps ...user.Capability) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx, svc)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			for _, c := range caps {
				if usr.Can(c) {
					return next(ctx)
				}
			}
			return errHttpForbidden
		}
	}
}

// passwordChangedMiddleware blocks identities that still hold a temporary password.
func passwordChangedMiddleware(svc user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx, svc)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			if !usr.IsActive {
				return errAccountDeactivated
			}
			if usr.MustChangePassword {
				return errPasswordChangeRequired
			}
			return next(ctx)
		}
	}
}

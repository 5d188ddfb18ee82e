package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/vidhyasetu/backend/core"
	"github.com/vidhyasetu/backend/core/fees"
	"github.com/vidhyasetu/backend/core/marks"
	"github.com/vidhyasetu/backend/core/notice"
	"github.com/vidhyasetu/backend/core/user"
)

var (
	errUnauthorized           = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed   = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errAccountDeactivated     = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired         = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errPasswordChangeRequired = echo.NewHTTPError(http.StatusForbidden, "password change required")
	errHttpForbidden          = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound           = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// notFoundErrs are the sentinel errors answered with a 404.
var notFoundErrs = []error{
	user.ErrNotFound,
	user.ErrProfileNotFound,
	marks.ErrSubjectNotFound,
	fees.ErrStructureNotFound,
	fees.ErrRecordNotFound,
	notice.ErrNotFound,
}

func isNotFound(err error) bool {
	for _, target := range notFoundErrs {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		default:
			switch {
			case errors.Is(err, core.ErrPermissionDenied):
				code = http.StatusForbidden
				message = core.ErrPermissionDenied.Error()
			case isNotFound(err):
				code = http.StatusNotFound
				message = errors.Cause(err).Error()
			case errors.Is(err, core.ErrConflict):
				code = http.StatusConflict
				message = "a conflicting record already exists"
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg

				var usr user.User
				if claims, cErr := getContextClaims(ctx); cErr == nil {
					usr.ID = claims.Subject
					usr.Username = claims.Username
					usr.Email = claims.Email
					usr.Role = claims.Role
				}
				logger.Error(msg, errors.Wrap(err, msg), usr)

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

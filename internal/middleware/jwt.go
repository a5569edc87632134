package middleware // reusable HTTP middleware for the echo router

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/inventory-admin/internal/model"
	"github.com/iliyamo/inventory-admin/internal/service"
)

// identityKey is the echo context key holding the authenticated identity.
const identityKey = "auth.identity"

type ctxKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id model.Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// IdentityFromContext returns the identity stored by JWTAuth in a request
// context.
func IdentityFromContext(ctx context.Context) (model.Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(model.Identity)
	return id, ok
}

// IdentityFrom returns the identity JWTAuth attached to c.
func IdentityFrom(c echo.Context) (model.Identity, bool) {
	id, ok := c.Get(identityKey).(model.Identity)
	return id, ok
}

// JWTAuth runs the access gate on the Authorization header. On success the
// identity is stored in the echo context and in the request context, and
// the next handler runs. Every token or account rejection is answered with
// 401; a storage failure is answered with 500 so the gate never fails open.
func JWTAuth(gate *service.Gate, log logrus.FieldLogger) echo.MiddlewareFunc {
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithField("component", "jwt_auth")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			id, err := gate.Authenticate(req.Context(), req.Header.Get(echo.HeaderAuthorization))
			if err != nil {
				kind := service.KindOf(err)
				if kind == service.KindInternal {
					log.WithError(err).Error("access gate failed")
					return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal server error"})
				}
				log.WithFields(logrus.Fields{"reason": kind.String(), "path": req.URL.Path}).Debug("request rejected")
				return c.JSON(http.StatusUnauthorized, echo.Map{"message": rejectionMessage(err), "code": kind.String()})
			}
			c.Set(identityKey, id)
			c.SetRequest(req.WithContext(WithIdentity(req.Context(), id)))
			return next(c)
		}
	}
}

func rejectionMessage(err error) string {
	var se *service.Error
	if errors.As(err, &se) {
		return se.Message
	}
	return "unauthorized"
}

package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/inventory-admin/internal/model"
)

// RequirePermission rejects requests whose token role snapshot lacks perm.
// It must run after JWTAuth; a request without an identity gets 401 and one
// without the permission gets 403.
func RequirePermission(perm string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := IdentityFrom(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"message": "no token, authorization denied"})
			}
			if !model.HasPermission(id, perm) {
				return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
			}
			return next(c)
		}
	}
}

package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// userID returns the authenticated account id as a string, or "anon" for
// requests that have not passed JWTAuth.
func userID(c echo.Context) string {
	if id, ok := IdentityFrom(c); ok && id.AccountID != 0 {
		return strconv.FormatUint(id.AccountID, 10)
	}
	return "anon"
}

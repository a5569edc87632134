package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/inventory-admin/internal/service"
)

var errInvalidID = errors.New("invalid id")

// statusFor maps a service error kind onto an HTTP status.
func statusFor(kind service.Kind) int {
	switch kind {
	case service.KindValidation, service.KindConflict:
		return http.StatusBadRequest
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindUnauthenticated, service.KindExpired, service.KindRevoked, service.KindAccountInactive:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as JSON. Internal errors are logged with their
// cause and answered with a generic message.
func respondError(c echo.Context, log logrus.FieldLogger, err error) error {
	var se *service.Error
	if !errors.As(err, &se) || se.Kind == service.KindInternal {
		log.WithError(err).WithField("path", c.Request().URL.Path).Error("request failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal server error"})
	}
	body := echo.Map{"message": se.Message}
	if se.Field != "" {
		body["field"] = se.Field
	}
	if st := statusFor(se.Kind); st == http.StatusUnauthorized {
		body["code"] = se.Kind.String()
	}
	return c.JSON(statusFor(se.Kind), body)
}

func badBody(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body"})
}

func parseID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errInvalidID
	}
	return id, nil
}

func orStandard(log logrus.FieldLogger) logrus.FieldLogger {
	if log == nil {
		return logrus.StandardLogger()
	}
	return log
}

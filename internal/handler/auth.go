package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/inventory-admin/internal/middleware"
	"github.com/iliyamo/inventory-admin/internal/service"
)

// AuthHandler exposes registration, login and the session endpoints.
type AuthHandler struct {
	svc *service.AuthService
	log logrus.FieldLogger
}

func NewAuthHandler(svc *service.AuthService, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{svc: svc, log: orStandard(log).WithField("component", "auth_handler")}
}

// Register: create an ACTIVE account. Public.
func (h *AuthHandler) Register(c echo.Context) error {
	var req service.RegisterInput
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	u, err := h.svc.Register(c.Request().Context(), req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "user registered", "data": u.Public()})
}

// Login: verify credentials and return a fresh access token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req service.LoginInput
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	res, err := h.svc.Login(c.Request().Context(), req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":   "login successful",
		"data":      res.User.Public(),
		"token":     res.Token.Token,
		"expiresAt": res.Token.ExpiresAt,
	})
}

// Logout: revoke the token this request authenticated with.
func (h *AuthHandler) Logout(c echo.Context) error {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return respondError(c, h.log, service.ErrNoToken)
	}
	if err := h.svc.Logout(c.Request().Context(), id); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

// Me: the caller's live account record.
func (h *AuthHandler) Me(c echo.Context) error {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return respondError(c, h.log, service.ErrNoToken)
	}
	u, err := h.svc.Account(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": u.Public(), "role": id.Role})
}

// Get: public view of any account.
func (h *AuthHandler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": err.Error()})
	}
	u, err := h.svc.User(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": u.Public()})
}

// ChangePassword: replace the caller's password.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return respondError(c, h.log, service.ErrNoToken)
	}
	var req service.ChangePasswordInput
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	if err := h.svc.ChangePassword(c.Request().Context(), id, req); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}

// Deactivate: flip an account to INACTIVE.
func (h *AuthHandler) Deactivate(c echo.Context) error {
	actor, ok := middleware.IdentityFrom(c)
	if !ok {
		return respondError(c, h.log, service.ErrNoToken)
	}
	accountID, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": err.Error()})
	}
	if err := h.svc.Deactivate(c.Request().Context(), actor, accountID); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "user deactivated"})
}

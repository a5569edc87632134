package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/inventory-admin/internal/service"
)

// RoleHandler exposes role reads and mutations.
type RoleHandler struct {
	svc *service.AuthService
	log logrus.FieldLogger
}

func NewRoleHandler(svc *service.AuthService, log logrus.FieldLogger) *RoleHandler {
	return &RoleHandler{svc: svc, log: orStandard(log).WithField("component", "role_handler")}
}

func (h *RoleHandler) List(c echo.Context) error {
	roles, err := h.svc.ListRoles(c.Request().Context())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": roles})
}

func (h *RoleHandler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": err.Error()})
	}
	role, err := h.svc.GetRole(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": role})
}

func (h *RoleHandler) Create(c echo.Context) error {
	var req service.RoleInput
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	role, err := h.svc.CreateRole(c.Request().Context(), req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "role created", "data": role})
}

// Update replaces name and access. Tokens already issued keep their role
// snapshot until they expire.
func (h *RoleHandler) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": err.Error()})
	}
	var req service.RoleInput
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	role, err := h.svc.UpdateRole(c.Request().Context(), id, req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "role updated", "data": role})
}

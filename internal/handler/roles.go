package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/antonkondratyev/api-universal/internal/repository"
	"github.com/antonkondratyev/api-universal/internal/service"
)

// RoleHandler serves /roles.
type RoleHandler struct {
	Roles *service.RoleService
}

func NewRoleHandler(s *service.RoleService) *RoleHandler {
	return &RoleHandler{Roles: s}
}

func (h *RoleHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	roles, err := h.Roles.List(ctx)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, "Success", roles)
}

func (h *RoleHandler) Get(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	role, err := h.Roles.Get(ctx, roleParam(c))
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, "Success", role)
}

func (h *RoleHandler) Create(c echo.Context) error {
	me, err := caller(c)
	if err != nil {
		return err
	}
	var in service.RoleInput
	if err := c.Bind(&in); err != nil {
		return service.ErrRoleNameRequired
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	role, err := h.Roles.Create(ctx, me.ID, in)
	if err != nil {
		return err
	}
	return success(c, http.StatusCreated, "Role Successfully Added", role)
}

func (h *RoleHandler) Change(c echo.Context) error {
	me, err := caller(c)
	if err != nil {
		return err
	}
	var p service.RolePatch
	if err := c.Bind(&p); err != nil {
		return service.ErrValidation
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	role, err := h.Roles.Change(ctx, me.ID, roleParam(c), p)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, "Role Successfully Changed", role)
}

func (h *RoleHandler) Replace(c echo.Context) error {
	me, err := caller(c)
	if err != nil {
		return err
	}
	var in service.RoleInput
	if err := c.Bind(&in); err != nil {
		return service.ErrRoleNameRequired
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	role, err := h.Roles.Replace(ctx, me.ID, roleParam(c), in)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, "Role Successfully Updated", role)
}

func (h *RoleHandler) Remove(c echo.Context) error {
	me, err := caller(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Roles.Remove(ctx, me.ID, roleParam(c)); err != nil {
		return err
	}
	return success(c, http.StatusOK, "Role Successfully Removed", nil)
}

func roleParam(c echo.Context) repository.Identifier {
	return repository.ParseIdentifier(c.Param("role"))
}

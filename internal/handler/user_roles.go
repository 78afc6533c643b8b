package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/antonkondratyev/api-universal/internal/repository"
	"github.com/antonkondratyev/api-universal/internal/service"
)

// UserRolesHandler serves /users/:user/roles.
type UserRolesHandler struct {
	Users *service.UserService
}

func NewUserRolesHandler(s *service.UserService) *UserRolesHandler {
	return &UserRolesHandler{Users: s}
}

type addRolesReq struct {
	Roles []uint `json:"roles"`
}

func (h *UserRolesHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	roles, err := h.Users.Roles(ctx, userParam(c))
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, "Success", roles)
}

// Add merges the posted role ids into the user's set.
func (h *UserRolesHandler) Add(c echo.Context) error {
	me, err := caller(c)
	if err != nil {
		return err
	}
	var req addRolesReq
	if err := c.Bind(&req); err != nil {
		return service.ErrRoleIDsRequired
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.AddRoles(ctx, me.ID, userParam(c), req.Roles)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, "User Roles Successfully Added", u)
}

func (h *UserRolesHandler) Remove(c echo.Context) error {
	me, err := caller(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	role := repository.ParseIdentifier(c.Param("role"))
	u, err := h.Users.RemoveRole(ctx, me.ID, userParam(c), role)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, "User Role Successfully Removed", u)
}

package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/antonkondratyev/api-universal/internal/repository"
	"github.com/antonkondratyev/api-universal/internal/service"
)

// UserHandler serves /users. Mutations are checked for admin rights by
// the service.
type UserHandler struct {
	Users *service.UserService
}

func NewUserHandler(s *service.UserService) *UserHandler {
	return &UserHandler{Users: s}
}

func (h *UserHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	users, err := h.Users.List(ctx)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, "Success", users)
}

func (h *UserHandler) Get(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.Get(ctx, userParam(c))
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, "Success", u)
}

func (h *UserHandler) Create(c echo.Context) error {
	me, err := caller(c)
	if err != nil {
		return err
	}
	var in service.UserInput
	if err := c.Bind(&in); err != nil {
		return service.ErrCredentialsRequired
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.Create(ctx, me.ID, in)
	if err != nil {
		return err
	}
	return success(c, http.StatusCreated, "User Successfully Added", u)
}

// Change handles PATCH: only the fields present in the body are updated.
func (h *UserHandler) Change(c echo.Context) error {
	me, err := caller(c)
	if err != nil {
		return err
	}
	var p service.UserPatch
	if err := c.Bind(&p); err != nil {
		return service.ErrValidation
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.Change(ctx, me.ID, userParam(c), p)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, "User Successfully Changed", u)
}

// Replace handles PUT: every mutable field is overwritten.
func (h *UserHandler) Replace(c echo.Context) error {
	me, err := caller(c)
	if err != nil {
		return err
	}
	var in service.UserInput
	if err := c.Bind(&in); err != nil {
		return service.ErrCredentialsRequired
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.Replace(ctx, me.ID, userParam(c), in)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, "User Successfully Updated", u)
}

func (h *UserHandler) Remove(c echo.Context) error {
	me, err := caller(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Users.Remove(ctx, me.ID, userParam(c)); err != nil {
		return err
	}
	return success(c, http.StatusOK, "User Successfully Removed", nil)
}

func userParam(c echo.Context) repository.Identifier {
	return repository.ParseIdentifier(c.Param("user"))
}

package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/antonkondratyev/api-universal/internal/middleware"
	"github.com/antonkondratyev/api-universal/internal/service"
)

// AuthHandler serves the /auth endpoints.
type AuthHandler struct {
	Sessions *service.SessionService
}

func NewAuthHandler(s *service.SessionService) *AuthHandler {
	return &AuthHandler{Sessions: s}
}

// Register creates a user and returns its first token pair.
func (h *AuthHandler) Register(c echo.Context) error {
	body, err := credentials(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	creds, err := h.Sessions.Register(ctx, body.Username, body.Password)
	if err != nil {
		return err
	}
	return success(c, http.StatusCreated, "User Successfully Registered", creds)
}

// Login verifies the password and returns a fresh pair.
func (h *AuthHandler) Login(c echo.Context) error {
	body, err := credentials(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	creds, err := h.Sessions.Login(ctx, body.Username, body.Password)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, "Token Regenerated", creds)
}

// Logout drops the caller's refresh token.
func (h *AuthHandler) Logout(c echo.Context) error {
	u, err := caller(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Sessions.Logout(ctx, u); err != nil {
		return err
	}
	return success(c, http.StatusOK, "User Logged Out", nil)
}

// Token echoes the identity of a valid access token.
func (h *AuthHandler) Token(c echo.Context) error {
	u, err := caller(c)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, "Success", echo.Map{"access": true, "user": u})
}

// Refresh rotates the presented refresh token.
func (h *AuthHandler) Refresh(c echo.Context) error {
	u, err := caller(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	creds, err := h.Sessions.Refresh(ctx, u, middleware.RawToken(c))
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, "Token Regenerated", creds)
}

// credentials prefers the body bound by the credentials middleware and
// binds it here otherwise.
func credentials(c echo.Context) (middleware.CredentialsBody, error) {
	if b, ok := middleware.CredentialsFrom(c); ok {
		return b, nil
	}
	var b middleware.CredentialsBody
	if err := c.Bind(&b); err != nil {
		return b, service.ErrCredentialsRequired
	}
	return b, nil
}

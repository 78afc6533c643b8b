package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/antonkondratyev/api-universal/internal/model"
	"github.com/antonkondratyev/api-universal/internal/service"
)

// Verifier decodes a raw bearer token into the user claim it carries.
// utils.TokenIssuer's VerifyAccess and VerifyRefresh satisfy it.
type Verifier func(raw string) (model.UserSummary, error)

// RequireToken returns a middleware that admits a request only with a
// bearer token accepted by verify. A missing token fails with
// service.ErrNoToken before anything else is consulted; a rejected one
// with service.ErrUnauthorized. On success the claim and the raw token are
// stored in the context for the handler.
func RequireToken(verify Verifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := bearer(c.Request().Header.Get(echo.HeaderAuthorization))
			if raw == "" {
				return service.ErrNoToken
			}
			claim, err := verify(raw)
			if err != nil {
				return service.ErrUnauthorized
			}
			c.Set(claimKey, claim)
			c.Set(rawTokenKey, raw)
			return next(c)
		}
	}
}

// bearer extracts the token from an "Authorization: Bearer <token>" value.
func bearer(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

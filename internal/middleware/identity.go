package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/antonkondratyev/api-universal/internal/model"
)

// Context keys set by RequireToken and Credentials.
const (
	claimKey       = "claim"
	rawTokenKey    = "raw_token"
	credentialsKey = "credentials"
)

// Claim returns the verified user claim of the request.
func Claim(c echo.Context) (model.UserSummary, bool) {
	u, ok := c.Get(claimKey).(model.UserSummary)
	return u, ok
}

// RawToken returns the bearer token the claim was decoded from.
func RawToken(c echo.Context) string {
	s, _ := c.Get(rawTokenKey).(string)
	return s
}

// userID returns the caller id as a string, or "guest" when the request
// carries no verified claim.
func userID(c echo.Context) string {
	if u, ok := Claim(c); ok {
		return strconv.FormatUint(uint64(u.ID), 10)
	}
	return "guest"
}

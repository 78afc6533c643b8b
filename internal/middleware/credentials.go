package middleware

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/antonkondratyev/api-universal/internal/config"
	"github.com/antonkondratyev/api-universal/internal/service"
	"github.com/antonkondratyev/api-universal/internal/utils"
)

// CredentialsBody is the JSON body of register and login.
type CredentialsBody struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// Credentials binds the request body once, checks it against the policy
// and stores it for the handler. The username is trimmed first so the
// length limits apply to the name that gets stored.
func Credentials(opts config.CredentialOptions) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var body CredentialsBody
			if err := c.Bind(&body); err != nil {
				return service.ErrCredentialsRequired
			}
			body.Username = strings.TrimSpace(body.Username)
			if err := utils.ValidateCredentials(opts, body.Username, body.Password); err != nil {
				var ce *utils.CredentialError
				if errors.As(err, &ce) && ce.Field != "username and password" {
					return &service.Error{Kind: service.KindValidation, Message: ce.Error()}
				}
				return service.ErrCredentialsRequired
			}
			c.Set(credentialsKey, body)
			return next(c)
		}
	}
}

// CredentialsFrom returns the body stored by Credentials.
func CredentialsFrom(c echo.Context) (CredentialsBody, bool) {
	b, ok := c.Get(credentialsKey).(CredentialsBody)
	return b, ok
}

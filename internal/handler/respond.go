package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/antonkondratyev/api-universal/internal/middleware"
	"github.com/antonkondratyev/api-universal/internal/model"
	"github.com/antonkondratyev/api-universal/internal/service"
)

// requestTimeout bounds the store calls made on behalf of one request.
const requestTimeout = 5 * time.Second

// envelope is the body of every JSON response. Errors carry only a
// message.
type envelope struct {
	Data    any    `json:"data,omitempty"`
	Message string `json:"message"`
}

func success(c echo.Context, status int, message string, data any) error {
	return c.JSON(status, envelope{Data: data, Message: message})
}

// StatusOf maps a service error kind to its HTTP status.
func StatusOf(k service.Kind) int {
	switch k {
	case service.KindValidation, service.KindAlreadyExists:
		return http.StatusBadRequest
	case service.KindInvalidCredentials, service.KindInvalidToken, service.KindUnauthorized:
		return http.StatusUnauthorized
	case service.KindForbidden:
		return http.StatusForbidden
	case service.KindNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// ErrorHandler renders any error returned by a handler or middleware with
// the common envelope. Unclassified errors are logged and reported as
// internal.
func ErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, msg := http.StatusInternalServerError, service.ErrInternal.Message

		var se *service.Error
		var he *echo.HTTPError
		switch {
		case errors.As(err, &se):
			status, msg = StatusOf(se.Kind), se.Message
		case errors.As(err, &he):
			status = he.Code
			msg = http.StatusText(he.Code)
			if m, ok := he.Message.(string); ok {
				msg = m
			}
		default:
			log.Error().Err(err).Str("path", c.Request().URL.Path).Msg("unhandled error")
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, envelope{Message: msg})
		}
		if err != nil {
			log.Error().Err(err).Msg("write error response")
		}
	}
}

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// caller returns the verified claim. Routes reaching a handler that uses
// it are always behind middleware.RequireToken.
func caller(c echo.Context) (model.UserSummary, error) {
	u, ok := middleware.Claim(c)
	if !ok {
		return model.UserSummary{}, fmt.Errorf("handler %s: %w", c.Path(), service.ErrUnauthorized)
	}
	return u, nil
}

// Package router assembles the echo instance from independent route
// tables.
package router

import (
	"net/http"
	"slices"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/antonkondratyev/api-universal/internal/config"
	"github.com/antonkondratyev/api-universal/internal/handler"
	"github.com/antonkondratyev/api-universal/internal/metrics"
	"github.com/antonkondratyev/api-universal/internal/middleware"
	"github.com/antonkondratyev/api-universal/internal/utils"
)

// Route binds one method and path to a handler and the gates it runs
// behind, in order.
type Route struct {
	Method     string
	Path       string
	Handler    echo.HandlerFunc
	Middleware []echo.MiddlewareFunc
}

// Table is a group of routes under a common prefix. Table middleware runs
// before the route's own.
type Table struct {
	Prefix     string
	Middleware []echo.MiddlewareFunc
	Routes     []Route
}

// Register adds every route of t to e.
func (t Table) Register(e *echo.Echo) {
	for _, r := range t.Routes {
		mw := append(slices.Clone(t.Middleware), r.Middleware...)
		e.Add(r.Method, t.Prefix+r.Path, r.Handler, mw...)
	}
}

// Deps lists what the tables are built from. Cache and MetricsHandler may
// be nil.
type Deps struct {
	Auth      *handler.AuthHandler
	Users     *handler.UserHandler
	UserRoles *handler.UserRolesHandler
	Roles     *handler.RoleHandler

	Issuer      *utils.TokenIssuer
	Credentials config.CredentialOptions
	Origins     []string

	Cache          echo.MiddlewareFunc
	Metrics        *metrics.Metrics
	MetricsHandler http.Handler
	Log            zerolog.Logger
}

// New returns a configured echo instance with every table registered.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.ErrorHandler(d.Log)

	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(corsConfig(d.Origins)))
	e.Use(middleware.RequestLogger(d.Log))
	e.Use(d.Metrics.Middleware())

	e.GET("/healthz", handler.Health)
	if d.MetricsHandler != nil {
		e.GET("/metrics", echo.WrapHandler(d.MetricsHandler))
	}

	for _, t := range Tables(d) {
		t.Register(e)
	}
	return e
}

// Tables returns the auth, users, user-roles and roles tables.
func Tables(d Deps) []Table {
	access := middleware.RequireToken(d.Issuer.VerifyAccess)
	refresh := middleware.RequireToken(d.Issuer.VerifyRefresh)
	creds := middleware.Credentials(d.Credentials)

	cache := d.Cache
	if cache == nil {
		cache = func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	// the access gate runs first so anonymous requests never reach the cache
	guarded := []echo.MiddlewareFunc{access, cache}

	return []Table{
		{
			Prefix: "/auth",
			Routes: []Route{
				// a new account changes cached user listings
				{Method: http.MethodPost, Path: "/register", Handler: d.Auth.Register, Middleware: []echo.MiddlewareFunc{creds, cache}},
				{Method: http.MethodPost, Path: "/login", Handler: d.Auth.Login, Middleware: []echo.MiddlewareFunc{creds}},
				{Method: http.MethodPost, Path: "/logout", Handler: d.Auth.Logout, Middleware: []echo.MiddlewareFunc{access}},
				{Method: http.MethodPost, Path: "/token", Handler: d.Auth.Token, Middleware: []echo.MiddlewareFunc{access}},
				{Method: http.MethodPost, Path: "/refresh", Handler: d.Auth.Refresh, Middleware: []echo.MiddlewareFunc{refresh}},
			},
		},
		{
			Prefix:     "/users",
			Middleware: guarded,
			Routes: []Route{
				{Method: http.MethodGet, Path: "", Handler: d.Users.List},
				{Method: http.MethodPost, Path: "", Handler: d.Users.Create},
				{Method: http.MethodGet, Path: "/:user", Handler: d.Users.Get},
				{Method: http.MethodPatch, Path: "/:user", Handler: d.Users.Change},
				{Method: http.MethodPut, Path: "/:user", Handler: d.Users.Replace},
				{Method: http.MethodDelete, Path: "/:user", Handler: d.Users.Remove},
			},
		},
		{
			Prefix:     "/users/:user/roles",
			Middleware: guarded,
			Routes: []Route{
				{Method: http.MethodGet, Path: "", Handler: d.UserRoles.List},
				{Method: http.MethodPost, Path: "", Handler: d.UserRoles.Add},
				{Method: http.MethodDelete, Path: "/:role", Handler: d.UserRoles.Remove},
			},
		},
		{
			Prefix:     "/roles",
			Middleware: guarded,
			Routes: []Route{
				{Method: http.MethodGet, Path: "", Handler: d.Roles.List},
				{Method: http.MethodPost, Path: "", Handler: d.Roles.Create},
				{Method: http.MethodGet, Path: "/:role", Handler: d.Roles.Get},
				{Method: http.MethodPatch, Path: "/:role", Handler: d.Roles.Change},
				{Method: http.MethodPut, Path: "/:role", Handler: d.Roles.Replace},
				{Method: http.MethodDelete, Path: "/:role", Handler: d.Roles.Remove},
			},
		},
	}
}

// corsConfig allows credentials. A "*" entry reflects any request origin.
func corsConfig(origins []string) echomw.CORSConfig {
	cfg := echomw.CORSConfig{
		AllowCredentials: true,
		AllowMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType},
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowOriginFunc = func(string) (bool, error) { return true, nil }
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}

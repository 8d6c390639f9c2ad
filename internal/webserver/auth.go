package webserver

import (
	"github.com/labstack/echo/v4"

	"github.com/workergo/portal/internal/auth"
	"github.com/workergo/portal/internal/session"
)

const authContextKey = "workergo.auth"

// withAuth gives every request its own Auth Context, restored from the
// browser's storage. Handlers and the guard only ever see this one.
func (w *Webserver) withAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		store := session.NewStore(w.sessions.For(c), w.codec, w.logger)
		c.Set(authContextKey, auth.New(c.Request().Context(), store))
		return next(c)
	}
}

// authFrom returns nil outside withAuth, which the auth read methods treat as
// signed out.
func authFrom(c echo.Context) *auth.Context {
	a, _ := c.Get(authContextKey).(*auth.Context)
	return a
}

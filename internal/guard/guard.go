// Package guard decides whether a request may enter a role-scoped part of the
// portal. Evaluate is pure; Require is the echo middleware acting on it.
package guard

import (
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/workergo/portal/internal/auth"
	"github.com/workergo/portal/internal/identity"
)

const LoginPath = "/login"

// Decision is either Allow or Redirect(Target).
type Decision struct {
	Allowed bool
	Target  string
}

func Allow() Decision {
	return Decision{Allowed: true}
}

func Redirect(target string) Decision {
	return Decision{Target: target}
}

// LoginRedirect sends the browser to the login page, remembering where it
// was headed.
func LoginRedirect(requested string) Decision {
	if requested == "" {
		return Redirect(LoginPath)
	}
	return Redirect(LoginPath + "?" + url.Values{"redir": {requested}}.Encode())
}

// Evaluate treats a signed-in user with the wrong role exactly like an
// anonymous one: both go to the login page.
func Evaluate(s auth.Session, required identity.Role, requested string) Decision {
	if s == nil || !s.IsAuthenticated() {
		return LoginRedirect(requested)
	}

	role, ok := s.Role()
	if !ok || role != required {
		return LoginRedirect(requested)
	}

	return Allow()
}

// Require runs Evaluate on every request it sees. lookup returns the
// request's session; nil counts as signed out.
func Require(required identity.Role, lookup func(echo.Context) auth.Session) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			decision := Evaluate(lookup(c), required, c.Request().URL.RequestURI())
			if !decision.Allowed {
				return c.Redirect(http.StatusFound, decision.Target)
			}
			return next(c)
		}
	}
}

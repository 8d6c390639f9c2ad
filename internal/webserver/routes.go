package webserver

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/workergo/portal/internal/accesscontrol"
	"github.com/workergo/portal/internal/backend"
	"github.com/workergo/portal/internal/identity"
)

const (
	msgLoginFailed        = "Login failed. Please check your credentials."
	msgRegisterFailed     = "Registration failed"
	msgPasswordsMismatch  = "Passwords do not match"
	msgMissingCredentials = "Please enter your email and password."
	msgStatsFailed        = "Failed to load statistics. Please try again later."
	msgSSONotConfigured   = "Admin sign-in is not configured on this portal."
)

var (
	employerTabs = []tab{{Slug: "overview", Label: "Overview"}, {Slug: "jobs", Label: "Job Postings"}, {Slug: "post", Label: "Post a Job"}}
	brokerTabs   = []tab{{Slug: "workers", Label: "Workers"}, {Slug: "register", Label: "Register Worker"}}
	adminTabs    = []tab{{Slug: "overview", Label: "Overview"}, {Slug: "users", Label: "Users"}, {Slug: "settings", Label: "Settings"}}
)

type AuthInfoRes struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type unauthorizedResponse struct {
	Error string `json:"error"`
}

func (w *Webserver) landingRouteHandler(c echo.Context) error {
	return c.Render(http.StatusOK, "landing.html", w.newPage(c, "WorkerGo"))
}

func (w *Webserver) healthRouteHandler(c echo.Context) error {
	if err := w.backend.Ping(c.Request().Context()); err != nil {
		w.logger.WarnContext(c.Request().Context(), "backend health check failed", "error", err)
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"backend": "unavailable"})
	}
	return c.JSON(http.StatusOK, map[string]string{"backend": "ok"})
}

func (w *Webserver) renderLogin(c echo.Context, status int, form formValues, errMsg string) error {
	p := w.newPage(c, "Sign in to WorkerGo")
	p.Roles = identity.Roles
	p.Form = form
	p.Error = errMsg
	p.Redirect = c.FormValue("redir")
	p.SSOEnabled = w.oidcUtils != nil
	if c.QueryParam("registered") != "" {
		p.Notice = "Account created, you can sign in now."
	}
	return c.Render(status, "login.html", p)
}

func (w *Webserver) loginPageRouteHandler(c echo.Context) error {
	return w.renderLogin(c, http.StatusOK, formValues{UserType: identity.RoleEmployer.String()}, "")
}

func (w *Webserver) loginRouteHandler(c echo.Context) error {
	ctx := c.Request().Context()

	form := formValues{
		UserType:   c.FormValue("user_type"),
		Email:      strings.TrimSpace(c.FormValue("email")),
		RememberMe: c.FormValue("remember_me") != "",
	}
	password := c.FormValue("password")

	role, err := identity.ParseRole(form.UserType)
	if err != nil {
		w.logger.WarnContext(ctx, "login with unrecognised account type", "user_type", form.UserType)
		return w.renderLogin(c, http.StatusBadRequest, form, "Please choose an account type.")
	}

	if role == identity.RoleAdmin {
		if w.oidcUtils == nil {
			return w.renderLogin(c, http.StatusBadRequest, form, msgSSONotConfigured)
		}
		target := "/login/sso"
		if redir := c.FormValue("redir"); redir != "" {
			target += "?" + url.Values{"redir": {redir}}.Encode()
		}
		return c.Redirect(http.StatusSeeOther, target)
	}

	if form.Email == "" || password == "" {
		return w.renderLogin(c, http.StatusBadRequest, form, msgMissingCredentials)
	}

	err = w.backend.Login(ctx, role, backend.Credentials{
		Email:      form.Email,
		Password:   password,
		RememberMe: form.RememberMe,
	})
	if err != nil {
		w.logger.InfoContext(ctx, "backend rejected login", "email", form.Email, "role", role.String(), "error", err)

		msg := backend.MessageOf(err)
		if msg == "" {
			msg = msgLoginFailed
		}
		return w.renderLogin(c, backendFailureStatus(err, http.StatusUnauthorized), form, msg)
	}

	if err := authFrom(c).Login(ctx, identity.Identity{Email: form.Email, Role: role}); err != nil {
		w.logger.ErrorContext(ctx, "couldn't start session", "email", form.Email, "error", err)
		return w.renderLogin(c, http.StatusBadRequest, form, msgLoginFailed)
	}

	w.logger.InfoContext(ctx, "signed in", "email", form.Email, "role", role.String())
	return c.Redirect(http.StatusSeeOther, accesscontrol.PostLoginTarget(w.conf, c.FormValue("redir"), role))
}

// backendFailureStatus is rejected when the backend turned the request down
// and 502 when it couldn't answer at all.
func backendFailureStatus(err error, rejected int) int {
	var backendErr *backend.Error
	if errors.As(err, &backendErr) && backendErr.Status < http.StatusInternalServerError {
		return rejected
	}
	return http.StatusBadGateway
}

func (w *Webserver) renderRegister(c echo.Context, status int, form formValues, errMsg string) error {
	p := w.newPage(c, "Create your WorkerGo account")
	p.Roles = []identity.Role{identity.RoleEmployer, identity.RoleBroker}
	p.Form = form
	p.Error = errMsg
	return c.Render(status, "register.html", p)
}

func (w *Webserver) registerPageRouteHandler(c echo.Context) error {
	return w.renderRegister(c, http.StatusOK, formValues{UserType: identity.RoleEmployer.String()}, "")
}

func (w *Webserver) registerRouteHandler(c echo.Context) error {
	ctx := c.Request().Context()

	form := formValues{
		UserType:    c.FormValue("user_type"),
		Email:       strings.TrimSpace(c.FormValue("email")),
		Phone:       strings.TrimSpace(c.FormValue("phone")),
		CompanyName: strings.TrimSpace(c.FormValue("company_name")),
		Name:        strings.TrimSpace(c.FormValue("name")),
	}
	password := c.FormValue("password")

	role, err := identity.ParseRole(form.UserType)
	if err != nil || role == identity.RoleAdmin {
		return w.renderRegister(c, http.StatusBadRequest, form, "Choose either an employer or a broker account.")
	}

	if form.Email == "" || password == "" {
		return w.renderRegister(c, http.StatusBadRequest, form, msgMissingCredentials)
	}

	if password != c.FormValue("confirm_password") {
		return w.renderRegister(c, http.StatusBadRequest, form, msgPasswordsMismatch)
	}

	err = w.backend.Register(ctx, role, backend.Registration{
		Email:       form.Email,
		Password:    password,
		Phone:       form.Phone,
		CompanyName: form.CompanyName,
		Name:        form.Name,
	})
	if err != nil {
		w.logger.InfoContext(ctx, "backend rejected registration", "email", form.Email, "role", role.String(), "error", err)

		msg := backend.MessageOf(err)
		if msg == "" {
			msg = msgRegisterFailed
		}
		return w.renderRegister(c, backendFailureStatus(err, http.StatusBadRequest), form, msg)
	}

	return c.Redirect(http.StatusSeeOther, "/login?registered=1")
}

func (w *Webserver) logoutRouteHandler(c echo.Context) error {
	authFrom(c).Logout(c.Request().Context())
	return c.Redirect(http.StatusSeeOther, "/")
}

func (w *Webserver) authInfoRouteHandler(c echo.Context) error {
	user, ok := authFrom(c).CurrentUser()
	if !ok {
		return c.JSON(http.StatusForbidden, unauthorizedResponse{
			Error: "Unauthorized",
		})
	}

	return c.JSON(http.StatusOK, AuthInfoRes{
		Email: user.Email,
		Role:  user.Role.String(),
	})
}

func (w *Webserver) employerDashboardRouteHandler(c echo.Context) error {
	p := w.newPage(c, "Employer Dashboard")
	p.Tabs, p.Tab = selectTab(employerTabs, c.Param("*"))
	return c.Render(http.StatusOK, "employer.html", p)
}

func (w *Webserver) brokerDashboardRouteHandler(c echo.Context) error {
	p := w.newPage(c, "Broker Portal")
	p.Tabs, p.Tab = selectTab(brokerTabs, c.Param("*"))
	return c.Render(http.StatusOK, "broker.html", p)
}

func (w *Webserver) adminDashboardRouteHandler(c echo.Context) error {
	ctx := c.Request().Context()

	p := w.newPage(c, "Admin Dashboard")
	p.Tabs, p.Tab = selectTab(adminTabs, c.Param("*"))

	if p.Tab == "overview" {
		stats, err := w.backend.AdminStats(ctx)
		if err != nil {
			w.logger.WarnContext(ctx, "couldn't fetch admin stats", "error", err)
			p.Error = msgStatsFailed
		} else {
			p.Stats = &stats
		}
	}

	return c.Render(http.StatusOK, "admin.html", p)
}

func (w *Webserver) ssoRouteHandler(c echo.Context) error {
	ctx := c.Request().Context()

	nonceBuff := make([]byte, 16)
	_, err := rand.Read(nonceBuff)
	if err != nil {
		w.logger.ErrorContext(ctx, "failed to generate random material for oauth nonce", "error", err)
		return c.String(http.StatusInternalServerError, "Something went wrong")
	}

	nonceStr := base64.RawURLEncoding.EncodeToString(nonceBuff)
	state := oauthState{
		Nonce:    nonceStr,
		Redirect: c.QueryParam("redir"),
	}

	stateBuff, err := json.Marshal(state)
	if err != nil {
		w.logger.ErrorContext(ctx, "failed to marshal state for oauth", "error", err)
		return c.String(http.StatusInternalServerError, "Something went wrong")
	}

	c.SetCookie(&http.Cookie{
		Name:     nonceCookieName,
		Value:    nonceStr,
		Expires:  time.Now().Add(5 * time.Minute),
		Secure:   w.conf.Session.Cookie.Secure,
		Path:     "/",
		HttpOnly: true,
	})

	return c.Redirect(http.StatusFound, w.oidcUtils.config.AuthCodeURL(string(stateBuff)))
}

func (w *Webserver) callbackRouteHandler(c echo.Context) error {
	ctx := c.Request().Context()

	var state oauthState
	err := json.Unmarshal([]byte(c.QueryParam("state")), &state)
	if err != nil {
		return c.String(http.StatusBadRequest, "Invalid state")
	}

	cookieNonce, err := c.Cookie(nonceCookieName)
	if err != nil || cookieNonce.Value == "" {
		return c.String(http.StatusBadRequest, "State cookie wasn't found: request likely expired")
	}

	// One attempt per nonce, whatever the outcome
	c.SetCookie(&http.Cookie{
		Name:     nonceCookieName,
		Value:    "",
		Path:     "/",
		Secure:   w.conf.Session.Cookie.Secure,
		HttpOnly: true,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	})

	if cookieNonce.Value != state.Nonce {
		return c.String(http.StatusBadRequest, "State nonce mismatch")
	}

	code := c.QueryParam("code")
	if code == "" {
		return c.String(http.StatusBadRequest, "No code was provided")
	}

	user, err := w.oidcUtils.redeem(w.conf, code)
	if err != nil {
		w.logger.WarnContext(ctx, "couldn't complete admin sign in", "error", err)
		return c.String(http.StatusBadGateway, "Couldn't verify your sign in with the identity provider")
	}

	if err := accesscontrol.CheckAdmin(w.conf, user.Email, user.Roles); err != nil {
		w.logger.WarnContext(ctx, "denied admin sign in", "email", user.Email, "error", err)
		return w.renderLogin(c, http.StatusForbidden, formValues{UserType: identity.RoleAdmin.String(), Email: user.Email}, "This account isn't allowed to sign in as admin.")
	}

	if err := authFrom(c).Login(ctx, identity.Identity{Email: user.Email, Role: identity.RoleAdmin}); err != nil {
		w.logger.ErrorContext(ctx, "couldn't start admin session", "email", user.Email, "error", err)
		return c.String(http.StatusInternalServerError, "Couldn't log you in")
	}

	w.logger.InfoContext(ctx, "admin signed in", "email", user.Email)
	return c.Redirect(http.StatusFound, accesscontrol.PostLoginTarget(w.conf, state.Redirect, identity.RoleAdmin))
}

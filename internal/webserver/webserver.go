package webserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/workergo/portal/internal/auth"
	"github.com/workergo/portal/internal/backend"
	"github.com/workergo/portal/internal/config"
	"github.com/workergo/portal/internal/guard"
	"github.com/workergo/portal/internal/identity"
	"github.com/workergo/portal/internal/session"
	"github.com/workergo/portal/internal/storage"
)

const serviceName = "workergo-portal"

type Webserver struct {
	conf      *config.Config
	echo      *echo.Echo
	backend   *backend.Client
	sessions  storage.Provider
	codec     session.Codec
	oidcUtils *oidcUtils
	logger    *slog.Logger
}

type Options struct {
	Backend  *backend.Client
	Sessions storage.Provider
	Codec    session.Codec
	Logger   *slog.Logger
}

func New(conf *config.Config, opts Options) (*Webserver, error) {
	w := &Webserver{
		conf:     conf,
		echo:     echo.New(),
		backend:  opts.Backend,
		sessions: opts.Sessions,
		codec:    opts.Codec,
		logger:   opts.Logger,
	}

	if w.logger == nil {
		w.logger = slog.Default()
	}
	if w.backend == nil {
		w.backend = backend.NewClient(conf.Backend.BaseURL, conf.BackendTimeout(), nil)
	}
	if w.sessions == nil || w.codec == nil {
		return nil, errors.New("webserver needs a session storage provider and codec")
	}

	if conf.OIDCEnabled() {
		utils, err := makeOIDCUtils(conf)
		if err != nil {
			return nil, fmt.Errorf("oidc setup: %w", err)
		}
		w.oidcUtils = utils
	}

	renderer, err := newTemplateRenderer()
	if err != nil {
		return nil, err
	}

	w.echo.HideBanner = true
	w.echo.Renderer = renderer
	w.registerRoutes()

	return w, nil
}

// Handler exposes the router, mostly for tests.
func (w *Webserver) Handler() http.Handler {
	return w.echo
}

func (w *Webserver) lookupSession(c echo.Context) auth.Session {
	return authFrom(c)
}

func (w *Webserver) registerRoutes() {
	e := w.echo

	e.Use(middleware.Recover())
	e.Use(otelecho.Middleware(serviceName))
	e.Use(requestLogger(w.logger))
	e.Use(securityHeaders())
	e.Use(w.withAuth)

	limiter := newRateLimiter(w.conf.RateLimit.LoginPerSecond, w.conf.RateLimit.LoginBurst)

	e.GET("/ping", func(c echo.Context) error {
		return c.String(http.StatusOK, "pong")
	})
	e.GET("/healthz", w.healthRouteHandler)

	e.GET("/", w.landingRouteHandler)
	e.GET("/login", w.loginPageRouteHandler)
	e.POST("/login", w.loginRouteHandler, limiter.middleware())
	e.GET("/register", w.registerPageRouteHandler)
	e.POST("/register", w.registerRouteHandler, limiter.middleware())
	e.GET("/logout", w.logoutRouteHandler)
	e.POST("/logout", w.logoutRouteHandler)
	e.GET("/me", w.authInfoRouteHandler)

	if w.oidcUtils != nil {
		e.GET("/login/sso", w.ssoRouteHandler, limiter.middleware())
		e.GET("/callback", w.callbackRouteHandler)
	}

	dashboards := map[identity.Role]echo.HandlerFunc{
		identity.RoleEmployer: w.employerDashboardRouteHandler,
		identity.RoleBroker:   w.brokerDashboardRouteHandler,
		identity.RoleAdmin:    w.adminDashboardRouteHandler,
	}
	for role, handler := range dashboards {
		g := e.Group(role.HomePath(), guard.Require(role, w.lookupSession))
		g.GET("", handler)
		g.GET("/*", handler)
	}

	// Old unguarded dashboard paths, kept so bookmarks land behind the guard
	legacy := map[string]identity.Role{
		"/EmployerDashboard": identity.RoleEmployer,
		"/BrokerPortal":      identity.RoleBroker,
		"/AdminDashboard":    identity.RoleAdmin,
	}
	for path, role := range legacy {
		target := role.HomePath()
		e.GET(path, func(c echo.Context) error {
			return c.Redirect(http.StatusMovedPermanently, target)
		})
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (w *Webserver) Run(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", w.conf.ListenPort)

	errCh := make(chan error, 1)
	go func() {
		w.logger.InfoContext(ctx, "portal listening", "addr", addr, "session_type", w.conf.Session.Method, "sso", w.oidcUtils != nil)
		if err := w.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return w.echo.Shutdown(shutdownCtx)
}

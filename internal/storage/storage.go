// Package storage is the durable per-browser key/value store the portal keeps
// its session in. A browser either carries the values itself (cookie driver) or
// carries a random identifier that scopes a server-side Driver.
package storage

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

var (
	ErrNotFound    = errors.New("storage key not found")
	ErrUnavailable = errors.New("storage unavailable")
)

// Storage is the view of durable storage for a single browser.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Provider hands out the Storage belonging to the browser behind a request.
type Provider interface {
	For(c echo.Context) Storage
}

// Driver is a server-side store shared by every browser.
type Driver interface {
	Get(ctx context.Context, browserID, key string) (string, error)
	Set(ctx context.Context, browserID, key, value string) error
	Remove(ctx context.Context, browserID, key string) error
}

// Bind scopes a Driver to one browser.
func Bind(d Driver, browserID string) Storage {
	return &boundStorage{driver: d, browserID: browserID}
}

type boundStorage struct {
	driver    Driver
	browserID string
}

func (s *boundStorage) Get(ctx context.Context, key string) (string, error) {
	return s.driver.Get(ctx, s.browserID, key)
}

func (s *boundStorage) Set(ctx context.Context, key, value string) error {
	return s.driver.Set(ctx, s.browserID, key, value)
}

func (s *boundStorage) Remove(ctx context.Context, key string) error {
	return s.driver.Remove(ctx, s.browserID, key)
}

type BrowserCookie struct {
	Name     string
	Domain   string
	Secure   bool
	Lifetime time.Duration
}

// ServerProvider identifies browsers with a random UUID cookie and scopes a
// Driver to them.
type ServerProvider struct {
	driver Driver
	cookie BrowserCookie
}

func NewServerProvider(d Driver, cookie BrowserCookie) *ServerProvider {
	return &ServerProvider{driver: d, cookie: cookie}
}

func (p *ServerProvider) For(c echo.Context) Storage {
	return &requestStorage{provider: p, c: c}
}

// requestStorage defers minting a browser id until something is written, so
// anonymous visitors never get one.
type requestStorage struct {
	provider  *ServerProvider
	c         echo.Context
	browserID string
}

func (s *requestStorage) id(create bool) string {
	if s.browserID != "" {
		return s.browserID
	}

	if cookie, err := s.c.Cookie(s.provider.cookie.Name); err == nil {
		if parsed, err := uuid.Parse(cookie.Value); err == nil {
			s.browserID = parsed.String()
			return s.browserID
		}
	}

	if !create {
		return ""
	}

	s.browserID = uuid.NewString()
	s.c.SetCookie(&http.Cookie{
		Name:     s.provider.cookie.Name,
		Value:    s.browserID,
		Domain:   s.provider.cookie.Domain,
		Path:     "/",
		Secure:   s.provider.cookie.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(s.provider.cookie.Lifetime),
	})

	return s.browserID
}

func (s *requestStorage) Get(ctx context.Context, key string) (string, error) {
	id := s.id(false)
	if id == "" {
		return "", ErrNotFound
	}
	return s.provider.driver.Get(ctx, id, key)
}

func (s *requestStorage) Set(ctx context.Context, key, value string) error {
	return s.provider.driver.Set(ctx, s.id(true), key, value)
}

func (s *requestStorage) Remove(ctx context.Context, key string) error {
	id := s.id(false)
	if id == "" {
		return nil
	}
	return s.provider.driver.Remove(ctx, id, key)
}

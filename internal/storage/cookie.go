package storage

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Browsers drop cookies past roughly 4KB, name and attributes included.
const maxCookieValueLen = 3800

type CookieOptions struct {
	Domain   string
	Secure   bool
	Lifetime time.Duration
}

// CookieProvider keeps every key in a cookie of the same name.
type CookieProvider struct {
	opts CookieOptions
}

func NewCookieProvider(opts CookieOptions) *CookieProvider {
	return &CookieProvider{opts: opts}
}

func (p *CookieProvider) For(c echo.Context) Storage {
	return &cookieStorage{opts: p.opts, c: c, written: make(map[string]*string)}
}

type cookieStorage struct {
	opts CookieOptions
	c    echo.Context

	// Cookies set on the response aren't visible on the request, so writes
	// are remembered for the rest of the request. nil means removed.
	written map[string]*string
}

func (s *cookieStorage) Get(_ context.Context, key string) (string, error) {
	if value, ok := s.written[key]; ok {
		if value == nil {
			return "", ErrNotFound
		}
		return *value, nil
	}

	cookie, err := s.c.Cookie(key)
	if err != nil || cookie.Value == "" {
		return "", ErrNotFound
	}

	return cookie.Value, nil
}

func (s *cookieStorage) Set(_ context.Context, key, value string) error {
	if len(value) > maxCookieValueLen {
		return fmt.Errorf("%w: value for %s is %d bytes, cookies hold at most %d", ErrUnavailable, key, len(value), maxCookieValueLen)
	}

	s.c.SetCookie(&http.Cookie{
		Name:     key,
		Value:    value,
		Domain:   s.opts.Domain,
		Path:     "/",
		Secure:   s.opts.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(s.opts.Lifetime),
	})
	s.written[key] = &value

	return nil
}

func (s *cookieStorage) Remove(_ context.Context, key string) error {
	s.c.SetCookie(&http.Cookie{
		Name:     key,
		Value:    "",
		Domain:   s.opts.Domain,
		Path:     "/",
		Secure:   s.opts.Secure,
		HttpOnly: true,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	})
	s.written[key] = nil

	return nil
}

// Package auth holds the per-browser authority over who is signed in.
//
// A Context is either Unauthenticated or Authenticated with exactly one
// Identity. It is the only thing that writes the Session Store, and every
// Login or Logout has reached storage by the time it returns.
package auth

import (
	"context"
	"fmt"

	"github.com/workergo/portal/internal/identity"
	"github.com/workergo/portal/internal/session"
)

// Session is the read side of a Context, which is all the route guard and
// pages need.
type Session interface {
	IsAuthenticated() bool
	CurrentUser() (identity.Identity, bool)
	Role() (identity.Role, bool)
}

type Context struct {
	store   *session.Store
	current *identity.Identity
}

// New restores whatever the store holds. A missing or corrupt entry starts
// the Context unauthenticated.
func New(ctx context.Context, store *session.Store) *Context {
	a := &Context{store: store}
	if id, ok := store.Load(ctx); ok {
		a.current = &id
	}
	return a
}

// Login replaces any current identity. An identity with an unknown role or
// no email is refused and leaves the state untouched.
func (a *Context) Login(ctx context.Context, id identity.Identity) error {
	if err := id.Validate(); err != nil {
		return fmt.Errorf("refusing login: %w", err)
	}

	a.current = &id
	a.store.Save(ctx, id)

	return nil
}

// Logout is a no-op when nobody is signed in, apart from clearing storage
// again.
func (a *Context) Logout(ctx context.Context) {
	a.current = nil
	a.store.Clear(ctx)
}

// The read methods accept a nil Context as signed out.
func (a *Context) IsAuthenticated() bool {
	return a != nil && a.current != nil
}

func (a *Context) CurrentUser() (identity.Identity, bool) {
	if a == nil || a.current == nil {
		return identity.Identity{}, false
	}
	return *a.current, true
}

func (a *Context) Role() (identity.Role, bool) {
	if a == nil || a.current == nil {
		return 0, false
	}
	return a.current.Role, true
}

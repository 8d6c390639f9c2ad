package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workergo/portal/internal/identity"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", 5*time.Second, nil)
}

func TestClient_Login(t *testing.T) {
	t.Run("employer and broker use their own endpoints", func(t *testing.T) {
		var paths []string
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "a@x.com", r.URL.Query().Get("email"))
			assert.Equal(t, "hunter2", r.URL.Query().Get("password"))
			assert.Equal(t, "true", r.URL.Query().Get("rememberMe"))
			paths = append(paths, r.URL.Path)
			w.WriteHeader(http.StatusOK)
		})

		creds := Credentials{Email: "a@x.com", Password: "hunter2", RememberMe: true}
		require.NoError(t, c.Login(context.Background(), identity.RoleEmployer, creds))
		require.NoError(t, c.Login(context.Background(), identity.RoleBroker, creds))
		assert.Equal(t, []string{"/emp/employerlogin", "/emp/brokerlogin"}, paths)
	})

	t.Run("admin has no backend login", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("backend should not be called")
		})

		err := c.Login(context.Background(), identity.RoleAdmin, Credentials{})
		assert.ErrorIs(t, err, ErrUnsupportedRole)
	})

	t.Run("backend message is kept", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Invalid password"}`))
		})

		err := c.Login(context.Background(), identity.RoleEmployer, Credentials{})
		require.Error(t, err)

		var backendErr *Error
		require.True(t, errors.As(err, &backendErr))
		assert.Equal(t, http.StatusUnauthorized, backendErr.Status)
		assert.Equal(t, "Invalid password", MessageOf(err))
	})

	t.Run("non-json error body has no message", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusBadGateway)
		})

		err := c.Login(context.Background(), identity.RoleBroker, Credentials{})
		require.Error(t, err)
		assert.Equal(t, "", MessageOf(err))
	})
}

func TestClient_Register(t *testing.T) {
	type call struct {
		path string
		body map[string]any
	}
	var calls []call
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		calls = append(calls, call{r.URL.Path, body})
		w.WriteHeader(http.StatusCreated)
	})

	reg := Registration{
		Email:       "a@x.com",
		Password:    "hunter2",
		Phone:       "555",
		CompanyName: "Acme",
		Name:        "Jo",
	}
	require.NoError(t, c.Register(context.Background(), identity.RoleEmployer, reg))
	require.NoError(t, c.Register(context.Background(), identity.RoleBroker, reg))

	require.Len(t, calls, 2)
	assert.Equal(t, "/emp/register", calls[0].path)
	assert.Equal(t, "employer", calls[0].body["userType"])
	assert.Equal(t, "Acme", calls[0].body["companyName"])
	assert.NotContains(t, calls[0].body, "name")

	assert.Equal(t, "/emp/registerBroker", calls[1].path)
	assert.Equal(t, "broker", calls[1].body["userType"])
	assert.Equal(t, "Jo", calls[1].body["name"])
	assert.NotContains(t, calls[1].body, "companyName")

	err := c.Register(context.Background(), identity.RoleAdmin, reg)
	assert.ErrorIs(t, err, ErrUnsupportedRole)
}

func TestClient_AdminStats(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/stats", r.URL.Path)
		_, _ = w.Write([]byte(`{"totalWorkers":12,"totalEmployers":3,"totalBrokers":4,"totalJobs":7}`))
	})

	stats, err := c.AdminStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{TotalWorkers: 12, TotalEmployers: 3, TotalBrokers: 4, TotalJobs: 7}, stats)
}

func TestClient_AdminStatsBadBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	})

	_, err := c.AdminStats(context.Background())
	assert.Error(t, err)
}

func TestClient_Ping(t *testing.T) {
	status := http.StatusNotFound
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	})

	assert.NoError(t, c.Ping(context.Background()))

	status = http.StatusServiceUnavailable
	assert.Error(t, c.Ping(context.Background()))
}

package webserver

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workergo/portal/internal/backend"
	"github.com/workergo/portal/internal/config"
)

func TestSelectTab(t *testing.T) {
	tests := []struct {
		rest string
		want string
	}{
		{"", "overview"},
		{"jobs", "jobs"},
		{"/post/", "post"},
		{"jobs/123", "jobs"},
		{"nope", "overview"},
	}

	for _, tt := range tests {
		tabs, active := selectTab(employerTabs, tt.rest)
		assert.Equal(t, tt.want, active, tt.rest)

		var activeCount int
		for _, tab := range tabs {
			if tab.Active {
				activeCount++
				assert.Equal(t, tt.want, tab.Slug)
			}
		}
		assert.Equal(t, 1, activeCount, tt.rest)
	}

	// The shared definitions are never marked
	for _, tab := range employerTabs {
		assert.False(t, tab.Active)
	}
}

func TestExtractRolesFromClaim(t *testing.T) {
	conf := &config.Config{}
	conf.OIDC.RoleClaimName = "groups"

	roles, err := extractRolesFromClaim(conf, map[string]any{"groups": []any{"admin", "ops"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"admin", "ops"}, roles)

	roles, err = extractRolesFromClaim(conf, map[string]any{})
	require.NoError(t, err)
	assert.Empty(t, roles)

	_, err = extractRolesFromClaim(conf, map[string]any{"groups": "admin"})
	assert.Error(t, err)

	_, err = extractRolesFromClaim(conf, map[string]any{"groups": []any{"admin", 7}})
	assert.Error(t, err)

	conf.OIDC.DisableRoles = true
	roles, err = extractRolesFromClaim(conf, map[string]any{"groups": "garbage"})
	require.NoError(t, err)
	assert.Empty(t, roles)
}

func TestBackendFailureStatus(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, backendFailureStatus(&backend.Error{Status: http.StatusForbidden}, http.StatusUnauthorized))
	assert.Equal(t, http.StatusBadGateway, backendFailureStatus(&backend.Error{Status: http.StatusServiceUnavailable}, http.StatusUnauthorized))
	assert.Equal(t, http.StatusBadGateway, backendFailureStatus(errors.New("connection refused"), http.StatusBadRequest))
}

func TestRateLimiter_PerIP(t *testing.T) {
	rl := newRateLimiter(0.01, 1)

	assert.True(t, rl.getLimiter("192.0.2.1").Allow())
	assert.False(t, rl.getLimiter("192.0.2.1").Allow())
	assert.True(t, rl.getLimiter("192.0.2.2").Allow())
	assert.Len(t, rl.limiters, 2)
}

package accesscontrol

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/workergo/portal/internal/config"
	"github.com/workergo/portal/internal/identity"
)

func testConfig() *config.Config {
	conf := new(config.Config)
	conf.RedirectAllowlist = []string{"*.workergo.io"}
	conf.OIDC.AdminRole = "portal-admins"
	conf.AccessControl.AdminEmailAllowlist = []string{"*@workergo.io"}
	conf.AccessControl.RoleMapping = map[string][]string{
		"root@workergo.io": {"portal-admins"},
	}
	return conf
}

func TestGetAllRolesForUser(t *testing.T) {
	conf := testConfig()
	roles := []string{"staff"}

	assert.Equal(t, []string{"staff", "portal-admins"}, GetAllRolesForUser(conf, "root@workergo.io", roles))
	assert.Equal(t, []string{"staff"}, GetAllRolesForUser(conf, "jo@workergo.io", roles))
	assert.Equal(t, []string{"staff"}, roles, "input must not be modified")
}

func TestCheckAdmin(t *testing.T) {
	conf := testConfig()

	assert.NoError(t, CheckAdmin(conf, "jo@workergo.io", []string{"portal-admins"}))
	assert.NoError(t, CheckAdmin(conf, "root@workergo.io", nil), "role_mapping grants the role")
	assert.Error(t, CheckAdmin(conf, "jo@workergo.io", []string{"staff"}))
	assert.Error(t, CheckAdmin(conf, "jo@elsewhere.io", []string{"portal-admins"}))

	conf.AccessControl.AllowAllAdminEmails = true
	assert.NoError(t, CheckAdmin(conf, "jo@elsewhere.io", []string{"portal-admins"}))

	conf.OIDC.AdminRole = ""
	assert.NoError(t, CheckAdmin(conf, "jo@elsewhere.io", nil))
}

func TestVerifyRedirectURL(t *testing.T) {
	conf := testConfig()

	allowed := []string{
		"/employer",
		"/employer/jobs",
		"/employer/jobs?page=2",
		"https://app.workergo.io/employer/jobs",
	}
	for _, r := range allowed {
		assert.True(t, VerifyRedirectURL(conf, r, identity.RoleEmployer), r)
	}

	denied := []string{
		"",
		"/broker/workers",
		"/employerx",
		"//evil.io/employer",
		"https://evil.io/employer",
		"javascript:alert(1)",
		"employer/jobs",
		"/\\evil.io/employer",
	}
	for _, r := range denied {
		assert.False(t, VerifyRedirectURL(conf, r, identity.RoleEmployer), r)
	}
}

func TestPostLoginTarget(t *testing.T) {
	conf := testConfig()

	assert.Equal(t, "/broker/workers", PostLoginTarget(conf, "/broker/workers", identity.RoleBroker))
	assert.Equal(t, "/broker", PostLoginTarget(conf, "/admin", identity.RoleBroker))
	assert.Equal(t, "/admin", PostLoginTarget(conf, "", identity.RoleAdmin))
}

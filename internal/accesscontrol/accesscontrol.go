package accesscontrol

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/workergo/portal/internal/config"
	"github.com/workergo/portal/internal/identity"
	"github.com/workergo/portal/internal/utils"
)

// Merges roles from the identity provider with the ones from role_mapping.
// Merging happens per check, so editing role_mapping and restarting takes effect
// on the next sign in rather than being baked into old sessions.
func GetAllRolesForUser(conf *config.Config, email string, roles []string) []string {
	allOfUsersRoles := make([]string, len(roles))
	copy(allOfUsersRoles, roles)

	if roleListForUser, ok := conf.AccessControl.RoleMapping[email]; ok {
		allOfUsersRoles = append(allOfUsersRoles, roleListForUser...)
	}

	return allOfUsersRoles
}

// CheckAdmin decides whether an SSO-authenticated user may become an admin
// identity.
func CheckAdmin(conf *config.Config, email string, roles []string) error {
	if !conf.AccessControl.AllowAllAdminEmails {
		if !utils.TestStringAgainstSliceMatchers(conf.AccessControl.AdminEmailAllowlist, email) {
			return fmt.Errorf("user was successfully auth'd (%s), but their email wasn't in the admin allow list", email)
		}
	}

	if conf.OIDC.AdminRole != "" {
		if !utils.Contains(GetAllRolesForUser(conf, email, roles), conf.OIDC.AdminRole) {
			return fmt.Errorf("user (%s) doesn't hold the %q role", email, conf.OIDC.AdminRole)
		}
	}

	return nil
}

// VerifyRedirectURL only lets a signed-in user be bounced into their own part
// of the portal, either by path or on an allowed host.
func VerifyRedirectURL(conf *config.Config, redirect string, role identity.Role) bool {
	if redirect == "" {
		return false
	}

	parsed, err := url.Parse(redirect)
	if err != nil {
		return false
	}

	if parsed.Scheme != "" || parsed.Host != "" {
		if parsed.Scheme != "https" && parsed.Scheme != "http" {
			return false
		}
		if !utils.TestStringAgainstSliceMatchers(conf.RedirectAllowlist, parsed.Hostname()) {
			return false
		}
	} else if !strings.HasPrefix(redirect, "/") || strings.HasPrefix(redirect, "//") || strings.Contains(redirect, "\\") {
		return false
	}

	home := role.HomePath()
	return parsed.Path == home || strings.HasPrefix(parsed.Path, home+"/")
}

// PostLoginTarget is where a fresh login lands: the requested page when it's
// safe, otherwise the role's dashboard.
func PostLoginTarget(conf *config.Config, redirect string, role identity.Role) string {
	if VerifyRedirectURL(conf, redirect, role) {
		return redirect
	}
	return role.HomePath()
}

package webserver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/workergo/portal/internal/config"
)

const nonceCookieName = "_oauth_state_nonce"

var errMissingEmail = errors.New("id token has no email claim")

type oidcUtils struct {
	ctx      context.Context
	config   *oauth2.Config
	verifier *oidc.IDTokenVerifier
	provider *oidc.Provider
}

func makeOIDCUtils(conf *config.Config) (*oidcUtils, error) {
	utils := &oidcUtils{}
	utils.ctx = context.Background()

	shouldOverrideDiscovery := conf.OIDC.IssuerDiscoveryOverrideURL != ""

	var err error

	if shouldOverrideDiscovery {
		utils.ctx = oidc.InsecureIssuerURLContext(utils.ctx, conf.OIDC.IssuerURL)
		utils.provider, err = oidc.NewProvider(utils.ctx, conf.OIDC.IssuerDiscoveryOverrideURL)
	} else {
		utils.provider, err = oidc.NewProvider(utils.ctx, conf.OIDC.IssuerURL)
	}

	if err != nil {
		return nil, err
	}

	endpoint := utils.provider.Endpoint()

	if shouldOverrideDiscovery {
		endpoint.AuthURL = strings.Replace(endpoint.AuthURL, conf.OIDC.IssuerDiscoveryOverrideURL, conf.OIDC.IssuerURL, 1)
	}

	utils.config = &oauth2.Config{
		ClientID:     conf.OIDC.ClientID,
		ClientSecret: conf.OIDC.ClientSecret,
		RedirectURL:  conf.OIDC.RedirectURL,

		Endpoint: endpoint,
		Scopes:   append([]string{oidc.ScopeOpenID, "email", "profile"}, conf.OIDC.AdditionalScopes...),
	}

	utils.verifier = utils.provider.Verifier(&oidc.Config{ClientID: conf.OIDC.ClientID})

	return utils, nil
}

func extractRolesFromClaim(conf *config.Config, claims map[string]any) ([]string, error) {
	if conf.OIDC.DisableRoles {
		return []string{}, nil
	}

	roleClaim, ok := claims[conf.OIDC.RoleClaimName]
	if !ok {
		// Providers leave the claim out entirely when the user has no groups
		return []string{}, nil
	}

	rolesAny, ok := roleClaim.([]any)
	if !ok {
		return nil, fmt.Errorf("couldn't cast roles %v (type of %T) to []any", roleClaim, roleClaim)
	}

	roles := make([]string, len(rolesAny))
	for i, v := range rolesAny {
		roleStr, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("failed to cast role item [%d] %v (type of %T) to string", i, v, v)
		}
		roles[i] = roleStr
	}

	return roles, nil
}

type oauthState struct {
	Nonce    string
	Redirect string
}

// ssoUser is what an admin sign in needs out of a verified ID token.
type ssoUser struct {
	Email string
	Roles []string
}

// redeem trades an authorization code for a verified ID token and pulls the
// email and role claims out of it.
func (u *oidcUtils) redeem(conf *config.Config, code string) (ssoUser, error) {
	token, err := u.config.Exchange(u.ctx, code)
	if err != nil {
		return ssoUser{}, fmt.Errorf("code exchange: %w", err)
	}

	rawToken, ok := token.Extra("id_token").(string)
	if !ok {
		return ssoUser{}, errors.New("token response had no id_token")
	}

	idToken, err := u.verifier.Verify(u.ctx, rawToken)
	if err != nil {
		return ssoUser{}, fmt.Errorf("verify id_token: %w", err)
	}

	claims := map[string]any{}
	if err := idToken.Claims(&claims); err != nil {
		return ssoUser{}, fmt.Errorf("decode claims: %w", err)
	}

	roles, err := extractRolesFromClaim(conf, claims)
	if err != nil {
		return ssoUser{}, fmt.Errorf("claim %s: %w", conf.OIDC.RoleClaimName, err)
	}

	email, _ := claims["email"].(string)
	if email == "" {
		return ssoUser{}, errMissingEmail
	}

	return ssoUser{Email: email, Roles: roles}, nil
}

package config

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	SessionCookie   = "cookie"
	SessionRedis    = "redis"
	SessionPostgres = "postgres"
	SessionMemory   = "memory"
)

type Config struct {
	ListenPort        int      `toml:"port"`
	BaseURL           string   `toml:"base_url"`
	RedirectAllowlist []string `toml:"redirect_allowed_domains"`

	Session struct {
		Method string `toml:"type"`
		// Seconds
		Lifetime int `toml:"lifetime"`

		Cookie struct {
			Secret string `toml:"secret"`
			Domain string `toml:"domain"`
			Name   string `toml:"name"`
			Secure bool   `toml:"secure"`
		} `toml:"cookie"`

		Redis struct {
			Addr     string `toml:"addr"`
			Password string `toml:"password"`
			DB       int    `toml:"db"`
			Prefix   string `toml:"prefix"`
		} `toml:"redis"`

		Postgres struct {
			DSN string `toml:"dsn"`
		} `toml:"postgres"`
	} `toml:"session"`

	Backend struct {
		BaseURL string `toml:"base_url"`
		// Seconds
		Timeout int `toml:"timeout"`
	} `toml:"backend"`

	OIDC struct {
		RedirectURL                string `toml:"redirect_url"`
		IssuerURL                  string `toml:"issuer_url"`
		IssuerDiscoveryOverrideURL string `toml:"issuer_discovery_override_url"`
		ClientID                   string `toml:"client_id"`
		ClientSecret               string `toml:"client_secret"`

		// The name of the OIDC claim associated to a list of roles. Default is "groups"
		RoleClaimName string `toml:"role_claim_name"`
		// Don't read roles from the token at all, rely on role_mapping
		DisableRoles     bool     `toml:"disable_roles"`
		AdminRole        string   `toml:"admin_role"`
		AdditionalScopes []string `toml:"additional_scopes"`
	} `toml:"oidc"`

	AccessControl struct {
		// Emails (or *@domain matchers) allowed to sign in as admin
		AdminEmailAllowlist []string `toml:"admin_email_allow_list"`
		AllowAllAdminEmails bool     `toml:"allow_all_admin_emails"`

		// Map emails to roles. Useful if OIDC provider doesn't give roles
		RoleMapping map[string][]string `toml:"role_mapping"`
	} `toml:"access_control"`

	RateLimit struct {
		LoginPerSecond float64 `toml:"login_per_second"`
		LoginBurst     int     `toml:"login_burst"`
	} `toml:"rate_limit"`

	Log struct {
		Level string `toml:"level"`
	} `toml:"log"`
}

// TOML marshaller doesn't override fields that weren't set in the TOML, so we can apply defaults here
func (c *Config) setDefaults() {
	c.ListenPort = 8080

	c.Session.Method = SessionCookie
	c.Session.Lifetime = 60 * 60 * 24 // 24 hours

	c.Session.Cookie.Name = "_workergo_browser"
	c.Session.Cookie.Secure = true

	c.Session.Redis.Addr = "localhost:6379"
	c.Session.Redis.Prefix = "workergo"

	c.Backend.BaseURL = "http://localhost:3000"
	c.Backend.Timeout = 10

	c.OIDC.RoleClaimName = "groups"
	c.OIDC.AdminRole = "admin"

	c.RateLimit.LoginPerSecond = 1
	c.RateLimit.LoginBurst = 5

	c.Log.Level = "info"
}

// Environment wins over the file for the values people usually keep out of it.
func (c *Config) applyEnv() error {
	if v := os.Getenv("WORKERGO_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid WORKERGO_PORT: %w", err)
		}
		c.ListenPort = port
	}

	overrides := map[string]*string{
		"WORKERGO_BASE_URL":           &c.BaseURL,
		"WORKERGO_BACKEND_URL":        &c.Backend.BaseURL,
		"WORKERGO_SESSION_TYPE":       &c.Session.Method,
		"WORKERGO_COOKIE_SECRET":      &c.Session.Cookie.Secret,
		"WORKERGO_REDIS_ADDR":         &c.Session.Redis.Addr,
		"WORKERGO_REDIS_PASSWORD":     &c.Session.Redis.Password,
		"WORKERGO_DATABASE_URL":       &c.Session.Postgres.DSN,
		"WORKERGO_OIDC_CLIENT_SECRET": &c.OIDC.ClientSecret,
		"LOG_LEVEL":                   &c.Log.Level,
	}
	for key, field := range overrides {
		if v := os.Getenv(key); v != "" {
			*field = v
		}
	}

	return nil
}

// OIDCEnabled reports whether admin single sign-on is configured.
func (c *Config) OIDCEnabled() bool {
	return c.OIDC.IssuerURL != "" && c.OIDC.ClientID != ""
}

func (c *Config) SessionLifetime() time.Duration {
	return time.Duration(c.Session.Lifetime) * time.Second
}

func (c *Config) BackendTimeout() time.Duration {
	return time.Duration(c.Backend.Timeout) * time.Second
}

func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("please supply base_url")
	}

	if c.Backend.BaseURL == "" {
		return errors.New("please supply backend.base_url")
	}

	if c.Session.Lifetime <= 0 {
		return fmt.Errorf("session.lifetime must be positive, got %d", c.Session.Lifetime)
	}

	switch c.Session.Method {
	case SessionCookie, SessionMemory:
	case SessionRedis:
		if c.Session.Redis.Addr == "" {
			return errors.New("session type is redis but session.redis.addr is empty")
		}
	case SessionPostgres:
		if c.Session.Postgres.DSN == "" {
			return errors.New("session type is postgres but session.postgres.dsn is empty")
		}
	default:
		return fmt.Errorf("invalid session type supplied (%s), valid types are cookie, redis, postgres and memory", c.Session.Method)
	}

	if len(c.Session.Cookie.Secret) > 0 && len(c.Session.Cookie.Secret) < 16 {
		return errors.New("your session.cookie.secret was less than 16 characters. Please supply a long, random secret")
	}

	if c.OIDCEnabled() {
		if c.OIDC.ClientSecret == "" || c.OIDC.RedirectURL == "" {
			return errors.New("your OIDC config is insufficient. Please supply the following: client_id, client_secret, issuer_url, redirect_url")
		}

		if len(c.AccessControl.AdminEmailAllowlist) == 0 && !c.AccessControl.AllowAllAdminEmails {
			return errors.New("your admin_email_allow_list is empty, and allow_all_admin_emails isn't set to true. Nobody will be able to sign in as admin")
		}
	}

	if c.RateLimit.LoginPerSecond <= 0 || c.RateLimit.LoginBurst <= 0 {
		return errors.New("rate_limit.login_per_second and rate_limit.login_burst must be positive")
	}

	return nil
}

func LoadFromTomlFileAndValidate(filepath string) (*Config, error) {
	// A .env next to the binary is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	file, err := os.ReadFile(filepath)
	if err != nil {
		return nil, err
	}

	return Parse(file)
}

func Parse(file []byte) (*Config, error) {
	conf := new(Config)
	conf.setDefaults()

	err := toml.Unmarshal(file, conf)
	if err != nil {
		return nil, err
	}

	if err := conf.applyEnv(); err != nil {
		return nil, err
	}

	if conf.OIDC.RedirectURL == "" && conf.BaseURL != "" {
		conf.OIDC.RedirectURL = conf.BaseURL + "/callback"
	}

	if err := conf.Validate(); err != nil {
		return nil, err
	}

	if len(conf.Session.Cookie.Secret) == 0 {
		slog.Warn("No cookie secret was provided, randomly generating one...")
		buff := make([]byte, 16)
		if _, err := rand.Read(buff); err != nil {
			return nil, fmt.Errorf("failed to generate random cookie secret: %w", err)
		}

		conf.Session.Cookie.Secret = base64.RawStdEncoding.EncodeToString(buff)
		slog.Warn("Because your cookie secret was randomly generated, if the portal restarts, or you are load balancing across multiple instances, users may get logged out.")
	}

	return conf, nil
}

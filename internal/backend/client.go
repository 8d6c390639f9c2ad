// Package backend talks to the WorkerGo REST API that owns accounts, jobs and
// statistics.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/workergo/portal/internal/identity"
)

var ErrUnsupportedRole = errors.New("the backend has no endpoint for this role")

// Error is a non-2xx answer from the backend.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend returned %d", e.Status)
}

// MessageOf returns the backend's own message, if err carries one.
func MessageOf(err error) string {
	var backendErr *Error
	if errors.As(err, &backendErr) {
		return backendErr.Message
	}
	return ""
}

type Credentials struct {
	Email      string
	Password   string
	RememberMe bool
}

type Registration struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Phone       string `json:"phone"`
	UserType    string `json:"userType"`
	CompanyName string `json:"companyName,omitempty"`
	Name        string `json:"name,omitempty"`
}

type Stats struct {
	TotalWorkers   int `json:"totalWorkers"`
	TotalEmployers int `json:"totalEmployers"`
	TotalBrokers   int `json:"totalBrokers"`
	TotalJobs      int `json:"totalJobs"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a client whose requests are traced. transport may be nil.
func NewClient(baseURL string, timeout time.Duration, transport http.RoundTripper) *Client {
	if transport == nil {
		transport = &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 20,
			IdleConnTimeout:     90 * time.Second,
		}
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(transport),
		},
	}
}

// Login verifies credentials against the role's login endpoint. Admins don't
// sign in through the backend.
func (c *Client) Login(ctx context.Context, role identity.Role, creds Credentials) error {
	var path string
	switch role {
	case identity.RoleEmployer:
		path = "/emp/employerlogin"
	case identity.RoleBroker:
		path = "/emp/brokerlogin"
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedRole, role)
	}

	query := url.Values{
		"email":      {creds.Email},
		"password":   {creds.Password},
		"rememberMe": {strconv.FormatBool(creds.RememberMe)},
	}

	if err := c.do(ctx, http.MethodGet, path+"?"+query.Encode(), nil, nil); err != nil {
		return fmt.Errorf("%s login: %w", role, err)
	}
	return nil
}

// Register creates an employer or broker account. reg.UserType is filled in
// from role.
func (c *Client) Register(ctx context.Context, role identity.Role, reg Registration) error {
	var path string
	switch role {
	case identity.RoleEmployer:
		path = "/emp/register"
		reg.Name = ""
	case identity.RoleBroker:
		path = "/emp/registerBroker"
		reg.CompanyName = ""
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedRole, role)
	}
	reg.UserType = role.String()

	if err := c.do(ctx, http.MethodPost, path, reg, nil); err != nil {
		return fmt.Errorf("%s registration: %w", role, err)
	}
	return nil
}

func (c *Client) AdminStats(ctx context.Context) (Stats, error) {
	var stats Stats
	if err := c.do(ctx, http.MethodGet, "/admin/stats", nil, &stats); err != nil {
		return Stats{}, fmt.Errorf("admin stats: %w", err)
	}
	return stats, nil
}

// Ping checks the backend answers at all.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusInternalServerError {
		return &Error{Status: resp.StatusCode}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errorFromResponse(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func errorFromResponse(resp *http.Response) error {
	backendErr := &Error{Status: resp.StatusCode}

	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &payload); err == nil {
		backendErr.Message = payload.Message
		if backendErr.Message == "" {
			backendErr.Message = payload.Error
		}
	}

	return backendErr
}

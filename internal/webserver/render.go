package webserver

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/workergo/portal/internal/backend"
	"github.com/workergo/portal/internal/identity"
)

//go:embed templates/*.html
var templateFS embed.FS

type templateRenderer struct {
	templates *template.Template
}

func newTemplateRenderer() (*templateRenderer, error) {
	t, err := template.New("").ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &templateRenderer{templates: t}, nil
}

func (r *templateRenderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}

type tab struct {
	Slug   string
	Label  string
	Active bool
}

// page is what every template gets. Fields a page doesn't use stay zero.
type page struct {
	Title  string
	User   *identity.Identity
	Error  string
	Notice string

	// login and register
	Roles      []identity.Role
	Form       formValues
	Redirect   string
	SSOEnabled bool

	// dashboards
	Tabs  []tab
	Tab   string
	Stats *backend.Stats
}

type formValues struct {
	UserType    string
	Email       string
	Phone       string
	CompanyName string
	Name        string
	RememberMe  bool
}

func (w *Webserver) newPage(c echo.Context, title string) page {
	p := page{Title: title}
	if user, ok := authFrom(c).CurrentUser(); ok {
		p.User = &user
	}
	return p
}

// selectTab marks the tab named by the first segment of rest as active,
// falling back to the first tab for anything it doesn't know.
func selectTab(defs []tab, rest string) ([]tab, string) {
	slug, _, _ := strings.Cut(strings.Trim(rest, "/"), "/")

	active := defs[0].Slug
	for _, d := range defs {
		if d.Slug == slug {
			active = slug
			break
		}
	}

	tabs := make([]tab, len(defs))
	for i, d := range defs {
		d.Active = d.Slug == active
		tabs[i] = d
	}
	return tabs, active
}

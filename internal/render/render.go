// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package render provides HTML template rendering for the admin area and
// the public site. Admin pages support full-page and HTMX partial
// rendering, detected via the HX-Request header. Public pages render to
// bytes first so handlers can cache them.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"schoolarchives/internal/branch"
	"schoolarchives/internal/markdown"
	"schoolarchives/internal/middleware"
	"schoolarchives/internal/models"
	"schoolarchives/internal/session"
	"schoolarchives/internal/sitecontent"
)

//go:embed templates/admin/*.html templates/public/*.html
var templateFS embed.FS

// PageData holds all data passed to admin templates.
type PageData struct {
	Title     string         // Page title for <title> tag
	Section   string         // Active sidebar section (e.g., "dashboard", "pages")
	Session   *session.Data  // Current user session (nil if unauthenticated)
	CSRFToken string         // CSRF token for forms and HTMX headers
	Data      map[string]any // Page-specific data
	Flashes   []Flash        // One-time notification messages
}

// Flash represents a one-time notification message displayed to the user.
type Flash struct {
	Type    string // "success", "error", "warning", "info"
	Message string
}

// PublicData holds the data passed to public templates.
type PublicData struct {
	Title       string
	Description string
	Site        sitecontent.Settings
	Branch      *models.Branch
	Path        string
	CSRFToken   string
	Body        template.HTML  // pre-rendered page body from the engine
	Data        map[string]any // Page-specific data
}

// Renderer handles template parsing and execution.
type Renderer struct {
	admin   map[string]*template.Template
	public  map[string]*template.Template
	funcMap template.FuncMap
}

// standaloneTemplates lists templates that render as full HTML pages
// without the base layout (they have their own <html>, <head>, etc.).
var standaloneTemplates = map[string]bool{
	"login":      true,
	"2fa_setup":  true,
	"2fa_verify": true,
}

// New parses the admin and public templates from the embedded filesystem.
// Each page template is paired with its layout. When devMode is true,
// templates load HTMX from a CDN instead of /static.
func New(devMode bool) (*Renderer, error) {
	r := &Renderer{
		funcMap: template.FuncMap{
			"activeClass": func(current, target string) string {
				if current == target {
					return "active"
				}
				return ""
			},
			"deref":    models.Deref,
			"markdown": markdown.Render,
			"isDev": func() bool {
				return devMode
			},
			// uuidEq compares a *uuid.UUID pointer with a uuid.UUID value.
			"uuidEq": func(ptr *uuid.UUID, val uuid.UUID) bool {
				return ptr != nil && *ptr == val
			},
			"date": func(t *time.Time) string {
				if t == nil {
					return ""
				}
				return t.Format("2 January 2006")
			},
			"isoDate": func(t *time.Time) string {
				if t == nil {
					return ""
				}
				return t.Format("2006-01-02")
			},
			"join": strings.Join,
			"year": func() int { return time.Now().Year() },
		},
	}

	var err error
	if r.admin, err = r.parseSet("admin", "base.html", standaloneTemplates); err != nil {
		return nil, err
	}
	if r.public, err = r.parseSet("public", "layout.html", nil); err != nil {
		return nil, err
	}
	return r, nil
}

// parseSet pairs every page template in dir with the layout file.
func (rn *Renderer) parseSet(dir, layout string, standalone map[string]bool) (map[string]*template.Template, error) {
	entries, err := templateFS.ReadDir("templates/" + dir)
	if err != nil {
		return nil, fmt.Errorf("read embedded %s templates: %w", dir, err)
	}

	set := make(map[string]*template.Template, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == layout {
			continue
		}
		tmplName := strings.TrimSuffix(name, ".html")

		var tmpl *template.Template
		if standalone[tmplName] {
			tmpl, err = template.New(name).Funcs(rn.funcMap).ParseFS(templateFS, "templates/"+dir+"/"+name)
		} else {
			tmpl, err = template.New(layout).Funcs(rn.funcMap).ParseFS(
				templateFS, "templates/"+dir+"/"+layout, "templates/"+dir+"/"+name,
			)
		}
		if err != nil {
			return nil, fmt.Errorf("parse template %s/%s: %w", dir, name, err)
		}
		set[tmplName] = tmpl
	}
	return set, nil
}

// Page renders a full admin page or an HTMX partial, depending on the
// request headers. For HTMX requests, only the "content" block is sent.
func (rn *Renderer) Page(w http.ResponseWriter, r *http.Request, name string, data *PageData) {
	rn.PageStatus(w, r, http.StatusOK, name, data)
}

// PageStatus is Page with an explicit status code.
func (rn *Renderer) PageStatus(w http.ResponseWriter, r *http.Request, status int, name string, data *PageData) {
	tmpl, ok := rn.admin[name]
	if !ok {
		http.Error(w, fmt.Sprintf("template %q not found", name), http.StatusInternalServerError)
		return
	}

	data.CSRFToken = middleware.CSRFToken(r)
	if data.Session == nil {
		data.Session = middleware.SessionFromCtx(r.Context())
	}

	execName := layoutName(standaloneTemplates, name, "base.html")
	if isHTMX(r) && !standaloneTemplates[name] {
		execName = "content"
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, execName, data); err != nil {
		slog.Error("admin template failed", "template", name, "error", err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

// RenderPublic executes a public template inside the site layout and
// returns the document. The CSRF token and branch come from the request.
func (rn *Renderer) RenderPublic(r *http.Request, name string, data *PublicData) ([]byte, error) {
	tmpl, ok := rn.public[name]
	if !ok {
		return nil, fmt.Errorf("public template %q not found", name)
	}
	data.CSRFToken = middleware.CSRFToken(r)
	if data.Branch == nil {
		data.Branch = branch.FromContext(r.Context())
	}
	if data.Path == "" {
		data.Path = r.URL.Path
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		return nil, fmt.Errorf("execute public template %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// Public renders a public template and writes it with status.
func (rn *Renderer) Public(w http.ResponseWriter, r *http.Request, status int, name string, data *PublicData) {
	body, err := rn.RenderPublic(r, name, data)
	if err != nil {
		slog.Error("public template failed", "template", name, "error", err)
		http.Error(w, "Something went wrong. Please try again.", http.StatusInternalServerError)
		return
	}
	WriteHTML(w, status, body)
}

// WriteHTML writes an already rendered document.
func WriteHTML(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(body)
}

func layoutName(standalone map[string]bool, name, layout string) string {
	if standalone[name] {
		return name + ".html"
	}
	return layout
}

// isHTMX returns true if the request was made by HTMX (has HX-Request header).
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

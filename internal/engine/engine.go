// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package engine renders custom pages and student tribute pages from their
// sections. Each section type has one renderer; renderers that need
// collection photos or students fetch them through the source interfaces.
package engine

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"schoolarchives/internal/markdown"
	"schoolarchives/internal/models"
	"schoolarchives/internal/sections"
)

//go:embed templates/*.html
var templateFS embed.FS

// PhotoSource loads the photos of a collection for gallery sections.
type PhotoSource interface {
	ListByCollection(ctx context.Context, collectionID uuid.UUID, limit int) ([]models.Photo, error)
}

// StudentSource loads the tributes of a page for directory sections.
type StudentSource interface {
	ListByPage(ctx context.Context, pageID uuid.UUID) ([]models.StudentTribute, error)
}

// Engine holds the parsed templates and the data sources.
type Engine struct {
	tmpl     *template.Template
	photos   PhotoSource
	students StudentSource
}

// New parses the embedded templates. It fails only on a broken build.
func New(photos PhotoSource, students StudentSource) (*Engine, error) {
	tmpl, err := template.New("engine").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse engine templates: %w", err)
	}
	return &Engine{tmpl: tmpl, photos: photos, students: students}, nil
}

var funcs = template.FuncMap{
	"markdown": markdown.Render,
	"inline":   markdown.Inline,
	"deref":    models.Deref,
	"initial": func(s string) string {
		for _, r := range strings.TrimSpace(s) {
			return strings.ToUpper(string(r))
		}
		return "?"
	},
	"seq": func(n int) []int {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	},
}

// pageView is the data of page.html.
type pageView struct {
	Page     *models.CustomPage
	Sections []template.HTML
}

// RenderPage renders every section of page in order and wraps them in the
// page article. Sections that render nothing are skipped.
func (e *Engine) RenderPage(ctx context.Context, page *models.CustomPage, secs []models.PageSection) (template.HTML, error) {
	view := pageView{Page: page}
	for i := range secs {
		out, err := e.RenderSection(ctx, page, &secs[i])
		if err != nil {
			return "", err
		}
		if out != "" {
			view.Sections = append(view.Sections, out)
		}
	}
	return e.execute("page", view)
}

// RenderSection dispatches to the renderer of the section's type. Unknown
// types render nothing.
func (e *Engine) RenderSection(ctx context.Context, page *models.CustomPage, s *models.PageSection) (template.HTML, error) {
	t := sections.Type(s.SectionType)
	render, ok := renderers[t]
	if !ok {
		slog.Debug("no renderer for section type", "type", s.SectionType, "section_id", s.ID)
		return "", nil
	}

	meta, err := sections.Decode(t, s.Metadata)
	if err != nil {
		slog.Warn("section metadata unreadable, using defaults", "section_id", s.ID, "error", err)
	}
	out, err := render(ctx, e, sectionInput{Page: page, Section: s, Meta: meta})
	if err != nil {
		return "", fmt.Errorf("render %s section %s: %w", t, s.ID, err)
	}
	return out, nil
}

// tributeView is the data of tribute.html.
type tributeView struct {
	Page         *models.CustomPage
	Student      *models.StudentTribute
	Traits       []string
	Achievements []models.StudentAchievement
	Accent       string
}

// RenderTribute renders a student's personal boarding-pass page.
func (e *Engine) RenderTribute(page *models.CustomPage, st *models.StudentTribute, achievements []models.StudentAchievement, accent string) (template.HTML, error) {
	theme := st.Theme
	if !theme.Valid() {
		theme = models.ThemeClassic
	}
	copyStudent := *st
	copyStudent.Theme = theme

	return e.execute("tribute", tributeView{
		Page:         page,
		Student:      &copyStudent,
		Traits:       copyStudent.VisibleTraits(),
		Achievements: achievements,
		Accent:       accent,
	})
}

func (e *Engine) execute(name string, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := e.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("execute %s template: %w", name, err)
	}
	return template.HTML(buf.String()), nil
}

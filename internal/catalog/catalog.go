// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package catalog holds the static page templates offered when a new
// page is created. Templates only seed sections; existing pages never
// change when a template does.
package catalog

import (
	"errors"
	"fmt"

	"schoolarchives/internal/models"
	"schoolarchives/internal/sections"
)

// ErrUnknownTemplate is returned by Instantiate for an unregistered id.
var ErrUnknownTemplate = errors.New("unknown page template")

// Draft is a section to insert when a page is created from a template.
type Draft struct {
	Type     sections.Type
	Title    string
	Subtitle string
	Metadata map[string]any
}

// Template is a named starter bundle of sections.
type Template struct {
	ID          string
	Name        string
	Description string
	PageType    models.PageType
	drafts      []Draft
}

// SectionTypes lists the section types the template creates, in order.
func (t Template) SectionTypes() []sections.Type {
	out := make([]sections.Type, len(t.drafts))
	for i, d := range t.drafts {
		out[i] = d.Type
	}
	return out
}

const BlankID = "blank"

var templates = []Template{
	{
		ID:          "farewell",
		Name:        "Farewell",
		Description: "Send-off page for a graduating class with student tributes",
		PageType:    models.PageTypeFarewell,
		drafts: []Draft{
			{Type: sections.Hero, Title: "Farewell, Class of 2025", Metadata: map[string]any{"badge_text": "Class of 2025", "overlay": "dark"}},
			{Type: sections.Quote, Title: "A word from the principal"},
			{Type: sections.Gallery, Title: "Moments together", Metadata: map[string]any{"columns": 4, "limit": 12}},
			{Type: sections.Stats, Title: "Our journey in numbers", Metadata: map[string]any{"stats": []sections.Stat{}}},
			{Type: sections.StudentDirectory, Title: "Meet the graduates", Subtitle: "Tap a boarding pass to open a tribute", Metadata: map[string]any{"show_traits": true}},
		},
	},
	{
		ID:          "event",
		Name:        "Event",
		Description: "Concerts, sports days and other one-off events",
		PageType:    models.PageTypeEvent,
		drafts: []Draft{
			{Type: sections.Hero, Title: "Event title", Metadata: map[string]any{"overlay": "dark"}},
			{Type: sections.TextBlock, Title: "About the event", Metadata: map[string]any{"alignment": "left"}},
			{Type: sections.Gallery, Title: "Photos", Metadata: map[string]any{"columns": 4, "limit": 12}},
			{Type: sections.Stats, Title: "Highlights", Metadata: map[string]any{"stats": []sections.Stat{}}},
			{Type: sections.CTA, Title: "See all memories", Metadata: map[string]any{"button_text": "Browse memories", "button_url": "/memories", "button_style": "primary"}},
		},
	},
	{
		ID:          "assembly",
		Name:        "Assembly",
		Description: "Morning assemblies and special announcements",
		PageType:    models.PageTypeAssembly,
		drafts: []Draft{
			{Type: sections.Hero, Title: "Assembly"},
			{Type: sections.TextBlock, Title: "What happened"},
			{Type: sections.Gallery, Title: "Photos", Metadata: map[string]any{"columns": 3}},
			{Type: sections.Quote, Title: "Thought for the day"},
		},
	},
	{
		ID:          "generic",
		Name:        "Generic",
		Description: "A simple page with a banner and text",
		PageType:    models.PageTypeGeneric,
		drafts: []Draft{
			{Type: sections.Hero, Title: "Page title"},
			{Type: sections.TextBlock, Title: "Introduction"},
		},
	},
	{
		ID:          BlankID,
		Name:        "Blank",
		Description: "Start with no sections",
		PageType:    models.PageTypeGeneric,
	},
}

// List returns every template in display order.
func List() []Template {
	out := make([]Template, len(templates))
	copy(out, templates)
	return out
}

// Find returns the template with the given id.
func Find(id string) (Template, bool) {
	for _, t := range templates {
		if t.ID == id {
			return t, true
		}
	}
	return Template{}, false
}

// Instantiate returns fresh drafts for the template. Callers may mutate
// the result; metadata maps are copied.
func Instantiate(id string) ([]Draft, error) {
	t, ok := Find(id)
	if !ok {
		return nil, fmt.Errorf("instantiate %q: %w", id, ErrUnknownTemplate)
	}
	out := make([]Draft, len(t.drafts))
	for i, d := range t.drafts {
		meta := make(map[string]any, len(d.Metadata))
		for k, v := range d.Metadata {
			meta[k] = v
		}
		d.Metadata = meta
		out[i] = d
	}
	return out, nil
}

// ForPageType returns the default template id for a page type.
func ForPageType(pt models.PageType) string {
	for _, t := range templates {
		if t.PageType == pt && t.ID != BlankID {
			return t.ID
		}
	}
	return BlankID
}

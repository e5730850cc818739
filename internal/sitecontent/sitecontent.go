// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package sitecontent turns the loosely typed site_content rows into a
// versioned Settings struct. Older layouts are migrated on read and every
// missing or unparsable part falls back to its default.
package sitecontent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"schoolarchives/internal/models"
)

// SchemaVersion is the layout written by Save.
const SchemaVersion = 1

// Row keys of the current layout.
const (
	KeySchemaVersion = "schema_version"
	KeySiteName      = "site_name"
	KeyNavigation    = "navigation"
	KeyCeremony      = "ceremony"
	KeyAbout         = "about"
)

// Legacy keys from layout version 0, where each field had its own row.
const (
	legacyNavMenu          = "nav_menu"
	legacyCeremonyTitle    = "ceremony_title"
	legacyCeremonySubtitle = "ceremony_subtitle"
	legacyCeremonyYear     = "ceremony_year"
	legacyCeremonyAccent   = "ceremony_accent"
	legacyAboutHeading     = "about_heading"
	legacyAboutBody        = "about_body"
)

// Store is the key/value persistence used by Load and Save.
type Store interface {
	All(ctx context.Context) (map[string]models.SiteContent, error)
	SetMany(ctx context.Context, items []models.SiteContent) error
}

// NavItem is one entry of the public navigation bar.
type NavItem struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Ceremony holds the branding of the farewell event pages.
type Ceremony struct {
	Title       string `json:"title"`
	Subtitle    string `json:"subtitle"`
	Year        string `json:"year"`
	AccentColor string `json:"accent_color"`
}

// About is the content of the /about page.
type About struct {
	Heading string `json:"heading"`
	Body    string `json:"body"`
}

// Settings is the typed view of all site content.
type Settings struct {
	SchemaVersion int
	SiteName      string
	Navigation    []NavItem
	Ceremony      Ceremony
	About         About
}

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Defaults returns the settings used for an empty table.
func Defaults() Settings {
	return Settings{
		SchemaVersion: SchemaVersion,
		SiteName:      "School Archives",
		Navigation: []NavItem{
			{Label: "Home", URL: "/"},
			{Label: "Memories", URL: "/memories"},
			{Label: "Events", URL: "/events"},
			{Label: "Farewell", URL: "/farewell-2025"},
			{Label: "About", URL: "/about"},
		},
		Ceremony: Ceremony{
			Title:       "Farewell Ceremony",
			Subtitle:    "Celebrating the graduating class",
			Year:        "2025",
			AccentColor: "#f59e0b",
		},
		About: About{
			Heading: "About our school",
			Body:    "A place to keep the memories of every campus.",
		},
	}
}

// Load reads all rows and returns typed settings. A store failure
// returns Defaults together with the error so pages can still render.
func Load(ctx context.Context, st Store) (Settings, error) {
	rows, err := st.All(ctx)
	if err != nil {
		return Defaults(), fmt.Errorf("load site content: %w", err)
	}
	return Parse(rows), nil
}

// Parse builds Settings from raw rows, migrating older layouts.
func Parse(rows map[string]models.SiteContent) Settings {
	version := 0
	if r, ok := rows[KeySchemaVersion]; ok {
		if v, err := strconv.Atoi(strings.TrimSpace(r.ContentValue)); err == nil {
			version = v
		}
	}

	s := Defaults()
	switch {
	case version <= 0:
		migrateV0(rows, &s)
	default:
		parseV1(rows, &s)
	}
	s.SchemaVersion = SchemaVersion
	s.normalize()
	return s
}

func parseV1(rows map[string]models.SiteContent, s *Settings) {
	if r, ok := rows[KeySiteName]; ok && strings.TrimSpace(r.ContentValue) != "" {
		s.SiteName = strings.TrimSpace(r.ContentValue)
	}
	if r, ok := rows[KeyNavigation]; ok {
		var nav []NavItem
		if decode(r, &nav) {
			s.Navigation = nav
		}
	}
	if r, ok := rows[KeyCeremony]; ok {
		c := s.Ceremony
		if decode(r, &c) {
			s.Ceremony = mergeCeremony(s.Ceremony, c)
		}
	}
	if r, ok := rows[KeyAbout]; ok {
		a := s.About
		if decode(r, &a) {
			if a.Heading != "" {
				s.About.Heading = a.Heading
			}
			if a.Body != "" {
				s.About.Body = a.Body
			}
		}
	}
}

// legacyNavItem is the v0 menu entry shape.
type legacyNavItem struct {
	Label   string `json:"label"`
	Href    string `json:"href"`
	Visible *bool  `json:"visible"`
}

func migrateV0(rows map[string]models.SiteContent, s *Settings) {
	if r, ok := rows[KeySiteName]; ok && strings.TrimSpace(r.ContentValue) != "" {
		s.SiteName = strings.TrimSpace(r.ContentValue)
	}
	if r, ok := rows[legacyNavMenu]; ok {
		var items []legacyNavItem
		if decode(r, &items) {
			nav := make([]NavItem, 0, len(items))
			for _, it := range items {
				if it.Visible != nil && !*it.Visible {
					continue
				}
				nav = append(nav, NavItem{Label: it.Label, URL: it.Href})
			}
			s.Navigation = nav
		}
	}
	text := func(key string) string {
		if r, ok := rows[key]; ok {
			return strings.Trim(strings.TrimSpace(r.ContentValue), `"`)
		}
		return ""
	}
	s.Ceremony = mergeCeremony(s.Ceremony, Ceremony{
		Title:       text(legacyCeremonyTitle),
		Subtitle:    text(legacyCeremonySubtitle),
		Year:        text(legacyCeremonyYear),
		AccentColor: text(legacyCeremonyAccent),
	})
	if h := text(legacyAboutHeading); h != "" {
		s.About.Heading = h
	}
	if b := text(legacyAboutBody); b != "" {
		s.About.Body = b
	}
}

func mergeCeremony(base, over Ceremony) Ceremony {
	if over.Title != "" {
		base.Title = over.Title
	}
	if over.Subtitle != "" {
		base.Subtitle = over.Subtitle
	}
	if over.Year != "" {
		base.Year = over.Year
	}
	if over.AccentColor != "" {
		base.AccentColor = over.AccentColor
	}
	return base
}

// decode parses a JSON row into v, logging and reporting false on failure.
func decode(r models.SiteContent, v any) bool {
	if strings.TrimSpace(r.ContentValue) == "" {
		return false
	}
	if err := json.Unmarshal([]byte(r.ContentValue), v); err != nil {
		slog.Warn("site content unparsable, using default", "key", r.Key, "error", err)
		return false
	}
	return true
}

// normalize drops unusable navigation entries and bad colors.
func (s *Settings) normalize() {
	nav := make([]NavItem, 0, len(s.Navigation))
	for _, n := range s.Navigation {
		n.Label = strings.TrimSpace(n.Label)
		n.URL = strings.TrimSpace(n.URL)
		if n.Label == "" || n.URL == "" {
			continue
		}
		nav = append(nav, n)
	}
	if len(nav) == 0 {
		nav = Defaults().Navigation
	}
	s.Navigation = nav

	if !hexColor.MatchString(s.Ceremony.AccentColor) {
		s.Ceremony.AccentColor = Defaults().Ceremony.AccentColor
	}
}

// Save writes every key of the current layout.
func Save(ctx context.Context, st Store, s Settings) error {
	s.normalize()
	nav, err := json.Marshal(s.Navigation)
	if err != nil {
		return fmt.Errorf("encode navigation: %w", err)
	}
	cer, err := json.Marshal(s.Ceremony)
	if err != nil {
		return fmt.Errorf("encode ceremony: %w", err)
	}
	about, err := json.Marshal(s.About)
	if err != nil {
		return fmt.Errorf("encode about: %w", err)
	}

	return st.SetMany(ctx, []models.SiteContent{
		{Key: KeySchemaVersion, ContentType: "text", ContentValue: strconv.Itoa(SchemaVersion)},
		{Key: KeySiteName, ContentType: "text", ContentValue: strings.TrimSpace(s.SiteName)},
		{Key: KeyNavigation, ContentType: "json", ContentValue: string(nav)},
		{Key: KeyCeremony, ContentType: "json", ContentValue: string(cer)},
		{Key: KeyAbout, ContentType: "json", ContentValue: string(about)},
	})
}

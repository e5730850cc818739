// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// Theme is the visual style of a student's boarding-pass page.
type Theme string

const (
	ThemePlayful Theme = "playful"
	ThemeNavy    Theme = "navy"
	ThemeArmy    Theme = "army"
	ThemeClassic Theme = "classic"
)

// Themes lists every theme in display order.
var Themes = []Theme{ThemeClassic, ThemePlayful, ThemeNavy, ThemeArmy}

// Valid reports whether t is a known theme.
func (t Theme) Valid() bool {
	for _, th := range Themes {
		if t == th {
			return true
		}
	}
	return false
}

// MaxRenderedTraits caps how many traits a tribute card shows.
const MaxRenderedTraits = 3

// StudentTribute is a per-student record on a farewell page.
type StudentTribute struct {
	ID           uuid.UUID `json:"id"`
	PageID       uuid.UUID `json:"page_id"`
	ShortName    string    `json:"short_name"`
	FullName     *string   `json:"full_name,omitempty"`
	PhotoURL     *string   `json:"photo_url,omitempty"`
	Quote        *string   `json:"quote,omitempty"`
	FutureDreams *string   `json:"future_dreams,omitempty"`
	ClassLabel   *string   `json:"class_label,omitempty"`
	Traits       []string  `json:"traits"`
	RouteSlug    *string   `json:"route_slug,omitempty"`
	Theme        Theme     `json:"theme"`
	SortOrder    int       `json:"sort_order"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DisplayName prefers the full name over the short name.
func (s *StudentTribute) DisplayName() string {
	if s.FullName != nil && *s.FullName != "" {
		return *s.FullName
	}
	return s.ShortName
}

// VisibleTraits returns at most MaxRenderedTraits non-empty traits.
func (s *StudentTribute) VisibleTraits() []string {
	out := make([]string, 0, MaxRenderedTraits)
	for _, t := range s.Traits {
		if t == "" {
			continue
		}
		out = append(out, t)
		if len(out) == MaxRenderedTraits {
			break
		}
	}
	return out
}

// StudentAchievement is a child record of a student tribute.
type StudentAchievement struct {
	ID          uuid.UUID `json:"id"`
	StudentID   uuid.UUID `json:"student_id"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	Icon        *string   `json:"icon,omitempty"`
	Year        *string   `json:"year,omitempty"`
	SortOrder   int       `json:"sort_order"`
	CreatedAt   time.Time `json:"created_at"`
}

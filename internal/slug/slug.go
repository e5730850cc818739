// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug provides URL-friendly slug generation for page slugs and
// student route slugs. Both share one namespace under the site root.
package slug

import (
	"regexp"
	"strings"
)

var (
	// nonAlphanumeric matches anything that isn't a letter, digit, whitespace or hyphen.
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9\s-]`)
	// whitespace runs become a single hyphen.
	whitespace = regexp.MustCompile(`\s+`)
	// multipleHyphens collapses consecutive hyphens into one.
	multipleHyphens = regexp.MustCompile(`-{2,}`)
)

// reserved are first path segments owned by fixed routes. A page or
// student using one of these would never be reachable through /{slug}.
var reserved = map[string]bool{
	"admin":         true,
	"memories":      true,
	"events":        true,
	"about":         true,
	"collection":    true,
	"page":          true,
	"branches":      true,
	"photos":        true,
	"comments":      true,
	"ws":            true,
	"static":        true,
	"health":        true,
	"metrics":       true,
	"farewell-2025": true,
}

// Generate creates a URL-friendly slug from the given string.
// Example: "Farewell, Class of 2025!" → "farewell-class-of-2025"
func Generate(s string) string {
	result := strings.ToLower(strings.TrimSpace(s))
	result = nonAlphanumeric.ReplaceAllString(result, "")
	result = whitespace.ReplaceAllString(result, "-")
	result = multipleHyphens.ReplaceAllString(result, "-")
	result = strings.Trim(result, "-")
	return result
}

// Route normalises a student route slug to its stored form with a single
// leading "/". Input may be a bare segment, a path, or a display name.
// An input that slugs to nothing returns "".
func Route(s string) string {
	seg := Generate(strings.TrimLeft(strings.TrimSpace(s), "/"))
	if seg == "" {
		return ""
	}
	return "/" + seg
}

// Segment strips the leading "/" from a stored route slug.
func Segment(route string) string {
	return strings.TrimPrefix(route, "/")
}

// IsReserved reports whether the slug collides with a fixed route.
func IsReserved(s string) bool {
	return reserved[Segment(s)]
}

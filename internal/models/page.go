// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// PageType selects the page's purpose and which template it usually starts from.
type PageType string

const (
	PageTypeFarewell PageType = "farewell"
	PageTypeEvent    PageType = "event"
	PageTypeAssembly PageType = "assembly"
	PageTypeGeneric  PageType = "generic"
)

// PageTypes lists every page type in display order.
var PageTypes = []PageType{PageTypeFarewell, PageTypeEvent, PageTypeAssembly, PageTypeGeneric}

// Valid reports whether t is one of the known page types.
func (t PageType) Valid() bool {
	for _, pt := range PageTypes {
		if t == pt {
			return true
		}
	}
	return false
}

// CustomPage is an admin-authored page composed of ordered sections.
// Slugs are unique across the whole deployment, not per branch.
type CustomPage struct {
	ID                  uuid.UUID `json:"id"`
	Title               string    `json:"title"`
	Slug                string    `json:"slug"`
	PageType            PageType  `json:"page_type"`
	BranchID            uuid.UUID `json:"branch_id"`
	CoverImageURL       *string   `json:"cover_image_url,omitempty"`
	IsPublished         bool      `json:"is_published"`
	MetaDescription     *string   `json:"meta_description,omitempty"`
	SectionOrderVersion int       `json:"section_order_version"`
	StudentOrderVersion int       `json:"student_order_version"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// IsFarewell reports whether the page carries student tributes.
func (p *CustomPage) IsFarewell() bool {
	return p.PageType == PageTypeFarewell
}

// PageSection is one typed content block within a page. Metadata is the
// raw JSON object; its shape depends on SectionType and any key may be absent.
type PageSection struct {
	ID          uuid.UUID       `json:"id"`
	PageID      uuid.UUID       `json:"page_id"`
	SectionType string          `json:"section_type"`
	Title       *string         `json:"title,omitempty"`
	Subtitle    *string         `json:"subtitle,omitempty"`
	Content     *string         `json:"content,omitempty"`
	ImageURL    *string         `json:"image_url,omitempty"`
	Metadata    json.RawMessage `json:"metadata"`
	SortOrder   int             `json:"sort_order"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

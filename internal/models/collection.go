// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// Collection is a titled group of photos owned by a branch.
type Collection struct {
	ID            uuid.UUID  `json:"id"`
	Title         string     `json:"title"`
	Description   *string    `json:"description,omitempty"`
	CoverImageURL *string    `json:"cover_image_url,omitempty"`
	EventDate     *time.Time `json:"event_date,omitempty"`
	BranchID      uuid.UUID  `json:"branch_id"`
	PhotoCount    int        `json:"photo_count"`
	IsFeatured    bool       `json:"is_featured"`
	Tags          []Tag      `json:"tags,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// HasTag reports whether the collection carries the tag with the given id.
func (c *Collection) HasTag(id uuid.UUID) bool {
	for _, t := range c.Tags {
		if t.ID == id {
			return true
		}
	}
	return false
}

// Photo belongs to exactly one collection, ordered by SortOrder within it.
type Photo struct {
	ID           uuid.UUID `json:"id"`
	ImageURL     string    `json:"image_url"`
	ThumbURL     *string   `json:"thumb_url,omitempty"`
	Caption      *string   `json:"caption,omitempty"`
	CollectionID uuid.UUID `json:"collection_id"`
	SortOrder    int       `json:"sort_order"`
	CreatedAt    time.Time `json:"created_at"`
}

// DisplayURL prefers the thumbnail for grid views.
func (p *Photo) DisplayURL() string {
	if p.ThumbURL != nil && *p.ThumbURL != "" {
		return *p.ThumbURL
	}
	return p.ImageURL
}

// Tag labels collections. Collections sharing a tag form one event group.
type Tag struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"`
}

// EventGroup is a tag with the collections carrying it.
type EventGroup struct {
	Tag         Tag
	Collections []Collection
}

// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// SiteContent is one row of the flat key/value settings table. Values are
// either plain strings or serialized JSON depending on ContentType.
type SiteContent struct {
	Key          string    `json:"content_key"`
	ContentType  string    `json:"content_type"`
	ContentValue string    `json:"content_value"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ReactionType is the kind of reaction a visitor leaves on a photo.
type ReactionType string

const (
	ReactionHeart ReactionType = "heart"
	ReactionLaugh ReactionType = "laugh"
	ReactionWow   ReactionType = "wow"
)

// ReactionTypes lists the accepted reaction types.
var ReactionTypes = []ReactionType{ReactionHeart, ReactionLaugh, ReactionWow}

// Valid reports whether r is an accepted reaction type.
func (r ReactionType) Valid() bool {
	for _, rt := range ReactionTypes {
		if r == rt {
			return true
		}
	}
	return false
}

// PhotoComment is an append-only comment; only its author may delete it.
type PhotoComment struct {
	ID         uuid.UUID `json:"id"`
	PhotoID    uuid.UUID `json:"photo_id"`
	VisitorID  uuid.UUID `json:"-"`
	AuthorName string    `json:"author_name"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}

// ReactionCounts maps reaction type to count for one photo.
type ReactionCounts map[ReactionType]int

// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package sections

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Metadata is the typed payload of one section variant. Any key of the
// stored JSON may be absent; Decode fills defaults on read.
type Metadata interface {
	SectionType() Type
	normalize()
}

// Overlay is the hero image tint.
type Overlay string

const (
	OverlayDark  Overlay = "dark"
	OverlayLight Overlay = "light"
)

// Alignment is the text block alignment.
type Alignment string

const (
	AlignLeft   Alignment = "left"
	AlignCenter Alignment = "center"
)

// ImagePosition places the text block image.
type ImagePosition string

const (
	ImageLeft  ImagePosition = "left"
	ImageRight ImagePosition = "right"
)

// ButtonStyle is the CTA button look.
type ButtonStyle string

const (
	ButtonPrimary ButtonStyle = "primary"
	ButtonOutline ButtonStyle = "outline"
)

const (
	DefaultGalleryColumns = 4
	DefaultGalleryLimit   = 12
	MaxGalleryLimit       = 48
	MaxStats              = 4
	MaxInfoCards          = 6
)

type HeroMeta struct {
	BadgeText     string  `json:"badge_text,omitempty"`
	EventDate     string  `json:"event_date,omitempty"`
	EventLocation string  `json:"event_location,omitempty"`
	Overlay       Overlay `json:"overlay,omitempty"`
}

func (*HeroMeta) SectionType() Type { return Hero }

func (m *HeroMeta) normalize() {
	if m.Overlay != OverlayLight {
		m.Overlay = OverlayDark
	}
}

type TextBlockMeta struct {
	Alignment     Alignment     `json:"alignment,omitempty"`
	ImagePosition ImagePosition `json:"image_position,omitempty"`
}

func (*TextBlockMeta) SectionType() Type { return TextBlock }

func (m *TextBlockMeta) normalize() {
	if m.Alignment != AlignCenter {
		m.Alignment = AlignLeft
	}
	if m.ImagePosition != ImageLeft {
		m.ImagePosition = ImageRight
	}
}

// GalleryMeta links a gallery to a collection. An empty CollectionID
// renders the empty-state grid.
type GalleryMeta struct {
	CollectionID string  `json:"collection_id,omitempty"`
	Columns      flexInt `json:"columns,omitempty"`
	Limit        flexInt `json:"limit,omitempty"`
}

func (*GalleryMeta) SectionType() Type { return Gallery }

func (m *GalleryMeta) normalize() {
	if m.Columns < 2 || m.Columns > 6 {
		m.Columns = DefaultGalleryColumns
	}
	if m.Limit < 1 {
		m.Limit = DefaultGalleryLimit
	}
	if m.Limit > MaxGalleryLimit {
		m.Limit = MaxGalleryLimit
	}
}

// Stat is one headline number.
type Stat struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type StatsMeta struct {
	Stats []Stat `json:"stats"`
}

func (*StatsMeta) SectionType() Type { return Stats }

func (m *StatsMeta) normalize() {
	kept := m.Stats[:0]
	for _, s := range m.Stats {
		if s.Value == "" && s.Label == "" {
			continue
		}
		kept = append(kept, s)
	}
	m.Stats = kept
}

// Visible returns the stats that are rendered, at most MaxStats.
func (m *StatsMeta) Visible() []Stat {
	if len(m.Stats) > MaxStats {
		return m.Stats[:MaxStats]
	}
	return m.Stats
}

type QuoteMeta struct {
	Author     string `json:"author,omitempty"`
	AuthorRole string `json:"author_role,omitempty"`
}

func (*QuoteMeta) SectionType() Type { return Quote }
func (*QuoteMeta) normalize()        {}

type CTAMeta struct {
	ButtonText  string      `json:"button_text,omitempty"`
	ButtonURL   string      `json:"button_url,omitempty"`
	ButtonStyle ButtonStyle `json:"button_style,omitempty"`
}

func (*CTAMeta) SectionType() Type { return CTA }

func (m *CTAMeta) normalize() {
	if m.ButtonStyle != ButtonOutline {
		m.ButtonStyle = ButtonPrimary
	}
}

// Complete reports whether both button text and url are present.
func (m *CTAMeta) Complete() bool {
	return m.ButtonText != "" && m.ButtonURL != ""
}

// Card is one entry of an info_card section.
type Card struct {
	Icon        string `json:"icon"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type InfoCardMeta struct {
	Cards []Card `json:"cards"`
}

func (*InfoCardMeta) SectionType() Type { return InfoCard }

func (m *InfoCardMeta) normalize() {
	kept := m.Cards[:0]
	for _, c := range m.Cards {
		if c.Title == "" && c.Description == "" {
			continue
		}
		kept = append(kept, c)
	}
	m.Cards = kept
}

// StudentDirectoryMeta points at the page whose students are listed.
// An empty PageID means the owning page.
type StudentDirectoryMeta struct {
	PageID     string `json:"page_id,omitempty"`
	ShowTraits bool   `json:"show_traits"`
}

func (*StudentDirectoryMeta) SectionType() Type { return StudentDirectory }
func (*StudentDirectoryMeta) normalize()        {}

// Decode builds the typed variant for t from stored metadata. Missing keys
// take defaults, unknown keys are ignored. A malformed payload still
// yields the default variant alongside the error so callers can render.
func Decode(t Type, raw json.RawMessage) (Metadata, error) {
	d, ok := registry[t]
	if !ok {
		return nil, fmt.Errorf("decode metadata: unknown section type %q", t)
	}
	m := d.NewMetadata()
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		m.normalize()
		return m, nil
	}
	if err := json.Unmarshal(trimmed, m); err != nil {
		fresh := d.NewMetadata()
		fresh.normalize()
		return fresh, fmt.Errorf("decode %s metadata: %w", t, err)
	}
	m.normalize()
	return m, nil
}

// flexInt accepts a JSON number or a numeric string. Anything else decodes
// to zero so normalize can substitute the default.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := string(bytes.Trim(bytes.TrimSpace(b), `"`))
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexInt(n)
	return nil
}

// Int returns the value as a plain int.
func (f flexInt) Int() int { return int(f) }

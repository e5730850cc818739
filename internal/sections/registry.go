// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package sections is the single source of truth for page section types.
// Every type listed by All has a descriptor here, an editor in this
// package and a renderer in the engine package; tests in both packages
// fail when one of those mappings falls behind.
package sections

// Type identifies a kind of page section. Values match page_sections.section_type.
type Type string

const (
	Hero             Type = "hero"
	TextBlock        Type = "text_block"
	Gallery          Type = "gallery"
	Stats            Type = "stats"
	Quote            Type = "quote"
	CTA              Type = "cta"
	InfoCard         Type = "info_card"
	StudentDirectory Type = "student_directory"
)

// UnknownLabel is shown in the admin for section rows whose type is not registered.
const UnknownLabel = "Unknown section type"

// Descriptor describes how a section type is authored.
type Descriptor struct {
	Type        Type
	Label       string
	Description string
	Editor      Editor
	// NewMetadata returns the variant populated with read-time defaults.
	NewMetadata func() Metadata
}

var all = []Type{Hero, TextBlock, Gallery, Stats, Quote, CTA, InfoCard, StudentDirectory}

var registry = map[Type]Descriptor{
	Hero: {
		Type:        Hero,
		Label:       "Hero",
		Description: "Large banner with title, badge and event details",
		Editor:      heroEditor,
		NewMetadata: func() Metadata { return &HeroMeta{Overlay: OverlayDark} },
	},
	TextBlock: {
		Type:        TextBlock,
		Label:       "Text Block",
		Description: "Markdown text with an optional side image",
		Editor:      textBlockEditor,
		NewMetadata: func() Metadata {
			return &TextBlockMeta{Alignment: AlignLeft, ImagePosition: ImageRight}
		},
	},
	Gallery: {
		Type:        Gallery,
		Label:       "Photo Gallery",
		Description: "Grid of photos from a linked collection",
		Editor:      galleryEditor,
		NewMetadata: func() Metadata {
			return &GalleryMeta{Columns: DefaultGalleryColumns, Limit: DefaultGalleryLimit}
		},
	},
	Stats: {
		Type:        Stats,
		Label:       "Stats",
		Description: "Up to four headline numbers",
		Editor:      statsEditor,
		NewMetadata: func() Metadata { return &StatsMeta{} },
	},
	Quote: {
		Type:        Quote,
		Label:       "Quote",
		Description: "Highlighted quote with attribution",
		Editor:      quoteEditor,
		NewMetadata: func() Metadata { return &QuoteMeta{} },
	},
	CTA: {
		Type:        CTA,
		Label:       "Call to Action",
		Description: "Heading with a single button",
		Editor:      ctaEditor,
		NewMetadata: func() Metadata { return &CTAMeta{ButtonStyle: ButtonPrimary} },
	},
	InfoCard: {
		Type:        InfoCard,
		Label:       "Info Cards",
		Description: "Row of icon cards",
		Editor:      infoCardEditor,
		NewMetadata: func() Metadata { return &InfoCardMeta{} },
	},
	StudentDirectory: {
		Type:        StudentDirectory,
		Label:       "Student Directory",
		Description: "Boarding-pass cards for every student tribute",
		Editor:      studentDirectoryEditor,
		NewMetadata: func() Metadata { return &StudentDirectoryMeta{ShowTraits: true} },
	},
}

// All returns every registered section type in display order.
func All() []Type {
	out := make([]Type, len(all))
	copy(out, all)
	return out
}

// Lookup returns the descriptor for t. ok is false for unregistered types.
func Lookup(t Type) (Descriptor, bool) {
	d, ok := registry[t]
	return d, ok
}

// Label returns the human label for t, or UnknownLabel.
func Label(t Type) string {
	if d, ok := registry[t]; ok {
		return d.Label
	}
	return UnknownLabel
}

// Valid reports whether t is a registered section type.
func (t Type) Valid() bool {
	_, ok := registry[t]
	return ok
}

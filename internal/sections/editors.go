// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package sections

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// FieldKind selects the form control for a field.
type FieldKind string

const (
	KindText       FieldKind = "text"
	KindTextarea   FieldKind = "textarea"
	KindURL        FieldKind = "url"
	KindDate       FieldKind = "date"
	KindNumber     FieldKind = "number"
	KindSelect     FieldKind = "select"
	KindCheckbox   FieldKind = "checkbox"
	KindCollection FieldKind = "collection" // select filled with collections by the handler
	KindPage       FieldKind = "page"       // select filled with farewell pages by the handler
)

// Scalar column names shared by every section.
const (
	FieldTitle    = "title"
	FieldSubtitle = "subtitle"
	FieldContent  = "content"
	FieldImageURL = "image_url"
)

// Field is one control in a section edit form.
type Field struct {
	Name        string
	Label       string
	Kind        FieldKind
	Options     []string
	Placeholder string
	Help        string
	// Meta marks fields stored in the metadata object rather than a column.
	Meta bool
}

// SectionPatch is a partial section update. Nil scalars are left as they
// are; Metadata keys are shallow-merged into the stored object.
type SectionPatch struct {
	Title    *string
	Subtitle *string
	Content  *string
	ImageURL *string
	Metadata map[string]any
}

// Empty reports whether the patch changes nothing.
func (p SectionPatch) Empty() bool {
	return p.Title == nil && p.Subtitle == nil && p.Content == nil &&
		p.ImageURL == nil && len(p.Metadata) == 0
}

// Editor declares a section type's form and binds submissions to a patch.
// Editors never check cross-field rules: an incomplete section is saved
// as submitted and the renderer decides whether to show it.
type Editor interface {
	Fields() []Field
	Values(Metadata) map[string]string
	Bind(url.Values) SectionPatch
}

type formEditor struct {
	fields []Field
	values func(Metadata) map[string]string
	bind   func(url.Values) map[string]any
}

func (e formEditor) Fields() []Field {
	out := make([]Field, len(e.fields))
	copy(out, e.fields)
	return out
}

func (e formEditor) Values(m Metadata) map[string]string {
	if m == nil || e.values == nil {
		return map[string]string{}
	}
	return e.values(m)
}

// Bind sets every scalar the form declares, even when blank, and merges
// the metadata keys the form owns.
func (e formEditor) Bind(form url.Values) SectionPatch {
	var p SectionPatch
	for _, f := range e.fields {
		if f.Meta {
			continue
		}
		v := strings.TrimSpace(form.Get(f.Name))
		switch f.Name {
		case FieldTitle:
			p.Title = &v
		case FieldSubtitle:
			p.Subtitle = &v
		case FieldContent:
			p.Content = &v
		case FieldImageURL:
			p.ImageURL = &v
		}
	}
	if e.bind != nil {
		p.Metadata = e.bind(form)
	}
	return p
}

var (
	titleField    = Field{Name: FieldTitle, Label: "Title", Kind: KindText}
	subtitleField = Field{Name: FieldSubtitle, Label: "Subtitle", Kind: KindText}
	imageField    = Field{Name: FieldImageURL, Label: "Image URL", Kind: KindURL}
)

var heroEditor = formEditor{
	fields: []Field{
		titleField, subtitleField, imageField,
		{Name: "badge_text", Label: "Badge", Kind: KindText, Meta: true, Placeholder: "Class of 2025"},
		{Name: "event_date", Label: "Event date", Kind: KindDate, Meta: true},
		{Name: "event_location", Label: "Location", Kind: KindText, Meta: true},
		{Name: "overlay", Label: "Overlay", Kind: KindSelect, Options: []string{string(OverlayDark), string(OverlayLight)}, Meta: true},
	},
	values: func(m Metadata) map[string]string {
		h := m.(*HeroMeta)
		return map[string]string{
			"badge_text": h.BadgeText, "event_date": h.EventDate,
			"event_location": h.EventLocation, "overlay": string(h.Overlay),
		}
	},
	bind: func(f url.Values) map[string]any {
		return map[string]any{
			"badge_text":     trimmed(f, "badge_text"),
			"event_date":     trimmed(f, "event_date"),
			"event_location": trimmed(f, "event_location"),
			"overlay":        trimmed(f, "overlay"),
		}
	},
}

var textBlockEditor = formEditor{
	fields: []Field{
		titleField,
		{Name: FieldContent, Label: "Text", Kind: KindTextarea, Help: "Markdown supported"},
		imageField,
		{Name: "alignment", Label: "Alignment", Kind: KindSelect, Options: []string{string(AlignLeft), string(AlignCenter)}, Meta: true},
		{Name: "image_position", Label: "Image position", Kind: KindSelect, Options: []string{string(ImageRight), string(ImageLeft)}, Meta: true},
	},
	values: func(m Metadata) map[string]string {
		t := m.(*TextBlockMeta)
		return map[string]string{"alignment": string(t.Alignment), "image_position": string(t.ImagePosition)}
	},
	bind: func(f url.Values) map[string]any {
		return map[string]any{
			"alignment":      trimmed(f, "alignment"),
			"image_position": trimmed(f, "image_position"),
		}
	},
}

var galleryEditor = formEditor{
	fields: []Field{
		titleField, subtitleField,
		{Name: "collection_id", Label: "Collection", Kind: KindCollection, Meta: true},
		{Name: "columns", Label: "Columns", Kind: KindNumber, Meta: true, Help: "2 to 6"},
		{Name: "limit", Label: "Photos shown", Kind: KindNumber, Meta: true},
	},
	values: func(m Metadata) map[string]string {
		g := m.(*GalleryMeta)
		return map[string]string{
			"collection_id": g.CollectionID,
			"columns":       strconv.Itoa(g.Columns.Int()),
			"limit":         strconv.Itoa(g.Limit.Int()),
		}
	},
	bind: func(f url.Values) map[string]any {
		out := map[string]any{"collection_id": trimmed(f, "collection_id")}
		if n, ok := intValue(f, "columns"); ok {
			out["columns"] = n
		}
		if n, ok := intValue(f, "limit"); ok {
			out["limit"] = n
		}
		return out
	},
}

var statsEditor = formEditor{
	fields: append([]Field{titleField, subtitleField}, indexedFields("stat", MaxStats, []Field{
		{Name: "value", Label: "Value", Kind: KindText},
		{Name: "label", Label: "Label", Kind: KindText},
	})...),
	values: func(m Metadata) map[string]string {
		out := map[string]string{}
		for i, s := range m.(*StatsMeta).Visible() {
			out[indexed("stat", i, "value")] = s.Value
			out[indexed("stat", i, "label")] = s.Label
		}
		return out
	},
	bind: func(f url.Values) map[string]any {
		stats := []Stat{}
		for i := 0; i < MaxStats; i++ {
			s := Stat{Value: trimmed(f, indexed("stat", i, "value")), Label: trimmed(f, indexed("stat", i, "label"))}
			if s.Value == "" && s.Label == "" {
				continue
			}
			stats = append(stats, s)
		}
		return map[string]any{"stats": stats}
	},
}

var quoteEditor = formEditor{
	fields: []Field{
		titleField,
		{Name: FieldContent, Label: "Quote", Kind: KindTextarea},
		{Name: "author", Label: "Author", Kind: KindText, Meta: true},
		{Name: "author_role", Label: "Author role", Kind: KindText, Meta: true, Placeholder: "Principal"},
	},
	values: func(m Metadata) map[string]string {
		q := m.(*QuoteMeta)
		return map[string]string{"author": q.Author, "author_role": q.AuthorRole}
	},
	bind: func(f url.Values) map[string]any {
		return map[string]any{"author": trimmed(f, "author"), "author_role": trimmed(f, "author_role")}
	},
}

var ctaEditor = formEditor{
	fields: []Field{
		titleField, subtitleField,
		{Name: "button_text", Label: "Button text", Kind: KindText, Meta: true},
		{Name: "button_url", Label: "Button URL", Kind: KindURL, Meta: true},
		{Name: "button_style", Label: "Button style", Kind: KindSelect, Options: []string{string(ButtonPrimary), string(ButtonOutline)}, Meta: true},
	},
	values: func(m Metadata) map[string]string {
		c := m.(*CTAMeta)
		return map[string]string{"button_text": c.ButtonText, "button_url": c.ButtonURL, "button_style": string(c.ButtonStyle)}
	},
	bind: func(f url.Values) map[string]any {
		return map[string]any{
			"button_text":  trimmed(f, "button_text"),
			"button_url":   trimmed(f, "button_url"),
			"button_style": trimmed(f, "button_style"),
		}
	},
}

var infoCardEditor = formEditor{
	fields: append([]Field{titleField, subtitleField}, indexedFields("card", MaxInfoCards, []Field{
		{Name: "icon", Label: "Icon", Kind: KindText, Placeholder: "trophy"},
		{Name: "title", Label: "Title", Kind: KindText},
		{Name: "description", Label: "Description", Kind: KindTextarea},
	})...),
	values: func(m Metadata) map[string]string {
		out := map[string]string{}
		for i, c := range m.(*InfoCardMeta).Cards {
			if i == MaxInfoCards {
				break
			}
			out[indexed("card", i, "icon")] = c.Icon
			out[indexed("card", i, "title")] = c.Title
			out[indexed("card", i, "description")] = c.Description
		}
		return out
	},
	bind: func(f url.Values) map[string]any {
		cards := []Card{}
		for i := 0; i < MaxInfoCards; i++ {
			c := Card{
				Icon:        trimmed(f, indexed("card", i, "icon")),
				Title:       trimmed(f, indexed("card", i, "title")),
				Description: trimmed(f, indexed("card", i, "description")),
			}
			if c.Title == "" && c.Description == "" {
				continue
			}
			cards = append(cards, c)
		}
		return map[string]any{"cards": cards}
	},
}

var studentDirectoryEditor = formEditor{
	fields: []Field{
		titleField, subtitleField,
		{Name: "page_id", Label: "Students from page", Kind: KindPage, Meta: true, Help: "Leave empty for this page"},
		{Name: "show_traits", Label: "Show traits", Kind: KindCheckbox, Meta: true},
	},
	values: func(m Metadata) map[string]string {
		d := m.(*StudentDirectoryMeta)
		return map[string]string{"page_id": d.PageID, "show_traits": strconv.FormatBool(d.ShowTraits)}
	},
	bind: func(f url.Values) map[string]any {
		return map[string]any{"page_id": trimmed(f, "page_id"), "show_traits": checked(f, "show_traits")}
	},
}

// indexed builds repeated-group field names such as stat_0_value.
func indexed(group string, i int, name string) string {
	return fmt.Sprintf("%s_%d_%s", group, i, name)
}

func indexedFields(group string, n int, tmpl []Field) []Field {
	out := make([]Field, 0, n*len(tmpl))
	for i := 0; i < n; i++ {
		for _, f := range tmpl {
			f.Name = indexed(group, i, f.Name)
			f.Label = fmt.Sprintf("%s %d", f.Label, i+1)
			f.Meta = true
			out = append(out, f)
		}
	}
	return out
}

func trimmed(f url.Values, key string) string {
	return strings.TrimSpace(f.Get(key))
}

// intValue parses a numeric field; blank or garbage leaves the key out so
// the stored value survives the merge.
func intValue(f url.Values, key string) (int, bool) {
	n, err := strconv.Atoi(trimmed(f, key))
	if err != nil {
		return 0, false
	}
	return n, true
}

func checked(f url.Values, key string) bool {
	switch strings.ToLower(trimmed(f, key)) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

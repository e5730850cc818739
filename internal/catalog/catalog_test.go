package catalog

import (
	"errors"
	"reflect"
	"testing"

	"schoolarchives/internal/models"
	"schoolarchives/internal/sections"
)

func TestInstantiateSectionOrder(t *testing.T) {
	tests := []struct {
		id   string
		want []sections.Type
	}{
		{id: "farewell", want: []sections.Type{sections.Hero, sections.Quote, sections.Gallery, sections.Stats, sections.StudentDirectory}},
		{id: "event", want: []sections.Type{sections.Hero, sections.TextBlock, sections.Gallery, sections.Stats, sections.CTA}},
		{id: "assembly", want: []sections.Type{sections.Hero, sections.TextBlock, sections.Gallery, sections.Quote}},
		{id: "generic", want: []sections.Type{sections.Hero, sections.TextBlock}},
		{id: "blank", want: []sections.Type{}},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			drafts, err := Instantiate(tt.id)
			if err != nil {
				t.Fatal(err)
			}
			got := make([]sections.Type, len(drafts))
			for i, d := range drafts {
				got[i] = d.Type
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("types = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInstantiateUnknown(t *testing.T) {
	_, err := Instantiate("gala")
	if !errors.Is(err, ErrUnknownTemplate) {
		t.Errorf("err = %v, want ErrUnknownTemplate", err)
	}
}

func TestTemplatesUseRegisteredTypes(t *testing.T) {
	for _, tmpl := range List() {
		if !tmpl.PageType.Valid() {
			t.Errorf("%s: invalid page type %q", tmpl.ID, tmpl.PageType)
		}
		for _, typ := range tmpl.SectionTypes() {
			if !typ.Valid() {
				t.Errorf("%s: unregistered section type %q", tmpl.ID, typ)
			}
		}
	}
}

func TestInstantiateReturnsIndependentCopies(t *testing.T) {
	a, _ := Instantiate("farewell")
	a[0].Metadata["badge_text"] = "changed"
	a[0].Title = "changed"

	b, _ := Instantiate("farewell")
	if b[0].Metadata["badge_text"] == "changed" || b[0].Title == "changed" {
		t.Error("Instantiate leaked a mutation into the catalog")
	}
}

func TestForPageType(t *testing.T) {
	if got := ForPageType(models.PageTypeFarewell); got != "farewell" {
		t.Errorf("farewell -> %q", got)
	}
	if got := ForPageType(models.PageType("unknown")); got != BlankID {
		t.Errorf("unknown -> %q, want blank", got)
	}
}

func TestListIDsUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, tmpl := range List() {
		if seen[tmpl.ID] {
			t.Errorf("duplicate template id %q", tmpl.ID)
		}
		seen[tmpl.ID] = true
	}
}

package sitecontent

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"schoolarchives/internal/models"
)

type memStore struct {
	rows map[string]models.SiteContent
	err  error
}

func (m *memStore) All(context.Context) (map[string]models.SiteContent, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.rows, nil
}

func (m *memStore) SetMany(_ context.Context, items []models.SiteContent) error {
	if m.rows == nil {
		m.rows = map[string]models.SiteContent{}
	}
	for _, it := range items {
		m.rows[it.Key] = it
	}
	return nil
}

func rows(kv map[string]string) map[string]models.SiteContent {
	out := map[string]models.SiteContent{}
	for k, v := range kv {
		out[k] = models.SiteContent{Key: k, ContentValue: v}
	}
	return out
}

func TestParseEmptyIsDefaults(t *testing.T) {
	got := Parse(nil)
	if !reflect.DeepEqual(got, Defaults()) {
		t.Errorf("Parse(nil) = %+v, want defaults", got)
	}
}

func TestParseV1(t *testing.T) {
	got := Parse(rows(map[string]string{
		KeySchemaVersion: "1",
		KeySiteName:      "Greenfield Memories",
		KeyNavigation:    `[{"label":"Home","url":"/"},{"label":"","url":"/x"}]`,
		KeyCeremony:      `{"title":"Goodbye 2025","accent_color":"#123456"}`,
		KeyAbout:         `{"body":"Founded 1970."}`,
	}))
	if got.SiteName != "Greenfield Memories" {
		t.Errorf("site name = %q", got.SiteName)
	}
	if len(got.Navigation) != 1 || got.Navigation[0].Label != "Home" {
		t.Errorf("navigation = %+v", got.Navigation)
	}
	if got.Ceremony.Title != "Goodbye 2025" || got.Ceremony.AccentColor != "#123456" {
		t.Errorf("ceremony = %+v", got.Ceremony)
	}
	if got.Ceremony.Year != Defaults().Ceremony.Year {
		t.Error("missing ceremony year should default")
	}
	if got.About.Heading != Defaults().About.Heading || got.About.Body != "Founded 1970." {
		t.Errorf("about = %+v", got.About)
	}
}

func TestParseCorruptValuesFallBack(t *testing.T) {
	got := Parse(rows(map[string]string{
		KeySchemaVersion: "1",
		KeyNavigation:    `{not json`,
		KeyCeremony:      `"just a string"`,
	}))
	if !reflect.DeepEqual(got.Navigation, Defaults().Navigation) {
		t.Errorf("navigation = %+v, want defaults", got.Navigation)
	}
	if got.Ceremony != Defaults().Ceremony {
		t.Errorf("ceremony = %+v, want defaults", got.Ceremony)
	}
}

func TestParseBadAccentColor(t *testing.T) {
	got := Parse(rows(map[string]string{
		KeySchemaVersion: "1",
		KeyCeremony:      `{"accent_color":"red; background:url(x)"}`,
	}))
	if got.Ceremony.AccentColor != Defaults().Ceremony.AccentColor {
		t.Errorf("accent = %q, want default", got.Ceremony.AccentColor)
	}
}

func TestMigrateV0(t *testing.T) {
	got := Parse(rows(map[string]string{
		"nav_menu":        `[{"label":"Home","href":"/"},{"label":"Secret","href":"/s","visible":false}]`,
		"ceremony_title":  `"Farewell Night"`,
		"ceremony_year":   "2024",
		"ceremony_accent": "#abc",
		"about_heading":   "Our story",
	}))
	if got.SchemaVersion != SchemaVersion {
		t.Errorf("version = %d", got.SchemaVersion)
	}
	if len(got.Navigation) != 1 || got.Navigation[0].URL != "/" {
		t.Errorf("navigation = %+v", got.Navigation)
	}
	if got.Ceremony.Title != "Farewell Night" || got.Ceremony.Year != "2024" || got.Ceremony.AccentColor != "#abc" {
		t.Errorf("ceremony = %+v", got.Ceremony)
	}
	if got.About.Heading != "Our story" {
		t.Errorf("about = %+v", got.About)
	}
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	st := &memStore{rows: rows(map[string]string{"ceremony_title": "Legacy"})}
	s := Defaults()
	s.SiteName = "Riverside"
	s.Ceremony.Title = "Class of 2026"

	if err := Save(context.Background(), st, s); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(context.Background(), st)
	if err != nil {
		t.Fatal(err)
	}
	if got.SiteName != "Riverside" || got.Ceremony.Title != "Class of 2026" {
		t.Errorf("round trip = %+v", got)
	}
}

func TestLoadStoreError(t *testing.T) {
	boom := errors.New("down")
	got, err := Load(context.Background(), &memStore{err: boom})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
	if !reflect.DeepEqual(got, Defaults()) {
		t.Error("store failure should still return defaults")
	}
}

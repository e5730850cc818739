package handlers

import (
	"strings"
	"testing"

	"schoolarchives/internal/models"
	"schoolarchives/internal/sections"
	"schoolarchives/internal/sitecontent"
)

func checkValidation(t *testing.T, result string, wantError bool) {
	t.Helper()
	if wantError && result == "" {
		t.Error("expected an error, got none")
	}
	if !wantError && result != "" {
		t.Errorf("unexpected error: %s", result)
	}
}

func TestValidatePage(t *testing.T) {
	tests := []struct {
		name      string
		title     string
		slug      string
		metaDesc  string
		wantError bool
	}{
		{"valid", "Sports Day", "sports-day", "All the races", false},
		{"empty title", "", "slug", "", true},
		{"whitespace title", "   ", "slug", "", true},
		{"title too long", strings.Repeat("a", 301), "slug", "", true},
		{"slug too long", "title", strings.Repeat("a", 301), "", true},
		{"meta desc too long", "title", "", strings.Repeat("a", 501), true},
		{"empty slug allowed", "title", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkValidation(t, validatePage(tt.title, tt.slug, tt.metaDesc), tt.wantError)
		})
	}
}

func TestValidateSectionPatch(t *testing.T) {
	str := func(s string) *string { return &s }
	tests := []struct {
		name      string
		patch     sections.SectionPatch
		wantError bool
	}{
		{"empty patch", sections.SectionPatch{}, false},
		{"valid", sections.SectionPatch{Title: str("Hello"), ImageURL: str("https://cdn.example.com/a.jpg")}, false},
		{"relative image", sections.SectionPatch{ImageURL: str("/static/hero.jpg")}, false},
		{"cleared image", sections.SectionPatch{ImageURL: str("")}, false},
		{"protocol-relative image", sections.SectionPatch{ImageURL: str("//evil.example/x.jpg")}, true},
		{"javascript image", sections.SectionPatch{ImageURL: str("javascript:alert(1)")}, true},
		{"title too long", sections.SectionPatch{Title: str(strings.Repeat("a", 301))}, true},
		{"content too long", sections.SectionPatch{Content: str(strings.Repeat("a", 100_001))}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkValidation(t, validateSectionPatch(tt.patch), tt.wantError)
		})
	}
}

func TestValidateStudent(t *testing.T) {
	str := func(s string) *string { return &s }
	tests := []struct {
		name      string
		st        models.StudentTribute
		wantError bool
	}{
		{"valid", models.StudentTribute{ShortName: "Alice", Traits: []string{"kind", "funny"}}, false},
		{"missing short name", models.StudentTribute{}, true},
		{"short name too long", models.StudentTribute{ShortName: strings.Repeat("a", 101)}, true},
		{"quote too long", models.StudentTribute{ShortName: "A", Quote: str(strings.Repeat("q", 1001))}, true},
		{"bad photo url", models.StudentTribute{ShortName: "A", PhotoURL: str("ftp://x")}, true},
		{"too many traits", models.StudentTribute{ShortName: "A", Traits: make([]string, 13)}, true},
		{"trait too long", models.StudentTribute{ShortName: "A", Traits: []string{strings.Repeat("t", 61)}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkValidation(t, validateStudent(&tt.st), tt.wantError)
		})
	}
}

func TestValidateBranchAndTag(t *testing.T) {
	checkValidation(t, validateBranch("North Campus", "NORTH"), false)
	checkValidation(t, validateBranch("North Campus", "north-1"), false)
	checkValidation(t, validateBranch("", "N"), true)
	checkValidation(t, validateBranch("North", "has space"), true)
	checkValidation(t, validateBranch("North", strings.Repeat("n", 21)), true)

	checkValidation(t, validateTag("Sports", "#3b82f6"), false)
	checkValidation(t, validateTag("Sports", "blue"), true)
	checkValidation(t, validateTag("Sports", "#fff"), true)
	checkValidation(t, validateTag(" ", "#3b82f6"), true)
}

func TestValidateCollection(t *testing.T) {
	checkValidation(t, validateCollection("Sports Day", ""), false)
	checkValidation(t, validateCollection("", ""), true)
	checkValidation(t, validateCollection("T", strings.Repeat("d", 5001)), true)
	checkValidation(t, validateCaption(strings.Repeat("c", 501)), true)
	checkValidation(t, validateAchievement(""), true)
	checkValidation(t, validateAchievement("Chess champion"), false)
}

func TestValidateSiteContent(t *testing.T) {
	valid := sitecontent.Defaults()
	checkValidation(t, validateSiteContent(valid), false)

	noName := sitecontent.Defaults()
	noName.SiteName = ""
	checkValidation(t, validateSiteContent(noName), true)

	badNav := sitecontent.Defaults()
	badNav.Navigation = append(badNav.Navigation, sitecontent.NavItem{Label: "Evil", URL: "javascript:x"})
	checkValidation(t, validateSiteContent(badNav), true)

	halfNav := sitecontent.Defaults()
	halfNav.Navigation = []sitecontent.NavItem{{Label: "Home"}}
	checkValidation(t, validateSiteContent(halfNav), true)

	badAccent := sitecontent.Defaults()
	badAccent.Ceremony.AccentColor = "orange"
	checkValidation(t, validateSiteContent(badAccent), true)
}

func TestValidateComment(t *testing.T) {
	checkValidation(t, validateComment("Sam", "Great photo!"), false)
	checkValidation(t, validateComment("", "Anonymous is fine"), false)
	checkValidation(t, validateComment("Sam", "   "), true)
	checkValidation(t, validateComment("Sam", strings.Repeat("b", 501)), true)
	checkValidation(t, validateComment(strings.Repeat("n", 81), "hi"), true)
}

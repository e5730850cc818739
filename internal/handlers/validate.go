package handlers

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"schoolarchives/internal/models"
	"schoolarchives/internal/sections"
	"schoolarchives/internal/sitecontent"
	"schoolarchives/internal/store"
)

// Validation limits for admin and visitor forms.
const (
	maxTitleLen       = 300
	maxSlugLen        = 300
	maxMetaDescLen    = 500
	maxContentLen     = 100_000
	maxDescriptionLen = 5_000
	maxShortNameLen   = 100
	maxQuoteLen       = 1_000
	maxTraits         = 12
	maxTraitLen       = 60
	maxNameLen        = 100
	maxCodeLen        = 20
	maxCaptionLen     = 500
	maxAuthorLen      = 80
	maxURLLen         = 2_000
)

var (
	tagColor   = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
	branchCode = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)
)

func tooLong(s string, max int) bool {
	return utf8.RuneCountInString(s) > max
}

// validURL accepts absolute http(s) URLs and site-relative paths.
func validURL(s string) bool {
	if s == "" {
		return true
	}
	if tooLong(s, maxURLLen) {
		return false
	}
	return strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "http://") ||
		(strings.HasPrefix(s, "/") && !strings.HasPrefix(s, "//"))
}

// validatePage checks the page form and returns the first error found.
func validatePage(title, slug, metaDesc string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return "Title is required."
	}
	if tooLong(title, maxTitleLen) {
		return "Title is too long (max 300 characters)."
	}
	if tooLong(slug, maxSlugLen) {
		return "Slug is too long (max 300 characters)."
	}
	if tooLong(metaDesc, maxMetaDescLen) {
		return "Meta description is too long (max 500 characters)."
	}
	return ""
}

// validateSectionPatch checks the fields a section editor produced.
func validateSectionPatch(p sections.SectionPatch) string {
	if p.Title != nil && tooLong(*p.Title, maxTitleLen) {
		return "Title is too long (max 300 characters)."
	}
	if p.Subtitle != nil && tooLong(*p.Subtitle, maxTitleLen) {
		return "Subtitle is too long (max 300 characters)."
	}
	if p.Content != nil && tooLong(*p.Content, maxContentLen) {
		return "Content is too long (max 100,000 characters)."
	}
	if p.ImageURL != nil && !validURL(*p.ImageURL) {
		return "Image URL must start with https:// or /."
	}
	return ""
}

// validateStudent checks a tribute before it is written.
func validateStudent(st *models.StudentTribute) string {
	if st.ShortName == "" {
		return "Short name is required."
	}
	if tooLong(st.ShortName, maxShortNameLen) || tooLong(models.Deref(st.FullName), maxTitleLen) {
		return "Name is too long."
	}
	if tooLong(models.Deref(st.Quote), maxQuoteLen) || tooLong(models.Deref(st.FutureDreams), maxQuoteLen) {
		return "Quote and future dreams are limited to 1,000 characters."
	}
	if !validURL(models.Deref(st.PhotoURL)) {
		return "Photo URL must start with https:// or /."
	}
	if len(st.Traits) > maxTraits {
		return fmt.Sprintf("At most %d traits.", maxTraits)
	}
	for _, t := range st.Traits {
		if tooLong(t, maxTraitLen) {
			return "Each trait is limited to 60 characters."
		}
	}
	if tooLong(models.Deref(st.RouteSlug), maxSlugLen) {
		return "Route is too long (max 300 characters)."
	}
	return ""
}

func validateAchievement(title string) string {
	if title == "" {
		return "Achievement title is required."
	}
	if tooLong(title, maxTitleLen) {
		return "Achievement title is too long (max 300 characters)."
	}
	return ""
}

// validateCollection checks the collection form text fields.
func validateCollection(title, description string) string {
	if title == "" {
		return "Title is required."
	}
	if tooLong(title, maxTitleLen) {
		return "Title is too long (max 300 characters)."
	}
	if tooLong(description, maxDescriptionLen) {
		return "Description is too long (max 5,000 characters)."
	}
	return ""
}

func validateCaption(caption string) string {
	if tooLong(caption, maxCaptionLen) {
		return "Caption is too long (max 500 characters)."
	}
	return ""
}

func validateBranch(name, code string) string {
	name, code = strings.TrimSpace(name), strings.TrimSpace(code)
	if name == "" || code == "" {
		return "Name and code are required."
	}
	if tooLong(name, maxNameLen) {
		return "Name is too long (max 100 characters)."
	}
	if len(code) > maxCodeLen || !branchCode.MatchString(code) {
		return "Code may only contain letters, digits, dashes and underscores."
	}
	return ""
}

func validateTag(name, color string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Tag name is required."
	}
	if tooLong(name, maxNameLen) {
		return "Tag name is too long (max 100 characters)."
	}
	if !tagColor.MatchString(color) {
		return "Color must look like #3b82f6."
	}
	return ""
}

// validateSiteContent checks the site content editor before saving.
func validateSiteContent(s sitecontent.Settings) string {
	if s.SiteName == "" {
		return "Site name is required."
	}
	for i, n := range s.Navigation {
		if n.Label == "" || n.URL == "" {
			return fmt.Sprintf("Navigation row %d needs both a label and a URL.", i+1)
		}
		if !validURL(n.URL) {
			return fmt.Sprintf("Navigation row %d: URL must start with https:// or /.", i+1)
		}
	}
	c := s.Ceremony
	if c.Title == "" {
		return "Ceremony title is required."
	}
	if c.AccentColor != "" && !tagColor.MatchString(c.AccentColor) {
		return "Accent color must look like #f59e0b."
	}
	if tooLong(s.About.Body, maxContentLen) {
		return "About text is too long (max 100,000 characters)."
	}
	return ""
}

// validateComment checks a visitor comment. Over-long bodies are rejected
// here rather than truncated by the store.
func validateComment(author, body string) string {
	if strings.TrimSpace(body) == "" {
		return "Comment cannot be empty."
	}
	if tooLong(strings.TrimSpace(body), store.MaxCommentLength) {
		return fmt.Sprintf("Comment is too long (max %d characters).", store.MaxCommentLength)
	}
	if tooLong(strings.TrimSpace(author), maxAuthorLen) {
		return "Name is too long (max 80 characters)."
	}
	return ""
}

package engine

import (
	"context"
	"html/template"
	"log/slog"

	"github.com/google/uuid"

	"schoolarchives/internal/models"
	"schoolarchives/internal/sections"
)

// PlaceholderTiles is the size of the gallery empty-state grid.
const PlaceholderTiles = 8

// CheckBackSoon is shown by a student directory without students.
const CheckBackSoon = "Tributes are on their way. Check back soon!"

type sectionInput struct {
	Page    *models.CustomPage
	Section *models.PageSection
	Meta    sections.Metadata
}

type renderer func(ctx context.Context, e *Engine, in sectionInput) (template.HTML, error)

// renderers has one entry per registered section type.
var renderers = map[sections.Type]renderer{
	sections.Hero:             renderHero,
	sections.TextBlock:        renderTextBlock,
	sections.Gallery:          renderGallery,
	sections.Stats:            renderStats,
	sections.Quote:            renderQuote,
	sections.CTA:              renderCTA,
	sections.InfoCard:         renderInfoCard,
	sections.StudentDirectory: renderStudentDirectory,
}

// HasRenderer reports whether t has a renderer.
func HasRenderer(t sections.Type) bool {
	_, ok := renderers[t]
	return ok
}

type heroView struct {
	ID       uuid.UUID
	Title    string
	Subtitle string
	ImageURL string
	Meta     *sections.HeroMeta
}

// renderHero always shows a title, falling back to the page title. Without
// an image the template uses the animated gradient background.
func renderHero(_ context.Context, e *Engine, in sectionInput) (template.HTML, error) {
	title := models.Deref(in.Section.Title)
	if title == "" && in.Page != nil {
		title = in.Page.Title
	}
	return e.execute("hero", heroView{
		ID:       in.Section.ID,
		Title:    title,
		Subtitle: models.Deref(in.Section.Subtitle),
		ImageURL: models.Deref(in.Section.ImageURL),
		Meta:     in.Meta.(*sections.HeroMeta),
	})
}

type textView struct {
	ID       uuid.UUID
	Title    string
	Content  string
	ImageURL string
	Meta     *sections.TextBlockMeta
}

func renderTextBlock(_ context.Context, e *Engine, in sectionInput) (template.HTML, error) {
	return e.execute("text_block", textView{
		ID:       in.Section.ID,
		Title:    models.Deref(in.Section.Title),
		Content:  models.Deref(in.Section.Content),
		ImageURL: models.Deref(in.Section.ImageURL),
		Meta:     in.Meta.(*sections.TextBlockMeta),
	})
}

type galleryView struct {
	ID           uuid.UUID
	Title        string
	Subtitle     string
	CollectionID string
	Photos       []models.Photo
	Placeholders int
	Columns      int
}

// renderGallery always renders a grid. A missing or unknown collection, a
// failed fetch or zero photos all fall back to the placeholder tiles.
func renderGallery(ctx context.Context, e *Engine, in sectionInput) (template.HTML, error) {
	meta := in.Meta.(*sections.GalleryMeta)
	view := galleryView{
		ID:       in.Section.ID,
		Title:    models.Deref(in.Section.Title),
		Subtitle: models.Deref(in.Section.Subtitle),
		Columns:  meta.Columns.Int(),
	}

	if id, err := uuid.Parse(meta.CollectionID); err == nil && e.photos != nil {
		photos, err := e.photos.ListByCollection(ctx, id, meta.Limit.Int())
		if err != nil {
			slog.Warn("gallery photos unavailable", "section_id", in.Section.ID, "collection_id", id, "error", err)
		}
		view.Photos = photos
		view.CollectionID = id.String()
	}
	if len(view.Photos) == 0 {
		view.Placeholders = PlaceholderTiles
	}
	return e.execute("gallery", view)
}

type statsView struct {
	ID    uuid.UUID
	Title string
	Stats []sections.Stat
}

// renderStats renders nothing without stats and at most four entries.
func renderStats(_ context.Context, e *Engine, in sectionInput) (template.HTML, error) {
	visible := in.Meta.(*sections.StatsMeta).Visible()
	if len(visible) == 0 {
		return "", nil
	}
	return e.execute("stats", statsView{
		ID:    in.Section.ID,
		Title: models.Deref(in.Section.Title),
		Stats: visible,
	})
}

type quoteView struct {
	ID      uuid.UUID
	Title   string
	Content string
	Meta    *sections.QuoteMeta
}

// renderQuote shows only the heading when there is no quote text.
func renderQuote(_ context.Context, e *Engine, in sectionInput) (template.HTML, error) {
	return e.execute("quote", quoteView{
		ID:      in.Section.ID,
		Title:   models.Deref(in.Section.Title),
		Content: models.Deref(in.Section.Content),
		Meta:    in.Meta.(*sections.QuoteMeta),
	})
}

type ctaView struct {
	ID      uuid.UUID
	Title   string
	Content string
	Meta    *sections.CTAMeta
}

// renderCTA renders nothing unless both button text and url are set.
func renderCTA(_ context.Context, e *Engine, in sectionInput) (template.HTML, error) {
	meta := in.Meta.(*sections.CTAMeta)
	if !meta.Complete() {
		return "", nil
	}
	return e.execute("cta", ctaView{
		ID:      in.Section.ID,
		Title:   models.Deref(in.Section.Title),
		Content: models.Deref(in.Section.Content),
		Meta:    meta,
	})
}

type infoCardView struct {
	ID    uuid.UUID
	Title string
	Cards []sections.Card
}

// renderInfoCard renders nothing when there is neither a title nor a card.
func renderInfoCard(_ context.Context, e *Engine, in sectionInput) (template.HTML, error) {
	meta := in.Meta.(*sections.InfoCardMeta)
	title := models.Deref(in.Section.Title)
	if title == "" && len(meta.Cards) == 0 {
		return "", nil
	}
	return e.execute("info_card", infoCardView{ID: in.Section.ID, Title: title, Cards: meta.Cards})
}

type studentCard struct {
	Student *models.StudentTribute
	Traits  []string
	Link    string
}

type directoryView struct {
	ID         uuid.UUID
	Title      string
	Subtitle   string
	Students   []studentCard
	ShowTraits bool
	Empty      string
}

// renderStudentDirectory lists the tributes of the configured page, or of
// the owning page when none is configured.
func renderStudentDirectory(ctx context.Context, e *Engine, in sectionInput) (template.HTML, error) {
	meta := in.Meta.(*sections.StudentDirectoryMeta)
	view := directoryView{
		ID:         in.Section.ID,
		Title:      models.Deref(in.Section.Title),
		Subtitle:   models.Deref(in.Section.Subtitle),
		ShowTraits: meta.ShowTraits,
		Empty:      CheckBackSoon,
	}

	pageID := in.Section.PageID
	if id, err := uuid.Parse(meta.PageID); err == nil {
		pageID = id
	}

	var students []models.StudentTribute
	if e.students != nil {
		var err error
		students, err = e.students.ListByPage(ctx, pageID)
		if err != nil {
			slog.Warn("student directory unavailable", "section_id", in.Section.ID, "page_id", pageID, "error", err)
		}
	}
	for i := range students {
		st := &students[i]
		card := studentCard{Student: st, Traits: st.VisibleTraits()}
		if st.RouteSlug != nil && *st.RouteSlug != "" {
			card.Link = *st.RouteSlug
		}
		view.Students = append(view.Students, card)
	}
	return e.execute("student_directory", view)
}

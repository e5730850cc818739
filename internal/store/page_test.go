// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/google/uuid"

	"schoolarchives/internal/models"
	"schoolarchives/internal/sections"
)

func sectionIDs(t *testing.T, s *PageStore, pageID uuid.UUID) []uuid.UUID {
	t.Helper()
	secs, err := s.ListSections(context.Background(), pageID)
	if err != nil {
		t.Fatalf("ListSections: %v", err)
	}
	ids := make([]uuid.UUID, len(secs))
	for i, sec := range secs {
		if sec.SortOrder != i {
			t.Errorf("section %d has sort order %d, orders must be dense", i, sec.SortOrder)
		}
		ids[i] = sec.ID
	}
	return ids
}

func TestPageStoreCreateAndFind(t *testing.T) {
	db := testDB(t)
	s := NewPageStore(db)
	ctx := context.Background()
	b := testBranch(t, db)

	slug := "create-find-" + uuid.NewString()[:8]
	p, err := s.CreatePage(ctx, PageInput{Title: "Annual Day", Slug: slug, PageType: models.PageTypeEvent, BranchID: b.ID})
	if err != nil {
		t.Fatalf("CreatePage: %v", err)
	}
	if p.ID == uuid.Nil || p.IsPublished {
		t.Errorf("unexpected page: %+v", p)
	}

	found, err := s.FindBySlug(ctx, slug, false)
	if err != nil {
		t.Fatalf("FindBySlug: %v", err)
	}
	if found != nil {
		t.Error("unpublished page must not be found without preview")
	}

	found, err = s.FindBySlug(ctx, slug, true)
	if err != nil || found == nil {
		t.Fatalf("FindBySlug preview: %v, %v", found, err)
	}
	if found.ID != p.ID {
		t.Errorf("preview found %s, want %s", found.ID, p.ID)
	}

	missing, err := s.FindByID(ctx, uuid.New())
	if err != nil || missing != nil {
		t.Errorf("FindByID(random) = %v, %v; want nil, nil", missing, err)
	}
}

func TestPageStoreDuplicateSlug(t *testing.T) {
	db := testDB(t)
	s := NewPageStore(db)
	ctx := context.Background()
	b := testBranch(t, db)
	other := testBranch(t, db)

	slug := "dup-" + uuid.NewString()[:8]
	if _, err := s.CreatePage(ctx, PageInput{Title: "One", Slug: slug, PageType: models.PageTypeGeneric, BranchID: b.ID}); err != nil {
		t.Fatalf("first CreatePage: %v", err)
	}

	// Slugs are unique across branches, not per branch.
	_, err := s.CreatePage(ctx, PageInput{Title: "Two", Slug: slug, PageType: models.PageTypeGeneric, BranchID: other.ID})
	if !errors.Is(err, ErrDuplicateSlug) {
		t.Fatalf("err = %v, want ErrDuplicateSlug", err)
	}
	if !strings.Contains(err.Error(), "duplicate key") {
		t.Errorf("error %q should carry the database message", err)
	}
}

func TestPageStoreReservedSlug(t *testing.T) {
	db := testDB(t)
	b := testBranch(t, db)
	_, err := NewPageStore(db).CreatePage(context.Background(), PageInput{
		Title: "Memories", Slug: "memories", PageType: models.PageTypeGeneric, BranchID: b.ID,
	})
	if !errors.Is(err, ErrReservedSlug) {
		t.Errorf("err = %v, want ErrReservedSlug", err)
	}
}

func TestPageStoreSlugCollidesWithStudentRoute(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	page := testPage(t, db, models.PageTypeFarewell)

	route := "kid-" + uuid.NewString()[:8]
	if _, err := NewStudentStore(db).Create(ctx, page.ID, StudentInput{ShortName: "Kid", RouteSlug: route}); err != nil {
		t.Fatalf("create student: %v", err)
	}

	_, err := NewPageStore(db).CreatePage(ctx, PageInput{
		Title: "Clash", Slug: route, PageType: models.PageTypeGeneric, BranchID: page.BranchID,
	})
	if !errors.Is(err, ErrDuplicateSlug) {
		t.Errorf("err = %v, want ErrDuplicateSlug", err)
	}
}

func TestPageStoreUpdatePagePartial(t *testing.T) {
	db := testDB(t)
	s := NewPageStore(db)
	ctx := context.Background()
	p := testPage(t, db, models.PageTypeGeneric)

	desc := "Photos and stories"
	updated, err := s.UpdatePage(ctx, p.ID, PagePatch{MetaDescription: &desc})
	if err != nil {
		t.Fatalf("UpdatePage: %v", err)
	}
	if updated.Title != p.Title || updated.Slug != p.Slug {
		t.Error("fields not in the patch must be unchanged")
	}
	if models.Deref(updated.MetaDescription) != desc {
		t.Errorf("meta description = %v", updated.MetaDescription)
	}

	newSlug := "renamed-" + uuid.NewString()[:8]
	if _, err := s.UpdatePage(ctx, p.ID, PagePatch{Slug: &newSlug}); err != nil {
		t.Fatalf("UpdatePage slug: %v", err)
	}
	old, _ := s.FindBySlug(ctx, p.Slug, true)
	if old != nil {
		t.Error("old slug must not resolve after rename")
	}

	if _, err := s.UpdatePage(ctx, uuid.New(), PagePatch{Title: &desc}); !errors.Is(err, ErrNotFound) {
		t.Errorf("update missing page err = %v, want ErrNotFound", err)
	}
}

func TestPageStoreTogglePublish(t *testing.T) {
	db := testDB(t)
	s := NewPageStore(db)
	ctx := context.Background()
	p := testPage(t, db, models.PageTypeGeneric)

	on, err := s.TogglePublish(ctx, p.ID)
	if err != nil || !on {
		t.Fatalf("first toggle = %v, %v; want true", on, err)
	}
	found, _ := s.FindBySlug(ctx, p.Slug, false)
	if found == nil {
		t.Fatal("published page should be publicly visible")
	}
	off, err := s.TogglePublish(ctx, p.ID)
	if err != nil || off {
		t.Fatalf("second toggle = %v, %v; want false", off, err)
	}
	if _, err := s.TogglePublish(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("toggle missing page err = %v", err)
	}
}

func TestPageStoreCreateFromTemplate(t *testing.T) {
	db := testDB(t)
	s := NewPageStore(db)
	ctx := context.Background()
	b := testBranch(t, db)

	p, err := s.CreateFromTemplate(ctx, PageInput{
		Title: "Farewell", Slug: "farewell-" + uuid.NewString()[:8], PageType: models.PageTypeFarewell, BranchID: b.ID,
	}, "farewell")
	if err != nil {
		t.Fatalf("CreateFromTemplate: %v", err)
	}

	secs, err := s.ListSections(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	var got []sections.Type
	for _, sec := range secs {
		got = append(got, sections.Type(sec.SectionType))
	}
	want := []sections.Type{sections.Hero, sections.Quote, sections.Gallery, sections.Stats, sections.StudentDirectory}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("sections = %v, want %v", got, want)
	}

	// A failing template leaves nothing behind.
	slug := "bad-template-" + uuid.NewString()[:8]
	if _, err := s.CreateFromTemplate(ctx, PageInput{Title: "X", Slug: slug, PageType: models.PageTypeGeneric, BranchID: b.ID}, "nope"); err == nil {
		t.Fatal("expected unknown template error")
	}
	if p, _ := s.FindBySlug(ctx, slug, true); p != nil {
		t.Error("page must not exist after failed template creation")
	}
}

func TestPageStoreAddSectionClampsAndShifts(t *testing.T) {
	db := testDB(t)
	s := NewPageStore(db)
	ctx := context.Background()
	p := testPage(t, db, models.PageTypeEvent)

	first, err := s.AddSection(ctx, p.ID, sections.Hero, "Hero", -5)
	if err != nil {
		t.Fatalf("AddSection: %v", err)
	}
	if first.SortOrder != 0 {
		t.Errorf("negative position should clamp to 0, got %d", first.SortOrder)
	}
	last, err := s.AddSection(ctx, p.ID, sections.CTA, "CTA", 99)
	if err != nil {
		t.Fatal(err)
	}
	if last.SortOrder != 1 {
		t.Errorf("large position should clamp to count, got %d", last.SortOrder)
	}
	mid, err := s.AddSection(ctx, p.ID, sections.TextBlock, "Text", 1)
	if err != nil {
		t.Fatal(err)
	}

	ids := sectionIDs(t, s, p.ID)
	want := []uuid.UUID{first.ID, mid.ID, last.ID}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("order = %v, want %v", ids, want)
	}

	if _, err := s.AddSection(ctx, p.ID, "carousel", "", 0); err == nil {
		t.Error("expected error for unknown section type")
	}
}

func TestPageStoreDeleteSectionCompacts(t *testing.T) {
	db := testDB(t)
	s := NewPageStore(db)
	ctx := context.Background()
	p := testPage(t, db, models.PageTypeEvent)

	a, _ := s.AddSection(ctx, p.ID, sections.Hero, "A", AppendPosition)
	b, _ := s.AddSection(ctx, p.ID, sections.Quote, "B", AppendPosition)
	c, _ := s.AddSection(ctx, p.ID, sections.Stats, "C", AppendPosition)

	if err := s.DeleteSection(ctx, b.ID); err != nil {
		t.Fatalf("DeleteSection: %v", err)
	}
	ids := sectionIDs(t, s, p.ID)
	if !reflect.DeepEqual(ids, []uuid.UUID{a.ID, c.ID}) {
		t.Errorf("order after delete = %v", ids)
	}
	if err := s.DeleteSection(ctx, b.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

// TestPageStoreReorderIsTotalRewrite reorders [s1 s2 s3] to [s3 s1 s2]
// and repeats the call to check idempotence.
func TestPageStoreReorderIsTotalRewrite(t *testing.T) {
	db := testDB(t)
	s := NewPageStore(db)
	ctx := context.Background()
	p := testPage(t, db, models.PageTypeEvent)

	s1, _ := s.AddSection(ctx, p.ID, sections.Hero, "s1", AppendPosition)
	s2, _ := s.AddSection(ctx, p.ID, sections.TextBlock, "s2", AppendPosition)
	s3, _ := s.AddSection(ctx, p.ID, sections.Gallery, "s3", AppendPosition)

	order := []uuid.UUID{s3.ID, s1.ID, s2.ID}
	for i := 0; i < 2; i++ {
		if _, err := s.ReorderSections(ctx, p.ID, order, 0); err != nil {
			t.Fatalf("ReorderSections call %d: %v", i+1, err)
		}
		if ids := sectionIDs(t, s, p.ID); !reflect.DeepEqual(ids, order) {
			t.Errorf("call %d: order = %v, want %v", i+1, ids, order)
		}
	}
}

func TestPageStoreReorderRejectsMismatch(t *testing.T) {
	db := testDB(t)
	s := NewPageStore(db)
	ctx := context.Background()
	p := testPage(t, db, models.PageTypeEvent)

	a, _ := s.AddSection(ctx, p.ID, sections.Hero, "a", AppendPosition)
	b, _ := s.AddSection(ctx, p.ID, sections.Quote, "b", AppendPosition)

	for name, ids := range map[string][]uuid.UUID{
		"missing":   {a.ID},
		"duplicate": {a.ID, a.ID},
		"foreign":   {a.ID, uuid.New()},
	} {
		if _, err := s.ReorderSections(ctx, p.ID, ids, 0); !errors.Is(err, ErrOrderMismatch) {
			t.Errorf("%s: err = %v, want ErrOrderMismatch", name, err)
		}
	}
	if ids := sectionIDs(t, s, p.ID); !reflect.DeepEqual(ids, []uuid.UUID{a.ID, b.ID}) {
		t.Errorf("rejected reorder changed order: %v", ids)
	}
}

func TestPageStoreReorderOptimisticVersion(t *testing.T) {
	db := testDB(t)
	s := NewPageStore(db)
	ctx := context.Background()
	p := testPage(t, db, models.PageTypeEvent)

	a, _ := s.AddSection(ctx, p.ID, sections.Hero, "a", AppendPosition)
	b, _ := s.AddSection(ctx, p.ID, sections.Quote, "b", AppendPosition)

	loaded, _ := s.FindByID(ctx, p.ID)
	v, err := s.ReorderSections(ctx, p.ID, []uuid.UUID{b.ID, a.ID}, loaded.SectionOrderVersion)
	if err != nil {
		t.Fatalf("reorder with current version: %v", err)
	}
	if v != loaded.SectionOrderVersion+1 {
		t.Errorf("new version = %d, want %d", v, loaded.SectionOrderVersion+1)
	}

	// A second admin still holding the old version loses.
	_, err = s.ReorderSections(ctx, p.ID, []uuid.UUID{a.ID, b.ID}, loaded.SectionOrderVersion)
	if !errors.Is(err, ErrStaleOrder) {
		t.Fatalf("err = %v, want ErrStaleOrder", err)
	}
	if ids := sectionIDs(t, s, p.ID); !reflect.DeepEqual(ids, []uuid.UUID{b.ID, a.ID}) {
		t.Errorf("stale reorder must not write: %v", ids)
	}
}

// TestPageStoreUpdateSectionMergesMetadata patches {a:1} onto {b:2}.
func TestPageStoreUpdateSectionMergesMetadata(t *testing.T) {
	db := testDB(t)
	s := NewPageStore(db)
	ctx := context.Background()
	p := testPage(t, db, models.PageTypeEvent)

	sec, _ := s.AddSection(ctx, p.ID, sections.CTA, "Join", AppendPosition)
	if _, err := s.UpdateSection(ctx, sec.ID, sections.SectionPatch{Metadata: map[string]any{"b": 2}}); err != nil {
		t.Fatal(err)
	}
	updated, err := s.UpdateSection(ctx, sec.ID, sections.SectionPatch{Metadata: map[string]any{"a": 1}})
	if err != nil {
		t.Fatalf("UpdateSection: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(updated.Metadata, &got); err != nil {
		t.Fatal(err)
	}
	want := map[string]any{"a": float64(1), "b": float64(2)}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("metadata = %v, want %v", got, want)
	}
	if models.Deref(updated.Title) != "Join" {
		t.Error("title must survive a metadata-only patch")
	}

	// Same contract through the shallow merge helper.
	merged, _ := sections.MergeMetadata(json.RawMessage(`{"b":2}`), map[string]any{"a": 1})
	var viaHelper map[string]any
	json.Unmarshal(merged, &viaHelper)
	if !reflect.DeepEqual(viaHelper, got) {
		t.Errorf("helper merge %v differs from SQL merge %v", viaHelper, got)
	}
}

func TestPageStoreUpdateSectionScalars(t *testing.T) {
	db := testDB(t)
	s := NewPageStore(db)
	ctx := context.Background()
	p := testPage(t, db, models.PageTypeEvent)

	sec, _ := s.AddSection(ctx, p.ID, sections.Quote, "Words", AppendPosition)
	body := "Stay curious."
	empty := ""
	updated, err := s.UpdateSection(ctx, sec.ID, sections.SectionPatch{Content: &body, Title: &empty})
	if err != nil {
		t.Fatal(err)
	}
	if models.Deref(updated.Content) != body {
		t.Errorf("content = %v", updated.Content)
	}
	if updated.Title != nil {
		t.Error("blank title should be stored as NULL")
	}
	if _, err := s.UpdateSection(ctx, uuid.New(), sections.SectionPatch{Content: &body}); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing section err = %v", err)
	}
}

func TestPageStoreDeletePageCascades(t *testing.T) {
	db := testDB(t)
	s := NewPageStore(db)
	ctx := context.Background()
	p := testPage(t, db, models.PageTypeFarewell)

	sec, _ := s.AddSection(ctx, p.ID, sections.Hero, "Hero", AppendPosition)
	st, err := NewStudentStore(db).Create(ctx, p.ID, StudentInput{ShortName: "Ana"})
	if err != nil {
		t.Fatal(err)
	}

	if err := s.DeletePage(ctx, p.ID); err != nil {
		t.Fatalf("DeletePage: %v", err)
	}
	if got, _ := s.FindSection(ctx, sec.ID); got != nil {
		t.Error("section should be deleted with its page")
	}
	if got, _ := NewStudentStore(db).FindByID(ctx, st.ID); got != nil {
		t.Error("student should be deleted with its page")
	}
}

func TestPageStoreListAndLatest(t *testing.T) {
	db := testDB(t)
	s := NewPageStore(db)
	ctx := context.Background()
	p := testPage(t, db, models.PageTypeAssembly)

	pages, err := s.List(ctx, &p.BranchID)
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 1 || pages[0].ID != p.ID {
		t.Errorf("List(branch) = %d pages", len(pages))
	}

	latest, _ := s.LatestPublishedByType(ctx, &p.BranchID, models.PageTypeAssembly)
	if latest != nil {
		t.Error("unpublished page must not be latest published")
	}
	s.TogglePublish(ctx, p.ID)
	latest, err = s.LatestPublishedByType(ctx, &p.BranchID, models.PageTypeAssembly)
	if err != nil || latest == nil || latest.ID != p.ID {
		t.Errorf("LatestPublishedByType = %v, %v", latest, err)
	}
}

// TestSpringConcertScenario creates, fills and publishes an event page and
// reads it back by slug.
func TestSpringConcertScenario(t *testing.T) {
	db := testDB(t)
	s := NewPageStore(db)
	ctx := context.Background()
	b := testBranch(t, db)

	db.Exec("DELETE FROM custom_pages WHERE slug = 'spring-concert'")
	t.Cleanup(func() { db.Exec("DELETE FROM custom_pages WHERE slug = 'spring-concert'") })

	p, err := s.CreatePage(ctx, PageInput{Title: "Spring Concert", Slug: "spring-concert", PageType: models.PageTypeEvent, BranchID: b.ID})
	if err != nil {
		t.Fatalf("CreatePage: %v", err)
	}
	hero, err := s.AddSection(ctx, p.ID, sections.Hero, "Spring Concert", AppendPosition)
	if err != nil {
		t.Fatal(err)
	}
	stats, err := s.AddSection(ctx, p.ID, sections.Stats, "", AppendPosition)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.UpdateSection(ctx, stats.ID, sections.SectionPatch{
		Metadata: map[string]any{"stats": []sections.Stat{{Value: "4", Label: "Performances"}}},
	}); err != nil {
		t.Fatal(err)
	}
	if on, err := s.TogglePublish(ctx, p.ID); err != nil || !on {
		t.Fatalf("TogglePublish = %v, %v", on, err)
	}

	found, err := s.FindBySlug(ctx, "spring-concert", false)
	if err != nil || found == nil {
		t.Fatalf("FindBySlug = %v, %v", found, err)
	}
	if !found.IsPublished {
		t.Error("page should be published")
	}
	secs, err := s.ListSections(ctx, found.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(secs) != 2 || secs[0].ID != hero.ID || secs[1].ID != stats.ID {
		t.Fatalf("sections = %+v, want hero then stats", secs)
	}
	m, err := sections.Decode(sections.Stats, secs[1].Metadata)
	if err != nil {
		t.Fatal(err)
	}
	got := m.(*sections.StatsMeta).Stats
	if len(got) != 1 || got[0].Value != "4" || got[0].Label != "Performances" {
		t.Errorf("stats = %+v", got)
	}
}

// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"schoolarchives/internal/catalog"
	"schoolarchives/internal/models"
	"schoolarchives/internal/slug"
)

// PageStore handles custom pages and the ordered sections they own.
type PageStore struct {
	db *sql.DB
}

// NewPageStore creates a new PageStore with the given database connection.
func NewPageStore(db *sql.DB) *PageStore {
	return &PageStore{db: db}
}

// PageInput carries the fields needed to create a page.
type PageInput struct {
	Title           string
	Slug            string
	PageType        models.PageType
	BranchID        uuid.UUID
	CoverImageURL   *string
	MetaDescription *string
	IsPublished     bool
}

// PagePatch is a partial page update; nil fields are left unchanged.
// Changing the slug does not keep the old one as a redirect.
type PagePatch struct {
	Title           *string
	Slug            *string
	PageType        *models.PageType
	BranchID        *uuid.UUID
	CoverImageURL   *string
	MetaDescription *string
}

const pageColumns = `id, title, slug, page_type, branch_id, cover_image_url, is_published,
	meta_description, section_order_version, student_order_version, created_at, updated_at`

func scanPage(row rowScanner) (*models.CustomPage, error) {
	p := &models.CustomPage{}
	err := row.Scan(
		&p.ID, &p.Title, &p.Slug, &p.PageType, &p.BranchID, &p.CoverImageURL, &p.IsPublished,
		&p.MetaDescription, &p.SectionOrderVersion, &p.StudentOrderVersion, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

// checkPageSlug rejects reserved slugs and slugs already used as a
// student route. Page-to-page collisions are left to the unique index.
func checkPageSlug(ctx context.Context, q querier, s string) error {
	if slug.IsReserved(s) {
		return fmt.Errorf("%w: %q", ErrReservedSlug, s)
	}
	var taken bool
	err := q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM student_tributes WHERE route_slug = $1)`, slug.Route(s),
	).Scan(&taken)
	if err != nil {
		return fmt.Errorf("check page slug: %w", err)
	}
	if taken {
		return fmt.Errorf("%w: slug %q is already a student tribute route", ErrDuplicateSlug, s)
	}
	return nil
}

func insertPage(ctx context.Context, q querier, in PageInput) (*models.CustomPage, error) {
	in.Slug = slug.Generate(in.Slug)
	if in.Slug == "" {
		in.Slug = slug.Generate(in.Title)
	}
	if in.Slug == "" {
		return nil, fmt.Errorf("create page: empty slug")
	}
	if !in.PageType.Valid() {
		return nil, fmt.Errorf("create page: invalid page type %q", in.PageType)
	}
	if err := checkPageSlug(ctx, q, in.Slug); err != nil {
		return nil, err
	}

	p, err := scanPage(q.QueryRowContext(ctx, `
		INSERT INTO custom_pages (title, slug, page_type, branch_id, cover_image_url, meta_description, is_published)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+pageColumns,
		strings.TrimSpace(in.Title), in.Slug, in.PageType, in.BranchID,
		nullIfEmpty(in.CoverImageURL), nullIfEmpty(in.MetaDescription), in.IsPublished,
	))
	if err != nil {
		return nil, fmt.Errorf("create page: %w", mapUniqueViolation(err))
	}
	return p, nil
}

// CreatePage inserts a page with no sections. The slug is unique across
// the deployment; a taken slug yields ErrDuplicateSlug.
func (s *PageStore) CreatePage(ctx context.Context, in PageInput) (*models.CustomPage, error) {
	return insertPage(ctx, s.db, in)
}

// CreateFromTemplate inserts a page and the template's sections in one
// transaction, with sort orders 0..n-1.
func (s *PageStore) CreateFromTemplate(ctx context.Context, in PageInput, templateID string) (*models.CustomPage, error) {
	drafts, err := catalog.Instantiate(templateID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin create page: %w", err)
	}
	defer tx.Rollback()

	p, err := insertPage(ctx, tx, in)
	if err != nil {
		return nil, err
	}

	for i, d := range drafts {
		meta, err := marshalMetadata(d.Metadata)
		if err != nil {
			return nil, err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO page_sections (page_id, section_type, title, subtitle, metadata, sort_order)
			VALUES ($1, $2, $3, $4, $5::jsonb, $6)
		`, p.ID, d.Type, nullIfEmpty(&d.Title), nullIfEmpty(&d.Subtitle), meta, i)
		if err != nil {
			return nil, fmt.Errorf("create template section %s: %w", d.Type, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create page: %w", err)
	}
	return p, nil
}

// UpdatePage applies the set fields of patch. It returns ErrNotFound when
// the page does not exist.
func (s *PageStore) UpdatePage(ctx context.Context, id uuid.UUID, patch PagePatch) (*models.CustomPage, error) {
	var set setClause
	if patch.Title != nil {
		set.add("title = $%d", strings.TrimSpace(*patch.Title))
	}
	if patch.Slug != nil {
		newSlug := slug.Generate(*patch.Slug)
		if newSlug == "" {
			return nil, fmt.Errorf("update page: empty slug")
		}
		if err := checkPageSlug(ctx, s.db, newSlug); err != nil {
			return nil, err
		}
		set.add("slug = $%d", newSlug)
	}
	if patch.PageType != nil {
		if !patch.PageType.Valid() {
			return nil, fmt.Errorf("update page: invalid page type %q", *patch.PageType)
		}
		set.add("page_type = $%d", *patch.PageType)
	}
	if patch.BranchID != nil {
		set.add("branch_id = $%d", *patch.BranchID)
	}
	if patch.CoverImageURL != nil {
		set.add("cover_image_url = $%d", nullIfEmpty(patch.CoverImageURL))
	}
	if patch.MetaDescription != nil {
		set.add("meta_description = $%d", nullIfEmpty(patch.MetaDescription))
	}
	if set.empty() {
		return s.FindByID(ctx, id)
	}

	cols, args, n := set.build(id)
	p, err := scanPage(s.db.QueryRowContext(ctx,
		`UPDATE custom_pages SET `+cols+`, updated_at = NOW() WHERE id = $`+fmt.Sprint(n)+` RETURNING `+pageColumns,
		args...,
	))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update page: %w", mapUniqueViolation(err))
	}
	return p, nil
}

// TogglePublish flips is_published and returns the new state.
func (s *PageStore) TogglePublish(ctx context.Context, id uuid.UUID) (bool, error) {
	var published bool
	err := s.db.QueryRowContext(ctx, `
		UPDATE custom_pages SET is_published = NOT is_published, updated_at = NOW()
		WHERE id = $1 RETURNING is_published
	`, id).Scan(&published)
	if err == sql.ErrNoRows {
		return false, ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("toggle publish: %w", err)
	}
	return published, nil
}

// DeletePage removes a page; sections and student tributes cascade.
func (s *PageStore) DeletePage(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM custom_pages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete page: %w", err)
	}
	return nil
}

// FindByID retrieves a page regardless of publish state. Returns nil if not found.
func (s *PageStore) FindByID(ctx context.Context, id uuid.UUID) (*models.CustomPage, error) {
	p, err := scanPage(s.db.QueryRowContext(ctx,
		`SELECT `+pageColumns+` FROM custom_pages WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find page by id: %w", err)
	}
	return p, nil
}

// FindBySlug retrieves a page by slug. Unpublished pages are only
// returned when includeUnpublished is set (admin preview).
func (s *PageStore) FindBySlug(ctx context.Context, pageSlug string, includeUnpublished bool) (*models.CustomPage, error) {
	p, err := scanPage(s.db.QueryRowContext(ctx,
		`SELECT `+pageColumns+` FROM custom_pages WHERE slug = $1 AND (is_published OR $2)`,
		pageSlug, includeUnpublished))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find page by slug: %w", err)
	}
	return p, nil
}

// List returns pages newest first, optionally limited to one branch.
func (s *PageStore) List(ctx context.Context, branchID *uuid.UUID) ([]models.CustomPage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+pageColumns+` FROM custom_pages
		WHERE ($1::uuid IS NULL OR branch_id = $1)
		ORDER BY created_at DESC
	`, branchID)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	defer rows.Close()

	var pages []models.CustomPage
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		pages = append(pages, *p)
	}
	return pages, rows.Err()
}

// LatestPublishedByType returns the newest published page of a type for a
// branch, or any branch when branchID is nil. Returns nil if none.
func (s *PageStore) LatestPublishedByType(ctx context.Context, branchID *uuid.UUID, pt models.PageType) (*models.CustomPage, error) {
	p, err := scanPage(s.db.QueryRowContext(ctx, `
		SELECT `+pageColumns+` FROM custom_pages
		WHERE page_type = $1 AND is_published AND ($2::uuid IS NULL OR branch_id = $2)
		ORDER BY created_at DESC
		LIMIT 1
	`, pt, branchID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest published page: %w", err)
	}
	return p, nil
}

// Count returns the number of pages.
func (s *PageStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM custom_pages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count pages: %w", err)
	}
	return n, nil
}

// lockPage takes a row lock on the page and returns its current ordering
// versions. Child inserts, deletes and reorders serialize on this lock.
func lockPage(ctx context.Context, tx *sql.Tx, pageID uuid.UUID) (sectionVersion, studentVersion int, err error) {
	err = tx.QueryRowContext(ctx, `
		SELECT section_order_version, student_order_version
		FROM custom_pages WHERE id = $1 FOR UPDATE
	`, pageID).Scan(&sectionVersion, &studentVersion)
	if err == sql.ErrNoRows {
		return 0, 0, ErrNotFound
	}
	if err != nil {
		return 0, 0, fmt.Errorf("lock page: %w", err)
	}
	return sectionVersion, studentVersion, nil
}

// sameIDSet reports whether ordered is a permutation of current.
func sameIDSet(current, ordered []uuid.UUID) bool {
	if len(current) != len(ordered) {
		return false
	}
	want := make(map[uuid.UUID]bool, len(current))
	for _, id := range current {
		want[id] = true
	}
	for _, id := range ordered {
		if !want[id] {
			return false
		}
		delete(want, id)
	}
	return len(want) == 0
}

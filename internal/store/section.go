// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"

	"github.com/google/uuid"

	"schoolarchives/internal/models"
	"schoolarchives/internal/sections"
)

// AppendPosition asks AddSection to place the section last.
const AppendPosition = math.MaxInt32

const sectionColumns = `id, page_id, section_type, title, subtitle, content, image_url,
	metadata, sort_order, created_at, updated_at`

func scanSection(row rowScanner) (*models.PageSection, error) {
	sec := &models.PageSection{}
	var meta []byte
	err := row.Scan(
		&sec.ID, &sec.PageID, &sec.SectionType, &sec.Title, &sec.Subtitle, &sec.Content,
		&sec.ImageURL, &meta, &sec.SortOrder, &sec.CreatedAt, &sec.UpdatedAt,
	)
	sec.Metadata = json.RawMessage(meta)
	return sec, err
}

func marshalMetadata(m map[string]any) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshal section metadata: %w", err)
	}
	return string(b), nil
}

// AddSection inserts a section at sortOrder, clamped to [0, count].
// Sections at or after that position move down by one so orders stay
// dense. Metadata starts empty; renderers supply defaults.
func (s *PageStore) AddSection(ctx context.Context, pageID uuid.UUID, typ sections.Type, title string, sortOrder int) (*models.PageSection, error) {
	if !typ.Valid() {
		return nil, fmt.Errorf("add section: unknown section type %q", typ)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin add section: %w", err)
	}
	defer tx.Rollback()

	if _, _, err := lockPage(ctx, tx, pageID); err != nil {
		return nil, err
	}

	var count int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM page_sections WHERE page_id = $1`, pageID,
	).Scan(&count); err != nil {
		return nil, fmt.Errorf("count sections: %w", err)
	}
	sortOrder = max(0, min(sortOrder, count))

	if _, err := tx.ExecContext(ctx, `
		UPDATE page_sections SET sort_order = sort_order + 1
		WHERE page_id = $1 AND sort_order >= $2
	`, pageID, sortOrder); err != nil {
		return nil, fmt.Errorf("shift sections: %w", err)
	}

	sec, err := scanSection(tx.QueryRowContext(ctx, `
		INSERT INTO page_sections (page_id, section_type, title, sort_order)
		VALUES ($1, $2, $3, $4)
		RETURNING `+sectionColumns,
		pageID, typ, nullIfEmpty(&title), sortOrder,
	))
	if err != nil {
		return nil, fmt.Errorf("insert section: %w", err)
	}

	if err := bumpSectionVersion(ctx, tx, pageID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit add section: %w", err)
	}
	return sec, nil
}

// DeleteSection removes a section and closes the gap it leaves.
func (s *PageStore) DeleteSection(ctx context.Context, id uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete section: %w", err)
	}
	defer tx.Rollback()

	var pageID uuid.UUID
	err = tx.QueryRowContext(ctx, `SELECT page_id FROM page_sections WHERE id = $1`, id).Scan(&pageID)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("find section page: %w", err)
	}
	if _, _, err := lockPage(ctx, tx, pageID); err != nil {
		return err
	}

	// Re-read under the page lock so a concurrent reorder cannot move it.
	var sortOrder int
	err = tx.QueryRowContext(ctx,
		`DELETE FROM page_sections WHERE id = $1 RETURNING sort_order`, id,
	).Scan(&sortOrder)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete section: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE page_sections SET sort_order = sort_order - 1
		WHERE page_id = $1 AND sort_order > $2
	`, pageID, sortOrder); err != nil {
		return fmt.Errorf("compact sections: %w", err)
	}

	if err := bumpSectionVersion(ctx, tx, pageID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete section: %w", err)
	}
	return nil
}

// ReorderSections rewrites every section's sort order to its index in
// orderedIDs. The list must be exactly the page's sections. When
// expectedVersion is non-zero and the page's ordering version differs,
// nothing is written and ErrStaleOrder is returned. A zero version means
// last write wins. It returns the new ordering version.
func (s *PageStore) ReorderSections(ctx context.Context, pageID uuid.UUID, orderedIDs []uuid.UUID, expectedVersion int) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin reorder sections: %w", err)
	}
	defer tx.Rollback()

	version, _, err := lockPage(ctx, tx, pageID)
	if err != nil {
		return 0, err
	}
	if expectedVersion != 0 && expectedVersion != version {
		return 0, fmt.Errorf("reorder sections: %w (have %d, page at %d)", ErrStaleOrder, expectedVersion, version)
	}

	current, err := childIDs(ctx, tx, `SELECT id FROM page_sections WHERE page_id = $1`, pageID)
	if err != nil {
		return 0, fmt.Errorf("reorder sections: %w", err)
	}
	if !sameIDSet(current, orderedIDs) {
		return 0, fmt.Errorf("reorder sections: %w", ErrOrderMismatch)
	}

	for i, id := range orderedIDs {
		if _, err := tx.ExecContext(ctx,
			`UPDATE page_sections SET sort_order = $1, updated_at = NOW() WHERE id = $2`, i, id,
		); err != nil {
			return 0, fmt.Errorf("reorder section %s: %w", id, err)
		}
	}

	if err := bumpSectionVersion(ctx, tx, pageID); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit reorder sections: %w", err)
	}
	return version + 1, nil
}

// UpdateSection applies the set scalars of patch and shallow-merges its
// metadata into the stored object. Keys not in the patch are preserved.
func (s *PageStore) UpdateSection(ctx context.Context, id uuid.UUID, patch sections.SectionPatch) (*models.PageSection, error) {
	var set setClause
	if patch.Title != nil {
		set.add("title = $%d", nullIfEmpty(patch.Title))
	}
	if patch.Subtitle != nil {
		set.add("subtitle = $%d", nullIfEmpty(patch.Subtitle))
	}
	if patch.Content != nil {
		set.add("content = $%d", nullIfEmpty(patch.Content))
	}
	if patch.ImageURL != nil {
		set.add("image_url = $%d", nullIfEmpty(patch.ImageURL))
	}
	if len(patch.Metadata) > 0 {
		meta, err := marshalMetadata(patch.Metadata)
		if err != nil {
			return nil, err
		}
		set.add("metadata = metadata || $%d::jsonb", meta)
	}
	if set.empty() {
		return s.FindSection(ctx, id)
	}

	cols, args, n := set.build(id)
	sec, err := scanSection(s.db.QueryRowContext(ctx,
		`UPDATE page_sections SET `+cols+`, updated_at = NOW() WHERE id = $`+fmt.Sprint(n)+` RETURNING `+sectionColumns,
		args...,
	))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update section: %w", err)
	}
	return sec, nil
}

// FindSection retrieves one section. Returns nil if not found.
func (s *PageStore) FindSection(ctx context.Context, id uuid.UUID) (*models.PageSection, error) {
	sec, err := scanSection(s.db.QueryRowContext(ctx,
		`SELECT `+sectionColumns+` FROM page_sections WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find section: %w", err)
	}
	return sec, nil
}

// ListSections returns a page's sections in sort order.
func (s *PageStore) ListSections(ctx context.Context, pageID uuid.UUID) ([]models.PageSection, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sectionColumns+` FROM page_sections
		WHERE page_id = $1
		ORDER BY sort_order
	`, pageID)
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	defer rows.Close()

	var out []models.PageSection
	for rows.Next() {
		sec, err := scanSection(rows)
		if err != nil {
			return nil, fmt.Errorf("scan section: %w", err)
		}
		out = append(out, *sec)
	}
	return out, rows.Err()
}

func bumpSectionVersion(ctx context.Context, tx *sql.Tx, pageID uuid.UUID) error {
	if _, err := tx.ExecContext(ctx, `
		UPDATE custom_pages SET section_order_version = section_order_version + 1, updated_at = NOW()
		WHERE id = $1
	`, pageID); err != nil {
		return fmt.Errorf("bump section version: %w", err)
	}
	return nil
}

func childIDs(ctx context.Context, q querier, query string, parentID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := q.QueryContext(ctx, query, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

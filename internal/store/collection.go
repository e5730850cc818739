// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"schoolarchives/internal/models"
)

// CollectionStore handles photo collections and their tag links.
type CollectionStore struct {
	db *sql.DB
}

// NewCollectionStore creates a new CollectionStore with the given database connection.
func NewCollectionStore(db *sql.DB) *CollectionStore {
	return &CollectionStore{db: db}
}

// CollectionInput carries the editable fields of a collection.
type CollectionInput struct {
	Title         string
	Description   *string
	CoverImageURL *string
	EventDate     *time.Time
	BranchID      uuid.UUID
	IsFeatured    bool
}

// CollectionFilter narrows List. Zero values match everything.
type CollectionFilter struct {
	BranchID     *uuid.UUID
	TagID        *uuid.UUID
	FeaturedOnly bool
	Limit        int
}

const collectionColumns = `c.id, c.title, c.description, c.cover_image_url, c.event_date, c.branch_id,
	c.photo_count, c.is_featured, c.created_at, c.updated_at`

func scanCollection(row rowScanner) (*models.Collection, error) {
	c := &models.Collection{}
	err := row.Scan(
		&c.ID, &c.Title, &c.Description, &c.CoverImageURL, &c.EventDate, &c.BranchID,
		&c.PhotoCount, &c.IsFeatured, &c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}

// List returns collections matching the filter, newest event first, with
// their tags loaded.
func (s *CollectionStore) List(ctx context.Context, f CollectionFilter) ([]models.Collection, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 200
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+collectionColumns+` FROM collections c
		WHERE ($1::uuid IS NULL OR c.branch_id = $1)
		  AND ($2::uuid IS NULL OR EXISTS (
		        SELECT 1 FROM collection_tags ct WHERE ct.collection_id = c.id AND ct.tag_id = $2))
		  AND (NOT $3 OR c.is_featured)
		ORDER BY c.event_date DESC NULLS LAST, c.created_at DESC
		LIMIT $4
	`, f.BranchID, f.TagID, f.FeaturedOnly, limit)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()

	var out []models.Collection
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, fmt.Errorf("scan collection: %w", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := s.attachTags(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// attachTags loads tags for all given collections in one query.
func (s *CollectionStore) attachTags(ctx context.Context, cols []models.Collection) error {
	if len(cols) == 0 {
		return nil
	}
	index := make(map[uuid.UUID]int, len(cols))
	ids := make([]string, len(cols))
	for i, c := range cols {
		index[c.ID] = i
		ids[i] = c.ID.String()
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT ct.collection_id, t.id, t.name, t.color, t.created_at
		FROM collection_tags ct JOIN tags t ON t.id = ct.tag_id
		WHERE ct.collection_id = ANY($1::uuid[])
		ORDER BY t.name
	`, ids)
	if err != nil {
		return fmt.Errorf("load collection tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var cid uuid.UUID
		var t models.Tag
		if err := rows.Scan(&cid, &t.ID, &t.Name, &t.Color, &t.CreatedAt); err != nil {
			return fmt.Errorf("scan collection tag: %w", err)
		}
		if i, ok := index[cid]; ok {
			cols[i].Tags = append(cols[i].Tags, t)
		}
	}
	return rows.Err()
}

// FindByID retrieves a collection with its tags. Returns nil if not found.
func (s *CollectionStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Collection, error) {
	c, err := scanCollection(s.db.QueryRowContext(ctx,
		`SELECT `+collectionColumns+` FROM collections c WHERE c.id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find collection: %w", err)
	}
	one := []models.Collection{*c}
	if err := s.attachTags(ctx, one); err != nil {
		return nil, err
	}
	return &one[0], nil
}

// Create inserts a collection. Tags are attached separately with SetTags
// once the collection exists.
func (s *CollectionStore) Create(ctx context.Context, in CollectionInput) (*models.Collection, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("create collection: title is required")
	}
	c, err := scanCollection(s.db.QueryRowContext(ctx, `
		INSERT INTO collections AS c (title, description, cover_image_url, event_date, branch_id, is_featured)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+collectionColumns,
		strings.TrimSpace(in.Title), nullIfEmpty(in.Description), nullIfEmpty(in.CoverImageURL),
		in.EventDate, in.BranchID, in.IsFeatured,
	))
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	return c, nil
}

// Update replaces a collection's editable fields.
func (s *CollectionStore) Update(ctx context.Context, id uuid.UUID, in CollectionInput) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE collections SET title = $1, description = $2, cover_image_url = $3,
			event_date = $4, branch_id = $5, is_featured = $6, updated_at = NOW()
		WHERE id = $7
	`, strings.TrimSpace(in.Title), nullIfEmpty(in.Description), nullIfEmpty(in.CoverImageURL),
		in.EventDate, in.BranchID, in.IsFeatured, id)
	if err != nil {
		return fmt.Errorf("update collection: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetCover sets the cover image only when the collection has none yet.
func (s *CollectionStore) SetCover(ctx context.Context, id uuid.UUID, url string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE collections SET cover_image_url = $1, updated_at = NOW()
		WHERE id = $2 AND (cover_image_url IS NULL OR cover_image_url = '')
	`, url, id)
	if err != nil {
		return fmt.Errorf("set collection cover: %w", err)
	}
	return nil
}

// SetTags replaces the collection's tag links.
func (s *CollectionStore) SetTags(ctx context.Context, id uuid.UUID, tagIDs []uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin set tags: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM collection_tags WHERE collection_id = $1`, id); err != nil {
		return fmt.Errorf("clear collection tags: %w", err)
	}
	for _, tagID := range tagIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO collection_tags (collection_id, tag_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, id, tagID); err != nil {
			return fmt.Errorf("attach tag %s: %w", tagID, err)
		}
	}
	return tx.Commit()
}

// Delete removes a collection; photos and tag links cascade.
func (s *CollectionStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM collections WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	return nil
}

// EventGroups returns every tag that has collections, each with its
// collections, for the events page. Collections sharing a tag form one
// event category.
func (s *CollectionStore) EventGroups(ctx context.Context, branchID *uuid.UUID) ([]models.EventGroup, error) {
	cols, err := s.List(ctx, CollectionFilter{BranchID: branchID})
	if err != nil {
		return nil, err
	}
	var groups []models.EventGroup
	index := map[uuid.UUID]int{}
	for _, c := range cols {
		for _, t := range c.Tags {
			i, ok := index[t.ID]
			if !ok {
				i = len(groups)
				index[t.ID] = i
				groups = append(groups, models.EventGroup{Tag: t})
			}
			groups[i].Collections = append(groups[i].Collections, c)
		}
	}
	return groups, nil
}

// Count returns the number of collections.
func (s *CollectionStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM collections`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count collections: %w", err)
	}
	return n, nil
}

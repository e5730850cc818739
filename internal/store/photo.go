// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"schoolarchives/internal/models"
)

// PhotoStore handles photos. It keeps collections.photo_count in step
// with inserts and deletes inside the same transaction.
type PhotoStore struct {
	db *sql.DB
}

// NewPhotoStore creates a new PhotoStore with the given database connection.
func NewPhotoStore(db *sql.DB) *PhotoStore {
	return &PhotoStore{db: db}
}

// PhotoInput carries the fields for a new photo.
type PhotoInput struct {
	ImageURL string
	ThumbURL *string
	Caption  *string
}

const photoColumns = `id, image_url, thumb_url, caption, collection_id, sort_order, created_at`

func scanPhoto(row rowScanner) (*models.Photo, error) {
	p := &models.Photo{}
	err := row.Scan(&p.ID, &p.ImageURL, &p.ThumbURL, &p.Caption, &p.CollectionID, &p.SortOrder, &p.CreatedAt)
	return p, err
}

// Add appends a photo to a collection and increments its photo count.
func (s *PhotoStore) Add(ctx context.Context, collectionID uuid.UUID, in PhotoInput) (*models.Photo, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin add photo: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE collections SET photo_count = photo_count + 1, updated_at = NOW() WHERE id = $1
	`, collectionID)
	if err != nil {
		return nil, fmt.Errorf("increment photo count: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}

	p, err := scanPhoto(tx.QueryRowContext(ctx, `
		INSERT INTO photos (image_url, thumb_url, caption, collection_id, sort_order)
		VALUES ($1, $2, $3, $4,
		        (SELECT COALESCE(MAX(sort_order) + 1, 0) FROM photos WHERE collection_id = $4))
		RETURNING `+photoColumns,
		in.ImageURL, nullIfEmpty(in.ThumbURL), nullIfEmpty(in.Caption), collectionID,
	))
	if err != nil {
		return nil, fmt.Errorf("insert photo: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit add photo: %w", err)
	}
	return p, nil
}

// Delete removes a photo and decrements its collection's count. It
// returns the deleted row so callers can remove the stored files.
func (s *PhotoStore) Delete(ctx context.Context, id uuid.UUID) (*models.Photo, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin delete photo: %w", err)
	}
	defer tx.Rollback()

	p, err := scanPhoto(tx.QueryRowContext(ctx, `DELETE FROM photos WHERE id = $1 RETURNING `+photoColumns, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("delete photo: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE collections SET photo_count = GREATEST(photo_count - 1, 0), updated_at = NOW() WHERE id = $1
	`, p.CollectionID); err != nil {
		return nil, fmt.Errorf("decrement photo count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit delete photo: %w", err)
	}
	return p, nil
}

// FindByID retrieves a photo. Returns nil if not found.
func (s *PhotoStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Photo, error) {
	p, err := scanPhoto(s.db.QueryRowContext(ctx, `SELECT `+photoColumns+` FROM photos WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find photo: %w", err)
	}
	return p, nil
}

// ListByCollection returns up to limit photos in sort order. A limit of
// zero or less returns all photos.
func (s *PhotoStore) ListByCollection(ctx context.Context, collectionID uuid.UUID, limit int) ([]models.Photo, error) {
	var lim any
	if limit > 0 {
		lim = limit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+photoColumns+` FROM photos
		WHERE collection_id = $1
		ORDER BY sort_order, created_at
		LIMIT $2
	`, collectionID, lim)
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	defer rows.Close()

	var out []models.Photo
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("scan photo: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// UpdateCaption changes a photo's caption.
func (s *PhotoStore) UpdateCaption(ctx context.Context, id uuid.UUID, caption *string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE photos SET caption = $1 WHERE id = $2`, nullIfEmpty(caption), id)
	if err != nil {
		return fmt.Errorf("update photo caption: %w", err)
	}
	return nil
}

// Reorder rewrites photo sort orders to their index in orderedIDs. Photos
// have no uniqueness constraint on order, so ids outside the collection
// are ignored.
func (s *PhotoStore) Reorder(ctx context.Context, collectionID uuid.UUID, orderedIDs []uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reorder photos: %w", err)
	}
	defer tx.Rollback()

	for i, id := range orderedIDs {
		if _, err := tx.ExecContext(ctx,
			`UPDATE photos SET sort_order = $1 WHERE id = $2 AND collection_id = $3`, i, id, collectionID,
		); err != nil {
			return fmt.Errorf("reorder photo %s: %w", id, err)
		}
	}
	return tx.Commit()
}

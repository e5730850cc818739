// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"fmt"

	"schoolarchives/internal/models"
)

// SiteContentStore manages the flat key/value site_content table.
// Values are not validated here; the sitecontent package parses them.
type SiteContentStore struct {
	db *sql.DB
}

// NewSiteContentStore returns a new SiteContentStore backed by the given database.
func NewSiteContentStore(db *sql.DB) *SiteContentStore {
	return &SiteContentStore{db: db}
}

// All returns every row keyed by content_key.
func (s *SiteContentStore) All(ctx context.Context) (map[string]models.SiteContent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT content_key, content_type, content_value, updated_at
		FROM site_content ORDER BY content_key
	`)
	if err != nil {
		return nil, fmt.Errorf("list site content: %w", err)
	}
	defer rows.Close()

	out := make(map[string]models.SiteContent)
	for rows.Next() {
		var c models.SiteContent
		if err := rows.Scan(&c.Key, &c.ContentType, &c.ContentValue, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan site content: %w", err)
		}
		out[c.Key] = c
	}
	return out, rows.Err()
}

// SetMany upserts the given rows in a single transaction.
func (s *SiteContentStore) SetMany(ctx context.Context, items []models.SiteContent) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin site content: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO site_content (content_key, content_type, content_value, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (content_key)
		DO UPDATE SET content_type = EXCLUDED.content_type,
		              content_value = EXCLUDED.content_value,
		              updated_at = EXCLUDED.updated_at`)
	if err != nil {
		return fmt.Errorf("prepare site content: %w", err)
	}
	defer stmt.Close()

	for _, it := range items {
		if _, err := stmt.ExecContext(ctx, it.Key, it.ContentType, it.ContentValue); err != nil {
			return fmt.Errorf("set site content %q: %w", it.Key, err)
		}
	}
	return tx.Commit()
}

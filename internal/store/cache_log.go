// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// cache_log.go records page cache invalidations for audit and debugging.
// Each entry captures which entity changed, what happened to it and when;
// the dashboard lists the latest ones and startup prunes old rows.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// CacheLogEntry is one page cache invalidation caused by an admin write.
type CacheLogEntry struct {
	ID            int64
	EntityType    string
	EntityID      uuid.UUID
	Action        string
	InvalidatedAt time.Time
}

// CacheLogStore keeps the invalidation audit trail shown on the dashboard.
type CacheLogStore struct {
	db *sql.DB
}

// NewCacheLogStore creates a new CacheLogStore.
func NewCacheLogStore(db *sql.DB) *CacheLogStore {
	return &CacheLogStore{db: db}
}

// Log appends an entry. The audit trail is best-effort: a failed insert is
// logged and the admin write that caused it still succeeds.
func (s *CacheLogStore) Log(ctx context.Context, entityType string, entityID uuid.UUID, action string) {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO cache_invalidation_log (entity_type, entity_id, action) VALUES ($1, $2, $3)`,
		entityType, entityID, action,
	); err != nil {
		slog.Warn("cache log insert failed", "entity_type", entityType, "entity_id", entityID, "action", action, "error", err)
	}
}

// RecentEntries returns up to limit entries, newest first.
func (s *CacheLogStore) RecentEntries(ctx context.Context, limit int) ([]CacheLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entity_type, entity_id, action, invalidated_at
		FROM cache_invalidation_log
		ORDER BY invalidated_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list cache log: %w", err)
	}
	defer rows.Close()

	var out []CacheLogEntry
	for rows.Next() {
		var e CacheLogEntry
		if err := rows.Scan(&e.ID, &e.EntityType, &e.EntityID, &e.Action, &e.InvalidatedAt); err != nil {
			return nil, fmt.Errorf("scan cache log: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Prune deletes entries older than before and reports how many went.
func (s *CacheLogStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cache_invalidation_log WHERE invalidated_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("prune cache log: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune cache log: %w", err)
	}
	return n, nil
}

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

	"schoolarchives/internal/models"
)

// SocialStore handles anonymous photo reactions and comments.
type SocialStore struct {
	db *sql.DB
}

// NewSocialStore creates a new SocialStore with the given database connection.
func NewSocialStore(db *sql.DB) *SocialStore {
	return &SocialStore{db: db}
}

// MaxCommentLength caps comment bodies.
const MaxCommentLength = 500

// ToggleReaction removes the visitor's reaction of this type if present,
// otherwise adds it. It returns whether the reaction is now on.
func (s *SocialStore) ToggleReaction(ctx context.Context, photoID, visitorID uuid.UUID, rt models.ReactionType) (bool, error) {
	if !rt.Valid() {
		return false, fmt.Errorf("toggle reaction: invalid type %q", rt)
	}
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM photo_reactions
		WHERE photo_id = $1 AND visitor_id = $2 AND reaction_type = $3
	`, photoID, visitorID, rt)
	if err != nil {
		return false, fmt.Errorf("toggle reaction off: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return false, nil
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO photo_reactions (photo_id, visitor_id, reaction_type)
		VALUES ($1, $2, $3)
		ON CONFLICT (photo_id, visitor_id, reaction_type) DO NOTHING
	`, photoID, visitorID, rt)
	if err != nil {
		return false, fmt.Errorf("toggle reaction on: %w", err)
	}
	return true, nil
}

// ReactionCounts returns per-type counts for a photo.
func (s *SocialStore) ReactionCounts(ctx context.Context, photoID uuid.UUID) (models.ReactionCounts, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT reaction_type, COUNT(*) FROM photo_reactions
		WHERE photo_id = $1 GROUP BY reaction_type
	`, photoID)
	if err != nil {
		return nil, fmt.Errorf("count reactions: %w", err)
	}
	defer rows.Close()

	counts := models.ReactionCounts{}
	for rows.Next() {
		var rt models.ReactionType
		var n int
		if err := rows.Scan(&rt, &n); err != nil {
			return nil, fmt.Errorf("scan reaction count: %w", err)
		}
		counts[rt] = n
	}
	return counts, rows.Err()
}

// AddComment appends a comment. Author name falls back to "Guest".
func (s *SocialStore) AddComment(ctx context.Context, photoID, visitorID uuid.UUID, author, body string) (*models.PhotoComment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("add comment: body is required")
	}
	if len([]rune(body)) > MaxCommentLength {
		body = string([]rune(body)[:MaxCommentLength])
	}
	if author = strings.TrimSpace(author); author == "" {
		author = "Guest"
	}

	c := &models.PhotoComment{}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO photo_comments (photo_id, visitor_id, author_name, body)
		VALUES ($1, $2, $3, $4)
		RETURNING id, photo_id, visitor_id, author_name, body, created_at
	`, photoID, visitorID, author, body).Scan(
		&c.ID, &c.PhotoID, &c.VisitorID, &c.AuthorName, &c.Body, &c.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("add comment: %w", err)
	}
	return c, nil
}

// DeleteComment removes a comment only when visitorID wrote it. It
// returns the deleted comment, or nil when nothing matched.
func (s *SocialStore) DeleteComment(ctx context.Context, id, visitorID uuid.UUID) (*models.PhotoComment, error) {
	c := &models.PhotoComment{}
	err := s.db.QueryRowContext(ctx, `
		DELETE FROM photo_comments WHERE id = $1 AND visitor_id = $2
		RETURNING id, photo_id, visitor_id, author_name, body, created_at
	`, id, visitorID).Scan(&c.ID, &c.PhotoID, &c.VisitorID, &c.AuthorName, &c.Body, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("delete comment: %w", err)
	}
	return c, nil
}

// ListComments returns a photo's comments oldest first.
func (s *SocialStore) ListComments(ctx context.Context, photoID uuid.UUID) ([]models.PhotoComment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, photo_id, visitor_id, author_name, body, created_at
		FROM photo_comments WHERE photo_id = $1
		ORDER BY created_at, id
	`, photoID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	var out []models.PhotoComment
	for rows.Next() {
		var c models.PhotoComment
		if err := rows.Scan(&c.ID, &c.PhotoID, &c.VisitorID, &c.AuthorName, &c.Body, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

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
	"github.com/jackc/pgx/v5/pgtype"

	"schoolarchives/internal/models"
	"schoolarchives/internal/slug"
)

// StudentStore handles student tributes on farewell pages and their achievements.
type StudentStore struct {
	db      *sql.DB
	typeMap *pgtype.Map
}

// NewStudentStore creates a new StudentStore with the given database connection.
func NewStudentStore(db *sql.DB) *StudentStore {
	return &StudentStore{db: db, typeMap: pgtype.NewMap()}
}

// StudentInput carries the fields for a new tribute. RouteSlug may be
// empty, a bare segment or a "/"-prefixed path.
type StudentInput struct {
	ShortName    string
	FullName     *string
	PhotoURL     *string
	Quote        *string
	FutureDreams *string
	ClassLabel   *string
	Traits       []string
	RouteSlug    string
	Theme        models.Theme
}

// StudentPatch is a partial tribute update; nil fields are left unchanged.
// A RouteSlug pointing at "" clears the route.
type StudentPatch struct {
	ShortName    *string
	FullName     *string
	PhotoURL     *string
	Quote        *string
	FutureDreams *string
	ClassLabel   *string
	Traits       []string
	SetTraits    bool
	RouteSlug    *string
	Theme        *models.Theme
}

const studentColumns = `id, page_id, short_name, full_name, photo_url, quote, future_dreams,
	class_label, traits, route_slug, theme, sort_order, created_at, updated_at`

func (s *StudentStore) scanStudent(row rowScanner) (*models.StudentTribute, error) {
	st := &models.StudentTribute{}
	err := row.Scan(
		&st.ID, &st.PageID, &st.ShortName, &st.FullName, &st.PhotoURL, &st.Quote, &st.FutureDreams,
		&st.ClassLabel, s.typeMap.SQLScanner(&st.Traits), &st.RouteSlug, &st.Theme, &st.SortOrder,
		&st.CreatedAt, &st.UpdatedAt,
	)
	if st.Traits == nil {
		st.Traits = []string{}
	}
	return st, err
}

// cleanTraits trims traits and drops blanks.
func cleanTraits(in []string) []string {
	out := make([]string, 0, len(in))
	for _, t := range in {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// checkRouteSlug normalises a route slug and rejects reserved values and
// values already used by a custom page. Student-to-student collisions
// are caught by the unique index.
func checkRouteSlug(ctx context.Context, q querier, raw string) (*string, error) {
	route := slug.Route(raw)
	if route == "" {
		return nil, nil
	}
	if slug.IsReserved(route) {
		return nil, fmt.Errorf("%w: %q", ErrReservedSlug, route)
	}
	var taken bool
	err := q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM custom_pages WHERE slug = $1)`, slug.Segment(route),
	).Scan(&taken)
	if err != nil {
		return nil, fmt.Errorf("check route slug: %w", err)
	}
	if taken {
		return nil, fmt.Errorf("%w: route %q is already a page slug", ErrDuplicateSlug, route)
	}
	return &route, nil
}

// Create appends a tribute to the end of the page's student list.
func (s *StudentStore) Create(ctx context.Context, pageID uuid.UUID, in StudentInput) (*models.StudentTribute, error) {
	if strings.TrimSpace(in.ShortName) == "" {
		return nil, fmt.Errorf("create student: short name is required")
	}
	if in.Theme == "" {
		in.Theme = models.ThemeClassic
	}
	if !in.Theme.Valid() {
		return nil, fmt.Errorf("create student: invalid theme %q", in.Theme)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin create student: %w", err)
	}
	defer tx.Rollback()

	if _, _, err := lockPage(ctx, tx, pageID); err != nil {
		return nil, err
	}
	route, err := checkRouteSlug(ctx, tx, in.RouteSlug)
	if err != nil {
		return nil, err
	}

	st, err := s.scanStudent(tx.QueryRowContext(ctx, `
		INSERT INTO student_tributes (page_id, short_name, full_name, photo_url, quote, future_dreams,
		                              class_label, traits, route_slug, theme, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
		        (SELECT COALESCE(MAX(sort_order) + 1, 0) FROM student_tributes WHERE page_id = $1))
		RETURNING `+studentColumns,
		pageID, strings.TrimSpace(in.ShortName), nullIfEmpty(in.FullName), nullIfEmpty(in.PhotoURL),
		nullIfEmpty(in.Quote), nullIfEmpty(in.FutureDreams), nullIfEmpty(in.ClassLabel),
		cleanTraits(in.Traits), route, in.Theme,
	))
	if err != nil {
		return nil, fmt.Errorf("create student: %w", mapUniqueViolation(err))
	}

	if err := bumpStudentVersion(ctx, tx, pageID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create student: %w", err)
	}
	return st, nil
}

// Update applies the set fields of patch.
func (s *StudentStore) Update(ctx context.Context, id uuid.UUID, patch StudentPatch) (*models.StudentTribute, error) {
	var set setClause
	if patch.ShortName != nil {
		name := strings.TrimSpace(*patch.ShortName)
		if name == "" {
			return nil, fmt.Errorf("update student: short name is required")
		}
		set.add("short_name = $%d", name)
	}
	if patch.FullName != nil {
		set.add("full_name = $%d", nullIfEmpty(patch.FullName))
	}
	if patch.PhotoURL != nil {
		set.add("photo_url = $%d", nullIfEmpty(patch.PhotoURL))
	}
	if patch.Quote != nil {
		set.add("quote = $%d", nullIfEmpty(patch.Quote))
	}
	if patch.FutureDreams != nil {
		set.add("future_dreams = $%d", nullIfEmpty(patch.FutureDreams))
	}
	if patch.ClassLabel != nil {
		set.add("class_label = $%d", nullIfEmpty(patch.ClassLabel))
	}
	if patch.SetTraits {
		set.add("traits = $%d", cleanTraits(patch.Traits))
	}
	if patch.RouteSlug != nil {
		route, err := checkRouteSlug(ctx, s.db, *patch.RouteSlug)
		if err != nil {
			return nil, err
		}
		set.add("route_slug = $%d", route)
	}
	if patch.Theme != nil {
		if !patch.Theme.Valid() {
			return nil, fmt.Errorf("update student: invalid theme %q", *patch.Theme)
		}
		set.add("theme = $%d", *patch.Theme)
	}
	if set.empty() {
		return s.FindByID(ctx, id)
	}

	cols, args, n := set.build(id)
	st, err := s.scanStudent(s.db.QueryRowContext(ctx,
		`UPDATE student_tributes SET `+cols+`, updated_at = NOW() WHERE id = $`+fmt.Sprint(n)+` RETURNING `+studentColumns,
		args...,
	))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update student: %w", mapUniqueViolation(err))
	}
	return st, nil
}

// Delete removes a tribute, its achievements, and closes the ordering gap.
func (s *StudentStore) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete student: %w", err)
	}
	defer tx.Rollback()

	var pageID uuid.UUID
	err = tx.QueryRowContext(ctx, `SELECT page_id FROM student_tributes WHERE id = $1`, id).Scan(&pageID)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("find student page: %w", err)
	}
	if _, _, err := lockPage(ctx, tx, pageID); err != nil {
		return err
	}

	var sortOrder int
	err = tx.QueryRowContext(ctx,
		`DELETE FROM student_tributes WHERE id = $1 RETURNING sort_order`, id,
	).Scan(&sortOrder)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE student_tributes SET sort_order = sort_order - 1
		WHERE page_id = $1 AND sort_order > $2
	`, pageID, sortOrder); err != nil {
		return fmt.Errorf("compact students: %w", err)
	}

	if err := bumpStudentVersion(ctx, tx, pageID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete student: %w", err)
	}
	return nil
}

// Reorder rewrites the page's student order the same way
// PageStore.ReorderSections does for sections.
func (s *StudentStore) Reorder(ctx context.Context, pageID uuid.UUID, orderedIDs []uuid.UUID, expectedVersion int) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin reorder students: %w", err)
	}
	defer tx.Rollback()

	_, version, err := lockPage(ctx, tx, pageID)
	if err != nil {
		return 0, err
	}
	if expectedVersion != 0 && expectedVersion != version {
		return 0, fmt.Errorf("reorder students: %w (have %d, page at %d)", ErrStaleOrder, expectedVersion, version)
	}

	current, err := childIDs(ctx, tx, `SELECT id FROM student_tributes WHERE page_id = $1`, pageID)
	if err != nil {
		return 0, fmt.Errorf("reorder students: %w", err)
	}
	if !sameIDSet(current, orderedIDs) {
		return 0, fmt.Errorf("reorder students: %w", ErrOrderMismatch)
	}

	for i, id := range orderedIDs {
		if _, err := tx.ExecContext(ctx,
			`UPDATE student_tributes SET sort_order = $1, updated_at = NOW() WHERE id = $2`, i, id,
		); err != nil {
			return 0, fmt.Errorf("reorder student %s: %w", id, err)
		}
	}

	if err := bumpStudentVersion(ctx, tx, pageID); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit reorder students: %w", err)
	}
	return version + 1, nil
}

// ListByPage returns a page's tributes in sort order.
func (s *StudentStore) ListByPage(ctx context.Context, pageID uuid.UUID) ([]models.StudentTribute, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+studentColumns+` FROM student_tributes
		WHERE page_id = $1
		ORDER BY sort_order
	`, pageID)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	defer rows.Close()

	var out []models.StudentTribute
	for rows.Next() {
		st, err := s.scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		out = append(out, *st)
	}
	return out, rows.Err()
}

// FindByID retrieves a tribute. Returns nil if not found.
func (s *StudentStore) FindByID(ctx context.Context, id uuid.UUID) (*models.StudentTribute, error) {
	st, err := s.scanStudent(s.db.QueryRowContext(ctx,
		`SELECT `+studentColumns+` FROM student_tributes WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find student by id: %w", err)
	}
	return st, nil
}

// FindByRouteSlug resolves a URL path segment to the tribute whose route
// slug is "/"+segment. Should duplicates exist (rows written before the
// unique index), the first created wins, ties broken by id.
func (s *StudentStore) FindByRouteSlug(ctx context.Context, segment string) (*models.StudentTribute, error) {
	route := slug.Route(segment)
	if route == "" {
		return nil, nil
	}
	st, err := s.scanStudent(s.db.QueryRowContext(ctx, `
		SELECT `+studentColumns+` FROM student_tributes
		WHERE route_slug = $1
		ORDER BY created_at, id
		LIMIT 1
	`, route))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find student by route: %w", err)
	}
	return st, nil
}

func bumpStudentVersion(ctx context.Context, tx *sql.Tx, pageID uuid.UUID) error {
	if _, err := tx.ExecContext(ctx, `
		UPDATE custom_pages SET student_order_version = student_order_version + 1, updated_at = NOW()
		WHERE id = $1
	`, pageID); err != nil {
		return fmt.Errorf("bump student version: %w", err)
	}
	return nil
}

// AchievementInput carries the fields for a new achievement.
type AchievementInput struct {
	Title       string
	Description *string
	Icon        *string
	Year        *string
}

// AddAchievement appends an achievement to a student's list.
func (s *StudentStore) AddAchievement(ctx context.Context, studentID uuid.UUID, in AchievementInput) (*models.StudentAchievement, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("add achievement: title is required")
	}
	a := &models.StudentAchievement{}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO student_achievements (student_id, title, description, icon, year, sort_order)
		VALUES ($1, $2, $3, $4, $5,
		        (SELECT COALESCE(MAX(sort_order) + 1, 0) FROM student_achievements WHERE student_id = $1))
		RETURNING id, student_id, title, description, icon, year, sort_order, created_at
	`, studentID, strings.TrimSpace(in.Title), nullIfEmpty(in.Description), nullIfEmpty(in.Icon), nullIfEmpty(in.Year),
	).Scan(&a.ID, &a.StudentID, &a.Title, &a.Description, &a.Icon, &a.Year, &a.SortOrder, &a.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("add achievement: %w", err)
	}
	return a, nil
}

// DeleteAchievement removes one achievement. Remaining sort orders are
// left as they are; only relative order matters for display.
func (s *StudentStore) DeleteAchievement(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM student_achievements WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete achievement: %w", err)
	}
	return nil
}

// ListAchievements returns a student's achievements in sort order.
func (s *StudentStore) ListAchievements(ctx context.Context, studentID uuid.UUID) ([]models.StudentAchievement, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, student_id, title, description, icon, year, sort_order, created_at
		FROM student_achievements
		WHERE student_id = $1
		ORDER BY sort_order, created_at
	`, studentID)
	if err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	defer rows.Close()

	var out []models.StudentAchievement
	for rows.Next() {
		var a models.StudentAchievement
		if err := rows.Scan(&a.ID, &a.StudentID, &a.Title, &a.Description, &a.Icon, &a.Year, &a.SortOrder, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan achievement: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// FindAchievement retrieves one achievement. Returns nil if not found.
func (s *StudentStore) FindAchievement(ctx context.Context, id uuid.UUID) (*models.StudentAchievement, error) {
	a := &models.StudentAchievement{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, student_id, title, description, icon, year, sort_order, created_at
		FROM student_achievements WHERE id = $1
	`, id).Scan(&a.ID, &a.StudentID, &a.Title, &a.Description, &a.Icon, &a.Year, &a.SortOrder, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find achievement: %w", err)
	}
	return a, nil
}

// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrDuplicateSlug is returned when a page slug or student route slug
	// is already taken. The wrapped message is the database's own text.
	ErrDuplicateSlug = errors.New("duplicate slug")
	// ErrReservedSlug is returned for slugs owned by fixed site routes.
	ErrReservedSlug = errors.New("slug is reserved")
	// ErrStaleOrder is returned when a reorder was computed from an
	// outdated ordering version.
	ErrStaleOrder = errors.New("ordering changed since it was loaded")
	// ErrOrderMismatch is returned when a reorder list is not exactly the
	// current set of children.
	ErrOrderMismatch = errors.New("reorder list does not match current items")
	// ErrNotFound is returned by write operations targeting a missing row.
	// Read operations return (nil, nil) instead.
	ErrNotFound = errors.New("not found")
)

const uniqueViolation = "23505"

// mapUniqueViolation converts a unique-key violation on a slug index into
// ErrDuplicateSlug, keeping the backend message. Other errors pass through.
func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && strings.Contains(pgErr.ConstraintName, "slug") {
		return fmt.Errorf("%w: %s", ErrDuplicateSlug, pgErr.Message)
	}
	return err
}

// isUniqueViolation reports whether err is any unique-key violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// setClause accumulates "col = $n" fragments for partial updates.
type setClause struct {
	parts []string
	args  []any
}

func (s *setClause) add(expr string, arg any) {
	s.args = append(s.args, arg)
	s.parts = append(s.parts, fmt.Sprintf(expr, len(s.args)))
}

func (s *setClause) empty() bool { return len(s.parts) == 0 }

// build returns the SET list and args with the row id appended last.
func (s *setClause) build(id any) (string, []any, int) {
	args := append(s.args, id)
	return strings.Join(s.parts, ", "), args, len(args)
}

// nullIfEmpty stores blank optional text as NULL.
func nullIfEmpty(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

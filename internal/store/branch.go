package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"schoolarchives/internal/models"
)

// BranchStore handles school campuses.
type BranchStore struct {
	db *sql.DB
}

// NewBranchStore creates a new BranchStore with the given database connection.
func NewBranchStore(db *sql.DB) *BranchStore {
	return &BranchStore{db: db}
}

const branchColumns = `id, name, code, location, created_at, updated_at`

func scanBranch(row rowScanner) (*models.Branch, error) {
	b := &models.Branch{}
	err := row.Scan(&b.ID, &b.Name, &b.Code, &b.Location, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

// List returns all branches ordered by name.
func (s *BranchStore) List(ctx context.Context) ([]models.Branch, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+branchColumns+` FROM branches ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	defer rows.Close()

	var out []models.Branch
	for rows.Next() {
		b, err := scanBranch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan branch: %w", err)
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// FindByID retrieves a branch. Returns nil if not found.
func (s *BranchStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Branch, error) {
	b, err := scanBranch(s.db.QueryRowContext(ctx, `SELECT `+branchColumns+` FROM branches WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find branch: %w", err)
	}
	return b, nil
}

// Create inserts a branch. Codes are stored upper-case and must be unique.
func (s *BranchStore) Create(ctx context.Context, name, code string, location *string) (*models.Branch, error) {
	name = strings.TrimSpace(name)
	code = strings.ToUpper(strings.TrimSpace(code))
	if name == "" || code == "" {
		return nil, fmt.Errorf("create branch: name and code are required")
	}
	b, err := scanBranch(s.db.QueryRowContext(ctx, `
		INSERT INTO branches (name, code, location) VALUES ($1, $2, $3)
		RETURNING `+branchColumns, name, code, nullIfEmpty(location)))
	if err != nil {
		return nil, fmt.Errorf("create branch: %w", err)
	}
	return b, nil
}

// Update changes a branch's editable fields.
func (s *BranchStore) Update(ctx context.Context, id uuid.UUID, name, code string, location *string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE branches SET name = $1, code = $2, location = $3, updated_at = NOW()
		WHERE id = $4
	`, strings.TrimSpace(name), strings.ToUpper(strings.TrimSpace(code)), nullIfEmpty(location), id)
	if err != nil {
		return fmt.Errorf("update branch: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a branch together with its collections and pages.
func (s *BranchStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM branches WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete branch: %w", err)
	}
	return nil
}

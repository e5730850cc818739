// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package database

import (
	"database/sql"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
)

// Seed populates the database with initial development data: a default
// admin (2FA not yet enrolled) and one branch so the site is usable right
// away. It is a no-op once any user exists.
func Seed(db *sql.DB) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return fmt.Errorf("seed check users: %w", err)
	}

	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("admin"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("seed bcrypt: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("seed begin: %w", err)
	}
	defer tx.Rollback()

	var userID string
	err = tx.QueryRow(`
		INSERT INTO users (email, password_hash, display_name, totp_enabled)
		VALUES ($1, $2, $3, FALSE)
		RETURNING id
	`, "admin@schoolarchives.local", string(hash), "Admin").Scan(&userID)
	if err != nil {
		return fmt.Errorf("seed insert admin: %w", err)
	}

	if _, err := tx.Exec(`INSERT INTO user_roles (user_id, role) VALUES ($1, 'admin')`, userID); err != nil {
		return fmt.Errorf("seed insert admin role: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO branches (name, code, location)
		VALUES ($1, $2, $3)
		ON CONFLICT (code) DO NOTHING
	`, "Main Campus", "MAIN", "City Centre")
	if err != nil {
		return fmt.Errorf("seed insert branch: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed commit: %w", err)
	}

	slog.Info("database seeded with default admin user",
		"email", "admin@schoolarchives.local",
		"password", "admin",
	)

	return nil
}

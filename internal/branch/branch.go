// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package branch manages the visitor's selected school campus. The
// selection lives in a cookie, is revalidated against the database on
// every request and travels through the request context, never through
// package state.
package branch

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"schoolarchives/internal/models"
)

// CookieName holds the serialized selection.
const CookieName = "sa_branch"

const cookieMaxAge = 365 * 24 * time.Hour

// Finder looks up a branch by id. It returns (nil, nil) when the branch
// does not exist.
type Finder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Branch, error)
}

// Selection is the client-held branch choice as stored in the cookie.
type Selection struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Code string    `json:"code"`
}

// Load reads the selection cookie. A missing, undecodable or otherwise
// corrupt cookie yields nil: the visitor simply has no selection.
func Load(r *http.Request) *Selection {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}
	var sel Selection
	if err := json.Unmarshal(raw, &sel); err != nil || sel.ID == uuid.Nil {
		return nil
	}
	return &sel
}

// Validate checks the selection against the database. It returns the
// current branch, or nil when the branch no longer exists. Lookup
// failures are returned so the caller can leave the cookie alone.
func (s *Selection) Validate(ctx context.Context, f Finder) (*models.Branch, error) {
	if s == nil {
		return nil, nil
	}
	b, err := f.FindByID(ctx, s.ID)
	if err != nil {
		return nil, fmt.Errorf("validate branch selection: %w", err)
	}
	return b, nil
}

// Stale reports whether the stored fields differ from the live branch.
func (s *Selection) Stale(b *models.Branch) bool {
	return s == nil || b == nil || s.Name != b.Name || s.Code != b.Code
}

// Save writes the selection cookie for b.
func Save(w http.ResponseWriter, b *models.Branch, secure bool) {
	raw, _ := json.Marshal(Selection{ID: b.ID, Name: b.Name, Code: b.Code})
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Path:     "/",
		MaxAge:   int(cookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear removes the selection cookie.
func Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

type ctxKey struct{}

// WithBranch returns a context carrying the validated branch.
func WithBranch(ctx context.Context, b *models.Branch) context.Context {
	return context.WithValue(ctx, ctxKey{}, b)
}

// FromContext returns the validated branch, or nil when none is selected.
func FromContext(ctx context.Context) *models.Branch {
	b, _ := ctx.Value(ctxKey{}).(*models.Branch)
	return b
}

// IDFromContext returns the selected branch id for store filters, or nil.
func IDFromContext(ctx context.Context) *uuid.UUID {
	if b := FromContext(ctx); b != nil {
		id := b.ID
		return &id
	}
	return nil
}

package cache

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// AuditLog records invalidations. store.CacheLogStore implements it.
type AuditLog interface {
	Log(ctx context.Context, entityType string, entityID uuid.UUID, action string)
}

// Invalidator drops cached pages after admin writes and records why.
// A nil page cache means caching is off; the audit entry is still written.
type Invalidator struct {
	pages *PageCache
	audit AuditLog
}

// NewInvalidator wires a page cache (may be nil) to an audit log (may be nil).
func NewInvalidator(pages *PageCache, audit AuditLog) *Invalidator {
	return &Invalidator{pages: pages, audit: audit}
}

// Paths drops the listed public paths after a write to one entity.
func (inv *Invalidator) Paths(ctx context.Context, entityType string, id uuid.UUID, action string, paths ...string) {
	if inv == nil {
		return
	}
	if inv.pages != nil {
		n := 0
		for _, p := range paths {
			if p != "" {
				n += inv.pages.InvalidatePath(ctx, p)
			}
		}
		slog.Debug("page cache invalidated", "entity", entityType, "id", id, "keys", n)
	}
	inv.record(ctx, entityType, id, action)
}

// All drops every cached page. Used for writes that appear on many pages
// (collections, branches, navigation).
func (inv *Invalidator) All(ctx context.Context, entityType string, id uuid.UUID, action string) {
	if inv == nil {
		return
	}
	if inv.pages != nil {
		n := inv.pages.InvalidateAll(ctx)
		slog.Debug("page cache cleared", "entity", entityType, "id", id, "keys", n)
	}
	inv.record(ctx, entityType, id, action)
}

func (inv *Invalidator) record(ctx context.Context, entityType string, id uuid.UUID, action string) {
	if inv.audit != nil {
		inv.audit.Log(ctx, entityType, id, action)
	}
}

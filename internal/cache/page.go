// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// page.go provides the Valkey-backed full-page HTML cache. Public handlers
// render a page to bytes, store it here and serve later requests for the
// same path and branch without touching PostgreSQL or the section engine.
//
// Keys have the form page:{path}|{branch}, with "-" standing in for
// visitors who have not picked a branch. Cached documents carry no
// per-visitor data; the CSRF token is read from its cookie by script.

package cache

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	pageKeyPrefix = "page:"

	// DefaultPageTTL applies when NewPageCache gets a zero TTL.
	DefaultPageTTL = 5 * time.Minute

	noBranch = "-"
)

// PageCache stores rendered public HTML keyed by path and selected branch.
// Every method degrades to a miss or a no-op when Valkey fails.
type PageCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewPageCache creates a page cache.
func NewPageCache(client redis.Cmdable, ttl time.Duration) *PageCache {
	if ttl <= 0 {
		ttl = DefaultPageTTL
	}
	return &PageCache{client: client, ttl: ttl}
}

// Key builds the cache key for a path as seen with the given branch.
func Key(path string, branchID *uuid.UUID) string {
	b := noBranch
	if branchID != nil {
		b = branchID.String()
	}
	return pageKeyPrefix + path + "|" + b
}

// Get returns cached HTML for key. A Valkey error is logged and reported
// as a miss so the handler renders the page itself.
func (pc *PageCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := pc.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		slog.Warn("page cache get failed", "key", key, "error", err)
		return nil, false
	}
	return val, true
}

// Set stores html under key.
func (pc *PageCache) Set(ctx context.Context, key string, html []byte) {
	if err := pc.client.Set(ctx, key, html, pc.ttl).Err(); err != nil {
		slog.Warn("page cache set failed", "key", key, "error", err)
	}
}

// InvalidatePath drops every branch variant of path and returns how many
// keys went. The path is glob-escaped before it is used in the SCAN
// pattern, so slugs containing '*' or '?' only match themselves.
func (pc *PageCache) InvalidatePath(ctx context.Context, path string) int {
	return pc.deleteMatching(ctx, pageKeyPrefix+escapeGlob(path)+"|*")
}

// InvalidateAll drops every cached page. Used when a write shows up on
// pages that cannot be listed up front, such as navigation or branches.
func (pc *PageCache) InvalidateAll(ctx context.Context) int {
	return pc.deleteMatching(ctx, pageKeyPrefix+"*")
}

func (pc *PageCache) deleteMatching(ctx context.Context, pattern string) int {
	var cursor uint64
	var deleted int
	for {
		keys, next, err := pc.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			slog.Warn("page cache scan failed", "pattern", pattern, "error", err)
			return deleted
		}
		if len(keys) > 0 {
			if err := pc.client.Del(ctx, keys...).Err(); err != nil {
				slog.Warn("page cache delete failed", "error", err)
			} else {
				deleted += len(keys)
			}
		}
		cursor = next
		if cursor == 0 {
			return deleted
		}
	}
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func escapeGlob(s string) string { return globEscaper.Replace(s) }

// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure for handler integration
// tests. Tests are skipped when PostgreSQL or Valkey are unavailable.
package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"

	"schoolarchives/internal/branch"
	"schoolarchives/internal/cache"
	"schoolarchives/internal/database"
	"schoolarchives/internal/engine"
	"schoolarchives/internal/middleware"
	"schoolarchives/internal/models"
	"schoolarchives/internal/realtime"
	"schoolarchives/internal/render"
	"schoolarchives/internal/session"
	"schoolarchives/internal/store"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test PostgreSQL and runs migrations.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "schoolarchives")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "schoolarchives")
	dsn := "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Skipf("skipping: cannot open DB: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping: DB not reachable: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("migrate: %v", err)
	}
	goose.SetBaseFS(nil)

	t.Cleanup(func() { db.Close() })
	return db
}

// testValkeyClient returns a client for handler tests on DB 15.
func testValkeyClient(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr:     envOr("VALKEY_HOST", "localhost") + ":" + envOr("VALKEY_PORT", "6379"),
		Password: os.Getenv("VALKEY_PASSWORD"),
		DB:       15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("skipping: Valkey not reachable: %v", err)
	}

	t.Cleanup(func() {
		for _, pattern := range []string{"session:*", "page:*", "ratelimit:*"} {
			keys, _ := client.Keys(ctx, pattern).Result()
			if len(keys) > 0 {
				client.Del(ctx, keys...)
			}
		}
		client.Close()
	})
	return client
}

// testEnv holds all dependencies for handler integration tests.
type testEnv struct {
	DB        *sql.DB
	Valkey    *redis.Client
	Stores    Stores
	Sessions  *session.Store
	PageCache *cache.PageCache
	Hub       *realtime.Hub
	Admin     *Admin
	Auth      *Auth
	Public    *Public
	Social    *Social
}

// newTestEnv creates a complete test environment with all handler
// dependencies. Photo storage is left unconfigured.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testDB(t)
	vk := testValkeyClient(t)

	renderer, err := render.New(true)
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}

	st := Stores{
		Pages:       store.NewPageStore(db),
		Students:    store.NewStudentStore(db),
		Collections: store.NewCollectionStore(db),
		Photos:      store.NewPhotoStore(db),
		Tags:        store.NewTagStore(db),
		Branches:    store.NewBranchStore(db),
		SiteContent: store.NewSiteContentStore(db),
		Social:      store.NewSocialStore(db),
		Users:       store.NewUserStore(db),
		CacheLog:    store.NewCacheLogStore(db),
	}
	eng, err := engine.New(st.Photos, st.Students)
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}

	sessions := session.NewStore(vk, false)
	pageCache := cache.NewPageCache(vk, time.Minute)
	hub := realtime.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	return &testEnv{
		DB:        db,
		Valkey:    vk,
		Stores:    st,
		Sessions:  sessions,
		PageCache: pageCache,
		Hub:       hub,
		Admin:     NewAdmin(renderer, st, nil, cache.NewInvalidator(pageCache, st.CacheLog)),
		Auth:      NewAuth(renderer, sessions, st.Users, middleware.NewRateLimiter(vk, "test-login", 3, time.Minute)),
		Public:    NewPublic(renderer, st, eng, pageCache, false),
		Social:    NewSocial(st.Photos, st.Social, hub, middleware.NewRateLimiter(vk, "test-comment", 2, time.Minute)),
	}
}

// ctxWithSession adds session data to a context using the middleware key.
func ctxWithSession(ctx context.Context, data *session.Data) context.Context {
	return context.WithValue(ctx, middleware.SessionKey, data)
}

// testSession creates a session.Data for testing.
func testSession(userID uuid.UUID, email string, role models.Role, twoFADone bool) *session.Data {
	return &session.Data{
		UserID:      userID,
		Email:       email,
		DisplayName: "Test User",
		Roles:       []models.Role{role},
		TwoFADone:   twoFADone,
	}
}

// withChiURLParam adds a chi URL parameter to a request.
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// withBranch puts b into the request context the way BranchContext does.
func withBranch(r *http.Request, b *models.Branch) *http.Request {
	return r.WithContext(branch.WithBranch(r.Context(), b))
}

// testBranch creates a throwaway branch. Deleting it at cleanup cascades
// to the pages, students and collections created under it.
func testBranch(t *testing.T, env *testEnv) *models.Branch {
	t.Helper()
	code := "H" + uuid.NewString()[:8]
	b, err := env.Stores.Branches.Create(context.Background(), "Handler Campus "+code, code, nil)
	if err != nil {
		t.Fatalf("create test branch: %v", err)
	}
	t.Cleanup(func() { env.DB.Exec("DELETE FROM branches WHERE id = $1", b.ID) })
	return b
}

// testCollection creates a collection with one photo on b.
func testCollection(t *testing.T, env *testEnv, b *models.Branch) (*models.Collection, *models.Photo) {
	t.Helper()
	ctx := context.Background()
	c, err := env.Stores.Collections.Create(ctx, store.CollectionInput{Title: "Sports Day", BranchID: b.ID})
	if err != nil {
		t.Fatalf("create collection: %v", err)
	}
	p, err := env.Stores.Photos.Add(ctx, c.ID, store.PhotoInput{ImageURL: "https://img.example.com/" + uuid.NewString() + ".jpg"})
	if err != nil {
		t.Fatalf("add photo: %v", err)
	}
	return c, p
}

// uniqueSlug returns a page slug that will not collide across runs.
func uniqueSlug(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8]
}

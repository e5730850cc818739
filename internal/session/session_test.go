package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"schoolarchives/internal/models"
)

// testValkeyClient connects to DB 15 of the test Valkey or skips.
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
		t.Skipf("skipping integration test: Valkey not reachable: %v", err)
	}

	t.Cleanup(func() {
		keys, _ := client.Keys(ctx, keyPrefix+"*").Result()
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
		client.Close()
	})
	return client
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == CookieName {
			return c
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func TestIsAdmin(t *testing.T) {
	if (&Data{Roles: []models.Role{models.RoleEditor}}).IsAdmin() {
		t.Error("editor should not be admin")
	}
	if !(&Data{Roles: []models.Role{models.RoleEditor, models.RoleAdmin}}).IsAdmin() {
		t.Error("admin role not detected")
	}
	if (&Data{}).IsAdmin() {
		t.Error("no roles should not be admin")
	}
}

func TestSessionCreateAndGet(t *testing.T) {
	store := NewStore(testValkeyClient(t), false)
	ctx := context.Background()

	data := &Data{
		UserID:      uuid.New(),
		Email:       "test@session.local",
		DisplayName: "Test User",
		Roles:       []models.Role{models.RoleAdmin},
	}

	w := httptest.NewRecorder()
	id, err := store.Create(ctx, w, data)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(id) != idLength*2 {
		t.Errorf("id length = %d", len(id))
	}

	c := sessionCookie(t, w)
	if !c.HttpOnly || c.Secure {
		t.Errorf("cookie flags: HttpOnly=%v Secure=%v", c.HttpOnly, c.Secure)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(c)
	got, err := store.Get(ctx, req)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.UserID != data.UserID || !got.IsAdmin() {
		t.Errorf("Get = %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
}

func TestSessionGetMissing(t *testing.T) {
	store := NewStore(testValkeyClient(t), false)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got, err := store.Get(context.Background(), req); got != nil || err != nil {
		t.Errorf("no cookie: got %+v, %v", got, err)
	}

	req.AddCookie(&http.Cookie{Name: CookieName, Value: "expired"})
	if got, err := store.Get(context.Background(), req); got != nil || err != nil {
		t.Errorf("unknown id: got %+v, %v", got, err)
	}
}

func TestSessionUpdate(t *testing.T) {
	store := NewStore(testValkeyClient(t), false)
	ctx := context.Background()

	data := &Data{UserID: uuid.New(), Email: "update@session.local", Roles: []models.Role{models.RoleEditor}}
	w := httptest.NewRecorder()
	if _, err := store.Create(ctx, w, data); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(sessionCookie(t, w))

	data.TwoFADone = true
	if err := store.Update(ctx, req, data); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, _ := store.Get(ctx, req)
	if got == nil || !got.TwoFADone {
		t.Errorf("after update: %+v", got)
	}

	if err := store.Update(ctx, httptest.NewRequest(http.MethodGet, "/", nil), data); !errors.Is(err, ErrNoSession) {
		t.Errorf("update without cookie: %v", err)
	}
}

func TestSessionDestroy(t *testing.T) {
	store := NewStore(testValkeyClient(t), false)
	ctx := context.Background()

	w := httptest.NewRecorder()
	store.Create(ctx, w, &Data{UserID: uuid.New(), Email: "destroy@session.local"})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(sessionCookie(t, w))

	w2 := httptest.NewRecorder()
	if err := store.Destroy(ctx, w2, req); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if c := sessionCookie(t, w2); c.MaxAge != -1 {
		t.Errorf("MaxAge = %d, want -1", c.MaxAge)
	}
	if got, _ := store.Get(ctx, req); got != nil {
		t.Error("session still readable after destroy")
	}

	if err := store.Destroy(ctx, httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil)); err != nil {
		t.Errorf("destroy without cookie: %v", err)
	}
}

func TestSessionSecureCookie(t *testing.T) {
	store := NewStore(testValkeyClient(t), true)

	w := httptest.NewRecorder()
	if _, err := store.Create(context.Background(), w, &Data{UserID: uuid.New()}); err != nil {
		t.Fatal(err)
	}
	if !sessionCookie(t, w).Secure {
		t.Error("expected Secure cookie")
	}
}

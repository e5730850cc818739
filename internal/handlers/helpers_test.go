package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"

	"schoolarchives/internal/models"
	"schoolarchives/internal/store"
)

func TestApplyMove(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	ids := []uuid.UUID{a, b, c}

	tests := []struct {
		name string
		id   uuid.UUID
		dir  string
		want []uuid.UUID
	}{
		{"up from middle", b, "up", []uuid.UUID{b, a, c}},
		{"down from middle", b, "down", []uuid.UUID{a, c, b}},
		{"up from top", a, "up", []uuid.UUID{a, b, c}},
		{"down from bottom", c, "down", []uuid.UUID{a, b, c}},
		{"unknown id", uuid.New(), "up", []uuid.UUID{a, b, c}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := applyMove(ids, tt.id, tt.dir)
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Fatalf("position %d: got %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
	if ids[0] != a || ids[1] != b {
		t.Error("applyMove modified its input")
	}
}

func TestReorderRequest(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	form := url.Values{}
	form.Add("ids", a.String())
	form.Add("ids", b.String())
	form.Set("move", b.String()+"|up")
	form.Set("version", "7")

	r := httptest.NewRequest("POST", "/reorder", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	ids, version, err := reorderRequest(r)
	if err != nil {
		t.Fatalf("reorderRequest: %v", err)
	}
	if version != 7 {
		t.Errorf("version: got %d, want 7", version)
	}
	if len(ids) != 2 || ids[0] != b || ids[1] != a {
		t.Errorf("ids: got %v, want [%s %s]", ids, b, a)
	}
}

func TestReorderRequestRejectsBadIDs(t *testing.T) {
	for _, body := range []string{"ids=nope", "ids=" + uuid.NewString() + "&move=nope|up"} {
		r := httptest.NewRequest("POST", "/reorder", strings.NewReader(body))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		if _, _, err := reorderRequest(r); err == nil {
			t.Errorf("%q: expected error", body)
		}
	}
}

func TestReorderRequestMissingVersion(t *testing.T) {
	r := httptest.NewRequest("POST", "/reorder", strings.NewReader("ids="+uuid.NewString()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	_, version, err := reorderRequest(r)
	if err != nil {
		t.Fatalf("reorderRequest: %v", err)
	}
	if version != 0 {
		t.Errorf("version: got %d, want 0", version)
	}
}

func TestSafeNext(t *testing.T) {
	tests := map[string]string{
		"":                     "/",
		"/memories":            "/memories",
		"/page/sports?x=1":     "/page/sports?x=1",
		"//evil.example.com":   "/",
		`/\evil.example.com`:   "/",
		"https://evil.example": "/",
		"memories":             "/",
	}
	for in, want := range tests {
		if got := safeNext(in); got != want {
			t.Errorf("safeNext(%q): got %q, want %q", in, got, want)
		}
	}
}

func TestCommentViewMine(t *testing.T) {
	me := uuid.New()
	c := models.PhotoComment{ID: uuid.New(), VisitorID: me, AuthorName: "Ana", Body: "Great day"}

	if !newCommentView(c, me).Mine {
		t.Error("own comment should be mine")
	}
	if newCommentView(c, uuid.New()).Mine {
		t.Error("someone else's comment should not be mine")
	}
	c.VisitorID = uuid.Nil
	if newCommentView(c, uuid.Nil).Mine {
		t.Error("nil visitor never owns a comment")
	}
}

func TestKeyForRebuildsSecret(t *testing.T) {
	const secret = "JBSWY3DPEHPK3PXP"
	key, err := keyFor("admin@example.com", secret)
	if err != nil {
		t.Fatalf("keyFor: %v", err)
	}
	if key.Secret() != secret {
		t.Errorf("secret: got %q, want %q", key.Secret(), secret)
	}
	if key.Issuer() != totpIssuer {
		t.Errorf("issuer: got %q, want %q", key.Issuer(), totpIssuer)
	}
	if key.AccountName() != "admin@example.com" {
		t.Errorf("account: got %q", key.AccountName())
	}

	data, err := enrollment(key)
	if err != nil {
		t.Fatalf("enrollment: %v", err)
	}
	if data["Secret"] != secret || data["QRCode"] == "" {
		t.Errorf("enrollment data incomplete: %v", data)
	}
}

func TestReorderStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("reorder sections: %w", store.ErrOrderMismatch), http.StatusUnprocessableEntity},
		{fmt.Errorf("reorder students: %w (have 2, page at 3)", store.ErrStaleOrder), http.StatusConflict},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := reorderStatus(tt.err); got != tt.want {
			t.Errorf("reorderStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

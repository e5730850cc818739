package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestVisitorIssuesCookie(t *testing.T) {
	var id string
	h := Visitor(false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id = VisitorID(r.Context())
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	c := cookieNamed(rr, VisitorCookieName)
	if c == nil || c.Value != id {
		t.Fatalf("cookie %+v, context id %q", c, id)
	}
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("visitor id %q is not a uuid", id)
	}
}

func TestVisitorReusesCookie(t *testing.T) {
	existing := uuid.NewString()
	var id string
	h := Visitor(false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id = VisitorID(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: VisitorCookieName, Value: existing})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if id != existing {
		t.Errorf("id = %q, want %q", id, existing)
	}
	if cookieNamed(rr, VisitorCookieName) != nil {
		t.Error("cookie should not be reissued")
	}
}

func TestVisitorReplacesGarbage(t *testing.T) {
	var id string
	h := Visitor(false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id = VisitorID(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: VisitorCookieName, Value: "not-a-uuid"})
	h.ServeHTTP(httptest.NewRecorder(), req)

	if id == "not-a-uuid" || id == "" {
		t.Errorf("id = %q", id)
	}
}

package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"schoolarchives/internal/branch"
	"schoolarchives/internal/models"
)

type branchFinder struct {
	branches map[uuid.UUID]*models.Branch
	err      error
}

func (f branchFinder) FindByID(_ context.Context, id uuid.UUID) (*models.Branch, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.branches[id], nil
}

func requestWithBranch(b *models.Branch) *http.Request {
	rec := httptest.NewRecorder()
	branch.Save(rec, b, false)
	req := httptest.NewRequest(http.MethodGet, "/memories", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func cookieNamed(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func runBranchContext(f branch.Finder, req *http.Request) (*httptest.ResponseRecorder, *models.Branch) {
	var got *models.Branch
	h := BranchContext(f, false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = branch.FromContext(r.Context())
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr, got
}

func TestBranchContextValid(t *testing.T) {
	b := &models.Branch{ID: uuid.New(), Name: "North", Code: "NTH"}
	rr, got := runBranchContext(branchFinder{branches: map[uuid.UUID]*models.Branch{b.ID: b}}, requestWithBranch(b))

	if got == nil || got.ID != b.ID {
		t.Errorf("branch in context = %+v", got)
	}
	if cookieNamed(rr, branch.CookieName) != nil {
		t.Error("fresh cookie should not be rewritten")
	}
}

func TestBranchContextDeletedBranchIsCleared(t *testing.T) {
	b := &models.Branch{ID: uuid.New(), Name: "Closed", Code: "CLS"}
	rr, got := runBranchContext(branchFinder{}, requestWithBranch(b))

	if got != nil {
		t.Errorf("deleted branch leaked into context: %+v", got)
	}
	c := cookieNamed(rr, branch.CookieName)
	if c == nil || c.MaxAge != -1 {
		t.Errorf("cookie not cleared: %+v", c)
	}
}

func TestBranchContextRenamedBranchRefreshesCookie(t *testing.T) {
	old := &models.Branch{ID: uuid.New(), Name: "North", Code: "NTH"}
	live := &models.Branch{ID: old.ID, Name: "North Campus", Code: "NTH"}
	rr, got := runBranchContext(branchFinder{branches: map[uuid.UUID]*models.Branch{live.ID: live}}, requestWithBranch(old))

	if got == nil || got.Name != "North Campus" {
		t.Errorf("context branch = %+v", got)
	}
	if c := cookieNamed(rr, branch.CookieName); c == nil || c.MaxAge <= 0 {
		t.Errorf("cookie not refreshed: %+v", c)
	}
}

func TestBranchContextLookupErrorKeepsCookie(t *testing.T) {
	captureLogs(t)
	b := &models.Branch{ID: uuid.New(), Name: "North", Code: "NTH"}
	rr, got := runBranchContext(branchFinder{err: errors.New("db down")}, requestWithBranch(b))

	if got != nil {
		t.Error("unvalidated branch should not reach the context")
	}
	if cookieNamed(rr, branch.CookieName) != nil {
		t.Error("cookie should be left alone on lookup failure")
	}
}

func TestBranchContextCorruptCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: branch.CookieName, Value: "%%%not-base64"})
	rr, got := runBranchContext(branchFinder{}, req)

	if got != nil {
		t.Error("corrupt cookie must read as no branch")
	}
	if c := cookieNamed(rr, branch.CookieName); c == nil || c.MaxAge != -1 {
		t.Errorf("corrupt cookie not cleared: %+v", c)
	}
}

func TestRequireBranch(t *testing.T) {
	inner, called := okHandler()
	rr := httptest.NewRecorder()
	RequireBranch(inner).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/memories", nil))
	if *called || rr.Header().Get("Location") != "/branches?next=/memories" {
		t.Errorf("called=%v location=%q", *called, rr.Header().Get("Location"))
	}

	inner, called = okHandler()
	req := httptest.NewRequest(http.MethodGet, "/memories", nil)
	req = req.WithContext(branch.WithBranch(req.Context(), &models.Branch{ID: uuid.New()}))
	RequireBranch(inner).ServeHTTP(httptest.NewRecorder(), req)
	if !*called {
		t.Error("selected branch should pass")
	}
}

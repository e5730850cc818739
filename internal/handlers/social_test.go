package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"

	"schoolarchives/internal/middleware"
	"schoolarchives/internal/models"
)

// asVisitor runs h behind the Visitor middleware with the given visitor id.
func asVisitor(h http.HandlerFunc, r *http.Request, visitorID uuid.UUID) *httptest.ResponseRecorder {
	r.AddCookie(&http.Cookie{Name: middleware.VisitorCookieName, Value: visitorID.String()})
	rec := httptest.NewRecorder()
	middleware.Visitor(false)(h).ServeHTTP(rec, r)
	return rec
}

func socialRequest(method, target, id string, form url.Values) *http.Request {
	var r *http.Request
	if form != nil {
		r = postForm(target, form)
		r.Method = method
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	return withChiURLParam(r, "id", id)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestToggleReaction(t *testing.T) {
	env := newTestEnv(t)
	_, p := testCollection(t, env, testBranch(t, env))
	me := uuid.New()
	target := "/photos/" + p.ID.String() + "/reactions"

	rec := asVisitor(env.Social.ToggleReaction, socialRequest("POST", target, p.ID.String(), url.Values{"type": {"heart"}}), me)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var on struct {
		Active    bool                  `json:"active"`
		Reactions models.ReactionCounts `json:"reactions"`
	}
	decode(t, rec, &on)
	if !on.Active || on.Reactions[models.ReactionHeart] != 1 {
		t.Errorf("first toggle: got %+v", on)
	}

	rec = asVisitor(env.Social.ToggleReaction, socialRequest("POST", target, p.ID.String(), url.Values{"type": {"heart"}}), me)
	var off struct {
		Active    bool                  `json:"active"`
		Reactions models.ReactionCounts `json:"reactions"`
	}
	decode(t, rec, &off)
	if off.Active || off.Reactions[models.ReactionHeart] != 0 {
		t.Errorf("second toggle: got %+v", off)
	}
}

func TestToggleReaction_Rejects(t *testing.T) {
	env := newTestEnv(t)
	_, p := testCollection(t, env, testBranch(t, env))

	rec := asVisitor(env.Social.ToggleReaction, socialRequest("POST", "/r", p.ID.String(), url.Values{"type": {"angry"}}), uuid.New())
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown type: got %d, want 400", rec.Code)
	}

	missing := uuid.NewString()
	rec = asVisitor(env.Social.ToggleReaction, socialRequest("POST", "/r", missing, url.Values{"type": {"heart"}}), uuid.New())
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing photo: got %d, want 404", rec.Code)
	}
}

func TestComments_AddListDelete(t *testing.T) {
	env := newTestEnv(t)
	_, p := testCollection(t, env, testBranch(t, env))
	me, other := uuid.New(), uuid.New()
	target := "/photos/" + p.ID.String() + "/comments"

	rec := asVisitor(env.Social.AddComment, socialRequest("POST", target, p.ID.String(), url.Values{
		"author_name": {"Ana"}, "body": {"Best day ever"},
	}), me)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add: got %d, want 201: %s", rec.Code, rec.Body.String())
	}
	var added struct {
		Comment commentView `json:"comment"`
	}
	decode(t, rec, &added)
	if !added.Comment.Mine || added.Comment.Body != "Best day ever" {
		t.Errorf("added comment: got %+v", added.Comment)
	}

	rec = asVisitor(env.Social.Comments, socialRequest("GET", target, p.ID.String(), nil), other)
	var list struct {
		Comments []commentView `json:"comments"`
	}
	decode(t, rec, &list)
	if len(list.Comments) != 1 || list.Comments[0].Mine {
		t.Errorf("list as other visitor: got %+v", list.Comments)
	}

	cid := added.Comment.ID.String()
	rec = asVisitor(env.Social.DeleteComment, socialRequest("DELETE", "/comments/"+cid, cid, nil), other)
	if rec.Code != http.StatusNotFound {
		t.Errorf("delete by other visitor: got %d, want 404", rec.Code)
	}
	rec = asVisitor(env.Social.DeleteComment, socialRequest("DELETE", "/comments/"+cid, cid, nil), me)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete by author: got %d, want 204", rec.Code)
	}
}

func TestAddComment_Validation(t *testing.T) {
	env := newTestEnv(t)
	_, p := testCollection(t, env, testBranch(t, env))

	tests := map[string]url.Values{
		"empty body": {"author_name": {"Ana"}, "body": {"  "}},
		"long body":  {"author_name": {"Ana"}, "body": {strings.Repeat("x", 501)}},
	}
	for name, form := range tests {
		rec := asVisitor(env.Social.AddComment, socialRequest("POST", "/c", p.ID.String(), form), uuid.New())
		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("%s: got %d, want 422", name, rec.Code)
		}
	}
}

func TestAddComment_RateLimited(t *testing.T) {
	env := newTestEnv(t)
	_, p := testCollection(t, env, testBranch(t, env))
	me := uuid.New()

	var last int
	for i := 0; i < 3; i++ {
		rec := asVisitor(env.Social.AddComment, socialRequest("POST", "/c", p.ID.String(), url.Values{
			"author_name": {"Ana"}, "body": {"again"},
		}), me)
		last = rec.Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("third comment: got %d, want 429", last)
	}
}

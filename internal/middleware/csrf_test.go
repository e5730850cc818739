package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func csrfCookie(rr *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == CSRFCookieName {
			return c
		}
	}
	return nil
}

func TestCSRFIssuesTokenOnGet(t *testing.T) {
	var seen string
	h := CSRF(true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = CSRFToken(r)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/login", nil))

	c := csrfCookie(rr)
	if c == nil {
		t.Fatal("csrf cookie not set")
	}
	if len(c.Value) != csrfTokenLength*2 || !c.Secure {
		t.Errorf("cookie = %+v", c)
	}
	if seen != c.Value {
		t.Errorf("context token %q differs from cookie %q", seen, c.Value)
	}
}

func TestCSRFKeepsExistingToken(t *testing.T) {
	h := CSRF(false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: "existing"})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if csrfCookie(rr) != nil {
		t.Error("cookie should not be reissued")
	}
}

func TestCSRFValidation(t *testing.T) {
	const token = "abc123"
	tests := []struct {
		name   string
		header string
		form   string
		want   int
	}{
		{"header match", token, "", http.StatusOK},
		{"form match", "", token, http.StatusOK},
		{"mismatch", "wrong", "", http.StatusForbidden},
		{"missing", "", "", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inner, _ := okHandler()
			body := url.Values{}
			if tt.form != "" {
				body.Set(CSRFFormField, tt.form)
			}
			req := httptest.NewRequest(http.MethodPost, "/admin/pages", strings.NewReader(body.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: token})
			if tt.header != "" {
				req.Header.Set(CSRFHeaderName, tt.header)
			}
			rr := httptest.NewRecorder()
			CSRF(false)(inner).ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestCSRFTokenFallsBackToCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := CSRFToken(req); got != "" {
		t.Errorf("got %q", got)
	}
	req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: "tok"})
	if got := CSRFToken(req); got != "tok" {
		t.Errorf("got %q", got)
	}
}

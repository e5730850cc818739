// csrf.go implements double-submit cookie protection for every form and
// fetch that changes state, public or admin. The token cookie is readable
// by script so app.js can echo it in the X-CSRF-Token header; plain forms
// send it as a hidden field instead.

package middleware

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
)

const (
	csrfTokenLength = 32

	// CSRFCookieName holds the double-submit token.
	CSRFCookieName = "sa_csrf"

	// CSRFHeaderName is sent by HTMX via hx-headers.
	CSRFHeaderName = "X-CSRF-Token"

	// CSRFFormField is the hidden input name for plain forms.
	CSRFFormField = "csrf_token"

	csrfKey contextKey = "csrf"
)

// CSRF returns double-submit cookie protection. The token is placed in the
// request context so templates rendered on the first visit already have it.
func CSRF(secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var token string
			if c, err := r.Cookie(CSRFCookieName); err == nil && c.Value != "" {
				token = c.Value
			} else {
				t, err := generateCSRFToken()
				if err != nil {
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
					return
				}
				token = t
				http.SetCookie(w, &http.Cookie{
					Name:     CSRFCookieName,
					Value:    token,
					Path:     "/",
					Secure:   secure,
					SameSite: http.SameSiteStrictMode,
				})
			}
			r = r.WithContext(context.WithValue(r.Context(), csrfKey, token))

			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			submitted := r.Header.Get(CSRFHeaderName)
			if submitted == "" {
				submitted = r.FormValue(CSRFFormField)
			}
			if subtle.ConstantTimeCompare([]byte(token), []byte(submitted)) != 1 {
				http.Error(w, "CSRF token mismatch", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CSRFToken returns the token for the current request.
func CSRFToken(r *http.Request) string {
	if t, ok := r.Context().Value(csrfKey).(string); ok {
		return t
	}
	if c, err := r.Cookie(CSRFCookieName); err == nil {
		return c.Value
	}
	return ""
}

func generateCSRFToken() (string, error) {
	b := make([]byte, csrfTokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

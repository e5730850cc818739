package middleware

import (
	"log/slog"
	"net/http"

	"schoolarchives/internal/branch"
)

// BranchContext validates the visitor's branch cookie against the store
// and attaches the branch to the request context. A corrupt cookie or
// one naming a deleted branch is cleared; a renamed branch gets a refreshed cookie.
func BranchContext(finder branch.Finder, secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sel := branch.Load(r)
			if sel == nil {
				if _, err := r.Cookie(branch.CookieName); err == nil {
					branch.Clear(w)
				}
				next.ServeHTTP(w, r)
				return
			}

			b, err := sel.Validate(r.Context(), finder)
			if err != nil {
				// Keep the cookie; the lookup failure may be transient.
				slog.Warn("branch validation failed", "branch_id", sel.ID, "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if b == nil {
				branch.Clear(w)
				next.ServeHTTP(w, r)
				return
			}
			if sel.Stale(b) {
				branch.Save(w, b, secure)
			}
			next.ServeHTTP(w, r.WithContext(branch.WithBranch(r.Context(), b)))
		})
	}
}

// RequireBranch sends visitors without a selected branch to the picker.
func RequireBranch(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if branch.FromContext(r.Context()) == nil {
			http.Redirect(w, r, "/branches?next="+r.URL.EscapedPath(), http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

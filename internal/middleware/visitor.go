package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// VisitorCookieName identifies anonymous visitors for reactions and
// comment ownership.
const VisitorCookieName = "sa_visitor"

const visitorKey contextKey = "visitor"

// Visitor ensures every request carries a visitor id, issuing a
// year-long cookie on first contact.
func Visitor(secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var id uuid.UUID
			if c, err := r.Cookie(VisitorCookieName); err == nil {
				id, _ = uuid.Parse(c.Value)
			}
			if id == uuid.Nil {
				id = uuid.New()
				http.SetCookie(w, &http.Cookie{
					Name:     VisitorCookieName,
					Value:    id.String(),
					Path:     "/",
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
					MaxAge:   int((365 * 24 * time.Hour).Seconds()),
				})
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), visitorKey, id.String())))
		})
	}
}

// VisitorID returns the visitor id set by Visitor, or "".
func VisitorID(ctx context.Context) string {
	id, _ := ctx.Value(visitorKey).(string)
	return id
}

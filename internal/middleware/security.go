// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"net/http"
	"strings"
)

// SecureHeaders sets the browser hardening headers. imageHosts are extra
// origins allowed in img-src, typically the public photo bucket URL.
func SecureHeaders(imageHosts ...string) func(http.Handler) http.Handler {
	img := append([]string{"'self'", "data:"}, imageHosts...)
	csp := strings.Join([]string{
		"default-src 'self'",
		"img-src " + strings.Join(img, " "),
		"style-src 'self' 'unsafe-inline'",
		"script-src 'self' 'unsafe-inline' https://unpkg.com",
		"connect-src 'self'",
		"frame-ancestors 'self'",
	}, "; ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "SAMEORIGIN")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			h.Set("Content-Security-Policy", csp)
			next.ServeHTTP(w, r)
		})
	}
}

// BodyLimit caps request bodies before anything parses them. Multipart
// uploads get the larger limit.
func BodyLimit(form, multipart int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				limit := form
				if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
					limit = multipart
				}
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}

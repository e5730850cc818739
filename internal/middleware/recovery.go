// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var recoveredPanics = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "schoolarchives",
	Name:      "http_panics_recovered_total",
	Help:      "Handler panics turned into 500 responses.",
})

// Recoverer turns a handler panic into a 500 response and logs the stack.
// http.ErrAbortHandler is re-raised so net/http can abort the connection.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			recoveredPanics.Inc()
			slog.Error("panic recovered",
				"error", rec,
				"method", r.Method,
				"path", r.URL.Path,
				"stack", string(debug.Stack()),
			)
			http.Error(w, "Something went wrong. Please try again.", http.StatusInternalServerError)
		}()

		next.ServeHTTP(w, r)
	})
}

// Package router sets up all HTTP routes and middleware chains of the
// archive server. Routes are organized into the public site, the visitor
// JSON/websocket API, and the admin area.
package router

import (
	"context"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"schoolarchives/internal/branch"
	"schoolarchives/internal/handlers"
	"schoolarchives/internal/middleware"
	"schoolarchives/web"
)

// Deps carries everything New wires into the route tree.
type Deps struct {
	Sessions middleware.SessionLoader
	Branches branch.Finder
	Admin    *handlers.Admin
	Auth     *handlers.Auth
	Public   *handlers.Public
	Social   *handlers.Social

	// LoginLimiter throttles POST /admin/login per client IP. Optional.
	LoginLimiter *middleware.RateLimiter

	// Registry backs /metrics. Optional.
	Registry *prometheus.Registry

	// Ping reports backend health for /health. Optional.
	Ping func(ctx context.Context) error

	// ImageHosts are extra img-src origins, such as the photo bucket.
	ImageHosts    []string
	SecureCookies bool
}

// New creates the chi router with all middleware and route groups.
func New(d Deps) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	if d.Registry != nil {
		r.Use(middleware.NewMetrics(d.Registry).Middleware)
	}
	r.Use(middleware.SecureHeaders(d.ImageHosts...))

	r.Get("/health", healthHandler(d.Ping))
	if d.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))
	}
	r.Handle("/static/*", staticHandler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.BodyLimit(handlers.MaxFormBody, handlers.MaxMultipartBody))
		r.Use(middleware.CSRF(d.SecureCookies))

		r.Route("/admin", func(r chi.Router) { adminRoutes(r, d) })

		r.Group(func(r chi.Router) {
			r.Use(middleware.Visitor(d.SecureCookies))
			r.Use(middleware.BranchContext(d.Branches, d.SecureCookies))
			publicRoutes(r, d)
		})
	})

	// Deeper unknown paths; single segments are taken by /{slug}.
	r.NotFound(chi.Chain(middleware.BranchContext(d.Branches, d.SecureCookies)).HandlerFunc(d.Public.NotFound).ServeHTTP)

	return r
}

func publicRoutes(r chi.Router, d Deps) {
	p, s := d.Public, d.Social

	// Listings are scoped to a campus; without one the visitor picks first.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireBranch)
		r.Get("/", p.Home)
		r.Get("/memories", p.Memories)
		r.Get("/events", p.Events)
		r.Get("/farewell-2025", p.Farewell)
	})
	r.Get("/about", p.About)
	r.Get("/collection/{id}", p.Collection)
	r.Get("/page/{slug}", p.Page)

	r.Get("/branches", p.BranchesPage)
	r.Post("/branches", p.BranchSelect)
	r.Post("/branches/clear", p.BranchesClear)

	r.Get("/photos/{id}/reactions", s.Reactions)
	r.Post("/photos/{id}/reactions", s.ToggleReaction)
	r.Get("/photos/{id}/comments", s.Comments)
	r.Post("/photos/{id}/comments", s.AddComment)
	r.Delete("/comments/{id}", s.DeleteComment)
	r.Get("/ws/photos/{id}", s.Watch)

	r.Get("/{slug}", p.SlugFallback)
}

func adminRoutes(r chi.Router, d Deps) {
	a, auth := d.Admin, d.Auth
	r.Use(middleware.LoadSession(d.Sessions))

	r.Get("/login", auth.LoginPage)
	if d.LoginLimiter != nil {
		r.With(d.LoginLimiter.Middleware).Post("/login", auth.LoginSubmit)
	} else {
		r.Post("/login", auth.LoginSubmit)
	}
	r.Post("/logout", auth.Logout)

	// Signed in, 2FA pending.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/2fa", auth.TwoFA)
		r.Get("/2fa/setup", auth.TwoFASetupPage)
		r.Get("/2fa/verify", auth.TwoFAVerifyPage)
		r.Post("/2fa/verify", auth.TwoFAVerifySubmit)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Use(middleware.Require2FA)

		r.Get("/", a.Dashboard)
		r.Get("/dashboard", a.Dashboard)

		r.Route("/pages", func(r chi.Router) {
			r.Get("/", a.PagesList)
			r.Get("/new", a.PageNew)
			r.Post("/", a.PageCreate)
			r.Get("/{id}", a.PageEdit)
			r.Post("/{id}", a.PageUpdate)
			r.Post("/{id}/publish", a.PageTogglePublish)
			r.Delete("/{id}", a.PageDelete)

			r.Post("/{id}/sections", a.SectionAdd)
			r.Post("/{id}/sections/reorder", a.SectionsReorder)

			r.Get("/{id}/students", a.StudentsList)
			r.Get("/{id}/students/new", a.StudentNew)
			r.Post("/{id}/students", a.StudentCreate)
			r.Post("/{id}/students/reorder", a.StudentsReorder)
		})

		r.Route("/sections", func(r chi.Router) {
			r.Get("/{id}", a.SectionEdit)
			r.Post("/{id}", a.SectionUpdate)
			r.Delete("/{id}", a.SectionDelete)
		})

		r.Route("/students", func(r chi.Router) {
			r.Get("/{id}", a.StudentEdit)
			r.Post("/{id}", a.StudentUpdate)
			r.Delete("/{id}", a.StudentDelete)
			r.Post("/{id}/achievements", a.AchievementAdd)
		})
		r.Delete("/achievements/{id}", a.AchievementDelete)

		r.Route("/collections", func(r chi.Router) {
			r.Get("/", a.CollectionsList)
			r.Get("/new", a.CollectionNew)
			r.Post("/", a.CollectionCreate)
			r.Get("/{id}", a.CollectionEdit)
			r.Post("/{id}", a.CollectionUpdate)
			r.Delete("/{id}", a.CollectionDelete)
			r.Post("/{id}/photos", a.PhotosUpload)
			r.Post("/{id}/photos/reorder", a.PhotosReorder)
		})

		r.Route("/photos", func(r chi.Router) {
			r.Delete("/{id}", a.PhotoDelete)
			r.Post("/{id}/caption", a.PhotoCaption)
		})

		r.Route("/tags", func(r chi.Router) {
			r.Get("/", a.TagsList)
			r.Post("/", a.TagCreate)
			r.Delete("/{id}", a.TagDelete)
		})

		r.Get("/content", a.SiteContentEdit)
		r.Post("/content", a.SiteContentSave)

		// Campuses are admin only.
		r.Route("/branches", func(r chi.Router) {
			r.Use(middleware.RequireAdmin)
			r.Get("/", a.BranchesList)
			r.Post("/", a.BranchCreate)
			r.Delete("/{id}", a.BranchDelete)
		})
	})
}

// staticHandler serves the embedded web/static tree under /static/.
func staticHandler() http.Handler {
	sub, err := fs.Sub(web.StaticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

// healthHandler reports "ok", or 503 when ping fails.
func healthHandler(ping func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status":"unavailable"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}
}

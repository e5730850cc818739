// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"schoolarchives/internal/branch"
	"schoolarchives/internal/cache"
	"schoolarchives/internal/engine"
	"schoolarchives/internal/models"
	"schoolarchives/internal/render"
	"schoolarchives/internal/sitecontent"
	"schoolarchives/internal/store"
)

// homeCollections is the number of featured collections on the home page.
const homeCollections = 6

// errNotFound makes a cached page builder answer 404.
var errNotFound = errors.New("not found")

// Public serves the visitor-facing site. Rendered documents are kept in
// the Valkey page cache keyed by path and selected branch; preview
// renders, redirects and error pages bypass it.
type Public struct {
	renderer *render.Renderer
	st       Stores
	engine   *engine.Engine
	pages    *cache.PageCache
	secure   bool
}

// NewPublic creates the public handlers. pages may be nil to disable caching.
func NewPublic(renderer *render.Renderer, st Stores, eng *engine.Engine, pages *cache.PageCache, secure bool) *Public {
	return &Public{renderer: renderer, st: st, engine: eng, pages: pages, secure: secure}
}

// site loads the site settings; a failure still yields usable defaults.
func (p *Public) site(ctx context.Context) sitecontent.Settings {
	s, err := sitecontent.Load(ctx, p.st.SiteContent)
	if err != nil {
		slog.Warn("site content unavailable, using defaults", "error", err)
	}
	return s
}

// serve writes the cached document for path or builds, caches and writes
// a fresh one. build returns errNotFound for a missing entity.
func (p *Public) serve(w http.ResponseWriter, r *http.Request, path string, build func(ctx context.Context) (string, *render.PublicData, error)) {
	ctx := r.Context()
	key := cache.Key(path, branch.IDFromContext(ctx))
	if p.pages != nil {
		if body, ok := p.pages.Get(ctx, key); ok {
			w.Header().Set("X-Cache", "HIT")
			render.WriteHTML(w, http.StatusOK, body)
			return
		}
	}

	name, data, err := build(ctx)
	if errors.Is(err, errNotFound) {
		p.NotFound(w, r)
		return
	}
	if err != nil {
		slog.Error("public page failed", "path", path, "error", err)
		p.errorPage(w, r)
		return
	}
	body, err := p.renderer.RenderPublic(r, name, data)
	if err != nil {
		slog.Error("public template failed", "template", name, "error", err)
		p.errorPage(w, r)
		return
	}
	if p.pages != nil {
		p.pages.Set(ctx, key, body)
	}
	w.Header().Set("X-Cache", "MISS")
	render.WriteHTML(w, http.StatusOK, body)
}

// Home lists the featured collections of the selected branch and links
// its farewell page.
func (p *Public) Home(w http.ResponseWriter, r *http.Request) {
	p.serve(w, r, "/", func(ctx context.Context) (string, *render.PublicData, error) {
		bid := branch.IDFromContext(ctx)
		cols, err := p.st.Collections.List(ctx, store.CollectionFilter{BranchID: bid, FeaturedOnly: true, Limit: homeCollections})
		if err != nil {
			return "", nil, err
		}
		farewell, err := p.st.Pages.LatestPublishedByType(ctx, bid, models.PageTypeFarewell)
		if err != nil {
			return "", nil, err
		}
		site := p.site(ctx)
		return "home", &render.PublicData{
			Title: site.SiteName,
			Site:  site,
			Data:  map[string]any{"Collections": cols, "Farewell": farewell},
		}, nil
	})
}

// Memories lists every collection of the branch, optionally by tag.
func (p *Public) Memories(w http.ResponseWriter, r *http.Request) {
	var tagID *uuid.UUID
	path := "/memories"
	if id, err := uuid.Parse(r.URL.Query().Get("tag")); err == nil {
		tagID = &id
		path += "?tag=" + id.String()
	}

	p.serve(w, r, path, func(ctx context.Context) (string, *render.PublicData, error) {
		tags, err := p.st.Tags.List(ctx)
		if err != nil {
			return "", nil, err
		}
		cols, err := p.st.Collections.List(ctx, store.CollectionFilter{BranchID: branch.IDFromContext(ctx), TagID: tagID})
		if err != nil {
			return "", nil, err
		}
		return "memories", &render.PublicData{
			Title: "Memories",
			Site:  p.site(ctx),
			Path:  "/memories",
			Data:  map[string]any{"Tags": tags, "ActiveTag": tagID, "Collections": cols},
		}, nil
	})
}

// Events groups the branch's collections by tag.
func (p *Public) Events(w http.ResponseWriter, r *http.Request) {
	p.serve(w, r, "/events", func(ctx context.Context) (string, *render.PublicData, error) {
		groups, err := p.st.Collections.EventGroups(ctx, branch.IDFromContext(ctx))
		if err != nil {
			return "", nil, err
		}
		return "events", &render.PublicData{
			Title: "Events",
			Site:  p.site(ctx),
			Data:  map[string]any{"Groups": groups},
		}, nil
	})
}

// About renders the about text from site content.
func (p *Public) About(w http.ResponseWriter, r *http.Request) {
	p.serve(w, r, "/about", func(ctx context.Context) (string, *render.PublicData, error) {
		site := p.site(ctx)
		return "about", &render.PublicData{Title: site.About.Heading, Site: site}, nil
	})
}

// Collection shows one collection with its photos. Reactions and comments
// are loaded by the browser so the document stays cacheable.
func (p *Public) Collection(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		p.NotFound(w, r)
		return
	}
	p.serve(w, r, "/collection/"+id.String(), func(ctx context.Context) (string, *render.PublicData, error) {
		c, err := p.st.Collections.FindByID(ctx, id)
		if err != nil {
			return "", nil, err
		}
		if c == nil {
			return "", nil, errNotFound
		}
		photos, err := p.st.Photos.ListByCollection(ctx, id, 0)
		if err != nil {
			return "", nil, err
		}
		return "collection", &render.PublicData{
			Title:       c.Title,
			Description: models.Deref(c.Description),
			Site:        p.site(ctx),
			Data:        map[string]any{"Collection": c, "Photos": photos},
		}, nil
	})
}

// pageDocument renders a custom page's sections into the page template.
func (p *Public) pageDocument(ctx context.Context, page *models.CustomPage, preview bool) (string, *render.PublicData, error) {
	secs, err := p.st.Pages.ListSections(ctx, page.ID)
	if err != nil {
		return "", nil, err
	}
	body, err := p.engine.RenderPage(ctx, page, secs)
	if err != nil {
		return "", nil, err
	}
	return "page", &render.PublicData{
		Title:       page.Title,
		Description: models.Deref(page.MetaDescription),
		Site:        p.site(ctx),
		Body:        body,
		Data:        map[string]any{"Preview": preview, "Published": page.IsPublished},
	}, nil
}

// Page renders /page/{slug}. Unpublished pages are 404 unless ?preview=1
// is given; previews are never cached.
func (p *Public) Page(w http.ResponseWriter, r *http.Request) {
	pageSlug := chi.URLParam(r, "slug")
	if r.URL.Query().Get("preview") == "1" {
		p.preview(w, r, pageSlug)
		return
	}
	p.serve(w, r, "/page/"+pageSlug, func(ctx context.Context) (string, *render.PublicData, error) {
		page, err := p.st.Pages.FindBySlug(ctx, pageSlug, false)
		if err != nil {
			return "", nil, err
		}
		if page == nil {
			return "", nil, errNotFound
		}
		return p.pageDocument(ctx, page, false)
	})
}

func (p *Public) preview(w http.ResponseWriter, r *http.Request, pageSlug string) {
	ctx := r.Context()
	page, err := p.st.Pages.FindBySlug(ctx, pageSlug, true)
	if err != nil {
		slog.Error("preview lookup failed", "slug", pageSlug, "error", err)
		p.errorPage(w, r)
		return
	}
	if page == nil {
		p.NotFound(w, r)
		return
	}
	name, data, err := p.pageDocument(ctx, page, true)
	if err != nil {
		slog.Error("preview render failed", "slug", pageSlug, "error", err)
		p.errorPage(w, r)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	p.renderer.Public(w, r, http.StatusOK, name, data)
}

// Farewell renders the newest published farewell page of the branch
// under the ceremony header.
func (p *Public) Farewell(w http.ResponseWriter, r *http.Request) {
	p.serve(w, r, "/farewell-2025", func(ctx context.Context) (string, *render.PublicData, error) {
		site := p.site(ctx)
		data := &render.PublicData{Title: site.Ceremony.Title, Site: site}
		page, err := p.st.Pages.LatestPublishedByType(ctx, branch.IDFromContext(ctx), models.PageTypeFarewell)
		if err != nil {
			return "", nil, err
		}
		if page == nil {
			return "farewell", data, nil
		}
		secs, err := p.st.Pages.ListSections(ctx, page.ID)
		if err != nil {
			return "", nil, err
		}
		if data.Body, err = p.engine.RenderPage(ctx, page, secs); err != nil {
			return "", nil, err
		}
		return "farewell", data, nil
	})
}

// SlugFallback resolves /{slug}: a published page redirects to
// /page/{slug}, otherwise a student route slug renders the tribute.
func (p *Public) SlugFallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	segment := chi.URLParam(r, "slug")

	page, err := p.st.Pages.FindBySlug(ctx, segment, false)
	if err != nil {
		slog.Error("slug lookup failed", "slug", segment, "error", err)
		p.errorPage(w, r)
		return
	}
	if page != nil {
		http.Redirect(w, r, "/page/"+page.Slug, http.StatusFound)
		return
	}

	st, err := p.st.Students.FindByRouteSlug(ctx, segment)
	if err != nil {
		slog.Error("route slug lookup failed", "slug", segment, "error", err)
		p.errorPage(w, r)
		return
	}
	if st == nil || st.RouteSlug == nil {
		p.NotFound(w, r)
		return
	}
	if r.URL.Path != *st.RouteSlug {
		http.Redirect(w, r, *st.RouteSlug, http.StatusMovedPermanently)
		return
	}
	p.tribute(w, r, st)
}

func (p *Public) tribute(w http.ResponseWriter, r *http.Request, st *models.StudentTribute) {
	p.serve(w, r, *st.RouteSlug, func(ctx context.Context) (string, *render.PublicData, error) {
		page, err := p.st.Pages.FindByID(ctx, st.PageID)
		if err != nil {
			return "", nil, err
		}
		if page == nil || !page.IsPublished {
			return "", nil, errNotFound
		}
		achievements, err := p.st.Students.ListAchievements(ctx, st.ID)
		if err != nil {
			return "", nil, err
		}
		site := p.site(ctx)
		body, err := p.engine.RenderTribute(page, st, achievements, site.Ceremony.AccentColor)
		if err != nil {
			return "", nil, err
		}
		return "tribute", &render.PublicData{
			Title:       st.DisplayName(),
			Description: models.Deref(st.Quote),
			Site:        site,
			Body:        body,
		}, nil
	})
}

// BranchesPage renders the campus picker. It carries the CSRF token and
// is never cached.
func (p *Public) BranchesPage(w http.ResponseWriter, r *http.Request) {
	p.branchesPage(w, r, http.StatusOK, safeNext(r.URL.Query().Get("next")))
}

func (p *Public) branchesPage(w http.ResponseWriter, r *http.Request, status int, next string) {
	ctx := r.Context()
	branches, err := p.st.Branches.List(ctx)
	if err != nil {
		slog.Error("list branches failed", "error", err)
	}
	w.Header().Set("Cache-Control", "no-store")
	p.renderer.Public(w, r, status, "branches", &render.PublicData{
		Title: "Choose your campus",
		Site:  p.site(ctx),
		Data: map[string]any{
			"Branches": branches,
			"Next":     next,
			"Selected": branch.IDFromContext(ctx),
		},
	})
}

// BranchSelect stores the chosen branch in the selection cookie.
func (p *Public) BranchSelect(w http.ResponseWriter, r *http.Request) {
	next := safeNext(r.FormValue("next"))
	id, err := uuid.Parse(r.FormValue("branch_id"))
	if err != nil {
		p.branchesPage(w, r, http.StatusBadRequest, next)
		return
	}
	b, err := p.st.Branches.FindByID(r.Context(), id)
	if err != nil {
		slog.Error("find branch failed", "error", err, "id", id)
		p.errorPage(w, r)
		return
	}
	if b == nil {
		p.branchesPage(w, r, http.StatusUnprocessableEntity, next)
		return
	}
	branch.Save(w, b, p.secure)
	http.Redirect(w, r, next, http.StatusSeeOther)
}

// BranchesClear drops the branch selection.
func (p *Public) BranchesClear(w http.ResponseWriter, r *http.Request) {
	branch.Clear(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// NotFound renders the site's 404 page.
func (p *Public) NotFound(w http.ResponseWriter, r *http.Request) {
	p.renderer.Public(w, r, http.StatusNotFound, "not_found", &render.PublicData{
		Title: "Page not found",
		Site:  p.site(r.Context()),
	})
}

func (p *Public) errorPage(w http.ResponseWriter, r *http.Request) {
	p.renderer.Public(w, r, http.StatusInternalServerError, "not_found", &render.PublicData{
		Title: "Something went wrong",
		Site:  p.site(r.Context()),
		Data: map[string]any{
			"Heading": "Something went wrong",
			"Message": "This page could not be loaded. Please try again shortly.",
		},
	})
}

// safeNext keeps redirects on this site.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, `/\`) {
		return "/"
	}
	return next
}

// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers contains the HTTP handlers for School Archives.
// Handlers are grouped by concern (admin, public, auth, social) and
// receive their dependencies through the handler struct.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"schoolarchives/internal/cache"
	"schoolarchives/internal/models"
	"schoolarchives/internal/render"
	"schoolarchives/internal/sitecontent"
	"schoolarchives/internal/storage"
	"schoolarchives/internal/store"
)

// Stores bundles the data stores shared by the handler groups.
type Stores struct {
	Pages       *store.PageStore
	Students    *store.StudentStore
	Collections *store.CollectionStore
	Photos      *store.PhotoStore
	Tags        *store.TagStore
	Branches    *store.BranchStore
	SiteContent *store.SiteContentStore
	Social      *store.SocialStore
	Users       *store.UserStore
	CacheLog    *store.CacheLogStore
}

// Admin groups all admin panel HTTP handlers and their dependencies.
type Admin struct {
	renderer *render.Renderer
	st       Stores
	storage  *storage.Client
	inv      *cache.Invalidator
}

// NewAdmin creates a new Admin handler group. storageClient may be nil
// when S3 is not configured; photo upload is then disabled.
func NewAdmin(renderer *render.Renderer, st Stores, storageClient *storage.Client, inv *cache.Invalidator) *Admin {
	return &Admin{renderer: renderer, st: st, storage: storageClient, inv: inv}
}

// Dashboard renders the admin dashboard with counts and recent cache activity.
func (a *Admin) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pageCount, err := a.st.Pages.Count(ctx)
	if err != nil {
		slog.Error("count pages failed", "error", err)
	}
	collectionCount, err := a.st.Collections.Count(ctx)
	if err != nil {
		slog.Error("count collections failed", "error", err)
	}
	branches, err := a.st.Branches.List(ctx)
	if err != nil {
		slog.Error("list branches failed", "error", err)
	}
	entries, err := a.st.CacheLog.RecentEntries(ctx, 10)
	if err != nil {
		slog.Error("recent cache log failed", "error", err)
	}

	a.renderer.Page(w, r, "dashboard", &render.PageData{
		Title:   "Dashboard",
		Section: "dashboard",
		Flashes: flashesFrom(r),
		Data: map[string]any{
			"PageCount":       pageCount,
			"CollectionCount": collectionCount,
			"BranchCount":     len(branches),
			"CacheLog":        entries,
		},
	})
}

// --- Branches ---

// BranchesList renders the branch management page.
func (a *Admin) BranchesList(w http.ResponseWriter, r *http.Request) {
	a.branchesPage(w, r, http.StatusOK, "")
}

func (a *Admin) branchesPage(w http.ResponseWriter, r *http.Request, status int, errMsg string) {
	branches, err := a.st.Branches.List(r.Context())
	if err != nil {
		slog.Error("list branches failed", "error", err)
	}
	a.renderer.PageStatus(w, r, status, "branches_list", &render.PageData{
		Title:   "Branches",
		Section: "branches",
		Flashes: flashesFrom(r),
		Data:    map[string]any{"Branches": branches, "Error": errMsg},
	})
}

// BranchCreate adds a branch.
func (a *Admin) BranchCreate(w http.ResponseWriter, r *http.Request) {
	name := r.FormValue("name")
	code := r.FormValue("code")
	if msg := validateBranch(name, code); msg != "" {
		a.branchesPage(w, r, http.StatusUnprocessableEntity, msg)
		return
	}
	b, err := a.st.Branches.Create(r.Context(), name, code, optional(r.FormValue("location")))
	if err != nil {
		slog.Error("create branch failed", "error", err)
		a.branchesPage(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}
	a.inv.All(r.Context(), "branch", b.ID, "create")
	redirectFlash(w, r, "/admin/branches", "created")
}

// BranchDelete removes a branch with everything it owns.
func (a *Admin) BranchDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	if err := a.st.Branches.Delete(r.Context(), id); err != nil {
		slog.Error("delete branch failed", "error", err, "id", id)
		http.Error(w, "Failed to delete branch.", http.StatusInternalServerError)
		return
	}
	a.inv.All(r.Context(), "branch", id, "delete")
	r.URL.RawQuery = "flash=deleted"
	a.branchesPage(w, r, http.StatusOK, "")
}

// --- Tags ---

// TagsList renders the tag management page.
func (a *Admin) TagsList(w http.ResponseWriter, r *http.Request) {
	a.tagsPage(w, r, http.StatusOK, "")
}

func (a *Admin) tagsPage(w http.ResponseWriter, r *http.Request, status int, errMsg string) {
	tags, err := a.st.Tags.List(r.Context())
	if err != nil {
		slog.Error("list tags failed", "error", err)
	}
	a.renderer.PageStatus(w, r, status, "tags_list", &render.PageData{
		Title:   "Tags",
		Section: "tags",
		Flashes: flashesFrom(r),
		Data:    map[string]any{"Tags": tags, "Error": errMsg},
	})
}

// TagCreate adds a tag.
func (a *Admin) TagCreate(w http.ResponseWriter, r *http.Request) {
	name, color := r.FormValue("name"), r.FormValue("color")
	if msg := validateTag(name, color); msg != "" {
		a.tagsPage(w, r, http.StatusUnprocessableEntity, msg)
		return
	}
	t, err := a.st.Tags.Create(r.Context(), name, color)
	if err != nil {
		slog.Error("create tag failed", "error", err)
		a.tagsPage(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}
	a.inv.All(r.Context(), "tag", t.ID, "create")
	redirectFlash(w, r, "/admin/tags", "created")
}

// TagDelete removes a tag; its collection links go with it.
func (a *Admin) TagDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	if err := a.st.Tags.Delete(r.Context(), id); err != nil {
		slog.Error("delete tag failed", "error", err, "id", id)
		http.Error(w, "Failed to delete tag.", http.StatusInternalServerError)
		return
	}
	a.inv.All(r.Context(), "tag", id, "delete")
	r.URL.RawQuery = "flash=deleted"
	a.tagsPage(w, r, http.StatusOK, "")
}

// --- Site content ---

// navRows is the number of navigation rows offered by the editor.
const navRows = 8

// SiteContentEdit renders the site content form.
func (a *Admin) SiteContentEdit(w http.ResponseWriter, r *http.Request) {
	s, err := sitecontent.Load(r.Context(), a.st.SiteContent)
	if err != nil {
		slog.Error("load site content failed", "error", err)
	}
	a.siteContentPage(w, r, http.StatusOK, s, "")
}

func (a *Admin) siteContentPage(w http.ResponseWriter, r *http.Request, status int, s sitecontent.Settings, errMsg string) {
	rows := make([]sitecontent.NavItem, navRows)
	copy(rows, s.Navigation)
	a.renderer.PageStatus(w, r, status, "site_content", &render.PageData{
		Title:   "Site content",
		Section: "content",
		Flashes: flashesFrom(r),
		Data:    map[string]any{"Settings": s, "NavRows": rows, "Error": errMsg},
	})
}

// SiteContentSave writes every site content key at the current schema version.
func (a *Admin) SiteContentSave(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	s := siteContentFromForm(r.Form)
	if msg := validateSiteContent(s); msg != "" {
		a.siteContentPage(w, r, http.StatusUnprocessableEntity, s, msg)
		return
	}
	if err := sitecontent.Save(r.Context(), a.st.SiteContent, s); err != nil {
		slog.Error("save site content failed", "error", err)
		a.siteContentPage(w, r, http.StatusInternalServerError, s, "Failed to save site content.")
		return
	}
	a.inv.All(r.Context(), "site_content", uuid.Nil, "update")
	redirectFlash(w, r, "/admin/content", "saved")
}

// siteContentFromForm reads the editor form, skipping fully blank nav rows.
func siteContentFromForm(f url.Values) sitecontent.Settings {
	s := sitecontent.Settings{
		SchemaVersion: sitecontent.SchemaVersion,
		SiteName:      strings.TrimSpace(f.Get("site_name")),
		Ceremony: sitecontent.Ceremony{
			Title:       strings.TrimSpace(f.Get("ceremony_title")),
			Subtitle:    strings.TrimSpace(f.Get("ceremony_subtitle")),
			Year:        strings.TrimSpace(f.Get("ceremony_year")),
			AccentColor: strings.TrimSpace(f.Get("ceremony_accent")),
		},
		About: sitecontent.About{
			Heading: strings.TrimSpace(f.Get("about_heading")),
			Body:    strings.TrimSpace(f.Get("about_body")),
		},
	}
	for i := 0; i < navRows; i++ {
		label := strings.TrimSpace(f.Get(navField(i, "label")))
		link := strings.TrimSpace(f.Get(navField(i, "url")))
		if label == "" && link == "" {
			continue
		}
		s.Navigation = append(s.Navigation, sitecontent.NavItem{Label: label, URL: link})
	}
	return s
}

func navField(i int, name string) string {
	return "nav_" + strconv.Itoa(i) + "_" + name
}

// --- helpers ---

// flashMessages maps the ?flash= keys set by redirects to their text.
var flashMessages = map[string]string{
	"created":     "Created.",
	"saved":       "Saved.",
	"deleted":     "Deleted.",
	"reordered":   "Order saved.",
	"uploaded":    "Photos uploaded.",
	"published":   "Page published.",
	"unpublished": "Page unpublished.",
}

func flashesFrom(r *http.Request) []render.Flash {
	if msg, ok := flashMessages[r.URL.Query().Get("flash")]; ok {
		return []render.Flash{{Type: "success", Message: msg}}
	}
	return nil
}

// redirectFlash sends a 303 to path with a flash key.
func redirectFlash(w http.ResponseWriter, r *http.Request, path, flash string) {
	http.Redirect(w, r, path+"?flash="+flash, http.StatusSeeOther)
}

// urlID parses the {id} route parameter, answering 404 when it is malformed.
func urlID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	return parseParam(w, r, "id")
}

func parseParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		http.NotFound(w, r)
		return uuid.Nil, false
	}
	return id, true
}

// optional returns nil for blank input and a trimmed pointer otherwise.
func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// field returns a pointer to the trimmed value, empty included, so partial
// updates can clear a column.
func field(s string) *string {
	s = strings.TrimSpace(s)
	return &s
}

// userMessage is the text shown for a failed write. Duplicate slugs keep
// the backend's own message.
func userMessage(err error, fallback string) string {
	switch {
	case errors.Is(err, store.ErrDuplicateSlug), errors.Is(err, store.ErrReservedSlug):
		return err.Error()
	case errors.Is(err, store.ErrStaleOrder):
		return "The order changed in another window. Reload and try again."
	case errors.Is(err, store.ErrOrderMismatch):
		return "The list changed since it was loaded. Reload and try again."
	}
	return fallback
}

func branchNames(branches []models.Branch) map[uuid.UUID]string {
	out := make(map[uuid.UUID]string, len(branches))
	for _, b := range branches {
		out[b.ID] = b.Name
	}
	return out
}

// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"schoolarchives/internal/catalog"
	"schoolarchives/internal/models"
	"schoolarchives/internal/render"
	"schoolarchives/internal/sections"
	"schoolarchives/internal/store"
)

// pageRow is one line of the pages table.
type pageRow struct {
	Page       models.CustomPage
	BranchName string
}

// PagesList renders the pages management page.
func (a *Admin) PagesList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pages, err := a.st.Pages.List(ctx, nil)
	if err != nil {
		slog.Error("list pages failed", "error", err)
	}
	branches, err := a.st.Branches.List(ctx)
	if err != nil {
		slog.Error("list branches failed", "error", err)
	}
	names := branchNames(branches)

	rows := make([]pageRow, 0, len(pages))
	for _, p := range pages {
		rows = append(rows, pageRow{Page: p, BranchName: names[p.BranchID]})
	}

	a.renderer.Page(w, r, "pages_list", &render.PageData{
		Title:   "Pages",
		Section: "pages",
		Flashes: flashesFrom(r),
		Data:    map[string]any{"Items": rows},
	})
}

// PageNew renders the new page form.
func (a *Admin) PageNew(w http.ResponseWriter, r *http.Request) {
	pt := models.PageTypeGeneric
	if q := models.PageType(r.URL.Query().Get("type")); q.Valid() {
		pt = q
	}
	a.pageNewForm(w, r, http.StatusOK, map[string]string{
		"page_type": string(pt),
		"template":  catalog.ForPageType(pt),
	}, "")
}

func (a *Admin) pageNewForm(w http.ResponseWriter, r *http.Request, status int, form map[string]string, errMsg string) {
	branches, err := a.st.Branches.List(r.Context())
	if err != nil {
		slog.Error("list branches failed", "error", err)
	}
	a.renderer.PageStatus(w, r, status, "page_new", &render.PageData{
		Title:   "New Page",
		Section: "pages",
		Data: map[string]any{
			"Form":      form,
			"Error":     errMsg,
			"Branches":  branches,
			"PageTypes": models.PageTypes,
			"Templates": catalog.List(),
		},
	})
}

// PageCreate creates a page, seeding it with the chosen template's sections.
func (a *Admin) PageCreate(w http.ResponseWriter, r *http.Request) {
	form := map[string]string{
		"title":            strings.TrimSpace(r.FormValue("title")),
		"slug":             strings.TrimSpace(r.FormValue("slug")),
		"page_type":        r.FormValue("page_type"),
		"branch_id":        r.FormValue("branch_id"),
		"template":         r.FormValue("template"),
		"meta_description": strings.TrimSpace(r.FormValue("meta_description")),
	}

	if msg := validatePage(form["title"], form["slug"], form["meta_description"]); msg != "" {
		a.pageNewForm(w, r, http.StatusUnprocessableEntity, form, msg)
		return
	}
	pt := models.PageType(form["page_type"])
	if !pt.Valid() {
		a.pageNewForm(w, r, http.StatusUnprocessableEntity, form, "Choose a page type.")
		return
	}
	branchID, err := uuid.Parse(form["branch_id"])
	if err != nil {
		a.pageNewForm(w, r, http.StatusUnprocessableEntity, form, "Choose a branch.")
		return
	}
	tmpl := form["template"]
	if tmpl == "" {
		tmpl = catalog.ForPageType(pt)
	}

	in := store.PageInput{
		Title:           form["title"],
		Slug:            form["slug"],
		PageType:        pt,
		BranchID:        branchID,
		MetaDescription: optional(form["meta_description"]),
	}
	var page *models.CustomPage
	if tmpl == catalog.BlankID {
		page, err = a.st.Pages.CreatePage(r.Context(), in)
	} else {
		page, err = a.st.Pages.CreateFromTemplate(r.Context(), in, tmpl)
	}
	if err != nil {
		slog.Error("create page failed", "error", err, "template", tmpl)
		msg := userMessage(err, "Failed to create page.")
		if errors.Is(err, catalog.ErrUnknownTemplate) {
			msg = "Unknown page template."
		}
		a.pageNewForm(w, r, http.StatusUnprocessableEntity, form, msg)
		return
	}

	a.inv.Paths(r.Context(), "page", page.ID, "create", "/page/"+page.Slug, "/"+page.Slug)
	redirectFlash(w, r, "/admin/pages/"+page.ID.String(), "created")
}

// sectionRow is one line of a page's section list.
type sectionRow struct {
	ID    uuid.UUID
	Type  string
	Label string
	Title string
	Known bool
}

// PageEdit renders the page form with its sections.
func (a *Admin) PageEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	page, err := a.st.Pages.FindByID(r.Context(), id)
	if err != nil {
		slog.Error("find page failed", "error", err, "id", id)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if page == nil {
		http.NotFound(w, r)
		return
	}
	a.pageEditForm(w, r, http.StatusOK, page, "")
}

func (a *Admin) pageEditForm(w http.ResponseWriter, r *http.Request, status int, page *models.CustomPage, errMsg string) {
	ctx := r.Context()
	secs, err := a.st.Pages.ListSections(ctx, page.ID)
	if err != nil {
		slog.Error("list sections failed", "error", err, "page_id", page.ID)
	}
	rows := make([]sectionRow, 0, len(secs))
	for _, s := range secs {
		t := sections.Type(s.SectionType)
		rows = append(rows, sectionRow{
			ID:    s.ID,
			Type:  s.SectionType,
			Label: sections.Label(t),
			Title: models.Deref(s.Title),
			Known: t.Valid(),
		})
	}

	descs := make([]sections.Descriptor, 0, len(sections.All()))
	for _, t := range sections.All() {
		d, _ := sections.Lookup(t)
		descs = append(descs, d)
	}

	branches, err := a.st.Branches.List(ctx)
	if err != nil {
		slog.Error("list branches failed", "error", err)
	}

	a.renderer.PageStatus(w, r, status, "page_edit", &render.PageData{
		Title:   page.Title,
		Section: "pages",
		Flashes: flashesFrom(r),
		Data: map[string]any{
			"Page":         page,
			"Sections":     rows,
			"SectionTypes": descs,
			"Branches":     branches,
			"PageTypes":    models.PageTypes,
			"Error":        errMsg,
		},
	})
}

// PageUpdate applies the page form as a partial update.
func (a *Admin) PageUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	before, err := a.st.Pages.FindByID(ctx, id)
	if err != nil || before == nil {
		if err != nil {
			slog.Error("find page failed", "error", err, "id", id)
		}
		http.NotFound(w, r)
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	slugIn := strings.TrimSpace(r.FormValue("slug"))
	metaDesc := r.FormValue("meta_description")
	if msg := validatePage(title, slugIn, metaDesc); msg != "" {
		a.pageEditForm(w, r, http.StatusUnprocessableEntity, before, msg)
		return
	}

	patch := store.PagePatch{
		Title:           &title,
		CoverImageURL:   field(r.FormValue("cover_image_url")),
		MetaDescription: field(metaDesc),
	}
	if slugIn != "" && slugIn != before.Slug {
		patch.Slug = &slugIn
	}
	if pt := models.PageType(r.FormValue("page_type")); pt != "" {
		patch.PageType = &pt
	}
	if b, err := uuid.Parse(r.FormValue("branch_id")); err == nil {
		patch.BranchID = &b
	}

	page, err := a.st.Pages.UpdatePage(ctx, id, patch)
	if err != nil {
		slog.Error("update page failed", "error", err, "id", id)
		a.pageEditForm(w, r, http.StatusUnprocessableEntity, before, userMessage(err, "Failed to save page."))
		return
	}

	a.inv.All(ctx, "page", id, "update")
	redirectFlash(w, r, "/admin/pages/"+page.ID.String(), "saved")
}

// PageTogglePublish flips the publish state and re-renders the list.
func (a *Admin) PageTogglePublish(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	published, err := a.st.Pages.TogglePublish(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		slog.Error("toggle publish failed", "error", err, "id", id)
		http.Error(w, "Failed to change publish state.", http.StatusInternalServerError)
		return
	}

	action, flash := "unpublish", "unpublished"
	if published {
		action, flash = "publish", "published"
	}
	a.inv.All(r.Context(), "page", id, action)
	r.URL.RawQuery = "flash=" + flash
	a.PagesList(w, r)
}

// PageDelete removes a page with its sections and students.
func (a *Admin) PageDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	if err := a.st.Pages.DeletePage(r.Context(), id); err != nil {
		slog.Error("delete page failed", "error", err, "id", id)
		http.Error(w, "Failed to delete page.", http.StatusInternalServerError)
		return
	}
	a.inv.All(r.Context(), "page", id, "delete")
	r.URL.RawQuery = "flash=deleted"
	a.PagesList(w, r)
}

// --- Sections ---

// SectionAdd inserts a section of the chosen type. A blank position
// appends it to the end.
func (a *Admin) SectionAdd(w http.ResponseWriter, r *http.Request) {
	pageID, ok := urlID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	page, err := a.st.Pages.FindByID(ctx, pageID)
	if err != nil || page == nil {
		http.NotFound(w, r)
		return
	}

	t := sections.Type(r.FormValue("section_type"))
	if !t.Valid() {
		a.pageEditForm(w, r, http.StatusUnprocessableEntity, page, sections.UnknownLabel+".")
		return
	}
	pos := store.AppendPosition
	if n, err := strconv.Atoi(strings.TrimSpace(r.FormValue("sort_order"))); err == nil {
		pos = n
	}

	sec, err := a.st.Pages.AddSection(ctx, pageID, t, strings.TrimSpace(r.FormValue("title")), pos)
	if err != nil {
		slog.Error("add section failed", "error", err, "page_id", pageID, "type", t)
		a.pageEditForm(w, r, http.StatusInternalServerError, page, "Failed to add section.")
		return
	}
	a.invalidatePage(r, page, sec.ID, "create")
	http.Redirect(w, r, "/admin/sections/"+sec.ID.String(), http.StatusSeeOther)
}

// fieldView is one rendered control of the generic section form.
type fieldView struct {
	Name        string
	Label       string
	Kind        sections.FieldKind
	InputType   string
	Placeholder string
	Help        string
	Value       string
	Checked     bool
	Options     []optionView
}

type optionView struct {
	Value    string
	Label    string
	Selected bool
}

// SectionEdit renders the section form built from the editor's fields.
func (a *Admin) SectionEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	sec, err := a.st.Pages.FindSection(r.Context(), id)
	if err != nil {
		slog.Error("find section failed", "error", err, "id", id)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if sec == nil {
		http.NotFound(w, r)
		return
	}
	a.sectionForm(w, r, http.StatusOK, sec, "")
}

func (a *Admin) sectionForm(w http.ResponseWriter, r *http.Request, status int, sec *models.PageSection, errMsg string) {
	t := sections.Type(sec.SectionType)
	desc, ok := sections.Lookup(t)
	if !ok {
		a.renderer.PageStatus(w, r, http.StatusUnprocessableEntity, "section_form", &render.PageData{
			Title:   sections.UnknownLabel,
			Section: "pages",
			Data:    map[string]any{"Section": sec, "Label": sections.UnknownLabel, "Error": sections.UnknownLabel + "."},
		})
		return
	}

	meta, err := sections.Decode(t, sec.Metadata)
	if err != nil {
		slog.Warn("section metadata unreadable, editing defaults", "section_id", sec.ID, "error", err)
	}
	fields, err := a.fieldViews(r, desc.Editor, meta, sec)
	if err != nil {
		slog.Error("load section form options failed", "error", err)
	}

	a.renderer.PageStatus(w, r, status, "section_form", &render.PageData{
		Title:   desc.Label,
		Section: "pages",
		Flashes: flashesFrom(r),
		Data: map[string]any{
			"Section": sec,
			"Label":   desc.Label,
			"Fields":  fields,
			"Error":   errMsg,
		},
	})
}

// fieldViews resolves each editor field to its current value and, for
// collection and page pickers, its option list.
func (a *Admin) fieldViews(r *http.Request, ed sections.Editor, meta sections.Metadata, sec *models.PageSection) ([]fieldView, error) {
	ctx := r.Context()
	values := ed.Values(meta)
	scalars := map[string]string{
		sections.FieldTitle:    models.Deref(sec.Title),
		sections.FieldSubtitle: models.Deref(sec.Subtitle),
		sections.FieldContent:  models.Deref(sec.Content),
		sections.FieldImageURL: models.Deref(sec.ImageURL),
	}

	var firstErr error
	out := make([]fieldView, 0, len(ed.Fields()))
	for _, f := range ed.Fields() {
		v := fieldView{Name: f.Name, Label: f.Label, Kind: f.Kind, Placeholder: f.Placeholder, Help: f.Help}
		if f.Meta {
			v.Value = values[f.Name]
		} else {
			v.Value = scalars[f.Name]
		}

		switch f.Kind {
		case sections.KindCheckbox:
			v.Checked = v.Value == "true"
		case sections.KindSelect:
			for _, o := range f.Options {
				v.Options = append(v.Options, optionView{Value: o, Label: o, Selected: o == v.Value})
			}
		case sections.KindCollection:
			cols, err := a.st.Collections.List(ctx, store.CollectionFilter{})
			if err != nil && firstErr == nil {
				firstErr = err
			}
			v.Options = append(v.Options, optionView{Value: "", Label: "None"})
			for _, c := range cols {
				id := c.ID.String()
				v.Options = append(v.Options, optionView{Value: id, Label: c.Title, Selected: id == v.Value})
			}
		case sections.KindPage:
			pages, err := a.st.Pages.List(ctx, nil)
			if err != nil && firstErr == nil {
				firstErr = err
			}
			v.Options = append(v.Options, optionView{Value: "", Label: "This page"})
			for _, p := range pages {
				if !p.IsFarewell() {
					continue
				}
				id := p.ID.String()
				v.Options = append(v.Options, optionView{Value: id, Label: p.Title, Selected: id == v.Value})
			}
		case sections.KindURL:
			v.InputType = "url"
		case sections.KindDate:
			v.InputType = "date"
		case sections.KindNumber:
			v.InputType = "number"
		default:
			v.InputType = "text"
		}
		out = append(out, v)
	}
	return out, firstErr
}

// SectionUpdate binds the form through the type's editor and applies it
// as a partial update with a shallow metadata merge.
func (a *Admin) SectionUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	sec, err := a.st.Pages.FindSection(ctx, id)
	if err != nil || sec == nil {
		http.NotFound(w, r)
		return
	}
	desc, ok := sections.Lookup(sections.Type(sec.SectionType))
	if !ok {
		a.sectionForm(w, r, http.StatusUnprocessableEntity, sec, "")
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	patch := desc.Editor.Bind(r.PostForm)
	if msg := validateSectionPatch(patch); msg != "" {
		a.sectionForm(w, r, http.StatusUnprocessableEntity, sec, msg)
		return
	}
	updated, err := a.st.Pages.UpdateSection(ctx, id, patch)
	if err != nil {
		slog.Error("update section failed", "error", err, "id", id)
		a.sectionForm(w, r, http.StatusInternalServerError, sec, "Failed to save section.")
		return
	}

	if page, err := a.st.Pages.FindByID(ctx, updated.PageID); err == nil && page != nil {
		a.invalidatePage(r, page, id, "update")
	}
	redirectFlash(w, r, "/admin/sections/"+id.String(), "saved")
}

// SectionDelete removes a section and re-renders its page form.
func (a *Admin) SectionDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	sec, err := a.st.Pages.FindSection(ctx, id)
	if err != nil || sec == nil {
		http.NotFound(w, r)
		return
	}
	if err := a.st.Pages.DeleteSection(ctx, id); err != nil {
		slog.Error("delete section failed", "error", err, "id", id)
		http.Error(w, "Failed to delete section.", http.StatusInternalServerError)
		return
	}

	page, err := a.st.Pages.FindByID(ctx, sec.PageID)
	if err != nil || page == nil {
		http.Redirect(w, r, "/admin/pages", http.StatusSeeOther)
		return
	}
	a.invalidatePage(r, page, id, "delete")
	r.URL.RawQuery = "flash=deleted"
	a.pageEditForm(w, r, http.StatusOK, page, "")
}

// SectionsReorder rewrites the page's section order from the submitted id
// list, optionally moving one entry first.
func (a *Admin) SectionsReorder(w http.ResponseWriter, r *http.Request) {
	pageID, ok := urlID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	page, err := a.st.Pages.FindByID(ctx, pageID)
	if err != nil || page == nil {
		http.NotFound(w, r)
		return
	}

	ids, version, err := reorderRequest(r)
	if err != nil {
		a.pageEditForm(w, r, http.StatusBadRequest, page, "Invalid order.")
		return
	}
	if _, err := a.st.Pages.ReorderSections(ctx, pageID, ids, version); err != nil {
		slog.Warn("reorder sections failed", "error", err, "page_id", pageID)
		a.pageEditForm(w, r, reorderStatus(err), page, userMessage(err, "Failed to reorder sections."))
		return
	}
	a.invalidatePage(r, page, pageID, "reorder")
	redirectFlash(w, r, "/admin/pages/"+pageID.String(), "reordered")
}

// invalidatePage drops the cached documents that show page's sections.
func (a *Admin) invalidatePage(r *http.Request, page *models.CustomPage, id uuid.UUID, action string) {
	paths := []string{"/page/" + page.Slug, "/" + page.Slug}
	if page.IsFarewell() {
		paths = append(paths, "/farewell-2025", "/")
	}
	a.inv.Paths(r.Context(), "section", id, action, paths...)
}

// reorderRequest reads the ordered ids, the optional "id|up" / "id|down"
// move and the version the list was rendered from.
func reorderRequest(r *http.Request) ([]uuid.UUID, int, error) {
	if err := r.ParseForm(); err != nil {
		return nil, 0, err
	}
	ids := make([]uuid.UUID, 0, len(r.PostForm["ids"]))
	for _, raw := range r.PostForm["ids"] {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, 0, err
		}
		ids = append(ids, id)
	}
	if mv := r.PostForm.Get("move"); mv != "" {
		raw, dir, _ := strings.Cut(mv, "|")
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, 0, err
		}
		ids = applyMove(ids, id, dir)
	}
	version, _ := strconv.Atoi(r.PostForm.Get("version"))
	return ids, version, nil
}

// reorderStatus maps a failed reorder to its response code: a list that
// no longer matches the stored items is a validation failure, a stale
// version is a conflict.
func reorderStatus(err error) int {
	switch {
	case errors.Is(err, store.ErrOrderMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrStaleOrder):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// applyMove swaps id with its neighbour in the given direction. Moves past
// either end and unknown ids leave the order unchanged.
func applyMove(ids []uuid.UUID, id uuid.UUID, dir string) []uuid.UUID {
	out := append([]uuid.UUID(nil), ids...)
	for i, cur := range out {
		if cur != id {
			continue
		}
		j := i - 1
		if dir == "down" {
			j = i + 1
		}
		if j < 0 || j >= len(out) {
			return out
		}
		out[i], out[j] = out[j], out[i]
		return out
	}
	return out
}

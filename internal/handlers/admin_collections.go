package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"schoolarchives/internal/imaging"
	"schoolarchives/internal/models"
	"schoolarchives/internal/render"
	"schoolarchives/internal/store"
)

const (
	// maxUploadSize is the largest single image accepted (25 MB).
	maxUploadSize = 25 << 20

	// MaxMultipartBody bounds a whole upload request; the router applies it.
	MaxMultipartBody = 8 * maxUploadSize

	// MaxFormBody bounds every other request body.
	MaxFormBody = 1 << 20
)

// allowedImageTypes are the sniffed content types accepted for upload.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// collectionRow is one line of the collections table.
type collectionRow struct {
	Collection models.Collection
	BranchName string
}

// CollectionsList renders the collections management page.
func (a *Admin) CollectionsList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cols, err := a.st.Collections.List(ctx, store.CollectionFilter{})
	if err != nil {
		slog.Error("list collections failed", "error", err)
	}
	branches, err := a.st.Branches.List(ctx)
	if err != nil {
		slog.Error("list branches failed", "error", err)
	}
	names := branchNames(branches)
	rows := make([]collectionRow, 0, len(cols))
	for _, c := range cols {
		rows = append(rows, collectionRow{Collection: c, BranchName: names[c.BranchID]})
	}

	a.renderer.Page(w, r, "collections_list", &render.PageData{
		Title:   "Collections",
		Section: "collections",
		Flashes: flashesFrom(r),
		Data:    map[string]any{"Items": rows},
	})
}

// CollectionNew renders an empty collection form.
func (a *Admin) CollectionNew(w http.ResponseWriter, r *http.Request) {
	c := &models.Collection{}
	if b := a.firstBranch(r); b != nil {
		c.BranchID = b.ID
	}
	a.collectionForm(w, r, http.StatusOK, c, true, "")
}

func (a *Admin) firstBranch(r *http.Request) *models.Branch {
	branches, err := a.st.Branches.List(r.Context())
	if err != nil || len(branches) == 0 {
		return nil
	}
	return &branches[0]
}

func (a *Admin) collectionForm(w http.ResponseWriter, r *http.Request, status int, c *models.Collection, isNew bool, errMsg string) {
	ctx := r.Context()
	branches, err := a.st.Branches.List(ctx)
	if err != nil {
		slog.Error("list branches failed", "error", err)
	}
	tags, err := a.st.Tags.List(ctx)
	if err != nil {
		slog.Error("list tags failed", "error", err)
	}
	var photos []models.Photo
	if !isNew {
		if photos, err = a.st.Photos.ListByCollection(ctx, c.ID, 0); err != nil {
			slog.Error("list photos failed", "error", err, "collection_id", c.ID)
		}
	}

	title := "New collection"
	if !isNew {
		title = c.Title
	}
	a.renderer.PageStatus(w, r, status, "collection_form", &render.PageData{
		Title:   title,
		Section: "collections",
		Flashes: flashesFrom(r),
		Data: map[string]any{
			"Collection":     c,
			"IsNew":          isNew,
			"Branches":       branches,
			"Tags":           tags,
			"Photos":         photos,
			"StorageEnabled": a.storage != nil,
			"Error":          errMsg,
		},
	})
}

// collectionFromForm reads the collection form. The returned tag ids are
// applied after the collection row is written.
func collectionFromForm(r *http.Request) (store.CollectionInput, []uuid.UUID, string) {
	if err := r.ParseForm(); err != nil {
		return store.CollectionInput{}, nil, "Invalid form."
	}
	in := store.CollectionInput{
		Title:         strings.TrimSpace(r.PostForm.Get("title")),
		Description:   optional(r.PostForm.Get("description")),
		CoverImageURL: optional(r.PostForm.Get("cover_image_url")),
		IsFeatured:    r.PostForm.Get("is_featured") == "on",
	}
	if msg := validateCollection(in.Title, models.Deref(in.Description)); msg != "" {
		return in, nil, msg
	}
	b, err := uuid.Parse(r.PostForm.Get("branch_id"))
	if err != nil {
		return in, nil, "Choose a branch."
	}
	in.BranchID = b
	if d := strings.TrimSpace(r.PostForm.Get("event_date")); d != "" {
		t, err := time.Parse("2006-01-02", d)
		if err != nil {
			return in, nil, "Event date must look like 2025-06-30."
		}
		in.EventDate = &t
	}

	var tagIDs []uuid.UUID
	for _, raw := range r.PostForm["tag_ids"] {
		if id, err := uuid.Parse(raw); err == nil {
			tagIDs = append(tagIDs, id)
		}
	}
	return in, tagIDs, ""
}

func collectionModel(id uuid.UUID, in store.CollectionInput, tagIDs []uuid.UUID) *models.Collection {
	c := &models.Collection{
		ID:            id,
		Title:         in.Title,
		Description:   in.Description,
		CoverImageURL: in.CoverImageURL,
		EventDate:     in.EventDate,
		BranchID:      in.BranchID,
		IsFeatured:    in.IsFeatured,
	}
	for _, t := range tagIDs {
		c.Tags = append(c.Tags, models.Tag{ID: t})
	}
	return c
}

// CollectionCreate inserts the collection, then attaches its tags.
func (a *Admin) CollectionCreate(w http.ResponseWriter, r *http.Request) {
	in, tagIDs, msg := collectionFromForm(r)
	if msg != "" {
		a.collectionForm(w, r, http.StatusUnprocessableEntity, collectionModel(uuid.Nil, in, tagIDs), true, msg)
		return
	}

	ctx := r.Context()
	c, err := a.st.Collections.Create(ctx, in)
	if err != nil {
		slog.Error("create collection failed", "error", err)
		a.collectionForm(w, r, http.StatusInternalServerError, collectionModel(uuid.Nil, in, tagIDs), true, "Failed to create collection.")
		return
	}
	if len(tagIDs) > 0 {
		if err := a.st.Collections.SetTags(ctx, c.ID, tagIDs); err != nil {
			// The collection exists; send the admin to it with the error.
			slog.Error("attach tags failed", "error", err, "collection_id", c.ID)
			a.collectionForm(w, r, http.StatusInternalServerError, c, false, "Collection created, but its tags could not be saved.")
			return
		}
	}

	a.inv.All(ctx, "collection", c.ID, "create")
	redirectFlash(w, r, "/admin/collections/"+c.ID.String(), "created")
}

// CollectionEdit renders the collection form with its photos.
func (a *Admin) CollectionEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	c, err := a.st.Collections.FindByID(r.Context(), id)
	if err != nil {
		slog.Error("find collection failed", "error", err, "id", id)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if c == nil {
		http.NotFound(w, r)
		return
	}
	a.collectionForm(w, r, http.StatusOK, c, false, "")
}

// CollectionUpdate saves the collection and replaces its tags.
func (a *Admin) CollectionUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	in, tagIDs, msg := collectionFromForm(r)
	if msg != "" {
		a.collectionForm(w, r, http.StatusUnprocessableEntity, collectionModel(id, in, tagIDs), false, msg)
		return
	}

	ctx := r.Context()
	err := a.st.Collections.Update(ctx, id, in)
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err == nil {
		err = a.st.Collections.SetTags(ctx, id, tagIDs)
	}
	if err != nil {
		slog.Error("update collection failed", "error", err, "id", id)
		a.collectionForm(w, r, http.StatusInternalServerError, collectionModel(id, in, tagIDs), false, "Failed to save collection.")
		return
	}

	a.inv.All(ctx, "collection", id, "update")
	redirectFlash(w, r, "/admin/collections/"+id.String(), "saved")
}

// CollectionDelete removes a collection and, best effort, its stored files.
func (a *Admin) CollectionDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	photos, err := a.st.Photos.ListByCollection(ctx, id, 0)
	if err != nil {
		slog.Warn("list photos before delete failed", "error", err, "collection_id", id)
	}
	if err := a.st.Collections.Delete(ctx, id); err != nil {
		slog.Error("delete collection failed", "error", err, "id", id)
		http.Error(w, "Failed to delete collection.", http.StatusInternalServerError)
		return
	}
	for _, p := range photos {
		a.deletePhotoFiles(r, &p)
	}

	a.inv.All(ctx, "collection", id, "delete")
	r.URL.RawQuery = "flash=deleted"
	a.CollectionsList(w, r)
}

// PhotosUpload stores every uploaded image in S3 with a thumbnail and
// appends it to the collection. The first photo becomes the cover when
// the collection has none.
func (a *Admin) PhotosUpload(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	c, err := a.st.Collections.FindByID(ctx, id)
	if err != nil || c == nil {
		http.NotFound(w, r)
		return
	}
	if a.storage == nil {
		a.collectionForm(w, r, http.StatusServiceUnavailable, c, false, "Object storage is not configured.")
		return
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		a.collectionForm(w, r, http.StatusRequestEntityTooLarge, c, false, "Upload too large.")
		return
	}
	files := r.MultipartForm.File["photos"]
	if len(files) == 0 {
		a.collectionForm(w, r, http.StatusBadRequest, c, false, "No file provided.")
		return
	}
	caption := optional(r.FormValue("caption"))

	var added int
	for _, fh := range files {
		if fh.Size > maxUploadSize {
			a.collectionForm(w, r, http.StatusRequestEntityTooLarge, c, false,
				fmt.Sprintf("%s is too large. Maximum size is 25 MB.", fh.Filename))
			return
		}
		data, err := readUpload(fh)
		if err != nil {
			slog.Error("read upload failed", "error", err, "file", fh.Filename)
			a.collectionForm(w, r, http.StatusInternalServerError, c, false, "Failed to read "+fh.Filename+".")
			return
		}
		if ct := http.DetectContentType(data); !allowedImageTypes[ct] {
			a.collectionForm(w, r, http.StatusBadRequest, c, false, fmt.Sprintf("File type %q is not allowed.", ct))
			return
		}

		urls, err := a.storage.PutPhoto(ctx, id, data)
		if errors.Is(err, imaging.ErrUnsupported) {
			a.collectionForm(w, r, http.StatusBadRequest, c, false, fh.Filename+" is not a readable image.")
			return
		}
		if err != nil {
			slog.Error("photo upload failed", "error", err, "collection_id", id)
			a.collectionForm(w, r, http.StatusInternalServerError, c, false, "Failed to upload "+fh.Filename+".")
			return
		}

		photo, err := a.st.Photos.Add(ctx, id, store.PhotoInput{ImageURL: urls.ImageURL, ThumbURL: &urls.ThumbURL, Caption: caption})
		if err != nil {
			slog.Error("photo insert failed", "error", err, "collection_id", id)
			if derr := a.storage.DeletePhoto(ctx, urls.ImageURL, urls.ThumbURL); derr != nil {
				slog.Warn("orphaned photo cleanup failed", "error", derr)
			}
			a.collectionForm(w, r, http.StatusInternalServerError, c, false, "Failed to save "+fh.Filename+".")
			return
		}
		if added == 0 {
			if err := a.st.Collections.SetCover(ctx, id, photo.ImageURL); err != nil {
				slog.Warn("set cover failed", "error", err, "collection_id", id)
			}
		}
		added++
	}

	slog.Info("photos uploaded", "collection_id", id, "count", added)
	a.inv.All(ctx, "collection", id, "upload")
	redirectFlash(w, r, "/admin/collections/"+id.String(), "uploaded")
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, maxUploadSize+1))
}

// PhotoDelete removes a photo row, then its stored files.
func (a *Admin) PhotoDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	p, err := a.st.Photos.Delete(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		slog.Error("delete photo failed", "error", err, "id", id)
		http.Error(w, "Failed to delete photo.", http.StatusInternalServerError)
		return
	}
	a.deletePhotoFiles(r, p)
	a.inv.All(ctx, "photo", id, "delete")

	c, err := a.st.Collections.FindByID(ctx, p.CollectionID)
	if err != nil || c == nil {
		http.Redirect(w, r, "/admin/collections", http.StatusSeeOther)
		return
	}
	r.URL.RawQuery = "flash=deleted"
	a.collectionForm(w, r, http.StatusOK, c, false, "")
}

// PhotoCaption replaces a photo's caption.
func (a *Admin) PhotoCaption(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	caption := r.FormValue("caption")
	if msg := validateCaption(caption); msg != "" {
		http.Error(w, msg, http.StatusUnprocessableEntity)
		return
	}
	if err := a.st.Photos.UpdateCaption(ctx, id, optional(caption)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		slog.Error("update caption failed", "error", err, "id", id)
		http.Error(w, "Failed to save caption.", http.StatusInternalServerError)
		return
	}
	p, err := a.st.Photos.FindByID(ctx, id)
	if err != nil || p == nil {
		http.NotFound(w, r)
		return
	}
	a.inv.All(ctx, "photo", id, "update")
	redirectFlash(w, r, "/admin/collections/"+p.CollectionID.String(), "saved")
}

// PhotosReorder rewrites a collection's photo order.
func (a *Admin) PhotosReorder(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	c, err := a.st.Collections.FindByID(ctx, id)
	if err != nil || c == nil {
		http.NotFound(w, r)
		return
	}
	ids, _, err := reorderRequest(r)
	if err != nil {
		a.collectionForm(w, r, http.StatusBadRequest, c, false, "Invalid order.")
		return
	}
	if err := a.st.Photos.Reorder(ctx, id, ids); err != nil {
		slog.Warn("reorder photos failed", "error", err, "collection_id", id)
		a.collectionForm(w, r, http.StatusConflict, c, false, userMessage(err, "Failed to reorder photos."))
		return
	}
	a.inv.All(ctx, "collection", id, "reorder")
	redirectFlash(w, r, "/admin/collections/"+id.String(), "reordered")
}

// deletePhotoFiles removes a photo's objects; failures only leave orphans.
func (a *Admin) deletePhotoFiles(r *http.Request, p *models.Photo) {
	if a.storage == nil {
		return
	}
	if err := a.storage.DeletePhoto(r.Context(), p.ImageURL, models.Deref(p.ThumbURL)); err != nil {
		slog.Warn("photo file delete failed", "error", err, "photo_id", p.ID)
	}
}

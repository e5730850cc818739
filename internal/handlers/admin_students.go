package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"schoolarchives/internal/models"
	"schoolarchives/internal/render"
	"schoolarchives/internal/store"
)

// StudentsList renders the tributes of a farewell page.
func (a *Admin) StudentsList(w http.ResponseWriter, r *http.Request) {
	pageID, ok := urlID(w, r)
	if !ok {
		return
	}
	page, err := a.st.Pages.FindByID(r.Context(), pageID)
	if err != nil || page == nil {
		http.NotFound(w, r)
		return
	}
	a.studentsPage(w, r, http.StatusOK, page, "")
}

func (a *Admin) studentsPage(w http.ResponseWriter, r *http.Request, status int, page *models.CustomPage, errMsg string) {
	students, err := a.st.Students.ListByPage(r.Context(), page.ID)
	if err != nil {
		slog.Error("list students failed", "error", err, "page_id", page.ID)
	}
	a.renderer.PageStatus(w, r, status, "students_list", &render.PageData{
		Title:   "Students",
		Section: "pages",
		Flashes: flashesFrom(r),
		Data:    map[string]any{"Page": page, "Students": students, "Error": errMsg},
	})
}

// StudentNew renders an empty tribute form.
func (a *Admin) StudentNew(w http.ResponseWriter, r *http.Request) {
	pageID, ok := urlID(w, r)
	if !ok {
		return
	}
	a.studentForm(w, r, http.StatusOK, pageID, &models.StudentTribute{PageID: pageID, Theme: models.ThemeClassic}, true, "")
}

func (a *Admin) studentForm(w http.ResponseWriter, r *http.Request, status int, pageID uuid.UUID, st *models.StudentTribute, isNew bool, errMsg string) {
	var achievements []models.StudentAchievement
	if !isNew {
		var err error
		achievements, err = a.st.Students.ListAchievements(r.Context(), st.ID)
		if err != nil {
			slog.Error("list achievements failed", "error", err, "student_id", st.ID)
		}
	}
	title := "New student"
	if !isNew {
		title = st.DisplayName()
	}
	a.renderer.PageStatus(w, r, status, "student_form", &render.PageData{
		Title:   title,
		Section: "pages",
		Flashes: flashesFrom(r),
		Data: map[string]any{
			"PageID":       pageID,
			"Student":      st,
			"IsNew":        isNew,
			"Themes":       models.Themes,
			"Achievements": achievements,
			"Error":        errMsg,
		},
	})
}

// studentFromForm reads the tribute form into a model used both for
// re-rendering and for building the store input.
func studentFromForm(r *http.Request, pageID uuid.UUID) *models.StudentTribute {
	st := &models.StudentTribute{
		PageID:       pageID,
		ShortName:    strings.TrimSpace(r.FormValue("short_name")),
		FullName:     optional(r.FormValue("full_name")),
		PhotoURL:     optional(r.FormValue("photo_url")),
		Quote:        optional(r.FormValue("quote")),
		FutureDreams: optional(r.FormValue("future_dreams")),
		ClassLabel:   optional(r.FormValue("class_label")),
		Traits:       splitTraits(r.FormValue("traits")),
		RouteSlug:    optional(r.FormValue("route_slug")),
		Theme:        models.Theme(r.FormValue("theme")),
	}
	if !st.Theme.Valid() {
		st.Theme = models.ThemeClassic
	}
	return st
}

func splitTraits(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// StudentCreate appends a tribute to the page.
func (a *Admin) StudentCreate(w http.ResponseWriter, r *http.Request) {
	pageID, ok := urlID(w, r)
	if !ok {
		return
	}
	in := studentFromForm(r, pageID)
	if msg := validateStudent(in); msg != "" {
		a.studentForm(w, r, http.StatusUnprocessableEntity, pageID, in, true, msg)
		return
	}

	st, err := a.st.Students.Create(r.Context(), pageID, store.StudentInput{
		ShortName:    in.ShortName,
		FullName:     in.FullName,
		PhotoURL:     in.PhotoURL,
		Quote:        in.Quote,
		FutureDreams: in.FutureDreams,
		ClassLabel:   in.ClassLabel,
		Traits:       in.Traits,
		RouteSlug:    models.Deref(in.RouteSlug),
		Theme:        in.Theme,
	})
	if err != nil {
		slog.Error("create student failed", "error", err, "page_id", pageID)
		a.studentForm(w, r, http.StatusUnprocessableEntity, pageID, in, true, userMessage(err, "Failed to add student."))
		return
	}
	a.inv.All(r.Context(), "student", st.ID, "create")
	redirectFlash(w, r, "/admin/pages/"+pageID.String()+"/students", "created")
}

// StudentEdit renders the tribute form with its achievements.
func (a *Admin) StudentEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	st, err := a.st.Students.FindByID(r.Context(), id)
	if err != nil {
		slog.Error("find student failed", "error", err, "id", id)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if st == nil {
		http.NotFound(w, r)
		return
	}
	a.studentForm(w, r, http.StatusOK, st.PageID, st, false, "")
}

// StudentUpdate saves every field of the tribute form.
func (a *Admin) StudentUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	current, err := a.st.Students.FindByID(ctx, id)
	if err != nil || current == nil {
		http.NotFound(w, r)
		return
	}

	in := studentFromForm(r, current.PageID)
	in.ID = id
	if msg := validateStudent(in); msg != "" {
		a.studentForm(w, r, http.StatusUnprocessableEntity, current.PageID, in, false, msg)
		return
	}

	route := models.Deref(in.RouteSlug)
	_, err = a.st.Students.Update(ctx, id, store.StudentPatch{
		ShortName:    &in.ShortName,
		FullName:     field(models.Deref(in.FullName)),
		PhotoURL:     field(models.Deref(in.PhotoURL)),
		Quote:        field(models.Deref(in.Quote)),
		FutureDreams: field(models.Deref(in.FutureDreams)),
		ClassLabel:   field(models.Deref(in.ClassLabel)),
		Traits:       in.Traits,
		SetTraits:    true,
		RouteSlug:    &route,
		Theme:        &in.Theme,
	})
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		slog.Error("update student failed", "error", err, "id", id)
		a.studentForm(w, r, http.StatusUnprocessableEntity, current.PageID, in, false, userMessage(err, "Failed to save student."))
		return
	}
	a.inv.All(ctx, "student", id, "update")
	redirectFlash(w, r, "/admin/students/"+id.String(), "saved")
}

// StudentDelete removes a tribute and re-renders the page's student list.
func (a *Admin) StudentDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	st, err := a.st.Students.FindByID(ctx, id)
	if err != nil || st == nil {
		http.NotFound(w, r)
		return
	}
	if err := a.st.Students.Delete(ctx, id); err != nil && !errors.Is(err, store.ErrNotFound) {
		slog.Error("delete student failed", "error", err, "id", id)
		http.Error(w, "Failed to delete student.", http.StatusInternalServerError)
		return
	}
	a.inv.All(ctx, "student", id, "delete")

	page, err := a.st.Pages.FindByID(ctx, st.PageID)
	if err != nil || page == nil {
		http.Redirect(w, r, "/admin/pages", http.StatusSeeOther)
		return
	}
	r.URL.RawQuery = "flash=deleted"
	a.studentsPage(w, r, http.StatusOK, page, "")
}

// StudentsReorder rewrites the page's student order.
func (a *Admin) StudentsReorder(w http.ResponseWriter, r *http.Request) {
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
		a.studentsPage(w, r, http.StatusBadRequest, page, "Invalid order.")
		return
	}
	if _, err := a.st.Students.Reorder(ctx, pageID, ids, version); err != nil {
		slog.Warn("reorder students failed", "error", err, "page_id", pageID)
		a.studentsPage(w, r, reorderStatus(err), page, userMessage(err, "Failed to reorder students."))
		return
	}
	a.inv.All(ctx, "student", pageID, "reorder")
	redirectFlash(w, r, "/admin/pages/"+pageID.String()+"/students", "reordered")
}

// AchievementAdd appends an achievement to a student.
func (a *Admin) AchievementAdd(w http.ResponseWriter, r *http.Request) {
	studentID, ok := urlID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	st, err := a.st.Students.FindByID(ctx, studentID)
	if err != nil || st == nil {
		http.NotFound(w, r)
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	if msg := validateAchievement(title); msg != "" {
		a.studentForm(w, r, http.StatusUnprocessableEntity, st.PageID, st, false, msg)
		return
	}
	ach, err := a.st.Students.AddAchievement(ctx, studentID, store.AchievementInput{
		Title:       title,
		Description: optional(r.FormValue("description")),
		Icon:        optional(r.FormValue("icon")),
		Year:        optional(r.FormValue("year")),
	})
	if err != nil {
		slog.Error("add achievement failed", "error", err, "student_id", studentID)
		a.studentForm(w, r, http.StatusInternalServerError, st.PageID, st, false, "Failed to add achievement.")
		return
	}
	a.invalidateTribute(r, st, ach.ID, "create")
	redirectFlash(w, r, "/admin/students/"+studentID.String(), "created")
}

// AchievementDelete removes an achievement and re-renders the student form.
func (a *Admin) AchievementDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	ach, err := a.st.Students.FindAchievement(ctx, id)
	if err != nil || ach == nil {
		http.NotFound(w, r)
		return
	}
	if err := a.st.Students.DeleteAchievement(ctx, id); err != nil {
		slog.Error("delete achievement failed", "error", err, "id", id)
		http.Error(w, "Failed to delete achievement.", http.StatusInternalServerError)
		return
	}
	st, err := a.st.Students.FindByID(ctx, ach.StudentID)
	if err != nil || st == nil {
		http.Redirect(w, r, "/admin/pages", http.StatusSeeOther)
		return
	}
	a.invalidateTribute(r, st, id, "delete")
	r.URL.RawQuery = "flash=deleted"
	a.studentForm(w, r, http.StatusOK, st.PageID, st, false, "")
}

// invalidateTribute drops the cached tribute document of st. Achievements
// appear nowhere else.
func (a *Admin) invalidateTribute(r *http.Request, st *models.StudentTribute, id uuid.UUID, action string) {
	if st.RouteSlug == nil {
		return
	}
	a.inv.Paths(r.Context(), "achievement", id, action, *st.RouteSlug)
}

package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"schoolarchives/internal/middleware"
	"schoolarchives/internal/models"
	"schoolarchives/internal/realtime"
	"schoolarchives/internal/store"
)

// Social serves the JSON endpoints behind the photo lightbox. Visitors are
// identified by the anonymous visitor cookie; every change is pushed to the
// photo's websocket watchers.
type Social struct {
	photos   *store.PhotoStore
	social   *store.SocialStore
	hub      *realtime.Hub
	comments *middleware.RateLimiter
}

// NewSocial creates the social handlers. commentLimiter may be nil.
func NewSocial(photos *store.PhotoStore, social *store.SocialStore, hub *realtime.Hub, commentLimiter *middleware.RateLimiter) *Social {
	return &Social{photos: photos, social: social, hub: hub, comments: commentLimiter}
}

// commentView adds whether the requesting visitor wrote the comment.
type commentView struct {
	ID         uuid.UUID `json:"id"`
	AuthorName string    `json:"author_name"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
	Mine       bool      `json:"mine"`
}

func newCommentView(c models.PhotoComment, visitor uuid.UUID) commentView {
	return commentView{
		ID:         c.ID,
		AuthorName: c.AuthorName,
		Body:       c.Body,
		CreatedAt:  c.CreatedAt,
		Mine:       visitor != uuid.Nil && c.VisitorID == visitor,
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// photo resolves the {id} URL parameter to an existing photo id.
func (s *Social) photo(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		jsonError(w, http.StatusNotFound, "photo not found")
		return uuid.Nil, false
	}
	p, err := s.photos.FindByID(r.Context(), id)
	if err != nil {
		slog.Error("find photo failed", "error", err, "id", id)
		jsonError(w, http.StatusInternalServerError, "could not load photo")
		return uuid.Nil, false
	}
	if p == nil {
		jsonError(w, http.StatusNotFound, "photo not found")
		return uuid.Nil, false
	}
	return id, true
}

// visitor returns the request's visitor id.
func visitor(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(middleware.VisitorID(r.Context()))
	if err != nil {
		jsonError(w, http.StatusBadRequest, "visitor cookie required")
		return uuid.Nil, false
	}
	return id, true
}

// Reactions returns the reaction counts of a photo.
func (s *Social) Reactions(w http.ResponseWriter, r *http.Request) {
	photoID, ok := s.photo(w, r)
	if !ok {
		return
	}
	counts, err := s.social.ReactionCounts(r.Context(), photoID)
	if err != nil {
		slog.Error("reaction counts failed", "error", err, "photo_id", photoID)
		jsonError(w, http.StatusInternalServerError, "could not load reactions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reactions": counts})
}

// ToggleReaction flips the visitor's reaction of the given type.
func (s *Social) ToggleReaction(w http.ResponseWriter, r *http.Request) {
	photoID, ok := s.photo(w, r)
	if !ok {
		return
	}
	visitorID, ok := visitor(w, r)
	if !ok {
		return
	}
	rt := models.ReactionType(r.FormValue("type"))
	if !rt.Valid() {
		jsonError(w, http.StatusBadRequest, "unknown reaction type")
		return
	}

	ctx := r.Context()
	active, err := s.social.ToggleReaction(ctx, photoID, visitorID, rt)
	if err != nil {
		slog.Error("toggle reaction failed", "error", err, "photo_id", photoID)
		jsonError(w, http.StatusInternalServerError, "could not save reaction")
		return
	}
	counts, err := s.social.ReactionCounts(ctx, photoID)
	if err != nil {
		slog.Error("reaction counts failed", "error", err, "photo_id", photoID)
		jsonError(w, http.StatusInternalServerError, "could not load reactions")
		return
	}

	s.hub.Publish(realtime.Event{Type: realtime.EventReactions, PhotoID: photoID, Reactions: counts})
	writeJSON(w, http.StatusOK, map[string]any{"active": active, "reactions": counts})
}

// Comments lists a photo's comments, oldest first.
func (s *Social) Comments(w http.ResponseWriter, r *http.Request) {
	photoID, ok := s.photo(w, r)
	if !ok {
		return
	}
	list, err := s.social.ListComments(r.Context(), photoID)
	if err != nil {
		slog.Error("list comments failed", "error", err, "photo_id", photoID)
		jsonError(w, http.StatusInternalServerError, "could not load comments")
		return
	}
	me, _ := uuid.Parse(middleware.VisitorID(r.Context()))
	out := make([]commentView, 0, len(list))
	for _, c := range list {
		out = append(out, newCommentView(c, me))
	}
	writeJSON(w, http.StatusOK, map[string]any{"comments": out})
}

// AddComment appends a visitor comment to a photo.
func (s *Social) AddComment(w http.ResponseWriter, r *http.Request) {
	photoID, ok := s.photo(w, r)
	if !ok {
		return
	}
	visitorID, ok := visitor(w, r)
	if !ok {
		return
	}
	author, body := r.FormValue("author_name"), r.FormValue("body")
	if msg := validateComment(author, body); msg != "" {
		jsonError(w, http.StatusUnprocessableEntity, msg)
		return
	}

	ctx := r.Context()
	if s.comments != nil {
		allowed, err := s.comments.Allow(ctx, visitorID.String())
		if err != nil {
			slog.Warn("comment limiter unavailable", "error", err)
		}
		if !allowed {
			jsonError(w, http.StatusTooManyRequests, "You are commenting too fast. Try again in a minute.")
			return
		}
	}

	c, err := s.social.AddComment(ctx, photoID, visitorID, author, body)
	if err != nil {
		slog.Error("add comment failed", "error", err, "photo_id", photoID)
		jsonError(w, http.StatusInternalServerError, "could not save comment")
		return
	}
	s.hub.Publish(realtime.Event{Type: realtime.EventCommentAdded, PhotoID: photoID, Comment: c})
	writeJSON(w, http.StatusCreated, map[string]any{"comment": newCommentView(*c, visitorID)})
}

// DeleteComment removes a comment written by the requesting visitor.
// Someone else's comment answers 404 so ids cannot be probed.
func (s *Social) DeleteComment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		jsonError(w, http.StatusNotFound, "comment not found")
		return
	}
	visitorID, ok := visitor(w, r)
	if !ok {
		return
	}
	c, err := s.social.DeleteComment(r.Context(), id, visitorID)
	if err != nil {
		slog.Error("delete comment failed", "error", err, "id", id)
		jsonError(w, http.StatusInternalServerError, "could not delete comment")
		return
	}
	if c == nil {
		jsonError(w, http.StatusNotFound, "comment not found")
		return
	}
	s.hub.Publish(realtime.Event{Type: realtime.EventCommentDeleted, PhotoID: c.PhotoID, CommentID: &c.ID})
	w.WriteHeader(http.StatusNoContent)
}

// Watch upgrades to a websocket that streams the photo's events.
func (s *Social) Watch(w http.ResponseWriter, r *http.Request) {
	photoID, ok := s.photo(w, r)
	if !ok {
		return
	}
	s.hub.ServeWS(w, r, photoID)
}

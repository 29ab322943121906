package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"notehub/internal/logger"
	"notehub/internal/middleware"
	"notehub/internal/models"
	"notehub/internal/storage"
	"notehub/internal/utils"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

type NoteHandler struct {
	store    storage.Store
	log      *slog.Logger
	validate *validator.Validate
}

type createNoteReq struct {
	Title   string `json:"title" validate:"required"`
	Content string `json:"content" validate:"required"`
}

type updateNoteReq struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		utils.JSONError(w, http.StatusUnauthorized, "could not validate credentials")
		return
	}

	var req createNoteReq
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		return
	}
	if err := h.validate.Struct(req); err != nil {
		utils.JSONError(w, http.StatusUnprocessableEntity, "title and content are required")
		return
	}

	note, err := h.store.CreateNote(r.Context(), user.ID, req.Title, req.Content)
	if err != nil {
		h.log.Error("create note", logger.Err(err))
		utils.JSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	utils.JSON(w, http.StatusCreated, note)
}

func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		utils.JSONError(w, http.StatusUnauthorized, "could not validate credentials")
		return
	}

	skip, limit, ok := listParams(r)
	if !ok {
		utils.JSONError(w, http.StatusUnprocessableEntity, "skip must be >= 0 and limit in (0, 100]")
		return
	}
	search := r.URL.Query().Get("search")

	notes, err := h.store.ListNotes(r.Context(), user.ID, search, skip, limit)
	if err != nil {
		h.log.Error("list notes", logger.Err(err))
		utils.JSONError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if notes == nil {
		notes = []models.Note{}
	}

	utils.JSON(w, http.StatusOK, notes)
}

func (h *NoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		utils.JSONError(w, http.StatusUnauthorized, "could not validate credentials")
		return
	}

	id, err := noteID(r)
	if err != nil {
		notFound(w)
		return
	}

	note, err := h.store.GetNote(r.Context(), id, user.ID)
	if errors.Is(err, storage.ErrNoteNotFound) {
		notFound(w)
		return
	}
	if err != nil {
		h.log.Error("get note", logger.Err(err))
		utils.JSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	utils.JSON(w, http.StatusOK, note)
}

// Update applies a partial patch: only fields present in the body overwrite
// the stored values.
func (h *NoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		utils.JSONError(w, http.StatusUnauthorized, "could not validate credentials")
		return
	}

	id, err := noteID(r)
	if err != nil {
		notFound(w)
		return
	}

	var req updateNoteReq
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		return
	}

	note, err := h.store.GetNote(r.Context(), id, user.ID)
	if errors.Is(err, storage.ErrNoteNotFound) {
		notFound(w)
		return
	}
	if err != nil {
		h.log.Error("get note for update", logger.Err(err))
		utils.JSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if req.Title != nil {
		note.Title = *req.Title
	}
	if req.Content != nil {
		note.Content = *req.Content
	}

	updated, err := h.store.UpdateNote(r.Context(), id, user.ID, note.Title, note.Content)
	if errors.Is(err, storage.ErrNoteNotFound) {
		notFound(w)
		return
	}
	if err != nil {
		h.log.Error("update note", logger.Err(err))
		utils.JSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	utils.JSON(w, http.StatusOK, updated)
}

func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		utils.JSONError(w, http.StatusUnauthorized, "could not validate credentials")
		return
	}

	id, err := noteID(r)
	if err != nil {
		notFound(w)
		return
	}

	err = h.store.DeleteNote(r.Context(), id, user.ID)
	if errors.Is(err, storage.ErrNoteNotFound) {
		notFound(w)
		return
	}
	if err != nil {
		h.log.Error("delete note", logger.Err(err))
		utils.JSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func noteID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func listParams(r *http.Request) (skip, limit int, ok bool) {
	skip, limit = 0, defaultLimit
	q := r.URL.Query()

	if s := q.Get("skip"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 0 {
			return 0, 0, false
		}
		skip = v
	}
	if l := q.Get("limit"); l != "" {
		v, err := strconv.Atoi(l)
		if err != nil || v <= 0 || v > maxLimit {
			return 0, 0, false
		}
		limit = v
	}

	return skip, limit, true
}

// A note that is not yours looks exactly like a note that does not exist.
func notFound(w http.ResponseWriter) {
	utils.JSONError(w, http.StatusNotFound, "note not found")
}

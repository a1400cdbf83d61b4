package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/scratchdata/sharelinks/pkg/storage/database"
	"github.com/scratchdata/sharelinks/pkg/storage/database/models"
)

func (a *ShareLinksAPIStruct) CreateSnippet(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserFromContext(r.Context())

	var body struct {
		Title    string `json:"title"`
		Language string `json:"language"`
		Content  string `json:"content"`
	}
	if err := render.DecodeJSON(r.Body, &body); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	snippet := models.Snippet{
		ID:       uuid.New().String(),
		OwnerID:  userID,
		Title:    body.Title,
		Language: body.Language,
		Content:  body.Content,
	}
	if err := a.storageServices.Database.CreateSnippet(r.Context(), &snippet); err != nil {
		log.Error().Err(err).Msg("Unable to create snippet")
		http.Error(w, "Unable to create snippet", http.StatusServiceUnavailable)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, snippet)
}

// UpdateSnippet replaces title and content. The previous content is kept
// as a revision, which share links never expose.
func (a *ShareLinksAPIStruct) UpdateSnippet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if err := render.DecodeJSON(r.Body, &body); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if !a.authorizeSnippet(w, r, id) {
		return
	}

	if err := a.storageServices.Database.UpdateSnippet(r.Context(), id, body.Title, body.Content); err != nil {
		a.writeSnippetError(w, r, id, err)
		return
	}

	snippet, err := a.storageServices.Database.GetSnippet(r.Context(), id)
	if err != nil {
		a.writeSnippetError(w, r, id, err)
		return
	}
	render.JSON(w, r, snippet)
}

// DeleteSnippet removes the snippet along with its share links and their
// access logs.
func (a *ShareLinksAPIStruct) DeleteSnippet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if !a.authorizeSnippet(w, r, id) {
		return
	}

	if err := a.storageServices.Database.DeleteSnippet(r.Context(), id); err != nil {
		a.writeSnippetError(w, r, id, err)
		return
	}

	log.Info().Str("snippet_id", id).Msg("Deleted snippet")
	w.WriteHeader(http.StatusNoContent)
}

// authorizeSnippet writes the failure response and returns false unless
// the current user owns the snippet.
func (a *ShareLinksAPIStruct) authorizeSnippet(w http.ResponseWriter, r *http.Request, id string) bool {
	userID, _ := UserFromContext(r.Context())

	snippet, err := a.storageServices.Database.GetSnippet(r.Context(), id)
	if err != nil {
		a.writeSnippetError(w, r, id, err)
		return false
	}

	if snippet.OwnerID != userID {
		render.Status(r, http.StatusForbidden)
		render.JSON(w, r, render.M{"error": "forbidden"})
		return false
	}
	return true
}

func (a *ShareLinksAPIStruct) writeSnippetError(w http.ResponseWriter, r *http.Request, id string, err error) {
	if errors.Is(err, database.ErrNotFound) {
		writeNotFound(w, r)
		return
	}

	log.Error().Err(err).Str("snippet_id", id).Msg("Snippet storage error")
	http.Error(w, "Snippet storage unavailable", http.StatusServiceUnavailable)
}

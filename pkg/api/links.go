package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/scratchdata/sharelinks/pkg/sharing"
	"github.com/scratchdata/sharelinks/pkg/storage/database/models"
)

type createLinkRequest struct {
	ResourceID        string            `json:"resource_id"`
	Permission        models.Permission `json:"permission"`
	ExpiresAt         *time.Time        `json:"expires_at"`
	MaxAccessCount    int64             `json:"max_access_count"`
	PasswordProtected bool              `json:"password_protected"`
	Password          string            `json:"password"`
	Description       *string           `json:"description"`
}

type linkResponse struct {
	models.ShareLink
	PasswordProtected bool   `json:"password_protected"`
	Token             string `json:"token,omitempty"`
	ShareURL          string `json:"share_url"`
	QRPayload         string `json:"qr_payload,omitempty"`
}

func (a *ShareLinksAPIStruct) toLinkResponse(link models.ShareLink) linkResponse {
	return linkResponse{
		ShareLink:         link,
		PasswordProtected: link.PasswordProtected(),
		ShareURL:          a.service.ShareURL(link.Token),
	}
}

func (a *ShareLinksAPIStruct) CreateLink(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserFromContext(r.Context())

	var body createLinkRequest
	if err := render.DecodeJSON(r.Body, &body); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	created, err := a.service.Create(r.Context(), sharing.CreateRequest{
		UserID:            userID,
		ResourceID:        body.ResourceID,
		Permission:        body.Permission,
		ExpiresAt:         body.ExpiresAt,
		MaxAccessCount:    body.MaxAccessCount,
		PasswordProtected: body.PasswordProtected,
		Password:          body.Password,
		Description:       body.Description,
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	rc := a.toLinkResponse(created.Link)
	rc.Token = created.Token
	rc.ShareURL = created.ShareURL
	rc.QRPayload = created.QRPayload

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, rc)
}

func (a *ShareLinksAPIStruct) ListLinks(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserFromContext(r.Context())

	links, err := a.service.List(r.Context(), userID, r.URL.Query().Get("resource_id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	rc := make([]linkResponse, 0, len(links))
	for _, link := range links {
		rc = append(rc, a.toLinkResponse(link))
	}
	render.JSON(w, r, rc)
}

func (a *ShareLinksAPIStruct) RevokeLink(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserFromContext(r.Context())

	if err := a.service.Revoke(r.Context(), chi.URLParam(r, "id"), userID); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *ShareLinksAPIStruct) DeleteLink(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserFromContext(r.Context())

	if err := a.service.Delete(r.Context(), chi.URLParam(r, "id"), userID); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *ShareLinksAPIStruct) LinkStats(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserFromContext(r.Context())

	var bucket time.Duration
	if raw := r.URL.Query().Get("bucket"); raw != "" {
		var err error
		bucket, err = time.ParseDuration(raw)
		if err != nil || bucket <= 0 {
			http.Error(w, "Invalid bucket duration", http.StatusBadRequest)
			return
		}
	}

	stats, err := a.service.Stats(r.Context(), chi.URLParam(r, "id"), userID, bucket)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	render.JSON(w, r, stats)
}

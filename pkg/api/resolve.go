package api

import (
	"errors"
	"io"
	"mime"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/rs/zerolog/log"
	"github.com/scratchdata/sharelinks/pkg/sharing"
	"github.com/tidwall/gjson"
)

const (
	passwordHeader  = "X-Share-Password"
	sessionIDHeader = "X-Session-Id"
)

func (a *ShareLinksAPIStruct) ResolveLink(w http.ResponseWriter, r *http.Request) {
	password, err := sharePassword(r)
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	download := r.URL.Query().Get("download") == "1"

	res, err := a.service.Resolve(r.Context(), sharing.ResolveRequest{
		Token:         chi.URLParam(r, "token"),
		Password:      password,
		SourceAddress: sourceAddress(r),
		UserAgent:     r.UserAgent(),
		Referrer:      r.Referer(),
		SessionID:     r.Header.Get(sessionIDHeader),
		Download:      download,
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	if download {
		writeDownload(w, r, res)
		return
	}

	render.JSON(w, r, render.M{
		"resource":   res.Resource,
		"permission": res.Permission,
	})
}

// sharePassword reads the password from the header, or from a JSON body
// on POST. A nil result means no password was supplied.
func sharePassword(r *http.Request) (*string, error) {
	if values, ok := r.Header[passwordHeader]; ok && len(values) > 0 {
		return &values[0], nil
	}

	if r.Method != http.MethodPost {
		return nil, nil
	}

	var body struct {
		Password *string `json:"password"`
	}
	if err := render.DecodeJSON(r.Body, &body); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return body.Password, nil
}

// sourceAddress is the peer address. Forwarding headers are client
// controlled and are not trusted.
func sourceAddress(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeDownload(w http.ResponseWriter, r *http.Request, res sharing.Resolution) {
	filename := gjson.GetBytes(res.Resource, "title").String()
	if filename == "" {
		filename = res.ResourceID + ".txt"
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))

	_, err := io.WriteString(w, gjson.GetBytes(res.Resource, "content").String())
	if err != nil {
		log.Error().Err(err).Str("share_link_id", res.LinkID).Msg("Unable to write download")
	}
}

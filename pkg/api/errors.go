package api

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/render"
	"github.com/rs/zerolog/log"
	"github.com/scratchdata/sharelinks/pkg/sharing"
	"github.com/scratchdata/sharelinks/pkg/storage/database/models"
)

// writeError is the only place sharing errors become HTTP responses.
func (a *ShareLinksAPIStruct) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var e *sharing.Error
	if !errors.As(err, &e) {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("Unexpected error")
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, render.M{"error": "internal"})
		return
	}

	switch e.Kind {
	case sharing.KindInvalidArgument:
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, render.M{"error": e.Kind.String(), "fields": e.Fields})

	case sharing.KindForbidden:
		render.Status(r, http.StatusForbidden)
		render.JSON(w, r, render.M{"error": e.Kind.String()})

	case sharing.KindNotFound:
		writeNotFound(w, r)

	case sharing.KindPasswordRequired:
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, render.M{"error": e.Kind.String()})

	case sharing.KindDenied:
		if a.config.Sharing.UniformDenials {
			writeNotFound(w, r)
			return
		}
		render.Status(r, deniedStatus(e.Reason))
		render.JSON(w, r, render.M{"error": e.Kind.String(), "reason": e.Reason})

	case sharing.KindThrottled:
		seconds := int(math.Ceil(e.RetryAfter.Seconds()))
		if seconds < 1 {
			seconds = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
		render.Status(r, http.StatusTooManyRequests)
		render.JSON(w, r, render.M{"error": e.Kind.String(), "retry_after_seconds": seconds})

	case sharing.KindUnavailable:
		log.Warn().Err(e.Err).Str("path", r.URL.Path).Msg("Storage unavailable")
		w.Header().Set("Retry-After", "1")
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, render.M{"error": e.Kind.String()})

	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("Unhandled error kind")
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, render.M{"error": "internal"})
	}
}

func writeNotFound(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusNotFound)
	render.JSON(w, r, render.M{"error": sharing.KindNotFound.String()})
}

// Links that can never be used again are gone, a wrong password is not.
func deniedStatus(reason models.FailureReason) int {
	switch reason {
	case models.ReasonExpired, models.ReasonRevoked, models.ReasonLimitReached:
		return http.StatusGone
	}
	return http.StatusForbidden
}

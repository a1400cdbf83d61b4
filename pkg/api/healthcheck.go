package api

import (
	"errors"
	"net/http"
	"os"

	"github.com/go-chi/render"
	"github.com/rs/zerolog/log"
	"github.com/scratchdata/sharelinks/pkg/util"
)

func (a *ShareLinksAPIStruct) Healthcheck(w http.ResponseWriter, r *http.Request) {
	conf := a.config.API

	if conf.HealthCheckFailFile != "" {
		_, err := os.Stat(conf.HealthCheckFailFile)
		if err == nil {
			http.Error(w, "Status set to unhealthy", http.StatusServiceUnavailable)
			return
		} else if !errors.Is(err, os.ErrNotExist) {
			log.Error().Err(err).Msg("Unable to check for unhealthy file")
		}
	}

	if conf.FreeSpaceRequiredBytes > 0 {
		free, err := util.FreeDiskSpace(conf.DataDirectory)
		if err != nil {
			log.Error().Err(err).Str("path", conf.DataDirectory).Msg("Unable to check free disk space")
		} else if free <= uint64(conf.FreeSpaceRequiredBytes) {
			log.Error().Uint64("free", free).Msg("Out of disk, failing health check")
			http.Error(w, "Out of disk", http.StatusServiceUnavailable)
			return
		}
	}

	if err := a.storageServices.Database.Ping(r.Context()); err != nil {
		log.Error().Err(err).Msg("Unhealthy database")
		http.Error(w, "Database unavailable", http.StatusServiceUnavailable)
		return
	}

	render.PlainText(w, r, "ok")
}

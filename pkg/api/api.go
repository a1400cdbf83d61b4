package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/rs/zerolog/log"
	"github.com/scratchdata/sharelinks/pkg/config"
	"github.com/scratchdata/sharelinks/pkg/sharing"
	"github.com/scratchdata/sharelinks/pkg/storage"
)

type ShareLinksAPIStruct struct {
	config          config.ShareLinksConfig
	storageServices *storage.Services
	service         *sharing.Service
	tokenAuth       *jwtauth.JWTAuth
}

func NewShareLinksAPI(c config.ShareLinksConfig, storageServices *storage.Services, service *sharing.Service) (*ShareLinksAPIStruct, error) {
	if c.Crypto.JWTSecret == "" {
		return nil, fmt.Errorf("api.NewShareLinksAPI: jwt secret is required")
	}

	rc := &ShareLinksAPIStruct{
		config:          c,
		storageServices: storageServices,
		service:         service,
		tokenAuth:       jwtauth.New("HS256", []byte(c.Crypto.JWTSecret), nil),
	}
	return rc, nil
}

func RunAPI(ctx context.Context, config config.API, mux *chi.Mux) {
	log.Debug().Int("port", config.Port).Msg("Starting API")

	server := &http.Server{
		Addr:              fmt.Sprintf("0.0.0.0:%d", config.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverCtx, serverStopCtx := context.WithCancel(context.Background())

	go func() {
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			log.Err(err).Msg("Error serving API")
			serverStopCtx()
		}
	}()

	go func() {
		<-ctx.Done()

		log.Debug().Msg("Stopping API")

		shutdownCtx, cancel := context.WithTimeout(serverCtx, 30*time.Second)
		err := server.Shutdown(shutdownCtx)
		if err != nil {
			log.Error().Err(err).Msg("Error shutting down API")
		}

		cancel()
		serverStopCtx()
	}()

	log.Debug().Msg("Waiting for graceful shutdown")
	<-serverCtx.Done()

	log.Debug().Msg("API server stopped")
}

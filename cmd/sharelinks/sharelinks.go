package sharelinks

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/scratchdata/sharelinks/pkg/api"
	"github.com/scratchdata/sharelinks/pkg/config"
	"github.com/scratchdata/sharelinks/pkg/resources"
	"github.com/scratchdata/sharelinks/pkg/sharing"
	"github.com/scratchdata/sharelinks/pkg/storage"
)

func setupLogs(logConfig config.Logging) {
	// Equivalent of Lshortfile
	zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
		short := file
		for i := len(file) - 1; i > 0; i-- {
			if file[i] == '/' {
				short = file[i+1:]
				break
			}
		}
		file = short
		return file + ":" + strconv.Itoa(line)
	}

	logLevel, err := zerolog.ParseLevel(logConfig.Level)
	if err != nil || logConfig.Level == "" {
		logLevel = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(logLevel)

	if logConfig.JSONFormat {
		log.Logger = log.With().Caller().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).With().Caller().Logger()
	}
}

func GetStorageServices(c config.ShareLinksConfig) (*storage.Services, error) {
	return storage.New(c)
}

func Run(config config.ShareLinksConfig, storageServices *storage.Services) {
	setupLogs(config.Logging)

	log.Debug().Msg("Starting share links")

	if !config.API.Enabled {
		log.Fatal().Msg("No services are enabled in config file")
	}

	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup

	service := sharing.NewService(
		config,
		storageServices.Database,
		resources.NewSnippetStore(storageServices.Database),
		storageServices.Cache,
	)

	wg.Add(1)
	go func() {
		defer wg.Done()

		apiFunctions, err := api.NewShareLinksAPI(config, storageServices, service)
		if err != nil {
			log.Error().Err(err).Msg("Unable to start API")
			cancel()
			return
		}

		mux := api.CreateMux(apiFunctions)
		api.RunAPI(ctx, config.API, mux)
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGTERM, os.Interrupt)

	go func() {
		select {
		case sig := <-sigs:
			log.Debug().Str("signal", sig.String()).Msg("Received signal, stopping")
		case <-ctx.Done():
		}
		cancel()
	}()

	wg.Wait()

	if err := storageServices.Close(); err != nil {
		log.Error().Err(err).Msg("Unable to close storage")
	}
	log.Debug().Msg("Done")
}

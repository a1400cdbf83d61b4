package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/jwtauth/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var latency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "latency",
	Help:    "Request latency",
	Buckets: prometheus.ExponentialBucketsRange(.005, 30, 20),
}, []string{"route", "status_code"})

var responseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "bytes_returned",
	Help:    "Bytes returned",
	Buckets: prometheus.ExponentialBucketsRange(100, 10_000_000, 20),
}, []string{"route"})

func CreateMux(apiFunctions *ShareLinksAPIStruct) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(PrometheusMiddleware)

	r.Get("/healthcheck", apiFunctions.Healthcheck)

	if apiFunctions.config.Prometheus.Enabled {
		r.Handle("/metrics", apiFunctions.MetricsHandler())
	}

	// Share links are opened from anywhere, without credentials.
	public := chi.NewRouter()
	public.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Share-Password", "X-Session-Id"},
		ExposedHeaders: []string{"Retry-After", "Content-Disposition"},
		MaxAge:         300, // Maximum value not ignored by any of major browsers
	}))
	public.Get("/{token}", apiFunctions.ResolveLink)
	public.Post("/{token}", apiFunctions.ResolveLink)
	r.Mount("/s", public)

	api := chi.NewRouter()
	api.Use(jwtauth.Verifier(apiFunctions.tokenAuth))
	api.Use(apiFunctions.Authenticator)

	api.Post("/links", apiFunctions.CreateLink)
	api.Get("/links", apiFunctions.ListLinks)
	api.Post("/links/{id}/revoke", apiFunctions.RevokeLink)
	api.Delete("/links/{id}", apiFunctions.DeleteLink)
	api.Get("/links/{id}/stats", apiFunctions.LinkStats)

	api.Post("/snippets", apiFunctions.CreateSnippet)
	api.Put("/snippets/{id}", apiFunctions.UpdateSnippet)
	api.Delete("/snippets/{id}", apiFunctions.DeleteSnippet)

	r.Mount("/api", api)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Not found", http.StatusNotFound)
	})
	return r
}

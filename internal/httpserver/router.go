package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"moby-metaserver/internal/handlers"
	"moby-metaserver/internal/metrics"
	"moby-metaserver/internal/middleware"
)

// Options carries the router settings that come from configuration.
type Options struct {
	RequestTimeout time.Duration
	CSSDir         string
	JSDir          string
}

func SetupRouter(r *chi.Mux, baseLogger *zap.Logger, h *handlers.MetadataHandler, opts Options) {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}

	r.Use(metrics.Middleware)

	// base middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)

	r.Use(middleware.LoggingContext(baseLogger))
	r.Use(middleware.Recoverer())                  // panic recovery
	r.Use(middleware.Timeout(opts.RequestTimeout)) // request timeout

	// launcher routes
	r.Get("/", h.Index)
	r.Get("/index", h.Index)
	r.Get("/purge", h.Purge)
	r.Get("/platforms", h.Platforms)
	r.Get("/platformid", h.PlatformID)
	r.Get("/find", h.Find)
	r.Get("/getdata", h.GetData)
	r.Get("/cover", h.Cover)

	// static assets for the index page
	if opts.CSSDir != "" {
		r.Handle("/css/*", http.StripPrefix("/css/", http.FileServer(http.Dir(opts.CSSDir))))
	}
	if opts.JSDir != "" {
		r.Handle("/js/*", http.StripPrefix("/js/", http.FileServer(http.Dir(opts.JSDir))))
	}

	// health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Handle("/metrics", metrics.Handler())
}

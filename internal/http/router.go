package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/MrJamesThe3rd/bananas/internal/http/export"
	"github.com/MrJamesThe3rd/bananas/internal/http/importcsv"
	"github.com/MrJamesThe3rd/bananas/internal/http/production"
	"github.com/MrJamesThe3rd/bananas/internal/http/respond"
)

// Pinger reports whether the backing database is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Options struct {
	AllowedOrigins []string
	Timeout        time.Duration
	DB             Pinger

	// ImportsPerMinute and ImportBurst throttle the upload endpoint.
	ImportsPerMinute int
	ImportBurst      int
}

func New(
	opts Options,
	productionV1 *production.Handler,
	importV1 *importcsv.Handler,
	exportV1 *export.Handler,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(opts.Timeout))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	router.Get("/healthz", health(opts.DB))

	router.Route("/api/v1/production", func(r chi.Router) {
		r.Route("/data", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			productionV1.Routes(r)
		})

		r.Route("/import", func(r chi.Router) {
			r.Use(throttle(rate.NewLimiter(rate.Limit(float64(opts.ImportsPerMinute)/60), opts.ImportBurst)))
			importV1.Routes(r)
		})

		r.Route("/export", exportV1.Routes)
	})

	return router
}

func health(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			slog.Error("health check failed", "error", err)
			respond.Fail(w, http.StatusServiceUnavailable, respond.CodeUnexpected, "database unreachable")

			return
		}

		respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"}, "")
	}
}

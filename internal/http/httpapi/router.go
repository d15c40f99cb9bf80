package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"ceiba/internal/http/handlers"
	"ceiba/internal/middleware"
)

// Options tunes the middleware stack of the router.
type Options struct {
	CORSOrigins     []string
	RateLimitPerMin int
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(app.Logger),
		middleware.CORS(opts.CORSOrigins),
	)

	r.Get("/v1/healthz", app.Health)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))

		r.Post("/v1/auth", app.Authenticate)

		r.Route("/v1/jobs", func(r chi.Router) {
			r.Post("/", app.CreateJob)
			r.Post("/{job_id}/report", app.ReportJob)
			r.Put("/{job_id}/status", app.UpdateJobStatus)
		})

		r.Put("/v1/properties/{property_id}", app.UpdateProperty)

		r.Route("/v1/collections", func(r chi.Router) {
			r.Get("/", app.ListCollections)
			r.Get("/{collection}/jobs", app.ListJobs)
			r.Get("/{collection}/properties", app.ListProperties)
		})
	})

	return r
}

package httpapi

import (
	stdhttp "net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"server/internal/http/handlers"
	"server/internal/infra"
	"server/internal/middleware"
)

// NewRouter builds the API router: JSON endpoints under /api plus static
// mounts for uploaded/generated images and art form assets.
func NewRouter(app *handlers.App, logger infra.Logger) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Logger(logger), chimw.Recoverer, middleware.CORS(app.Config.AllowedOrigins))

	generationLimit := middleware.RateLimit(app.Config.RateLimitPerMin, time.Minute)

	r.Get("/api/health", app.Health)

	r.Route("/api/art-forms", func(r chi.Router) {
		r.Get("/", app.ArtFormsList)
		r.Get("/{key}", app.ArtFormDetail)
	})

	r.Route("/api/generate", func(r chi.Router) {
		r.With(generationLimit).Post("/", app.Generate)
		r.With(generationLimit).Post("/modify/{sessionId}", app.Modify)
		r.Get("/session/{sessionId}", app.SessionGet)
		r.Get("/session/{sessionId}/download", app.SessionDownload)
		r.Get("/sessions", app.SessionsList)
		r.Post("/estimate-cost", app.EstimateCost)
		r.Post("/estimate-cost/modify", app.EstimateModifyCost)
	})

	mountStatic(r, "/uploads", filepath.Join(app.Config.DataDir, "uploads"))
	mountStatic(r, "/assets", filepath.Join(app.Config.DataDir, "assets"))

	return r
}

func mountStatic(r chi.Router, prefix, dir string) {
	fs := stdhttp.StripPrefix(prefix, stdhttp.FileServer(stdhttp.Dir(dir)))
	r.Get(prefix+"/*", fs.ServeHTTP)
}

package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"nexiro/internal/http/handlers"
	"nexiro/internal/infra"
	"nexiro/internal/middleware"
)

func NewRouter(app *handlers.App, cfg *infra.Config) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		middleware.Logger(app.Logger),
		chimw.Recoverer,
		middleware.CORS(cfg.CORSAllowedOrigins),
	)

	r.Get("/v1/healthz", app.Health)

	r.Group(func(r chi.Router) {
		r.Use(
			middleware.RateLimit(cfg.RateLimitPerMin, time.Minute),
			middleware.AuthJWT(cfg.JWTSecret),
		)

		r.Post("/v1/analyze", app.Analyze)
		r.Post("/v1/reference-props", app.ReferenceProps)
		r.Post("/v1/compile", app.Compile)
		r.Post("/v1/enhance", app.Enhance)
		r.Get("/v1/enhance/stream", app.EnhanceStream)
		r.Get("/v1/credits", app.Credits)

		r.With(middleware.RequireRole(middleware.RoleBilling)).Post("/v1/admin/plan", app.ChangePlan)
	})

	return r
}

package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"profile-portal/internal/config"
	"profile-portal/internal/handler"
	"profile-portal/internal/middleware"
)

type Handlers struct {
	Auth    *handler.AuthHandler
	Profile *handler.ProfileHandler
	Health  *handler.HealthHandler
	Events  http.Handler
	Metrics http.Handler
}

func New(cfg *config.Config, h Handlers) http.Handler {
	r := chi.NewRouter()
	rateLimiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		GeneralRPM: cfg.RateLimitRPM,
		LoginRPM:   cfg.AuthRateLimitRPM,
		TrustProxy: cfg.TrustProxy,
	})

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging(cfg.TrustProxy))
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimiter.Handler)

	r.Get("/health", h.Health.Health)
	if h.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.Metrics)
	}

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Session(middleware.SessionConfig{
			CookieName: cfg.SessionCookieName,
			Secure:     cfg.SessionCookieSecure,
		}))
		api.Use(middleware.CSRF(cfg.SessionCookieSecure))

		// Long-lived; stays outside the request timeout.
		if h.Events != nil {
			api.Method(http.MethodGet, "/events", h.Events)
		}

		api.Group(func(timed chi.Router) {
			timed.Use(middleware.Timeout(cfg.RequestTimeout))

			timed.Route("/auth", func(auth chi.Router) {
				auth.Get("/state", h.Auth.State)
				auth.Post("/login", h.Auth.Login)
				auth.Post("/logout", h.Auth.Logout)
				auth.Delete("/error", h.Auth.ClearError)
			})

			timed.Route("/profile", func(profile chi.Router) {
				profile.Put("/", h.Profile.Update)
				profile.Get("/form", h.Profile.Form)
				profile.Post("/reload", h.Profile.Reload)
				profile.Patch("/photo", h.Profile.UpdatePhoto)
			})
		})
	})

	return r
}

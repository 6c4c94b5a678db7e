package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Jasmin-Patel-2110/Authantication-fullstack/internal/auth"
	"github.com/Jasmin-Patel-2110/Authantication-fullstack/internal/service"
	"github.com/Jasmin-Patel-2110/Authantication-fullstack/pkg/health"
	"github.com/Jasmin-Patel-2110/Authantication-fullstack/pkg/middleware"
)

// NewRouter creates a chi router with all auth service routes registered.
func NewRouter(
	authService *service.AuthService,
	jwtManager *auth.JWTManager,
	healthHandler *health.Handler,
	logger *slog.Logger,
	corsConfig CORSConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(CORS(corsConfig))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("auth"))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	authHandler := NewAuthHandler(authService, jwtManager, logger)

	// Public endpoints
	r.Route("/api/v1/user", func(r chi.Router) {
		r.Get("/verify/{token}", authHandler.Verify)

		r.Group(func(r chi.Router) {
			r.Use(ContentTypeJSON)

			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/forgotPassword", authHandler.ForgotPassword)
			r.Post("/resetPassword/{token}", authHandler.ResetPassword)
		})

		// Session-guarded endpoints; the cookie pair is validated and
		// rotated on every request.
		r.Group(func(r chi.Router) {
			r.Use(RequireSession(authService, jwtManager, logger))

			r.Get("/profile", authHandler.Profile)
			r.Get("/logout", authHandler.Logout)
		})
	})

	return r
}

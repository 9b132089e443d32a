package http

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/uptrace/bun"

	"github.com/stayloop/booking-api/internal/auth"
	"github.com/stayloop/booking-api/internal/config"
	"github.com/stayloop/booking-api/internal/httputil"
	"github.com/stayloop/booking-api/internal/logging"
	"github.com/stayloop/booking-api/internal/user"
)

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, db *bun.DB, authHandler *auth.Handler, authMiddleware *auth.Middleware, logger *logging.Logger) *chi.Mux {
	r := chi.NewRouter()

	// CORS - must be first
	if len(cfg.Server.TrustedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.TrustedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           300, // 5 minutes
		}))
	}

	// Global middleware
	r.Use(SecurityHeaders)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(logger))
	r.Use(middleware.Compress(5))

	// Public routes
	r.Get("/health", handleHealth(db))

	// Swagger UI - only in development
	if cfg.Server.IsDevelopment() {
		log.Println("Swagger UI enabled at /swagger/*")
		r.Get("/swagger/*", httpSwagger.WrapHandler)
	}

	// One route group per role; login/register are public, the rest sit
	// behind the shared auth gate
	roleRoutes := func(role user.Role) func(chi.Router) {
		return func(r chi.Router) {
			r.Post("/login", authHandler.Login(role))
			r.Post("/register", authHandler.Register(role))

			r.Group(func(r chi.Router) {
				r.Use(authMiddleware.RequireAuth)
				r.Post("/logout", authHandler.Logout)
				r.Get("/me", authHandler.Me)
				r.Put("/me", authHandler.UpdateMe)
			})
		}
	}

	r.Route("/guest", roleRoutes(user.RoleGuest))
	r.Route("/owner", roleRoutes(user.RoleOwner))
	r.Route("/admin", func(r chi.Router) {
		roleRoutes(user.RoleAdmin)(r)

		// Principal administration, admins only
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.RequireAuth)
			r.Use(authMiddleware.RequireRole(user.RoleAdmin))
			r.Get("/users", authHandler.ActiveUsers)
			r.Get("/users/type/{type}", authHandler.UsersByType)
			r.Get("/users/{id}", authHandler.UserByID)
			r.Delete("/users/{id}", authHandler.DeleteUser)
		})
	})

	// OTP verification, any authenticated role
	r.Route("/otp", func(r chi.Router) {
		r.Use(authMiddleware.RequireAuth)
		r.Get("/send-code", authHandler.SendCode)
		r.Get("/verify-code", authHandler.VerifyCode)
	})

	return r
}

// handleHealth answers only after a database round-trip
// @Summary      Health check
// @Description  Check that the API and its database are reachable
// @Tags         health
// @Produce      json
// @Success      200 {object} map[string]string
// @Failure      500 {object} httputil.ErrorResponse "Database unreachable"
// @Router       /health [get]
func handleHealth(db *bun.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			httputil.RespondErrorWithCode(w, "Database connection error", httputil.CodeInternalError, http.StatusInternalServerError)
			return
		}
		httputil.RespondJSON(w, map[string]string{"status": "api is running"}, http.StatusOK)
	}
}

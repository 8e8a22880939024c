package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"recognition-backend/internal/handlers"
	"recognition-backend/internal/metrics"
	"recognition-backend/internal/middleware"
	"recognition-backend/internal/models"
	"recognition-backend/internal/websocket"
)

type Handlers struct {
	Auth      *handlers.AuthHandler
	Predict   *handlers.PredictHandler
	History   *handlers.HistoryHandler
	Dashboard *handlers.DashboardHandler
	Admin     *handlers.AdminHandler
	Job       *handlers.JobHandler
}

func New(jwtAuth *middleware.JWTAuth, h Handlers, wsHub *websocket.Hub, frontendURL string) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))
	r.Use(metrics.Middleware)

	// Auth rate limiter (10 req/min per IP)
	authLimiter := middleware.NewRateLimiter(10, time.Minute)
	// Prediction rate limiter (60 req/min per user)
	predictLimiter := middleware.NewRateLimiter(60, time.Minute)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Auth Routes (public) ────
		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimiter.Middleware)
			r.Post("/register", h.Auth.Register)
			r.Post("/login", h.Auth.Login)
			r.Post("/refresh", h.Auth.Refresh)

			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.Middleware)
				r.Post("/logout", h.Auth.Logout)
				r.Get("/me", h.Auth.Me)
			})
		})

		// ──── Prediction Routes ────
		r.Route("/predict", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Use(predictLimiter.Middleware)
			r.Post("/", h.Predict.Predict)
			r.Post("/batch", h.Predict.PredictBatch)
			r.Post("/video", h.Predict.PredictVideo)
			r.Post("/url", h.Predict.PredictURL)
			r.Post("/url/async", h.Predict.PredictURLAsync)
		})

		// ──── History Routes ────
		r.Route("/history", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/", h.History.List)
			r.Get("/export", h.History.Export)
			r.Delete("/", h.History.Clear)
		})

		r.Route("/dashboard", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/stats", h.Dashboard.Stats)
		})

		// ──── Admin Routes ────
		r.Route("/admin", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Use(middleware.RequireRole(models.RoleAdmin))
			r.Get("/users", h.Admin.ListUsers)
			r.Put("/users/{id}/role", h.Admin.UpdateRole)
		})

		// ──── Job Routes ────
		r.Route("/jobs", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/{id}", h.Job.GetJob)
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}

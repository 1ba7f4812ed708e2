package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prefabmart/api/internal/config"
	"github.com/prefabmart/api/internal/database"
	"github.com/prefabmart/api/internal/enum"
	"github.com/prefabmart/api/internal/handler"
	mw "github.com/prefabmart/api/internal/middleware"
	"github.com/prefabmart/api/internal/service"
	"github.com/prefabmart/api/internal/ws"
)

// New creates a Chi router with all application routes wired up.
// Catalog reads are public; everything else requires a token, with role
// middleware on the staff and admin surfaces.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{
			"http://localhost:5173", // storefront dev server
			"http://localhost:3000", // admin dev server
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`)) //nolint:errcheck
	})

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/notifications", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	dispatcher := service.NewDispatcher(queries, hub)
	newOrderStore := func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}
	orderService := service.NewOrderService(pool, newOrderStore, dispatcher)

	r.Route("/api", func(r chi.Router) {
		// Auth routes (public)
		authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
		authHandler.RegisterRoutes(r)

		// Catalog
		productHandler := handler.NewProductHandler(queries)
		r.Route("/products", func(r chi.Router) {
			productHandler.RegisterPublicRoutes(r)

			r.Group(func(r chi.Router) {
				r.Use(mw.Authenticate(cfg.JWTSecret))
				r.Use(mw.RequireRole(enum.UserRoleAdmin))
				productHandler.RegisterAdminRoutes(r)
			})
		})

		// Protected routes (require authentication)
		r.Group(func(r chi.Router) {
			r.Use(mw.Authenticate(cfg.JWTSecret))

			orderHandler := handler.NewOrderHandler(orderService, queries)
			r.Route("/orders", orderHandler.RegisterRoutes)

			notificationHandler := handler.NewNotificationHandler(queries)
			r.Route("/notifications", notificationHandler.RegisterRoutes)

			// Staff-only audit trail
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.UserRoleAdmin, enum.UserRolePersonnel))
				activityLogHandler := handler.NewActivityLogHandler(queries)
				r.Route("/activity-logs", activityLogHandler.RegisterRoutes)
			})

			// Admin-only account management
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.UserRoleAdmin))
				userHandler := handler.NewUserHandler(queries)
				r.Route("/users", userHandler.RegisterRoutes)
			})
		})
	})

	return r
}

package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	adminhandler "github.com/zhouzirui/projecthub/backend/internal/handler/admin"
	authhandler "github.com/zhouzirui/projecthub/backend/internal/handler/auth"
	chathandler "github.com/zhouzirui/projecthub/backend/internal/handler/chat"
	filehandler "github.com/zhouzirui/projecthub/backend/internal/handler/file"
	projecthandler "github.com/zhouzirui/projecthub/backend/internal/handler/project"
	middlewarePkg "github.com/zhouzirui/projecthub/backend/internal/middleware"
	filemodel "github.com/zhouzirui/projecthub/backend/internal/model/file"
	projectmodel "github.com/zhouzirui/projecthub/backend/internal/model/project"
	"github.com/zhouzirui/projecthub/backend/internal/model/reset"
	"github.com/zhouzirui/projecthub/backend/internal/model/user"
	authservice "github.com/zhouzirui/projecthub/backend/internal/service/auth"
	chatservice "github.com/zhouzirui/projecthub/backend/internal/service/chat"
	"github.com/zhouzirui/projecthub/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(
	authSvc *authservice.Service,
	users user.Store,
	projects projectmodel.Store,
	files filemodel.Store,
	requests reset.RequestStore,
	room *chatservice.Room,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	// Create handlers
	authHandler := authhandler.New(authSvc)
	projectHandler := projecthandler.New(projects, files)
	fileHandler := filehandler.New(files)
	adminHandler := adminhandler.New(users, requests, authSvc)
	chatHandler := chathandler.New(authSvc, room)

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		// Public auth routes; the websocket authenticates itself with
		// the token query parameter.
		authHandler.RegisterRoutes(api)
		chatHandler.RegisterRoutes(api)

		// Authenticated reads
		api.Group(func(protected chi.Router) {
			protected.Use(middlewarePkg.Authenticator(authSvc))

			authHandler.RegisterProtected(protected)
			projectHandler.RegisterRoutes(protected)
			fileHandler.RegisterRoutes(protected)

			// Admin-gated writes
			protected.Group(func(admin chi.Router) {
				admin.Use(middlewarePkg.RequireAdmin)

				projectHandler.RegisterAdminRoutes(admin)
				fileHandler.RegisterAdminRoutes(admin)
				adminHandler.RegisterRoutes(admin)
			})
		})
	})

	return r
}

package rest

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/client-portal/internal/audit"
	"github.com/frahmantamala/client-portal/internal/auth"
	"github.com/frahmantamala/client-portal/internal/dashboard"
	"github.com/frahmantamala/client-portal/internal/messaging"
	"github.com/frahmantamala/client-portal/internal/navigation"
	"github.com/frahmantamala/client-portal/internal/phi"
	"github.com/frahmantamala/client-portal/internal/project"
	"github.com/frahmantamala/client-portal/internal/session"
	"github.com/frahmantamala/client-portal/internal/transport/middleware"
	"github.com/frahmantamala/client-portal/internal/transport/swagger"
	"github.com/frahmantamala/client-portal/internal/user"
	"github.com/go-chi/chi"
)

const APIBasePath = "/api/v1"

// Handlers groups everything the router mounts. Nil handlers are skipped.
type Handlers struct {
	Health    *HealthHandler
	Views     *ViewHandler
	Auth      *auth.Handler
	User      *user.Handler
	Dashboard *dashboard.Handler
	Project   *project.Handler
	Upload    *project.UploadHandler
	Messaging *messaging.Handler
	PHI       *phi.Handler
	Audit     *audit.Handler
}

type RouterOptions struct {
	AllowedOrigins string
	OpenAPIPath    string
	// Validator is optional; without it request bodies are only checked by the DTOs.
	Validator *middleware.OpenAPIValidator
}

func RegisterAllRoutes(router chi.Router, h Handlers, opts RouterOptions, logger *slog.Logger) {
	gate := navigation.NewGate(logger)

	router.Use(middleware.CORS(opts.AllowedOrigins))
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	if opts.OpenAPIPath != "" {
		router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
			http.ServeFile(w, r, opts.OpenAPIPath)
		})
		router.Handle("/swagger/*", swagger.Handler())
	}

	router.Route(APIBasePath, func(r chi.Router) {
		if opts.Validator != nil {
			r.Use(opts.Validator.Middleware)
		}

		if h.Health != nil {
			r.Get("/health", h.Health.healthCheckHandler)
			r.Get("/ping", h.Health.pingHandler)
		}
		if h.Views != nil {
			r.Get("/views/unauthorized", h.Views.Unauthorized)
		}

		if h.Auth == nil {
			return
		}
		r.Route("/auth", func(ar chi.Router) {
			ar.Post("/login", h.Auth.Login)
			ar.Post("/refresh", h.Auth.RefreshToken)
			ar.Post("/logout", h.Auth.Logout)
		})

		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			if h.User != nil {
				pr.Get("/users/me", h.User.GetCurrentUser)
				pr.Get("/users/{id}", h.User.GetUser)
				pr.With(middleware.RequirePermissions(logger, session.PermManageUsers)).
					Post("/users", h.User.CreateUser)
			}

			if h.Audit != nil {
				pr.With(
					middleware.RequirePermissions(logger, session.PermManageUsers),
					middleware.RequirePHIAccess(logger),
				).Get("/audit-logs", h.Audit.ListEntries)
			}

			if h.Dashboard != nil {
				pr.With(gate.Middleware(navigation.ViewDashboard)).
					Get("/dashboard", h.Dashboard.GetDashboard)
			}

			if h.Project != nil {
				pr.Route("/projects", func(rr chi.Router) {
					rr.Use(gate.Middleware(navigation.ViewProjects))
					rr.Get("/", h.Project.ListProjects)
					rr.Post("/", h.Project.CreateProject)
					rr.Get("/{id}", h.Project.GetProject)
					rr.Put("/{id}", h.Project.UpdateProject)
					rr.Delete("/{id}", h.Project.DeleteProject)

					if h.Upload != nil {
						rr.Get("/{id}/uploads", h.Upload.GetBatch)
						rr.Post("/{id}/uploads", h.Upload.AddFiles)
						rr.Delete("/{id}/uploads", h.Upload.ClearBatch)
						rr.Delete("/{id}/uploads/{fileID}", h.Upload.RemoveFile)
						rr.Post("/{id}/uploads/submit", h.Upload.Submit)
					}
				})
			}

			if h.Messaging != nil {
				pr.Route("/messages", func(rr chi.Router) {
					rr.Use(gate.Middleware(navigation.ViewMessages))
					rr.Get("/", h.Messaging.ListConversations)
					rr.Post("/", h.Messaging.StartConversation)
					rr.Get("/{id}", h.Messaging.GetThread)
					rr.Post("/{id}/messages", h.Messaging.SendMessage)
					rr.Post("/{id}/read", h.Messaging.MarkRead)
				})
			}

			if h.PHI != nil {
				pr.Route("/documents", func(rr chi.Router) {
					rr.Use(gate.Middleware(navigation.ViewDocuments))
					rr.Get("/", h.PHI.ListRecords)
					rr.Get("/phi-records", h.PHI.ListRecords)
					rr.Post("/phi-records", h.PHI.CreateRecord)
					rr.Get("/phi-records/{id}", h.PHI.GetRecord)
				})
			}

			if h.Views != nil {
				pr.With(gate.Middleware(navigation.ViewSettings)).
					Get("/settings", h.Views.Settings)
			}
		})
	})
}

package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/fleet-helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/fleet-helpdesk/internal/auth"
	"github.com/spec-kit/fleet-helpdesk/internal/domain"
	"github.com/spec-kit/fleet-helpdesk/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Helpdesk       *handlers.HelpdeskHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)

	users := app.Group("/users", cfg.AuthMiddleware.Handle)
	users.Get("/me", cfg.Users.Me)
	users.Post("/", auth.RequireRole(domain.UserRoleAdmin), cfg.Users.Create)

	helpdesk := app.Group("/helpdesk", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	helpdesk.Post("/", cfg.Helpdesk.Create)
	helpdesk.Get("/", cfg.Helpdesk.List)
	helpdesk.Get("/:id", cfg.Helpdesk.Get)
	helpdesk.Put("/:id", auth.RequireRole(domain.UserRoleAdmin, domain.UserRoleDeveloper), cfg.Helpdesk.Update)
	helpdesk.Delete("/:id", auth.RequireRole(domain.UserRoleAdmin, domain.UserRoleDeveloper), cfg.Helpdesk.Delete)
	helpdesk.Post("/:id/messages", cfg.Helpdesk.PostMessage)
	helpdesk.Get("/:id/messages", cfg.Helpdesk.ListMessages)
}

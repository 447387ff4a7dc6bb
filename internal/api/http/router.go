package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/crm-service/internal/api/http/handlers"
	"github.com/spec-kit/crm-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Accounts       *handlers.AccountsHandler
	Contacts       *handlers.ContactsHandler
	Leads          *handlers.LeadsHandler
	Opportunities  *handlers.OpportunitiesHandler
	Cases          *handlers.CasesHandler
	Activities     *handlers.ActivitiesHandler
	Dashboard      *handlers.DashboardHandler
	Audit          *handlers.AuditHandler
	Metrics        fiber.Handler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes. Fixed paths are registered before /:id so they win.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", cfg.Metrics)
	}

	api := app.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)

	protected := api.Group("", cfg.AuthMiddleware.Handle)
	protected.Get("/auth/me", cfg.Users.Me)
	protected.Get("/auth/users", cfg.Users.List)
	protected.Put("/auth/users/:id", auth.RequireAdmin(), cfg.Users.Update)

	accounts := protected.Group("/accounts")
	accounts.Get("", cfg.Accounts.List)
	accounts.Post("", cfg.Accounts.Create)
	accounts.Get("/:id", cfg.Accounts.Get)
	accounts.Put("/:id", cfg.Accounts.Update)
	accounts.Delete("/:id", cfg.Accounts.Delete)
	accounts.Put("/:id/change-owner", cfg.Accounts.ChangeOwner)

	contacts := protected.Group("/contacts")
	contacts.Get("", cfg.Contacts.List)
	contacts.Post("", cfg.Contacts.Create)
	contacts.Post("/check-duplicates", cfg.Contacts.CheckDuplicates)
	contacts.Get("/:id", cfg.Contacts.Get)
	contacts.Put("/:id", cfg.Contacts.Update)
	contacts.Delete("/:id", cfg.Contacts.Delete)
	contacts.Put("/:id/change-owner", cfg.Contacts.ChangeOwner)

	leads := protected.Group("/leads")
	leads.Get("", cfg.Leads.List)
	leads.Post("", cfg.Leads.Create)
	leads.Post("/check-duplicates", cfg.Leads.CheckDuplicates)
	leads.Get("/:id", cfg.Leads.Get)
	leads.Put("/:id", cfg.Leads.Update)
	leads.Delete("/:id", cfg.Leads.Delete)
	leads.Post("/:id/convert", cfg.Leads.Convert)
	leads.Put("/:id/change-owner", cfg.Leads.ChangeOwner)

	opportunities := protected.Group("/opportunities")
	opportunities.Get("", cfg.Opportunities.List)
	opportunities.Post("", cfg.Opportunities.Create)
	opportunities.Get("/:id", cfg.Opportunities.Get)
	opportunities.Put("/:id", cfg.Opportunities.Update)
	opportunities.Delete("/:id", cfg.Opportunities.Delete)
	opportunities.Put("/:id/stage", cfg.Opportunities.UpdateStage)
	opportunities.Put("/:id/change-owner", cfg.Opportunities.ChangeOwner)

	cases := protected.Group("/cases")
	cases.Get("", cfg.Cases.List)
	cases.Post("", cfg.Cases.Create)
	cases.Get("/by-priority", cfg.Cases.ByPriority)
	cases.Post("/merge", cfg.Cases.Merge)
	cases.Post("/check-sla", cfg.Cases.CheckSLA)
	cases.Get("/:id", cfg.Cases.Get)
	cases.Put("/:id", cfg.Cases.Update)
	cases.Delete("/:id", cfg.Cases.Delete)
	cases.Post("/:id/escalate", cfg.Cases.Escalate)
	cases.Put("/:id/change-owner", cfg.Cases.ChangeOwner)

	activities := protected.Group("/activities")
	activities.Post("", cfg.Activities.Create)
	activities.Get("/:record_type/:record_id", cfg.Activities.List)

	dashboard := protected.Group("/dashboard")
	dashboard.Get("/stats", cfg.Dashboard.Stats)
	dashboard.Get("/recent-records", cfg.Dashboard.RecentRecords)
	dashboard.Get("/search", cfg.Dashboard.Search)

	protected.Get("/audit-logs", auth.RequireAdmin(), cfg.Audit.List)
}

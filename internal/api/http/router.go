package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/forgecomply/forgecomply360/internal/api/http/handlers"
	"github.com/forgecomply/forgecomply360/internal/auth"
	"github.com/forgecomply/forgecomply360/internal/config"
	"github.com/forgecomply/forgecomply360/internal/domain"
	"github.com/forgecomply/forgecomply360/internal/observability"
	apperrors "github.com/forgecomply/forgecomply360/pkg/util/errorutil"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Users          *handlers.UsersHandler
	Systems        *handlers.SystemsHandler
	Catalog        *handlers.CatalogHandler
	POAMs          *handlers.POAMsHandler
	Evidence       *handlers.EvidenceHandler
	Policies       *handlers.PoliciesHandler
	Assets         *handlers.AssetsHandler
	Monitoring     *handlers.MonitoringHandler
	Approvals      *handlers.ApprovalsHandler
	Audit          *handlers.AuditHandler
	Dashboard      *handlers.DashboardHandler
	AuthMiddleware *auth.AuthMiddleware
	LoginThrottle  *auth.LoginThrottle
	Metrics        *observability.Metrics
}

// NewApp builds the fiber application. Errors that escape the middleware
// chain, such as an oversized body, still render the JSON envelope.
func NewApp(cfg *config.Config) *fiber.App {
	return fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		BodyLimit:             cfg.HTTP.BodyLimitBytes,
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			domainErr := apperrors.ToDomainError(err)
			return c.Status(domainErr.HTTPStatus).JSON(errorEnvelope(domainErr))
		},
	})
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Metrics.Registry(), promhttp.HandlerOpts{})))
	}

	api := app.Group("/api/v1")

	authGroup := api.Group("/auth")
	throttle := cfg.LoginThrottle.Handler()
	authGroup.Post("/register", throttle, cfg.Auth.Register)
	authGroup.Post("/login", throttle, cfg.Auth.Login)

	protected := api.Group("", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	analyst := auth.RequireRole(domain.RoleAnalyst)
	manager := auth.RequireRole(domain.RoleManager)
	admin := auth.RequireRole(domain.RoleAdmin)

	protected.Post("/auth/logout", cfg.Auth.Logout)
	protected.Get("/auth/me", cfg.Auth.Me)
	protected.Post("/auth/password", cfg.Auth.ChangePassword)

	protected.Get("/dashboard", cfg.Dashboard.Dashboard)
	protected.Get("/calendar", cfg.Dashboard.Calendar)

	protected.Get("/systems", cfg.Systems.List)
	protected.Get("/systems/inheritance", cfg.Systems.Inheritance)
	protected.Get("/systems/inheritance.svg", cfg.Systems.InheritanceSVG)
	protected.Post("/systems", manager, cfg.Systems.Create)
	protected.Get("/systems/:id", cfg.Systems.Get)
	protected.Patch("/systems/:id", manager, cfg.Systems.Update)
	protected.Delete("/systems/:id", admin, cfg.Systems.Delete)
	protected.Get("/systems/:id/compliance", cfg.Systems.Compliance)
	protected.Get("/systems/:id/implementations", cfg.Systems.ListImplementations)
	protected.Post("/systems/:id/implementations/bulk", analyst, cfg.Systems.BulkImplementations)
	protected.Put("/systems/:id/implementations/:controlId", analyst, cfg.Systems.UpsertImplementation)

	protected.Get("/frameworks", cfg.Catalog.ListFrameworks)
	protected.Get("/controls", cfg.Catalog.ListControls)
	protected.Get("/controls/:id", cfg.Catalog.GetControl)

	protected.Get("/poams", cfg.POAMs.List)
	protected.Get("/poams/export.csv", cfg.POAMs.Export)
	protected.Post("/poams", analyst, cfg.POAMs.Create)
	protected.Get("/poams/:id", cfg.POAMs.Get)
	protected.Patch("/poams/:id", analyst, cfg.POAMs.Update)
	protected.Delete("/poams/:id", admin, cfg.POAMs.Delete)
	protected.Post("/poams/:id/status", analyst, cfg.POAMs.ChangeStatus)
	protected.Post("/poams/:id/milestones", analyst, cfg.POAMs.AddMilestone)
	protected.Post("/poams/:id/milestones/:milestoneId/complete", analyst, cfg.POAMs.CompleteMilestone)

	protected.Get("/evidence", cfg.Evidence.List)
	protected.Post("/evidence", analyst, cfg.Evidence.Upload)
	protected.Get("/evidence/:id", cfg.Evidence.Get)
	protected.Patch("/evidence/:id", analyst, cfg.Evidence.Update)
	protected.Get("/evidence/:id/download", cfg.Evidence.Download)
	protected.Post("/evidence/:id/links", analyst, cfg.Evidence.Link)
	protected.Delete("/evidence/:id/links/:implementationId", analyst, cfg.Evidence.Unlink)
	protected.Post("/evidence/:id/archive", analyst, cfg.Evidence.Archive)

	protected.Get("/policies", cfg.Policies.List)
	protected.Post("/policies", manager, cfg.Policies.Create)
	protected.Get("/policies/:id", cfg.Policies.Get)
	protected.Patch("/policies/:id", manager, cfg.Policies.Update)
	protected.Get("/policies/:id/render", cfg.Policies.Render)
	protected.Post("/policies/:id/submit", manager, cfg.Policies.Submit)
	protected.Post("/policies/:id/retire", admin, cfg.Policies.Retire)

	protected.Get("/assets", cfg.Assets.List)
	protected.Get("/assets/export.csv", cfg.Assets.Export)
	protected.Post("/assets", analyst, cfg.Assets.Create)
	protected.Get("/assets/:id", cfg.Assets.Get)
	protected.Patch("/assets/:id", analyst, cfg.Assets.Update)
	protected.Delete("/assets/:id", manager, cfg.Assets.Delete)

	protected.Get("/monitoring", cfg.Monitoring.List)
	protected.Get("/monitoring/due", cfg.Monitoring.Due)
	protected.Post("/monitoring", analyst, cfg.Monitoring.Create)
	protected.Get("/monitoring/:id", cfg.Monitoring.Get)
	protected.Patch("/monitoring/:id", analyst, cfg.Monitoring.Update)
	protected.Get("/monitoring/:id/results", cfg.Monitoring.ListResults)
	protected.Post("/monitoring/:id/results", analyst, cfg.Monitoring.RecordResult)

	protected.Get("/approvals", cfg.Approvals.List)
	protected.Post("/approvals", analyst, cfg.Approvals.Create)
	protected.Get("/approvals/:id", cfg.Approvals.Get)
	protected.Post("/approvals/:id/decision", manager, cfg.Approvals.Decide)
	protected.Post("/approvals/:id/withdraw", cfg.Approvals.Withdraw)

	protected.Get("/users", admin, cfg.Users.List)
	protected.Post("/users", admin, cfg.Users.Create)
	protected.Get("/users/:id", admin, cfg.Users.Get)
	protected.Patch("/users/:id", admin, cfg.Users.Update)

	protected.Get("/audit-log", admin, cfg.Audit.List)
	protected.Get("/audit-log/export.csv", admin, cfg.Audit.Export)
}

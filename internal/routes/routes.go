package routes

import (
	rbac "github.com/bohemiyan/tenant-rbac"
	"github.com/bohemiyan/tenant-rbac/internal/auth"
	"github.com/bohemiyan/tenant-rbac/internal/tenant"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Deps are the services the API is built from.
type Deps struct {
	RBAC      *rbac.RBACService
	Auth      *auth.Service
	Companies *tenant.CompanyService
	Managers  *tenant.ManagerService
	Employees *tenant.EmployeeService
	Logger    *zap.SugaredLogger
}

// NewApp returns a fiber app with the envelope error handler and every
// route registered. middleware runs ahead of the routes.
func NewApp(deps Deps, middleware ...fiber.Handler) *fiber.App {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop().Sugar()
	}
	app := fiber.New(fiber.Config{
		AppName:      "tenant-rbac",
		ErrorHandler: ErrorHandler(deps.Logger),
	})
	for _, m := range middleware {
		app.Use(m)
	}
	Setup(app, deps)
	return app
}

// Setup registers the API routes on app.
func Setup(app *fiber.App, deps Deps) {
	h := &Handler{
		rbac:      deps.RBAC,
		auth:      deps.Auth,
		companies: deps.Companies,
		managers:  deps.Managers,
		employees: deps.Employees,
		validate:  newRequestValidator(),
	}
	bearer := auth.Middleware(deps.Auth)

	api := app.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Post("/register", h.register)
	authGroup.Post("/login", h.login)
	authGroup.Post("/logout", bearer, h.logout)
	authGroup.Post("/refresh", bearer, h.refresh)
	authGroup.Get("/me", bearer, h.me)

	company := api.Group("/company", bearer)
	company.Get("/", h.listCompanies)
	company.Post("/", h.createCompany)
	company.Get("/:id", h.getCompany)
	company.Put("/:id", h.updateCompany)
	company.Delete("/:id", h.deleteCompany)

	manager := api.Group("/manager", bearer)
	manager.Get("/", h.listManagers)
	manager.Get("/:id", h.getManager)
	manager.Put("/:id", h.updateManager)
	manager.Delete("/:id", h.deleteManager)

	employee := api.Group("/employee", bearer)
	employee.Get("/", h.listEmployees)
	employee.Post("/", h.createEmployee)
	employee.Get("/:id", h.getEmployee)
	employee.Put("/:id", h.updateEmployee)
	employee.Delete("/:id", h.deleteEmployee)

	admin := api.Group("/admin", bearer, deps.RBAC.RequirePermission(rbac.PermManageRBAC))
	admin.Get("/roles", h.listRoles)
	admin.Put("/roles/:id/permissions", h.setRolePermissions)
	admin.Get("/permissions", h.listPermissions)
	admin.Post("/permissions", h.createPermission)
	admin.Post("/permissions/check", h.bulkCheck)
	admin.Delete("/permissions/:name", h.deletePermission)
	admin.Put("/users/roles", h.bulkAssignRoles)
	admin.Put("/users/:id/role", h.assignUserRole)
	admin.Get("/audit-logs", h.listAuditLogs)
	admin.Get("/cache/stats", h.cacheStats)
}

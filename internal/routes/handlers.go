package routes

import (
	rbac "github.com/bohemiyan/tenant-rbac"
	"github.com/bohemiyan/tenant-rbac/internal/auth"
	"github.com/bohemiyan/tenant-rbac/internal/tenant"
	"github.com/gofiber/fiber/v2"
)

// Handler serves the REST API.
type Handler struct {
	rbac      *rbac.RBACService
	auth      *auth.Service
	companies *tenant.CompanyService
	managers  *tenant.ManagerService
	employees *tenant.EmployeeService
	validate  *requestValidator
}

func caller(c *fiber.Ctx) (uint, error) {
	id, ok := rbac.UserIDFromCtx(c)
	if !ok {
		return 0, rbac.ErrUnauthenticated
	}
	return id, nil
}

// Auth

func (h *Handler) register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := h.validate.bind(c, &req); err != nil {
		return err
	}
	session, err := h.auth.Register(c.UserContext(), auth.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		RoleID:   req.RoleID,
	})
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, "User registered successfully", session)
}

func (h *Handler) login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := h.validate.bind(c, &req); err != nil {
		return err
	}
	session, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "User logged in successfully", session)
}

func (h *Handler) logout(c *fiber.Ctx) error {
	claims, ok := auth.ClaimsFromCtx(c)
	if !ok {
		return rbac.ErrUnauthenticated
	}
	if err := h.auth.Logout(c.UserContext(), claims); err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "User logged out successfully", nil)
}

func (h *Handler) refresh(c *fiber.Ctx) error {
	claims, ok := auth.ClaimsFromCtx(c)
	if !ok {
		return rbac.ErrUnauthenticated
	}
	session, err := h.auth.Refresh(c.UserContext(), claims)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Token refreshed successfully", session)
}

func (h *Handler) me(c *fiber.Ctx) error {
	claims, ok := auth.ClaimsFromCtx(c)
	if !ok {
		return rbac.ErrUnauthenticated
	}
	user, err := h.auth.Me(c.UserContext(), claims)
	if err != nil {
		return err
	}
	perms, err := h.rbac.Permissions(c.UserContext(), user.ID)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "User retrieved successfully", fiber.Map{
		"user":        user,
		"permissions": perms.Names(),
	})
}

// Companies

func (h *Handler) listCompanies(c *fiber.Ctx) error {
	userID, err := caller(c)
	if err != nil {
		return err
	}
	q, err := h.validate.listQuery(c)
	if err != nil {
		return err
	}
	page, err := h.companies.List(c.UserContext(), userID, q)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Companies retrieved successfully", page)
}

func (h *Handler) getCompany(c *fiber.Ctx) error {
	userID, err := caller(c)
	if err != nil {
		return err
	}
	id, err := paramID(c)
	if err != nil {
		return err
	}
	company, err := h.companies.Get(c.UserContext(), userID, id)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Company retrieved successfully", company)
}

func (h *Handler) createCompany(c *fiber.Ctx) error {
	userID, err := caller(c)
	if err != nil {
		return err
	}
	var req CreateCompanyRequest
	if err := h.validate.bind(c, &req); err != nil {
		return err
	}
	out, err := h.companies.Create(c.UserContext(), userID, rbac.CompanyAttrs{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
	})
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, "Company created successfully", fiber.Map{
		"name":       out.Manager.Name,
		"email":      out.Manager.Email,
		"password":   out.Manager.Password,
		"company_id": out.Company.ID,
		"manager_id": out.Manager.ID,
	})
}

func (h *Handler) updateCompany(c *fiber.Ctx) error {
	userID, err := caller(c)
	if err != nil {
		return err
	}
	id, err := paramID(c)
	if err != nil {
		return err
	}
	var req UpdateCompanyRequest
	if err := h.validate.bind(c, &req); err != nil {
		return err
	}
	company, err := h.companies.Update(c.UserContext(), userID, id, rbac.CompanyAttrs{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
	})
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Company updated successfully", company)
}

func (h *Handler) deleteCompany(c *fiber.Ctx) error {
	userID, err := caller(c)
	if err != nil {
		return err
	}
	id, err := paramID(c)
	if err != nil {
		return err
	}
	if err := h.companies.Delete(c.UserContext(), userID, id); err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Company deleted successfully", nil)
}

// Managers

func (h *Handler) listManagers(c *fiber.Ctx) error {
	userID, err := caller(c)
	if err != nil {
		return err
	}
	q, err := h.validate.listQuery(c)
	if err != nil {
		return err
	}
	page, err := h.managers.List(c.UserContext(), userID, q)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Managers retrieved successfully", page)
}

func (h *Handler) getManager(c *fiber.Ctx) error {
	userID, err := caller(c)
	if err != nil {
		return err
	}
	id, err := paramID(c)
	if err != nil {
		return err
	}
	m, err := h.managers.Get(c.UserContext(), userID, id)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Manager retrieved successfully", m)
}

func (h *Handler) updateManager(c *fiber.Ctx) error {
	userID, err := caller(c)
	if err != nil {
		return err
	}
	id, err := paramID(c)
	if err != nil {
		return err
	}
	var req UpdateProfileRequest
	if err := h.validate.bind(c, &req); err != nil {
		return err
	}
	m, err := h.managers.Update(c.UserContext(), userID, id, rbac.ProfileAttrs(req))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Manager updated successfully", m)
}

func (h *Handler) deleteManager(c *fiber.Ctx) error {
	userID, err := caller(c)
	if err != nil {
		return err
	}
	id, err := paramID(c)
	if err != nil {
		return err
	}
	if err := h.managers.Delete(c.UserContext(), userID, id); err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Manager deleted successfully", nil)
}

// Employees

func (h *Handler) listEmployees(c *fiber.Ctx) error {
	userID, err := caller(c)
	if err != nil {
		return err
	}
	q, err := h.validate.listQuery(c)
	if err != nil {
		return err
	}
	page, err := h.employees.List(c.UserContext(), userID, q)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Employees retrieved successfully", page)
}

func (h *Handler) getEmployee(c *fiber.Ctx) error {
	userID, err := caller(c)
	if err != nil {
		return err
	}
	id, err := paramID(c)
	if err != nil {
		return err
	}
	e, err := h.employees.Get(c.UserContext(), userID, id)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Employee retrieved successfully", e)
}

func (h *Handler) createEmployee(c *fiber.Ctx) error {
	userID, err := caller(c)
	if err != nil {
		return err
	}
	var req CreateEmployeeRequest
	if err := h.validate.bind(c, &req); err != nil {
		return err
	}
	e, err := h.employees.Create(c.UserContext(), userID, tenant.EmployeeInput{
		Name:    req.Name,
		Phone:   req.Phone,
		Address: req.Address,
		UserID:  req.UserID,
	})
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, "Employee created successfully", e)
}

func (h *Handler) updateEmployee(c *fiber.Ctx) error {
	userID, err := caller(c)
	if err != nil {
		return err
	}
	id, err := paramID(c)
	if err != nil {
		return err
	}
	var req UpdateProfileRequest
	if err := h.validate.bind(c, &req); err != nil {
		return err
	}
	e, err := h.employees.Update(c.UserContext(), userID, id, rbac.ProfileAttrs(req))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Employee updated successfully", e)
}

func (h *Handler) deleteEmployee(c *fiber.Ctx) error {
	userID, err := caller(c)
	if err != nil {
		return err
	}
	id, err := paramID(c)
	if err != nil {
		return err
	}
	if err := h.employees.Delete(c.UserContext(), userID, id); err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Employee deleted successfully", nil)
}

package tenant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	rbac "github.com/bohemiyan/tenant-rbac"
)

// EmployeeInput holds the fields of a new employee.
type EmployeeInput struct {
	Name    string
	Phone   string
	Address string
	UserID  *uint
}

// EmployeeService exposes gated employee operations.
type EmployeeService struct {
	store *rbac.Store
	authz Authorizer
}

// NewEmployeeService returns an employee service.
func NewEmployeeService(store *rbac.Store, authz Authorizer) *EmployeeService {
	return &EmployeeService{store: store, authz: authz}
}

// List returns one page of employees.
func (s *EmployeeService) List(ctx context.Context, callerID uint, q rbac.ListQuery) (*rbac.Page[rbac.Employee], error) {
	if err := s.authz.Authorize(ctx, callerID, "read.employee", nil); err != nil {
		return nil, err
	}
	return s.store.ListEmployees(ctx, q)
}

// Create adds an employee to the caller's company. The caller must have a
// manager profile.
func (s *EmployeeService) Create(ctx context.Context, callerID uint, in EmployeeInput) (*rbac.Employee, error) {
	if err := s.authz.Authorize(ctx, callerID, "create.employee", nil); err != nil {
		return nil, err
	}

	m, err := s.store.ManagerByUserID(ctx, callerID)
	if errors.Is(err, rbac.ErrNotFound) {
		return nil, fmt.Errorf("caller %d has no manager profile: %w", callerID, rbac.ErrValidation)
	}
	if err != nil {
		return nil, err
	}

	e := &rbac.Employee{
		CompanyID: m.CompanyID,
		UserID:    in.UserID,
		Name:      strings.TrimSpace(in.Name),
		Phone:     strings.TrimSpace(in.Phone),
		Address:   strings.TrimSpace(in.Address),
	}
	if err := s.store.CreateEmployee(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Get returns an employee.
func (s *EmployeeService) Get(ctx context.Context, callerID, id uint) (*rbac.Employee, error) {
	e, err := s.store.EmployeeByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(ctx, callerID, "read.employee", e); err != nil {
		return nil, err
	}
	return e, nil
}

// Update changes an employee profile.
func (s *EmployeeService) Update(ctx context.Context, callerID, id uint, attrs rbac.ProfileAttrs) (*rbac.Employee, error) {
	e, err := s.store.EmployeeByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(ctx, callerID, "update.employee", e); err != nil {
		return nil, err
	}
	return s.store.UpdateEmployee(ctx, id, attrs)
}

// Delete soft-deletes an employee.
func (s *EmployeeService) Delete(ctx context.Context, callerID, id uint) error {
	e, err := s.store.EmployeeByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authz.Authorize(ctx, callerID, "delete.employee", e); err != nil {
		return err
	}
	return s.store.DeleteEmployee(ctx, id)
}

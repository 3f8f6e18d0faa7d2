package tenant

import (
	"context"

	rbac "github.com/bohemiyan/tenant-rbac"
)

// Authorizer checks a permission and fails with rbac.ErrForbidden on denial.
type Authorizer interface {
	Authorize(ctx context.Context, userID uint, permission string, resource any) error
}

// CompanyService exposes gated company operations.
type CompanyService struct {
	store       *rbac.Store
	authz       Authorizer
	provisioner *Provisioner
}

// NewCompanyService returns a company service.
func NewCompanyService(store *rbac.Store, authz Authorizer, provisioner *Provisioner) *CompanyService {
	return &CompanyService{store: store, authz: authz, provisioner: provisioner}
}

// List returns one page of companies.
func (s *CompanyService) List(ctx context.Context, callerID uint, q rbac.ListQuery) (*rbac.Page[rbac.Company], error) {
	if err := s.authz.Authorize(ctx, callerID, "read.company", nil); err != nil {
		return nil, err
	}
	return s.store.ListCompanies(ctx, q)
}

// Get returns a company. A missing company is reported before any
// permission check.
func (s *CompanyService) Get(ctx context.Context, callerID, id uint) (*rbac.Company, error) {
	company, err := s.store.CompanyByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(ctx, callerID, "read.company", company); err != nil {
		return nil, err
	}
	return company, nil
}

// Create provisions a company and its manager account.
func (s *CompanyService) Create(ctx context.Context, callerID uint, attrs rbac.CompanyAttrs) (*Provisioned, error) {
	if err := s.authz.Authorize(ctx, callerID, "create.company", nil); err != nil {
		return nil, err
	}
	if err := s.checkUnique(ctx, attrs, 0); err != nil {
		return nil, err
	}
	return s.provisioner.Provision(ctx, attrs)
}

// Update changes the non-empty fields of a company.
func (s *CompanyService) Update(ctx context.Context, callerID, id uint, attrs rbac.CompanyAttrs) (*rbac.Company, error) {
	company, err := s.store.CompanyByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(ctx, callerID, "update.company", company); err != nil {
		return nil, err
	}
	if err := s.checkUnique(ctx, attrs, id); err != nil {
		return nil, err
	}
	return s.store.UpdateCompany(ctx, id, attrs)
}

// Delete soft-deletes a company.
func (s *CompanyService) Delete(ctx context.Context, callerID, id uint) error {
	company, err := s.store.CompanyByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authz.Authorize(ctx, callerID, "delete.company", company); err != nil {
		return err
	}
	return s.store.DeleteCompany(ctx, id)
}

func (s *CompanyService) checkUnique(ctx context.Context, attrs rbac.CompanyAttrs, excludeID uint) error {
	taken, err := s.store.CompanyFieldsTaken(ctx, attrs, excludeID)
	if err != nil {
		return err
	}
	if len(taken) > 0 {
		return &rbac.DuplicateError{Entity: "company", Fields: taken}
	}
	return nil
}

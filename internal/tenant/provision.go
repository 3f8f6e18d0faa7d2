// Package tenant implements company provisioning and the gated resource
// services for companies, managers and employees.
package tenant

import (
	"context"
	"errors"
	"fmt"

	rbac "github.com/bohemiyan/tenant-rbac"
	"go.uber.org/zap"
)

// DefaultManagerPassword is the initial password of every provisioned
// manager account. It is returned once to the caller.
//
// TODO: replace with a generated one-time password and force rotation on
// first login.
const DefaultManagerPassword = "password"

// Provisioning steps, in execution order.
const (
	StepCreateCompany = "create_company"
	StepLookupRole    = "lookup_role"
	StepAttachRole    = "attach_role"
	StepCreateUser    = "create_user"
	StepCreateManager = "create_manager"
)

// Invalidator drops a user's cached permissions.
type Invalidator interface {
	Invalidate(ctx context.Context, userID uint) error
}

// ProvisionedManager is the manager account created for a new company. The
// password is only ever reported here.
type ProvisionedManager struct {
	ID       uint   `json:"id"`
	UserID   uint   `json:"user_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Provisioned is the outcome of a successful Provision.
type Provisioned struct {
	Company *rbac.Company      `json:"company"`
	Manager ProvisionedManager `json:"manager"`
}

// Provisioner creates a company together with its manager account.
type Provisioner struct {
	store  *rbac.Store
	hasher rbac.PasswordHasher
	cache  Invalidator
	log    *zap.SugaredLogger

	// beforeStep runs ahead of every step inside the transaction; a non-nil
	// error aborts provisioning.
	beforeStep func(step string) error
}

// NewProvisioner returns a provisioner. cache may be nil.
func NewProvisioner(store *rbac.Store, hasher rbac.PasswordHasher, cache Invalidator, log *zap.SugaredLogger) *Provisioner {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Provisioner{store: store, hasher: hasher, cache: cache, log: log}
}

func (p *Provisioner) step(name string) error {
	if p.beforeStep == nil {
		return nil
	}
	return p.beforeStep(name)
}

// Provision runs company creation, role binding, manager user creation and
// manager profile creation as one transaction. Any failure rolls everything
// back and is reported as ErrProvisioningFailed wrapping the cause.
func (p *Provisioner) Provision(ctx context.Context, attrs rbac.CompanyAttrs) (*Provisioned, error) {
	hash, err := p.hasher.Hash(DefaultManagerPassword)
	if err != nil {
		return nil, fmt.Errorf("%w: hash password: %w", rbac.ErrProvisioningFailed, err)
	}

	var out *Provisioned
	err = p.store.Transaction(ctx, func(tx *rbac.Store) error {
		if err := p.step(StepCreateCompany); err != nil {
			return err
		}
		company, err := tx.CreateCompany(ctx, attrs)
		if err != nil {
			return err
		}

		if err := p.step(StepLookupRole); err != nil {
			return err
		}
		role, err := tx.RoleByName(ctx, rbac.RoleManager)
		if errors.Is(err, rbac.ErrNotFound) {
			return fmt.Errorf("role %q is not seeded: %w", rbac.RoleManager, rbac.ErrConfiguration)
		}
		if err != nil {
			return err
		}

		if err := p.step(StepAttachRole); err != nil {
			return err
		}
		if err := tx.AttachCompanyRole(ctx, company.ID, role.ID); err != nil {
			return err
		}

		if err := p.step(StepCreateUser); err != nil {
			return err
		}
		user := &rbac.User{
			Name:         company.Name,
			Email:        company.Email,
			PasswordHash: hash,
			RoleID:       role.ID,
		}
		if err := tx.CreateUser(ctx, user); err != nil {
			return err
		}

		if err := p.step(StepCreateManager); err != nil {
			return err
		}
		manager := &rbac.Manager{
			CompanyID: company.ID,
			UserID:    user.ID,
			Name:      company.Name,
			Phone:     company.Phone,
		}
		if err := tx.CreateManager(ctx, manager); err != nil {
			return err
		}

		out = &Provisioned{
			Company: company,
			Manager: ProvisionedManager{
				ID:       manager.ID,
				UserID:   user.ID,
				Name:     manager.Name,
				Email:    user.Email,
				Password: DefaultManagerPassword,
			},
		}
		return nil
	})
	if err != nil {
		p.log.Errorw("company provisioning failed", "company", attrs.Name, "error", err)
		return nil, fmt.Errorf("%w: %w", rbac.ErrProvisioningFailed, err)
	}

	if p.cache != nil {
		if err := p.cache.Invalidate(ctx, out.Manager.UserID); err != nil {
			p.log.Warnw("failed to invalidate new manager", "user_id", out.Manager.UserID, "error", err)
		}
	}
	p.log.Infow("company provisioned", "company_id", out.Company.ID, "manager_user_id", out.Manager.UserID)
	return out, nil
}

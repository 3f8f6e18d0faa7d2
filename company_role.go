package rbac

import "context"

// AttachCompanyRole binds a role to a company. Attaching an already bound
// role is a no-op.
func (s *Store) AttachCompanyRole(ctx context.Context, companyID, roleID uint) error {
	company, err := s.CompanyByID(ctx, companyID)
	if err != nil {
		return err
	}
	role, err := s.RoleByID(ctx, roleID)
	if err != nil {
		return err
	}

	db, cancel := s.conn(ctx)
	defer cancel()

	if err := db.Model(company).Association("Roles").Append(role); err != nil {
		return translate(err, "attach role %d to company %d", roleID, companyID)
	}
	return nil
}

// DetachCompanyRole removes a role binding from a company.
func (s *Store) DetachCompanyRole(ctx context.Context, companyID, roleID uint) error {
	company, err := s.CompanyByID(ctx, companyID)
	if err != nil {
		return err
	}

	db, cancel := s.conn(ctx)
	defer cancel()

	if err := db.Model(company).Association("Roles").Delete(&Role{ID: roleID}); err != nil {
		return translate(err, "detach role %d from company %d", roleID, companyID)
	}
	return nil
}

// CompanyRoles lists the roles bound to a company.
func (s *Store) CompanyRoles(ctx context.Context, companyID uint) ([]Role, error) {
	company, err := s.CompanyByID(ctx, companyID)
	if err != nil {
		return nil, err
	}

	db, cancel := s.conn(ctx)
	defer cancel()

	var roles []Role
	if err := db.Model(company).Association("Roles").Find(&roles); err != nil {
		return nil, translate(err, "roles of company %d", companyID)
	}
	return roles, nil
}

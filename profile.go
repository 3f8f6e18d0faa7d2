package rbac

import (
	"context"
	"fmt"
	"strings"
)

// ProfileAttrs carries the writable fields of manager and employee profiles.
// Nil fields are left untouched on update.
type ProfileAttrs struct {
	Name    *string `json:"name"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
}

func (a ProfileAttrs) updates() map[string]any {
	updates := map[string]any{}
	if a.Name != nil && strings.TrimSpace(*a.Name) != "" {
		updates["name"] = strings.TrimSpace(*a.Name)
	}
	if a.Phone != nil {
		updates["phone"] = strings.TrimSpace(*a.Phone)
	}
	if a.Address != nil {
		updates["address"] = strings.TrimSpace(*a.Address)
	}
	return updates
}

// liveCompany fails with ErrValidation when the referenced company is
// missing or soft-deleted.
func (s *Store) liveCompany(ctx context.Context, companyID uint) error {
	if _, err := s.CompanyByID(ctx, companyID); err != nil {
		return fmt.Errorf("company %d: %w", companyID, ErrValidation)
	}
	return nil
}

// CreateManager persists a manager profile. The linked user must hold the
// manager role.
func (s *Store) CreateManager(ctx context.Context, m *Manager) error {
	if m == nil || strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("manager requires a name: %w", ErrValidation)
	}
	if err := s.liveCompany(ctx, m.CompanyID); err != nil {
		return err
	}

	u, err := s.UserByID(ctx, m.UserID)
	if err != nil {
		return fmt.Errorf("manager user %d: %w", m.UserID, ErrValidation)
	}
	if u.Role.Name != RoleManager {
		return fmt.Errorf("manager user %d holds role %q: %w", u.ID, u.Role.Name, ErrValidation)
	}

	db, cancel := s.conn(ctx)
	defer cancel()

	if err := db.Omit("Company", "User").Create(m).Error; err != nil {
		return translate(err, "create manager for company %d", m.CompanyID)
	}
	return nil
}

// ManagerByID retrieves a live manager profile.
func (s *Store) ManagerByID(ctx context.Context, id uint) (*Manager, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var m Manager
	if err := db.First(&m, id).Error; err != nil {
		return nil, translate(err, "manager %d", id)
	}
	return &m, nil
}

// ManagerByUserID looks up the manager profile that references userID.
func (s *Store) ManagerByUserID(ctx context.Context, userID uint) (*Manager, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var m Manager
	if err := db.Where("user_id = ?", userID).First(&m).Error; err != nil {
		return nil, translate(err, "manager of user %d", userID)
	}
	return &m, nil
}

// UpdateManager applies attrs to a manager profile.
func (s *Store) UpdateManager(ctx context.Context, id uint, attrs ProfileAttrs) (*Manager, error) {
	m, err := s.ManagerByID(ctx, id)
	if err != nil {
		return nil, err
	}
	updates := attrs.updates()
	if len(updates) == 0 {
		return m, nil
	}

	db, cancel := s.conn(ctx)
	defer cancel()

	if err := db.Model(m).Updates(updates).Error; err != nil {
		return nil, translate(err, "update manager %d", id)
	}
	return s.ManagerByID(ctx, id)
}

// DeleteManager soft-deletes a manager profile.
func (s *Store) DeleteManager(ctx context.Context, id uint) error {
	db, cancel := s.conn(ctx)
	defer cancel()

	res := db.Delete(&Manager{}, id)
	if res.Error != nil {
		return translate(res.Error, "delete manager %d", id)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("manager %d: %w", id, ErrNotFound)
	}
	return nil
}

// ListManagers returns one page of live managers.
func (s *Store) ListManagers(ctx context.Context, q ListQuery) (*Page[Manager], error) {
	return paginate[Manager](ctx, s, q, "managers")
}

// CreateEmployee persists an employee profile.
func (s *Store) CreateEmployee(ctx context.Context, e *Employee) error {
	if e == nil || strings.TrimSpace(e.Name) == "" {
		return fmt.Errorf("employee requires a name: %w", ErrValidation)
	}
	if err := s.liveCompany(ctx, e.CompanyID); err != nil {
		return err
	}
	if e.UserID != nil {
		if _, err := s.UserByID(ctx, *e.UserID); err != nil {
			return fmt.Errorf("employee user %d: %w", *e.UserID, ErrValidation)
		}
	}

	db, cancel := s.conn(ctx)
	defer cancel()

	if err := db.Omit("Company", "User").Create(e).Error; err != nil {
		return translate(err, "create employee for company %d", e.CompanyID)
	}
	return nil
}

// EmployeeByID retrieves a live employee profile.
func (s *Store) EmployeeByID(ctx context.Context, id uint) (*Employee, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var e Employee
	if err := db.First(&e, id).Error; err != nil {
		return nil, translate(err, "employee %d", id)
	}
	return &e, nil
}

// UpdateEmployee applies attrs to an employee profile.
func (s *Store) UpdateEmployee(ctx context.Context, id uint, attrs ProfileAttrs) (*Employee, error) {
	e, err := s.EmployeeByID(ctx, id)
	if err != nil {
		return nil, err
	}
	updates := attrs.updates()
	if len(updates) == 0 {
		return e, nil
	}

	db, cancel := s.conn(ctx)
	defer cancel()

	if err := db.Model(e).Updates(updates).Error; err != nil {
		return nil, translate(err, "update employee %d", id)
	}
	return s.EmployeeByID(ctx, id)
}

// DeleteEmployee soft-deletes an employee profile.
func (s *Store) DeleteEmployee(ctx context.Context, id uint) error {
	db, cancel := s.conn(ctx)
	defer cancel()

	res := db.Delete(&Employee{}, id)
	if res.Error != nil {
		return translate(res.Error, "delete employee %d", id)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("employee %d: %w", id, ErrNotFound)
	}
	return nil
}

// ListEmployees returns one page of live employees.
func (s *Store) ListEmployees(ctx context.Context, q ListQuery) (*Page[Employee], error) {
	return paginate[Employee](ctx, s, q, "employees")
}

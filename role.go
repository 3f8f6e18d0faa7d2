package rbac

import (
	"context"
	"fmt"
	"strings"
)

// RoleByName retrieves a role by its unique name.
func (s *Store) RoleByName(ctx context.Context, name string) (*Role, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var role Role
	if err := db.Where("name = ?", name).First(&role).Error; err != nil {
		return nil, translate(err, "role %s", name)
	}
	return &role, nil
}

// RoleByID retrieves a role by ID.
func (s *Store) RoleByID(ctx context.Context, id uint) (*Role, error) {
	if id == 0 {
		return nil, fmt.Errorf("role id is required: %w", ErrValidation)
	}

	db, cancel := s.conn(ctx)
	defer cancel()

	var role Role
	if err := db.First(&role, id).Error; err != nil {
		return nil, translate(err, "role %d", id)
	}
	return &role, nil
}

// ListRoles retrieves all roles with their bound permissions.
func (s *Store) ListRoles(ctx context.Context) ([]Role, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var roles []Role
	if err := db.Preload("Permissions").Order("id").Find(&roles).Error; err != nil {
		return nil, translate(err, "list roles")
	}
	return roles, nil
}

// CreateRole creates a role bound to the named permissions.
func (s *Store) CreateRole(ctx context.Context, name string, permissionNames []string) (*Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("role name is required: %w", ErrValidation)
	}

	perms, err := s.permissionsByName(ctx, permissionNames)
	if err != nil {
		return nil, err
	}

	db, cancel := s.conn(ctx)
	defer cancel()

	role := &Role{Name: name, Permissions: perms}
	if err := db.Create(role).Error; err != nil {
		return nil, translate(err, "create role %s", name)
	}
	return role, nil
}

// SetRolePermissions replaces the permissions bound to a role. Callers must
// invalidate the permission cache of every user holding the role.
func (s *Store) SetRolePermissions(ctx context.Context, roleID uint, permissionNames []string) error {
	role, err := s.RoleByID(ctx, roleID)
	if err != nil {
		return err
	}

	perms, err := s.permissionsByName(ctx, permissionNames)
	if err != nil {
		return err
	}

	db, cancel := s.conn(ctx)
	defer cancel()

	if err := db.Model(role).Association("Permissions").Replace(perms); err != nil {
		return translate(err, "bind permissions to role %d", roleID)
	}
	return nil
}

// UserIDsWithRole lists live users holding roleID.
func (s *Store) UserIDsWithRole(ctx context.Context, roleID uint) ([]uint, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var ids []uint
	if err := db.Model(&User{}).Where("role_id = ?", roleID).Pluck("id", &ids).Error; err != nil {
		return nil, translate(err, "users with role %d", roleID)
	}
	return ids, nil
}

// SetRolePermissions rebinds a role and invalidates every affected user.
func (r *RBACService) SetRolePermissions(ctx context.Context, actorID, roleID uint, permissionNames []string) error {
	if err := r.store.SetRolePermissions(ctx, roleID, permissionNames); err != nil {
		r.audit.Record(ctx, actorID, "set_role_permissions", "role", roleID, false, err.Error())
		return err
	}

	if err := r.cache.InvalidateRole(ctx, roleID); err != nil {
		return fmt.Errorf("invalidate role %d: %w", roleID, err)
	}
	r.audit.Record(ctx, actorID, "set_role_permissions", "role", roleID, true, strings.Join(permissionNames, ","))
	return nil
}

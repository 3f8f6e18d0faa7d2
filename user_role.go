package rbac

import (
	"context"
	"fmt"
)

// AssignUserRole moves a live user to roleID.
func (s *Store) AssignUserRole(ctx context.Context, userID, roleID uint) error {
	if _, err := s.RoleByID(ctx, roleID); err != nil {
		return err
	}

	db, cancel := s.conn(ctx)
	defer cancel()

	res := db.Model(&User{}).Where("id = ?", userID).Update("role_id", roleID)
	if res.Error != nil {
		return translate(res.Error, "assign role %d to user %d", roleID, userID)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	return nil
}

// AssignRole gives userID the named role and drops its cached permissions.
func (r *RBACService) AssignRole(ctx context.Context, actorID, userID uint, roleName string) error {
	role, err := r.store.RoleByName(ctx, roleName)
	if err != nil {
		r.audit.Record(ctx, actorID, "assign_role", "user", userID, false, roleName)
		return fmt.Errorf("role %s: %w", roleName, ErrValidation)
	}

	if err := r.store.AssignUserRole(ctx, userID, role.ID); err != nil {
		r.audit.Record(ctx, actorID, "assign_role", "user", userID, false, roleName)
		return err
	}

	if err := r.cache.Invalidate(ctx, userID); err != nil {
		return err
	}
	r.audit.Record(ctx, actorID, "assign_role", "user", userID, true, roleName)
	return nil
}

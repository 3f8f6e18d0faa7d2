package rbac

import (
	"context"
	"fmt"
	"regexp"
	"sort"
)

var permissionNamePattern = regexp.MustCompile(`^[a-z][a-z_]*\.[a-z][a-z_]*$`)

// ValidPermissionName reports whether name follows "<verb>.<resource>".
func ValidPermissionName(name string) bool {
	return permissionNamePattern.MatchString(name)
}

// CreatePermission creates a new permission.
func (s *Store) CreatePermission(ctx context.Context, name string) (*Permission, error) {
	if !ValidPermissionName(name) {
		return nil, fmt.Errorf("permission %q must look like <verb>.<resource>: %w", name, ErrValidation)
	}

	db, cancel := s.conn(ctx)
	defer cancel()

	perm := &Permission{Name: name}
	if err := db.Create(perm).Error; err != nil {
		return nil, translate(err, "create permission %s", name)
	}
	return perm, nil
}

// ListPermissions retrieves all permissions.
func (s *Store) ListPermissions(ctx context.Context) ([]Permission, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var perms []Permission
	if err := db.Order("id").Find(&perms).Error; err != nil {
		return nil, translate(err, "list permissions")
	}
	return perms, nil
}

// DeletePermission removes a permission and its role bindings.
func (s *Store) DeletePermission(ctx context.Context, name string) error {
	return s.Transaction(ctx, func(tx *Store) error {
		perms, err := tx.permissionsByName(ctx, []string{name})
		if err != nil {
			return err
		}

		db, cancel := tx.conn(ctx)
		defer cancel()

		if err := db.Exec("DELETE FROM role_permissions WHERE permission_id = ?", perms[0].ID).Error; err != nil {
			return translate(err, "unbind permission %s", name)
		}
		if err := db.Delete(&perms[0]).Error; err != nil {
			return translate(err, "delete permission %s", name)
		}
		return nil
	})
}

// PermissionNamesForUser follows user -> role -> permissions. A missing or
// soft-deleted user yields ErrNotFound.
func (s *Store) PermissionNamesForUser(ctx context.Context, userID uint) ([]string, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var u User
	if err := db.Select("id", "role_id").First(&u, userID).Error; err != nil {
		return nil, translate(err, "user %d", userID)
	}

	var names []string
	err := db.Model(&Permission{}).
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Where("role_permissions.role_id = ?", u.RoleID).
		Pluck("permissions.name", &names).Error
	if err != nil {
		return nil, translate(err, "permissions of user %d", userID)
	}
	sort.Strings(names)
	return names, nil
}

// permissionsByName resolves every name or fails with ErrValidation naming
// the first unknown permission.
func (s *Store) permissionsByName(ctx context.Context, names []string) ([]Permission, error) {
	if len(names) == 0 {
		return []Permission{}, nil
	}

	db, cancel := s.conn(ctx)
	defer cancel()

	var perms []Permission
	if err := db.Where("name IN ?", names).Find(&perms).Error; err != nil {
		return nil, translate(err, "load permissions")
	}

	found := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		found[p.Name] = struct{}{}
	}
	for _, n := range names {
		if _, ok := found[n]; !ok {
			return nil, fmt.Errorf("permission %s not found: %w", n, ErrValidation)
		}
	}
	return perms, nil
}

// CreatePermission adds a permission and refreshes the catalog.
func (r *RBACService) CreatePermission(ctx context.Context, actorID uint, name string) (*Permission, error) {
	perm, err := r.store.CreatePermission(ctx, name)
	if err != nil {
		r.audit.Record(ctx, actorID, "create_permission", "permission", 0, false, name)
		return nil, err
	}

	if err := r.catalog.Reload(ctx); err != nil {
		return nil, err
	}
	r.audit.Record(ctx, actorID, "create_permission", "permission", perm.ID, true, name)
	return perm, nil
}

// DeletePermission removes a permission, refreshes the catalog and drops
// every cached permission set.
func (r *RBACService) DeletePermission(ctx context.Context, actorID uint, name string) error {
	if err := r.store.DeletePermission(ctx, name); err != nil {
		r.audit.Record(ctx, actorID, "delete_permission", "permission", 0, false, name)
		return err
	}

	if err := r.catalog.Reload(ctx); err != nil {
		return err
	}
	if err := r.cache.InvalidateAll(ctx); err != nil {
		return err
	}
	r.audit.Record(ctx, actorID, "delete_permission", "permission", 0, true, name)
	return nil
}

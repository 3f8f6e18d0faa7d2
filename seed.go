package rbac

import (
	"context"
	"errors"
	"fmt"
)

// PermManageRBAC grants the role, permission and audit administration API.
const PermManageRBAC = "manage.rbac"

// DefaultRolePermissions is the seeded role matrix.
var DefaultRolePermissions = map[string][]string{
	RoleSuperAdmin: {
		"create.company", "read.company", "update.company", "delete.company",
		"delete.manager",
		PermManageRBAC,
	},
	RoleManager: {
		"read.company",
		"read.manager", "update.manager",
		"create.employee", "read.employee", "update.employee", "delete.employee",
	},
	RoleEmployee: {
		"read.employee",
	},
}

// DefaultPermissions lists every "<verb>.<resource>" pair over the tenant
// resources plus PermManageRBAC.
func DefaultPermissions() []string {
	var names []string
	for _, resource := range []string{"company", "manager", "employee"} {
		for _, verb := range []string{"create", "read", "update", "delete"} {
			names = append(names, verb+"."+resource)
		}
	}
	return append(names, PermManageRBAC)
}

// SeedUser is an account created by Seed when a hasher is available.
type SeedUser struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// DefaultSeedUsers are the demo accounts of a fresh install.
var DefaultSeedUsers = []SeedUser{
	{Name: "Super Admin", Email: "superadmin@gmail.com", Password: "password", Role: RoleSuperAdmin},
	{Name: "Employee", Email: "employee@gmail.com", Password: "password", Role: RoleEmployee},
}

// Seed creates the default permissions, roles and role bindings. Running it
// again leaves existing rows alone. With a non-nil hasher it also creates
// the users in DefaultSeedUsers that do not exist yet.
func (s *Store) Seed(ctx context.Context, hasher PasswordHasher) error {
	return s.Transaction(ctx, func(tx *Store) error {
		db, cancel := tx.conn(ctx)
		defer cancel()

		for _, name := range DefaultPermissions() {
			if err := db.Where(Permission{Name: name}).FirstOrCreate(&Permission{}).Error; err != nil {
				return translate(err, "seed permission %s", name)
			}
		}

		for _, roleName := range []string{RoleSuperAdmin, RoleManager, RoleEmployee} {
			var role Role
			if err := db.Where(Role{Name: roleName}).FirstOrCreate(&role).Error; err != nil {
				return translate(err, "seed role %s", roleName)
			}
			perms, err := tx.permissionsByName(ctx, DefaultRolePermissions[roleName])
			if err != nil {
				return err
			}
			if err := db.Model(&role).Association("Permissions").Append(perms); err != nil {
				return translate(err, "seed bindings of %s", roleName)
			}
		}

		if hasher == nil {
			return nil
		}
		for _, su := range DefaultSeedUsers {
			if _, err := tx.UserByEmail(ctx, su.Email); err == nil {
				continue
			} else if !errors.Is(err, ErrNotFound) {
				return err
			}

			role, err := tx.RoleByName(ctx, su.Role)
			if err != nil {
				return err
			}
			hash, err := hasher.Hash(su.Password)
			if err != nil {
				return fmt.Errorf("hash seed password: %w", err)
			}
			u := &User{Name: su.Name, Email: su.Email, PasswordHash: hash, RoleID: role.ID}
			if err := tx.CreateUser(ctx, u); err != nil {
				return err
			}
		}
		return nil
	})
}

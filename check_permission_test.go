package rbac

import (
	"context"
	"testing"

	"github.com/bohemiyan/tenant-rbac/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateAllowsMatchesRoleBindings(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()
	s := svc.Store()

	admin := newUser(t, s, "admin@example.com", RoleSuperAdmin)
	mgr := newUser(t, s, "mgr@example.com", RoleManager)
	emp := newUser(t, s, "emp@example.com", RoleEmployee)

	for _, perm := range svc.Catalog().Names() {
		for _, u := range []*User{admin, mgr, emp} {
			role, err := s.RoleByID(ctx, u.RoleID)
			require.NoError(t, err)
			want := false
			for _, p := range DefaultRolePermissions[role.Name] {
				if p == perm {
					want = true
				}
			}

			got, err := svc.Gate().Allows(ctx, u.ID, perm, nil)
			require.NoError(t, err)
			assert.Equal(t, want, got, "%s %s", role.Name, perm)
		}
	}
}

func TestGateErrors(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()
	mgr := newUser(t, svc.Store(), "mgr@example.com", RoleManager)

	_, err := svc.Gate().Allows(ctx, mgr.ID, "fly.company", nil)
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = svc.Gate().Allows(ctx, 0, "read.company", nil)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = svc.Gate().Allows(ctx, 9999, "read.company", nil)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	assert.ErrorIs(t, svc.Authorize(ctx, mgr.ID, "create.company", nil), ErrForbidden)
	assert.NoError(t, svc.Authorize(ctx, mgr.ID, "read.company", nil))
}

func TestAuthorizeAuditsDenials(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()
	emp := newUser(t, svc.Store(), "emp@example.com", RoleEmployee)

	require.ErrorIs(t, svc.Authorize(ctx, emp.ID, "delete.company", nil), ErrForbidden)

	logs, err := svc.Store().ListAuditLogs(ctx, AuditFilter{ActorUserID: emp.ID, Action: "authorize"})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.False(t, logs[0].Success)
	assert.Equal(t, "delete.company", logs[0].Details)
}

func TestGateCoherentAfterRoleChanges(t *testing.T) {
	_, client := testutil.NewRedis(t)
	svc := newTestService(t, client)
	ctx := context.Background()
	s := svc.Store()

	emp := newUser(t, s, "emp@example.com", RoleEmployee)
	allowed, err := svc.Gate().Allows(ctx, emp.ID, "create.employee", nil)
	require.NoError(t, err)
	require.False(t, allowed)

	role, err := s.RoleByName(ctx, RoleEmployee)
	require.NoError(t, err)
	require.NoError(t, svc.SetRolePermissions(ctx, 0, role.ID, []string{"read.employee", "create.employee"}))

	allowed, err = svc.Gate().Allows(ctx, emp.ID, "create.employee", nil)
	require.NoError(t, err)
	assert.True(t, allowed, "role rebinding is visible immediately")

	require.NoError(t, svc.AssignRole(ctx, 0, emp.ID, RoleSuperAdmin))
	allowed, err = svc.Gate().Allows(ctx, emp.ID, "create.employee", nil)
	require.NoError(t, err)
	assert.False(t, allowed)
	allowed, err = svc.Gate().Allows(ctx, emp.ID, "create.company", nil)
	require.NoError(t, err)
	assert.True(t, allowed, "role reassignment is visible immediately")

	assert.ErrorIs(t, svc.AssignRole(ctx, 0, emp.ID, "pilot"), ErrValidation)
	assert.ErrorIs(t, svc.SetRolePermissions(ctx, 0, role.ID, []string{"fly.company"}), ErrValidation)
}

func TestPermissionCreateAndDeleteRefreshCatalog(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()
	admin := newUser(t, svc.Store(), "admin@example.com", RoleSuperAdmin)

	_, err := svc.CreatePermission(ctx, admin.ID, "export.company")
	require.NoError(t, err)
	assert.True(t, svc.Catalog().Has("export.company"))

	_, err = svc.CreatePermission(ctx, admin.ID, "Export Company")
	assert.ErrorIs(t, err, ErrValidation)

	allowed, err := svc.Gate().Allows(ctx, admin.ID, "read.company", nil)
	require.NoError(t, err)
	require.True(t, allowed)

	require.NoError(t, svc.DeletePermission(ctx, admin.ID, "read.company"))
	assert.False(t, svc.Catalog().Has("read.company"))
	_, err = svc.Gate().Allows(ctx, admin.ID, "read.company", nil)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestGateScopePolicy(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()
	mgr := newUser(t, svc.Store(), "mgr@example.com", RoleManager)

	gate := NewGate(svc.Cache(), svc.Catalog(), nil).WithScope(
		func(_ context.Context, _ uint, _ string, resource any) (bool, error) {
			c, ok := resource.(*Company)
			return ok && c.ID == 1, nil
		})
	svc.SetGate(gate)

	assert.NoError(t, svc.Authorize(ctx, mgr.ID, "read.company", &Company{ID: 1}))
	assert.ErrorIs(t, svc.Authorize(ctx, mgr.ID, "read.company", &Company{ID: 2}), ErrForbidden)
	assert.ErrorIs(t, svc.Authorize(ctx, mgr.ID, "delete.company", &Company{ID: 1}), ErrForbidden)
}

func TestStaticCatalog(t *testing.T) {
	c := NewCatalog("read.company", "create.company")
	assert.True(t, c.Has("read.company"))
	assert.NoError(t, c.Reload(context.Background()))
	assert.Equal(t, []string{"create.company", "read.company"}, c.Names())
}

package rbac

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedIsIdempotent(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	require.NoError(t, svc.Store().Seed(ctx, plainHasher{}))

	roles, err := svc.Store().ListRoles(ctx)
	require.NoError(t, err)
	assert.Len(t, roles, 3)

	perms, err := svc.Store().ListPermissions(ctx)
	require.NoError(t, err)
	assert.Len(t, perms, 13)

	names, err := svc.Store().PermissionNamesForUser(ctx, mustUserID(t, svc.Store(), "superadmin@gmail.com"))
	require.NoError(t, err)
	assert.Equal(t, []string{"create.company", "delete.company", "delete.manager", "manage.rbac", "read.company", "update.company"}, names)
}

func mustUserID(t *testing.T, s *Store, email string) uint {
	t.Helper()
	u, err := s.UserByEmail(context.Background(), email)
	require.NoError(t, err)
	return u.ID
}

func TestCreateCompanyDuplicateKey(t *testing.T) {
	s := newTestService(t, nil).Store()
	ctx := context.Background()

	newCompany(t, s, "Acme")
	_, err := s.CreateCompany(ctx, CompanyAttrs{Name: "Acme", Email: "other@example.com", Phone: "999"})
	assert.ErrorIs(t, err, ErrDuplicateKey)

	_, err = s.CreateCompany(ctx, CompanyAttrs{Name: "Other", Email: "ACME@example.com", Phone: "999"})
	assert.ErrorIs(t, err, ErrDuplicateKey, "emails are compared case-insensitively")

	_, err = s.CreateCompany(ctx, CompanyAttrs{Name: "", Email: "x@example.com", Phone: "1"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCompanyFieldsTaken(t *testing.T) {
	s := newTestService(t, nil).Store()
	ctx := context.Background()

	acme := newCompany(t, s, "Acme")

	taken, err := s.CompanyFieldsTaken(ctx, CompanyAttrs{Name: "Acme", Email: "acme@example.com", Phone: "1"}, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "email"}, taken)

	taken, err = s.CompanyFieldsTaken(ctx, CompanyAttrs{Name: "Acme"}, acme.ID)
	require.NoError(t, err)
	assert.Empty(t, taken)
}

func TestSoftDelete(t *testing.T) {
	s := newTestService(t, nil).Store()
	ctx := context.Background()

	c := newCompany(t, s, "Acme")
	require.NoError(t, s.DeleteCompany(ctx, c.ID))

	_, err := s.CompanyByID(ctx, c.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	exists, err := s.Exists(ctx, &Company{}, c.ID)
	require.NoError(t, err)
	assert.True(t, exists, "soft-deleted rows stay in storage")

	page, err := s.ListCompanies(ctx, ListQuery{})
	require.NoError(t, err)
	assert.Zero(t, page.Total)

	assert.ErrorIs(t, s.DeleteCompany(ctx, c.ID), ErrNotFound)

	_, err = s.CreateCompany(ctx, CompanyAttrs{Name: "Acme", Email: "new@example.com", Phone: "1"})
	assert.ErrorIs(t, err, ErrDuplicateKey, "deleted companies keep their unique values")
}

func TestListCompaniesPagination(t *testing.T) {
	s := newTestService(t, nil).Store()
	ctx := context.Background()

	for i := 1; i <= 25; i++ {
		newCompany(t, s, fmt.Sprintf("Company%02d", i))
	}

	first, err := s.ListCompanies(ctx, ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, first.CurrentPage)
	assert.Equal(t, 10, first.PerPage)
	assert.EqualValues(t, 25, first.Total)
	assert.Equal(t, 3, first.LastPage)
	assert.Len(t, first.Data, 10)

	third, err := s.ListCompanies(ctx, ListQuery{Page: 3})
	require.NoError(t, err)
	assert.Len(t, third.Data, 5)
	assert.EqualValues(t, 25, third.Total)

	beyond, err := s.ListCompanies(ctx, ListQuery{Page: 4})
	require.NoError(t, err)
	assert.Empty(t, beyond.Data)
}

func TestListCompaniesSearchAndSort(t *testing.T) {
	s := newTestService(t, nil).Store()
	ctx := context.Background()

	for _, n := range []string{"Alpha", "Beta", "Gamma"} {
		newCompany(t, s, n)
	}

	found, err := s.ListCompanies(ctx, ListQuery{Name: "eta"})
	require.NoError(t, err)
	require.Len(t, found.Data, 1)
	assert.Equal(t, "Beta", found.Data[0].Name)

	desc, err := s.ListCompanies(ctx, ListQuery{Sort: "desc"})
	require.NoError(t, err)
	var names []string
	for _, c := range desc.Data {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"Gamma", "Beta", "Alpha"}, names)

	_, err = s.ListCompanies(ctx, ListQuery{Sort: "sideways"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpdateCompany(t *testing.T) {
	s := newTestService(t, nil).Store()
	ctx := context.Background()

	c := newCompany(t, s, "Acme")
	updated, err := s.UpdateCompany(ctx, c.ID, CompanyAttrs{Phone: "123"})
	require.NoError(t, err)
	assert.Equal(t, "Acme", updated.Name)
	assert.Equal(t, "123", updated.Phone)

	_, err = s.UpdateCompany(ctx, 9999, CompanyAttrs{Phone: "1"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateManagerRequiresManagerRole(t *testing.T) {
	s := newTestService(t, nil).Store()
	ctx := context.Background()

	c := newCompany(t, s, "Acme")
	emp := newUser(t, s, "emp@example.com", RoleEmployee)
	mgr := newUser(t, s, "mgr@example.com", RoleManager)

	err := s.CreateManager(ctx, &Manager{CompanyID: c.ID, UserID: emp.ID, Name: "Emp"})
	assert.ErrorIs(t, err, ErrValidation)

	m := &Manager{CompanyID: c.ID, UserID: mgr.ID, Name: "Mgr"}
	require.NoError(t, s.CreateManager(ctx, m))

	byUser, err := s.ManagerByUserID(ctx, mgr.ID)
	require.NoError(t, err)
	assert.Equal(t, m.ID, byUser.ID)

	err = s.CreateManager(ctx, &Manager{CompanyID: 9999, UserID: mgr.ID, Name: "Ghost"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestEmployeeLifecycle(t *testing.T) {
	s := newTestService(t, nil).Store()
	ctx := context.Background()

	c := newCompany(t, s, "Acme")
	e := &Employee{CompanyID: c.ID, Name: "Eve"}
	require.NoError(t, s.CreateEmployee(ctx, e))

	addr := "Main St 1"
	updated, err := s.UpdateEmployee(ctx, e.ID, ProfileAttrs{Address: &addr})
	require.NoError(t, err)
	assert.Equal(t, "Eve", updated.Name)
	assert.Equal(t, addr, updated.Address)

	require.NoError(t, s.DeleteEmployee(ctx, e.ID))
	_, err = s.EmployeeByID(ctx, e.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateUserUnknownRole(t *testing.T) {
	s := newTestService(t, nil).Store()

	err := s.CreateUser(context.Background(), &User{Name: "x", Email: "x@example.com", PasswordHash: "h", RoleID: 42})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestTransactionRollsBack(t *testing.T) {
	s := newTestService(t, nil).Store()
	ctx := context.Background()

	err := s.Transaction(ctx, func(tx *Store) error {
		if _, err := tx.CreateCompany(ctx, CompanyAttrs{Name: "Tmp", Email: "tmp@example.com", Phone: "1"}); err != nil {
			return err
		}
		return fmt.Errorf("boom")
	})
	require.Error(t, err)

	page, err := s.ListCompanies(ctx, ListQuery{})
	require.NoError(t, err)
	assert.Zero(t, page.Total)
}

func TestExpiredDeadlineIsTimeout(t *testing.T) {
	s := newTestService(t, nil).Store()
	c := newCompany(t, s, "Acme")

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := s.CompanyByID(ctx, c.ID)
	require.ErrorIs(t, err, ErrTimeout)
	assert.True(t, IsRetryable(err))

	_, err = s.ListCompanies(ctx, ListQuery{})
	assert.ErrorIs(t, err, ErrTimeout)

	err = s.Transaction(ctx, func(tx *Store) error {
		_, err := tx.CompanyByID(ctx, c.ID)
		return err
	})
	assert.ErrorIs(t, err, ErrTimeout)
}

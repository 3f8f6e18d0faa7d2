package rbac

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bohemiyan/tenant-rbac/internal/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// plainHasher keeps tests fast; bcrypt is covered in internal/auth.
type plainHasher struct{}

func (plainHasher) Hash(pw string) (string, error) { return "plain:" + pw, nil }

func (plainHasher) Compare(hash, pw string) error {
	if hash != "plain:"+pw {
		return errors.New("mismatch")
	}
	return nil
}

func newTestService(t *testing.T, client *redis.Client) *RBACService {
	t.Helper()

	svc, err := NewRBACService(context.Background(), Config{
		DB:                 testutil.NewDB(t),
		RedisClient:        client,
		AutoMigrate:        true,
		Seed:               true,
		Hasher:             plainHasher{},
		EnableAuditLogging: true,
	})
	require.NoError(t, err)
	return svc
}

func newUser(t *testing.T, s *Store, email, role string) *User {
	t.Helper()
	ctx := context.Background()

	r, err := s.RoleByName(ctx, role)
	require.NoError(t, err)
	u := &User{Name: strings.Split(email, "@")[0], Email: email, PasswordHash: "plain:password", RoleID: r.ID}
	require.NoError(t, s.CreateUser(ctx, u))
	return u
}

func newCompany(t *testing.T, s *Store, name string) *Company {
	t.Helper()
	lower := strings.ToLower(name)
	c, err := s.CreateCompany(context.Background(), CompanyAttrs{
		Name:  name,
		Email: lower + "@example.com",
		Phone: "555-" + lower,
	})
	require.NoError(t, err)
	return c
}

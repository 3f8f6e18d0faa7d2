package rbac

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// AuthorizationGate decides whether a user may exercise a permission on a
// resource.
type AuthorizationGate interface {
	Allows(ctx context.Context, userID uint, permission string, resource any) (bool, error)
}

// PermissionResolver yields the permission set of a user.
type PermissionResolver interface {
	Resolve(ctx context.Context, userID uint) (PermissionSet, error)
}

// ScopePolicy narrows a granted permission to specific resources, for
// example to the caller's own company. A nil policy grants role-wide.
type ScopePolicy func(ctx context.Context, userID uint, permission string, resource any) (bool, error)

// Gate is the role-based AuthorizationGate.
type Gate struct {
	resolver PermissionResolver
	catalog  *PermissionCatalog
	scope    ScopePolicy
	log      *zap.SugaredLogger
}

// NewGate returns a gate backed by resolver. catalog may be nil to accept
// any permission name.
func NewGate(resolver PermissionResolver, catalog *PermissionCatalog, log *zap.SugaredLogger) *Gate {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Gate{resolver: resolver, catalog: catalog, log: log}
}

// WithScope installs a scope policy consulted after the role check passes.
func (g *Gate) WithScope(p ScopePolicy) *Gate {
	g.scope = p
	return g
}

// Allows reports whether userID holds permission. A permission outside the
// catalog is a configuration error, not a denial.
func (g *Gate) Allows(ctx context.Context, userID uint, permission string, resource any) (bool, error) {
	if userID == 0 {
		return false, ErrUnauthenticated
	}
	if g.catalog != nil && !g.catalog.Has(permission) {
		g.log.Errorw("permission not in catalog", "permission", permission)
		return false, fmt.Errorf("unknown permission %q: %w", permission, ErrConfiguration)
	}

	set, err := g.resolver.Resolve(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return false, fmt.Errorf("user %d: %w", userID, ErrUnauthenticated)
	}
	if err != nil {
		return false, err
	}
	if !set.Has(permission) {
		return false, nil
	}

	if g.scope != nil {
		return g.scope(ctx, userID, permission, resource)
	}
	return true, nil
}

// Authorize checks a permission and returns ErrForbidden on denial. Denials
// are audited.
func (r *RBACService) Authorize(ctx context.Context, userID uint, permission string, resource any) error {
	ok, err := r.gate.Allows(ctx, userID, permission, resource)
	if err != nil {
		return err
	}
	if !ok {
		r.audit.Record(ctx, userID, "authorize", "permission", 0, false, permission)
		return fmt.Errorf("%s: %w", permission, ErrForbidden)
	}
	return nil
}

// Permissions returns the resolved permission set of userID.
func (r *RBACService) Permissions(ctx context.Context, userID uint) (PermissionSet, error) {
	return r.cache.Resolve(ctx, userID)
}

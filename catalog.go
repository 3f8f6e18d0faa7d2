package rbac

import (
	"context"
	"sort"
	"sync"
)

// PermissionCatalog is the set of permission names the system recognizes.
// It is passed explicitly to the gate and reloaded after permission writes.
type PermissionCatalog struct {
	mu    sync.RWMutex
	names map[string]struct{}
	store *Store
}

// NewCatalog builds a fixed catalog from names.
func NewCatalog(names ...string) *PermissionCatalog {
	c := &PermissionCatalog{}
	c.set(names)
	return c
}

// LoadCatalog builds a catalog from the permissions table.
func LoadCatalog(ctx context.Context, store *Store) (*PermissionCatalog, error) {
	c := &PermissionCatalog{store: store}
	if err := c.Reload(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload re-reads the permissions table. Catalogs built with NewCatalog
// are left untouched.
func (c *PermissionCatalog) Reload(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	perms, err := c.store.ListPermissions(ctx)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(perms))
	for _, p := range perms {
		names = append(names, p.Name)
	}
	c.set(names)
	return nil
}

func (c *PermissionCatalog) set(names []string) {
	m := make(map[string]struct{}, len(names))
	for _, n := range names {
		m[n] = struct{}{}
	}
	c.mu.Lock()
	c.names = m
	c.mu.Unlock()
}

// Has reports whether name is a known permission.
func (c *PermissionCatalog) Has(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.names[name]
	return ok
}

// Names lists the catalog in sorted order.
func (c *PermissionCatalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.names))
	for n := range c.names {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

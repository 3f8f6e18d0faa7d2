package tenant

import (
	"context"

	rbac "github.com/bohemiyan/tenant-rbac"
	"go.uber.org/zap"
)

// ManagerService exposes gated manager operations. Managers are only created
// by provisioning.
type ManagerService struct {
	store *rbac.Store
	authz Authorizer
	cache Invalidator
	log   *zap.SugaredLogger
}

// NewManagerService returns a manager service.
func NewManagerService(store *rbac.Store, authz Authorizer, cache Invalidator, log *zap.SugaredLogger) *ManagerService {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &ManagerService{store: store, authz: authz, cache: cache, log: log}
}

// List returns one page of managers.
func (s *ManagerService) List(ctx context.Context, callerID uint, q rbac.ListQuery) (*rbac.Page[rbac.Manager], error) {
	if err := s.authz.Authorize(ctx, callerID, "read.manager", nil); err != nil {
		return nil, err
	}
	return s.store.ListManagers(ctx, q)
}

// Get returns a manager profile.
func (s *ManagerService) Get(ctx context.Context, callerID, id uint) (*rbac.Manager, error) {
	m, err := s.store.ManagerByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(ctx, callerID, "read.manager", m); err != nil {
		return nil, err
	}
	return m, nil
}

// Update changes a manager profile.
func (s *ManagerService) Update(ctx context.Context, callerID, id uint, attrs rbac.ProfileAttrs) (*rbac.Manager, error) {
	m, err := s.store.ManagerByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(ctx, callerID, "update.manager", m); err != nil {
		return nil, err
	}
	return s.store.UpdateManager(ctx, id, attrs)
}

// Delete soft-deletes a manager together with its login.
func (s *ManagerService) Delete(ctx context.Context, callerID, id uint) error {
	m, err := s.store.ManagerByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authz.Authorize(ctx, callerID, "delete.manager", m); err != nil {
		return err
	}

	err = s.store.Transaction(ctx, func(tx *rbac.Store) error {
		if err := tx.DeleteManager(ctx, id); err != nil {
			return err
		}
		return tx.DeleteUser(ctx, m.UserID)
	})
	if err != nil {
		return err
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, m.UserID); err != nil {
			s.log.Warnw("failed to invalidate deleted manager", "user_id", m.UserID, "error", err)
		}
	}
	return nil
}

package rbac

import (
	"context"
	"fmt"
	"sync"
)

// BulkPermissionResult is the outcome of one check in a bulk request.
type BulkPermissionResult struct {
	UserID     uint   `json:"user_id"`
	Permission string `json:"permission"`
	Allowed    bool   `json:"allowed"`
	Error      error  `json:"-"`
}

// BulkPermissionCheck pairs a user with a permission.
type BulkPermissionCheck struct {
	UserID     uint   `json:"user_id"`
	Permission string `json:"permission"`
}

const bulkWorkers = 10

// CheckBulkPermissions runs checks concurrently. Results keep the order of
// checks.
func (r *RBACService) CheckBulkPermissions(ctx context.Context, checks []BulkPermissionCheck) []BulkPermissionResult {
	results := make([]BulkPermissionResult, len(checks))
	if len(checks) == 0 {
		return results
	}

	workerCount := min(bulkWorkers, len(checks))
	jobs := make(chan int, len(checks))

	var wg sync.WaitGroup
	for range workerCount {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				check := checks[i]
				allowed, err := r.gate.Allows(ctx, check.UserID, check.Permission, nil)
				results[i] = BulkPermissionResult{
					UserID:     check.UserID,
					Permission: check.Permission,
					Allowed:    allowed,
					Error:      err,
				}
			}
		}()
	}

	for i := range checks {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}

// BulkAssignRoles moves several users to new roles in one transaction, keyed
// by user ID, then invalidates each of them.
func (r *RBACService) BulkAssignRoles(ctx context.Context, actorID uint, assignments map[uint]string) error {
	err := r.store.Transaction(ctx, func(tx *Store) error {
		for userID, roleName := range assignments {
			role, err := tx.RoleByName(ctx, roleName)
			if err != nil {
				return fmt.Errorf("role %s: %w", roleName, ErrValidation)
			}
			if err := tx.AssignUserRole(ctx, userID, role.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		r.audit.Record(ctx, actorID, "bulk_assign_roles", "user", 0, false, err.Error())
		return err
	}

	for userID := range assignments {
		if err := r.cache.Invalidate(ctx, userID); err != nil {
			return err
		}
	}
	r.audit.Record(ctx, actorID, "bulk_assign_roles", "user", 0, true, fmt.Sprintf("%d users", len(assignments)))
	return nil
}

// UserPermissionsBulk resolves the permission names of several users.
// Users that cannot be resolved are omitted.
func (r *RBACService) UserPermissionsBulk(ctx context.Context, userIDs []uint) map[uint][]string {
	out := make(map[uint][]string, len(userIDs))
	for _, id := range userIDs {
		set, err := r.cache.Resolve(ctx, id)
		if err != nil {
			r.log.Debugw("skipping user in bulk resolve", "user_id", id, "error", err)
			continue
		}
		out[id] = set.Names()
	}
	return out
}

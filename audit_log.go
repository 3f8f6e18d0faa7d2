package rbac

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Auditor writes audit log rows. Failures are logged, never returned, so an
// unavailable audit table cannot block the operation being recorded.
type Auditor struct {
	store   *Store
	enabled bool
	log     *zap.SugaredLogger
}

// NewAuditor returns an auditor. A disabled auditor records nothing.
func NewAuditor(store *Store, enabled bool, log *zap.SugaredLogger) *Auditor {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Auditor{store: store, enabled: enabled, log: log}
}

// Enabled reports whether rows are written.
func (a *Auditor) Enabled() bool {
	return a != nil && a.enabled
}

// Record creates an audit log entry.
func (a *Auditor) Record(ctx context.Context, actorUserID uint, action, targetType string, targetID uint, success bool, details string) {
	if !a.Enabled() {
		return
	}

	db, cancel := a.store.conn(context.WithoutCancel(ctx))
	defer cancel()

	entry := &AuditLog{
		ActorUserID: actorUserID,
		Action:      action,
		TargetType:  targetType,
		TargetID:    targetID,
		Success:     success,
		Details:     details,
		CreatedAt:   time.Now(),
	}
	if err := db.Create(entry).Error; err != nil {
		a.log.Errorw("failed to write audit log", "action", action, "actor", actorUserID, "error", err)
	}
}

// AuditFilter narrows ListAuditLogs. Zero fields match everything.
type AuditFilter struct {
	ActorUserID uint
	TargetType  string
	TargetID    uint
	Action      string
	Limit       int
}

// GetAuditLog retrieves an audit log by ID.
func (s *Store) GetAuditLog(ctx context.Context, id uint) (*AuditLog, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var entry AuditLog
	if err := db.First(&entry, id).Error; err != nil {
		return nil, translate(err, "audit log %d", id)
	}
	return &entry, nil
}

// ListAuditLogs retrieves audit logs newest first.
func (s *Store) ListAuditLogs(ctx context.Context, f AuditFilter) ([]AuditLog, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	query := db.Order("created_at DESC, id DESC")
	if f.ActorUserID != 0 {
		query = query.Where("actor_user_id = ?", f.ActorUserID)
	}
	if f.TargetType != "" {
		query = query.Where("target_type = ?", f.TargetType)
	}
	if f.TargetID != 0 {
		query = query.Where("target_id = ?", f.TargetID)
	}
	if f.Action != "" {
		query = query.Where("action = ?", f.Action)
	}
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 100
	}

	var entries []AuditLog
	if err := query.Limit(f.Limit).Find(&entries).Error; err != nil {
		return nil, translate(err, "list audit logs")
	}
	return entries, nil
}

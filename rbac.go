package rbac

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// LocalsUserID is the fiber.Ctx locals key holding the authenticated user ID.
const LocalsUserID = "user_id"

// PasswordHasher hashes and verifies login passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// Config holds the configuration for the RBAC service
type Config struct {
	DB                 *gorm.DB
	RedisClient        *redis.Client // optional; an in-memory LRU is used without it
	CacheTTL           time.Duration
	CachePrefix        string
	CacheSize          int
	QueryTimeout       time.Duration
	AutoMigrate        bool
	Seed               bool
	Hasher             PasswordHasher // used by Seed to create demo users
	EnableAuditLogging bool
	Logger             *zap.SugaredLogger
}

// RBACService is the main service struct for the RBAC framework
type RBACService struct {
	store   *Store
	cache   *PermissionCache
	catalog *PermissionCatalog
	gate    AuthorizationGate
	audit   *Auditor
	log     *zap.SugaredLogger
}

// NewRBACService initializes a new RBAC service
func NewRBACService(ctx context.Context, cfg Config) (*RBACService, error) {
	if cfg.DB == nil {
		return nil, fmt.Errorf("database is required: %w", ErrConfiguration)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}

	store := NewStore(cfg.DB, cfg.QueryTimeout)
	if cfg.AutoMigrate {
		if err := store.Migrate(ctx); err != nil {
			return nil, err
		}
	}
	if cfg.Seed {
		if err := store.Seed(ctx, cfg.Hasher); err != nil {
			return nil, fmt.Errorf("failed to seed: %w", err)
		}
	}

	catalog, err := LoadCatalog(ctx, store)
	if err != nil {
		return nil, fmt.Errorf("failed to load permission catalog: %w", err)
	}

	cache := NewPermissionCache(CacheOptions{
		Redis:  cfg.RedisClient,
		TTL:    cfg.CacheTTL,
		Prefix: cfg.CachePrefix,
		Size:   cfg.CacheSize,
		Logger: cfg.Logger,
	}, store.PermissionNamesForUser, store.UserIDsWithRole)

	return &RBACService{
		store:   store,
		cache:   cache,
		catalog: catalog,
		gate:    NewGate(cache, catalog, cfg.Logger),
		audit:   NewAuditor(store, cfg.EnableAuditLogging, cfg.Logger),
		log:     cfg.Logger,
	}, nil
}

// Store returns the identity store.
func (r *RBACService) Store() *Store { return r.store }

// Cache returns the permission cache.
func (r *RBACService) Cache() *PermissionCache { return r.cache }

// Catalog returns the permission catalog.
func (r *RBACService) Catalog() *PermissionCatalog { return r.catalog }

// Gate returns the authorization gate.
func (r *RBACService) Gate() AuthorizationGate { return r.gate }

// Auditor returns the audit log writer.
func (r *RBACService) Auditor() *Auditor { return r.audit }

// SetGate replaces the authorization gate, e.g. with a tenant-scoped one.
func (r *RBACService) SetGate(g AuthorizationGate) { r.gate = g }

// UserIDFromCtx reads the authenticated user ID stored by auth middleware.
func UserIDFromCtx(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals(LocalsUserID).(uint)
	return id, ok && id != 0
}

// RequirePermission returns fiber middleware that rejects callers lacking
// permission.
func (r *RBACService) RequirePermission(permission string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := UserIDFromCtx(c)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "unauthenticated")
		}

		err := r.Authorize(c.UserContext(), userID, permission, nil)
		switch {
		case err == nil:
			return c.Next()
		case errors.Is(err, ErrForbidden):
			return fiber.NewError(fiber.StatusForbidden, "permission denied")
		case errors.Is(err, ErrUnauthenticated):
			return fiber.NewError(fiber.StatusUnauthorized, "unauthenticated")
		default:
			r.log.Errorw("permission check failed", "user_id", userID, "permission", permission, "error", err)
			return fiber.NewError(fiber.StatusInternalServerError, "internal server error")
		}
	}
}

package rbac

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// DefaultPerPage is the fixed page size of every list operation.
const DefaultPerPage = 10

// Store is the durable identity store: users, roles, permissions and the
// tenant entities. Deletes of users, companies and profiles are logical.
type Store struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewStore wraps db. A positive timeout bounds every call that arrives
// without its own deadline.
func NewStore(db *gorm.DB, timeout time.Duration) *Store {
	return &Store{db: db, timeout: timeout}
}

// DB exposes the underlying handle for callers that need raw access.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Migrate creates or updates every table owned by the package.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to auto-migrate: %w", err)
	}
	return nil
}

// Transaction runs fn against a store bound to a single database transaction.
// Returning an error from fn rolls every write back.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	err := s.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		return fn(&Store{db: gtx, timeout: s.timeout})
	})
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("transaction: %w", ErrTimeout)
	}
	return err
}

// Exists reports whether a row with id exists, soft-deleted rows included.
func (s *Store) Exists(ctx context.Context, model any, id uint) (bool, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var count int64
	if err := db.Unscoped().Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, translate(err, "check existence of %d", id)
	}
	return count > 0, nil
}

func (s *Store) conn(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	cancel := context.CancelFunc(func() {})
	if s.timeout > 0 {
		if _, ok := ctx.Deadline(); !ok {
			ctx, cancel = context.WithTimeout(ctx, s.timeout)
		}
	}
	return s.db.WithContext(ctx), cancel
}

// translate maps driver and gorm errors onto the package taxonomy while
// keeping the original cause in the chain.
func translate(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf(format, args...)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", msg, ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey), isUniqueViolation(err):
		return fmt.Errorf("%s: %w: %w", msg, ErrDuplicateKey, err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%s: referenced record missing: %w", msg, ErrValidation)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", msg, ErrTimeout)
	default:
		return fmt.Errorf("%s: %w", msg, err)
	}
}

func isUniqueViolation(err error) bool {
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "unique constraint") || strings.Contains(s, "duplicate key")
}

// ListQuery filters and orders list operations.
type ListQuery struct {
	Name string // substring match on name
	Sort string // "asc", "desc" or empty
	Page int    // 1-based
}

func (q ListQuery) normalize() (ListQuery, error) {
	q.Name = strings.TrimSpace(q.Name)
	q.Sort = strings.ToLower(strings.TrimSpace(q.Sort))
	switch q.Sort {
	case "", "asc", "desc":
	default:
		return q, fmt.Errorf("sort must be either \"asc\" or \"desc\": %w", ErrValidation)
	}
	if q.Page < 1 {
		q.Page = 1
	}
	return q, nil
}

// Page is one page of a list result.
type Page[T any] struct {
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
	Total       int64 `json:"total"`
	LastPage    int   `json:"last_page"`
	Data        []T   `json:"data"`
}

func paginate[T any](ctx context.Context, s *Store, q ListQuery, what string) (*Page[T], error) {
	q, err := q.normalize()
	if err != nil {
		return nil, err
	}

	db, cancel := s.conn(ctx)
	defer cancel()

	base := func() *gorm.DB {
		query := db.Model(new(T))
		if q.Name != "" {
			query = query.Where("name LIKE ?", "%"+q.Name+"%")
		}
		return query
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, translate(err, "count %s", what)
	}

	order := "id asc"
	if q.Sort != "" {
		order = "name " + q.Sort + ", id asc"
	}

	items := make([]T, 0, DefaultPerPage)
	if err := base().Order(order).Offset((q.Page - 1) * DefaultPerPage).Limit(DefaultPerPage).Find(&items).Error; err != nil {
		return nil, translate(err, "list %s", what)
	}

	lastPage := int((total + DefaultPerPage - 1) / DefaultPerPage)
	if lastPage == 0 {
		lastPage = 1
	}
	return &Page[T]{
		CurrentPage: q.Page,
		PerPage:     DefaultPerPage,
		Total:       total,
		LastPage:    lastPage,
		Data:        items,
	}, nil
}

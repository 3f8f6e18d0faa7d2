// Package auth issues and verifies bearer tokens and guards fiber routes.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	rbac "github.com/bohemiyan/tenant-rbac"
	"go.uber.org/zap"
)

// RegisterInput holds the fields of a self-registration. A zero RoleID
// selects the employee role.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	RoleID   uint
}

// Session is a freshly issued token.
type Session struct {
	Token     string     `json:"token"`
	TokenType string     `json:"token_type"`
	ExpiresAt time.Time  `json:"expires_at"`
	User      *rbac.User `json:"user"`
}

// Service authenticates users.
type Service struct {
	store    *rbac.Store
	hasher   rbac.PasswordHasher
	tokens   *TokenIssuer
	denylist Denylist
	log      *zap.SugaredLogger
}

// NewService returns an auth service. A nil denylist selects the in-process
// one.
func NewService(store *rbac.Store, hasher rbac.PasswordHasher, tokens *TokenIssuer, denylist Denylist, log *zap.SugaredLogger) *Service {
	if denylist == nil {
		denylist = NewMemoryDenylist()
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Service{store: store, hasher: hasher, tokens: tokens, denylist: denylist, log: log}
}

// Register creates an employee account and logs it in. Any other role is
// granted through the admin API only.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	if len(in.Password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters: %w", rbac.ErrValidation)
	}

	role, err := s.store.RoleByName(ctx, rbac.RoleEmployee)
	if errors.Is(err, rbac.ErrNotFound) {
		return nil, fmt.Errorf("role %q is not seeded: %w", rbac.RoleEmployee, rbac.ErrConfiguration)
	}
	if err != nil {
		return nil, err
	}
	if in.RoleID != 0 && in.RoleID != role.ID {
		return nil, fmt.Errorf("self-registration is limited to the %s role: %w", rbac.RoleEmployee, rbac.ErrForbidden)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	u := &rbac.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        in.Email,
		PasswordHash: hash,
		RoleID:       role.ID,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	created, err := s.store.UserByID(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	s.log.Infow("user registered", "user_id", created.ID, "role", created.Role.Name)
	return s.issue(created)
}

// Login verifies credentials and issues a token. Unknown emails and wrong
// passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.store.UserByEmail(ctx, email)
	if errors.Is(err, rbac.ErrNotFound) {
		return nil, fmt.Errorf("invalid credentials: %w", rbac.ErrUnauthenticated)
	}
	if err != nil {
		return nil, err
	}

	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		if errors.Is(err, rbac.ErrUnauthenticated) {
			return nil, fmt.Errorf("invalid credentials: %w", rbac.ErrUnauthenticated)
		}
		return nil, err
	}
	return s.issue(u)
}

// Authenticate parses a bearer token and rejects revoked ones.
func (s *Service) Authenticate(ctx context.Context, token string) (*Claims, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}

	revoked, err := s.denylist.IsRevoked(ctx, claims.ID)
	if err != nil {
		s.log.Errorw("token denylist lookup failed", "jti", claims.ID, "error", err)
		return nil, err
	}
	if revoked {
		return nil, fmt.Errorf("token revoked: %w", rbac.ErrUnauthenticated)
	}
	return claims, nil
}

// Logout revokes the presented token.
func (s *Service) Logout(ctx context.Context, claims *Claims) error {
	return s.denylist.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
}

// Refresh revokes the presented token and issues a new one for the same
// user. Deleted users cannot refresh.
func (s *Service) Refresh(ctx context.Context, claims *Claims) (*Session, error) {
	u, err := s.store.UserByID(ctx, claims.UserID)
	if errors.Is(err, rbac.ErrNotFound) {
		return nil, fmt.Errorf("user %d: %w", claims.UserID, rbac.ErrUnauthenticated)
	}
	if err != nil {
		return nil, err
	}

	if err := s.Logout(ctx, claims); err != nil {
		return nil, err
	}
	return s.issue(u)
}

// Me loads the user behind claims.
func (s *Service) Me(ctx context.Context, claims *Claims) (*rbac.User, error) {
	u, err := s.store.UserByID(ctx, claims.UserID)
	if errors.Is(err, rbac.ErrNotFound) {
		return nil, fmt.Errorf("user %d: %w", claims.UserID, rbac.ErrUnauthenticated)
	}
	return u, err
}

func (s *Service) issue(u *rbac.User) (*Session, error) {
	token, claims, err := s.tokens.Issue(u)
	if err != nil {
		return nil, err
	}
	return &Session{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: claims.ExpiresAt.Time,
		User:      u,
	}, nil
}

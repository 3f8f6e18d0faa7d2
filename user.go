package rbac

import (
	"context"
	"fmt"
	"strings"
)

// CreateUser persists u. The referenced role must exist.
func (s *Store) CreateUser(ctx context.Context, u *User) error {
	if u == nil || strings.TrimSpace(u.Name) == "" || strings.TrimSpace(u.Email) == "" || u.PasswordHash == "" {
		return fmt.Errorf("user requires name, email and password: %w", ErrValidation)
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))

	if _, err := s.RoleByID(ctx, u.RoleID); err != nil {
		return fmt.Errorf("role %d: %w", u.RoleID, ErrValidation)
	}

	db, cancel := s.conn(ctx)
	defer cancel()

	if err := db.Omit("Role").Create(u).Error; err != nil {
		return translate(err, "create user %s", u.Email)
	}
	return nil
}

// UserByID loads a live user together with its role.
func (s *Store) UserByID(ctx context.Context, id uint) (*User, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var u User
	if err := db.Preload("Role").First(&u, id).Error; err != nil {
		return nil, translate(err, "user %d", id)
	}
	return &u, nil
}

// UserByEmail loads a live user by its (case-insensitive) email.
func (s *Store) UserByEmail(ctx context.Context, email string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	db, cancel := s.conn(ctx)
	defer cancel()

	var u User
	if err := db.Preload("Role").Where("email = ?", email).First(&u).Error; err != nil {
		return nil, translate(err, "user %s", email)
	}
	return &u, nil
}

// DeleteUser soft-deletes a user.
func (s *Store) DeleteUser(ctx context.Context, id uint) error {
	db, cancel := s.conn(ctx)
	defer cancel()

	res := db.Delete(&User{}, id)
	if res.Error != nil {
		return translate(res.Error, "delete user %d", id)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return nil
}

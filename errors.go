package rbac

import (
	"errors"
	"fmt"
	"strings"
)

// Custom errors
var (
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrForbidden          = errors.New("permission denied")
	ErrNotFound           = errors.New("resource not found")
	ErrValidation         = errors.New("validation failed")
	ErrDuplicateKey       = errors.New("duplicate key")
	ErrConfiguration      = errors.New("configuration error")
	ErrProvisioningFailed = errors.New("provisioning failed")
	ErrTimeout            = errors.New("operation timed out")
)

// IsRetryable reports whether the caller may retry the operation unchanged.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// DuplicateError names the unique fields a write collided on.
type DuplicateError struct {
	Entity string
	Fields []string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s %s already taken", e.Entity, strings.Join(e.Fields, ", "))
}

func (e *DuplicateError) Unwrap() error { return ErrDuplicateKey }

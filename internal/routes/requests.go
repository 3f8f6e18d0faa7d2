package routes

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	rbac "github.com/bohemiyan/tenant-rbac"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// ValidationError carries per-field request validation messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for f, msg := range e.Fields {
		parts = append(parts, f+": "+msg)
	}
	return "invalid request: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return rbac.ErrValidation }

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8"`
	RoleID   uint   `json:"role_id"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type CreateCompanyRequest struct {
	Name  string `json:"name" validate:"required,max=255"`
	Email string `json:"email" validate:"required,email,max=255"`
	Phone string `json:"phone" validate:"required,max=32"`
}

type UpdateCompanyRequest struct {
	Name  string `json:"name" validate:"omitempty,max=255"`
	Email string `json:"email" validate:"omitempty,email,max=255"`
	Phone string `json:"phone" validate:"omitempty,max=32"`
}

type UpdateProfileRequest struct {
	Name    *string `json:"name" validate:"omitempty,min=1,max=255"`
	Phone   *string `json:"phone" validate:"omitempty,max=32"`
	Address *string `json:"address" validate:"omitempty,max=500"`
}

type CreateEmployeeRequest struct {
	Name    string `json:"name" validate:"required,max=255"`
	Phone   string `json:"phone" validate:"omitempty,max=32"`
	Address string `json:"address" validate:"omitempty,max=500"`
	UserID  *uint  `json:"user_id" validate:"omitempty,gt=0"`
}

type CreatePermissionRequest struct {
	Name string `json:"name" validate:"required,max=128"`
}

type RolePermissionsRequest struct {
	Permissions []string `json:"permissions" validate:"dive,required"`
}

type UserRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=super_admin manager employee"`
}

type BulkRoleRequest struct {
	Assignments map[uint]string `json:"assignments" validate:"required,min=1,dive,required"`
}

type BulkCheckRequest struct {
	Checks []rbac.BulkPermissionCheck `json:"checks" validate:"required,min=1,max=500,dive"`
}

type listParams struct {
	Name string `query:"name" validate:"omitempty,max=255"`
	Sort string `query:"sort" validate:"omitempty,oneof=asc desc"`
	Page int    `query:"page" validate:"omitempty,min=1"`
}

type requestValidator struct {
	v *validator.Validate
}

func newRequestValidator() *requestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "query"} {
			if name, _, _ := strings.Cut(f.Tag.Get(tag), ","); name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
	return &requestValidator{v: v}
}

func (rv *requestValidator) check(req any) error {
	err := rv.v.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate request: %w", err)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = describe(fe)
	}
	return &ValidationError{Fields: fields}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "gt":
		return "must be greater than " + fe.Param()
	default:
		return "is invalid"
	}
}

// bind parses the JSON body into req and validates it.
func (rv *requestValidator) bind(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return &ValidationError{Fields: map[string]string{"body": "must be valid JSON"}}
	}
	return rv.check(req)
}

func (rv *requestValidator) listQuery(c *fiber.Ctx) (rbac.ListQuery, error) {
	var p listParams
	if err := c.QueryParser(&p); err != nil {
		return rbac.ListQuery{}, &ValidationError{Fields: map[string]string{"query": "is malformed"}}
	}
	if err := rv.check(&p); err != nil {
		return rbac.ListQuery{}, err
	}
	return rbac.ListQuery{Name: p.Name, Sort: p.Sort, Page: p.Page}, nil
}

func paramID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("id %q: %w", c.Params("id"), rbac.ErrNotFound)
	}
	return uint(id), nil
}

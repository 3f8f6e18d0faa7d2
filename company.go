package rbac

import (
	"context"
	"fmt"
	"strings"
)

// CompanyAttrs carries the writable company fields. Empty fields are left
// untouched on update.
type CompanyAttrs struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

func (a CompanyAttrs) normalize() CompanyAttrs {
	return CompanyAttrs{
		Name:  strings.TrimSpace(a.Name),
		Email: strings.ToLower(strings.TrimSpace(a.Email)),
		Phone: strings.TrimSpace(a.Phone),
	}
}

// CreateCompany creates a new company.
func (s *Store) CreateCompany(ctx context.Context, attrs CompanyAttrs) (*Company, error) {
	attrs = attrs.normalize()
	if attrs.Name == "" || attrs.Email == "" || attrs.Phone == "" {
		return nil, fmt.Errorf("company requires name, email and phone: %w", ErrValidation)
	}

	db, cancel := s.conn(ctx)
	defer cancel()

	company := &Company{Name: attrs.Name, Email: attrs.Email, Phone: attrs.Phone}
	if err := db.Create(company).Error; err != nil {
		return nil, translate(err, "create company %s", attrs.Name)
	}
	return company, nil
}

// CompanyByID retrieves a live company by ID.
func (s *Store) CompanyByID(ctx context.Context, id uint) (*Company, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var company Company
	if err := db.First(&company, id).Error; err != nil {
		return nil, translate(err, "company %d", id)
	}
	return &company, nil
}

// UpdateCompany applies the non-empty fields of attrs.
func (s *Store) UpdateCompany(ctx context.Context, id uint, attrs CompanyAttrs) (*Company, error) {
	company, err := s.CompanyByID(ctx, id)
	if err != nil {
		return nil, err
	}

	attrs = attrs.normalize()
	updates := map[string]any{}
	if attrs.Name != "" {
		updates["name"] = attrs.Name
	}
	if attrs.Email != "" {
		updates["email"] = attrs.Email
	}
	if attrs.Phone != "" {
		updates["phone"] = attrs.Phone
	}
	if len(updates) == 0 {
		return company, nil
	}

	db, cancel := s.conn(ctx)
	defer cancel()

	if err := db.Model(company).Updates(updates).Error; err != nil {
		return nil, translate(err, "update company %d", id)
	}
	return s.CompanyByID(ctx, id)
}

// DeleteCompany soft-deletes a company by ID.
func (s *Store) DeleteCompany(ctx context.Context, id uint) error {
	db, cancel := s.conn(ctx)
	defer cancel()

	res := db.Delete(&Company{}, id)
	if res.Error != nil {
		return translate(res.Error, "delete company %d", id)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("company %d: %w", id, ErrNotFound)
	}
	return nil
}

// ListCompanies returns one page of live companies.
func (s *Store) ListCompanies(ctx context.Context, q ListQuery) (*Page[Company], error) {
	return paginate[Company](ctx, s, q, "companies")
}

// CompanyFieldsTaken reports which of the non-empty unique fields of attrs
// already belong to another company. Soft-deleted companies still hold
// their values. excludeID skips the company being updated.
func (s *Store) CompanyFieldsTaken(ctx context.Context, attrs CompanyAttrs, excludeID uint) ([]string, error) {
	attrs = attrs.normalize()

	db, cancel := s.conn(ctx)
	defer cancel()

	var taken []string
	for _, f := range []struct{ column, value string }{
		{"name", attrs.Name},
		{"email", attrs.Email},
		{"phone", attrs.Phone},
	} {
		if f.value == "" {
			continue
		}
		var count int64
		err := db.Unscoped().Model(&Company{}).
			Where(f.column+" = ? AND id <> ?", f.value, excludeID).
			Count(&count).Error
		if err != nil {
			return nil, translate(err, "check company %s", f.column)
		}
		if count > 0 {
			taken = append(taken, f.column)
		}
	}
	return taken, nil
}

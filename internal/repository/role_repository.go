package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/antonkondratyev/api-universal/internal/model"
)

// RolePatch lists the mutable role fields. Nil fields are left untouched.
type RolePatch struct {
	Name        *string
	Description *string
}

// RoleRepo persists role tags.
type RoleRepo struct{ DB *gorm.DB }

func NewRoleRepo(db *gorm.DB) *RoleRepo { return &RoleRepo{DB: db} }

// List returns all roles ordered by id.
func (r *RoleRepo) List(ctx context.Context) ([]model.Role, error) {
	var out []model.Role
	err := r.DB.WithContext(ctx).Order("id").Find(&out).Error
	return out, err
}

// Find returns the identified role.
func (r *RoleRepo) Find(ctx context.Context, ident Identifier) (model.Role, error) {
	var role model.Role
	err := ident.where(r.DB.WithContext(ctx)).Take(&role).Error
	return role, translate(err)
}

// FindMany returns the roles among ids that exist, ordered by id.
func (r *RoleRepo) FindMany(ctx context.Context, ids []uint) ([]model.Role, error) {
	out := []model.Role{}
	if len(ids) == 0 {
		return out, nil
	}
	err := r.DB.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&out).Error
	return out, err
}

// Exists reports whether the identified role exists.
func (r *RoleRepo) Exists(ctx context.Context, ident Identifier) (bool, error) {
	var n int64
	err := ident.where(r.DB.WithContext(ctx).Model(&model.Role{})).Count(&n).Error
	return n > 0, err
}

// Missing returns the ids from the input that have no role row.
func (r *RoleRepo) Missing(ctx context.Context, ids []uint) ([]uint, error) {
	found, err := r.FindMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	have := make(map[uint]struct{}, len(found))
	for _, role := range found {
		have[role.ID] = struct{}{}
	}
	var missing []uint
	for _, id := range ids {
		if _, ok := have[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// Create inserts a role and fills in its id.
func (r *RoleRepo) Create(ctx context.Context, role *model.Role) error {
	role.Name = strings.TrimSpace(role.Name)
	return translate(r.DB.WithContext(ctx).Create(role).Error)
}

// Update applies the patch to role id and returns the stored row.
func (r *RoleRepo) Update(ctx context.Context, id uint, p RolePatch) (model.Role, error) {
	cols := map[string]any{}
	if p.Name != nil {
		cols["name"] = strings.TrimSpace(*p.Name)
	}
	if p.Description != nil {
		cols["description"] = *p.Description
	}
	if len(cols) > 0 {
		if err := r.DB.WithContext(ctx).Model(&model.Role{}).Where("id = ?", id).Updates(cols).Error; err != nil {
			return model.Role{}, translate(err)
		}
	}
	return r.Find(ctx, ByID(id))
}

// Replace overwrites every mutable field of role id; a nil description
// clears it.
func (r *RoleRepo) Replace(ctx context.Context, id uint, name string, description *string) (model.Role, error) {
	cols := map[string]any{
		"name":        strings.TrimSpace(name),
		"description": description,
	}
	if err := r.DB.WithContext(ctx).Model(&model.Role{}).Where("id = ?", id).Updates(cols).Error; err != nil {
		return model.Role{}, translate(err)
	}
	return r.Find(ctx, ByID(id))
}

// Delete removes the identified role. Users that still list its id keep
// the dangling reference.
func (r *RoleRepo) Delete(ctx context.Context, ident Identifier) error {
	res := ident.where(r.DB.WithContext(ctx)).Delete(&model.Role{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}


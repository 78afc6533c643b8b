package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/antonkondratyev/api-universal/internal/model"
)

// UserPatch lists the mutable user fields. Nil fields are left untouched.
type UserPatch struct {
	Name         *string
	PasswordHash *string
	IsAdmin      *bool
}

// columns turns the patch into a column map, one entry per provided field.
func (p UserPatch) columns() map[string]any {
	cols := map[string]any{}
	if p.Name != nil {
		cols["name"] = strings.ToLower(strings.TrimSpace(*p.Name))
	}
	if p.PasswordHash != nil {
		cols["password"] = *p.PasswordHash
	}
	if p.IsAdmin != nil {
		cols["is_admin"] = *p.IsAdmin
	}
	return cols
}

// UserRepo is the credential store. Password hashes leave it only through
// FindWithPassword.
type UserRepo struct{ DB *gorm.DB }

func NewUserRepo(db *gorm.DB) *UserRepo { return &UserRepo{DB: db} }

// Count returns the number of users.
func (r *UserRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&model.User{}).Count(&n).Error
	return n, err
}

// Create inserts u with a normalized name and fills in its id.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Name = strings.ToLower(strings.TrimSpace(u.Name))
	if u.Roles == nil {
		u.Roles = []uint{}
	}
	return translate(r.DB.WithContext(ctx).Create(u).Error)
}

// Find returns the identified user without the password hash.
func (r *UserRepo) Find(ctx context.Context, ident Identifier) (model.User, error) {
	var u model.User
	err := ident.lowered().where(r.DB.WithContext(ctx).Omit("password")).Take(&u).Error
	return u, translate(err)
}

// FindWithPassword returns the named user including the password hash.
func (r *UserRepo) FindWithPassword(ctx context.Context, name string) (model.User, error) {
	var u model.User
	err := r.DB.WithContext(ctx).
		Where("name = ?", strings.ToLower(strings.TrimSpace(name))).
		Take(&u).Error
	return u, translate(err)
}

// Exists reports whether the identified user exists.
func (r *UserRepo) Exists(ctx context.Context, ident Identifier) (bool, error) {
	var n int64
	err := ident.lowered().where(r.DB.WithContext(ctx).Model(&model.User{})).Count(&n).Error
	return n > 0, err
}

// IsAdmin reads the admin flag of the user with the given id.
func (r *UserRepo) IsAdmin(ctx context.Context, id uint) (bool, error) {
	var u model.User
	err := r.DB.WithContext(ctx).Select("id", "is_admin").Where("id = ?", id).Take(&u).Error
	if err != nil {
		return false, translate(err)
	}
	return u.IsAdmin, nil
}

// List returns all users ordered by id, without password hashes.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	var out []model.User
	err := r.DB.WithContext(ctx).Omit("password").Order("id").Find(&out).Error
	return out, err
}

// Update applies the patch to user id and returns the stored row.
func (r *UserRepo) Update(ctx context.Context, id uint, p UserPatch) (model.User, error) {
	cols := p.columns()
	if len(cols) > 0 {
		res := r.DB.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(cols)
		if res.Error != nil {
			return model.User{}, translate(res.Error)
		}
	}
	return r.Find(ctx, ByID(id))
}

// SetRoles replaces the role list of user id. The caller is responsible
// for passing a sorted, duplicate-free list.
func (r *UserRepo) SetRoles(ctx context.Context, id uint, roles []uint) error {
	if roles == nil {
		roles = []uint{}
	}
	res := r.DB.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).
		Update("roles", datatypes.NewJSONSlice(roles))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the identified user together with its token row.
func (r *UserRepo) Delete(ctx context.Context, ident Identifier) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u model.User
		if err := ident.lowered().where(tx.Select("id")).Take(&u).Error; err != nil {
			return translate(err)
		}
		if err := tx.Where("user_id = ?", u.ID).Delete(&model.Token{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.User{}, u.ID).Error
	})
}

// translate maps gorm errors onto the package sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}

package service

import (
	"context"
	"errors"
	"slices"

	"github.com/antonkondratyev/api-universal/internal/model"
	"github.com/antonkondratyev/api-universal/internal/queue"
	"github.com/antonkondratyev/api-universal/internal/repository"
	"github.com/antonkondratyev/api-universal/internal/utils"
)

// UserInput is the full set of mutable user fields, used by create and
// replace.
type UserInput struct {
	Name     string `json:"username"`
	Password string `json:"password"`
	IsAdmin  bool   `json:"is_admin"`
}

// UserPatch carries the fields of a partial update. Nil means unchanged.
type UserPatch struct {
	Name     *string `json:"username"`
	Password *string `json:"password"`
	IsAdmin  *bool   `json:"is_admin"`
}

// UserService manages accounts and their role membership. Reads are open
// to any authenticated caller; every mutation requires the caller to be an
// admin at the time of the call.
type UserService struct {
	base
	users      UserStore
	roles      RoleStore
	bcryptCost int
}

func NewUserService(d Deps) *UserService {
	return &UserService{
		base:       newBase(d, "users"),
		users:      d.Users,
		roles:      d.Roles,
		bcryptCost: d.BcryptCost,
	}
}

func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, s.internal(ctx, "list_users", err)
	}
	return users, nil
}

func (s *UserService) Get(ctx context.Context, ident repository.Identifier) (model.User, error) {
	return s.find(ctx, ident)
}

// Create adds a user on behalf of an admin.
func (s *UserService) Create(ctx context.Context, caller uint, in UserInput) (model.User, error) {
	ctx, span := s.start(ctx, "users.Create")
	defer span.End()

	if err := s.requireAdmin(ctx, s.users, caller); err != nil {
		return model.User{}, err
	}
	name := normalizeName(in.Name)
	if name == "" || in.Password == "" {
		return model.User{}, ErrCredentialsRequired
	}
	hash, err := utils.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return model.User{}, s.internal(ctx, "create_user", err)
	}
	u := &model.User{Name: name, Password: hash, IsAdmin: in.IsAdmin}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return model.User{}, ErrUserExists
		}
		return model.User{}, s.internal(ctx, "create_user", err)
	}
	s.log.Info().Uint("user_id", u.ID).Uint("actor_id", caller).Msg("user added")
	u.Password = ""
	return *u, nil
}

// Change applies the provided fields only.
func (s *UserService) Change(ctx context.Context, caller uint, ident repository.Identifier, p UserPatch) (model.User, error) {
	ctx, span := s.start(ctx, "users.Change")
	defer span.End()

	if err := s.requireAdmin(ctx, s.users, caller); err != nil {
		return model.User{}, err
	}
	u, err := s.find(ctx, ident)
	if err != nil {
		return model.User{}, err
	}
	patch := repository.UserPatch{IsAdmin: p.IsAdmin}
	if p.Name != nil {
		name := normalizeName(*p.Name)
		if name == "" {
			return model.User{}, ErrCredentialsRequired
		}
		patch.Name = &name
	}
	if p.Password != nil {
		if *p.Password == "" {
			return model.User{}, ErrCredentialsRequired
		}
		hash, err := utils.HashPassword(*p.Password, s.bcryptCost)
		if err != nil {
			return model.User{}, s.internal(ctx, "change_user", err)
		}
		patch.PasswordHash = &hash
	}
	return s.update(ctx, u.ID, patch)
}

// Replace overwrites name, password and admin flag.
func (s *UserService) Replace(ctx context.Context, caller uint, ident repository.Identifier, in UserInput) (model.User, error) {
	ctx, span := s.start(ctx, "users.Replace")
	defer span.End()

	if err := s.requireAdmin(ctx, s.users, caller); err != nil {
		return model.User{}, err
	}
	name := normalizeName(in.Name)
	if name == "" || in.Password == "" {
		return model.User{}, ErrCredentialsRequired
	}
	u, err := s.find(ctx, ident)
	if err != nil {
		return model.User{}, err
	}
	hash, err := utils.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return model.User{}, s.internal(ctx, "replace_user", err)
	}
	return s.update(ctx, u.ID, repository.UserPatch{Name: &name, PasswordHash: &hash, IsAdmin: &in.IsAdmin})
}

// Remove deletes the user and its refresh token.
func (s *UserService) Remove(ctx context.Context, caller uint, ident repository.Identifier) error {
	ctx, span := s.start(ctx, "users.Remove")
	defer span.End()

	if err := s.requireAdmin(ctx, s.users, caller); err != nil {
		return err
	}
	u, err := s.find(ctx, ident)
	if err != nil {
		return err
	}
	if err := s.users.Delete(ctx, repository.ByID(u.ID)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotExists
		}
		return s.internal(ctx, "remove_user", err)
	}
	s.log.Info().Uint("user_id", u.ID).Uint("actor_id", caller).Msg("user removed")
	s.publish(ctx, queue.AuthEvent{Type: queue.EventUserRemoved, UserID: u.ID, UserName: u.Name, ActorID: caller})
	return nil
}

// Roles resolves the user's role ids. Ids whose role was deleted since
// are skipped.
func (s *UserService) Roles(ctx context.Context, ident repository.Identifier) ([]model.Role, error) {
	u, err := s.find(ctx, ident)
	if err != nil {
		return nil, err
	}
	roles, err := s.roles.FindMany(ctx, u.RoleIDs())
	if err != nil {
		return nil, s.internal(ctx, "user_roles", err)
	}
	return roles, nil
}

// AddRoles merges ids into the user's role set. Every id must name an
// existing role; ids already present are ignored.
func (s *UserService) AddRoles(ctx context.Context, caller uint, ident repository.Identifier, ids []uint) (model.User, error) {
	ctx, span := s.start(ctx, "users.AddRoles")
	defer span.End()

	if err := s.requireAdmin(ctx, s.users, caller); err != nil {
		return model.User{}, err
	}
	if len(ids) == 0 || slices.Contains(ids, 0) {
		return model.User{}, ErrRoleIDsRequired
	}
	u, err := s.find(ctx, ident)
	if err != nil {
		return model.User{}, err
	}
	missing, err := s.roles.Missing(ctx, ids)
	if err != nil {
		return model.User{}, s.internal(ctx, "add_roles", err)
	}
	if len(missing) > 0 {
		return model.User{}, ErrRoleNotExists
	}

	merged := MergeRoleIDs(u.RoleIDs(), ids)
	if slices.Equal(merged, u.RoleIDs()) {
		return u, nil
	}
	if err := s.users.SetRoles(ctx, u.ID, merged); err != nil {
		return model.User{}, s.internal(ctx, "add_roles", err)
	}
	u.Roles = merged
	return u, nil
}

// RemoveRole takes one role out of the user's set. A role the user does
// not hold yields ErrRoleNotAssigned and leaves the set unchanged.
func (s *UserService) RemoveRole(ctx context.Context, caller uint, ident repository.Identifier, role repository.Identifier) (model.User, error) {
	ctx, span := s.start(ctx, "users.RemoveRole")
	defer span.End()

	if err := s.requireAdmin(ctx, s.users, caller); err != nil {
		return model.User{}, err
	}
	u, err := s.find(ctx, ident)
	if err != nil {
		return model.User{}, err
	}
	roleID, byID := role.ID()
	if !byID {
		r, err := s.roles.Find(ctx, role)
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, ErrRoleNotExists
		}
		if err != nil {
			return model.User{}, s.internal(ctx, "remove_role", err)
		}
		roleID = r.ID
	}

	current := u.RoleIDs()
	i := slices.Index(current, roleID)
	if i < 0 {
		return model.User{}, ErrRoleNotAssigned
	}
	next := slices.Delete(slices.Clone(current), i, i+1)
	if err := s.users.SetRoles(ctx, u.ID, next); err != nil {
		return model.User{}, s.internal(ctx, "remove_role", err)
	}
	u.Roles = next
	return u, nil
}

func (s *UserService) find(ctx context.Context, ident repository.Identifier) (model.User, error) {
	if !ident.Valid() {
		return model.User{}, ErrUserNotExists
	}
	u, err := s.users.Find(ctx, ident)
	if errors.Is(err, repository.ErrNotFound) {
		return model.User{}, ErrUserNotExists
	}
	if err != nil {
		return model.User{}, s.internal(ctx, "find_user", err)
	}
	return u, nil
}

func (s *UserService) update(ctx context.Context, id uint, p repository.UserPatch) (model.User, error) {
	u, err := s.users.Update(ctx, id, p)
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		return model.User{}, ErrUserExists
	case errors.Is(err, repository.ErrNotFound):
		return model.User{}, ErrUserNotExists
	case err != nil:
		return model.User{}, s.internal(ctx, "update_user", err)
	}
	return u, nil
}

// MergeRoleIDs returns the ascending, duplicate-free union of current and
// add. Neither input is modified.
func MergeRoleIDs(current, add []uint) []uint {
	out := make([]uint, 0, len(current)+len(add))
	out = append(out, current...)
	out = append(out, add...)
	slices.Sort(out)
	return slices.Compact(out)
}

package service

import (
	"context"
	"errors"
	"strings"

	"github.com/antonkondratyev/api-universal/internal/model"
	"github.com/antonkondratyev/api-universal/internal/repository"
)

// RoleInput is the full set of mutable role fields.
type RoleInput struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// RolePatch carries the fields of a partial update. Nil means unchanged.
type RolePatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// RoleService manages role tags. Deleting a role does not touch users that
// still reference its id.
type RoleService struct {
	base
	users UserStore
	roles RoleStore
}

func NewRoleService(d Deps) *RoleService {
	return &RoleService{base: newBase(d, "roles"), users: d.Users, roles: d.Roles}
}

func (s *RoleService) List(ctx context.Context) ([]model.Role, error) {
	roles, err := s.roles.List(ctx)
	if err != nil {
		return nil, s.internal(ctx, "list_roles", err)
	}
	return roles, nil
}

func (s *RoleService) Get(ctx context.Context, ident repository.Identifier) (model.Role, error) {
	return s.find(ctx, ident)
}

func (s *RoleService) Create(ctx context.Context, caller uint, in RoleInput) (model.Role, error) {
	ctx, span := s.start(ctx, "roles.Create")
	defer span.End()

	if err := s.requireAdmin(ctx, s.users, caller); err != nil {
		return model.Role{}, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Role{}, ErrRoleNameRequired
	}
	role := &model.Role{Name: name, Description: in.Description}
	if err := s.roles.Create(ctx, role); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return model.Role{}, ErrRoleExists
		}
		return model.Role{}, s.internal(ctx, "create_role", err)
	}
	s.log.Info().Uint("role_id", role.ID).Uint("actor_id", caller).Msg("role added")
	return *role, nil
}

// Change applies the provided fields only.
func (s *RoleService) Change(ctx context.Context, caller uint, ident repository.Identifier, p RolePatch) (model.Role, error) {
	ctx, span := s.start(ctx, "roles.Change")
	defer span.End()

	if err := s.requireAdmin(ctx, s.users, caller); err != nil {
		return model.Role{}, err
	}
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return model.Role{}, ErrRoleNameRequired
	}
	role, err := s.find(ctx, ident)
	if err != nil {
		return model.Role{}, err
	}
	updated, err := s.roles.Update(ctx, role.ID, repository.RolePatch{Name: p.Name, Description: p.Description})
	return s.result(ctx, updated, err)
}

// Replace overwrites every mutable field; a missing description clears it.
func (s *RoleService) Replace(ctx context.Context, caller uint, ident repository.Identifier, in RoleInput) (model.Role, error) {
	ctx, span := s.start(ctx, "roles.Replace")
	defer span.End()

	if err := s.requireAdmin(ctx, s.users, caller); err != nil {
		return model.Role{}, err
	}
	if strings.TrimSpace(in.Name) == "" {
		return model.Role{}, ErrRoleNameRequired
	}
	role, err := s.find(ctx, ident)
	if err != nil {
		return model.Role{}, err
	}
	updated, err := s.roles.Replace(ctx, role.ID, in.Name, in.Description)
	return s.result(ctx, updated, err)
}

func (s *RoleService) Remove(ctx context.Context, caller uint, ident repository.Identifier) error {
	ctx, span := s.start(ctx, "roles.Remove")
	defer span.End()

	if err := s.requireAdmin(ctx, s.users, caller); err != nil {
		return err
	}
	if !ident.Valid() {
		return ErrRoleNotExists
	}
	err := s.roles.Delete(ctx, ident)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrRoleNotExists
	}
	if err != nil {
		return s.internal(ctx, "remove_role", err)
	}
	s.log.Info().Str("role", ident.String()).Uint("actor_id", caller).Msg("role removed")
	return nil
}

func (s *RoleService) find(ctx context.Context, ident repository.Identifier) (model.Role, error) {
	if !ident.Valid() {
		return model.Role{}, ErrRoleNotExists
	}
	role, err := s.roles.Find(ctx, ident)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Role{}, ErrRoleNotExists
	}
	if err != nil {
		return model.Role{}, s.internal(ctx, "find_role", err)
	}
	return role, nil
}

func (s *RoleService) result(ctx context.Context, role model.Role, err error) (model.Role, error) {
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		return model.Role{}, ErrRoleExists
	case errors.Is(err, repository.ErrNotFound):
		return model.Role{}, ErrRoleNotExists
	case err != nil:
		return model.Role{}, s.internal(ctx, "update_role", err)
	}
	return role, nil
}

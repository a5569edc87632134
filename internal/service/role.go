package service

import (
	"context"
	"errors"
	"strings"

	"github.com/iliyamo/inventory-admin/internal/model"
	"github.com/iliyamo/inventory-admin/internal/repository"
)

// RoleInput is the create/update payload for a role.
type RoleInput struct {
	Name   string          `json:"name" validate:"required"`
	Access model.AccessSet `json:"access"`
}

// CreateRole inserts a role with a unique name.
func (s *AuthService) CreateRole(ctx context.Context, in RoleInput) (model.Role, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validateStruct(in); err != nil {
		return model.Role{}, err
	}
	id, err := s.roles.Create(ctx, in.Name, model.NewAccessSet(in.Access...))
	if err != nil {
		if repository.IsConflict(err) {
			return model.Role{}, conflictErr("role name already exists", err)
		}
		return model.Role{}, internalErr("create role", err)
	}
	return s.GetRole(ctx, id)
}

// GetRole loads a role by id.
func (s *AuthService) GetRole(ctx context.Context, id uint64) (model.Role, error) {
	role, err := s.roles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Role{}, notFoundErr("role not found")
		}
		return model.Role{}, internalErr("load role", err)
	}
	return role, nil
}

// ListRoles returns every role.
func (s *AuthService) ListRoles(ctx context.Context) ([]model.Role, error) {
	roles, err := s.roles.List(ctx)
	if err != nil {
		return nil, internalErr("list roles", err)
	}
	return roles, nil
}

// UpdateRole replaces a role's name and access set. Tokens already issued
// keep the snapshot they were minted with.
func (s *AuthService) UpdateRole(ctx context.Context, id uint64, in RoleInput) (model.Role, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validateStruct(in); err != nil {
		return model.Role{}, err
	}
	if err := s.roles.Update(ctx, id, in.Name, model.NewAccessSet(in.Access...)); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return model.Role{}, notFoundErr("role not found")
		case repository.IsConflict(err):
			return model.Role{}, conflictErr("role name already exists", err)
		}
		return model.Role{}, internalErr("update role", err)
	}
	return s.GetRole(ctx, id)
}

package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"doctrack/api/internal/autherr"
	"doctrack/api/internal/ids"
	"doctrack/api/internal/models"
	"doctrack/api/internal/repository"
)

// RoleService owns role definitions and the role-permission edges.
type RoleService struct {
	roles     RoleStore
	perms     PermissionStore
	directory Directory
	log       zerolog.Logger
}

func NewRoleService(roles RoleStore, perms PermissionStore, directory Directory, log zerolog.Logger) *RoleService {
	return &RoleService{roles: roles, perms: perms, directory: directory, log: log}
}

type CreateRoleInput struct {
	Name                 string
	Description          string
	AreaID               *string
	CanAssignPermissions bool
}

func (s *RoleService) Create(ctx context.Context, input CreateRoleInput) (models.Role, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return models.Role{}, autherr.Validation("role name is required")
	}

	if _, err := s.roles.FindByName(ctx, name); err == nil {
		return models.Role{}, autherr.Validation("role name %q already exists", name)
	} else if !errors.Is(err, repository.ErrRoleNotFound) {
		return models.Role{}, autherr.Persistence("find role", err)
	}

	if input.AreaID != nil {
		active, err := s.directory.AreaActive(ctx, *input.AreaID)
		if err != nil {
			if errors.Is(err, repository.ErrAreaNotFound) {
				return models.Role{}, autherr.Validation("area %q does not exist", *input.AreaID)
			}
			return models.Role{}, autherr.Persistence("check area", err)
		}
		if !active {
			return models.Role{}, autherr.Validation("area %q is not active", *input.AreaID)
		}
	}

	role := models.Role{
		ID:                   ids.New(),
		Name:                 name,
		Description:          input.Description,
		AreaID:               input.AreaID,
		IsSystem:             false,
		CanAssignPermissions: input.CanAssignPermissions,
		IsActive:             true,
	}
	if err := s.roles.Create(ctx, role); err != nil {
		return models.Role{}, autherr.Persistence("create role", err)
	}

	s.log.Info().Str("role", role.Name).Msg("role created")
	return role, nil
}

type UpdateRoleInput struct {
	Name                 *string
	Description          *string
	AreaID               *string
	CanAssignPermissions *bool
	IsActive             *bool
}

// Update applies partial changes. On system roles only the description may
// move; name, can_assign_permissions and is_active are locked.
func (s *RoleService) Update(ctx context.Context, id string, input UpdateRoleInput) (models.Role, error) {
	role, err := s.roles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrRoleNotFound) {
			return models.Role{}, err
		}
		return models.Role{}, autherr.Persistence("get role", err)
	}

	if role.IsSystem {
		changesName := input.Name != nil && !strings.EqualFold(*input.Name, role.Name)
		changesAssign := input.CanAssignPermissions != nil && *input.CanAssignPermissions != role.CanAssignPermissions
		changesActive := input.IsActive != nil && *input.IsActive != role.IsActive
		if changesName || changesAssign || changesActive {
			return models.Role{}, &autherr.ProtectedResourceError{Kind: "role", Name: role.Name}
		}
	}

	if input.Name != nil && !strings.EqualFold(*input.Name, role.Name) {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return models.Role{}, autherr.Validation("role name is required")
		}
		if _, err := s.roles.FindByName(ctx, name); err == nil {
			return models.Role{}, autherr.Validation("role name %q already exists", name)
		} else if !errors.Is(err, repository.ErrRoleNotFound) {
			return models.Role{}, autherr.Persistence("find role", err)
		}
		role.Name = name
	}
	if input.Description != nil {
		role.Description = *input.Description
	}
	if input.AreaID != nil {
		role.AreaID = input.AreaID
	}
	if !role.IsSystem {
		if input.CanAssignPermissions != nil {
			role.CanAssignPermissions = *input.CanAssignPermissions
		}
		if input.IsActive != nil {
			role.IsActive = *input.IsActive
		}
	}

	if err := s.roles.Update(ctx, role); err != nil {
		return models.Role{}, autherr.Persistence("update role", err)
	}
	return role, nil
}

func (s *RoleService) Delete(ctx context.Context, id string) error {
	role, err := s.roles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrRoleNotFound) {
			return err
		}
		return autherr.Persistence("get role", err)
	}
	if role.IsSystem {
		return &autherr.ProtectedResourceError{Kind: "role", Name: role.Name}
	}

	active, err := s.directory.ActiveUserCountForRole(ctx, id)
	if err != nil {
		return autherr.Persistence("count role users", err)
	}
	if active > 0 {
		return &autherr.RoleInUseError{RoleID: id, ActiveUsers: active}
	}

	// Inactive users may still point at the role; detach them first so the
	// delete does not trip the foreign key.
	detached, err := s.roles.ClearRoleFromInactiveUsers(ctx, id)
	if err != nil {
		return autherr.Persistence("detach inactive users", err)
	}
	if detached > 0 {
		s.log.Info().Str("role", role.Name).Int("users", detached).Msg("detached inactive users before role delete")
	}

	if err := s.roles.Delete(ctx, id); err != nil {
		return autherr.Persistence("delete role", err)
	}
	s.log.Info().Str("role", role.Name).Msg("role deleted")
	return nil
}

// SyncPermissions replaces the role's permission set atomically. Any unknown
// permission id rejects the whole call before a single edge is touched.
func (s *RoleService) SyncPermissions(ctx context.Context, roleID string, permissionIDs []string, assignedBy *string) error {
	if _, err := s.roles.GetByID(ctx, roleID); err != nil {
		if errors.Is(err, repository.ErrRoleNotFound) {
			return err
		}
		return autherr.Persistence("get role", err)
	}

	unique := make([]string, 0, len(permissionIDs))
	seen := make(map[string]struct{}, len(permissionIDs))
	for _, pid := range permissionIDs {
		if _, ok := seen[pid]; ok {
			continue
		}
		seen[pid] = struct{}{}
		unique = append(unique, pid)
	}

	if len(unique) > 0 {
		count, err := s.perms.CountByIDs(ctx, unique)
		if err != nil {
			return autherr.Persistence("validate permission ids", err)
		}
		if count != len(unique) {
			return autherr.Validation("permission set contains %d unknown id(s)", len(unique)-count)
		}
	}

	if err := s.roles.ReplacePermissions(ctx, roleID, unique, assignedBy); err != nil {
		return autherr.Persistence("sync permissions", err)
	}
	return nil
}

// AssignResult distinguishes a fresh edge from an idempotent no-op.
type AssignResult string

const (
	AssignApplied  AssignResult = "assigned"
	AssignSkipped  AssignResult = "skipped"
	RemoveApplied  AssignResult = "removed"
	RemoveNotFound AssignResult = "not_found"
)

func (s *RoleService) AssignPermission(ctx context.Context, roleID string, permissionID string, assignedBy *string) (AssignResult, error) {
	if _, err := s.perms.GetByID(ctx, permissionID); err != nil {
		if errors.Is(err, repository.ErrPermissionNotFound) {
			return "", autherr.Validation("permission %q does not exist", permissionID)
		}
		return "", autherr.Persistence("get permission", err)
	}

	inserted, err := s.roles.AssignPermission(ctx, roleID, permissionID, assignedBy)
	if err != nil {
		return "", autherr.Persistence("assign permission", err)
	}
	if !inserted {
		return AssignSkipped, nil
	}
	return AssignApplied, nil
}

func (s *RoleService) RemovePermission(ctx context.Context, roleID string, permissionID string) (AssignResult, error) {
	removed, err := s.roles.RemovePermission(ctx, roleID, permissionID)
	if err != nil {
		return "", autherr.Persistence("remove permission", err)
	}
	if !removed {
		return RemoveNotFound, nil
	}
	return RemoveApplied, nil
}

// EffectivePermissions are the role's direct edges; nothing is inherited.
func (s *RoleService) EffectivePermissions(ctx context.Context, roleID string) ([]models.Permission, error) {
	return s.roles.ListPermissions(ctx, roleID)
}

func (s *RoleService) Get(ctx context.Context, id string) (models.Role, error) {
	return s.roles.GetByID(ctx, id)
}

func (s *RoleService) List(ctx context.Context) ([]models.Role, error) {
	return s.roles.List(ctx)
}

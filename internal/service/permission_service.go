package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"doctrack/api/internal/autherr"
	"doctrack/api/internal/authz"
	"doctrack/api/internal/ids"
	"doctrack/api/internal/models"
	"doctrack/api/internal/repository"
)

// PermissionService is the catalog of grantable permission codes.
type PermissionService struct {
	perms PermissionStore
	log   zerolog.Logger
}

func NewPermissionService(perms PermissionStore, log zerolog.Logger) *PermissionService {
	return &PermissionService{perms: perms, log: log}
}

type CreatePermissionInput struct {
	Code        string
	Name        string
	Description string
	Category    string
}

// Create registers a custom permission. The system flag is always forced
// false here; system permissions only enter through the seed path.
func (s *PermissionService) Create(ctx context.Context, input CreatePermissionInput) (models.Permission, error) {
	code, err := authz.ParseCode(input.Code)
	if err != nil {
		return models.Permission{}, autherr.Validation("%s", err.Error())
	}
	if input.Name == "" {
		return models.Permission{}, autherr.Validation("permission name is required")
	}
	if !authz.Category(input.Category).Valid() {
		return models.Permission{}, autherr.Validation("unknown permission category %q", input.Category)
	}
	if code.Category() != authz.Category(input.Category) {
		return models.Permission{}, autherr.Validation("code %q does not belong to category %q", input.Code, input.Category)
	}

	if _, err := s.perms.FindByCode(ctx, input.Code); err == nil {
		return models.Permission{}, autherr.Validation("permission code %q already exists", input.Code)
	} else if !errors.Is(err, repository.ErrPermissionNotFound) {
		return models.Permission{}, autherr.Persistence("find permission", err)
	}

	perm := models.Permission{
		ID:          ids.New(),
		Code:        input.Code,
		Name:        input.Name,
		Description: input.Description,
		Category:    input.Category,
		IsSystem:    false,
	}
	if err := s.perms.Create(ctx, perm); err != nil {
		return models.Permission{}, autherr.Persistence("create permission", err)
	}

	s.log.Info().Str("code", perm.Code).Msg("custom permission created")
	return perm, nil
}

type UpdatePermissionInput struct {
	Name        string
	Description string
	Category    string
}

// Update mutates name, description and category. The code never changes,
// even for custom permissions; system permissions reject the call outright.
func (s *PermissionService) Update(ctx context.Context, id string, input UpdatePermissionInput) (models.Permission, error) {
	perm, err := s.perms.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrPermissionNotFound) {
			return models.Permission{}, err
		}
		return models.Permission{}, autherr.Persistence("get permission", err)
	}
	if perm.IsSystem {
		return models.Permission{}, &autherr.ProtectedResourceError{Kind: "permission", Name: perm.Code}
	}

	if input.Name != "" {
		perm.Name = input.Name
	}
	if input.Description != "" {
		perm.Description = input.Description
	}
	if input.Category != "" {
		if !authz.Category(input.Category).Valid() {
			return models.Permission{}, autherr.Validation("unknown permission category %q", input.Category)
		}
		if authz.Code(perm.Code).Category() != authz.Category(input.Category) {
			return models.Permission{}, autherr.Validation("code %q does not belong to category %q", perm.Code, input.Category)
		}
		perm.Category = input.Category
	}

	if err := s.perms.Update(ctx, perm); err != nil {
		return models.Permission{}, autherr.Persistence("update permission", err)
	}
	return perm, nil
}

func (s *PermissionService) Delete(ctx context.Context, id string) error {
	perm, err := s.perms.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrPermissionNotFound) {
			return err
		}
		return autherr.Persistence("get permission", err)
	}
	if perm.IsSystem {
		return &autherr.ProtectedResourceError{Kind: "permission", Name: perm.Code}
	}

	refs, err := s.perms.CountReferencingRoles(ctx, id)
	if err != nil {
		return autherr.Persistence("count permission references", err)
	}
	if refs > 0 {
		return &autherr.PermissionInUseError{PermissionID: id, Roles: refs}
	}

	if err := s.perms.Delete(ctx, id); err != nil {
		return autherr.Persistence("delete permission", err)
	}
	s.log.Info().Str("code", perm.Code).Msg("custom permission deleted")
	return nil
}

func (s *PermissionService) Get(ctx context.Context, id string) (models.Permission, error) {
	return s.perms.GetByID(ctx, id)
}

func (s *PermissionService) List(ctx context.Context) ([]models.Permission, error) {
	return s.perms.List(ctx)
}

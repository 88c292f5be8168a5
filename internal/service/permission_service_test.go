package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doctrack/api/internal/autherr"
	"doctrack/api/internal/models"
	"doctrack/api/internal/repository"
)

func newPermFixture() (*PermissionService, *memPermissionStore, *memRoleStore) {
	users := newMemUserStore()
	perms := newMemPermissionStore()
	roles := newMemRoleStore(users, perms)
	perms.roles = roles
	return NewPermissionService(perms, zerolog.Nop()), perms, roles
}

func TestPermissionCreate(t *testing.T) {
	t.Parallel()

	svc, _, _ := newPermFixture()
	ctx := context.Background()

	perm, err := svc.Create(ctx, CreatePermissionInput{
		Code:     "documents.archive",
		Name:     "Archive documents",
		Category: "documents",
	})
	require.NoError(t, err)
	assert.False(t, perm.IsSystem, "api-created permissions are never system")
	assert.NotEmpty(t, perm.ID)

	var validation *autherr.ValidationError

	// Duplicate code.
	_, err = svc.Create(ctx, CreatePermissionInput{Code: "documents.archive", Name: "Again", Category: "documents"})
	assert.ErrorAs(t, err, &validation)

	// Malformed code.
	_, err = svc.Create(ctx, CreatePermissionInput{Code: "Documents.Archive", Name: "Bad", Category: "documents"})
	assert.ErrorAs(t, err, &validation)

	// Single segment.
	_, err = svc.Create(ctx, CreatePermissionInput{Code: "documents", Name: "Bad", Category: "documents"})
	assert.ErrorAs(t, err, &validation)

	// Unknown category.
	_, err = svc.Create(ctx, CreatePermissionInput{Code: "documents.sign", Name: "Bad", Category: "signing"})
	assert.ErrorAs(t, err, &validation)

	// Code prefix must match the declared category.
	_, err = svc.Create(ctx, CreatePermissionInput{Code: "documents.sign", Name: "Bad", Category: "reports"})
	assert.ErrorAs(t, err, &validation)

	// Missing name.
	_, err = svc.Create(ctx, CreatePermissionInput{Code: "documents.sign", Category: "documents"})
	assert.ErrorAs(t, err, &validation)
}

func TestPermissionUpdate_SystemProtected(t *testing.T) {
	t.Parallel()

	svc, store, _ := newPermFixture()
	ctx := context.Background()
	store.perms["p-sys"] = models.Permission{ID: "p-sys", Code: "users.view", Name: "View users", Category: "users", IsSystem: true}

	var protected *autherr.ProtectedResourceError
	_, err := svc.Update(ctx, "p-sys", UpdatePermissionInput{Name: "Renamed"})
	require.ErrorAs(t, err, &protected)
	assert.Equal(t, "permission", protected.Kind)
}

func TestPermissionUpdate_CodeNeverChanges(t *testing.T) {
	t.Parallel()

	svc, store, _ := newPermFixture()
	ctx := context.Background()
	store.perms["p1"] = models.Permission{ID: "p1", Code: "documents.archive", Name: "Archive", Category: "documents"}

	updated, err := svc.Update(ctx, "p1", UpdatePermissionInput{
		Name:        "Archive docs",
		Description: "Move documents to the archive",
		Category:    "documents",
	})
	require.NoError(t, err)
	assert.Equal(t, "documents.archive", updated.Code)
	assert.Equal(t, "Archive docs", updated.Name)

	var validation *autherr.ValidationError
	_, err = svc.Update(ctx, "p1", UpdatePermissionInput{Category: "bogus"})
	assert.ErrorAs(t, err, &validation)
}

func TestPermissionUpdate_CategoryMustMatchCode(t *testing.T) {
	t.Parallel()

	svc, store, _ := newPermFixture()
	ctx := context.Background()
	store.perms["p1"] = models.Permission{ID: "p1", Code: "documents.archive", Name: "Archive", Category: "documents"}

	// "reports" is a real category, but the immutable code pins this
	// permission to "documents".
	var validation *autherr.ValidationError
	_, err := svc.Update(ctx, "p1", UpdatePermissionInput{Category: "reports"})
	require.ErrorAs(t, err, &validation)

	stored, err := svc.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "documents", stored.Category)
}

func TestPermissionDelete(t *testing.T) {
	t.Parallel()

	svc, store, roles := newPermFixture()
	ctx := context.Background()
	store.perms["p-sys"] = models.Permission{ID: "p-sys", Code: "users.view", IsSystem: true}
	store.perms["p1"] = models.Permission{ID: "p1", Code: "documents.archive"}
	store.perms["p2"] = models.Permission{ID: "p2", Code: "documents.restore"}

	var protected *autherr.ProtectedResourceError
	err := svc.Delete(ctx, "p-sys")
	assert.ErrorAs(t, err, &protected)

	// Referenced by two roles.
	require.NoError(t, roles.Create(ctx, models.Role{ID: "r1", Name: "A"}))
	require.NoError(t, roles.Create(ctx, models.Role{ID: "r2", Name: "B"}))
	_, err = roles.AssignPermission(ctx, "r1", "p1", nil)
	require.NoError(t, err)
	_, err = roles.AssignPermission(ctx, "r2", "p1", nil)
	require.NoError(t, err)

	var inUse *autherr.PermissionInUseError
	err = svc.Delete(ctx, "p1")
	require.ErrorAs(t, err, &inUse)
	assert.Equal(t, 2, inUse.Roles)

	// Unreferenced custom permission deletes cleanly.
	require.NoError(t, svc.Delete(ctx, "p2"))
	_, err = svc.Get(ctx, "p2")
	assert.ErrorIs(t, err, repository.ErrPermissionNotFound)

	err = svc.Delete(ctx, "ghost")
	assert.ErrorIs(t, err, repository.ErrPermissionNotFound)
}

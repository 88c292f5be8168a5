package service

import (
	"context"
	"time"

	"doctrack/api/internal/models"
)

// Storage contracts the services consume. The pgx repositories in
// internal/repository satisfy them; tests substitute in-memory fakes.

type UserStore interface {
	FindByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, user models.User) error
	UpdatePasswordHash(ctx context.Context, id string, hash []byte) error
}

type SessionStore interface {
	CreateExclusive(ctx context.Context, session models.UserSession) (int, error)
	GetByID(ctx context.Context, id string) (models.UserSession, error)
	FindActiveByTokenID(ctx context.Context, tokenID string) (models.UserSession, error)
	FindActiveByRefreshID(ctx context.Context, userID string, refreshTokenID string) (models.UserSession, error)
	ListByUser(ctx context.Context, userID string) ([]models.UserSession, error)
	Deactivate(ctx context.Context, id string) error
	DeactivateAllExcept(ctx context.Context, userID string, keepSessionID string) (int, error)
	Touch(ctx context.Context, id string) error
	DeactivateExpired(ctx context.Context, now time.Time) (int, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

type RoleStore interface {
	GetByID(ctx context.Context, id string) (models.Role, error)
	FindByName(ctx context.Context, name string) (models.Role, error)
	List(ctx context.Context) ([]models.Role, error)
	Create(ctx context.Context, role models.Role) error
	Update(ctx context.Context, role models.Role) error
	Delete(ctx context.Context, id string) error
	ClearRoleFromInactiveUsers(ctx context.Context, roleID string) (int, error)
	ListPermissions(ctx context.Context, roleID string) ([]models.Permission, error)
	ReplacePermissions(ctx context.Context, roleID string, permissionIDs []string, assignedBy *string) error
	AssignPermission(ctx context.Context, roleID string, permissionID string, assignedBy *string) (bool, error)
	RemovePermission(ctx context.Context, roleID string, permissionID string) (bool, error)
}

type PermissionStore interface {
	GetByID(ctx context.Context, id string) (models.Permission, error)
	FindByCode(ctx context.Context, code string) (models.Permission, error)
	List(ctx context.Context) ([]models.Permission, error)
	Create(ctx context.Context, perm models.Permission) error
	Update(ctx context.Context, perm models.Permission) error
	Delete(ctx context.Context, id string) error
	CountReferencingRoles(ctx context.Context, id string) (int, error)
	CountByIDs(ctx context.Context, ids []string) (int, error)
}

type AttemptStore interface {
	Insert(ctx context.Context, attempt models.LoginAttempt) error
	// RecentFailures returns the timestamps of failed attempts for the email
	// at or after since, most recent first, capped at limit.
	RecentFailures(ctx context.Context, email string, since time.Time, limit int) ([]time.Time, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// Directory is the external collaborator answering area and user questions.
type Directory interface {
	AreaActive(ctx context.Context, id string) (bool, error)
	ActiveUserCountForRole(ctx context.Context, roleID string) (int, error)
}

// InvalidationNotifier is the fire-and-forget real-time channel.
type InvalidationNotifier interface {
	SessionInvalidated(userID string, reason string)
}

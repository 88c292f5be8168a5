package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"doctrack/api/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `
	u.id, u.email, u.password_hash, u.full_name, u.role_id, u.area_id, u.is_active, u.created_at, u.updated_at,
	r.id, r.name, r.description, r.area_id, r.is_system, r.can_assign_permissions, r.is_active, r.created_at, r.updated_at,
	a.id, a.name, a.is_active, a.created_at`

const userJoin = `
	FROM users u
	LEFT JOIN roles r ON r.id = u.role_id
	LEFT JOIN areas a ON a.id = u.area_id`

func scanUser(row pgx.Row) (models.User, error) {
	var u models.User
	var role models.Role
	var area models.Area
	var roleID, roleName, roleDesc, areaID2, areaName *string
	var roleAreaID *string
	var roleSystem, roleCanAssign, roleActive, areaActive *bool
	var roleCreated, roleUpdated, areaCreated *time.Time

	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.RoleID, &u.AreaID, &u.IsActive, &u.CreatedAt, &u.UpdatedAt,
		&roleID, &roleName, &roleDesc, &roleAreaID, &roleSystem, &roleCanAssign, &roleActive, &roleCreated, &roleUpdated,
		&areaID2, &areaName, &areaActive, &areaCreated,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}

	if roleID != nil {
		role.ID = *roleID
		role.Name = *roleName
		role.Description = *roleDesc
		role.AreaID = roleAreaID
		role.IsSystem = *roleSystem
		role.CanAssignPermissions = *roleCanAssign
		role.IsActive = *roleActive
		role.CreatedAt = *roleCreated
		role.UpdatedAt = *roleUpdated
		u.Role = &role
	}
	if areaID2 != nil {
		area.ID = *areaID2
		area.Name = *areaName
		area.IsActive = *areaActive
		area.CreatedAt = *areaCreated
		u.Area = &area
	}
	return u, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	query := `SELECT` + userColumns + userJoin + ` WHERE LOWER(u.email) = LOWER($1)`
	return scanUser(r.pool.QueryRow(ctx, query, email))
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (models.User, error) {
	query := `SELECT` + userColumns + userJoin + ` WHERE u.id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM users WHERE LOWER(email) = LOWER($1))`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, email).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *UserRepository) Create(ctx context.Context, user models.User) error {
	const query = `
		INSERT INTO users (
			id, email, password_hash, full_name, role_id, area_id, is_active, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, NOW(), NOW()
		)
	`
	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.FullName,
		user.RoleID,
		user.AreaID,
		user.IsActive,
	)
	return err
}

func (r *UserRepository) UpdatePasswordHash(ctx context.Context, id string, hash []byte) error {
	const query = `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id, hash)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// List returns users, optionally restricted to one area by the caller's
// query filter.
func (r *UserRepository) List(ctx context.Context, areaID *string, limit int, offset int) ([]models.User, error) {
	query := `SELECT` + userColumns + userJoin
	args := []any{limit, offset}
	if areaID != nil {
		query += ` WHERE u.area_id = $3`
		args = append(args, *areaID)
	}
	query += ` ORDER BY u.created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

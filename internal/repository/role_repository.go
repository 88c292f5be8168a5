package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"doctrack/api/internal/models"
)

var ErrRoleNotFound = errors.New("role not found")

type RoleRepository struct {
	pool *pgxpool.Pool
}

func NewRoleRepository(pool *pgxpool.Pool) *RoleRepository {
	return &RoleRepository{pool: pool}
}

const roleColumns = `
	id, name, description, area_id, is_system, can_assign_permissions, is_active, created_at, updated_at`

func scanRole(row pgx.Row) (models.Role, error) {
	var role models.Role
	if err := row.Scan(
		&role.ID,
		&role.Name,
		&role.Description,
		&role.AreaID,
		&role.IsSystem,
		&role.CanAssignPermissions,
		&role.IsActive,
		&role.CreatedAt,
		&role.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Role{}, ErrRoleNotFound
		}
		return models.Role{}, err
	}
	return role, nil
}

func (r *RoleRepository) GetByID(ctx context.Context, id string) (models.Role, error) {
	query := `SELECT` + roleColumns + ` FROM roles WHERE id = $1`
	return scanRole(r.pool.QueryRow(ctx, query, id))
}

func (r *RoleRepository) FindByName(ctx context.Context, name string) (models.Role, error) {
	query := `SELECT` + roleColumns + ` FROM roles WHERE LOWER(name) = LOWER($1)`
	return scanRole(r.pool.QueryRow(ctx, query, name))
}

func (r *RoleRepository) List(ctx context.Context) ([]models.Role, error) {
	query := `SELECT` + roleColumns + ` FROM roles ORDER BY name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []models.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (r *RoleRepository) Create(ctx context.Context, role models.Role) error {
	const query = `
		INSERT INTO roles (id, name, description, area_id, is_system, can_assign_permissions, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
	`
	_, err := r.pool.Exec(ctx, query,
		role.ID,
		role.Name,
		role.Description,
		role.AreaID,
		role.IsSystem,
		role.CanAssignPermissions,
		role.IsActive,
	)
	return err
}

func (r *RoleRepository) Update(ctx context.Context, role models.Role) error {
	const query = `
		UPDATE roles SET name = $2, description = $3, area_id = $4, can_assign_permissions = $5, is_active = $6, updated_at = NOW()
		WHERE id = $1
	`
	cmd, err := r.pool.Exec(ctx, query,
		role.ID,
		role.Name,
		role.Description,
		role.AreaID,
		role.CanAssignPermissions,
		role.IsActive,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrRoleNotFound
	}
	return nil
}

func (r *RoleRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM roles WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrRoleNotFound
	}
	return nil
}

// ClearRoleFromInactiveUsers detaches inactive users from the role so a
// delete can proceed without a foreign key violation.
func (r *RoleRepository) ClearRoleFromInactiveUsers(ctx context.Context, roleID string) (int, error) {
	const query = `UPDATE users SET role_id = NULL, updated_at = NOW() WHERE role_id = $1 AND NOT is_active`
	cmd, err := r.pool.Exec(ctx, query, roleID)
	if err != nil {
		return 0, err
	}
	return int(cmd.RowsAffected()), nil
}

// ListPermissions returns the role's direct permission edges. There is no
// inheritance; this is the effective set.
func (r *RoleRepository) ListPermissions(ctx context.Context, roleID string) ([]models.Permission, error) {
	query := `
		SELECT p.id, p.code, p.name, p.description, p.category, p.is_system, p.created_at, p.updated_at
		FROM role_permissions rp
		JOIN permissions p ON p.id = rp.permission_id
		WHERE rp.role_id = $1
		ORDER BY p.code
	`
	rows, err := r.pool.Query(ctx, query, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []models.Permission
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// ReplacePermissions swaps the role's whole edge set in one transaction so a
// concurrent reader never observes a half-applied sync.
func (r *RoleRepository) ReplacePermissions(ctx context.Context, roleID string, permissionIDs []string, assignedBy *string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID); err != nil {
		return err
	}

	if len(permissionIDs) > 0 {
		rows := make([][]any, 0, len(permissionIDs))
		for _, pid := range permissionIDs {
			rows = append(rows, []any{roleID, pid, assignedBy})
		}
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"role_permissions"},
			[]string{"role_id", "permission_id", "assigned_by"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// AssignPermission inserts one edge. Returns false when it already existed.
func (r *RoleRepository) AssignPermission(ctx context.Context, roleID string, permissionID string, assignedBy *string) (bool, error) {
	const query = `
		INSERT INTO role_permissions (role_id, permission_id, assigned_by)
		VALUES ($1, $2, $3)
		ON CONFLICT (role_id, permission_id) DO NOTHING
	`
	cmd, err := r.pool.Exec(ctx, query, roleID, permissionID, assignedBy)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

// RemovePermission deletes one edge. Returns false when no edge existed.
func (r *RoleRepository) RemovePermission(ctx context.Context, roleID string, permissionID string) (bool, error) {
	const query = `DELETE FROM role_permissions WHERE role_id = $1 AND permission_id = $2`
	cmd, err := r.pool.Exec(ctx, query, roleID, permissionID)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

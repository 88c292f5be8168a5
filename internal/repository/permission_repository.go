package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"doctrack/api/internal/models"
)

var ErrPermissionNotFound = errors.New("permission not found")

type PermissionRepository struct {
	pool *pgxpool.Pool
}

func NewPermissionRepository(pool *pgxpool.Pool) *PermissionRepository {
	return &PermissionRepository{pool: pool}
}

const permissionColumns = `
	id, code, name, description, category, is_system, created_at, updated_at`

func scanPermission(row pgx.Row) (models.Permission, error) {
	var p models.Permission
	if err := row.Scan(
		&p.ID,
		&p.Code,
		&p.Name,
		&p.Description,
		&p.Category,
		&p.IsSystem,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Permission{}, ErrPermissionNotFound
		}
		return models.Permission{}, err
	}
	return p, nil
}

func (r *PermissionRepository) GetByID(ctx context.Context, id string) (models.Permission, error) {
	query := `SELECT` + permissionColumns + ` FROM permissions WHERE id = $1`
	return scanPermission(r.pool.QueryRow(ctx, query, id))
}

func (r *PermissionRepository) FindByCode(ctx context.Context, code string) (models.Permission, error) {
	query := `SELECT` + permissionColumns + ` FROM permissions WHERE code = $1`
	return scanPermission(r.pool.QueryRow(ctx, query, code))
}

func (r *PermissionRepository) List(ctx context.Context) ([]models.Permission, error) {
	query := `SELECT` + permissionColumns + ` FROM permissions ORDER BY category, code`
	rows, err := r.pool.Query(ctx, query)
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

func (r *PermissionRepository) Create(ctx context.Context, perm models.Permission) error {
	const query = `
		INSERT INTO permissions (id, code, name, description, category, is_system, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
	`
	_, err := r.pool.Exec(ctx, query,
		perm.ID,
		perm.Code,
		perm.Name,
		perm.Description,
		perm.Category,
		perm.IsSystem,
	)
	return err
}

// Update mutates name, description and category only; code is immutable.
func (r *PermissionRepository) Update(ctx context.Context, perm models.Permission) error {
	const query = `
		UPDATE permissions SET name = $2, description = $3, category = $4, updated_at = NOW()
		WHERE id = $1
	`
	cmd, err := r.pool.Exec(ctx, query, perm.ID, perm.Name, perm.Description, perm.Category)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrPermissionNotFound
	}
	return nil
}

func (r *PermissionRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM permissions WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrPermissionNotFound
	}
	return nil
}

// CountReferencingRoles counts role_permissions rows still pointing at the
// permission, reported back in the "in use" delete error.
func (r *PermissionRepository) CountReferencingRoles(ctx context.Context, id string) (int, error) {
	const query = `SELECT COUNT(*) FROM role_permissions WHERE permission_id = $1`
	var count int
	if err := r.pool.QueryRow(ctx, query, id).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// CountByIDs reports how many of the given ids exist, used to reject a
// permission sync containing unknown ids before anything is written.
func (r *PermissionRepository) CountByIDs(ctx context.Context, ids []string) (int, error) {
	const query = `SELECT COUNT(*) FROM permissions WHERE id = ANY($1)`
	var count int
	if err := r.pool.QueryRow(ctx, query, ids).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

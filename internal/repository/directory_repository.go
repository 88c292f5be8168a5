package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrAreaNotFound = errors.New("area not found")

// DirectoryRepository answers the small directory questions the role and
// auth services ask about areas and users.
type DirectoryRepository struct {
	pool *pgxpool.Pool
}

func NewDirectoryRepository(pool *pgxpool.Pool) *DirectoryRepository {
	return &DirectoryRepository{pool: pool}
}

func (r *DirectoryRepository) AreaActive(ctx context.Context, id string) (bool, error) {
	const query = `SELECT is_active FROM areas WHERE id = $1`
	var active bool
	if err := r.pool.QueryRow(ctx, query, id).Scan(&active); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrAreaNotFound
		}
		return false, err
	}
	return active, nil
}

func (r *DirectoryRepository) ActiveUserCountForRole(ctx context.Context, roleID string) (int, error) {
	const query = `SELECT COUNT(*) FROM users WHERE role_id = $1 AND is_active`
	var count int
	if err := r.pool.QueryRow(ctx, query, roleID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

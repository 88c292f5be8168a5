package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"doctrack/api/internal/models"
)

type LoginAttemptRepository struct {
	pool *pgxpool.Pool
}

func NewLoginAttemptRepository(pool *pgxpool.Pool) *LoginAttemptRepository {
	return &LoginAttemptRepository{pool: pool}
}

func (r *LoginAttemptRepository) Insert(ctx context.Context, attempt models.LoginAttempt) error {
	const query = `
		INSERT INTO login_attempts (id, email, ip_address, user_agent, succeeded, attempted_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.pool.Exec(ctx, query,
		attempt.ID,
		attempt.Email,
		attempt.IPAddress,
		attempt.UserAgent,
		attempt.Succeeded,
		attempt.AttemptedAt,
	)
	return err
}

func (r *LoginAttemptRepository) RecentFailures(ctx context.Context, email string, since time.Time, limit int) ([]time.Time, error) {
	const query = `
		SELECT attempted_at FROM login_attempts
		WHERE email = $1 AND NOT succeeded AND attempted_at >= $2
		ORDER BY attempted_at DESC
		LIMIT $3
	`
	rows, err := r.pool.Query(ctx, query, email, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var times []time.Time
	for rows.Next() {
		var at time.Time
		if err := rows.Scan(&at); err != nil {
			return nil, err
		}
		times = append(times, at)
	}
	return times, rows.Err()
}

func (r *LoginAttemptRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	const query = `DELETE FROM login_attempts WHERE attempted_at < $1`
	cmd, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return int(cmd.RowsAffected()), nil
}

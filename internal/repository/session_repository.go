package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"doctrack/api/internal/models"
)

var ErrSessionNotFound = errors.New("session not found")

type SessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

const sessionColumns = `
	id, user_id, token_id, refresh_token_id, ip_address, user_agent, is_active, expires_at, last_activity_at, created_at`

func scanSession(row pgx.Row) (models.UserSession, error) {
	var s models.UserSession
	if err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.TokenID,
		&s.RefreshTokenID,
		&s.IPAddress,
		&s.UserAgent,
		&s.IsActive,
		&s.ExpiresAt,
		&s.LastActivityAt,
		&s.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.UserSession{}, ErrSessionNotFound
		}
		return models.UserSession{}, err
	}
	return s, nil
}

// CreateExclusive deactivates every active session of the user and inserts
// the new one in a single transaction, taking a row lock on the user so two
// concurrent logins serialize instead of both ending up active. Returns how
// many sessions were invalidated.
func (r *SessionRepository) CreateExclusive(ctx context.Context, session models.UserSession) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, session.UserID); err != nil {
		return 0, err
	}

	cmd, err := tx.Exec(ctx,
		`UPDATE user_sessions SET is_active = FALSE WHERE user_id = $1 AND is_active`,
		session.UserID,
	)
	if err != nil {
		return 0, err
	}
	invalidated := int(cmd.RowsAffected())

	const insert = `
		INSERT INTO user_sessions (
			id, user_id, token_id, refresh_token_id, ip_address, user_agent, is_active, expires_at, last_activity_at, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, TRUE, $7, NOW(), NOW()
		)
	`
	if _, err := tx.Exec(ctx, insert,
		session.ID,
		session.UserID,
		session.TokenID,
		session.RefreshTokenID,
		session.IPAddress,
		session.UserAgent,
		session.ExpiresAt,
	); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return invalidated, nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (models.UserSession, error) {
	query := `SELECT` + sessionColumns + ` FROM user_sessions WHERE id = $1`
	return scanSession(r.pool.QueryRow(ctx, query, id))
}

func (r *SessionRepository) FindActiveByTokenID(ctx context.Context, tokenID string) (models.UserSession, error) {
	query := `SELECT` + sessionColumns + ` FROM user_sessions WHERE token_id = $1 AND is_active`
	return scanSession(r.pool.QueryRow(ctx, query, tokenID))
}

func (r *SessionRepository) FindActiveByRefreshID(ctx context.Context, userID string, refreshTokenID string) (models.UserSession, error) {
	query := `SELECT` + sessionColumns + ` FROM user_sessions WHERE user_id = $1 AND refresh_token_id = $2 AND is_active`
	return scanSession(r.pool.QueryRow(ctx, query, userID, refreshTokenID))
}

func (r *SessionRepository) ListByUser(ctx context.Context, userID string) ([]models.UserSession, error) {
	query := `SELECT` + sessionColumns + ` FROM user_sessions WHERE user_id = $1 ORDER BY last_activity_at DESC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.UserSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (r *SessionRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE user_sessions SET is_active = FALSE WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (r *SessionRepository) DeactivateAllExcept(ctx context.Context, userID string, keepSessionID string) (int, error) {
	const query = `UPDATE user_sessions SET is_active = FALSE WHERE user_id = $1 AND id <> $2 AND is_active`
	cmd, err := r.pool.Exec(ctx, query, userID, keepSessionID)
	if err != nil {
		return 0, err
	}
	return int(cmd.RowsAffected()), nil
}

func (r *SessionRepository) Touch(ctx context.Context, id string) error {
	const query = `UPDATE user_sessions SET last_activity_at = NOW() WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

// DeactivateExpired is the hygiene sweep behind lazy expiry.
func (r *SessionRepository) DeactivateExpired(ctx context.Context, now time.Time) (int, error) {
	const query = `UPDATE user_sessions SET is_active = FALSE WHERE is_active AND expires_at < $1`
	cmd, err := r.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return int(cmd.RowsAffected()), nil
}

func (r *SessionRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	const query = `DELETE FROM user_sessions WHERE NOT is_active AND created_at < $1`
	cmd, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return int(cmd.RowsAffected()), nil
}

package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"linkbio/internal/models"
)

var ErrSessionNotFound = errors.New("session not found")

type SessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

func (r *SessionRepository) Create(ctx context.Context, session models.Session) error {
	const query = `
		INSERT INTO sessions (id, user_id, device_id, refresh_hash, ip_address, user_agent, expires_at, created_at, last_seen_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
	`
	_, err := r.pool.Exec(ctx, query,
		session.ID,
		session.UserID,
		session.DeviceID,
		session.RefreshHash,
		session.IPAddress,
		session.UserAgent,
		session.ExpiresAt,
	)
	return err
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (models.Session, error) {
	const query = `
		SELECT id, user_id, device_id, refresh_hash, ip_address, user_agent, expires_at, created_at, last_seen_at
		FROM sessions WHERE id = $1 AND expires_at > NOW()
	`
	row := r.pool.QueryRow(ctx, query, id)
	var s models.Session
	if err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.DeviceID,
		&s.RefreshHash,
		&s.IPAddress,
		&s.UserAgent,
		&s.ExpiresAt,
		&s.CreatedAt,
		&s.LastSeenAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Session{}, ErrSessionNotFound
		}
		return models.Session{}, err
	}
	return s, nil
}

func (r *SessionRepository) RotateRefresh(ctx context.Context, id string, refreshHash []byte, expiresAt time.Time) error {
	const query = `
		UPDATE sessions SET refresh_hash = $2, expires_at = $3, last_seen_at = NOW() WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, id, refreshHash, expiresAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (r *SessionRepository) Touch(ctx context.Context, id, ip, userAgent string) error {
	const query = `
		UPDATE sessions SET ip_address = $2, user_agent = $3, last_seen_at = NOW() WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, id, ip, userAgent)
	return err
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

// PruneOldest keeps at most maxSessions rows per user, dropping the least
// recently seen ones.
func (r *SessionRepository) PruneOldest(ctx context.Context, userID string, maxSessions int) error {
	const query = `
		DELETE FROM sessions
		WHERE user_id = $1 AND id NOT IN (
			SELECT id FROM sessions
			WHERE user_id = $1
			ORDER BY last_seen_at DESC
			LIMIT $2
		)
	`
	_, err := r.pool.Exec(ctx, query, userID, maxSessions)
	return err
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"exam-portal/internal/model"
)

const sessionColumns = `id, token, admin_id, expires_at, is_revoked, created_at, updated_at`

// TokenRepository stores admin refresh tokens, one row per session.
type TokenRepository struct {
	pool *pgxpool.Pool
}

func NewTokenRepository(pool *pgxpool.Pool) *TokenRepository {
	return &TokenRepository{pool: pool}
}

func scanSession(row pgx.Row) (model.RefreshToken, error) {
	var t model.RefreshToken
	err := row.Scan(&t.ID, &t.Token, &t.AdminID, &t.ExpiresAt, &t.IsRevoked, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (r *TokenRepository) Create(ctx context.Context, t model.RefreshToken) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO refresh_tokens (`+sessionColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.ID, t.Token, t.AdminID, t.ExpiresAt, t.IsRevoked, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}

func (r *TokenRepository) FindByToken(ctx context.Context, token string) (model.RefreshToken, error) {
	t, err := scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM refresh_tokens WHERE token = $1`, token))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.RefreshToken{}, model.ErrTokenNotFound
	}
	if err != nil {
		return model.RefreshToken{}, fmt.Errorf("find refresh token: %w", err)
	}
	return t, nil
}

func (r *TokenRepository) Revoke(ctx context.Context, token string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE refresh_tokens SET is_revoked = TRUE, updated_at = $2
		 WHERE token = $1 AND NOT is_revoked`, token, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("revoke refresh token: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *TokenRepository) RevokeByID(ctx context.Context, adminID string, id string) error {
	if !validID(id) || !validID(adminID) {
		return model.ErrTokenNotFound
	}

	var found bool
	err := r.pool.QueryRow(ctx,
		`WITH target AS (
		     SELECT id FROM refresh_tokens WHERE id = $1 AND admin_id = $2
		 ), revoked AS (
		     UPDATE refresh_tokens SET is_revoked = TRUE, updated_at = $3
		     WHERE id IN (SELECT id FROM target) AND NOT is_revoked
		 )
		 SELECT EXISTS (SELECT 1 FROM target)`,
		id, adminID, time.Now().UTC()).Scan(&found)
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	if !found {
		return model.ErrTokenNotFound
	}
	return nil
}

func (r *TokenRepository) RevokeAllForAdmin(ctx context.Context, adminID string) (int64, error) {
	if !validID(adminID) {
		return 0, nil
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE refresh_tokens SET is_revoked = TRUE, updated_at = $2
		 WHERE admin_id = $1 AND NOT is_revoked`, adminID, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("revoke all refresh tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *TokenRepository) ListActiveForAdmin(ctx context.Context, adminID string, now time.Time) ([]model.RefreshToken, error) {
	out := make([]model.RefreshToken, 0)
	if !validID(adminID) {
		return out, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM refresh_tokens
		 WHERE admin_id = $1 AND NOT is_revoked AND expires_at > $2
		 ORDER BY created_at DESC`, adminID, now)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		t, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *TokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("cleanup expired tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}

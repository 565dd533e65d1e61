package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/St1cky1/entraide-service/internal/entity"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RefreshToken - хранится только sha256 от токена
type RefreshToken struct {
	ID        int64     `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	TokenHash string    `json:"token_hash" db:"token_hash"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	Revoked   bool      `json:"revoked" db:"revoked"`
}

type RefreshTokenRepository struct {
	db *pgxpool.Pool
}

func NewRefreshTokenRepository(db *pgxpool.Pool) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

func (r *RefreshTokenRepository) Save(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	const q = `INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES ($1, $2, $3)`

	if _, err := conn(ctx, r.db).Exec(ctx, q, userID, tokenHash, expiresAt); err != nil {
		return fmt.Errorf("save refresh token: %w", err)
	}
	return nil
}

// GetByHash - (nil, nil), если токен отозван, истек или не найден
func (r *RefreshTokenRepository) GetByHash(ctx context.Context, tokenHash string) (*RefreshToken, error) {
	const q = `
	SELECT id, user_id, token_hash, expires_at, created_at, revoked
	FROM refresh_tokens
	WHERE token_hash = $1 AND NOT revoked AND expires_at > NOW()`

	rows, err := conn(ctx, r.db).Query(ctx, q, tokenHash)
	if err != nil {
		return nil, fmt.Errorf("query refresh token: %w", err)
	}
	token, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[RefreshToken])
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("scan refresh token: %w", err)
	}
	return token, nil
}

// Revoke гасит действующий токен; ErrUnauthorized, если его уже отозвали
// или он истек. Условный UPDATE делает ротацию одноразовой.
func (r *RefreshTokenRepository) Revoke(ctx context.Context, tokenHash string) error {
	const q = `UPDATE refresh_tokens SET revoked = true
	WHERE token_hash = $1 AND NOT revoked AND expires_at > NOW()`

	tag, err := conn(ctx, r.db).Exec(ctx, q, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return entity.ErrUnauthorized
	}
	return nil
}

func (r *RefreshTokenRepository) RevokeAll(ctx context.Context, userID uuid.UUID) error {
	const q = `UPDATE refresh_tokens SET revoked = true WHERE user_id = $1 AND NOT revoked`

	if _, err := conn(ctx, r.db).Exec(ctx, q, userID); err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}
	return nil
}

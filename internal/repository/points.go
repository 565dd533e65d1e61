package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PointsRepository struct {
	db *pgxpool.Pool
}

func NewPointsRepository(db *pgxpool.Pool) *PointsRepository {
	return &PointsRepository{
		db: db,
	}
}

func (r *PointsRepository) Get(ctx context.Context, helperID uuid.UUID) (int, error) {
	query := `SELECT points FROM helper_points WHERE helper_id = $1`

	var points int
	err := conn(ctx, r.db).QueryRow(ctx, query, helperID).Scan(&points)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return points, nil
}

// Increment - атомарный upsert, без read-modify-write
func (r *PointsRepository) Increment(ctx context.Context, helperID uuid.UUID, delta int) (int, error) {
	query := `
	INSERT INTO helper_points (helper_id, points)
	VALUES ($1, $2)
	ON CONFLICT (helper_id) DO UPDATE
	SET points = helper_points.points + EXCLUDED.points, updated_at = CURRENT_TIMESTAMP
	RETURNING points
	`

	var points int
	err := conn(ctx, r.db).QueryRow(ctx, query, helperID, delta).Scan(&points)
	if err != nil {
		return 0, err
	}
	return points, nil
}

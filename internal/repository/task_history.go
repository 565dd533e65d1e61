package repository

import (
	"context"

	"github.com/St1cky1/entraide-service/internal/entity"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TaskHistoryRepository struct {
	db *pgxpool.Pool
}

func NewTaskHistoryRepository(db *pgxpool.Pool) *TaskHistoryRepository {
	return &TaskHistoryRepository{
		db: db,
	}
}

func (r *TaskHistoryRepository) Create(ctx context.Context, h *entity.TaskHistory) error {
	query := `
	INSERT INTO task_history (task_id, kind, from_status, to_status, actor_id, helper_id, occurred_at)
	VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7)
	RETURNING id
	`

	return conn(ctx, r.db).QueryRow(ctx, query,
		h.TaskID,
		h.Kind,
		string(h.FromStatus),
		h.ToStatus,
		h.ActorID,
		h.HelperID,
		h.OccurredAt,
	).Scan(&h.ID)
}

func (r *TaskHistoryRepository) ListByTask(ctx context.Context, taskID uuid.UUID) ([]entity.TaskHistory, error) {
	query := `
	SELECT id, task_id, kind, COALESCE(from_status, ''), to_status, actor_id, helper_id, occurred_at
	FROM task_history
	WHERE task_id = $1
	ORDER BY occurred_at, id
	`

	rows, err := conn(ctx, r.db).Query(ctx, query, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []entity.TaskHistory
	for rows.Next() {
		var h entity.TaskHistory
		var helper uuid.NullUUID
		err := rows.Scan(
			&h.ID,
			&h.TaskID,
			&h.Kind,
			&h.FromStatus,
			&h.ToStatus,
			&h.ActorID,
			&helper,
			&h.OccurredAt,
		)
		if err != nil {
			return nil, err
		}
		if helper.Valid {
			h.HelperID = &helper.UUID
		}
		history = append(history, h)
	}

	return history, rows.Err()
}

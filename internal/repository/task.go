package repository

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/St1cky1/entraide-service/internal/entity"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const taskColumns = `id, type, keywords, location, requested_by, requested_by_name, requested_date,
	status, helper_assigned, created_at, updated_at`

type TaskRepository struct {
	db *pgxpool.Pool
}

func NewTaskRepository(db *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{
		db: db,
	}
}

func scanTask(row pgx.Row) (*entity.Task, error) {
	var task entity.Task
	var helper uuid.NullUUID

	err := row.Scan(
		&task.ID,
		&task.Type,
		&task.Keywords,
		&task.Location,
		&task.RequestedBy,
		&task.RequestedByName,
		&task.RequestedDate,
		&task.Status,
		&helper,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if helper.Valid {
		task.HelperAssigned = &helper.UUID
	}
	return &task, nil
}

func (r *TaskRepository) Create(ctx context.Context, task *entity.Task) error {
	query := `
	INSERT INTO task (id, type, keywords, location, requested_by, requested_by_name, requested_date, status, helper_assigned)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	RETURNING created_at, updated_at
	`

	return conn(ctx, r.db).QueryRow(ctx, query,
		task.ID,
		task.Type,
		task.Keywords,
		task.Location,
		task.RequestedBy,
		task.RequestedByName,
		task.RequestedDate,
		task.Status,
		task.HelperAssigned,
	).Scan(&task.CreatedAt, &task.UpdatedAt)
}

func (r *TaskRepository) GetByTaskId(ctx context.Context, taskId uuid.UUID) (*entity.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM task WHERE id = $1`

	task, err := scanTask(conn(ctx, r.db).QueryRow(ctx, query, taskId))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return task, nil
}

// UpdateStatus - условное обновление: WHERE status = upd.From.
// Проигравший в гонке получает ErrInvalidTransition.
func (r *TaskRepository) UpdateStatus(ctx context.Context, id uuid.UUID, upd entity.StatusUpdate) (*entity.Task, error) {
	query := `
	UPDATE task
	SET status = $1, helper_assigned = $2, updated_at = CURRENT_TIMESTAMP
	WHERE id = $3 AND status = $4
	RETURNING ` + taskColumns

	task, err := scanTask(conn(ctx, r.db).QueryRow(ctx, query, upd.To, upd.HelperAssigned, id, upd.From))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entity.ErrInvalidTransition
		}
		return nil, err
	}
	return task, nil
}

// List - список задач с фильтрацией, новые первыми
func (r *TaskRepository) List(ctx context.Context, filter entity.TaskFilter) ([]entity.Task, error) {
	var where []string
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.RequestedBy != nil {
		where = append(where, "requested_by = "+arg(*filter.RequestedBy))
	}
	if filter.PendingOrHelper != nil {
		where = append(where, "(status = "+arg(entity.StatusPending)+" OR helper_assigned = "+arg(*filter.PendingOrHelper)+")")
	}
	if filter.Type != "" {
		where = append(where, "type = "+arg(filter.Type))
	}

	query := `SELECT ` + taskColumns + ` FROM task`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := conn(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []entity.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}

	return tasks, rows.Err()
}

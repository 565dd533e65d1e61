package repository

import (
	"context"
	"errors"

	"github.com/St1cky1/entraide-service/internal/entity"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type NotificationRepository struct {
	db *pgxpool.Pool
}

func NewNotificationRepository(db *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{
		db: db,
	}
}

func scanNotification(row pgx.Row) (*entity.Notification, error) {
	var n entity.Notification
	var related uuid.NullUUID

	err := row.Scan(&n.ID, &n.UserID, &n.Message, &n.Type, &related, &n.IsRead, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	if related.Valid {
		n.RelatedTaskID = &related.UUID
	}
	return &n, nil
}

func (r *NotificationRepository) Append(ctx context.Context, n *entity.Notification) error {
	query := `
	INSERT INTO notification (id, user_id, message, type, related_task_id, is_read)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING created_at
	`

	return conn(ctx, r.db).QueryRow(ctx, query,
		n.ID,
		n.UserID,
		n.Message,
		n.Type,
		n.RelatedTaskID,
		n.IsRead,
	).Scan(&n.CreatedAt)
}

func (r *NotificationRepository) GetById(ctx context.Context, id uuid.UUID) (*entity.Notification, error) {
	query := `
	SELECT id, user_id, message, type, related_task_id, is_read, created_at
	FROM notification
	WHERE id = $1
	`

	n, err := scanNotification(conn(ctx, r.db).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return n, nil
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]entity.Notification, error) {
	query := `
	SELECT id, user_id, message, type, related_task_id, is_read, created_at
	FROM notification
	WHERE user_id = $1
	ORDER BY created_at DESC
	`

	rows, err := conn(ctx, r.db).Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []entity.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *n)
	}

	return list, rows.Err()
}

// MarkRead - повторная отметка ничего не меняет
func (r *NotificationRepository) MarkRead(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE notification SET is_read = true WHERE id = $1`

	result, err := conn(ctx, r.db).Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return entity.ErrNotificationNotFound
	}
	return nil
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	query := `UPDATE notification SET is_read = true WHERE user_id = $1 AND is_read = false`

	result, err := conn(ctx, r.db).Exec(ctx, query, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

func (r *NotificationRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM notification WHERE user_id = $1 AND is_read = false`

	var count int
	if err := conn(ctx, r.db).QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

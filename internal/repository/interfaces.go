package repository

import (
	"context"
	"time"

	"github.com/St1cky1/entraide-service/internal/entity"
	"github.com/google/uuid"
)

// ITaskRepository - интерфейс для TaskRepository.
// GetByTaskId возвращает (nil, nil), если задачи нет.
// UpdateStatus применяет изменение только если текущий статус равен upd.From,
// иначе возвращает entity.ErrInvalidTransition.
type ITaskRepository interface {
	Create(ctx context.Context, task *entity.Task) error
	GetByTaskId(ctx context.Context, taskId uuid.UUID) (*entity.Task, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, upd entity.StatusUpdate) (*entity.Task, error)
	List(ctx context.Context, filter entity.TaskFilter) ([]entity.Task, error)
}

// IPointsRepository - интерфейс для PointsRepository.
// Increment атомарный, отсутствующая запись считается нулем.
type IPointsRepository interface {
	Get(ctx context.Context, helperID uuid.UUID) (int, error)
	Increment(ctx context.Context, helperID uuid.UUID, delta int) (int, error)
}

// INotificationRepository - интерфейс для NotificationRepository
type INotificationRepository interface {
	Append(ctx context.Context, n *entity.Notification) error
	GetById(ctx context.Context, id uuid.UUID) (*entity.Notification, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]entity.Notification, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
}

// IUserRepository - интерфейс для UserRepository
type IUserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetById(ctx context.Context, id uuid.UUID) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	Update(ctx context.Context, id uuid.UUID, req *entity.UpdateProfileRequest) (*entity.User, error)
	TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

// IRefreshTokenRepository - интерфейс для RefreshTokenRepository
type IRefreshTokenRepository interface {
	Save(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error
	GetByHash(ctx context.Context, tokenHash string) (*RefreshToken, error)
	// Revoke - entity.ErrUnauthorized, если токен уже отозван или истек
	Revoke(ctx context.Context, tokenHash string) error
	RevokeAll(ctx context.Context, userID uuid.UUID) error
}

// ITaskHistoryRepository - интерфейс для TaskHistoryRepository
type ITaskHistoryRepository interface {
	Create(ctx context.Context, h *entity.TaskHistory) error
	ListByTask(ctx context.Context, taskID uuid.UUID) ([]entity.TaskHistory, error)
}

// Transactor выполняет fn в одной транзакции хранилища.
// Репозитории, вызванные с этим ctx, работают внутри транзакции.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

package usecase

import (
	"context"
	"sync"

	"github.com/St1cky1/entraide-service/internal/entity"
	"github.com/St1cky1/entraide-service/internal/repository"
	"github.com/google/uuid"
)

// MockPointsRepository - мок для IPointsRepository
type MockPointsRepository struct {
	GetFunc       func(ctx context.Context, helperID uuid.UUID) (int, error)
	IncrementFunc func(ctx context.Context, helperID uuid.UUID, delta int) (int, error)
}

var _ repository.IPointsRepository = (*MockPointsRepository)(nil)

func (m *MockPointsRepository) Get(ctx context.Context, helperID uuid.UUID) (int, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, helperID)
	}
	return 0, nil
}

func (m *MockPointsRepository) Increment(ctx context.Context, helperID uuid.UUID, delta int) (int, error) {
	if m.IncrementFunc != nil {
		return m.IncrementFunc(ctx, helperID, delta)
	}
	return delta, nil
}

// MockNotificationRepository - мок для INotificationRepository
type MockNotificationRepository struct {
	AppendFunc      func(ctx context.Context, n *entity.Notification) error
	GetByIdFunc     func(ctx context.Context, id uuid.UUID) (*entity.Notification, error)
	ListByUserFunc  func(ctx context.Context, userID uuid.UUID) ([]entity.Notification, error)
	MarkReadFunc    func(ctx context.Context, id uuid.UUID) error
	MarkAllReadFunc func(ctx context.Context, userID uuid.UUID) (int64, error)
	CountUnreadFunc func(ctx context.Context, userID uuid.UUID) (int, error)
}

var _ repository.INotificationRepository = (*MockNotificationRepository)(nil)

func (m *MockNotificationRepository) Append(ctx context.Context, n *entity.Notification) error {
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, n)
	}
	return nil
}

func (m *MockNotificationRepository) GetById(ctx context.Context, id uuid.UUID) (*entity.Notification, error) {
	if m.GetByIdFunc != nil {
		return m.GetByIdFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockNotificationRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]entity.Notification, error) {
	if m.ListByUserFunc != nil {
		return m.ListByUserFunc(ctx, userID)
	}
	return nil, nil
}

func (m *MockNotificationRepository) MarkRead(ctx context.Context, id uuid.UUID) error {
	if m.MarkReadFunc != nil {
		return m.MarkReadFunc(ctx, id)
	}
	return nil
}

func (m *MockNotificationRepository) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	if m.MarkAllReadFunc != nil {
		return m.MarkAllReadFunc(ctx, userID)
	}
	return 0, nil
}

func (m *MockNotificationRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	if m.CountUnreadFunc != nil {
		return m.CountUnreadFunc(ctx, userID)
	}
	return 0, nil
}

// MockEventPublisher запоминает опубликованные события
type MockEventPublisher struct {
	mu     sync.Mutex
	Events []entity.TaskEvent
	Err    error
}

func (m *MockEventPublisher) PublishTaskEvent(_ context.Context, event *entity.TaskEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, *event)
	return m.Err
}

func (m *MockEventPublisher) Kinds() []entity.EventKind {
	m.mu.Lock()
	defer m.mu.Unlock()
	kinds := make([]entity.EventKind, 0, len(m.Events))
	for _, e := range m.Events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

// txRecorder считает вызовы транзакций
type txRecorder struct {
	mu    sync.Mutex
	calls int
	next  repository.Transactor
}

func (t *txRecorder) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	t.mu.Lock()
	t.calls++
	t.mu.Unlock()
	if t.next != nil {
		return t.next.WithinTransaction(ctx, fn)
	}
	return fn(ctx)
}

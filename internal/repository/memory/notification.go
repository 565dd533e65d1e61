package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/St1cky1/entraide-service/internal/entity"
	"github.com/google/uuid"
)

type notificationRow struct {
	seq int64
	n   entity.Notification
}

type NotificationRepository struct {
	mu    sync.RWMutex
	seq   int64
	items map[uuid.UUID]*notificationRow
}

func NewNotificationRepository() *NotificationRepository {
	return &NotificationRepository{
		items: make(map[uuid.UUID]*notificationRow),
	}
}

func (r *NotificationRepository) Append(ctx context.Context, n *entity.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n.CreatedAt = time.Now().UTC()
	r.seq++
	r.items[n.ID] = &notificationRow{seq: r.seq, n: *n}

	id := n.ID
	onRollback(ctx, func() {
		r.mu.Lock()
		delete(r.items, id)
		r.mu.Unlock()
	})
	return nil
}

func (r *NotificationRepository) GetById(_ context.Context, id uuid.UUID) (*entity.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	row, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	n := row.n
	return &n, nil
}

func (r *NotificationRepository) ListByUser(_ context.Context, userID uuid.UUID) ([]entity.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var rows []*notificationRow
	for _, row := range r.items {
		if row.n.UserID == userID {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].seq > rows[j].seq
	})

	list := make([]entity.Notification, 0, len(rows))
	for _, row := range rows {
		list = append(list, row.n)
	}
	return list, nil
}

func (r *NotificationRepository) MarkRead(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.items[id]
	if !ok {
		return entity.ErrNotificationNotFound
	}
	row.n.IsRead = true
	return nil
}

func (r *NotificationRepository) MarkAllRead(_ context.Context, userID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var changed int64
	for _, row := range r.items {
		if row.n.UserID == userID && !row.n.IsRead {
			row.n.IsRead = true
			changed++
		}
	}
	return changed, nil
}

func (r *NotificationRepository) CountUnread(_ context.Context, userID uuid.UUID) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, row := range r.items {
		if row.n.UserID == userID && !row.n.IsRead {
			count++
		}
	}
	return count, nil
}

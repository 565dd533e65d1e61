// Package events рассылает события изменения задач подписчикам внутри процесса
// и во внешние брокеры.
package events

import (
	"context"
	"errors"
	"sync"

	"github.com/St1cky1/entraide-service/internal/entity"
	"github.com/google/uuid"
)

// ForTask - только события одной задачи
func ForTask(taskID uuid.UUID) Match {
	return func(event *entity.TaskEvent) bool { return event.TaskID == taskID }
}

// VisibleTo - только события задач, которые видит actor
func VisibleTo(actor entity.Actor) Match {
	return func(event *entity.TaskEvent) bool { return event.VisibleTo(actor) }
}

// All объединяет условия через И
func All(matches ...Match) Match {
	return func(event *entity.TaskEvent) bool {
		for _, m := range matches {
			if m != nil && !m(event) {
				return false
			}
		}
		return true
	}
}

const subscriberBuffer = 16

// Match отбирает события для подписчика, nil - все события
type Match func(event *entity.TaskEvent) bool

type subscriber struct {
	ch    chan entity.TaskEvent
	match Match
}

// Hub - in-process fan-out для SSE и других транспортов.
// Медленный подписчик теряет события, публикация не блокируется.
type Hub struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]*subscriber
}

func NewHub() *Hub {
	return &Hub{
		subs: make(map[int]*subscriber),
	}
}

// Subscribe возвращает канал событий, прошедших match.
// Канал закрывается после отмены ctx.
func (h *Hub) Subscribe(ctx context.Context, match Match) <-chan entity.TaskEvent {
	sub := &subscriber{
		ch:    make(chan entity.TaskEvent, subscriberBuffer),
		match: match,
	}

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = sub
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, id)
		close(sub.ch)
		h.mu.Unlock()
	}()

	return sub.ch
}

func (h *Hub) PublishTaskEvent(_ context.Context, event *entity.TaskEvent) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subs {
		if sub.match != nil && !sub.match(event) {
			continue
		}
		select {
		case sub.ch <- *event:
		default:
		}
	}
	return nil
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Publisher - получатель событий задач
type Publisher interface {
	PublishTaskEvent(ctx context.Context, event *entity.TaskEvent) error
}

// Fanout публикует событие во все publishers и собирает ошибки
type Fanout []Publisher

func (f Fanout) PublishTaskEvent(ctx context.Context, event *entity.TaskEvent) error {
	var errs []error
	for _, p := range f {
		if err := p.PublishTaskEvent(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

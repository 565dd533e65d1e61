package entity

import (
	"time"

	"github.com/google/uuid"
)

type EventKind string

const (
	EventCreated   EventKind = "created"
	EventProposed  EventKind = "proposed"
	EventConfirmed EventKind = "confirmed"
	EventDeclined  EventKind = "declined"
	EventCancelled EventKind = "cancelled"
	EventCompleted EventKind = "completed"
)

// TaskEvent - событие изменения задачи, рассылается подписчикам и в брокер
type TaskEvent struct {
	TaskID      uuid.UUID  `json:"task_id"`
	Kind        EventKind  `json:"kind"`
	From        TaskStatus `json:"from,omitempty"`
	To          TaskStatus `json:"to"`
	RequestedBy uuid.UUID  `json:"requested_by"`
	ActorID     uuid.UUID  `json:"actor_id"`
	HelperID    *uuid.UUID `json:"helper_id,omitempty"`
	Timestamp   time.Time  `json:"timestamp"`
}

// VisibleTo - правило видимости задачи, примененное к событию.
// HelperID события - текущий или только что снятый помощник.
func (e *TaskEvent) VisibleTo(actor Actor) bool {
	switch actor.Role {
	case RoleSenior:
		return e.RequestedBy == actor.UserID
	case RoleHelper:
		return e.To == StatusPending || (e.HelperID != nil && *e.HelperID == actor.UserID)
	}
	return false
}

// TaskHistory - сохраненное событие (пишет history worker)
type TaskHistory struct {
	ID         int64      `json:"id"`
	TaskID     uuid.UUID  `json:"task_id"`
	Kind       EventKind  `json:"kind"`
	FromStatus TaskStatus `json:"from_status,omitempty"`
	ToStatus   TaskStatus `json:"to_status"`
	ActorID    uuid.UUID  `json:"actor_id"`
	HelperID   *uuid.UUID `json:"helper_id,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}

package entity

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationTaskProposed  NotificationType = "task_proposed"
	NotificationTaskAwaiting  NotificationType = "task_awaiting"
	NotificationTaskAccepted  NotificationType = "task_accepted"
	NotificationTaskConfirmed NotificationType = "task_confirmed"
	NotificationTaskDeclined  NotificationType = "task_declined"
	NotificationTaskCancelled NotificationType = "task_cancelled"
	NotificationTaskCompleted NotificationType = "task_completed"
)

type Notification struct {
	ID            uuid.UUID        `json:"id"`
	UserID        uuid.UUID        `json:"user_id"`
	Message       string           `json:"message"`
	Type          NotificationType `json:"type"`
	RelatedTaskID *uuid.UUID       `json:"related_task_id,omitempty"`
	IsRead        bool             `json:"is_read"`
	CreatedAt     time.Time        `json:"created_at"`
}

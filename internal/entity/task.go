package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type TaskStatus string

const (
	StatusPending         TaskStatus = "pending"
	StatusWaitingApproval TaskStatus = "waiting_approval"
	StatusAssigned        TaskStatus = "assigned"
	StatusCompleted       TaskStatus = "completed"
	StatusCancelled       TaskStatus = "cancelled"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusWaitingApproval, StatusAssigned, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal - из completed и cancelled переходов нет
func (s TaskStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// HasHelper - статусы, в которых у задачи обязательно есть помощник
func (s TaskStatus) HasHelper() bool {
	return s == StatusWaitingApproval || s == StatusAssigned || s == StatusCompleted
}

type TaskType string

const (
	TypeGroceries     TaskType = "groceries"
	TypeCooking       TaskType = "cooking"
	TypeGardening     TaskType = "gardening"
	TypeTechnology    TaskType = "technology"
	TypeAccompaniment TaskType = "accompaniment"
)

func (t TaskType) Valid() bool {
	switch t {
	case TypeGroceries, TypeCooking, TypeGardening, TypeTechnology, TypeAccompaniment:
		return true
	}
	return false
}

type Task struct {
	ID              uuid.UUID  `json:"id"`
	Type            TaskType   `json:"type"`
	Keywords        []string   `json:"keywords"`
	Location        string     `json:"location"`
	RequestedBy     uuid.UUID  `json:"requested_by"`
	RequestedByName string     `json:"requested_by_name"`
	RequestedDate   time.Time  `json:"requested_date"`
	Status          TaskStatus `json:"status"`
	HelperAssigned  *uuid.UUID `json:"helper_assigned,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// IsHelper проверяет, что userID - назначенный помощник
func (t *Task) IsHelper(userID uuid.UUID) bool {
	return t.HelperAssigned != nil && *t.HelperAssigned == userID
}

// VisibleTo: пожилой видит свои задачи, помощник - pending и те, где он назначен
func (t *Task) VisibleTo(actor Actor) bool {
	switch actor.Role {
	case RoleSenior:
		return t.RequestedBy == actor.UserID
	case RoleHelper:
		return t.Status == StatusPending || t.IsHelper(actor.UserID)
	}
	return false
}

func (t *Task) Coordinates() (Coordinates, bool) {
	return ParseCoordinates(t.Location)
}

// валидация
type CreateTaskRequest struct {
	Type          TaskType  `json:"type"`
	Keywords      []string  `json:"keywords"`
	Location      string    `json:"location"`
	RequestedDate time.Time `json:"requested_date"`
}

// Normalize убирает пробелы и дубликаты ключевых слов
func (r *CreateTaskRequest) Normalize() {
	r.Location = strings.TrimSpace(r.Location)

	seen := make(map[string]struct{}, len(r.Keywords))
	keywords := make([]string, 0, len(r.Keywords))
	for _, kw := range r.Keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		if _, ok := seen[kw]; ok {
			continue
		}
		seen[kw] = struct{}{}
		keywords = append(keywords, kw)
	}
	r.Keywords = keywords
}

func (r *CreateTaskRequest) Validate() error {
	var verr ValidationError
	if !r.Type.Valid() {
		verr.Add("type", "must be one of groceries, cooking, gardening, technology, accompaniment")
	}
	if len(r.Keywords) == 0 {
		verr.Add("keywords", "at least one keyword is required")
	}
	if r.Location == "" {
		verr.Add("location", "is required")
	}
	if r.RequestedDate.IsZero() {
		verr.Add("requested_date", "is required")
	}
	return verr.Err()
}

// StatusUpdate - условное обновление статуса: применяется, только если
// текущий статус в хранилище совпадает с From
type StatusUpdate struct {
	From TaskStatus
	To   TaskStatus
	// HelperAssigned - новое значение помощника, nil очищает поле
	HelperAssigned *uuid.UUID
}

// TaskFilter - выборка задач для listForUser
type TaskFilter struct {
	RequestedBy *uuid.UUID
	// PendingOrHelper - все pending задачи плюс задачи этого помощника
	PendingOrHelper *uuid.UUID
	Type            TaskType
}

func (f TaskFilter) Match(t *Task) bool {
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if f.RequestedBy != nil && t.RequestedBy != *f.RequestedBy {
		return false
	}
	if f.PendingOrHelper != nil && t.Status != StatusPending && !t.IsHelper(*f.PendingOrHelper) {
		return false
	}
	return true
}

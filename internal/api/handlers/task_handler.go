package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/St1cky1/entraide-service/internal/entity"
	"github.com/St1cky1/entraide-service/internal/usecase"
	"github.com/google/uuid"
)

type TaskHandler struct {
	taskService *usecase.TaskService
	userService *usecase.UserService
}

func NewTaskHandler(taskService *usecase.TaskService, userService *usecase.UserService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		userService: userService,
	}
}

type createTaskRequest struct {
	Type          entity.TaskType `json:"type"`
	Keywords      []string        `json:"keywords"`
	Location      string          `json:"location"`
	RequestedDate string          `json:"requested_date"`
}

// parseRequestedDate принимает "2006-01-02" или RFC3339
func parseRequestedDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, true
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var body createTaskRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	date, ok := parseRequestedDate(body.RequestedDate)
	if !ok {
		verr := &entity.ValidationError{}
		verr.Add("requested_date", "must be a date in YYYY-MM-DD format")
		writeError(w, r, verr)
		return
	}

	req := &entity.CreateTaskRequest{
		Type:          body.Type,
		Keywords:      body.Keywords,
		Location:      body.Location,
		RequestedDate: date,
	}

	task, err := h.taskService.CreateTask(r.Context(), mustActor(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	task, err := h.taskService.GetTask(r.Context(), mustActor(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// ListTasks: ?type=groceries, ?near=1 - сортировка от координат профиля
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	actor := mustActor(r)
	filter := usecase.ListFilter{
		Type: entity.TaskType(r.URL.Query().Get("type")),
	}

	if near := r.URL.Query().Get("near"); near == "1" || near == "true" {
		coords, err := h.userService.Coordinates(r.Context(), actor.UserID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		filter.Near = coords
	}

	tasks, err := h.taskService.ListForUser(r.Context(), actor, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if tasks == nil {
		tasks = []entity.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	history, err := h.taskService.History(r.Context(), mustActor(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if history == nil {
		history = []entity.TaskHistory{}
	}
	writeJSON(w, http.StatusOK, history)
}

type transitionFunc func(ctx context.Context, taskID uuid.UUID, actor entity.Actor) (*entity.Task, error)

func (h *TaskHandler) apply(fn transitionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}

		task, err := fn(r.Context(), id, mustActor(r))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, task)
	}
}

func (h *TaskHandler) Propose() http.HandlerFunc  { return h.apply(h.taskService.Propose) }
func (h *TaskHandler) Confirm() http.HandlerFunc  { return h.apply(h.taskService.Confirm) }
func (h *TaskHandler) Decline() http.HandlerFunc  { return h.apply(h.taskService.Decline) }
func (h *TaskHandler) Cancel() http.HandlerFunc   { return h.apply(h.taskService.Cancel) }
func (h *TaskHandler) Complete() http.HandlerFunc { return h.apply(h.taskService.Complete) }

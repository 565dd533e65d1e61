package handlers

import (
	"net/http"

	"github.com/St1cky1/entraide-service/internal/entity"
	"github.com/St1cky1/entraide-service/internal/usecase"
)

type NotificationHandler struct {
	notificationService *usecase.NotificationService
}

func NewNotificationHandler(notificationService *usecase.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
	}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.notificationService.ListFor(r.Context(), mustActor(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []entity.Notification{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.notificationService.UnreadCount(r.Context(), mustActor(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"unread": count})
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.notificationService.MarkRead(r.Context(), mustActor(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	updated, err := h.notificationService.MarkAllRead(r.Context(), mustActor(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"updated": updated})
}

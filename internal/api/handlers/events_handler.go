package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/St1cky1/entraide-service/internal/entity"
	"github.com/St1cky1/entraide-service/internal/events"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type taskReader interface {
	GetTask(ctx context.Context, actor entity.Actor, taskID uuid.UUID) (*entity.Task, error)
}

type EventsHandler struct {
	hub   *events.Hub
	tasks taskReader
}

func NewEventsHandler(hub *events.Hub, tasks taskReader) *EventsHandler {
	return &EventsHandler{
		hub:   hub,
		tasks: tasks,
	}
}

// Stream - SSE поток событий видимых пользователю задач,
// ?task_id= ограничивает одной задачей (403/404 как у GET /tasks/{id})
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "streaming unsupported"})
		return
	}

	actor := mustActor(r)
	match := events.VisibleTo(actor)

	if raw := r.URL.Query().Get("task_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid task_id"})
			return
		}
		if _, err := h.tasks.GetTask(r.Context(), actor, id); err != nil {
			writeError(w, r, err)
			return
		}
		match = events.All(events.ForTask(id), match)
	}

	ch := h.hub.Subscribe(r.Context(), match)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for event := range ch {
		data, err := json.Marshal(event)
		if err != nil {
			log.Error().Err(err).Msg("failed to marshal task event")
			continue
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Kind, data); err != nil {
			return
		}
		flusher.Flush()
	}
}

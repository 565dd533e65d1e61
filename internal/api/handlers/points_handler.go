package handlers

import (
	"net/http"

	"github.com/St1cky1/entraide-service/internal/usecase"
	"github.com/google/uuid"
)

type PointsHandler struct {
	pointsService *usecase.PointsService
}

func NewPointsHandler(pointsService *usecase.PointsService) *PointsHandler {
	return &PointsHandler{
		pointsService: pointsService,
	}
}

func (h *PointsHandler) Mine(w http.ResponseWriter, r *http.Request) {
	h.summary(w, r, mustActor(r).UserID)
}

func (h *PointsHandler) ForHelper(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "helperID")
	if !ok {
		return
	}
	h.summary(w, r, id)
}

func (h *PointsHandler) summary(w http.ResponseWriter, r *http.Request, helperID uuid.UUID) {
	summary, err := h.pointsService.Summary(r.Context(), helperID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

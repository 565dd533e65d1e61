package memory

import (
	"context"
	"sync"

	"github.com/St1cky1/entraide-service/internal/entity"
	"github.com/google/uuid"
)

type TaskHistoryRepository struct {
	mu      sync.RWMutex
	seq     int64
	entries []entity.TaskHistory
}

func NewTaskHistoryRepository() *TaskHistoryRepository {
	return &TaskHistoryRepository{}
}

func (r *TaskHistoryRepository) Create(_ context.Context, h *entity.TaskHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	h.ID = r.seq
	r.entries = append(r.entries, *h)
	return nil
}

func (r *TaskHistoryRepository) ListByTask(_ context.Context, taskID uuid.UUID) ([]entity.TaskHistory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []entity.TaskHistory
	for _, h := range r.entries {
		if h.TaskID == taskID {
			out = append(out, h)
		}
	}
	return out, nil
}

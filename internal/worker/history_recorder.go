package worker

import (
	"context"

	"github.com/St1cky1/entraide-service/internal/entity"
	"github.com/St1cky1/entraide-service/internal/repository"
)

// HistoryRecorder пишет историю прямо из цепочки публикации.
// Используется вместо HistoryWorker, когда RabbitMQ не настроен.
type HistoryRecorder struct {
	historyRepo repository.ITaskHistoryRepository
}

func NewHistoryRecorder(historyRepo repository.ITaskHistoryRepository) *HistoryRecorder {
	return &HistoryRecorder{historyRepo: historyRepo}
}

func (r *HistoryRecorder) PublishTaskEvent(ctx context.Context, event *entity.TaskEvent) error {
	return saveHistory(ctx, r.historyRepo, event)
}

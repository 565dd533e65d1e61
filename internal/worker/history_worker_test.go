package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/St1cky1/entraide-service/internal/entity"
	"github.com/St1cky1/entraide-service/internal/repository/memory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingHistoryRepo struct {
	memory.TaskHistoryRepository
}

func (f *failingHistoryRepo) Create(ctx context.Context, h *entity.TaskHistory) error {
	return errors.New("db down")
}

func TestHandleStoresHistory(t *testing.T) {
	repo := memory.NewTaskHistoryRepository()
	w := NewHistoryWorker("amqp://unused", "task_events", repo)

	helper := uuid.New()
	event := entity.TaskEvent{
		TaskID:    uuid.New(),
		Kind:      entity.EventProposed,
		From:      entity.StatusPending,
		To:        entity.StatusWaitingApproval,
		ActorID:   helper,
		HelperID:  &helper,
		Timestamp: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	body, err := json.Marshal(event)
	require.NoError(t, err)

	require.NoError(t, w.Handle(context.Background(), body))

	history, err := repo.ListByTask(context.Background(), event.TaskID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, entity.StatusPending, history[0].FromStatus)
	assert.Equal(t, entity.StatusWaitingApproval, history[0].ToStatus)
	assert.Equal(t, &helper, history[0].HelperID)
	assert.True(t, event.Timestamp.Equal(history[0].OccurredAt))
}

func TestHandleRejectsMalformedEvents(t *testing.T) {
	w := NewHistoryWorker("amqp://unused", "task_events", memory.NewTaskHistoryRepository())

	err := w.Handle(context.Background(), []byte("{not json"))
	assert.ErrorIs(t, err, errMalformedEvent)

	err = w.Handle(context.Background(), []byte(`{"task_id":"`+uuid.NewString()+`","to":"archived"}`))
	assert.ErrorIs(t, err, errMalformedEvent)
}

func TestHandleStorageErrorIsRetryable(t *testing.T) {
	w := NewHistoryWorker("amqp://unused", "task_events", &failingHistoryRepo{})

	body := []byte(`{"task_id":"` + uuid.NewString() + `","kind":"created","to":"pending"}`)
	err := w.Handle(context.Background(), body)
	require.Error(t, err)
	assert.NotErrorIs(t, err, errMalformedEvent)
}

func TestHistoryRecorderSavesPublishedEvents(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewTaskHistoryRepository()
	recorder := NewHistoryRecorder(repo)

	taskID := uuid.New()
	require.NoError(t, recorder.PublishTaskEvent(ctx, &entity.TaskEvent{
		TaskID: taskID, Kind: entity.EventCreated, To: entity.StatusPending, ActorID: uuid.New(),
	}))
	require.NoError(t, recorder.PublishTaskEvent(ctx, &entity.TaskEvent{
		TaskID: taskID, Kind: entity.EventCancelled, From: entity.StatusPending, To: entity.StatusCancelled, ActorID: uuid.New(),
	}))

	list, err := repo.ListByTask(ctx, taskID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, entity.EventCreated, list[0].Kind)
	assert.Equal(t, entity.StatusCancelled, list[1].ToStatus)
	assert.False(t, list[1].OccurredAt.IsZero())

	failing := NewHistoryRecorder(&failingHistoryRepo{})
	assert.Error(t, failing.PublishTaskEvent(ctx, &entity.TaskEvent{TaskID: taskID, To: entity.StatusPending}))
}

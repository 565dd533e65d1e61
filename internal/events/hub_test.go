package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/St1cky1/entraide-service/internal/entity"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan entity.TaskEvent) entity.TaskEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
		return entity.TaskEvent{}
	}
}

func TestHubDeliversByTask(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	taskA, taskB := uuid.New(), uuid.New()

	all := hub.Subscribe(ctx, nil)
	onlyA := hub.Subscribe(ctx, ForTask(taskA))

	require.NoError(t, hub.PublishTaskEvent(ctx, &entity.TaskEvent{TaskID: taskB, Kind: entity.EventCreated}))
	require.NoError(t, hub.PublishTaskEvent(ctx, &entity.TaskEvent{TaskID: taskA, Kind: entity.EventProposed}))

	assert.Equal(t, taskB, receive(t, all).TaskID)
	assert.Equal(t, taskA, receive(t, all).TaskID)

	ev := receive(t, onlyA)
	assert.Equal(t, entity.EventProposed, ev.Kind)
	select {
	case extra := <-onlyA:
		t.Fatalf("unexpected event for task %s", extra.TaskID)
	default:
	}
}

func TestHubDoesNotBlockOnSlowSubscriber(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	_ = hub.Subscribe(ctx, nil)

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*4; i++ {
			_ = hub.PublishTaskEvent(ctx, &entity.TaskEvent{TaskID: uuid.New()})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on full subscriber")
	}
}

func TestHubUnsubscribesOnCancel(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	ch := hub.Subscribe(ctx, nil)
	assert.Equal(t, 1, hub.Subscribers())

	cancel()
	for range ch {
	}
	assert.Equal(t, 0, hub.Subscribers())
}

type failingPublisher struct{ err error }

func (f failingPublisher) PublishTaskEvent(context.Context, *entity.TaskEvent) error { return f.err }

func TestFanoutJoinsErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	ch := hub.Subscribe(ctx, nil)
	brokerErr := errors.New("broker down")

	fanout := Fanout{failingPublisher{err: brokerErr}, hub}
	err := fanout.PublishTaskEvent(ctx, &entity.TaskEvent{TaskID: uuid.New()})

	assert.ErrorIs(t, err, brokerErr)
	receive(t, ch)
	assert.NoError(t, Fanout{hub}.PublishTaskEvent(ctx, &entity.TaskEvent{TaskID: uuid.New()}))
}

func TestHubFiltersByVisibility(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	senior := entity.Actor{UserID: uuid.New(), Role: entity.RoleSenior}
	helper := entity.Actor{UserID: uuid.New(), Role: entity.RoleHelper}
	other := uuid.New()

	seniorCh := hub.Subscribe(ctx, VisibleTo(senior))
	helperCh := hub.Subscribe(ctx, VisibleTo(helper))

	// чужая задача, уже взятая другим помощником
	taken := &entity.TaskEvent{TaskID: uuid.New(), Kind: entity.EventProposed, To: entity.StatusWaitingApproval, RequestedBy: other, HelperID: &other}
	// своя задача пожилого, видна и помощнику как pending
	own := &entity.TaskEvent{TaskID: uuid.New(), Kind: entity.EventCreated, To: entity.StatusPending, RequestedBy: senior.UserID}

	require.NoError(t, hub.PublishTaskEvent(ctx, taken))
	require.NoError(t, hub.PublishTaskEvent(ctx, own))

	assert.Equal(t, own.TaskID, receive(t, seniorCh).TaskID)
	assert.Equal(t, own.TaskID, receive(t, helperCh).TaskID)
}

func TestAllCombinesMatches(t *testing.T) {
	task := uuid.New()
	helper := entity.Actor{UserID: uuid.New(), Role: entity.RoleHelper}
	match := All(ForTask(task), VisibleTo(helper))

	assert.True(t, match(&entity.TaskEvent{TaskID: task, To: entity.StatusPending}))
	assert.False(t, match(&entity.TaskEvent{TaskID: uuid.New(), To: entity.StatusPending}))
	assert.False(t, match(&entity.TaskEvent{TaskID: task, To: entity.StatusAssigned}))
}

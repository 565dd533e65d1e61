// Package memory - хранилища в памяти процесса (STORAGE=memory и тесты).
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/St1cky1/entraide-service/internal/entity"
	"github.com/google/uuid"
)

type taskRow struct {
	seq  int64
	rev  int64
	task entity.Task
}

type TaskRepository struct {
	mu    sync.RWMutex
	seq   int64
	tasks map[uuid.UUID]*taskRow
}

func NewTaskRepository() *TaskRepository {
	return &TaskRepository{
		tasks: make(map[uuid.UUID]*taskRow),
	}
}

func cloneTask(t entity.Task) *entity.Task {
	t.Keywords = append([]string(nil), t.Keywords...)
	if t.HelperAssigned != nil {
		h := *t.HelperAssigned
		t.HelperAssigned = &h
	}
	return &t
}

func (r *TaskRepository) Create(ctx context.Context, task *entity.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now

	r.seq++
	r.tasks[task.ID] = &taskRow{seq: r.seq, task: *cloneTask(*task)}

	id := task.ID
	onRollback(ctx, func() {
		r.mu.Lock()
		delete(r.tasks, id)
		r.mu.Unlock()
	})
	return nil
}

func (r *TaskRepository) GetByTaskId(_ context.Context, taskId uuid.UUID) (*entity.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	row, ok := r.tasks[taskId]
	if !ok {
		return nil, nil
	}
	return cloneTask(row.task), nil
}

func (r *TaskRepository) UpdateStatus(ctx context.Context, id uuid.UUID, upd entity.StatusUpdate) (*entity.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.tasks[id]
	if !ok || row.task.Status != upd.From {
		return nil, entity.ErrInvalidTransition
	}

	prev := row.task

	row.task.Status = upd.To
	row.task.HelperAssigned = nil
	if upd.HelperAssigned != nil {
		h := *upd.HelperAssigned
		row.task.HelperAssigned = &h
	}
	row.task.UpdatedAt = time.Now().UTC()
	row.rev++

	rev := row.rev
	onRollback(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		// строку успели изменить после нас - не трогаем
		if row.rev == rev {
			row.task = prev
			row.rev++
		}
	})

	return cloneTask(row.task), nil
}

func (r *TaskRepository) List(_ context.Context, filter entity.TaskFilter) ([]entity.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows := make([]*taskRow, 0, len(r.tasks))
	for _, row := range r.tasks {
		if filter.Match(&row.task) {
			rows = append(rows, row)
		}
	}

	// новые первыми
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].seq > rows[j].seq
	})

	tasks := make([]entity.Task, 0, len(rows))
	for _, row := range rows {
		tasks = append(tasks, *cloneTask(row.task))
	}
	return tasks, nil
}

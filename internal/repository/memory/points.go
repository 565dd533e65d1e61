package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type PointsRepository struct {
	mu     sync.Mutex
	points map[uuid.UUID]int
}

func NewPointsRepository() *PointsRepository {
	return &PointsRepository{
		points: make(map[uuid.UUID]int),
	}
}

func (r *PointsRepository) Get(_ context.Context, helperID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.points[helperID], nil
}

func (r *PointsRepository) Increment(ctx context.Context, helperID uuid.UUID, delta int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, existed := r.points[helperID]
	r.points[helperID] += delta

	onRollback(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.points[helperID] -= delta
		if !existed && r.points[helperID] == 0 {
			delete(r.points, helperID)
		}
	})
	return r.points[helperID], nil
}

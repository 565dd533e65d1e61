package usecase

import (
	"context"
	"fmt"

	"github.com/St1cky1/entraide-service/internal/entity"
	"github.com/St1cky1/entraide-service/internal/repository"
	"github.com/google/uuid"
)

type PointsService struct {
	pointsRepo repository.IPointsRepository
}

func NewPointsService(pointsRepo repository.IPointsRepository) *PointsService {
	return &PointsService{
		pointsRepo: pointsRepo,
	}
}

// GetPoints возвращает 0, если записи нет
func (s *PointsService) GetPoints(ctx context.Context, helperID uuid.UUID) (int, error) {
	points, err := s.pointsRepo.Get(ctx, helperID)
	if err != nil {
		return 0, fmt.Errorf("failed to get points: %w", err)
	}
	return points, nil
}

// AwardPoints - атомарное начисление, возвращает новый итог.
// Через него же начисляется награда в TaskService.Complete.
func (s *PointsService) AwardPoints(ctx context.Context, helperID uuid.UUID, amount int) (int, error) {
	if amount <= 0 {
		verr := &entity.ValidationError{}
		verr.Add("amount", "must be positive")
		return 0, verr
	}

	total, err := s.pointsRepo.Increment(ctx, helperID, amount)
	if err != nil {
		return 0, fmt.Errorf("failed to award points: %w", err)
	}
	return total, nil
}

func (s *PointsService) Summary(ctx context.Context, helperID uuid.UUID) (entity.PointsSummary, error) {
	points, err := s.GetPoints(ctx, helperID)
	if err != nil {
		return entity.PointsSummary{}, err
	}
	return entity.SummarizePoints(helperID, points), nil
}

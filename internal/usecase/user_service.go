package usecase

import (
	"context"
	"fmt"

	"github.com/St1cky1/entraide-service/internal/entity"
	"github.com/St1cky1/entraide-service/internal/repository"
	"github.com/google/uuid"
)

type UserService struct {
	userRepo repository.IUserRepository
}

func NewUserService(userRepo repository.IUserRepository) *UserService {
	return &UserService{
		userRepo: userRepo,
	}
}

// GetProfile получает пользователя по ID
func (s *UserService) GetProfile(ctx context.Context, userID uuid.UUID) (*entity.User, error) {
	user, err := s.userRepo.GetById(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, entity.ErrUserNotFound
	}
	return user, nil
}

// UpdateProfile обновляет только переданные поля
func (s *UserService) UpdateProfile(ctx context.Context, userID uuid.UUID, req *entity.UpdateProfileRequest) (*entity.User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, err := s.userRepo.Update(ctx, userID, req)
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	if user == nil {
		return nil, entity.ErrUserNotFound
	}
	return user, nil
}

// Coordinates - точка пользователя для сортировки по расстоянию
func (s *UserService) Coordinates(ctx context.Context, userID uuid.UUID) (*entity.Coordinates, error) {
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	c, ok := user.Coordinates()
	if !ok {
		return nil, nil
	}
	return &c, nil
}

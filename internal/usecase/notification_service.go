package usecase

import (
	"context"
	"fmt"

	"github.com/St1cky1/entraide-service/internal/entity"
	"github.com/St1cky1/entraide-service/internal/repository"
	"github.com/google/uuid"
)

type NotificationService struct {
	notificationRepo repository.INotificationRepository
}

func NewNotificationService(notificationRepo repository.INotificationRepository) *NotificationService {
	return &NotificationService{
		notificationRepo: notificationRepo,
	}
}

// ListFor - уведомления получателя, новые первыми
func (s *NotificationService) ListFor(ctx context.Context, userID uuid.UUID) ([]entity.Notification, error) {
	list, err := s.notificationRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	if list == nil {
		list = []entity.Notification{}
	}
	return list, nil
}

// MarkRead идемпотентна; отметить можно только свое уведомление
func (s *NotificationService) MarkRead(ctx context.Context, actor entity.Actor, notificationID uuid.UUID) error {
	n, err := s.notificationRepo.GetById(ctx, notificationID)
	if err != nil {
		return fmt.Errorf("failed to get notification: %w", err)
	}
	if n == nil {
		return entity.ErrNotificationNotFound
	}
	if n.UserID != actor.UserID {
		return entity.ErrForbidden
	}
	if n.IsRead {
		return nil
	}

	return s.notificationRepo.MarkRead(ctx, notificationID)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	changed, err := s.notificationRepo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return changed, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	count, err := s.notificationRepo.CountUnread(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return count, nil
}

package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const pointsKeyPrefix = "helper_points:"

// CachedPointsRepository - cache-aside поверх IPointsRepository.
// Ошибки redis не ломают чтение, источник правды - next.
type CachedPointsRepository struct {
	next  IPointsRepository
	redis *redis.Client
	ttl   time.Duration
}

func NewCachedPointsRepository(next IPointsRepository, client *redis.Client, ttl time.Duration) *CachedPointsRepository {
	return &CachedPointsRepository{
		next:  next,
		redis: client,
		ttl:   ttl,
	}
}

func (r *CachedPointsRepository) Get(ctx context.Context, helperID uuid.UUID) (int, error) {
	key := pointsKeyPrefix + helperID.String()

	points, err := r.redis.Get(ctx, key).Int()
	if err == nil {
		return points, nil
	}
	if !errors.Is(err, redis.Nil) {
		log.Warn().Err(err).Str("key", key).Msg("points cache get failed")
	}

	points, err = r.next.Get(ctx, helperID)
	if err != nil {
		return 0, err
	}

	if err := r.redis.Set(ctx, key, points, r.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("points cache set failed")
	}
	return points, nil
}

// Increment инвалидирует ключ после коммита, новое значение не кешируется
func (r *CachedPointsRepository) Increment(ctx context.Context, helperID uuid.UUID, delta int) (int, error) {
	points, err := r.next.Increment(ctx, helperID, delta)
	if err != nil {
		return 0, err
	}

	AfterCommit(ctx, func(ctx context.Context) {
		key := pointsKeyPrefix + helperID.String()
		if err := r.redis.Del(context.WithoutCancel(ctx), key).Err(); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("points cache invalidation failed")
		}
	})
	return points, nil
}

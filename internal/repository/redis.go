package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"localhire/internal/config"
	"localhire/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	ratingKeyPrefix    = "rating:"
	rateLimitKeyPrefix = "rate_limit:"

	fieldTotalRating  = "totalRating"
	fieldTotalReviews = "totalReviews"
	fieldUpdatedAt    = "updatedAt"
)

func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func Ping(ctx context.Context, client *redis.Client) error {
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}

// RedisRatingStore keeps one hash per contractor with the running totals.
type RedisRatingStore struct {
	client *redis.Client
}

func NewRedisRatingStore(client *redis.Client) *RedisRatingStore {
	return &RedisRatingStore{client: client}
}

func ratingKey(contractorID string) string {
	return ratingKeyPrefix + contractorID
}

func (r *RedisRatingStore) GetRating(ctx context.Context, contractorID string) (*models.Rating, error) {
	fields, err := r.client.HGetAll(ctx, ratingKey(contractorID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get rating from redis: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return parseRating(contractorID, fields)
}

func parseRating(contractorID string, fields map[string]string) (*models.Rating, error) {
	rating := &models.Rating{ContractorID: contractorID}
	var err error
	if v, ok := fields[fieldTotalRating]; ok {
		if rating.TotalRating, err = strconv.ParseInt(v, 10, 64); err != nil {
			return nil, fmt.Errorf("invalid %s for %s: %w", fieldTotalRating, contractorID, err)
		}
	}
	if v, ok := fields[fieldTotalReviews]; ok {
		if rating.TotalReviews, err = strconv.ParseInt(v, 10, 64); err != nil {
			return nil, fmt.Errorf("invalid %s for %s: %w", fieldTotalReviews, contractorID, err)
		}
	}
	if v, ok := fields[fieldUpdatedAt]; ok {
		if ts, err := strconv.ParseInt(v, 10, 64); err == nil {
			rating.UpdatedAt = time.Unix(ts, 0).UTC()
		}
	}
	return rating, nil
}

func (r *RedisRatingStore) SetRating(ctx context.Context, rating *models.Rating) error {
	rating.UpdatedAt = time.Now().UTC()
	err := r.client.HSet(ctx, ratingKey(rating.ContractorID),
		fieldTotalRating, rating.TotalRating,
		fieldTotalReviews, rating.TotalReviews,
		fieldUpdatedAt, rating.UpdatedAt.Unix(),
	).Err()
	if err != nil {
		return fmt.Errorf("failed to set rating in redis: %w", err)
	}
	return nil
}

// IncrementRating bumps both counters in one MULTI block.
func (r *RedisRatingStore) IncrementRating(ctx context.Context, contractorID string, stars int) (*models.Rating, error) {
	key := ratingKey(contractorID)
	now := time.Now().UTC()

	var total, reviews *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		total = pipe.HIncrBy(ctx, key, fieldTotalRating, int64(stars))
		reviews = pipe.HIncrBy(ctx, key, fieldTotalReviews, 1)
		pipe.HSet(ctx, key, fieldUpdatedAt, now.Unix())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to increment rating in redis: %w", err)
	}

	return &models.Rating{
		ContractorID: contractorID,
		TotalRating:  total.Val(),
		TotalReviews: reviews.Val(),
		UpdatedAt:    time.Unix(now.Unix(), 0).UTC(),
	}, nil
}

// RedisLimiter is a fixed-window counter per key.
type RedisLimiter struct {
	client *redis.Client
}

func NewRedisLimiter(client *redis.Client) *RedisLimiter {
	return &RedisLimiter{client: client}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if l.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	k := rateLimitKeyPrefix + key
	count, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, k, window).Err(); err != nil {
			return false, fmt.Errorf("failed to set rate limit expiry: %w", err)
		}
	}
	return count <= int64(limit), nil
}

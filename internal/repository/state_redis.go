package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"TradeDesk/internal/domain/models"
	domrepo "TradeDesk/internal/domain/repository"
	"TradeDesk/pkg/cache"
	"TradeDesk/pkg/util"
)

const (
	keyBotMetrics      = "bot:metrics"
	keyOrdersPrefix    = "orders:"
	keyRecommendations = "recommendations"

	maxRecommendations = 200
)

// RedisStateStore keeps bot metrics, per-day order counters, and pending
// recommendations in Redis so they survive process restarts.
type RedisStateStore struct {
	cache *cache.RedisCache
	loc   *time.Location
}

func NewRedisStateStore(c *cache.RedisCache, loc *time.Location) *RedisStateStore {
	if loc == nil {
		loc = time.Local
	}
	return &RedisStateStore{cache: c, loc: loc}
}

func (s *RedisStateStore) UpdateBotMetrics(ctx context.Context, m *models.BotMetrics) error {
	return s.cache.Set(ctx, keyBotMetrics, m, 0)
}

func (s *RedisStateStore) GetBotMetrics(ctx context.Context) (*models.BotMetrics, error) {
	var m models.BotMetrics
	err := s.cache.Get(ctx, keyBotMetrics, &m)
	if errors.Is(err, cache.ErrCacheMiss) {
		return &models.BotMetrics{}, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// IncrOrdersForDay bumps the counter for the given day. The key expires at
// the next midnight so stale days never linger.
func (s *RedisStateStore) IncrOrdersForDay(ctx context.Context, day string) (int64, error) {
	key := keyOrdersPrefix + day
	n, err := s.cache.Increment(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("incr %s: %w", key, err)
	}
	if n == 1 {
		if _, err := s.cache.Expire(ctx, key, util.UntilMidnight(time.Now(), s.loc)); err != nil {
			return n, fmt.Errorf("expire %s: %w", key, err)
		}
	}
	return n, nil
}

func (s *RedisStateStore) OrdersForDay(ctx context.Context, day string) (int64, error) {
	var raw string
	err := s.cache.Get(ctx, keyOrdersPrefix+day, &raw)
	if errors.Is(err, cache.ErrCacheMiss) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return int64(util.ParseIntDefault(raw, 0)), nil
}

func (s *RedisStateStore) PushRecommendation(ctx context.Context, r *models.Recommendation) error {
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal recommendation: %w", err)
	}
	client := s.cache.Client()
	key := s.cache.Key(keyRecommendations)
	pipe := client.TxPipeline()
	pipe.LPush(ctx, key, b)
	pipe.LTrim(ctx, key, 0, maxRecommendations-1)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStateStore) Recommendations(ctx context.Context, limit int) ([]*models.Recommendation, error) {
	if limit <= 0 || limit > maxRecommendations {
		limit = maxRecommendations
	}
	raws, err := s.cache.Client().LRange(ctx, s.cache.Key(keyRecommendations), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*models.Recommendation, 0, len(raws))
	for _, raw := range raws {
		var r models.Recommendation
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			continue
		}
		out = append(out, &r)
	}
	return out, nil
}

func (s *RedisStateStore) Close() error {
	return s.cache.Close()
}

var _ domrepo.StateStore = (*RedisStateStore)(nil)

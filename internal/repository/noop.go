package repository

import (
	"context"
	"sync"

	"TradeDesk/internal/domain/models"
	domrepo "TradeDesk/internal/domain/repository"
)

// NoopActivityLog discards entries, used when ClickHouse is disabled.
type NoopActivityLog struct{}

func (NoopActivityLog) Append(context.Context, *models.ActivityEntry) error { return nil }
func (NoopActivityLog) Close() error                                        { return nil }

// NoopPublisher discards events, used when Kafka is disabled.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, *models.ActivityEntry) error { return nil }
func (NoopPublisher) Close() error                                         { return nil }

// MemoryStateStore is the in-process fallback when Redis is disabled.
// Counters and recommendations reset with the process.
type MemoryStateStore struct {
	mu      sync.Mutex
	metrics models.BotMetrics
	orders  map[string]int64
	recs    []*models.Recommendation
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{orders: make(map[string]int64)}
}

func (s *MemoryStateStore) UpdateBotMetrics(_ context.Context, m *models.BotMetrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = *m
	return nil
}

func (s *MemoryStateStore) GetBotMetrics(context.Context) (*models.BotMetrics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.metrics
	return &m, nil
}

func (s *MemoryStateStore) IncrOrdersForDay(_ context.Context, day string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[day]++
	return s.orders[day], nil
}

func (s *MemoryStateStore) OrdersForDay(_ context.Context, day string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orders[day], nil
}

func (s *MemoryStateStore) PushRecommendation(_ context.Context, r *models.Recommendation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = append([]*models.Recommendation{r}, s.recs...)
	if len(s.recs) > maxRecommendations {
		s.recs = s.recs[:maxRecommendations]
	}
	return nil
}

func (s *MemoryStateStore) Recommendations(_ context.Context, limit int) ([]*models.Recommendation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 || limit > len(s.recs) {
		limit = len(s.recs)
	}
	out := make([]*models.Recommendation, limit)
	copy(out, s.recs[:limit])
	return out, nil
}

func (s *MemoryStateStore) Close() error { return nil }

var (
	_ domrepo.ActivityLog = NoopActivityLog{}
	_ domrepo.Publisher   = NoopPublisher{}
	_ domrepo.StateStore  = (*MemoryStateStore)(nil)
)

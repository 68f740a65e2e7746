package repository

import (
	"context"

	"TradeDesk/internal/domain/models"
)

// ActivityLog persists per-session activity entries.
type ActivityLog interface {
	Append(ctx context.Context, e *models.ActivityEntry) error
	Close() error
}

// StateStore keeps cumulative bot metrics, per-day order counters, and
// pending recommendations across restarts.
type StateStore interface {
	UpdateBotMetrics(ctx context.Context, m *models.BotMetrics) error
	GetBotMetrics(ctx context.Context) (*models.BotMetrics, error)
	IncrOrdersForDay(ctx context.Context, day string) (int64, error)
	OrdersForDay(ctx context.Context, day string) (int64, error)
	PushRecommendation(ctx context.Context, r *models.Recommendation) error
	Recommendations(ctx context.Context, limit int) ([]*models.Recommendation, error)
	Close() error
}

// Publisher streams activity entries to the event backbone.
type Publisher interface {
	Publish(ctx context.Context, e *models.ActivityEntry) error
	Close() error
}

// Metrics records operational metrics.
type Metrics interface {
	RecordScan(outcome string)
	RecordConsensus(symbol, action string)
	RecordOrder(symbol, status string)
	RecordRiskRejection(reason string)
	RecordError(kind string)
	RecordQueueDepth(n int)
	RecordSessionRunning(running bool)
	RecordLatency(op string, seconds float64)
}

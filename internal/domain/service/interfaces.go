package service

import (
	"context"
	"time"

	"TradeDesk/internal/domain/models"
)

// StrategyProducer is the narrow contract every signal producer implements.
// Implementations are opaque to the orchestration core.
type StrategyProducer interface {
	ID() string
	Evaluate(ctx context.Context, symbol string, md *models.MarketData) (*models.StrategySignal, error)
}

// Broker is the request/response surface of the brokerage.
type Broker interface {
	GetQuote(ctx context.Context, symbol string) (*models.Quote, error)
	GetAccount(ctx context.Context) (*models.Account, error)
	SubmitOrder(ctx context.Context, o *models.Order) (*models.OrderReceipt, error)
}

// MarketCalendar answers whether the market is open at a given instant.
type MarketCalendar interface {
	IsOpen(t time.Time) bool
}

// MarketStream is a live quote feed.
type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Quote, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

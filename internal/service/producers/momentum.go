package producers

import (
	"context"
	"fmt"

	"TradeDesk/internal/domain/models"
	domsvc "TradeDesk/internal/domain/service"
)

const minHistory = 10

// Momentum signals in the direction of the short-over-long moving average
// crossover. Confidence scales with the spread between the two averages.
type Momentum struct {
	id        string
	shortSpan int
	longSpan  int
}

func NewMomentum(id string) *Momentum {
	return &Momentum{id: id, shortSpan: 5, longSpan: 20}
}

func (m *Momentum) ID() string { return m.id }

func (m *Momentum) Evaluate(_ context.Context, symbol string, md *models.MarketData) (*models.StrategySignal, error) {
	if md == nil || len(md.History) < minHistory {
		return nil, fmt.Errorf("producer %s: insufficient history for %s", m.id, symbol)
	}

	short := sma(md.History, m.shortSpan)
	long := sma(md.History, m.longSpan)
	if long == 0 {
		return nil, fmt.Errorf("producer %s: degenerate price series for %s", m.id, symbol)
	}

	spread := (short - long) / long

	action := models.ActionHold
	switch {
	case spread > 0.002:
		action = models.ActionBuy
	case spread < -0.002:
		action = models.ActionSell
	}

	// 0.2% spread maps to ~0.55 confidence, 2% to capped 0.95.
	conf := 0.5 + clamp(abs(spread)*25, 0, 0.45)

	return &models.StrategySignal{
		StrategyID: m.id,
		Symbol:     symbol,
		Action:     action,
		Confidence: conf,
	}, nil
}

// sma averages the last n points, or the whole series when shorter.
func sma(prices []float64, n int) float64 {
	if len(prices) < n {
		n = len(prices)
	}
	if n == 0 {
		return 0
	}
	var sum float64
	for _, p := range prices[len(prices)-n:] {
		sum += p
	}
	return sum / float64(n)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

var _ domsvc.StrategyProducer = (*Momentum)(nil)

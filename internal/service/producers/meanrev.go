package producers

import (
	"context"
	"fmt"
	"math"

	"TradeDesk/internal/domain/models"
	domsvc "TradeDesk/internal/domain/service"
)

// MeanReversion fades moves that stretch too far from the rolling mean,
// measured in standard deviations (a z-score). Beyond two sigmas it bets
// on a snap back toward the mean.
type MeanReversion struct {
	id        string
	window    int
	threshold float64
}

func NewMeanReversion(id string) *MeanReversion {
	return &MeanReversion{id: id, window: 20, threshold: 2.0}
}

func (m *MeanReversion) ID() string { return m.id }

func (m *MeanReversion) Evaluate(_ context.Context, symbol string, md *models.MarketData) (*models.StrategySignal, error) {
	if md == nil || len(md.History) < minHistory {
		return nil, fmt.Errorf("producer %s: insufficient history for %s", m.id, symbol)
	}

	window := md.History
	if len(window) > m.window {
		window = window[len(window)-m.window:]
	}

	mean := sma(window, len(window))
	sd := stddev(window, mean)
	if sd == 0 {
		// Flat series, nothing to revert.
		return &models.StrategySignal{
			StrategyID: m.id,
			Symbol:     symbol,
			Action:     models.ActionHold,
			Confidence: 0.5,
		}, nil
	}

	last := window[len(window)-1]
	z := (last - mean) / sd

	action := models.ActionHold
	switch {
	case z > m.threshold:
		action = models.ActionSell
	case z < -m.threshold:
		action = models.ActionBuy
	}

	conf := 0.5 + clamp((abs(z)-m.threshold)*0.15, 0, 0.45)
	if action == models.ActionHold {
		conf = 0.5
	}

	return &models.StrategySignal{
		StrategyID: m.id,
		Symbol:     symbol,
		Action:     action,
		Confidence: conf,
	}, nil
}

func stddev(prices []float64, mean float64) float64 {
	if len(prices) < 2 {
		return 0
	}
	var sum float64
	for _, p := range prices {
		d := p - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(prices)-1))
}

var _ domsvc.StrategyProducer = (*MeanReversion)(nil)

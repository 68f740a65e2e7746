package consensus

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradeDesk/internal/domain/models"
	"TradeDesk/pkg/config"
)

type fakeProducer struct {
	id     string
	signal *models.StrategySignal
	err    error
	delay  time.Duration
	calls  int
}

func (f *fakeProducer) ID() string { return f.id }

func (f *fakeProducer) Evaluate(ctx context.Context, symbol string, md *models.MarketData) (*models.StrategySignal, error) {
	f.calls++
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	s := *f.signal
	s.Symbol = symbol
	return &s, nil
}

func producer(id string, weight float64, action models.Action, conf float64, perf *models.PerformanceSnapshot) Producer {
	return Producer{
		Config: config.StrategyConfig{ID: id, Name: id, Enabled: true, Weight: weight},
		Impl: &fakeProducer{id: id, signal: &models.StrategySignal{
			StrategyID: id, Action: action, Confidence: conf, Performance: perf,
		}},
	}
}

func TestTieBreakPrefersHold(t *testing.T) {
	e := NewEngine([]Producer{
		producer("a", 1, models.ActionBuy, 0.9, nil),
		producer("b", 1, models.ActionSell, 0.9, nil),
		producer("c", 1, models.ActionHold, 0.9, nil),
	}, time.Second, nil)

	res, err := e.Evaluate(context.Background(), "AAPL", &models.MarketData{})
	require.NoError(t, err)
	assert.Equal(t, models.ActionHold, res.MajorityAction)
	assert.InDelta(t, 1.0/3.0, res.AgreementRatio, 1e-9)
	assert.Equal(t, models.VoteCounts{Buy: 1, Sell: 1, Hold: 1}, res.Votes)
}

func TestMajorityWins(t *testing.T) {
	e := NewEngine([]Producer{
		producer("a", 1, models.ActionBuy, 0.8, nil),
		producer("b", 1, models.ActionBuy, 0.7, nil),
		producer("c", 1, models.ActionSell, 0.9, nil),
	}, time.Second, nil)

	res, err := e.Evaluate(context.Background(), "AAPL", &models.MarketData{})
	require.NoError(t, err)
	assert.Equal(t, models.ActionBuy, res.MajorityAction)
	assert.InDelta(t, 2.0/3.0, res.AgreementRatio, 1e-9)
}

func TestFailedProducerExcluded(t *testing.T) {
	failing := Producer{
		Config: config.StrategyConfig{ID: "bad", Enabled: true, Weight: 5},
		Impl:   &fakeProducer{id: "bad", err: errors.New("model unavailable")},
	}
	e := NewEngine([]Producer{
		producer("a", 1, models.ActionBuy, 0.8, nil),
		failing,
	}, time.Second, nil)

	res, err := e.Evaluate(context.Background(), "AAPL", &models.MarketData{})
	require.NoError(t, err)
	assert.Len(t, res.Signals, 1)
	assert.Equal(t, []string{"bad"}, res.Excluded)
	assert.Equal(t, models.ActionBuy, res.MajorityAction)
	assert.InDelta(t, 1.0, res.AgreementRatio, 1e-9)
}

func TestSlowProducerTimesOut(t *testing.T) {
	slow := Producer{
		Config: config.StrategyConfig{ID: "slow", Enabled: true, Weight: 1},
		Impl: &fakeProducer{id: "slow", delay: 500 * time.Millisecond,
			signal: &models.StrategySignal{StrategyID: "slow", Action: models.ActionSell, Confidence: 1}},
	}
	e := NewEngine([]Producer{
		producer("a", 1, models.ActionBuy, 0.8, nil),
		slow,
	}, 50*time.Millisecond, nil)

	res, err := e.Evaluate(context.Background(), "AAPL", &models.MarketData{})
	require.NoError(t, err)
	assert.Equal(t, []string{"slow"}, res.Excluded)
}

func TestAllProducersFailed(t *testing.T) {
	e := NewEngine([]Producer{{
		Config: config.StrategyConfig{ID: "bad", Enabled: true, Weight: 1},
		Impl:   &fakeProducer{id: "bad", err: errors.New("boom")},
	}}, time.Second, nil)

	_, err := e.Evaluate(context.Background(), "AAPL", &models.MarketData{})
	assert.Error(t, err)
}

func TestDisabledProducerNotCalled(t *testing.T) {
	disabled := &fakeProducer{id: "off", signal: &models.StrategySignal{
		StrategyID: "off", Action: models.ActionSell, Confidence: 1,
	}}
	e := NewEngine([]Producer{
		producer("a", 1, models.ActionBuy, 0.8, nil),
		{Config: config.StrategyConfig{ID: "off", Enabled: false, Weight: 1}, Impl: disabled},
	}, time.Second, nil)

	_, err := e.Evaluate(context.Background(), "AAPL", &models.MarketData{})
	require.NoError(t, err)
	assert.Zero(t, disabled.calls)
}

func TestPerformanceWeightTipsTheScale(t *testing.T) {
	// Equal config weights; the seller has a strong track record, the two
	// buyers have poor ones, so the weighted action diverges from majority.
	e := NewEngine([]Producer{
		producer("b1", 1, models.ActionBuy, 0.6, &models.PerformanceSnapshot{WinRate: 0.1, TotalTrades: 50}),
		producer("b2", 1, models.ActionBuy, 0.6, &models.PerformanceSnapshot{WinRate: 0.1, TotalTrades: 50}),
		producer("s", 1, models.ActionSell, 0.9, &models.PerformanceSnapshot{WinRate: 0.9, TotalTrades: 50}),
	}, time.Second, nil)

	res, err := e.Evaluate(context.Background(), "AAPL", &models.MarketData{})
	require.NoError(t, err)
	assert.Equal(t, models.ActionBuy, res.MajorityAction)
	assert.Equal(t, models.ActionSell, res.Weighted.Action)
}

func TestWeightedConfidenceBounded(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	actions := []models.Action{models.ActionBuy, models.ActionSell, models.ActionHold}

	for i := 0; i < 100; i++ {
		n := 1 + rng.Intn(6)
		ps := make([]Producer, 0, n)
		for j := 0; j < n; j++ {
			var perf *models.PerformanceSnapshot
			if rng.Intn(2) == 0 {
				perf = &models.PerformanceSnapshot{WinRate: rng.Float64(), TotalTrades: 1 + rng.Intn(100)}
			}
			ps = append(ps, producer(
				string(rune('a'+j)), rng.Float64()*10+0.01,
				actions[rng.Intn(len(actions))], rng.Float64(), perf))
		}
		e := NewEngine(ps, time.Second, nil)
		res, err := e.Evaluate(context.Background(), "AAPL", &models.MarketData{})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, res.Weighted.Confidence, 0.0)
		assert.LessOrEqual(t, res.Weighted.Confidence, 1.0)
	}
}

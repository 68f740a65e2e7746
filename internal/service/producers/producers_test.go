package producers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradeDesk/internal/domain/models"
	"TradeDesk/pkg/config"
)

func series(start, step float64, n int) []float64 {
	out := make([]float64, n)
	v := start
	for i := range out {
		out[i] = v
		v += step
	}
	return out
}

func TestMomentumUptrend(t *testing.T) {
	p := NewMomentum("momentum")
	md := &models.MarketData{History: series(100, 0.5, 30)}

	sig, err := p.Evaluate(context.Background(), "AAPL", md)
	require.NoError(t, err)

	assert.Equal(t, models.ActionBuy, sig.Action)
	assert.Greater(t, sig.Confidence, 0.5)
	assert.LessOrEqual(t, sig.Confidence, 0.95)
}

func TestMomentumDowntrend(t *testing.T) {
	p := NewMomentum("momentum")
	md := &models.MarketData{History: series(130, -0.5, 30)}

	sig, err := p.Evaluate(context.Background(), "AAPL", md)
	require.NoError(t, err)
	assert.Equal(t, models.ActionSell, sig.Action)
}

func TestMomentumFlatHolds(t *testing.T) {
	p := NewMomentum("momentum")
	md := &models.MarketData{History: series(100, 0, 30)}

	sig, err := p.Evaluate(context.Background(), "AAPL", md)
	require.NoError(t, err)
	assert.Equal(t, models.ActionHold, sig.Action)
}

func TestMomentumInsufficientHistory(t *testing.T) {
	p := NewMomentum("momentum")
	md := &models.MarketData{History: series(100, 1, 5)}

	_, err := p.Evaluate(context.Background(), "AAPL", md)
	assert.Error(t, err)
}

func TestMeanReversionFadesSpike(t *testing.T) {
	p := NewMeanReversion("meanrev")
	hist := series(100, 0.1, 19)
	hist = append(hist, 140) // far above the rolling mean

	sig, err := p.Evaluate(context.Background(), "TSLA", &models.MarketData{History: hist})
	require.NoError(t, err)
	assert.Equal(t, models.ActionSell, sig.Action)
}

func TestMeanReversionBuysDip(t *testing.T) {
	p := NewMeanReversion("meanrev")
	hist := series(100, 0.1, 19)
	hist = append(hist, 60)

	sig, err := p.Evaluate(context.Background(), "TSLA", &models.MarketData{History: hist})
	require.NoError(t, err)
	assert.Equal(t, models.ActionBuy, sig.Action)
}

func TestMeanReversionFlatSeriesHolds(t *testing.T) {
	p := NewMeanReversion("meanrev")
	sig, err := p.Evaluate(context.Background(), "TSLA", &models.MarketData{History: series(50, 0, 25)})
	require.NoError(t, err)
	assert.Equal(t, models.ActionHold, sig.Action)
	assert.InDelta(t, 0.5, sig.Confidence, 1e-9)
}

func TestBuildMapsKnownAndRemote(t *testing.T) {
	cfgs := []config.StrategyConfig{
		{ID: "momentum", Name: "Momentum", Enabled: true, Weight: 1},
		{ID: "mean-reversion", Name: "Mean Reversion", Enabled: true, Weight: 1},
		{ID: "ml-alpha", Name: "ML Alpha", Enabled: true, Weight: 2},
	}

	ps := Build(cfgs, "http://localhost:9000", time.Second)
	require.Len(t, ps, 3)

	assert.IsType(t, &Momentum{}, ps[0].Impl)
	assert.IsType(t, &MeanReversion{}, ps[1].Impl)
	assert.IsType(t, &Remote{}, ps[2].Impl)
	assert.Equal(t, "ml-alpha", ps[2].Impl.ID())
}

package risk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradeDesk/internal/domain/models"
	"TradeDesk/pkg/config"
)

func defaultLimits() config.RiskLimits {
	return config.RiskLimits{
		MaxPositionSize:    25,
		MaxDailyLoss:       500,
		MaxDrawdown:        15,
		MinConfidence:      0.6,
		MinRiskRewardRatio: 1.5,
		CorrelationLimit:   80,
		StopLossPercent:    2,
		TakeProfitPercent:  6,
	}
}

func TestAssessBaselineScenario(t *testing.T) {
	e := NewEngine(defaultLimits())
	a := e.Assess(Input{
		Symbol:         "AAPL",
		Action:         models.ActionBuy,
		Quantity:       10,
		EntryPrice:     100,
		StopLoss:       98,
		TargetPrice:    106,
		AccountBalance: 10000,
		Confidence:     0.9,
	})

	assert.InDelta(t, 20, a.RiskAmount, 1e-9)
	assert.InDelta(t, 60, a.PotentialReward, 1e-9)
	assert.InDelta(t, 3.0, a.RiskRewardRatio, 1e-9)
	assert.InDelta(t, 10, a.PositionSizePercent, 1e-9)
	assert.InDelta(t, 0.2, a.AccountRiskPercent, 1e-9)
	assert.InDelta(t, 25.6, a.OverallRiskScore, 1e-9)
	assert.Equal(t, models.RiskLow, a.RiskLevel)
	assert.Empty(t, a.Warnings)
	assert.True(t, a.Approved)
}

func TestAssessOversizedPosition(t *testing.T) {
	e := NewEngine(defaultLimits())
	a := e.Assess(Input{
		Symbol:         "AAPL",
		Action:         models.ActionBuy,
		Quantity:       300,
		EntryPrice:     100,
		StopLoss:       98,
		TargetPrice:    106,
		AccountBalance: 10000,
		Confidence:     0.9,
	})

	assert.InDelta(t, 300, a.PositionSizePercent, 1e-9)
	require.NotEmpty(t, a.Warnings)
	assert.Contains(t, a.Warnings[0], "above 20%")
	assert.NotEqual(t, models.RiskLow, a.RiskLevel)
	// 300% of the account also breaches the hard position-size limit.
	assert.False(t, a.Approved)
}

func TestAssessZeroRiskRejected(t *testing.T) {
	e := NewEngine(defaultLimits())
	a := e.Assess(Input{
		Symbol:         "AAPL",
		Action:         models.ActionBuy,
		Quantity:       10,
		EntryPrice:     100,
		StopLoss:       100, // riskPerShare == 0
		TargetPrice:    106,
		AccountBalance: 10000,
	})

	assert.False(t, a.Approved)
	require.NotEmpty(t, a.RejectionReasons)
	assert.Contains(t, a.RejectionReasons[0], "undefined")
}

func TestAssessSellDirection(t *testing.T) {
	e := NewEngine(defaultLimits())
	a := e.Assess(Input{
		Symbol:         "AAPL",
		Action:         models.ActionSell,
		Quantity:       10,
		EntryPrice:     100,
		StopLoss:       102,
		TargetPrice:    94,
		AccountBalance: 10000,
		Confidence:     0.9,
	})

	assert.InDelta(t, 20, a.RiskAmount, 1e-9)
	assert.InDelta(t, 60, a.PotentialReward, 1e-9)
	assert.InDelta(t, 3.0, a.RiskRewardRatio, 1e-9)
	assert.True(t, a.Approved)
}

func TestScoreMonotoneInPositionSize(t *testing.T) {
	prev := -1.0
	for pos := 0.0; pos <= 40; pos += 0.5 {
		s := score(pos, 1.0, 2.0)
		require.GreaterOrEqual(t, s, prev, "score decreased at positionSizePercent=%v", pos)
		prev = s
	}
}

func TestLimitRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Input)
		want   string
	}{
		{"low confidence", func(in *Input) { in.Confidence = 0.3 }, "confidence"},
		{"daily loss", func(in *Input) { in.DailyPnL = -600 }, "daily loss"},
		{"drawdown", func(in *Input) { in.DrawdownPercent = 20 }, "drawdown"},
		{"exposure", func(in *Input) { in.ExposurePercent = 75 }, "exposure"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(defaultLimits())
			in := Input{
				Symbol:         "MSFT",
				Action:         models.ActionBuy,
				Quantity:       10,
				EntryPrice:     100,
				StopLoss:       98,
				TargetPrice:    106,
				AccountBalance: 10000,
				Confidence:     0.9,
			}
			tt.mutate(&in)
			a := e.Assess(in)
			assert.False(t, a.Approved)
			require.NotEmpty(t, a.RejectionReasons)
			found := false
			for _, r := range a.RejectionReasons {
				if strings.Contains(r, tt.want) {
					found = true
				}
			}
			assert.True(t, found, "reasons %v missing %q", a.RejectionReasons, tt.want)
		})
	}
}

func TestDeriveLevels(t *testing.T) {
	e := NewEngine(defaultLimits())

	stop, target := e.DeriveLevels(models.ActionBuy, 100)
	assert.InDelta(t, 98, stop, 1e-9)
	assert.InDelta(t, 106, target, 1e-9)

	stop, target = e.DeriveLevels(models.ActionSell, 100)
	assert.InDelta(t, 102, stop, 1e-9)
	assert.InDelta(t, 94, target, 1e-9)
}

func TestSizePosition(t *testing.T) {
	// 10% of 10000 at price 99 -> 10 whole shares
	assert.InDelta(t, 10, SizePosition(10000, 99, 10), 1e-9)
	assert.InDelta(t, 0, SizePosition(10000, 0, 10), 1e-9)
	assert.InDelta(t, 0, SizePosition(0, 99, 10), 1e-9)
}

package risk

import (
	"fmt"
	"math"
	"time"

	"TradeDesk/internal/domain/models"
	"TradeDesk/pkg/config"
)

// Engine performs pure risk calculations and enforces configured limits.
// It never talks to the outside world; callers supply every input.
type Engine struct {
	limits config.RiskLimits
}

// Input is one candidate trade plus the account context it would hit.
type Input struct {
	Symbol         string
	Action         models.Action
	Quantity       float64
	EntryPrice     float64
	StopLoss       float64
	TargetPrice    float64
	AccountBalance float64

	// Context for limit enforcement; zero values disable the related checks.
	Confidence      float64 // consensus confidence backing the trade
	DailyPnL        float64 // negative while losing
	DrawdownPercent float64 // current peak-to-trough decline
	ExposurePercent float64 // open-position value as percent of equity
}

func NewEngine(limits config.RiskLimits) *Engine {
	return &Engine{limits: limits}
}

// Limits returns the configured hard limits.
func (e *Engine) Limits() config.RiskLimits { return e.limits }

// DeriveLevels fills stop-loss and target from the configured percents when
// the caller did not supply explicit levels.
func (e *Engine) DeriveLevels(action models.Action, entry float64) (stop, target float64) {
	sl := e.limits.StopLossPercent / 100
	tp := e.limits.TakeProfitPercent / 100
	if action == models.ActionSell {
		return entry * (1 + sl), entry * (1 - tp)
	}
	return entry * (1 - sl), entry * (1 + tp)
}

// SizePosition converts an order-size percent of the account into whole
// shares at the given entry price.
func SizePosition(balance, entry, sizePercent float64) float64 {
	if entry <= 0 || balance <= 0 || sizePercent <= 0 {
		return 0
	}
	return math.Floor(balance * sizePercent / 100 / entry)
}

// Assess computes the full risk report for one candidate. A breached limit
// rejects the candidate; soft thresholds only append warnings.
func (e *Engine) Assess(in Input) *models.RiskAssessment {
	a := &models.RiskAssessment{
		Symbol:      in.Symbol,
		Action:      in.Action,
		Quantity:    in.Quantity,
		EntryPrice:  in.EntryPrice,
		StopLoss:    in.StopLoss,
		TargetPrice: in.TargetPrice,
		Timestamp:   time.Now(),
	}

	riskPerShare := in.EntryPrice - in.StopLoss
	rewardPerShare := in.TargetPrice - in.EntryPrice
	if in.Action == models.ActionSell {
		riskPerShare = in.StopLoss - in.EntryPrice
		rewardPerShare = in.EntryPrice - in.TargetPrice
	}

	a.RiskAmount = math.Abs(riskPerShare * in.Quantity)
	a.PotentialReward = math.Abs(rewardPerShare * in.Quantity)

	// Undefined ratio is a rejection condition, not a divide-by-zero fault.
	if a.RiskAmount == 0 {
		a.Approved = false
		a.RiskLevel = models.RiskExtreme
		a.RejectionReasons = append(a.RejectionReasons,
			"risk amount is zero: risk/reward ratio undefined")
		return a
	}
	a.RiskRewardRatio = a.PotentialReward / a.RiskAmount

	if in.AccountBalance > 0 {
		a.PositionSizePercent = in.EntryPrice * in.Quantity / in.AccountBalance * 100
		a.AccountRiskPercent = a.RiskAmount / in.AccountBalance * 100
	}

	a.OverallRiskScore = score(a.PositionSizePercent, a.AccountRiskPercent, a.RiskRewardRatio)
	a.RiskLevel = level(a.OverallRiskScore)

	if a.PositionSizePercent > 20 {
		a.Warnings = append(a.Warnings,
			fmt.Sprintf("position is %.1f%% of account (above 20%%)", a.PositionSizePercent))
	}
	if a.AccountRiskPercent > 2 {
		a.Warnings = append(a.Warnings,
			fmt.Sprintf("trade risks %.2f%% of account (above 2%%)", a.AccountRiskPercent))
	}
	if a.RiskRewardRatio < 1.5 {
		a.Warnings = append(a.Warnings,
			fmt.Sprintf("risk/reward ratio %.2f is below 1.5", a.RiskRewardRatio))
	}
	if a.OverallRiskScore > 70 {
		a.Recommendations = append(a.Recommendations, "reduce position size")
	}

	a.RejectionReasons = e.checkLimits(a, in)
	a.Approved = len(a.RejectionReasons) == 0
	return a
}

// checkLimits enforces the configured hard limits.
func (e *Engine) checkLimits(a *models.RiskAssessment, in Input) []string {
	var reasons []string
	l := e.limits

	if in.Quantity <= 0 {
		reasons = append(reasons, "quantity must be positive")
	}
	if l.MaxPositionSize > 0 && a.PositionSizePercent > l.MaxPositionSize {
		reasons = append(reasons, fmt.Sprintf(
			"position size %.1f%% exceeds limit %.1f%%", a.PositionSizePercent, l.MaxPositionSize))
	}
	if l.MinRiskRewardRatio > 0 && a.RiskRewardRatio < l.MinRiskRewardRatio {
		reasons = append(reasons, fmt.Sprintf(
			"risk/reward ratio %.2f below minimum %.2f", a.RiskRewardRatio, l.MinRiskRewardRatio))
	}
	if l.MinConfidence > 0 && in.Confidence > 0 && in.Confidence < l.MinConfidence {
		reasons = append(reasons, fmt.Sprintf(
			"confidence %.2f below minimum %.2f", in.Confidence, l.MinConfidence))
	}
	if l.MaxDailyLoss > 0 && in.DailyPnL <= -l.MaxDailyLoss {
		reasons = append(reasons, fmt.Sprintf(
			"daily loss %.2f reached limit %.2f", -in.DailyPnL, l.MaxDailyLoss))
	}
	if l.MaxDrawdown > 0 && in.DrawdownPercent >= l.MaxDrawdown {
		reasons = append(reasons, fmt.Sprintf(
			"drawdown %.1f%% reached limit %.1f%%", in.DrawdownPercent, l.MaxDrawdown))
	}
	if l.CorrelationLimit > 0 && in.ExposurePercent+a.PositionSizePercent > l.CorrelationLimit {
		reasons = append(reasons, fmt.Sprintf(
			"combined exposure %.1f%% exceeds limit %.1f%%",
			in.ExposurePercent+a.PositionSizePercent, l.CorrelationLimit))
	}
	return reasons
}

// score is the weighted composite, capped at 100.
func score(posPct, acctPct, rr float64) float64 {
	s := math.Min(posPct*2, 30) + math.Min(acctPct*3, 30)
	if rr < 1.5 {
		s += 20
	}
	s += math.Max(0, 20-rr*5)
	return math.Min(s, 100)
}

func level(score float64) models.RiskLevel {
	switch {
	case score < 30:
		return models.RiskLow
	case score < 60:
		return models.RiskMedium
	case score < 85:
		return models.RiskHigh
	default:
		return models.RiskExtreme
	}
}

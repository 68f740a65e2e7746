package models

import "time"

// PerformanceSnapshot is a strategy's self-reported track record.
type PerformanceSnapshot struct {
	WinRate     float64 `json:"winRate"`
	TotalTrades int     `json:"totalTrades"`
	TotalPnL    float64 `json:"totalPnL"`
}

// StrategySignal is one producer's opinion for one symbol in one scan.
type StrategySignal struct {
	StrategyID  string               `json:"strategyId"`
	Symbol      string               `json:"symbol"`
	Action      Action               `json:"action"`
	Confidence  float64              `json:"confidence"`
	Performance *PerformanceSnapshot `json:"performance,omitempty"`
}

// VoteCounts tallies the per-action votes.
type VoteCounts struct {
	Buy  int `json:"buy"`
	Sell int `json:"sell"`
	Hold int `json:"hold"`
}

// WeightedSignal is the performance-weighted recommendation.
type WeightedSignal struct {
	Action     Action  `json:"action"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// ConsensusResult reconciles all counted strategy signals for a symbol.
type ConsensusResult struct {
	Symbol         string           `json:"symbol"`
	MajorityAction Action           `json:"majorityAction"`
	AgreementRatio float64          `json:"agreementRatio"`
	Votes          VoteCounts       `json:"voteCounts"`
	Weighted       WeightedSignal   `json:"weightedSignal"`
	Signals        []StrategySignal `json:"signals"`
	Excluded       []string         `json:"excluded,omitempty"` // producer ids excluded this scan
	Timestamp      time.Time        `json:"timestamp"`
}

// RiskAssessment is immutable once computed; a later scan supersedes it.
type RiskAssessment struct {
	Symbol              string    `json:"symbol"`
	Action              Action    `json:"action"`
	Quantity            float64   `json:"quantity"`
	EntryPrice          float64   `json:"entryPrice"`
	StopLoss            float64   `json:"stopLoss"`
	TargetPrice         float64   `json:"targetPrice"`
	RiskAmount          float64   `json:"riskAmount"`
	PotentialReward     float64   `json:"potentialReward"`
	RiskRewardRatio     float64   `json:"riskRewardRatio"`
	PositionSizePercent float64   `json:"positionSizePercent"`
	AccountRiskPercent  float64   `json:"accountRiskPercent"`
	OverallRiskScore    float64   `json:"overallRiskScore"`
	RiskLevel           RiskLevel `json:"riskLevel"`
	Approved            bool      `json:"approved"`
	RejectionReasons    []string  `json:"rejectionReasons,omitempty"`
	Warnings            []string  `json:"warnings,omitempty"`
	Recommendations     []string  `json:"recommendations,omitempty"`
	Timestamp           time.Time `json:"timestamp"`
}

// Quote is the latest trade observation for a symbol.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Volume    float64   `json:"volume"`
	Timestamp time.Time `json:"timestamp"`
}

// MarketData is the per-symbol input handed to strategy producers.
type MarketData struct {
	Quote   Quote     `json:"quote"`
	History []float64 `json:"history"` // recent prices, oldest first
}

// Position is an open brokerage position.
type Position struct {
	Symbol      string  `json:"symbol"`
	Quantity    float64 `json:"quantity"`
	MarketValue float64 `json:"marketValue"`
}

// Account is the brokerage account snapshot.
type Account struct {
	Equity     float64    `json:"equity"`
	Cash       float64    `json:"cash"`
	DailyPnL   float64    `json:"dailyPnL"`
	PeakEquity float64    `json:"peakEquity"`
	Positions  []Position `json:"positions"`
}

// Drawdown returns the peak-to-current decline in percent.
func (a *Account) Drawdown() float64 {
	if a.PeakEquity <= 0 || a.Equity >= a.PeakEquity {
		return 0
	}
	return (a.PeakEquity - a.Equity) / a.PeakEquity * 100
}

// ExposurePercent returns open-position market value as percent of equity.
func (a *Account) ExposurePercent() float64 {
	if a.Equity <= 0 {
		return 0
	}
	var total float64
	for _, p := range a.Positions {
		total += p.MarketValue
	}
	return total / a.Equity * 100
}

// Order is a brokerage order request.
type Order struct {
	Symbol     string  `json:"symbol"`
	Side       Action  `json:"side"`
	Quantity   float64 `json:"quantity"`
	Type       string  `json:"type"` // market or limit
	LimitPrice float64 `json:"limitPrice,omitempty"`
}

// OrderReceipt is the brokerage acknowledgement.
type OrderReceipt struct {
	OrderID     string    `json:"orderId"`
	Symbol      string    `json:"symbol"`
	Status      string    `json:"status"`
	FilledPrice float64   `json:"filledPrice,omitempty"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// Recommendation is a risk-approved candidate recorded instead of executed
// when autoExecute is off.
type Recommendation struct {
	Symbol     string          `json:"symbol"`
	Action     Action          `json:"action"`
	Confidence float64         `json:"confidence"`
	Assessment *RiskAssessment `json:"assessment"`
	SessionID  string          `json:"sessionId"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// ActivityEntry is one persisted activity-log record.
type ActivityEntry struct {
	SessionID string                 `json:"sessionId"`
	Type      string                 `json:"type"`
	Message   string                 `json:"message"`
	Status    string                 `json:"status"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// BotMetrics is the cumulative metrics document kept in the store.
type BotMetrics struct {
	TradesExecuted int64     `json:"tradesExecuted"`
	SuccessRate    float64   `json:"successRate"`
	TotalPnL       float64   `json:"totalPnL"`
	DailyPnL       float64   `json:"dailyPnL"`
	RiskScore      float64   `json:"riskScore"`
	LastActivity   time.Time `json:"lastActivity"`
}

// GatewayStats is the rate-limiter management snapshot.
type GatewayStats struct {
	QueueLength           int   `json:"queueLength"`
	IsThrottled           bool  `json:"isThrottled"`
	ThrottleTimeRemaining int64 `json:"throttleTimeRemaining"` // milliseconds
	Processing            bool  `json:"processing"`
}

package models

import (
	"errors"
	"fmt"
	"time"

	"TradeDesk/pkg/config"
)

// Action is a trade opinion produced by a strategy or a consensus.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// SessionStatus is the lifecycle state of the bot session.
type SessionStatus string

const (
	StatusStopped SessionStatus = "STOPPED"
	StatusRunning SessionStatus = "RUNNING"
)

// Health is the derived operator-facing session health.
type Health string

const (
	HealthHealthy Health = "HEALTHY"
	HealthWarning Health = "WARNING"
	HealthError   Health = "ERROR"
)

// RiskLevel buckets the overall risk score.
type RiskLevel string

const (
	RiskLow     RiskLevel = "LOW"
	RiskMedium  RiskLevel = "MEDIUM"
	RiskHigh    RiskLevel = "HIGH"
	RiskExtreme RiskLevel = "EXTREME"
)

var (
	// ErrAlreadyRunning is returned by Start while a session is RUNNING.
	ErrAlreadyRunning = errors.New("bot session already running")
	// ErrRateLimited marks a brokerage rate-limit response.
	ErrRateLimited = errors.New("rate limited by provider")
	// ErrQueueCleared is returned to callers whose pending request was dropped.
	ErrQueueCleared = errors.New("request dropped: queue cleared")
	// ErrGatewayClosed is returned when submitting to a closed gateway.
	ErrGatewayClosed = errors.New("execution gateway closed")
)

// ConfigError marks an invalid BotConfiguration, rejected before any state change.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "invalid bot configuration: " + e.Reason
}

// BotConfiguration is an immutable value object owned by one session.
type BotConfiguration struct {
	Mode       string                   `json:"mode"`
	Strategies []config.StrategyConfig  `json:"strategies"`
	Risk       config.RiskLimits        `json:"riskManagement"`
	Execution  config.ExecutionSettings `json:"executionSettings"`
	Watchlist  []string                 `json:"watchlist"`
}

// EnabledStrategies returns the enabled strategy entries.
func (c *BotConfiguration) EnabledStrategies() []config.StrategyConfig {
	out := make([]config.StrategyConfig, 0, len(c.Strategies))
	for _, s := range c.Strategies {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}

// Validate rejects configurations that cannot drive a session.
func (c *BotConfiguration) Validate() error {
	if c == nil {
		return &ConfigError{Reason: "configuration is nil"}
	}
	if len(c.EnabledStrategies()) == 0 {
		return &ConfigError{Reason: "at least one enabled strategy is required"}
	}
	if len(c.Watchlist) == 0 {
		return &ConfigError{Reason: "watchlist is empty"}
	}
	for _, s := range c.Strategies {
		if s.Weight < 0 {
			return &ConfigError{Reason: fmt.Sprintf("strategy %s has negative weight", s.ID)}
		}
	}
	if c.Execution.MinConfidenceForOrder < 0 || c.Execution.MinConfidenceForOrder > 1 {
		return &ConfigError{Reason: "minConfidenceForOrder must be in [0,1]"}
	}
	if c.Execution.OrderSizePercent <= 0 {
		return &ConfigError{Reason: "orderSizePercent must be positive"}
	}
	if c.Risk == (config.RiskLimits{}) {
		return &ConfigError{Reason: "risk limits are required"}
	}
	return nil
}

// BotSession is the single per-process session record.
type BotSession struct {
	Status     SessionStatus     `json:"status"`
	SessionID  string            `json:"sessionId"`
	StartedAt  time.Time         `json:"startedAt"`
	Config     *BotConfiguration `json:"config"`
	ScanCount  int64             `json:"scanCount"`
	ErrorCount int64             `json:"errorCount"`
	LastError  string            `json:"lastError,omitempty"`
	LastScanAt time.Time         `json:"lastScanAt"`
}

// SessionSummary is returned by start/restart.
type SessionSummary struct {
	SessionID   string    `json:"sessionId"`
	StartTime   time.Time `json:"startTime"`
	Mode        string    `json:"mode"`
	Watchlist   []string  `json:"watchlist"`
	Strategies  int       `json:"strategies"`
	AutoExecute bool      `json:"autoExecute"`
}

// StopResult is returned by stop.
type StopResult struct {
	SessionID      string  `json:"sessionId"`
	UptimeMinutes  float64 `json:"uptimeMinutes"`
	ScansCompleted int64   `json:"scansCompleted"`
	ErrorCount     int64   `json:"errorCount"`
}

// StatusReport is the status() snapshot plus derived health.
type StatusReport struct {
	IsRunning     bool            `json:"isRunning"`
	SessionID     string          `json:"sessionId,omitempty"`
	UptimeMinutes float64         `json:"uptimeMinutes"`
	ScanCount     int64           `json:"scanCount"`
	SkippedScans  int64           `json:"skippedScans"`
	ErrorCount    int64           `json:"errorCount"`
	LastError     string          `json:"lastError,omitempty"`
	LastScanAt    *time.Time      `json:"lastScanAt,omitempty"`
	Health        Health          `json:"health"`
	Config        *SessionSummary `json:"config,omitempty"`
}

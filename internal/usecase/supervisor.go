package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"TradeDesk/internal/domain/models"
	"TradeDesk/internal/service/consensus"
	"TradeDesk/internal/service/producers"
	"TradeDesk/pkg/config"
	xlogger "TradeDesk/pkg/logger"
)

// Supervisor owns the single bot session per process. All lifecycle
// transitions happen under one mutex, so concurrent start calls can never
// produce two sessions.
type Supervisor struct {
	cfg  *config.Config
	deps ScannerDeps

	mu      sync.Mutex
	session *models.BotSession
	scanner *Scanner
}

func NewSupervisor(cfg *config.Config, deps ScannerDeps) *Supervisor {
	return &Supervisor{cfg: cfg, deps: deps}
}

// Start transitions STOPPED -> RUNNING. A nil configuration uses the
// process defaults; an invalid one is rejected before any state changes.
func (s *Supervisor) Start(ctx context.Context, bc *models.BotConfiguration) (*models.SessionSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startLocked(ctx, bc)
}

func (s *Supervisor) startLocked(ctx context.Context, bc *models.BotConfiguration) (*models.SessionSummary, error) {
	if s.session != nil && s.session.Status == models.StatusRunning {
		return nil, models.ErrAlreadyRunning
	}

	if bc == nil {
		bc = s.defaultConfiguration()
	}
	if err := bc.Validate(); err != nil {
		return nil, err
	}

	sessionID := uuid.New().String()
	engine := consensus.NewEngine(
		producers.Build(bc.EnabledStrategies(), s.cfg.Bot.StrategyAPIURL, s.cfg.Bot.StrategyAPITimeout),
		s.cfg.Bot.StrategyAPITimeout,
		s.deps.Log,
	)

	deps := s.deps
	deps.Consensus = engine
	scanner := NewScanner(deps, bc, sessionID,
		s.cfg.Bot.ScanInterval, s.cfg.Bot.ScanBatchSize, s.cfg.Bot.ProducerLimit)

	s.session = &models.BotSession{
		Status:    models.StatusRunning,
		SessionID: sessionID,
		StartedAt: time.Now(),
		Config:    bc,
	}
	s.scanner = scanner
	scanner.Start()

	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordSessionRunning(true)
	}
	s.deps.Log.Info("bot session started",
		xlogger.String("session_id", sessionID),
		xlogger.String("mode", bc.Mode),
		xlogger.Int("watchlist", len(bc.Watchlist)))
	scanner.record(ctx, "session", "bot session started", "running", map[string]interface{}{
		"mode":       bc.Mode,
		"strategies": len(bc.EnabledStrategies()),
	})

	return s.summaryLocked(), nil
}

// Stop transitions RUNNING -> STOPPED and waits for an in-flight scan.
func (s *Supervisor) Stop(ctx context.Context) (*models.StopResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopLocked(ctx)
}

func (s *Supervisor) stopLocked(ctx context.Context) (*models.StopResult, error) {
	// Stop is idempotent: stopping a stopped bot reports the last session
	// and succeeds.
	if s.session == nil || s.session.Status != models.StatusRunning {
		res := &models.StopResult{}
		if s.session != nil {
			res.SessionID = s.session.SessionID
		}
		return res, nil
	}

	s.scanner.Stop()
	scans, _, errs := s.scanner.Counts()

	res := &models.StopResult{
		SessionID:      s.session.SessionID,
		UptimeMinutes:  time.Since(s.session.StartedAt).Minutes(),
		ScansCompleted: scans,
		ErrorCount:     errs,
	}

	s.scanner.record(ctx, "session", "bot session stopped", "stopped", map[string]interface{}{
		"scans":  scans,
		"errors": errs,
		"orders": s.scanner.Orders(),
	})
	s.session.Status = models.StatusStopped
	s.scanner = nil
	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordSessionRunning(false)
	}
	s.deps.Log.Info("bot session stopped",
		xlogger.String("session_id", res.SessionID),
		xlogger.Int64("scans", scans),
		xlogger.Int64("errors", errs))
	return res, nil
}

// Restart stops the current session and starts a fresh one atomically,
// reusing the running configuration unless a new one is supplied.
func (s *Supervisor) Restart(ctx context.Context, bc *models.BotConfiguration) (*models.SessionSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if bc == nil && s.session != nil {
		bc = s.session.Config
	}
	if s.session != nil && s.session.Status == models.StatusRunning {
		if _, err := s.stopLocked(ctx); err != nil {
			return nil, err
		}
	}
	return s.startLocked(ctx, bc)
}

// Status reports the current session snapshot with derived health.
func (s *Supervisor) Status() *models.StatusReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil || s.session.Status != models.StatusRunning {
		return &models.StatusReport{IsRunning: false, Health: models.HealthHealthy}
	}

	scans, skipped, errs := s.scanner.Counts()
	r := &models.StatusReport{
		IsRunning:     true,
		SessionID:     s.session.SessionID,
		UptimeMinutes: time.Since(s.session.StartedAt).Minutes(),
		ScanCount:     scans,
		SkippedScans:  skipped,
		ErrorCount:    errs,
		LastError:     s.scanner.LastError(),
		Health:        deriveHealth(scans, errs, s.scanner.LastScanAt()),
		Config:        s.summaryLocked(),
	}
	if at := s.scanner.LastScanAt(); !at.IsZero() {
		r.LastScanAt = &at
	}
	return r
}

func (s *Supervisor) summaryLocked() *models.SessionSummary {
	bc := s.session.Config
	return &models.SessionSummary{
		SessionID:   s.session.SessionID,
		StartTime:   s.session.StartedAt,
		Mode:        bc.Mode,
		Watchlist:   bc.Watchlist,
		Strategies:  len(bc.EnabledStrategies()),
		AutoExecute: bc.Execution.AutoExecute,
	}
}

func (s *Supervisor) defaultConfiguration() *models.BotConfiguration {
	return &models.BotConfiguration{
		Mode:       s.cfg.Bot.Mode,
		Strategies: s.cfg.Bot.Strategies,
		Risk:       s.cfg.Bot.Risk,
		Execution:  s.cfg.Bot.Execution,
		Watchlist:  s.cfg.Bot.Watchlist,
	}
}

// deriveHealth grades a running session by error rate, then staleness.
func deriveHealth(scans, errs int64, lastScan time.Time) models.Health {
	h := models.HealthHealthy

	if scans > 0 {
		rate := float64(errs) / float64(scans)
		switch {
		case rate > 0.5:
			return models.HealthError
		case rate > 0.2:
			h = models.HealthWarning
		}
	}

	if !lastScan.IsZero() {
		age := time.Since(lastScan)
		switch {
		case age > 5*time.Minute:
			return models.HealthError
		case age > 2*time.Minute && h == models.HealthHealthy:
			h = models.HealthWarning
		}
	}
	return h
}

package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"TradeDesk/internal/domain/models"
	domrepo "TradeDesk/internal/domain/repository"
	domsvc "TradeDesk/internal/domain/service"
	"TradeDesk/internal/service/consensus"
	"TradeDesk/internal/service/quotes"
	"TradeDesk/internal/service/risk"
	xlogger "TradeDesk/pkg/logger"
	"TradeDesk/pkg/util"
)

// ScannerDeps collects the collaborators one scan cycle touches.
type ScannerDeps struct {
	Consensus *consensus.Engine
	Risk      *risk.Engine
	Broker    domsvc.Broker
	Calendar  domsvc.MarketCalendar
	Quotes    *quotes.Cache
	State     domrepo.StateStore
	Activity  domrepo.ActivityLog
	Events    domrepo.Publisher
	Metrics   domrepo.Metrics
	Log       *xlogger.Logger
	Location  *time.Location
}

// Scanner runs the periodic scan cycle for one session. One goroutine owns
// the loop; counters are atomics so Status can read them without stopping it.
type Scanner struct {
	deps      ScannerDeps
	cfg       *models.BotConfiguration
	sessionID string
	interval  time.Duration
	batchSize int
	parallel  int

	scanCount    atomic.Int64
	skippedCount atomic.Int64
	errorCount   atomic.Int64
	orderCount   atomic.Int64
	lastScanUnix atomic.Int64
	scanning     atomic.Bool

	errMu   sync.Mutex
	lastErr string

	// ordersMu serializes the daily-cap check against order submission so
	// concurrent symbols in one batch cannot both claim the last slot.
	ordersMu sync.Mutex

	stop chan struct{}
	done chan struct{}
}

func NewScanner(deps ScannerDeps, cfg *models.BotConfiguration, sessionID string, interval time.Duration, batchSize, parallel int) *Scanner {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 10
	}
	if parallel <= 0 {
		parallel = 4
	}
	if deps.Location == nil {
		deps.Location = time.Local
	}
	return &Scanner{
		deps:      deps,
		cfg:       cfg,
		sessionID: sessionID,
		interval:  interval,
		batchSize: batchSize,
		parallel:  parallel,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the scan loop. The first scan fires immediately rather
// than one interval in.
func (s *Scanner) Start() {
	go s.run()
}

// Stop ends the loop and waits for an in-flight scan to finish.
func (s *Scanner) Stop() {
	close(s.stop)
	<-s.done
}

func (s *Scanner) Counts() (scans, skipped, errs int64) {
	return s.scanCount.Load(), s.skippedCount.Load(), s.errorCount.Load()
}

// Orders returns the number of orders submitted during this session.
func (s *Scanner) Orders() int64 {
	return s.orderCount.Load()
}

func (s *Scanner) LastError() string {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.lastErr
}

// LastScanAt returns the start time of the most recent scan, zero if none ran.
func (s *Scanner) LastScanAt() time.Time {
	u := s.lastScanUnix.Load()
	if u == 0 {
		return time.Time{}
	}
	return time.Unix(u, 0)
}

func (s *Scanner) run() {
	var inflight sync.WaitGroup
	defer func() {
		inflight.Wait()
		close(s.done)
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	launch := func() {
		// Skip the tick rather than stacking scans behind a slow one.
		if !s.scanning.CompareAndSwap(false, true) {
			s.skippedCount.Add(1)
			if s.deps.Metrics != nil {
				s.deps.Metrics.RecordScan("skipped_busy")
			}
			return
		}
		inflight.Add(1)
		go func() {
			defer inflight.Done()
			defer s.scanning.Store(false)
			s.tick()
		}()
	}

	launch()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			launch()
		}
	}
}

// tick performs one scan cycle. A panic inside the cycle is contained here
// so a bad strategy response cannot kill the session.
func (s *Scanner) tick() {
	defer func() {
		if r := recover(); r != nil {
			s.errorCount.Add(1)
			s.setLastError(fmt.Sprintf("scan panic: %v", r))
			if s.deps.Metrics != nil {
				s.deps.Metrics.RecordError("scan_panic")
			}
			s.deps.Log.Error("scan cycle panicked", xlogger.Any("panic", r))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()

	now := time.Now().In(s.deps.Location)
	if s.cfg.Execution.MarketHoursOnly && !s.deps.Calendar.IsOpen(now) {
		if s.deps.Metrics != nil {
			s.deps.Metrics.RecordScan("market_closed")
		}
		s.deps.Log.Debug("market closed, scan skipped")
		return
	}

	start := time.Now()
	s.scanCount.Add(1)
	s.lastScanUnix.Store(start.Unix())

	account, err := s.deps.Broker.GetAccount(ctx)
	if err != nil {
		s.fail("fetch_account", err)
		return
	}

	for i := 0; i < len(s.cfg.Watchlist); i += s.batchSize {
		end := i + s.batchSize
		if end > len(s.cfg.Watchlist) {
			end = len(s.cfg.Watchlist)
		}
		s.scanBatch(ctx, s.cfg.Watchlist[i:end], account)
		select {
		case <-s.stop:
			return
		default:
		}
	}

	s.updateMetrics(ctx, 0)
	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordScan("completed")
		s.deps.Metrics.RecordLatency("scan_cycle", time.Since(start).Seconds())
	}
}

// updateMetrics refreshes the cumulative metrics document after a cycle or
// an execution. Best effort: a store failure only warns.
func (s *Scanner) updateMetrics(ctx context.Context, executed int64) {
	m, err := s.deps.State.GetBotMetrics(ctx)
	if err != nil || m == nil {
		m = &models.BotMetrics{}
	}
	m.TradesExecuted += executed
	m.LastActivity = time.Now()
	if err := s.deps.State.UpdateBotMetrics(ctx, m); err != nil {
		s.deps.Log.Warn("bot metrics not persisted", xlogger.Error(err))
	}
}

// scanBatch evaluates a slice of the watchlist with bounded parallelism.
func (s *Scanner) scanBatch(ctx context.Context, symbols []string, account *models.Account) {
	sem := make(chan struct{}, s.parallel)
	var wg sync.WaitGroup
	for _, symbol := range symbols {
		wg.Add(1)
		sem <- struct{}{}
		go func(symbol string) {
			defer wg.Done()
			defer func() { <-sem }()
			s.scanSymbol(ctx, symbol, account)
		}(symbol)
	}
	wg.Wait()
}

func (s *Scanner) scanSymbol(ctx context.Context, symbol string, account *models.Account) {
	md, err := s.marketData(ctx, symbol)
	if err != nil {
		s.fail("market_data", fmt.Errorf("%s: %w", symbol, err))
		return
	}

	res, err := s.deps.Consensus.Evaluate(ctx, symbol, md)
	if err != nil {
		s.fail("consensus", fmt.Errorf("%s: %w", symbol, err))
		return
	}
	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordConsensus(symbol, string(res.Weighted.Action))
	}

	if res.Weighted.Action == models.ActionHold {
		return
	}
	if res.Weighted.Confidence < s.cfg.Execution.MinConfidenceForOrder {
		s.deps.Log.Debug("signal below confidence floor",
			xlogger.String("symbol", symbol),
			xlogger.Float64("confidence", res.Weighted.Confidence))
		return
	}

	assessment := s.assess(res, md.Quote.Price, account)
	if !assessment.Approved {
		if s.deps.Metrics != nil {
			s.deps.Metrics.RecordRiskRejection(string(assessment.RiskLevel))
		}
		s.record(ctx, "risk_rejection", fmt.Sprintf("%s %s rejected", res.Weighted.Action, symbol),
			"rejected", map[string]interface{}{
				"symbol":  symbol,
				"reasons": assessment.RejectionReasons,
				"score":   assessment.OverallRiskScore,
			})
		return
	}

	if !s.cfg.Execution.AutoExecute {
		s.recommend(ctx, symbol, res, assessment)
		return
	}
	s.execute(ctx, symbol, res, assessment)
}

// marketData prefers the live quote cache and falls back to a REST quote
// with no history, which only producers needing history will reject.
func (s *Scanner) marketData(ctx context.Context, symbol string) (*models.MarketData, error) {
	if md, ok := s.deps.Quotes.Snapshot(symbol); ok {
		return md, nil
	}
	q, err := s.deps.Broker.GetQuote(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return &models.MarketData{Quote: *q, History: []float64{q.Price}}, nil
}

func (s *Scanner) assess(res *models.ConsensusResult, price float64, account *models.Account) *models.RiskAssessment {
	stop, target := s.deps.Risk.DeriveLevels(res.Weighted.Action, price)
	qty := risk.SizePosition(account.Equity, price, s.cfg.Execution.OrderSizePercent)
	return s.deps.Risk.Assess(risk.Input{
		Symbol:          res.Symbol,
		Action:          res.Weighted.Action,
		Quantity:        qty,
		EntryPrice:      price,
		StopLoss:        stop,
		TargetPrice:     target,
		AccountBalance:  account.Equity,
		Confidence:      res.Weighted.Confidence,
		DailyPnL:        account.DailyPnL,
		DrawdownPercent: account.Drawdown(),
		ExposurePercent: account.ExposurePercent(),
	})
}

func (s *Scanner) execute(ctx context.Context, symbol string, res *models.ConsensusResult, a *models.RiskAssessment) {
	s.ordersMu.Lock()
	defer s.ordersMu.Unlock()

	day := util.DayKey(time.Now(), s.deps.Location)
	if s.cfg.Execution.MaxOrdersPerDay > 0 {
		n, err := s.deps.State.OrdersForDay(ctx, day)
		if err != nil {
			s.fail("order_counter", err)
			return
		}
		if n >= int64(s.cfg.Execution.MaxOrdersPerDay) {
			s.deps.Log.Info("daily order cap reached, recording recommendation instead",
				xlogger.String("symbol", symbol), xlogger.Int64("orders_today", n))
			s.recommend(ctx, symbol, res, a)
			return
		}
	}

	order := &models.Order{
		Symbol:   symbol,
		Side:     res.Weighted.Action,
		Quantity: a.Quantity,
		Type:     "market",
	}
	receipt, err := s.deps.Broker.SubmitOrder(ctx, order)
	if err != nil {
		s.fail("submit_order", fmt.Errorf("%s: %w", symbol, err))
		if s.deps.Metrics != nil {
			s.deps.Metrics.RecordOrder(symbol, "failed")
		}
		return
	}

	s.orderCount.Add(1)
	if _, err := s.deps.State.IncrOrdersForDay(ctx, day); err != nil {
		s.deps.Log.Warn("order counter increment failed", xlogger.Error(err))
	}
	s.updateMetrics(ctx, 1)
	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordOrder(symbol, receipt.Status)
	}
	s.record(ctx, "order_submitted",
		fmt.Sprintf("%s %v %s @ market", res.Weighted.Action, a.Quantity, symbol),
		"submitted", map[string]interface{}{
			"orderId":    receipt.OrderID,
			"symbol":     symbol,
			"quantity":   a.Quantity,
			"confidence": res.Weighted.Confidence,
			"riskScore":  a.OverallRiskScore,
		})
}

func (s *Scanner) recommend(ctx context.Context, symbol string, res *models.ConsensusResult, a *models.RiskAssessment) {
	rec := &models.Recommendation{
		Symbol:     symbol,
		Action:     res.Weighted.Action,
		Confidence: res.Weighted.Confidence,
		Assessment: a,
		SessionID:  s.sessionID,
		CreatedAt:  time.Now(),
	}
	if err := s.deps.State.PushRecommendation(ctx, rec); err != nil {
		s.deps.Log.Warn("recommendation not persisted", xlogger.Error(err))
	}
	s.record(ctx, "recommendation",
		fmt.Sprintf("%s %s (confidence %.2f)", res.Weighted.Action, symbol, res.Weighted.Confidence),
		"recorded", map[string]interface{}{
			"symbol":     symbol,
			"action":     res.Weighted.Action,
			"confidence": res.Weighted.Confidence,
		})
}

// record appends an activity entry and mirrors it onto the event stream.
// Persistence trouble is logged, never allowed to break the scan.
func (s *Scanner) record(ctx context.Context, kind, msg, status string, details map[string]interface{}) {
	e := &models.ActivityEntry{
		SessionID: s.sessionID,
		Type:      kind,
		Message:   msg,
		Status:    status,
		Details:   details,
		Timestamp: time.Now(),
	}
	if s.deps.Activity != nil {
		if err := s.deps.Activity.Append(ctx, e); err != nil {
			s.deps.Log.Warn("activity append failed", xlogger.Error(err))
		}
	}
	if s.deps.Events != nil {
		if err := s.deps.Events.Publish(ctx, e); err != nil {
			s.deps.Log.Warn("activity publish failed", xlogger.Error(err))
		}
	}
}

func (s *Scanner) fail(op string, err error) {
	s.errorCount.Add(1)
	s.setLastError(op + ": " + err.Error())
	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordError(op)
	}
	s.deps.Log.Error("scan step failed", xlogger.String("op", op), xlogger.Error(err))
}

func (s *Scanner) setLastError(msg string) {
	s.errMu.Lock()
	s.lastErr = msg
	s.errMu.Unlock()
}

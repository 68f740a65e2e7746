package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradeDesk/internal/domain/models"
	"TradeDesk/internal/service/consensus"
	"TradeDesk/internal/service/quotes"
	"TradeDesk/internal/service/risk"
	"TradeDesk/pkg/config"
	xlogger "TradeDesk/pkg/logger"
)

func testLogger(t *testing.T) *xlogger.Logger {
	t.Helper()
	log, err := xlogger.New(&xlogger.Config{Level: "error", Format: "console", Output: "stderr"})
	require.NoError(t, err)
	return log
}

type fakeBroker struct {
	mu           sync.Mutex
	price        float64
	account      models.Account
	orders       []*models.Order
	orderErr     error
	submitDelay  time.Duration
	accountCalls int
	quoteCalls   int
}

func (b *fakeBroker) GetQuote(_ context.Context, symbol string) (*models.Quote, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.quoteCalls++
	return &models.Quote{Symbol: symbol, Price: b.price, Timestamp: time.Now()}, nil
}

func (b *fakeBroker) GetAccount(context.Context) (*models.Account, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accountCalls++
	a := b.account
	return &a, nil
}

func (b *fakeBroker) SubmitOrder(_ context.Context, o *models.Order) (*models.OrderReceipt, error) {
	if b.submitDelay > 0 {
		time.Sleep(b.submitDelay)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.orderErr != nil {
		return nil, b.orderErr
	}
	b.orders = append(b.orders, o)
	return &models.OrderReceipt{OrderID: "ord-1", Symbol: o.Symbol, Status: "accepted", SubmittedAt: time.Now()}, nil
}

func (b *fakeBroker) orderCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.orders)
}

type fakeCalendar struct{ open bool }

func (c fakeCalendar) IsOpen(time.Time) bool { return c.open }

type fakeState struct {
	mu     sync.Mutex
	orders map[string]int64
	recs   []*models.Recommendation
}

func newFakeState() *fakeState { return &fakeState{orders: map[string]int64{}} }

func (s *fakeState) UpdateBotMetrics(context.Context, *models.BotMetrics) error { return nil }
func (s *fakeState) GetBotMetrics(context.Context) (*models.BotMetrics, error) {
	return &models.BotMetrics{}, nil
}

func (s *fakeState) IncrOrdersForDay(_ context.Context, day string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[day]++
	return s.orders[day], nil
}

func (s *fakeState) OrdersForDay(_ context.Context, day string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orders[day], nil
}

func (s *fakeState) PushRecommendation(_ context.Context, r *models.Recommendation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = append(s.recs, r)
	return nil
}

func (s *fakeState) Recommendations(context.Context, int) ([]*models.Recommendation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recs, nil
}

func (s *fakeState) Close() error { return nil }

func (s *fakeState) recCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.recs)
}

type fakeActivity struct {
	mu      sync.Mutex
	entries []*models.ActivityEntry
}

func (a *fakeActivity) Append(_ context.Context, e *models.ActivityEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
	return nil
}

func (a *fakeActivity) Close() error { return nil }

func (a *fakeActivity) byType(kind string) []*models.ActivityEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []*models.ActivityEntry
	for _, e := range a.entries {
		if e.Type == kind {
			out = append(out, e)
		}
	}
	return out
}

type fixedProducer struct {
	id     string
	action models.Action
	conf   float64
	err    error
}

func (p fixedProducer) ID() string { return p.id }

func (p fixedProducer) Evaluate(_ context.Context, symbol string, _ *models.MarketData) (*models.StrategySignal, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &models.StrategySignal{StrategyID: p.id, Symbol: symbol, Action: p.action, Confidence: p.conf}, nil
}

func testLimits() config.RiskLimits {
	return config.RiskLimits{
		MaxPositionSize:    25,
		MinConfidence:      0.5,
		MinRiskRewardRatio: 1.5,
		StopLossPercent:    2,
		TakeProfitPercent:  4,
	}
}

func testBotConfig(autoExecute bool) *models.BotConfiguration {
	return &models.BotConfiguration{
		Mode:      "paper",
		Watchlist: []string{"AAPL"},
		Strategies: []config.StrategyConfig{
			{ID: "s1", Name: "one", Enabled: true, Weight: 1},
		},
		Risk: testLimits(),
		Execution: config.ExecutionSettings{
			AutoExecute:           autoExecute,
			MinConfidenceForOrder: 0.6,
			MaxOrdersPerDay:       5,
			OrderSizePercent:      10,
			MarketHoursOnly:       true,
		},
	}
}

func buyEngine(t *testing.T, log *xlogger.Logger) *consensus.Engine {
	t.Helper()
	return consensus.NewEngine([]consensus.Producer{
		{
			Config: config.StrategyConfig{ID: "s1", Enabled: true, Weight: 1},
			Impl:   fixedProducer{id: "s1", action: models.ActionBuy, conf: 0.9},
		},
	}, time.Second, log)
}

func newTestScanner(t *testing.T, bc *models.BotConfiguration, broker *fakeBroker, cal fakeCalendar, state *fakeState, activity *fakeActivity, engine *consensus.Engine) *Scanner {
	t.Helper()
	log := testLogger(t)
	if engine == nil {
		engine = buyEngine(t, log)
	}
	cache := quotes.NewCache(time.Minute, 50)
	deps := ScannerDeps{
		Consensus: engine,
		Risk:      risk.NewEngine(bc.Risk),
		Broker:    broker,
		Calendar:  cal,
		Quotes:    cache,
		State:     state,
		Activity:  activity,
		Log:       log,
		Location:  time.UTC,
	}
	return NewScanner(deps, bc, "sess-test", time.Minute, 10, 2)
}

func TestScanSkipsClosedMarket(t *testing.T) {
	broker := &fakeBroker{price: 100, account: models.Account{Equity: 10000}}
	state := newFakeState()
	s := newTestScanner(t, testBotConfig(true), broker, fakeCalendar{open: false}, state, &fakeActivity{}, nil)

	s.tick()

	scans, _, errs := s.Counts()
	assert.Zero(t, scans)
	assert.Zero(t, errs)
	assert.Zero(t, broker.accountCalls)
	assert.Zero(t, broker.orderCount())
}

func TestScanExecutesApprovedSignal(t *testing.T) {
	broker := &fakeBroker{price: 100, account: models.Account{Equity: 10000}}
	state := newFakeState()
	activity := &fakeActivity{}
	s := newTestScanner(t, testBotConfig(true), broker, fakeCalendar{open: true}, state, activity, nil)

	s.tick()

	scans, _, errs := s.Counts()
	assert.EqualValues(t, 1, scans)
	assert.Zero(t, errs)

	require.Equal(t, 1, broker.orderCount())
	order := broker.orders[0]
	assert.Equal(t, "AAPL", order.Symbol)
	assert.Equal(t, models.ActionBuy, order.Side)
	// 10% of 10k at $100 is 10 whole shares.
	assert.EqualValues(t, 10, order.Quantity)

	n, err := state.OrdersForDay(context.Background(), dayKeyNow())
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Len(t, activity.byType("order_submitted"), 1)
}

func TestScanRecordsRecommendationWhenAutoExecuteOff(t *testing.T) {
	broker := &fakeBroker{price: 100, account: models.Account{Equity: 10000}}
	state := newFakeState()
	activity := &fakeActivity{}
	s := newTestScanner(t, testBotConfig(false), broker, fakeCalendar{open: true}, state, activity, nil)

	s.tick()

	assert.Zero(t, broker.orderCount())
	require.Equal(t, 1, state.recCount())
	rec := state.recs[0]
	assert.Equal(t, "AAPL", rec.Symbol)
	assert.Equal(t, models.ActionBuy, rec.Action)
	assert.NotNil(t, rec.Assessment)
	assert.True(t, rec.Assessment.Approved)
	assert.Len(t, activity.byType("recommendation"), 1)
}

func TestScanHonorsDailyOrderCap(t *testing.T) {
	broker := &fakeBroker{price: 100, account: models.Account{Equity: 10000}}
	state := newFakeState()
	bc := testBotConfig(true)
	bc.Execution.MaxOrdersPerDay = 2
	state.orders[dayKeyNow()] = 2

	s := newTestScanner(t, bc, broker, fakeCalendar{open: true}, state, &fakeActivity{}, nil)
	s.tick()

	assert.Zero(t, broker.orderCount())
	assert.Equal(t, 1, state.recCount())
}

func TestScanDailyOrderCapUnderConcurrentSymbols(t *testing.T) {
	bc := testBotConfig(true)
	bc.Watchlist = []string{"AAPL", "MSFT", "NVDA", "TSLA", "AMZN", "GOOG", "META", "NFLX"}
	bc.Execution.MaxOrdersPerDay = 1

	// Slow submissions keep several symbols in flight at once; the cap must
	// still admit exactly one order.
	broker := &fakeBroker{price: 100, account: models.Account{Equity: 10000}, submitDelay: 50 * time.Millisecond}
	state := newFakeState()
	s := newTestScanner(t, bc, broker, fakeCalendar{open: true}, state, &fakeActivity{}, nil)

	s.tick()

	assert.Equal(t, 1, broker.orderCount())
	assert.Equal(t, len(bc.Watchlist)-1, state.recCount())
}

func TestScanRejectsLowConfidence(t *testing.T) {
	broker := &fakeBroker{price: 100, account: models.Account{Equity: 10000}}
	state := newFakeState()
	log := testLogger(t)
	engine := consensus.NewEngine([]consensus.Producer{
		{
			Config: config.StrategyConfig{ID: "s1", Enabled: true, Weight: 1},
			Impl:   fixedProducer{id: "s1", action: models.ActionBuy, conf: 0.3},
		},
	}, time.Second, log)

	s := newTestScanner(t, testBotConfig(true), broker, fakeCalendar{open: true}, state, &fakeActivity{}, engine)
	s.tick()

	assert.Zero(t, broker.orderCount())
	assert.Zero(t, state.recCount())
}

func TestScanRecordsRiskRejection(t *testing.T) {
	broker := &fakeBroker{price: 100, account: models.Account{Equity: 10000}}
	state := newFakeState()
	activity := &fakeActivity{}
	bc := testBotConfig(true)
	// 10% position against a 5% cap fails the hard limit.
	bc.Risk.MaxPositionSize = 5

	s := newTestScanner(t, bc, broker, fakeCalendar{open: true}, state, activity, nil)
	s.tick()

	assert.Zero(t, broker.orderCount())
	assert.Zero(t, state.recCount())
	assert.Len(t, activity.byType("risk_rejection"), 1)
}

func TestScanHoldSignalDoesNothing(t *testing.T) {
	broker := &fakeBroker{price: 100, account: models.Account{Equity: 10000}}
	state := newFakeState()
	log := testLogger(t)
	engine := consensus.NewEngine([]consensus.Producer{
		{
			Config: config.StrategyConfig{ID: "s1", Enabled: true, Weight: 1},
			Impl:   fixedProducer{id: "s1", action: models.ActionHold, conf: 0.9},
		},
	}, time.Second, log)

	s := newTestScanner(t, testBotConfig(true), broker, fakeCalendar{open: true}, state, &fakeActivity{}, engine)
	s.tick()

	scans, _, errs := s.Counts()
	assert.EqualValues(t, 1, scans)
	assert.Zero(t, errs)
	assert.Zero(t, broker.orderCount())
}

func TestScanCountsProducerFailures(t *testing.T) {
	broker := &fakeBroker{price: 100, account: models.Account{Equity: 10000}}
	state := newFakeState()
	log := testLogger(t)
	engine := consensus.NewEngine([]consensus.Producer{
		{
			Config: config.StrategyConfig{ID: "s1", Enabled: true, Weight: 1},
			Impl:   fixedProducer{id: "s1", err: errors.New("model offline")},
		},
	}, time.Second, log)

	s := newTestScanner(t, testBotConfig(true), broker, fakeCalendar{open: true}, state, &fakeActivity{}, engine)
	s.tick()

	scans, _, errs := s.Counts()
	assert.EqualValues(t, 1, scans)
	assert.EqualValues(t, 1, errs)
	assert.Contains(t, s.LastError(), "consensus")
}

func TestScanFallsBackToRestQuote(t *testing.T) {
	broker := &fakeBroker{price: 100, account: models.Account{Equity: 10000}}
	state := newFakeState()
	s := newTestScanner(t, testBotConfig(true), broker, fakeCalendar{open: true}, state, &fakeActivity{}, nil)

	// Cache is empty, so the scan must fetch the quote over REST.
	s.tick()

	assert.Equal(t, 1, broker.quoteCalls)
	assert.Equal(t, 1, broker.orderCount())
}

func TestScanPrefersCachedQuotes(t *testing.T) {
	broker := &fakeBroker{price: 100, account: models.Account{Equity: 10000}}
	state := newFakeState()
	s := newTestScanner(t, testBotConfig(true), broker, fakeCalendar{open: true}, state, &fakeActivity{}, nil)

	s.deps.Quotes.Update(models.Quote{Symbol: "AAPL", Price: 101, Timestamp: time.Now()})
	s.tick()

	assert.Zero(t, broker.quoteCalls)
	assert.Equal(t, 1, broker.orderCount())
}

func dayKeyNow() string {
	return time.Now().In(time.UTC).Format("2006-01-02")
}

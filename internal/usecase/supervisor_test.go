package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradeDesk/internal/domain/models"
	"TradeDesk/internal/service/quotes"
	"TradeDesk/internal/service/risk"
	"TradeDesk/pkg/config"
)

func newTestSupervisor(t *testing.T) (*Supervisor, *fakeBroker, *fakeActivity) {
	t.Helper()
	log := testLogger(t)
	broker := &fakeBroker{price: 100, account: models.Account{Equity: 10000}}
	activity := &fakeActivity{}

	cfg := &config.Config{}
	cfg.Bot.Mode = "paper"
	cfg.Bot.Watchlist = []string{"AAPL"}
	cfg.Bot.ScanInterval = time.Hour
	cfg.Bot.ScanBatchSize = 10
	cfg.Bot.ProducerLimit = 2
	cfg.Bot.StrategyAPITimeout = time.Second
	cfg.Bot.Strategies = []config.StrategyConfig{{ID: "momentum", Name: "Momentum", Enabled: true, Weight: 1}}
	cfg.Bot.Risk = testLimits()
	cfg.Bot.Execution = config.ExecutionSettings{
		MinConfidenceForOrder: 0.6,
		OrderSizePercent:      10,
		MarketHoursOnly:       true,
	}

	deps := ScannerDeps{
		Risk:     risk.NewEngine(cfg.Bot.Risk),
		Broker:   broker,
		Calendar: fakeCalendar{open: false},
		Quotes:   quotes.NewCache(time.Minute, 50),
		State:    newFakeState(),
		Activity: activity,
		Log:      log,
		Location: time.UTC,
	}
	return NewSupervisor(cfg, deps), broker, activity
}

func TestSupervisorStartStop(t *testing.T) {
	sup, _, _ := newTestSupervisor(t)
	ctx := context.Background()

	sum, err := sup.Start(ctx, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, sum.SessionID)
	assert.Equal(t, "paper", sum.Mode)
	assert.Equal(t, 1, sum.Strategies)

	st := sup.Status()
	assert.True(t, st.IsRunning)
	assert.Equal(t, sum.SessionID, st.SessionID)

	res, err := sup.Stop(ctx)
	require.NoError(t, err)
	assert.Equal(t, sum.SessionID, res.SessionID)
	assert.False(t, sup.Status().IsRunning)
}

func TestSupervisorRejectsDoubleStart(t *testing.T) {
	sup, _, _ := newTestSupervisor(t)
	ctx := context.Background()

	first, err := sup.Start(ctx, nil)
	require.NoError(t, err)

	_, err = sup.Start(ctx, nil)
	assert.ErrorIs(t, err, models.ErrAlreadyRunning)

	// The original session is untouched.
	assert.Equal(t, first.SessionID, sup.Status().SessionID)
	_, err = sup.Stop(ctx)
	require.NoError(t, err)
}

func TestSupervisorStopIsIdempotent(t *testing.T) {
	sup, _, _ := newTestSupervisor(t)
	ctx := context.Background()

	// Stopping a bot that never ran succeeds with an empty result.
	res, err := sup.Stop(ctx)
	require.NoError(t, err)
	assert.Empty(t, res.SessionID)

	sum, err := sup.Start(ctx, testBotConfig(false))
	require.NoError(t, err)

	first, err := sup.Stop(ctx)
	require.NoError(t, err)
	assert.Equal(t, sum.SessionID, first.SessionID)

	// A second stop reports the finished session and changes nothing.
	second, err := sup.Stop(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.SessionID, second.SessionID)
	assert.False(t, sup.Status().IsRunning)
}

func TestSupervisorRejectsInvalidConfig(t *testing.T) {
	sup, _, _ := newTestSupervisor(t)

	bad := testBotConfig(false)
	bad.Watchlist = nil
	_, err := sup.Start(context.Background(), bad)

	var ce *models.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.False(t, sup.Status().IsRunning)
}

func TestSupervisorRestartIssuesNewSession(t *testing.T) {
	sup, _, _ := newTestSupervisor(t)
	ctx := context.Background()

	first, err := sup.Start(ctx, nil)
	require.NoError(t, err)

	second, err := sup.Restart(ctx, nil)
	require.NoError(t, err)
	assert.NotEqual(t, first.SessionID, second.SessionID)

	st := sup.Status()
	assert.True(t, st.IsRunning)
	assert.Equal(t, second.SessionID, st.SessionID)

	_, err = sup.Stop(ctx)
	require.NoError(t, err)
}

func TestSupervisorRestartFromStopped(t *testing.T) {
	sup, _, _ := newTestSupervisor(t)
	ctx := context.Background()

	sum, err := sup.Restart(ctx, testBotConfig(false))
	require.NoError(t, err)
	assert.NotEmpty(t, sum.SessionID)

	_, err = sup.Stop(ctx)
	require.NoError(t, err)
}

func TestSupervisorStatusStopped(t *testing.T) {
	sup, _, _ := newTestSupervisor(t)
	st := sup.Status()
	assert.False(t, st.IsRunning)
	assert.Equal(t, models.HealthHealthy, st.Health)
	assert.Nil(t, st.Config)
}

func TestDeriveHealth(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		scans    int64
		errs     int64
		lastScan time.Time
		want     models.Health
	}{
		{"clean", 10, 0, now, models.HealthHealthy},
		{"moderate errors", 10, 3, now, models.HealthWarning},
		{"heavy errors", 10, 6, now, models.HealthError},
		{"stale", 10, 0, now.Add(-3 * time.Minute), models.HealthWarning},
		{"very stale", 10, 0, now.Add(-10 * time.Minute), models.HealthError},
		{"no scans yet", 0, 0, time.Time{}, models.HealthHealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, deriveHealth(tt.scans, tt.errs, tt.lastScan))
		})
	}
}

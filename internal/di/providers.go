package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	domrepo "TradeDesk/internal/domain/repository"
	domsvc "TradeDesk/internal/domain/service"
	"TradeDesk/internal/handler/api"
	internalrepo "TradeDesk/internal/repository"
	"TradeDesk/internal/service/broker"
	"TradeDesk/internal/service/gateway"
	"TradeDesk/internal/service/market"
	"TradeDesk/internal/service/quotes"
	"TradeDesk/internal/service/risk"
	"TradeDesk/internal/service/stream"
	"TradeDesk/internal/usecase"
	"TradeDesk/pkg/cache"
	pkgch "TradeDesk/pkg/clickhouse"
	"TradeDesk/pkg/config"
	pkgkafka "TradeDesk/pkg/kafka"
	xlogger "TradeDesk/pkg/logger"
	"TradeDesk/pkg/metrics"
	"TradeDesk/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*xlogger.Logger, error) {
	lc := &xlogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if lc.Level == "" {
		lc.Level = "info"
	}
	if lc.Format == "" {
		lc.Format = "json"
	}
	if lc.Output == "" {
		lc.Output = "stdout"
	}
	return xlogger.New(lc)
}

// ProvideMetrics creates the Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideCalendar creates the market-hours calendar.
func ProvideCalendar(cfg *config.Config) (*market.Calendar, error) {
	return market.New(cfg.Market.Timezone, cfg.Market.Open, cfg.Market.Close)
}

// ProvideActivityLog creates the ClickHouse activity log, or a no-op sink
// when ClickHouse is not configured.
func ProvideActivityLog(cfg *config.Config) (domrepo.ActivityLog, error) {
	if cfg.ClickHouse.Host == "" {
		return internalrepo.NoopActivityLog{}, nil
	}

	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log, err := internalrepo.NewClickHouseActivityLog(ctx, client)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return log, nil
}

// ProvideStateStore creates the Redis state store, or the in-memory fallback
// when Redis is disabled.
func ProvideStateStore(cfg *config.Config, cal *market.Calendar) (domrepo.StateStore, error) {
	if !cfg.Redis.Enabled {
		return internalrepo.NewMemoryStateStore(), nil
	}

	host, portStr, err := net.SplitHostPort(cfg.Redis.Addr)
	if err != nil {
		return nil, fmt.Errorf("redis addr: %w", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("redis port: %w", err)
	}

	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(host),
		cache.WithRedisPort(port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix("tradedesk"),
	)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	return internalrepo.NewRedisStateStore(rc, cal.Location()), nil
}

// ProvideEventPublisher creates the Kafka activity publisher, or a no-op
// when Kafka is disabled.
func ProvideEventPublisher(cfg *config.Config) (domrepo.Publisher, error) {
	if !cfg.Kafka.Enabled {
		return internalrepo.NoopPublisher{}, nil
	}

	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.ActivityTopic), nil
}

// ProvideGateway creates the rate-limited execution gateway.
func ProvideGateway(cfg *config.Config, log *xlogger.Logger, m domrepo.Metrics) *gateway.Gateway {
	rl := cfg.Broker.RateLimit
	return gateway.New(gateway.Config{
		RequestsPerWindow: rl.RequestsPerWindow,
		Window:            rl.Window,
		MaxRetries:        rl.MaxRetries,
		RetryBackoff:      rl.RetryBackoff,
		QueueSize:         rl.QueueSize,
	}, log, m)
}

// ProvideBroker creates the brokerage client behind the gateway. Every call
// the rest of the app makes goes through the request budget.
func ProvideBroker(cfg *config.Config, gw *gateway.Gateway) domsvc.Broker {
	raw := broker.NewClient(cfg.Broker.BaseURL, cfg.Broker.APIKey, cfg.Broker.APISecret, cfg.Broker.Timeout)
	return broker.NewGated(raw, gw)
}

// ProvideQuoteCache creates the in-process quote cache fed by the stream.
func ProvideQuoteCache() *quotes.Cache {
	return quotes.NewCache(30*time.Second, 120)
}

// ProvideMarketStream creates the brokerage websocket stream, or nil when
// no websocket URL is configured.
func ProvideMarketStream(cfg *config.Config) domsvc.MarketStream {
	if cfg.Broker.WebSocketURL == "" {
		return nil
	}
	return stream.New(
		cfg.Broker.APIKey,
		cfg.Broker.WebSocketURL,
		cfg.Bot.Watchlist,
		cfg.Broker.ReconnectDelay,
		cfg.Broker.PingInterval,
	)
}

// ProvideQuoteCollector creates the stream-to-cache pump, nil without a stream.
func ProvideQuoteCollector(ms domsvc.MarketStream, qc *quotes.Cache, log *xlogger.Logger) *usecase.QuoteCollector {
	if ms == nil {
		return nil
	}
	return usecase.NewQuoteCollector(ms, qc, log)
}

// ProvideRiskEngine creates the risk engine with the configured limits.
func ProvideRiskEngine(cfg *config.Config) *risk.Engine {
	return risk.NewEngine(cfg.Bot.Risk)
}

// ProvideSupervisor creates the session supervisor.
func ProvideSupervisor(
	cfg *config.Config,
	riskEngine *risk.Engine,
	brk domsvc.Broker,
	cal *market.Calendar,
	qc *quotes.Cache,
	state domrepo.StateStore,
	activity domrepo.ActivityLog,
	events domrepo.Publisher,
	m domrepo.Metrics,
	log *xlogger.Logger,
) *usecase.Supervisor {
	return usecase.NewSupervisor(cfg, usecase.ScannerDeps{
		Risk:     riskEngine,
		Broker:   brk,
		Calendar: cal,
		Quotes:   qc,
		State:    state,
		Activity: activity,
		Events:   events,
		Metrics:  m,
		Log:      log,
		Location: cal.Location(),
	})
}

// ProvideBotHandler creates the HTTP control-surface handler.
func ProvideBotHandler(cfg *config.Config, log *xlogger.Logger, sup *usecase.Supervisor, gw *gateway.Gateway, riskEngine *risk.Engine, state domrepo.StateStore) *api.BotHandler {
	return api.NewBotHandler(log, sup, gw, riskEngine, state, cfg.Bot.Execution)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *xlogger.Logger,
	sup *usecase.Supervisor,
	collector *usecase.QuoteCollector,
	gw *gateway.Gateway,
	handler *api.BotHandler,
	state domrepo.StateStore,
	activity domrepo.ActivityLog,
	events domrepo.Publisher,
) *server.App {
	return server.New(cfg, log, sup, collector, gw, handler, state, activity, events)
}

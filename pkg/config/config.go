package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Broker struct {
		APIKey         string        `yaml:"api_key"`
		APISecret      string        `yaml:"api_secret"`
		BaseURL        string        `yaml:"base_url"`
		WebSocketURL   string        `yaml:"websocket_url"`
		Timeout        time.Duration `yaml:"timeout"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
		RateLimit      struct {
			RequestsPerWindow int           `yaml:"requests_per_window"`
			Window            time.Duration `yaml:"window"`
			MaxRetries        int           `yaml:"max_retries"`
			RetryBackoff      time.Duration `yaml:"retry_backoff"`
			QueueSize         int           `yaml:"queue_size"`
		} `yaml:"rate_limit"`
	} `yaml:"broker"`
	Bot struct {
		AutoStart          bool              `yaml:"auto_start"`
		ScanInterval       time.Duration     `yaml:"scan_interval"`
		ScanBatchSize      int               `yaml:"scan_batch_size"`
		ProducerLimit      int               `yaml:"producer_concurrency"`
		Watchlist          []string          `yaml:"watchlist"`
		Mode               string            `yaml:"mode"`
		Strategies         []StrategyConfig  `yaml:"strategies"`
		StrategyAPIURL     string            `yaml:"strategy_api_url"`
		StrategyAPITimeout time.Duration     `yaml:"strategy_api_timeout"`
		Risk               RiskLimits        `yaml:"risk"`
		Execution          ExecutionSettings `yaml:"execution"`
	} `yaml:"bot"`
	Market struct {
		Timezone string `yaml:"timezone"`
		Open     string `yaml:"open"`
		Close    string `yaml:"close"`
	} `yaml:"market"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Kafka struct {
		Enabled       bool     `yaml:"enabled"`
		Brokers       []string `yaml:"brokers"`
		ActivityTopic string   `yaml:"activity_topic"`
		RequiredAcks  int      `yaml:"required_acks"`
		Compression   string   `yaml:"compression"`
		Producer      struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
}

// StrategyConfig describes one signal producer entry.
type StrategyConfig struct {
	ID      string  `yaml:"id" json:"id"`
	Name    string  `yaml:"name" json:"name"`
	Enabled bool    `yaml:"enabled" json:"enabled"`
	Weight  float64 `yaml:"weight" json:"weight"`
}

// RiskLimits are the hard limits the risk engine enforces. Breaching any of
// them rejects the candidate outright rather than producing a warning.
type RiskLimits struct {
	MaxPositionSize    float64 `yaml:"max_position_size" json:"maxPositionSize"` // percent of account
	MaxDailyLoss       float64 `yaml:"max_daily_loss" json:"maxDailyLoss"`
	MaxDrawdown        float64 `yaml:"max_drawdown" json:"maxDrawdown"` // percent
	MinConfidence      float64 `yaml:"min_confidence" json:"minConfidence"`
	MinRiskRewardRatio float64 `yaml:"min_risk_reward_ratio" json:"minRiskRewardRatio"`
	CorrelationLimit   float64 `yaml:"correlation_limit" json:"correlationLimit"`
	StopLossPercent    float64 `yaml:"stop_loss_percent" json:"stopLossPercent"`
	TakeProfitPercent  float64 `yaml:"take_profit_percent" json:"takeProfitPercent"`
}

// ExecutionSettings control whether and how consensus turns into orders.
type ExecutionSettings struct {
	AutoExecute           bool    `yaml:"auto_execute" json:"autoExecute"`
	MinConfidenceForOrder float64 `yaml:"min_confidence_for_order" json:"minConfidenceForOrder"`
	MaxOrdersPerDay       int     `yaml:"max_orders_per_day" json:"maxOrdersPerDay"`
	OrderSizePercent      float64 `yaml:"order_size_percent" json:"orderSizePercent"`
	MarketHoursOnly       bool    `yaml:"market_hours_only" json:"marketHoursOnly"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Validate required fields
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables
	if v := os.Getenv("BROKER_API_KEY"); v != "" {
		c.Broker.APIKey = v
	}
	if v := os.Getenv("BROKER_API_SECRET"); v != "" {
		c.Broker.APISecret = v
	}
	if v := os.Getenv("WATCHLIST"); v != "" {
		c.Bot.Watchlist = strings.Split(v, ",")
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("AUTO_EXECUTE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Bot.Execution.AutoExecute = b
		}
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Broker.BaseURL == "" {
		return fmt.Errorf("broker.base_url is required")
	}
	if len(c.Bot.Watchlist) == 0 {
		return fmt.Errorf("bot.watchlist cannot be empty")
	}
	enabled := 0
	for _, s := range c.Bot.Strategies {
		if s.ID == "" {
			return fmt.Errorf("strategy id is required")
		}
		if s.Weight < 0 {
			return fmt.Errorf("strategy %s: weight must be >= 0", s.ID)
		}
		if s.Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		return fmt.Errorf("at least one enabled strategy is required")
	}
	if c.Bot.ScanInterval <= 0 {
		c.Bot.ScanInterval = 60 * time.Second
	}
	if c.Bot.ScanBatchSize <= 0 {
		c.Bot.ScanBatchSize = 10
	}
	if c.Bot.ProducerLimit <= 0 {
		c.Bot.ProducerLimit = 4
	}
	if c.Bot.Execution.MinConfidenceForOrder < 0 || c.Bot.Execution.MinConfidenceForOrder > 1 {
		return fmt.Errorf("bot.execution.min_confidence_for_order must be in [0,1]")
	}
	return nil
}

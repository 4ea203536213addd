package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"RegimeGuard/pkg/util"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"oneof=development staging production"`

	Log struct {
		Level      string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format     string `yaml:"format" default:"json" validate:"oneof=json console"`
		Output     string `yaml:"output" default:"stdout"`
		TimeFormat string `yaml:"time_format"`
		Collector  struct {
			Enabled        bool          `yaml:"enabled"`
			FlushInterval  time.Duration `yaml:"flush_interval" default:"30s"`
			CountThreshold int           `yaml:"count_threshold" default:"100" validate:"gte=1"`
		} `yaml:"collector"`
	} `yaml:"log"`

	Server struct {
		Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"150s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
		RateLimit       struct {
			PerSecond float64       `yaml:"per_second" default:"5" validate:"gt=0"`
			Burst     int           `yaml:"burst" default:"10" validate:"gte=1"`
			IdleTTL   time.Duration `yaml:"idle_ttl" default:"10m"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`

	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`

	Finnhub struct {
		APIKey             string        `yaml:"api_key"`
		BaseURL            string        `yaml:"base_url" default:"https://finnhub.io/api/v1" validate:"url"`
		Timeout            time.Duration `yaml:"timeout" default:"10s"`
		RateLimitPerMinute int           `yaml:"rate_limit_per_minute" default:"60" validate:"gte=1"`
	} `yaml:"finnhub"`

	Cache struct {
		Backend string `yaml:"backend" default:"redis" validate:"oneof=redis memory"`
		Prefix  string `yaml:"prefix" default:"regimeguard"`
		OnError string `yaml:"on_error" default:"fresh" validate:"oneof=fresh fail"`
		TTL     struct {
			Quote           time.Duration `yaml:"quote" default:"0s"`
			News            time.Duration `yaml:"news" default:"0s"`
			Candles         time.Duration `yaml:"candles" default:"24h"`
			Financials      time.Duration `yaml:"financials" default:"24h"`
			Recommendations time.Duration `yaml:"recommendations" default:"24h"`
			Insiders        time.Duration `yaml:"insiders" default:"24h"`
			Earnings        time.Duration `yaml:"earnings" default:"24h"`
			Profile         time.Duration `yaml:"profile" default:"168h"`
			Peers           time.Duration `yaml:"peers" default:"168h"`
		} `yaml:"ttl"`
		Memory struct {
			MaxSize         int           `yaml:"max_size" default:"10000" validate:"gte=0"`
			CleanupInterval time.Duration `yaml:"cleanup_interval" default:"5m"`
		} `yaml:"memory"`
	} `yaml:"cache"`

	Redis struct {
		Host         string        `yaml:"host" default:"localhost"`
		Port         int           `yaml:"port" default:"6379" validate:"gte=1,lte=65535"`
		Password     string        `yaml:"password"`
		DB           int           `yaml:"db" validate:"gte=0"`
		PoolSize     int           `yaml:"pool_size" default:"10" validate:"gte=1"`
		MinIdleConns int           `yaml:"min_idle_conns" default:"2"`
		Timeout      time.Duration `yaml:"timeout" default:"5s"`
	} `yaml:"redis"`

	Retry struct {
		MaxAttempts       int           `yaml:"max_attempts" default:"3" validate:"gte=1,lte=10"`
		RateLimitBackoff  time.Duration `yaml:"rate_limit_backoff" default:"60s"`
		ServerBackoffBase time.Duration `yaml:"server_backoff_base" default:"1s"`
	} `yaml:"retry"`

	Evaluation struct {
		LookbackDays     int           `yaml:"lookback_days" default:"400" validate:"gte=30"`
		Benchmark        string        `yaml:"benchmark" default:"SPY" validate:"required"`
		Workers          int           `yaml:"workers" default:"4" validate:"gte=1,lte=64"`
		Timeout          time.Duration `yaml:"timeout" default:"2m"`
		VolatilityWindow int           `yaml:"volatility_window" default:"30" validate:"gte=2"`
	} `yaml:"evaluation"`

	History struct {
		Backend    string        `yaml:"backend" default:"none" validate:"oneof=none sqlite clickhouse"`
		SQLitePath string        `yaml:"sqlite_path" default:"regimeguard.db"`
		Table      string        `yaml:"table" default:"regime_evaluations"`
		Retention  time.Duration `yaml:"retention"`
	} `yaml:"history"`

	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"default"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		MaxOpenConns     int           `yaml:"max_open_conns" default:"10" validate:"gte=1"`
		MaxIdleConns     int           `yaml:"max_idle_conns" default:"5" validate:"gte=0"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`

	Kafka struct {
		Enabled      bool          `yaml:"enabled"`
		Brokers      []string      `yaml:"brokers"`
		Topic        string        `yaml:"topic" default:"regime.verdicts"`
		LogTopic     string        `yaml:"log_topic" default:"regimeguard.logs"`
		RequiredAcks int           `yaml:"required_acks" default:"-1" validate:"oneof=-1 0 1"`
		Compression  string        `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		BatchSize    int           `yaml:"batch_size" default:"100" validate:"gte=1"`
		BatchTimeout time.Duration `yaml:"batch_timeout" default:"50ms"`
		Async        bool          `yaml:"async"`
		AutoCreate   bool          `yaml:"auto_create_topic"`
	} `yaml:"kafka"`

	Advisor struct {
		Enabled         bool          `yaml:"enabled"`
		BaseURL         string        `yaml:"base_url"`
		APIKey          string        `yaml:"api_key"`
		Model           string        `yaml:"model" default:"gpt-4o-mini"`
		MaxTokens       int           `yaml:"max_tokens" default:"1024" validate:"gte=1"`
		Timeout         time.Duration `yaml:"timeout" default:"30s"`
		BreakerFailures uint32        `yaml:"breaker_failures" default:"3"`
		BreakerCooldown time.Duration `yaml:"breaker_cooldown" default:"60s"`
	} `yaml:"advisor"`
}

var validate = validator.New()

// Load applies, in order: .env, struct defaults, the YAML file (when path is
// not empty), environment overrides and validation.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := c.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v := getenv(key)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("env %s: %w", key, err)
		}
		*dst = n
		return nil
	}

	str("FINNHUB_API_KEY", &c.Finnhub.APIKey)
	str("REDIS_HOST", &c.Redis.Host)
	str("REDIS_PASSWORD", &c.Redis.Password)
	str("OPENAI_API_KEY", &c.Advisor.APIKey)
	str("OPENAI_BASE_URL", &c.Advisor.BaseURL)
	str("CLICKHOUSE_HOST", &c.ClickHouse.Host)
	str("CLICKHOUSE_DATABASE", &c.ClickHouse.Database)
	str("CLICKHOUSE_USER", &c.ClickHouse.User)
	str("CLICKHOUSE_PASSWORD", &c.ClickHouse.Password)
	str("LOG_LEVEL", &c.Log.Level)
	str("HISTORY_BACKEND", &c.History.Backend)
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = util.SplitCSV(v)
		c.Kafka.Enabled = true
	}
	for key, dst := range map[string]*int{
		"REDIS_PORT":            &c.Redis.Port,
		"CLICKHOUSE_PORT":       &c.ClickHouse.Port,
		"RATE_LIMIT_PER_MINUTE": &c.Finnhub.RateLimitPerMinute,
		"SERVER_PORT":           &c.Server.Port,
	} {
		if err := num(key, dst); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks struct tags, then the rules that span sections.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Finnhub.APIKey == "" {
		return fmt.Errorf("finnhub.api_key is required (or set FINNHUB_API_KEY)")
	}
	if c.Cache.Backend == "redis" && c.Redis.Host == "" {
		return fmt.Errorf("redis.host is required when cache.backend is redis")
	}
	if c.History.Backend == "clickhouse" && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when history.backend is clickhouse")
	}
	if c.History.Backend == "sqlite" && c.History.SQLitePath == "" {
		return fmt.Errorf("history.sqlite_path is required when history.backend is sqlite")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Advisor.Enabled && (c.Advisor.APIKey == "" || c.Advisor.Model == "") {
		return fmt.Errorf("advisor.api_key and advisor.model are required when the advisor is enabled")
	}
	if c.Log.Collector.Enabled && !c.Kafka.Enabled {
		return fmt.Errorf("log.collector requires kafka to be enabled")
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Backend names accepted by the cache and prices sections.
const (
	CacheMemory  = "memory"
	CacheRedis   = "redis"
	CacheLayered = "layered"

	PricesMemory     = "memory"
	PricesClickHouse = "clickhouse"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		AllowOrigins    []string      `yaml:"allow_origins" default:"[\"*\"]"`
		RateLimit       struct {
			Capacity     float64 `yaml:"capacity" default:"10"`
			RefillPerSec float64 `yaml:"refill_per_sec" default:"1"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"json"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Cache struct {
		Backend       string        `yaml:"backend" default:"memory"`
		SessionTTL    time.Duration `yaml:"session_ttl" default:"30m"`
		// MemoryMaxSize caps the memory backend. Once reached, the least
		// recently used session is evicted before its TTL. 0 means no cap.
		MemoryMaxSize int           `yaml:"memory_max_size"`
		MemoryCleanup time.Duration `yaml:"memory_cleanup" default:"1m"`
		// L1MaxSize caps the in-process layer of the layered backend; Redis
		// still holds evicted sessions.
		L1MaxSize int           `yaml:"l1_max_size" default:"10000"`
		MemoryTTL time.Duration `yaml:"memory_ttl" default:"1m"`
		Redis         struct {
			Host     string `yaml:"host" default:"localhost"`
			Port     int    `yaml:"port" default:"6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix" default:"fincorr"`
			PoolSize int    `yaml:"pool_size" default:"10"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Prices struct {
		Backend         string `yaml:"backend" default:"memory"`
		Fixture         string `yaml:"fixture"`
		Table           string `yaml:"table" default:"fincorr.daily_closes"`
		MinObservations int    `yaml:"min_observations" default:"3"`
		InitSchema      bool   `yaml:"init_schema"`
	} `yaml:"prices"`
	ClickHouse struct {
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"fincorr"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Enabled         bool          `yaml:"enabled"`
		Brokers         []string      `yaml:"brokers" default:"[\"localhost:9092\"]"`
		Topic           string        `yaml:"topic" default:"correlation.analysis.completed"`
		RequiredAcks    int           `yaml:"required_acks" default:"-1"`
		Compression     string        `yaml:"compression" default:"snappy"`
		BatchTimeout    time.Duration `yaml:"batch_timeout" default:"10ms"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		Async           bool          `yaml:"async"`
		AutoCreateTopic bool          `yaml:"auto_create_topic"`
	} `yaml:"kafka"`
	Analysis struct {
		DefaultThreshold float64 `yaml:"default_threshold" default:"0.7"`
		Workers          int     `yaml:"workers" default:"4"`
	} `yaml:"analysis"`
}

// Default returns a configuration populated from `default` tags only.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return &c, nil
}

// Load reads and parses a YAML configuration file. Keys absent from the
// file keep their defaults.
func Load(path string) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment
// variables. A .env file in the working directory is read first when present.
// An empty path skips the file and starts from defaults.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var (
		c   *Config
		err error
	)
	if path == "" {
		c, err = Default()
	} else {
		c, err = Load(path)
	}
	if err != nil {
		return nil, err
	}

	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("FINCORR_ENV"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("HTTP_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("HTTP_PORT: %w", err)
		}
		c.Server.Port = p
	}
	if v := os.Getenv("PRICE_BACKEND"); v != "" {
		c.Prices.Backend = v
	}
	if v := os.Getenv("PRICE_FIXTURE"); v != "" {
		c.Prices.Fixture = v
	}
	if v := os.Getenv("CACHE_BACKEND"); v != "" {
		c.Cache.Backend = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		host, port, err := splitHostPort(v)
		if err != nil {
			return fmt.Errorf("REDIS_ADDR: %w", err)
		}
		c.Cache.Redis.Host, c.Cache.Redis.Port = host, port
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Cache.Redis.Password = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	return nil
}

func splitHostPort(addr string) (string, int, error) {
	i := strings.LastIndexByte(addr, ':')
	if i < 0 {
		return addr, 6379, nil
	}
	port, err := strconv.Atoi(addr[i+1:])
	if err != nil {
		return "", 0, fmt.Errorf("invalid port in %q", addr)
	}
	return addr[:i], port, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	switch c.Cache.Backend {
	case CacheMemory, CacheRedis, CacheLayered:
	default:
		return fmt.Errorf("cache.backend must be 'memory', 'redis' or 'layered', got '%s'", c.Cache.Backend)
	}
	if c.Cache.MemoryMaxSize < 0 || c.Cache.L1MaxSize < 0 {
		return fmt.Errorf("cache size caps must not be negative")
	}
	if c.Cache.MemoryCleanup <= 0 {
		return fmt.Errorf("cache.memory_cleanup must be positive")
	}
	if c.Cache.SessionTTL <= 0 {
		return fmt.Errorf("cache.session_ttl must be positive")
	}
	switch c.Prices.Backend {
	case PricesMemory, PricesClickHouse:
	default:
		return fmt.Errorf("prices.backend must be 'memory' or 'clickhouse', got '%s'", c.Prices.Backend)
	}
	if c.Prices.MinObservations < 3 {
		return fmt.Errorf("prices.min_observations must be at least 3, got %d", c.Prices.MinObservations)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if t := c.Analysis.DefaultThreshold; t < 0 || t > 1 {
		return fmt.Errorf("analysis.default_threshold must be within [0, 1], got %v", t)
	}
	if c.Analysis.Workers < 1 {
		return fmt.Errorf("analysis.workers must be at least 1")
	}
	return nil
}

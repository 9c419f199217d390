package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	RabbitMQ  RabbitMQConfig  `mapstructure:"rabbitmq"`
	Cache     CacheConfig     `mapstructure:"cache"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// RedisConfig backs the account read cache and the rate limiter. Timeouts are
// short so a slow Redis degrades reads to Postgres instead of stalling them.
type RedisConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// RabbitMQConfig covers the broker connection and the sharded settlement topology.
// ShardCount is fixed for the lifetime of a topology; changing it is a migration.
type RabbitMQConfig struct {
	Host                  string        `mapstructure:"host"`
	Port                  int           `mapstructure:"port"`
	User                  string        `mapstructure:"user"`
	Password              string        `mapstructure:"password"`
	VHost                 string        `mapstructure:"vhost"`
	UseTLS                bool          `mapstructure:"use_tls"`
	PrefetchCount         int           `mapstructure:"prefetch_count"`
	PublisherConfirms     bool          `mapstructure:"publisher_confirms"`
	PublishConfirmTimeout time.Duration `mapstructure:"publish_confirm_timeout"`
	ShardCount            int           `mapstructure:"shard_count"`
	MaxAttempts           int           `mapstructure:"max_attempts"`
	RetryTTL              time.Duration `mapstructure:"retry_ttl"`
	Exchange              string        `mapstructure:"exchange"`
	RoutingKeyBase        string        `mapstructure:"routing_key_base"`
	QueueBase             string        `mapstructure:"queue_base"`
	ReconnectInterval     time.Duration `mapstructure:"reconnect_interval"`
}

// URL returns the AMQP connection URL.
func (r RabbitMQConfig) URL() string {
	scheme := "amqp"
	if r.UseTLS {
		scheme = "amqps"
	}
	vhost := strings.TrimPrefix(r.VHost, "/")
	u := url.URL{
		Scheme:  scheme,
		User:    url.UserPassword(r.User, r.Password),
		Host:    fmt.Sprintf("%s:%d", r.Host, r.Port),
		Path:    "/" + vhost,
		RawPath: "/" + url.PathEscape(vhost),
	}
	return u.String()
}

type CacheConfig struct {
	AccountTTL time.Duration `mapstructure:"account_ttl"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

// RateLimitConfig sets per-owner request limits on the HTTP API. A zero limit disables the check.
type RateLimitConfig struct {
	TransactionsPerMinute int64 `mapstructure:"transactions_per_minute"`
	ReadsPerMinute        int64 `mapstructure:"reads_per_minute"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Validate rejects settings the settlement pipeline cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.RabbitMQ.ShardCount < 1 {
		errs = append(errs, errors.New("rabbitmq.shard_count must be a positive integer"))
	}
	if c.RabbitMQ.MaxAttempts < 1 {
		errs = append(errs, errors.New("rabbitmq.max_attempts must be at least 1"))
	}
	if c.RabbitMQ.PrefetchCount < 1 {
		errs = append(errs, errors.New("rabbitmq.prefetch_count must be at least 1"))
	}
	if c.RabbitMQ.RetryTTL <= 0 {
		errs = append(errs, errors.New("rabbitmq.retry_ttl must be positive"))
	}
	if c.RabbitMQ.PublishConfirmTimeout <= 0 {
		errs = append(errs, errors.New("rabbitmq.publish_confirm_timeout must be positive"))
	}
	if c.RabbitMQ.Exchange == "" || c.RabbitMQ.RoutingKeyBase == "" || c.RabbitMQ.QueueBase == "" {
		errs = append(errs, errors.New("rabbitmq exchange, routing_key_base and queue_base are required"))
	}
	return errors.Join(errs...)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: LEDGER_.
// Nested keys use underscore: LEDGER_DATABASE_HOST, LEDGER_RABBITMQ_SHARD_COUNT, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "ledger")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 20)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.dial_timeout", "2s")
	v.SetDefault("redis.read_timeout", "500ms")
	v.SetDefault("redis.write_timeout", "500ms")
	v.SetDefault("rabbitmq.host", "localhost")
	v.SetDefault("rabbitmq.port", 5672)
	v.SetDefault("rabbitmq.user", "guest")
	v.SetDefault("rabbitmq.password", "guest")
	v.SetDefault("rabbitmq.vhost", "/")
	v.SetDefault("rabbitmq.use_tls", false)
	v.SetDefault("rabbitmq.prefetch_count", 20)
	v.SetDefault("rabbitmq.publisher_confirms", true)
	v.SetDefault("rabbitmq.publish_confirm_timeout", "5s")
	v.SetDefault("rabbitmq.shard_count", 16)
	v.SetDefault("rabbitmq.max_attempts", 5)
	v.SetDefault("rabbitmq.retry_ttl", "15s")
	v.SetDefault("rabbitmq.exchange", "transactions.exchange")
	v.SetDefault("rabbitmq.routing_key_base", "transactions")
	v.SetDefault("rabbitmq.queue_base", "transactions")
	v.SetDefault("rabbitmq.reconnect_interval", "5s")
	v.SetDefault("cache.account_ttl", "24h")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "async-ledger")
	v.SetDefault("ratelimit.transactions_per_minute", 120)
	v.SetDefault("ratelimit.reads_per_minute", 600)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: LEDGER_DATABASE_HOST -> database.host
	v.SetEnvPrefix("LEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required, env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

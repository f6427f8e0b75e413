package config

import (
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// Config represents the complete application configuration. Values come from
// the YAML file first; environment variables override them.
type Config struct {
	Server   ServerConfig   `yaml:"server" envPrefix:"SERVER_"`
	Database DatabaseConfig `yaml:"database" envPrefix:"DB_"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq" envPrefix:"RABBITMQ_"`
	Redis    RedisConfig    `yaml:"redis" envPrefix:"REDIS_"`
	Logging  LoggingConfig  `yaml:"logging" envPrefix:"LOG_"`
	App      AppConfig      `yaml:"app" envPrefix:"APP_"`
	Worker   WorkerConfig   `yaml:"worker" envPrefix:"WORKER_"`
	Booking  BookingConfig  `yaml:"booking" envPrefix:"BOOKING_"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" env:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	Host            string        `yaml:"host" env:"HOST"`
	Port            int           `yaml:"port" env:"PORT"`
	User            string        `yaml:"user" env:"USER"`
	Password        string        `yaml:"password" env:"PASSWORD"`
	Database        string        `yaml:"database" env:"NAME"`
	SSLMode         string        `yaml:"sslmode" env:"SSLMODE"`
	MaxOpenConns    int           `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" env:"CONN_MAX_IDLE_TIME"`
	AutoMigrate     bool          `yaml:"auto_migrate" env:"AUTO_MIGRATE"`
}

// RabbitMQConfig holds RabbitMQ connection and exchange/queue configuration
type RabbitMQConfig struct {
	Host       string           `yaml:"host" env:"HOST"`
	Port       int              `yaml:"port" env:"PORT"`
	User       string           `yaml:"user" env:"USER"`
	Password   string           `yaml:"password" env:"PASSWORD"`
	VHost      string           `yaml:"vhost" env:"VHOST"`
	Exchange   ExchangeConfig   `yaml:"exchange" envPrefix:"EXCHANGE_"`
	Queue      QueueConfig      `yaml:"queue" envPrefix:"QUEUE_"`
	RoutingKey string           `yaml:"routing_key" env:"ROUTING_KEY"`
	Connection ConnectionConfig `yaml:"connection" envPrefix:"CONNECTION_"`
	Publish    PublishConfig    `yaml:"publish" envPrefix:"PUBLISH_"`
	Consumer   ConsumerConfig   `yaml:"consumer" envPrefix:"CONSUMER_"`
}

// ExchangeConfig holds RabbitMQ exchange configuration
type ExchangeConfig struct {
	Name       string `yaml:"name" env:"NAME"`
	Type       string `yaml:"type" env:"TYPE"`
	Durable    bool   `yaml:"durable" env:"DURABLE"`
	AutoDelete bool   `yaml:"auto_delete" env:"AUTO_DELETE"`
}

// QueueConfig holds RabbitMQ queue configuration
type QueueConfig struct {
	Name       string `yaml:"name" env:"NAME"`
	Durable    bool   `yaml:"durable" env:"DURABLE"`
	AutoDelete bool   `yaml:"auto_delete" env:"AUTO_DELETE"`
	Exclusive  bool   `yaml:"exclusive" env:"EXCLUSIVE"`
}

// ConnectionConfig holds RabbitMQ connection settings
type ConnectionConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts" env:"RETRY_ATTEMPTS"`
	RetryInterval     time.Duration `yaml:"retry_interval" env:"RETRY_INTERVAL"`
	Heartbeat         time.Duration `yaml:"heartbeat" env:"HEARTBEAT"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout" env:"TIMEOUT"`
}

// PublishConfig holds RabbitMQ publish retry settings
type PublishConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts" env:"RETRY_ATTEMPTS"`
	RetryInterval     time.Duration `yaml:"retry_interval" env:"RETRY_INTERVAL"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier" env:"BACKOFF_MULTIPLIER"`
}

// ConsumerConfig holds RabbitMQ consumer settings
type ConsumerConfig struct {
	PrefetchCount int  `yaml:"prefetch_count" env:"PREFETCH_COUNT"`
	Exclusive     bool `yaml:"exclusive" env:"EXCLUSIVE"`
}

// RedisConfig holds the push preference cache settings. An empty address
// disables the cache.
type RedisConfig struct {
	Addr     string        `yaml:"addr" env:"ADDR"`
	Password string        `yaml:"password" env:"PASSWORD"`
	DB       int           `yaml:"db" env:"DB"`
	CacheTTL time.Duration `yaml:"cache_ttl" env:"CACHE_TTL"`
}

// Enabled reports whether a Redis address is configured
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level            string `yaml:"level" env:"LEVEL"`
	Format           string `yaml:"format" env:"FORMAT"`
	Output           string `yaml:"output" env:"OUTPUT"`
	EnableCaller     bool   `yaml:"enable_caller" env:"ENABLE_CALLER"`
	EnableStackTrace bool   `yaml:"enable_stack_trace" env:"ENABLE_STACK_TRACE"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name" env:"NAME"`
	Version     string `yaml:"version" env:"VERSION"`
	Environment string `yaml:"environment" env:"ENVIRONMENT"`
}

// WorkerConfig holds worker service configuration
type WorkerConfig struct {
	Concurrency       int           `yaml:"concurrency" env:"CONCURRENCY"`
	MaxJobs           int           `yaml:"max_jobs" env:"MAX_JOBS"`
	JobTimeout        time.Duration `yaml:"job_timeout" env:"JOB_TIMEOUT"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval" env:"HEARTBEAT_INTERVAL"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	DeliveryRetries   int           `yaml:"delivery_retries" env:"DELIVERY_RETRIES"`
	DeliveryBackoff   time.Duration `yaml:"delivery_backoff" env:"DELIVERY_BACKOFF"`
	BroadcastRequeues int           `yaml:"broadcast_requeues" env:"BROADCAST_REQUEUES"`
}

// BookingConfig holds the booking engine policies
type BookingConfig struct {
	Timezone      string        `yaml:"timezone" env:"TIMEZONE"`
	Locale        string        `yaml:"locale" env:"LOCALE"`
	ImmediateLead time.Duration `yaml:"immediate_lead" env:"IMMEDIATE_LEAD"`
	CancelWindow  time.Duration `yaml:"cancel_window" env:"CANCEL_WINDOW"`
	SupportPhone  string        `yaml:"support_phone" env:"SUPPORT_PHONE"`
}

// Location resolves Timezone, defaulting to UTC
func (b BookingConfig) Location() (*time.Location, error) {
	if b.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(b.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid booking timezone %q: %w", b.Timezone, err)
	}
	return loc, nil
}

// Load reads and parses the configuration file, then applies environment
// overrides
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := env.Parse(&config); err != nil {
		return nil, fmt.Errorf("failed to parse environment overrides: %w", err)
	}

	return &config, nil
}

// ValidateAPIConfig checks the settings the API service needs
func (c *Config) ValidateAPIConfig() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if err := c.validateStores(); err != nil {
		return err
	}

	if c.Booking.ImmediateLead < 0 || c.Booking.CancelWindow < 0 {
		return fmt.Errorf("booking durations must not be negative")
	}

	if _, err := c.Booking.Location(); err != nil {
		return err
	}

	return nil
}

// ValidateWorkerConfig checks the settings the notification worker needs
func (c *Config) ValidateWorkerConfig() error {
	if err := c.validateStores(); err != nil {
		return err
	}

	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("worker concurrency must be greater than 0")
	}

	if c.Worker.MaxJobs <= 0 {
		return fmt.Errorf("worker max_jobs must be greater than 0")
	}

	if c.Worker.JobTimeout <= 0 {
		return fmt.Errorf("worker job_timeout must be greater than 0")
	}

	if c.Worker.HeartbeatInterval <= 0 {
		return fmt.Errorf("worker heartbeat_interval must be greater than 0")
	}

	if c.Worker.ShutdownTimeout <= 0 {
		return fmt.Errorf("worker shutdown_timeout must be greater than 0")
	}

	if c.Worker.DeliveryRetries < 0 {
		return fmt.Errorf("worker delivery_retries must not be negative")
	}

	if c.Worker.DeliveryBackoff < 0 {
		return fmt.Errorf("worker delivery_backoff must not be negative")
	}

	if c.Worker.BroadcastRequeues < 0 {
		return fmt.Errorf("worker broadcast_requeues must not be negative")
	}

	return nil
}

func (c *Config) validateStores() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < MinPort || c.Database.Port > MaxPort {
		return fmt.Errorf("invalid database port: %d (must be between %d and %d)", c.Database.Port, MinPort, MaxPort)
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.RabbitMQ.Host == "" {
		return fmt.Errorf("rabbitmq host is required")
	}

	if c.RabbitMQ.Port < MinPort || c.RabbitMQ.Port > MaxPort {
		return fmt.Errorf("invalid rabbitmq port: %d (must be between %d and %d)", c.RabbitMQ.Port, MinPort, MaxPort)
	}

	if c.RabbitMQ.Exchange.Name == "" {
		return fmt.Errorf("rabbitmq exchange name is required")
	}

	if c.RabbitMQ.Queue.Name == "" {
		return fmt.Errorf("rabbitmq queue name is required")
	}

	if c.Redis.CacheTTL < 0 {
		return fmt.Errorf("redis cache_ttl must not be negative")
	}

	return nil
}

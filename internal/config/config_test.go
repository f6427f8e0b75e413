package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		filePath  string
		wantErr   bool
		errString string
	}{
		{
			name:     "valid config file",
			filePath: "testdata/valid_config.yaml",
			wantErr:  false,
		},
		{
			name:      "non-existent file",
			filePath:  "testdata/nonexistent.yaml",
			wantErr:   true,
			errString: "failed to read config file",
		},
		{
			name:      "malformed yaml",
			filePath:  "testdata/malformed.yaml",
			wantErr:   true,
			errString: "failed to parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.filePath)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
				assert.Nil(t, cfg)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)

			assert.Equal(t, 8080, cfg.Server.Port)
			assert.Equal(t, "localhost", cfg.Database.Host)
			assert.Equal(t, 5432, cfg.Database.Port)
			assert.Equal(t, "jobs_db", cfg.Database.Database)
			assert.Equal(t, "jobs_exchange", cfg.RabbitMQ.Exchange.Name)
			assert.Equal(t, "jobs_queue", cfg.RabbitMQ.Queue.Name)
			assert.Equal(t, "job-api-service", cfg.App.Name)
			assert.Equal(t, 10*time.Minute, cfg.Redis.CacheTTL)
			assert.Equal(t, 24*time.Hour, cfg.Booking.CancelWindow)
			assert.Equal(t, "+46 73 75 86 865", cfg.Booking.SupportPhone)
		})
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_NAME", "bookings")
	t.Setenv("RABBITMQ_EXCHANGE_NAME", "booking_events")
	t.Setenv("BOOKING_CANCEL_WINDOW", "12h")

	cfg, err := Load("testdata/valid_config.yaml")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "bookings", cfg.Database.Database)
	assert.Equal(t, "booking_events", cfg.RabbitMQ.Exchange.Name)
	assert.Equal(t, 12*time.Hour, cfg.Booking.CancelWindow)

	// unset variables keep the file value
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestLoad_InvalidEnvironmentOverride(t *testing.T) {
	t.Setenv("SERVER_PORT", "eighty")

	cfg, err := Load("testdata/valid_config.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse environment overrides")
	assert.Nil(t, cfg)
}

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "jobs_db",
		},
		RabbitMQ: RabbitMQConfig{
			Host:     "localhost",
			Port:     5672,
			Exchange: ExchangeConfig{Name: "jobs_exchange"},
			Queue:    QueueConfig{Name: "jobs_queue"},
		},
		Worker: WorkerConfig{
			Concurrency:       2,
			MaxJobs:           10,
			JobTimeout:        time.Second,
			HeartbeatInterval: time.Second,
			ShutdownTimeout:   time.Second,
		},
	}
}

func TestConfig_ValidateAPIConfig(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(c *Config)
		errString string
	}{
		{name: "valid config"},
		{name: "invalid server port - too low", modify: func(c *Config) { c.Server.Port = 0 }, errString: "invalid server port"},
		{name: "invalid server port - too high", modify: func(c *Config) { c.Server.Port = 70000 }, errString: "invalid server port"},
		{name: "empty database host", modify: func(c *Config) { c.Database.Host = "" }, errString: "database host is required"},
		{name: "invalid database port", modify: func(c *Config) { c.Database.Port = -1 }, errString: "invalid database port"},
		{name: "empty database name", modify: func(c *Config) { c.Database.Database = "" }, errString: "database name is required"},
		{name: "empty rabbitmq host", modify: func(c *Config) { c.RabbitMQ.Host = "" }, errString: "rabbitmq host is required"},
		{name: "empty exchange name", modify: func(c *Config) { c.RabbitMQ.Exchange.Name = "" }, errString: "rabbitmq exchange name is required"},
		{name: "empty queue name", modify: func(c *Config) { c.RabbitMQ.Queue.Name = "" }, errString: "rabbitmq queue name is required"},
		{name: "negative cache ttl", modify: func(c *Config) { c.Redis.CacheTTL = -time.Second }, errString: "redis cache_ttl"},
		{name: "negative cancel window", modify: func(c *Config) { c.Booking.CancelWindow = -time.Hour }, errString: "booking durations"},
		{name: "unknown timezone", modify: func(c *Config) { c.Booking.Timezone = "Mars/Olympus" }, errString: "invalid booking timezone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			if tt.modify != nil {
				tt.modify(cfg)
			}

			err := cfg.ValidateAPIConfig()
			if tt.errString == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errString)
		})
	}
}

func TestConfig_ValidateWorkerConfig(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(c *Config)
		errString string
	}{
		{name: "valid config"},
		{name: "server port not required", modify: func(c *Config) { c.Server.Port = 0 }},
		{name: "zero concurrency", modify: func(c *Config) { c.Worker.Concurrency = 0 }, errString: "worker concurrency"},
		{name: "zero max jobs", modify: func(c *Config) { c.Worker.MaxJobs = 0 }, errString: "worker max_jobs"},
		{name: "zero job timeout", modify: func(c *Config) { c.Worker.JobTimeout = 0 }, errString: "worker job_timeout"},
		{name: "zero heartbeat", modify: func(c *Config) { c.Worker.HeartbeatInterval = 0 }, errString: "worker heartbeat_interval"},
		{name: "zero shutdown timeout", modify: func(c *Config) { c.Worker.ShutdownTimeout = 0 }, errString: "worker shutdown_timeout"},
		{name: "negative retries", modify: func(c *Config) { c.Worker.DeliveryRetries = -1 }, errString: "worker delivery_retries"},
		{name: "negative delivery backoff", modify: func(c *Config) { c.Worker.DeliveryBackoff = -time.Second }, errString: "worker delivery_backoff"},
		{name: "negative broadcast requeues", modify: func(c *Config) { c.Worker.BroadcastRequeues = -1 }, errString: "worker broadcast_requeues"},
		{name: "missing queue", modify: func(c *Config) { c.RabbitMQ.Queue.Name = "" }, errString: "rabbitmq queue name is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			if tt.modify != nil {
				tt.modify(cfg)
			}

			err := cfg.ValidateWorkerConfig()
			if tt.errString == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errString)
		})
	}
}

func TestLoad_ValidateIntegration(t *testing.T) {
	t.Run("load and validate valid config", func(t *testing.T) {
		cfg, err := Load("testdata/valid_config.yaml")
		require.NoError(t, err)
		require.NoError(t, cfg.ValidateAPIConfig())
		require.NoError(t, cfg.ValidateWorkerConfig())

		loc, err := cfg.Booking.Location()
		require.NoError(t, err)
		assert.Equal(t, "Europe/Stockholm", loc.String())
	})

	t.Run("load config with invalid port", func(t *testing.T) {
		cfg, err := Load("testdata/invalid_port.yaml")
		require.NoError(t, err)

		err = cfg.ValidateAPIConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid server port")
	})

	t.Run("load config with missing database", func(t *testing.T) {
		cfg, err := Load("testdata/missing_database.yaml")
		require.NoError(t, err)

		err = cfg.ValidateAPIConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database name is required")
	})
}

func TestBookingConfig_Location(t *testing.T) {
	loc, err := BookingConfig{}.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestRedisConfig_Enabled(t *testing.T) {
	assert.False(t, RedisConfig{}.Enabled())
	assert.True(t, RedisConfig{Addr: "localhost:6379"}.Enabled())
}

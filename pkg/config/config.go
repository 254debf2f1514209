package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Address         string        `yaml:"address" env:"MEET_SERVER_ADDRESS"`
		ReadTimeout     time.Duration `yaml:"read_timeout" env:"MEET_SERVER_READ_TIMEOUT"`
		WriteTimeout    time.Duration `yaml:"write_timeout" env:"MEET_SERVER_WRITE_TIMEOUT"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"MEET_SERVER_SHUTDOWN_TIMEOUT"`
		// Proxies allowed to set X-Forwarded-For. Empty trusts none.
		TrustedProxies []string `yaml:"trusted_proxies" env:"MEET_SERVER_TRUSTED_PROXIES" envSeparator:","`
	} `yaml:"server"`

	Logging struct {
		Level  string `yaml:"level" env:"MEET_LOG_LEVEL"`
		Format string `yaml:"format" env:"MEET_LOG_FORMAT"`
	} `yaml:"logging"`

	Redis struct {
		Enabled         bool   `yaml:"enabled" env:"MEET_REDIS_ENABLED"`
		Address         string `yaml:"address" env:"MEET_REDIS_ADDRESS"`
		Password        string `yaml:"password" env:"MEET_REDIS_PASSWORD"`
		DB              int    `yaml:"db" env:"MEET_REDIS_DB"`
		PoolSize        int    `yaml:"pool_size" env:"MEET_REDIS_POOL_SIZE"`
		ConnectAttempts int    `yaml:"connect_attempts" env:"MEET_REDIS_CONNECT_ATTEMPTS"`
	} `yaml:"redis"`

	Auth struct {
		JWTSecret      string        `yaml:"jwt_secret" env:"MEET_JWT_SECRET"`
		AccessTokenTTL time.Duration `yaml:"access_token_ttl" env:"MEET_ACCESS_TOKEN_TTL"`
	} `yaml:"auth"`

	// Lobby TTLs: accepted must outlive the issued LiveKit token, denied must be
	// short enough for the client to retry soon.
	Lobby struct {
		KeyPrefix        string        `yaml:"key_prefix" env:"MEET_LOBBY_KEY_PREFIX"`
		CookieName       string        `yaml:"cookie_name" env:"MEET_LOBBY_COOKIE_NAME"`
		CookieSecret     string        `yaml:"cookie_secret" env:"MEET_LOBBY_COOKIE_SECRET"`
		WaitingTimeout   time.Duration `yaml:"waiting_timeout" env:"MEET_LOBBY_WAITING_TIMEOUT"`
		AcceptedTimeout  time.Duration `yaml:"accepted_timeout" env:"MEET_LOBBY_ACCEPTED_TIMEOUT"`
		DeniedTimeout    time.Duration `yaml:"denied_timeout" env:"MEET_LOBBY_DENIED_TIMEOUT"`
		NotificationType string        `yaml:"notification_type" env:"MEET_LOBBY_NOTIFICATION_TYPE"`
	} `yaml:"lobby"`

	LiveKit struct {
		URL            string        `yaml:"url" env:"MEET_LIVEKIT_URL"`
		APIKey         string        `yaml:"api_key" env:"MEET_LIVEKIT_API_KEY"`
		APISecret      string        `yaml:"api_secret" env:"MEET_LIVEKIT_API_SECRET"`
		TokenTTL       time.Duration `yaml:"token_ttl" env:"MEET_LIVEKIT_TOKEN_TTL"`
		RequestTimeout time.Duration `yaml:"request_timeout" env:"MEET_LIVEKIT_REQUEST_TIMEOUT"`
	} `yaml:"livekit"`

	Telephony struct {
		Enabled bool `yaml:"enabled" env:"MEET_TELEPHONY_ENABLED"`
	} `yaml:"telephony"`

	Recording struct {
		Enabled      bool   `yaml:"enabled" env:"MEET_RECORDING_ENABLED"`
		OutputFolder string `yaml:"output_folder" env:"MEET_RECORDING_OUTPUT_FOLDER"`
		// Without a bucket files stay on the egress node.
		Storage struct {
			Bucket         string `yaml:"bucket" env:"MEET_RECORDING_STORAGE_BUCKET"`
			Region         string `yaml:"region" env:"MEET_RECORDING_STORAGE_REGION"`
			Endpoint       string `yaml:"endpoint" env:"MEET_RECORDING_STORAGE_ENDPOINT"`
			AccessKey      string `yaml:"access_key" env:"MEET_RECORDING_STORAGE_ACCESS_KEY"`
			Secret         string `yaml:"secret" env:"MEET_RECORDING_STORAGE_SECRET"`
			ForcePathStyle bool   `yaml:"force_path_style" env:"MEET_RECORDING_STORAGE_FORCE_PATH_STYLE"`
		} `yaml:"storage"`
	} `yaml:"recording"`

	CircuitBreaker struct {
		FailureThreshold    int           `yaml:"failure_threshold"`
		SuccessThreshold    int           `yaml:"success_threshold"`
		Timeout             time.Duration `yaml:"timeout"`
		MaxRequestsHalfOpen int           `yaml:"max_requests_half_open"`
	} `yaml:"circuit_breaker"`

	Monitoring struct {
		PrometheusEnabled bool `yaml:"prometheus_enabled" env:"MEET_PROMETHEUS_ENABLED"`
	} `yaml:"monitoring"`

	Tracing struct {
		Enabled     bool    `yaml:"enabled" env:"MEET_TRACING_ENABLED"`
		ServiceName string  `yaml:"service_name"`
		JaegerURL   string  `yaml:"jaeger_url" env:"MEET_JAEGER_URL"`
		Environment string  `yaml:"environment" env:"MEET_ENVIRONMENT"`
		SampleRate  float64 `yaml:"sample_rate"`
	} `yaml:"tracing"`

	// Applied to request-entry only: anonymous callers poll it.
	RateLimiting struct {
		Enabled           bool    `yaml:"enabled" env:"MEET_RATE_LIMITING_ENABLED"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		Burst             int     `yaml:"burst"`
		MaxConcurrent     int     `yaml:"max_concurrent"`
	} `yaml:"rate_limiting"`
}

// Validate checks that configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server.address must not be empty")
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be > 0")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be > 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be > 0")
	}

	if c.Logging.Level == "" {
		return fmt.Errorf("logging.level must not be empty")
	}

	if c.Redis.Enabled {
		if c.Redis.Address == "" {
			return fmt.Errorf("redis.address must not be empty when redis.enabled=true")
		}
		if c.Redis.PoolSize <= 0 {
			return fmt.Errorf("redis.pool_size must be > 0 when redis.enabled=true")
		}
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret must not be empty")
	}

	if c.Lobby.KeyPrefix == "" {
		return fmt.Errorf("lobby.key_prefix must not be empty")
	}
	if c.Lobby.CookieName == "" {
		return fmt.Errorf("lobby.cookie_name must not be empty")
	}
	if c.Lobby.WaitingTimeout <= 0 || c.Lobby.AcceptedTimeout <= 0 || c.Lobby.DeniedTimeout <= 0 {
		return fmt.Errorf("lobby timeouts must be > 0")
	}
	if c.Lobby.AcceptedTimeout < c.LiveKit.TokenTTL {
		return fmt.Errorf("lobby.accepted_timeout must be >= livekit.token_ttl")
	}
	if c.Lobby.CookieSecret != "" && len(c.Lobby.CookieSecret) < 32 {
		return fmt.Errorf("lobby.cookie_secret must be at least 32 bytes when set")
	}

	if c.LiveKit.URL == "" {
		return fmt.Errorf("livekit.url must not be empty")
	}
	if c.LiveKit.APIKey == "" || c.LiveKit.APISecret == "" {
		return fmt.Errorf("livekit.api_key and livekit.api_secret must not be empty")
	}
	if c.LiveKit.TokenTTL <= 0 {
		return fmt.Errorf("livekit.token_ttl must be > 0")
	}
	if c.LiveKit.RequestTimeout <= 0 {
		return fmt.Errorf("livekit.request_timeout must be > 0")
	}

	if c.Recording.Enabled {
		if c.Recording.OutputFolder == "" {
			return fmt.Errorf("recording.output_folder must not be empty when recording.enabled=true")
		}
		storage := c.Recording.Storage
		if storage.Bucket != "" && (storage.AccessKey == "" || storage.Secret == "") {
			return fmt.Errorf("recording.storage credentials must be set when recording.storage.bucket is set")
		}
	}

	if c.CircuitBreaker.FailureThreshold <= 0 || c.CircuitBreaker.SuccessThreshold <= 0 {
		return fmt.Errorf("circuit_breaker thresholds must be > 0")
	}
	if c.CircuitBreaker.Timeout <= 0 {
		return fmt.Errorf("circuit_breaker.timeout must be > 0")
	}

	if c.Tracing.Enabled && c.Tracing.JaegerURL == "" {
		return fmt.Errorf("tracing.jaeger_url must not be empty when tracing.enabled=true")
	}

	if c.RateLimiting.Enabled {
		if c.RateLimiting.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate_limiting.requests_per_second must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.Burst <= 0 {
			return fmt.Errorf("rate_limiting.burst must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.MaxConcurrent < 0 {
			return fmt.Errorf("rate_limiting.max_concurrent must be >= 0 when rate limiting is enabled")
		}
	}

	return nil
}

// Load reads configuration from YAML file, applies defaults and env overrides.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(configPath)
	switch {
	case os.IsNotExist(err):
		// defaults + environment only
	case err != nil:
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment overrides: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns configuration with sane defaults.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Server.Address = ":8080"
	cfg.Server.ReadTimeout = 30 * time.Second
	cfg.Server.WriteTimeout = 30 * time.Second
	cfg.Server.ShutdownTimeout = 30 * time.Second

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	cfg.Redis.Enabled = false
	cfg.Redis.Address = "localhost:6379"
	cfg.Redis.DB = 0
	cfg.Redis.PoolSize = 10
	cfg.Redis.ConnectAttempts = 3

	cfg.Auth.JWTSecret = "change-me-in-production"
	cfg.Auth.AccessTokenTTL = 15 * time.Minute

	cfg.Lobby.KeyPrefix = "room_lobby"
	cfg.Lobby.CookieName = "lobbyParticipantId"
	cfg.Lobby.WaitingTimeout = 3 * time.Second
	cfg.Lobby.AcceptedTimeout = 6 * time.Hour
	cfg.Lobby.DeniedTimeout = 5 * time.Second
	cfg.Lobby.NotificationType = "participantWaiting"

	cfg.LiveKit.URL = "http://localhost:7880"
	cfg.LiveKit.APIKey = "devkey"
	cfg.LiveKit.APISecret = "secret"
	cfg.LiveKit.TokenTTL = 6 * time.Hour
	cfg.LiveKit.RequestTimeout = 5 * time.Second

	cfg.Telephony.Enabled = false

	cfg.Recording.Enabled = false
	cfg.Recording.OutputFolder = "recordings"

	cfg.CircuitBreaker.FailureThreshold = 5
	cfg.CircuitBreaker.SuccessThreshold = 2
	cfg.CircuitBreaker.Timeout = 30 * time.Second
	cfg.CircuitBreaker.MaxRequestsHalfOpen = 3

	cfg.Monitoring.PrometheusEnabled = true

	cfg.Tracing.Enabled = false
	cfg.Tracing.ServiceName = "meet"
	cfg.Tracing.JaegerURL = "http://localhost:14268/api/traces"
	cfg.Tracing.Environment = "development"
	cfg.Tracing.SampleRate = 1.0

	cfg.RateLimiting.Enabled = false
	cfg.RateLimiting.RequestsPerSecond = 5
	cfg.RateLimiting.Burst = 20
	cfg.RateLimiting.MaxConcurrent = 0

	return cfg
}

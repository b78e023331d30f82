package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Realtime transports
const (
	TransportSocket = "socket"
	TransportAMQP   = "amqp"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Log       LogConfig
	HTTP      HTTPConfig
	API       APIConfig
	Realtime  RealtimeConfig
	Session   SessionConfig
	Export    ExportConfig
	Storage   StorageConfig
	Telemetry TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Enabled         bool
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
	AutoMigrate     bool
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled      bool
	Host         string
	Port         int
	Password     string
	DB           int
	ReferenceTTL time.Duration // chefs/branches/departments cache
	DedupeTTL    time.Duration // processed event keys
}

// Addr returns host:port
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig holds settings for verifying access tokens issued by the order backend
type JWTConfig struct {
	Secret string
	Issuer string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration // 0 keeps SSE streams open
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	MaxBodySize       int64
	HeartbeatInterval time.Duration
	CORSAllowOrigins  []string
	CORSAllowMethods  []string
	CORSAllowHeaders  []string
	TrustedProxies    []string
	SwaggerEnabled    bool
	SwaggerAllowedIPs []string // IPs or CIDRs; empty allows all
}

// APIConfig holds the order backend REST client settings
type APIConfig struct {
	BaseURL            string
	Timeout            time.Duration
	BreakerFailures    uint32        // consecutive failures before the breaker opens
	BreakerOpenFor     time.Duration // time spent open before a trial request
	BreakerHalfOpenMax uint32
}

// RealtimeConfig holds the live event source settings
type RealtimeConfig struct {
	Transport           string // socket or amqp
	SocketURL           string
	AMQPURL             string
	Exchange            string
	ReconnectMin        time.Duration
	ReconnectMax        time.Duration
	ReconnectMaxElapsed time.Duration // 0 retries forever
	ReadTimeout         time.Duration
}

// SessionConfig holds dashboard session settings
type SessionConfig struct {
	IdleTimeout   time.Duration
	ActionTimeout time.Duration
	HubBuffer     int
}

// ExportConfig holds export rendering settings
type ExportConfig struct {
	ChromeRemoteURL string // empty launches a local headless Chrome
	Timeout         time.Duration
	NoSandbox       bool
}

// StorageConfig holds S3-compatible object storage settings for export archives
type StorageConfig struct {
	Enabled           bool
	Endpoint          string
	Region            string
	Bucket            string
	AccessKey         string
	SecretKey         string
	UseSSL            bool
	UsePathStyle      bool
	PresignExpiration time.Duration
	KeyPrefix         string
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string
	Insecure          bool // Use insecure (non-TLS) connection (development only)
	MetricsInterval   time.Duration
	ExportLogs        bool   // Ship zap logs over OTLP as well as stdout
	ProfilerServer    string // Pyroscope server; empty disables profiling
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with ORDERDESK_ prefix (e.g., ORDERDESK_API_BASE_URL)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("ORDERDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Enabled:         v.GetBool("database.enabled"),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
			AutoMigrate:     v.GetBool("database.auto_migrate"),
		},
		Redis: RedisConfig{
			Enabled:      v.GetBool("redis.enabled"),
			Host:         v.GetString("redis.host"),
			Port:         v.GetInt("redis.port"),
			Password:     v.GetString("redis.password"),
			DB:           v.GetInt("redis.db"),
			ReferenceTTL: v.GetDuration("redis.reference_ttl"),
			DedupeTTL:    v.GetDuration("redis.dedupe_ttl"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("jwt.secret"),
			Issuer: v.GetString("jwt.issuer"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:       v.GetDuration("http.read_timeout"),
			WriteTimeout:      v.GetDuration("http.write_timeout"),
			IdleTimeout:       v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:    v.GetInt("http.max_header_bytes"),
			MaxBodySize:       v.GetInt64("http.max_body_size"),
			HeartbeatInterval: v.GetDuration("http.heartbeat_interval"),
			CORSAllowOrigins:  v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods:  v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders:  v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:    v.GetStringSlice("http.trusted_proxies"),
			SwaggerEnabled:    v.GetBool("http.swagger_enabled"),
			SwaggerAllowedIPs: v.GetStringSlice("http.swagger_allowed_ips"),
		},
		API: APIConfig{
			BaseURL:            v.GetString("api.base_url"),
			Timeout:            v.GetDuration("api.timeout"),
			BreakerFailures:    v.GetUint32("api.breaker_failures"),
			BreakerOpenFor:     v.GetDuration("api.breaker_open_for"),
			BreakerHalfOpenMax: v.GetUint32("api.breaker_half_open_max"),
		},
		Realtime: RealtimeConfig{
			Transport:           v.GetString("realtime.transport"),
			SocketURL:           v.GetString("realtime.socket_url"),
			AMQPURL:             v.GetString("realtime.amqp_url"),
			Exchange:            v.GetString("realtime.exchange"),
			ReconnectMin:        v.GetDuration("realtime.reconnect_min"),
			ReconnectMax:        v.GetDuration("realtime.reconnect_max"),
			ReconnectMaxElapsed: v.GetDuration("realtime.reconnect_max_elapsed"),
			ReadTimeout:         v.GetDuration("realtime.read_timeout"),
		},
		Session: SessionConfig{
			IdleTimeout:   v.GetDuration("session.idle_timeout"),
			ActionTimeout: v.GetDuration("session.action_timeout"),
			HubBuffer:     v.GetInt("session.hub_buffer"),
		},
		Export: ExportConfig{
			ChromeRemoteURL: v.GetString("export.chrome_remote_url"),
			Timeout:         v.GetDuration("export.timeout"),
			NoSandbox:       v.GetBool("export.no_sandbox"),
		},
		Storage: StorageConfig{
			Enabled:           v.GetBool("storage.enabled"),
			Endpoint:          v.GetString("storage.endpoint"),
			Region:            v.GetString("storage.region"),
			Bucket:            v.GetString("storage.bucket"),
			AccessKey:         v.GetString("storage.access_key"),
			SecretKey:         v.GetString("storage.secret_key"),
			UseSSL:            v.GetBool("storage.use_ssl"),
			UsePathStyle:      v.GetBool("storage.use_path_style"),
			PresignExpiration: v.GetDuration("storage.presign_expiration"),
			KeyPrefix:         v.GetString("storage.key_prefix"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			ExportLogs:        v.GetBool("telemetry.export_logs"),
			ProfilerServer:    v.GetString("telemetry.profiler_server"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "orderdesk"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "orderdesk"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 2
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Redis.ReferenceTTL == 0 {
		cfg.Redis.ReferenceTTL = 10 * time.Minute
	}
	if cfg.Redis.DedupeTTL == 0 {
		cfg.Redis.DedupeTTL = time.Hour
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "bakery-backend"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20
	}
	if cfg.HTTP.HeartbeatInterval == 0 {
		cfg.HTTP.HeartbeatInterval = 30 * time.Second
	}
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID"}
	}
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "http://localhost:5000/api"
	}
	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = 10 * time.Second
	}
	if cfg.API.BreakerFailures == 0 {
		cfg.API.BreakerFailures = 5
	}
	if cfg.API.BreakerOpenFor == 0 {
		cfg.API.BreakerOpenFor = 30 * time.Second
	}
	if cfg.API.BreakerHalfOpenMax == 0 {
		cfg.API.BreakerHalfOpenMax = 1
	}
	if cfg.Realtime.Transport == "" {
		cfg.Realtime.Transport = TransportSocket
	}
	if cfg.Realtime.SocketURL == "" {
		cfg.Realtime.SocketURL = "ws://localhost:5000/socket"
	}
	if cfg.Realtime.Exchange == "" {
		cfg.Realtime.Exchange = "orders.events"
	}
	if cfg.Realtime.ReconnectMin == 0 {
		cfg.Realtime.ReconnectMin = time.Second
	}
	if cfg.Realtime.ReconnectMax == 0 {
		cfg.Realtime.ReconnectMax = 30 * time.Second
	}
	if cfg.Realtime.ReadTimeout == 0 {
		cfg.Realtime.ReadTimeout = 90 * time.Second
	}
	if cfg.Session.IdleTimeout == 0 {
		cfg.Session.IdleTimeout = 30 * time.Minute
	}
	if cfg.Session.ActionTimeout == 0 {
		cfg.Session.ActionTimeout = 15 * time.Second
	}
	if cfg.Session.HubBuffer == 0 {
		cfg.Session.HubBuffer = 64
	}
	if cfg.Export.Timeout == 0 {
		cfg.Export.Timeout = 30 * time.Second
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.PresignExpiration == 0 {
		cfg.Storage.PresignExpiration = 15 * time.Minute
	}
	if cfg.Storage.KeyPrefix == "" {
		cfg.Storage.KeyPrefix = "exports"
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "orderdesk"
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 30 * time.Second
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if _, err := url.ParseRequestURI(c.API.BaseURL); err != nil {
		return fmt.Errorf("api.base_url is invalid: %w", err)
	}

	switch c.Realtime.Transport {
	case TransportSocket:
		if c.Realtime.SocketURL == "" {
			return fmt.Errorf("realtime.socket_url is required for the socket transport")
		}
	case TransportAMQP:
		if c.Realtime.AMQPURL == "" {
			return fmt.Errorf("realtime.amqp_url is required for the amqp transport")
		}
	default:
		return fmt.Errorf("realtime.transport must be %q or %q, got %q", TransportSocket, TransportAMQP, c.Realtime.Transport)
	}
	if c.Realtime.ReconnectMin > c.Realtime.ReconnectMax {
		return fmt.Errorf("realtime.reconnect_min (%s) cannot exceed realtime.reconnect_max (%s)",
			c.Realtime.ReconnectMin, c.Realtime.ReconnectMax)
	}

	if c.Storage.Enabled && c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required when storage is enabled")
	}

	if c.App.Env == "production" {
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.Enabled {
			if c.Database.Password == "" {
				return fmt.Errorf("database.password is required in production")
			}
			if c.Database.SSLMode == "disable" {
				return fmt.Errorf("database.sslmode cannot be 'disable' in production")
			}
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		if c.Export.NoSandbox {
			return fmt.Errorf("export.no_sandbox must be false in production")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

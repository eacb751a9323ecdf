// Package config defines all configuration structures for the COF-H2
// predictor. No I/O lives in this file, only plain data types and validation.
package config

import (
	"fmt"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// CORSOrigins enables CORS for the listed origins. Empty disables it.
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level        string   `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format       string   `mapstructure:"format"` // "json" | "console"
	Output       []string `mapstructure:"output"`
	EnableCaller bool     `mapstructure:"enable_caller"`
}

// DescriptorConfig controls fingerprinting, conformer generation and the
// fingerprint column allow-list.
type DescriptorConfig struct {
	Radius int `mapstructure:"radius"`
	NBits  int `mapstructure:"n_bits"`

	// ColumnsProfile names an embedded allow-list ("ann-best-7", "ann-legacy").
	ColumnsProfile string `mapstructure:"columns_profile"`
	// ColumnsFile, when set, replaces the embedded profile.
	ColumnsFile string `mapstructure:"columns_file"`

	// Seed fixes the conformer RNG. 0 draws a fresh seed per molecule.
	Seed               int64         `mapstructure:"seed"`
	MaxAttempts        int           `mapstructure:"max_attempts"`
	EmbedIterations    int           `mapstructure:"embed_iterations"`
	OptimizeIterations int           `mapstructure:"optimize_iterations"`
	Timeout            time.Duration `mapstructure:"timeout"`
}

// ModelConfig locates the trained network and its scalers.
type ModelConfig struct {
	Source           string `mapstructure:"source"` // "local" | "minio"
	Dir              string `mapstructure:"dir"`
	Manifest         string `mapstructure:"manifest"`
	RemotePrefix     string `mapstructure:"remote_prefix"`
	ReloadPerRequest bool   `mapstructure:"reload_per_request"`
	Watch            bool   `mapstructure:"watch"`
	Unit             string `mapstructure:"unit"`
}

// MinIOConfig holds MinIO / S3-compatible object-storage parameters.
type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// RedisConfig holds Redis connection parameters for the descriptor cache.
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	DefaultTTL   time.Duration `mapstructure:"default_ttl"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// DatabaseConfig holds PostgreSQL parameters for prediction history.
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int           `mapstructure:"max_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	MigrationPath   string        `mapstructure:"migration_path"`
}

// KafkaConfig holds producer parameters for prediction events.
type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	ClientID     string        `mapstructure:"client_id"`
	BatchSize    int           `mapstructure:"batch_size"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	RequiredAcks int           `mapstructure:"required_acks"`
	Async        bool          `mapstructure:"async"`
}

// RateLimitConfig throttles form and API submissions.
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// ScreeningConfig bounds batch predictions.
type ScreeningConfig struct {
	MaxItems       int           `mapstructure:"max_items"`
	MaxConcurrency int           `mapstructure:"max_concurrency"`
	ItemTimeout    time.Duration `mapstructure:"item_timeout"`
	BatchTimeout   time.Duration `mapstructure:"batch_timeout"`
	// MaxPending caps candidates queued across concurrent batches; 0 is
	// unlimited.
	MaxPending int `mapstructure:"max_pending"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Path      string `mapstructure:"path"`
	Namespace string `mapstructure:"namespace"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Descriptor DescriptorConfig `mapstructure:"descriptor"`
	Model      ModelConfig      `mapstructure:"model"`
	MinIO      MinIOConfig      `mapstructure:"minio"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	RateLimit  RateLimitConfig  `mapstructure:"ratelimit"`
	Screening  ScreeningConfig  `mapstructure:"screening"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of the fully-populated Config and
// returns the first problem found.
func (c *Config) Validate() error {
	// Server
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}

	// Log
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	// Descriptor
	if c.Descriptor.Radius < 0 || c.Descriptor.Radius > 6 {
		return fmt.Errorf("config: descriptor.radius %d is out of range [0, 6]", c.Descriptor.Radius)
	}
	if c.Descriptor.NBits < 64 || c.Descriptor.NBits&(c.Descriptor.NBits-1) != 0 {
		return fmt.Errorf("config: descriptor.n_bits %d must be a power of two ≥ 64", c.Descriptor.NBits)
	}
	if c.Descriptor.ColumnsProfile == "" && c.Descriptor.ColumnsFile == "" {
		return fmt.Errorf("config: one of descriptor.columns_profile or descriptor.columns_file is required")
	}
	if c.Descriptor.MaxAttempts < 1 {
		return fmt.Errorf("config: descriptor.max_attempts must be ≥ 1, got %d", c.Descriptor.MaxAttempts)
	}
	if c.Descriptor.EmbedIterations < 1 || c.Descriptor.OptimizeIterations < 1 {
		return fmt.Errorf("config: descriptor iteration limits must be ≥ 1")
	}

	// Model
	switch c.Model.Source {
	case "local":
		if c.Model.Dir == "" {
			return fmt.Errorf("config: model.dir is required")
		}
	case "minio":
		if c.MinIO.Endpoint == "" || c.MinIO.Bucket == "" {
			return fmt.Errorf("config: minio.endpoint and minio.bucket are required when model.source is minio")
		}
		if c.Model.Dir == "" {
			return fmt.Errorf("config: model.dir is required as the download cache")
		}
	default:
		return fmt.Errorf("config: model.source %q is invalid; expected local|minio", c.Model.Source)
	}
	if c.Model.Manifest == "" {
		return fmt.Errorf("config: model.manifest is required")
	}

	// Database
	if c.Database.Enabled {
		if c.Database.Host == "" {
			return fmt.Errorf("config: database.host is required")
		}
		if c.Database.Port < 1 || c.Database.Port > 65535 {
			return fmt.Errorf("config: database.port %d is out of range [1, 65535]", c.Database.Port)
		}
		if c.Database.User == "" {
			return fmt.Errorf("config: database.user is required")
		}
		if c.Database.DBName == "" {
			return fmt.Errorf("config: database.db_name is required")
		}
		if c.Database.MaxConns < 1 {
			return fmt.Errorf("config: database.max_conns must be ≥ 1, got %d", c.Database.MaxConns)
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			return fmt.Errorf("config: redis.addr is required")
		}
		if c.Redis.DB < 0 {
			return fmt.Errorf("config: redis.db must be ≥ 0, got %d", c.Redis.DB)
		}
	}

	// Kafka
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("config: kafka.brokers must contain at least one broker address")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("config: kafka.topic is required")
		}
	}

	// Rate limit
	if c.RateLimit.Enabled {
		if c.RateLimit.RequestsPerSecond <= 0 {
			return fmt.Errorf("config: ratelimit.requests_per_second must be > 0")
		}
		if c.RateLimit.Burst < 1 {
			return fmt.Errorf("config: ratelimit.burst must be ≥ 1, got %d", c.RateLimit.Burst)
		}
	}

	// Screening
	if c.Screening.MaxItems < 1 {
		return fmt.Errorf("config: screening.max_items must be ≥ 1, got %d", c.Screening.MaxItems)
	}
	if c.Screening.MaxConcurrency < 1 {
		return fmt.Errorf("config: screening.max_concurrency must be ≥ 1, got %d", c.Screening.MaxConcurrency)
	}
	if c.Screening.MaxPending < 0 {
		return fmt.Errorf("config: screening.max_pending must be ≥ 0, got %d", c.Screening.MaxPending)
	}
	if c.Screening.MaxPending > 0 && c.Screening.MaxPending < c.Screening.MaxItems {
		return fmt.Errorf("config: screening.max_pending %d is below screening.max_items %d", c.Screening.MaxPending, c.Screening.MaxItems)
	}

	return nil
}

// Addr returns the host:port the HTTP server listens on.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode)
}

//Personal.AI order the ending

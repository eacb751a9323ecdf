// Package config provides configuration loading, defaults, and validation for
// the COF-H2 predictor.
package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerHost = "0.0.0.0"
	DefaultServerPort = 8080
	DefaultServerMode = "release"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultFingerprintRadius  = 2
	DefaultFingerprintBits    = 2048
	DefaultColumnsProfile     = "ann-best-7"
	DefaultMaxAttempts        = 10
	DefaultEmbedIterations    = 500
	DefaultOptimizeIterations = 200

	DefaultModelSource   = "local"
	DefaultModelDir      = "./artifacts/cof_model"
	DefaultModelManifest = "model.yaml"
	DefaultModelUnit     = "μmol*h-1"

	DefaultMinIOEndpoint = "localhost:9000"
	DefaultMinIOBucket   = "cof-models"

	DefaultRedisAddr = "localhost:6379"
	DefaultRedisTTL  = 24 * time.Hour

	DefaultDBHost     = "localhost"
	DefaultDBPort     = 5432
	DefaultDBName     = "cofh2"
	DefaultDBMaxConns = 10

	DefaultKafkaBroker = "localhost:9092"
	DefaultKafkaTopic  = "cofh2.prediction.completed"

	DefaultRateLimitRPS   = 2.0
	DefaultRateLimitBurst = 5

	DefaultScreeningMaxItems       = 100
	DefaultScreeningMaxConcurrency = 4
	DefaultScreeningMaxPending     = 400

	DefaultMetricsPath      = "/metrics"
	DefaultMetricsNamespace = "cofh2"
)

// defaultValues is the flat key → value table registered with viper so that
// every key is known before AutomaticEnv lookups run during Unmarshal.
var defaultValues = map[string]interface{}{
	"server.host":             DefaultServerHost,
	"server.port":             DefaultServerPort,
	"server.mode":             DefaultServerMode,
	"server.read_timeout":     "30s",
	"server.write_timeout":    "120s",
	"server.max_body_size":    1 << 20,
	"server.shutdown_timeout": "15s",
	"server.cors_origins":     []string{},

	"log.level":         DefaultLogLevel,
	"log.format":        DefaultLogFormat,
	"log.output":        []string{"stdout"},
	"log.enable_caller": false,

	"descriptor.radius":              DefaultFingerprintRadius,
	"descriptor.n_bits":              DefaultFingerprintBits,
	"descriptor.columns_profile":     DefaultColumnsProfile,
	"descriptor.columns_file":        "",
	"descriptor.seed":                0,
	"descriptor.max_attempts":        DefaultMaxAttempts,
	"descriptor.embed_iterations":    DefaultEmbedIterations,
	"descriptor.optimize_iterations": DefaultOptimizeIterations,
	"descriptor.timeout":             "60s",

	"model.source":             DefaultModelSource,
	"model.dir":                DefaultModelDir,
	"model.manifest":           DefaultModelManifest,
	"model.remote_prefix":      "",
	"model.reload_per_request": false,
	"model.watch":              true,
	"model.unit":               DefaultModelUnit,

	"minio.endpoint":   DefaultMinIOEndpoint,
	"minio.access_key": "",
	"minio.secret_key": "",
	"minio.bucket":     DefaultMinIOBucket,
	"minio.region":     "",
	"minio.use_ssl":    false,

	"redis.enabled":        false,
	"redis.addr":           DefaultRedisAddr,
	"redis.password":       "",
	"redis.db":             0,
	"redis.pool_size":      10,
	"redis.min_idle_conns": 2,
	"redis.dial_timeout":   "5s",
	"redis.read_timeout":   "3s",
	"redis.write_timeout":  "3s",
	"redis.default_ttl":    DefaultRedisTTL.String(),
	"redis.key_prefix":     "cofh2:",

	"database.enabled":            false,
	"database.host":               DefaultDBHost,
	"database.port":               DefaultDBPort,
	"database.user":               "cofh2",
	"database.password":           "",
	"database.db_name":            DefaultDBName,
	"database.ssl_mode":           "disable",
	"database.max_conns":          DefaultDBMaxConns,
	"database.min_conns":          1,
	"database.conn_max_lifetime":  "1h",
	"database.conn_max_idle_time": "30m",
	"database.migration_path":     "file://migrations",

	"kafka.enabled":       false,
	"kafka.brokers":       []string{DefaultKafkaBroker},
	"kafka.topic":         DefaultKafkaTopic,
	"kafka.client_id":     "cofh2-predictor",
	"kafka.batch_size":    100,
	"kafka.batch_timeout": "1s",
	"kafka.required_acks": -1,
	"kafka.async":         false,

	"ratelimit.enabled":             true,
	"ratelimit.requests_per_second": DefaultRateLimitRPS,
	"ratelimit.burst":               DefaultRateLimitBurst,

	"screening.max_items":       DefaultScreeningMaxItems,
	"screening.max_concurrency": DefaultScreeningMaxConcurrency,
	"screening.item_timeout":    "2m",
	"screening.batch_timeout":   "10m",
	"screening.max_pending":     DefaultScreeningMaxPending,

	"metrics.enabled":   true,
	"metrics.path":      DefaultMetricsPath,
	"metrics.namespace": DefaultMetricsNamespace,
}

// ApplyDefaults fills every zero-value field in cfg with its default. Explicit
// values are left unchanged. Booleans are not touched here; their defaults
// come from the viper key table.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultServerHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 120 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15 * time.Second
	}
	if cfg.Server.MaxBodySize == 0 {
		cfg.Server.MaxBodySize = 1 << 20
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
	if len(cfg.Log.Output) == 0 {
		cfg.Log.Output = []string{"stdout"}
	}

	// ── Descriptor ────────────────────────────────────────────────────────────
	if cfg.Descriptor.Radius == 0 {
		cfg.Descriptor.Radius = DefaultFingerprintRadius
	}
	if cfg.Descriptor.NBits == 0 {
		cfg.Descriptor.NBits = DefaultFingerprintBits
	}
	if cfg.Descriptor.ColumnsProfile == "" && cfg.Descriptor.ColumnsFile == "" {
		cfg.Descriptor.ColumnsProfile = DefaultColumnsProfile
	}
	if cfg.Descriptor.MaxAttempts == 0 {
		cfg.Descriptor.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Descriptor.EmbedIterations == 0 {
		cfg.Descriptor.EmbedIterations = DefaultEmbedIterations
	}
	if cfg.Descriptor.OptimizeIterations == 0 {
		cfg.Descriptor.OptimizeIterations = DefaultOptimizeIterations
	}
	if cfg.Descriptor.Timeout == 0 {
		cfg.Descriptor.Timeout = 60 * time.Second
	}

	// ── Model ─────────────────────────────────────────────────────────────────
	if cfg.Model.Source == "" {
		cfg.Model.Source = DefaultModelSource
	}
	if cfg.Model.Dir == "" {
		cfg.Model.Dir = DefaultModelDir
	}
	if cfg.Model.Manifest == "" {
		cfg.Model.Manifest = DefaultModelManifest
	}
	if cfg.Model.Unit == "" {
		cfg.Model.Unit = DefaultModelUnit
	}

	// ── MinIO ─────────────────────────────────────────────────────────────────
	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = DefaultMinIOBucket
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.DefaultTTL == 0 {
		cfg.Redis.DefaultTTL = DefaultRedisTTL
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "cofh2:"
	}

	// ── Database ──────────────────────────────────────────────────────────────
	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = DefaultDBMaxConns
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MigrationPath == "" {
		cfg.Database.MigrationPath = "file://migrations"
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = DefaultKafkaTopic
	}

	// ── Rate limit ────────────────────────────────────────────────────────────
	if cfg.RateLimit.RequestsPerSecond == 0 {
		cfg.RateLimit.RequestsPerSecond = DefaultRateLimitRPS
	}
	if cfg.RateLimit.Burst == 0 {
		cfg.RateLimit.Burst = DefaultRateLimitBurst
	}

	// ── Screening ─────────────────────────────────────────────────────────────
	if cfg.Screening.MaxItems == 0 {
		cfg.Screening.MaxItems = DefaultScreeningMaxItems
	}
	if cfg.Screening.MaxConcurrency == 0 {
		cfg.Screening.MaxConcurrency = DefaultScreeningMaxConcurrency
	}
	if cfg.Screening.ItemTimeout == 0 {
		cfg.Screening.ItemTimeout = 2 * time.Minute
	}
	if cfg.Screening.BatchTimeout == 0 {
		cfg.Screening.BatchTimeout = 10 * time.Minute
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
}

//Personal.AI order the ending

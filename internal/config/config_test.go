package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults are valid", func(*Config) {}, ""},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"bad mode", func(c *Config) { c.Server.Mode = "prod" }, "server.mode"},
		{"bad log level", func(c *Config) { c.Log.Level = "trace" }, "log.level"},
		{"bad log format", func(c *Config) { c.Log.Format = "text" }, "log.format"},
		{"radius too large", func(c *Config) { c.Descriptor.Radius = 9 }, "descriptor.radius"},
		{"bits not power of two", func(c *Config) { c.Descriptor.NBits = 2000 }, "descriptor.n_bits"},
		{"bits too small", func(c *Config) { c.Descriptor.NBits = 32 }, "descriptor.n_bits"},
		{"no columns", func(c *Config) { c.Descriptor.ColumnsProfile = "" }, "columns_profile"},
		{"zero attempts", func(c *Config) { c.Descriptor.MaxAttempts = 0 }, "max_attempts"},
		{"zero iterations", func(c *Config) { c.Descriptor.OptimizeIterations = 0 }, "iteration"},
		{"bad model source", func(c *Config) { c.Model.Source = "s3" }, "model.source"},
		{"missing model dir", func(c *Config) { c.Model.Dir = "" }, "model.dir"},
		{"minio needs bucket", func(c *Config) { c.Model.Source = "minio"; c.MinIO.Bucket = "" }, "minio.bucket"},
		{"minio ok", func(c *Config) { c.Model.Source = "minio" }, ""},
		{"missing manifest", func(c *Config) { c.Model.Manifest = "" }, "model.manifest"},
		{"db user required when enabled", func(c *Config) { c.Database.Enabled = true; c.Database.User = "" }, "database.user"},
		{"db disabled skips checks", func(c *Config) { c.Database.User = "" }, ""},
		{"redis addr", func(c *Config) { c.Redis.Enabled = true; c.Redis.Addr = "" }, "redis.addr"},
		{"kafka topic", func(c *Config) { c.Kafka.Enabled = true; c.Kafka.Topic = "" }, "kafka.topic"},
		{"kafka brokers", func(c *Config) { c.Kafka.Enabled = true; c.Kafka.Brokers = nil }, "kafka.brokers"},
		{"rate limit rps", func(c *Config) { c.RateLimit.Enabled = true; c.RateLimit.RequestsPerSecond = -1 }, "requests_per_second"},
		{"rate limit burst", func(c *Config) { c.RateLimit.Enabled = true; c.RateLimit.Burst = 0 }, "ratelimit.burst"},
		{"screening items", func(c *Config) { c.Screening.MaxItems = 0 }, "screening.max_items"},
		{"screening concurrency", func(c *Config) { c.Screening.MaxConcurrency = -1 }, "screening.max_concurrency"},
		{"screening pending below items", func(c *Config) { c.Screening.MaxPending = 10 }, "screening.max_pending"},
		{"screening pending unlimited", func(c *Config) { c.Screening.MaxPending = 0 }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Database.User = "cofh2"
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestServerAddr(t *testing.T) {
	s := ServerConfig{Host: "127.0.0.1", Port: 8501}
	assert.Equal(t, "127.0.0.1:8501", s.Addr())
}

func TestDatabaseDSN(t *testing.T) {
	d := DatabaseConfig{User: "u", Password: "p", Host: "db", Port: 5432, DBName: "cofh2", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/cofh2?sslmode=disable", d.DSN())
}

//Personal.AI order the ending

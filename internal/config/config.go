// Package config defines the configuration structures for DocRev-Intelligence.
// No I/O or parsing logic lives in this file, only plain data types and
// validation.
package config

import (
	"fmt"
	"time"

	"github.com/turtacn/DocRev-Intelligence/internal/infrastructure/monitoring/logging"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// DatabaseConfig holds PostgreSQL connection parameters for the chain,
// revision, comment and link tables.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int           `mapstructure:"max_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	MigrateOnStart  bool          `mapstructure:"migrate_on_start"`
}

// RedisConfig holds Redis connection parameters.  Redis backs the per-chain
// distributed lock.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// KafkaConfig holds producer/consumer parameters for revision events.
type KafkaConfig struct {
	Brokers         []string      `mapstructure:"brokers"`
	GroupID         string        `mapstructure:"group_id"`
	ClientID        string        `mapstructure:"client_id"`
	AutoOffsetReset string        `mapstructure:"auto_offset_reset"` // "earliest" | "latest"
	TopicPrefix     string        `mapstructure:"topic_prefix"`
	DeadLetterTopic string        `mapstructure:"dead_letter_topic"`
	MaxRetries      int           `mapstructure:"max_retries"`
	RetryBackoff    time.Duration `mapstructure:"retry_backoff"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
}

// MinIOConfig holds object-storage parameters for the source PDFs.
type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	// MaxObjectSize bounds the bytes read for one document.
	MaxObjectSize int64 `mapstructure:"max_object_size"`
}

// MetricsConfig holds Prometheus parameters.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Subsystem string `mapstructure:"subsystem"`
	Path      string `mapstructure:"path"`
}

// WorkerConfig holds ingestion-worker execution parameters.
type WorkerConfig struct {
	Concurrency     int           `mapstructure:"concurrency"`
	HealthPort      int           `mapstructure:"health_port"`
	HandlerTimeout  time.Duration `mapstructure:"handler_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// EngineConfig holds the tunables of the comment-intelligence engine.
type EngineConfig struct {
	// LinkThreshold is the minimum similarity (0–100) for a cross-revision link.
	LinkThreshold float64 `mapstructure:"link_threshold"`
	// SubstringBoost is the floor applied to the Jaccard ratio when one
	// comment contains the other.
	SubstringBoost float64 `mapstructure:"substring_boost"`
	// DefaultMaxRevisions applies to chains created without an explicit limit.
	DefaultMaxRevisions int `mapstructure:"default_max_revisions"`
	// LockBackend selects the per-chain lock: "redis" or "local".
	LockBackend string `mapstructure:"lock_backend"`
	// LockTTL bounds how long a chain lock is held without renewal.
	LockTTL time.Duration `mapstructure:"lock_ttl"`
	// ExtractionTimeout bounds one document extraction.
	ExtractionTimeout time.Duration `mapstructure:"extraction_timeout"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure.
type Config struct {
	Database DatabaseConfig    `mapstructure:"database"`
	Redis    RedisConfig       `mapstructure:"redis"`
	Kafka    KafkaConfig       `mapstructure:"kafka"`
	MinIO    MinIOConfig       `mapstructure:"minio"`
	Metrics  MetricsConfig     `mapstructure:"metrics"`
	Worker   WorkerConfig      `mapstructure:"worker"`
	Engine   EngineConfig      `mapstructure:"engine"`
	Log      logging.LogConfig `mapstructure:"log"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of a fully-populated Config and
// returns the first error encountered.
func (c *Config) Validate() error {
	// Database
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

	// Redis
	if c.Engine.LockBackend == LockBackendRedis && c.Redis.Addr == "" {
		return fmt.Errorf("config: redis.addr is required when engine.lock_backend is redis")
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("config: redis.db must be ≥ 0, got %d", c.Redis.DB)
	}

	// Kafka
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("config: kafka.brokers must contain at least one broker address")
	}
	if c.Kafka.GroupID == "" {
		return fmt.Errorf("config: kafka.group_id is required")
	}
	switch c.Kafka.AutoOffsetReset {
	case "earliest", "latest":
	default:
		return fmt.Errorf("config: kafka.auto_offset_reset %q is invalid; expected earliest|latest", c.Kafka.AutoOffsetReset)
	}

	// MinIO
	if c.MinIO.Bucket == "" {
		return fmt.Errorf("config: minio.bucket is required")
	}

	// Worker
	if c.Worker.Concurrency < 1 {
		return fmt.Errorf("config: worker.concurrency must be ≥ 1, got %d", c.Worker.Concurrency)
	}
	if c.Worker.HealthPort < 1 || c.Worker.HealthPort > 65535 {
		return fmt.Errorf("config: worker.health_port %d is out of range [1, 65535]", c.Worker.HealthPort)
	}

	// Engine
	if c.Engine.LinkThreshold < 0 || c.Engine.LinkThreshold > 100 {
		return fmt.Errorf("config: engine.link_threshold %.2f is out of range [0, 100]", c.Engine.LinkThreshold)
	}
	if c.Engine.SubstringBoost < 0 || c.Engine.SubstringBoost > 1 {
		return fmt.Errorf("config: engine.substring_boost %.2f is out of range [0, 1]", c.Engine.SubstringBoost)
	}
	if c.Engine.DefaultMaxRevisions < 1 {
		return fmt.Errorf("config: engine.default_max_revisions must be ≥ 1, got %d", c.Engine.DefaultMaxRevisions)
	}
	switch c.Engine.LockBackend {
	case LockBackendRedis, LockBackendLocal:
	default:
		return fmt.Errorf("config: engine.lock_backend %q is invalid; expected redis|local", c.Engine.LockBackend)
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

	return nil
}

// DSN renders the lib/pq connection string for the database section.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

//Personal.AI order the ending

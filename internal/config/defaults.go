// Package config provides configuration loading, defaults, and validation for
// DocRev-Intelligence.
package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultDBHost     = "localhost"
	DefaultDBPort     = 5432
	DefaultDBUser     = "docrev"
	DefaultDBName     = "docrev"
	DefaultDBMaxConns = 25

	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisKeyPrefix = "docrev"

	DefaultKafkaBroker     = "localhost:9092"
	DefaultKafkaGroupID    = "docrev-worker"
	DefaultKafkaClientID   = "docrev"
	DefaultKafkaMaxRetries = 3

	DefaultMinIOEndpoint      = "localhost:9000"
	DefaultMinIOBucket        = "documents"
	DefaultMinIOMaxObjectSize = 256 << 20

	DefaultMetricsNamespace = "docrev"
	DefaultMetricsPath      = "/metrics"

	DefaultWorkerConcurrency = 4
	DefaultWorkerHealthPort  = 8081

	DefaultLinkThreshold        = 60.0
	DefaultSubstringBoost       = 0.7
	DefaultMaxRevisions         = 5
	DefaultLockTTL              = 30 * time.Second
	DefaultExtractionTimeout    = 2 * time.Minute
	DefaultWorkerHandlerTimeout = 5 * time.Minute

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Lock backends.
const (
	LockBackendRedis = "redis"
	LockBackendLocal = "local"
)

// ─────────────────────────────────────────────────────────────────────────────
// ApplyDefaults
// ─────────────────────────────────────────────────────────────────────────────

// ApplyDefaults fills every zero-value field in cfg with its default.  Fields
// already set are left unchanged so that explicit configuration always wins.
// It must run after unmarshalling and before Validate.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Database ──────────────────────────────────────────────────────────────
	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.User == "" {
		cfg.Database.User = DefaultDBUser
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = DefaultDBMaxConns
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = cfg.Database.MaxConns / 2
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 30 * time.Minute
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.ClientID == "" {
		cfg.Kafka.ClientID = DefaultKafkaClientID
	}
	if cfg.Kafka.AutoOffsetReset == "" {
		cfg.Kafka.AutoOffsetReset = "earliest"
	}
	if cfg.Kafka.MaxRetries == 0 {
		cfg.Kafka.MaxRetries = DefaultKafkaMaxRetries
	}
	if cfg.Kafka.RetryBackoff == 0 {
		cfg.Kafka.RetryBackoff = time.Second
	}
	if cfg.Kafka.WriteTimeout == 0 {
		cfg.Kafka.WriteTimeout = 10 * time.Second
	}

	// ── MinIO ─────────────────────────────────────────────────────────────────
	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = DefaultMinIOBucket
	}
	if cfg.MinIO.MaxObjectSize == 0 {
		cfg.MinIO.MaxObjectSize = DefaultMinIOMaxObjectSize
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}

	// ── Worker ────────────────────────────────────────────────────────────────
	if cfg.Worker.Concurrency == 0 {
		cfg.Worker.Concurrency = DefaultWorkerConcurrency
	}
	if cfg.Worker.HealthPort == 0 {
		cfg.Worker.HealthPort = DefaultWorkerHealthPort
	}
	if cfg.Worker.HandlerTimeout == 0 {
		cfg.Worker.HandlerTimeout = DefaultWorkerHandlerTimeout
	}
	if cfg.Worker.ShutdownTimeout == 0 {
		cfg.Worker.ShutdownTimeout = 30 * time.Second
	}

	// ── Engine ────────────────────────────────────────────────────────────────
	// A zero threshold or boost is indistinguishable from "unset"; operators
	// who want to disable either must use a tiny positive value.
	if cfg.Engine.LinkThreshold == 0 {
		cfg.Engine.LinkThreshold = DefaultLinkThreshold
	}
	if cfg.Engine.SubstringBoost == 0 {
		cfg.Engine.SubstringBoost = DefaultSubstringBoost
	}
	if cfg.Engine.DefaultMaxRevisions == 0 {
		cfg.Engine.DefaultMaxRevisions = DefaultMaxRevisions
	}
	if cfg.Engine.LockBackend == "" {
		cfg.Engine.LockBackend = LockBackendRedis
	}
	if cfg.Engine.LockTTL == 0 {
		cfg.Engine.LockTTL = DefaultLockTTL
	}
	if cfg.Engine.ExtractionTimeout == 0 {
		cfg.Engine.ExtractionTimeout = DefaultExtractionTimeout
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}

//Personal.AI order the ending

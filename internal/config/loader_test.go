package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfigYAML = `
database:
  host: "db.internal"
  port: 5432
  user: "docrev"
  password: "password"
  db_name: "docrev"
redis:
  addr: "redis.internal:6379"
kafka:
  brokers: ["kafka-1:9092", "kafka-2:9092"]
  group_id: "docrev-worker"
minio:
  endpoint: "minio.internal:9000"
  bucket: "drawings"
engine:
  link_threshold: 65
  substring_boost: 0.6
  default_max_revisions: 4
  lock_ttl: 45s
log:
  level: debug
  format: console
`

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_ValidFile(t *testing.T) {
	cfg, err := Load(createTempConfigFile(t, validConfigYAML))
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "drawings", cfg.MinIO.Bucket)
	assert.Equal(t, 65.0, cfg.Engine.LinkThreshold)
	assert.Equal(t, 0.6, cfg.Engine.SubstringBoost)
	assert.Equal(t, 4, cfg.Engine.DefaultMaxRevisions)
	assert.Equal(t, 45*time.Second, cfg.Engine.LockTTL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	// defaults fill the rest
	assert.Equal(t, DefaultWorkerConcurrency, cfg.Worker.Concurrency)
	assert.Equal(t, DefaultMetricsPath, cfg.Metrics.Path)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_InvalidValues(t *testing.T) {
	_, err := Load(createTempConfigFile(t, "engine:\n  link_threshold: 250\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "engine.link_threshold")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("DOCREV_DATABASE_HOST", "env-host")
	t.Setenv("DOCREV_ENGINE_DEFAULT_MAX_REVISIONS", "7")

	cfg, err := Load(createTempConfigFile(t, validConfigYAML))
	require.NoError(t, err)
	assert.Equal(t, "env-host", cfg.Database.Host)
	assert.Equal(t, 7, cfg.Engine.DefaultMaxRevisions)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DOCREV_MINIO_BUCKET", "env-bucket")
	t.Setenv("DOCREV_ENGINE_LOCK_BACKEND", "local")
	t.Setenv("DOCREV_LOG_LEVEL", "warn")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "env-bucket", cfg.MinIO.Bucket)
	assert.Equal(t, LockBackendLocal, cfg.Engine.LockBackend)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, DefaultDBHost, cfg.Database.Host)
}

func TestLoadOrEnv(t *testing.T) {
	cfg, err := LoadOrEnv("")
	require.NoError(t, err)
	assert.Equal(t, DefaultMinIOBucket, cfg.MinIO.Bucket)

	cfg, err = LoadOrEnv(createTempConfigFile(t, validConfigYAML))
	require.NoError(t, err)
	assert.Equal(t, "drawings", cfg.MinIO.Bucket)
}

func TestMustLoad_Panics(t *testing.T) {
	assert.Panics(t, func() { MustLoad(filepath.Join(t.TempDir(), "absent.yaml")) })
}

func TestWatch_InvokesOnChange(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)

	changed := make(chan *Config, 1)
	require.NoError(t, Watch(path, func(c *Config) {
		select {
		case changed <- c:
		default:
		}
	}, nil))

	updated := validConfigYAML + "\nworker:\n  concurrency: 9\n"
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o600))

	select {
	case cfg := <-changed:
		assert.Equal(t, 9, cfg.Worker.Concurrency)
	case <-time.After(5 * time.Second):
		t.Skip("filesystem notifications unavailable in this environment")
	}
}

func TestWatch_MissingFile(t *testing.T) {
	err := Watch(filepath.Join(t.TempDir(), "absent.yaml"), func(*Config) {}, nil)
	assert.Error(t, err)
}

//Personal.AI order the ending

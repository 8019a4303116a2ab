package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/DocRev-Intelligence/internal/config"
)

// validConfig returns a Config that passes Validate().
func validConfig() *config.Config {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Database.Password = "secret"
	return cfg
}

func TestConfig_Validate_ValidConfig(t *testing.T) {
	t.Parallel()
	assert.NoError(t, validConfig().Validate())
}

func TestConfig_Validate_Failures(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"missing database host", func(c *config.Config) { c.Database.Host = "" }, "database.host"},
		{"database port", func(c *config.Config) { c.Database.Port = 70000 }, "database.port"},
		{"missing database user", func(c *config.Config) { c.Database.User = "" }, "database.user"},
		{"missing database name", func(c *config.Config) { c.Database.DBName = "" }, "database.db_name"},
		{"max conns", func(c *config.Config) { c.Database.MaxConns = -1 }, "database.max_conns"},
		{"redis addr for redis locks", func(c *config.Config) { c.Redis.Addr = "" }, "redis.addr"},
		{"redis db", func(c *config.Config) { c.Redis.DB = -1 }, "redis.db"},
		{"kafka brokers", func(c *config.Config) { c.Kafka.Brokers = nil }, "kafka.brokers"},
		{"kafka group", func(c *config.Config) { c.Kafka.GroupID = "" }, "kafka.group_id"},
		{"kafka offset reset", func(c *config.Config) { c.Kafka.AutoOffsetReset = "middle" }, "kafka.auto_offset_reset"},
		{"minio bucket", func(c *config.Config) { c.MinIO.Bucket = "" }, "minio.bucket"},
		{"worker concurrency", func(c *config.Config) { c.Worker.Concurrency = 0 }, "worker.concurrency"},
		{"worker health port", func(c *config.Config) { c.Worker.HealthPort = 0 }, "worker.health_port"},
		{"link threshold", func(c *config.Config) { c.Engine.LinkThreshold = 120 }, "engine.link_threshold"},
		{"substring boost", func(c *config.Config) { c.Engine.SubstringBoost = 1.5 }, "engine.substring_boost"},
		{"max revisions", func(c *config.Config) { c.Engine.DefaultMaxRevisions = 0 }, "engine.default_max_revisions"},
		{"lock backend", func(c *config.Config) { c.Engine.LockBackend = "zookeeper" }, "engine.lock_backend"},
		{"log level", func(c *config.Config) { c.Log.Level = "trace" }, "log.level"},
		{"log format", func(c *config.Config) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestConfig_Validate_LocalLocksDoNotNeedRedis(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Engine.LockBackend = config.LockBackendLocal
	cfg.Redis.Addr = ""
	assert.NoError(t, cfg.Validate())
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	assert.Equal(t,
		"host=localhost port=5432 user=docrev password=secret dbname=docrev sslmode=disable",
		cfg.Database.DSN())
}

//Personal.AI order the ending

// cmd/worker/main.go
//
// Ingestion worker.  Consumes revision submissions from Kafka, extracts the
// submitted PDF from MinIO, stores its comments and attaches it to its chain.
// Exposes /healthz, /readyz and /metrics on the worker health port.
//
// Dependencies:
//   Depends on: internal/config, internal/application/*, internal/infrastructure/*,
//               internal/interfaces/consumer, internal/interfaces/http
//   Depended by: Dockerfile, Makefile

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/DocRev-Intelligence/internal/application/events"
	"github.com/turtacn/DocRev-Intelligence/internal/application/ingestion"
	"github.com/turtacn/DocRev-Intelligence/internal/application/revision"
	"github.com/turtacn/DocRev-Intelligence/internal/config"
	"github.com/turtacn/DocRev-Intelligence/internal/domain/comment"
	"github.com/turtacn/DocRev-Intelligence/internal/domain/extraction"
	"github.com/turtacn/DocRev-Intelligence/internal/infrastructure/database/postgres"
	"github.com/turtacn/DocRev-Intelligence/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/DocRev-Intelligence/internal/infrastructure/database/redis"
	"github.com/turtacn/DocRev-Intelligence/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/DocRev-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DocRev-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/DocRev-Intelligence/internal/infrastructure/pdf"
	"github.com/turtacn/DocRev-Intelligence/internal/infrastructure/storage/minio"
	"github.com/turtacn/DocRev-Intelligence/internal/interfaces/consumer"
	httpserver "github.com/turtacn/DocRev-Intelligence/internal/interfaces/http"
	"github.com/turtacn/DocRev-Intelligence/internal/interfaces/http/handlers"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
)

const (
	extractionCacheTTL  = 24 * time.Hour
	submissionClaimTTL  = time.Hour
	topicReplication    = 1
	dbStatsPollInterval = 15 * time.Second
)

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	workers := flag.Int("workers", 0, "number of consumers in the group (default: worker.concurrency)")
	flag.Parse()

	if err := run(*configPath, *workers); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, workers int) error {
	cfg, err := config.LoadOrEnv(configPath)
	if err != nil {
		return err
	}
	if workers > 0 {
		cfg.Worker.Concurrency = workers
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("logger initialization failed: %w", err)
	}
	logger.Info("starting worker",
		logging.String("version", Version),
		logging.String("commit", GitCommit),
		logging.Int("concurrency", cfg.Worker.Concurrency))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Metrics
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfigFrom(cfg.Metrics), logger)
	if err != nil {
		return err
	}
	metrics := prometheus.NewAppMetrics(collector)

	// Postgres
	conn, err := postgres.NewConnection(postgres.ConfigFrom(cfg.Database), logger)
	if err != nil {
		return err
	}
	defer conn.Close()
	if cfg.Database.MigrateOnStart {
		if err := conn.RunMigrations(); err != nil {
			return err
		}
	}
	comments := repositories.NewPostgresCommentRepo(conn, logger)
	chainRepo := repositories.NewPostgresRevisionRepo(conn, logger)

	// Redis
	rdb, err := redis.NewClient(redis.ConfigFrom(cfg.Redis), logger)
	if err != nil {
		return err
	}
	defer rdb.Close()
	cache := redis.NewRedisCache(rdb, logger)

	var locker revision.ChainLocker = redis.NewChainLocker(rdb, logger, redis.WithLockTTL(cfg.Engine.LockTTL))
	if cfg.Engine.LockBackend == config.LockBackendLocal {
		logger.Warn("local chain locks only serialise this process")
		locker = revision.NewLocalChainLocker()
	}

	// MinIO
	objects, err := minio.NewMinIOClient(ctx, minio.ConfigFrom(cfg.MinIO), logger)
	if err != nil {
		return err
	}
	defer objects.Close()
	if err := objects.EnsureBucket(ctx); err != nil {
		return err
	}
	store := minio.NewDocumentStore(objects, logger)

	// Kafka
	topics, err := kafka.NewTopicManager(cfg.Kafka.Brokers, logger)
	if err != nil {
		return err
	}
	if err := topics.EnsureTopics(ctx, kafka.DefaultTopics(cfg.Kafka.TopicPrefix, topicReplication)); err != nil {
		logger.Warn("topic provisioning failed", logging.ErrorFields(err)...)
	}
	_ = topics.Close()

	producer, err := kafka.NewProducer(kafka.ProducerConfigFrom(cfg.Kafka), logger)
	if err != nil {
		return err
	}
	defer producer.Close()

	// Services
	linkers := revision.NewLinkerRef(newLinker(cfg.Engine))
	chains := revision.NewChainManager(chainRepo, comments, locker, logger,
		revision.WithLinkerRef(linkers),
		revision.WithPublisher(producer),
		revision.WithMetrics(metrics),
	)
	pipeline := extraction.NewPipeline(extraction.NewScanner(extraction.DefaultVocabulary()), logger)
	ingest := ingestion.NewService(pipeline, pdf.NewOpener(), comments, logger,
		ingestion.WithSource(store),
		ingestion.WithAttachmentLookup(chainRepo),
		ingestion.WithCache(cache, extractionCacheTTL),
		ingestion.WithTimeout(cfg.Engine.ExtractionTimeout),
		ingestion.WithPublisher(producer),
		ingestion.WithMetrics(metrics),
	)
	submissions := ingestion.NewSubmissionHandler(ingest, chains, cache, submissionClaimTTL, logger)
	handler := consumer.RevisionSubmittedHandler(submissions, metrics, logger)

	if configPath != "" {
		err := config.Watch(configPath, func(next *config.Config) {
			linkers.Store(newLinker(next.Engine))
			logger.Info("engine tunables reloaded",
				logging.Float64("link_threshold", next.Engine.LinkThreshold),
				logging.Float64("substring_boost", next.Engine.SubstringBoost))
		}, func(err error) {
			logger.Warn("config reload rejected", logging.ErrorFields(err)...)
		})
		if err != nil {
			logger.Warn("config watch disabled", logging.ErrorFields(err)...)
		}
	}

	// Ops server
	health := handlers.NewHealthHandler(Version, metrics,
		handlers.CheckFunc{Component: "postgres", Fn: conn.HealthCheck},
		handlers.CheckFunc{Component: "redis", Fn: rdb.Ping},
		handlers.CheckFunc{Component: "minio", Fn: objects.HealthCheck},
	)
	router := httpserver.NewRouter(httpserver.RouterConfig{
		HealthHandler: health,
		Metrics:       collector.Handler(),
		MetricsPath:   cfg.Metrics.Path,
		Logger:        logger,
	})
	ops := httpserver.NewServerOnPort(cfg.Worker.HealthPort, router, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(ops.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Worker.ShutdownTimeout)
		defer cancel()
		return ops.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		pollPoolStats(gctx, conn, metrics)
		return nil
	})

	for i := 0; i < cfg.Worker.Concurrency; i++ {
		c, err := kafka.NewConsumer(kafka.ConsumerConfigFrom(cfg.Kafka), []string{events.TopicRevisionSubmitted}, logger)
		if err != nil {
			stop()
			_ = g.Wait()
			return err
		}
		c.Subscribe(events.TopicRevisionSubmitted, handler)
		g.Go(func() error { return c.Run(gctx) })
	}

	err = g.Wait()
	logger.Info("worker stopped")
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func newLinker(e config.EngineConfig) *comment.Linker {
	return comment.NewLinker(comment.NewMatcher(e.SubstringBoost), e.LinkThreshold)
}

func pollPoolStats(ctx context.Context, conn *postgres.Connection, metrics *prometheus.AppMetrics) {
	ticker := time.NewTicker(dbStatsPollInterval)
	defer ticker.Stop()
	for {
		stats := conn.Stats()
		metrics.SetDBPool(stats.OpenConnections, stats.InUse)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

//Personal.AI order the ending

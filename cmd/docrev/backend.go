package main

import (
	"context"
	"time"

	"github.com/turtacn/DocRev-Intelligence/internal/application/ingestion"
	"github.com/turtacn/DocRev-Intelligence/internal/application/revision"
	"github.com/turtacn/DocRev-Intelligence/internal/config"
	"github.com/turtacn/DocRev-Intelligence/internal/domain/comment"
	"github.com/turtacn/DocRev-Intelligence/internal/domain/extraction"
	"github.com/turtacn/DocRev-Intelligence/internal/infrastructure/database/postgres"
	"github.com/turtacn/DocRev-Intelligence/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/DocRev-Intelligence/internal/infrastructure/database/redis"
	"github.com/turtacn/DocRev-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DocRev-Intelligence/internal/infrastructure/pdf"
	"github.com/turtacn/DocRev-Intelligence/internal/interfaces/cli"
)

// extractionCacheTTL bounds how long an extraction result is shared between
// byte-identical uploads.
const extractionCacheTTL = 24 * time.Hour

// backend holds the storage-backed services of one CLI invocation.
type backend struct {
	conn      *postgres.Connection
	rdb       *redis.Client
	chains    revision.ChainService
	ingestion ingestion.Service
}

func (b *backend) Chains() revision.ChainService { return b.chains }
func (b *backend) Ingestion() ingestion.Service   { return b.ingestion }
func (b *backend) Migrator() cli.Migrator         { return b.conn }

func (b *backend) Close() error {
	if b.rdb != nil {
		_ = b.rdb.Close()
	}
	return b.conn.Close()
}

// openBackend connects Postgres and, when the engine locks through Redis, the
// coordination store.  It satisfies cli.BackendFactory.
func openBackend(_ context.Context, cfg *config.Config, logger logging.Logger) (cli.Backend, error) {
	conn, err := postgres.NewConnection(postgres.ConfigFrom(cfg.Database), logger)
	if err != nil {
		return nil, err
	}
	b := &backend{conn: conn}

	comments := repositories.NewPostgresCommentRepo(conn, logger)
	chainRepo := repositories.NewPostgresRevisionRepo(conn, logger)

	var (
		locker     revision.ChainLocker = revision.NewLocalChainLocker()
		ingestOpts = []ingestion.Option{
			ingestion.WithTimeout(cfg.Engine.ExtractionTimeout),
			ingestion.WithAttachmentLookup(chainRepo),
		}
	)
	if cfg.Engine.LockBackend == config.LockBackendRedis {
		rdb, err := redis.NewClient(redis.ConfigFrom(cfg.Redis), logger)
		if err != nil {
			_ = conn.Close()
			return nil, err
		}
		b.rdb = rdb
		locker = redis.NewChainLocker(rdb, logger, redis.WithLockTTL(cfg.Engine.LockTTL))
		ingestOpts = append(ingestOpts, ingestion.WithCache(redis.NewRedisCache(rdb, logger), extractionCacheTTL))
	}

	linker := comment.NewLinker(comment.NewMatcher(cfg.Engine.SubstringBoost), cfg.Engine.LinkThreshold)
	b.chains = revision.NewChainManager(chainRepo, comments, locker, logger, revision.WithLinker(linker))

	pipeline := extraction.NewPipeline(extraction.NewScanner(extraction.DefaultVocabulary()), logger)
	b.ingestion = ingestion.NewService(pipeline, pdf.NewOpener(), comments, logger, ingestOpts...)
	return b, nil
}

//Personal.AI order the ending

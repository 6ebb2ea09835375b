package app

import (
	"context"
	"time"

	config "github.com/jchangwan/campus-closet-share/internal/cfg"
	"github.com/jchangwan/campus-closet-share/internal/infrastructure/kafka"
	minioInfra "github.com/jchangwan/campus-closet-share/internal/infrastructure/minio"
	ml_service "github.com/jchangwan/campus-closet-share/internal/infrastructure/ml-service"
	"github.com/jchangwan/campus-closet-share/internal/repository/catalog"
	"github.com/jchangwan/campus-closet-share/internal/repository/flatindex"
	s3Repo "github.com/jchangwan/campus-closet-share/internal/repository/minio"
	"github.com/jchangwan/campus-closet-share/internal/repository/pgdb"
	pgdbConv "github.com/jchangwan/campus-closet-share/internal/repository/pgdb/converter"
	qdrantRepo "github.com/jchangwan/campus-closet-share/internal/repository/qdrant"
	"github.com/jchangwan/campus-closet-share/internal/repository/redis"
	"github.com/jchangwan/campus-closet-share/internal/usecase"
	"github.com/jchangwan/campus-closet-share/pkg/clients"
	"github.com/jchangwan/campus-closet-share/pkg/closer"
	"github.com/jchangwan/campus-closet-share/pkg/e"
	"github.com/jchangwan/campus-closet-share/pkg/jitter"
	"github.com/jchangwan/campus-closet-share/pkg/logger"
	"github.com/jchangwan/campus-closet-share/pkg/postgres"
	"github.com/jimlawless/whereami"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// artifactSources — источники индекса и каталога, выбранные конфигурацией.
type artifactSources struct {
	index   usecase.IndexSource
	catalog usecase.CatalogSource
	fetcher usecase.ArtifactFetcher // nil, если бакет не задан

	flat        *flatindex.FileSource
	qdrant      *qdrantRepo.IndexRepo
	qdrantCl    *clients.QdrantClient
	catalogFile *catalog.FileSource
	catalogPG   *pgdb.CatalogRepo
	artifacts   usecase.ArtifactRepository
}

func newArtifactSources(ctx context.Context, cfg *config.Config, log logger.Logger, cl *closer.Closer) (*artifactSources, error) {
	s := &artifactSources{}

	switch cfg.Artifacts.CatalogSource {
	case config.CatalogSourcePostgres:
		db, err := initPGDB(ctx, log, cfg.Db)
		if err != nil {
			return nil, err
		}
		cl.AddSimple("postgres", db.Close)

		s.catalogPG = pgdb.NewCatalogRepo(db.Pool, pgdbConv.NewCatalogEntryConverterImpl(), log)
		s.catalog = s.catalogPG
	default:
		s.catalogFile = catalog.NewFileSource(cfg.Artifacts.MappingPath, log)
		s.catalog = s.catalogFile
	}

	switch cfg.Artifacts.IndexBackend {
	case config.IndexBackendQdrant:
		qdrantClient, err := clients.NewQdrantClient(cfg.Qdrant)
		if err != nil {
			log.Errorf(err, "failed to initialize qdrant")
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
		cl.Add("qdrant", func(context.Context) error { return qdrantClient.Close() })

		s.qdrantCl = qdrantClient
		s.qdrant = qdrantRepo.NewIndexRepo(qdrantClient.Client, cfg.Qdrant, log)
		s.index = s.qdrant
	default:
		s.flat = flatindex.NewFileSource(cfg.Artifacts.IndexPath, log)
		s.index = s.flat
	}

	if cfg.Artifacts.Bucket != "" {
		minioClient, err := clients.NewMinIOClient(cfg.Minio)
		if err != nil {
			log.Errorf(err, "failed to initialize minio client")
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
		s.artifacts = s3Repo.NewArtifactRepo(minioClient, cfg.Artifacts.Bucket)

		if objects := artifactObjects(cfg.Artifacts); len(objects) > 0 {
			s.fetcher = minioInfra.NewArtifactInfrastructure(
				s.artifacts,
				objects,
				jitter.NewBackoff(time.Second, 10*time.Second),
				log,
			)
		}
	}

	return s, nil
}

// artifactObjects возвращает файлы, которые нужно скачать из бакета при выбранных источниках.
func artifactObjects(cfg *config.ArtifactsCfg) []minioInfra.ArtifactObject {
	var objects []minioInfra.ArtifactObject
	if cfg.CatalogSource == config.CatalogSourceFile {
		objects = append(objects, minioInfra.ArtifactObject{ObjectKey: cfg.MappingObjectKey, LocalPath: cfg.MappingPath})
	}
	if cfg.IndexBackend == config.IndexBackendFlat {
		objects = append(objects, minioInfra.ArtifactObject{ObjectKey: cfg.IndexObjectKey, LocalPath: cfg.IndexPath})
	}

	return objects
}

// newEncoder подключает энкодер и выбирает устройство. Недоступный энкодер не мешает старту:
// устройство остаётся unknown, а ошибки проявятся в запросах.
func newEncoder(ctx context.Context, cfg *config.Config, log logger.Logger, cl *closer.Closer) (*ml_service.MLService, error) {
	var transport ml_service.Transport

	switch cfg.Encoder.Transport {
	case config.EncoderTransportHTTP:
		transport = ml_service.NewHTTPTransport(cfg.Encoder.URL, cfg.Encoder.Timeout)
	default:
		conn, err := grpc.NewClient(
			cfg.Encoder.Addr,
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		)
		if err != nil {
			log.Errorf(err, "failed to initialize grpc client")
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
		cl.Add("encoder grpc conn", func(context.Context) error { return conn.Close() })
		transport = ml_service.NewGRPCTransport(conn)
	}

	ml := ml_service.NewMLService(
		transport,
		cfg.Encoder.Device,
		cfg.Encoder.MaxRetries,
		cfg.Encoder.Timeout,
		jitter.NewBackoff(200*time.Millisecond, 2*time.Second),
		log,
	)

	if _, err := ml.Probe(ctx); err != nil {
		log.Warnf("encoder is not reachable yet, device stays unknown: %v", err)
	}

	return ml, nil
}

// newResultCache возвращает кэш в Redis или no-op, если REDIS_ADDR не задан.
func newResultCache(ctx context.Context, cfg *config.Config, log logger.Logger, cl *closer.Closer) usecase.ResultCache {
	if cfg.Redis.Addr == "" {
		return usecase.NopResultCache{}
	}

	redisClient := clients.NewRedisClient(cfg.Redis)
	cl.Add("redis", func(context.Context) error { return redisClient.Close() })

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(pingCtx); err != nil {
		log.Warnf("redis is not reachable, cache misses expected: %v", err)
	}

	return redis.NewCacheRepo(redisClient, cfg.Redis, log)
}

// newEventProducer запускает отправку событий в Kafka или возвращает no-op, если брокеры не заданы.
func newEventProducer(cfg *config.Config, log logger.Logger, cl *closer.Closer) usecase.SearchEventProducer {
	if len(cfg.Kafka.Brokers) == 0 {
		return usecase.NopEventProducer{}
	}

	producer := kafka.NewProducer(log, cfg.Kafka)
	cl.Add("kafka producer", func(context.Context) error { return producer.Close() })

	if err := producer.EnsureTopic(5 * time.Second); err != nil {
		log.Warnf("failed to ensure kafka topic %s: %v", cfg.Kafka.Topic, err)
	}

	worker := kafka.NewEventWorker(producer, log, cfg.Kafka.BufferSize, cfg.Kafka.BatchSize, cfg.Kafka.FlushInterval)
	worker.Start()
	cl.Add("search event worker", worker.Stop)

	return worker
}

func initPGDB(ctx context.Context, log logger.Logger, cfg *config.PGDBCfg) (*postgres.PgDatabase, error) {
	db, err := postgres.Connect(ctx, cfg)
	if err != nil {
		log.Errorf(err, "failed to connect to database")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if err := db.RunMigrations(log); err != nil {
		db.Close()
		log.Errorf(err, "failed to run migrations")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		log.Errorf(err, "failed to ping database")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return db, nil
}

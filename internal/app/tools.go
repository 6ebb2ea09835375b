package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	config "github.com/jchangwan/campus-closet-share/internal/cfg"
	"github.com/jchangwan/campus-closet-share/internal/repository/catalog"
	"github.com/jchangwan/campus-closet-share/internal/repository/flatindex"
	s3Repo "github.com/jchangwan/campus-closet-share/internal/repository/minio"
	"github.com/jchangwan/campus-closet-share/internal/repository/pgdb"
	pgdbConv "github.com/jchangwan/campus-closet-share/internal/repository/pgdb/converter"
	qdrantRepo "github.com/jchangwan/campus-closet-share/internal/repository/qdrant"
	"github.com/jchangwan/campus-closet-share/internal/usecase"
	"github.com/jchangwan/campus-closet-share/pkg/clients"
	"github.com/jchangwan/campus-closet-share/pkg/closer"
	"github.com/jchangwan/campus-closet-share/pkg/e"
	"github.com/jchangwan/campus-closet-share/pkg/logger"
	"github.com/jimlawless/whereami"
)

// InspectReport — результат проверки пары индекс + каталог.
type InspectReport struct {
	IndexSize   int
	Dimension   int
	CatalogSize int
	CatalogGaps int
	IndexErr    error
	CatalogErr  error
}

// Consistent сообщает, что оба артефакта загружены и соответствуют друг другу 1:1.
func (r *InspectReport) Consistent() bool {
	return r.IndexErr == nil && r.CatalogErr == nil &&
		r.IndexSize > 0 && r.IndexSize == r.CatalogSize && r.CatalogGaps == 0
}

func (r *InspectReport) Print(w io.Writer) {
	if r.IndexErr != nil {
		fmt.Fprintf(w, "index:   error: %v\n", r.IndexErr)
	} else {
		fmt.Fprintf(w, "index:   %d vectors, dim %d\n", r.IndexSize, r.Dimension)
	}

	if r.CatalogErr != nil {
		fmt.Fprintf(w, "catalog: error: %v\n", r.CatalogErr)
	} else {
		fmt.Fprintf(w, "catalog: %d entries, %d gaps\n", r.CatalogSize, r.CatalogGaps)
	}

	if r.Consistent() {
		fmt.Fprintln(w, "status:  ok")
	} else {
		fmt.Fprintln(w, "status:  degraded")
	}
}

// Inspect загружает артефакты так же, как serve, и проверяет соответствие 1:1.
func Inspect(ctx context.Context, cfg *config.Config, log logger.Logger) (*InspectReport, error) {
	cl := closer.NewCloser(0, log)
	defer closeQuietly(cl, log)

	sources, err := newArtifactSources(ctx, cfg, log, cl)
	if err != nil {
		return nil, err
	}

	if sources.fetcher != nil {
		if err := sources.fetcher.FetchArtifacts(ctx); err != nil {
			log.Warnf("artifact download failed, inspecting local files: %v", err)
		}
	}

	return inspectSources(ctx, sources.index, sources.catalog), nil
}

func inspectSources(ctx context.Context, indexSource usecase.IndexSource, catalogSource usecase.CatalogSource) *InspectReport {
	report := &InspectReport{}

	index, err := indexSource.LoadIndex(ctx)
	if err != nil {
		report.IndexErr = err
	} else {
		report.IndexSize = index.Size()
		report.Dimension = index.Dimension()
	}

	cat, err := catalogSource.LoadCatalog(ctx)
	if err != nil {
		report.CatalogErr = err
	} else {
		report.CatalogSize = cat.Len()
		if g, ok := cat.(interface{ Gaps() int }); ok {
			report.CatalogGaps = g.Gaps()
		}
	}

	return report
}

// SyncQdrant переносит плоский индекс из INDEX_PATH вместе с payload каталога в коллекцию Qdrant.
func SyncQdrant(ctx context.Context, cfg *config.Config, log logger.Logger) (int, error) {
	index, err := flatindex.NewFileSource(cfg.Artifacts.IndexPath, log).Load(ctx)
	if err != nil {
		return 0, e.Wrap(whereami.WhereAmI(), err)
	}

	cl := closer.NewCloser(0, log)
	defer closeQuietly(cl, log)

	// Каталог читается из того же источника, что и в serve; индекс всегда плоский.
	fileCfg := *cfg.Artifacts
	fileCfg.IndexBackend = config.IndexBackendFlat
	sources, err := newArtifactSources(ctx, &config.Config{
		Artifacts: &fileCfg,
		Db:        cfg.Db,
		Minio:     cfg.Minio,
	}, log, cl)
	if err != nil {
		return 0, err
	}

	cat, err := sources.catalog.LoadCatalog(ctx)
	if err != nil {
		return 0, e.Wrap(whereami.WhereAmI(), err)
	}
	if cat.Len() != index.Size() {
		log.Warnf("index size %d does not match catalog size %d, missing payloads will be empty", index.Size(), cat.Len())
	}

	qdrantClient, err := clients.NewQdrantClient(cfg.Qdrant)
	if err != nil {
		return 0, e.Wrap(whereami.WhereAmI(), err)
	}
	cl.Add("qdrant", func(context.Context) error { return qdrantClient.Close() })

	if err := clients.EnsureCollection(ctx, qdrantClient, uint64(index.Dimension())); err != nil {
		return 0, e.Wrap(whereami.WhereAmI(), err)
	}

	vectors := make([][]float32, index.Size())
	for pos := range vectors {
		vectors[pos] = index.Vector(pos)
	}

	written, err := qdrantRepo.NewIndexRepo(qdrantClient.Client, cfg.Qdrant, log).Upsert(ctx, vectors, cat)
	if err != nil {
		return written, err
	}

	log.Infof("synced %d vectors into qdrant collection %s", written, cfg.Qdrant.QdrantCollectionName)
	return written, nil
}

// ImportCatalog загружает JSON-маппинг из path в таблицу catalog_entries.
func ImportCatalog(ctx context.Context, cfg *config.Config, log logger.Logger, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, e.Wrap(whereami.WhereAmI(), err)
	}

	entries, err := catalog.Parse(data)
	if err != nil {
		return 0, e.Wrap(path, err)
	}
	if _, err := catalog.New(entries); err != nil {
		return 0, e.Wrap(path, err)
	}

	db, err := initPGDB(ctx, log, cfg.Db)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	changed, err := pgdb.NewCatalogRepo(db.Pool, pgdbConv.NewCatalogEntryConverterImpl(), log).Upsert(ctx, entries)
	if err != nil {
		return changed, err
	}

	log.Infof("catalog import from %s: %d entries read, %d rows changed", path, len(entries), changed)
	return changed, nil
}

// PublishArtifacts загружает локальные файлы маппинга и индекса в бакет ARTIFACTS_BUCKET.
// Отсутствующие локальные файлы пропускаются.
func PublishArtifacts(ctx context.Context, cfg *config.Config, log logger.Logger) (int, error) {
	if cfg.Artifacts.Bucket == "" {
		return 0, e.Wrap("ARTIFACTS_BUCKET is empty", e.ErrIncorrectEnvVariable)
	}

	minioClient, err := clients.NewMinIOClient(cfg.Minio)
	if err != nil {
		return 0, e.Wrap(whereami.WhereAmI(), err)
	}
	if err := clients.EnsureBucket(ctx, minioClient, cfg.Artifacts.Bucket); err != nil {
		return 0, e.Wrap(whereami.WhereAmI(), err)
	}

	repo := s3Repo.NewArtifactRepo(minioClient, cfg.Artifacts.Bucket)

	files := []struct{ path, key string }{
		{cfg.Artifacts.MappingPath, cfg.Artifacts.MappingObjectKey},
		{cfg.Artifacts.IndexPath, cfg.Artifacts.IndexObjectKey},
	}

	uploaded := 0
	for _, f := range files {
		if _, err := os.Stat(f.path); errors.Is(err, fs.ErrNotExist) {
			log.Warnf("skip %s: file does not exist", f.path)
			continue
		}

		if err := repo.Upload(ctx, f.path, f.key); err != nil {
			return uploaded, err
		}
		uploaded++
		log.Infof("uploaded %s to %s/%s", f.path, cfg.Artifacts.Bucket, f.key)
	}

	return uploaded, nil
}

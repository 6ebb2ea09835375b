package pgdb

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jchangwan/campus-closet-share/internal/domain"
	"github.com/jchangwan/campus-closet-share/internal/repository/catalog"
	"github.com/jchangwan/campus-closet-share/internal/repository/pgdb/converter"
	"github.com/jchangwan/campus-closet-share/internal/usecase"
	"github.com/jchangwan/campus-closet-share/pkg/e"
	"github.com/jchangwan/campus-closet-share/pkg/logger"
	"github.com/jimlawless/whereami"
)

// CatalogRepo читает маппинг каталога из таблицы catalog_entries.
type CatalogRepo struct {
	pool   *pgxpool.Pool
	conv   converter.CatalogEntryConverter
	logger logger.Logger
}

func NewCatalogRepo(pool *pgxpool.Pool, conv converter.CatalogEntryConverter, logger logger.Logger) *CatalogRepo {
	return &CatalogRepo{
		pool:   pool,
		conv:   conv,
		logger: logger,
	}
}

// LoadCatalog загружает все неархивные записи. Пустая таблица считается отсутствующим артефактом.
func (c *CatalogRepo) LoadCatalog(ctx context.Context) (usecase.Catalog, error) {
	query := `
		SELECT idx, brand_name, product_name, link, image_url, product_spec, post_id,
			created_at, updated_at, is_archived
		FROM catalog_entries
		WHERE is_archived = false
		ORDER BY idx;
	`

	rows, err := c.pool.Query(ctx, query)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	models, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[converter.CatalogEntryModel])
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if len(models) == 0 {
		return nil, e.Wrap("catalog_entries is empty", e.ErrArtifactNotFound)
	}

	result, err := catalog.New(c.conv.ToArrEntity(models))
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	c.logger.Infof("catalog mapping loaded from postgres: %d entries", result.Len())
	return result, nil
}

// Upsert идемпотентно записывает записи каталога по позиции idx одним батчем.
// Запись обновляется только при изменении данных.
func (c *CatalogRepo) Upsert(ctx context.Context, entries []domain.CatalogEntry) (int, error) {
	query := `
		INSERT INTO catalog_entries (idx, brand_name, product_name, link, image_url, product_spec, post_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (idx)
		DO UPDATE SET
			brand_name = EXCLUDED.brand_name,
			product_name = EXCLUDED.product_name,
			link = EXCLUDED.link,
			image_url = EXCLUDED.image_url,
			product_spec = EXCLUDED.product_spec,
			post_id = EXCLUDED.post_id,
			is_archived = false,
			updated_at = NOW()
		WHERE
			(catalog_entries.brand_name, catalog_entries.product_name, catalog_entries.link,
			 catalog_entries.image_url, catalog_entries.product_spec, catalog_entries.post_id,
			 catalog_entries.is_archived)
			IS DISTINCT FROM
			(EXCLUDED.brand_name, EXCLUDED.product_name, EXCLUDED.link,
			 EXCLUDED.image_url, EXCLUDED.product_spec, EXCLUDED.post_id, false);
	`

	batch := &pgx.Batch{}
	for _, entry := range entries {
		m := c.conv.ToModel(entry)
		batch.Queue(query, m.Idx, m.BrandName, m.ProductName, m.Link, m.ImageURL, m.ProductSpec, m.PostID)
	}

	results := c.pool.SendBatch(ctx, batch)
	defer results.Close()

	changed := 0
	for range entries {
		tag, err := results.Exec()
		if err != nil {
			return changed, e.Wrap(whereami.WhereAmI(), err)
		}
		changed += int(tag.RowsAffected())
	}

	return changed, nil
}

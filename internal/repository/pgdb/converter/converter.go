package converter

import "github.com/jchangwan/campus-closet-share/internal/domain"

// CatalogEntryConverter преобразует записи каталога между domain и моделью PostgreSQL.
type CatalogEntryConverter interface {
	ToModel(entity domain.CatalogEntry) *CatalogEntryModel
	ToEntity(model *CatalogEntryModel) domain.CatalogEntry
	ToArrEntity(models []*CatalogEntryModel) []domain.CatalogEntry
}

type CatalogEntryConverterImpl struct{}

func NewCatalogEntryConverterImpl() *CatalogEntryConverterImpl {
	return &CatalogEntryConverterImpl{}
}

func (c *CatalogEntryConverterImpl) ToModel(entity domain.CatalogEntry) *CatalogEntryModel {
	return &CatalogEntryModel{
		Idx:         entity.Index,
		BrandName:   entity.BrandName,
		ProductName: entity.ProductName,
		Link:        entity.Link,
		ImageURL:    entity.ImageURL,
		ProductSpec: entity.ProductSpec,
		PostID:      entity.PostID,
	}
}

func (c *CatalogEntryConverterImpl) ToEntity(model *CatalogEntryModel) domain.CatalogEntry {
	return domain.CatalogEntry{
		Index:       model.Idx,
		BrandName:   model.BrandName,
		ProductName: model.ProductName,
		Link:        model.Link,
		ImageURL:    model.ImageURL,
		ProductSpec: model.ProductSpec,
		PostID:      model.PostID,
	}
}

func (c *CatalogEntryConverterImpl) ToArrEntity(models []*CatalogEntryModel) []domain.CatalogEntry {
	if models == nil {
		return nil
	}

	entities := make([]domain.CatalogEntry, len(models))
	for i, m := range models {
		entities[i] = c.ToEntity(m)
	}

	return entities
}

package domain

// CatalogEntry описывает товар каталога, на который указывает позиция в векторном индексе.
// Записи создаются офлайн-индексатором и не меняются во время работы сервиса.
type CatalogEntry struct {
	Index       int64  // позиция вектора в индексе (0..N-1)
	BrandName   string
	ProductName string
	Link        string
	ImageURL    string
	ProductSpec string
	PostID      *int64 // идентификатор поста во внешней системе, может отсутствовать
}

const defaultCategory = "-"

// Category возвращает категорию товара или "-", если она не указана.
func (c CatalogEntry) Category() string {
	if c.ProductSpec == "" {
		return defaultCategory
	}

	return c.ProductSpec
}

// ExternalID возвращает идентификатор поста, а при его отсутствии — позицию в индексе.
func (c CatalogEntry) ExternalID() int64 {
	if c.PostID != nil {
		return *c.PostID
	}

	return c.Index
}

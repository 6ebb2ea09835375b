package converter

import "time"

// CatalogEntryModel представляет запись таблицы catalog_entries в PostgreSQL.
type CatalogEntryModel struct {
	Idx         int64      `db:"idx"`
	BrandName   string     `db:"brand_name"`
	ProductName string     `db:"product_name"`
	Link        string     `db:"link"`
	ImageURL    string     `db:"image_url"`
	ProductSpec string     `db:"product_spec"`
	PostID      *int64     `db:"post_id"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   *time.Time `db:"updated_at"`
	IsArchived  bool       `db:"is_archived"`
}

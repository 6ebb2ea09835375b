package domain

// ResponseMode задаёт форму ответа поиска.
type ResponseMode string

const (
	// ModeFull — полные метаданные товара (brand, name, link, image, category, score).
	ModeFull ResponseMode = "full"
	// ModeResults — product_id с метаданными товара.
	ModeResults ResponseMode = "results"
	// ModeIDs — только внешние идентификаторы.
	ModeIDs ResponseMode = "ids"
)

package catalog

import (
	"fmt"

	"github.com/jchangwan/campus-closet-share/internal/domain"
	"github.com/jchangwan/campus-closet-share/pkg/e"
)

// Catalog — неизменяемый маппинг позиции индекса в запись каталога.
type Catalog struct {
	entries map[int64]domain.CatalogEntry
}

// New строит каталог. Повторяющийся или отрицательный индекс считается ошибкой маппинга.
func New(entries []domain.CatalogEntry) (*Catalog, error) {
	const op = "catalog.New"

	m := make(map[int64]domain.CatalogEntry, len(entries))
	for _, entry := range entries {
		if entry.Index < 0 {
			return nil, e.Wrap(fmt.Sprintf("%s: negative index %d", op, entry.Index), e.ErrInvalidCatalog)
		}
		if _, ok := m[entry.Index]; ok {
			return nil, e.Wrap(fmt.Sprintf("%s: index %d", op, entry.Index), e.ErrDuplicateCatalogKey)
		}
		m[entry.Index] = entry
	}

	return &Catalog{entries: m}, nil
}

func (c *Catalog) Get(index int64) (domain.CatalogEntry, bool) {
	entry, ok := c.entries[index]
	return entry, ok
}

func (c *Catalog) Len() int {
	return len(c.entries)
}

// Gaps возвращает число позиций в диапазоне [0, Len) без записи.
// Ненулевое значение означает, что соответствие 1:1 с индексом нарушено.
func (c *Catalog) Gaps() int {
	gaps := 0
	for i := 0; i < len(c.entries); i++ {
		if _, ok := c.entries[int64(i)]; !ok {
			gaps++
		}
	}

	return gaps
}

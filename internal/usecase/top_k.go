package usecase

import "github.com/jchangwan/campus-closet-share/internal/domain"

// TopKPolicy хранит k по умолчанию для каждой формы ответа и верхнюю границу.
type TopKPolicy struct {
	defaults map[domain.ResponseMode]int
	max      int
}

func NewTopKPolicy(full, results, ids, max int) TopKPolicy {
	return TopKPolicy{
		defaults: map[domain.ResponseMode]int{
			domain.ModeFull:    full,
			domain.ModeResults: results,
			domain.ModeIDs:     ids,
		},
		max: max,
	}
}

// Resolve возвращает k для запроса: requested <= 0 заменяется значением по умолчанию,
// слишком большое значение обрезается до max.
func (p TopKPolicy) Resolve(mode domain.ResponseMode, requested int) int {
	k := requested
	if k <= 0 {
		k = p.defaults[mode]
	}
	if k <= 0 {
		k = 1
	}
	if p.max > 0 && k > p.max {
		k = p.max
	}

	return k
}

package usecase

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Artifacts — пара индекс + каталог, загруженная в память процесса.
// Index или Catalog может быть nil, пока соответствующий артефакт не найден.
type Artifacts struct {
	Index    VectorIndex
	Catalog  Catalog
	LoadedAt time.Time
}

// Ready сообщает, что оба артефакта загружены и не пусты.
func (a *Artifacts) Ready() bool {
	return a != nil &&
		a.Index != nil && a.Index.Size() > 0 &&
		a.Catalog != nil && a.Catalog.Len() > 0
}

// fingerprinter реализуют индексы, которые могут идентифицировать своё содержимое.
type fingerprinter interface {
	Fingerprint() string
}

// Version идентифицирует содержимое индекса. Если индекс не умеет вычислять отпечаток,
// версия привязана к моменту загрузки, то есть к процессу.
func (a *Artifacts) Version() string {
	if fp, ok := a.Index.(fingerprinter); ok {
		if v := fp.Fingerprint(); v != "" {
			return v
		}
	}

	return fmt.Sprintf("%d-%d-%d", a.Index.Size(), a.Index.Dimension(), a.LoadedAt.UnixNano())
}

func (a *Artifacts) IndexSize() int {
	if a == nil || a.Index == nil {
		return 0
	}

	return a.Index.Size()
}

func (a *Artifacts) CatalogSize() int {
	if a == nil || a.Catalog == nil {
		return 0
	}

	return a.Catalog.Len()
}

// ArtifactState публикует артефакты для обработчиков запросов без блокировок.
// После публикации готовой пары состояние больше не меняется.
type ArtifactState struct {
	current atomic.Pointer[Artifacts]
}

func NewArtifactState() *ArtifactState {
	return &ArtifactState{}
}

func (s *ArtifactState) Current() *Artifacts {
	return s.current.Load()
}

// Publish заменяет снимок артефактов, пока сервис не готов.
// Возвращает false, если готовая пара уже опубликована.
func (s *ArtifactState) Publish(a *Artifacts) bool {
	for {
		old := s.current.Load()
		if old.Ready() {
			return false
		}
		if s.current.CompareAndSwap(old, a) {
			return true
		}
	}
}

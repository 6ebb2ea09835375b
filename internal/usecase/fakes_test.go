package usecase

import (
	"context"
	"errors"
	"image"
	"sync"

	"github.com/jchangwan/campus-closet-share/internal/domain"
)

type fakeIndex struct {
	vectors [][]float32
	err     error
}

func (f *fakeIndex) Search(_ context.Context, vector []float32, k int) ([]domain.Neighbor, error) {
	if f.err != nil {
		return nil, f.err
	}

	out := make([]domain.Neighbor, 0, k)
	for i, v := range f.vectors {
		var d float32
		for j := range v {
			diff := v[j] - vector[j]
			d += diff * diff
		}
		out = append(out, domain.NewNeighbor(int64(i), d))
	}
	// Отдаём в порядке хранения: упорядочивание проверяется в resolveNeighbors
	for len(out) < k {
		out = append(out, domain.NewSentinelNeighbor())
	}
	return out, nil
}

func (f *fakeIndex) Size() int { return len(f.vectors) }

func (f *fakeIndex) Dimension() int {
	if len(f.vectors) == 0 {
		return 0
	}
	return len(f.vectors[0])
}

type fakeCatalog map[int64]domain.CatalogEntry

func (f fakeCatalog) Get(index int64) (domain.CatalogEntry, bool) {
	entry, ok := f[index]
	return entry, ok
}

func (f fakeCatalog) Len() int { return len(f) }

func catalogOf(n int) fakeCatalog {
	c := fakeCatalog{}
	for i := 0; i < n; i++ {
		c[int64(i)] = domain.CatalogEntry{
			Index:       int64(i),
			BrandName:   "brand",
			ProductName: string(rune('A' + i)),
		}
	}
	return c
}

type fakeDecoder struct {
	err error
}

func (f fakeDecoder) Decode(data []byte) (image.Image, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(data) == 0 {
		return nil, errors.New("empty")
	}
	return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
}

type fakeEncoder struct {
	mu     sync.Mutex
	vector []float32
	err    error
	calls  int
	device domain.Device
}

func (f *fakeEncoder) Encode(context.Context, image.Image) (*domain.Embedding, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return domain.NewEmbedding(f.vector, "clip"), nil
}

func (f *fakeEncoder) Device(context.Context) domain.Device {
	if f.device == "" {
		return domain.DeviceCPU
	}
	return f.device
}

func (f *fakeEncoder) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeFetcher struct {
	data  []byte
	err   error
	calls int
}

func (f *fakeFetcher) Fetch(context.Context, string) ([]byte, error) {
	f.calls++
	return f.data, f.err
}

type memoryCache struct {
	mu    sync.Mutex
	items map[string][]domain.Neighbor
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: map[string][]domain.Neighbor{}}
}

func (m *memoryCache) GetNeighbors(_ context.Context, key string) ([]domain.Neighbor, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.items[key]
	return n, ok
}

func (m *memoryCache) SetNeighbors(_ context.Context, key string, neighbors []domain.Neighbor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = neighbors
}

type recordingEvents struct {
	mu     sync.Mutex
	events []*SearchEvent
}

func (r *recordingEvents) PublishSearchEvent(_ context.Context, event *SearchEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingEvents) All() []*SearchEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*SearchEvent(nil), r.events...)
}

type fakeIndexSource struct {
	mu    sync.Mutex
	index VectorIndex
	errs  []error
	calls int
}

func (f *fakeIndexSource) LoadIndex(context.Context) (VectorIndex, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	return f.index, nil
}

func (f *fakeIndexSource) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeCatalogSource struct {
	mu      sync.Mutex
	catalog Catalog
	err     error
	calls   int
}

func (f *fakeCatalogSource) LoadCatalog(context.Context) (Catalog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.catalog, nil
}

func (f *fakeCatalogSource) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeArtifactFetcher struct {
	err   error
	calls int
}

func (f *fakeArtifactFetcher) FetchArtifacts(context.Context) error {
	f.calls++
	return f.err
}

package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jchangwan/campus-closet-share/pkg/e"
	"github.com/jchangwan/campus-closet-share/pkg/jitter"
	"github.com/jchangwan/campus-closet-share/pkg/logger"
)

func newTestLoader(index *fakeIndexSource, catalog *fakeCatalogSource, fetcher ArtifactFetcher) (*ArtifactLoader, *ArtifactState) {
	state := NewArtifactState()
	backoff := jitter.NewBackoff(time.Millisecond, 5*time.Millisecond)
	return NewArtifactLoader(state, index, catalog, fetcher, backoff, logger.NewNopLogger()), state
}

func TestArtifactLoader_Load(t *testing.T) {
	index := &fakeIndexSource{index: &fakeIndex{vectors: [][]float32{{1, 0}, {0, 1}}}}
	catalog := &fakeCatalogSource{catalog: catalogOf(2)}
	loader, state := newTestLoader(index, catalog, nil)

	if err := loader.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	current := state.Current()
	if !current.Ready() || current.IndexSize() != 2 || current.CatalogSize() != 2 {
		t.Fatalf("unexpected state: ready=%t index=%d catalog=%d", current.Ready(), current.IndexSize(), current.CatalogSize())
	}
	if current.LoadedAt.IsZero() {
		t.Error("LoadedAt must be set")
	}

	// Повторный вызов на готовом состоянии ничего не читает.
	if err := loader.Load(context.Background()); err != nil {
		t.Fatalf("second Load: %v", err)
	}
	if index.Calls() != 1 || catalog.Calls() != 1 {
		t.Errorf("sources re-read: index=%d catalog=%d", index.Calls(), catalog.Calls())
	}
}

func TestArtifactLoader_MissingIndexDegrades(t *testing.T) {
	index := &fakeIndexSource{
		index: &fakeIndex{vectors: [][]float32{{1, 0}}},
		errs:  []error{e.ErrArtifactNotFound},
	}
	catalog := &fakeCatalogSource{catalog: catalogOf(1)}
	loader, state := newTestLoader(index, catalog, nil)

	err := loader.Load(context.Background())
	if !errors.Is(err, e.ErrServiceUnavailable) || !errors.Is(err, e.ErrArtifactNotFound) {
		t.Fatalf("got %v, want ErrServiceUnavailable and ErrArtifactNotFound", err)
	}

	current := state.Current()
	if current.Ready() || current.CatalogSize() != 1 || current.IndexSize() != 0 {
		t.Fatalf("unexpected degraded state: catalog=%d index=%d", current.CatalogSize(), current.IndexSize())
	}

	if err := loader.Load(context.Background()); err != nil {
		t.Fatalf("second Load: %v", err)
	}
	if catalog.Calls() != 1 {
		t.Errorf("catalog must be kept between attempts, loaded %d times", catalog.Calls())
	}
	if index.Calls() != 2 {
		t.Errorf("index calls: got %d, want 2", index.Calls())
	}
}

func TestArtifactLoader_EmptyCatalogDegrades(t *testing.T) {
	index := &fakeIndexSource{index: &fakeIndex{vectors: [][]float32{{1, 0}}}}
	catalog := &fakeCatalogSource{catalog: catalogOf(0)}
	loader, state := newTestLoader(index, catalog, nil)

	err := loader.Load(context.Background())
	if !errors.Is(err, e.ErrServiceUnavailable) || !errors.Is(err, e.ErrEmptyCatalog) {
		t.Fatalf("got %v, want ErrServiceUnavailable and ErrEmptyCatalog", err)
	}
	if state.Current().Ready() {
		t.Fatal("state must stay degraded")
	}
}

func TestArtifactLoader_FetcherFailureIsNotFatal(t *testing.T) {
	index := &fakeIndexSource{index: &fakeIndex{vectors: [][]float32{{1, 0}}}}
	catalog := &fakeCatalogSource{catalog: catalogOf(1)}
	fetcher := &fakeArtifactFetcher{err: errors.New("bucket unreachable")}
	loader, state := newTestLoader(index, catalog, fetcher)

	if err := loader.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if fetcher.calls != 1 {
		t.Errorf("fetcher calls: got %d, want 1", fetcher.calls)
	}
	if !state.Current().Ready() {
		t.Fatal("local files must still be loaded")
	}
}

func TestArtifactLoader_WatchRetriesUntilReady(t *testing.T) {
	index := &fakeIndexSource{
		index: &fakeIndex{vectors: [][]float32{{1, 0}}},
		errs:  []error{e.ErrArtifactNotFound, e.ErrArtifactNotFound},
	}
	catalog := &fakeCatalogSource{catalog: catalogOf(1)}
	loader, state := newTestLoader(index, catalog, nil)

	if err := loader.Load(context.Background()); err == nil {
		t.Fatal("first Load must fail")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		loader.Watch(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("Watch did not finish")
	}

	if !state.Current().Ready() {
		t.Fatal("state must be ready after Watch")
	}
	if index.Calls() != 3 {
		t.Errorf("index calls: got %d, want 3", index.Calls())
	}
}

func TestArtifactLoader_WatchStopsOnCancel(t *testing.T) {
	index := &fakeIndexSource{}
	for i := 0; i < 1000; i++ {
		index.errs = append(index.errs, e.ErrArtifactNotFound)
	}
	catalog := &fakeCatalogSource{err: e.ErrArtifactNotFound}
	loader, state := newTestLoader(index, catalog, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		loader.Watch(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Watch ignored cancellation")
	}

	if state.Current().Ready() {
		t.Fatal("state must stay degraded")
	}
}

func TestArtifactState_PublishOnce(t *testing.T) {
	state := NewArtifactState()

	partial := &Artifacts{Catalog: catalogOf(1)}
	if !state.Publish(partial) {
		t.Fatal("partial artifacts must be accepted")
	}

	ready := &Artifacts{Index: &fakeIndex{vectors: [][]float32{{1}}}, Catalog: catalogOf(1)}
	if !state.Publish(ready) {
		t.Fatal("ready artifacts must replace the partial ones")
	}

	other := &Artifacts{Index: &fakeIndex{vectors: [][]float32{{1}, {2}}}, Catalog: catalogOf(2)}
	if state.Publish(other) {
		t.Fatal("published ready artifacts must not be replaced")
	}
	if state.Current() != ready {
		t.Fatal("state changed after ready publication")
	}
}

package minio

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jchangwan/campus-closet-share/pkg/e"
	"github.com/jchangwan/campus-closet-share/pkg/jitter"
	"github.com/jchangwan/campus-closet-share/pkg/logger"
)

type fakeArtifactRepo struct {
	mu       sync.Mutex
	calls    map[string]int
	failures map[string]int    // сколько раз вернуть временную ошибку
	missing  map[string]bool   // объекты, которых нет в бакете
	saved    map[string]string // ключ -> локальный путь
}

func newFakeArtifactRepo() *fakeArtifactRepo {
	return &fakeArtifactRepo{
		calls:    map[string]int{},
		failures: map[string]int{},
		missing:  map[string]bool{},
		saved:    map[string]string{},
	}
}

func (f *fakeArtifactRepo) Download(_ context.Context, key, dst string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls[key]++
	if f.missing[key] {
		return e.Wrap(key, e.ErrArtifactNotFound)
	}
	if f.failures[key] > 0 {
		f.failures[key]--
		return errors.New("connection reset")
	}
	f.saved[key] = dst
	return nil
}

func (f *fakeArtifactRepo) Upload(context.Context, string, string) error { return nil }

func testBackoff() *jitter.Backoff {
	return jitter.NewBackoff(time.Millisecond, 2*time.Millisecond)
}

func TestFetchArtifacts_RetriesTransientErrors(t *testing.T) {
	repo := newFakeArtifactRepo()
	repo.failures["vector_db.index"] = 2

	infra := NewArtifactInfrastructure(repo, []ArtifactObject{
		{ObjectKey: "mapping_data.json", LocalPath: "/tmp/mapping_data.json"},
		{ObjectKey: "vector_db.index", LocalPath: "/tmp/vector_db.index"},
	}, testBackoff(), logger.NewNopLogger())

	if err := infra.FetchArtifacts(context.Background()); err != nil {
		t.Fatalf("FetchArtifacts: %v", err)
	}
	if repo.calls["vector_db.index"] != 3 {
		t.Errorf("index download calls: got %d, want 3", repo.calls["vector_db.index"])
	}
	if repo.saved["mapping_data.json"] != "/tmp/mapping_data.json" {
		t.Errorf("mapping saved to %q", repo.saved["mapping_data.json"])
	}
}

func TestFetchArtifacts_MissingObjectIsNotRetried(t *testing.T) {
	repo := newFakeArtifactRepo()
	repo.missing["vector_db.index"] = true

	infra := NewArtifactInfrastructure(repo, []ArtifactObject{
		{ObjectKey: "vector_db.index", LocalPath: "/tmp/vector_db.index"},
	}, testBackoff(), logger.NewNopLogger())

	err := infra.FetchArtifacts(context.Background())
	if !errors.Is(err, e.ErrArtifactNotFound) {
		t.Fatalf("got %v, want ErrArtifactNotFound", err)
	}
	if repo.calls["vector_db.index"] != 1 {
		t.Errorf("calls: got %d, want 1", repo.calls["vector_db.index"])
	}
}

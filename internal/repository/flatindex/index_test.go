package flatindex

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jchangwan/campus-closet-share/internal/domain"
	"github.com/jchangwan/campus-closet-share/pkg/e"
	"github.com/jchangwan/campus-closet-share/pkg/logger"
)

func mustIndex(t *testing.T, vectors [][]float32) *Index {
	t.Helper()
	idx, err := New(vectors)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return idx
}

func TestSearch_OrdersBySquaredL2(t *testing.T) {
	idx := mustIndex(t, [][]float32{{1, 0}, {0, 1}, {2, 0}})

	got, err := idx.Search(context.Background(), []float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	want := []domain.Neighbor{
		{Index: 0, Distance: 0},
		{Index: 2, Distance: 1},
		{Index: 1, Distance: 2},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d neighbors, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("neighbor %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestSearch_PadsWithSentinel(t *testing.T) {
	idx := mustIndex(t, [][]float32{{0, 0}, {3, 4}})

	got, err := idx.Search(context.Background(), []float32{0, 0}, 4)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("got %d neighbors, want 4", len(got))
	}
	if got[1].Index != 1 || got[1].Distance != 25 {
		t.Errorf("second neighbor: got %+v", got[1])
	}
	for _, n := range got[2:] {
		if !n.IsSentinel() {
			t.Errorf("expected sentinel, got %+v", n)
		}
	}
}

func TestSearch_TiesKeepLowerPositionFirst(t *testing.T) {
	idx := mustIndex(t, [][]float32{{1, 1}, {-1, -1}, {1, -1}})

	got, err := idx.Search(context.Background(), []float32{0, 0}, 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for i, n := range got {
		if n.Index != int64(i) {
			t.Errorf("position %d: got index %d", i, n.Index)
		}
	}
}

func TestSearch_Errors(t *testing.T) {
	idx := mustIndex(t, [][]float32{{1, 0, 0}})

	tests := []struct {
		name    string
		ctx     func() context.Context
		vector  []float32
		wantErr error
	}{
		{
			name:    "dimension mismatch",
			ctx:     context.Background,
			vector:  []float32{1, 0},
			wantErr: e.ErrDimensionMismatch,
		},
		{
			name: "cancelled context",
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			},
			vector:  []float32{1, 0, 0},
			wantErr: context.Canceled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := idx.Search(tt.ctx(), tt.vector, 1)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNew_RejectsRaggedVectors(t *testing.T) {
	_, err := New([][]float32{{1, 2}, {1}})
	if !errors.Is(err, e.ErrDimensionMismatch) {
		t.Fatalf("got %v, want ErrDimensionMismatch", err)
	}
}

// faissFlatL2 собирает байты так, как их пишет faiss.write_index для IndexFlatL2.
func faissFlatL2(t *testing.T, magic string, metric int32, vectors [][]float32) []byte {
	t.Helper()

	var buf bytes.Buffer
	buf.WriteString(magic)
	put := func(v any) {
		if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
			t.Fatal(err)
		}
	}

	dim := int32(len(vectors[0]))
	put(dim)
	put(int64(len(vectors)))
	put(int64(1 << 20))
	put(int64(1 << 20))
	put(uint8(1))
	put(metric)
	if metric > 1 {
		put(float32(0))
	}
	put(uint64(len(vectors) * int(dim)))
	for _, v := range vectors {
		put(v)
	}

	return buf.Bytes()
}

func TestRead_FaissFlatL2(t *testing.T) {
	vectors := [][]float32{{1, 0}, {0, 1}, {2, 0}}

	for _, magic := range []string{fourccFaissL2, fourccFaissFlat} {
		t.Run(magic, func(t *testing.T) {
			idx, err := Read(bytes.NewReader(faissFlatL2(t, magic, faissMetricL2, vectors)))
			if err != nil {
				t.Fatalf("Read: %v", err)
			}
			if idx.Size() != 3 || idx.Dimension() != 2 {
				t.Fatalf("got size=%d dim=%d", idx.Size(), idx.Dimension())
			}
			if v := idx.Vector(2); v[0] != 2 || v[1] != 0 {
				t.Errorf("vector 2: got %v", v)
			}
		})
	}
}

func TestRead_Rejects(t *testing.T) {
	valid := faissFlatL2(t, fourccFaissL2, faissMetricL2, [][]float32{{1, 0}})

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"unknown magic", []byte("ZZZZ...."), e.ErrUnsupportedIndex},
		{"inner product", []byte("IxFI"), e.ErrUnsupportedIndex},
		{"flat with non-L2 metric", faissFlatL2(t, fourccFaissFlat, 0, [][]float32{{1, 0}}), e.ErrUnsupportedIndex},
		{"truncated vectors", valid[:len(valid)-2], e.ErrCorruptedIndex},
		{"empty", nil, e.ErrCorruptedIndex},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(bytes.NewReader(tt.data))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestWriteRead_Native(t *testing.T) {
	src := mustIndex(t, [][]float32{{0.5, -1, 2}, {3, 4, 5}})

	var buf bytes.Buffer
	if err := Write(&buf, src); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte(fourccNative)) {
		t.Fatalf("missing %s magic", fourccNative)
	}

	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Size() != 2 || got.Dimension() != 3 {
		t.Fatalf("got size=%d dim=%d", got.Size(), got.Dimension())
	}
	if v := got.Vector(0); v[0] != 0.5 || v[1] != -1 || v[2] != 2 {
		t.Errorf("vector 0: got %v", v)
	}
}

func TestFileSource_LoadIndex(t *testing.T) {
	dir := t.TempDir()
	log := logger.NewNopLogger()

	t.Run("missing file", func(t *testing.T) {
		_, err := NewFileSource(filepath.Join(dir, "absent.index"), log).LoadIndex(context.Background())
		if !errors.Is(err, e.ErrArtifactNotFound) {
			t.Fatalf("got %v, want ErrArtifactNotFound", err)
		}
	})

	t.Run("faiss file", func(t *testing.T) {
		path := filepath.Join(dir, "vector_db.index")
		data := faissFlatL2(t, fourccFaissL2, faissMetricL2, [][]float32{{1, 0}, {0, 1}})
		if err := os.WriteFile(path, data, 0o600); err != nil {
			t.Fatal(err)
		}

		idx, err := NewFileSource(path, log).LoadIndex(context.Background())
		if err != nil {
			t.Fatalf("LoadIndex: %v", err)
		}
		if idx.Size() != 2 {
			t.Errorf("size: got %d, want 2", idx.Size())
		}
	})
}

func TestFingerprint(t *testing.T) {
	a := mustIndex(t, [][]float32{{1, 0}, {0, 1}})
	same := mustIndex(t, [][]float32{{1, 0}, {0, 1}})
	moved := mustIndex(t, [][]float32{{1, 0}, {0, 2}})
	reshaped := mustIndex(t, [][]float32{{1, 0, 0, 1}})

	if a.Fingerprint() == "" {
		t.Fatal("fingerprint must not be empty")
	}
	if a.Fingerprint() != same.Fingerprint() {
		t.Errorf("equal contents: %s != %s", a.Fingerprint(), same.Fingerprint())
	}
	if a.Fingerprint() == moved.Fingerprint() {
		t.Error("same shape with different vectors must change the fingerprint")
	}
	if a.Fingerprint() == reshaped.Fingerprint() {
		t.Error("same values with different shape must change the fingerprint")
	}

	var buf bytes.Buffer
	if err := Write(&buf, a); err != nil {
		t.Fatalf("Write: %v", err)
	}
	read, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if read.Fingerprint() != a.Fingerprint() {
		t.Errorf("fingerprint changed after a write/read cycle: %s != %s", read.Fingerprint(), a.Fingerprint())
	}
}

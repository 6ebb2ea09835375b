package flatindex

import (
	"cmp"
	"context"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"
	"slices"

	"github.com/jchangwan/campus-closet-share/internal/domain"
	"github.com/jchangwan/campus-closet-share/pkg/e"
)

// Index — точный (brute-force) индекс по квадрату евклидова расстояния,
// совместимый по результатам с FAISS IndexFlatL2.
// После построения индекс не изменяется и безопасен для конкурентного чтения.
type Index struct {
	dim         int
	n           int
	data        []float32 // n*dim значений подряд
	fingerprint string
}

// New строит индекс из набора векторов одинаковой размерности.
func New(vectors [][]float32) (*Index, error) {
	const op = "flatindex.New"

	if len(vectors) == 0 {
		return &Index{}, nil
	}

	dim := len(vectors[0])
	if dim == 0 {
		return nil, e.Wrap(op, e.ErrVectorEmbeddingEmpty)
	}

	data := make([]float32, 0, len(vectors)*dim)
	for i, v := range vectors {
		if len(v) != dim {
			return nil, e.Wrap(fmt.Sprintf("%s: vector %d has dim %d, want %d", op, i, len(v), dim), e.ErrDimensionMismatch)
		}
		data = append(data, v...)
	}

	return newFromFlat(dim, len(vectors), data), nil
}

func newFromFlat(dim, n int, data []float32) *Index {
	return &Index{dim: dim, n: n, data: data, fingerprint: fingerprintOf(dim, n, data)}
}

// Fingerprint — FNV-1a от размерности и всех векторов индекса.
// Индексы с одинаковым содержимым имеют одинаковый отпечаток в любом процессе.
func (i *Index) Fingerprint() string {
	return i.fingerprint
}

func fingerprintOf(dim, n int, data []float32) string {
	h := fnv.New64a()

	var buf [4096]byte
	binary.LittleEndian.PutUint32(buf[0:], uint32(dim))
	binary.LittleEndian.PutUint32(buf[4:], uint32(n))
	_, _ = h.Write(buf[:8])

	for len(data) > 0 {
		chunk := min(len(data), len(buf)/4)
		for j, v := range data[:chunk] {
			binary.LittleEndian.PutUint32(buf[j*4:], math.Float32bits(v))
		}
		_, _ = h.Write(buf[:chunk*4])
		data = data[chunk:]
	}

	return fmt.Sprintf("flat-%d-%d-%016x", n, dim, h.Sum64())
}

func (i *Index) Size() int {
	return i.n
}

func (i *Index) Dimension() int {
	return i.dim
}

// Vector возвращает копию вектора с позицией pos.
func (i *Index) Vector(pos int) []float32 {
	if pos < 0 || pos >= i.n {
		return nil
	}

	return slices.Clone(i.data[pos*i.dim : (pos+1)*i.dim])
}

// Search возвращает k ближайших соседей по возрастанию квадрата L2-расстояния.
// При равных расстояниях раньше идёт меньшая позиция. Если k больше размера индекса,
// хвост заполняется domain.SentinelIndex, как это делает FAISS.
func (i *Index) Search(ctx context.Context, vector []float32, k int) ([]domain.Neighbor, error) {
	const op = "Index.Search"

	if k <= 0 {
		return nil, nil
	}
	if i.n > 0 && len(vector) != i.dim {
		return nil, e.Wrap(fmt.Sprintf("%s: query dim %d, index dim %d", op, len(vector), i.dim), e.ErrDimensionMismatch)
	}
	if err := ctx.Err(); err != nil {
		return nil, e.Wrap(op, err)
	}

	scored := make([]domain.Neighbor, i.n)
	for pos := 0; pos < i.n; pos++ {
		scored[pos] = domain.NewNeighbor(int64(pos), squaredL2(vector, i.data[pos*i.dim:(pos+1)*i.dim]))
	}

	slices.SortFunc(scored, func(a, b domain.Neighbor) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.Index, b.Index)
	})

	out := make([]domain.Neighbor, k)
	for j := range out {
		if j < len(scored) {
			out[j] = scored[j]
			continue
		}
		out[j] = domain.NewSentinelNeighbor()
	}

	return out, nil
}

func squaredL2(a, b []float32) float32 {
	var sum float32
	for j := range a {
		d := a[j] - b[j]
		sum += d * d
	}

	return sum
}

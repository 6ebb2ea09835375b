package flatindex

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/jchangwan/campus-closet-share/pkg/e"
)

// Поддерживаемые сигнатуры файлов индекса.
const (
	fourccFaissL2   = "IxF2" // faiss.IndexFlatL2
	fourccFaissFlat = "IxFl" // faiss.IndexFlat с явным metric_type
	fourccFaissIP   = "IxFI" // faiss.IndexFlatIP, не поддерживается
	fourccNative    = "CCVX"

	nativeVersion = 1

	faissMetricL2 = 1

	// Верхняя граница на число float32 в файле, чтобы битый заголовок не приводил к огромной аллокации.
	maxFloats = 1 << 31
)

// Read читает индекс в формате FAISS (IndexFlatL2) или в собственном формате CCVX.
func Read(r io.Reader) (*Index, error) {
	const op = "flatindex.Read"

	br := bufio.NewReader(r)

	var magic [4]byte
	if _, err := io.ReadFull(br, magic[:]); err != nil {
		return nil, e.Wrap(op, fmt.Errorf("%w: read magic: %v", e.ErrCorruptedIndex, err))
	}

	var (
		idx *Index
		err error
	)
	switch string(magic[:]) {
	case fourccFaissL2, fourccFaissFlat:
		idx, err = readFaissFlat(br, string(magic[:]))
	case fourccNative:
		idx, err = readNative(br)
	case fourccFaissIP:
		err = e.Wrap("inner product metric", e.ErrUnsupportedIndex)
	default:
		err = e.Wrap(fmt.Sprintf("magic %q", magic[:]), e.ErrUnsupportedIndex)
	}
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return idx, nil
}

// readFaissFlat разбирает заголовок write_index_header и вектор кодов IndexFlat.
func readFaissFlat(r io.Reader, magic string) (*Index, error) {
	var header struct {
		Dim       int32
		NTotal    int64
		Dummy1    int64
		Dummy2    int64
		IsTrained uint8
		Metric    int32
	}
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("%w: read header: %v", e.ErrCorruptedIndex, err)
	}

	if header.Metric > 1 {
		var metricArg float32
		if err := binary.Read(r, binary.LittleEndian, &metricArg); err != nil {
			return nil, fmt.Errorf("%w: read metric arg: %v", e.ErrCorruptedIndex, err)
		}
	}
	if magic == fourccFaissFlat && header.Metric != faissMetricL2 {
		return nil, e.Wrap(fmt.Sprintf("metric type %d", header.Metric), e.ErrUnsupportedIndex)
	}
	if header.Dim <= 0 || header.NTotal < 0 {
		return nil, e.Wrap(fmt.Sprintf("dim=%d ntotal=%d", header.Dim, header.NTotal), e.ErrCorruptedIndex)
	}

	var count uint64
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("%w: read vector size: %v", e.ErrCorruptedIndex, err)
	}

	dim, n := int(header.Dim), int(header.NTotal)
	if count != uint64(dim)*uint64(n) {
		return nil, e.Wrap(fmt.Sprintf("stored %d floats, header says %d x %d", count, n, dim), e.ErrCorruptedIndex)
	}

	data, err := readFloats(r, count)
	if err != nil {
		return nil, err
	}

	return newFromFlat(dim, n, data), nil
}

func readNative(r io.Reader) (*Index, error) {
	var header struct {
		Version uint32
		Dim     uint32
		N       uint64
	}
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("%w: read header: %v", e.ErrCorruptedIndex, err)
	}
	if header.Version != nativeVersion {
		return nil, e.Wrap(fmt.Sprintf("native version %d", header.Version), e.ErrUnsupportedIndex)
	}
	if header.Dim == 0 && header.N > 0 {
		return nil, e.Wrap("zero dimension", e.ErrCorruptedIndex)
	}

	data, err := readFloats(r, uint64(header.Dim)*header.N)
	if err != nil {
		return nil, err
	}

	return newFromFlat(int(header.Dim), int(header.N), data), nil
}

func readFloats(r io.Reader, count uint64) ([]float32, error) {
	if count > maxFloats {
		return nil, e.Wrap(fmt.Sprintf("%d floats", count), e.ErrCorruptedIndex)
	}

	data := make([]float32, count)
	if err := binary.Read(r, binary.LittleEndian, data); err != nil {
		return nil, fmt.Errorf("%w: read vectors: %v", e.ErrCorruptedIndex, err)
	}

	for _, v := range data {
		if math.IsNaN(float64(v)) {
			return nil, e.Wrap("NaN in vectors", e.ErrCorruptedIndex)
		}
	}

	return data, nil
}

// Write сохраняет индекс в формате CCVX: magic, version, dim, n и float32 little-endian.
func Write(w io.Writer, idx *Index) error {
	const op = "flatindex.Write"

	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(fourccNative); err != nil {
		return e.Wrap(op, err)
	}

	header := struct {
		Version uint32
		Dim     uint32
		N       uint64
	}{nativeVersion, uint32(idx.dim), uint64(idx.n)}
	if err := binary.Write(bw, binary.LittleEndian, header); err != nil {
		return e.Wrap(op, err)
	}
	if err := binary.Write(bw, binary.LittleEndian, idx.data); err != nil {
		return e.Wrap(op, err)
	}

	if err := bw.Flush(); err != nil {
		return e.Wrap(op, err)
	}

	return nil
}

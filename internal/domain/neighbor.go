package domain

import "math"

// SentinelIndex — значение индекса, которым векторный индекс помечает отсутствие совпадения.
const SentinelIndex int64 = -1

// Neighbor — один результат k-NN запроса.
// Distance — расстояние до запроса: чем меньше, тем ближе.
type Neighbor struct {
	Index    int64   `json:"index"`
	Distance float32 `json:"distance"`
}

func NewNeighbor(index int64, distance float32) Neighbor {
	return Neighbor{
		Index:    index,
		Distance: distance,
	}
}

// NewSentinelNeighbor возвращает заполнитель для позиции без совпадения.
func NewSentinelNeighbor() Neighbor {
	return NewNeighbor(SentinelIndex, math.MaxFloat32)
}

// IsSentinel сообщает, что индекс не нашёл соседа для этой позиции.
func (n Neighbor) IsSentinel() bool {
	return n.Index == SentinelIndex
}

package domain

// Embedding — вектор изображения, полученный от энкодера. Живёт только в пределах запроса.
type Embedding struct {
	Vector []float32
	Model  string
}

func NewEmbedding(vector []float32, model string) *Embedding {
	return &Embedding{
		Vector: vector,
		Model:  model,
	}
}

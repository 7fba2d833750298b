package domain

// Chunk is one indexed passage of study material. Chunks are immutable once
// appended to the knowledge store.
type Chunk struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding"`
}

// Dimension returns the length of the chunk's embedding vector.
func (c Chunk) Dimension() int {
	return len(c.Embedding)
}

// Clone returns a copy that shares no backing arrays with c.
func (c Chunk) Clone() Chunk {
	out := c
	if c.Embedding != nil {
		out.Embedding = make([]float32, len(c.Embedding))
		copy(out.Embedding, c.Embedding)
	}
	return out
}

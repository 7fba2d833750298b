package huggingface

import (
	"encoding/json"
	"errors"
	"fmt"
)

// parseEmbeddings normalizes a feature-extraction response into n vectors.
// The endpoint answers with a flat vector for one sentence-level input, a
// list of vectors for a batch, a token matrix for one token-level input, or
// a list of token matrices for a batch. Token matrices are mean-pooled.
func parseEmbeddings(body []byte, n int) ([][]float32, error) {
	var flat []float32
	if err := json.Unmarshal(body, &flat); err == nil {
		if n != 1 {
			return nil, fmt.Errorf("expected %d embeddings, got 1", n)
		}
		return checkVectors([][]float32{flat})
	}

	var matrix [][]float32
	if err := json.Unmarshal(body, &matrix); err == nil {
		switch {
		case len(matrix) == n:
			return checkVectors(matrix)
		case n == 1:
			pooled, err := meanPool(matrix)
			if err != nil {
				return nil, err
			}
			return [][]float32{pooled}, nil
		default:
			return nil, fmt.Errorf("expected %d embeddings, got %d", n, len(matrix))
		}
	}

	var batch [][][]float32
	if err := json.Unmarshal(body, &batch); err != nil {
		return nil, fmt.Errorf("unexpected embedding response shape: %w", err)
	}
	if len(batch) != n {
		return nil, fmt.Errorf("expected %d embeddings, got %d", n, len(batch))
	}
	out := make([][]float32, n)
	for i, tokens := range batch {
		pooled, err := meanPool(tokens)
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
		out[i] = pooled
	}
	return checkVectors(out)
}

// meanPool averages token vectors component-wise.
func meanPool(tokens [][]float32) ([]float32, error) {
	if len(tokens) == 0 || len(tokens[0]) == 0 {
		return nil, errors.New("empty token matrix")
	}
	dim := len(tokens[0])
	sum := make([]float64, dim)
	for _, tok := range tokens {
		if len(tok) != dim {
			return nil, errors.New("ragged token matrix")
		}
		for j, v := range tok {
			sum[j] += float64(v)
		}
	}
	out := make([]float32, dim)
	for j := range sum {
		out[j] = float32(sum[j] / float64(len(tokens)))
	}
	return out, nil
}

func checkVectors(vectors [][]float32) ([][]float32, error) {
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, errors.New("empty embedding")
	}
	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("embedding %d has dimension %d, want %d", i, len(v), dim)
		}
	}
	return vectors, nil
}

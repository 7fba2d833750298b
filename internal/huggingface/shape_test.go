package huggingface

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEmbeddings(t *testing.T) {
	tests := []struct {
		name string
		body string
		n    int
		want [][]float32
	}{
		{"flat vector", `[1, 2]`, 1, [][]float32{{1, 2}}},
		{"single wrapped vector", `[[1, 2]]`, 1, [][]float32{{1, 2}}},
		{"single token matrix", `[[1, 2], [3, 4]]`, 1, [][]float32{{2, 3}}},
		{"batch of vectors", `[[1, 2], [3, 4]]`, 2, [][]float32{{1, 2}, {3, 4}}},
		{"batch of token matrices", `[[[0, 0], [2, 2]], [[1, 1]]]`, 2, [][]float32{{1, 1}, {1, 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseEmbeddings([]byte(tt.body), tt.n)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseEmbeddings_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		n    int
	}{
		{"flat vector for batch", `[1, 2]`, 2},
		{"object", `{"error": "loading"}`, 1},
		{"ragged token matrix", `[[1, 2], [3]]`, 1},
		{"ragged batch", `[[1, 2], [3]]`, 2},
		{"batch count mismatch", `[[[1]], [[1]], [[1]]]`, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseEmbeddings([]byte(tt.body), tt.n)
			assert.Error(t, err)
		})
	}
}

package service

import (
	"regexp"
	"strings"
)

// ChunkConfig controls how extracted text is split into passages.
// Sizes are measured in characters (runes).
type ChunkConfig struct {
	Size     int
	Overlap  int
	MinChars int
}

// DefaultChunkConfig provides sane defaults for chunking.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		Size:     700,
		Overlap:  120,
		MinChars: 5,
	}
}

func (c ChunkConfig) normalized() ChunkConfig {
	def := DefaultChunkConfig()
	if c.Size <= 0 {
		return def
	}
	if c.Overlap < 0 || c.Overlap >= c.Size {
		c.Overlap = 0
	}
	if c.MinChars < 0 {
		c.MinChars = def.MinChars
	}
	return c
}

var (
	trailingSpaceRe = regexp.MustCompile(`[ \t\r\f\v]+\n`)
	blankLinesRe    = regexp.MustCompile(`\n{3,}`)
)

// NormalizeText strips horizontal whitespace before line breaks and collapses
// runs of three or more newlines into a single blank line.
func NormalizeText(text string) string {
	text = trailingSpaceRe.ReplaceAllString(text, "\n")
	return blankLinesRe.ReplaceAllString(text, "\n\n")
}

// ChunkText splits text into overlapping windows of cfg.Size characters.
// Each window starts cfg.Size-cfg.Overlap characters after the previous one.
// Windows are trimmed, and those of cfg.MinChars characters or fewer are dropped.
func ChunkText(text string, cfg ChunkConfig) []string {
	cfg = cfg.normalized()
	runes := []rune(NormalizeText(text))

	chunks := make([]string, 0, len(runes)/cfg.Size+1)
	step := cfg.Size - cfg.Overlap
	for start := 0; start < len(runes); start += step {
		end := start + cfg.Size
		if end > len(runes) {
			end = len(runes)
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if len([]rune(chunk)) > cfg.MinChars {
			chunks = append(chunks, chunk)
		}
	}

	return chunks
}

package embedder

import (
	"context"

	"github.com/cloudwego/eino/components/embedding"
)

// ASCII maps each rune to code/255, truncating or zero-padding to Dim.
// It needs no model or network access.
type ASCII struct {
	Dim int
}

var _ embedding.Embedder = (*ASCII)(nil)

// NewASCII creates an ASCII embedder producing dim-sized vectors.
func NewASCII(dim int) *ASCII {
	return &ASCII{Dim: dim}
}

func (a *ASCII) EmbedStrings(_ context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		vec := make([]float64, a.Dim)
		j := 0
		for _, r := range text {
			if j == a.Dim {
				break
			}
			vec[j] = float64(r) / 255
			j++
		}
		out[i] = vec
	}
	return out, nil
}

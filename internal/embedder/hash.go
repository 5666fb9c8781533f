package embedder

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// defaultHashDimensions is the vector size of the hash embedder.
const defaultHashDimensions = 384

// HashEmbedder is a deterministic, dependency-free embedder based on feature
// hashing of lower-cased word unigrams and bigrams. Vectors are L2-normalised
// so identical texts embed identically and texts sharing vocabulary land close
// together. It is intended for offline use and tests, not semantic quality.
type HashEmbedder struct {
	// dim is the output vector size.
	dim int
}

// NewHashEmbedder returns a HashEmbedder producing vectors of length dim.
// dim <= 0 selects the default of 384.
func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = defaultHashDimensions
	}
	return &HashEmbedder{dim: dim}
}

// Model returns the tag "hash-v1-<dim>".
func (e *HashEmbedder) Model() string { return fmt.Sprintf("hash-v1-%d", e.dim) }

// Dim returns the vector size.
func (e *HashEmbedder) Dim() int { return e.dim }

// Embed hashes every text. It honours ctx cancellation between texts.
func (e *HashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("hash embedder: %w", err)
		}
		out[i] = e.embedOne(t)
	}
	return out, nil
}

// embedOne returns the normalised feature-hash vector of text.
func (e *HashEmbedder) embedOne(text string) []float32 {
	vec := make([]float32, e.dim)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	add := func(feature string) {
		h := fnv.New64a()
		h.Write([]byte(feature))
		sum := h.Sum64()
		sign := float32(1)
		if sum&(1<<63) != 0 {
			sign = -1
		}
		vec[sum%uint64(e.dim)] += sign
	}
	for i, w := range words {
		add(w)
		if i > 0 {
			add(words[i-1] + " " + w)
		}
	}

	var norm float64
	for _, x := range vec {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}

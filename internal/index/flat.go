package index

import (
	"cmp"
	"context"
	"fmt"
	"slices"
)

// FlatIndex is an exhaustive squared-L2 index held in memory. Vectors are
// stored row-major in one contiguous slice.
type FlatIndex struct {
	// dim is the vector dimensionality.
	dim int
	// data holds Len()*dim float32 values.
	data []float32
}

// NewFlatIndex returns an empty FlatIndex for vectors of length dim.
func NewFlatIndex(dim int) *FlatIndex {
	return &FlatIndex{dim: dim}
}

// Add appends vectors in order. Every vector must have length Dim().
func (f *FlatIndex) Add(vectors ...[]float32) error {
	for i, v := range vectors {
		if len(v) != f.dim {
			return fmt.Errorf("index: vector %d has dimension %d, want %d", i, len(v), f.dim)
		}
	}
	for _, v := range vectors {
		f.data = append(f.data, v...)
	}
	return nil
}

// Len returns the number of stored vectors.
func (f *FlatIndex) Len() int {
	if f.dim == 0 {
		return 0
	}
	return len(f.data) / f.dim
}

// Dim returns the vector dimensionality.
func (f *FlatIndex) Dim() int { return f.dim }

// Vector returns a copy of the vector at position i.
func (f *FlatIndex) Vector(i int) []float32 {
	return slices.Clone(f.data[i*f.dim : (i+1)*f.dim])
}

// Search scans every vector and returns the k nearest by squared L2 distance.
func (f *FlatIndex) Search(_ context.Context, query []float32, k int) ([]Hit, error) {
	n := f.Len()
	if k <= 0 || n == 0 {
		return nil, nil
	}
	if len(query) != f.dim {
		return nil, fmt.Errorf("index: query has dimension %d, want %d", len(query), f.dim)
	}

	hits := make([]Hit, n)
	for i := 0; i < n; i++ {
		row := f.data[i*f.dim : (i+1)*f.dim]
		var d float32
		for j, q := range query {
			diff := q - row[j]
			d += diff * diff
		}
		hits[i] = Hit{Position: i, Distance: d}
	}

	slices.SortFunc(hits, func(a, b Hit) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.Position, b.Position)
	})

	if k < n {
		hits = hits[:k]
	}
	return hits, nil
}

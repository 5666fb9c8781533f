package index

import (
	"context"
	"testing"
)

func TestFlatIndex_SearchOrder(t *testing.T) {
	t.Parallel()

	idx := NewFlatIndex(2)
	if err := idx.Add(
		[]float32{0, 0},
		[]float32{3, 4},
		[]float32{1, 0},
		[]float32{0, 1},
	); err != nil {
		t.Fatalf("Add: %v", err)
	}

	hits, err := idx.Search(context.Background(), []float32{0, 0}, 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("expected 3 hits, got %d", len(hits))
	}

	// Positions 2 and 3 tie at distance 1; lower position wins.
	want := []Hit{{Position: 0, Distance: 0}, {Position: 2, Distance: 1}, {Position: 3, Distance: 1}}
	for i, h := range hits {
		if h != want[i] {
			t.Errorf("hit %d: expected %+v, got %+v", i, want[i], h)
		}
	}
}

func TestFlatIndex_FewerThanK(t *testing.T) {
	t.Parallel()

	idx := NewFlatIndex(1)
	_ = idx.Add([]float32{5})

	hits, err := idx.Search(context.Background(), []float32{0}, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].Distance != 25 {
		t.Errorf("unexpected hits: %+v", hits)
	}
}

func TestFlatIndex_DimensionMismatch(t *testing.T) {
	t.Parallel()

	idx := NewFlatIndex(3)
	if err := idx.Add([]float32{1, 2}); err == nil {
		t.Error("expected Add to reject wrong dimension")
	}
	if idx.Len() != 0 {
		t.Errorf("rejected Add must not store anything, Len=%d", idx.Len())
	}
	if _, err := idx.Search(context.Background(), []float32{1}, 1); err == nil {
		t.Error("expected Search to reject wrong dimension")
	}
}

func TestFlatIndex_Empty(t *testing.T) {
	t.Parallel()

	idx := NewFlatIndex(4)
	hits, err := idx.Search(context.Background(), make([]float32, 4), 3)
	if err != nil || len(hits) != 0 {
		t.Errorf("expected no hits and no error, got %v, %v", hits, err)
	}
}

func TestFlatIndex_EmptyZeroDim(t *testing.T) {
	t.Parallel()

	idx := NewFlatIndex(0)
	hits, err := idx.Search(context.Background(), []float32{1, 0, 0}, 3)
	if err != nil || len(hits) != 0 {
		t.Errorf("expected no hits and no error for an empty partition, got %v, %v", hits, err)
	}
}

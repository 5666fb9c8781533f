package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/54b3r/rolerag/internal/index"
)

// wordEmbedder maps a text onto a one-hot vector by its first word.
type wordEmbedder struct {
	vocab map[string]int
	dim   int
	err   error
}

func (w *wordEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if w.err != nil {
		return nil, w.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, w.dim)
		if pos, ok := w.vocab[strings.Fields(t)[0]]; ok {
			v[pos] = 1
		}
		out[i] = v
	}
	return out, nil
}

func (w *wordEmbedder) Model() string { return "word" }

// mapRegistry serves prebuilt handles.
type mapRegistry map[string]*index.Handle

func (m mapRegistry) Get(_ context.Context, role string) (*index.Handle, error) {
	h, ok := m[role]
	if !ok {
		return nil, index.ErrPartitionNotFound
	}
	return h, nil
}

func newFixture(t *testing.T) (*wordEmbedder, mapRegistry) {
	t.Helper()
	emb := &wordEmbedder{vocab: map[string]int{"deploy": 0, "salary": 1, "budget": 2, "launch": 3}, dim: 4}

	build := func(role string, docs ...string) *index.Handle {
		vecs, _ := emb.Embed(context.Background(), docs)
		idx := index.NewFlatIndex(emb.dim)
		if err := idx.Add(vecs...); err != nil {
			t.Fatalf("Add: %v", err)
		}
		return &index.Handle{Role: role, Model: emb.Model(), Index: idx, Documents: docs}
	}

	return emb, mapRegistry{
		"engineering": build("engineering", "deploy pipeline runbook", "launch checklist for services"),
		"hr":          build("hr", "salary bands 2026", "budget for offsites"),
	}
}

// TestRetrieve_NoCrossPartitionLeakage verifies every result comes from the
// caller's partition even when another partition matches the query better.
func TestRetrieve_NoCrossPartitionLeakage(t *testing.T) {
	t.Parallel()

	emb, reg := newFixture(t)
	r, err := NewRetriever(emb, reg, 0)
	if err != nil {
		t.Fatalf("NewRetriever: %v", err)
	}

	docs, err := r.Retrieve(context.Background(), "salary question", "engineering", 5)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	for _, d := range docs {
		if !containsString(reg["engineering"].Documents, d.Content) {
			t.Errorf("document %q is not in the engineering partition", d.Content)
		}
	}
}

func TestRetrieve_SelfMatchRanksFirst(t *testing.T) {
	t.Parallel()

	emb, reg := newFixture(t)
	r, _ := NewRetriever(emb, reg, 0)

	for role, h := range reg {
		for i, doc := range h.Documents {
			docs, err := r.Retrieve(context.Background(), doc, role, 1)
			if err != nil {
				t.Fatalf("Retrieve: %v", err)
			}
			if len(docs) != 1 || docs[0].Position != i || docs[0].Distance > 1e-6 {
				t.Errorf("%s/%d: expected self-match at rank 0, got %+v", role, i, docs)
			}
		}
	}
}

func TestRetrieve_BoundsAndDefaultTopK(t *testing.T) {
	t.Parallel()

	emb, reg := newFixture(t)
	r, _ := NewRetriever(emb, reg, 0)

	docs, err := r.Retrieve(context.Background(), "deploy", "hr", 0)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	// Partition has 2 documents; default topK is 3. Fewer is not an error.
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	for i := 1; i < len(docs); i++ {
		if docs[i].Distance < docs[i-1].Distance {
			t.Errorf("results not ordered by distance: %+v", docs)
		}
	}
}

func TestRetrieve_PartitionNotFound(t *testing.T) {
	t.Parallel()

	emb, reg := newFixture(t)
	r, _ := NewRetriever(emb, reg, 0)

	if _, err := r.Retrieve(context.Background(), "deploy", "finance", 3); !errors.Is(err, index.ErrPartitionNotFound) {
		t.Fatalf("expected ErrPartitionNotFound, got %v", err)
	}
}

// TestRetrieve_EmptyPartition verifies a partition built from zero documents
// yields no results rather than an error.
func TestRetrieve_EmptyPartition(t *testing.T) {
	t.Parallel()

	emb, _ := newFixture(t)
	dir := t.TempDir()
	if err := index.WriteArtifacts(dir, "hr", emb.Model(), nil, nil); err != nil {
		t.Fatalf("WriteArtifacts: %v", err)
	}
	r, _ := NewRetriever(emb, index.NewRegistry(index.NewFileLoader(dir, emb.Model())), 0)

	docs, err := r.Retrieve(context.Background(), "salary question", "hr", 3)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("expected no documents, got %+v", docs)
	}
}

func TestRetrieve_EmbeddingFailure(t *testing.T) {
	t.Parallel()

	emb, reg := newFixture(t)
	emb.err = errors.New("connection refused")
	r, _ := NewRetriever(emb, reg, 0)

	if _, err := r.Retrieve(context.Background(), "deploy", "engineering", 3); !errors.Is(err, ErrEmbedding) {
		t.Fatalf("expected ErrEmbedding, got %v", err)
	}
}

// shortHandleSearcher reports a position beyond the document list.
type shortHandleSearcher struct{}

func (shortHandleSearcher) Search(context.Context, []float32, int) ([]index.Hit, error) {
	return []index.Hit{{Position: 5, Distance: 0}, {Position: 0, Distance: 1}}, nil
}
func (shortHandleSearcher) Len() int { return 1 }
func (shortHandleSearcher) Dim() int { return 0 }

func TestRetrieve_DropsOutOfBoundsPositions(t *testing.T) {
	t.Parallel()

	emb, _ := newFixture(t)
	reg := mapRegistry{"general": {Role: "general", Index: shortHandleSearcher{}, Documents: []string{"only"}}}
	r, _ := NewRetriever(emb, reg, 0)

	docs, err := r.Retrieve(context.Background(), "deploy", "general", 3)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(docs) != 1 || docs[0].Content != "only" {
		t.Errorf("expected out-of-bounds hit dropped, got %+v", docs)
	}
}

func TestRetrieve_DimensionMismatch(t *testing.T) {
	t.Parallel()

	_, reg := newFixture(t)
	wrong := &wordEmbedder{vocab: map[string]int{}, dim: 7}
	r, _ := NewRetriever(wrong, reg, 0)

	if _, err := r.Retrieve(context.Background(), "deploy", "hr", 1); !errors.Is(err, index.ErrModelMismatch) {
		t.Fatalf("expected ErrModelMismatch, got %v", err)
	}
}

func TestContents(t *testing.T) {
	t.Parallel()

	got := Contents([]Document{{Content: "a"}, {Content: "b"}})
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("unexpected contents %v", got)
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

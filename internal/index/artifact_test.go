package index

import (
	"context"
	"errors"
	"os"
	"testing"
)

func testVectors() ([]string, [][]float32) {
	docs := []string{"alpha", "beta", "gamma"}
	vecs := [][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	return docs, vecs
}

func TestArtifacts_RoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	docs, vecs := testVectors()
	if err := WriteArtifacts(dir, "engineering", "hash-v1-3", docs, vecs); err != nil {
		t.Fatalf("WriteArtifacts: %v", err)
	}

	h, err := NewFileLoader(dir, "hash-v1-3").Load(context.Background(), "engineering")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if h.Role != "engineering" || h.Model != "hash-v1-3" {
		t.Errorf("unexpected handle metadata: role=%q model=%q", h.Role, h.Model)
	}
	if h.Index.Len() != 3 || len(h.Documents) != 3 || h.Index.Dim() != 3 {
		t.Fatalf("unexpected sizes: index=%d docs=%d dim=%d", h.Index.Len(), len(h.Documents), h.Index.Dim())
	}
	for i, d := range docs {
		if h.Documents[i] != d {
			t.Errorf("document %d: expected %q, got %q", i, d, h.Documents[i])
		}
	}

	// Every stored vector must be its own nearest neighbour.
	for i, v := range vecs {
		hits, err := h.Index.Search(context.Background(), v, 1)
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		if hits[0].Position != i || hits[0].Distance != 0 {
			t.Errorf("vector %d: expected self-match, got %+v", i, hits[0])
		}
	}
}

func TestLoad_MissingArtifacts(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := NewFileLoader(dir, "").Load(context.Background(), "hr")
	if !errors.Is(err, ErrPartitionNotFound) {
		t.Fatalf("expected ErrPartitionNotFound, got %v", err)
	}

	// Only the document artifact present is still not found.
	docs, vecs := testVectors()
	if err := WriteArtifacts(dir, "hr", "m", docs, vecs); err != nil {
		t.Fatalf("WriteArtifacts: %v", err)
	}
	if err := os.Remove(IndexPath(dir, "hr")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := NewFileLoader(dir, "").Load(context.Background(), "hr"); !errors.Is(err, ErrPartitionNotFound) {
		t.Fatalf("expected ErrPartitionNotFound, got %v", err)
	}
}

func TestLoad_ModelMismatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	docs, vecs := testVectors()
	if err := WriteArtifacts(dir, "finance", "model-a", docs, vecs); err != nil {
		t.Fatalf("WriteArtifacts: %v", err)
	}

	_, err := NewFileLoader(dir, "model-b").Load(context.Background(), "finance")
	if !errors.Is(err, ErrModelMismatch) {
		t.Fatalf("expected ErrModelMismatch, got %v", err)
	}
}

// TestLoad_MismatchedBuilds verifies that an index and a document list of
// equal length but from different build runs are rejected.
func TestLoad_MismatchedBuilds(t *testing.T) {
	t.Parallel()

	dirA, dirB := t.TempDir(), t.TempDir()
	docs, vecs := testVectors()
	if err := WriteArtifacts(dirA, "marketing", "m", docs, vecs); err != nil {
		t.Fatalf("WriteArtifacts: %v", err)
	}
	if err := WriteArtifacts(dirB, "marketing", "m", []string{"x", "y", "z"}, vecs); err != nil {
		t.Fatalf("WriteArtifacts: %v", err)
	}

	data, err := os.ReadFile(IndexPath(dirB, "marketing"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := os.WriteFile(IndexPath(dirA, "marketing"), data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, err = NewFileLoader(dirA, "m").Load(context.Background(), "marketing")
	if !errors.Is(err, ErrIndexCorrupt) {
		t.Fatalf("expected ErrIndexCorrupt, got %v", err)
	}
}

func TestLoad_TamperedDocuments(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	docs, vecs := testVectors()
	if err := WriteArtifacts(dir, "general", "m", docs, vecs); err != nil {
		t.Fatalf("WriteArtifacts: %v", err)
	}
	body := `{"model":"m","digest":"00","documents":["alpha","beta","gamma"]}`
	if err := os.WriteFile(DocsPath(dir, "general"), []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := NewFileLoader(dir, "m").Load(context.Background(), "general"); !errors.Is(err, ErrIndexCorrupt) {
		t.Fatalf("expected ErrIndexCorrupt, got %v", err)
	}
}

func TestLoad_TruncatedIndex(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	docs, vecs := testVectors()
	if err := WriteArtifacts(dir, "general", "m", docs, vecs); err != nil {
		t.Fatalf("WriteArtifacts: %v", err)
	}
	data, err := os.ReadFile(IndexPath(dir, "general"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := os.WriteFile(IndexPath(dir, "general"), data[:len(data)-4], 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := NewFileLoader(dir, "m").Load(context.Background(), "general"); !errors.Is(err, ErrIndexCorrupt) {
		t.Fatalf("expected ErrIndexCorrupt, got %v", err)
	}
}

func TestWriteArtifacts_Rejects(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := WriteArtifacts(dir, "../etc", "m", nil, nil); err == nil {
		t.Error("expected path-traversal role to be rejected")
	}
	if err := WriteArtifacts(dir, "hr", "m", []string{"a"}, nil); err == nil {
		t.Error("expected count mismatch to be rejected")
	}
	if err := WriteArtifacts(dir, "hr", "m", []string{"a", "b"}, [][]float32{{1}, {1, 2}}); err == nil {
		t.Error("expected ragged vectors to be rejected")
	}
}

func TestDigest_LengthPrefixed(t *testing.T) {
	t.Parallel()

	if Digest([]string{"ab", "c"}) == Digest([]string{"a", "bc"}) {
		t.Error("digest must distinguish document boundaries")
	}
}

func TestValidateRole(t *testing.T) {
	t.Parallel()

	for _, ok := range []string{"hr", "engineering", "team_a", "x-1"} {
		if err := ValidateRole(ok); err != nil {
			t.Errorf("%q: unexpected error %v", ok, err)
		}
	}
	for _, bad := range []string{"", "HR", "../hr", "a/b", "a b"} {
		if err := ValidateRole(bad); err == nil {
			t.Errorf("%q: expected error", bad)
		}
	}
}

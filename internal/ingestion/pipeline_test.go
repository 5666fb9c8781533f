package ingestion

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/54b3r/rolerag/internal/embedder"
	"github.com/54b3r/rolerag/internal/index"
	"github.com/54b3r/rolerag/internal/logging"
)

// recordingWriter captures every partition written.
type recordingWriter struct {
	// parts maps role to the written documents.
	parts map[string][]string
	// err is returned by WritePartition when set.
	err error
}

func (w *recordingWriter) WritePartition(_ context.Context, role, _ string, docs []string, _ [][]float32) error {
	if w.err != nil {
		return w.err
	}
	if w.parts == nil {
		w.parts = map[string][]string{}
	}
	w.parts[role] = docs
	return nil
}

// writeTree creates files under root from a path → content map.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
	}
}

func TestLoadDocuments(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"a_handbook.md":  "  # Handbook\nBe kind.  ",
		"b_empty.txt":    "   \n",
		"c_people.csv":   "name,age,notes\nAlice,34,likes go\nBob,41,\n",
		"d_ignored.json": `{"x":1}`,
		"e_notes.txt":    "plain note",
	})

	got, err := LoadDocuments(dir, logging.Discard())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := []string{"# Handbook\nBe kind.", "Alice", "Bob", "likes go", "plain note"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("documents:\n got %q\nwant %q", got, want)
	}
}

func TestLoadDocuments_MissingDir(t *testing.T) {
	t.Parallel()
	got, err := LoadDocuments(filepath.Join(t.TempDir(), "nope"), logging.Discard())
	if err != nil || len(got) != 0 {
		t.Errorf("want no documents and no error, got %v, %v", got, err)
	}
}

func TestReadCSV_NumericColumnsSkipped(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "q.csv")
	writeTree(t, dir, map[string]string{"q.csv": "quarter,revenue,comment\nQ1,100.5,strong\nQ2,,\n"})

	got, err := readCSV(path)
	if err != nil {
		t.Fatalf("readCSV: %v", err)
	}
	want := []string{"Q1", "Q2", "strong"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestChunk(t *testing.T) {
	t.Parallel()
	if got := chunk("short", 10, 2); !reflect.DeepEqual(got, []string{"short"}) {
		t.Errorf("short text: got %q", got)
	}
	got := chunk("abcdefghij", 4, 1)
	want := []string{"abcd", "defg", "ghij"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
	if got := chunk("  ", 4, 1); got != nil {
		t.Errorf("blank text: got %q", got)
	}
}

func TestIngest_WritesLoadablePartitions(t *testing.T) {
	t.Parallel()
	data := t.TempDir()
	out := t.TempDir()
	writeTree(t, data, map[string]string{
		"engineering/arch.md":  "The service runs on Kubernetes.",
		"engineering/ops.txt":  "On-call rotates weekly.",
		"hr/leave.md":          "Employees get 25 days of leave.",
		"finance/.gitkeep.txt": "",
	})

	emb := embedder.NewHashEmbedder(64)
	p, err := NewPipeline(emb, &Config{DataDir: data, BatchSize: 1}, FileWriter{Dir: out})
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	reports, err := p.Ingest(context.Background(), []string{"engineering", "hr", "finance"}, nil)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	want := []RoleReport{{Role: "engineering", Documents: 2}, {Role: "hr", Documents: 1}, {Role: "finance"}}
	if !reflect.DeepEqual(reports, want) {
		t.Errorf("reports: got %+v, want %+v", reports, want)
	}

	loader := index.NewFileLoader(out, emb.Model())
	h, err := loader.Load(context.Background(), "engineering")
	if err != nil {
		t.Fatalf("load engineering: %v", err)
	}
	if len(h.Documents) != 2 || h.Index.Len() != 2 {
		t.Errorf("engineering partition: %d docs, %d vectors", len(h.Documents), h.Index.Len())
	}

	if _, err := loader.Load(context.Background(), "finance"); !errors.Is(err, index.ErrPartitionNotFound) {
		t.Errorf("skipped role must have no artifacts, got %v", err)
	}
}

func TestIngest_WriterErrorAborts(t *testing.T) {
	t.Parallel()
	data := t.TempDir()
	writeTree(t, data, map[string]string{"hr/a.txt": "doc"})

	w := &recordingWriter{err: errors.New("disk full")}
	p, err := NewPipeline(embedder.NewHashEmbedder(8), &Config{DataDir: data}, w)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	if _, err := p.Ingest(context.Background(), []string{"hr"}, nil); err == nil {
		t.Fatal("expected write error")
	}
}

func TestIngest_FansOutToAllWriters(t *testing.T) {
	t.Parallel()
	data := t.TempDir()
	writeTree(t, data, map[string]string{"marketing/a.txt": "campaign"})

	w1, w2 := &recordingWriter{}, &recordingWriter{}
	p, err := NewPipeline(embedder.NewHashEmbedder(8), &Config{DataDir: data}, w1, w2)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	if _, err := p.Ingest(context.Background(), []string{"marketing"}, nil); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	for i, w := range []*recordingWriter{w1, w2} {
		if !reflect.DeepEqual(w.parts["marketing"], []string{"campaign"}) {
			t.Errorf("writer %d: got %v", i, w.parts)
		}
	}
}

func TestIngest_InvalidRole(t *testing.T) {
	t.Parallel()
	p, err := NewPipeline(embedder.NewHashEmbedder(8), &Config{DataDir: t.TempDir()}, &recordingWriter{})
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	if _, err := p.Ingest(context.Background(), []string{"../etc"}, nil); err == nil {
		t.Fatal("expected error for path-like role")
	}
}

func TestNewPipeline_Validation(t *testing.T) {
	t.Parallel()
	if _, err := NewPipeline(nil, nil, &recordingWriter{}); err == nil {
		t.Error("expected error for nil embedder")
	}
	if _, err := NewPipeline(embedder.NewHashEmbedder(8), nil); err == nil {
		t.Error("expected error without writers")
	}
}

// Package ingestion builds role partitions from a source tree laid out as
// {data_dir}/{role}/*.{txt,md,csv}. Each role's documents are embedded with
// the same embedder the server will use at query time and written to one or
// more partition writers (file artifacts, Qdrant collections).
// This pipeline is invoked by the `rolerag ingest` CLI command.
package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/54b3r/rolerag/internal/index"
	"github.com/54b3r/rolerag/internal/logging"
	"github.com/54b3r/rolerag/internal/rag"
)

// Writer persists one role partition. Implementations must replace any
// previous partition for the role.
type Writer interface {
	// WritePartition stores docs and their vectors under role, tagged with
	// the embedding model identity.
	WritePartition(ctx context.Context, role, model string, docs []string, vectors [][]float32) error
}

// FileWriter writes partitions as file artifacts under Dir.
type FileWriter struct {
	// Dir is the artifact directory (VECTOR_DIR).
	Dir string
}

// WritePartition implements Writer.
func (w FileWriter) WritePartition(_ context.Context, role, model string, docs []string, vectors [][]float32) error {
	return index.WriteArtifacts(w.Dir, role, model, docs, vectors)
}

// Config holds the configuration for the ingestion pipeline.
type Config struct {
	// DataDir holds one subdirectory per role.
	DataDir string

	// BatchSize is the number of documents embedded per request.
	// Defaults to 64 if zero.
	BatchSize int

	// ChunkSize splits documents longer than this many characters into
	// overlapping chunks. Zero keeps every document whole.
	ChunkSize int

	// ChunkOverlap is the number of characters shared by consecutive chunks.
	ChunkOverlap int
}

// RoleReport summarises the outcome for one role.
type RoleReport struct {
	// Role is the partition name.
	Role string
	// Documents is the number of documents written. Zero means skipped.
	Documents int
}

// Pipeline orchestrates the load → chunk → embed → write flow for a set of roles.
type Pipeline struct {
	// embedder converts documents into vectors.
	embedder rag.Embedder

	// writers persist each finished partition.
	writers []Writer

	// cfg holds the resolved pipeline configuration.
	cfg *Config
}

// NewPipeline constructs a Pipeline from the provided dependencies and config.
func NewPipeline(embedder rag.Embedder, cfg *Config, writers ...Writer) (*Pipeline, error) {
	if embedder == nil {
		return nil, fmt.Errorf("ingestion: embedder must not be nil")
	}
	if len(writers) == 0 {
		return nil, fmt.Errorf("ingestion: at least one writer is required")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.DataDir == "" {
		cfg.DataDir = filepath.Join("resources", "data")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 64
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = 0
	}
	if cfg.ChunkSize > 0 && cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = cfg.ChunkSize / 10
	}

	return &Pipeline{embedder: embedder, writers: writers, cfg: cfg}, nil
}

// Ingest builds the partition for every role in order. Roles with no
// documents are skipped with a warning and left untouched in storage. The
// first embedding or write error aborts the run.
func (p *Pipeline) Ingest(ctx context.Context, roles []string, progress func(msg string)) ([]RoleReport, error) {
	if progress == nil {
		progress = func(string) {}
	}
	log := logging.FromContext(ctx)

	reports := make([]RoleReport, 0, len(roles))
	for _, role := range roles {
		if err := index.ValidateRole(role); err != nil {
			return reports, fmt.Errorf("ingestion: %w", err)
		}

		docs, err := LoadDocuments(filepath.Join(p.cfg.DataDir, role), log)
		if err != nil {
			return reports, err
		}
		docs = p.chunkAll(docs)
		if len(docs) == 0 {
			log.Warn("ingestion: no documents found, skipping role", slog.String("role", role))
			progress(fmt.Sprintf("%s: no documents, skipped", role))
			reports = append(reports, RoleReport{Role: role})
			continue
		}
		progress(fmt.Sprintf("%s: embedding %d documents", role, len(docs)))

		vectors, err := p.embed(ctx, docs)
		if err != nil {
			return reports, fmt.Errorf("ingestion: embedding failed for %s: %w", role, err)
		}

		for _, w := range p.writers {
			if err := w.WritePartition(ctx, role, p.embedder.Model(), docs, vectors); err != nil {
				return reports, fmt.Errorf("ingestion: write failed for %s: %w", role, err)
			}
		}

		log.Info("ingestion: partition built",
			slog.String("role", role),
			slog.Int("documents", len(docs)),
			slog.String("model", p.embedder.Model()),
		)
		progress(fmt.Sprintf("%s: wrote %d documents", role, len(docs)))
		reports = append(reports, RoleReport{Role: role, Documents: len(docs)})
	}
	return reports, nil
}

// embed embeds docs in BatchSize batches and checks the vector count.
func (p *Pipeline) embed(ctx context.Context, docs []string) ([][]float32, error) {
	out := make([][]float32, 0, len(docs))
	for start := 0; start < len(docs); start += p.cfg.BatchSize {
		end := min(start+p.cfg.BatchSize, len(docs))
		vecs, err := p.embedder.Embed(ctx, docs[start:end])
		if err != nil {
			return nil, err
		}
		if len(vecs) != end-start {
			return nil, fmt.Errorf("embedder returned %d vectors for %d documents", len(vecs), end-start)
		}
		out = append(out, vecs...)
	}
	return out, nil
}

// chunkAll applies chunk to every document when chunking is enabled.
func (p *Pipeline) chunkAll(docs []string) []string {
	if p.cfg.ChunkSize <= 0 {
		return docs
	}
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, chunk(d, p.cfg.ChunkSize, p.cfg.ChunkOverlap)...)
	}
	return out
}

// chunk splits text into overlapping chunks of at most size runes.
func chunk(text string, size, overlap int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}
	}

	var chunks []string
	for start := 0; start < len(runes); start += size - overlap {
		end := min(start+size, len(runes))
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}

package rag

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/54b3r/rolerag/internal/index"
	"github.com/54b3r/rolerag/internal/logging"
)

// partitions is the subset of *index.Registry the retriever needs.
type partitions interface {
	// Get returns the loaded partition for role.
	Get(ctx context.Context, role string) (*index.Handle, error)
}

// RoleRetriever implements Retriever by embedding the query and searching the
// single partition owned by the caller's role. It never consults any other
// partition, so results cannot leak across roles.
type RoleRetriever struct {
	// embedder converts query text to a dense vector.
	embedder Embedder
	// registry resolves role partitions.
	registry partitions
	// defaultTopK is the number of results to return when the caller passes 0.
	defaultTopK int
}

// NewRetriever constructs a RoleRetriever. defaultTopK <= 0 selects DefaultTopK.
func NewRetriever(embedder Embedder, registry partitions, defaultTopK int) (*RoleRetriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("rag: embedder must not be nil")
	}
	if registry == nil {
		return nil, fmt.Errorf("rag: registry must not be nil")
	}
	if defaultTopK <= 0 {
		defaultTopK = DefaultTopK
	}
	return &RoleRetriever{
		embedder:    embedder,
		registry:    registry,
		defaultTopK: defaultTopK,
	}, nil
}

// Retrieve returns up to topK documents from role's partition ordered by
// increasing squared L2 distance. Partition errors from the registry are
// returned unwrapped so callers can match index sentinels; embedding failures
// wrap ErrEmbedding.
func (r *RoleRetriever) Retrieve(ctx context.Context, query, role string, topK int) ([]Document, error) {
	if topK <= 0 {
		topK = r.defaultTopK
	}

	h, err := r.registry.Get(ctx, role)
	if err != nil {
		return nil, err
	}

	embeddings, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbedding, err)
	}
	if len(embeddings) != 1 {
		return nil, fmt.Errorf("%w: embedder returned %d vectors for one query", ErrEmbedding, len(embeddings))
	}
	vec := embeddings[0]
	if d := h.Index.Dim(); d > 0 && len(vec) != d {
		return nil, fmt.Errorf("%w: query dimension %d, partition %q dimension %d",
			index.ErrModelMismatch, len(vec), role, d)
	}

	hits, err := h.Index.Search(ctx, vec, topK)
	if err != nil {
		return nil, fmt.Errorf("rag: vector search failed: %w", err)
	}

	log := logging.FromContext(ctx)
	docs := make([]Document, 0, len(hits))
	for _, hit := range hits {
		if hit.Position < 0 || hit.Position >= len(h.Documents) {
			log.Error("rag: index position outside document list",
				slog.String("role", role),
				slog.Int("position", hit.Position),
				slog.Int("documents", len(h.Documents)),
			)
			continue
		}
		docs = append(docs, Document{
			Position: hit.Position,
			Content:  h.Documents[hit.Position],
			Distance: hit.Distance,
		})
		if len(docs) == topK {
			break
		}
	}

	return docs, nil
}

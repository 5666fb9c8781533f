// Package rag defines the retrieval side of the pipeline: the embedding
// contract shared by the index builder and the query path, and the
// role-scoped Retriever that turns a query into ranked partition documents.
package rag

import (
	"context"
	"errors"
)

// DefaultTopK is the number of documents returned when the caller passes 0.
const DefaultTopK = 3

// ErrEmbedding is wrapped around any failure of the embedding backend while
// encoding a query. Callers map it to a bad-gateway style response.
var ErrEmbedding = errors.New("rag: embedding failed")

// Document is a single retrieved unit of partition text.
type Document struct {
	// Position is the document's index in its partition's document list.
	Position int
	// Content is the raw document text.
	Content string
	// Distance is the squared L2 distance between the query and the document
	// embedding. Lower is more similar.
	Distance float32
}

// Embedder converts text into dense vector embeddings.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Model returns a stable tag identifying the embedding model. Index
	// artifacts record this tag and are rejected when it differs.
	Model() string
}

// Retriever fetches the documents most relevant to a query from the
// partition owned by role.
// Implementations must be safe to call from multiple goroutines.
type Retriever interface {
	// Retrieve returns at most topK documents ordered by increasing distance.
	// topK <= 0 selects DefaultTopK.
	Retrieve(ctx context.Context, query, role string, topK int) ([]Document, error)
}

// Contents returns the text of each document, preserving order.
func Contents(docs []Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Content
	}
	return out
}

// Package index owns the per-role vector index partitions: the on-disk
// artifact format, the in-memory flat L2 index, the Qdrant-backed index, and
// the Registry that loads each partition at most once per process.
package index

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

var (
	// ErrPartitionNotFound is returned when a role has no index artifacts.
	ErrPartitionNotFound = errors.New("index: partition not found")
	// ErrIndexCorrupt is returned when artifacts exist but cannot be paired:
	// undecodable data, count mismatch, or differing build digests.
	ErrIndexCorrupt = errors.New("index: artifacts corrupt or mismatched")
	// ErrModelMismatch is returned when the artifacts were built with a
	// different embedding model than the one running in this process.
	ErrModelMismatch = errors.New("index: embedding model mismatch")
)

// roleName bounds role strings before they are used to build storage paths
// or collection names.
var roleName = regexp.MustCompile(`^[a-z0-9_-]+$`)

// ValidateRole rejects role strings unsafe for use as storage keys.
func ValidateRole(role string) error {
	if !roleName.MatchString(role) {
		return fmt.Errorf("%w: invalid role name %q", ErrPartitionNotFound, role)
	}
	return nil
}

// Hit is one nearest-neighbour search result.
type Hit struct {
	// Position is the matched vector's position, aligned with Handle.Documents.
	Position int
	// Distance is the squared L2 distance to the query vector.
	Distance float32
}

// Searcher is a nearest-neighbour index over one partition.
// Implementations must be safe to call from multiple goroutines.
type Searcher interface {
	// Search returns up to k hits ordered by increasing distance, ties broken
	// by increasing position.
	Search(ctx context.Context, query []float32, k int) ([]Hit, error)
	// Len returns the number of indexed vectors.
	Len() int
	// Dim returns the vector dimensionality, or 0 when unknown.
	Dim() int
}

// Handle pairs a partition's index with its document list. Position i of the
// index corresponds to Documents[i]. A Handle is immutable once loaded.
type Handle struct {
	// Role is the partition owner.
	Role string
	// Model is the embedding model tag the partition was built with.
	Model string
	// Index is the nearest-neighbour structure over the document embeddings.
	Index Searcher
	// Documents is the positional document list.
	Documents []string
}

// validate checks the positional alignment invariant.
func (h *Handle) validate() error {
	if h == nil || h.Index == nil {
		return fmt.Errorf("%w: loader returned an empty handle", ErrIndexCorrupt)
	}
	if h.Index.Len() != len(h.Documents) {
		return fmt.Errorf("%w: role %q has %d vectors but %d documents",
			ErrIndexCorrupt, h.Role, h.Index.Len(), len(h.Documents))
	}
	return nil
}

// Loader reads a single role partition from storage.
type Loader interface {
	// Load returns the partition for role, or an error wrapping
	// ErrPartitionNotFound, ErrIndexCorrupt, or ErrModelMismatch.
	Load(ctx context.Context, role string) (*Handle, error)
}

// checkModel compares a partition's tag against the running embedder's tag.
// An empty want skips the check.
func checkModel(role, got, want string) error {
	if want != "" && got != want {
		return fmt.Errorf("%w: role %q built with %q, embedder is %q", ErrModelMismatch, role, got, want)
	}
	return nil
}

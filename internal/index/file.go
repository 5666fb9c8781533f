package index

import (
	"context"
	"fmt"
	"os"
)

// FileLoader loads partitions from {Dir}/{role}_index.vec and
// {Dir}/{role}_docs.json.
type FileLoader struct {
	// Dir is the artifact directory.
	Dir string
	// Model is the running embedder's model tag. Partitions built with a
	// different tag are rejected. Empty disables the check.
	Model string
}

// NewFileLoader returns a FileLoader reading from dir and expecting model.
func NewFileLoader(dir, model string) *FileLoader {
	return &FileLoader{Dir: dir, Model: model}
}

// Load reads and cross-checks both artifacts for role.
func (l *FileLoader) Load(_ context.Context, role string) (*Handle, error) {
	if err := ValidateRole(role); err != nil {
		return nil, err
	}

	docs, docsDigest, err := readDocs(DocsPath(l.Dir, role))
	if err != nil {
		return nil, err
	}
	idx, tag, vecDigest, err := readIndex(IndexPath(l.Dir, role))
	if err != nil {
		return nil, err
	}

	if idx.Len() != len(docs.Documents) {
		return nil, fmt.Errorf("%w: role %q index has %d vectors, documents has %d",
			ErrIndexCorrupt, role, idx.Len(), len(docs.Documents))
	}
	if vecDigest != docsDigest {
		return nil, fmt.Errorf("%w: role %q index and documents come from different builds", ErrIndexCorrupt, role)
	}
	if tag != docs.Model {
		return nil, fmt.Errorf("%w: role %q index model %q, documents model %q", ErrIndexCorrupt, role, tag, docs.Model)
	}
	if err := checkModel(role, tag, l.Model); err != nil {
		return nil, err
	}

	return &Handle{
		Role:      role,
		Model:     tag,
		Index:     idx,
		Documents: docs.Documents,
	}, nil
}

// Ping reports whether the artifact directory is readable. It satisfies the
// server's readiness probe contract.
func (l *FileLoader) Ping(_ context.Context) error {
	return checkDir(l.Dir)
}

// Name returns the readiness label.
func (l *FileLoader) Name() string { return "index_files" }

// checkDir returns an error unless path is an existing directory.
func checkDir(path string) error {
	st, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("index: artifact directory: %w", err)
	}
	if !st.IsDir() {
		return fmt.Errorf("index: %s is not a directory", path)
	}
	return nil
}

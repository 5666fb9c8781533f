package index

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
)

const (
	// vecMagic opens every index artifact.
	vecMagic = "RRVX"
	// vecVersion is the current index artifact layout version.
	vecVersion uint16 = 1
	// maxModelTag bounds the model tag read from an artifact header.
	maxModelTag = 1024
)

// IndexPath returns the index artifact path for role under dir.
func IndexPath(dir, role string) string {
	return filepath.Join(dir, role+"_index.vec")
}

// DocsPath returns the document artifact path for role under dir.
func DocsPath(dir, role string) string {
	return filepath.Join(dir, role+"_docs.json")
}

// Digest returns the build digest of a document list: SHA-256 over each
// document prefixed with its little-endian uint64 byte length.
func Digest(docs []string) [sha256.Size]byte {
	h := sha256.New()
	var n [8]byte
	for _, d := range docs {
		binary.LittleEndian.PutUint64(n[:], uint64(len(d)))
		h.Write(n[:])
		h.Write([]byte(d))
	}
	var out [sha256.Size]byte
	copy(out[:], h.Sum(nil))
	return out
}

// docsArtifact is the JSON shape of {role}_docs.json.
type docsArtifact struct {
	// Model is the embedding model tag used at build time.
	Model string `json:"model"`
	// Digest is the hex-encoded build digest of Documents.
	Digest string `json:"digest"`
	// Documents is the positional document list.
	Documents []string `json:"documents"`
}

// vecHeader is the fixed part of {role}_index.vec that follows the model tag.
type vecHeader struct {
	Digest [sha256.Size]byte
	Dim    uint32
	Count  uint32
}

// WriteArtifacts writes the index and document artifacts for role into dir.
// vectors[i] must be the embedding of docs[i]. Both files are written to a
// temporary name and renamed into place so readers never see a partial pair.
func WriteArtifacts(dir, role, model string, docs []string, vectors [][]float32) error {
	if err := ValidateRole(role); err != nil {
		return err
	}
	if len(docs) != len(vectors) {
		return fmt.Errorf("index: %d documents but %d vectors", len(docs), len(vectors))
	}
	if len(model) > maxModelTag {
		return fmt.Errorf("index: model tag longer than %d bytes", maxModelTag)
	}

	dim := 0
	if len(vectors) > 0 {
		dim = len(vectors[0])
	}
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("index: vector %d has dimension %d, want %d", i, len(v), dim)
		}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("index: create %s: %w", dir, err)
	}

	digest := Digest(docs)

	var vec bytes.Buffer
	vec.WriteString(vecMagic)
	_ = binary.Write(&vec, binary.LittleEndian, vecVersion)
	_ = binary.Write(&vec, binary.LittleEndian, uint16(len(model)))
	vec.WriteString(model)
	_ = binary.Write(&vec, binary.LittleEndian, vecHeader{
		Digest: digest,
		Dim:    uint32(dim),
		Count:  uint32(len(vectors)),
	})
	var b [4]byte
	for _, v := range vectors {
		for _, x := range v {
			binary.LittleEndian.PutUint32(b[:], math.Float32bits(x))
			vec.Write(b[:])
		}
	}

	docsJSON, err := json.Marshal(docsArtifact{
		Model:     model,
		Digest:    hex.EncodeToString(digest[:]),
		Documents: docs,
	})
	if err != nil {
		return fmt.Errorf("index: marshal documents: %w", err)
	}

	if err := writeAtomic(DocsPath(dir, role), docsJSON); err != nil {
		return err
	}
	return writeAtomic(IndexPath(dir, role), vec.Bytes())
}

// writeAtomic writes data to a sibling temp file and renames it onto path.
func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("index: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("index: rename %s: %w", path, err)
	}
	return nil
}

// readDocs decodes a document artifact and verifies its self-declared digest.
func readDocs(path string) (*docsArtifact, [sha256.Size]byte, error) {
	var digest [sha256.Size]byte

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, digest, notFound(path, err)
	}

	var a docsArtifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, digest, fmt.Errorf("%w: decode %s: %v", ErrIndexCorrupt, path, err)
	}

	digest = Digest(a.Documents)
	if a.Digest != hex.EncodeToString(digest[:]) {
		return nil, digest, fmt.Errorf("%w: %s digest does not match its documents", ErrIndexCorrupt, path)
	}
	return &a, digest, nil
}

// readIndex decodes an index artifact into a FlatIndex.
func readIndex(path string) (*FlatIndex, string, [sha256.Size]byte, error) {
	var digest [sha256.Size]byte

	f, err := os.Open(path)
	if err != nil {
		return nil, "", digest, notFound(path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	corrupt := func(what string, err error) error {
		return fmt.Errorf("%w: %s: %s: %v", ErrIndexCorrupt, path, what, err)
	}

	magic := make([]byte, len(vecMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, "", digest, corrupt("read magic", err)
	}
	if string(magic) != vecMagic {
		return nil, "", digest, fmt.Errorf("%w: %s: bad magic %q", ErrIndexCorrupt, path, magic)
	}

	var version, tagLen uint16
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, "", digest, corrupt("read version", err)
	}
	if version != vecVersion {
		return nil, "", digest, fmt.Errorf("%w: %s: unsupported version %d", ErrIndexCorrupt, path, version)
	}
	if err := binary.Read(r, binary.LittleEndian, &tagLen); err != nil {
		return nil, "", digest, corrupt("read model tag length", err)
	}
	if tagLen > maxModelTag {
		return nil, "", digest, fmt.Errorf("%w: %s: model tag length %d", ErrIndexCorrupt, path, tagLen)
	}
	tag := make([]byte, tagLen)
	if _, err := io.ReadFull(r, tag); err != nil {
		return nil, "", digest, corrupt("read model tag", err)
	}

	var hdr vecHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, "", digest, corrupt("read header", err)
	}
	if hdr.Dim == 0 && hdr.Count > 0 {
		return nil, "", digest, fmt.Errorf("%w: %s: %d vectors of dimension 0", ErrIndexCorrupt, path, hdr.Count)
	}

	stat, err := f.Stat()
	if err != nil {
		return nil, "", digest, fmt.Errorf("index: stat %s: %w", path, err)
	}
	want := int64(len(vecMagic)) + 2 + 2 + int64(tagLen) + int64(binary.Size(hdr)) +
		int64(hdr.Dim)*int64(hdr.Count)*4
	if stat.Size() != want {
		return nil, "", digest, fmt.Errorf("%w: %s: size %d, header implies %d", ErrIndexCorrupt, path, stat.Size(), want)
	}

	idx := NewFlatIndex(int(hdr.Dim))
	idx.data = make([]float32, int(hdr.Dim)*int(hdr.Count))
	var b [4]byte
	for i := range idx.data {
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return nil, "", digest, corrupt("read vectors", err)
		}
		idx.data[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[:]))
	}

	return idx, string(tag), hdr.Digest, nil
}

// notFound maps a missing file onto ErrPartitionNotFound.
func notFound(path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrPartitionNotFound, path)
	}
	return fmt.Errorf("index: open %s: %w", path, err)
}

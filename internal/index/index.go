package index

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// ErrCorrupt reports a persisted index whose vector count and metadata count
// disagree. Callers must Reset before using the index again; proceeding with
// a mismatched pair would silently attach wrong metadata to neighbors.
var ErrCorrupt = errors.New("index corrupt: vector and metadata counts differ")

// ErrDimension reports a vector whose length does not match the index.
var ErrDimension = errors.New("vector dimension mismatch")

const (
	vectorsFile = "vectors.bin"
	metaFile    = "meta.json"

	vectorsMagic = uint32(0x4e564958) // "NVIX"
)

// Embedder turns texts into fixed-dimension vectors, one per input.
type Embedder interface {
	EmbedMany(ctx context.Context, texts []string) ([][]float32, error)
}

// Meta is the payload stored alongside each vector.
type Meta struct {
	Title  string `json:"title"`
	URL    string `json:"url"`
	Bias   string `json:"bias,omitempty"`
	Report string `json:"report,omitempty"`
}

// Hit is one nearest-neighbor result.
type Hit struct {
	Meta     Meta    `json:"meta"`
	Distance float32 `json:"distance"`
}

// Index is a flat L2 nearest-neighbor store over embedded texts, persisted
// as a vector file plus a parallel JSON metadata file. Every mutation holds
// the lock across both the in-memory append and the two-file write so the
// pair can never drift apart.
type Index struct {
	mu       sync.Mutex
	dim      int
	dir      string
	vectors  [][]float32
	meta     []Meta
	embedder Embedder
	logger   *log.Logger
}

// Open loads the index pair from dir, creating an empty index when neither
// file exists yet. A half-written or length-mismatched pair returns
// ErrCorrupt; the caller decides between Reset and aborting.
func Open(dir string, dim int, embedder Embedder, logger *log.Logger) (*Index, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("invalid dimension %d", dim)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create index dir: %w", err)
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[INDEX] ", log.LstdFlags)
	}

	ix := &Index{dim: dim, dir: dir, embedder: embedder, logger: logger}

	vecs, vecErr := readVectors(filepath.Join(dir, vectorsFile), dim)
	meta, metaErr := readMeta(filepath.Join(dir, metaFile))

	switch {
	case os.IsNotExist(vecErr) && os.IsNotExist(metaErr):
		return ix, nil
	case os.IsNotExist(vecErr) != os.IsNotExist(metaErr):
		return nil, ErrCorrupt
	case vecErr != nil:
		return nil, vecErr
	case metaErr != nil:
		return nil, metaErr
	case len(vecs) != len(meta):
		return nil, ErrCorrupt
	}

	ix.vectors = vecs
	ix.meta = meta
	return ix, nil
}

// Len reports the number of stored entries.
func (ix *Index) Len() int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return len(ix.vectors)
}

// Insert embeds text and appends vector + metadata atomically, persisting
// both files before returning. Embedding failures are fatal to the call.
func (ix *Index) Insert(ctx context.Context, text string, m Meta) error {
	vecs, err := ix.embedder.EmbedMany(ctx, []string{text})
	if err != nil {
		return fmt.Errorf("embedding failed: %w", err)
	}
	if len(vecs) != 1 {
		return fmt.Errorf("embedding failed: expected 1 vector, got %d", len(vecs))
	}
	return ix.Add(vecs[0], m)
}

// Add appends a precomputed vector + metadata atomically and persists.
func (ix *Index) Add(vec []float32, m Meta) error {
	if len(vec) != ix.dim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimension, len(vec), ix.dim)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.vectors = append(ix.vectors, vec)
	ix.meta = append(ix.meta, m)
	if err := ix.persistLocked(); err != nil {
		// roll back the in-memory append so memory matches disk
		ix.vectors = ix.vectors[:len(ix.vectors)-1]
		ix.meta = ix.meta[:len(ix.meta)-1]
		return err
	}
	return nil
}

// QueryNearest returns up to k nearest entries by L2 distance. An empty
// index returns an empty slice, never an error.
func (ix *Index) QueryNearest(vec []float32, k int) []Hit {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.nearestLocked(vec, k)
}

func (ix *Index) nearestLocked(vec []float32, k int) []Hit {
	if len(ix.vectors) == 0 || k <= 0 {
		return nil
	}
	hits := make([]Hit, 0, len(ix.vectors))
	for i, v := range ix.vectors {
		hits = append(hits, Hit{Meta: ix.meta[i], Distance: l2(vec, v)})
	}
	sort.Slice(hits, func(a, b int) bool { return hits[a].Distance < hits[b].Distance })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

// IsDuplicate reports whether the nearest stored entry is within threshold.
// Always false on an empty index. The threshold is caller policy; the index
// only computes distance.
func (ix *Index) IsDuplicate(vec []float32, threshold float64) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	hits := ix.nearestLocked(vec, 1)
	if len(hits) == 0 {
		return false
	}
	return float64(hits[0].Distance) <= threshold
}

// Search embeds the query text and returns the topK nearest entries.
func (ix *Index) Search(ctx context.Context, query string, topK int) ([]Hit, error) {
	vecs, err := ix.embedder.EmbedMany(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embedding failed: expected 1 vector, got %d", len(vecs))
	}
	if len(vecs[0]) != ix.dim {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimension, len(vecs[0]), ix.dim)
	}
	return ix.QueryNearest(vecs[0], topK), nil
}

// Reset clears the in-memory state and removes both files. Idempotent:
// resetting an already-empty index succeeds.
func (ix *Index) Reset() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	vecPath := filepath.Join(ix.dir, vectorsFile)
	metaPath := filepath.Join(ix.dir, metaFile)
	if err := os.Remove(vecPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", vecPath, err)
	}
	if err := os.Remove(metaPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", metaPath, err)
	}
	ix.vectors = nil
	ix.meta = nil
	return nil
}

// ResetDir removes the persisted pair without opening the index. This is
// the recovery path for a corrupt pair that Open refuses to load.
func ResetDir(dir string) error {
	for _, name := range []string{vectorsFile, metaFile} {
		p := filepath.Join(dir, name)
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", p, err)
		}
	}
	return nil
}

// persistLocked writes both files via temp+rename. Callers hold ix.mu.
func (ix *Index) persistLocked() error {
	if err := writeVectors(filepath.Join(ix.dir, vectorsFile), ix.dim, ix.vectors); err != nil {
		return fmt.Errorf("failed to persist vectors: %w", err)
	}
	if err := writeMeta(filepath.Join(ix.dir, metaFile), ix.meta); err != nil {
		return fmt.Errorf("failed to persist metadata: %w", err)
	}
	return nil
}

func l2(a, b []float32) float32 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return float32(math.Sqrt(sum))
}

// Vector file layout: magic, dim, count (all uint32 LE), then count*dim
// float32 values in insertion order.
func writeVectors(path string, dim int, vectors [][]float32) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	header := []uint32{vectorsMagic, uint32(dim), uint32(len(vectors))}
	for _, h := range header {
		if err := binary.Write(f, binary.LittleEndian, h); err != nil {
			f.Close()
			return err
		}
	}
	for _, vec := range vectors {
		if err := binary.Write(f, binary.LittleEndian, vec); err != nil {
			f.Close()
			return err
		}
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func readVectors(path string, dim int) ([][]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var magic, fileDim, count uint32
	for _, p := range []*uint32{&magic, &fileDim, &count} {
		if err := binary.Read(f, binary.LittleEndian, p); err != nil {
			return nil, ErrCorrupt
		}
	}
	if magic != vectorsMagic || int(fileDim) != dim {
		return nil, ErrCorrupt
	}

	vectors := make([][]float32, 0, count)
	for i := uint32(0); i < count; i++ {
		vec := make([]float32, dim)
		if err := binary.Read(f, binary.LittleEndian, vec); err != nil {
			return nil, ErrCorrupt
		}
		vectors = append(vectors, vec)
	}
	return vectors, nil
}

func writeMeta(path string, meta []Meta) error {
	if meta == nil {
		meta = []Meta{}
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func readMeta(path string) ([]Meta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var meta []Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, ErrCorrupt
	}
	return meta, nil
}

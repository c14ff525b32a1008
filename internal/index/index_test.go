package index

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// stubEmbedder returns a fixed vector per known text.
type stubEmbedder struct {
	vectors map[string][]float32
}

func (s stubEmbedder) EmbedMany(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		vec, ok := s.vectors[t]
		if !ok {
			return nil, errors.New("unknown text: " + t)
		}
		out = append(out, vec)
	}
	return out, nil
}

func newTestIndex(t *testing.T, dir string) *Index {
	t.Helper()
	emb := stubEmbedder{vectors: map[string][]float32{
		"alpha": {1, 0, 0, 0},
		"beta":  {0, 1, 0, 0},
		"near":  {0.9, 0, 0, 0},
	}}
	ix, err := Open(dir, 4, emb, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return ix
}

func TestInsertAndDuplicate(t *testing.T) {
	ix := newTestIndex(t, t.TempDir())
	ctx := context.Background()

	if err := ix.Insert(ctx, "alpha", Meta{Title: "alpha"}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	// identical vector: distance 0, must be a duplicate at any threshold
	if !ix.IsDuplicate([]float32{1, 0, 0, 0}, 0) {
		t.Fatal("identical vector not reported as duplicate")
	}
	// orthogonal vector: distance sqrt(2), outside the 0.6 default
	if ix.IsDuplicate([]float32{0, 1, 0, 0}, 0.6) {
		t.Fatal("dissimilar vector reported as duplicate")
	}
	// nearby vector: distance 0.1, inside 0.6
	if !ix.IsDuplicate([]float32{0.9, 0, 0, 0}, 0.6) {
		t.Fatal("near vector not reported as duplicate")
	}
}

func TestIsDuplicateEmptyIndex(t *testing.T) {
	ix := newTestIndex(t, t.TempDir())
	if ix.IsDuplicate([]float32{1, 0, 0, 0}, 100) {
		t.Fatal("empty index can have no duplicates")
	}
}

func TestQueryNearestOrdering(t *testing.T) {
	ix := newTestIndex(t, t.TempDir())
	ctx := context.Background()
	for _, text := range []string{"alpha", "beta", "near"} {
		if err := ix.Insert(ctx, text, Meta{Title: text}); err != nil {
			t.Fatalf("Insert %s: %v", text, err)
		}
	}

	hits, err := ix.Search(ctx, "alpha", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	if hits[0].Meta.Title != "alpha" || hits[1].Meta.Title != "near" {
		t.Fatalf("wrong order: %q then %q", hits[0].Meta.Title, hits[1].Meta.Title)
	}
	if hits[0].Distance != 0 {
		t.Fatalf("self distance = %v, want 0", hits[0].Distance)
	}
}

func TestPersistReload(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	ix := newTestIndex(t, dir)
	if err := ix.Insert(ctx, "alpha", Meta{Title: "alpha", URL: "http://a"}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := ix.Insert(ctx, "beta", Meta{Title: "beta", URL: "http://b"}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	reopened := newTestIndex(t, dir)
	if got := reopened.Len(); got != 2 {
		t.Fatalf("reloaded Len = %d, want 2", got)
	}
	hits := reopened.QueryNearest([]float32{1, 0, 0, 0}, 1)
	if len(hits) != 1 || hits[0].Meta.URL != "http://a" {
		t.Fatalf("reloaded nearest = %+v", hits)
	}
	if hits[0].Distance != 0 {
		t.Fatalf("reloaded self distance = %v, want 0", hits[0].Distance)
	}
}

func TestDimensionMismatch(t *testing.T) {
	ix := newTestIndex(t, t.TempDir())
	if err := ix.Add([]float32{1, 2}, Meta{}); !errors.Is(err, ErrDimension) {
		t.Fatalf("Add short vector: %v, want ErrDimension", err)
	}
}

func TestOpenMissingOneFile(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	ix := newTestIndex(t, dir)
	if err := ix.Insert(ctx, "alpha", Meta{Title: "alpha"}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := os.Remove(filepath.Join(dir, "meta.json")); err != nil {
		t.Fatalf("remove meta: %v", err)
	}

	if _, err := Open(dir, 4, stubEmbedder{}, nil); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("Open with missing metadata: %v, want ErrCorrupt", err)
	}
}

func TestOpenCountMismatch(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	ix := newTestIndex(t, dir)
	if err := ix.Insert(ctx, "alpha", Meta{Title: "alpha"}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	// one vector on disk, two metadata entries: the pair is inconsistent
	extra, err := json.Marshal([]Meta{{Title: "alpha"}, {Title: "ghost"}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "meta.json"), extra, 0o644); err != nil {
		t.Fatalf("write meta: %v", err)
	}

	if _, err := Open(dir, 4, stubEmbedder{}, nil); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("Open with count mismatch: %v, want ErrCorrupt", err)
	}
}

func TestResetRecoversCorruptPair(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "vectors.bin"), []byte("garbage"), 0o644); err != nil {
		t.Fatalf("write vectors: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "meta.json"), []byte("[]"), 0o644); err != nil {
		t.Fatalf("write meta: %v", err)
	}
	if _, err := Open(dir, 4, stubEmbedder{}, nil); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("Open on garbage: %v, want ErrCorrupt", err)
	}

	if err := ResetDir(dir); err != nil {
		t.Fatalf("ResetDir: %v", err)
	}
	ix := newTestIndex(t, dir)
	if ix.Len() != 0 {
		t.Fatalf("reset index Len = %d, want 0", ix.Len())
	}
}

func TestResetIdempotent(t *testing.T) {
	dir := t.TempDir()
	ix := newTestIndex(t, dir)
	for i := 0; i < 2; i++ {
		if err := ix.Reset(); err != nil {
			t.Fatalf("Reset pass %d: %v", i+1, err)
		}
	}
	if err := ResetDir(dir); err != nil {
		t.Fatalf("ResetDir on empty dir: %v", err)
	}
}

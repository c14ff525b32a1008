package index

import (
	"path/filepath"
	"testing"
)

func TestKeywordIndexAndSearch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keyword.bleve")
	k, err := OpenKeyword(path)
	if err != nil {
		t.Fatalf("OpenKeyword: %v", err)
	}
	defer k.Close()

	if err := k.Index("r1", Meta{Title: "Singapore elections", Report: "Polling stations opened across Singapore."}); err != nil {
		t.Fatalf("Index: %v", err)
	}
	if err := k.Index("r2", Meta{Title: "Lunar mission", Report: "The probe entered lunar orbit."}); err != nil {
		t.Fatalf("Index: %v", err)
	}

	hits, err := k.Search("singapore", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "r1" {
		t.Fatalf("Search hits = %+v, want only r1", hits)
	}

	if hits, err = k.Search("nosuchword", 5); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("unexpected hits for unmatched query: %+v", hits)
	}
}

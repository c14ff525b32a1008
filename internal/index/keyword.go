package index

import (
	"fmt"

	"github.com/blevesearch/bleve"
)

// KeywordHit is one BM25 result: the stored report ID plus its score.
type KeywordHit struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// Keyword is a BM25 text index over saved reports, the keyword complement
// to the vector index for searching past runs.
type Keyword struct {
	idx bleve.Index
}

// OpenKeyword opens (or creates) a bleve index at path.
func OpenKeyword(path string) (*Keyword, error) {
	idx, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		idx, err = bleve.New(path, bleve.NewIndexMapping())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open keyword index: %w", err)
	}
	return &Keyword{idx: idx}, nil
}

// Index stores the report metadata under the given ID.
func (k *Keyword) Index(id string, m Meta) error {
	return k.idx.Index(id, m)
}

// Search runs a query-string search and returns up to limit report IDs by
// descending score.
func (k *Keyword) Search(q string, limit int) ([]KeywordHit, error) {
	if limit <= 0 {
		limit = 5
	}
	query := bleve.NewQueryStringQuery(q)
	req := bleve.NewSearchRequestOptions(query, limit, 0, false)
	res, err := k.idx.Search(req)
	if err != nil {
		return nil, err
	}
	hits := make([]KeywordHit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hits = append(hits, KeywordHit{ID: h.ID, Score: h.Score})
	}
	return hits, nil
}

// Close releases the underlying index files.
func (k *Keyword) Close() error {
	return k.idx.Close()
}

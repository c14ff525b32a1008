package news

import (
	"context"
	"log"
)

// Article is a candidate article reference: one search hit, not yet fetched.
type Article struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}

// Query is a normalized structured search request.
type Query struct {
	Query string `json:"query"`
	From  string `json:"from,omitempty"` // ISO date, optional
	To    string `json:"to,omitempty"`   // ISO date, optional
}

// Searcher resolves a structured query to candidate articles.
type Searcher interface {
	Search(ctx context.Context, q Query, max int) ([]Article, error)
}

// FeedReader pulls recent entries from general syndication feeds.
type FeedReader interface {
	Fetch(ctx context.Context, feedURL string, max int) ([]Article, error)
}

// Retriever handles candidate retrieval with a deterministic fallback chain:
// keyword search first, generic feeds when the provider fails or comes back
// empty. It returns a list on every path; an empty list only when every
// fallback feed also failed.
type Retriever struct {
	Searcher     Searcher
	Feeds        FeedReader
	FallbackURLs []string
	PerFeedQuota int
	Logger       *log.Logger
}

// NewRetriever creates a new candidate retriever
func NewRetriever(searcher Searcher, feeds FeedReader, fallbackURLs []string, perFeedQuota int, logger *log.Logger) *Retriever {
	if perFeedQuota <= 0 {
		perFeedQuota = 2
	}
	return &Retriever{
		Searcher:     searcher,
		Feeds:        feeds,
		FallbackURLs: fallbackURLs,
		PerFeedQuota: perFeedQuota,
		Logger:       logger,
	}
}

// Retrieve returns up to max candidate articles for the query. An empty or
// absent query skips the search provider entirely and goes straight to the
// fallback feeds.
func (r *Retriever) Retrieve(ctx context.Context, q Query, max int) []Article {
	if max <= 0 {
		max = 6
	}
	if q.Query == "" {
		return r.fallback(ctx, max)
	}

	articles, err := r.Searcher.Search(ctx, q, max)
	if err != nil {
		r.Logger.Printf("search provider failed for %q: %v, falling back to feeds", q.Query, err)
		return r.fallback(ctx, max)
	}
	if len(articles) == 0 {
		r.Logger.Printf("search provider returned no usable articles for %q, falling back to feeds", q.Query)
		return r.fallback(ctx, max)
	}
	if len(articles) > max {
		articles = articles[:max]
	}
	return articles
}

func (r *Retriever) fallback(ctx context.Context, max int) []Article {
	var out []Article
	for _, feedURL := range r.FallbackURLs {
		items, err := r.Feeds.Fetch(ctx, feedURL, r.PerFeedQuota)
		if err != nil {
			r.Logger.Printf("fallback feed %s failed: %v", feedURL, err)
			continue
		}
		out = append(out, items...)
		if len(out) >= max {
			break
		}
	}
	if len(out) > max {
		out = out[:max]
	}
	return out
}

package rss

import (
	"context"
	"fmt"

	"github.com/mmcdole/gofeed"

	"github.com/mohammad-safakhou/newsight/news"
)

// Reader fetches entries from standard RSS/Atom feeds
type Reader struct{}

// NewReader creates a new feed reader
func NewReader() *Reader {
	return &Reader{}
}

// Fetch parses the feed at feedURL and returns up to max entries as
// candidate articles, in feed order.
func (r *Reader) Fetch(ctx context.Context, feedURL string, max int) ([]news.Article, error) {
	fp := gofeed.NewParser()
	feed, err := fp.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed %s: %w", feedURL, err)
	}

	var out []news.Article
	for _, item := range feed.Items {
		if len(out) >= max {
			break
		}
		if item.Link == "" {
			continue
		}
		out = append(out, news.Article{Title: item.Title, Link: item.Link})
	}
	return out, nil
}

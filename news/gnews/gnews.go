package gnews

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mohammad-safakhou/newsight/news"
)

// article mirrors one entry of the GNews /search response.
type article struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	URL         string `json:"url"`
}

type response struct {
	TotalArticles int       `json:"totalArticles"`
	Articles      []article `json:"articles"`
}

// Client is a GNews keyword-search client
type Client struct {
	APIKey     string
	Endpoint   string
	Lang       string
	HTTPClient *http.Client
}

// NewClient creates a new GNews client
func NewClient(apiKey, endpoint, lang string, timeout time.Duration) *Client {
	if endpoint == "" {
		endpoint = "https://gnews.io/api/v4/search"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		APIKey:     apiKey,
		Endpoint:   endpoint,
		Lang:       lang,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// Search queries GNews with optional date bounds. Hits without a resolvable
// URL are dropped; titles fall back to description, then content.
func (c *Client) Search(ctx context.Context, q news.Query, max int) ([]news.Article, error) {
	params := url.Values{}
	params.Add("q", q.Query)
	params.Add("max", strconv.Itoa(max))
	params.Add("token", c.APIKey)
	if c.Lang != "" {
		params.Add("lang", c.Lang)
	}
	if q.From != "" {
		params.Add("from", q.From)
	}
	if q.To != "" {
		params.Add("to", q.To)
	}

	reqURL := fmt.Sprintf("%s?%s", c.Endpoint, params.Encode())
	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch news: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gnews error: %s", resp.Status)
	}

	var result response
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	var out []news.Article
	for _, a := range result.Articles {
		if a.URL == "" {
			continue
		}
		title := a.Title
		if title == "" {
			title = a.Description
		}
		if title == "" {
			title = a.Content
		}
		if title == "" {
			title = "Untitled"
		}
		out = append(out, news.Article{Title: title, Link: a.URL})
	}
	return out, nil
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/mohammad-safakhou/newsight/config"
	"github.com/mohammad-safakhou/newsight/internal/cache"
	"github.com/mohammad-safakhou/newsight/internal/index"
	"github.com/mohammad-safakhou/newsight/internal/store"
	"github.com/mohammad-safakhou/newsight/internal/telemetry"
	"github.com/mohammad-safakhou/newsight/news"
	"github.com/mohammad-safakhou/newsight/news/gnews"
	"github.com/mohammad-safakhou/newsight/news/rss"
	"github.com/mohammad-safakhou/newsight/provider"
	"github.com/mohammad-safakhou/newsight/tools/embedding"
	"github.com/mohammad-safakhou/newsight/tools/web_fetch"
)

// Runtime bundles the orchestrator with the long-lived collaborators the
// serve and search surfaces also need direct access to.
type Runtime struct {
	Orchestrator *Orchestrator
	Index        *index.Index
	Keyword      *index.Keyword
	Archive      *store.Store
	Cache        *cache.ArticleCache
	Telemetry    *telemetry.Telemetry
	Logger       *log.Logger
}

// NewRuntime builds a full pipeline runtime from configuration. Optional
// backends (redis, postgres, metrics) come up only when configured; the
// similarity index is mandatory and a corrupt pair is a startup failure.
func NewRuntime(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	logger := log.New(os.Stdout, "[PIPELINE] ", log.LstdFlags)

	llm, err := provider.NewProvider(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}
	embedder := embedding.NewEmbedding(llm)

	ix, err := index.Open(cfg.Index.Dir, cfg.Index.Dimensions, embedder, log.New(os.Stdout, "[INDEX] ", log.LstdFlags))
	if err != nil {
		if errors.Is(err, index.ErrCorrupt) {
			return nil, fmt.Errorf("%w: run `newsight index reset` to recover", err)
		}
		return nil, err
	}

	keyword, err := index.OpenKeyword(filepath.Join(cfg.Index.Dir, "keyword.bleve"))
	if err != nil {
		return nil, err
	}

	searcher := gnews.NewClient(cfg.Sources.GNews.APIKey, cfg.Sources.GNews.Endpoint, cfg.Sources.GNews.Lang, cfg.Sources.GNews.Timeout)
	retriever := news.NewRetriever(searcher, rss.NewReader(), cfg.Sources.FallbackFeeds, cfg.Sources.PerFeedQuota, log.New(os.Stdout, "[NEWS] ", log.LstdFlags))

	fetcher, err := web_fetch.NewWebFetcher(web_fetch.FetcherType(cfg.Fetch.Type), cfg.Fetch.Timeout, cfg.Fetch.MaxChars)
	if err != nil {
		return nil, fmt.Errorf("failed to create fetcher: %w", err)
	}

	var bodyCache *cache.ArticleCache
	if cfg.Storage.Redis.Enabled {
		bodyCache = cache.New(cfg.Storage.Redis.Addr, cfg.Storage.Redis.Password, cfg.Storage.Redis.DB, cfg.Fetch.CacheTTL)
		if err := bodyCache.Ping(ctx); err != nil {
			return nil, fmt.Errorf("failed to reach redis: %w", err)
		}
	}

	var archive *store.Store
	if dsn := cfg.Storage.Postgres.DSN(); dsn != "" {
		archive, err = store.Open(dsn)
		if err != nil {
			return nil, err
		}
	}

	var tele *telemetry.Telemetry
	if cfg.Telemetry.Enabled {
		tele = telemetry.New()
	}

	rt := &Runtime{
		Index:     ix,
		Keyword:   keyword,
		Archive:   archive,
		Cache:     bodyCache,
		Telemetry: tele,
		Logger:    logger,
	}
	rt.Orchestrator = NewOrchestrator(cfg, llm, retriever, fetcher, cacheOrNil(bodyCache), embedder, ix, keyword, archive, tele, logger)
	return rt, nil
}

// cacheOrNil keeps the BodyCache interface nil when no cache is configured,
// instead of a non-nil interface wrapping a nil pointer.
func cacheOrNil(c *cache.ArticleCache) BodyCache {
	if c == nil {
		return nil
	}
	return c
}

// Close releases the runtime's backends.
func (rt *Runtime) Close() error {
	var firstErr error
	if rt.Keyword != nil {
		if err := rt.Keyword.Close(); err != nil {
			firstErr = err
		}
	}
	if rt.Archive != nil {
		if err := rt.Archive.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

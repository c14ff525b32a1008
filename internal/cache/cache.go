package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "newsight:article:"

// ArticleCache is a Redis-backed cache of extracted article bodies keyed by
// canonicalized URL. A nil *ArticleCache is a valid no-op cache so callers
// never have to branch on whether caching is configured.
type ArticleCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New creates a cache against the given Redis instance.
func New(addr, password string, db int, ttl time.Duration) *ArticleCache {
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	return &ArticleCache{
		rdb: redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db}),
		ttl: ttl,
	}
}

// Get returns the cached body for rawURL, if present.
func (c *ArticleCache) Get(ctx context.Context, rawURL string) (string, bool) {
	if c == nil {
		return "", false
	}
	val, err := c.rdb.Get(ctx, key(rawURL)).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

// Set stores the body for rawURL. Failures are silent: the cache is an
// optimization, never a dependency.
func (c *ArticleCache) Set(ctx context.Context, rawURL, text string) {
	if c == nil || text == "" {
		return
	}
	_ = c.rdb.Set(ctx, key(rawURL), text, c.ttl).Err()
}

// Ping verifies connectivity at startup.
func (c *ArticleCache) Ping(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.rdb.Ping(ctx).Err()
}

// key hashes a canonicalized form of the URL so tracking params and
// fragments do not split cache entries.
func key(rawURL string) string {
	sum := sha1.Sum([]byte(canonical(rawURL)))
	return keyPrefix + hex.EncodeToString(sum[:])
}

func canonical(rawURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return rawURL
	}
	parsed.Fragment = ""
	q := parsed.Query()
	for k := range q {
		lower := strings.ToLower(k)
		if strings.HasPrefix(lower, "utm_") || lower == "fbclid" || lower == "gclid" {
			q.Del(k)
		}
	}
	parsed.RawQuery = q.Encode()
	parsed.Host = strings.ToLower(parsed.Host)
	return parsed.String()
}

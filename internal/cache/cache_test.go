package cache

import (
	"context"
	"testing"
)

func TestCanonicalStripsTracking(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{
			"https://Example.com/story?utm_source=tw&utm_medium=social&id=7",
			"https://example.com/story?id=7",
		},
		{
			"https://example.com/story?fbclid=abc&gclid=def",
			"https://example.com/story",
		},
		{
			"https://example.com/story#section-2",
			"https://example.com/story",
		},
		{
			"https://example.com/story?id=7",
			"https://example.com/story?id=7",
		},
	}
	for _, tc := range cases {
		if got := canonical(tc.in); got != tc.want {
			t.Fatalf("canonical(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestKeyStableAcrossVariants(t *testing.T) {
	a := key("https://example.com/story?utm_source=tw")
	b := key("https://example.com/story#top")
	if a != b {
		t.Fatalf("tracking variants map to different keys: %q vs %q", a, b)
	}
	c := key("https://example.com/other")
	if a == c {
		t.Fatal("different URLs collide")
	}
}

func TestNilCacheIsNoop(t *testing.T) {
	var c *ArticleCache
	ctx := context.Background()

	if _, ok := c.Get(ctx, "http://a"); ok {
		t.Fatal("nil cache returned a hit")
	}
	c.Set(ctx, "http://a", "text") // must not panic
	if err := c.Ping(ctx); err != nil {
		t.Fatalf("nil cache ping: %v", err)
	}
}

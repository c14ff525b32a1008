package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the pipeline system
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Sources   SourcesConfig   `mapstructure:"sources"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Index     IndexConfig     `mapstructure:"index"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Server    ServerConfig    `mapstructure:"server"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug          bool          `mapstructure:"debug"`
	LogLevel       string        `mapstructure:"log_level"`
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
}

// LLMConfig contains text-generation provider settings
type LLMConfig struct {
	Type        string           `mapstructure:"type"` // ollama, openai
	BaseURL     string           `mapstructure:"base_url"`
	APIKey      string           `mapstructure:"api_key"`
	Timeout     time.Duration    `mapstructure:"timeout"`
	NumCtx      int              `mapstructure:"num_ctx"`
	Temperature float64          `mapstructure:"temperature"`
	Routing     LLMRoutingConfig `mapstructure:"routing"`
}

// LLMRoutingConfig defines which model handles each pipeline stage
type LLMRoutingConfig struct {
	Preprocess string `mapstructure:"preprocess"` // vague prompt -> structured query
	Summarize  string `mapstructure:"summarize"`  // per-article summaries + synthesis
	Critic     string `mapstructure:"critic"`     // bias judgment
	Writer     string `mapstructure:"writer"`     // final report
	Embedding  string `mapstructure:"embedding"`  // title/report vectors
}

func (l LLMConfig) Validate() error {
	if strings.TrimSpace(l.BaseURL) == "" {
		return fmt.Errorf("llm.base_url is required")
	}
	if l.Routing.Summarize == "" || l.Routing.Writer == "" {
		return fmt.Errorf("llm.routing.summarize and llm.routing.writer are required")
	}
	return nil
}

// SourcesConfig contains news source configurations
type SourcesConfig struct {
	GNews         GNewsConfig `mapstructure:"gnews"`
	FallbackFeeds []string    `mapstructure:"fallback_feeds"`
	PerFeedQuota  int         `mapstructure:"per_feed_quota"`
}

// GNewsConfig contains the primary keyword-search provider settings
type GNewsConfig struct {
	APIKey   string        `mapstructure:"api_key"`
	Endpoint string        `mapstructure:"endpoint"`
	Lang     string        `mapstructure:"lang"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (s SourcesConfig) Validate() error {
	if strings.TrimSpace(s.GNews.APIKey) == "" {
		return fmt.Errorf("sources.gnews.api_key is required (NEWSIGHT_SOURCES_GNEWS_API_KEY)")
	}
	if len(s.FallbackFeeds) == 0 {
		return fmt.Errorf("sources.fallback_feeds must list at least one feed")
	}
	return nil
}

// FetchConfig controls article body extraction
type FetchConfig struct {
	Type     string        `mapstructure:"type"` // http, chromedp
	Timeout  time.Duration `mapstructure:"timeout"`
	MaxChars int           `mapstructure:"max_chars"`
	Workers  int           `mapstructure:"workers"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// PipelineConfig contains per-run policy defaults
type PipelineConfig struct {
	MaxArticles     int  `mapstructure:"max_articles"`
	RunCritique     bool `mapstructure:"run_critique"`
	MinArticleChars int  `mapstructure:"min_article_chars"`
	DedupCandidates bool `mapstructure:"dedup_candidates"`
	IndexReports    bool `mapstructure:"index_reports"`
	ProxyWindow     int  `mapstructure:"proxy_window"` // chars of raw text handed to the critic
}

// Normalize applies defaults for unset pipeline values.
func (p PipelineConfig) Normalize() PipelineConfig {
	if p.MaxArticles <= 0 {
		p.MaxArticles = 6
	}
	if p.MinArticleChars <= 0 {
		p.MinArticleChars = 200
	}
	if p.ProxyWindow <= 0 {
		p.ProxyWindow = 8000
	}
	return p
}

// IndexConfig contains similarity-index settings
type IndexConfig struct {
	Dir                string  `mapstructure:"dir"`
	Dimensions         int     `mapstructure:"dimensions"`
	DuplicateThreshold float64 `mapstructure:"duplicate_threshold"`
}

// Normalize applies defaults for unset index values.
func (i IndexConfig) Normalize() IndexConfig {
	if i.Dir == "" {
		i.Dir = "cache/index"
	}
	if i.Dimensions <= 0 {
		i.Dimensions = 384
	}
	if i.DuplicateThreshold <= 0 {
		i.DuplicateThreshold = 0.6
	}
	return i
}

// StorageConfig contains persistence backends
type StorageConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig contains the report archive connection settings
type PostgresConfig struct {
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN builds a connection string from either the URL or the discrete fields.
// Empty host and URL means the archive is disabled.
func (p PostgresConfig) DSN() string {
	if p.URL != "" {
		return p.URL
	}
	if p.Host == "" || p.DBName == "" {
		return ""
	}
	port := p.Port
	if port == "" {
		port = "5432"
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, port, p.DBName, ssl)
}

// RedisConfig contains the fetched-body cache settings
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r RedisConfig) Validate() error {
	if r.Enabled && strings.TrimSpace(r.Addr) == "" {
		return fmt.Errorf("storage.redis.addr is required when redis is enabled")
	}
	return nil
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// TelemetryConfig contains metrics settings
type TelemetryConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoadConfig reads configuration from the given path (or the default search
// paths) plus NEWSIGHT_* environment overrides. Missing required settings are
// fatal here: runtime stages degrade, startup configuration does not.
func LoadConfig(path string) *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("json")
	viper.SetDefault("general.log_level", "info")
	viper.SetDefault("general.default_timeout", "120s")
	viper.SetDefault("llm.type", "ollama")
	viper.SetDefault("llm.base_url", "http://localhost:11434")
	viper.SetDefault("llm.timeout", "120s")
	viper.SetDefault("llm.num_ctx", 8192)
	viper.SetDefault("llm.temperature", 0.2)
	viper.SetDefault("sources.gnews.endpoint", "https://gnews.io/api/v4/search")
	viper.SetDefault("sources.gnews.lang", "en")
	viper.SetDefault("sources.gnews.timeout", "30s")
	viper.SetDefault("sources.per_feed_quota", 2)
	viper.SetDefault("sources.fallback_feeds", []string{
		"http://feeds.bbci.co.uk/news/world/rss.xml",
		"https://rss.cnn.com/rss/edition_world.rss",
		"https://feeds.npr.org/1004/rss.xml",
	})
	viper.SetDefault("fetch.type", "http")
	viper.SetDefault("fetch.timeout", "15s")
	viper.SetDefault("fetch.max_chars", 20000)
	viper.SetDefault("fetch.workers", 4)
	viper.SetDefault("fetch.cache_ttl", "6h")
	viper.SetDefault("pipeline.max_articles", 6)
	viper.SetDefault("pipeline.run_critique", true)
	viper.SetDefault("pipeline.min_article_chars", 200)
	viper.SetDefault("pipeline.index_reports", true)
	viper.SetDefault("index.dir", "cache/index")
	viper.SetDefault("index.dimensions", 384)
	viper.SetDefault("index.duplicate_threshold", 0.6)
	viper.SetDefault("server.address", ":10010")

	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
		exe, _ := os.Executable()
		exeDir := filepath.Dir(exe)
		viper.AddConfigPath(exeDir)
		viper.AddConfigPath(filepath.Join(exeDir, ".."))
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("NEWSIGHT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}
	config.Pipeline = config.Pipeline.Normalize()
	config.Index = config.Index.Normalize()

	if err := config.LLM.Validate(); err != nil {
		panic(err)
	}
	if err := config.Sources.Validate(); err != nil {
		panic(err)
	}
	if err := config.Storage.Redis.Validate(); err != nil {
		panic(err)
	}

	return &config
}

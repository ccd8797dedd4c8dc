// Package config loads runtime settings from an optional TOML file and the
// environment. Environment variables win over the file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/thiagokokada/githistory/internal/cache"
	"github.com/thiagokokada/githistory/internal/git"
	"github.com/thiagokokada/githistory/internal/github"
)

// CacheBackend enumerates where enrichment lookups are cached.
type CacheBackend string

const (
	CacheBackendMemory CacheBackend = "memory"
	CacheBackendRedis  CacheBackend = "redis"
)

// Config aggregates runtime configuration.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	GitHub  GitHubConfig  `toml:"github"`
	Cache   CacheConfig   `toml:"cache"`
	History HistoryConfig `toml:"history"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type GitHubConfig struct {
	Token   string        `toml:"token"`
	APIURL  string        `toml:"api_url"`
	Timeout time.Duration `toml:"timeout"`
}

type CacheConfig struct {
	Backend       CacheBackend  `toml:"backend"`
	PRTTL         time.Duration `toml:"pr_ttl"`
	PRCapacity    int           `toml:"pr_capacity"`
	IssueTTL      time.Duration `toml:"issue_ttl"`
	IssueCapacity int           `toml:"issue_capacity"`
	RedisAddr     string        `toml:"redis_addr"`
	RedisPassword string        `toml:"redis_password"`
	RedisDB       int           `toml:"redis_db"`
	RedisPrefix   string        `toml:"redis_prefix"`
}

// Redis returns the connection settings for the shared tier.
func (c CacheConfig) Redis() cache.RedisConfig {
	return cache.RedisConfig{Addr: c.RedisAddr, Password: c.RedisPassword, Database: c.RedisDB}
}

type HistoryConfig struct {
	DefaultPageSize  int `toml:"default_page_size"`
	DefaultChunkSize int `toml:"default_chunk_size"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{Addr: "127.0.0.1:8080"},
		GitHub: GitHubConfig{
			APIURL:  github.DefaultAPIURL,
			Timeout: github.DefaultTimeout,
		},
		Cache: CacheConfig{
			Backend:       CacheBackendMemory,
			PRTTL:         github.DefaultPullRequestTTL,
			PRCapacity:    github.DefaultPullRequestCapacity,
			IssueTTL:      github.DefaultIssueTTL,
			IssueCapacity: github.DefaultIssueCapacity,
			RedisAddr:     "localhost:6379",
			RedisPrefix:   "githistory:",
		},
		History: HistoryConfig{
			DefaultPageSize:  git.DefaultPageSize,
			DefaultChunkSize: git.DefaultBatch,
		},
	}
}

// Load starts from Default, applies the TOML file at path when path is not
// empty, then the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		for _, key := range md.Undecoded() {
			slog.Warn("unknown config key", slog.String("file", path), slog.String("key", key.String()))
		}
	}
	applyEnv(&cfg)
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Server.Addr = envDefault("GITHISTORY_ADDR", cfg.Server.Addr)
	cfg.GitHub.Token = envDefault("GITHUB_TOKEN", cfg.GitHub.Token)
	cfg.GitHub.APIURL = envDefault("GITHUB_API_URL", cfg.GitHub.APIURL)
	cfg.GitHub.Timeout = envDuration("GITHISTORY_GITHUB_TIMEOUT", cfg.GitHub.Timeout)
	cfg.Cache.Backend = CacheBackend(strings.ToLower(envDefault("GITHISTORY_CACHE_BACKEND", string(cfg.Cache.Backend))))
	cfg.Cache.RedisAddr = envDefault("GITHISTORY_REDIS_ADDR", cfg.Cache.RedisAddr)
	cfg.Cache.RedisPassword = envDefault("GITHISTORY_REDIS_PASSWORD", cfg.Cache.RedisPassword)
	cfg.Cache.RedisDB = envInt("GITHISTORY_REDIS_DB", cfg.Cache.RedisDB)
	cfg.History.DefaultPageSize = envInt("GITHISTORY_PAGE_SIZE", cfg.History.DefaultPageSize)
	cfg.History.DefaultChunkSize = envInt("GITHISTORY_CHUNK_SIZE", cfg.History.DefaultChunkSize)
}

func (c Config) validate() error {
	switch c.Cache.Backend {
	case CacheBackendMemory, CacheBackendRedis:
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	if c.Cache.PRCapacity < 1 || c.Cache.IssueCapacity < 1 {
		return fmt.Errorf("cache capacities must be positive")
	}
	if c.Cache.PRTTL <= 0 || c.Cache.IssueTTL <= 0 {
		return fmt.Errorf("cache ttls must be positive")
	}
	if c.History.DefaultPageSize < 1 || c.History.DefaultChunkSize < 1 {
		return fmt.Errorf("history page and chunk sizes must be positive")
	}
	return nil
}

func envDefault(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func envInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
		slog.Warn("ignoring invalid integer", slog.String("env", key), slog.String("value", val))
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
		slog.Warn("ignoring invalid duration", slog.String("env", key), slog.String("value", val))
	}
	return def
}

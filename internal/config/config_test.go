package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var configEnv = []string{
	"GITHISTORY_ADDR", "GITHUB_TOKEN", "GITHUB_API_URL", "GITHISTORY_GITHUB_TIMEOUT",
	"GITHISTORY_CACHE_BACKEND", "GITHISTORY_REDIS_ADDR", "GITHISTORY_REDIS_PASSWORD",
	"GITHISTORY_REDIS_DB", "GITHISTORY_PAGE_SIZE", "GITHISTORY_CHUNK_SIZE",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configEnv {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "githistory.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("Load(\"\") = %+v, want defaults", cfg)
	}
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
[server]
addr = ":9000"

[github]
token = "from-file"
timeout = "3s"

[cache]
backend = "redis"
pr_ttl = "1m"
issue_capacity = 10
redis_prefix = "test:"

[history]
default_page_size = 25
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":9000" || cfg.GitHub.Token != "from-file" || cfg.GitHub.Timeout != 3*time.Second {
		t.Fatalf("unexpected server/github config: %+v %+v", cfg.Server, cfg.GitHub)
	}
	if cfg.Cache.Backend != CacheBackendRedis || cfg.Cache.PRTTL != time.Minute || cfg.Cache.IssueCapacity != 10 {
		t.Fatalf("unexpected cache config: %+v", cfg.Cache)
	}
	if cfg.History.DefaultPageSize != 25 || cfg.History.DefaultChunkSize != Default().History.DefaultChunkSize {
		t.Fatalf("unexpected history config: %+v", cfg.History)
	}
	if got := cfg.Cache.Redis(); got.Addr != "localhost:6379" {
		t.Fatalf("Redis() = %+v", got)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "[github]\ntoken = \"from-file\"\n")
	t.Setenv("GITHUB_TOKEN", "from-env")
	t.Setenv("GITHISTORY_CACHE_BACKEND", "REDIS")
	t.Setenv("GITHISTORY_REDIS_DB", "3")
	t.Setenv("GITHISTORY_CHUNK_SIZE", "not-a-number")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GitHub.Token != "from-env" || cfg.Cache.Backend != CacheBackendRedis || cfg.Cache.RedisDB != 3 {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if cfg.History.DefaultChunkSize != Default().History.DefaultChunkSize {
		t.Fatalf("invalid env value was applied: %d", cfg.History.DefaultChunkSize)
	}
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)

	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected error for missing file")
	}
	if _, err := Load(writeConfig(t, "[server\n")); err == nil {
		t.Fatal("expected error for malformed file")
	}
	if _, err := Load(writeConfig(t, "[cache]\nbackend = \"memcached\"\n")); err == nil {
		t.Fatal("expected error for unknown backend")
	}
	if _, err := Load(writeConfig(t, "[history]\ndefault_page_size = 0\n")); err == nil {
		t.Fatal("expected error for zero page size")
	}
}

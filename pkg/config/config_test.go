package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 64, cfg.BOM.MaxDepth)
	assert.Equal(t, 250000, cfg.BOM.MaxTreeNodes)
	assert.Equal(t, 5*time.Minute, cfg.Cache.CostTTL)
	assert.Empty(t, cfg.Database.DSN)
	assert.False(t, cfg.Redis.Enabled)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "bomcheck.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9090"
  mode: debug
bom:
  max_depth: 12
  max_tree_nodes: 5000
cache:
  cost_ttl: 30s
log:
  level: debug
`), 0o644))

	t.Setenv("BOMCHECK_BOM_MAX_DEPTH", "20")
	t.Setenv("BOMCHECK_DATABASE_DSN", "postgres://localhost/bomcheck")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Server.Mode)
	assert.Equal(t, 20, cfg.BOM.MaxDepth)
	assert.Equal(t, 5000, cfg.BOM.MaxTreeNodes)
	assert.Equal(t, 30*time.Second, cfg.Cache.CostTTL)
	assert.Equal(t, "postgres://localhost/bomcheck", cfg.Database.DSN)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("BOMCHECK_REDIS_ADDR=cache:6379\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("BOMCHECK_REDIS_ADDR") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := Load("does-not-exist.yaml")
	require.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			Server: ServerConfig{Mode: "release"},
			BOM:    BOMConfig{MaxDepth: 64, MaxTreeNodes: 1000},
			Cache:  CacheConfig{CostTTL: time.Minute},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"zero depth", func(c *Config) { c.BOM.MaxDepth = 0 }, "bom.max_depth"},
		{"zero tree nodes", func(c *Config) { c.BOM.MaxTreeNodes = 0 }, "bom.max_tree_nodes"},
		{"negative ttl", func(c *Config) { c.Cache.CostTTL = -time.Second }, "cache.cost_ttl"},
		{"bad mode", func(c *Config) { c.Server.Mode = "prod" }, "server.mode"},
		{"redis without addr", func(c *Config) { c.Redis.Enabled = true }, "redis.addr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

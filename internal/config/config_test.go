package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 768, cfg.Embedding.Dimension)
	assert.Equal(t, "nomic-embed-text", cfg.Embedding.Model)
	assert.Equal(t, Duration(24*time.Hour), cfg.Fetch.MaxAge)
	assert.Equal(t, 5, cfg.Fetch.Concurrency)
	assert.Equal(t, 5, cfg.Search.DefaultLimit)
	assert.Equal(t, 50, cfg.Search.MaxLimit)
	assert.Equal(t, 40, cfg.Search.Breadth)
}

func TestLoadParsesDurationsAndSeeds(t *testing.T) {
	path := writeConfig(t, `
fetch:
  max_age: 48h
  timeout: 15s
feeds:
  - name: Tech Weekly
    url: https://tech.example.com/rss
    category: tech
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 48*time.Hour, cfg.Fetch.MaxAge.Std())
	assert.Equal(t, 15*time.Second, cfg.Fetch.Timeout.Std())
	require.Len(t, cfg.Feeds, 1)
	assert.Equal(t, "Tech Weekly", cfg.Feeds[0].Name)
	assert.Equal(t, "tech", cfg.Feeds[0].Category)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := writeConfig(t, "fetch:\n  timeout: soon\n")
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsBadSeedURL(t *testing.T) {
	path := writeConfig(t, `
feeds:
  - name: Broken
    url: not-a-url
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://other:5432/feeds")
	t.Setenv("EMBEDDING_MODEL_NAME", "custom-model")
	t.Setenv("RSS_MAX_AGE_HOURS", "72")
	t.Setenv("RSS_MAX_ENTRIES_PER_FEED", "25")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "postgres://other:5432/feeds", cfg.Database.URL)
	assert.Equal(t, "custom-model", cfg.Embedding.Model)
	assert.Equal(t, 72*time.Hour, cfg.Fetch.MaxAge.Std())
	assert.Equal(t, 25, cfg.Fetch.MaxEntries)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Events.Brokers)
}

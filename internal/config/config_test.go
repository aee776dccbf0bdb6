package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"CATALOG_SOURCE", "CATALOG_FILE", "CATALOG_URLS", "CATALOG_CACHE_TTL", "PREFIX_FILTERING", "MIN_SUPPORTED_YEAR"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, "file", cfg.Catalog.Source)
	assert.Equal(t, []string{"data/catalog.csv"}, cfg.Catalog.Files)
	assert.Nil(t, cfg.Catalog.URLs)
	assert.Equal(t, 6*time.Hour, cfg.Catalog.CacheTTL)
	assert.Equal(t, 2000, cfg.Catalog.MinYear)
	assert.True(t, cfg.Catalog.PrefixFiltering)
	assert.Equal(t, "catalog:rows", cfg.Redis.Key)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("CATALOG_SOURCE", "HTTP")
	t.Setenv("CATALOG_URLS", " https://a.example/guia.csv, ,https://b.example/guia.json ")
	t.Setenv("CATALOG_CACHE_TTL", "30m")
	t.Setenv("CATALOG_BUILD_TIMEOUT", "not-a-duration")
	t.Setenv("CATALOG_HTTP_RPS", "0.5")
	t.Setenv("PREFIX_FILTERING", "false")
	t.Setenv("MIN_SUPPORTED_YEAR", "2005")
	t.Setenv("DB_PORT", "abc")

	cfg := Load()
	assert.Equal(t, "http", cfg.Catalog.Source)
	assert.Equal(t, []string{"https://a.example/guia.csv", "https://b.example/guia.json"}, cfg.Catalog.URLs)
	assert.Equal(t, 30*time.Minute, cfg.Catalog.CacheTTL)
	assert.Equal(t, 2*time.Minute, cfg.Catalog.BuildTimeout)
	assert.Equal(t, 0.5, cfg.Catalog.HTTPRPS)
	assert.False(t, cfg.Catalog.PrefixFiltering)
	assert.Equal(t, 2005, cfg.Catalog.MinYear)
	assert.Equal(t, 5432, cfg.Database.Port)
}

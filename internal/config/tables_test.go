package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"valuation-catalog-api/internal/catalog"
	"valuation-catalog-api/internal/matching"
)

func writeTables(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "tables.yaml")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoadTables_Defaults(t *testing.T) {
	tables, weights, err := LoadTables("")
	require.NoError(t, err)
	assert.Equal(t, matching.DefaultTables(), tables)
	assert.Equal(t, catalog.DefaultWeights(), weights)
}

func TestLoadTables_Overrides(t *testing.T) {
	p := writeTables(t, `
brand_aliases:
  "CITROËN": CITROEN
  GM: GENERAL MOTORS
skip_tokens: [SEDAN]
weights:
  containment: 80
  length_penalty: 0.5
`)

	tables, weights, err := LoadTables(p)
	require.NoError(t, err)

	assert.Equal(t, "CITROEN", tables.BrandAliases["CITROËN"])
	assert.Equal(t, "GENERAL MOTORS", tables.BrandAliases["GM"])
	assert.Equal(t, "BMW", tables.BrandAliases["BMW MOTORRAD"])
	assert.Equal(t, []string{"SEDAN"}, tables.SkipTokens)
	assert.Equal(t, matching.DefaultTables().BreakTokens, tables.BreakTokens)

	defaults := catalog.DefaultWeights()
	assert.Equal(t, 80.0, weights.Containment)
	assert.Equal(t, 0.5, weights.LengthPenalty)
	assert.Equal(t, defaults.SharedToken, weights.SharedToken)
	assert.Equal(t, defaults.FullCoverage, weights.FullCoverage)
}

func TestLoadTables_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, _, err := LoadTables(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		_, _, err := LoadTables(writeTables(t, "skip_tokens: [unclosed"))
		assert.Error(t, err)
	})

	t.Run("negative weight", func(t *testing.T) {
		_, weights, err := LoadTables(writeTables(t, "weights:\n  shared_token: -1\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "shared_token")
		assert.Equal(t, catalog.DefaultWeights(), weights)
	})
}

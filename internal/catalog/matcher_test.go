package catalog

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"valuation-catalog-api/internal/matching"
	"valuation-catalog-api/internal/model"
)

func buildBucket(t *testing.T, brand string, references ...string) *Bucket {
	t.Helper()
	rows := make([]model.RawRow, 0, len(references))
	for _, ref := range references {
		rows = append(rows, model.RawRow{Brand: brand, Reference: ref, Year: "2022", Value: "1"})
	}
	index := newTestIndexer().Build(rows)
	bucket, ok := index.Bucket(matching.NewNormalizer(matching.DefaultTables()).BrandKey(brand))
	require.True(t, ok)
	return bucket
}

func TestMatcher_ScoreExactMatch(t *testing.T) {
	m := NewMatcher(DefaultWeights())
	bucket := buildBucket(t, "BMW", "X3 xDrive30i", "X5 xDrive40i")

	for _, entry := range bucket.Entries {
		score := m.Score(entry, entry.NormalizedReference, matching.Tokenize(entry.NormalizedReference))
		assert.True(t, math.IsInf(score, 1), entry.NormalizedReference)
	}
}

func TestMatcher_ScoreEmptyEntry(t *testing.T) {
	m := NewMatcher(DefaultWeights())

	assert.True(t, math.IsInf(m.Score(&Entry{}, "X3", []string{"X3"}), -1))
	assert.True(t, math.IsInf(m.Score(nil, "X3", []string{"X3"}), -1))
}

func TestMatcher_ScoreBreakdown(t *testing.T) {
	m := NewMatcher(DefaultWeights())
	entry := buildBucket(t, "BMW", "X3 xDrive30i").Entries[0] // X3 XDRIVE30I

	tests := []struct {
		name  string
		query string
		want  float64
	}{
		// containment 50 + shared 10 + coverage 5 - delta 1
		{"shared token", "X3", 64},
		// containment 50 + shared 10 + partial 1 - delta 0
		{"shared and partial", "X3 XDRIVE", 61},
		// containment 50 + prefix 3 - delta 1
		{"prefix token", "X", 52},
		// containment 50 + partial 1 - delta 1
		{"partial token", "XDRIVE", 50},
		// nothing in common, delta 1
		{"unrelated", "Z4", -1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, m.Score(entry, tc.query, matching.Tokenize(tc.query)))
		})
	}
}

func TestMatcher_CustomWeights(t *testing.T) {
	w := DefaultWeights()
	w.Containment = 0
	w.LengthPenalty = 2
	m := NewMatcher(w)
	entry := buildBucket(t, "BMW", "X3 xDrive30i").Entries[0]

	assert.Equal(t, w, m.Weights())
	assert.Equal(t, 13.0, m.Score(entry, "X3", []string{"X3"}))
}

func TestMatcher_RankX3AboveX5(t *testing.T) {
	m := NewMatcher(DefaultWeights())
	bucket := buildBucket(t, "BMW", "BMW X5 xDrive40i", "BMW X3 xDrive30i")

	ranked := m.RankEntries(bucket.Entries, "X3")
	require.Len(t, ranked, 2)
	assert.Equal(t, "X3 XDRIVE30I", ranked[0].NormalizedReference)
	assert.Equal(t, "X5 XDRIVE40I", ranked[1].NormalizedReference)

	results := m.Rank(bucket.Entries, "X3")
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestMatcher_RankKeepsInsertionOrderOnTies(t *testing.T) {
	m := NewMatcher(DefaultWeights())
	bucket := buildBucket(t, "KIA", "Rio", "Soul", "Niro")

	ranked := m.RankEntries(bucket.Entries, "PICANTO")
	require.Len(t, ranked, 3)
	assert.Equal(t, "RIO", ranked[0].NormalizedReference)
	assert.Equal(t, "SOUL", ranked[1].NormalizedReference)
	assert.Equal(t, "NIRO", ranked[2].NormalizedReference)
}

func TestMatcher_RankDropsEmptyEntries(t *testing.T) {
	m := NewMatcher(DefaultWeights())
	bucket := buildBucket(t, "BMW", "X3 xDrive30i")
	entries := append([]*Entry{{}}, bucket.Entries...)

	ranked := m.RankEntries(entries, "X3")
	require.Len(t, ranked, 1)
	assert.Equal(t, "X3 XDRIVE30I", ranked[0].NormalizedReference)
	assert.Empty(t, m.RankEntries(nil, "X3"))
}

func TestFilterByPrefixes(t *testing.T) {
	bucket := buildBucket(t, "BMW", "X3 xDrive30i", "X5 xDrive40i", "X3 M40i")

	kept := FilterByPrefixes(bucket.Entries, []string{"BMW X3 M40I", "BMW X3"})
	require.Len(t, kept, 1)
	assert.Equal(t, "X3 M40I", kept[0].NormalizedReference)

	// longest prefix matches nothing, the shorter one keeps the family
	kept = FilterByPrefixes(bucket.Entries, []string{"BMW X3 SDRIVE20I", "BMW X3"})
	require.Len(t, kept, 2)
	assert.Equal(t, "X3 XDRIVE30I", kept[0].NormalizedReference)
	assert.Equal(t, "X3 M40I", kept[1].NormalizedReference)

	// no prefix matches: no filtering
	assert.Len(t, FilterByPrefixes(bucket.Entries, []string{"BMW X7"}), 3)
	assert.Len(t, FilterByPrefixes(bucket.Entries, nil), 3)
}

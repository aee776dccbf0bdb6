package catalog

import (
	"math"
	"sort"
	"strings"

	"valuation-catalog-api/internal/matching"
)

// Weights are the fuzzy score parameters
type Weights struct {
	Containment   float64 `yaml:"containment"`    // entry reference contains the whole query
	SharedToken   float64 `yaml:"shared_token"`   // query token present in entry tokens
	PrefixToken   float64 `yaml:"prefix_token"`   // entry reference starts with the token
	PartialToken  float64 `yaml:"partial_token"`  // entry reference contains the token
	FullCoverage  float64 `yaml:"full_coverage"`  // every query token was shared
	LengthPenalty float64 `yaml:"length_penalty"` // per token of count difference
}

// DefaultWeights returns the stock score weights
func DefaultWeights() Weights {
	return Weights{
		Containment:   50,
		SharedToken:   10,
		PrefixToken:   3,
		PartialToken:  1,
		FullCoverage:  5,
		LengthPenalty: 1,
	}
}

// MatchResult is a scored candidate
type MatchResult struct {
	Entry *Entry
	Score float64
}

// Matcher ranks catalog entries against a normalized query reference
type Matcher struct {
	weights Weights
}

// NewMatcher creates a matcher with the given weights
func NewMatcher(weights Weights) *Matcher {
	return &Matcher{weights: weights}
}

// Weights returns the weights in use
func (m *Matcher) Weights() Weights {
	return m.weights
}

// Score rates an entry against the query. An exact reference match scores
// +Inf; an entry without a normalized reference scores -Inf.
func (m *Matcher) Score(entry *Entry, query string, queryTokens []string) float64 {
	if entry == nil || entry.NormalizedReference == "" {
		return math.Inf(-1)
	}
	if entry.NormalizedReference == query {
		return math.Inf(1)
	}

	ref := entry.NormalizedReference
	score := 0.0
	if query != "" && strings.Contains(ref, query) {
		score += m.weights.Containment
	}

	shared := 0
	for _, token := range queryTokens {
		switch {
		case entry.HasToken(token):
			score += m.weights.SharedToken
			shared++
		case strings.HasPrefix(ref, token):
			score += m.weights.PrefixToken
		case strings.Contains(ref, token):
			score += m.weights.PartialToken
		}
	}
	if len(queryTokens) > 0 && shared == len(queryTokens) {
		score += m.weights.FullCoverage
	}

	delta := len(entry.Tokens) - len(queryTokens)
	if delta < 0 {
		delta = -delta
	}
	score -= m.weights.LengthPenalty * float64(delta)

	return score
}

// Rank scores every entry, drops -Inf scores and sorts descending. Ties keep
// the input order.
func (m *Matcher) Rank(entries []*Entry, query string) []MatchResult {
	queryTokens := matching.Tokenize(query)

	results := make([]MatchResult, 0, len(entries))
	for _, entry := range entries {
		score := m.Score(entry, query, queryTokens)
		if math.IsInf(score, -1) {
			continue
		}
		results = append(results, MatchResult{Entry: entry, Score: score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

// RankEntries is Rank without the scores
func (m *Matcher) RankEntries(entries []*Entry, query string) []*Entry {
	results := m.Rank(entries, query)
	ranked := make([]*Entry, len(results))
	for i, r := range results {
		ranked[i] = r.Entry
	}
	return ranked
}

// FilterByPrefixes keeps the entries whose "brand + reference" label continues
// the first prefix (longest first) that matches anything. With no prefixes, or
// when none of them match, entries are returned unfiltered.
func FilterByPrefixes(entries []*Entry, prefixes []string) []*Entry {
	if len(prefixes) == 0 {
		return entries
	}

	for _, prefix := range prefixes {
		var kept []*Entry
		for _, entry := range entries {
			if matching.MatchesPrefix(entry.familyLabel(), prefix) {
				kept = append(kept, entry)
			}
		}
		if len(kept) > 0 {
			return kept
		}
	}
	return entries
}

func (e *Entry) familyLabel() string {
	return e.BrandKey + " " + e.NormalizedReference
}

package catalog

import (
	"sort"
	"strconv"
	"time"

	"valuation-catalog-api/internal/matching"
	"valuation-catalog-api/internal/model"
)

// DefaultMinYear is the oldest model year admitted into the index
const DefaultMinYear = 2000

// Entry is one distinct normalized reference inside a brand.
// Entries are read-only once their Index has been returned by Build.
type Entry struct {
	BrandKey            string
	BrandLabels         []string // first-seen order
	PreferredBrandLabel string
	ReferenceLabel      string
	NormalizedReference string
	Tokens              []string

	tokenSet  map[string]struct{}
	values    map[string]float64
	rawValues map[string]string
}

// HasToken reports whether token is one of the entry's reference tokens
func (e *Entry) HasToken(token string) bool {
	_, ok := e.tokenSet[token]
	return ok
}

// Value returns the numeric value for a year
func (e *Entry) Value(year string) (float64, bool) {
	v, ok := e.values[year]
	return v, ok
}

// RawValue returns the value text for a year as it appeared in the catalog
func (e *Entry) RawValue(year string) (string, bool) {
	v, ok := e.rawValues[year]
	return v, ok
}

// Values returns a copy of the numeric values keyed by year
func (e *Entry) Values() map[int]float64 {
	out := make(map[int]float64, len(e.values))
	for year, v := range e.values {
		if y, err := strconv.Atoi(year); err == nil {
			out[y] = v
		}
	}
	return out
}

// RawValues returns a copy of the raw values keyed by year
func (e *Entry) RawValues() map[string]string {
	out := make(map[string]string, len(e.rawValues))
	for year, v := range e.rawValues {
		out[year] = v
	}
	return out
}

// Years returns the years present in raw form, ascending
func (e *Entry) Years() []string {
	years := make([]string, 0, len(e.rawValues))
	for year := range e.rawValues {
		years = append(years, year)
	}
	sort.Strings(years)
	return years
}

// Bucket groups the entries of one brand key
type Bucket struct {
	BrandKey       string
	Labels         []string // first-seen order
	PreferredLabel string
	Entries        []*Entry // insertion order

	byReference map[string]*Entry
}

// Lookup returns the entry with exactly this normalized reference
func (b *Bucket) Lookup(normalizedReference string) (*Entry, bool) {
	e, ok := b.byReference[normalizedReference]
	return e, ok
}

// Index is an immutable snapshot of the valuation catalog.
type Index struct {
	CreatedAt time.Time
	RowCount  int
	Dropped   int

	buckets map[string]*Bucket
}

// Bucket returns the bucket of a brand key
func (ix *Index) Bucket(brandKey string) (*Bucket, bool) {
	b, ok := ix.buckets[brandKey]
	return b, ok
}

// BrandCount returns how many brand keys the index holds
func (ix *Index) BrandCount() int {
	return len(ix.buckets)
}

// Brands summarizes every bucket, sorted by brand key
func (ix *Index) Brands() []model.BrandSummary {
	keys := make([]string, 0, len(ix.buckets))
	for key := range ix.buckets {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	summaries := make([]model.BrandSummary, 0, len(keys))
	for _, key := range keys {
		b := ix.buckets[key]
		summaries = append(summaries, model.BrandSummary{
			BrandKey:       b.BrandKey,
			PreferredLabel: b.PreferredLabel,
			Labels:         append([]string(nil), b.Labels...),
			Entries:        len(b.Entries),
		})
	}
	return summaries
}

// Indexer turns raw catalog rows into an Index
type Indexer struct {
	normalizer *matching.Normalizer
	minYear    int
	now        func() time.Time
}

// NewIndexer creates an indexer. minYear <= 0 selects DefaultMinYear.
func NewIndexer(normalizer *matching.Normalizer, minYear int) *Indexer {
	if minYear <= 0 {
		minYear = DefaultMinYear
	}
	return &Indexer{
		normalizer: normalizer,
		minYear:    minYear,
		now:        time.Now,
	}
}

// MinYear returns the oldest admitted model year
func (ix *Indexer) MinYear() int {
	return ix.minYear
}

// Build indexes rows. Malformed rows (missing brand, reference or year, or a
// year below the minimum) are dropped and counted; Build never fails.
//
// A later row for the same reference and year overwrites the earlier raw
// value; the numeric value is only overwritten when the later text parses.
func (ix *Indexer) Build(rows []model.RawRow) *Index {
	index := &Index{
		CreatedAt: ix.now(),
		RowCount:  len(rows),
		buckets:   make(map[string]*Bucket),
	}

	for _, row := range rows {
		brandKey := ix.normalizer.BrandKey(row.Brand)
		year := matching.NormalizeYear(row.Year)
		reference := matching.NormalizeReference(row.Reference, brandKey)
		if brandKey == "" || year == "" || reference == "" || !ix.admitsYear(year) {
			index.Dropped++
			continue
		}

		brandLabel := matching.NormalizeWhitespace(row.Brand)
		referenceLabel := matching.NormalizeWhitespace(row.Reference)

		bucket, ok := index.buckets[brandKey]
		if !ok {
			bucket = &Bucket{
				BrandKey:    brandKey,
				byReference: make(map[string]*Entry),
			}
			index.buckets[brandKey] = bucket
		}
		bucket.Labels = appendUnique(bucket.Labels, brandLabel)

		entry, ok := bucket.byReference[reference]
		if !ok {
			tokens := matching.Tokenize(reference)
			entry = &Entry{
				BrandKey:            brandKey,
				PreferredBrandLabel: brandLabel,
				ReferenceLabel:      referenceLabel,
				NormalizedReference: reference,
				tokenSet:            make(map[string]struct{}, len(tokens)),
				values:              make(map[string]float64),
				rawValues:           make(map[string]string),
			}
			for _, token := range tokens {
				if _, dup := entry.tokenSet[token]; !dup {
					entry.tokenSet[token] = struct{}{}
					entry.Tokens = append(entry.Tokens, token)
				}
			}
			bucket.byReference[reference] = entry
			bucket.Entries = append(bucket.Entries, entry)
		} else if len(referenceLabel) > len(entry.ReferenceLabel) {
			entry.ReferenceLabel = referenceLabel
		}
		entry.BrandLabels = appendUnique(entry.BrandLabels, brandLabel)

		entry.rawValues[year] = row.Value
		if value, ok := matching.ParseMoney(row.Value); ok {
			entry.values[year] = value
		}
	}

	for _, bucket := range index.buckets {
		bucket.PreferredLabel = shortest(bucket.Labels)
		if bucket.PreferredLabel == "" {
			bucket.PreferredLabel = bucket.BrandKey
		}
		for _, entry := range bucket.Entries {
			if entry.PreferredBrandLabel == "" {
				entry.PreferredBrandLabel = bucket.PreferredLabel
			}
			if entry.ReferenceLabel == "" {
				entry.ReferenceLabel = entry.NormalizedReference
			}
		}
	}

	return index
}

func (ix *Indexer) admitsYear(year string) bool {
	y, err := strconv.Atoi(year)
	return err == nil && y >= ix.minYear
}

func appendUnique(list []string, value string) []string {
	if value == "" {
		return list
	}
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(list, value)
}

// shortest returns the shortest string, ties going to the first seen
func shortest(list []string) string {
	best := ""
	for i, v := range list {
		if i == 0 || len(v) < len(best) {
			best = v
		}
	}
	return best
}

package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"valuation-catalog-api/internal/catalog"
	"valuation-catalog-api/internal/matching"
	"valuation-catalog-api/internal/metrics"
	"valuation-catalog-api/internal/model"
)

type testEnv struct {
	svc     *ValuationService
	calls   *atomic.Int32
	metrics *metrics.Basic
}

func newTestService(t *testing.T, rows []model.RawRow, fetchErr error, prefixFiltering bool) testEnv {
	t.Helper()

	tables := matching.DefaultTables()
	normalizer := matching.NewNormalizer(tables)
	calls := &atomic.Int32{}
	collector := &metrics.Basic{}

	fetcher := catalog.FetchFunc(func(ctx context.Context) ([]model.RawRow, error) {
		calls.Add(1)
		return rows, fetchErr
	})
	manager := catalog.NewManager(fetcher, catalog.NewIndexer(normalizer, 0), catalog.ManagerConfig{Metrics: collector})

	svc := NewValuationService(manager, normalizer, matching.NewPrefixExtractor(tables), ValuationConfig{
		PrefixFiltering: prefixFiltering,
		Weights:         catalog.DefaultWeights(),
		Metrics:         collector,
	})
	return testEnv{svc: svc, calls: calls, metrics: collector}
}

var x3Rows = []model.RawRow{
	{Brand: "BMW X3", Reference: "BMW X3 xDrive30i", Year: "2022", Value: "185.000.000"},
}

func TestResolve_SuggestedValue(t *testing.T) {
	env := newTestService(t, x3Rows, nil, true)

	record, err := env.svc.Resolve(context.Background(), "BMW", "X3 xDrive30i", "2022")
	require.NoError(t, err)
	require.NotNil(t, record)

	require.NotNil(t, record.SuggestedValue)
	assert.Equal(t, 185000000.0, *record.SuggestedValue)
	require.NotNil(t, record.SuggestedValueRaw)
	assert.Equal(t, "185.000.000", *record.SuggestedValueRaw)
	assert.Equal(t, "BMW X3", record.Brand)
	assert.Equal(t, 1, record.MatchCount)
	assert.Equal(t, "X3 xDrive30i", record.QueriedReference)
	assert.Equal(t, "X3 XDRIVE30I", record.NormalizedReference)
	assert.Equal(t, "2022", record.QueriedYear)
	assert.Equal(t, DefaultSourceLabel, record.Source)
	assert.Nil(t, record.Note)

	_, err = time.Parse(time.RFC3339, record.IndexTimestamp)
	assert.NoError(t, err)

	require.Len(t, record.Matches, 1)
	match := record.Matches[0]
	assert.Equal(t, "BMW X3 xDrive30i", match.Reference)
	assert.Equal(t, "BMW X3", match.Brand)
	assert.Equal(t, []string{"X3", "XDRIVE30I"}, match.Tokens)
	assert.Equal(t, map[int]float64{2022: 185000000}, match.ValuesByYear)
	assert.Equal(t, map[string]string{"2022": "185.000.000"}, match.RawValuesByYear)
	require.NotNil(t, match.RequestedYearValue)
	assert.Equal(t, 185000000.0, *match.RequestedYearValue)

	assert.Equal(t, int64(1), env.metrics.Found.Load())
}

func TestResolve_YearWithoutValue(t *testing.T) {
	env := newTestService(t, x3Rows, nil, true)

	record, err := env.svc.Resolve(context.Background(), "BMW", "X3 xDrive30i", "2019")
	require.NoError(t, err)
	require.NotNil(t, record)

	assert.Nil(t, record.SuggestedValue)
	assert.Nil(t, record.SuggestedValueRaw)
	require.NotNil(t, record.Note)
	assert.Equal(t, NoValueNote, *record.Note)
	assert.Equal(t, 1, record.MatchCount)
	assert.Nil(t, record.Matches[0].RequestedYearValue)
	assert.Equal(t, int64(1), env.metrics.NoValue.Load())
}

func TestResolve_RawValueWithoutNumber(t *testing.T) {
	env := newTestService(t, []model.RawRow{
		{Brand: "BMW", Reference: "X5 xDrive40i", Year: "2021", Value: "consultar"},
	}, nil, true)

	record, err := env.svc.Resolve(context.Background(), "bmw", "x5 xdrive40i", "2021")
	require.NoError(t, err)
	require.NotNil(t, record)

	assert.Nil(t, record.SuggestedValue)
	require.NotNil(t, record.SuggestedValueRaw)
	assert.Equal(t, "consultar", *record.SuggestedValueRaw)
	assert.NotNil(t, record.Note)
}

func TestResolve_RejectsYearBelowMinimum(t *testing.T) {
	env := newTestService(t, x3Rows, nil, true)

	for _, brand := range []string{"BMW", "Kia", "Unknown"} {
		record, err := env.svc.Resolve(context.Background(), brand, "X3 xDrive30i", "1999")
		assert.NoError(t, err)
		assert.Nil(t, record)
	}
	assert.Equal(t, int32(0), env.calls.Load())
	assert.Equal(t, int64(3), env.metrics.Absent.Load())
}

func TestResolve_InvalidInput(t *testing.T) {
	env := newTestService(t, x3Rows, nil, true)
	ctx := context.Background()

	tests := []struct {
		name                    string
		brand, reference, year string
	}{
		{"empty brand", "", "X3", "2022"},
		{"empty reference", "BMW", "", "2022"},
		{"reference is only the brand", "BMW", "BMW", "2022"},
		{"empty year", "BMW", "X3", ""},
		{"year without digits", "BMW", "X3", "nuevo"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			record, err := env.svc.Resolve(ctx, tc.brand, tc.reference, tc.year)
			assert.NoError(t, err)
			assert.Nil(t, record)
		})
	}
	assert.Equal(t, int32(0), env.calls.Load())
}

func TestResolve_UnknownBrand(t *testing.T) {
	env := newTestService(t, x3Rows, nil, true)

	record, err := env.svc.Resolve(context.Background(), "Toyota", "Hilux", "2022")
	assert.NoError(t, err)
	assert.Nil(t, record)
	assert.Equal(t, int32(1), env.calls.Load())
}

func TestResolve_RanksSubModelFamily(t *testing.T) {
	rows := []model.RawRow{
		{Brand: "BMW", Reference: "BMW X5 xDrive40i", Year: "2022", Value: "300.000.000"},
		{Brand: "BMW", Reference: "BMW X3 xDrive30i", Year: "2022", Value: "185.000.000"},
	}

	t.Run("prefix filtering", func(t *testing.T) {
		env := newTestService(t, rows, nil, true)
		record, err := env.svc.Resolve(context.Background(), "BMW", "X3", "2022")
		require.NoError(t, err)
		require.NotNil(t, record)

		assert.Equal(t, 1, record.MatchCount)
		assert.Equal(t, "X3 XDRIVE30I", record.Matches[0].NormalizedReference)
		assert.Equal(t, 185000000.0, *record.SuggestedValue)
	})

	t.Run("ranking only", func(t *testing.T) {
		env := newTestService(t, rows, nil, false)
		record, err := env.svc.Resolve(context.Background(), "BMW", "X3", "2022")
		require.NoError(t, err)
		require.NotNil(t, record)

		require.Equal(t, 2, record.MatchCount)
		assert.Equal(t, "X3 XDRIVE30I", record.Matches[0].NormalizedReference)
		assert.Equal(t, "X5 XDRIVE40I", record.Matches[1].NormalizedReference)
		assert.Equal(t, 185000000.0, *record.SuggestedValue)
	})
}

func TestResolve_PrefersExactReference(t *testing.T) {
	env := newTestService(t, []model.RawRow{
		{Brand: "BMW", Reference: "320i M Sport", Year: "2020", Value: "140.000.000"},
		{Brand: "BMW", Reference: "Sedan 320i", Year: "2020", Value: "120.000.000"},
	}, nil, true)

	// the family prefix skips SEDAN and would leave the exact entry out
	record, err := env.svc.Resolve(context.Background(), "BMW", "Sedan 320i", "2020")
	require.NoError(t, err)
	require.NotNil(t, record)

	assert.Equal(t, "SEDAN 320I", record.Matches[0].NormalizedReference)
	assert.Equal(t, 120000000.0, *record.SuggestedValue)
	assert.Equal(t, 2, record.MatchCount)
}

func TestResolve_BrandAlias(t *testing.T) {
	env := newTestService(t, []model.RawRow{
		{Brand: "BMW Motorrad", Reference: "G 310 R", Year: "2023", Value: "25.900.000"},
	}, nil, true)

	record, err := env.svc.Resolve(context.Background(), "BMW", "g 310 r", "2023")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "BMW Motorrad", record.Brand)
	assert.Equal(t, "G 310 R", record.Matches[0].NormalizedReference)
}

func TestResolve_BuildFailure(t *testing.T) {
	boom := errors.New("navigation timeout")
	env := newTestService(t, nil, boom, true)

	record, err := env.svc.Resolve(context.Background(), "BMW", "X3", "2022")
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, record)
	assert.Equal(t, int64(1), env.metrics.Errors.Load())
}

func TestBrands(t *testing.T) {
	env := newTestService(t, []model.RawRow{
		{Brand: "Toyota", Reference: "Hilux", Year: "2021", Value: "1"},
		{Brand: "BMW X3", Reference: "xDrive30i", Year: "2021", Value: "1"},
		{Brand: "BMW", Reference: "320i", Year: "2021", Value: "1"},
	}, nil, true)

	response, err := env.svc.Brands(context.Background())
	require.NoError(t, err)
	require.Len(t, response.Brands, 2)
	assert.Equal(t, "BMW", response.Brands[0].BrandKey)
	assert.Equal(t, "BMW", response.Brands[0].PreferredLabel)
	assert.Equal(t, 2, response.Brands[0].Entries)
	assert.Equal(t, "TOYOTA", response.Brands[1].BrandKey)
	assert.False(t, response.UpdatedAt.IsZero())
}

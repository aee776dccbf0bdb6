package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"valuation-catalog-api/internal/catalog"
	"valuation-catalog-api/internal/model"
)

// ErrNoSources is returned by a Fallback or Merge built without sources
var ErrNoSources = errors.New("source: no row sources configured")

// Fallback tries its sources in order; the first one returning at least one
// row wins and the rest are not touched.
type Fallback struct {
	sources []catalog.RowFetcher
	logger  *slog.Logger
}

// NewFallback creates a fallback chain
func NewFallback(logger *slog.Logger, sources ...catalog.RowFetcher) *Fallback {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fallback{sources: sources, logger: logger}
}

// FetchRows implements catalog.RowFetcher
func (f *Fallback) FetchRows(ctx context.Context) ([]model.RawRow, error) {
	if len(f.sources) == 0 {
		return nil, ErrNoSources
	}

	var errs []error
	for i, src := range f.sources {
		rows, err := src.FetchRows(ctx)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if err == nil && len(rows) == 0 {
			err = catalog.ErrEmptyCatalog
		}
		if err != nil {
			f.logger.Warn("catalog source failed, trying next",
				"source", nameOf(src),
				"position", i,
				"error", err,
			)
			errs = append(errs, fmt.Errorf("%s: %w", nameOf(src), err))
			continue
		}

		if i > 0 {
			f.logger.Info("catalog loaded from fallback source", "source", nameOf(src), "rows", len(rows))
		}
		return rows, nil
	}
	return nil, errors.Join(errs...)
}

// Merge fetches all sources concurrently and concatenates their rows in
// argument order. Any failure fails the merge.
type Merge struct {
	sources []catalog.RowFetcher
}

// NewMerge creates a merged source
func NewMerge(sources ...catalog.RowFetcher) *Merge {
	return &Merge{sources: sources}
}

// FetchRows implements catalog.RowFetcher
func (m *Merge) FetchRows(ctx context.Context) ([]model.RawRow, error) {
	if len(m.sources) == 0 {
		return nil, ErrNoSources
	}

	results := make([][]model.RawRow, len(m.sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range m.sources {
		g.Go(func() error {
			rows, err := src.FetchRows(gctx)
			if err != nil {
				return fmt.Errorf("%s: %w", nameOf(src), err)
			}
			results[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, rows := range results {
		total += len(rows)
	}
	merged := make([]model.RawRow, 0, total)
	for _, rows := range results {
		merged = append(merged, rows...)
	}
	return merged, nil
}

func nameOf(src catalog.RowFetcher) string {
	if s, ok := src.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", src)
}

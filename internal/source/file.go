package source

import (
	"context"
	"fmt"
	"os"

	"valuation-catalog-api/internal/model"
)

// FileSource reads catalog rows from a local CSV or JSON export
type FileSource struct {
	path string
}

// NewFileSource creates a file row source
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) String() string {
	return "file:" + s.path
}

// FetchRows implements catalog.RowFetcher
func (s *FileSource) FetchRows(ctx context.Context) ([]model.RawRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	format, err := FormatFromPath(s.path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open catalog file: %w", err)
	}
	defer f.Close()

	rows, err := Decode(f, format)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return rows, nil
}

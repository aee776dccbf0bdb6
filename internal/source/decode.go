package source

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"valuation-catalog-api/internal/matching"
	"valuation-catalog-api/internal/model"
)

// ErrUnsupportedFormat is returned for a catalog document that is neither CSV nor JSON
var ErrUnsupportedFormat = errors.New("source: unsupported catalog format")

// Format of a catalog document
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

var yearColumnRegex = regexp.MustCompile(`^(19|20)\d{2}$`)

// Column aliases, compared after diacritic stripping and lowercasing
var (
	brandColumns     = []string{"marca", "brand", "serie"}
	referenceColumns = []string{"referencia", "reference"}
	yearColumns      = []string{"anio", "ano", "year"}
	valueColumns     = []string{"valor", "value"}
)

// FormatFromPath picks the format from a file name or URL path extension
func FormatFromPath(p string) (Format, error) {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".csv":
		return FormatCSV, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, p)
	}
}

// Decode reads catalog rows from r
func Decode(r io.Reader, format Format) ([]model.RawRow, error) {
	switch format {
	case FormatCSV:
		return decodeCSV(r)
	case FormatJSON:
		return decodeJSON(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	return strings.ToLower(matching.NormalizePlainText(h))
}

// decodeCSV accepts the long layout (brand, reference, year, value per line)
// and the wide export layout (serie, referencia, one column per year).
func decodeCSV(r io.Reader) ([]model.RawRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	columns := make(map[string]int, len(header))
	var yearCols []int
	for i, h := range header {
		name := normalizeHeader(h)
		if _, dup := columns[name]; !dup {
			columns[name] = i
		}
		if yearColumnRegex.MatchString(name) {
			yearCols = append(yearCols, i)
		}
	}

	brandCol := firstColumn(columns, brandColumns)
	refCol := firstColumn(columns, referenceColumns)
	yearCol := firstColumn(columns, yearColumns)
	valueCol := firstColumn(columns, valueColumns)
	if brandCol < 0 || refCol < 0 {
		return nil, fmt.Errorf("%w: csv header needs brand and reference columns", ErrUnsupportedFormat)
	}

	wide := yearCol < 0 || valueCol < 0
	if wide && len(yearCols) == 0 {
		return nil, fmt.Errorf("%w: csv header has neither year/value nor year columns", ErrUnsupportedFormat)
	}

	var rows []model.RawRow
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}

		brand, reference := cell(record, brandCol), cell(record, refCol)
		if !wide {
			rows = append(rows, model.RawRow{
				Brand:     brand,
				Reference: reference,
				Year:      cell(record, yearCol),
				Value:     cell(record, valueCol),
			})
			continue
		}
		for _, col := range yearCols {
			value := cell(record, col)
			if value == "" {
				continue
			}
			rows = append(rows, model.RawRow{
				Brand:     brand,
				Reference: reference,
				Year:      normalizeHeader(header[col]),
				Value:     value,
			})
		}
	}
	return rows, nil
}

func firstColumn(columns map[string]int, names []string) int {
	for _, name := range names {
		if i, ok := columns[name]; ok {
			return i
		}
	}
	return -1
}

func cell(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// decodeJSON accepts an array of row objects or the series export document
// ([{serie, referencias: [{referencia, valores: {year: value}}]}]).
func decodeJSON(r io.Reader) ([]model.RawRow, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read json: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\ufeff"))
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var items []map[string]json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode json catalog: %w", err)
	}

	var rows []model.RawRow
	for _, item := range items {
		fields := normalizeKeys(item)
		if refs, ok := fields["referencias"]; ok {
			series, err := decodeSeries(fields, refs)
			if err != nil {
				return nil, err
			}
			rows = append(rows, series...)
			continue
		}
		rows = append(rows, model.RawRow{
			Brand:     firstText(fields, brandColumns),
			Reference: firstText(fields, referenceColumns),
			Year:      firstText(fields, yearColumns),
			Value:     firstText(fields, valueColumns),
		})
	}
	return rows, nil
}

func decodeSeries(fields map[string]json.RawMessage, refs json.RawMessage) ([]model.RawRow, error) {
	brand := firstText(fields, brandColumns)

	var references []map[string]json.RawMessage
	if err := json.Unmarshal(refs, &references); err != nil {
		return nil, fmt.Errorf("decode series %q: %w", brand, err)
	}

	var rows []model.RawRow
	for _, ref := range references {
		refFields := normalizeKeys(ref)
		reference := firstText(refFields, referenceColumns)

		var values map[string]json.RawMessage
		if raw, ok := refFields["valores"]; ok {
			if err := json.Unmarshal(raw, &values); err != nil {
				return nil, fmt.Errorf("decode values of %q: %w", reference, err)
			}
		}
		for _, year := range sortedKeys(values) {
			value := textOf(values[year])
			if value == "" {
				continue
			}
			rows = append(rows, model.RawRow{Brand: brand, Reference: reference, Year: year, Value: value})
		}
	}
	return rows, nil
}

func normalizeKeys(item map[string]json.RawMessage) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(item))
	for k, v := range item {
		out[normalizeHeader(k)] = v
	}
	return out
}

func firstText(fields map[string]json.RawMessage, names []string) string {
	for _, name := range names {
		if raw, ok := fields[name]; ok {
			if text := textOf(raw); text != "" {
				return text
			}
		}
	}
	return ""
}

// textOf renders a JSON string or number as text; anything else is ""
func textOf(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if f, err := n.Float64(); err == nil && f == float64(int64(f)) {
			return strconv.FormatInt(int64(f), 10)
		}
		return n.String()
	}
	return ""
}

func sortedKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

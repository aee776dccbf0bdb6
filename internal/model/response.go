package model

import "time"

// ValuationRecord representa a resposta de uma consulta de valor sugerido
type ValuationRecord struct {
	Brand               string           `json:"brand"`
	QueriedReference    string           `json:"queried_reference"`
	NormalizedReference string           `json:"normalized_reference"`
	QueriedYear         string           `json:"queried_year"`
	SuggestedValue      *float64         `json:"suggested_value"`
	SuggestedValueRaw   *string          `json:"suggested_value_raw"`
	Matches             []ValuationMatch `json:"matches"`
	MatchCount          int              `json:"match_count"`
	IndexTimestamp      string           `json:"index_timestamp"`
	Source              string           `json:"source,omitempty"`
	Note                *string          `json:"note,omitempty"`
}

// ValuationMatch representa um candidato ranqueado do catalogo
type ValuationMatch struct {
	Reference             string            `json:"reference"`
	NormalizedReference   string            `json:"normalized_reference"`
	Brand                 string            `json:"brand"`
	Tokens                []string          `json:"tokens"`
	RequestedYearValue    *float64          `json:"requested_year_value"`
	RequestedYearValueRaw *string           `json:"requested_year_value_raw"`
	ValuesByYear          map[int]float64   `json:"values_by_year"`
	RawValuesByYear       map[string]string `json:"raw_values_by_year"`
}

// BrandSummary representa uma marca presente no indice atual
type BrandSummary struct {
	BrandKey       string   `json:"brand_key"`
	PreferredLabel string   `json:"preferred_label"`
	Labels         []string `json:"labels"`
	Entries        int      `json:"entries"`
}

// BrandsResponse representa a listagem de marcas do catalogo
type BrandsResponse struct {
	Brands    []BrandSummary `json:"brands"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// CatalogStatus representa o estado do cache do catalogo
type CatalogStatus struct {
	State     string     `json:"state"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	RowCount  int        `json:"row_count"`
	Brands    int        `json:"brands"`
}

// HealthResponse representa a resposta do health check
type HealthResponse struct {
	Status    string        `json:"status"`
	Database  string        `json:"database,omitempty"`
	Catalog   CatalogStatus `json:"catalog"`
	Timestamp time.Time     `json:"timestamp"`
}

// ErrorResponse representa uma resposta de erro
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

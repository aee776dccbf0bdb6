package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"valuation-catalog-api/internal/catalog"
	"valuation-catalog-api/internal/matching"
)

// tablesFile is the YAML layout of MATCHING_TABLES_FILE
type tablesFile struct {
	BrandAliases  map[string]string `yaml:"brand_aliases"`
	SkipTokens    []string          `yaml:"skip_tokens"`
	BreakTokens   []string          `yaml:"break_tokens"`
	SingleLetters []string          `yaml:"single_letters"`
	Weights       catalog.Weights   `yaml:"weights"`
}

// LoadTables returns the matching vocabularies and score weights, overridden
// by the YAML file at path when path is not empty.
//
// Brand aliases are merged over the defaults; a token list present in the
// file replaces the default list; weights missing from the file keep their
// default value.
func LoadTables(path string) (matching.Tables, catalog.Weights, error) {
	tables := matching.DefaultTables()
	weights := catalog.DefaultWeights()
	if path == "" {
		return tables, weights, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return tables, weights, fmt.Errorf("read matching tables: %w", err)
	}

	file := tablesFile{Weights: weights}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return tables, weights, fmt.Errorf("parse matching tables %s: %w", path, err)
	}

	for label, brand := range file.BrandAliases {
		tables.BrandAliases[label] = brand
	}
	if file.SkipTokens != nil {
		tables.SkipTokens = file.SkipTokens
	}
	if file.BreakTokens != nil {
		tables.BreakTokens = file.BreakTokens
	}
	if file.SingleLetters != nil {
		tables.SingleLetters = file.SingleLetters
	}

	if err := validateWeights(file.Weights); err != nil {
		return tables, weights, fmt.Errorf("matching tables %s: %w", path, err)
	}
	return tables, file.Weights, nil
}

func validateWeights(w catalog.Weights) error {
	for name, v := range map[string]float64{
		"containment":    w.Containment,
		"shared_token":   w.SharedToken,
		"prefix_token":   w.PrefixToken,
		"partial_token":  w.PartialToken,
		"full_coverage":  w.FullCoverage,
		"length_penalty": w.LengthPenalty,
	} {
		if v < 0 {
			return fmt.Errorf("weight %s must not be negative, got %v", name, v)
		}
	}
	return nil
}

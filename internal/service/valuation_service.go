package service

import (
	"context"
	"log/slog"
	"strconv"

	"valuation-catalog-api/internal/catalog"
	"valuation-catalog-api/internal/matching"
	"valuation-catalog-api/internal/metrics"
	"valuation-catalog-api/internal/model"
)

// DefaultSourceLabel identifica a origem dos valores nas respostas
const DefaultSourceLabel = "Fasecolda (Vehículos usados)"

// NoValueNote acompanha respostas sem valor numerico para o ano pedido
const NoValueNote = "Sin valor sugerido disponible para el año solicitado."

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// IndexProvider entrega o indice atual do catalogo
type IndexProvider interface {
	GetIndex(ctx context.Context) (*catalog.Index, error)
}

// ValuationConfig agrupa os parametros do resolvedor
type ValuationConfig struct {
	MinYear         int
	PrefixFiltering bool
	SourceLabel     string
	Weights         catalog.Weights
	Logger          *slog.Logger
	Metrics         metrics.Collector
}

type ValuationService struct {
	cache           IndexProvider
	normalizer      *matching.Normalizer
	prefixes        *matching.PrefixExtractor
	matcher         *catalog.Matcher
	minYear         int
	prefixFiltering bool
	sourceLabel     string
	logger          *slog.Logger
	metrics         metrics.Collector
}

func NewValuationService(
	cache IndexProvider,
	normalizer *matching.Normalizer,
	prefixes *matching.PrefixExtractor,
	cfg ValuationConfig,
) *ValuationService {
	s := &ValuationService{
		cache:           cache,
		normalizer:      normalizer,
		prefixes:        prefixes,
		matcher:         catalog.NewMatcher(cfg.Weights),
		minYear:         cfg.MinYear,
		prefixFiltering: cfg.PrefixFiltering,
		sourceLabel:     cfg.SourceLabel,
		logger:          cfg.Logger,
		metrics:         cfg.Metrics,
	}
	if s.minYear <= 0 {
		s.minYear = catalog.DefaultMinYear
	}
	if s.sourceLabel == "" {
		s.sourceLabel = DefaultSourceLabel
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.metrics == nil {
		s.metrics = metrics.Noop{}
	}
	return s
}

// Resolve busca o valor sugerido de um veiculo.
//
// Retorna (nil, nil) quando nao ha resposta: entrada invalida, ano abaixo do
// minimo, marca desconhecida ou nenhum candidato. Erro apenas quando o indice
// nao pode ser construido.
func (s *ValuationService) Resolve(ctx context.Context, brand, reference, year string) (*model.ValuationRecord, error) {
	brandKey := s.normalizer.BrandKey(brand)
	normalizedYear := matching.NormalizeYear(year)
	normalizedReference := matching.NormalizeReference(reference, brandKey)

	if brandKey == "" || normalizedYear == "" || normalizedReference == "" || !s.admitsYear(normalizedYear) {
		s.metrics.RecordResolve(metrics.OutcomeAbsent)
		return nil, nil
	}

	index, err := s.cache.GetIndex(ctx)
	if err != nil {
		s.metrics.RecordResolve(metrics.OutcomeError)
		return nil, err
	}

	bucket, ok := index.Bucket(brandKey)
	if !ok {
		s.metrics.RecordResolve(metrics.OutcomeAbsent)
		return nil, nil
	}

	candidates := bucket.Entries
	if s.prefixFiltering {
		candidates = catalog.FilterByPrefixes(candidates, s.prefixes.Prefixes(normalizedReference, brandKey))
	}

	ranked := s.matcher.RankEntries(candidates, normalizedReference)
	direct, hasDirect := bucket.Lookup(normalizedReference)
	if hasDirect && (len(ranked) == 0 || ranked[0] != direct) {
		// a prefix filter on skip words can leave the exact entry out
		ranked = append([]*catalog.Entry{direct}, ranked...)
	}
	if len(ranked) == 0 {
		s.metrics.RecordResolve(metrics.OutcomeAbsent)
		return nil, nil
	}
	best := ranked[0]

	matches := make([]model.ValuationMatch, 0, len(ranked))
	for _, entry := range ranked {
		matches = append(matches, toMatch(entry, bucket, normalizedYear))
	}

	record := &model.ValuationRecord{
		Brand:               brandLabel(best, bucket, brand),
		QueriedReference:    reference,
		NormalizedReference: normalizedReference,
		QueriedYear:         normalizedYear,
		Matches:             matches,
		MatchCount:          len(matches),
		IndexTimestamp:      index.CreatedAt.UTC().Format(timestampLayout),
		Source:              s.sourceLabel,
	}
	if raw, ok := best.RawValue(normalizedYear); ok {
		record.SuggestedValueRaw = &raw
	}
	if value, ok := best.Value(normalizedYear); ok {
		record.SuggestedValue = &value
		s.metrics.RecordResolve(metrics.OutcomeFound)
	} else {
		note := NoValueNote
		record.Note = &note
		s.metrics.RecordResolve(metrics.OutcomeNoValue)
	}

	s.logger.Debug("valuation resolved",
		"brand", brandKey,
		"reference", normalizedReference,
		"year", normalizedYear,
		"best", best.NormalizedReference,
		"matches", len(matches),
	)
	return record, nil
}

// Brands lista as marcas do indice atual, construindo-o se preciso
func (s *ValuationService) Brands(ctx context.Context) (*model.BrandsResponse, error) {
	index, err := s.cache.GetIndex(ctx)
	if err != nil {
		return nil, err
	}
	return &model.BrandsResponse{
		Brands:    index.Brands(),
		UpdatedAt: index.CreatedAt,
	}, nil
}

func (s *ValuationService) admitsYear(year string) bool {
	y, err := strconv.Atoi(year)
	return err == nil && y >= s.minYear
}

func toMatch(entry *catalog.Entry, bucket *catalog.Bucket, year string) model.ValuationMatch {
	match := model.ValuationMatch{
		Reference:           entry.ReferenceLabel,
		NormalizedReference: entry.NormalizedReference,
		Brand:               brandLabel(entry, bucket, bucket.BrandKey),
		Tokens:              append([]string(nil), entry.Tokens...),
		ValuesByYear:        entry.Values(),
		RawValuesByYear:     entry.RawValues(),
	}
	if value, ok := entry.Value(year); ok {
		match.RequestedYearValue = &value
	}
	if raw, ok := entry.RawValue(year); ok {
		match.RequestedYearValueRaw = &raw
	}
	return match
}

func brandLabel(entry *catalog.Entry, bucket *catalog.Bucket, fallback string) string {
	switch {
	case entry.PreferredBrandLabel != "":
		return entry.PreferredBrandLabel
	case bucket.PreferredLabel != "":
		return bucket.PreferredLabel
	default:
		return fallback
	}
}


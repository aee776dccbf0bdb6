package matching

import (
	"regexp"
	"strings"
)

const maxCoreTokens = 3

var displacementRegex = regexp.MustCompile(`^\d+CC$`)

// PrefixExtractor derives "brand + core model tokens" prefixes from a free-text
// label, used to keep a query for one sub-model family (X3) away from its
// siblings (X5).
type PrefixExtractor struct {
	skip    map[string]struct{}
	breaks  map[string]struct{}
	singles map[string]struct{}
}

// NewPrefixExtractor creates an extractor from the token tables
func NewPrefixExtractor(tables Tables) *PrefixExtractor {
	return &PrefixExtractor{
		skip:    tokenSet(tables.SkipTokens),
		breaks:  tokenSet(tables.BreakTokens),
		singles: tokenSet(tables.SingleLetters),
	}
}

func tokenSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		for _, token := range Tokenize(strings.ToUpper(NormalizePlainText(w))) {
			set[token] = struct{}{}
		}
	}
	return set
}

// Prefixes returns the family prefixes of label, longest first.
//
// brandKey is the canonical brand; when the label does not contain it, it is
// prepended. With an empty brandKey the first label token is taken as brand.
// A nil result means no family could be derived and no filtering applies.
func (p *PrefixExtractor) Prefixes(label, brandKey string) []string {
	tokens := Tokenize(strings.ToUpper(NormalizePlainText(label)))
	brandTokens := Tokenize(strings.ToUpper(NormalizePlainText(brandKey)))

	var rest []string
	switch {
	case len(brandTokens) == 0:
		if len(tokens) == 0 {
			return nil
		}
		brandTokens, rest = tokens[:1], tokens[1:]
	default:
		if at := indexOfRun(tokens, brandTokens); at >= 0 {
			rest = tokens[at+len(brandTokens):]
		} else {
			rest = tokens
		}
	}

	core := p.coreTokens(rest)
	if len(core) == 0 {
		return nil
	}

	minLen := 1
	if len(core[0]) == 1 {
		minLen = 2
	}

	brand := strings.Join(brandTokens, " ")
	prefixes := make([]string, 0, len(core))
	for n := len(core); n >= minLen; n-- {
		prefixes = append(prefixes, brand+" "+strings.Join(core[:n], " "))
	}
	if len(prefixes) == 0 {
		return nil
	}
	return prefixes
}

func (p *PrefixExtractor) coreTokens(tokens []string) []string {
	core := make([]string, 0, maxCoreTokens)
	for i, token := range tokens {
		if len(core) == maxCoreTokens || p.isBreak(token) {
			break
		}
		if _, skip := p.skip[token]; skip {
			continue
		}
		if len(token) == 1 {
			if len(core) == 0 && p.acceptsSingle(token, tokens[i+1:]) {
				core = append(core, token)
			}
			continue
		}
		core = append(core, token)
	}
	return core
}

func (p *PrefixExtractor) isBreak(token string) bool {
	if _, ok := p.breaks[token]; ok {
		return true
	}
	return displacementRegex.MatchString(token)
}

// acceptsSingle admits a chassis letter ("G 310 R", "S 1000 RR") only when the
// next meaningful token is a series/displacement code.
func (p *PrefixExtractor) acceptsSingle(token string, following []string) bool {
	if _, ok := p.singles[token]; !ok {
		return false
	}
	for _, next := range following {
		if _, skip := p.skip[next]; skip {
			continue
		}
		return !p.isBreak(next) && len(next) > 1 && strings.ContainsAny(next, "0123456789")
	}
	return false
}

// indexOfRun returns where run starts inside tokens, or -1
func indexOfRun(tokens, run []string) int {
	for i := 0; i+len(run) <= len(tokens); i++ {
		match := true
		for j := range run {
			if tokens[i+j] != run[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// MatchesPrefix reports whether label equals prefix or continues it at a word boundary
func MatchesPrefix(label, prefix string) bool {
	return label == prefix || strings.HasPrefix(label, prefix+" ")
}

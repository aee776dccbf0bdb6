package matching

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// Regex to extract a model year
	yearRegex = regexp.MustCompile(`(19|20)\d{2}`)

	// Leading float accepted after money cleanup ("-12.5abc" -> "-12.5")
	floatPrefixRegex = regexp.MustCompile(`^-?(\d+(\.\d*)?|\.\d+)`)
)

// StripDiacritics removes accents ("Vehículos" -> "Vehiculos")
func StripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeWhitespace collapses whitespace runs and trims
func NormalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizePlainText keeps only ASCII letters and digits, separated by single spaces.
func NormalizePlainText(s string) string {
	s = StripDiacritics(strings.TrimSpace(s))
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return ' '
		}
	}, s)
	return NormalizeWhitespace(s)
}

// NormalizeReference uppercases the reference and removes every standalone
// occurrence of the brand's own tokens, so "BMW X3 xDrive30i" under brand
// "BMW" becomes "X3 XDRIVE30I".
func NormalizeReference(reference, brandKey string) string {
	normalized := strings.ToUpper(NormalizePlainText(reference))
	if normalized == "" || brandKey == "" {
		return normalized
	}

	brandTokens := make(map[string]struct{})
	for _, token := range Tokenize(strings.ToUpper(NormalizePlainText(brandKey))) {
		brandTokens[token] = struct{}{}
	}

	kept := make([]string, 0, 8)
	for _, token := range Tokenize(normalized) {
		if _, isBrand := brandTokens[token]; isBrand {
			continue
		}
		kept = append(kept, token)
	}
	return strings.Join(kept, " ")
}

// Tokenize splits a normalized string on single spaces
func Tokenize(normalized string) []string {
	parts := strings.Split(normalized, " ")
	tokens := parts[:0]
	for _, p := range parts {
		if p != "" {
			tokens = append(tokens, p)
		}
	}
	return tokens
}

// NormalizeYear returns the first 19xx/20xx run found in s, or "".
func NormalizeYear(s string) string {
	return yearRegex.FindString(strings.TrimSpace(s))
}

// ParseMoney parses Latin-formatted currency text ("$ 185.000.000", "45,5").
//
// Several dots are thousands separators and are all dropped. A single dot is a
// thousands separator only when a comma follows it ("1.234,5"); otherwise it is
// the decimal point. Commas become the decimal point, unless there are several,
// in which case they are thousands separators too. This reads "1,234,567" and
// "1.234,5" as whole amounts rather than truncating them at the first separator.
func ParseMoney(s string) (float64, bool) {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == ',' || r == '.' || r == '-' {
			return r
		}
		return -1
	}, strings.TrimSpace(s))
	if cleaned == "" {
		return 0, false
	}

	dots := strings.Count(cleaned, ".")
	commas := strings.Count(cleaned, ",")
	switch {
	case dots > 1:
		cleaned = strings.ReplaceAll(cleaned, ".", "")
	case dots == 1 && commas > 0 && strings.LastIndex(cleaned, ",") > strings.Index(cleaned, "."):
		cleaned = strings.ReplaceAll(cleaned, ".", "")
	}
	if commas > 1 {
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	} else {
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	}

	// "1,234.5" leaves two dots at this point; keep the last one as decimal
	if strings.Count(cleaned, ".") > 1 {
		last := strings.LastIndex(cleaned, ".")
		cleaned = strings.ReplaceAll(cleaned[:last], ".", "") + cleaned[last:]
	}

	match := floatPrefixRegex.FindString(cleaned)
	if match == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(match, 64)
	if err != nil || math.IsInf(value, 0) || math.IsNaN(value) {
		return 0, false
	}
	return value, true
}

// Normalizer resolves brand keys through an alias table.
type Normalizer struct {
	aliases map[string]string
}

// NewNormalizer creates a normalizer; alias keys and values are normalized once here.
func NewNormalizer(tables Tables) *Normalizer {
	aliases := make(map[string]string, len(tables.BrandAliases))
	for label, brand := range tables.BrandAliases {
		key := strings.ToUpper(NormalizePlainText(label))
		value := strings.ToUpper(NormalizePlainText(brand))
		if key == "" || value == "" {
			continue
		}
		aliases[key] = value
	}
	return &Normalizer{aliases: aliases}
}

// BrandKey returns the canonical brand key for a label.
//
// A label that is not an alias itself but starts with one ("BMW X3",
// "MINI COOPER S") collapses onto the longest aliased leading run of tokens.
// Unknown labels are returned normalized as-is.
func (n *Normalizer) BrandKey(label string) string {
	plain := strings.ToUpper(NormalizePlainText(label))
	if plain == "" {
		return ""
	}
	if brand, ok := n.aliases[plain]; ok {
		return brand
	}

	tokens := Tokenize(plain)
	for i := len(tokens) - 1; i > 0; i-- {
		if brand, ok := n.aliases[strings.Join(tokens[:i], " ")]; ok {
			return brand
		}
	}
	return plain
}

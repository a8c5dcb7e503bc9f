package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/property-insights/internal/debug"
)

// AbbrevRules maps street suffixes to their USPS abbreviation
type AbbrevRules struct {
	rules map[string]string
}

// NewAbbrevRules returns the default suffix rules
func NewAbbrevRules() *AbbrevRules {
	rules := map[string]string{
		"street":    "st",
		"avenue":    "ave",
		"boulevard": "blvd",
		"road":      "rd",
		"drive":     "dr",
		"lane":      "ln",
		"place":     "pl",
		"court":     "ct",
		"parkway":   "pkwy",
	}
	return &AbbrevRules{rules: rules}
}

// Apply abbreviates every token that has a rule; other tokens pass through
func (ar *AbbrevRules) Apply(tokens []string) []string {
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		if abbr, ok := ar.rules[tok]; ok {
			out[i] = abbr
			continue
		}
		out[i] = tok
	}
	return out
}

var defaultRules = NewAbbrevRules()

// ZIP or ZIP+4 inside free text
var reZipInText = regexp.MustCompile(`\b(\d{5})(?:-\d{4})?\b`)

// ZIP field holding only a ZIP, ZIP+4 or 9 run-together digits
var reZipField = regexp.MustCompile(`^(\d{5})(?:-?\d{4})?$`)

var reZipCanonical = regexp.MustCompile(`^\d{5}$`)

var reZipStripped = regexp.MustCompile(`^\d{1,4}$`)

var foldAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// DisplayAddress trims and collapses internal whitespace, preserving case
func DisplayAddress(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}

// CanonicalAddress builds the matching form of an address, returning the key,
// the last ZIP token found in the text and the key's tokens
func CanonicalAddress(raw string) (key, zip string, tokens []string) {
	return CanonicalAddressDebug(false, raw)
}

// CanonicalAddressDebug normalizes an address with optional debug output
func CanonicalAddressDebug(localDebug bool, raw string) (key, zip string, tokens []string) {
	debug.DebugHeader(localDebug, "canonical address")
	defer debug.DebugFooter(localDebug, "canonical address")

	if strings.TrimSpace(raw) == "" {
		return "", "", []string{}
	}

	zip = ZipFromText(raw)
	debug.DebugOutput(localDebug, "Extracted zip: %q", zip)

	s, _, err := transform.String(foldAccents, raw)
	if err != nil {
		s = raw
	}
	s = strings.ToLower(s)
	s = strings.NewReplacer(".", " ", ",", " ").Replace(s)
	debug.DebugOutput(localDebug, "After folding and punctuation: %s", s)

	tokens = defaultRules.Apply(strings.Fields(s))
	key = strings.Join(tokens, " ")
	debug.DebugOutput(localDebug, "Final key: %s", key)

	return key, zip, tokens
}

// ZipFromText returns the last ZIP-looking token in free text, or ""
func ZipFromText(text string) string {
	matches := reZipInText.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return ""
	}
	return matches[len(matches)-1][1]
}

// ZipFromField extracts a candidate ZIP from a dedicated ZIP field.
// Accepts "12345", "12345-6789", "123456789", or any text whose digits are exactly five.
// A bare 1-4 digit field lost its leading zeros and is padded like NormalizeZip.
func ZipFromField(field string) string {
	s := strings.TrimSpace(field)
	if s == "" {
		return ""
	}
	if m := reZipField.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	if IsZeroStripped(s) {
		return NormalizeZip(s)
	}
	if d := Digits(s); len(d) == 5 {
		return d
	}
	return ""
}

// IsZeroStripped reports whether field is 1-4 digits and nothing else, the
// shape a spreadsheet leaves after dropping a ZIP's leading zeros
func IsZeroStripped(field string) bool {
	return reZipStripped.MatchString(strings.TrimSpace(field))
}

// NormalizeZip coerces a reference-table ZIP to 5 digits: digits only, the
// last five when longer, left zero-padded when shorter. Empty when no digits.
func NormalizeZip(value string) string {
	d := Digits(value)
	if d == "" {
		return ""
	}
	if len(d) > 5 {
		d = d[len(d)-5:]
	}
	return strings.Repeat("0", 5-len(d)) + d
}

// IsCanonicalZip reports whether s is exactly five ASCII digits
func IsCanonicalZip(s string) bool {
	return reZipCanonical.MatchString(s)
}

// Digits keeps only ASCII digits
func Digits(s string) string {
	b := strings.Builder{}
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

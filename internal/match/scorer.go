package match

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownScorer is returned by ScorerByName for unregistered names
var ErrUnknownScorer = errors.New("unknown scorer")

// Registered scorer names
const (
	ScorerRatio   = "ratio"
	ScorerDamerau = "damerau"
	ScorerJaro    = "jaro"
)

var scorers = map[string]Scorer{
	ScorerRatio:   Ratio,
	ScorerDamerau: Damerau,
	ScorerJaro:    Jaro,
}

// ScorerByName looks up a registered scorer. Empty selects ratio.
func ScorerByName(name string) (Scorer, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = ScorerRatio
	}
	s, ok := scorers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (want one of %s)", ErrUnknownScorer, name, strings.Join(ScorerNames(), ", "))
	}
	return s, nil
}

// ScorerNames lists registered scorers in sorted order
func ScorerNames() []string {
	names := make([]string, 0, len(scorers))
	for name := range scorers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Ratio is the normalized indel similarity 200*LCS/(len(a)+len(b)).
// Two empty strings are identical.
func Ratio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 100
	}
	return 200 * float64(lcsLength(ra, rb)) / float64(total)
}

// Damerau is 100*(1 - OSA distance / longer length)
func Damerau(a, b string) float64 {
	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return 100
	}
	return 100 * (1 - float64(OSADistance(a, b))/float64(longest))
}

// Jaro scales JaroSimilarity to 0..100
func Jaro(a, b string) float64 {
	return 100 * JaroSimilarity(a, b)
}

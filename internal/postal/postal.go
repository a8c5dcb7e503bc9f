// Package postal extracts the postcode component of a free-text address.
//
// Builds tagged libpostal use the libpostal CRF parser through gopostal; the
// default build has no parser and callers fall back to regex extraction.
package postal

import "strings"

// Component is a labelled piece of a parsed address
type Component struct {
	Label string
	Value string
}

// Postcode returns the postcode component of address, or "" when the parser
// is unavailable or finds none
func Postcode(address string) string {
	if !Available || strings.TrimSpace(address) == "" {
		return ""
	}
	for _, c := range Parse(address) {
		if c.Label == "postcode" {
			return c.Value
		}
	}
	return ""
}
